package lockstep

import (
	"bytes"
	"testing"

	"github.com/siohaza/haxgo/internal/callbacks"
	"github.com/siohaza/haxgo/internal/codec"
	"github.com/siohaza/haxgo/internal/player"
	"github.com/siohaza/haxgo/internal/protocol"
	"github.com/siohaza/haxgo/internal/room"
	"github.com/siohaza/haxgo/internal/stadium"
	"github.com/siohaza/haxgo/internal/team"
)

func newState(t *testing.T) *room.State {
	t.Helper()
	st, err := stadium.Default(2)
	if err != nil {
		t.Fatalf("stadium: %v", err)
	}
	return room.New("lockstep", st)
}

func encode(s *room.State) []byte {
	w := codec.NewWriter(1024)
	s.Write(w)
	return w.Bytes()
}

type denyChat struct {
	callbacks.DefaultCallbacks
}

func (denyChat) OnOperationReceived(op protocol.Operation, byID int, frame uint32) callbacks.Decision {
	if op.Type() == protocol.OpSendChat {
		return callbacks.Reject()
	}
	return callbacks.Accept()
}

func TestClientFollowsHost(t *testing.T) {
	var client *Client
	var records []protocol.Record
	host := NewHost(newState(t), nil, func(rec protocol.Record) {
		records = append(records, rec)
		if client != nil {
			if err := client.Receive(rec); err != nil {
				t.Fatalf("client receive: %v", err)
			}
		}
	}, nil)

	host.Submit(&protocol.JoinRoom{PlayerID: 1, Name: "one"})
	host.Submit(&protocol.JoinRoom{PlayerID: 2, Name: "two"})
	host.Submit(&protocol.AutoTeams{})
	host.Tick()

	frame, snapshot := host.Snapshot()
	var err error
	client, err = Join(&protocol.JoinAccepted{PlayerID: 2, Frame: frame, State: snapshot}, nil)
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	host.Submit(&protocol.StartGame{})
	for i := 0; i < 400; i++ {
		switch i {
		case 10:
			host.Receive(&protocol.SendInput{Input: player.InputRight | player.InputKick}, 1)
		case 50:
			client.Send(&protocol.SendInput{Input: player.InputLeft})
			host.Receive(&protocol.SendInput{Input: player.InputLeft}, 2)
		case 200:
			host.Receive(&protocol.PauseResumeGame{Paused: true}, 2)
		}
		host.Tick()
		client.AdvanceTo(host.Frame())
	}

	if client.Frame() != host.Frame() {
		t.Fatalf("client at %d, host at %d", client.Frame(), host.Frame())
	}
	if !bytes.Equal(encode(client.State()), encode(host.State())) {
		t.Fatalf("client state diverged from the host")
	}
	if len(client.local) != 0 {
		t.Fatalf("confirmed input still buffered")
	}
	for _, rec := range records {
		if rec.Op.Type() == protocol.OpPauseResumeGame {
			t.Fatalf("non-admin pause was relayed")
		}
	}
}

func TestPermissionHook(t *testing.T) {
	host := NewHost(newState(t), &denyChat{}, nil, nil)
	host.Submit(&protocol.JoinRoom{PlayerID: 1, Name: "one"})
	host.Tick()
	if d := host.Receive(&protocol.SendChat{Text: "hi"}, 1); d.Verdict != callbacks.VerdictReject {
		t.Fatalf("expected reject, got %+v", d)
	}
	if len(host.queue) != 0 {
		t.Fatalf("rejected operation was queued")
	}
}

type halfPing struct {
	callbacks.DefaultCallbacks
}

func (halfPing) ModifyPlayerPing(id, ping int) int { return ping / 2 }

func TestPingOperation(t *testing.T) {
	var pings []int
	host := NewHost(newState(t), &halfPing{}, func(rec protocol.Record) {
		if p, ok := rec.Op.(*protocol.Ping); ok {
			pings = p.Pings
		}
	}, nil)
	host.Submit(&protocol.JoinRoom{PlayerID: 3, Name: "x"})
	host.ReportPing(3, 80)
	for host.Frame() <= PingInterval {
		host.Tick()
	}
	if len(pings) != 1 || pings[0] != 40 {
		t.Fatalf("expected one modified ping of 40, got %v", pings)
	}
	p, _ := host.State().Player(3)
	if p.Ping != 40 {
		t.Fatalf("ping not applied, got %d", p.Ping)
	}
}

func TestExtrapolationLeavesConfirmedState(t *testing.T) {
	s := newState(t)
	for _, op := range []protocol.Operation{
		&protocol.JoinRoom{PlayerID: 1, Name: "one"},
		&protocol.SetPlayerTeam{PlayerID: 1, Team: team.Red},
		&protocol.StartGame{},
	} {
		if err := s.Apply(op, player.HostID, nil); err != nil {
			t.Fatalf("setup %s: %v", op.Type(), err)
		}
	}
	client := NewClient(s, 0, 1, nil)
	before := encode(client.State())

	client.Send(&protocol.SendInput{Input: player.InputRight})
	ahead := client.Extrapolate(30)
	if !bytes.Equal(before, encode(client.State())) {
		t.Fatalf("extrapolation touched the confirmed room")
	}
	confirmed := client.State().Game.PlayerDisc(1).Pos
	if ahead.Game.PlayerDisc(1).Pos.X <= confirmed.X {
		t.Fatalf("extrapolated player should have moved right")
	}
	if client.Extrapolated() != ahead {
		t.Fatalf("last extrapolation not kept")
	}

	rec := protocol.Record{Frame: 5, SenderID: 1, Op: &protocol.SendInput{Input: player.InputRight}}
	if err := client.Receive(rec); err != nil {
		t.Fatalf("receive: %v", err)
	}
	if client.Extrapolated() != nil || len(client.local) != 0 || client.Frame() != 5 {
		t.Fatalf("record should confirm input and drop the extrapolation")
	}
	if err := client.Receive(protocol.Record{Frame: 2, SenderID: 0, Op: &protocol.StopGame{}}); err == nil {
		t.Fatalf("stale record should fail")
	}
}

func TestConfirmMatchesPayload(t *testing.T) {
	s := newState(t)
	if err := s.Apply(&protocol.JoinRoom{PlayerID: 1, Name: "one"}, player.HostID, nil); err != nil {
		t.Fatalf("join: %v", err)
	}
	client := NewClient(s, 0, 1, nil)

	// The host refuses the first chat and never echoes it.
	client.Send(&protocol.SendChat{Text: "refused"})
	client.Send(&protocol.SendChat{Text: "kept"})
	client.Send(&protocol.SendChat{Text: "later"})

	if err := client.Receive(protocol.Record{Frame: 1, SenderID: 1, Op: &protocol.SendChat{Text: "kept"}}); err != nil {
		t.Fatalf("receive: %v", err)
	}
	if len(client.local) != 1 {
		t.Fatalf("expected one pending operation, got %d", len(client.local))
	}
	if chat, ok := client.local[0].op.(*protocol.SendChat); !ok || chat.Text != "later" {
		t.Fatalf("wrong operation left pending: %+v", client.local[0].op)
	}

	// An echo that matches nothing pending leaves the queue alone.
	if err := client.Receive(protocol.Record{Frame: 2, SenderID: 1, Op: &protocol.SendChat{Text: "other"}}); err != nil {
		t.Fatalf("receive: %v", err)
	}
	if len(client.local) != 1 {
		t.Fatalf("unmatched echo dropped a pending operation")
	}
	if err := client.Receive(protocol.Record{Frame: 3, SenderID: 1, Op: &protocol.SendChat{Text: "later"}}); err != nil {
		t.Fatalf("receive: %v", err)
	}
	if len(client.local) != 0 {
		t.Fatalf("expected nothing pending, got %d", len(client.local))
	}
}
