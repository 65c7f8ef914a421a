package replay

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/siohaza/haxgo/internal/callbacks"
	"github.com/siohaza/haxgo/internal/codec"
	"github.com/siohaza/haxgo/internal/errcode"
	"github.com/siohaza/haxgo/internal/lockstep"
	"github.com/siohaza/haxgo/internal/player"
	"github.com/siohaza/haxgo/internal/protocol"
	"github.com/siohaza/haxgo/internal/room"
	"github.com/siohaza/haxgo/internal/stadium"
	"github.com/siohaza/haxgo/internal/team"
)

func encode(s *room.State) []byte {
	w := codec.NewWriter(1024)
	s.Write(w)
	return w.Bytes()
}

// session records a short game and returns the file, the host's final room
// and the host's room at frame 700.
func session(t *testing.T, cb callbacks.Callbacks) ([]byte, []byte, []byte) {
	t.Helper()
	st, err := stadium.Default(0)
	if err != nil {
		t.Fatalf("stadium: %v", err)
	}
	state := room.New("replay", st)
	rec := NewRecorder(0, state)
	host := lockstep.NewHost(state, cb, func(r protocol.Record) {
		if err := rec.Record(r); err != nil {
			t.Fatalf("record: %v", err)
		}
	}, nil)

	host.Submit(&protocol.JoinRoom{PlayerID: 1, Name: "one"})
	host.Submit(&protocol.JoinRoom{PlayerID: 2, Name: "two"})
	host.Submit(&protocol.AutoTeams{})
	host.Submit(&protocol.StartGame{})

	var mid []byte
	for host.Frame() < 1500 {
		switch host.Frame() {
		case 30:
			host.Receive(&protocol.SendInput{Input: player.InputRight}, 1)
		case 400:
			host.Receive(&protocol.SendInput{Input: player.InputLeft | player.InputDown}, 2)
		case 900:
			host.Receive(&protocol.SendChat{Text: "nice"}, 1)
		}
		host.Tick()
		if host.Frame() == 700 {
			mid = encode(host.State())
		}
	}
	data, err := rec.Stop(host.Frame())
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	return data, encode(host.State()), mid
}

func TestReplayMatchesHost(t *testing.T) {
	data, final, mid := session(t, nil)

	info, err := Inspect(data)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if info.Frames != 1500 || info.Records == 0 {
		t.Fatalf("unexpected info %+v", info)
	}

	r, err := Open(data, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ends := 0
	r.OnEnd(func() { ends++ })
	for r.Step() {
	}
	if r.Frame() != 1500 || ends != 1 {
		t.Fatalf("expected to end at 1500 once, at %d with %d ends", r.Frame(), ends)
	}
	if !bytes.Equal(encode(r.State()), final) {
		t.Fatalf("replayed room differs from the host's")
	}

	var landed uint32
	r.OnDestinationTimeReached(func(frame uint32) { landed = frame })
	r.SetTime(700)
	if landed != 700 || r.Frame() != 700 {
		t.Fatalf("seek landed at %d", r.Frame())
	}
	if !bytes.Equal(encode(r.State()), mid) {
		t.Fatalf("seeking back does not reproduce frame 700")
	}
}

// eventLog writes down every room event in the order it fires.
type eventLog struct {
	callbacks.DefaultCallbacks
	events []string
}

func (l *eventLog) add(format string, args ...any) {
	l.events = append(l.events, fmt.Sprintf(format, args...))
}

func (l *eventLog) OnGameTick()                   { l.add("tick") }
func (l *eventLog) OnKickOff()                    { l.add("kickoff") }
func (l *eventLog) OnPlayerBallKick(id int)       { l.add("kick %d", id) }
func (l *eventLog) OnTeamGoal(t team.ID)          { l.add("goal %s", t) }
func (l *eventLog) OnGameEnd(winner team.ID)      { l.add("end %s", winner) }
func (l *eventLog) OnTimeIsUp()                   { l.add("time up") }
func (l *eventLog) OnPositionsReset()             { l.add("reset") }
func (l *eventLog) OnPlayerJoin(p *player.Player) { l.add("join %d %s", p.ID, p.Name) }
func (l *eventLog) OnPlayerChat(id int, text string) {
	l.add("chat %d %s", id, text)
}
func (l *eventLog) OnPlayerInputChange(id int, input player.Input) {
	l.add("input %d %d", id, input)
}
func (l *eventLog) OnAutoTeams(id1 int, t1 team.ID, id2 int, t2 team.ID, byID int) {
	l.add("autoteams %d %s %d %s", id1, t1, id2, t2)
}
func (l *eventLog) OnGameStart(byID int)   { l.add("start %d", byID) }
func (l *eventLog) OnPingData(pings []int) { l.add("pings %v", pings) }
func (l *eventLog) OnCollisionDiscVsDisc(d1, p1, d2, p2 int) {
	l.add("disc %d %d %d %d", d1, p1, d2, p2)
}
func (l *eventLog) OnCollisionDiscVsSegment(disc, playerID, segment int) {
	l.add("segment %d %d %d", disc, playerID, segment)
}
func (l *eventLog) OnCollisionDiscVsPlane(disc, playerID, plane int) {
	l.add("plane %d %d %d", disc, playerID, plane)
}

func TestReplayFiresSameEvents(t *testing.T) {
	live := &eventLog{}
	data, _, _ := session(t, live)

	replayed := &eventLog{}
	r, err := Open(data, replayed)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for r.Step() {
	}

	if len(live.events) == 0 {
		t.Fatalf("the live session fired no events")
	}
	if len(replayed.events) != len(live.events) {
		t.Fatalf("replay fired %d events, the live session %d", len(replayed.events), len(live.events))
	}
	for i := range live.events {
		if live.events[i] != replayed.events[i] {
			t.Fatalf("event %d differs: live %q, replay %q", i, live.events[i], replayed.events[i])
		}
	}
}

func TestAdvanceUsesSpeed(t *testing.T) {
	data, _, _ := session(t, nil)
	r, err := Open(data, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if n := r.Advance(time.Second); n != 0 {
		t.Fatalf("a new reader is paused, stepped %d", n)
	}
	r.SetSpeed(2)
	if n := r.Advance(time.Second); n != 120 {
		t.Fatalf("expected 120 frames at double speed, got %d", n)
	}
	if r.Time() != 2*time.Second {
		t.Fatalf("unexpected time %v", r.Time())
	}
}

func TestBadFiles(t *testing.T) {
	data, _, _ := session(t, nil)

	wrongVersion := append([]byte(nil), data...)
	wrongVersion[7] = 2
	if _, err := Open(wrongVersion, nil); !errcode.Is(err, errcode.ReplayFileVersionMismatchError) {
		t.Fatalf("expected ReplayFileVersionMismatchError, got %v", err)
	}

	wrongMagic := append([]byte(nil), data...)
	wrongMagic[0] = 'X'
	if _, err := Open(wrongMagic, nil); !errcode.Is(err, errcode.ReplayFileReadError) {
		t.Fatalf("expected ReplayFileReadError, got %v", err)
	}

	if _, err := Open(data[:len(data)/2], nil); !errcode.Is(err, errcode.ReplayFileReadError) {
		t.Fatalf("expected ReplayFileReadError for a cut file, got %v", err)
	}
}

func TestStoppedRecorder(t *testing.T) {
	st, _ := stadium.Default(1)
	rec := NewRecorder(10, room.New("r", st))
	if err := rec.Record(protocol.Record{Frame: 12, Op: &protocol.StartGame{}}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := rec.Record(protocol.Record{Frame: 11, Op: &protocol.StopGame{}}); err == nil {
		t.Fatalf("out of order record accepted")
	}
	if _, err := rec.Stop(20); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if _, err := rec.Stop(20); err != ErrStopped {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}
