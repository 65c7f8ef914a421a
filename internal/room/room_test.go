package room

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/siohaza/haxgo/internal/callbacks"
	"github.com/siohaza/haxgo/internal/codec"
	"github.com/siohaza/haxgo/internal/errcode"
	"github.com/siohaza/haxgo/internal/gamestate"
	"github.com/siohaza/haxgo/internal/physics"
	"github.com/siohaza/haxgo/internal/player"
	"github.com/siohaza/haxgo/internal/protocol"
	"github.com/siohaza/haxgo/internal/stadium"
	"github.com/siohaza/haxgo/internal/team"
)

type recorder struct {
	callbacks.DefaultCallbacks
	chats  []string
	goals  []team.ID
	stops  []int
	joined []int
	left   []int
}

func (r *recorder) OnPlayerChat(id int, text string) { r.chats = append(r.chats, text) }
func (r *recorder) OnTeamGoal(t team.ID)             { r.goals = append(r.goals, t) }
func (r *recorder) OnGameStop(byID int)              { r.stops = append(r.stops, byID) }
func (r *recorder) OnPlayerJoin(p *player.Player)    { r.joined = append(r.joined, p.ID) }
func (r *recorder) OnPlayerLeave(p *player.Player, reason *string, banned bool, byID int) {
	r.left = append(r.left, p.ID)
}

func newRoom(t *testing.T) *State {
	t.Helper()
	st, err := stadium.Default(0)
	if err != nil {
		t.Fatalf("stadium: %v", err)
	}
	return New("test room", st)
}

func mustApply(t *testing.T, s *State, op protocol.Operation, byID int, cb callbacks.Callbacks) {
	t.Helper()
	if err := s.Apply(op, byID, cb); err != nil {
		t.Fatalf("%s by %d: %v", op.Type(), byID, err)
	}
}

func join(t *testing.T, s *State, ids ...int) {
	t.Helper()
	for _, id := range ids {
		mustApply(t, s, &protocol.JoinRoom{PlayerID: id, Name: "p", Flag: "tr"}, player.HostID, nil)
	}
}

func TestAuthorizationBoundary(t *testing.T) {
	s := newRoom(t)
	join(t, s, 1, 2)

	denied := []struct {
		op   protocol.Operation
		byID int
	}{
		{&protocol.StartGame{}, 1},
		{&protocol.SetScoreLimit{Limit: 5}, 1},
		{&protocol.SetPlayerTeam{PlayerID: 2, Team: team.Red}, 1},
		{&protocol.SendAnnouncement{Text: "hi"}, 1},
		{&protocol.Ping{Pings: []int{1, 2}}, 2},
		{&protocol.JoinRoom{PlayerID: 9, Name: "x"}, 1},
		{&protocol.SendChat{Text: "ghost"}, 7},
		{&protocol.KickBanPlayer{PlayerID: 2}, 1},
	}
	for _, c := range denied {
		before := encode(s)
		if err := s.Apply(c.op, c.byID, nil); !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("%s by %d: expected ErrUnauthorized, got %v", c.op.Type(), c.byID, err)
		}
		if !bytes.Equal(before, encode(s)) {
			t.Fatalf("%s by %d changed the state", c.op.Type(), c.byID)
		}
	}

	// a player may move itself while teams are unlocked and no game runs
	mustApply(t, s, &protocol.SetPlayerTeam{PlayerID: 1, Team: team.Red}, 1, nil)
	mustApply(t, s, &protocol.SetTeamsLock{Locked: true}, player.HostID, nil)
	if err := s.Apply(&protocol.SetPlayerTeam{PlayerID: 1, Team: team.Blue}, 1, nil); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("locked teams should refuse, got %v", err)
	}

	mustApply(t, s, &protocol.SetPlayerAdmin{PlayerID: 1, Admin: true}, player.HostID, nil)
	mustApply(t, s, &protocol.StartGame{}, 1, nil)
	if err := s.Apply(&protocol.SetStadium{Stadium: s.Stadium}, 1, nil); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("stadium change during a game should be refused, got %v", err)
	}
}

func TestChatTooLong(t *testing.T) {
	s := newRoom(t)
	join(t, s, 1)
	cb := &recorder{}

	err := s.Apply(&protocol.SendChat{Text: strings.Repeat("a", 141)}, 1, cb)
	if !errcode.Is(err, errcode.ChatActionMessageTooLongError) {
		t.Fatalf("expected ChatActionMessageTooLongError, got %v", err)
	}
	if len(cb.chats) != 0 {
		t.Fatalf("rejected chat reached the callbacks")
	}
	mustApply(t, s, &protocol.SendChat{Text: strings.Repeat("a", 140)}, 1, cb)
	if len(cb.chats) != 1 {
		t.Fatalf("expected one chat event, got %d", len(cb.chats))
	}
}

func TestCopyIndependence(t *testing.T) {
	s := newRoom(t)
	join(t, s, 1)
	mustApply(t, s, &protocol.SetPlayerTeam{PlayerID: 1, Team: team.Red}, player.HostID, nil)
	mustApply(t, s, &protocol.StartGame{}, player.HostID, nil)
	s.Tick(nil)

	snapshot := encode(s)
	c := s.Copy()
	mustApply(t, c, &protocol.SendInput{Input: player.InputRight}, 1, nil)
	for i := 0; i < 60; i++ {
		c.Tick(nil)
	}
	mustApply(t, c, &protocol.SetTeamColors{Team: team.Red, Colors: team.Colors{Angle: 45, Inner: []physics.Color{1, 2}}}, player.HostID, nil)
	p, _ := c.Player(1)
	p.Name = "changed"

	if !bytes.Equal(snapshot, encode(s)) {
		t.Fatalf("mutating the copy changed the original")
	}
}

func TestKickOffToGoalThroughOperations(t *testing.T) {
	s := newRoom(t)
	cb := &recorder{}
	join(t, s, 1, 2)
	mustApply(t, s, &protocol.SetPlayerAdmin{PlayerID: 1, Admin: true}, player.HostID, cb)
	mustApply(t, s, &protocol.SetPlayerTeam{PlayerID: 2, Team: team.Red}, 1, cb)
	mustApply(t, s, &protocol.StartGame{}, 1, cb)
	if s.Game == nil || s.Game.State != gamestate.BeforeKickOff {
		t.Fatalf("game should wait for the kick-off")
	}
	if cb.joined[0] != 1 || cb.joined[1] != 2 {
		t.Fatalf("unexpected joins %v", cb.joined)
	}

	// the only player walks to the ball and pushes it into the right goal
	mustApply(t, s, &protocol.SendInput{Input: player.InputRight}, 2, cb)
	for i := 0; i < 3000 && len(cb.goals) == 0; i++ {
		s.Tick(cb)
	}
	if len(cb.goals) != 1 || cb.goals[0] != team.Red {
		t.Fatalf("expected a red goal, got %v (ball at %+v)", cb.goals, s.Game.Ball().Pos)
	}
	if s.Game.State != gamestate.AfterGoal || s.Game.RedScore != 1 {
		t.Fatalf("unexpected game %v %d-%d", s.Game.State, s.Game.RedScore, s.Game.BlueScore)
	}
}

func TestGameStopsAfterEnding(t *testing.T) {
	s := newRoom(t)
	cb := &recorder{}
	join(t, s, 1)
	mustApply(t, s, &protocol.StartGame{}, player.HostID, cb)
	s.Game.State = gamestate.Ending
	s.Game.GoalTickCounter = 2

	s.Tick(cb)
	if s.Game == nil {
		t.Fatalf("game dropped too early")
	}
	s.Tick(cb)
	if s.Game != nil || len(cb.stops) != 1 || cb.stops[0] != SystemID {
		t.Fatalf("expected the game to stop on its own, stops %v", cb.stops)
	}
}

func TestKickRateDropsKickBit(t *testing.T) {
	s := newRoom(t)
	join(t, s, 1)
	mustApply(t, s, &protocol.SetPlayerTeam{PlayerID: 1, Team: team.Red}, player.HostID, nil)
	mustApply(t, s, &protocol.SetKickRateLimit{Min: 10}, player.HostID, nil)
	mustApply(t, s, &protocol.StartGame{}, player.HostID, nil)

	mustApply(t, s, &protocol.SendInput{Input: player.InputKick}, 1, nil)
	p, _ := s.Player(1)
	if !p.IsKicking || !p.Input.Kick() {
		t.Fatalf("first press should kick")
	}
	mustApply(t, s, &protocol.SendInput{Input: 0}, 1, nil)
	mustApply(t, s, &protocol.SendInput{Input: player.InputKick}, 1, nil)
	if p.Input.Kick() {
		t.Fatalf("second press within the minimum gap should lose its kick bit")
	}
}

func TestAutoTeamsAndKick(t *testing.T) {
	s := newRoom(t)
	cb := &recorder{}
	join(t, s, 1, 2, 3)
	mustApply(t, s, &protocol.AutoTeams{}, player.HostID, cb)
	p1, _ := s.Player(1)
	p2, _ := s.Player(2)
	if p1.Team != team.Red || p2.Team != team.Blue {
		t.Fatalf("even teams should take two spectators, got %v %v", p1.Team, p2.Team)
	}
	mustApply(t, s, &protocol.AutoTeams{}, player.HostID, cb)
	if p3, _ := s.Player(3); p3.Team != team.Red {
		t.Fatalf("third player should go to red, got %v", p3.Team)
	}

	reason := "bye"
	mustApply(t, s, &protocol.KickBanPlayer{PlayerID: 3, Reason: &reason, Ban: true}, player.HostID, cb)
	if s.Players.Contains(3) || len(cb.left) != 1 {
		t.Fatalf("kicked player still present")
	}
	if err := s.Apply(&protocol.KickBanPlayer{PlayerID: player.HostID}, player.HostID, cb); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("the host cannot be kicked, got %v", err)
	}
}

func TestSameLogSameState(t *testing.T) {
	a := newRoom(t)
	b := newRoom(t)
	log := []struct {
		op   protocol.Operation
		byID int
	}{
		{&protocol.JoinRoom{PlayerID: 1, Name: "a"}, 0},
		{&protocol.JoinRoom{PlayerID: 2, Name: "b"}, 0},
		{&protocol.AutoTeams{}, 0},
		{&protocol.StartGame{}, 0},
		{&protocol.SendInput{Input: player.InputRight | player.InputKick}, 1},
		{&protocol.SendInput{Input: player.InputLeft | player.InputUp}, 2},
	}
	for _, s := range []*State{a, b} {
		for _, e := range log {
			mustApply(t, s, e.op, e.byID, nil)
		}
		for i := 0; i < 600; i++ {
			s.Tick(nil)
		}
	}
	if !bytes.Equal(encode(a), encode(b)) {
		t.Fatalf("same log produced different states")
	}
}

func TestWireRoundTrip(t *testing.T) {
	s := newRoom(t)
	join(t, s, 1)
	mustApply(t, s, &protocol.SetPlayerTeam{PlayerID: 1, Team: team.Blue}, player.HostID, nil)
	mustApply(t, s, &protocol.StartGame{}, player.HostID, nil)
	for i := 0; i < 10; i++ {
		s.Tick(nil)
	}
	data := encode(s)
	back, err := Read(codec.NewReader(data))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(data, encode(back)) {
		t.Fatalf("round trip changed the room")
	}
}

func encode(s *State) []byte {
	w := codec.NewWriter(1024)
	s.Write(w)
	return w.Bytes()
}

func TestSetDiscPropertiesBadTarget(t *testing.T) {
	s := newRoom(t)
	join(t, s, 1)
	mustApply(t, s, &protocol.SetPlayerTeam{PlayerID: 1, Team: team.Red}, player.HostID, nil)
	mustApply(t, s, &protocol.StartGame{}, player.HostID, nil)

	for _, op := range []*protocol.SetDiscProperties{
		{ID: -1},
		{ID: 1 << 20},
		{ID: 42, IsPlayer: true},
	} {
		op.Set(protocol.DiscX, 10)
		if err := s.Apply(op, player.HostID, nil); !errcode.Is(err, errcode.ObjectCastError) {
			t.Errorf("disc %d (player %v): expected ObjectCastError, got %v", op.ID, op.IsPlayer, err)
		}
	}

	ball := &protocol.SetDiscProperties{ID: 0}
	ball.Set(protocol.DiscX, 10)
	mustApply(t, s, ball, player.HostID, nil)
	if s.Game.Ball().Pos.X != 10 {
		t.Fatalf("ball not moved: %+v", s.Game.Ball().Pos)
	}
}
