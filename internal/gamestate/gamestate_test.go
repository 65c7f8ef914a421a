package gamestate

import (
	"bytes"
	"testing"

	"github.com/siohaza/haxgo/internal/codec"
	"github.com/siohaza/haxgo/internal/physics"
	"github.com/siohaza/haxgo/internal/player"
	"github.com/siohaza/haxgo/internal/stadium"
	"github.com/siohaza/haxgo/internal/team"
)

type recorder struct {
	NopEvents
	goals   []team.ID
	kicks   []int
	ends    []team.ID
	kickOff int
	resets  int
	timeUp  int
}

func (r *recorder) OnTeamGoal(t team.ID)     { r.goals = append(r.goals, t) }
func (r *recorder) OnPlayerBallKick(id int)  { r.kicks = append(r.kicks, id) }
func (r *recorder) OnGameEnd(winner team.ID) { r.ends = append(r.ends, winner) }
func (r *recorder) OnKickOff()               { r.kickOff++ }
func (r *recorder) OnPositionsReset()        { r.resets++ }
func (r *recorder) OnTimeIsUp()              { r.timeUp++ }

// pitch is an open field with one spawn point per side and a single goal
// owned by blue on the left.
func pitch() *stadium.Stadium {
	return &stadium.Stadium{
		Name:            "pitch",
		DefaultID:       stadium.CustomID,
		SpawnDistance:   100,
		Discs:           []physics.Disc{stadium.DefaultBall()},
		RedSpawnPoints:  []physics.Vec{{X: -100, Y: 0}},
		BlueSpawnPoints: []physics.Vec{{X: 100, Y: 0}},
		Goals: []stadium.Goal{
			{P0: physics.Vec{X: -300, Y: 100}, P1: physics.Vec{X: -300, Y: -100}, Team: team.Blue},
		},
		PlayerPhysics: stadium.DefaultPlayerPhysics(),
	}
}

func bluePlayer(in player.Input) *player.List {
	l := player.NewList()
	p := player.New(1, "blue", "", "", "", "")
	p.Team = team.Blue
	p.Input = in
	l.Add(p)
	return l
}

// runUntil steps at most limit ticks and returns how many were needed.
func runUntil(gs *GameState, players *player.List, ev Events, limit int, done func() bool) int {
	for i := 1; i <= limit; i++ {
		gs.Step(players, ev)
		if done() {
			return i
		}
	}
	return -1
}

func TestKickOffToGoal(t *testing.T) {
	players := bluePlayer(player.InputLeft)
	gs := New(pitch(), 0, 0, players)
	if gs.State != BeforeKickOff {
		t.Fatalf("new game should wait for kick-off, got %v", gs.State)
	}
	if d := gs.PlayerDisc(1); d == nil || d.Pos.X != 100 || d.Pos.Y != 0 {
		t.Fatalf("blue player not spawned at its point: %+v", d)
	}

	ev := &recorder{}
	if n := runUntil(gs, players, ev, 3000, func() bool { return gs.State == AfterGoal }); n < 0 {
		t.Fatalf("ball never reached the goal, ball at %+v", gs.Ball().Pos)
	}
	if ev.kickOff != 1 {
		t.Fatalf("expected one kick-off event, got %d", ev.kickOff)
	}
	if len(ev.goals) != 1 || ev.goals[0] != team.Red {
		t.Fatalf("expected a red goal, got %v", ev.goals)
	}
	if gs.RedScore != 1 || gs.BlueScore != 0 {
		t.Fatalf("unexpected score %d-%d", gs.RedScore, gs.BlueScore)
	}
	if gs.GoalTickCounter != GoalTicks {
		t.Fatalf("expected goal counter %d, got %d", GoalTicks, gs.GoalTickCounter)
	}
}

func TestGoalCountdownAndEnding(t *testing.T) {
	players := bluePlayer(player.InputLeft)
	gs := New(pitch(), 0, 0, players)
	ev := &recorder{}
	runUntil(gs, players, ev, 3000, func() bool { return gs.State == AfterGoal })

	for i := 0; i < GoalTicks-1; i++ {
		gs.Step(players, ev)
		if gs.State != AfterGoal {
			t.Fatalf("left AfterGoal after %d ticks", i+1)
		}
	}
	gs.Step(players, ev)
	if gs.State != Playing || ev.resets != 1 {
		t.Fatalf("expected Playing after reset, got %v (%d resets)", gs.State, ev.resets)
	}
	if gs.Ball().Pos != (physics.Vec{}) {
		t.Fatalf("ball not reset: %+v", gs.Ball().Pos)
	}

	// same path again, this time with a limit of one goal
	players = bluePlayer(player.InputLeft)
	gs = New(pitch(), 1, 0, players)
	ev = &recorder{}
	runUntil(gs, players, ev, 3000, func() bool { return gs.State == AfterGoal })
	for i := 0; i < GoalTicks; i++ {
		gs.Step(players, ev)
	}
	if gs.State != Ending || gs.GoalTickCounter != EndingTicks {
		t.Fatalf("expected Ending with %d, got %v with %d", EndingTicks, gs.State, gs.GoalTickCounter)
	}
	if len(ev.ends) != 1 || ev.ends[0] != team.Red {
		t.Fatalf("expected red to win, got %v", ev.ends)
	}
	for i := 0; i < EndingTicks-1; i++ {
		if gs.Step(players, ev) {
			t.Fatalf("game finished early at tick %d", i+1)
		}
	}
	if !gs.Step(players, ev) {
		t.Fatalf("game should finish after %d ending ticks", EndingTicks)
	}
}

func TestTimeLimit(t *testing.T) {
	players := bluePlayer(0)
	gs := New(pitch(), 0, 1, players)
	gs.State = Playing
	gs.TimeElapsed = 60

	ev := &recorder{}
	gs.Step(players, ev)
	if gs.State != Playing {
		t.Fatalf("a draw should go to overtime, got %v", gs.State)
	}

	gs.RedScore = 1
	gs.Step(players, ev)
	if gs.State != Ending || ev.timeUp != 1 {
		t.Fatalf("expected time up, got %v", gs.State)
	}
}

func TestPauseFreezes(t *testing.T) {
	players := bluePlayer(player.InputLeft)
	gs := New(pitch(), 0, 0, players)
	gs.Step(players, nil)

	gs.SetPaused(true)
	pos := gs.PlayerDisc(1).Pos
	for i := 0; i < 500; i++ {
		gs.Step(players, nil)
	}
	if gs.PlayerDisc(1).Pos != pos || gs.PauseCounter != PauseTicks {
		t.Fatalf("paused game moved")
	}

	gs.SetPaused(false)
	for i := 0; i < PauseTicks-1; i++ {
		gs.Step(players, nil)
	}
	if gs.PlayerDisc(1).Pos != pos || gs.PauseCounter != 0 {
		t.Fatalf("game moved during the resume countdown (counter %d)", gs.PauseCounter)
	}
	gs.Step(players, nil)
	if gs.PlayerDisc(1).Pos == pos {
		t.Fatalf("game should run once the countdown ends")
	}
}

func TestKickFires(t *testing.T) {
	st := pitch()
	st.BlueSpawnPoints = []physics.Vec{{X: 26, Y: 0}}
	players := bluePlayer(player.InputKick)
	p, _ := players.Get(1)
	p.IsKicking = true

	gs := New(st, 0, 0, players)
	ev := &recorder{}
	gs.Step(players, ev)
	if len(ev.kicks) != 1 || ev.kicks[0] != 1 {
		t.Fatalf("expected a kick by player 1, got %v", ev.kicks)
	}
	if gs.Ball().Speed.X != -st.PlayerPhysics.KickStrength {
		t.Fatalf("unexpected ball speed %+v", gs.Ball().Speed)
	}
	if p.IsKicking {
		t.Fatalf("kick should need a new press")
	}
	gs.Step(players, ev)
	if len(ev.kicks) != 1 {
		t.Fatalf("held key kicked twice")
	}
}

func TestSpawnRows(t *testing.T) {
	st := pitch()
	st.RedSpawnPoints = nil
	gs := New(st, 0, 0, player.NewList())
	want := []float64{0, 55, -55, 110, -110}
	for i, y := range want {
		p := gs.spawnPoint(team.Red, i)
		if p.X != -100 || p.Y != y {
			t.Fatalf("slot %d: got %+v", i, p)
		}
	}
	if p := gs.spawnPoint(team.Blue, 0); p.X != 100 {
		t.Fatalf("blue should spawn on the right, got %+v", p)
	}
}

func TestTeamChangeMidGame(t *testing.T) {
	players := bluePlayer(0)
	gs := New(pitch(), 0, 0, players)
	p, _ := players.Get(1)

	p.Team = team.Spectators
	gs.PlayerTeamChanged(p, players)
	if gs.PlayerDisc(1) != nil {
		t.Fatalf("spectator kept a disc")
	}
	p.Team = team.Red
	gs.PlayerTeamChanged(p, players)
	d := gs.PlayerDisc(1)
	if d == nil || d.Pos.X != -100 || d.CGroup&physics.CollisionRed == 0 {
		t.Fatalf("red disc wrong: %+v", d)
	}
	if d.CMask&physics.CollisionRedKO != 0 {
		t.Fatalf("kick-off team should not be held back")
	}
}

func encode(gs *GameState) []byte {
	w := codec.NewWriter(512)
	gs.Write(w)
	return w.Bytes()
}

func TestDeterministicCopies(t *testing.T) {
	players := bluePlayer(player.InputLeft | player.InputUp)
	a := New(stadiumOrFail(t), 3, 3, players)
	b := a.Copy()
	pa := players
	pb := players.Copy()

	for i := 0; i < 900; i++ {
		a.Step(pa, nil)
		b.Step(pb, nil)
	}
	if !bytes.Equal(encode(a), encode(b)) {
		t.Fatalf("copies diverged")
	}

	c := a.Copy()
	c.Ball().Pos.X += 50
	c.RedScore = 9
	if a.Ball().Pos == c.Ball().Pos || a.RedScore == 9 {
		t.Fatalf("copy shares state with the original")
	}
}

func stadiumOrFail(t *testing.T) *stadium.Stadium {
	st, err := stadium.Default(0)
	if err != nil {
		t.Fatalf("default stadium: %v", err)
	}
	return st
}

func TestWireRoundTrip(t *testing.T) {
	players := bluePlayer(player.InputRight)
	st := stadiumOrFail(t)
	gs := New(st, 3, 0, players)
	for i := 0; i < 30; i++ {
		gs.Step(players, nil)
	}
	data := encode(gs)
	back, err := Read(codec.NewReader(data), st)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !bytes.Equal(data, encode(back)) {
		t.Fatalf("round trip changed the game")
	}
}
