package gamestate

import (
	"github.com/siohaza/haxgo/internal/physics"
	"github.com/siohaza/haxgo/internal/player"
	"github.com/siohaza/haxgo/internal/stadium"
	"github.com/siohaza/haxgo/internal/team"
)

type PlayState uint8

const (
	BeforeKickOff PlayState = 0
	Playing       PlayState = 1
	AfterGoal     PlayState = 2
	Ending        PlayState = 3
)

func (s PlayState) String() string {
	switch s {
	case BeforeKickOff:
		return "before_kickoff"
	case Playing:
		return "playing"
	case AfterGoal:
		return "after_goal"
	case Ending:
		return "ending"
	}
	return "unknown"
}

const (
	TicksPerSecond = 60

	// PauseTicks is the pause counter value while paused. Resuming starts a
	// countdown from PauseTicks-1 during which the game stays frozen.
	PauseTicks   = 120
	GoalTicks    = 150
	EndingTicks  = 300
	KickDistance = 4

	// playerMask is what a player disc collides with outside kick-off.
	playerMask = physics.CollisionBall | physics.CollisionRed | physics.CollisionBlue | physics.CollisionWall

	spawnSpacing = 55
)

// Events is the set of game hooks the simulation fires. Ids are player ids,
// disc indices or segment/plane indices into the live physics state.
type Events interface {
	OnGameTick()
	OnKickOff()
	OnPlayerBallKick(playerID int)
	OnTeamGoal(scorer team.ID)
	OnGameEnd(winner team.ID)
	OnTimeIsUp()
	OnPositionsReset()
	OnCollisionDiscVsDisc(d1, p1, d2, p2 int)
	OnCollisionDiscVsSegment(disc, playerID, segment int)
	OnCollisionDiscVsPlane(disc, playerID, plane int)
}

// NopEvents ignores every event.
type NopEvents struct{}

func (NopEvents) OnGameTick()                              {}
func (NopEvents) OnKickOff()                               {}
func (NopEvents) OnPlayerBallKick(int)                     {}
func (NopEvents) OnTeamGoal(team.ID)                       {}
func (NopEvents) OnGameEnd(team.ID)                        {}
func (NopEvents) OnTimeIsUp()                              {}
func (NopEvents) OnPositionsReset()                        {}
func (NopEvents) OnCollisionDiscVsDisc(int, int, int, int) {}
func (NopEvents) OnCollisionDiscVsSegment(int, int, int)   {}
func (NopEvents) OnCollisionDiscVsPlane(int, int, int)     {}

type GameState struct {
	Stadium *stadium.Stadium
	Physics *physics.State

	State           PlayState
	PauseCounter    int
	GoalTickCounter int
	TimeElapsed     float64
	RedScore        int
	BlueScore       int
	ScoreLimit      int
	TimeLimit       int
	KickOffTeam     team.ID
}

// New starts a game on st. Every red and blue player gets a disc at its
// spawn point and the game waits for the kick-off.
func New(st *stadium.Stadium, scoreLimit, timeLimit int, players *player.List) *GameState {
	gs := &GameState{
		Stadium:     st,
		Physics:     st.State(),
		State:       BeforeKickOff,
		ScoreLimit:  scoreLimit,
		TimeLimit:   timeLimit,
		KickOffTeam: team.Red,
	}
	for _, p := range players.All() {
		if p.Team.Playing() {
			gs.addDisc(p)
		}
	}
	gs.resetPositions(players)
	return gs
}

// Copy returns an independent game. The stadium template is shared: it is
// never mutated, only replaced.
func (gs *GameState) Copy() *GameState {
	c := *gs
	c.Physics = gs.Physics.Copy()
	return &c
}

func (gs *GameState) Paused() bool {
	return gs.PauseCounter == PauseTicks
}

// SetPaused freezes or resumes the game. Resuming keeps the game frozen
// until the countdown runs out.
func (gs *GameState) SetPaused(paused bool) {
	if paused {
		gs.PauseCounter = PauseTicks
	} else if gs.PauseCounter == PauseTicks {
		gs.PauseCounter = PauseTicks - 1
	}
}

// PlayerDisc returns the live disc of a player, if it has one.
func (gs *GameState) PlayerDisc(id int) *physics.Disc {
	i := gs.Physics.DiscOf(id)
	if i < 0 {
		return nil
	}
	return &gs.Physics.Discs[i]
}

func (gs *GameState) Ball() *physics.Disc {
	return &gs.Physics.Discs[0]
}

func (gs *GameState) addDisc(p *player.Player) *physics.Disc {
	pp := gs.Stadium.PlayerPhysics
	t := p.Team.Team()
	gs.Physics.Discs = append(gs.Physics.Discs, physics.Disc{
		ID:       len(gs.Physics.Discs),
		PlayerID: p.ID,
		Gravity:  pp.Gravity,
		Radius:   pp.Radius,
		BCoef:    pp.BCoef,
		InvMass:  pp.InvMass,
		Damping:  pp.Damping,
		Color:    t.Color,
		CGroup:   pp.CGroup | t.CGroup,
		CMask:    playerMask,
	})
	return &gs.Physics.Discs[len(gs.Physics.Discs)-1]
}

func (gs *GameState) removeDisc(id int) {
	i := gs.Physics.DiscOf(id)
	if i < 0 {
		return
	}
	discs := gs.Physics.Discs
	gs.Physics.Discs = append(discs[:i], discs[i+1:]...)
	for j := i; j < len(gs.Physics.Discs); j++ {
		gs.Physics.Discs[j].ID = j
	}
}

// PlayerTeamChanged moves a player's disc to match p.Team. A player joining
// a team mid-game spawns at the next free slot of that team.
func (gs *GameState) PlayerTeamChanged(p *player.Player, players *player.List) {
	gs.removeDisc(p.ID)
	if !p.Team.Playing() {
		return
	}
	d := gs.addDisc(p)
	idx := 0
	for _, other := range players.InTeam(p.Team) {
		if other.ID == p.ID {
			break
		}
		if gs.Physics.DiscOf(other.ID) >= 0 {
			idx++
		}
	}
	d.Pos = gs.spawnPoint(p.Team, idx)
	gs.applyKickOffMasks(players)
}

// PlayerLeft drops the disc of a player that left the room.
func (gs *GameState) PlayerLeft(id int) {
	gs.removeDisc(id)
}

func (gs *GameState) spawnPoint(t team.ID, idx int) physics.Vec {
	if points := gs.Stadium.SpawnPoints(t); len(points) > 0 {
		if idx >= len(points) {
			idx = len(points) - 1
		}
		return points[idx]
	}

	x := -gs.Stadium.SpawnDistance
	if t == team.Blue {
		x = gs.Stadium.SpawnDistance
	}
	row := float64((idx + 1) / 2 * spawnSpacing)
	if idx%2 == 0 {
		row = -row
	}
	return physics.Vec{X: x, Y: row}
}

// resetPositions puts the ball (or every stadium disc on a full reset) back
// to the template and every player disc on its spawn point.
func (gs *GameState) resetPositions(players *player.List) {
	n := 1
	if gs.Stadium.FullKickOffReset {
		n = len(gs.Stadium.Discs)
	}
	for i := 0; i < n && i < len(gs.Physics.Discs); i++ {
		d := gs.Stadium.Discs[i]
		d.ID = i
		d.PlayerID = physics.NoPlayer
		gs.Physics.Discs[i] = d
	}

	for _, t := range []team.ID{team.Red, team.Blue} {
		idx := 0
		for _, p := range players.InTeam(t) {
			d := gs.PlayerDisc(p.ID)
			if d == nil {
				continue
			}
			d.Pos = gs.spawnPoint(t, idx)
			d.Speed = physics.Vec{}
			idx++
		}
	}
	gs.applyKickOffMasks(players)
}

// applyKickOffMasks keeps the team without the kick-off out of the centre
// until the ball is touched.
func (gs *GameState) applyKickOffMasks(players *player.List) {
	for _, p := range players.All() {
		d := gs.PlayerDisc(p.ID)
		if d == nil {
			continue
		}
		d.CMask = playerMask
		if gs.State == BeforeKickOff && p.Team != gs.KickOffTeam {
			d.CMask |= p.Team.Team().KO
		}
	}
}

func (gs *GameState) limitReached() bool {
	if gs.ScoreLimit > 0 && (gs.RedScore >= gs.ScoreLimit || gs.BlueScore >= gs.ScoreLimit) {
		return true
	}
	return gs.timeUp() && gs.RedScore != gs.BlueScore
}

func (gs *GameState) timeUp() bool {
	return gs.TimeLimit > 0 && gs.TimeElapsed >= float64(gs.TimeLimit*TicksPerSecond)
}

func (gs *GameState) Winner() team.ID {
	switch {
	case gs.RedScore > gs.BlueScore:
		return team.Red
	case gs.BlueScore > gs.RedScore:
		return team.Blue
	}
	return team.Spectators
}

func (gs *GameState) end(ev Events) {
	gs.State = Ending
	gs.GoalTickCounter = EndingTicks
	ev.OnGameEnd(gs.Winner())
}
