package gamestate

import (
	"github.com/siohaza/haxgo/internal/physics"
	"github.com/siohaza/haxgo/internal/player"
	"github.com/siohaza/haxgo/internal/team"
)

// collisionRelay forwards physics contacts with the owning player ids.
type collisionRelay struct {
	discs []physics.Disc
	ev    Events
}

func (c collisionRelay) OnDiscVsDisc(a, b int) {
	c.ev.OnCollisionDiscVsDisc(a, c.discs[a].PlayerID, b, c.discs[b].PlayerID)
}

func (c collisionRelay) OnDiscVsSegment(disc, segment int) {
	c.ev.OnCollisionDiscVsSegment(disc, c.discs[disc].PlayerID, segment)
}

func (c collisionRelay) OnDiscVsPlane(disc, plane int) {
	c.ev.OnCollisionDiscVsPlane(disc, c.discs[disc].PlayerID, plane)
}

// Step advances the game by one tick and reports whether it has finished,
// in which case the owner drops it. ev may be nil.
func (gs *GameState) Step(players *player.List, ev Events) bool {
	if ev == nil {
		ev = NopEvents{}
	}
	if gs.PauseCounter > 0 {
		if gs.PauseCounter < PauseTicks {
			gs.PauseCounter--
		}
		return false
	}

	gs.applyInputs(players)

	prev := make([]physics.Vec, len(gs.Physics.Discs))
	for i := range gs.Physics.Discs {
		prev[i] = gs.Physics.Discs[i].Pos
	}
	gs.Physics.Step(collisionRelay{discs: gs.Physics.Discs, ev: ev})

	gs.applyKicks(players, ev)

	switch gs.State {
	case BeforeKickOff:
		if gs.scoreDiscMoved(prev) {
			gs.State = Playing
			gs.applyKickOffMasks(players)
			ev.OnKickOff()
		}
	case Playing:
		gs.TimeElapsed += 1.0 / TicksPerSecond
		if gs.checkGoals(prev, ev) {
			break
		}
		if gs.timeUp() && gs.RedScore != gs.BlueScore {
			ev.OnTimeIsUp()
			gs.end(ev)
		}
	case AfterGoal:
		gs.GoalTickCounter--
		if gs.GoalTickCounter <= 0 {
			if gs.limitReached() {
				gs.end(ev)
			} else {
				gs.resetPositions(players)
				gs.State = Playing
				gs.applyKickOffMasks(players)
				ev.OnPositionsReset()
			}
		}
	case Ending:
		gs.GoalTickCounter--
		if gs.GoalTickCounter <= 0 {
			return true
		}
	}

	ev.OnGameTick()
	return false
}

// applyInputs turns every player's key state into acceleration for this tick.
func (gs *GameState) applyInputs(players *player.List) {
	pp := gs.Stadium.PlayerPhysics
	for _, p := range players.All() {
		d := gs.PlayerDisc(p.ID)
		if d == nil {
			continue
		}
		if !p.Input.Kick() {
			p.IsKicking = false
		}

		accel := pp.Acceleration
		d.Damping = pp.Damping
		if p.IsKicking {
			accel = pp.KickingAcceleration
			d.Damping = pp.KickingDamping
		}

		x, y := p.Input.Direction()
		if x == 0 && y == 0 {
			continue
		}
		dir := physics.Vec{X: x, Y: y}.Normalize()
		d.Speed = d.Speed.Add(dir.Scale(accel))
	}
}

// applyKicks fires every pending kick of a player whose disc touches a
// kickable disc. A kick needs the key released before the next one.
func (gs *GameState) applyKicks(players *player.List, ev Events) {
	pp := gs.Stadium.PlayerPhysics
	for _, p := range players.All() {
		if !p.IsKicking {
			continue
		}
		ki := gs.Physics.DiscOf(p.ID)
		if ki < 0 {
			continue
		}

		kicked := false
		for ti := range gs.Physics.Discs {
			if ti == ki {
				continue
			}
			kicker := &gs.Physics.Discs[ki]
			target := &gs.Physics.Discs[ti]
			if target.CGroup&physics.CollisionKick == 0 {
				continue
			}
			delta := target.Pos.Sub(kicker.Pos)
			dist := delta.Len()
			if dist-kicker.Radius-target.Radius >= KickDistance {
				continue
			}
			n := delta.Normalize()
			target.Speed = target.Speed.Add(n.Scale(float64(pp.KickStrength * target.InvMass)))
			kicker.Speed = kicker.Speed.Sub(n.Scale(float64(pp.Kickback * kicker.InvMass)))
			kicked = true
		}
		if kicked {
			p.IsKicking = false
			ev.OnPlayerBallKick(p.ID)
		}
	}
}

func (gs *GameState) scoreDiscMoved(prev []physics.Vec) bool {
	for i := range gs.Physics.Discs {
		d := &gs.Physics.Discs[i]
		if d.CGroup&physics.CollisionScore != 0 && d.Pos != prev[i] {
			return true
		}
	}
	return false
}

// checkGoals looks for a score disc whose path this tick crossed a goal line.
func (gs *GameState) checkGoals(prev []physics.Vec, ev Events) bool {
	for i := range gs.Physics.Discs {
		d := &gs.Physics.Discs[i]
		if d.CGroup&physics.CollisionScore == 0 {
			continue
		}
		for _, g := range gs.Stadium.Goals {
			if !crosses(prev[i], d.Pos, g.P0, g.P1) {
				continue
			}
			scorer := g.Team.Rival()
			if scorer == team.Red {
				gs.RedScore++
			} else {
				gs.BlueScore++
			}
			gs.State = AfterGoal
			gs.GoalTickCounter = GoalTicks
			gs.KickOffTeam = g.Team
			ev.OnTeamGoal(scorer)
			return true
		}
	}
	return false
}

func cross(a, b physics.Vec) float64 {
	return float64(a.X*b.Y) - float64(a.Y*b.X)
}

// crosses reports whether the move a0->a1 strictly crosses the line b0-b1.
func crosses(a0, a1, b0, b1 physics.Vec) bool {
	line := b1.Sub(b0)
	s0 := cross(line, a0.Sub(b0))
	s1 := cross(line, a1.Sub(b0))
	if s0 == 0 || s1 == 0 || (s0 > 0) == (s1 > 0) {
		return false
	}
	move := a1.Sub(a0)
	t0 := cross(move, b0.Sub(a0))
	t1 := cross(move, b1.Sub(a0))
	return t0 == 0 || t1 == 0 || (t0 > 0) != (t1 > 0)
}
