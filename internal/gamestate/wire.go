package gamestate

import (
	"fmt"

	"github.com/siohaza/haxgo/internal/codec"
	"github.com/siohaza/haxgo/internal/physics"
	"github.com/siohaza/haxgo/internal/stadium"
	"github.com/siohaza/haxgo/internal/team"
)

// Write encodes the game without its stadium, which the room sends once.
func (gs *GameState) Write(w *codec.Writer) {
	w.WriteUint8(uint8(gs.State))
	w.WriteVarUint(uint32(gs.PauseCounter))
	w.WriteVarUint(uint32(gs.GoalTickCounter))
	w.WriteFloat64(gs.TimeElapsed)
	w.WriteVarUint(uint32(gs.RedScore))
	w.WriteVarUint(uint32(gs.BlueScore))
	w.WriteVarUint(uint32(gs.ScoreLimit))
	w.WriteVarUint(uint32(gs.TimeLimit))
	w.WriteUint8(uint8(gs.KickOffTeam))
	gs.Physics.Write(w)
}

// Read decodes a game played on st.
func Read(r *codec.Reader, st *stadium.Stadium) (*GameState, error) {
	gs := &GameState{Stadium: st}

	state, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	if PlayState(state) > Ending {
		return nil, fmt.Errorf("invalid play state %d", state)
	}
	gs.State = PlayState(state)

	counters := []*int{&gs.PauseCounter, &gs.GoalTickCounter}
	for _, dst := range counters {
		v, err := r.ReadVarUint()
		if err != nil {
			return nil, err
		}
		*dst = int(v)
	}
	if gs.TimeElapsed, err = r.ReadFloat64(); err != nil {
		return nil, err
	}
	for _, dst := range []*int{&gs.RedScore, &gs.BlueScore, &gs.ScoreLimit, &gs.TimeLimit} {
		v, err := r.ReadVarUint()
		if err != nil {
			return nil, err
		}
		*dst = int(v)
	}
	t, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	gs.KickOffTeam = team.ID(t)
	if !gs.KickOffTeam.Playing() {
		return nil, fmt.Errorf("invalid kick-off team %d", t)
	}

	gs.Physics = &physics.State{}
	if err := gs.Physics.Read(r); err != nil {
		return nil, fmt.Errorf("failed to read physics state: %w", err)
	}
	return gs, nil
}
