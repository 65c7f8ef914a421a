package room

import (
	"errors"
	"fmt"

	"github.com/siohaza/haxgo/internal/callbacks"
	"github.com/siohaza/haxgo/internal/codec"
	"github.com/siohaza/haxgo/internal/gamestate"
	"github.com/siohaza/haxgo/internal/player"
	"github.com/siohaza/haxgo/internal/stadium"
	"github.com/siohaza/haxgo/internal/team"
)

// ErrUnauthorized marks an operation the sender may not perform. It is
// dropped without a reply.
var ErrUnauthorized = errors.New("unauthorized operation")

// SystemID is the byID of changes no player asked for, such as a game
// that stops on its own after its ending countdown.
const SystemID = -1

const (
	DefaultScoreLimit = 3
	DefaultTimeLimit  = 3
)

// State is everything every peer of a room agrees on. Peers applying the
// same operations in the same order hold bit-identical states.
type State struct {
	Name        string
	Stadium     *stadium.Stadium
	KickRate    player.KickRate
	ScoreLimit  int
	TimeLimit   int
	TeamsLocked bool
	Game        *gamestate.GameState
	Players     *player.List

	// TeamColors is indexed by team id. Index 0 is unused.
	TeamColors [3]team.Colors
}

func New(name string, st *stadium.Stadium) *State {
	s := &State{
		Name:       name,
		Stadium:    st,
		KickRate:   player.DefaultKickRate(),
		ScoreLimit: DefaultScoreLimit,
		TimeLimit:  DefaultTimeLimit,
		Players:    player.NewList(),
	}
	for _, t := range []team.ID{team.Red, team.Blue} {
		s.TeamColors[t] = team.DefaultColors(t)
	}
	return s
}

// Copy returns a fully independent state. The stadium is shared since it is
// only ever replaced, never edited.
func (s *State) Copy() *State {
	c := *s
	c.Players = s.Players.Copy()
	if s.Game != nil {
		c.Game = s.Game.Copy()
	}
	for i := range c.TeamColors {
		c.TeamColors[i] = s.TeamColors[i].Copy()
	}
	return &c
}

func (s *State) Player(id int) (*player.Player, bool) {
	return s.Players.Get(id)
}

func (s *State) isAdmin(id int) bool {
	if id == player.HostID {
		return true
	}
	p, ok := s.Players.Get(id)
	return ok && p.Admin
}

// Tick advances the room by one frame. A game whose ending countdown ran out
// is dropped.
func (s *State) Tick(cb callbacks.Callbacks) {
	if cb == nil {
		cb = &callbacks.DefaultCallbacks{}
	}
	for _, p := range s.Players.All() {
		p.TickKickRate()
	}
	if s.Game == nil {
		return
	}
	if s.Game.Step(s.Players, cb) {
		s.Game = nil
		cb.OnGameStop(SystemID)
	}
}

func (s *State) Write(w *codec.Writer) {
	w.WriteString(s.Name)
	s.Stadium.Write(w)
	w.WriteVarUint(uint32(s.KickRate.Min))
	w.WriteVarUint(uint32(s.KickRate.Rate))
	w.WriteVarUint(uint32(s.KickRate.Burst))
	w.WriteVarUint(uint32(s.ScoreLimit))
	w.WriteVarUint(uint32(s.TimeLimit))
	w.WriteBool(s.TeamsLocked)
	for _, t := range []team.ID{team.Red, team.Blue} {
		s.TeamColors[t].Write(w)
	}
	s.Players.Write(w)
	w.WriteBool(s.Game != nil)
	if s.Game != nil {
		s.Game.Write(w)
	}
}

func Read(r *codec.Reader) (*State, error) {
	s := &State{Players: player.NewList()}
	var err error
	if s.Name, err = r.ReadString(); err != nil {
		return nil, err
	}
	if s.Stadium, err = stadium.Read(r); err != nil {
		return nil, fmt.Errorf("failed to read stadium: %w", err)
	}
	ints := []*int{&s.KickRate.Min, &s.KickRate.Rate, &s.KickRate.Burst, &s.ScoreLimit, &s.TimeLimit}
	for _, dst := range ints {
		v, err := r.ReadVarUint()
		if err != nil {
			return nil, err
		}
		*dst = int(v)
	}
	if s.TeamsLocked, err = r.ReadBool(); err != nil {
		return nil, err
	}
	for _, t := range []team.ID{team.Red, team.Blue} {
		if err := s.TeamColors[t].Read(r); err != nil {
			return nil, fmt.Errorf("failed to read team colors: %w", err)
		}
	}
	if err := s.Players.Read(r); err != nil {
		return nil, fmt.Errorf("failed to read players: %w", err)
	}
	running, err := r.ReadBool()
	if err != nil {
		return nil, err
	}
	if running {
		if s.Game, err = gamestate.Read(r, s.Stadium); err != nil {
			return nil, fmt.Errorf("failed to read game: %w", err)
		}
	}
	return s, nil
}
