package team

import (
	"fmt"

	"github.com/siohaza/haxgo/internal/codec"
	"github.com/siohaza/haxgo/internal/errcode"
	"github.com/siohaza/haxgo/internal/physics"
)

type ID uint8

const (
	Spectators ID = 0
	Red        ID = 1
	Blue       ID = 2
)

// Team is the fixed description of one side. The three values live in a
// package table and are never built per room.
type Team struct {
	ID     ID
	Name   string
	Color  physics.Color
	CGroup physics.CollisionFlags
	KO     physics.CollisionFlags
	Rival  ID
}

var teams = [3]Team{
	{ID: Spectators, Name: "Spectators", Color: 0xFFFFFF, Rival: Spectators},
	{ID: Red, Name: "Red", Color: 0xE56E56, CGroup: physics.CollisionRed, KO: physics.CollisionRedKO, Rival: Blue},
	{ID: Blue, Name: "Blue", Color: 0x5689E5, CGroup: physics.CollisionBlue, KO: physics.CollisionBlueKO, Rival: Red},
}

func ByID(id ID) (*Team, error) {
	if !id.Valid() {
		return nil, errcode.New(errcode.BadTeamError)
	}
	return &teams[id], nil
}

func (id ID) Valid() bool {
	return id <= Blue
}

// Playing reports whether the team takes part in games.
func (id ID) Playing() bool {
	return id == Red || id == Blue
}

// Rival returns the opposing team. Spectators have no rival and map to themselves.
func (id ID) Rival() ID {
	if !id.Valid() {
		return Spectators
	}
	return teams[id].Rival
}

func (id ID) Team() Team {
	if !id.Valid() {
		return teams[Spectators]
	}
	return teams[id]
}

func (id ID) String() string {
	if !id.Valid() {
		return fmt.Sprintf("team(%d)", uint8(id))
	}
	return teams[id].Name
}

// Parse accepts the names used by stadium files and chat commands.
func Parse(s string) (ID, error) {
	switch s {
	case "spec", "spectators", "s":
		return Spectators, nil
	case "red", "r":
		return Red, nil
	case "blue", "b":
		return Blue, nil
	}
	return 0, errcode.New(errcode.BadTeamError)
}

const MaxInnerColors = 3

// Colors is a team's shirt: stripe angle, number colour and up to three
// stripe colours.
type Colors struct {
	Angle int
	Text  physics.Color
	Inner []physics.Color
}

func DefaultColors(id ID) Colors {
	return Colors{Text: 0xFFFFFF, Inner: []physics.Color{id.Team().Color}}
}

func (c Colors) Copy() Colors {
	c.Inner = append([]physics.Color(nil), c.Inner...)
	return c
}

func (c Colors) Validate() error {
	if len(c.Inner) > MaxInnerColors {
		return errcode.New(errcode.TeamColorsReadError)
	}
	return nil
}

func (c *Colors) Write(w *codec.Writer) {
	w.WriteUint16(uint16(c.Angle))
	w.WriteInt32(int32(c.Text))
	w.WriteUint8(uint8(len(c.Inner)))
	for _, col := range c.Inner {
		w.WriteInt32(int32(col))
	}
}

func (c *Colors) Read(r *codec.Reader) error {
	angle, err := r.ReadUint16()
	if err != nil {
		return err
	}
	text, err := r.ReadInt32()
	if err != nil {
		return err
	}
	n, err := r.ReadUint8()
	if err != nil {
		return err
	}
	if n > MaxInnerColors {
		return errcode.New(errcode.TeamColorsReadError)
	}
	inner := make([]physics.Color, n)
	for i := range inner {
		v, err := r.ReadInt32()
		if err != nil {
			return err
		}
		inner[i] = physics.Color(v)
	}
	c.Angle = int(angle)
	c.Text = physics.Color(text)
	c.Inner = inner
	return nil
}
