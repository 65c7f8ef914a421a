package stadium

import (
	"github.com/siohaza/haxgo/internal/errcode"
	"github.com/siohaza/haxgo/internal/physics"
	"github.com/siohaza/haxgo/internal/team"
)

// CustomID is the DefaultID of every stadium that is not one of the built-ins.
const CustomID = 255

// MaxEntities is the per-list limit a stadium may hold.
const MaxEntities = 255

type CameraFollow uint8

const (
	CameraFollowBall   CameraFollow = 0
	CameraFollowPlayer CameraFollow = 1
)

type BackgroundType uint8

const (
	BackgroundNone   BackgroundType = 0
	BackgroundGrass  BackgroundType = 1
	BackgroundHockey BackgroundType = 2
)

type Background struct {
	Type          BackgroundType
	Width         float64
	Height        float64
	KickOffRadius float64
	CornerRadius  float64
	GoalLine      float64
	Color         physics.Color
}

// PlayerPhysics is applied to every player disc a stadium spawns.
type PlayerPhysics struct {
	Radius              float64
	BCoef               float64
	InvMass             float64
	Damping             float64
	Gravity             physics.Vec
	CGroup              physics.CollisionFlags
	Acceleration        float64
	KickingAcceleration float64
	KickingDamping      float64
	KickStrength        float64
	Kickback            float64
}

func DefaultPlayerPhysics() PlayerPhysics {
	return PlayerPhysics{
		Radius:              15,
		BCoef:               0.5,
		InvMass:             0.5,
		Damping:             0.96,
		Acceleration:        0.1,
		KickingAcceleration: 0.07,
		KickingDamping:      0.96,
		KickStrength:        5,
	}
}

// Goal is a scoring line. A score-flagged disc crossing it scores for the
// rival of Team.
type Goal struct {
	P0   physics.Vec
	P1   physics.Vec
	Team team.ID
}

// DefaultBall is the ball used when a stadium does not describe one.
func DefaultBall() physics.Disc {
	return physics.Disc{
		PlayerID: physics.NoPlayer,
		Radius:   10,
		BCoef:    0.5,
		InvMass:  1,
		Damping:  0.99,
		Color:    0xFFFFFF,
		CGroup:   physics.CollisionBall | physics.CollisionKick | physics.CollisionScore,
		CMask:    physics.CollisionAll,
	}
}

// Stadium is the immutable template a game is built from. Discs[0] is the ball.
type Stadium struct {
	Name      string
	DefaultID uint8

	Width            float64
	Height           float64
	MaxViewWidth     float64
	CameraFollow     CameraFollow
	SpawnDistance    float64
	CanBeStored      bool
	FullKickOffReset bool
	Background       Background

	Vertices []physics.Vertex
	Segments []physics.Segment
	Planes   []physics.Plane
	Goals    []Goal
	Discs    []physics.Disc
	Joints   []physics.Joint

	RedSpawnPoints  []physics.Vec
	BlueSpawnPoints []physics.Vec
	PlayerPhysics   PlayerPhysics
}

func (s *Stadium) IsCustom() bool {
	return s.DefaultID == CustomID
}

func (s *Stadium) Copy() *Stadium {
	c := *s
	c.Vertices = append([]physics.Vertex(nil), s.Vertices...)
	c.Segments = append([]physics.Segment(nil), s.Segments...)
	c.Planes = append([]physics.Plane(nil), s.Planes...)
	c.Goals = append([]Goal(nil), s.Goals...)
	c.Discs = append([]physics.Disc(nil), s.Discs...)
	c.Joints = append([]physics.Joint(nil), s.Joints...)
	c.RedSpawnPoints = append([]physics.Vec(nil), s.RedSpawnPoints...)
	c.BlueSpawnPoints = append([]physics.Vec(nil), s.BlueSpawnPoints...)
	return &c
}

// SpawnPoints returns the explicit spawn points of a team.
func (s *Stadium) SpawnPoints(t team.ID) []physics.Vec {
	switch t {
	case team.Red:
		return s.RedSpawnPoints
	case team.Blue:
		return s.BlueSpawnPoints
	}
	return nil
}

// Validate checks entity limits and the index references between lists.
func (s *Stadium) Validate() error {
	counts := []int{len(s.Vertices), len(s.Segments), len(s.Planes), len(s.Goals), len(s.Discs),
		len(s.Joints), len(s.RedSpawnPoints), len(s.BlueSpawnPoints)}
	for _, n := range counts {
		if n > MaxEntities {
			return errcode.New(errcode.StadiumLimitsExceededError)
		}
	}
	if len(s.Discs) == 0 {
		return errcode.New(errcode.StadiumParseError, "discs", 0)
	}

	for i, seg := range s.Segments {
		if seg.V0 < 0 || seg.V0 >= len(s.Vertices) || seg.V1 < 0 || seg.V1 >= len(s.Vertices) {
			return errcode.New(errcode.StadiumParseError, "segments", i)
		}
	}
	for i, j := range s.Joints {
		if j.D0 < 0 || j.D0 >= len(s.Discs) || j.D1 < 0 || j.D1 >= len(s.Discs) {
			return errcode.New(errcode.StadiumParseError, "joints", i)
		}
	}
	for i, d := range s.Discs {
		if !(d.Radius > 0) || d.Damping < 0 || d.Damping > 1 {
			return errcode.New(errcode.StadiumParseError, "discs", i)
		}
	}
	for i, g := range s.Goals {
		if !g.Team.Playing() {
			return errcode.New(errcode.StadiumParseError, "goals", i)
		}
	}
	if !(s.PlayerPhysics.Radius > 0) || s.PlayerPhysics.Damping < 0 || s.PlayerPhysics.Damping > 1 {
		return errcode.New(errcode.StadiumParseError, "playerPhysics", 0)
	}
	return nil
}

// State builds the working physics state a new game simulates.
func (s *Stadium) State() *physics.State {
	st := &physics.State{
		Vertices: append([]physics.Vertex(nil), s.Vertices...),
		Segments: append([]physics.Segment(nil), s.Segments...),
		Planes:   append([]physics.Plane(nil), s.Planes...),
		Discs:    make([]physics.Disc, len(s.Discs)),
		Joints:   append([]physics.Joint(nil), s.Joints...),
	}
	for i, d := range s.Discs {
		d.ID = i
		d.PlayerID = physics.NoPlayer
		st.Discs[i] = d
	}
	st.UpdateSegments()
	return st
}
