package physics

import (
	"math"
)

// Color is a 24-bit RGB value. Transparent is -1.
type Color int32

const Transparent Color = -1

// NoPlayer marks a disc without an owning player.
const NoPlayer = -1

const (
	// curves flatter or sharper than this are simulated as straight lines
	minCurve = 10 * math.Pi / 180
	maxCurve = 340 * math.Pi / 180
)

type Vertex struct {
	Pos    Vec
	BCoef  float64
	CGroup CollisionFlags
	CMask  CollisionFlags
}

// Segment is a line or arc between two vertices. The fields below Vis are
// derived from the vertex positions and curve and are rebuilt by Update.
type Segment struct {
	V0     int
	V1     int
	Curve  float64
	Bias   float64
	BCoef  float64
	CGroup CollisionFlags
	CMask  CollisionFlags
	Color  Color
	Vis    bool

	CurveF float64
	Normal Vec
	Center Vec
	Radius float64
	Tan0   Vec
	Tan1   Vec
}

// SetCurve stores a curve in degrees. A negative curve is the same arc drawn
// the other way, so the endpoints swap and the bias flips.
func (s *Segment) SetCurve(degrees float64) {
	s.Curve = degrees
	s.CurveF = math.Inf(1)

	a := degrees * math.Pi / 180
	if a < 0 {
		a = -a
		s.V0, s.V1 = s.V1, s.V0
		if s.Bias != 0 {
			s.Bias = -s.Bias
		}
		s.Curve = -degrees
	}
	if a > minCurve && a < maxCurve {
		s.CurveF = 1 / math.Tan(a/2)
	}
}

func (s *Segment) Curved() bool {
	return !math.IsInf(s.CurveF, 0) && !math.IsNaN(s.CurveF)
}

// Update recomputes the derived geometry from the current vertex positions.
func (s *Segment) Update(vertices []Vertex) {
	p0 := vertices[s.V0].Pos
	p1 := vertices[s.V1].Pos

	if s.Curved() {
		half := p1.Sub(p0).Scale(0.5)
		s.Center = Vec{
			X: p0.X + half.X - float64(half.Y*s.CurveF),
			Y: p0.Y + half.Y + float64(half.X*s.CurveF),
		}
		s.Radius = p0.Sub(s.Center).Len()
		s.Tan0 = Vec{X: -(p0.Y - s.Center.Y), Y: p0.X - s.Center.X}
		s.Tan1 = Vec{X: -(s.Center.Y - p1.Y), Y: s.Center.X - p1.X}
		if s.CurveF <= 0 {
			s.Tan0 = s.Tan0.Scale(-1)
			s.Tan1 = s.Tan1.Scale(-1)
		}
		s.Normal = Vec{}
		return
	}

	s.Normal = Vec{X: p1.Y - p0.Y, Y: p0.X - p1.X}.Normalize()
	s.Center = Vec{}
	s.Radius = 0
	s.Tan0 = Vec{}
	s.Tan1 = Vec{}
}

// Plane is an infinite wall. Normal is always unit length.
type Plane struct {
	Normal Vec
	Dist   float64
	BCoef  float64
	CGroup CollisionFlags
	CMask  CollisionFlags
}

func (p *Plane) SetNormal(n Vec) {
	p.Normal = n.Normalize()
}

// Disc is a live circle. Discs owned by a player carry its id in PlayerID.
type Disc struct {
	ID       int
	PlayerID int
	Pos      Vec
	Speed    Vec
	Gravity  Vec
	Radius   float64
	BCoef    float64
	InvMass  float64
	Damping  float64
	Color    Color
	CGroup   CollisionFlags
	CMask    CollisionFlags
}

func (d *Disc) HasPlayer() bool {
	return d.PlayerID != NoPlayer
}

// Joint links two discs by index. Strength +Inf makes it rigid.
type Joint struct {
	D0        int
	D1        int
	MinLength float64
	MaxLength float64
	Strength  float64
	Color     Color
}

func (j *Joint) Rigid() bool {
	return math.IsInf(j.Strength, 1)
}
