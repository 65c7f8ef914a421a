package physics

import (
	"bytes"
	"math"
	"testing"

	"github.com/siohaza/haxgo/internal/codec"
)

func ball(pos Vec) Disc {
	return Disc{
		PlayerID: NoPlayer,
		Pos:      pos,
		Radius:   10,
		BCoef:    0.5,
		InvMass:  1,
		Damping:  1,
		CGroup:   CollisionBall,
		CMask:    CollisionAll,
	}
}

func TestDiscOverlapResolved(t *testing.T) {
	s := &State{Discs: []Disc{ball(Vec{X: 0}), ball(Vec{X: 15})}}
	s.Step(nil)

	dist := s.Discs[1].Pos.Sub(s.Discs[0].Pos).Len()
	if dist < 20-1e-9 {
		t.Fatalf("discs still overlap: distance %v", dist)
	}
	if s.Discs[0].Pos.X != -2.5 || s.Discs[1].Pos.X != 17.5 {
		t.Fatalf("unexpected positions %v %v", s.Discs[0].Pos, s.Discs[1].Pos)
	}
}

func TestDisjointGatingNeverCollides(t *testing.T) {
	a := ball(Vec{X: 0})
	b := ball(Vec{X: 1})
	a.CMask = CollisionWall
	b.CMask = CollisionWall
	a.Speed = Vec{X: 3}

	s := &State{Discs: []Disc{a, b}}
	for i := 0; i < 10; i++ {
		s.Step(nil)
	}
	if s.Discs[1].Pos.X != 1 || s.Discs[1].Speed != (Vec{}) {
		t.Fatalf("gated disc was moved: pos %v speed %v", s.Discs[1].Pos, s.Discs[1].Speed)
	}
	if s.Discs[0].Speed.X != 3 {
		t.Fatalf("gated disc lost speed: %v", s.Discs[0].Speed)
	}
}

func TestOneSidedGating(t *testing.T) {
	a := ball(Vec{X: 0})
	b := ball(Vec{X: 5})
	b.CMask = CollisionRed
	if CanCollide(a.CGroup, a.CMask, b.CGroup, b.CMask) {
		t.Fatalf("expected gating to fail when only one mask matches")
	}
	s := &State{Discs: []Disc{a, b}}
	s.Step(nil)
	if s.Discs[0].Pos.X != 0 || s.Discs[1].Pos.X != 5 {
		t.Fatalf("discs moved: %v %v", s.Discs[0].Pos, s.Discs[1].Pos)
	}
}

func TestZeroInverseMassIsImmovable(t *testing.T) {
	a := ball(Vec{X: 0})
	b := ball(Vec{X: 5})
	a.InvMass = 0
	b.InvMass = 0
	s := &State{Discs: []Disc{a, b}}
	s.Step(nil)
	if s.Discs[0].Pos.X != 0 || s.Discs[1].Pos.X != 5 {
		t.Fatalf("immovable discs moved: %v %v", s.Discs[0].Pos, s.Discs[1].Pos)
	}
}

func TestPlaneBounce(t *testing.T) {
	d := ball(Vec{Y: 5})
	d.Speed = Vec{Y: -2}
	s := &State{
		Discs:  []Disc{d},
		Planes: []Plane{{Normal: Vec{Y: 1}, BCoef: 1, CGroup: CollisionWall, CMask: CollisionAll}},
	}
	s.Discs[0].CMask = CollisionWall
	s.Step(nil)

	got := s.Discs[0]
	if got.Pos.Y != 10 {
		t.Fatalf("expected disc resting on plane at y=10, got %v", got.Pos.Y)
	}
	if got.Speed.Y != 1 {
		t.Fatalf("expected reflected speed 1, got %v", got.Speed.Y)
	}
}

func TestStraightSegment(t *testing.T) {
	s := &State{
		Vertices: []Vertex{{Pos: Vec{X: -100}}, {Pos: Vec{X: 100}}},
		Segments: []Segment{{V0: 0, V1: 1, BCoef: 1, CGroup: CollisionWall, CMask: CollisionAll}},
		Discs:    []Disc{ball(Vec{Y: 5})},
	}
	s.Discs[0].CMask = CollisionWall
	s.Segments[0].SetCurve(0)
	s.UpdateSegments()

	if s.Segments[0].Curved() {
		t.Fatalf("zero curve should be straight")
	}
	if n := s.Segments[0].Normal; n.X != 0 || n.Y != -1 {
		t.Fatalf("unexpected normal %v", n)
	}

	var hits recorder
	s.Step(&hits)
	if s.Discs[0].Pos.Y != 10 {
		t.Fatalf("expected disc pushed to y=10, got %v", s.Discs[0].Pos.Y)
	}
	if hits.segments != 1 {
		t.Fatalf("expected one segment contact, got %d", hits.segments)
	}
}

func TestCurvedSegmentGeometry(t *testing.T) {
	vertices := []Vertex{{Pos: Vec{X: -50}}, {Pos: Vec{X: 50}}}
	seg := Segment{V0: 0, V1: 1}
	seg.SetCurve(180)
	seg.Update(vertices)

	if !seg.Curved() {
		t.Fatalf("expected curved segment")
	}
	if math.Abs(seg.Center.X) > 1e-9 || math.Abs(seg.Center.Y) > 1e-9 {
		t.Fatalf("half circle should be centred on the chord midpoint, got %v", seg.Center)
	}
	if math.Abs(seg.Radius-50) > 1e-9 {
		t.Fatalf("unexpected radius %v", seg.Radius)
	}

	neg := Segment{V0: 0, V1: 1, Bias: 2}
	neg.SetCurve(-90)
	if neg.V0 != 1 || neg.V1 != 0 || neg.Bias != -2 || neg.Curve != 90 {
		t.Fatalf("negative curve not normalised: %+v", neg)
	}
}

func TestSetNormalKeepsUnitLength(t *testing.T) {
	var p Plane
	p.SetNormal(Vec{X: 3, Y: 4})
	if math.Abs(p.Normal.Len()-1) > 1e-12 {
		t.Fatalf("normal not unit length: %v", p.Normal)
	}
}

func TestRigidJointHoldsLength(t *testing.T) {
	a := ball(Vec{X: 0})
	b := ball(Vec{X: 30})
	a.CMask, b.CMask = 0, 0
	a.Speed = Vec{X: -5}
	s := &State{
		Discs:  []Disc{a, b},
		Joints: []Joint{{D0: 0, D1: 1, MinLength: 30, MaxLength: 30, Strength: math.Inf(1)}},
	}
	s.Step(nil)
	if d := s.Discs[1].Pos.Sub(s.Discs[0].Pos).Len(); math.Abs(d-30) > 1e-9 {
		t.Fatalf("rigid joint length drifted to %v", d)
	}
}

func TestStepDeterministic(t *testing.T) {
	build := func() *State {
		s := &State{
			Planes: []Plane{
				{Normal: Vec{X: 1}, Dist: -200, BCoef: 1, CGroup: CollisionWall, CMask: CollisionAll},
				{Normal: Vec{X: -1}, Dist: -200, BCoef: 1, CGroup: CollisionWall, CMask: CollisionAll},
				{Normal: Vec{Y: 1}, Dist: -100, BCoef: 1, CGroup: CollisionWall, CMask: CollisionAll},
				{Normal: Vec{Y: -1}, Dist: -100, BCoef: 1, CGroup: CollisionWall, CMask: CollisionAll},
			},
		}
		for i := 0; i < 6; i++ {
			d := ball(Vec{X: float64(i*25 - 60), Y: float64(i%3*10 - 10)})
			d.Speed = Vec{X: float64(i) * 0.7, Y: 1.3 - float64(i)*0.4}
			d.Damping = 0.99
			d.CMask = CollisionAll
			s.Discs = append(s.Discs, d)
		}
		return s
	}

	a, b := build(), build()
	for i := 0; i < 600; i++ {
		a.Step(nil)
		b.Step(nil)
	}
	if !bytes.Equal(encode(a), encode(b)) {
		t.Fatalf("identical inputs diverged")
	}
}

func TestCopyIndependent(t *testing.T) {
	s := &State{Discs: []Disc{ball(Vec{})}, Vertices: []Vertex{{}}}
	c := s.Copy()
	c.Discs[0].Pos.X = 99
	c.Vertices[0].Pos.Y = 5
	if s.Discs[0].Pos.X != 0 || s.Vertices[0].Pos.Y != 0 {
		t.Fatalf("copy shares storage with original")
	}
}

func TestStateWireRoundTrip(t *testing.T) {
	s := &State{
		Vertices: []Vertex{{Pos: Vec{X: -10}}, {Pos: Vec{X: 10}}},
		Segments: []Segment{{V0: 0, V1: 1, Color: Transparent, Vis: true}},
		Planes:   []Plane{{Normal: Vec{Y: 1}, Dist: -50}},
		Discs:    []Disc{ball(Vec{X: 1, Y: 2})},
		Joints:   []Joint{{D0: 0, D1: 0, Strength: math.Inf(1)}},
	}
	s.Segments[0].SetCurve(45)
	s.UpdateSegments()

	var out State
	if err := out.Read(codec.NewReader(encode(s))); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !bytes.Equal(encode(s), encode(&out)) {
		t.Fatalf("decoded state differs")
	}
	if out.Segments[0].Center != s.Segments[0].Center {
		t.Fatalf("derived fields not rebuilt: %v vs %v", out.Segments[0].Center, s.Segments[0].Center)
	}
}

func TestParseCollisionFlags(t *testing.T) {
	f, err := ParseCollisionFlags([]string{"ball", "kick", "score"})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if f != 193 {
		t.Fatalf("expected 193, got %d", f)
	}
	if all, _ := ParseCollisionFlags([]string{"all"}); all != 63 {
		t.Fatalf("expected all=63, got %d", all)
	}
	if _, err := ParseCollisionFlags([]string{"nope"}); err == nil {
		t.Fatalf("expected error for unknown flag")
	}
	if CollisionC3 != 1<<31 {
		t.Fatalf("c3 should be bit 31")
	}
}

func encode(s *State) []byte {
	w := codec.NewWriter(256)
	s.Write(w)
	return w.Bytes()
}

type recorder struct {
	discs, segments, planes int
}

func (r *recorder) OnDiscVsDisc(a, b int)            { r.discs++ }
func (r *recorder) OnDiscVsSegment(disc, segment int) { r.segments++ }
func (r *recorder) OnDiscVsPlane(disc, plane int)     { r.planes++ }
