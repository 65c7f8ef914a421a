package physics

import (
	"math"
)

// resolveDiscs separates two overlapping discs and exchanges the impulse along
// the contact normal. It reports whether the discs were touching.
func resolveDiscs(a, b *Disc) bool {
	invSum := a.InvMass + b.InvMass
	if invSum == 0 {
		return false
	}

	delta := a.Pos.Sub(b.Pos)
	rSum := a.Radius + b.Radius
	distSq := delta.LenSq()
	if distSq <= 0 || distSq > float64(rSum*rSum) {
		return false
	}

	dist := math.Sqrt(distSq)
	n := delta.Scale(1 / dist)
	share := a.InvMass / invSum

	overlap := rSum - dist
	a.Pos = a.Pos.Add(n.Scale(overlap * share))
	b.Pos = b.Pos.Sub(n.Scale(overlap - float64(overlap*share)))

	rel := a.Speed.Sub(b.Speed).Dot(n)
	if rel < 0 {
		impulse := rel * (float64(a.BCoef*b.BCoef) + 1)
		ia := impulse * share
		a.Speed = a.Speed.Sub(n.Scale(ia))
		b.Speed = b.Speed.Add(n.Scale(impulse - ia))
	}
	return true
}

// bounce pushes d out along n by depth and reflects the inward speed.
func bounce(d *Disc, n Vec, depth, bCoef float64) {
	d.Pos = d.Pos.Add(n.Scale(depth))
	v := d.Speed.Dot(n)
	if v < 0 {
		v *= float64(d.BCoef*bCoef) + 1
		d.Speed = d.Speed.Sub(n.Scale(v))
	}
}

func resolvePlane(d *Disc, p *Plane) bool {
	depth := p.Dist - d.Pos.Dot(p.Normal) + d.Radius
	if depth <= 0 {
		return false
	}
	bounce(d, p.Normal, depth, p.BCoef)
	return true
}

func resolveVertex(d *Disc, v *Vertex) bool {
	delta := d.Pos.Sub(v.Pos)
	distSq := delta.LenSq()
	if distSq <= 0 || distSq > float64(d.Radius*d.Radius) {
		return false
	}
	dist := math.Sqrt(distSq)
	bounce(d, delta.Scale(1/dist), d.Radius-dist, v.BCoef)
	return true
}

func resolveSegment(d *Disc, s *Segment, vertices []Vertex) bool {
	var n Vec
	var dist float64

	if !s.Curved() {
		p0 := vertices[s.V0].Pos
		p1 := vertices[s.V1].Pos
		dir := p1.Sub(p0)
		from0 := d.Pos.Sub(p0)
		from1 := d.Pos.Sub(p1)
		if from0.Dot(dir) <= 0 || from1.Dot(dir) >= 0 {
			return false
		}
		n = s.Normal
		dist = n.Dot(from0)
	} else {
		rel := d.Pos.Sub(s.Center)
		inside := s.Tan1.Dot(rel) > 0 && s.Tan0.Dot(rel) > 0
		if inside == (s.CurveF <= 0) {
			return false
		}
		l := rel.Len()
		if l == 0 {
			return false
		}
		dist = l - s.Radius
		n = rel.Scale(1 / l)
	}

	bias := s.Bias
	if bias == 0 {
		if dist < 0 {
			dist = -dist
			n = n.Scale(-1)
		}
	} else {
		if bias < 0 {
			bias = -bias
			dist = -dist
			n = n.Scale(-1)
		}
		if dist < -bias {
			return false
		}
	}

	if dist >= d.Radius {
		return false
	}
	bounce(d, n, d.Radius-dist, s.BCoef)
	return true
}

// applyJoint pulls the two discs back into the joint's length range.
func applyJoint(j *Joint, discs []Disc) {
	if j.D0 < 0 || j.D0 >= len(discs) || j.D1 < 0 || j.D1 >= len(discs) {
		return
	}
	a := &discs[j.D0]
	b := &discs[j.D1]

	delta := a.Pos.Sub(b.Pos)
	dist := delta.Len()
	if dist <= 0 {
		return
	}
	n := delta.Scale(1 / dist)

	share := 0.5
	if sum := a.InvMass + b.InvMass; sum != 0 {
		share = a.InvMass / sum
	}

	var target, dir float64
	switch {
	case j.MinLength >= j.MaxLength:
		target, dir = j.MinLength, 0
	case dist <= j.MinLength:
		target, dir = j.MinLength, 1
	case dist >= j.MaxLength:
		target, dir = j.MaxLength, -1
	default:
		return
	}
	stretch := dist - target

	if !j.Rigid() {
		f := n.Scale(j.Strength * stretch * 0.5)
		a.Speed = a.Speed.Sub(f.Scale(a.InvMass))
		b.Speed = b.Speed.Add(f.Scale(b.InvMass))
		return
	}

	a.Pos = a.Pos.Sub(n.Scale(stretch * share))
	b.Pos = b.Pos.Add(n.Scale(stretch - float64(stretch*share)))

	rel := a.Speed.Sub(b.Speed).Dot(n)
	if rel*dir <= 0 {
		a.Speed = a.Speed.Sub(n.Scale(rel * share))
		b.Speed = b.Speed.Add(n.Scale(rel - float64(rel*share)))
	}
}
