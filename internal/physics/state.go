package physics

// CollisionListener receives the contacts resolved during a step. Ids are
// slice indices into the stepped State.
type CollisionListener interface {
	OnDiscVsDisc(a, b int)
	OnDiscVsSegment(disc, segment int)
	OnDiscVsPlane(disc, plane int)
}

// State is the working set of entities one game simulates.
type State struct {
	Vertices []Vertex
	Segments []Segment
	Planes   []Plane
	Discs    []Disc
	Joints   []Joint
}

// Copy returns a deep copy. All entity types are plain values, so copying the
// slices is enough.
func (s *State) Copy() *State {
	return &State{
		Vertices: append([]Vertex(nil), s.Vertices...),
		Segments: append([]Segment(nil), s.Segments...),
		Planes:   append([]Plane(nil), s.Planes...),
		Discs:    append([]Disc(nil), s.Discs...),
		Joints:   append([]Joint(nil), s.Joints...),
	}
}

// UpdateSegments rebuilds every segment's derived geometry.
func (s *State) UpdateSegments() {
	for i := range s.Segments {
		s.Segments[i].Update(s.Vertices)
	}
}

// DiscOf returns the index of the disc owned by playerID, or -1.
func (s *State) DiscOf(playerID int) int {
	for i := range s.Discs {
		if s.Discs[i].PlayerID == playerID {
			return i
		}
	}
	return -1
}

// Step advances every disc by one tick. The order is fixed: speed update
// (gravity then damping), integration, joints, then collisions per disc
// against later discs, planes, segments and vertices. l may be nil.
func (s *State) Step(l CollisionListener) {
	for i := range s.Discs {
		d := &s.Discs[i]
		d.Speed = d.Speed.Add(d.Gravity).Scale(d.Damping)
		d.Pos = d.Pos.Add(d.Speed)
	}

	for i := range s.Joints {
		applyJoint(&s.Joints[i], s.Discs)
	}

	for i := range s.Discs {
		a := &s.Discs[i]
		for j := i + 1; j < len(s.Discs); j++ {
			b := &s.Discs[j]
			if !CanCollide(a.CGroup, a.CMask, b.CGroup, b.CMask) {
				continue
			}
			if resolveDiscs(a, b) && l != nil {
				l.OnDiscVsDisc(i, j)
			}
		}

		if a.InvMass == 0 {
			continue
		}

		for k := range s.Planes {
			p := &s.Planes[k]
			if !CanCollide(a.CGroup, a.CMask, p.CGroup, p.CMask) {
				continue
			}
			if resolvePlane(a, p) && l != nil {
				l.OnDiscVsPlane(i, k)
			}
		}

		for k := range s.Segments {
			seg := &s.Segments[k]
			if !CanCollide(a.CGroup, a.CMask, seg.CGroup, seg.CMask) {
				continue
			}
			if resolveSegment(a, seg, s.Vertices) && l != nil {
				l.OnDiscVsSegment(i, k)
			}
		}

		for k := range s.Vertices {
			v := &s.Vertices[k]
			if !CanCollide(a.CGroup, a.CMask, v.CGroup, v.CMask) {
				continue
			}
			resolveVertex(a, v)
		}
	}
}
