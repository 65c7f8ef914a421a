package physics

import (
	"fmt"

	"github.com/siohaza/haxgo/internal/codec"
	"github.com/siohaza/haxgo/internal/errcode"
)

func writeVec(w *codec.Writer, v Vec) {
	w.WriteFloat64(v.X)
	w.WriteFloat64(v.Y)
}

func readVec(r *codec.Reader) (Vec, error) {
	x, err := r.ReadFloat64()
	if err != nil {
		return Vec{}, err
	}
	y, err := r.ReadFloat64()
	if err != nil {
		return Vec{}, err
	}
	return Vec{X: x, Y: y}, nil
}

// floats reads into every destination in order and stops at the first error.
func floats(r *codec.Reader, dst ...*float64) error {
	for _, p := range dst {
		v, err := r.ReadFloat64()
		if err != nil {
			return err
		}
		*p = v
	}
	return nil
}

func flags(r *codec.Reader, dst ...*CollisionFlags) error {
	for _, p := range dst {
		v, err := r.ReadFlags()
		if err != nil {
			return err
		}
		*p = CollisionFlags(v)
	}
	return nil
}

func (v *Vertex) Write(w *codec.Writer) {
	writeVec(w, v.Pos)
	w.WriteFloat64(v.BCoef)
	w.WriteFlags(uint32(v.CGroup))
	w.WriteFlags(uint32(v.CMask))
}

func (v *Vertex) Read(r *codec.Reader) error {
	var err error
	if v.Pos, err = readVec(r); err != nil {
		return err
	}
	if err := floats(r, &v.BCoef); err != nil {
		return err
	}
	return flags(r, &v.CGroup, &v.CMask)
}

// Segments go on the wire without their derived fields; readers call Update.
func (s *Segment) Write(w *codec.Writer) {
	w.WriteVarUint(uint32(s.V0))
	w.WriteVarUint(uint32(s.V1))
	w.WriteFloat64(s.Curve)
	w.WriteFloat64(s.Bias)
	w.WriteFloat64(s.BCoef)
	w.WriteFlags(uint32(s.CGroup))
	w.WriteFlags(uint32(s.CMask))
	w.WriteInt32(int32(s.Color))
	w.WriteBool(s.Vis)
}

func (s *Segment) Read(r *codec.Reader) error {
	v0, err := r.ReadVarUint()
	if err != nil {
		return err
	}
	v1, err := r.ReadVarUint()
	if err != nil {
		return err
	}
	s.V0, s.V1 = int(v0), int(v1)

	var curve float64
	if err := floats(r, &curve, &s.Bias, &s.BCoef); err != nil {
		return err
	}
	if err := flags(r, &s.CGroup, &s.CMask); err != nil {
		return err
	}
	color, err := r.ReadInt32()
	if err != nil {
		return err
	}
	s.Color = Color(color)
	if s.Vis, err = r.ReadBool(); err != nil {
		return err
	}

	// the stored curve is already normalised, so SetCurve never swaps here
	s.SetCurve(curve)
	return nil
}

func (p *Plane) Write(w *codec.Writer) {
	writeVec(w, p.Normal)
	w.WriteFloat64(p.Dist)
	w.WriteFloat64(p.BCoef)
	w.WriteFlags(uint32(p.CGroup))
	w.WriteFlags(uint32(p.CMask))
}

func (p *Plane) Read(r *codec.Reader) error {
	n, err := readVec(r)
	if err != nil {
		return err
	}
	p.Normal = n
	if err := floats(r, &p.Dist, &p.BCoef); err != nil {
		return err
	}
	return flags(r, &p.CGroup, &p.CMask)
}

func (d *Disc) Write(w *codec.Writer) {
	w.WriteVarInt(int32(d.PlayerID))
	writeVec(w, d.Pos)
	writeVec(w, d.Speed)
	writeVec(w, d.Gravity)
	w.WriteFloat64(d.Radius)
	w.WriteFloat64(d.BCoef)
	w.WriteFloat64(d.InvMass)
	w.WriteFloat64(d.Damping)
	w.WriteInt32(int32(d.Color))
	w.WriteFlags(uint32(d.CGroup))
	w.WriteFlags(uint32(d.CMask))
}

func (d *Disc) Read(r *codec.Reader) error {
	pid, err := r.ReadVarInt()
	if err != nil {
		return err
	}
	d.PlayerID = int(pid)
	if d.Pos, err = readVec(r); err != nil {
		return err
	}
	if d.Speed, err = readVec(r); err != nil {
		return err
	}
	if d.Gravity, err = readVec(r); err != nil {
		return err
	}
	if err := floats(r, &d.Radius, &d.BCoef, &d.InvMass, &d.Damping); err != nil {
		return err
	}
	color, err := r.ReadInt32()
	if err != nil {
		return err
	}
	d.Color = Color(color)
	return flags(r, &d.CGroup, &d.CMask)
}

func (j *Joint) Write(w *codec.Writer) {
	w.WriteVarUint(uint32(j.D0))
	w.WriteVarUint(uint32(j.D1))
	w.WriteFloat64(j.MinLength)
	w.WriteFloat64(j.MaxLength)
	w.WriteFloat64(j.Strength)
	w.WriteInt32(int32(j.Color))
}

func (j *Joint) Read(r *codec.Reader) error {
	d0, err := r.ReadVarUint()
	if err != nil {
		return err
	}
	d1, err := r.ReadVarUint()
	if err != nil {
		return err
	}
	j.D0, j.D1 = int(d0), int(d1)
	if err := floats(r, &j.MinLength, &j.MaxLength, &j.Strength); err != nil {
		return err
	}
	color, err := r.ReadInt32()
	if err != nil {
		return err
	}
	j.Color = Color(color)
	return nil
}

// Write encodes every entity list with a compressed count prefix.
func (s *State) Write(w *codec.Writer) {
	w.WriteVarUint(uint32(len(s.Vertices)))
	for i := range s.Vertices {
		s.Vertices[i].Write(w)
	}
	w.WriteVarUint(uint32(len(s.Segments)))
	for i := range s.Segments {
		s.Segments[i].Write(w)
	}
	w.WriteVarUint(uint32(len(s.Planes)))
	for i := range s.Planes {
		s.Planes[i].Write(w)
	}
	w.WriteVarUint(uint32(len(s.Discs)))
	for i := range s.Discs {
		s.Discs[i].Write(w)
	}
	w.WriteVarUint(uint32(len(s.Joints)))
	for i := range s.Joints {
		s.Joints[i].Write(w)
	}
}

// Read decodes a State and validates that every index points inside it.
func (s *State) Read(r *codec.Reader) error {
	var err error
	if s.Vertices, err = readList(r, (*Vertex).Read); err != nil {
		return fmt.Errorf("failed to read vertices: %w", err)
	}
	if s.Segments, err = readList(r, (*Segment).Read); err != nil {
		return fmt.Errorf("failed to read segments: %w", err)
	}
	if s.Planes, err = readList(r, (*Plane).Read); err != nil {
		return fmt.Errorf("failed to read planes: %w", err)
	}
	if s.Discs, err = readList(r, (*Disc).Read); err != nil {
		return fmt.Errorf("failed to read discs: %w", err)
	}
	if s.Joints, err = readList(r, (*Joint).Read); err != nil {
		return fmt.Errorf("failed to read joints: %w", err)
	}

	for i := range s.Segments {
		seg := &s.Segments[i]
		if seg.V0 >= len(s.Vertices) || seg.V1 >= len(s.Vertices) {
			return fmt.Errorf("segment %d references missing vertex", i)
		}
	}
	for i := range s.Joints {
		j := &s.Joints[i]
		if j.D0 >= len(s.Discs) || j.D1 >= len(s.Discs) {
			return fmt.Errorf("joint %d references missing disc", i)
		}
	}
	for i := range s.Discs {
		s.Discs[i].ID = i
	}
	s.UpdateSegments()
	return nil
}

// maxEntities caps decoded list lengths.
const maxEntities = 1 << 16

func readList[T any](r *codec.Reader, read func(*T, *codec.Reader) error) ([]T, error) {
	n, err := r.ReadVarUint()
	if err != nil {
		return nil, err
	}
	if n > maxEntities || int(n) > r.Remaining() {
		return nil, errcode.New(errcode.ReadTooMuchError)
	}
	out := make([]T, n)
	for i := range out {
		if err := read(&out[i], r); err != nil {
			return nil, err
		}
	}
	return out, nil
}
