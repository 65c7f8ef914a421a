package stadium

import (
	"fmt"

	"github.com/siohaza/haxgo/internal/codec"
	"github.com/siohaza/haxgo/internal/errcode"
	"github.com/siohaza/haxgo/internal/physics"
	"github.com/siohaza/haxgo/internal/team"
)

func writeVec(w *codec.Writer, v physics.Vec) {
	w.WriteFloat64(v.X)
	w.WriteFloat64(v.Y)
}

func readVec(r *codec.Reader) (physics.Vec, error) {
	x, err := r.ReadFloat64()
	if err != nil {
		return physics.Vec{}, err
	}
	y, err := r.ReadFloat64()
	if err != nil {
		return physics.Vec{}, err
	}
	return physics.Vec{X: x, Y: y}, nil
}

// Write encodes a stadium. Built-ins are sent as their id alone.
func (s *Stadium) Write(w *codec.Writer) {
	w.WriteUint8(s.DefaultID)
	if !s.IsCustom() {
		return
	}

	w.WriteString(s.Name)
	w.WriteFloat64(s.Width)
	w.WriteFloat64(s.Height)
	w.WriteFloat64(s.MaxViewWidth)
	w.WriteUint8(uint8(s.CameraFollow))
	w.WriteFloat64(s.SpawnDistance)
	w.WriteBools(s.CanBeStored, s.FullKickOffReset)

	bg := s.Background
	w.WriteUint8(uint8(bg.Type))
	w.WriteFloat64(bg.Width)
	w.WriteFloat64(bg.Height)
	w.WriteFloat64(bg.KickOffRadius)
	w.WriteFloat64(bg.CornerRadius)
	w.WriteFloat64(bg.GoalLine)
	w.WriteInt32(int32(bg.Color))

	w.WriteUint8(uint8(len(s.Vertices)))
	for i := range s.Vertices {
		s.Vertices[i].Write(w)
	}
	w.WriteUint8(uint8(len(s.Segments)))
	for i := range s.Segments {
		s.Segments[i].Write(w)
	}
	w.WriteUint8(uint8(len(s.Planes)))
	for i := range s.Planes {
		s.Planes[i].Write(w)
	}
	w.WriteUint8(uint8(len(s.Goals)))
	for _, g := range s.Goals {
		writeVec(w, g.P0)
		writeVec(w, g.P1)
		w.WriteUint8(uint8(g.Team))
	}
	w.WriteUint8(uint8(len(s.Discs)))
	for i := range s.Discs {
		s.Discs[i].Write(w)
	}
	w.WriteUint8(uint8(len(s.Joints)))
	for i := range s.Joints {
		s.Joints[i].Write(w)
	}
	for _, points := range [][]physics.Vec{s.RedSpawnPoints, s.BlueSpawnPoints} {
		w.WriteUint8(uint8(len(points)))
		for _, p := range points {
			writeVec(w, p)
		}
	}

	pp := s.PlayerPhysics
	w.WriteFloat64(pp.Radius)
	w.WriteFloat64(pp.BCoef)
	w.WriteFloat64(pp.InvMass)
	w.WriteFloat64(pp.Damping)
	writeVec(w, pp.Gravity)
	w.WriteFlags(uint32(pp.CGroup))
	w.WriteFloat64(pp.Acceleration)
	w.WriteFloat64(pp.KickingAcceleration)
	w.WriteFloat64(pp.KickingDamping)
	w.WriteFloat64(pp.KickStrength)
	w.WriteFloat64(pp.Kickback)
}

func readCount(r *codec.Reader) (int, error) {
	n, err := r.ReadUint8()
	return int(n), err
}

func readEntities[T any](r *codec.Reader, read func(*T, *codec.Reader) error) ([]T, error) {
	n, err := readCount(r)
	if err != nil {
		return nil, err
	}
	out := make([]T, n)
	for i := range out {
		if err := read(&out[i], r); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func readFloats(r *codec.Reader, dst ...*float64) error {
	for _, p := range dst {
		v, err := r.ReadFloat64()
		if err != nil {
			return err
		}
		*p = v
	}
	return nil
}

// Read decodes a stadium written by Write.
func Read(r *codec.Reader) (*Stadium, error) {
	id, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	if id != CustomID {
		return Default(id)
	}

	s := &Stadium{DefaultID: CustomID}
	if s.Name, err = r.ReadString(); err != nil {
		return nil, err
	}
	if err := readFloats(r, &s.Width, &s.Height, &s.MaxViewWidth); err != nil {
		return nil, err
	}
	camera, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	s.CameraFollow = CameraFollow(camera)
	if err := readFloats(r, &s.SpawnDistance); err != nil {
		return nil, err
	}
	bits, err := r.ReadBools(2)
	if err != nil {
		return nil, err
	}
	s.CanBeStored, s.FullKickOffReset = bits[0], bits[1]

	bgType, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	s.Background.Type = BackgroundType(bgType)
	bg := &s.Background
	if err := readFloats(r, &bg.Width, &bg.Height, &bg.KickOffRadius, &bg.CornerRadius, &bg.GoalLine); err != nil {
		return nil, err
	}
	color, err := r.ReadInt32()
	if err != nil {
		return nil, err
	}
	bg.Color = physics.Color(color)

	if s.Vertices, err = readEntities(r, (*physics.Vertex).Read); err != nil {
		return nil, fmt.Errorf("failed to read vertices: %w", err)
	}
	if s.Segments, err = readEntities(r, (*physics.Segment).Read); err != nil {
		return nil, fmt.Errorf("failed to read segments: %w", err)
	}
	if s.Planes, err = readEntities(r, (*physics.Plane).Read); err != nil {
		return nil, fmt.Errorf("failed to read planes: %w", err)
	}
	if s.Goals, err = readEntities(r, readGoal); err != nil {
		return nil, fmt.Errorf("failed to read goals: %w", err)
	}
	if s.Discs, err = readEntities(r, (*physics.Disc).Read); err != nil {
		return nil, fmt.Errorf("failed to read discs: %w", err)
	}
	if s.Joints, err = readEntities(r, (*physics.Joint).Read); err != nil {
		return nil, fmt.Errorf("failed to read joints: %w", err)
	}
	for _, dst := range []*[]physics.Vec{&s.RedSpawnPoints, &s.BlueSpawnPoints} {
		n, err := readCount(r)
		if err != nil {
			return nil, err
		}
		for i := 0; i < n; i++ {
			p, err := readVec(r)
			if err != nil {
				return nil, err
			}
			*dst = append(*dst, p)
		}
	}

	pp := &s.PlayerPhysics
	if err := readFloats(r, &pp.Radius, &pp.BCoef, &pp.InvMass, &pp.Damping); err != nil {
		return nil, err
	}
	if pp.Gravity, err = readVec(r); err != nil {
		return nil, err
	}
	group, err := r.ReadFlags()
	if err != nil {
		return nil, err
	}
	pp.CGroup = physics.CollisionFlags(group)
	if err := readFloats(r, &pp.Acceleration, &pp.KickingAcceleration, &pp.KickingDamping, &pp.KickStrength, &pp.Kickback); err != nil {
		return nil, err
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	for i := range s.Segments {
		s.Segments[i].Update(s.Vertices)
	}
	return s, nil
}

func readGoal(g *Goal, r *codec.Reader) error {
	var err error
	if g.P0, err = readVec(r); err != nil {
		return err
	}
	if g.P1, err = readVec(r); err != nil {
		return err
	}
	t, err := r.ReadUint8()
	if err != nil {
		return err
	}
	g.Team = team.ID(t)
	if !g.Team.Playing() {
		return errcode.New(errcode.BadTeamError)
	}
	return nil
}
