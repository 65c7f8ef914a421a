package stadium

import (
	"fmt"
	"math"
	"strconv"

	"github.com/siohaza/haxgo/internal/errcode"
	"github.com/siohaza/haxgo/internal/physics"
	"github.com/siohaza/haxgo/internal/team"
)

const (
	defaultWallGroup = physics.CollisionWall
	defaultMask      = physics.CollisionAll
	ballGroupExtra   = physics.CollisionKick | physics.CollisionScore
)

// Parse reads a stadium from its text form.
func Parse(data []byte) (*Stadium, error) {
	doc, err := parseDocument(data)
	if err != nil {
		return nil, err
	}
	if doc.kind != valueDict {
		return nil, errcode.New(errcode.StadiumParseUnknownError)
	}
	return build(doc)
}

func sectionError(name string, index int, cause error) error {
	return fmt.Errorf("%w: %w", errcode.New(errcode.StadiumParseError, name, index), cause)
}

// object reads typed fields from one dict and remembers the first failure,
// so callers can read every field and check once.
type object struct {
	v   Value
	err error
}

func (o *object) fail(key string, err error) {
	if o.err == nil {
		o.err = fmt.Errorf("field %q: %w", key, err)
	}
}

func (o *object) has(key string) bool {
	v, ok := o.v.field(key)
	return ok && !v.IsNull()
}

func (o *object) number(key string, def float64) float64 {
	v, ok := o.v.field(key)
	if !ok || v.IsNull() {
		return def
	}
	n, err := v.asNumber()
	if err != nil {
		o.fail(key, err)
		return def
	}
	return n
}

func (o *object) boolean(key string, def bool) bool {
	v, ok := o.v.field(key)
	if !ok || v.IsNull() {
		return def
	}
	b, err := v.asBool()
	if err != nil {
		o.fail(key, err)
		return def
	}
	return b
}

func (o *object) str(key, def string) string {
	v, ok := o.v.field(key)
	if !ok || v.IsNull() {
		return def
	}
	s, err := v.asString()
	if err != nil {
		o.fail(key, err)
		return def
	}
	return s
}

func (o *object) vec(key string, def physics.Vec) physics.Vec {
	v, ok := o.v.field(key)
	if !ok || v.IsNull() {
		return def
	}
	p, err := toVec(v)
	if err != nil {
		o.fail(key, err)
		return def
	}
	return p
}

func (o *object) color(key string, def physics.Color) physics.Color {
	v, ok := o.v.field(key)
	if !ok || v.IsNull() {
		return def
	}
	c, err := parseColor(v)
	if err != nil {
		o.fail(key, err)
		return def
	}
	return c
}

func (o *object) flags(key string, def physics.CollisionFlags) physics.CollisionFlags {
	v, ok := o.v.field(key)
	if !ok || v.IsNull() {
		return def
	}
	if v.kind != valueList {
		o.fail(key, fmt.Errorf("expected a list of flag names"))
		return def
	}
	names := make([]string, 0, len(v.list))
	for _, item := range v.list {
		s, err := item.asString()
		if err != nil {
			o.fail(key, err)
			return def
		}
		names = append(names, s)
	}
	f, err := physics.ParseCollisionFlags(names)
	if err != nil {
		o.fail(key, err)
		return def
	}
	return f
}

func toVec(v Value) (physics.Vec, error) {
	if v.kind != valueList || len(v.list) != 2 {
		return physics.Vec{}, fmt.Errorf("expected [x, y]")
	}
	x, err := v.list[0].asNumber()
	if err != nil {
		return physics.Vec{}, err
	}
	y, err := v.list[1].asNumber()
	if err != nil {
		return physics.Vec{}, err
	}
	return physics.Vec{X: x, Y: y}, nil
}

// parseColor accepts "transparent", "RRGGBB" or [r, g, b].
func parseColor(v Value) (physics.Color, error) {
	switch v.kind {
	case valueString:
		if v.str == "transparent" {
			return physics.Transparent, nil
		}
		if len(v.str) != 6 {
			return 0, errcode.New(errcode.BadColorError)
		}
		n, err := strconv.ParseUint(v.str, 16, 32)
		if err != nil {
			return 0, errcode.New(errcode.BadColorError)
		}
		return physics.Color(n), nil
	case valueList:
		if len(v.list) != 3 {
			return 0, errcode.New(errcode.BadColorError)
		}
		var c physics.Color
		for _, item := range v.list {
			n, err := item.asNumber()
			if err != nil || n < 0 || n > 255 || n != math.Trunc(n) {
				return 0, errcode.New(errcode.BadColorError)
			}
			c = c<<8 | physics.Color(n)
		}
		return c, nil
	}
	return 0, errcode.New(errcode.BadColorError)
}

type builder struct {
	doc    Value
	traits Value
}

// item resolves an entity's trait, if it names one.
func (b *builder) item(v Value) (Value, error) {
	if v.kind != valueDict {
		return Value{}, fmt.Errorf("expected an object")
	}
	name, ok := v.field("trait")
	if !ok || name.IsNull() {
		return v, nil
	}
	s, err := name.asString()
	if err != nil {
		return Value{}, err
	}
	trait, ok := b.traits.field(s)
	if !ok {
		return Value{}, fmt.Errorf("unknown trait %q", s)
	}
	return v.withDefaults(trait), nil
}

// each runs fn over every element of a list section.
func (b *builder) each(section string, fn func(i int, o *object) error) error {
	v, ok := b.doc.field(section)
	if !ok || v.IsNull() {
		return nil
	}
	if v.kind != valueList {
		return sectionError(section, 0, fmt.Errorf("expected a list"))
	}
	if len(v.list) > MaxEntities {
		return errcode.New(errcode.StadiumLimitsExceededError)
	}
	for i, raw := range v.list {
		resolved, err := b.item(raw)
		if err != nil {
			return sectionError(section, i, err)
		}
		o := &object{v: resolved}
		if err := fn(i, o); err != nil {
			return sectionError(section, i, err)
		}
		if o.err != nil {
			return sectionError(section, i, o.err)
		}
	}
	return nil
}

func build(doc Value) (*Stadium, error) {
	b := &builder{doc: doc}
	if traits, ok := doc.field("traits"); ok && traits.kind == valueDict {
		b.traits = traits
	}

	top := &object{v: doc}
	s := &Stadium{
		DefaultID:     CustomID,
		Name:          top.str("name", ""),
		Width:         top.number("width", 0),
		Height:        top.number("height", 0),
		MaxViewWidth:  top.number("maxViewWidth", 0),
		SpawnDistance: top.number("spawnDistance", 200),
		CanBeStored:   top.boolean("canBeStored", true),
		PlayerPhysics: DefaultPlayerPhysics(),
	}

	switch top.str("cameraFollow", "ball") {
	case "player":
		s.CameraFollow = CameraFollowPlayer
	default:
		s.CameraFollow = CameraFollowBall
	}
	s.FullKickOffReset = top.str("kickOffReset", "partial") == "full"
	if top.err != nil {
		return nil, sectionError("stadium", 0, top.err)
	}

	if bg, ok := doc.field("bg"); ok && !bg.IsNull() {
		o := &object{v: bg}
		s.Background = Background{
			Width:         o.number("width", 0),
			Height:        o.number("height", 0),
			KickOffRadius: o.number("kickOffRadius", 0),
			CornerRadius:  o.number("cornerRadius", 0),
			GoalLine:      o.number("goalLine", 0),
			Color:         o.color("color", 0x718C5A),
		}
		switch o.str("type", "none") {
		case "grass":
			s.Background.Type = BackgroundGrass
		case "hockey":
			s.Background.Type = BackgroundHockey
		}
		if o.err != nil {
			return nil, sectionError("bg", 0, o.err)
		}
	}

	for _, side := range []struct {
		key string
		dst *[]physics.Vec
	}{{"redSpawnPoints", &s.RedSpawnPoints}, {"blueSpawnPoints", &s.BlueSpawnPoints}} {
		v, ok := doc.field(side.key)
		if !ok || v.IsNull() {
			continue
		}
		if v.kind != valueList {
			return nil, sectionError(side.key, 0, fmt.Errorf("expected a list"))
		}
		if len(v.list) > MaxEntities {
			return nil, errcode.New(errcode.StadiumLimitsExceededError)
		}
		for i, item := range v.list {
			p, err := toVec(item)
			if err != nil {
				return nil, sectionError(side.key, i, err)
			}
			*side.dst = append(*side.dst, p)
		}
	}

	err := b.each("vertexes", func(_ int, o *object) error {
		s.Vertices = append(s.Vertices, physics.Vertex{
			Pos:    physics.Vec{X: o.number("x", 0), Y: o.number("y", 0)},
			BCoef:  o.number("bCoef", 1),
			CGroup: o.flags("cGroup", defaultWallGroup),
			CMask:  o.flags("cMask", defaultMask),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = b.each("segments", func(_ int, o *object) error {
		seg := physics.Segment{
			V0:     int(o.number("v0", 0)),
			V1:     int(o.number("v1", 0)),
			Bias:   o.number("bias", 0),
			BCoef:  o.number("bCoef", 1),
			CGroup: o.flags("cGroup", defaultWallGroup),
			CMask:  o.flags("cMask", defaultMask),
			Color:  o.color("color", 0),
			Vis:    o.boolean("vis", true),
		}
		if seg.V0 < 0 || seg.V0 >= len(s.Vertices) || seg.V1 < 0 || seg.V1 >= len(s.Vertices) {
			return fmt.Errorf("vertex index out of range")
		}
		curve := o.number("curve", 0)
		if o.has("curveF") {
			curveF := o.number("curveF", 0)
			curve = 2 * math.Atan(1/curveF) * 180 / math.Pi
		}
		seg.SetCurve(curve)
		seg.Update(s.Vertices)
		s.Segments = append(s.Segments, seg)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = b.each("goals", func(_ int, o *object) error {
		t, err := team.Parse(o.str("team", ""))
		if err != nil || !t.Playing() {
			return errcode.New(errcode.BadTeamError)
		}
		s.Goals = append(s.Goals, Goal{P0: o.vec("p0", physics.Vec{}), P1: o.vec("p1", physics.Vec{}), Team: t})
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = b.each("planes", func(_ int, o *object) error {
		p := physics.Plane{
			Dist:   o.number("dist", 0),
			BCoef:  o.number("bCoef", 1),
			CGroup: o.flags("cGroup", defaultWallGroup),
			CMask:  o.flags("cMask", defaultMask),
		}
		p.SetNormal(o.vec("normal", physics.Vec{X: 1}))
		s.Planes = append(s.Planes, p)
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = b.each("discs", func(_ int, o *object) error {
		s.Discs = append(s.Discs, readDisc(o, physics.Disc{
			PlayerID: physics.NoPlayer,
			Radius:   10,
			InvMass:  0,
			Damping:  0.99,
			BCoef:    0.5,
			Color:    0xFFFFFF,
			CGroup:   physics.CollisionAll,
			CMask:    physics.CollisionAll,
		}))
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := b.ball(s); err != nil {
		return nil, err
	}

	err = b.each("joints", func(_ int, o *object) error {
		j := physics.Joint{
			D0:    int(o.number("d0", 0)),
			D1:    int(o.number("d1", 0)),
			Color: o.color("color", 0),
		}
		if j.D0 < 0 || j.D0 >= len(s.Discs) || j.D1 < 0 || j.D1 >= len(s.Discs) {
			return fmt.Errorf("disc index out of range")
		}

		length, _ := o.v.field("length")
		switch length.kind {
		case valueNull:
			d := s.Discs[j.D0].Pos.Sub(s.Discs[j.D1].Pos).Len()
			j.MinLength, j.MaxLength = d, d
		case valueNumber:
			j.MinLength, j.MaxLength = length.num, length.num
		case valueList:
			if len(length.list) != 2 {
				return fmt.Errorf("length must be [min, max]")
			}
			var err error
			if j.MinLength, err = length.list[0].asNumber(); err != nil {
				return err
			}
			if j.MaxLength, err = length.list[1].asNumber(); err != nil {
				return err
			}
		default:
			return fmt.Errorf("invalid joint length")
		}

		strength, _ := o.v.field("strength")
		switch strength.kind {
		case valueNull:
			j.Strength = math.Inf(1)
		case valueString:
			if strength.str != "rigid" {
				return fmt.Errorf("invalid joint strength %q", strength.str)
			}
			j.Strength = math.Inf(1)
		case valueNumber:
			j.Strength = strength.num
		default:
			return fmt.Errorf("invalid joint strength")
		}

		s.Joints = append(s.Joints, j)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if pp, ok := doc.field("playerPhysics"); ok && !pp.IsNull() {
		o := &object{v: pp}
		def := DefaultPlayerPhysics()
		s.PlayerPhysics = PlayerPhysics{
			Radius:              o.number("radius", def.Radius),
			BCoef:               o.number("bCoef", def.BCoef),
			InvMass:             o.number("invMass", def.InvMass),
			Damping:             o.number("damping", def.Damping),
			Gravity:             o.vec("gravity", def.Gravity),
			CGroup:              o.flags("cGroup", def.CGroup),
			Acceleration:        o.number("acceleration", def.Acceleration),
			KickingAcceleration: o.number("kickingAcceleration", def.KickingAcceleration),
			KickingDamping:      o.number("kickingDamping", def.KickingDamping),
			KickStrength:        o.number("kickStrength", def.KickStrength),
			Kickback:            o.number("kickback", def.Kickback),
		}
		if o.err != nil {
			return nil, sectionError("playerPhysics", 0, o.err)
		}
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// ball puts the ball at Discs[0]. "disc0" promotes the first listed disc,
// anything else describes a new disc that is prepended.
func (b *builder) ball(s *Stadium) error {
	v, ok := b.doc.field("ballPhysics")
	if ok && v.kind == valueString && v.str == "disc0" {
		if len(s.Discs) == 0 {
			return sectionError("ballPhysics", 0, fmt.Errorf("disc0 requested but no discs defined"))
		}
		s.Discs[0].CGroup |= ballGroupExtra
		return nil
	}

	def := DefaultBall()
	if ok && !v.IsNull() {
		resolved, err := b.item(v)
		if err != nil {
			return sectionError("ballPhysics", 0, err)
		}
		o := &object{v: resolved}
		def.CGroup = physics.CollisionBall
		def = readDisc(o, def)
		if o.err != nil {
			return sectionError("ballPhysics", 0, o.err)
		}
		def.CGroup |= ballGroupExtra
	}
	if len(s.Discs) >= MaxEntities {
		return errcode.New(errcode.StadiumLimitsExceededError)
	}
	s.Discs = append([]physics.Disc{def}, s.Discs...)
	return nil
}

func readDisc(o *object, def physics.Disc) physics.Disc {
	return physics.Disc{
		PlayerID: physics.NoPlayer,
		Pos:      o.vec("pos", def.Pos),
		Speed:    o.vec("speed", def.Speed),
		Gravity:  o.vec("gravity", def.Gravity),
		Radius:   o.number("radius", def.Radius),
		InvMass:  o.number("invMass", def.InvMass),
		Damping:  o.number("damping", def.Damping),
		BCoef:    o.number("bCoef", def.BCoef),
		Color:    o.color("color", def.Color),
		CGroup:   o.flags("cGroup", def.CGroup),
		CMask:    o.flags("cMask", def.CMask),
	}
}
