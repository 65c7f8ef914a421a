package stadium

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/siohaza/haxgo/internal/errcode"
	"github.com/siohaza/haxgo/internal/physics"
	"github.com/siohaza/haxgo/internal/team"
)

// Document is the stored text form of a stadium. Marshal writes it as plain
// JSON, which Parse reads back since the stadium syntax is a superset.
type Document struct {
	Name            string            `json:"name" jsonschema:"title=Stadium name,required"`
	Width           float64           `json:"width" jsonschema:"description=Half width of the camera area"`
	Height          float64           `json:"height" jsonschema:"description=Half height of the camera area"`
	MaxViewWidth    float64           `json:"maxViewWidth,omitempty"`
	CameraFollow    string            `json:"cameraFollow,omitempty" jsonschema:"enum=ball,enum=player"`
	SpawnDistance   float64           `json:"spawnDistance"`
	CanBeStored     bool              `json:"canBeStored"`
	KickOffReset    string            `json:"kickOffReset,omitempty" jsonschema:"enum=partial,enum=full"`
	Bg              *BackgroundDoc    `json:"bg,omitempty"`
	Vertexes        []VertexDoc       `json:"vertexes"`
	Segments        []SegmentDoc      `json:"segments"`
	Goals           []GoalDoc         `json:"goals"`
	Planes          []PlaneDoc        `json:"planes"`
	Discs           []DiscDoc         `json:"discs"`
	Joints          []JointDoc        `json:"joints"`
	RedSpawnPoints  [][2]float64      `json:"redSpawnPoints"`
	BlueSpawnPoints [][2]float64      `json:"blueSpawnPoints"`
	PlayerPhysics   *PlayerPhysicsDoc `json:"playerPhysics,omitempty"`
	BallPhysics     *DiscDoc          `json:"ballPhysics,omitempty"`
}

type BackgroundDoc struct {
	Type          string  `json:"type" jsonschema:"enum=grass,enum=hockey,enum=none"`
	Width         float64 `json:"width,omitempty"`
	Height        float64 `json:"height,omitempty"`
	KickOffRadius float64 `json:"kickOffRadius,omitempty"`
	CornerRadius  float64 `json:"cornerRadius,omitempty"`
	GoalLine      float64 `json:"goalLine,omitempty"`
	Color         string  `json:"color,omitempty" jsonschema:"pattern=^([0-9A-Fa-f]{6}|transparent)$"`
}

type VertexDoc struct {
	X      float64  `json:"x"`
	Y      float64  `json:"y"`
	BCoef  float64  `json:"bCoef"`
	CMask  []string `json:"cMask"`
	CGroup []string `json:"cGroup"`
}

type SegmentDoc struct {
	V0     int      `json:"v0" jsonschema:"minimum=0"`
	V1     int      `json:"v1" jsonschema:"minimum=0"`
	Curve  float64  `json:"curve,omitempty" jsonschema:"description=Arc angle in degrees"`
	Bias   float64  `json:"bias,omitempty"`
	BCoef  float64  `json:"bCoef"`
	CMask  []string `json:"cMask"`
	CGroup []string `json:"cGroup"`
	Vis    bool     `json:"vis"`
	Color  string   `json:"color" jsonschema:"pattern=^([0-9A-Fa-f]{6}|transparent)$"`
}

type GoalDoc struct {
	P0   [2]float64 `json:"p0"`
	P1   [2]float64 `json:"p1"`
	Team string     `json:"team" jsonschema:"enum=red,enum=blue"`
}

type PlaneDoc struct {
	Normal [2]float64 `json:"normal"`
	Dist   float64    `json:"dist"`
	BCoef  float64    `json:"bCoef"`
	CMask  []string   `json:"cMask"`
	CGroup []string   `json:"cGroup"`
}

type DiscDoc struct {
	Pos     [2]float64 `json:"pos"`
	Speed   [2]float64 `json:"speed"`
	Gravity [2]float64 `json:"gravity"`
	Radius  float64    `json:"radius" jsonschema:"exclusiveMinimum=0"`
	InvMass float64    `json:"invMass" jsonschema:"minimum=0"`
	Damping float64    `json:"damping" jsonschema:"minimum=0,maximum=1"`
	BCoef   float64    `json:"bCoef"`
	Color   string     `json:"color" jsonschema:"pattern=^([0-9A-Fa-f]{6}|transparent)$"`
	CMask   []string   `json:"cMask"`
	CGroup  []string   `json:"cGroup"`
}

type JointDoc struct {
	D0       int        `json:"d0" jsonschema:"minimum=0"`
	D1       int        `json:"d1" jsonschema:"minimum=0"`
	Length   [2]float64 `json:"length" jsonschema:"description=Minimum and maximum length"`
	Strength any        `json:"strength" jsonschema:"description=rigid or a spring strength"`
	Color    string     `json:"color" jsonschema:"pattern=^([0-9A-Fa-f]{6}|transparent)$"`
}

type PlayerPhysicsDoc struct {
	Radius              float64    `json:"radius"`
	BCoef               float64    `json:"bCoef"`
	InvMass             float64    `json:"invMass"`
	Damping             float64    `json:"damping"`
	Gravity             [2]float64 `json:"gravity"`
	CGroup              []string   `json:"cGroup"`
	Acceleration        float64    `json:"acceleration"`
	KickingAcceleration float64    `json:"kickingAcceleration"`
	KickingDamping      float64    `json:"kickingDamping"`
	KickStrength        float64    `json:"kickStrength"`
	Kickback            float64    `json:"kickback"`
}

func colorString(c physics.Color) string {
	if c == physics.Transparent {
		return "transparent"
	}
	return fmt.Sprintf("%06X", uint32(c)&0xFFFFFF)
}

func pair(v physics.Vec) [2]float64 {
	return [2]float64{v.X, v.Y}
}

func discDoc(d physics.Disc) DiscDoc {
	return DiscDoc{
		Pos:     pair(d.Pos),
		Speed:   pair(d.Speed),
		Gravity: pair(d.Gravity),
		Radius:  d.Radius,
		InvMass: d.InvMass,
		Damping: d.Damping,
		BCoef:   d.BCoef,
		Color:   colorString(d.Color),
		CMask:   d.CMask.Names(),
		CGroup:  d.CGroup.Names(),
	}
}

// NewDocument converts a stadium to its stored form.
func NewDocument(s *Stadium) *Document {
	doc := &Document{
		Name:          s.Name,
		Width:         s.Width,
		Height:        s.Height,
		MaxViewWidth:  s.MaxViewWidth,
		CameraFollow:  "ball",
		SpawnDistance: s.SpawnDistance,
		CanBeStored:   s.CanBeStored,
		KickOffReset:  "partial",
		Vertexes:      make([]VertexDoc, 0, len(s.Vertices)),
		Segments:      make([]SegmentDoc, 0, len(s.Segments)),
		Goals:         make([]GoalDoc, 0, len(s.Goals)),
		Planes:        make([]PlaneDoc, 0, len(s.Planes)),
		Discs:         make([]DiscDoc, 0, len(s.Discs)),
		Joints:        make([]JointDoc, 0, len(s.Joints)),
	}
	if s.CameraFollow == CameraFollowPlayer {
		doc.CameraFollow = "player"
	}
	if s.FullKickOffReset {
		doc.KickOffReset = "full"
	}

	bgType := "none"
	switch s.Background.Type {
	case BackgroundGrass:
		bgType = "grass"
	case BackgroundHockey:
		bgType = "hockey"
	}
	doc.Bg = &BackgroundDoc{
		Type:          bgType,
		Width:         s.Background.Width,
		Height:        s.Background.Height,
		KickOffRadius: s.Background.KickOffRadius,
		CornerRadius:  s.Background.CornerRadius,
		GoalLine:      s.Background.GoalLine,
		Color:         colorString(s.Background.Color),
	}

	for _, v := range s.Vertices {
		doc.Vertexes = append(doc.Vertexes, VertexDoc{
			X: v.Pos.X, Y: v.Pos.Y, BCoef: v.BCoef,
			CMask: v.CMask.Names(), CGroup: v.CGroup.Names(),
		})
	}
	for _, seg := range s.Segments {
		doc.Segments = append(doc.Segments, SegmentDoc{
			V0: seg.V0, V1: seg.V1, Curve: seg.Curve, Bias: seg.Bias, BCoef: seg.BCoef,
			CMask: seg.CMask.Names(), CGroup: seg.CGroup.Names(),
			Vis: seg.Vis, Color: colorString(seg.Color),
		})
	}
	for _, g := range s.Goals {
		name := "red"
		if g.Team == team.Blue {
			name = "blue"
		}
		doc.Goals = append(doc.Goals, GoalDoc{P0: pair(g.P0), P1: pair(g.P1), Team: name})
	}
	for _, p := range s.Planes {
		doc.Planes = append(doc.Planes, PlaneDoc{
			Normal: pair(p.Normal), Dist: p.Dist, BCoef: p.BCoef,
			CMask: p.CMask.Names(), CGroup: p.CGroup.Names(),
		})
	}
	if len(s.Discs) > 0 {
		ball := discDoc(s.Discs[0])
		doc.BallPhysics = &ball
		for _, d := range s.Discs[1:] {
			doc.Discs = append(doc.Discs, discDoc(d))
		}
	}
	for _, j := range s.Joints {
		var strength any = "rigid"
		if !j.Rigid() {
			strength = j.Strength
		}
		doc.Joints = append(doc.Joints, JointDoc{
			D0: j.D0, D1: j.D1,
			Length:   [2]float64{j.MinLength, j.MaxLength},
			Strength: strength,
			Color:    colorString(j.Color),
		})
	}
	for _, p := range s.RedSpawnPoints {
		doc.RedSpawnPoints = append(doc.RedSpawnPoints, pair(p))
	}
	for _, p := range s.BlueSpawnPoints {
		doc.BlueSpawnPoints = append(doc.BlueSpawnPoints, pair(p))
	}

	pp := s.PlayerPhysics
	doc.PlayerPhysics = &PlayerPhysicsDoc{
		Radius:              pp.Radius,
		BCoef:               pp.BCoef,
		InvMass:             pp.InvMass,
		Damping:             pp.Damping,
		Gravity:             pair(pp.Gravity),
		CGroup:              pp.CGroup.Names(),
		Acceleration:        pp.Acceleration,
		KickingAcceleration: pp.KickingAcceleration,
		KickingDamping:      pp.KickingDamping,
		KickStrength:        pp.KickStrength,
		Kickback:            pp.Kickback,
	}
	return doc
}

// Marshal exports a stadium as indented text that Parse accepts. Stadiums
// flagged as not storable are refused.
func Marshal(s *Stadium) ([]byte, error) {
	if !s.CanBeStored {
		return nil, errcode.New(errcode.ObjectCastError)
	}
	data, err := json.MarshalIndent(NewDocument(s), "", "\t")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stadium: %w", err)
	}
	return data, nil
}

// Schema describes Document for editors and validators.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}
	schema := reflector.Reflect(new(Document))
	schema.Title = "haxgo stadium"
	schema.Description = "Stadium file accepted by haxgo stadium check and the room's SetStadium"
	return schema
}
