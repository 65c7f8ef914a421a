package stadium

import (
	"fmt"

	"github.com/siohaza/haxgo/internal/physics"
	"github.com/siohaza/haxgo/internal/team"
)

const (
	lineColor   physics.Color = 0xC7E6BD
	grassColor  physics.Color = 0x718C5A
	hockeyColor physics.Color = 0x555555
	postRadius                = 8
	netDepth                  = 30
	hockeyInset               = 60
)

// layout describes one built-in stadium. Every default stadium is generated
// from these numbers, so the set stays consistent across peers.
type layout struct {
	name          string
	width         float64
	height        float64
	fieldWidth    float64
	fieldHeight   float64
	goalWidth     float64
	cornerRadius  float64
	kickOffRadius float64
	spawnDistance float64
	hockey        bool
}

var layouts = []layout{
	{name: "Classic", width: 420, height: 200, fieldWidth: 370, fieldHeight: 170, goalWidth: 64, kickOffRadius: 75, spawnDistance: 170},
	{name: "Easy", width: 420, height: 200, fieldWidth: 370, fieldHeight: 170, goalWidth: 90, kickOffRadius: 75, spawnDistance: 170},
	{name: "Small", width: 310, height: 150, fieldWidth: 260, fieldHeight: 120, goalWidth: 55, kickOffRadius: 60, spawnDistance: 120},
	{name: "Big", width: 600, height: 270, fieldWidth: 550, fieldHeight: 240, goalWidth: 80, kickOffRadius: 80, spawnDistance: 310},
	{name: "Rounded", width: 420, height: 200, fieldWidth: 370, fieldHeight: 170, goalWidth: 64, cornerRadius: 75, kickOffRadius: 75, spawnDistance: 170},
	{name: "Hockey", width: 420, height: 204, fieldWidth: 398, fieldHeight: 182, goalWidth: 68, cornerRadius: 60, kickOffRadius: 75, spawnDistance: 200, hockey: true},
	{name: "Big Hockey", width: 600, height: 270, fieldWidth: 570, fieldHeight: 240, goalWidth: 80, cornerRadius: 80, kickOffRadius: 80, spawnDistance: 310, hockey: true},
	{name: "Big Easy", width: 600, height: 270, fieldWidth: 550, fieldHeight: 240, goalWidth: 110, kickOffRadius: 80, spawnDistance: 310},
	{name: "Big Rounded", width: 600, height: 270, fieldWidth: 550, fieldHeight: 240, goalWidth: 80, cornerRadius: 100, kickOffRadius: 80, spawnDistance: 310},
	{name: "Huge", width: 800, height: 380, fieldWidth: 750, fieldHeight: 350, goalWidth: 100, kickOffRadius: 100, spawnDistance: 400},
}

// DefaultCount is the number of built-in stadiums.
var DefaultCount = len(layouts)

// Default builds the built-in stadium with the given id.
func Default(id uint8) (*Stadium, error) {
	if int(id) >= len(layouts) {
		return nil, fmt.Errorf("unknown default stadium %d", id)
	}
	return layouts[id].build(id), nil
}

// Defaults builds the whole built-in set in id order.
func Defaults() []*Stadium {
	out := make([]*Stadium, len(layouts))
	for i := range layouts {
		out[i] = layouts[i].build(uint8(i))
	}
	return out
}

// DefaultByName looks a built-in stadium up by its display name.
func DefaultByName(name string) (*Stadium, bool) {
	for i := range layouts {
		if layouts[i].name == name {
			return layouts[i].build(uint8(i)), true
		}
	}
	return nil, false
}

type geometry struct {
	s *Stadium
}

func (g *geometry) vertex(x, y float64, mask physics.CollisionFlags) int {
	g.s.Vertices = append(g.s.Vertices, physics.Vertex{
		Pos:    physics.Vec{X: x, Y: y},
		BCoef:  1,
		CGroup: physics.CollisionWall,
		CMask:  mask,
	})
	return len(g.s.Vertices) - 1
}

func (g *geometry) segment(v0, v1 int, curve float64, group, mask physics.CollisionFlags, vis bool) {
	seg := physics.Segment{
		V0:     v0,
		V1:     v1,
		BCoef:  1,
		CGroup: group,
		CMask:  mask,
		Color:  lineColor,
		Vis:    vis,
	}
	seg.SetCurve(curve)
	seg.Update(g.s.Vertices)
	g.s.Segments = append(g.s.Segments, seg)
}

// line adds a straight segment between two new vertices.
func (g *geometry) line(x0, y0, x1, y1 float64, group, mask physics.CollisionFlags, vis bool) {
	v0 := g.vertex(x0, y0, mask)
	v1 := g.vertex(x1, y1, mask)
	g.segment(v0, v1, 0, group, mask, vis)
}

func (g *geometry) plane(nx, ny, dist float64) {
	p := physics.Plane{
		Dist:   dist,
		BCoef:  1,
		CGroup: physics.CollisionWall,
		CMask:  physics.CollisionAll,
	}
	p.SetNormal(physics.Vec{X: nx, Y: ny})
	g.s.Planes = append(g.s.Planes, p)
}

func (g *geometry) post(x, y float64) {
	g.s.Discs = append(g.s.Discs, physics.Disc{
		PlayerID: physics.NoPlayer,
		Pos:      physics.Vec{X: x, Y: y},
		Radius:   postRadius,
		BCoef:    0.5,
		InvMass:  0,
		Damping:  0.99,
		Color:    0,
		CGroup:   physics.CollisionWall,
		CMask:    physics.CollisionAll,
	})
}

func (l *layout) build(id uint8) *Stadium {
	s := &Stadium{
		Name:          l.name,
		DefaultID:     id,
		Width:         l.width,
		Height:        l.height,
		CameraFollow:  CameraFollowBall,
		SpawnDistance: l.spawnDistance,
		CanBeStored:   true,
		PlayerPhysics: DefaultPlayerPhysics(),
		Discs:         []physics.Disc{DefaultBall()},
	}
	s.Background = Background{
		Type:          BackgroundGrass,
		Width:         l.fieldWidth,
		Height:        l.fieldHeight,
		KickOffRadius: l.kickOffRadius,
		CornerRadius:  l.cornerRadius,
		Color:         grassColor,
	}

	g := &geometry{s: s}
	x, y, r := l.fieldWidth, l.fieldHeight, l.cornerRadius
	ball := physics.CollisionBall

	goalX := x
	if l.hockey {
		goalX = x - hockeyInset
		s.Background.Type = BackgroundHockey
		s.Background.Color = hockeyColor
		s.Background.GoalLine = goalX
	}

	// ball area
	g.line(-x+r, -y, x-r, -y, physics.CollisionWall, ball, true)
	g.line(-x+r, y, x-r, y, physics.CollisionWall, ball, true)
	for _, side := range []float64{-1, 1} {
		if l.hockey {
			g.line(side*x, -y+r, side*x, y-r, physics.CollisionWall, ball, true)
		} else {
			g.line(side*x, -y+r, side*x, -l.goalWidth, physics.CollisionWall, ball, true)
			g.line(side*x, l.goalWidth, side*x, y-r, physics.CollisionWall, ball, true)
		}
	}
	if r > 0 {
		corners := [][4]float64{
			{-x, -y + r, -x + r, -y},
			{x - r, -y, x, -y + r},
			{x, y - r, x - r, y},
			{-x + r, y, -x, y - r},
		}
		for _, c := range corners {
			v0 := g.vertex(c[0], c[1], ball)
			v1 := g.vertex(c[2], c[3], ball)
			g.segment(v0, v1, 90, physics.CollisionWall, ball, true)
		}
	}

	// goals, nets and posts
	for _, side := range []float64{-1, 1} {
		owner := team.Red
		if side > 0 {
			owner = team.Blue
		}
		s.Goals = append(s.Goals, Goal{
			P0:   physics.Vec{X: side * goalX, Y: l.goalWidth},
			P1:   physics.Vec{X: side * goalX, Y: -l.goalWidth},
			Team: owner,
		})

		top := g.vertex(side*goalX, -l.goalWidth, physics.CollisionAll)
		bottom := g.vertex(side*goalX, l.goalWidth, physics.CollisionAll)
		backTop := g.vertex(side*(goalX+netDepth), -l.goalWidth, physics.CollisionAll)
		backBottom := g.vertex(side*(goalX+netDepth), l.goalWidth, physics.CollisionAll)
		g.segment(top, backTop, 0, physics.CollisionWall, physics.CollisionAll, true)
		g.segment(backTop, backBottom, 0, physics.CollisionWall, physics.CollisionAll, true)
		g.segment(backBottom, bottom, 0, physics.CollisionWall, physics.CollisionAll, true)

		g.post(side*goalX, -l.goalWidth)
		g.post(side*goalX, l.goalWidth)
	}

	// kick-off barrier: the half line plus a circle split by team
	players := physics.CollisionRed | physics.CollisionBlue
	ko := physics.CollisionRedKO | physics.CollisionBlueKO
	g.line(0, -l.height, 0, -l.kickOffRadius, ko, players, false)
	g.line(0, l.kickOffRadius, 0, l.height, ko, players, false)
	c0 := g.vertex(0, -l.kickOffRadius, players)
	c1 := g.vertex(0, l.kickOffRadius, players)
	g.segment(c0, c1, 180, physics.CollisionBlueKO, players, false)
	g.segment(c0, c1, -180, physics.CollisionRedKO, players, false)

	// outer bounds for everything
	g.plane(0, 1, -l.height)
	g.plane(0, -1, -l.height)
	g.plane(1, 0, -l.width)
	g.plane(-1, 0, -l.width)

	return s
}
