package physics

import (
	"fmt"
	"strings"
)

// CollisionFlags is a set of the 32 named collision bits. A disc's group says
// what it is, its mask says what it can hit.
type CollisionFlags uint32

const (
	CollisionBall CollisionFlags = 1 << iota
	CollisionRed
	CollisionBlue
	CollisionRedKO
	CollisionBlueKO
	CollisionWall
	CollisionKick
	CollisionScore
	CollisionFree1
	CollisionFree2
	CollisionFree3
	CollisionFree4
	CollisionFree5
	CollisionFree6
	CollisionFree7
	CollisionFree8
	CollisionFree9
	CollisionFree10
	CollisionFree11
	CollisionFree12
	CollisionFree13
	CollisionFree14
	CollisionFree15
	CollisionFree16
	CollisionFree17
	CollisionFree18
	CollisionFree19
	CollisionFree20
	CollisionC0
	CollisionC1
	CollisionC2
	CollisionC3
)

const (
	// CollisionAll is the "all" alias used by stadium files.
	CollisionAll = CollisionBall | CollisionRed | CollisionBlue | CollisionRedKO | CollisionBlueKO | CollisionWall

	CollisionNone CollisionFlags = 0
)

var flagNames = [32]string{
	"ball", "red", "blue", "redKO", "blueKO", "wall", "kick", "score",
	"free1", "free2", "free3", "free4", "free5", "free6", "free7", "free8",
	"free9", "free10", "free11", "free12", "free13", "free14", "free15", "free16",
	"free17", "free18", "free19", "free20",
	"c0", "c1", "c2", "c3",
}

var flagsByName = func() map[string]CollisionFlags {
	m := make(map[string]CollisionFlags, len(flagNames)+1)
	for i, name := range flagNames {
		m[name] = 1 << i
	}
	m["all"] = CollisionAll
	return m
}()

// ParseCollisionFlags turns a list of flag names into a bitset.
func ParseCollisionFlags(names []string) (CollisionFlags, error) {
	var f CollisionFlags
	for _, name := range names {
		bit, ok := flagsByName[name]
		if !ok {
			return 0, fmt.Errorf("unknown collision flag %q", name)
		}
		f |= bit
	}
	return f, nil
}

// Names lists the set flags in bit order.
func (f CollisionFlags) Names() []string {
	names := make([]string, 0, 8)
	for i, name := range flagNames {
		if f&(1<<i) != 0 {
			names = append(names, name)
		}
	}
	return names
}

func (f CollisionFlags) String() string {
	return "[" + strings.Join(f.Names(), ",") + "]"
}

// CanCollide is the gating rule: each side's mask has to include something
// the other side's group declares.
func CanCollide(groupA, maskA, groupB, maskB CollisionFlags) bool {
	return maskA&groupB != 0 && maskB&groupA != 0
}
