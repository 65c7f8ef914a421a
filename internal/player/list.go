package player

import (
	"github.com/siohaza/haxgo/internal/codec"
	"github.com/siohaza/haxgo/internal/errcode"
	"github.com/siohaza/haxgo/internal/team"
)

// List is the room's ordered player list. Order matters: it decides spawn
// slots and the order of ping data.
type List struct {
	players []*Player
}

func NewList() *List {
	return &List{players: make([]*Player, 0)}
}

func (l *List) Len() int {
	return len(l.players)
}

// All returns the players in order. The slice is a copy; the players are not.
func (l *List) All() []*Player {
	return append([]*Player(nil), l.players...)
}

func (l *List) Get(id int) (*Player, bool) {
	i := l.index(id)
	if i < 0 {
		return nil, false
	}
	return l.players[i], true
}

func (l *List) Contains(id int) bool {
	return l.index(id) >= 0
}

func (l *List) index(id int) int {
	for i, p := range l.players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (l *List) Add(p *Player) {
	l.players = append(l.players, p)
}

func (l *List) Remove(id int) (*Player, bool) {
	i := l.index(id)
	if i < 0 {
		return nil, false
	}
	p := l.players[i]
	l.players = append(l.players[:i], l.players[i+1:]...)
	return p, true
}

// FindFreeID returns the lowest unused id above the host's.
func (l *List) FindFreeID() (int, bool) {
	used := make(map[int]bool, len(l.players))
	for _, p := range l.players {
		used[p.ID] = true
	}
	for id := HostID + 1; id <= MaxID; id++ {
		if !used[id] {
			return id, true
		}
	}
	return 0, false
}

func (l *List) ForEach(fn func(*Player)) {
	for _, p := range l.All() {
		fn(p)
	}
}

// InTeam returns the players of one team in list order.
func (l *List) InTeam(t team.ID) []*Player {
	out := make([]*Player, 0, len(l.players))
	for _, p := range l.players {
		if p.Team == t {
			out = append(out, p)
		}
	}
	return out
}

// Reorder moves the listed players to the top or bottom of the list, in the
// order given. Unknown ids are ignored.
func (l *List) Reorder(ids []int, moveToTop bool) {
	moved := make([]*Player, 0, len(ids))
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		if p, ok := l.Get(id); ok {
			moved = append(moved, p)
			seen[id] = true
		}
	}

	rest := make([]*Player, 0, len(l.players))
	for _, p := range l.players {
		if !seen[p.ID] {
			rest = append(rest, p)
		}
	}

	if moveToTop {
		l.players = append(moved, rest...)
	} else {
		l.players = append(rest, moved...)
	}
}

func (l *List) Copy() *List {
	c := &List{players: make([]*Player, len(l.players))}
	for i, p := range l.players {
		c.players[i] = p.Copy()
	}
	return c
}

func (l *List) Write(w *codec.Writer) {
	w.WriteVarUint(uint32(len(l.players)))
	for _, p := range l.players {
		p.Write(w)
	}
}

func (l *List) Read(r *codec.Reader) error {
	n, err := r.ReadVarUint()
	if err != nil {
		return err
	}
	if int(n) > r.Remaining() {
		return errcode.New(errcode.ReadTooMuchError)
	}
	players := make([]*Player, n)
	for i := range players {
		players[i] = &Player{}
		if err := players[i].Read(r); err != nil {
			return err
		}
	}
	l.players = players
	return nil
}
