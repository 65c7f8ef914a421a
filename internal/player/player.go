package player

import (
	"github.com/siohaza/haxgo/internal/codec"
	"github.com/siohaza/haxgo/internal/team"
)

// HostID is the id of the room host. Remote players get ids from 1 up.
const (
	HostID = 0
	MaxID  = 65535
)

// Input is the five-bit key state a player sends every time it changes.
type Input uint8

const (
	InputDown  Input = 1
	InputUp    Input = 2
	InputLeft  Input = 4
	InputRight Input = 8
	InputKick  Input = 16

	inputMask = InputDown | InputUp | InputLeft | InputRight | InputKick
)

func (in Input) Kick() bool {
	return in&InputKick != 0
}

// Direction returns the unnormalised movement direction, each axis in {-1,0,1}.
func (in Input) Direction() (x, y float64) {
	if in&InputRight != 0 {
		x++
	}
	if in&InputLeft != 0 {
		x--
	}
	if in&InputDown != 0 {
		y++
	}
	if in&InputUp != 0 {
		y--
	}
	return x, y
}

// Sanitize drops bits outside the five known keys.
func (in Input) Sanitize() Input {
	return in & inputMask
}

type Player struct {
	ID             int
	Name           string
	Team           team.ID
	Flag           string
	Avatar         string
	HeadlessAvatar string
	Admin          bool
	Conn           string
	Auth           string
	Sync           bool
	Ping           int
	Input          Input
	IsKicking      bool

	KickRateMinTick int
	KickRateMaxTick int
}

func New(id int, name, flag, avatar, conn, auth string) *Player {
	return &Player{
		ID:     id,
		Name:   name,
		Team:   team.Spectators,
		Flag:   flag,
		Avatar: avatar,
		Conn:   conn,
		Auth:   auth,
		Sync:   true,
	}
}

// Copy returns an independent copy. Player holds only values.
func (p *Player) Copy() *Player {
	c := *p
	return &c
}

// KickRate is the room-wide kick throttle: a minimum gap of Min ticks
// between kicks, plus a bucket refilling Rate kicks per minute up to Burst.
type KickRate struct {
	Min   int
	Rate  int
	Burst int
}

func DefaultKickRate() KickRate {
	return KickRate{Min: 2, Rate: 0, Burst: 0}
}

func (k KickRate) framesPerKick() int {
	if k.Rate <= 0 {
		return 0
	}
	return 3600 / k.Rate
}

// AllowKick reports whether a new kick press may go through, and charges the
// counters when it does.
func (p *Player) AllowKick(k KickRate) bool {
	if p.KickRateMinTick > 0 {
		return false
	}
	fpk := k.framesPerKick()
	if fpk > 0 && p.KickRateMaxTick > k.Burst*fpk {
		return false
	}
	p.KickRateMinTick = k.Min
	p.KickRateMaxTick += fpk
	return true
}

// TickKickRate counts both throttles down by one tick.
func (p *Player) TickKickRate() {
	if p.KickRateMinTick > 0 {
		p.KickRateMinTick--
	}
	if p.KickRateMaxTick > 0 {
		p.KickRateMaxTick--
	}
}

func (p *Player) Write(w *codec.Writer) {
	w.WriteVarUint(uint32(p.ID))
	w.WriteString(p.Name)
	w.WriteUint8(uint8(p.Team))
	w.WriteString(p.Flag)
	w.WriteString(p.Avatar)
	w.WriteString(p.HeadlessAvatar)
	w.WriteString(p.Conn)
	w.WriteString(p.Auth)
	w.WriteVarUint(uint32(p.Ping))
	w.WriteUint8(uint8(p.Input))
	w.WriteBools(p.Admin, p.Sync, p.IsKicking)
	w.WriteVarUint(uint32(p.KickRateMinTick))
	w.WriteVarUint(uint32(p.KickRateMaxTick))
}

func (p *Player) Read(r *codec.Reader) error {
	id, err := r.ReadVarUint()
	if err != nil {
		return err
	}
	p.ID = int(id)
	if p.Name, err = r.ReadString(); err != nil {
		return err
	}
	t, err := r.ReadUint8()
	if err != nil {
		return err
	}
	p.Team = team.ID(t)
	if _, err := team.ByID(p.Team); err != nil {
		return err
	}
	for _, dst := range []*string{&p.Flag, &p.Avatar, &p.HeadlessAvatar, &p.Conn, &p.Auth} {
		if *dst, err = r.ReadString(); err != nil {
			return err
		}
	}
	ping, err := r.ReadVarUint()
	if err != nil {
		return err
	}
	p.Ping = int(ping)
	in, err := r.ReadUint8()
	if err != nil {
		return err
	}
	p.Input = Input(in).Sanitize()
	flags, err := r.ReadBools(3)
	if err != nil {
		return err
	}
	p.Admin, p.Sync, p.IsKicking = flags[0], flags[1], flags[2]

	minTick, err := r.ReadVarUint()
	if err != nil {
		return err
	}
	maxTick, err := r.ReadVarUint()
	if err != nil {
		return err
	}
	p.KickRateMinTick, p.KickRateMaxTick = int(minTick), int(maxTick)
	return nil
}
