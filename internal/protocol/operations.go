package protocol

import (
	"fmt"

	"github.com/siohaza/haxgo/internal/codec"
	"github.com/siohaza/haxgo/internal/physics"
	"github.com/siohaza/haxgo/internal/player"
	"github.com/siohaza/haxgo/internal/stadium"
	"github.com/siohaza/haxgo/internal/team"
)

type OperationType uint8

const (
	OpSetAvatar         OperationType = 0
	OpSetHeadlessAvatar OperationType = 1
	OpSendChat          OperationType = 2
	OpSendChatIndicator OperationType = 3
	OpSendAnnouncement  OperationType = 4
	OpSendInput         OperationType = 5
	OpSetStadium        OperationType = 6
	OpStartGame         OperationType = 7
	OpStopGame          OperationType = 8
	OpPauseResumeGame   OperationType = 9
	OpSetScoreLimit     OperationType = 10
	OpSetTimeLimit      OperationType = 11
	OpAutoTeams         OperationType = 12
	OpSetTeamsLock      OperationType = 13
	OpSetPlayerTeam     OperationType = 14
	OpSetKickRateLimit  OperationType = 15
	OpSetTeamColors     OperationType = 16
	OpSetPlayerAdmin    OperationType = 17
	OpKickBanPlayer     OperationType = 18
	OpSetPlayerSync     OperationType = 19
	OpPing              OperationType = 20
	OpSetDiscProperties OperationType = 21
	OpJoinRoom          OperationType = 22
	OpReorderPlayers    OperationType = 23
	OpCustomEvent       OperationType = 24

	opCount = 25
)

var opNames = [opCount]string{
	"SetAvatar", "SetHeadlessAvatar", "SendChat", "SendChatIndicator", "SendAnnouncement",
	"SendInput", "SetStadium", "StartGame", "StopGame", "PauseResumeGame", "SetScoreLimit",
	"SetTimeLimit", "AutoTeams", "SetTeamsLock", "SetPlayerTeam", "SetKickRateLimit",
	"SetTeamColors", "SetPlayerAdmin", "KickBanPlayer", "SetPlayerSync", "Ping",
	"SetDiscProperties", "JoinRoom", "ReorderPlayers", "CustomEvent",
}

func (t OperationType) String() string {
	if int(t) >= opCount {
		return fmt.Sprintf("OperationType(%d)", uint8(t))
	}
	return opNames[t]
}

func (t OperationType) Valid() bool {
	return int(t) < opCount
}

// Operation is one state change a peer asks for. The sender is not part of
// the payload: the host stamps it from the connection.
type Operation interface {
	Type() OperationType
	Write(w *codec.Writer)
	Read(r *codec.Reader) error
}

// NewOperation returns an empty operation of type t, ready for Read.
func NewOperation(t OperationType) (Operation, error) {
	switch t {
	case OpSetAvatar:
		return &SetAvatar{}, nil
	case OpSetHeadlessAvatar:
		return &SetHeadlessAvatar{}, nil
	case OpSendChat:
		return &SendChat{}, nil
	case OpSendChatIndicator:
		return &SendChatIndicator{}, nil
	case OpSendAnnouncement:
		return &SendAnnouncement{}, nil
	case OpSendInput:
		return &SendInput{}, nil
	case OpSetStadium:
		return &SetStadium{}, nil
	case OpStartGame:
		return &StartGame{}, nil
	case OpStopGame:
		return &StopGame{}, nil
	case OpPauseResumeGame:
		return &PauseResumeGame{}, nil
	case OpSetScoreLimit:
		return &SetScoreLimit{}, nil
	case OpSetTimeLimit:
		return &SetTimeLimit{}, nil
	case OpAutoTeams:
		return &AutoTeams{}, nil
	case OpSetTeamsLock:
		return &SetTeamsLock{}, nil
	case OpSetPlayerTeam:
		return &SetPlayerTeam{}, nil
	case OpSetKickRateLimit:
		return &SetKickRateLimit{}, nil
	case OpSetTeamColors:
		return &SetTeamColors{}, nil
	case OpSetPlayerAdmin:
		return &SetPlayerAdmin{}, nil
	case OpKickBanPlayer:
		return &KickBanPlayer{}, nil
	case OpSetPlayerSync:
		return &SetPlayerSync{}, nil
	case OpPing:
		return &Ping{}, nil
	case OpSetDiscProperties:
		return &SetDiscProperties{}, nil
	case OpJoinRoom:
		return &JoinRoom{}, nil
	case OpReorderPlayers:
		return &ReorderPlayers{}, nil
	case OpCustomEvent:
		return &CustomEvent{}, nil
	}
	return nil, fmt.Errorf("unknown operation type %d", uint8(t))
}

// WriteOperation writes the type byte followed by the payload.
func WriteOperation(w *codec.Writer, op Operation) {
	w.WriteUint8(uint8(op.Type()))
	op.Write(w)
}

func ReadOperation(r *codec.Reader) (Operation, error) {
	t, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	op, err := NewOperation(OperationType(t))
	if err != nil {
		return nil, err
	}
	if err := op.Read(r); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", OperationType(t), err)
	}
	return op, nil
}

func readVarInt(r *codec.Reader) (int, error) {
	v, err := r.ReadVarInt()
	return int(v), err
}

func readVarUint(r *codec.Reader) (int, error) {
	v, err := r.ReadVarUint()
	return int(v), err
}

type SetAvatar struct {
	Avatar string
}

func (*SetAvatar) Type() OperationType      { return OpSetAvatar }
func (o *SetAvatar) Write(w *codec.Writer) { w.WriteString(o.Avatar) }
func (o *SetAvatar) Read(r *codec.Reader) (err error) {
	o.Avatar, err = r.ReadString()
	return err
}

// SetHeadlessAvatar is the host overriding the avatar shown for a player.
type SetHeadlessAvatar struct {
	PlayerID int
	Avatar   string
}

func (*SetHeadlessAvatar) Type() OperationType { return OpSetHeadlessAvatar }

func (o *SetHeadlessAvatar) Write(w *codec.Writer) {
	w.WriteVarUint(uint32(o.PlayerID))
	w.WriteString(o.Avatar)
}

func (o *SetHeadlessAvatar) Read(r *codec.Reader) (err error) {
	if o.PlayerID, err = readVarUint(r); err != nil {
		return err
	}
	o.Avatar, err = r.ReadString()
	return err
}

type SendChat struct {
	Text string
}

func (*SendChat) Type() OperationType      { return OpSendChat }
func (o *SendChat) Write(w *codec.Writer) { w.WriteString(o.Text) }
func (o *SendChat) Read(r *codec.Reader) (err error) {
	o.Text, err = r.ReadString()
	return err
}

type SendChatIndicator struct {
	Active bool
}

func (*SendChatIndicator) Type() OperationType      { return OpSendChatIndicator }
func (o *SendChatIndicator) Write(w *codec.Writer) { w.WriteBool(o.Active) }
func (o *SendChatIndicator) Read(r *codec.Reader) (err error) {
	o.Active, err = r.ReadBool()
	return err
}

// AnnouncementTargetAll addresses an announcement to every player.
const AnnouncementTargetAll = -1

type SendAnnouncement struct {
	TargetID int
	Text     string
	Color    physics.Color
	Style    uint8
	Sound    uint8
}

func (*SendAnnouncement) Type() OperationType { return OpSendAnnouncement }

func (o *SendAnnouncement) Write(w *codec.Writer) {
	w.WriteVarInt(int32(o.TargetID))
	w.WriteString(o.Text)
	w.WriteInt32(int32(o.Color))
	w.WriteUint8(o.Style)
	w.WriteUint8(o.Sound)
}

func (o *SendAnnouncement) Read(r *codec.Reader) (err error) {
	if o.TargetID, err = readVarInt(r); err != nil {
		return err
	}
	if o.Text, err = r.ReadString(); err != nil {
		return err
	}
	color, err := r.ReadInt32()
	if err != nil {
		return err
	}
	o.Color = physics.Color(color)
	if o.Style, err = r.ReadUint8(); err != nil {
		return err
	}
	o.Sound, err = r.ReadUint8()
	return err
}

type SendInput struct {
	Input player.Input
}

func (*SendInput) Type() OperationType      { return OpSendInput }
func (o *SendInput) Write(w *codec.Writer) { w.WriteUint8(uint8(o.Input)) }
func (o *SendInput) Read(r *codec.Reader) error {
	v, err := r.ReadUint8()
	o.Input = player.Input(v).Sanitize()
	return err
}

type SetStadium struct {
	Stadium *stadium.Stadium
}

func (*SetStadium) Type() OperationType      { return OpSetStadium }
func (o *SetStadium) Write(w *codec.Writer) { o.Stadium.Write(w) }
func (o *SetStadium) Read(r *codec.Reader) (err error) {
	o.Stadium, err = stadium.Read(r)
	return err
}

type StartGame struct{}

func (*StartGame) Type() OperationType      { return OpStartGame }
func (*StartGame) Write(*codec.Writer)      {}
func (*StartGame) Read(*codec.Reader) error { return nil }

type StopGame struct{}

func (*StopGame) Type() OperationType      { return OpStopGame }
func (*StopGame) Write(*codec.Writer)      {}
func (*StopGame) Read(*codec.Reader) error { return nil }

type PauseResumeGame struct {
	Paused bool
}

func (*PauseResumeGame) Type() OperationType      { return OpPauseResumeGame }
func (o *PauseResumeGame) Write(w *codec.Writer) { w.WriteBool(o.Paused) }
func (o *PauseResumeGame) Read(r *codec.Reader) (err error) {
	o.Paused, err = r.ReadBool()
	return err
}

type SetScoreLimit struct {
	Limit int
}

func (*SetScoreLimit) Type() OperationType      { return OpSetScoreLimit }
func (o *SetScoreLimit) Write(w *codec.Writer) { w.WriteVarUint(uint32(o.Limit)) }
func (o *SetScoreLimit) Read(r *codec.Reader) (err error) {
	o.Limit, err = readVarUint(r)
	return err
}

// SetTimeLimit carries the limit in minutes.
type SetTimeLimit struct {
	Limit int
}

func (*SetTimeLimit) Type() OperationType      { return OpSetTimeLimit }
func (o *SetTimeLimit) Write(w *codec.Writer) { w.WriteVarUint(uint32(o.Limit)) }
func (o *SetTimeLimit) Read(r *codec.Reader) (err error) {
	o.Limit, err = readVarUint(r)
	return err
}

type AutoTeams struct{}

func (*AutoTeams) Type() OperationType      { return OpAutoTeams }
func (*AutoTeams) Write(*codec.Writer)      {}
func (*AutoTeams) Read(*codec.Reader) error { return nil }

type SetTeamsLock struct {
	Locked bool
}

func (*SetTeamsLock) Type() OperationType      { return OpSetTeamsLock }
func (o *SetTeamsLock) Write(w *codec.Writer) { w.WriteBool(o.Locked) }
func (o *SetTeamsLock) Read(r *codec.Reader) (err error) {
	o.Locked, err = r.ReadBool()
	return err
}

type SetPlayerTeam struct {
	PlayerID int
	Team     team.ID
}

func (*SetPlayerTeam) Type() OperationType { return OpSetPlayerTeam }

func (o *SetPlayerTeam) Write(w *codec.Writer) {
	w.WriteVarUint(uint32(o.PlayerID))
	w.WriteUint8(uint8(o.Team))
}

func (o *SetPlayerTeam) Read(r *codec.Reader) (err error) {
	if o.PlayerID, err = readVarUint(r); err != nil {
		return err
	}
	t, err := r.ReadUint8()
	if err != nil {
		return err
	}
	o.Team = team.ID(t)
	_, err = team.ByID(o.Team)
	return err
}

type SetKickRateLimit struct {
	Min   int
	Rate  int
	Burst int
}

func (*SetKickRateLimit) Type() OperationType { return OpSetKickRateLimit }

func (o *SetKickRateLimit) Write(w *codec.Writer) {
	w.WriteVarUint(uint32(o.Min))
	w.WriteVarUint(uint32(o.Rate))
	w.WriteVarUint(uint32(o.Burst))
}

func (o *SetKickRateLimit) Read(r *codec.Reader) (err error) {
	for _, dst := range []*int{&o.Min, &o.Rate, &o.Burst} {
		if *dst, err = readVarUint(r); err != nil {
			return err
		}
	}
	return nil
}

type SetTeamColors struct {
	Team   team.ID
	Colors team.Colors
}

func (*SetTeamColors) Type() OperationType { return OpSetTeamColors }

func (o *SetTeamColors) Write(w *codec.Writer) {
	w.WriteUint8(uint8(o.Team))
	o.Colors.Write(w)
}

func (o *SetTeamColors) Read(r *codec.Reader) error {
	t, err := r.ReadUint8()
	if err != nil {
		return err
	}
	o.Team = team.ID(t)
	return o.Colors.Read(r)
}

type SetPlayerAdmin struct {
	PlayerID int
	Admin    bool
}

func (*SetPlayerAdmin) Type() OperationType { return OpSetPlayerAdmin }

func (o *SetPlayerAdmin) Write(w *codec.Writer) {
	w.WriteVarUint(uint32(o.PlayerID))
	w.WriteBool(o.Admin)
}

func (o *SetPlayerAdmin) Read(r *codec.Reader) (err error) {
	if o.PlayerID, err = readVarUint(r); err != nil {
		return err
	}
	o.Admin, err = r.ReadBool()
	return err
}

// KickBanPlayer removes a player. A nil Reason is a plain leave, which is
// how the host reports a dropped connection.
type KickBanPlayer struct {
	PlayerID int
	Reason   *string
	Ban      bool
}

func (*KickBanPlayer) Type() OperationType { return OpKickBanPlayer }

func (o *KickBanPlayer) Write(w *codec.Writer) {
	w.WriteVarUint(uint32(o.PlayerID))
	w.WriteNullableString(o.Reason)
	w.WriteBool(o.Ban)
}

func (o *KickBanPlayer) Read(r *codec.Reader) (err error) {
	if o.PlayerID, err = readVarUint(r); err != nil {
		return err
	}
	if o.Reason, err = r.ReadNullableString(); err != nil {
		return err
	}
	o.Ban, err = r.ReadBool()
	return err
}

type SetPlayerSync struct {
	Sync bool
}

func (*SetPlayerSync) Type() OperationType      { return OpSetPlayerSync }
func (o *SetPlayerSync) Write(w *codec.Writer) { w.WriteBool(o.Sync) }
func (o *SetPlayerSync) Read(r *codec.Reader) (err error) {
	o.Sync, err = r.ReadBool()
	return err
}

// Ping carries one ping per player, in player list order.
type Ping struct {
	Pings []int
}

func (*Ping) Type() OperationType { return OpPing }

func (o *Ping) Write(w *codec.Writer) {
	w.WriteVarUint(uint32(len(o.Pings)))
	for _, p := range o.Pings {
		w.WriteVarUint(uint32(p))
	}
}

func (o *Ping) Read(r *codec.Reader) error {
	n, err := readVarUint(r)
	if err != nil {
		return err
	}
	if n > r.Remaining() {
		return errTooMany()
	}
	o.Pings = make([]int, n)
	for i := range o.Pings {
		if o.Pings[i], err = readVarUint(r); err != nil {
			return err
		}
	}
	return nil
}

// Disc property bits, in wire order.
const (
	DiscX uint16 = 1 << iota
	DiscY
	DiscXSpeed
	DiscYSpeed
	DiscXGravity
	DiscYGravity
	DiscRadius
	DiscBCoef
	DiscInvMass
	DiscDamping
	DiscColor
	DiscCMask
	DiscCGroup

	discFloatCount = 10
	discAllFlags   = DiscCGroup<<1 - 1
)

// SetDiscProperties edits selected fields of one disc. ID is a disc index,
// or a player id when IsPlayer is set. Only fields whose bit is in Flags
// are sent and applied.
type SetDiscProperties struct {
	ID       int
	IsPlayer bool
	Flags    uint16
	Values   [discFloatCount]float64
	Color    physics.Color
	CMask    physics.CollisionFlags
	CGroup   physics.CollisionFlags
}

func (*SetDiscProperties) Type() OperationType { return OpSetDiscProperties }

// Set records a float property and marks it present.
func (o *SetDiscProperties) Set(flag uint16, v float64) {
	for i := 0; i < discFloatCount; i++ {
		if flag == 1<<i {
			o.Values[i] = v
			o.Flags |= flag
			return
		}
	}
}

func (o *SetDiscProperties) Has(flag uint16) bool {
	return o.Flags&flag != 0
}

func (o *SetDiscProperties) Write(w *codec.Writer) {
	w.WriteVarUint(uint32(o.ID))
	w.WriteBool(o.IsPlayer)
	w.WriteUint16(o.Flags)
	for i := 0; i < discFloatCount; i++ {
		if o.Flags&(1<<i) != 0 {
			w.WriteFloat64(o.Values[i])
		}
	}
	if o.Has(DiscColor) {
		w.WriteInt32(int32(o.Color))
	}
	if o.Has(DiscCMask) {
		w.WriteFlags(uint32(o.CMask))
	}
	if o.Has(DiscCGroup) {
		w.WriteFlags(uint32(o.CGroup))
	}
}

func (o *SetDiscProperties) Read(r *codec.Reader) (err error) {
	if o.ID, err = readVarUint(r); err != nil {
		return err
	}
	if o.IsPlayer, err = r.ReadBool(); err != nil {
		return err
	}
	if o.Flags, err = r.ReadUint16(); err != nil {
		return err
	}
	o.Flags &= discAllFlags
	for i := 0; i < discFloatCount; i++ {
		if o.Flags&(1<<i) == 0 {
			continue
		}
		if o.Values[i], err = r.ReadFloat64(); err != nil {
			return err
		}
	}
	if o.Has(DiscColor) {
		c, err := r.ReadInt32()
		if err != nil {
			return err
		}
		o.Color = physics.Color(c)
	}
	if o.Has(DiscCMask) {
		v, err := r.ReadFlags()
		if err != nil {
			return err
		}
		o.CMask = physics.CollisionFlags(v)
	}
	if o.Has(DiscCGroup) {
		v, err := r.ReadFlags()
		if err != nil {
			return err
		}
		o.CGroup = physics.CollisionFlags(v)
	}
	return nil
}

// JoinRoom is sent by the host when a connection finished its handshake.
type JoinRoom struct {
	PlayerID int
	Name     string
	Flag     string
	Avatar   string
	Conn     string
	Auth     string
}

func (*JoinRoom) Type() OperationType { return OpJoinRoom }

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (o *JoinRoom) Write(w *codec.Writer) {
	w.WriteVarUint(uint32(o.PlayerID))
	w.WriteString(o.Name)
	w.WriteString(o.Flag)
	w.WriteString(o.Avatar)
	w.WriteNullableString(nullable(o.Conn))
	w.WriteNullableString(nullable(o.Auth))
}

func (o *JoinRoom) Read(r *codec.Reader) (err error) {
	if o.PlayerID, err = readVarUint(r); err != nil {
		return err
	}
	for _, dst := range []*string{&o.Name, &o.Flag, &o.Avatar} {
		if *dst, err = r.ReadString(); err != nil {
			return err
		}
	}
	for _, dst := range []*string{&o.Conn, &o.Auth} {
		s, err := r.ReadNullableString()
		if err != nil {
			return err
		}
		if s != nil {
			*dst = *s
		}
	}
	return nil
}

type ReorderPlayers struct {
	PlayerIDs []int
	MoveToTop bool
}

func (*ReorderPlayers) Type() OperationType { return OpReorderPlayers }

func (o *ReorderPlayers) Write(w *codec.Writer) {
	w.WriteBool(o.MoveToTop)
	w.WriteVarUint(uint32(len(o.PlayerIDs)))
	for _, id := range o.PlayerIDs {
		w.WriteVarUint(uint32(id))
	}
}

func (o *ReorderPlayers) Read(r *codec.Reader) (err error) {
	if o.MoveToTop, err = r.ReadBool(); err != nil {
		return err
	}
	n, err := readVarUint(r)
	if err != nil {
		return err
	}
	if n > r.Remaining() {
		return errTooMany()
	}
	o.PlayerIDs = make([]int, n)
	for i := range o.PlayerIDs {
		if o.PlayerIDs[i], err = readVarUint(r); err != nil {
			return err
		}
	}
	return nil
}

// CustomEvent is an application event relayed through the room. Data is
// opaque to the room, by convention JSON.
type CustomEvent struct {
	EventType uint32
	Data      []byte
}

func (*CustomEvent) Type() OperationType { return OpCustomEvent }

func (o *CustomEvent) Write(w *codec.Writer) {
	w.WriteUint32(o.EventType)
	w.WriteBlob(o.Data)
}

func (o *CustomEvent) Read(r *codec.Reader) (err error) {
	if o.EventType, err = r.ReadUint32(); err != nil {
		return err
	}
	o.Data, err = r.ReadBlob()
	return err
}
