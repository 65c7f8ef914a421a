package protocol

import (
	"fmt"

	"github.com/siohaza/haxgo/internal/codec"
	"github.com/siohaza/haxgo/internal/errcode"
)

// Version is bumped whenever the wire format changes. Peers with another
// version are refused during the handshake.
const Version = 9

type MessageKind uint8

const (
	MessageJoinRequest  MessageKind = 1
	MessageJoinAccepted MessageKind = 2
	MessageJoinRejected MessageKind = 3
	MessageOperation    MessageKind = 4
	MessageRecord       MessageKind = 5
	MessageDisconnect   MessageKind = 6
	MessageHeartbeat    MessageKind = 7
)

func (k MessageKind) String() string {
	switch k {
	case MessageJoinRequest:
		return "join_request"
	case MessageJoinAccepted:
		return "join_accepted"
	case MessageJoinRejected:
		return "join_rejected"
	case MessageOperation:
		return "operation"
	case MessageRecord:
		return "record"
	case MessageDisconnect:
		return "disconnect"
	case MessageHeartbeat:
		return "heartbeat"
	}
	return fmt.Sprintf("MessageKind(%d)", uint8(k))
}

func errTooMany() error {
	return errcode.New(errcode.ReadTooMuchError)
}

// Record is an operation as the host ordered it: the frame it applies on,
// and the player that sent it.
type Record struct {
	Frame    uint32
	SenderID int
	Op       Operation
}

func (rec *Record) Write(w *codec.Writer) {
	w.WriteVarUint(rec.Frame)
	w.WriteVarUint(uint32(rec.SenderID))
	WriteOperation(w, rec.Op)
}

func ReadRecord(r *codec.Reader) (Record, error) {
	var rec Record
	var err error
	if rec.Frame, err = r.ReadVarUint(); err != nil {
		return rec, err
	}
	if rec.SenderID, err = readVarUint(r); err != nil {
		return rec, err
	}
	rec.Op, err = ReadOperation(r)
	return rec, err
}

// JoinRequest opens a connection. Conn is filled in by the host from the
// transport address, never trusted from the client.
type JoinRequest struct {
	Version  uint16
	Name     string
	Flag     string
	Avatar   string
	Password *string
	Auth     string
}

func (m *JoinRequest) Write(w *codec.Writer) {
	w.WriteUint16(m.Version)
	w.WriteString(m.Name)
	w.WriteString(m.Flag)
	w.WriteString(m.Avatar)
	w.WriteNullableString(m.Password)
	w.WriteString(m.Auth)
}

func (m *JoinRequest) Read(r *codec.Reader) (err error) {
	if m.Version, err = r.ReadUint16(); err != nil {
		return err
	}
	for _, dst := range []*string{&m.Name, &m.Flag, &m.Avatar} {
		if *dst, err = r.ReadString(); err != nil {
			return err
		}
	}
	if m.Password, err = r.ReadNullableString(); err != nil {
		return err
	}
	m.Auth, err = r.ReadString()
	return err
}

// JoinAccepted hands a new client its player id and a full room snapshot
// taken at Frame.
type JoinAccepted struct {
	PlayerID int
	Frame    uint32
	State    []byte
}

func (m *JoinAccepted) Write(w *codec.Writer) {
	w.WriteVarUint(uint32(m.PlayerID))
	w.WriteVarUint(m.Frame)
	w.WriteBlob(m.State)
}

func (m *JoinAccepted) Read(r *codec.Reader) (err error) {
	if m.PlayerID, err = readVarUint(r); err != nil {
		return err
	}
	if m.Frame, err = r.ReadVarUint(); err != nil {
		return err
	}
	m.State, err = r.ReadBlob()
	return err
}

// JoinRejected and Disconnect carry an error code.
type JoinRejected struct {
	Code errcode.Code
}

func (m *JoinRejected) Write(w *codec.Writer) {
	w.WriteVarUint(uint32(m.Code))
}

func (m *JoinRejected) Read(r *codec.Reader) error {
	v, err := r.ReadVarUint()
	if err != nil {
		return err
	}
	m.Code = errcode.Code(v)
	if !m.Code.Valid() {
		return fmt.Errorf("invalid error code %d", v)
	}
	return nil
}

// Heartbeat tells a client the host frame even when nothing happens, so
// that it can keep its clock in step.
type Heartbeat struct {
	Frame uint32
}

func (m *Heartbeat) Write(w *codec.Writer) {
	w.WriteVarUint(m.Frame)
}

func (m *Heartbeat) Read(r *codec.Reader) (err error) {
	m.Frame, err = r.ReadVarUint()
	return err
}

// Message is one transport packet.
type Message struct {
	Kind MessageKind

	Join       *JoinRequest
	Accepted   *JoinAccepted
	Rejected   *JoinRejected
	Op         Operation
	Record     *Record
	Heartbeat  *Heartbeat
	Disconnect errcode.Code
}

func EncodeMessage(m *Message) []byte {
	w := codec.NewWriter(64)
	w.WriteUint8(uint8(m.Kind))
	switch m.Kind {
	case MessageJoinRequest:
		m.Join.Write(w)
	case MessageJoinAccepted:
		m.Accepted.Write(w)
	case MessageJoinRejected:
		m.Rejected.Write(w)
	case MessageOperation:
		WriteOperation(w, m.Op)
	case MessageRecord:
		m.Record.Write(w)
	case MessageDisconnect:
		w.WriteVarUint(uint32(m.Disconnect))
	case MessageHeartbeat:
		m.Heartbeat.Write(w)
	}
	return w.Bytes()
}

func DecodeMessage(data []byte) (*Message, error) {
	r := codec.NewReader(data)
	kind, err := r.ReadUint8()
	if err != nil {
		return nil, err
	}
	m := &Message{Kind: MessageKind(kind)}
	switch m.Kind {
	case MessageJoinRequest:
		m.Join = &JoinRequest{}
		err = m.Join.Read(r)
	case MessageJoinAccepted:
		m.Accepted = &JoinAccepted{}
		err = m.Accepted.Read(r)
	case MessageJoinRejected:
		m.Rejected = &JoinRejected{}
		err = m.Rejected.Read(r)
	case MessageOperation:
		m.Op, err = ReadOperation(r)
	case MessageRecord:
		var rec Record
		rec, err = ReadRecord(r)
		m.Record = &rec
	case MessageDisconnect:
		var v uint32
		v, err = r.ReadVarUint()
		m.Disconnect = errcode.Code(v)
	case MessageHeartbeat:
		m.Heartbeat = &Heartbeat{}
		err = m.Heartbeat.Read(r)
	default:
		return nil, fmt.Errorf("unknown message kind %d", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", m.Kind, err)
	}
	return m, nil
}
