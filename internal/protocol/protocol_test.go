package protocol

import (
	"bytes"
	"testing"

	"github.com/siohaza/haxgo/internal/codec"
	"github.com/siohaza/haxgo/internal/errcode"
	"github.com/siohaza/haxgo/internal/player"
	"github.com/siohaza/haxgo/internal/stadium"
)

func encodeOp(op Operation) []byte {
	w := codec.NewWriter(32)
	WriteOperation(w, op)
	return w.Bytes()
}

func TestEveryTypeHasAnOperation(t *testing.T) {
	for i := 0; i < opCount; i++ {
		op, err := NewOperation(OperationType(i))
		if err != nil {
			t.Fatalf("type %d: %v", i, err)
		}
		if op.Type() != OperationType(i) {
			t.Fatalf("type %d built %s", i, op.Type())
		}
	}
	if _, err := NewOperation(opCount); err == nil {
		t.Fatalf("expected an error past the last type")
	}
	if OpCustomEvent.String() != "CustomEvent" || OperationType(99).String() != "OperationType(99)" {
		t.Fatalf("unexpected names")
	}
}

func TestRecordRoundTrip(t *testing.T) {
	reason := "spam"
	st, err := stadium.Default(4)
	if err != nil {
		t.Fatalf("stadium: %v", err)
	}
	ops := []Operation{
		&SendChat{Text: "gg ğüş"},
		&SendInput{Input: player.InputKick | player.InputUp},
		&KickBanPlayer{PlayerID: 3, Reason: &reason, Ban: true},
		&KickBanPlayer{PlayerID: 4},
		&Ping{Pings: []int{0, 35, 120}},
		&ReorderPlayers{PlayerIDs: []int{2, 1}, MoveToTop: true},
		&SetStadium{Stadium: st},
		&JoinRoom{PlayerID: 7, Name: "bob", Flag: "tr", Conn: "7F000001"},
		&CustomEvent{EventType: 12, Data: []byte(`{"a":1}`)},
	}
	for _, op := range ops {
		rec := Record{Frame: 9000, SenderID: 2, Op: op}
		w := codec.NewWriter(16)
		rec.Write(w)
		data := w.Bytes()

		back, err := ReadRecord(codec.NewReader(data))
		if err != nil {
			t.Fatalf("%s: %v", op.Type(), err)
		}
		if back.Frame != 9000 || back.SenderID != 2 || back.Op.Type() != op.Type() {
			t.Fatalf("%s: header changed: %+v", op.Type(), back)
		}
		if !bytes.Equal(encodeOp(back.Op), encodeOp(op)) {
			t.Fatalf("%s: payload changed", op.Type())
		}
	}
}

func TestDiscPropertiesSendsOnlySetFields(t *testing.T) {
	op := &SetDiscProperties{ID: 0}
	op.Set(DiscX, 12.5)
	op.Set(DiscDamping, 0.9)
	op.Flags |= DiscCGroup
	op.CGroup = 3

	data := encodeOp(op)
	// type, id, isPlayer, flags, two floats, cGroup
	if len(data) != 1+1+1+2+16+4 {
		t.Fatalf("unexpected size %d", len(data))
	}
	back, err := ReadOperation(codec.NewReader(data))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	got := back.(*SetDiscProperties)
	if !got.Has(DiscX) || got.Has(DiscY) || got.Values[0] != 12.5 || got.Values[9] != 0.9 || got.CGroup != 3 {
		t.Fatalf("unexpected properties %+v", got)
	}
}

func TestTruncatedOperation(t *testing.T) {
	data := encodeOp(&SetHeadlessAvatar{PlayerID: 1, Avatar: "xy"})
	_, err := ReadOperation(codec.NewReader(data[:len(data)-1]))
	if !errcode.Is(err, errcode.ReadTooMuchError) {
		t.Fatalf("expected ReadTooMuchError, got %v", err)
	}
	if _, err := ReadOperation(codec.NewReader([]byte{200})); err == nil {
		t.Fatalf("expected an unknown type error")
	}
}

func TestMessages(t *testing.T) {
	pw := "secret"
	msgs := []*Message{
		{Kind: MessageJoinRequest, Join: &JoinRequest{Version: Version, Name: "al", Password: &pw}},
		{Kind: MessageJoinAccepted, Accepted: &JoinAccepted{PlayerID: 3, Frame: 77, State: []byte{1, 2, 3}}},
		{Kind: MessageJoinRejected, Rejected: &JoinRejected{Code: errcode.WrongPassword}},
		{Kind: MessageOperation, Op: &SetScoreLimit{Limit: 5}},
		{Kind: MessageRecord, Record: &Record{Frame: 1, SenderID: 0, Op: &StartGame{}}},
		{Kind: MessageDisconnect, Disconnect: errcode.KickedNow},
		{Kind: MessageHeartbeat, Heartbeat: &Heartbeat{Frame: 600}},
	}
	for _, m := range msgs {
		data := EncodeMessage(m)
		back, err := DecodeMessage(data)
		if err != nil {
			t.Fatalf("%s: %v", m.Kind, err)
		}
		if !bytes.Equal(EncodeMessage(back), data) {
			t.Fatalf("%s: round trip changed the message", m.Kind)
		}
	}

	back, _ := DecodeMessage(EncodeMessage(msgs[0]))
	if back.Join.Password == nil || *back.Join.Password != "secret" {
		t.Fatalf("password lost")
	}
	if _, err := DecodeMessage([]byte{0}); err == nil {
		t.Fatalf("expected an unknown kind error")
	}
}
