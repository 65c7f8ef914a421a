package codec

import (
	"encoding/binary"
	"math"

	"github.com/siohaza/haxgo/internal/errcode"
)

const defaultCapacity = 16

// Writer encodes the wire format into a growable buffer. When a write does
// not fit, capacity doubles, or grows to exactly what is needed if doubling
// is not enough.
type Writer struct {
	buf   []byte
	order binary.ByteOrder
}

func NewWriter(capacity int) *Writer {
	if capacity < 1 {
		capacity = defaultCapacity
	}
	return &Writer{buf: make([]byte, 0, capacity), order: binary.BigEndian}
}

func NewLittleEndianWriter(capacity int) *Writer {
	w := NewWriter(capacity)
	w.order = binary.LittleEndian
	return w
}

func (w *Writer) Len() int {
	return len(w.buf)
}

func (w *Writer) Cap() int {
	return cap(w.buf)
}

// Bytes returns a copy of everything written so far.
func (w *Writer) Bytes() []byte {
	out := make([]byte, len(w.buf))
	copy(out, w.buf)
	return out
}

func (w *Writer) Reset() {
	w.buf = w.buf[:0]
}

// Resize sets the capacity. Written bytes beyond the new capacity are dropped.
func (w *Writer) Resize(capacity int) error {
	if capacity < 1 {
		return errcode.New(errcode.BufferResizeParameterTooSmallError)
	}
	n := min(len(w.buf), capacity)
	buf := make([]byte, n, capacity)
	copy(buf, w.buf)
	w.buf = buf
	return nil
}

func (w *Writer) grow(n int) []byte {
	needed := len(w.buf) + n
	if needed > cap(w.buf) {
		newCap := max(cap(w.buf)*2, needed)
		buf := make([]byte, len(w.buf), newCap)
		copy(buf, w.buf)
		w.buf = buf
	}
	start := len(w.buf)
	w.buf = w.buf[:needed]
	return w.buf[start:needed]
}

func (w *Writer) WriteUint8(v uint8) {
	w.grow(1)[0] = v
}

func (w *Writer) WriteInt8(v int8) {
	w.WriteUint8(uint8(v))
}

func (w *Writer) WriteBool(v bool) {
	if v {
		w.WriteUint8(1)
	} else {
		w.WriteUint8(0)
	}
}

func (w *Writer) WriteUint16(v uint16) {
	w.order.PutUint16(w.grow(2), v)
}

func (w *Writer) WriteInt16(v int16) {
	w.WriteUint16(uint16(v))
}

func (w *Writer) WriteUint32(v uint32) {
	w.order.PutUint32(w.grow(4), v)
}

func (w *Writer) WriteInt32(v int32) {
	w.WriteUint32(uint32(v))
}

func (w *Writer) WriteUint64(v uint64) {
	w.order.PutUint64(w.grow(8), v)
}

func (w *Writer) WriteFloat32(v float32) {
	w.WriteUint32(math.Float32bits(v))
}

func (w *Writer) WriteFloat64(v float64) {
	w.WriteUint64(math.Float64bits(v))
}

func (w *Writer) WriteVarUint(v uint32) {
	for v >= 0x80 {
		w.WriteUint8(byte(v) | 0x80)
		v >>= 7
	}
	w.WriteUint8(byte(v))
}

func (w *Writer) WriteVarInt(v int32) {
	w.WriteVarUint(uint32(v<<1) ^ uint32(v>>31))
}

func (w *Writer) WriteBytes(b []byte) {
	copy(w.grow(len(b)), b)
}

func (w *Writer) WriteBlob(b []byte) {
	w.WriteVarUint(uint32(len(b)))
	w.WriteBytes(b)
}

// WriteBools packs flags eight per byte, lowest bit first.
func (w *Writer) WriteBools(vals ...bool) {
	out := w.grow((len(vals) + 7) / 8)
	for i := range out {
		out[i] = 0
	}
	for i, v := range vals {
		if v {
			out[i/8] |= 1 << (i % 8)
		}
	}
}

func (w *Writer) WriteFlags(v uint32) {
	w.WriteUint32(v)
}

// WriteCodePoint encodes a single code point in the six-byte UTF-8 layout.
func (w *Writer) WriteCodePoint(cp int64) error {
	var tmp [6]byte
	enc, err := AppendUTF8(tmp[:0], cp)
	if err != nil {
		return err
	}
	w.WriteBytes(enc)
	return nil
}

// StringLength is the encoded byte length of s.
func StringLength(s string) int {
	n := 0
	for _, r := range s {
		l, _ := UTF8Length(int64(r))
		n += l
	}
	return n
}

// WriteStringBytes writes s without a length prefix.
func (w *Writer) WriteStringBytes(s string) {
	for _, r := range s {
		// Runes from a range loop are always within the encodable range.
		_ = w.WriteCodePoint(int64(r))
	}
}

func (w *Writer) WriteString(s string) {
	w.WriteVarUint(uint32(StringLength(s)))
	w.WriteStringBytes(s)
}

// WriteNullableString stores the length as n+1 so that 0 can mean null.
func (w *Writer) WriteNullableString(s *string) {
	if s == nil {
		w.WriteVarUint(0)
		return
	}
	w.WriteVarUint(uint32(StringLength(*s)) + 1)
	w.WriteStringBytes(*s)
}
