package codec

import (
	"encoding/binary"
	"math"
	"unicode/utf8"

	"github.com/siohaza/haxgo/internal/errcode"
)

// Reader decodes the wire format from a fixed byte slice. Every read past the
// end fails with ReadTooMuchError and leaves the position unchanged.
type Reader struct {
	data  []byte
	pos   int
	order binary.ByteOrder
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data, order: binary.BigEndian}
}

func NewLittleEndianReader(data []byte) *Reader {
	return &Reader{data: data, order: binary.LittleEndian}
}

func (r *Reader) Pos() int {
	return r.pos
}

func (r *Reader) Len() int {
	return len(r.data)
}

func (r *Reader) Remaining() int {
	return len(r.data) - r.pos
}

func (r *Reader) take(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, errcode.New(errcode.ReadTooMuchError)
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *Reader) Skip(n int) error {
	_, err := r.take(n)
	return err
}

func (r *Reader) ReadUint8() (uint8, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadInt8() (int8, error) {
	v, err := r.ReadUint8()
	return int8(v), err
}

func (r *Reader) ReadBool() (bool, error) {
	v, err := r.ReadUint8()
	return v != 0, err
}

func (r *Reader) ReadUint16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return r.order.Uint16(b), nil
}

func (r *Reader) ReadInt16() (int16, error) {
	v, err := r.ReadUint16()
	return int16(v), err
}

func (r *Reader) ReadUint32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return r.order.Uint32(b), nil
}

func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

func (r *Reader) ReadUint64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return r.order.Uint64(b), nil
}

func (r *Reader) ReadFloat32() (float32, error) {
	v, err := r.ReadUint32()
	return math.Float32frombits(v), err
}

func (r *Reader) ReadFloat64() (float64, error) {
	v, err := r.ReadUint64()
	return math.Float64frombits(v), err
}

// ReadVarUint reads a compressed integer: seven bits per byte, low bits
// first, high bit set on every byte but the last.
func (r *Reader) ReadVarUint() (uint32, error) {
	start := r.pos
	var value uint32
	for shift := 0; shift < 35; shift += 7 {
		b, err := r.ReadUint8()
		if err != nil {
			r.pos = start
			return 0, err
		}
		value |= uint32(b&0x7F) << shift
		if b&0x80 == 0 {
			return value, nil
		}
	}
	r.pos = start
	return 0, errcode.New(errcode.ReadTooMuchError)
}

// ReadVarInt reads a zigzag encoded signed compressed integer.
func (r *Reader) ReadVarInt() (int32, error) {
	v, err := r.ReadVarUint()
	if err != nil {
		return 0, err
	}
	return int32(v>>1) ^ -int32(v&1), nil
}

func (r *Reader) ReadBytes(n int) ([]byte, error) {
	b, err := r.take(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}

// ReadBlob reads a compressed length followed by that many raw bytes.
func (r *Reader) ReadBlob() ([]byte, error) {
	start := r.pos
	n, err := r.ReadVarUint()
	if err != nil {
		return nil, err
	}
	b, err := r.ReadBytes(int(n))
	if err != nil {
		r.pos = start
	}
	return b, err
}

// ReadBools unpacks n flags stored eight per byte, lowest bit first.
func (r *Reader) ReadBools(n int) ([]bool, error) {
	b, err := r.take((n + 7) / 8)
	if err != nil {
		return nil, err
	}
	out := make([]bool, n)
	for i := range out {
		out[i] = b[i/8]&(1<<(i%8)) != 0
	}
	return out, nil
}

func (r *Reader) ReadFlags() (uint32, error) {
	return r.ReadUint32()
}

// ReadStringBytes decodes n bytes of UTF-8.
func (r *Reader) ReadStringBytes(n int) (string, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return "", errcode.New(errcode.ReadTooMuchError)
	}

	end := r.pos + n
	out := make([]byte, 0, n)
	i := r.pos
	for i < end {
		cp, size, err := decodeUTF8(r.data, i, end, n)
		if err != nil {
			return "", err
		}
		if cp > utf8.MaxRune {
			cp = utf8.RuneError
		}
		out = utf8.AppendRune(out, rune(cp))
		i += size
	}
	if i != end {
		return "", errcode.New(errcode.ReadWrongStringLengthError, n)
	}

	r.pos = end
	return string(out), nil
}

func (r *Reader) ReadString() (string, error) {
	start := r.pos
	n, err := r.ReadVarUint()
	if err != nil {
		return "", err
	}
	s, err := r.ReadStringBytes(int(n))
	if err != nil {
		r.pos = start
		return "", err
	}
	return s, nil
}

// ReadNullableString reads a length stored as n+1, where 0 means null.
func (r *Reader) ReadNullableString() (*string, error) {
	start := r.pos
	n, err := r.ReadVarUint()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	s, err := r.ReadStringBytes(int(n - 1))
	if err != nil {
		r.pos = start
		return nil, err
	}
	return &s, nil
}
