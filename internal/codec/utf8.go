package codec

import (
	"github.com/siohaza/haxgo/internal/errcode"
)

// The wire keeps the original six-byte UTF-8 layout, so code points up to
// 0x7FFFFFFF are representable. unicode/utf8 stops at 0x10FFFF.

const maxCodePoint = 0x80000000

func UTF8Length(cp int64) (int, error) {
	switch {
	case cp < 0:
		return 0, errcode.New(errcode.CalculateLengthOfUTF8CharNegativeError, cp)
	case cp < 0x80:
		return 1, nil
	case cp < 0x800:
		return 2, nil
	case cp < 0x10000:
		return 3, nil
	case cp < 0x200000:
		return 4, nil
	case cp < 0x4000000:
		return 5, nil
	case cp < maxCodePoint:
		return 6, nil
	}
	return 0, errcode.New(errcode.CalculateLengthOfUTF8CharTooLargeError, cp)
}

// AppendUTF8 encodes one code point onto dst.
func AppendUTF8(dst []byte, cp int64) ([]byte, error) {
	if cp < 0 {
		return dst, errcode.New(errcode.EncodeUTF8CharNegativeError, cp)
	}
	if cp >= maxCodePoint {
		return dst, errcode.New(errcode.EncodeUTF8CharTooLargeError, cp)
	}

	n, _ := UTF8Length(cp)
	if n == 1 {
		return append(dst, byte(cp)), nil
	}

	lead := [...]byte{0, 0, 0xC0, 0xE0, 0xF0, 0xF8, 0xFC}[n]
	out := make([]byte, n)
	for i := n - 1; i > 0; i-- {
		out[i] = 0x80 | byte(cp&0x3F)
		cp >>= 6
	}
	out[0] = lead | byte(cp)
	return append(dst, out...), nil
}

// decodeUTF8 reads the code point starting at data[i]. end bounds the
// declared string, declared is its byte length for error reporting.
func decodeUTF8(data []byte, i, end, declared int) (int64, int, error) {
	c := data[i]
	var n int
	var cp int64

	switch {
	case c&0x80 == 0:
		return int64(c), 1, nil
	case c&0xE0 == 0xC0:
		n, cp = 2, int64(c&0x1F)
	case c&0xF0 == 0xE0:
		n, cp = 3, int64(c&0x0F)
	case c&0xF8 == 0xF0:
		n, cp = 4, int64(c&0x07)
	case c&0xFC == 0xF8:
		n, cp = 5, int64(c&0x03)
	case c&0xFE == 0xFC:
		n, cp = 6, int64(c&0x01)
	default:
		return 0, 0, errcode.New(errcode.UTF8CharacterDecodeError, i, int(c))
	}

	if i+n > end {
		return 0, 0, errcode.New(errcode.ReadWrongStringLengthError, declared)
	}

	for k := 1; k < n; k++ {
		b := data[i+k]
		if b&0xC0 != 0x80 {
			return 0, 0, errcode.New(errcode.UTF8CharacterDecodeError, i, int(b))
		}
		cp = cp<<6 | int64(b&0x3F)
	}
	return cp, n, nil
}
