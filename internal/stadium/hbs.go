package stadium

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/titanous/json5"

	"github.com/siohaza/haxgo/internal/errcode"
)

// Stadium files are JSON5: JSON with comments, unquoted keys, single
// quotes, trailing commas, hex numbers and the Infinity/NaN literals.
// Decoded documents are wrapped in Value so that parse.go can walk them
// with typed accessors and report the section and index of a bad entry.

type valueKind int

const (
	valueNull valueKind = iota
	valueNumber
	valueString
	valueBool
	valueList
	valueDict
)

type Value struct {
	kind valueKind
	num  float64
	str  string
	bval bool
	list []Value
	dict map[string]Value
	keys []string
}

func (v Value) IsNull() bool {
	return v.kind == valueNull
}

func (v Value) asNumber() (float64, error) {
	if v.kind == valueNumber {
		return v.num, nil
	}
	return 0, fmt.Errorf("value is not a number")
}

func (v Value) asString() (string, error) {
	if v.kind == valueString {
		return v.str, nil
	}
	return "", fmt.Errorf("value is not a string")
}

func (v Value) asBool() (bool, error) {
	if v.kind == valueBool {
		return v.bval, nil
	}
	return false, fmt.Errorf("value is not a bool")
}

func (v Value) field(key string) (Value, bool) {
	if v.kind != valueDict {
		return Value{}, false
	}
	f, ok := v.dict[key]
	return f, ok
}

// withDefaults returns v with every key of base that v lacks.
func (v Value) withDefaults(base Value) Value {
	if v.kind != valueDict || base.kind != valueDict {
		return v
	}
	merged := Value{kind: valueDict, dict: make(map[string]Value, len(v.dict)+len(base.dict))}
	for _, k := range v.keys {
		merged.dict[k] = v.dict[k]
		merged.keys = append(merged.keys, k)
	}
	for _, k := range base.keys {
		if _, ok := merged.dict[k]; !ok {
			merged.dict[k] = base.dict[k]
			merged.keys = append(merged.keys, k)
		}
	}
	return merged
}


// parseDocument decodes a stadium document. Syntax errors carry the line of
// the offending character.
func parseDocument(data []byte) (Value, error) {
	var raw any
	if err := json5.Unmarshal(data, &raw); err != nil {
		return Value{}, syntaxError(data, err)
	}
	return toValue(raw), nil
}

func syntaxError(data []byte, err error) error {
	var offset int64
	var syntaxErr *json5.SyntaxError
	var typeErr *json5.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	default:
		return errcode.New(errcode.StadiumParseUnknownError)
	}
	return errcode.New(errcode.StadiumParseSyntaxError, lineAt(data, offset))
}

// lineAt is the 1-based line of the byte read last when offset bytes have
// been consumed.
func lineAt(data []byte, offset int64) int {
	end := int(offset) - 1
	if end > len(data) {
		end = len(data)
	}
	if end < 0 {
		end = 0
	}
	return bytes.Count(data[:end], []byte{'\n'}) + 1
}

func toValue(raw any) Value {
	switch v := raw.(type) {
	case float64:
		return Value{kind: valueNumber, num: v}
	case string:
		return Value{kind: valueString, str: v}
	case bool:
		return Value{kind: valueBool, bval: v}
	case []any:
		list := Value{kind: valueList, list: make([]Value, len(v))}
		for i, item := range v {
			list.list[i] = toValue(item)
		}
		return list
	case map[string]any:
		dict := Value{kind: valueDict, dict: make(map[string]Value, len(v)), keys: make([]string, 0, len(v))}
		for k, item := range v {
			dict.dict[k] = toValue(item)
			dict.keys = append(dict.keys, k)
		}
		sort.Strings(dict.keys)
		return dict
	}
	return Value{}
}
