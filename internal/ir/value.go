package ir

import (
	"slices"
	"unicode/utf16"
)

// Value is a sealed interface over the encodable value shapes.
// There is deliberately no float variant: decimals are encoded as strings.
type Value interface {
	irValue()
}

// Null is the JSON null.
type Null struct{}

func (Null) irValue() {}

// String is a string value.
type String string

func (String) irValue() {}

// Int is a 64-bit integer value.
type Int int64

func (Int) irValue() {}

// Bool is a boolean value.
type Bool bool

func (Bool) irValue() {}

// Array is an ordered list of values.
type Array []Value

func (Array) irValue() {}

// Object maps keys to values. Iterate with SortedKeys for determinism.
type Object map[string]Value

func (Object) irValue() {}

// Strings converts a string slice into an Array of String.
func Strings(ss ...string) Array {
	arr := make(Array, len(ss))
	for i, s := range ss {
		arr[i] = String(s)
	}
	return arr
}

// SortedKeys returns keys in RFC 8785 order (UTF-16 code units, not bytes).
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	for i := 0; i < min(len(a16), len(b16)); i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}
