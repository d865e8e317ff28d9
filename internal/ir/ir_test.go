package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    Value
		expected string
	}{
		{"string", String("hello"), `"hello"`},
		{"empty string", String(""), `""`},
		{"int", Int(42), "42"},
		{"negative int", Int(-100), "-100"},
		{"min int64", Int(-9223372036854775808), "-9223372036854775808"},
		{"bool", Bool(true), "true"},
		{"null", Null{}, "null"},
		{"empty array", Array{}, "[]"},
		{"empty object", Object{}, "{}"},
		{"array", Array{Int(1), String("a"), Null{}}, `[1,"a",null]`},
		{"no html escape", String("<a&b>"), `"<a&b>"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalCanonical(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(got))
		})
	}
}

func TestMarshalCanonicalSortedKeys(t *testing.T) {
	obj := Object{
		"zebra": Int(1),
		"alpha": Object{"b": Int(1), "a": Int(2)},
	}
	got, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"alpha":{"a":2,"b":1},"zebra":1}`, string(got))
}

func TestMarshalCanonicalUTF16Ordering(t *testing.T) {
	// U+10000 encodes as surrogate 0xD800, which sorts before U+E000.
	obj := Object{"\uE000": Int(1), "\U00010000": Int(2)}
	got, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U00010000\":2,\"\uE000\":1}", string(got))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	a, err := MarshalCanonical(String("e\u0301"))
	require.NoError(t, err)
	b, err := MarshalCanonical(String("\u00e9"))
	require.NoError(t, err)
	assert.Equal(t, string(b), string(a))
}

func TestMarshalCanonicalRejectsNil(t *testing.T) {
	_, err := MarshalCanonical(Array{nil})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "array[0]")
}

func TestHashDomainSeparation(t *testing.T) {
	v := Object{"name": String("sum")}
	a := MustHash(DomainNode, v)
	b := MustHash(DomainQuery, v)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, MustHash(DomainNode, Object{"name": String("sum")}))
}

func TestStrings(t *testing.T) {
	assert.Equal(t, Array{String("a"), String("b")}, Strings("a", "b"))
	assert.Empty(t, Strings())
}
