package ast

import (
	"strconv"
	"strings"
)

// Index addresses a node by the child offsets leading to it from the root.
// The empty Index addresses the root itself. Index values are immutable.
type Index struct {
	offsets []int // nil when empty
}

// Root is the empty index.
var Root = Index{}

// MakeIndex builds an index from child offsets.
func MakeIndex(offsets ...int) Index {
	if len(offsets) == 0 {
		return Index{}
	}
	return Index{offsets: append([]int(nil), offsets...)}
}

// Len returns the depth addressed by idx.
func (idx Index) Len() int { return len(idx.offsets) }

// IsRoot reports whether idx addresses the root.
func (idx Index) IsRoot() bool { return len(idx.offsets) == 0 }

// Offsets returns a copy of the child offsets.
func (idx Index) Offsets() []int { return append([]int(nil), idx.offsets...) }

// Concat returns idx followed by other. Concatenation is associative.
func (idx Index) Concat(other Index) Index {
	if len(idx.offsets)+len(other.offsets) == 0 {
		return Index{}
	}
	joined := make([]int, 0, len(idx.offsets)+len(other.offsets))
	joined = append(joined, idx.offsets...)
	joined = append(joined, other.offsets...)
	return Index{offsets: joined}
}

// Child returns the index of child offset i below idx.
func (idx Index) Child(i int) Index {
	return idx.Concat(MakeIndex(i))
}

// LSplit splits off the first offset. Panics on the root index.
func (idx Index) LSplit() (int, Index) {
	if idx.IsRoot() {
		panic(&ConstructionError{Kind: KindError, Message: "LSplit of root index"})
	}
	return idx.offsets[0], MakeIndex(idx.offsets[1:]...)
}

// RSplit splits off the last offset. Panics on the root index.
func (idx Index) RSplit() (Index, int) {
	if idx.IsRoot() {
		panic(&ConstructionError{Kind: KindError, Message: "RSplit of root index"})
	}
	last := len(idx.offsets) - 1
	return MakeIndex(idx.offsets[:last]...), idx.offsets[last]
}

// StartsWith reports whether prefix addresses idx or one of its ancestors.
func (idx Index) StartsWith(prefix Index) bool {
	if len(prefix.offsets) > len(idx.offsets) {
		return false
	}
	for i, o := range prefix.offsets {
		if idx.offsets[i] != o {
			return false
		}
	}
	return true
}

// Equal reports whether both indices address the same path.
func (idx Index) Equal(other Index) bool {
	return len(idx.offsets) == len(other.offsets) && idx.StartsWith(other)
}

// String renders the index as dot-separated offsets; the root renders as "()".
func (idx Index) String() string {
	if idx.IsRoot() {
		return "()"
	}
	parts := make([]string, len(idx.offsets))
	for i, o := range idx.offsets {
		parts[i] = strconv.Itoa(o)
	}
	return strings.Join(parts, ".")
}
