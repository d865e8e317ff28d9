package ast

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ([a] + SUM([b] INCLUDE [c]))
func walkTree() Node {
	return NewBinaryOp("+",
		NewField("a"),
		NewFuncCall("sum", []Node{NewField("b")}, WithLod(Include(NewField("c")))),
	)
}

func TestGet(t *testing.T) {
	root := walkTree()
	tests := []struct {
		idx  Index
		want string
		ok   bool
	}{
		{Root, "([a] + SUM([b] INCLUDE [c]))", true},
		{MakeIndex(0), "[a]", true},
		{MakeIndex(1, 0), "[b]", true},
		{MakeIndex(1, 1), "INCLUDE [c]", true},
		{MakeIndex(1, 1, 0), "[c]", true},
		{MakeIndex(2), "", false},
		{MakeIndex(0, 0), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.idx.String(), func(t *testing.T) {
			n, ok := Get(root, tt.idx)
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, Format(n))
			}
		})
	}
}

func TestWalkPreOrderWithParents(t *testing.T) {
	var visited []string
	var depths []int
	Walk(walkTree(), func(n Node, idx Index, parents []Node) bool {
		visited = append(visited, idx.String())
		depths = append(depths, len(parents))
		return true
	})
	assert.Equal(t, []string{"()", "0", "1", "1.0", "1.1", "1.1.0"}, visited)
	assert.Equal(t, []int{0, 1, 1, 2, 2, 3}, depths)
}

func TestWalkSkipsChildren(t *testing.T) {
	var visited []string
	Walk(walkTree(), func(n Node, idx Index, parents []Node) bool {
		visited = append(visited, idx.String())
		return n.Kind() != KindFuncCall
	})
	assert.Equal(t, []string{"()", "0", "1"}, visited)
}

func TestReplaceSharesUntouchedSubtrees(t *testing.T) {
	root := walkTree()
	out, err := Replace(root, MakeIndex(1, 1, 0), NewField("d"))
	require.NoError(t, err)
	assert.Equal(t, "([a] + SUM([b] INCLUDE [d]))", Format(out))
	assert.Equal(t, "([a] + SUM([b] INCLUDE [c]))", Format(root))

	before, _ := Get(root, MakeIndex(0))
	after, _ := Get(out, MakeIndex(0))
	assert.Same(t, before, after)
}

func TestReplaceRejectsBadShape(t *testing.T) {
	_, err := Replace(walkTree(), MakeIndex(1, 1), NewField("x"))
	require.Error(t, err)
	var ce *ConstructionError
	assert.True(t, errors.As(err, &ce))

	_, err = Replace(walkTree(), MakeIndex(5), NewField("x"))
	require.Error(t, err)
}

func TestTransformBottomUp(t *testing.T) {
	var order []string
	out, err := Transform(walkTree(), func(n Node, idx Index, parents []Node) (Node, error) {
		order = append(order, idx.String())
		if f, ok := n.(*Field); ok && f.Name() == "b" {
			return NewField("bb"), nil
		}
		return n, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1.0", "1.1.0", "1.1", "1", "()"}, order)
	assert.Equal(t, "([a] + SUM([bb] INCLUDE [c]))", Format(out))
}

func TestTransformPropagatesErrors(t *testing.T) {
	sentinel := errors.New("stop")
	_, err := Transform(walkTree(), func(n Node, idx Index, parents []Node) (Node, error) {
		if n.Kind() == KindLodSpecifier {
			return nil, sentinel
		}
		return n, nil
	})
	assert.ErrorIs(t, err, sentinel)
}

func TestWithChildrenKeepsMeta(t *testing.T) {
	meta := Meta{Pos: Pos{Filename: "q.cue", Line: 2, Column: 4}}
	n := At(NewBinaryOp("+", NewInt(1), NewInt(2)), meta)
	out := WithChildren(n, []Node{NewInt(3), NewInt(4)})
	assert.Equal(t, meta, out.Meta())
	assert.Equal(t, "(3 + 4)", Format(out))
	assert.Equal(t, "q.cue:2:4", out.Meta().Pos.String())
}
