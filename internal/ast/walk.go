package ast

import "fmt"

// Children returns the direct children of n in index order.
func Children(n Node) []Node {
	switch v := n.(type) {
	case *Literal, *Null, *Field, *ErrorNode:
		return nil
	case *FuncCall:
		children := make([]Node, 0, len(v.args)+1+len(v.within)+len(v.bfb))
		children = append(children, v.args...)
		if v.lod != nil {
			children = append(children, v.lod)
		}
		children = append(children, v.within...)
		for _, f := range v.bfb {
			children = append(children, f)
		}
		return children
	case *UnaryOp:
		return []Node{v.operand}
	case *BinaryOp:
		return []Node{v.left, v.right}
	case *TernaryOp:
		return []Node{v.first, v.second, v.third}
	case *LodSpecifier:
		return append([]Node(nil), v.dimensions...)
	case *QueryFork:
		return []Node{v.lod, v.joining, v.resultExpr}
	case *SelfCondition:
		return []Node{v.expr}
	case *JoiningCondition:
		children := make([]Node, len(v.conditions))
		for i, c := range v.conditions {
			children[i] = c
		}
		return children
	default:
		panic(fmt.Sprintf("ast: unhandled node type %T", n))
	}
}

// WithChildren returns a copy of n with its children replaced. The number
// and roles of children must match Children(n); the copy keeps n's Meta and
// is validated like a freshly constructed node.
func WithChildren(n Node, children []Node) Node {
	old := Children(n)
	if len(old) != len(children) {
		failf(n.Kind(), "expected %d children, got %d", len(old), len(children))
	}
	if len(children) == 0 {
		return n
	}
	var out Node
	switch v := n.(type) {
	case *FuncCall:
		rest := children
		args := rest[:len(v.args)]
		rest = rest[len(v.args):]
		var opts []FuncOption
		if v.lod != nil {
			lod, ok := rest[0].(*LodSpecifier)
			if !ok {
				failf(KindFuncCall, "LOD child of %s must be a LodSpecifier, got %s", v.name, rest[0].Kind())
			}
			opts = append(opts, WithLod(lod))
			rest = rest[1:]
		}
		if len(v.within) > 0 {
			opts = append(opts, WithWithin(rest[:len(v.within)]...))
			rest = rest[len(v.within):]
		}
		if len(v.bfb) > 0 {
			fields := make([]*Field, len(rest))
			for i, c := range rest {
				f, ok := c.(*Field)
				if !ok {
					failf(KindFuncCall, "BEFORE FILTER BY child of %s must be a Field, got %s", v.name, c.Kind())
				}
				fields[i] = f
			}
			opts = append(opts, WithBeforeFilterBy(fields...))
		}
		out = NewFuncCall(v.name, args, opts...)
	case *UnaryOp:
		out = NewUnaryOp(v.op, children[0])
	case *BinaryOp:
		out = NewBinaryOp(v.op, children[0], children[1])
	case *TernaryOp:
		out = NewTernaryOp(v.op, children[0], children[1], children[2])
	case *LodSpecifier:
		out = NewLod(v.lodKind, children...)
	case *QueryFork:
		lod, ok := children[0].(*LodSpecifier)
		if !ok {
			failf(KindQueryFork, "child 0 must be a LodSpecifier, got %s", children[0].Kind())
		}
		joining, ok := children[1].(*JoiningCondition)
		if !ok {
			failf(KindQueryFork, "child 1 must be a JoiningCondition, got %s", children[1].Kind())
		}
		out = NewQueryFork(v.joinType, lod, joining, children[2])
	case *SelfCondition:
		out = NewSelfCondition(children[0])
	case *JoiningCondition:
		conds := make([]*SelfCondition, len(children))
		for i, c := range children {
			sc, ok := c.(*SelfCondition)
			if !ok {
				failf(KindJoiningCondition, "child %d must be a SelfCondition, got %s", i, c.Kind())
			}
			conds[i] = sc
		}
		out = NewJoiningCondition(conds...)
	default:
		panic(fmt.Sprintf("ast: unhandled node type %T", n))
	}
	return At(out, n.Meta())
}

// Get returns the node addressed by idx below root.
func Get(root Node, idx Index) (Node, bool) {
	node := root
	for _, o := range idx.offsets {
		children := Children(node)
		if o < 0 || o >= len(children) {
			return nil, false
		}
		node = children[o]
	}
	return node, true
}

// Replace returns a new tree with the node at idx swapped for repl.
// Ancestors are rebuilt; untouched subtrees are shared.
func Replace(root Node, idx Index, repl Node) (Node, error) {
	if idx.IsRoot() {
		return repl, nil
	}
	head, tail := idx.LSplit()
	children := Children(root)
	if head < 0 || head >= len(children) {
		return nil, fmt.Errorf("index %s out of range at %s node", idx, root.Kind())
	}
	child, err := Replace(children[head], tail, repl)
	if err != nil {
		return nil, err
	}
	children[head] = child
	return Build(func() Node { return WithChildren(root, children) })
}

// WalkFunc visits a node. parents lists the ancestors from the root down to
// the direct parent. Returning false skips the node's children.
type WalkFunc func(n Node, idx Index, parents []Node) bool

// Walk visits every node below root in pre-order.
func Walk(root Node, fn WalkFunc) {
	walk(root, Root, nil, fn)
}

func walk(n Node, idx Index, parents []Node, fn WalkFunc) {
	if !fn(n, idx, parents) {
		return
	}
	stack := append(parents[:len(parents):len(parents)], n)
	for i, c := range Children(n) {
		walk(c, idx.Child(i), stack, fn)
	}
}

// TransformFunc rewrites a node whose children have already been rewritten.
// parents are the original (not yet rewritten) ancestors.
type TransformFunc func(n Node, idx Index, parents []Node) (Node, error)

// Transform rebuilds the tree bottom-up, calling fn on every node after its
// children. Nodes whose children are unchanged are passed to fn as-is.
func Transform(root Node, fn TransformFunc) (Node, error) {
	return transform(root, Root, nil, fn)
}

func transform(n Node, idx Index, parents []Node, fn TransformFunc) (Node, error) {
	children := Children(n)
	if len(children) > 0 {
		stack := append(parents[:len(parents):len(parents)], n)
		changed := false
		for i, c := range children {
			nc, err := transform(c, idx.Child(i), stack, fn)
			if err != nil {
				return nil, err
			}
			if nc != c {
				children[i] = nc
				changed = true
			}
		}
		if changed {
			rebuilt, err := Build(func() Node { return WithChildren(n, children) })
			if err != nil {
				return nil, fmt.Errorf("rebuild %s at %s: %w", n.Kind(), idx, err)
			}
			n = rebuilt
		}
	}
	return fn(n, idx, parents)
}
