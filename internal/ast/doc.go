// Package ast provides the formula abstract syntax tree.
//
// Formulas arrive from an external parser as a tree of Node values. The tree
// is the single currency of the compiler: inspection, mutation passes and
// translation all consume and produce Nodes.
//
// SEALED UNION:
//
// Node is a sealed interface (marker method pattern, as in queryir). Every
// variant lives in this package:
//
//	Literal, Null, Field, FuncCall, UnaryOp, BinaryOp, TernaryOp,
//	LodSpecifier, QueryFork, SelfCondition, JoiningCondition, ErrorNode
//
// Kind() gives each variant an enum tag. Children and WithChildren switch
// over every variant explicitly; adding a variant fails their default branch
// until every pass is reviewed.
//
// IMMUTABILITY:
//
// Nodes have unexported fields and read-only accessors. A pass that wants a
// different tree builds new nodes (WithChildren, Transform, Replace); nodes
// that did not change are shared between the old and new tree.
//
// Constructors validate arity and payload and panic with *ConstructionError
// on malformed input. Malformed trees are programmer errors, not user errors.
//
// ADDRESSING:
//
// A node's identity for error reporting and targeted edits is its Index: the
// child offsets from the root. Index values are recomputed per traversal.
package ast
