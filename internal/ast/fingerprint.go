package ast

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/formulon/internal/dtype"
	"github.com/roach88/formulon/internal/ir"
)

// Encode converts a tree into its canonical ir form. Metadata is not
// encoded: two trees that differ only in source positions encode equally.
func Encode(n Node) ir.Value {
	obj := ir.Object{"kind": ir.String(n.Kind().String())}
	switch v := n.(type) {
	case *Literal:
		obj["type"] = ir.String(v.typ.String())
		obj["value"] = encodeLiteral(v)
	case *Null, *ErrorNode:
		if e, ok := v.(*ErrorNode); ok {
			obj["message"] = ir.String(e.message)
		}
	case *Field:
		obj["name"] = ir.String(v.name)
	case *FuncCall:
		obj["name"] = ir.String(v.name)
		obj["args"] = encodeList(v.args)
		if v.lod != nil {
			obj["lod"] = Encode(v.lod)
		}
		if len(v.within) > 0 {
			obj["within"] = encodeList(v.within)
		}
		if len(v.bfb) > 0 {
			names := make([]string, len(v.bfb))
			for i, f := range v.bfb {
				names[i] = f.name
			}
			obj["bfb"] = ir.Strings(names...)
		}
	case *UnaryOp:
		obj["op"] = ir.String(v.op)
		obj["args"] = ir.Array{Encode(v.operand)}
	case *BinaryOp:
		obj["op"] = ir.String(v.op)
		obj["args"] = ir.Array{Encode(v.left), Encode(v.right)}
	case *TernaryOp:
		obj["op"] = ir.String(v.op)
		obj["args"] = ir.Array{Encode(v.first), Encode(v.second), Encode(v.third)}
	case *LodSpecifier:
		obj["lod_kind"] = ir.String(v.lodKind.String())
		obj["dims"] = encodeList(v.dimensions)
	case *QueryFork:
		obj["join_type"] = ir.String(v.joinType.String())
		obj["lod"] = Encode(v.lod)
		obj["joining"] = Encode(v.joining)
		obj["result"] = Encode(v.resultExpr)
	case *SelfCondition:
		obj["expr"] = Encode(v.expr)
	case *JoiningCondition:
		conds := make(ir.Array, len(v.conditions))
		for i, c := range v.conditions {
			conds[i] = Encode(c)
		}
		obj["conditions"] = conds
	default:
		panic(fmt.Sprintf("ast: unhandled node type %T", n))
	}
	return obj
}

func encodeList(nodes []Node) ir.Array {
	arr := make(ir.Array, len(nodes))
	for i, n := range nodes {
		arr[i] = Encode(n)
	}
	return arr
}

func encodeLiteral(l *Literal) ir.Value {
	switch l.typ {
	case dtype.Integer:
		return ir.Int(l.value.(int64))
	case dtype.Float:
		return ir.String(l.value.(decimal.Decimal).String())
	case dtype.Boolean:
		return ir.Bool(l.value.(bool))
	case dtype.Date, dtype.Datetime, dtype.GenericDatetime:
		return ir.String(l.value.(time.Time).Format(time.RFC3339Nano))
	default:
		return ir.String(l.value.(string))
	}
}

// Fingerprint returns a stable content hash of the tree.
func Fingerprint(n Node) string {
	return ir.MustHash(ir.DomainNode, Encode(n))
}

// Equal reports whether two trees are structurally identical, ignoring metadata.
func Equal(a, b Node) bool {
	return Fingerprint(a) == Fingerprint(b)
}
