package ast

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/formulon/internal/dtype"
)

// Format renders n as formula text. The output is stable and unambiguous
// (binary operations are always parenthesised), so it doubles as the
// identity of a dimension expression; see Key.
func Format(n Node) string {
	var b strings.Builder
	format(&b, n)
	return b.String()
}

// Key returns the identity used to compare dimension expressions.
func Key(n Node) string {
	return Format(n)
}

var opText = map[string]string{
	"==": "=", "!=": "!=", "and": "AND", "or": "OR", "like": "LIKE",
	"notlike": "NOT LIKE", "in": "IN", "notin": "NOT IN",
	"between": "BETWEEN", "notbetween": "NOT BETWEEN",
}

func opString(op string) string {
	if s, ok := opText[op]; ok {
		return s
	}
	return op
}

func format(b *strings.Builder, n Node) {
	switch v := n.(type) {
	case *Literal:
		b.WriteString(formatLiteral(v))
	case *Null:
		b.WriteString("NULL")
	case *Field:
		b.WriteString("[" + strings.ReplaceAll(v.name, "]", "]]") + "]")
	case *FuncCall:
		b.WriteString(strings.ToUpper(v.name))
		b.WriteByte('(')
		formatList(b, v.args)
		if v.lod != nil {
			if len(v.args) > 0 {
				b.WriteByte(' ')
			}
			format(b, v.lod)
		}
		if len(v.within) > 0 {
			b.WriteString(" WITHIN ")
			formatList(b, v.within)
		}
		if len(v.bfb) > 0 {
			b.WriteString(" BEFORE FILTER BY ")
			for i, f := range v.bfb {
				if i > 0 {
					b.WriteString(", ")
				}
				format(b, f)
			}
		}
		b.WriteByte(')')
	case *UnaryOp:
		switch v.op {
		case "neg":
			b.WriteString("-")
			format(b, v.operand)
		case "not":
			b.WriteString("NOT ")
			format(b, v.operand)
		case "isnull":
			format(b, v.operand)
			b.WriteString(" IS NULL")
		case "isnotnull":
			format(b, v.operand)
			b.WriteString(" IS NOT NULL")
		}
	case *BinaryOp:
		b.WriteByte('(')
		format(b, v.left)
		b.WriteString(" " + opString(v.op) + " ")
		format(b, v.right)
		b.WriteByte(')')
	case *TernaryOp:
		b.WriteByte('(')
		format(b, v.first)
		b.WriteString(" " + opString(v.op) + " ")
		format(b, v.second)
		b.WriteString(" AND ")
		format(b, v.third)
		b.WriteByte(')')
	case *LodSpecifier:
		b.WriteString(v.lodKind.String())
		if len(v.dimensions) > 0 {
			b.WriteByte(' ')
			formatList(b, v.dimensions)
		}
	case *QueryFork:
		b.WriteString("FORK<" + v.joinType.String() + " ")
		format(b, v.lod)
		b.WriteByte(' ')
		format(b, v.joining)
		b.WriteString(">(")
		format(b, v.resultExpr)
		b.WriteByte(')')
	case *SelfCondition:
		format(b, v.expr)
	case *JoiningCondition:
		b.WriteString("ON ")
		if len(v.conditions) == 0 {
			b.WriteString("TRUE")
		}
		for i, c := range v.conditions {
			if i > 0 {
				b.WriteString(", ")
			}
			format(b, c)
		}
	case *ErrorNode:
		fmt.Fprintf(b, "<error: %s>", v.message)
	default:
		panic(fmt.Sprintf("ast: unhandled node type %T", n))
	}
}

func formatList(b *strings.Builder, nodes []Node) {
	for i, n := range nodes {
		if i > 0 {
			b.WriteString(", ")
		}
		format(b, n)
	}
}

func formatLiteral(l *Literal) string {
	switch l.typ {
	case dtype.Integer:
		return fmt.Sprintf("%d", l.value.(int64))
	case dtype.Float:
		return l.value.(decimal.Decimal).String()
	case dtype.Boolean:
		if l.value.(bool) {
			return "TRUE"
		}
		return "FALSE"
	case dtype.Date:
		return "#" + l.value.(time.Time).Format(time.DateOnly) + "#"
	case dtype.Datetime, dtype.GenericDatetime:
		return "##" + l.value.(time.Time).Format("2006-01-02T15:04:05") + "##"
	default:
		return "'" + strings.ReplaceAll(l.value.(string), "'", "\\'") + "'"
	}
}
