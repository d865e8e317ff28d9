package ast

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roach88/formulon/internal/dtype"
)

// Kind tags each Node variant.
type Kind int

const (
	KindLiteral Kind = iota
	KindNull
	KindField
	KindFuncCall
	KindUnaryOp
	KindBinaryOp
	KindTernaryOp
	KindLodSpecifier
	KindQueryFork
	KindSelfCondition
	KindJoiningCondition
	KindError
)

var kindNames = [...]string{
	KindLiteral:          "Literal",
	KindNull:             "Null",
	KindField:            "Field",
	KindFuncCall:         "FuncCall",
	KindUnaryOp:          "UnaryOp",
	KindBinaryOp:         "BinaryOp",
	KindTernaryOp:        "TernaryOp",
	KindLodSpecifier:     "LodSpecifier",
	KindQueryFork:        "QueryFork",
	KindSelfCondition:    "SelfCondition",
	KindJoiningCondition: "JoiningCondition",
	KindError:            "ErrorNode",
}

func (k Kind) String() string {
	if int(k) >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsExpression reports whether nodes of kind k evaluate to a value and may
// appear as function arguments or operands.
func (k Kind) IsExpression() bool {
	switch k {
	case KindLiteral, KindNull, KindField, KindFuncCall, KindUnaryOp,
		KindBinaryOp, KindTernaryOp, KindQueryFork, KindError:
		return true
	default:
		return false
	}
}

// Pos is a source position supplied by the parser.
type Pos struct {
	Filename string `json:"filename,omitempty"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
}

// IsValid reports whether the position carries a line number.
func (p Pos) IsValid() bool {
	return p.Line > 0
}

func (p Pos) String() string {
	if !p.IsValid() {
		return "-"
	}
	if p.Filename == "" {
		return fmt.Sprintf("%d:%d", p.Line, p.Column)
	}
	return fmt.Sprintf("%s:%d:%d", p.Filename, p.Line, p.Column)
}

// Meta is the parser metadata attached to a node.
type Meta struct {
	Pos   Pos
	Token string // original source text of the node, if known
}

// Node is a formula AST node.
//
// This is a sealed interface - only types in this package implement it.
type Node interface {
	formulaNode() // Marker method - seals interface to this package
	Kind() Kind
	Meta() Meta
}

type base struct {
	meta Meta
}

func (base) formulaNode()  {}
func (b base) Meta() Meta { return b.meta }

// At returns a copy of n carrying meta.
func At[N Node](n N, meta Meta) N {
	var out Node
	switch v := any(n).(type) {
	case *Literal:
		c := *v
		c.meta = meta
		out = &c
	case *Null:
		c := *v
		c.meta = meta
		out = &c
	case *Field:
		c := *v
		c.meta = meta
		out = &c
	case *FuncCall:
		c := *v
		c.meta = meta
		out = &c
	case *UnaryOp:
		c := *v
		c.meta = meta
		out = &c
	case *BinaryOp:
		c := *v
		c.meta = meta
		out = &c
	case *TernaryOp:
		c := *v
		c.meta = meta
		out = &c
	case *LodSpecifier:
		c := *v
		c.meta = meta
		out = &c
	case *QueryFork:
		c := *v
		c.meta = meta
		out = &c
	case *SelfCondition:
		c := *v
		c.meta = meta
		out = &c
	case *JoiningCondition:
		c := *v
		c.meta = meta
		out = &c
	case *ErrorNode:
		c := *v
		c.meta = meta
		out = &c
	default:
		panic(fmt.Sprintf("ast: unhandled node type %T", n))
	}
	return out.(N)
}

func requireExpression(owner Kind, role string, n Node) {
	if n == nil {
		failf(owner, "%s is nil", role)
	}
	if !n.Kind().IsExpression() {
		failf(owner, "%s must be an expression, got %s", role, n.Kind())
	}
}

// ---------------------------------------------------------------------------
// Literal

// Literal is a typed constant.
//
// Value holds int64 for Integer, decimal.Decimal for Float, string for
// String and UUID, bool for Boolean, and time.Time for temporal types.
type Literal struct {
	base
	value any
	typ   dtype.DataType
}

func (*Literal) Kind() Kind { return KindLiteral }

// Value returns the constant.
func (l *Literal) Value() any { return l.value }

// Type returns the constant's data type.
func (l *Literal) Type() dtype.DataType { return l.typ }

// NewLiteral builds a literal, checking that value matches typ.
func NewLiteral(value any, typ dtype.DataType) *Literal {
	l := &Literal{value: value, typ: typ}
	l.validateInternalValue()
	return l
}

func (l *Literal) validateInternalValue() {
	ok := false
	switch l.typ {
	case dtype.Integer:
		_, ok = l.value.(int64)
	case dtype.Float:
		_, ok = l.value.(decimal.Decimal)
	case dtype.String, dtype.UUID:
		_, ok = l.value.(string)
	case dtype.Boolean:
		_, ok = l.value.(bool)
	case dtype.Date, dtype.Datetime, dtype.GenericDatetime:
		_, ok = l.value.(time.Time)
	default:
		failf(KindLiteral, "type %s cannot be a literal", l.typ)
	}
	if !ok {
		failf(KindLiteral, "value %v (%T) does not match type %s", l.value, l.value, l.typ)
	}
}

// NewInt builds an Integer literal.
func NewInt(v int64) *Literal { return NewLiteral(v, dtype.Integer) }

// NewFloat builds a Float literal.
func NewFloat(v decimal.Decimal) *Literal { return NewLiteral(v, dtype.Float) }

// NewString builds a String literal.
func NewString(v string) *Literal { return NewLiteral(v, dtype.String) }

// NewBool builds a Boolean literal.
func NewBool(v bool) *Literal { return NewLiteral(v, dtype.Boolean) }

// NewDate builds a Date literal; the time-of-day part is dropped.
func NewDate(v time.Time) *Literal {
	y, m, d := v.Date()
	return NewLiteral(time.Date(y, m, d, 0, 0, 0, 0, time.UTC), dtype.Date)
}

// NewDatetime builds a Datetime literal.
func NewDatetime(v time.Time) *Literal { return NewLiteral(v.UTC(), dtype.Datetime) }

// ---------------------------------------------------------------------------
// Null

// Null is the NULL constant.
type Null struct{ base }

func (*Null) Kind() Kind { return KindNull }

// NewNull builds a NULL node.
func NewNull() *Null { return &Null{} }

// ---------------------------------------------------------------------------
// Field

// Field references a dataset field by name.
type Field struct {
	base
	name string
}

func (*Field) Kind() Kind { return KindField }

// Name returns the referenced field name.
func (f *Field) Name() string { return f.name }

// NewField builds a field reference.
func NewField(name string) *Field {
	if strings.TrimSpace(name) == "" {
		failf(KindField, "field name is empty")
	}
	return &Field{name: name}
}

// ---------------------------------------------------------------------------
// FuncCall

// FuncCall is a function call with optional extended clauses:
//
//	SUM([Sales] INCLUDE [Region] BEFORE FILTER BY [Date])
//	RSUM(SUM([Sales]) WITHIN [Region])
//
// Children are ordered: args, lod (if any), within dims, bfb fields.
type FuncCall struct {
	base
	name   string
	args   []Node
	lod    *LodSpecifier
	within []Node
	bfb    []*Field
}

func (*FuncCall) Kind() Kind { return KindFuncCall }

// Name returns the lower-case function name.
func (f *FuncCall) Name() string { return f.name }

// Args returns a copy of the call arguments.
func (f *FuncCall) Args() []Node { return append([]Node(nil), f.args...) }

// Arg returns argument i.
func (f *FuncCall) Arg(i int) Node { return f.args[i] }

// NumArgs returns the number of arguments.
func (f *FuncCall) NumArgs() int { return len(f.args) }

// Lod returns the explicit level-of-detail directive, or nil.
func (f *FuncCall) Lod() *LodSpecifier { return f.lod }

// Within returns a copy of the window partition dimensions.
func (f *FuncCall) Within() []Node { return append([]Node(nil), f.within...) }

// BeforeFilterBy returns a copy of the BEFORE FILTER BY field references.
func (f *FuncCall) BeforeFilterBy() []*Field { return append([]*Field(nil), f.bfb...) }

// FuncOption configures the extended clauses of a FuncCall.
type FuncOption func(*FuncCall)

// WithLod attaches a level-of-detail directive.
func WithLod(lod *LodSpecifier) FuncOption {
	return func(f *FuncCall) { f.lod = lod }
}

// WithWithin sets window partition dimensions.
func WithWithin(dims ...Node) FuncOption {
	return func(f *FuncCall) { f.within = append([]Node(nil), dims...) }
}

// WithBeforeFilterBy sets the BEFORE FILTER BY fields.
func WithBeforeFilterBy(fields ...*Field) FuncOption {
	return func(f *FuncCall) { f.bfb = append([]*Field(nil), fields...) }
}

// NewFuncCall builds a function call. name is normalised to lower case.
func NewFuncCall(name string, args []Node, opts ...FuncOption) *FuncCall {
	f := &FuncCall{
		name: strings.ToLower(strings.TrimSpace(name)),
		args: append([]Node(nil), args...),
	}
	for _, opt := range opts {
		opt(f)
	}
	f.validateInternalValue()
	f.validateChildren()
	return f
}

// Call is shorthand for NewFuncCall without extended clauses.
func Call(name string, args ...Node) *FuncCall {
	return NewFuncCall(name, args)
}

func (f *FuncCall) validateInternalValue() {
	if f.name == "" {
		failf(KindFuncCall, "function name is empty")
	}
}

func (f *FuncCall) validateChildren() {
	for i, a := range f.args {
		requireExpression(KindFuncCall, fmt.Sprintf("argument %d of %s", i, f.name), a)
	}
	for i, d := range f.within {
		requireExpression(KindFuncCall, fmt.Sprintf("WITHIN dimension %d of %s", i, f.name), d)
	}
	for i, b := range f.bfb {
		if b == nil {
			failf(KindFuncCall, "BEFORE FILTER BY entry %d of %s is nil", i, f.name)
		}
	}
}

// ---------------------------------------------------------------------------
// Operators

// UnaryOp applies a prefix operator: neg, not, isnull, isnotnull.
type UnaryOp struct {
	base
	op      string
	operand Node
}

func (*UnaryOp) Kind() Kind { return KindUnaryOp }

// Op returns the operator name.
func (u *UnaryOp) Op() string { return u.op }

// Operand returns the operand.
func (u *UnaryOp) Operand() Node { return u.operand }

var unaryOps = map[string]bool{"neg": true, "not": true, "isnull": true, "isnotnull": true}

// NewUnaryOp builds a unary operation.
func NewUnaryOp(op string, operand Node) *UnaryOp {
	u := &UnaryOp{op: strings.ToLower(op), operand: operand}
	if !unaryOps[u.op] {
		failf(KindUnaryOp, "unknown unary operator %q", op)
	}
	requireExpression(KindUnaryOp, "operand", operand)
	return u
}

// BinaryOp applies an infix operator.
type BinaryOp struct {
	base
	op          string
	left, right Node
}

func (*BinaryOp) Kind() Kind { return KindBinaryOp }

// Op returns the operator name, e.g. "+", "and", "==".
func (b *BinaryOp) Op() string { return b.op }

// Left returns the left operand.
func (b *BinaryOp) Left() Node { return b.left }

// Right returns the right operand.
func (b *BinaryOp) Right() Node { return b.right }

var binaryOps = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "%": true, "^": true,
	"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true,
	"and": true, "or": true, "like": true, "notlike": true, "in": true, "notin": true,
}

// NewBinaryOp builds a binary operation.
func NewBinaryOp(op string, left, right Node) *BinaryOp {
	b := &BinaryOp{op: strings.ToLower(op), left: left, right: right}
	if !binaryOps[b.op] {
		failf(KindBinaryOp, "unknown binary operator %q", op)
	}
	requireExpression(KindBinaryOp, "left operand", left)
	requireExpression(KindBinaryOp, "right operand", right)
	return b
}

// TernaryOp applies a three-operand operator: between, notbetween.
type TernaryOp struct {
	base
	op                   string
	first, second, third Node
}

func (*TernaryOp) Kind() Kind { return KindTernaryOp }

// Op returns the operator name.
func (t *TernaryOp) Op() string { return t.op }

// Operands returns the three operands in order.
func (t *TernaryOp) Operands() (Node, Node, Node) { return t.first, t.second, t.third }

// NewTernaryOp builds a ternary operation.
func NewTernaryOp(op string, first, second, third Node) *TernaryOp {
	t := &TernaryOp{op: strings.ToLower(op), first: first, second: second, third: third}
	if t.op != "between" && t.op != "notbetween" {
		failf(KindTernaryOp, "unknown ternary operator %q", op)
	}
	requireExpression(KindTernaryOp, "first operand", first)
	requireExpression(KindTernaryOp, "second operand", second)
	requireExpression(KindTernaryOp, "third operand", third)
	return t
}

// ---------------------------------------------------------------------------
// Level of detail

// LodKind is the level-of-detail directive.
type LodKind int

const (
	LodFixed LodKind = iota
	LodInclude
	LodExclude
)

func (k LodKind) String() string {
	switch k {
	case LodFixed:
		return "FIXED"
	case LodInclude:
		return "INCLUDE"
	case LodExclude:
		return "EXCLUDE"
	default:
		return fmt.Sprintf("LodKind(%d)", int(k))
	}
}

// LodSpecifier overrides the dimensions an aggregate groups by.
// FIXED with no dimensions aggregates over the whole source.
type LodSpecifier struct {
	base
	lodKind    LodKind
	dimensions []Node
}

func (*LodSpecifier) Kind() Kind { return KindLodSpecifier }

// LodKind returns the directive.
func (l *LodSpecifier) LodKind() LodKind { return l.lodKind }

// Dimensions returns a copy of the directive's dimension list.
func (l *LodSpecifier) Dimensions() []Node { return append([]Node(nil), l.dimensions...) }

// NewLod builds a level-of-detail directive.
func NewLod(kind LodKind, dims ...Node) *LodSpecifier {
	if kind < LodFixed || kind > LodExclude {
		failf(KindLodSpecifier, "unknown directive %d", int(kind))
	}
	for i, d := range dims {
		requireExpression(KindLodSpecifier, fmt.Sprintf("dimension %d", i), d)
	}
	return &LodSpecifier{lodKind: kind, dimensions: append([]Node(nil), dims...)}
}

// Fixed builds a FIXED directive.
func Fixed(dims ...Node) *LodSpecifier { return NewLod(LodFixed, dims...) }

// Include builds an INCLUDE directive.
func Include(dims ...Node) *LodSpecifier { return NewLod(LodInclude, dims...) }

// Exclude builds an EXCLUDE directive.
func Exclude(dims ...Node) *LodSpecifier { return NewLod(LodExclude, dims...) }

// ---------------------------------------------------------------------------
// Query forks

// JoinType is how a fork is joined back to the enclosing query.
type JoinType int

const (
	JoinLeft JoinType = iota
	JoinInner
)

func (j JoinType) String() string {
	if j == JoinInner {
		return "INNER"
	}
	return "LEFT"
}

// SelfCondition marks a dimension that joins a fork to its enclosing query:
// the same expression evaluated on both sides.
type SelfCondition struct {
	base
	expr Node
}

func (*SelfCondition) Kind() Kind { return KindSelfCondition }

// Expr returns the joined expression.
func (s *SelfCondition) Expr() Node { return s.expr }

// NewSelfCondition builds a self-join marker.
func NewSelfCondition(expr Node) *SelfCondition {
	requireExpression(KindSelfCondition, "expression", expr)
	return &SelfCondition{expr: expr}
}

// JoiningCondition is the set of conditions a fork is joined on.
// An empty set joins a single-row fork to every row.
type JoiningCondition struct {
	base
	conditions []*SelfCondition
}

func (*JoiningCondition) Kind() Kind { return KindJoiningCondition }

// Conditions returns a copy of the join conditions.
func (j *JoiningCondition) Conditions() []*SelfCondition {
	return append([]*SelfCondition(nil), j.conditions...)
}

// NewJoiningCondition builds a joining condition.
func NewJoiningCondition(conds ...*SelfCondition) *JoiningCondition {
	for i, c := range conds {
		if c == nil {
			failf(KindJoiningCondition, "condition %d is nil", i)
		}
	}
	return &JoiningCondition{conditions: append([]*SelfCondition(nil), conds...)}
}

// QueryFork is a separately aggregated sub-query joined back into the
// enclosing query. Lod is always FIXED and lists the fork's own dimensions.
type QueryFork struct {
	base
	joinType   JoinType
	lod        *LodSpecifier
	joining    *JoiningCondition
	resultExpr Node
}

func (*QueryFork) Kind() Kind { return KindQueryFork }

// JoinType returns the join type.
func (q *QueryFork) JoinType() JoinType { return q.joinType }

// Lod returns the FIXED directive listing the fork's dimensions.
func (q *QueryFork) Lod() *LodSpecifier { return q.lod }

// Joining returns the joining condition.
func (q *QueryFork) Joining() *JoiningCondition { return q.joining }

// ResultExpr returns the aggregated expression computed by the fork.
func (q *QueryFork) ResultExpr() Node { return q.resultExpr }

// NewQueryFork builds a fork.
func NewQueryFork(joinType JoinType, lod *LodSpecifier, joining *JoiningCondition, result Node) *QueryFork {
	if lod == nil || lod.lodKind != LodFixed {
		failf(KindQueryFork, "fork dimensions must be a FIXED directive")
	}
	if joining == nil {
		failf(KindQueryFork, "joining condition is nil")
	}
	requireExpression(KindQueryFork, "result expression", result)
	return &QueryFork{joinType: joinType, lod: lod, joining: joining, resultExpr: result}
}

// ---------------------------------------------------------------------------
// Errors

// ErrorNode stands in for a fragment the parser could not understand.
type ErrorNode struct {
	base
	message string
}

func (*ErrorNode) Kind() Kind { return KindError }

// Message returns the parser's message.
func (e *ErrorNode) Message() string { return e.message }

// NewErrorNode builds an error placeholder.
func NewErrorNode(message string) *ErrorNode {
	return &ErrorNode{message: message}
}
