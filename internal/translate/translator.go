package translate

import (
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/formulon/internal/ast"
	"github.com/roach88/formulon/internal/dialect"
	"github.com/roach88/formulon/internal/dtype"
	"github.com/roach88/formulon/internal/inspect"
)

// ForkResolver renders a query fork, typically as a column of the joined
// sub-query the planner built for it.
type ForkResolver func(fork *ast.QueryFork) (Expr, error)

// Substitution renders n directly when it reports true. The planner uses it
// to replace grouped dimensions and lifted aggregates with columns of the
// level being built.
type Substitution func(n ast.Node) (Expr, bool)

// Option configures a Translator.
type Option func(*Translator)

// WithColumnRenderer overrides how field references are rendered.
func WithColumnRenderer(r ColumnRenderer) Option {
	return func(t *Translator) { t.columns = r }
}

// WithForkResolver sets how query forks are rendered. Without it, forks are
// a translation error.
func WithForkResolver(r ForkResolver) Option {
	return func(t *Translator) { t.forks = r }
}

// WithSubstitution installs a hook consulted before any node is translated.
func WithSubstitution(s Substitution) Option {
	return func(t *Translator) { t.subst = s }
}

// Translator translates trees for one atomic dialect. It caches translated
// subtrees by fingerprint and accumulates TranslationStats. A Translator is
// not safe for concurrent use; create one per compilation.
type Translator struct {
	reg     *Registry
	target  dialect.Combo
	family  dialect.Family
	env     *inspect.Env
	lit     Literalizer
	columns ColumnRenderer
	forks   ForkResolver
	subst   Substitution
	cache   map[string]Expr
	stats   TranslationStats

	contextual int
}

// NewTranslator builds a translator for the atomic target.
func NewTranslator(reg *Registry, target dialect.Combo, env *inspect.Env, opts ...Option) (*Translator, error) {
	if !target.IsAtomic() {
		return nil, fmt.Errorf("translation target %s is not a single dialect version", target)
	}
	f, _ := target.Family()
	t := &Translator{
		reg:     reg,
		target:  target,
		family:  f,
		env:     env,
		lit:     NewLiteralizer(f),
		columns: QuotedColumns(f),
		cache:   make(map[string]Expr),
		stats:   NewTranslationStats(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Dialect returns the target.
func (t *Translator) Dialect() dialect.Combo { return t.target }

// Stats returns a copy of the statistics gathered so far.
func (t *Translator) Stats() TranslationStats { return t.stats.Add(NewTranslationStats()) }

// Render serializes e with the target's placeholder style.
func (t *Translator) Render(e sq.Sqlizer) (string, []any, error) {
	return Render(e, t.family)
}

// Translate translates n and its subtree, children first.
//
// Subtrees whose rendering depended on a substitution or a fork resolver
// are not cached: the same text may render differently elsewhere in the
// query.
func (t *Translator) Translate(n ast.Node) (Expr, error) {
	if t.subst != nil {
		if e, ok := t.subst(n); ok {
			t.contextual++
			return e, nil
		}
	}
	cacheable := isCall(n)
	var key string
	if cacheable {
		key = ast.Fingerprint(n)
		if e, ok := t.cache[key]; ok {
			t.stats.CacheHits++
			return e, nil
		}
	}
	before := t.contextual
	e, err := t.translate(n)
	if err != nil {
		return nil, err
	}
	if cacheable && t.contextual == before {
		t.cache[key] = e
	}
	return e, nil
}

func isCall(n ast.Node) bool {
	switch n.(type) {
	case *ast.FuncCall, *ast.UnaryOp, *ast.BinaryOp, *ast.TernaryOp:
		return true
	default:
		return false
	}
}

func (t *Translator) translate(n ast.Node) (Expr, error) {
	switch v := n.(type) {
	case *ast.Literal:
		return t.lit.Literal(v)
	case *ast.Null:
		return t.lit.Null(), nil
	case *ast.Field:
		typ, err := t.env.InferType(v)
		if err != nil {
			return nil, err
		}
		col, err := t.columns(v)
		if err != nil {
			return nil, err
		}
		return NewExpr(typ, col), nil
	case *ast.FuncCall:
		if v.Lod() != nil && t.env.IsAggregateCall(v) {
			return nil, t.errorf(v, v.Name(), "LOD directive must be expanded into a query fork before translation")
		}
		within, err := t.translateAll(v.Within())
		if err != nil {
			return nil, err
		}
		return t.call(v, v.Name(), v.Args(), within)
	case *ast.UnaryOp:
		return t.call(v, v.Op(), []ast.Node{v.Operand()}, nil)
	case *ast.BinaryOp:
		return t.call(v, v.Op(), []ast.Node{v.Left(), v.Right()}, nil)
	case *ast.TernaryOp:
		a, b, c := v.Operands()
		return t.call(v, v.Op(), []ast.Node{a, b, c}, nil)
	case *ast.QueryFork:
		if t.forks == nil {
			return nil, t.errorf(v, "", "query fork must be planned before translation")
		}
		t.contextual++
		return t.forks(v)
	case *ast.ErrorNode:
		return nil, t.errorf(v, "", "cannot translate unparsed fragment: "+v.Message())
	case *ast.LodSpecifier, *ast.SelfCondition, *ast.JoiningCondition:
		return nil, t.errorf(v, "", n.Kind().String()+" is not an expression")
	default:
		panic(fmt.Sprintf("translate: unhandled node type %T", n))
	}
}

func (t *Translator) translateAll(nodes []ast.Node) ([]Expr, error) {
	out := make([]Expr, len(nodes))
	for i, n := range nodes {
		e, err := t.Translate(n)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func (t *Translator) call(n ast.Node, name string, argNodes []ast.Node, within []Expr) (Expr, error) {
	args, err := t.translateAll(argNodes)
	if err != nil {
		return nil, err
	}
	argTypes := make([]dtype.DataType, len(args))
	for i, a := range args {
		argTypes[i] = a.Type()
	}

	impl, ok := t.reg.Lookup(name, t.target)
	if !ok {
		return nil, &UnknownFunctionError{Name: name, Dialect: t.target, ArgTypes: argTypes, Pos: n.Meta().Pos}
	}
	res, err := t.env.Resolve(name, argNodes, n.Meta().Pos)
	if err != nil {
		var undefined *inspect.UndefinedFunctionError
		if errors.As(err, &undefined) {
			return nil, &UnknownFunctionError{Name: name, Dialect: t.target, ArgTypes: argTypes, Pos: n.Meta().Pos}
		}
		return nil, err
	}

	ctx := &Context{
		Name:     name,
		Dialect:  t.target,
		Family:   t.family,
		Node:     n,
		ArgNodes: argNodes,
		ArgTypes: argTypes,
		Return:   res.Return(),
		Within:   within,
		reg:      t.reg,
	}
	s, err := impl(ctx, args)
	if err != nil {
		return nil, err
	}
	t.stats.Weights[name]++
	return Typed(res.Return(), s), nil
}

func (t *Translator) errorf(n ast.Node, name, msg string) error {
	return &TranslationError{Name: name, Dialect: t.target, Message: msg, Pos: n.Meta().Pos}
}
