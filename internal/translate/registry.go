package translate

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	sq "github.com/Masterminds/squirrel"

	"github.com/roach88/formulon/internal/dialect"
	"github.com/roach88/formulon/internal/dtype"
)

// Impl renders one call. args are the already translated operands.
type Impl func(ctx *Context, args []Expr) (sq.Sqlizer, error)

// Variant is one dialect-specific implementation of a function.
type Variant struct {
	Dialects dialect.Combo
	Impl     Impl
}

// V is shorthand for a Variant literal.
func V(dialects dialect.Combo, impl Impl) Variant {
	return Variant{Dialects: dialects, Impl: impl}
}

type tableKey struct {
	name   string
	family dialect.Family
}

type entry[T any] struct {
	dialects dialect.Combo // the variant's points within one family
	weight   int           // size of the variant's full combo
	value    T
	seq      int
}

// table holds dialect-scoped values keyed by (name, family).
type table[T any] map[tableKey][]entry[T]

// add files the variant under every family it touches. Specificity is the
// size of the whole combo, so a variant naming one family beats a generic
// one inside that family.
func (t table[T]) add(name string, dialects dialect.Combo, value T, seq int) {
	weight := dialects.Count()
	for _, f := range dialects.Families() {
		k := tableKey{name: name, family: f}
		t[k] = append(t[k], entry[T]{dialects: dialects.Intersect(f.All()), weight: weight, value: value, seq: seq})
	}
}

// lookup returns the most specific entry containing the atomic target.
func (t table[T]) lookup(name string, target dialect.Combo) (T, bool) {
	var zero T
	f, ok := target.Family()
	if !ok {
		return zero, false
	}
	var best *entry[T]
	for i, e := range t[tableKey{name: name, family: f}] {
		if !e.dialects.Contains(target) {
			continue
		}
		if best == nil || e.weight < best.weight {
			best = &t[tableKey{name: name, family: f}][i]
		}
	}
	if best == nil {
		return zero, false
	}
	return best.value, true
}

// validate reports the first atomic point claimed by two equally specific
// entries.
func (t table[T]) validate() error {
	keys := make([]tableKey, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].name != keys[j].name {
			return keys[i].name < keys[j].name
		}
		return keys[i].family < keys[j].family
	})
	for _, k := range keys {
		entries := t[k]
		covered := dialect.Empty
		for _, e := range entries {
			covered = covered.Union(e.dialects)
		}
		for _, point := range covered.ToList() {
			best, ties := -1, 0
			for _, e := range entries {
				if !e.dialects.Contains(point) {
					continue
				}
				switch n := e.weight; {
				case best < 0 || n < best:
					best, ties = n, 1
				case n == best:
					ties++
				}
			}
			if ties > 1 {
				return &RegistrationError{
					Name:    k.name,
					Point:   point,
					Message: fmt.Sprintf("%d equally specific variants", ties),
				}
			}
		}
	}
	return nil
}

// Builder collects registrations during startup.
type Builder struct {
	mu     sync.Mutex
	funcs  table[Impl]
	types  table[string]
	seq    int
	frozen bool
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{funcs: table[Impl]{}, types: table[string]{}}
}

// Register adds variants for the function or operator name.
func (b *Builder) Register(name string, variants ...Variant) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return fmt.Errorf("register: empty function name")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frozen {
		return fmt.Errorf("register %s: %w", name, ErrFrozen)
	}
	for _, v := range variants {
		if v.Dialects.IsEmpty() {
			return fmt.Errorf("register %s: variant with empty dialect combo", name)
		}
		if v.Impl == nil {
			return fmt.Errorf("register %s: variant for %s has no implementation", name, v.Dialects)
		}
		b.seq++
		b.funcs.add(name, v.Dialects, v.Impl, b.seq)
	}
	return nil
}

// RegisterType maps a formula type to a native type name for dialects.
func (b *Builder) RegisterType(t dtype.DataType, dialects dialect.Combo, native string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frozen {
		return fmt.Errorf("register type %s: %w", t, ErrFrozen)
	}
	if dialects.IsEmpty() || native == "" {
		return fmt.Errorf("register type %s: empty dialect combo or native name", t)
	}
	b.seq++
	b.types.add(t.String(), dialects, native, b.seq)
	return nil
}

// Freeze validates the registrations and returns the immutable registry.
// The builder accepts no registrations afterwards.
func (b *Builder) Freeze() (*Registry, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frozen {
		return nil, ErrFrozen
	}
	if err := b.funcs.validate(); err != nil {
		return nil, err
	}
	if err := b.types.validate(); err != nil {
		return nil, err
	}
	b.frozen = true
	return &Registry{funcs: b.funcs, types: b.types}, nil
}

// Registry is the frozen set of variants and type constructors.
type Registry struct {
	funcs table[Impl]
	types table[string]
}

// Lookup returns the implementation of name for the atomic target.
func (r *Registry) Lookup(name string, target dialect.Combo) (Impl, bool) {
	return r.funcs.lookup(strings.ToLower(name), target)
}

// NativeType returns the native type name for t on the atomic target.
func (r *Registry) NativeType(t dtype.DataType, target dialect.Combo) (string, bool) {
	return r.types.lookup(t.String(), target)
}

// Functions returns the names with at least one variant intersecting target.
func (r *Registry) Functions(target dialect.Combo) []string {
	seen := map[string]bool{}
	for k, entries := range r.funcs {
		for _, e := range entries {
			if e.dialects.Intersects(target) {
				seen[k.name] = true
			}
		}
	}
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
