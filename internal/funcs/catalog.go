// Package funcs is the catalog of formula functions and operators: their
// kind, argument signatures and the LOD/BFB clauses they accept.
package funcs

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/formulon/internal/dtype"
)

// Kind classifies a function for aggregation analysis.
type Kind int

const (
	Scalar Kind = iota
	Aggregate
	Window
	Operator
)

func (k Kind) String() string {
	switch k {
	case Scalar:
		return "scalar"
	case Aggregate:
		return "aggregate"
	case Window:
		return "window"
	case Operator:
		return "operator"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Any in Signature.Args accepts a value of any type without a cast.
const Any = dtype.Unsupported

// Signature is one accepted argument list. When Variadic is set the last
// argument type may repeat any number of times (including zero).
type Signature struct {
	Args     []dtype.DataType
	Variadic bool
	Return   dtype.DataType
}

func (s Signature) String() string {
	parts := make([]string, len(s.Args))
	for i, a := range s.Args {
		if a == Any {
			parts[i] = "any"
		} else {
			parts[i] = a.String()
		}
	}
	if s.Variadic && len(parts) > 0 {
		parts[len(parts)-1] += "..."
	}
	return fmt.Sprintf("(%s) -> %s", strings.Join(parts, ", "), s.Return)
}

// Definition describes one function or operator.
type Definition struct {
	Name        string
	Kind        Kind
	Signatures  []Signature
	SupportsLOD bool
	SupportsBFB bool
}

// IsAggregate reports whether calls to the function collapse rows.
func (d Definition) IsAggregate() bool { return d.Kind == Aggregate }

// Catalog is an immutable set of definitions keyed by lower-case name.
type Catalog struct {
	defs map[string]Definition
}

// NewCatalog builds a catalog. Duplicate names and definitions without
// signatures are rejected.
func NewCatalog(defs ...Definition) (*Catalog, error) {
	c := &Catalog{defs: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		name := strings.ToLower(d.Name)
		if name == "" {
			return nil, fmt.Errorf("definition with empty name")
		}
		if _, dup := c.defs[name]; dup {
			return nil, fmt.Errorf("duplicate definition for %q", name)
		}
		if len(d.Signatures) == 0 {
			return nil, fmt.Errorf("definition %q has no signatures", name)
		}
		d.Name = name
		c.defs[name] = d
	}
	return c, nil
}

// MustNewCatalog is NewCatalog for statically known definitions.
func MustNewCatalog(defs ...Definition) *Catalog {
	c, err := NewCatalog(defs...)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the definition for name.
func (c *Catalog) Lookup(name string) (Definition, bool) {
	d, ok := c.defs[strings.ToLower(name)]
	return d, ok
}

// Names returns every defined name in sorted order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.defs))
	for n := range c.defs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// IsAggregate reports whether name is a known aggregate function.
func (c *Catalog) IsAggregate(name string) bool {
	d, ok := c.Lookup(name)
	return ok && d.IsAggregate()
}
