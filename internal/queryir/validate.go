package queryir

import (
	"fmt"
)

// ValidationResult lists structural problems of a level tree.
//
// The planner only produces valid trees; Validate guards renderers against
// hand-built or corrupted plans.
type ValidationResult struct {
	// IsValid indicates that the tree can be rendered.
	IsValid bool

	// Problems lists what is wrong. Empty when IsValid is true.
	Problems []string
}

// Validate checks a level tree:
//  1. every level has a source and at least one output column
//  2. aliases are unique across the tree
//  3. join keys address existing dimensions and joined levels have a
//     single ResultColumn measure
//  4. a level over another level names the node its source result stands for
//
// Validate is a pure function with no side effects.
func Validate(root *Level) ValidationResult {
	v := &validator{
		problems: []string{},
		aliases:  make(map[string]bool),
	}
	if root == nil {
		v.addProblem("nil level")
	} else {
		v.validateLevel(root)
	}

	return ValidationResult{
		IsValid:  len(v.problems) == 0,
		Problems: v.problems,
	}
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
	aliases  map[string]bool
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) claim(alias string) {
	if alias == "" {
		v.addProblem("empty alias")
		return
	}
	if v.aliases[alias] {
		v.addProblem("alias %q used twice", alias)
	}
	v.aliases[alias] = true
}

func (v *validator) validateLevel(l *Level) {
	v.claim(l.Alias)
	if len(l.Dims)+len(l.Measures) == 0 {
		v.addProblem("level %s has no output columns", l.Alias)
	}

	switch src := l.Source.(type) {
	case *Table:
		if src.Name == "" {
			v.addProblem("level %s reads a table with no name", l.Alias)
		}
	case *Level:
		if l.SourceResult == nil {
			v.addProblem("level %s reads level %s without a source result node", l.Alias, src.Alias)
		}
		v.validateLevel(src)
	case nil:
		v.addProblem("level %s has no source", l.Alias)
	default:
		v.addProblem("level %s has unknown source type %T", l.Alias, l.Source)
	}

	names := make(map[string]bool)
	for _, m := range l.Measures {
		if names[m.Name] {
			v.addProblem("level %s computes measure %q twice", l.Alias, m.Name)
		}
		names[m.Name] = true
	}

	for _, j := range l.Joins {
		v.validateJoin(l, j)
	}
}

func (v *validator) validateJoin(outer *Level, j Join) {
	v.claim(j.Alias)
	if j.Level == nil {
		v.addProblem("join %s has no level", j.Alias)
		return
	}
	if j.Ref == nil {
		v.addProblem("join %s replaces no node", j.Alias)
	}
	if len(j.Level.Measures) != 1 || j.Level.Measures[0].Name != ResultColumn {
		v.addProblem("join %s must compute exactly the %q measure", j.Alias, ResultColumn)
	}
	for _, k := range j.Keys {
		if k.Outer < 0 || k.Outer >= len(outer.Dims) {
			v.addProblem("join %s key refers to missing outer dimension %d", j.Alias, k.Outer)
		}
		if k.Inner < 0 || k.Inner >= len(j.Level.Dims) {
			v.addProblem("join %s key refers to missing inner dimension %d", j.Alias, k.Inner)
		}
	}
	v.validateLevel(j.Level)
}
