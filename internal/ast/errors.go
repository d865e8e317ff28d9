package ast

import "fmt"

// ConstructionError reports a malformed node. It is raised with panic: a
// tree that fails construction is a bug in the caller, not bad user input.
type ConstructionError struct {
	Kind    Kind
	Message string
}

func (e *ConstructionError) Error() string {
	return fmt.Sprintf("malformed %s node: %s", e.Kind, e.Message)
}

func failf(kind Kind, format string, args ...any) {
	panic(&ConstructionError{Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// Build runs fn and converts a construction panic into an error.
// Decoders that assemble trees from external input use it to report
// malformed input without crashing.
func Build(fn func() Node) (node Node, err error) {
	defer func() {
		if r := recover(); r != nil {
			ce, ok := r.(*ConstructionError)
			if !ok {
				panic(r)
			}
			node, err = nil, ce
		}
	}()
	return fn(), nil
}
