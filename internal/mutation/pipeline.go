package mutation

import (
	"fmt"

	"github.com/roach88/formulon/internal/ast"
	"github.com/roach88/formulon/internal/dtype"
	"github.com/roach88/formulon/internal/inspect"
)

// State is how far a tree has progressed through the pipeline.
type State int

const (
	Raw State = iota
	BFBValidated
	Forked
	Casted
)

func (s State) String() string {
	switch s {
	case Raw:
		return "raw"
	case BFBValidated:
		return "bfb-validated"
	case Forked:
		return "forked"
	case Casted:
		return "casted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Result is a translatable tree with its inferred type.
type Result struct {
	Root  ast.Node
	State State
	Type  dtype.DataType
}

// Pipeline runs the passes in their fixed order. BEFORE FILTER BY names
// are checked on the raw tree, so they refer to dataset fields and never
// to anything introduced by fork expansion.
type Pipeline struct {
	env      *inspect.Env
	fieldIDs map[string]bool
}

// NewPipeline builds a pipeline. BFB references are validated against the
// env's field ids.
func NewPipeline(env *inspect.Env) *Pipeline {
	return &Pipeline{env: env, fieldIDs: env.FieldIDs()}
}

// Run takes root from Raw to Casted. Any error aborts the whole run.
func (p *Pipeline) Run(root ast.Node) (*Result, error) {
	res := &Result{Root: root, State: Raw}

	if err := CheckBFB(res.Root, p.fieldIDs); err != nil {
		return nil, err
	}
	res.State = BFBValidated

	forked, err := Apply(res.Root, NewLodToQueryFork(p.env))
	if err != nil {
		return nil, err
	}
	if err := NewStructureCheck(p.env).Check(forked); err != nil {
		return nil, err
	}
	res.Root, res.State = forked, Forked

	casted, err := Apply(res.Root, NewCastInsertion(p.env))
	if err != nil {
		return nil, err
	}
	res.Root, res.State = casted, Casted

	t, err := p.env.InferType(res.Root)
	if err != nil {
		return nil, err
	}
	res.Type = t
	return res, nil
}
