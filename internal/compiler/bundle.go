package compiler

import (
	"fmt"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
)

// Bundle holds every dataset and query of one CUE instance.
type Bundle struct {
	Datasets map[string]*Dataset
	Queries  map[string]*Query
}

// Load builds the CUE instance made of args, resolved against dir. Args are
// .cue file names or "." for every file of the directory's package.
func Load(dir string, args ...string) (cue.Value, error) {
	if len(args) == 0 {
		args = []string{"."}
	}
	instances := load.Instances(args, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return cue.Value{}, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, fmt.Errorf("loading CUE files: %w", inst.Err)
	}

	v := cuecontext.New().BuildInstance(inst)
	if err := v.Err(); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	return v, nil
}

// CompileBundle compiles the top-level datasets and queries structs of v.
// With failFast it stops at the first error; otherwise it collects them
// all and returns whatever compiled.
func CompileBundle(v cue.Value, failFast bool) (*Bundle, []error) {
	b := &Bundle{Datasets: make(map[string]*Dataset), Queries: make(map[string]*Query)}
	var errs []error

	compileEach := func(section string, fn func(cue.Value) error) bool {
		sv := v.LookupPath(cue.ParsePath(section))
		if !sv.Exists() {
			return true
		}
		iter, err := sv.Fields()
		if err != nil {
			errs = append(errs, formatCUEError(err))
			return !failFast
		}
		for iter.Next() {
			if err := fn(iter.Value()); err != nil {
				errs = append(errs, fmt.Errorf("%s.%s: %w", section, iter.Label(), err))
				if failFast {
					return false
				}
			}
		}
		return true
	}

	ok := compileEach("datasets", func(dv cue.Value) error {
		ds, err := CompileDataset(dv)
		if err != nil {
			return err
		}
		b.Datasets[ds.Name] = ds
		return nil
	})
	if ok {
		compileEach("queries", func(qv cue.Value) error {
			q, err := CompileQuery(qv)
			if err != nil {
				return err
			}
			b.Queries[q.Name] = q
			return nil
		})
	}

	if len(errs) == 0 && len(b.Datasets) == 0 {
		errs = append(errs, &CompileError{Field: "datasets", Message: "no datasets found", Pos: v.Pos()})
	}
	return b, errs
}

// DatasetNames returns the dataset names in sorted order.
func (b *Bundle) DatasetNames() []string {
	names := make([]string, 0, len(b.Datasets))
	for name := range b.Datasets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// QueryNames returns the query names in sorted order.
func (b *Bundle) QueryNames() []string {
	names := make([]string, 0, len(b.Queries))
	for name := range b.Queries {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Resolve returns the named query and the dataset it targets.
func (b *Bundle) Resolve(query string) (*Dataset, *Query, error) {
	q, ok := b.Queries[query]
	if !ok {
		return nil, nil, fmt.Errorf("unknown query %q", query)
	}
	ds, ok := b.Datasets[q.Dataset]
	if !ok {
		return nil, nil, fmt.Errorf("query %s: unknown dataset %q", q.Name, q.Dataset)
	}
	return ds, q, nil
}

// ValidateAll validates every dataset, then every query against its
// dataset. Queries naming an unknown dataset get ErrQueryDatasetMismatch.
func (b *Bundle) ValidateAll() []ValidationError {
	var errs []ValidationError
	for _, name := range b.DatasetNames() {
		for _, e := range Validate(b.Datasets[name]) {
			e.Field = "datasets." + name + "." + e.Field
			errs = append(errs, e)
		}
	}
	for _, name := range b.QueryNames() {
		q := b.Queries[name]
		ds, ok := b.Datasets[q.Dataset]
		if !ok {
			errs = append(errs, ValidationError{
				Field:   "queries." + name + ".dataset",
				Message: fmt.Sprintf("unknown dataset %q", q.Dataset),
				Code:    ErrQueryDatasetMismatch,
			})
			continue
		}
		for _, e := range Validate(q, ds) {
			e.Field = "queries." + name + "." + e.Field
			errs = append(errs, e)
		}
	}
	return errs
}
