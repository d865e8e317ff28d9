package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/formulon/internal/ast"
	"github.com/roach88/formulon/internal/dtype"
	"github.com/roach88/formulon/internal/legend"
	"github.com/roach88/formulon/internal/merge"
)

// Validation error codes (E100-E199)
const (
	ErrUnsupportedType = "E100" // unsupported value passed to Validate

	// Dataset errors (E101-E109)
	ErrDatasetNoTable     = "E101" // table is required
	ErrDatasetNoFields    = "E102" // at least one field required
	ErrDuplicateField     = "E103" // duplicate field name
	ErrInvalidFieldType   = "E104" // field type cannot be stored
	ErrFieldCycle         = "E105" // calculated fields reference each other
	ErrUnknownField       = "E106" // formula names an unknown field

	// Query errors (E110-E119)
	ErrQueryDatasetMismatch = "E110" // query targets another dataset
	ErrQueryEmpty           = "E111" // no dimensions or measures
	ErrInvalidItemID        = "E112" // legend ids must be positive and unique
	ErrInvalidPagination    = "E113" // negative limit
	ErrInvalidPivot         = "E114" // pivot layout rejected
	ErrInvalidBlock         = "E115" // negative block number
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a dataset, or a query against its dataset. Returns all
// errors found (does not fail-fast).
func Validate(v any, ds ...*Dataset) []ValidationError {
	switch x := v.(type) {
	case *Dataset:
		return validateDataset(x)
	case *Query:
		if len(ds) == 0 {
			return []ValidationError{{Field: "dataset", Message: "a query is validated against its dataset", Code: ErrQueryDatasetMismatch}}
		}
		return validateQuery(x, ds[0])
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type: %T", v),
			Code:    ErrUnsupportedType,
		}}
	}
}

func validateDataset(ds *Dataset) []ValidationError {
	var errs []ValidationError

	if strings.TrimSpace(ds.Table) == "" {
		errs = append(errs, ValidationError{Field: "table", Message: "table is required and must be non-empty", Code: ErrDatasetNoTable})
	}
	if len(ds.Fields) == 0 {
		errs = append(errs, ValidationError{Field: "fields", Message: "at least one field is required", Code: ErrDatasetNoFields})
	}

	seen := make(map[string]bool)
	for i, f := range ds.Fields {
		path := fmt.Sprintf("fields[%d]", i)
		if seen[f.Name] {
			errs = append(errs, ValidationError{Field: path, Message: fmt.Sprintf("duplicate field name: %q", f.Name), Code: ErrDuplicateField})
		}
		seen[f.Name] = true

		if f.Type == dtype.Unsupported || f.Type == dtype.Null {
			errs = append(errs, ValidationError{Field: path + ".type", Message: fmt.Sprintf("field %q cannot have type %s", f.Name, f.Type), Code: ErrInvalidFieldType})
		}
		if f.IsCalculated() {
			errs = append(errs, unknownFields(ds, f.Formula, path+".formula")...)
		}
	}

	for _, c := range AnalyzeCycles(ds) {
		errs = append(errs, ValidationError{Field: "fields." + c.Path[0], Message: c.Error(), Code: ErrFieldCycle})
	}
	return errs
}

func unknownFields(ds *Dataset, n ast.Node, path string) []ValidationError {
	var errs []ValidationError
	ast.Walk(n, func(n ast.Node, _ ast.Index, _ []ast.Node) bool {
		if f, ok := n.(*ast.Field); ok {
			if _, known := ds.Field(f.Name()); !known {
				errs = append(errs, ValidationError{
					Field:   path,
					Message: fmt.Sprintf("unknown field %q", f.Name()),
					Code:    ErrUnknownField,
					Line:    f.Meta().Pos.Line,
				})
			}
		}
		return true
	})
	return errs
}

func validateQuery(q *Query, ds *Dataset) []ValidationError {
	var errs []ValidationError

	if q.Dataset != ds.Name {
		errs = append(errs, ValidationError{Field: "dataset", Message: fmt.Sprintf("query targets %q, not %q", q.Dataset, ds.Name), Code: ErrQueryDatasetMismatch})
	}
	if len(q.Dimensions) == 0 && len(q.Measures) == 0 {
		errs = append(errs, ValidationError{Field: "query", Message: "at least one dimension or measure is required", Code: ErrQueryEmpty})
	}

	ids := make(map[int]bool)
	checkID := func(path string, id int) {
		switch {
		case id <= 0:
			errs = append(errs, ValidationError{Field: path, Message: fmt.Sprintf("item id must be positive, got %d", id), Code: ErrInvalidItemID})
		case ids[id]:
			errs = append(errs, ValidationError{Field: path, Message: fmt.Sprintf("item id %d used twice", id), Code: ErrInvalidItemID})
		}
		ids[id] = true
	}
	for _, group := range []struct {
		name  string
		items []QueryItem
	}{{"dimensions", q.Dimensions}, {"measures", q.Measures}} {
		for i, it := range group.items {
			path := fmt.Sprintf("%s[%d]", group.name, i)
			checkID(path+".id", it.ID)
			if it.Block < 0 {
				errs = append(errs, ValidationError{Field: path + ".block", Message: fmt.Sprintf("block must not be negative, got %d", it.Block), Code: ErrInvalidBlock})
			}
			errs = append(errs, unknownFields(ds, it.Formula, path+".formula")...)
		}
	}
	if q.MeasureNamesID != 0 {
		checkID("measure_names", q.MeasureNamesID)
	}
	for i, f := range q.Filters {
		errs = append(errs, unknownFields(ds, f, fmt.Sprintf("filters[%d]", i))...)
	}

	if err := merge.ValidatePagination(q.Offset, q.Limit); err != nil {
		var perr *merge.PaginationError
		field := "pagination"
		if errors.As(err, &perr) {
			field = perr.Field
		}
		errs = append(errs, ValidationError{Field: field, Message: err.Error(), Code: ErrInvalidPagination})
	}

	if q.Pivot != nil && len(errs) == 0 {
		l, err := q.Legend(nil)
		if err == nil {
			_, err = legend.NewPivotLegend(l, *q.Pivot)
		}
		if err != nil {
			errs = append(errs, ValidationError{Field: "pivot", Message: err.Error(), Code: ErrInvalidPivot})
		}
	}
	return errs
}
