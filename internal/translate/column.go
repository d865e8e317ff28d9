package translate

import (
	"github.com/roach88/formulon/internal/ast"
	"github.com/roach88/formulon/internal/dialect"
)

// ColumnRenderer turns a field reference into SQL text.
type ColumnRenderer func(f *ast.Field) (string, error)

// QuotedColumns renders fields as bare identifiers quoted for f.
func QuotedColumns(f dialect.Family) ColumnRenderer {
	ids := f.Identifiers()
	return func(field *ast.Field) (string, error) {
		return ids.Quote(field.Name()), nil
	}
}

// TableColumns renders fields qualified by a table alias.
func TableColumns(f dialect.Family, alias string) ColumnRenderer {
	ids := f.Identifiers()
	return func(field *ast.Field) (string, error) {
		return ids.QuotePath(alias, field.Name()), nil
	}
}

// MappedColumns renders fields through a name mapping, falling back to
// next for unmapped names.
func MappedColumns(mapping map[string]string, next ColumnRenderer) ColumnRenderer {
	return func(field *ast.Field) (string, error) {
		if col, ok := mapping[field.Name()]; ok {
			return col, nil
		}
		return next(field)
	}
}
