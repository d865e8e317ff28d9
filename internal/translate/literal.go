package translate

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"

	"github.com/roach88/formulon/internal/ast"
	"github.com/roach88/formulon/internal/dialect"
	"github.com/roach88/formulon/internal/dtype"
)

// Literalizer renders constants for one dialect family. Numbers, booleans
// and temporal values are inlined; strings and UUIDs are bound parameters.
type Literalizer struct {
	family dialect.Family
}

// NewLiteralizer returns the literalizer of f.
func NewLiteralizer(f dialect.Family) Literalizer {
	return Literalizer{family: f}
}

// Literal renders lit.
func (l Literalizer) Literal(lit *ast.Literal) (Expr, error) {
	switch lit.Type() {
	case dtype.Integer:
		return NewExpr(dtype.Integer, strconv.FormatInt(lit.Value().(int64), 10)), nil
	case dtype.Float:
		return NewExpr(dtype.Float, l.Decimal(lit.Value().(decimal.Decimal))), nil
	case dtype.Boolean:
		return NewExpr(dtype.Boolean, l.Bool(lit.Value().(bool))), nil
	case dtype.String, dtype.UUID:
		return NewExpr(lit.Type(), "?", lit.Value().(string)), nil
	case dtype.Date:
		return NewExpr(dtype.Date, l.Date(lit.Value().(time.Time))), nil
	case dtype.Datetime, dtype.GenericDatetime:
		return NewExpr(lit.Type(), l.Datetime(lit.Value().(time.Time))), nil
	default:
		return nil, fmt.Errorf("cannot render %s literal", lit.Type())
	}
}

// Null renders the NULL constant.
func (l Literalizer) Null() Expr {
	return typedExpr{Sqlizer: sq.Expr("NULL"), typ: dtype.Null}
}

// Decimal renders an exact numeric constant that the backend reads as a
// fractional number.
func (l Literalizer) Decimal(d decimal.Decimal) string {
	s := d.String()
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// Bool renders a boolean constant.
func (l Literalizer) Bool(v bool) string {
	switch l.family {
	case dialect.SQLite, dialect.MSSQL, dialect.Oracle:
		if v {
			return "1"
		}
		return "0"
	default:
		if v {
			return "TRUE"
		}
		return "FALSE"
	}
}

// Date renders a calendar date constant.
func (l Literalizer) Date(t time.Time) string {
	s := t.Format(time.DateOnly)
	switch l.family {
	case dialect.SQLite:
		return "'" + s + "'"
	case dialect.MySQL, dialect.StarRocks:
		return "DATE('" + s + "')"
	case dialect.ClickHouse:
		return "toDate('" + s + "')"
	case dialect.MSSQL:
		return "CAST('" + s + "' AS DATE)"
	case dialect.YQL:
		return "Date('" + s + "')"
	default:
		return "DATE '" + s + "'"
	}
}

// Datetime renders a timestamp constant in UTC.
func (l Literalizer) Datetime(t time.Time) string {
	t = t.UTC()
	s := t.Format(time.DateTime)
	switch l.family {
	case dialect.SQLite:
		return "'" + s + "'"
	case dialect.MySQL, dialect.StarRocks:
		return "TIMESTAMP('" + s + "')"
	case dialect.ClickHouse:
		return "toDateTime('" + s + "', 'UTC')"
	case dialect.MSSQL:
		return "CAST('" + s + "' AS DATETIME2)"
	case dialect.YQL:
		return "Datetime('" + t.Format(time.RFC3339) + "')"
	default:
		return "TIMESTAMP '" + s + "'"
	}
}
