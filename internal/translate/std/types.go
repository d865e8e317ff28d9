package std

import (
	"github.com/roach88/formulon/internal/dialect"
	"github.com/roach88/formulon/internal/dtype"
	"github.com/roach88/formulon/internal/translate"
)

// TypeNames maps formula types to native names for one set of dialects.
type TypeNames struct {
	Dialects dialect.Combo
	Names    map[dtype.DataType]string
}

// Register adds every mapping to b.
func (t TypeNames) Register(b *translate.Builder) error {
	for _, typ := range dtype.All() {
		native, ok := t.Names[typ]
		if !ok {
			continue
		}
		if err := b.RegisterType(typ, t.Dialects, native); err != nil {
			return err
		}
	}
	return nil
}

var defaultTypes = []TypeNames{
	{Dialects: anywhere, Names: map[dtype.DataType]string{
		dtype.Integer:         "BIGINT",
		dtype.Float:           "DOUBLE PRECISION",
		dtype.String:          "VARCHAR",
		dtype.Boolean:         "BOOLEAN",
		dtype.Date:            "DATE",
		dtype.Datetime:        "TIMESTAMP",
		dtype.GenericDatetime: "TIMESTAMP",
		dtype.UUID:            "UUID",
	}},
	{Dialects: dialect.CLICKHOUSE, Names: map[dtype.DataType]string{
		dtype.Integer:         "Int64",
		dtype.Float:           "Float64",
		dtype.String:          "String",
		dtype.Boolean:         "UInt8",
		dtype.Date:            "Date",
		dtype.Datetime:        "DateTime",
		dtype.GenericDatetime: "DateTime",
		dtype.UUID:            "UUID",
	}},
	{Dialects: dialect.MSSQLSRV, Names: map[dtype.DataType]string{
		dtype.Integer:         "BIGINT",
		dtype.Float:           "FLOAT",
		dtype.String:          "NVARCHAR(MAX)",
		dtype.Boolean:         "BIT",
		dtype.Date:            "DATE",
		dtype.Datetime:        "DATETIME2",
		dtype.GenericDatetime: "DATETIME2",
		dtype.UUID:            "UNIQUEIDENTIFIER",
	}},
	{Dialects: dialect.ORACLE, Names: map[dtype.DataType]string{
		dtype.Integer:         "NUMBER(19)",
		dtype.Float:           "BINARY_DOUBLE",
		dtype.String:          "VARCHAR2(4000)",
		dtype.Boolean:         "NUMBER(1)",
		dtype.Date:            "DATE",
		dtype.Datetime:        "TIMESTAMP",
		dtype.GenericDatetime: "TIMESTAMP",
		dtype.UUID:            "VARCHAR2(36)",
	}},
	{Dialects: dialect.BIGQUERY, Names: map[dtype.DataType]string{
		dtype.Integer:         "INT64",
		dtype.Float:           "FLOAT64",
		dtype.String:          "STRING",
		dtype.Boolean:         "BOOL",
		dtype.Date:            "DATE",
		dtype.Datetime:        "DATETIME",
		dtype.GenericDatetime: "DATETIME",
		dtype.UUID:            "STRING",
	}},
}

func registerTypes(b *translate.Builder) error {
	for _, t := range defaultTypes {
		if err := t.Register(b); err != nil {
			return err
		}
	}
	return nil
}
