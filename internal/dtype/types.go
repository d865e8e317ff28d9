// Package dtype defines the formula language's own type system.
package dtype

import (
	"fmt"
	"strings"
)

// DataType is a formula-level value type. Backend-native types are derived
// from it by per-dialect type constructors.
type DataType int

const (
	Unsupported DataType = iota
	Null
	Integer
	Float
	String
	Boolean
	Date
	Datetime
	GenericDatetime
	UUID
)

var typeNames = map[DataType]string{
	Unsupported:     "unsupported",
	Null:            "null",
	Integer:         "integer",
	Float:           "float",
	String:          "string",
	Boolean:         "boolean",
	Date:            "date",
	Datetime:        "datetime",
	GenericDatetime: "genericdatetime",
	UUID:            "uuid",
}

func (t DataType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("datatype(%d)", int(t))
}

// Parse converts a type name (case-insensitive) into a DataType.
func Parse(name string) (DataType, error) {
	lower := strings.ToLower(strings.TrimSpace(name))
	for t, n := range typeNames {
		if n == lower {
			return t, nil
		}
	}
	switch lower {
	case "int":
		return Integer, nil
	case "str", "text":
		return String, nil
	case "bool":
		return Boolean, nil
	case "number", "double":
		return Float, nil
	}
	return Unsupported, fmt.Errorf("unknown data type %q", name)
}

// IsNumeric reports whether t is Integer or Float.
func (t DataType) IsNumeric() bool {
	return t == Integer || t == Float
}

// IsTemporal reports whether t holds a date or a point in time.
func (t DataType) IsTemporal() bool {
	return t == Date || t == Datetime || t == GenericDatetime
}

// MarshalText implements encoding.TextMarshaler so types serialise by name.
func (t DataType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *DataType) UnmarshalText(data []byte) error {
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// All returns the value types in declaration order, excluding Unsupported
// and Null.
func All() []DataType {
	return []DataType{Integer, Float, String, Boolean, Date, Datetime, GenericDatetime, UUID}
}
