package dtype

// implicitCasts lists the widening conversions the compiler may insert on
// its own. Anything else needs an explicit cast function in the formula.
var implicitCasts = map[DataType][]DataType{
	Null:            {Integer, Float, String, Boolean, Date, Datetime, GenericDatetime, UUID},
	Integer:         {Float},
	Date:            {Datetime, GenericDatetime},
	Datetime:        {GenericDatetime},
	GenericDatetime: {Datetime},
}

// CanImplicitlyCast reports whether a value of type from may be silently
// converted to to. Every type converts to itself.
func CanImplicitlyCast(from, to DataType) bool {
	if from == to {
		return true
	}
	for _, target := range implicitCasts[from] {
		if target == to {
			return true
		}
	}
	return false
}

// castFunctions maps a target type to the formula function that produces it.
var castFunctions = map[DataType]string{
	Integer:         "int",
	Float:           "float",
	String:          "str",
	Boolean:         "bool",
	Date:            "date",
	Datetime:        "datetime",
	GenericDatetime: "genericdatetime",
}

// CastFunction returns the name of the formula function converting a value
// to t. ok is false when no such function exists.
func CastFunction(t DataType) (name string, ok bool) {
	name, ok = castFunctions[t]
	return name, ok
}

// Common returns the narrowest type both a and b implicitly cast to.
// ok is false when the types are incompatible.
func Common(a, b DataType) (DataType, bool) {
	switch {
	case CanImplicitlyCast(a, b):
		return b, true
	case CanImplicitlyCast(b, a):
		return a, true
	}
	for _, target := range []DataType{Float, Datetime, GenericDatetime} {
		if CanImplicitlyCast(a, target) && CanImplicitlyCast(b, target) {
			return target, true
		}
	}
	return Unsupported, false
}
