// Package dialect models SQL backends as (family, version) bits.
//
// A Combo is an immutable bitmask over every registered (family, version)
// point. Combos are plain values: they compare with ==, combine with Union
// and Intersect, and answer containment in constant time. Translation
// variants, type constructors and connector plugins all declare the
// dialects they apply to as a Combo.
//
// Families carry an ordered version list, so "this version and every later
// one" is expressible as a range:
//
//	dialect.ClickHouse.AndAbove("21.8") // CLICKHOUSE_21_8|CLICKHOUSE_22_10|CLICKHOUSE_23_8
//
// This package has no dependencies on the rest of the module.
package dialect
