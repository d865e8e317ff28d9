// Package translate turns a mutated formula tree into dialect-specific SQL
// expressions.
//
// REGISTRY LIFECYCLE:
//
// Connector plugins register Translation Variants (a dialect combo plus an
// implementation) and native type names on a Builder during startup. Freeze
// validates the registrations and returns an immutable *Registry; the
// Builder refuses further registrations afterwards. A Registry is safe for
// concurrent use by any number of Translators.
//
// RESOLUTION:
//
// For a call to name on an atomic target dialect, every variant whose combo
// contains the target is a candidate and the one with the fewest dialect
// bits wins. Two equally specific candidates for the same point are a
// registration error reported by Freeze, never at translation time.
//
// OUTPUT:
//
// Translated expressions are squirrel.Sqlizer values typed with the formula
// type they evaluate to. Children are translated first and spliced into the
// parent's template through squirrel's nested-expression expansion, so bound
// parameters stay in evaluation order. Render applies the target family's
// placeholder style.
package translate
