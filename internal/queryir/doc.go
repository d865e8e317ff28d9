// Package queryir plans formula queries into a tree of aggregation levels.
//
// A compiled formula may hold query forks: aggregates computed over their
// own dimension set and joined back to the rows of the enclosing query. The
// planner turns the top-level dimensions and measures into a Level, and each
// fork into a sub-Level joined to it. querysql renders the tree as SQL.
//
// LEVELS:
//
// Every Level reads from a Source, groups it by its Dims and computes its
// Measures. The Source is either the dataset Table (filtered rows plus one
// computed column per dimension) or another Level:
//
//	Level r0 (dims d0.., measures m0..)
//	  FROM Table                      rows, __d0.. computed per row
//	  LEFT JOIN Level f0 ON keys      fork at a coarser or equal level
//	  LEFT JOIN Level n0 ON keys      aggregate over a finer fork
//	                FROM Level f1     the finer fork itself
//
// Joins attach at row level on grouped dimension columns, so a joined value
// is constant within each group of the outer level. When a join is referenced
// outside any aggregate, the outer level also groups by the joined column.
//
// FINER FORKS:
//
// A fork whose dimensions are not all grouped by the enclosing level cannot
// be joined row by row without duplicating its values. When such a fork sits
// inside an aggregate, the whole aggregate is lifted into a nested Level that
// reads the fork's rows and groups them by the enclosing dimensions. Only one
// finer fork may feed a lifted aggregate.
//
// SEALED INTERFACES:
//
// Query is a sealed interface using the marker method pattern. Only *Table
// and *Level implement it, so renderers can switch over every variant:
//
//	switch q := query.(type) {
//	case *Table:
//	    // rows of the dataset
//	case *Level:
//	    // grouped sub-query
//	default:
//	    // impossible
//	}
//
// COLUMN NAMING:
//
// Output columns are positional: d0, d1.. for dimensions, res for the
// single measure of a joined level, and caller-chosen names for top-level
// measures. Row-level dimension columns are __d0, __d1.. so they never
// collide with dataset fields.
package queryir
