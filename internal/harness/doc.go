// Package harness runs conformance scenarios: a query compiled from CUE
// specs, executed end to end against a seeded in-memory SQLite store and
// rendered for a list of dialects.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: region_sales
//	description: "Sales per region"
//	specs:
//	  - orders.cue
//	query: by_region
//	seed:
//	  - table: orders
//	    columns:
//	      - {name: Region, type: string}
//	      - {name: Sales, type: float}
//	    rows:
//	      - [East, 10]
//	dialects: [SQLITE_3_25, POSTGRESQL_14]
//	assertions:
//	  - type: rows_equal
//	    rows: [[East, 10]]
//	  - type: sql_contains
//	    dialect: POSTGRESQL_14
//	    text: GROUP BY
//
// Unknown keys are rejected.
//
// # Assertion Types
//
//   - rows_equal: the merged rows, in order
//   - row_contains: one row appears in the result
//   - row_count: number of merged rows after pagination
//   - block_rows: rows a query block contributed
//   - sql_contains: a rendered statement contains a fragment
//   - error: preparing or executing failed with a runtime error code
//   - pivot_cells: the cells of the query's pivot table
//
// # Golden Files
//
// Snapshot renders every dialect's plan together with the rows, so
// RunWithGolden catches SQL drift in any dialect. Request ids are fixed
// per scenario and snapshots never depend on the local SQLite version.
package harness
