// Package store runs compiled queries against a database through a
// connector plugin.
//
// Open connects with the plugin's database/sql driver, asks the server for
// its version and resolves the exact dialect the translator must target.
// Query returns a single-pass row sequence; rows are scanned lazily and the
// cursor is closed when iteration ends.
//
// # SQLite
//
// SQLite connections are limited to one open connection so that in-memory
// databases are shared by every query, and are configured with:
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: enforce referential integrity
//
// Seed creates and fills fixture tables; the harness and tests use it to
// build in-memory datasets.
package store
