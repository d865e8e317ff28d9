// Package engine prepares and executes formulon queries.
//
// Prepare turns a compiled query into a Plan: calculated fields are
// inlined, every formula runs through the mutation pipeline, and each
// query block is planned and rendered as SQL for one dialect version.
// Preparing needs no database, so plans can be inspected offline.
//
// An Executor runs a plan against a store. Block statements are issued
// lazily, one after another, as the merged stream is read: a store with a
// single connection never holds two cursors at once. Rows are mapped onto
// the query legend, post-paginated and optionally arranged as a pivot
// table.
//
// Every execution is tagged with a UUIDv7 request id and a sequence number
// from the executor's Clock. Both appear in the logs and on the Result.
package engine
