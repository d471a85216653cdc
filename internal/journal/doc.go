// Package journal persists a run history in SQLite: one row per completed or
// failed pipeline run, queryable from the CLI. It is an append-only record,
// not a work queue; the pipeline never reads it.
package journal
