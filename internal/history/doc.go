// Package history persists a SQLite ledger of stage runs.
//
// Every cluster a stage dispatches produces one row: the run id, the stage,
// the outcome and, for failures, the error kind and message. The ledger backs
// the status report. It is never consulted when deciding whether to skip a
// cluster; completion markers remain the only skip signal.
package history
