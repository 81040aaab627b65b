// Package store provides SQLite-backed run history for the test scheduler.
//
// Each run gets a row in runs, written when the run starts and updated with
// the aggregate counts when it finishes. Every unit that reaches Done adds
// one row to unit_results, numbered by completion order within the run.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads (history queries) during a run
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: unit results must belong to a known run
//
// Annotations and failure reasons are stored as JSON arrays.
package store
