// Package scheduler runs units against a process-slot budget in dependency
// order, polling their child processes from a single goroutine.
//
// # Tick
//
// Each Tick scans the units in load order. A pending unit is submitted
// when its weight class is selected, every dependency is Done, and its
// num_procs fits in the capacity left this pass. The tick then polls
// every active unit and recomputes the committed load from the units
// still running. Nothing blocks inside a tick.
//
// A unit wider than the whole capacity is rejected on its first scan. When a pass
// starts nothing and nothing is running, the remaining pending units wait
// on each other and are rejected as unsatisfiable.
//
// # Run
//
// Run drives ticks until every selected unit is Done, sleeping
// PollInterval between them, then writes the summary. A ProcessError from
// polling ends the run; every other unit failure stays with its unit.
// When Options.Store is set the run and each unit result are recorded,
// and MetricsFile receives the run's Prometheus metrics.
//
// Build is the usual entry point: it reads the configuration file, loads
// the test directory and returns a ready Scheduler.
package scheduler
