// Package unit implements the schedulable test object: its schema, its
// process lifecycle and the evaluation of its checks.
//
// A Unit moves Pending -> Submitted -> Running -> Done. Submit builds the
// command line and spawns it through the System's Launcher. CheckProgress
// polls without blocking; once the process exits it writes the combined
// log to out/<prefix>.out beside the definition file and runs every check
// in order. A failed check clears Passed but the rest still run.
//
// Skipped units go straight to Done with their skip reason as the only
// annotation. Any failure while starting, logging or checking a unit is
// recorded on that unit. Only a polling error is returned to the caller,
// as a ProcessError.
//
// ExecLauncher runs command lines through /bin/sh with stdout and stderr
// captured in memory.
package unit
