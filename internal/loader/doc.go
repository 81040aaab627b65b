// Package loader discovers unit definition files, resolves templates and
// copy directives, and builds the units through the factory registry.
//
// A definition file is any YAML, JSON or CUE file under the test
// directory whose base name contains "tests" after its first character.
// Each top-level key names a unit, except for reserved keys:
//
//	__executable: ./bin/solver      # default executable for the file
//	TEMPLATE_base:                  # never instantiated
//	  num_procs: 2
//	  checks:
//	    - type: ErrorCode
//	restart:
//	  from_template: TEMPLATE_base  # template fields, entry fields win
//	  args: -i restart.i
//	  copy_test: [_copy, ./make_copy.sh, inputs/]
//	  env_var_skip: [CI, "true"]
//
// Resolve expands one decoded file into Definitions. Load hands the
// definitions of each file to Registry.ReadBatch as one batch. Problems
// with a file or an entry are collected in Result.Problems and never stop
// the rest of the load.
package loader
