// Package probeguard statically verifies trace handler programs before they
// are woven into a running application.
//
// A handler program is a single class-like [unit.Unit] whose annotated static
// methods are invoked at probe points of the target. Verification checks that
// the unit stays within a safe subset (no state, no loops, no locking, no
// calls outside an allowed set) and extracts the probe bindings the
// instrumentation engine needs.
//
// # Architecture Overview
//
//	                      +-------------------+
//	                      |  Verifier.Verify  |  Entry point
//	                      +---------+---------+
//	                                |
//	                      +---------v---------+
//	                      |       pass        |  One verification call
//	                      +---------+---------+
//	                                |
//	     +--------------+-----------+-----------+----------------+
//	     |              |                       |                |
//	+----v----+   +-----v-----+       +---------v--------+  +----v------+
//	| header  |   |  fields   |       |     methods      |  |  cycles   |
//	| nesting |   |           |       | annotations.go   |  | callgraph |
//	+---------+   +-----------+       +---------+--------+  +-----------+
//	                                            |
//	                                  +---------v--------+
//	                                  |   methodcheck    |  Bodies, call edges
//	                                  +---------+--------+
//	                                            |
//	                                  +---------v--------+
//	                                  |    calltarget    |  Allowed targets
//	                                  |     registry     |
//	                                  +------------------+
//
// # Execution Flow
//
//  1. The header is checked: the unit must be a public class extending
//     java/lang/Object directly, implement nothing, and carry @BTrace.
//  2. Nesting relations are rejected in both directions.
//  3. Every field must be static.
//  4. Every method must be static (constructors excepted) and unsynchronized.
//     Handler annotations are decoded into [probe.OnMethod] and [probe.OnProbe]
//     values, and the body is analyzed by [methodcheck.Analyzer].
//  5. The call graph collected from the bodies is searched for cycles
//     reachable from handler methods.
//
// # Diagnostics
//
// In strict mode (the default) the first violation aborts the pass and is
// returned as a *[Diagnostic] error. In lenient mode every violation is
// recorded in [Result.Diagnostics] and a Result is always returned.
//
//	res, err := probeguard.New().VerifyFile("samples/Histo.class")
//	var d *probeguard.Diagnostic
//	if errors.As(err, &d) {
//	    fmt.Println(d.Kind, d.Code, d.Detail)
//	}
//
// # Concurrency
//
// A [Verifier] is immutable and may be shared. [Verifier.VerifyAll] runs
// independent passes on a bounded number of goroutines.
package probeguard
