// Package registry provides the allowed-target registry for handler calls.
//
// # Overview
//
// Handler bodies may only call into approved capabilities. The registry
// holds the approved set; it is resolved once per verification session and
// shared read-only by every pass.
//
// # Specification Format
//
//	owner.member
//
// Examples:
//
//	java/lang/Object.<init>          # exactly one member
//	net/java/btrace/BTraceUtils.*    # every member of one unit
//	net/java/btrace/ext/**.*         # every member of every unit below a package
//	java.lang.Math.max               # dotted owners are converted
//
// # Registry Structure
//
//	type Registry struct {
//	    exact    map[string]map[string]struct{}  // owner -> member
//	    patterns []Spec                          // wildcard specs
//	}
//
// Exact specs are answered by map lookup; wildcard specs are scanned.
//
// # Building a Registry
//
//	specs, err := registry.LoadFile("targets.yaml")
//	if err != nil {
//	    return err
//	}
//	reg := registry.New(append(registry.Builtin(), specs...)...)
//
//	reg.Lookup("net/java/btrace/ext/Printer", "println")  // true
//	reg.Lookup("java/lang/System", "exit")               // false
//
// # Builtin Specs
//
//	┌──────────────────────────────┬─────────────────────────────────┐
//	│ Spec                         │ Purpose                         │
//	├──────────────────────────────┼─────────────────────────────────┤
//	│ java/lang/Object.<init>      │ constructor chain of the unit   │
//	│ net/java/btrace/BTraceUtils.*│ legacy utility facade           │
//	│ net/java/btrace/ext/**.*     │ extension library               │
//	└──────────────────────────────┴─────────────────────────────────┘
package registry
