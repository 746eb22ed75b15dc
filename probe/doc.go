// Package probe holds the probe binding metadata extracted from a verified unit.
//
// [OnMethod] and [OnProbe] values are the only artifacts handed to the
// instrumentation engine. Each OnMethod owns exactly one [Location].
//
// # Parameter Roles
//
// A handler parameter may be bound to a role only when its Location makes
// the role meaningful:
//
//	┌──────────────────────┬──────────────────────────────────────────────┐
//	│ Role                 │ Legal locations                              │
//	├──────────────────────┼──────────────────────────────────────────────┤
//	│ self                 │ any                                          │
//	│ return value         │ RETURN; AFTER CALL/ARRAY_GET/FIELD_GET/      │
//	│                      │ NEW/NEWARRAY                                 │
//	│ target member        │ CALL, FIELD_GET, FIELD_SET                   │
//	│ target instance      │ CALL, FIELD_GET, FIELD_SET                   │
//	│ duration             │ RETURN, ERROR                                │
//	│ probe class name     │ any                                          │
//	│ probe method name    │ any                                          │
//	└──────────────────────┴──────────────────────────────────────────────┘
//
// Unbound roles hold [Unbound].
package probe
