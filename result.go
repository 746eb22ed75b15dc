package probeguard

import (
	"github.com/mpyw/probeguard/internal/callgraph"
	"github.com/mpyw/probeguard/internal/diag"
	"github.com/mpyw/probeguard/internal/metrics"
	"github.com/mpyw/probeguard/internal/registry"
	"github.com/mpyw/probeguard/probe"
)

// Result is the metadata extracted from a verified unit.
// It is the only artifact handed to the instrumentation engine.
type Result struct {
	UnitName  string
	OnMethods []probe.OnMethod
	OnProbes  []probe.OnProbe

	// Diagnostics holds every violation recorded in lenient mode.
	// It is always empty for results of strict passes.
	Diagnostics []*Diagnostic
}

// Diagnostic is a single verification violation. It implements error.
type Diagnostic = diag.Diagnostic

// DiagnosticKind classifies a Diagnostic.
type DiagnosticKind = diag.Kind

// Diagnostic kinds.
const (
	StructuralViolation          = diag.StructuralViolation
	FieldViolation               = diag.FieldViolation
	MethodViolation              = diag.MethodViolation
	AnnotationPlacementViolation = diag.AnnotationPlacementViolation
	NestedUnitViolation          = diag.NestedUnitViolation
	OuterUnitViolation           = diag.OuterUnitViolation
	ExecutionLoopDanger          = diag.ExecutionLoopDanger
	CallTargetViolation          = diag.CallTargetViolation
)

// CyclePolicy selects which call-graph cycles are reported.
type CyclePolicy = callgraph.Policy

// Cycle policies.
const (
	// CyclesReachable reports any cycle reachable from a handler entry.
	CyclesReachable = callgraph.Reachable
	// CyclesRootClosing reports only cycles that return to a handler entry.
	CyclesRootClosing = callgraph.RootClosing
)

// Registry is the allowed-target registry.
type Registry = registry.Registry

// NewRegistry builds a registry from the builtin specs plus extra "owner.member" specs.
func NewRegistry(extra ...string) (*Registry, error) {
	specs, err := registry.ParseAll(extra)
	if err != nil {
		return nil, err
	}
	return registry.New(append(registry.Builtin(), specs...)...), nil
}

// Metrics records verification metrics.
type Metrics = metrics.Recorder
