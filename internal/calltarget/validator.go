// Package calltarget decides whether a call made from handler code is approved.
package calltarget

import "github.com/mpyw/probeguard/internal/registry"

// Validator approves external calls against an allowed-target registry.
// It holds no mutable state and may be shared across concurrent passes.
type Validator struct {
	registry *registry.Registry
}

// New creates a validator backed by reg. A nil registry approves nothing.
func New(reg *registry.Registry) *Validator {
	return &Validator{registry: reg}
}

// Approve reports whether targetMethod of targetUnit may be called.
func (v *Validator) Approve(targetUnit, targetMethod string) bool {
	return v.registry.Lookup(targetUnit, targetMethod)
}
