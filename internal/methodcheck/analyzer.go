// Package methodcheck analyzes one method body of a program unit.
package methodcheck

import (
	"fmt"

	"github.com/mpyw/probeguard/internal/callgraph"
	"github.com/mpyw/probeguard/internal/calltarget"
	"github.com/mpyw/probeguard/internal/diag"
	"github.com/mpyw/probeguard/unit"
)

// NodeID returns the call-graph node identifier of a method.
func NodeID(owner, name, desc string) string {
	return owner + "." + name + desc
}

// Analyzer walks method bodies of one unit. It streams call edges into the
// pass's call graph and reports violations through the pass's reporter.
type Analyzer struct {
	unitName  string
	graph     *callgraph.Graph
	validator *calltarget.Validator
	reporter  diag.Reporter
}

// New creates an analyzer for methods declared by unitName.
func New(
	unitName string,
	graph *callgraph.Graph,
	validator *calltarget.Validator,
	reporter diag.Reporter,
) *Analyzer {
	return &Analyzer{
		unitName:  unitName,
		graph:     graph,
		validator: validator,
		reporter:  reporter,
	}
}

// Analyze checks m. handler reports whether m carries a handler annotation;
// handlers must additionally be public and return void.
func (a *Analyzer) Analyze(m *unit.Method, handler bool) error {
	caller := NodeID(a.unitName, m.Name, m.Desc)
	a.graph.AddNode(caller)

	if m.ExceptionHandlers > 0 {
		if err := a.report(diag.MethodViolation, diag.CodeNoCatch, m.ID()); err != nil {
			return err
		}
	}

	for i := range m.Body {
		if err := a.checkInstruction(caller, m, &m.Body[i]); err != nil {
			return err
		}
	}

	if !handler {
		return nil
	}

	if !m.Access.Has(unit.AccPublic) && m.Name != unit.ClassInitializer {
		if err := a.report(diag.MethodViolation, diag.CodeMethodShouldBePublic, m.ID()); err != nil {
			return err
		}
	}

	if !m.ReturnsVoid() {
		if err := a.report(diag.MethodViolation, diag.CodeReturnTypeShouldBeVoid, m.ID()); err != nil {
			return err
		}
	}

	return nil
}

// checkInstruction enforces per-instruction constraints.
func (a *Analyzer) checkInstruction(caller string, m *unit.Method, insn *unit.Instruction) error {
	switch {
	case insn.IsCall():
		return a.checkCall(caller, insn)

	case insn.Opcode == unit.OpInvokedynamic:
		return a.report(diag.MethodViolation, diag.CodeNoInvokeDynamic, at(m, insn))

	case insn.Opcode == unit.OpMonitorenter, insn.Opcode == unit.OpMonitorexit:
		return a.report(diag.MethodViolation, diag.CodeNoSynchronizedBlocks, at(m, insn))

	case insn.Opcode == unit.OpAthrow:
		return a.report(diag.MethodViolation, diag.CodeNoThrow, at(m, insn))

	case insn.IsBranch():
		for _, target := range insn.Targets {
			if target <= insn.Offset {
				return a.report(diag.MethodViolation, diag.CodeNoLoops, at(m, insn))
			}
		}
	}

	return nil
}

// checkCall records the call edge and approves external targets.
func (a *Analyzer) checkCall(caller string, insn *unit.Instruction) error {
	a.graph.AddEdge(caller, NodeID(insn.Owner, insn.Name, insn.Desc))

	// Calls within the unit are covered by verifying the callee itself.
	if insn.Owner == a.unitName {
		return nil
	}

	if a.validator.Approve(insn.Owner, insn.Name) {
		return nil
	}

	return a.report(diag.CallTargetViolation, diag.CodeMethodCallNotAllowed, insn.Member())
}

func (a *Analyzer) report(kind diag.Kind, code, detail string) error {
	return a.reporter.Report(diag.New(kind, code, detail))
}

// at formats the position of insn within m for diagnostic detail.
func at(m *unit.Method, insn *unit.Instruction) string {
	return fmt.Sprintf("%s@%d", m.ID(), insn.Offset)
}
