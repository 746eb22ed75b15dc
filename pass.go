package probeguard

import (
	"fmt"
	"strings"

	"github.com/mpyw/probeguard/internal/callgraph"
	"github.com/mpyw/probeguard/internal/diag"
	"github.com/mpyw/probeguard/internal/methodcheck"
	"github.com/mpyw/probeguard/probe"
	"github.com/mpyw/probeguard/unit"
)

// pass holds the state of one verification call.
// It is created by Verify and discarded when Verify returns.
type pass struct {
	verifier  *Verifier
	unit      *unit.Unit
	graph     *callgraph.Graph
	collector *diag.Collector
	analyzer  *methodcheck.Analyzer
	result    *Result
}

func newPass(v *Verifier, u *unit.Unit) *pass {
	p := &pass{
		verifier: v,
		unit:     u,
		graph:    callgraph.New(),
		result:   &Result{UnitName: u.Name},
	}
	p.collector = diag.NewCollector(v.strict, p.record)
	p.analyzer = methodcheck.New(u.Name, p.graph, v.validator, p.collector)
	return p
}

// record observes every reported diagnostic before the collector applies its policy.
func (p *pass) record(d *diag.Diagnostic) {
	p.verifier.metrics.ObserveDiagnostic(d.Kind)
	if !p.verifier.strict {
		p.verifier.logger.Warn("violation recorded",
			"unit", p.unit.Name,
			"kind", d.Kind,
			"code", d.Code,
			"detail", d.Detail,
		)
	}
}

// run executes the pipeline: header, fields, methods, then the cycle check.
func (p *pass) run() (*Result, error) {
	steps := []func() error{
		p.checkHeader,
		p.checkNesting,
		p.checkFields,
		p.checkMethods,
		p.checkCycles,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}

	p.result.Diagnostics = p.collector.Diagnostics()
	return p.result, nil
}

func (p *pass) report(kind diag.Kind, code, detail string) error {
	return p.collector.Report(diag.New(kind, code, detail))
}

func (p *pass) checkHeader() error {
	u := p.unit

	if u.Access.Has(unit.AccInterface) || u.Access.Has(unit.AccEnum) || u.Access.Has(unit.AccAnnotation) {
		if err := p.report(diag.StructuralViolation, diag.CodeShouldBeClass, u.Name); err != nil {
			return err
		}
	}

	if !u.Access.Has(unit.AccPublic) {
		if err := p.report(diag.StructuralViolation, diag.CodeClassShouldBePublic, u.Name); err != nil {
			return err
		}
	}

	if u.Super != unit.RootObject {
		if err := p.report(diag.StructuralViolation, diag.CodeSuperclassRequired, u.Super); err != nil {
			return err
		}
	}

	if len(u.Interfaces) > 0 {
		if err := p.report(diag.StructuralViolation, diag.CodeNoInterface, strings.Join(u.Interfaces, ", ")); err != nil {
			return err
		}
	}

	if u.EnclosingClass != "" {
		if err := p.report(diag.OuterUnitViolation, diag.CodeNoOuterClass, u.EnclosingClass); err != nil {
			return err
		}
	}

	if _, ok := u.Annotation(descBTrace); !ok {
		if err := p.report(diag.StructuralViolation, diag.CodeNotAProgram, u.Name); err != nil {
			return err
		}
	}

	return nil
}

// checkNesting rejects nested units declared by this unit and outer units
// declared for it.
func (p *pass) checkNesting() error {
	u := p.unit
	localPrefix := u.Name + "$"

	for _, ic := range u.InnerClasses {
		switch {
		case ic.Outer == u.Name,
			ic.Outer == "" && strings.HasPrefix(ic.Inner, localPrefix):
			if err := p.report(diag.NestedUnitViolation, diag.CodeNoNestedClass, ic.Inner); err != nil {
				return err
			}
		case ic.Inner == u.Name && ic.Outer != "":
			if err := p.report(diag.OuterUnitViolation, diag.CodeNoOuterClass, ic.Outer); err != nil {
				return err
			}
		}
	}

	return nil
}

func (p *pass) checkFields() error {
	for _, f := range p.unit.Fields {
		if f.Access.Has(unit.AccStatic) {
			continue
		}
		if err := p.report(diag.FieldViolation, diag.CodeNoInstanceVariables, f.Name); err != nil {
			return err
		}
	}
	return nil
}

func (p *pass) checkMethods() error {
	for i := range p.unit.Methods {
		if err := p.checkMethod(&p.unit.Methods[i]); err != nil {
			return err
		}
	}
	return nil
}

func (p *pass) checkMethod(m *unit.Method) error {
	if m.Access.Has(unit.AccSynchronized) {
		if err := p.report(diag.MethodViolation, diag.CodeNoSynchronizedMethods, m.ID()); err != nil {
			return err
		}
	}

	if !m.Access.Has(unit.AccStatic) && m.Name != unit.Constructor {
		if err := p.report(diag.MethodViolation, diag.CodeNoInstanceMethod, m.ID()); err != nil {
			return err
		}
	}

	handler, om, err := p.decodeAnnotations(m)
	if err != nil {
		return err
	}

	if om != nil {
		if err := p.bindParameters(m, om); err != nil {
			return err
		}
		p.result.OnMethods = append(p.result.OnMethods, *om)
	}

	return p.analyzer.Analyze(m, handler)
}

// decodeAnnotations decodes m's handler annotations. It registers m as a
// call-graph root if any is present and returns the OnMethod under
// construction, if m has one.
func (p *pass) decodeAnnotations(m *unit.Method) (bool, *probe.OnMethod, error) {
	var (
		handler bool
		om      *probe.OnMethod
	)

	for i := range m.Annotations {
		ann, err := decodeMethodAnnotation(&m.Annotations[i])
		if ann == nil && err == nil {
			continue
		}

		if !handler {
			handler = true
			p.graph.AddRoot(methodcheck.NodeID(p.unit.Name, m.Name, m.Desc))
		}

		switch ann := ann.(type) {
		case onMethodAnnotation:
			om = probe.NewOnMethod(m.Name, m.Desc)
			om.Clazz = ann.clazz
			om.Method = ann.method
			om.Type = ann.typ
			om.Location = ann.location
		case onProbeAnnotation:
			p.result.OnProbes = append(p.result.OnProbes, probe.OnProbe{
				TargetName:       m.Name,
				TargetDescriptor: m.Desc,
				Namespace:        ann.namespace,
				Name:             ann.name,
			})
		}

		if err != nil {
			detail := fmt.Sprintf("%s: %v", m.ID(), err)
			if err := p.report(diag.AnnotationPlacementViolation, diag.CodeAnnotationValue, detail); err != nil {
				return handler, om, err
			}
		}
	}

	return handler, om, nil
}

// bindParameters applies parameter role annotations to om.
func (p *pass) bindParameters(m *unit.Method, om *probe.OnMethod) error {
	for idx, anns := range m.ParamAnnotations {
		for i := range anns {
			b, ok := decodeParamAnnotation(&anns[i], idx)
			if !ok {
				continue
			}
			code, ok := applyParamBinding(om, b)
			if ok {
				continue
			}
			detail := fmt.Sprintf("%s(%d)", m.ID(), idx)
			if err := p.report(diag.AnnotationPlacementViolation, code, detail); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *pass) checkCycles() error {
	path := p.graph.FindCycle(p.verifier.cyclePolicy)
	if path == nil {
		return nil
	}
	return p.report(diag.ExecutionLoopDanger, diag.CodeExecutionLoopDanger, strings.Join(path, " -> "))
}
