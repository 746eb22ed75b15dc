// Package diag defines verification diagnostics and the strict/lenient reporting policy.
package diag

import "strings"

// Kind classifies a diagnostic.
type Kind string

// Diagnostic kinds.
const (
	StructuralViolation          Kind = "StructuralViolation"
	FieldViolation               Kind = "FieldViolation"
	MethodViolation              Kind = "MethodViolation"
	AnnotationPlacementViolation Kind = "AnnotationPlacementViolation"
	NestedUnitViolation          Kind = "NestedUnitViolation"
	OuterUnitViolation           Kind = "OuterUnitViolation"
	ExecutionLoopDanger          Kind = "ExecutionLoopDanger"
	CallTargetViolation          Kind = "CallTargetViolation"
)

// AllKinds returns every diagnostic kind.
func AllKinds() []Kind {
	return []Kind{
		StructuralViolation,
		FieldViolation,
		MethodViolation,
		AnnotationPlacementViolation,
		NestedUnitViolation,
		OuterUnitViolation,
		ExecutionLoopDanger,
		CallTargetViolation,
	}
}

// Diagnostic codes. The message catalog resolves them to human text.
const (
	CodeShouldBeClass          = "btrace.program.should.be.class"
	CodeClassShouldBePublic    = "class.should.be.public"
	CodeSuperclassRequired     = "object.superclass.required"
	CodeNoInterface            = "no.interface.implementation"
	CodeNotAProgram            = "not.a.btrace.program"
	CodeNoNestedClass          = "no.nested.class"
	CodeNoOuterClass           = "no.outer.class"
	CodeNoInstanceVariables    = "agent.no.instance.variables"
	CodeNoSynchronizedMethods  = "no.synchronized.methods"
	CodeNoInstanceMethod       = "no.instance.method"
	CodeMethodShouldBePublic   = "method.should.be.public"
	CodeReturnTypeShouldBeVoid = "return.type.should.be.void"
	CodeNoSynchronizedBlocks   = "no.synchronized.blocks"
	CodeNoThrow                = "no.throw"
	CodeNoLoops                = "no.loops"
	CodeNoCatch                = "no.catch"
	CodeNoInvokeDynamic        = "no.invokedynamic"
	CodeReturnDescInvalid      = "return.desc.invalid"
	CodeCalledMethodInvalid    = "called-method.desc.invalid"
	CodeCalledInstanceInvalid  = "called-instance.desc.invalid"
	CodeDurationDescInvalid    = "duration.desc.invalid"
	CodeAnnotationValue        = "annotation.value.invalid"
	CodeExecutionLoopDanger    = "execution.loop.danger"
	CodeMethodCallNotAllowed   = "method.call.not.allowed"
)

// Diagnostic is a single verification violation.
type Diagnostic struct {
	Kind   Kind
	Code   string
	Detail string // offending name or signature; may be empty
}

// New creates a diagnostic.
func New(kind Kind, code, detail string) *Diagnostic {
	return &Diagnostic{Kind: kind, Code: code, Detail: detail}
}

func (d *Diagnostic) Error() string {
	var b strings.Builder
	b.WriteString(string(d.Kind))
	b.WriteString(": ")
	b.WriteString(d.Code)
	if d.Detail != "" {
		b.WriteString(": ")
		b.WriteString(d.Detail)
	}
	return b.String()
}
