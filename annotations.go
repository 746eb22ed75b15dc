package probeguard

import (
	"fmt"
	"strings"

	"github.com/mpyw/probeguard/internal/diag"
	"github.com/mpyw/probeguard/probe"
	"github.com/mpyw/probeguard/unit"
)

// Annotation type descriptors recognized by the verifier.
const (
	annotationPackage = "Lnet/java/btrace/annotations/"

	descBTrace   = annotationPackage + "BTrace;"
	descOnMethod = annotationPackage + "OnMethod;"
	descOnProbe  = annotationPackage + "OnProbe;"
	descLocation = annotationPackage + "Location;"

	descSelf                = annotationPackage + "Self;"
	descReturn              = annotationPackage + "Return;"
	descTargetMethodOrField = annotationPackage + "TargetMethodOrField;"
	descTargetInstance      = annotationPackage + "TargetInstance;"
	descDuration            = annotationPackage + "Duration;"
	descProbeClassName      = annotationPackage + "ProbeClassName;"
	descProbeMethodName     = annotationPackage + "ProbeMethodName;"
)

// isHandlerAnnotation reports whether a method annotation marks a handler entry.
func isHandlerAnnotation(a *unit.Annotation) bool {
	return strings.HasPrefix(a.Type, annotationPackage)
}

// methodAnnotation is the closed set of decoded method-level annotations.
type methodAnnotation interface {
	methodAnnotation() // marker
}

// onMethodAnnotation binds the handler to a probed method.
type onMethodAnnotation struct {
	clazz    string
	method   string
	typ      string
	location probe.Location
}

// onProbeAnnotation binds the handler to a named probe.
type onProbeAnnotation struct {
	namespace string
	name      string
}

// plainHandlerAnnotation marks a handler that carries no binding metadata
// (timers, events, exit hooks and the like).
type plainHandlerAnnotation struct{}

func (onMethodAnnotation) methodAnnotation()     {}
func (onProbeAnnotation) methodAnnotation()      {}
func (plainHandlerAnnotation) methodAnnotation() {}

// decodeMethodAnnotation decodes a handler annotation. It returns nil for
// annotations outside the handler package. On a decoding error the
// partially decoded annotation is still returned.
func decodeMethodAnnotation(a *unit.Annotation) (methodAnnotation, error) {
	switch {
	case a.Type == descOnMethod:
		return decodeOnMethod(a)
	case a.Type == descOnProbe:
		ann := onProbeAnnotation{}
		ann.namespace, _ = a.StringValue("namespace")
		ann.name, _ = a.StringValue("name")
		return ann, nil
	case isHandlerAnnotation(a):
		return plainHandlerAnnotation{}, nil
	}
	return nil, nil
}

func decodeOnMethod(a *unit.Annotation) (onMethodAnnotation, error) {
	ann := onMethodAnnotation{
		location: probe.Location{Kind: probe.KindEntry, Where: probe.Before},
	}
	ann.clazz, _ = a.StringValue("clazz")
	ann.method, _ = a.StringValue("method")
	ann.typ, _ = a.StringValue("type")

	v, ok := a.Get("location")
	if !ok {
		return ann, nil
	}
	nested, ok := v.(*unit.Annotation)
	if !ok || nested.Type != descLocation {
		return ann, fmt.Errorf("location: unexpected value %T", v)
	}

	loc, err := decodeLocation(nested)
	ann.location = loc
	return ann, err
}

// decodeLocation decodes a @Location annotation, keeping every element it
// could decode when returning an error.
func decodeLocation(a *unit.Annotation) (probe.Location, error) {
	loc := probe.Location{Kind: probe.KindEntry, Where: probe.Before}
	var firstErr error

	for _, e := range a.Elements {
		var err error

		switch e.Name {
		case "value":
			err = decodeEnum(e.Value, func(c string) error {
				k, err := probe.ParseKind(c)
				loc.Kind = k
				return err
			})
		case "where":
			err = decodeEnum(e.Value, func(c string) error {
				w, err := probe.ParseWhere(c)
				loc.Where = w
				return err
			})
		case "clazz":
			loc.Clazz = stringOf(e.Value)
		case "method":
			loc.Method = stringOf(e.Value)
		case "type":
			loc.Type = stringOf(e.Value)
		case "field":
			loc.Field = stringOf(e.Value)
		case "line":
			if n, ok := e.Value.(unit.Int); ok {
				loc.Line = int(n)
			}
		}

		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("location.%s: %w", e.Name, err)
		}
	}

	// Failed enum elements were left at their zero values, ENTRY and BEFORE.
	return loc, firstErr
}

func decodeEnum(v unit.Value, parse func(string) error) error {
	e, ok := v.(unit.Enum)
	if !ok {
		return fmt.Errorf("expected enum constant, got %T", v)
	}
	return parse(e.Const)
}

func stringOf(v unit.Value) string {
	s, _ := v.(unit.String)
	return string(s)
}

// paramRole is the role a handler parameter is bound to.
type paramRole int

const (
	roleSelf paramRole = iota
	roleReturn
	roleTargetMember
	roleTargetInstance
	roleDuration
	roleClassName
	roleMethodName
)

// paramBinding is a typed partial update of an OnMethod.
type paramBinding struct {
	role  paramRole
	index int
	fqn   bool
}

var paramRoles = map[string]paramRole{
	descSelf:                roleSelf,
	descReturn:              roleReturn,
	descTargetMethodOrField: roleTargetMember,
	descTargetInstance:      roleTargetInstance,
	descDuration:            roleDuration,
	descProbeClassName:      roleClassName,
	descProbeMethodName:     roleMethodName,
}

// decodeParamAnnotation decodes a parameter annotation at index.
// ok is false for annotations that bind no role.
func decodeParamAnnotation(a *unit.Annotation, index int) (paramBinding, bool) {
	role, ok := paramRoles[a.Type]
	if !ok {
		return paramBinding{}, false
	}

	b := paramBinding{role: role, index: index}
	if v, ok := a.Get("fqn"); ok {
		if fqn, ok := v.(unit.Bool); ok {
			b.fqn = bool(fqn)
		}
	}
	return b, true
}

// applyParamBinding applies b to om if om's location allows the role.
// It returns the violation code when the placement is illegal.
func applyParamBinding(om *probe.OnMethod, b paramBinding) (string, bool) {
	loc := om.Location

	switch b.role {
	case roleSelf:
		om.SelfParameter = b.index
	case roleClassName:
		om.ClassNameParameter = b.index
	case roleMethodName:
		om.MethodParameter = b.index
		om.MethodFqn = b.fqn
	case roleReturn:
		if !loc.CanBindReturn() {
			return diag.CodeReturnDescInvalid, false
		}
		om.ReturnParameter = b.index
	case roleTargetMember:
		if !loc.CanBindTargetMember() {
			return diag.CodeCalledMethodInvalid, false
		}
		om.TargetMethodOrFieldParameter = b.index
		om.TargetMethodOrFieldFqn = b.fqn
	case roleTargetInstance:
		if !loc.CanBindTargetInstance() {
			return diag.CodeCalledInstanceInvalid, false
		}
		om.TargetInstanceParameter = b.index
	case roleDuration:
		if !loc.CanBindDuration() {
			return diag.CodeDurationDescInvalid, false
		}
		om.DurationParameter = b.index
	}

	return "", true
}
