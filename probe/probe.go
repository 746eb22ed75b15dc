package probe

// Location describes where a handler attaches relative to a target operation.
type Location struct {
	Kind  Kind
	Where Where

	// Clazz, Method, Type and Field narrow the target operation
	// (e.g. the callee of a CALL or the field of a FIELD_GET).
	Clazz  string
	Method string
	Type   string
	Field  string

	// Line is the source line for LINE locations; zero when unset.
	Line int
}

// CanBindReturn reports whether a return-value parameter is meaningful here.
func (l Location) CanBindReturn() bool {
	if l.Kind == KindReturn {
		return true
	}
	if l.Where != After {
		return false
	}
	switch l.Kind {
	case KindCall, KindArrayGet, KindFieldGet, KindNew, KindNewArray:
		return true
	}
	return false
}

// CanBindTargetMember reports whether a target-method-or-field parameter is meaningful here.
func (l Location) CanBindTargetMember() bool {
	switch l.Kind {
	case KindCall, KindFieldGet, KindFieldSet:
		return true
	}
	return false
}

// CanBindTargetInstance reports whether a target-instance parameter is meaningful here.
func (l Location) CanBindTargetInstance() bool {
	return l.CanBindTargetMember()
}

// CanBindDuration reports whether a duration parameter is meaningful here.
func (l Location) CanBindDuration() bool {
	return l.Kind == KindReturn || l.Kind == KindError
}

// Unbound marks a parameter role that no parameter fills.
const Unbound = -1

// OnMethod binds a handler method to a probe point in the target program.
type OnMethod struct {
	// TargetName and TargetDescriptor identify the handler method.
	TargetName       string
	TargetDescriptor string

	// Clazz, Method and Type select the probed method in the target program.
	Clazz  string
	Method string
	Type   string

	Location Location

	SelfParameter                int
	ReturnParameter              int
	TargetMethodOrFieldParameter int
	TargetMethodOrFieldFqn       bool
	TargetInstanceParameter      int
	DurationParameter            int
	ClassNameParameter           int
	MethodParameter              int
	MethodFqn                    bool
}

// NewOnMethod returns an OnMethod for the given handler with every
// parameter role unbound and the default ENTRY/BEFORE location.
func NewOnMethod(name, desc string) *OnMethod {
	return &OnMethod{
		TargetName:                   name,
		TargetDescriptor:             desc,
		Location:                     Location{Kind: KindEntry, Where: Before},
		SelfParameter:                Unbound,
		ReturnParameter:              Unbound,
		TargetMethodOrFieldParameter: Unbound,
		TargetInstanceParameter:      Unbound,
		DurationParameter:            Unbound,
		ClassNameParameter:           Unbound,
		MethodParameter:              Unbound,
	}
}

// OnProbe binds a handler method to a named probe in a namespace.
type OnProbe struct {
	TargetName       string
	TargetDescriptor string
	Namespace        string
	Name             string
}
