package unit

import "strings"

// RootObject is the canonical root type every unit must extend.
const RootObject = "java/lang/Object"

// Special method names.
const (
	Constructor      = "<init>"
	ClassInitializer = "<clinit>"
)

// Access is a set of access and property flags.
type Access uint16

// Access flags shared by units, fields and methods.
// Some bits carry different meanings depending on where they appear.
const (
	AccPublic       Access = 0x0001
	AccPrivate      Access = 0x0002
	AccProtected    Access = 0x0004
	AccStatic       Access = 0x0008
	AccFinal        Access = 0x0010
	AccSuper        Access = 0x0020 // units
	AccSynchronized Access = 0x0020 // methods
	AccVolatile     Access = 0x0040 // fields
	AccBridge       Access = 0x0040 // methods
	AccVarargs      Access = 0x0080
	AccNative       Access = 0x0100
	AccInterface    Access = 0x0200
	AccAbstract     Access = 0x0400
	AccSynthetic    Access = 0x1000
	AccAnnotation   Access = 0x2000
	AccEnum         Access = 0x4000
)

// Has reports whether all bits of flag are set.
func (a Access) Has(flag Access) bool {
	return a&flag == flag
}

// Unit is a class-like program unit.
type Unit struct {
	Name        string
	Super       string
	Interfaces  []string
	Access      Access
	Annotations []Annotation

	// InnerClasses lists every nesting relation the unit declares,
	// including the one describing the unit itself if it is nested.
	InnerClasses []InnerClass

	// EnclosingClass is set when the unit declares an enclosing unit
	// (local or anonymous classes).
	EnclosingClass string

	Fields  []Field
	Methods []Method
}

// InnerClass describes one nesting relation.
type InnerClass struct {
	Inner     string
	Outer     string // empty for local and anonymous classes
	InnerName string
	Access    Access
}

// Field is a field declaration.
type Field struct {
	Name   string
	Desc   string
	Access Access
}

// Method is a method declaration.
type Method struct {
	Name   string
	Desc   string
	Access Access

	Annotations []Annotation

	// ParamAnnotations holds the annotations of each parameter, indexed by
	// parameter position. It may be shorter than the parameter list.
	ParamAnnotations [][]Annotation

	Body []Instruction

	// ExceptionHandlers is the number of exception table entries.
	ExceptionHandlers int
}

// ID returns the name+descriptor pair identifying the method within its unit.
func (m *Method) ID() string {
	return m.Name + m.Desc
}

// ReturnsVoid reports whether the method descriptor declares a void return.
func (m *Method) ReturnsVoid() bool {
	return strings.HasSuffix(m.Desc, ")V")
}

// IsInitializer reports whether the method is the unit's instance or static initializer.
func (m *Method) IsInitializer() bool {
	return m.Name == Constructor || m.Name == ClassInitializer
}

// Annotation returns the first annotation with the given type descriptor.
func (u *Unit) Annotation(desc string) (*Annotation, bool) {
	return findAnnotation(u.Annotations, desc)
}

// Annotation returns the first method annotation with the given type descriptor.
func (m *Method) Annotation(desc string) (*Annotation, bool) {
	return findAnnotation(m.Annotations, desc)
}

func findAnnotation(anns []Annotation, desc string) (*Annotation, bool) {
	for i := range anns {
		if anns[i].Type == desc {
			return &anns[i], true
		}
	}
	return nil, false
}

// DottedName converts an internal name to its dotted form.
func DottedName(internal string) string {
	return strings.ReplaceAll(internal, "/", ".")
}

// InternalName converts a dotted name to its internal form.
func InternalName(dotted string) string {
	return strings.ReplaceAll(dotted, ".", "/")
}
