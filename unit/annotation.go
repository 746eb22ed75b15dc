package unit

// Annotation is a declarative annotation attached to a unit, method or parameter.
type Annotation struct {
	// Type is the annotation type descriptor, e.g. "Lnet/java/btrace/annotations/OnMethod;".
	Type     string
	Elements []Element
	Visible  bool
}

// Element is a single name=value pair of an annotation.
type Element struct {
	Name  string
	Value Value
}

// Get returns the value of the named element.
func (a *Annotation) Get(name string) (Value, bool) {
	for _, e := range a.Elements {
		if e.Name == name {
			return e.Value, true
		}
	}
	return nil, false
}

// StringValue returns the named element as a string constant.
func (a *Annotation) StringValue(name string) (string, bool) {
	v, ok := a.Get(name)
	if !ok {
		return "", false
	}
	s, ok := v.(String)
	return string(s), ok
}

// Value is an annotation element value.
type Value interface {
	elementValue() // marker
}

// String is a string constant.
type String string

// Int is a byte, short or int constant.
type Int int32

// Long is a long constant.
type Long int64

// Float is a float constant.
type Float float32

// Double is a double constant.
type Double float64

// Bool is a boolean constant.
type Bool bool

// Char is a char constant.
type Char uint16

// Enum is an enum constant.
type Enum struct {
	Type  string // enum type descriptor
	Const string
}

// ClassRef is a class literal, held as a return descriptor.
type ClassRef string

// Array is an array of values.
type Array []Value

func (String) elementValue()      {}
func (Int) elementValue()         {}
func (Long) elementValue()        {}
func (Float) elementValue()       {}
func (Double) elementValue()      {}
func (Bool) elementValue()        {}
func (Char) elementValue()        {}
func (Enum) elementValue()        {}
func (ClassRef) elementValue()    {}
func (Array) elementValue()       {}
func (*Annotation) elementValue() {}
