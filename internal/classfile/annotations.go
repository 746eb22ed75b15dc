package classfile

import (
	"fmt"

	"github.com/mpyw/probeguard/unit"
)

// maxAnnotationDepth bounds nested annotation and array values.
const maxAnnotationDepth = 32

func (d *decoder) annotations(r *reader, visible bool) ([]unit.Annotation, error) {
	var anns []unit.Annotation
	for n := r.u2(); n > 0 && r.err == nil; n-- {
		a, err := d.annotation(r, 0)
		if err != nil {
			return anns, err
		}
		a.Visible = visible
		anns = append(anns, *a)
	}
	return anns, nil
}

func (d *decoder) parameterAnnotations(m *unit.Method, r *reader, visible bool) error {
	count := int(r.u1())
	if len(m.ParamAnnotations) < count {
		grown := make([][]unit.Annotation, count)
		copy(grown, m.ParamAnnotations)
		m.ParamAnnotations = grown
	}

	for i := 0; i < count && r.err == nil; i++ {
		anns, err := d.annotations(r, visible)
		if err != nil {
			return fmt.Errorf("parameter %d: %w", i, err)
		}
		m.ParamAnnotations[i] = append(m.ParamAnnotations[i], anns...)
	}
	return nil
}

func (d *decoder) annotation(r *reader, depth int) (*unit.Annotation, error) {
	typ, err := d.pool.utf8(r.u2())
	if err != nil {
		return nil, err
	}

	a := &unit.Annotation{Type: typ}
	for n := r.u2(); n > 0 && r.err == nil; n-- {
		name, err := d.pool.utf8(r.u2())
		if err != nil {
			return nil, err
		}
		v, err := d.elementValue(r, depth)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", typ, name, err)
		}
		a.Elements = append(a.Elements, unit.Element{Name: name, Value: v})
	}
	return a, r.err
}

func (d *decoder) elementValue(r *reader, depth int) (unit.Value, error) {
	if depth > maxAnnotationDepth {
		return nil, fmt.Errorf("%w: annotation values nested too deeply", ErrMalformed)
	}

	tag := r.u1()
	if r.err != nil {
		return nil, r.err
	}

	switch tag {
	case 'B', 'S', 'I':
		v, err := d.pool.integer(r.u2())
		return unit.Int(v), err
	case 'C':
		v, err := d.pool.integer(r.u2())
		return unit.Char(v), err
	case 'Z':
		v, err := d.pool.integer(r.u2())
		return unit.Bool(v != 0), err
	case 'J':
		v, err := d.pool.long(r.u2())
		return unit.Long(v), err
	case 'F':
		v, err := d.pool.float(r.u2())
		return unit.Float(v), err
	case 'D':
		v, err := d.pool.double(r.u2())
		return unit.Double(v), err
	case 's':
		v, err := d.pool.utf8(r.u2())
		return unit.String(v), err
	case 'e':
		typ, err := d.pool.utf8(r.u2())
		if err != nil {
			return nil, err
		}
		c, err := d.pool.utf8(r.u2())
		return unit.Enum{Type: typ, Const: c}, err
	case 'c':
		v, err := d.pool.utf8(r.u2())
		return unit.ClassRef(v), err
	case '@':
		return d.annotation(r, depth+1)
	case '[':
		n := int(r.u2())
		arr := make(unit.Array, 0, min(n, r.remaining()))
		for i := 0; i < n && r.err == nil; i++ {
			v, err := d.elementValue(r, depth+1)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
		return arr, r.err
	}

	return nil, fmt.Errorf("%w: unknown element value tag %q", ErrMalformed, tag)
}
