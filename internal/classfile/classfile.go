// Package classfile decodes JVM class files into program units.
//
// Only the parts the verifier inspects are decoded: the header, field and
// method declarations, annotations, nesting attributes, and the instruction
// stream of method bodies. Everything else is skipped.
package classfile

import (
	"errors"
	"fmt"
	"os"

	"github.com/mpyw/probeguard/unit"
)

// Magic is the class file signature.
const Magic = 0xCAFEBABE

var (
	// ErrBadMagic is returned when the input does not start with the class file signature.
	ErrBadMagic = errors.New("not a class file")
	// ErrTruncated is returned when the input ends inside a structure.
	ErrTruncated = errors.New("truncated class file")
	// ErrMalformed is returned for structurally invalid content.
	ErrMalformed = errors.New("malformed class file")
)

// Attribute names.
const (
	attrCode                                 = "Code"
	attrInnerClasses                         = "InnerClasses"
	attrEnclosingMethod                      = "EnclosingMethod"
	attrRuntimeVisibleAnnotations            = "RuntimeVisibleAnnotations"
	attrRuntimeInvisibleAnnotations          = "RuntimeInvisibleAnnotations"
	attrRuntimeVisibleParameterAnnotations   = "RuntimeVisibleParameterAnnotations"
	attrRuntimeInvisibleParameterAnnotations = "RuntimeInvisibleParameterAnnotations"
)

// ParseFile reads and decodes the class file at path.
func ParseFile(path string) (*unit.Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read class file: %w", err)
	}

	u, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return u, nil
}

// Parse decodes a class file.
func Parse(data []byte) (*unit.Unit, error) {
	d := &decoder{r: newReader(data)}
	u, err := d.decode()
	if err != nil {
		return nil, err
	}
	return u, nil
}

type decoder struct {
	r    *reader
	pool constPool
}

func (d *decoder) decode() (*unit.Unit, error) {
	r := d.r

	if r.u4() != Magic {
		return nil, ErrBadMagic
	}
	r.u2() // minor_version
	r.u2() // major_version

	pool, err := readConstPool(r)
	if err != nil {
		return nil, err
	}
	d.pool = pool

	u := &unit.Unit{Access: unit.Access(r.u2())}

	if u.Name, err = pool.className(r.u2()); err != nil {
		return nil, d.fail(err)
	}
	if u.Super, err = pool.optionalClassName(r.u2()); err != nil {
		return nil, d.fail(err)
	}

	for n := r.u2(); n > 0 && r.err == nil; n-- {
		iface, err := pool.className(r.u2())
		if err != nil {
			return nil, d.fail(err)
		}
		u.Interfaces = append(u.Interfaces, iface)
	}

	for n := r.u2(); n > 0 && r.err == nil; n-- {
		f, err := d.field()
		if err != nil {
			return nil, err
		}
		u.Fields = append(u.Fields, f)
	}

	for n := r.u2(); n > 0 && r.err == nil; n-- {
		m, err := d.method()
		if err != nil {
			return nil, err
		}
		u.Methods = append(u.Methods, m)
	}

	if err := d.unitAttributes(u); err != nil {
		return nil, err
	}

	if r.err != nil {
		return nil, r.err
	}
	return u, nil
}

// fail prefers the latched read error, which explains a bogus index.
func (d *decoder) fail(err error) error {
	if d.r.err != nil {
		return d.r.err
	}
	return err
}

// member reads the access, name and descriptor shared by fields and methods.
func (d *decoder) member() (unit.Access, string, string, error) {
	access := unit.Access(d.r.u2())
	name, err := d.pool.utf8(d.r.u2())
	if err != nil {
		return 0, "", "", d.fail(err)
	}
	desc, err := d.pool.utf8(d.r.u2())
	if err != nil {
		return 0, "", "", d.fail(err)
	}
	return access, name, desc, nil
}

// attributes iterates attributes, handing each named body to fn.
func (d *decoder) attributes(fn func(name string, body *reader) error) error {
	for n := d.r.u2(); n > 0 && d.r.err == nil; n-- {
		name, err := d.pool.utf8(d.r.u2())
		if err != nil {
			return d.fail(err)
		}
		length := int(d.r.u4())
		data := d.r.take(length)
		if d.r.err != nil {
			return d.r.err
		}

		body := newReader(data)
		if err := fn(name, body); err != nil {
			return fmt.Errorf("attribute %s: %w", name, err)
		}
		if body.err != nil {
			return fmt.Errorf("attribute %s: %w", name, body.err)
		}
	}
	return d.r.err
}

func (d *decoder) field() (unit.Field, error) {
	access, name, desc, err := d.member()
	if err != nil {
		return unit.Field{}, err
	}
	f := unit.Field{Name: name, Desc: desc, Access: access}
	return f, d.attributes(func(string, *reader) error { return nil })
}

func (d *decoder) method() (unit.Method, error) {
	access, name, desc, err := d.member()
	if err != nil {
		return unit.Method{}, err
	}
	m := unit.Method{Name: name, Desc: desc, Access: access}

	err = d.attributes(func(attr string, body *reader) error {
		switch attr {
		case attrCode:
			return d.code(&m, body)
		case attrRuntimeVisibleAnnotations, attrRuntimeInvisibleAnnotations:
			anns, err := d.annotations(body, attr == attrRuntimeVisibleAnnotations)
			m.Annotations = append(m.Annotations, anns...)
			return err
		case attrRuntimeVisibleParameterAnnotations, attrRuntimeInvisibleParameterAnnotations:
			return d.parameterAnnotations(&m, body, attr == attrRuntimeVisibleParameterAnnotations)
		}
		return nil
	})
	if err != nil {
		return unit.Method{}, fmt.Errorf("method %s%s: %w", name, desc, err)
	}
	return m, nil
}

func (d *decoder) unitAttributes(u *unit.Unit) error {
	return d.attributes(func(attr string, body *reader) error {
		switch attr {
		case attrRuntimeVisibleAnnotations, attrRuntimeInvisibleAnnotations:
			anns, err := d.annotations(body, attr == attrRuntimeVisibleAnnotations)
			u.Annotations = append(u.Annotations, anns...)
			return err

		case attrInnerClasses:
			for n := body.u2(); n > 0 && body.err == nil; n-- {
				inner, err := d.pool.optionalClassName(body.u2())
				if err != nil {
					return err
				}
				outer, err := d.pool.optionalClassName(body.u2())
				if err != nil {
					return err
				}
				var innerName string
				if i := body.u2(); i != 0 {
					if innerName, err = d.pool.utf8(i); err != nil {
						return err
					}
				}
				u.InnerClasses = append(u.InnerClasses, unit.InnerClass{
					Inner:     inner,
					Outer:     outer,
					InnerName: innerName,
					Access:    unit.Access(body.u2()),
				})
			}

		case attrEnclosingMethod:
			outer, err := d.pool.className(body.u2())
			if err != nil {
				return err
			}
			u.EnclosingClass = outer
		}
		return nil
	})
}
