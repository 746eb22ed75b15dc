package classfile

import (
	"fmt"
	"math"
	"unicode/utf16"
)

// Constant pool tags.
const (
	tagUtf8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

type constant struct {
	tag  uint8
	a, b uint16 // referenced indices
	str  string // Utf8
	bits uint64 // Integer, Float, Long, Double
}

// constPool is indexed from 1; slot 0 and the slot after a Long or Double are empty.
type constPool []constant

func readConstPool(r *reader) (constPool, error) {
	count := int(r.u2())
	pool := make(constPool, count)

	for i := 1; i < count; i++ {
		c := constant{tag: r.u1()}

		switch c.tag {
		case tagUtf8:
			n := int(r.u2())
			c.str = decodeModifiedUTF8(r.take(n))
		case tagInteger, tagFloat:
			c.bits = uint64(r.u4())
		case tagLong, tagDouble:
			c.bits = r.u8()
		case tagClass, tagString, tagMethodType, tagModule, tagPackage:
			c.a = r.u2()
		case tagFieldref, tagMethodref, tagInterfaceMethodref, tagNameAndType, tagDynamic, tagInvokeDynamic:
			c.a = r.u2()
			c.b = r.u2()
		case tagMethodHandle:
			c.a = uint16(r.u1())
			c.b = r.u2()
		default:
			if r.err != nil {
				return nil, r.err
			}
			return nil, fmt.Errorf("%w: constant #%d has unknown tag %d", ErrMalformed, i, c.tag)
		}

		if r.err != nil {
			return nil, r.err
		}
		pool[i] = c

		if c.tag == tagLong || c.tag == tagDouble {
			i++
		}
	}

	return pool, nil
}

func (p constPool) entry(i uint16, tag uint8) (constant, error) {
	if i == 0 || int(i) >= len(p) || p[i].tag != tag {
		return constant{}, fmt.Errorf("%w: constant #%d is not of tag %d", ErrMalformed, i, tag)
	}
	return p[i], nil
}

func (p constPool) utf8(i uint16) (string, error) {
	c, err := p.entry(i, tagUtf8)
	return c.str, err
}

func (p constPool) className(i uint16) (string, error) {
	c, err := p.entry(i, tagClass)
	if err != nil {
		return "", err
	}
	return p.utf8(c.a)
}

// optionalClassName resolves a class index that may be zero.
func (p constPool) optionalClassName(i uint16) (string, error) {
	if i == 0 {
		return "", nil
	}
	return p.className(i)
}

func (p constPool) nameAndType(i uint16) (name, desc string, err error) {
	c, err := p.entry(i, tagNameAndType)
	if err != nil {
		return "", "", err
	}
	if name, err = p.utf8(c.a); err != nil {
		return "", "", err
	}
	desc, err = p.utf8(c.b)
	return name, desc, err
}

// memberRef resolves a Fieldref, Methodref or InterfaceMethodref.
func (p constPool) memberRef(i uint16) (owner, name, desc string, err error) {
	if i == 0 || int(i) >= len(p) {
		return "", "", "", fmt.Errorf("%w: member reference #%d out of range", ErrMalformed, i)
	}
	c := p[i]
	switch c.tag {
	case tagFieldref, tagMethodref, tagInterfaceMethodref:
	default:
		return "", "", "", fmt.Errorf("%w: constant #%d is not a member reference", ErrMalformed, i)
	}
	if owner, err = p.className(c.a); err != nil {
		return "", "", "", err
	}
	name, desc, err = p.nameAndType(c.b)
	return owner, name, desc, err
}

// dynamicRef resolves an InvokeDynamic constant to its name and descriptor.
func (p constPool) dynamicRef(i uint16) (name, desc string, err error) {
	c, err := p.entry(i, tagInvokeDynamic)
	if err != nil {
		return "", "", err
	}
	return p.nameAndType(c.b)
}

func (p constPool) integer(i uint16) (int32, error) {
	c, err := p.entry(i, tagInteger)
	return int32(uint32(c.bits)), err
}

func (p constPool) long(i uint16) (int64, error) {
	c, err := p.entry(i, tagLong)
	return int64(c.bits), err
}

func (p constPool) float(i uint16) (float32, error) {
	c, err := p.entry(i, tagFloat)
	return math.Float32frombits(uint32(c.bits)), err
}

func (p constPool) double(i uint16) (float64, error) {
	c, err := p.entry(i, tagDouble)
	return math.Float64frombits(c.bits), err
}

// decodeModifiedUTF8 decodes the class file string encoding: UTF-8 with
// NUL as two bytes and supplementary characters as surrogate pairs.
func decodeModifiedUTF8(b []byte) string {
	units := make([]uint16, 0, len(b))
	for i := 0; i < len(b); {
		c := b[i]
		switch {
		case c < 0x80:
			units = append(units, uint16(c))
			i++
		case c&0xe0 == 0xc0 && i+1 < len(b):
			units = append(units, uint16(c&0x1f)<<6|uint16(b[i+1]&0x3f))
			i += 2
		case c&0xf0 == 0xe0 && i+2 < len(b):
			units = append(units, uint16(c&0x0f)<<12|uint16(b[i+1]&0x3f)<<6|uint16(b[i+2]&0x3f))
			i += 3
		default:
			units = append(units, 0xfffd)
			i++
		}
	}
	return string(utf16.Decode(units))
}
