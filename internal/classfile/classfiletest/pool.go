package classfiletest

import (
	"encoding/binary"
	"math"
)

const (
	tagUtf8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagInvokeDynamic      = 18
)

type poolKey struct {
	tag  uint8
	s    string
	a, b uint16
	bits uint64
}

// pool interns constants in insertion order.
type pool struct {
	index map[poolKey]uint16
	data  []byte
	next  uint16
}

func newPool() *pool {
	return &pool{index: make(map[poolKey]uint16), next: 1}
}

func (p *pool) intern(k poolKey, encode func([]byte) []byte) uint16 {
	if i, ok := p.index[k]; ok {
		return i
	}
	i := p.next
	p.index[k] = i
	p.data = encode(append(p.data, k.tag))
	p.next++
	if k.tag == tagLong || k.tag == tagDouble {
		p.next++
	}
	return i
}

func (p *pool) utf8(s string) uint16 {
	return p.intern(poolKey{tag: tagUtf8, s: s}, func(b []byte) []byte {
		enc := encodeModifiedUTF8(s)
		return append(u2(b, len(enc)), enc...)
	})
}

func (p *pool) class(name string) uint16 {
	n := p.utf8(name)
	return p.intern(poolKey{tag: tagClass, a: n}, func(b []byte) []byte {
		return u2(b, n)
	})
}

func (p *pool) optionalClass(name string) uint16 {
	if name == "" {
		return 0
	}
	return p.class(name)
}

func (p *pool) nameAndType(name, desc string) uint16 {
	n, d := p.utf8(name), p.utf8(desc)
	return p.intern(poolKey{tag: tagNameAndType, a: n, b: d}, func(b []byte) []byte {
		return u2(u2(b, n), d)
	})
}

func (p *pool) member(tag uint8, owner, name, desc string) uint16 {
	c, nt := p.class(owner), p.nameAndType(name, desc)
	return p.intern(poolKey{tag: tag, a: c, b: nt}, func(b []byte) []byte {
		return u2(u2(b, c), nt)
	})
}

func (p *pool) invokeDynamic(name, desc string) uint16 {
	nt := p.nameAndType(name, desc)
	return p.intern(poolKey{tag: tagInvokeDynamic, b: nt}, func(b []byte) []byte {
		return u2(u2(b, 0), nt)
	})
}

func (p *pool) integer(v int32) uint16 {
	return p.intern(poolKey{tag: tagInteger, bits: uint64(uint32(v))}, func(b []byte) []byte {
		return binary.BigEndian.AppendUint32(b, uint32(v))
	})
}

func (p *pool) float(v float32) uint16 {
	bits := math.Float32bits(v)
	return p.intern(poolKey{tag: tagFloat, bits: uint64(bits)}, func(b []byte) []byte {
		return binary.BigEndian.AppendUint32(b, bits)
	})
}

func (p *pool) wide(tag uint8, bits uint64) uint16 {
	return p.intern(poolKey{tag: tag, bits: bits}, func(b []byte) []byte {
		return binary.BigEndian.AppendUint64(b, bits)
	})
}

// bytes returns constant_pool_count followed by the entries.
func (p *pool) bytes() []byte {
	return append(u2(nil, p.next), p.data...)
}

func encodeModifiedUTF8(s string) []byte {
	var out []byte
	for _, r := range s {
		switch {
		case r != 0 && r < 0x80:
			out = append(out, byte(r))
		case r < 0x800:
			out = append(out, 0xc0|byte(r>>6), 0x80|byte(r&0x3f))
		case r < 0x10000:
			out = append(out, 0xe0|byte(r>>12), 0x80|byte(r>>6&0x3f), 0x80|byte(r&0x3f))
		default:
			r -= 0x10000
			for _, u := range []rune{0xd800 + r>>10, 0xdc00 + r&0x3ff} {
				out = append(out, 0xe0|byte(u>>12), 0x80|byte(u>>6&0x3f), 0x80|byte(u&0x3f))
			}
		}
	}
	return out
}
