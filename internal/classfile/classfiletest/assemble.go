// Package classfiletest assembles class files from program units for tests.
package classfiletest

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/mpyw/probeguard/unit"
)

// Assemble encodes u as a class file.
//
// Instruction offsets must describe the encoded layout: each instruction
// starts where the previous one ends. Field, method and type instructions
// reference u's constant pool through Owner, Name and Desc; branches and
// switches encode Targets relative to Offset. Opcodes the verifier does not
// model are emitted without operands.
func Assemble(u *unit.Unit) ([]byte, error) {
	a := &assembler{pool: newPool()}
	body, err := a.unit(u)
	if err != nil {
		return nil, err
	}

	out := binary.BigEndian.AppendUint32(nil, 0xCAFEBABE)
	out = binary.BigEndian.AppendUint16(out, 0)  // minor_version
	out = binary.BigEndian.AppendUint16(out, 52) // major_version
	out = append(out, a.pool.bytes()...)
	return append(out, body...), nil
}

// MustAssemble is like Assemble but fails the test on error.
func MustAssemble(t testing.TB, u *unit.Unit) []byte {
	t.Helper()
	data, err := Assemble(u)
	if err != nil {
		t.Fatalf("assemble %s: %v", u.Name, err)
	}
	return data
}

// WriteFile assembles u into dir following the package layout of its name
// and returns the written path.
func WriteFile(t testing.TB, dir string, u *unit.Unit) string {
	t.Helper()
	path := filepath.Join(dir, filepath.FromSlash(u.Name)+".class")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, MustAssemble(t, u), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

type assembler struct {
	pool *pool
}

func (a *assembler) unit(u *unit.Unit) ([]byte, error) {
	var b []byte
	b = u2(b, uint16(u.Access))
	b = u2(b, a.pool.class(u.Name))
	if u.Super == "" {
		b = u2(b, 0)
	} else {
		b = u2(b, a.pool.class(u.Super))
	}

	b = u2(b, len(u.Interfaces))
	for _, iface := range u.Interfaces {
		b = u2(b, a.pool.class(iface))
	}

	b = u2(b, len(u.Fields))
	for _, f := range u.Fields {
		b = u2(b, uint16(f.Access))
		b = u2(b, a.pool.utf8(f.Name))
		b = u2(b, a.pool.utf8(f.Desc))
		b = u2(b, 0)
	}

	b = u2(b, len(u.Methods))
	for i := range u.Methods {
		mb, err := a.method(&u.Methods[i])
		if err != nil {
			return nil, fmt.Errorf("method %s: %w", u.Methods[i].ID(), err)
		}
		b = append(b, mb...)
	}

	var attrs attributes
	a.annotationAttributes(&attrs, u.Annotations)
	if len(u.InnerClasses) > 0 {
		var ib []byte
		ib = u2(ib, len(u.InnerClasses))
		for _, ic := range u.InnerClasses {
			ib = u2(ib, a.pool.optionalClass(ic.Inner))
			ib = u2(ib, a.pool.optionalClass(ic.Outer))
			if ic.InnerName == "" {
				ib = u2(ib, 0)
			} else {
				ib = u2(ib, a.pool.utf8(ic.InnerName))
			}
			ib = u2(ib, uint16(ic.Access))
		}
		attrs.add(a.pool, "InnerClasses", ib)
	}
	if u.EnclosingClass != "" {
		var eb []byte
		eb = u2(eb, a.pool.class(u.EnclosingClass))
		eb = u2(eb, 0)
		attrs.add(a.pool, "EnclosingMethod", eb)
	}

	return append(b, attrs.bytes()...), nil
}

func (a *assembler) method(m *unit.Method) ([]byte, error) {
	var b []byte
	b = u2(b, uint16(m.Access))
	b = u2(b, a.pool.utf8(m.Name))
	b = u2(b, a.pool.utf8(m.Desc))

	var attrs attributes
	if len(m.Body) > 0 || m.ExceptionHandlers > 0 {
		code, err := a.code(m)
		if err != nil {
			return nil, err
		}
		attrs.add(a.pool, "Code", code)
	}
	a.annotationAttributes(&attrs, m.Annotations)
	a.parameterAnnotationAttributes(&attrs, m.ParamAnnotations)

	return append(b, attrs.bytes()...), nil
}

func (a *assembler) code(m *unit.Method) ([]byte, error) {
	var code []byte
	for _, insn := range m.Body {
		if insn.Offset != len(code) {
			return nil, fmt.Errorf("instruction 0x%02x declared at %d but encoded at %d", insn.Opcode, insn.Offset, len(code))
		}
		code = a.instruction(code, insn)
	}

	var b []byte
	b = u2(b, 8) // max_stack
	b = u2(b, 8) // max_locals
	b = u4(b, len(code))
	b = append(b, code...)
	b = u2(b, m.ExceptionHandlers)
	for range m.ExceptionHandlers {
		b = u2(b, 0)
		b = u2(b, len(code))
		b = u2(b, 0)
		b = u2(b, 0) // catch any
	}
	return u2(b, 0), nil
}

func (a *assembler) instruction(code []byte, insn unit.Instruction) []byte {
	pc := insn.Offset
	op := insn.Opcode
	code = append(code, byte(op))

	switch {
	case op >= unit.OpGetstatic && op <= unit.OpPutfield:
		code = u2(code, a.pool.member(tagFieldref, insn.Owner, insn.Name, insn.Desc))
	case op >= unit.OpInvokevirtual && op <= unit.OpInvokestatic:
		code = u2(code, a.pool.member(tagMethodref, insn.Owner, insn.Name, insn.Desc))
	case op == unit.OpInvokeinterface:
		code = u2(code, a.pool.member(tagInterfaceMethodref, insn.Owner, insn.Name, insn.Desc))
		code = append(code, 1, 0)
	case op == unit.OpInvokedynamic:
		code = u2(code, a.pool.invokeDynamic(insn.Name, insn.Desc))
		code = append(code, 0, 0)
	case op == unit.OpNew, op == unit.OpAnewarray, op == unit.OpCheckcast, op == unit.OpInstanceof:
		code = u2(code, a.pool.class(insn.Owner))
	case op == unit.OpMultianewarray:
		code = u2(code, a.pool.class(insn.Owner))
		code = append(code, 1)
	case op >= unit.OpIfeq && op <= unit.OpJsr, op == unit.OpIfnull, op == unit.OpIfnonnull:
		code = binary.BigEndian.AppendUint16(code, uint16(int16(insn.Targets[0]-pc)))
	case op == unit.OpGotoW, op == unit.OpJsrW:
		code = binary.BigEndian.AppendUint32(code, uint32(int32(insn.Targets[0]-pc)))
	case op == unit.OpTableswitch:
		code = pad(code)
		code = i4(code, insn.Targets[0]-pc)
		code = i4(code, 0)
		code = i4(code, len(insn.Targets)-2)
		for _, t := range insn.Targets[1:] {
			code = i4(code, t-pc)
		}
	case op == unit.OpLookupswitch:
		code = pad(code)
		code = i4(code, insn.Targets[0]-pc)
		code = i4(code, len(insn.Targets)-1)
		for i, t := range insn.Targets[1:] {
			code = i4(code, i)
			code = i4(code, t-pc)
		}
	}
	return code
}

// SwitchSize returns the encoded size of a tableswitch or lookupswitch at pc with n targets (default included).
func SwitchSize(op unit.Opcode, pc, n int) int {
	padding := 3 - pc%4
	if op == unit.OpTableswitch {
		return 1 + padding + 12 + 4*(n-1)
	}
	return 1 + padding + 8 + 8*(n-1)
}

func pad(code []byte) []byte {
	for len(code)%4 != 0 {
		code = append(code, 0)
	}
	return code
}

func (a *assembler) annotationAttributes(attrs *attributes, anns []unit.Annotation) {
	var visible, invisible []unit.Annotation
	for _, ann := range anns {
		if ann.Visible {
			visible = append(visible, ann)
		} else {
			invisible = append(invisible, ann)
		}
	}
	if len(visible) > 0 {
		attrs.add(a.pool, "RuntimeVisibleAnnotations", a.annotationList(nil, visible))
	}
	if len(invisible) > 0 {
		attrs.add(a.pool, "RuntimeInvisibleAnnotations", a.annotationList(nil, invisible))
	}
}

func (a *assembler) parameterAnnotationAttributes(attrs *attributes, params [][]unit.Annotation) {
	if len(params) == 0 {
		return
	}
	for _, visible := range []bool{true, false} {
		found := false
		b := []byte{byte(len(params))}
		for _, anns := range params {
			var selected []unit.Annotation
			for _, ann := range anns {
				if ann.Visible == visible {
					selected = append(selected, ann)
				}
			}
			found = found || len(selected) > 0
			b = a.annotationList(b, selected)
		}
		if !found {
			continue
		}
		if visible {
			attrs.add(a.pool, "RuntimeVisibleParameterAnnotations", b)
		} else {
			attrs.add(a.pool, "RuntimeInvisibleParameterAnnotations", b)
		}
	}
}

func (a *assembler) annotationList(b []byte, anns []unit.Annotation) []byte {
	b = u2(b, len(anns))
	for i := range anns {
		b = a.annotation(b, &anns[i])
	}
	return b
}

func (a *assembler) annotation(b []byte, ann *unit.Annotation) []byte {
	b = u2(b, a.pool.utf8(ann.Type))
	b = u2(b, len(ann.Elements))
	for _, e := range ann.Elements {
		b = u2(b, a.pool.utf8(e.Name))
		b = a.elementValue(b, e.Value)
	}
	return b
}

func (a *assembler) elementValue(b []byte, v unit.Value) []byte {
	switch v := v.(type) {
	case unit.String:
		return u2(append(b, 's'), a.pool.utf8(string(v)))
	case unit.Int:
		return u2(append(b, 'I'), a.pool.integer(int32(v)))
	case unit.Char:
		return u2(append(b, 'C'), a.pool.integer(int32(v)))
	case unit.Bool:
		n := int32(0)
		if v {
			n = 1
		}
		return u2(append(b, 'Z'), a.pool.integer(n))
	case unit.Long:
		return u2(append(b, 'J'), a.pool.wide(tagLong, uint64(v)))
	case unit.Float:
		return u2(append(b, 'F'), a.pool.float(float32(v)))
	case unit.Double:
		return u2(append(b, 'D'), a.pool.wide(tagDouble, math.Float64bits(float64(v))))
	case unit.Enum:
		b = u2(append(b, 'e'), a.pool.utf8(v.Type))
		return u2(b, a.pool.utf8(v.Const))
	case unit.ClassRef:
		return u2(append(b, 'c'), a.pool.utf8(string(v)))
	case *unit.Annotation:
		return a.annotation(append(b, '@'), v)
	case unit.Array:
		b = u2(append(b, '['), len(v))
		for _, e := range v {
			b = a.elementValue(b, e)
		}
		return b
	}
	panic(fmt.Sprintf("classfiletest: unsupported element value %T", v))
}

type attributes struct {
	count int
	data  []byte
}

func (at *attributes) add(p *pool, name string, body []byte) {
	at.count++
	at.data = u2(at.data, p.utf8(name))
	at.data = u4(at.data, len(body))
	at.data = append(at.data, body...)
}

func (at *attributes) bytes() []byte {
	return append(u2(nil, at.count), at.data...)
}

func u2[T ~int | ~uint16](b []byte, v T) []byte {
	return binary.BigEndian.AppendUint16(b, uint16(v))
}

func u4(b []byte, v int) []byte {
	return binary.BigEndian.AppendUint32(b, uint32(v))
}

func i4(b []byte, v int) []byte {
	return binary.BigEndian.AppendUint32(b, uint32(int32(v)))
}
