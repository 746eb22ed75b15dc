package classfile

import (
	"encoding/binary"
	"fmt"

	"github.com/mpyw/probeguard/unit"
)

const (
	opWide = 0xc4
	opIinc = 0x84
)

// opLengths holds the fixed length in bytes of each opcode up to jsr_w.
// Zero marks variable-length opcodes (switches, wide).
var opLengths = [0xca]uint8{}

func init() {
	for op := range opLengths {
		opLengths[op] = 1
	}
	for _, op := range []int{0x10, 0x12, 0x15, 0x16, 0x17, 0x18, 0x19, 0x36, 0x37, 0x38, 0x39, 0x3a, 0xa9, 0xbc} {
		opLengths[op] = 2 // bipush ldc <x>load <x>store ret newarray
	}
	for _, op := range []int{0x11, 0x13, 0x14, opIinc, 0xbb, 0xbd, 0xc0, 0xc1, 0xc6, 0xc7} {
		opLengths[op] = 3 // sipush ldc_w ldc2_w iinc new anewarray checkcast instanceof ifnull ifnonnull
	}
	for op := 0x99; op <= 0xa8; op++ {
		opLengths[op] = 3 // conditional branches goto jsr
	}
	for op := 0xb2; op <= 0xb8; op++ {
		opLengths[op] = 3 // field access and invokes
	}
	opLengths[0xc5] = 4 // multianewarray
	opLengths[0xb9] = 5 // invokeinterface
	opLengths[0xba] = 5 // invokedynamic
	opLengths[0xc8] = 5 // goto_w
	opLengths[0xc9] = 5 // jsr_w
	opLengths[0xaa] = 0
	opLengths[0xab] = 0
	opLengths[opWide] = 0
}

// code decodes a Code attribute into m.
func (d *decoder) code(m *unit.Method, r *reader) error {
	r.u2() // max_stack
	r.u2() // max_locals

	length := int(r.u4())
	bytecode := r.take(length)
	if r.err != nil {
		return r.err
	}

	body, err := d.instructions(bytecode)
	if err != nil {
		return err
	}
	m.Body = body

	m.ExceptionHandlers = int(r.u2())
	r.take(8 * m.ExceptionHandlers)

	// Nested attributes (line numbers, local variables, stack maps) are skipped.
	for n := r.u2(); n > 0 && r.err == nil; n-- {
		r.u2()
		r.take(int(r.u4()))
	}
	return r.err
}

// instructions decodes a method body in program order.
func (d *decoder) instructions(code []byte) ([]unit.Instruction, error) {
	var body []unit.Instruction

	for pc := 0; pc < len(code); {
		op := code[pc]
		if int(op) >= len(opLengths) {
			return nil, fmt.Errorf("%w: unknown opcode 0x%02x at %d", ErrMalformed, op, pc)
		}

		size, err := instructionSize(code, pc)
		if err != nil {
			return nil, err
		}
		if pc+size > len(code) {
			return nil, fmt.Errorf("%w: instruction at %d runs past the end of the body", ErrMalformed, pc)
		}

		insn, err := d.instruction(code[pc:pc+size], pc)
		if err != nil {
			return nil, fmt.Errorf("instruction at %d: %w", pc, err)
		}
		body = append(body, insn)
		pc += size
	}

	return body, nil
}

func instructionSize(code []byte, pc int) (int, error) {
	op := code[pc]
	if n := opLengths[op]; n != 0 {
		return int(n), nil
	}

	switch op {
	case opWide:
		if pc+1 >= len(code) {
			return 0, ErrTruncated
		}
		if code[pc+1] == opIinc {
			return 6, nil
		}
		return 4, nil

	case byte(unit.OpTableswitch):
		base := switchOperands(pc)
		if base+12 > len(code) {
			return 0, ErrTruncated
		}
		low := int32(binary.BigEndian.Uint32(code[base+4:]))
		high := int32(binary.BigEndian.Uint32(code[base+8:]))
		if high < low {
			return 0, fmt.Errorf("%w: tableswitch at %d has high < low", ErrMalformed, pc)
		}
		return base - pc + 12 + 4*int(int64(high)-int64(low)+1), nil

	case byte(unit.OpLookupswitch):
		base := switchOperands(pc)
		if base+8 > len(code) {
			return 0, ErrTruncated
		}
		npairs := int32(binary.BigEndian.Uint32(code[base+4:]))
		if npairs < 0 {
			return 0, fmt.Errorf("%w: lookupswitch at %d has negative pair count", ErrMalformed, pc)
		}
		return base - pc + 8 + 8*int(npairs), nil
	}

	return 0, fmt.Errorf("%w: unknown opcode 0x%02x at %d", ErrMalformed, op, pc)
}

// switchOperands returns the offset of a switch's first operand, which is
// aligned to four bytes from the start of the body.
func switchOperands(pc int) int {
	return (pc + 4) &^ 3
}

// instruction decodes one instruction whose bytes are raw.
func (d *decoder) instruction(raw []byte, pc int) (unit.Instruction, error) {
	insn := unit.Instruction{Offset: pc, Opcode: unit.Opcode(raw[0])}
	index := func() uint16 { return binary.BigEndian.Uint16(raw[1:]) }
	branch16 := func() int { return pc + int(int16(binary.BigEndian.Uint16(raw[1:]))) }

	var err error
	switch op := insn.Opcode; {
	case op >= unit.OpGetstatic && op <= unit.OpInvokeinterface:
		insn.Owner, insn.Name, insn.Desc, err = d.pool.memberRef(index())

	case op == unit.OpInvokedynamic:
		insn.Name, insn.Desc, err = d.pool.dynamicRef(index())

	case op == unit.OpNew, op == unit.OpAnewarray, op == unit.OpCheckcast,
		op == unit.OpInstanceof, op == unit.OpMultianewarray:
		insn.Owner, err = d.pool.className(index())

	case op >= unit.OpIfeq && op <= unit.OpJsr, op == unit.OpIfnull, op == unit.OpIfnonnull:
		insn.Targets = []int{branch16()}

	case op == unit.OpGotoW, op == unit.OpJsrW:
		insn.Targets = []int{pc + int(int32(binary.BigEndian.Uint32(raw[1:])))}

	case op == unit.OpTableswitch:
		ops := raw[switchOperands(pc)-pc:]
		insn.Targets = append(insn.Targets, pc+int(int32(binary.BigEndian.Uint32(ops))))
		for i := 12; i+4 <= len(ops); i += 4 {
			insn.Targets = append(insn.Targets, pc+int(int32(binary.BigEndian.Uint32(ops[i:]))))
		}

	case op == unit.OpLookupswitch:
		ops := raw[switchOperands(pc)-pc:]
		insn.Targets = append(insn.Targets, pc+int(int32(binary.BigEndian.Uint32(ops))))
		for i := 8; i+8 <= len(ops); i += 8 {
			insn.Targets = append(insn.Targets, pc+int(int32(binary.BigEndian.Uint32(ops[i+4:]))))
		}
	}

	return insn, err
}
