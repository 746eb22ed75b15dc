package unit

// Opcode is a bytecode operation code.
type Opcode uint8

// Opcodes the verifier inspects. Every other opcode is carried through
// without interpretation.
const (
	OpIfeq            Opcode = 0x99
	OpGoto            Opcode = 0xa7
	OpJsr             Opcode = 0xa8
	OpTableswitch     Opcode = 0xaa
	OpLookupswitch    Opcode = 0xab
	OpReturn          Opcode = 0xb1
	OpGetstatic       Opcode = 0xb2
	OpPutstatic       Opcode = 0xb3
	OpGetfield        Opcode = 0xb4
	OpPutfield        Opcode = 0xb5
	OpInvokevirtual   Opcode = 0xb6
	OpInvokespecial   Opcode = 0xb7
	OpInvokestatic    Opcode = 0xb8
	OpInvokeinterface Opcode = 0xb9
	OpInvokedynamic   Opcode = 0xba
	OpNew             Opcode = 0xbb
	OpAnewarray       Opcode = 0xbd
	OpAthrow          Opcode = 0xbf
	OpCheckcast       Opcode = 0xc0
	OpInstanceof      Opcode = 0xc1
	OpMonitorenter    Opcode = 0xc2
	OpMonitorexit     Opcode = 0xc3
	OpMultianewarray  Opcode = 0xc5
	OpIfnull          Opcode = 0xc6
	OpIfnonnull       Opcode = 0xc7
	OpGotoW           Opcode = 0xc8
	OpJsrW            Opcode = 0xc9
)

// Instruction is one decoded operation of a method body.
type Instruction struct {
	// Offset is the byte offset of the instruction within the body.
	Offset int
	Opcode Opcode

	// Owner, Name and Desc identify the member referenced by field and
	// method instructions. Owner alone is set for type instructions
	// (new, anewarray, checkcast, instanceof, multianewarray).
	Owner string
	Name  string
	Desc  string

	// Targets holds absolute branch target offsets for jumps and switches.
	Targets []int
}

// IsCall reports whether the instruction invokes a method.
func (i *Instruction) IsCall() bool {
	switch i.Opcode {
	case OpInvokevirtual, OpInvokespecial, OpInvokestatic, OpInvokeinterface:
		return true
	}
	return false
}

// IsBranch reports whether the instruction may transfer control to its Targets.
func (i *Instruction) IsBranch() bool {
	switch {
	case i.Opcode >= OpIfeq && i.Opcode <= OpJsr:
		return true
	case i.Opcode == OpTableswitch, i.Opcode == OpLookupswitch:
		return true
	case i.Opcode == OpIfnull, i.Opcode == OpIfnonnull:
		return true
	case i.Opcode == OpGotoW, i.Opcode == OpJsrW:
		return true
	}
	return false
}

// Member returns the owner.name+desc form of the referenced member.
func (i *Instruction) Member() string {
	return i.Owner + "." + i.Name + i.Desc
}
