// Package vm models the obfuscated virtual machine: its canonical opcode
// set, register file, raw bytecode decoding, and the instruction-tree
// builder the analysis stages run on.
package vm

// Opcode represents a single canonical VM instruction.
//
// Shipped binaries shuffle the raw opcode bytes per build; a profile maps
// raw bytes back to these canonical values before decoding.
type Opcode byte

const (
	// Register pushes. The register operand is lifted into a variable
	// argument when the instruction tree is built.
	OP_PUSHR_BYTE   Opcode = iota // Push register truncated to 8 bits
	OP_PUSHR_WORD                 // Push register truncated to 16 bits
	OP_PUSHR_DWORD                // Push register as a 32-bit value
	OP_PUSHR_QWORD                // Push register as a 64-bit value
	OP_PUSHR_OBJECT               // Push register as an object reference

	// Immediate pushes
	OP_PUSHI_DWORD // Push 32-bit immediate
	OP_PUSHI_QWORD // Push 64-bit immediate

	// Stack manipulation
	OP_POP  // Discard top of stack into a register
	OP_DUP  // Duplicate top of stack
	OP_SWAP // Exchange the two topmost slots

	// Arithmetic
	OP_ADD_DWORD
	OP_ADD_QWORD
	OP_SUB_DWORD
	OP_SUB_QWORD
	OP_MUL_DWORD
	OP_MUL_QWORD
	OP_DIV_DWORD
	OP_DIV_QWORD
	OP_REM_DWORD
	OP_REM_QWORD
	OP_NEG

	// Bitwise
	OP_AND
	OP_OR
	OP_XOR
	OP_NOT
	OP_SHL
	OP_SHR

	// Comparison. Results are pushed as 32-bit integers; the VM has no
	// boolean slot type.
	OP_CMP_EQ
	OP_CMP_LT
	OP_CMP_GT

	// Control flow
	OP_JMP    // Unconditional branch to a block key
	OP_JZ     // Branch if top of stack is zero
	OP_JNZ    // Branch if top of stack is non-zero
	OP_CALL   // Call a method by metadata token
	OP_RET    // Return top of stack (or nothing)
	OP_VMEXIT // Leave the VM, resuming native execution
	OP_SWITCH // Jump table dispatch

	// Fields and arrays
	OP_LDFLD  // Load field by metadata token
	OP_STFLD  // Store field by metadata token
	OP_LDELEM // Load array element
	OP_STELEM // Store array element

	// Conversions
	OP_CONV_DWORD  // Truncate/extend to 32 bits
	OP_CONV_QWORD  // Extend to 64 bits
	OP_CONV_OBJECT // Box to an object reference

	// Misc
	OP_NOP
	OP_BOX
	OP_UNBOX

	opcodeCount // Must be last
)

// OperandKind describes the raw operand a canonical opcode carries in the
// bytecode stream.
type OperandKind int

const (
	OperandNone     OperandKind = iota
	OperandRegister             // One register id byte
	OperandI4                   // Little-endian int32
	OperandI8                   // Little-endian int64
	OperandToken                // Little-endian uint32 metadata token
)

var opcodeNames = [opcodeCount]string{
	OP_PUSHR_BYTE:   "PUSHR_BYTE",
	OP_PUSHR_WORD:   "PUSHR_WORD",
	OP_PUSHR_DWORD:  "PUSHR_DWORD",
	OP_PUSHR_QWORD:  "PUSHR_QWORD",
	OP_PUSHR_OBJECT: "PUSHR_OBJECT",
	OP_PUSHI_DWORD:  "PUSHI_DWORD",
	OP_PUSHI_QWORD:  "PUSHI_QWORD",
	OP_POP:          "POP",
	OP_DUP:          "DUP",
	OP_SWAP:         "SWAP",
	OP_ADD_DWORD:    "ADD_DWORD",
	OP_ADD_QWORD:    "ADD_QWORD",
	OP_SUB_DWORD:    "SUB_DWORD",
	OP_SUB_QWORD:    "SUB_QWORD",
	OP_MUL_DWORD:    "MUL_DWORD",
	OP_MUL_QWORD:    "MUL_QWORD",
	OP_DIV_DWORD:    "DIV_DWORD",
	OP_DIV_QWORD:    "DIV_QWORD",
	OP_REM_DWORD:    "REM_DWORD",
	OP_REM_QWORD:    "REM_QWORD",
	OP_NEG:          "NEG",
	OP_AND:          "AND",
	OP_OR:           "OR",
	OP_XOR:          "XOR",
	OP_NOT:          "NOT",
	OP_SHL:          "SHL",
	OP_SHR:          "SHR",
	OP_CMP_EQ:       "CMP_EQ",
	OP_CMP_LT:       "CMP_LT",
	OP_CMP_GT:       "CMP_GT",
	OP_JMP:          "JMP",
	OP_JZ:           "JZ",
	OP_JNZ:          "JNZ",
	OP_CALL:         "CALL",
	OP_RET:          "RET",
	OP_VMEXIT:       "VMEXIT",
	OP_SWITCH:       "SWITCH",
	OP_LDFLD:        "LDFLD",
	OP_STFLD:        "STFLD",
	OP_LDELEM:       "LDELEM",
	OP_STELEM:       "STELEM",
	OP_CONV_DWORD:   "CONV_DWORD",
	OP_CONV_QWORD:   "CONV_QWORD",
	OP_CONV_OBJECT:  "CONV_OBJECT",
	OP_NOP:          "NOP",
	OP_BOX:          "BOX",
	OP_UNBOX:        "UNBOX",
}

// String returns the mnemonic for the opcode.
func (op Opcode) String() string {
	if int(op) < len(opcodeNames) && opcodeNames[op] != "" {
		return opcodeNames[op]
	}
	return "UNKNOWN"
}

// OpcodeCount is the number of canonical opcodes.
func OpcodeCount() int { return int(opcodeCount) }

// OpcodeByName finds a canonical opcode by its mnemonic.
func OpcodeByName(name string) (Opcode, bool) {
	for op, candidate := range opcodeNames {
		if candidate == name {
			return Opcode(op), true
		}
	}
	return 0, false
}

// operandKinds maps each canonical opcode to the raw operand it decodes.
var operandKinds = [opcodeCount]OperandKind{
	OP_PUSHR_BYTE:   OperandRegister,
	OP_PUSHR_WORD:   OperandRegister,
	OP_PUSHR_DWORD:  OperandRegister,
	OP_PUSHR_QWORD:  OperandRegister,
	OP_PUSHR_OBJECT: OperandRegister,
	OP_PUSHI_DWORD:  OperandI4,
	OP_PUSHI_QWORD:  OperandI8,
	OP_POP:          OperandRegister,
	OP_JMP:          OperandI4,
	OP_JZ:           OperandI4,
	OP_JNZ:          OperandI4,
	OP_CALL:         OperandToken,
	OP_SWITCH:       OperandI4,
	OP_LDFLD:        OperandToken,
	OP_STFLD:        OperandToken,
	OP_BOX:          OperandToken,
	OP_UNBOX:        OperandToken,
}

// OperandKindOf returns the operand kind a canonical opcode carries.
func OperandKindOf(op Opcode) OperandKind {
	if int(op) < len(operandKinds) {
		return operandKinds[op]
	}
	return OperandNone
}

// stackPops maps each canonical opcode to the number of evaluation-stack
// slots it consumes. The tree builder turns popped slots into argument
// sub-nodes.
var stackPops = [opcodeCount]int{
	OP_POP:         1,
	OP_DUP:         1,
	OP_SWAP:        2,
	OP_ADD_DWORD:   2,
	OP_ADD_QWORD:   2,
	OP_SUB_DWORD:   2,
	OP_SUB_QWORD:   2,
	OP_MUL_DWORD:   2,
	OP_MUL_QWORD:   2,
	OP_DIV_DWORD:   2,
	OP_DIV_QWORD:   2,
	OP_REM_DWORD:   2,
	OP_REM_QWORD:   2,
	OP_NEG:         1,
	OP_AND:         2,
	OP_OR:          2,
	OP_XOR:         2,
	OP_NOT:         1,
	OP_SHL:         2,
	OP_SHR:         2,
	OP_CMP_EQ:      2,
	OP_CMP_LT:      2,
	OP_CMP_GT:      2,
	OP_JZ:          1,
	OP_JNZ:         1,
	OP_RET:         1,
	OP_SWITCH:      1,
	OP_LDFLD:       1,
	OP_STFLD:       2,
	OP_LDELEM:      2,
	OP_STELEM:      3,
	OP_CONV_DWORD:  1,
	OP_CONV_QWORD:  1,
	OP_CONV_OBJECT: 1,
	OP_BOX:         1,
	OP_UNBOX:       1,
}

// StackPops returns how many evaluation-stack slots an opcode consumes.
func StackPops(op Opcode) int {
	if int(op) < len(stackPops) {
		return stackPops[op]
	}
	return 0
}

// pushers marks opcodes that leave a value on the evaluation stack.
var pushers = map[Opcode]bool{
	OP_PUSHR_BYTE: true, OP_PUSHR_WORD: true, OP_PUSHR_DWORD: true,
	OP_PUSHR_QWORD: true, OP_PUSHR_OBJECT: true,
	OP_PUSHI_DWORD: true, OP_PUSHI_QWORD: true,
	OP_ADD_DWORD: true, OP_ADD_QWORD: true, OP_SUB_DWORD: true,
	OP_SUB_QWORD: true, OP_MUL_DWORD: true, OP_MUL_QWORD: true,
	OP_DIV_DWORD: true, OP_DIV_QWORD: true, OP_REM_DWORD: true,
	OP_REM_QWORD: true, OP_NEG: true,
	OP_AND: true, OP_OR: true, OP_XOR: true, OP_NOT: true,
	OP_SHL: true, OP_SHR: true,
	OP_CMP_EQ: true, OP_CMP_LT: true, OP_CMP_GT: true,
	OP_LDFLD: true, OP_LDELEM: true,
	OP_CONV_DWORD: true, OP_CONV_QWORD: true, OP_CONV_OBJECT: true,
	OP_BOX: true, OP_UNBOX: true,
}

// Pushes reports whether an opcode leaves a value on the evaluation stack.
func Pushes(op Opcode) bool {
	return pushers[op]
}
