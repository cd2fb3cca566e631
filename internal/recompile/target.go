// Package recompile turns rewritten instruction trees back into plain,
// directly executable bytecode. Frame variables get their static types
// from the type lattice: the common base of everything stored into
// them, with explicit conversions wherever assignability fails.
package recompile

import "fmt"

// TargetOp is one opcode of the plain output instruction set.
type TargetOp byte

const (
	T_NOP TargetOp = iota

	// Locals and constants
	T_LDLOC  // Load local by index
	T_STLOC  // Store local by index
	T_LDC_I4 // Load 32-bit constant
	T_LDC_I8 // Load 64-bit constant

	// Arithmetic and bitwise
	T_ADD
	T_SUB
	T_MUL
	T_DIV
	T_REM
	T_NEG
	T_AND
	T_OR
	T_XOR
	T_NOT
	T_SHL
	T_SHR

	// Comparison
	T_CEQ
	T_CLT
	T_CGT

	// Control flow
	T_BR
	T_BRFALSE
	T_BRTRUE
	T_CALL
	T_RET
	T_SWITCH

	// Object model
	T_LDFLD
	T_STFLD
	T_LDELEM
	T_STELEM
	T_BOX
	T_UNBOX
	T_DUP
	T_POP

	// Conversions
	T_CONV_I4
	T_CONV_I8
	T_CASTCLASS

	targetOpCount // Must be last
)

var targetNames = [targetOpCount]string{
	T_NOP: "nop",
	T_LDLOC: "ldloc", T_STLOC: "stloc",
	T_LDC_I4: "ldc.i4", T_LDC_I8: "ldc.i8",
	T_ADD: "add", T_SUB: "sub", T_MUL: "mul", T_DIV: "div", T_REM: "rem",
	T_NEG: "neg", T_AND: "and", T_OR: "or", T_XOR: "xor", T_NOT: "not",
	T_SHL: "shl", T_SHR: "shr",
	T_CEQ: "ceq", T_CLT: "clt", T_CGT: "cgt",
	T_BR: "br", T_BRFALSE: "brfalse", T_BRTRUE: "brtrue",
	T_CALL: "call", T_RET: "ret", T_SWITCH: "switch",
	T_LDFLD: "ldfld", T_STFLD: "stfld",
	T_LDELEM: "ldelem", T_STELEM: "stelem",
	T_BOX: "box", T_UNBOX: "unbox",
	T_DUP: "dup", T_POP: "pop",
	T_CONV_I4: "conv.i4", T_CONV_I8: "conv.i8", T_CASTCLASS: "castclass",
}

// String returns the output mnemonic.
func (op TargetOp) String() string {
	if int(op) < len(targetNames) && targetNames[op] != "" {
		return targetNames[op]
	}
	return "unknown"
}

// TargetInstruction is one emitted output instruction.
type TargetInstruction struct {
	Op      TargetOp
	Operand any
}

func (t TargetInstruction) String() string {
	if t.Operand == nil {
		return t.Op.String()
	}
	return fmt.Sprintf("%s %v", t.Op, t.Operand)
}
