package pattern

import "github.com/unvirt/unvirt/internal/vm"

// Stock shapes for the instruction idioms rewrite rules recognize most
// often. A large share of the recognized folds are register or
// immediate pushes, so these save every rule spelling them out.

// PushDWordRegister matches "push a register as a 32-bit value". The
// register argument is exported under regName when non-empty.
func PushDWordRegister(regName string) *InstructionPattern {
	return MustInstruction(Op(vm.OP_PUSHR_DWORD), nil, AnyRegister().Capture(regName))
}

// PushQWordRegister matches "push a register as a 64-bit value".
func PushQWordRegister(regName string) *InstructionPattern {
	return MustInstruction(Op(vm.OP_PUSHR_QWORD), nil, AnyRegister().Capture(regName))
}

// PushObjectRegister matches "push a register as an object reference".
func PushObjectRegister(regName string) *InstructionPattern {
	return MustInstruction(Op(vm.OP_PUSHR_OBJECT), nil, AnyRegister().Capture(regName))
}

// PushDWordImmediate matches "push any 32-bit immediate". The whole
// push is exported under name when non-empty.
func PushDWordImmediate(name string) *InstructionPattern {
	return MustInstruction(Op(vm.OP_PUSHI_DWORD), AnyOperand()).Capture(name)
}

// PushQWordImmediate matches "push any 64-bit immediate".
func PushQWordImmediate(name string) *InstructionPattern {
	return MustInstruction(Op(vm.OP_PUSHI_QWORD), AnyOperand()).Capture(name)
}

// PushImmediateValue matches "push this exact 32-bit immediate".
func PushImmediateValue(value int32) *InstructionPattern {
	return MustInstruction(Op(vm.OP_PUSHI_DWORD), OperandValue(value))
}
