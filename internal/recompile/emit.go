package recompile

import (
	"fmt"

	"github.com/unvirt/unvirt/internal/ast"
	"github.com/unvirt/unvirt/internal/metadata"
	"github.com/unvirt/unvirt/internal/vm"
)

// binaryOps maps canonical VM opcodes with two tree arguments straight
// to their output opcode.
var binaryOps = map[vm.Opcode]TargetOp{
	vm.OP_ADD_DWORD: T_ADD, vm.OP_ADD_QWORD: T_ADD,
	vm.OP_SUB_DWORD: T_SUB, vm.OP_SUB_QWORD: T_SUB,
	vm.OP_MUL_DWORD: T_MUL, vm.OP_MUL_QWORD: T_MUL,
	vm.OP_DIV_DWORD: T_DIV, vm.OP_DIV_QWORD: T_DIV,
	vm.OP_REM_DWORD: T_REM, vm.OP_REM_QWORD: T_REM,
	vm.OP_AND: T_AND, vm.OP_OR: T_OR, vm.OP_XOR: T_XOR,
	vm.OP_SHL: T_SHL, vm.OP_SHR: T_SHR,
	vm.OP_CMP_EQ: T_CEQ, vm.OP_CMP_LT: T_CLT, vm.OP_CMP_GT: T_CGT,
	vm.OP_LDELEM: T_LDELEM,
}

// Emit lowers rewritten trees to output instructions using an assigned
// frame. Stores whose value type is not assignable to the local's type
// get an explicit conversion in front.
func (r *Recompiler) Emit(roots []ast.Expression, frame *Frame) ([]TargetInstruction, error) {
	var out []TargetInstruction
	for _, root := range roots {
		var err error
		out, err = r.emitNode(root, frame, out)
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (r *Recompiler) emitNode(expr ast.Expression, frame *Frame, out []TargetInstruction) ([]TargetInstruction, error) {
	switch node := expr.(type) {
	case *ast.VariableExpr:
		local, ok := frame.LocalFor(node.Register)
		if !ok {
			return nil, fmt.Errorf("register %s has no assigned local", node.Register)
		}
		return append(out, TargetInstruction{Op: T_LDLOC, Operand: local.Index}), nil

	case *ast.InstructionExpr:
		return r.emitInstruction(node, frame, out)

	default:
		return nil, fmt.Errorf("cannot emit %T", expr)
	}
}

func (r *Recompiler) emitInstruction(node *ast.InstructionExpr, frame *Frame, out []TargetInstruction) ([]TargetInstruction, error) {
	// Register pushes the rewrite stage left in place lower like the
	// bare register reference.
	switch node.Op {
	case vm.OP_PUSHR_BYTE, vm.OP_PUSHR_WORD, vm.OP_PUSHR_DWORD,
		vm.OP_PUSHR_QWORD, vm.OP_PUSHR_OBJECT:
		if len(node.Arguments) == 1 {
			return r.emitNode(node.Arguments[0], frame, out)
		}
		return nil, fmt.Errorf("register push without argument at offset %d", node.Offset)
	}

	args := node.Arguments
	emitArgs := func() error {
		for _, arg := range args {
			var err error
			out, err = r.emitNode(arg, frame, out)
			if err != nil {
				return err
			}
		}
		return nil
	}

	if op, ok := binaryOps[node.Op]; ok {
		if err := emitArgs(); err != nil {
			return nil, err
		}
		return append(out, TargetInstruction{Op: op}), nil
	}

	switch node.Op {
	case vm.OP_PUSHI_DWORD:
		return append(out, TargetInstruction{Op: T_LDC_I4, Operand: node.Operand}), nil

	case vm.OP_PUSHI_QWORD:
		return append(out, TargetInstruction{Op: T_LDC_I8, Operand: node.Operand}), nil

	case vm.OP_POP:
		return r.emitStore(node, frame, out)

	case vm.OP_NEG, vm.OP_NOT:
		if err := emitArgs(); err != nil {
			return nil, err
		}
		op := T_NEG
		if node.Op == vm.OP_NOT {
			op = T_NOT
		}
		return append(out, TargetInstruction{Op: op}), nil

	case vm.OP_DUP:
		if err := emitArgs(); err != nil {
			return nil, err
		}
		return append(out, TargetInstruction{Op: T_DUP}), nil

	case vm.OP_JMP:
		return append(out, TargetInstruction{Op: T_BR, Operand: node.Operand}), nil

	case vm.OP_JZ:
		if err := emitArgs(); err != nil {
			return nil, err
		}
		return append(out, TargetInstruction{Op: T_BRFALSE, Operand: node.Operand}), nil

	case vm.OP_JNZ:
		if err := emitArgs(); err != nil {
			return nil, err
		}
		return append(out, TargetInstruction{Op: T_BRTRUE, Operand: node.Operand}), nil

	case vm.OP_SWITCH:
		if err := emitArgs(); err != nil {
			return nil, err
		}
		return append(out, TargetInstruction{Op: T_SWITCH, Operand: node.Operand}), nil

	case vm.OP_CALL:
		if err := emitArgs(); err != nil {
			return nil, err
		}
		return append(out, TargetInstruction{Op: T_CALL, Operand: node.Operand}), nil

	case vm.OP_RET, vm.OP_VMEXIT:
		if err := emitArgs(); err != nil {
			return nil, err
		}
		return append(out, TargetInstruction{Op: T_RET}), nil

	case vm.OP_LDFLD:
		if err := emitArgs(); err != nil {
			return nil, err
		}
		return append(out, TargetInstruction{Op: T_LDFLD, Operand: node.Operand}), nil

	case vm.OP_STFLD:
		if err := emitArgs(); err != nil {
			return nil, err
		}
		return append(out, TargetInstruction{Op: T_STFLD, Operand: node.Operand}), nil

	case vm.OP_STELEM:
		if err := emitArgs(); err != nil {
			return nil, err
		}
		return append(out, TargetInstruction{Op: T_STELEM}), nil

	case vm.OP_CONV_DWORD:
		if err := emitArgs(); err != nil {
			return nil, err
		}
		return append(out, TargetInstruction{Op: T_CONV_I4}), nil

	case vm.OP_CONV_QWORD:
		if err := emitArgs(); err != nil {
			return nil, err
		}
		return append(out, TargetInstruction{Op: T_CONV_I8}), nil

	case vm.OP_CONV_OBJECT, vm.OP_BOX:
		if err := emitArgs(); err != nil {
			return nil, err
		}
		return append(out, TargetInstruction{Op: T_BOX, Operand: node.Operand}), nil

	case vm.OP_UNBOX:
		if err := emitArgs(); err != nil {
			return nil, err
		}
		return append(out, TargetInstruction{Op: T_UNBOX, Operand: node.Operand}), nil

	case vm.OP_NOP:
		return append(out, TargetInstruction{Op: T_NOP}), nil

	case vm.OP_SWAP:
		return nil, fmt.Errorf("unlowered SWAP at offset %d", node.Offset)

	default:
		return nil, fmt.Errorf("cannot emit %s at offset %d", node.Op, node.Offset)
	}
}

// emitStore lowers POP[reg](value): the value expression, a conversion
// when its type is not assignable to the local's declared type, then
// the store.
func (r *Recompiler) emitStore(node *ast.InstructionExpr, frame *Frame, out []TargetInstruction) ([]TargetInstruction, error) {
	reg, ok := node.Operand.(vm.Register)
	if !ok {
		return nil, fmt.Errorf("POP without register operand at offset %d", node.Offset)
	}
	if len(node.Arguments) != 1 {
		return nil, fmt.Errorf("POP with %d arguments at offset %d", len(node.Arguments), node.Offset)
	}
	local, ok := frame.LocalFor(reg)
	if !ok {
		return nil, fmt.Errorf("register %s has no assigned local", reg)
	}

	var err error
	out, err = r.emitNode(node.Arguments[0], frame, out)
	if err != nil {
		return nil, err
	}

	valueType := r.InferType(node.Arguments[0], frame)
	assignable, err := r.lattice.IsAssignable(valueType, local.Type)
	if err != nil {
		return nil, err
	}
	if !assignable && valueType != nil {
		out = append(out, conversionTo(local.Type))
	}
	return append(out, TargetInstruction{Op: T_STLOC, Operand: local.Index}), nil
}

// conversionTo picks the explicit conversion for a store whose value
// type failed the assignability check.
func conversionTo(target metadata.Type) TargetInstruction {
	switch target.FullName() {
	case metadata.NameInt32, metadata.NameUInt32,
		metadata.NameSByte, metadata.NameByte,
		metadata.NameInt16, metadata.NameUInt16,
		metadata.NameBoolean, metadata.NameChar:
		return TargetInstruction{Op: T_CONV_I4}
	case metadata.NameInt64, metadata.NameUInt64:
		return TargetInstruction{Op: T_CONV_I8}
	default:
		return TargetInstruction{Op: T_CASTCLASS, Operand: target.FullName()}
	}
}
