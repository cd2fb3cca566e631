package recompile

import (
	"github.com/unvirt/unvirt/internal/ast"
	"github.com/unvirt/unvirt/internal/metadata"
	"github.com/unvirt/unvirt/internal/typesystem"
	"github.com/unvirt/unvirt/internal/vm"
)

// Recompiler emits plain bytecode from rewritten instruction trees.
type Recompiler struct {
	universe *metadata.Universe
	lattice  *typesystem.Lattice
}

// New returns a recompiler over the given universe.
func New(u *metadata.Universe) *Recompiler {
	return &Recompiler{universe: u, lattice: typesystem.New(u)}
}

// Lattice exposes the resolver the recompiler consults, for callers
// that want to reuse it.
func (r *Recompiler) Lattice() *typesystem.Lattice {
	return r.lattice
}

// InferType returns the static type an expression leaves on the
// evaluation stack, or nil when the tree gives no evidence (register
// references before frame assignment, calls without signature data).
func (r *Recompiler) InferType(expr ast.Expression, frame *Frame) metadata.Type {
	switch node := expr.(type) {
	case *ast.VariableExpr:
		if frame != nil {
			if local, ok := frame.LocalFor(node.Register); ok {
				return local.Type
			}
		}
		return nil

	case *ast.InstructionExpr:
		return r.inferInstruction(node, frame)

	default:
		return nil
	}
}

func (r *Recompiler) inferInstruction(node *ast.InstructionExpr, frame *Frame) metadata.Type {
	lookup := func(name string) metadata.Type {
		n, ok := r.universe.Lookup(name)
		if !ok {
			return nil
		}
		return n
	}

	switch node.Op {
	case vm.OP_PUSHI_DWORD, vm.OP_PUSHR_DWORD, vm.OP_CONV_DWORD:
		return lookup(metadata.NameInt32)

	case vm.OP_PUSHI_QWORD, vm.OP_PUSHR_QWORD, vm.OP_CONV_QWORD:
		return lookup(metadata.NameInt64)

	case vm.OP_PUSHR_BYTE:
		return lookup(metadata.NameByte)

	case vm.OP_PUSHR_WORD:
		return lookup(metadata.NameUInt16)

	case vm.OP_PUSHR_OBJECT, vm.OP_CONV_OBJECT, vm.OP_BOX:
		return lookup(metadata.NameObject)

	case vm.OP_ADD_DWORD, vm.OP_SUB_DWORD, vm.OP_MUL_DWORD,
		vm.OP_DIV_DWORD, vm.OP_REM_DWORD:
		return lookup(metadata.NameInt32)

	case vm.OP_ADD_QWORD, vm.OP_SUB_QWORD, vm.OP_MUL_QWORD,
		vm.OP_DIV_QWORD, vm.OP_REM_QWORD:
		return lookup(metadata.NameInt64)

	case vm.OP_CMP_EQ, vm.OP_CMP_LT, vm.OP_CMP_GT:
		// Comparison results live on the stack as 32-bit integers.
		return lookup(metadata.NameInt32)

	case vm.OP_NEG, vm.OP_NOT:
		if len(node.Arguments) == 1 {
			return r.InferType(node.Arguments[0], frame)
		}
		return nil

	case vm.OP_AND, vm.OP_OR, vm.OP_XOR, vm.OP_SHL, vm.OP_SHR:
		// Join the operand types; mixed widths promote.
		var operands []metadata.Type
		for _, arg := range node.Arguments {
			if t := r.InferType(arg, frame); t != nil {
				operands = append(operands, t)
			}
		}
		joined, err := r.lattice.CommonBaseType(operands)
		if err != nil {
			return nil
		}
		return joined

	case vm.OP_DUP:
		if len(node.Arguments) == 1 {
			return r.InferType(node.Arguments[0], frame)
		}
		return nil

	default:
		// Calls, field and element loads need signature data the token
		// stream alone does not carry.
		return nil
	}
}
