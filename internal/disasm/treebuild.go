// Package disasm lifts decoded VM instructions into instruction trees
// and renders human-readable listings of both forms.
package disasm

import (
	"errors"
	"fmt"

	"github.com/unvirt/unvirt/internal/ast"
	"github.com/unvirt/unvirt/internal/vm"
)

// ErrStackUnderflow indicates an instruction consuming more stack slots
// than the preceding instructions produced. Obfuscators emit balanced
// blocks, so an underflow means a wrong opcode map or a corrupt blob.
var ErrStackUnderflow = errors.New("evaluation stack underflow")

// BuildTree lifts a flat instruction block into expression trees by
// simulating the evaluation stack: every consumed slot becomes an
// argument sub-node, register operands of pushes become variable
// references, and each statement-level instruction roots one tree.
func BuildTree(instructions []vm.Instruction) ([]ast.Expression, error) {
	var stack []ast.Expression
	var roots []ast.Expression

	for _, ins := range instructions {
		// DUP and SWAP rearrange the stack without rooting a tree: the
		// duplicate becomes a second reference to the same sub-tree, the
		// exchange just reorders the simulated slots.
		switch ins.Op {
		case vm.OP_DUP:
			if len(stack) < 1 {
				return nil, fmt.Errorf("%w: %s at offset %d needs 1, have 0",
					ErrStackUnderflow, ins.Op, ins.Offset)
			}
			stack = append(stack, stack[len(stack)-1])
			continue
		case vm.OP_SWAP:
			if len(stack) < 2 {
				return nil, fmt.Errorf("%w: %s at offset %d needs 2, have %d",
					ErrStackUnderflow, ins.Op, ins.Offset, len(stack))
			}
			stack[len(stack)-1], stack[len(stack)-2] = stack[len(stack)-2], stack[len(stack)-1]
			continue
		}

		pops := vm.StackPops(ins.Op)
		// RET returns the top of stack when one exists; a void return
		// leaves nothing to consume.
		if ins.Op == vm.OP_RET && len(stack) == 0 {
			pops = 0
		}
		if pops > len(stack) {
			return nil, fmt.Errorf("%w: %s at offset %d needs %d, have %d",
				ErrStackUnderflow, ins.Op, ins.Offset, pops, len(stack))
		}

		args := make([]ast.Expression, pops)
		copy(args, stack[len(stack)-pops:])
		stack = stack[:len(stack)-pops]

		node := &ast.InstructionExpr{
			Offset:    ins.Offset,
			Op:        ins.Op,
			Operand:   ins.Operand,
			Arguments: args,
		}
		if reg, ok := ins.Operand.(vm.Register); ok && isRegisterPush(ins.Op) {
			node.Arguments = []ast.Expression{&ast.VariableExpr{Offset: ins.Offset, Register: reg}}
		}

		if vm.Pushes(ins.Op) {
			stack = append(stack, node)
		} else {
			roots = append(roots, node)
		}
	}

	// Values left on the stack at block end feed the successor block;
	// keep them as trailing roots in stack order.
	roots = append(roots, stack...)
	return roots, nil
}

func isRegisterPush(op vm.Opcode) bool {
	switch op {
	case vm.OP_PUSHR_BYTE, vm.OP_PUSHR_WORD, vm.OP_PUSHR_DWORD,
		vm.OP_PUSHR_QWORD, vm.OP_PUSHR_OBJECT:
		return true
	}
	return false
}
