// Package ast defines the instruction tree recovered from decoded VM
// bytecode. Nodes are immutable once built; rewrite passes produce new
// nodes rather than mutating in place.
package ast

import (
	"fmt"
	"strings"

	"github.com/unvirt/unvirt/internal/vm"
)

// Operand is the decoded operand value an instruction carries: a
// vm.Register, int32, int64 or uint32 metadata token, or nil for none.
type Operand = any

// Expression is the base interface for all instruction tree nodes.
type Expression interface {
	expressionNode()
	String() string
}

// InstructionExpr represents one VM instruction together with the
// expressions that produced its consumed stack slots.
type InstructionExpr struct {
	Offset    int // Bytecode offset the instruction was decoded at
	Op        vm.Opcode
	Operand   Operand
	Arguments []Expression
}

func (ie *InstructionExpr) expressionNode() {}

func (ie *InstructionExpr) String() string {
	var sb strings.Builder
	sb.WriteString(ie.Op.String())
	if ie.Operand != nil {
		sb.WriteString(fmt.Sprintf("[%v]", ie.Operand))
	}
	if len(ie.Arguments) > 0 {
		sb.WriteString("(")
		for i, arg := range ie.Arguments {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(arg.String())
		}
		sb.WriteString(")")
	}
	return sb.String()
}

// WithArguments returns a copy of the instruction with the argument list
// replaced. The receiver is left untouched.
func (ie *InstructionExpr) WithArguments(args []Expression) *InstructionExpr {
	clone := *ie
	clone.Arguments = args
	return &clone
}

// VariableExpr references a register of the VM register file.
type VariableExpr struct {
	Offset   int // Offset of the instruction the reference was lifted from
	Register vm.Register
}

func (ve *VariableExpr) expressionNode() {}

func (ve *VariableExpr) String() string {
	return ve.Register.String()
}

// NewInstruction builds an instruction node.
func NewInstruction(op vm.Opcode, operand Operand, args ...Expression) *InstructionExpr {
	return &InstructionExpr{Op: op, Operand: operand, Arguments: args}
}

// NewVariable builds a register reference node.
func NewVariable(reg vm.Register) *VariableExpr {
	return &VariableExpr{Register: reg}
}
