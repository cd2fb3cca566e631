package disasm

import (
	"errors"
	"strings"
	"testing"

	"github.com/unvirt/unvirt/internal/ast"
	"github.com/unvirt/unvirt/internal/vm"
)

func TestBuildTreeFoldsStack(t *testing.T) {
	// R0 = R4 + 7
	instructions := []vm.Instruction{
		{Offset: 0, Op: vm.OP_PUSHR_DWORD, Operand: vm.REG_R4},
		{Offset: 2, Op: vm.OP_PUSHI_DWORD, Operand: int32(7)},
		{Offset: 7, Op: vm.OP_ADD_DWORD},
		{Offset: 8, Op: vm.OP_POP, Operand: vm.REG_R0},
	}

	roots, err := BuildTree(instructions)
	if err != nil {
		t.Fatalf("BuildTree() error = %v", err)
	}
	if len(roots) != 1 {
		t.Fatalf("BuildTree() roots = %d, want 1", len(roots))
	}

	pop, ok := roots[0].(*ast.InstructionExpr)
	if !ok || pop.Op != vm.OP_POP {
		t.Fatalf("root = %s, want POP", roots[0])
	}
	add, ok := pop.Arguments[0].(*ast.InstructionExpr)
	if !ok || add.Op != vm.OP_ADD_DWORD {
		t.Fatalf("POP argument = %s, want ADD_DWORD", pop.Arguments[0])
	}
	if len(add.Arguments) != 2 {
		t.Fatalf("ADD arguments = %d, want 2", len(add.Arguments))
	}

	push, ok := add.Arguments[0].(*ast.InstructionExpr)
	if !ok || push.Op != vm.OP_PUSHR_DWORD {
		t.Fatalf("first ADD argument = %s, want PUSHR_DWORD", add.Arguments[0])
	}
	reg, ok := push.Arguments[0].(*ast.VariableExpr)
	if !ok || reg.Register != vm.REG_R4 {
		t.Errorf("register argument = %s, want R4", push.Arguments[0])
	}
}

func TestBuildTreeLeavesResidualStack(t *testing.T) {
	instructions := []vm.Instruction{
		{Op: vm.OP_PUSHI_DWORD, Operand: int32(1)},
		{Op: vm.OP_PUSHI_DWORD, Operand: int32(2)},
	}
	roots, err := BuildTree(instructions)
	if err != nil {
		t.Fatalf("BuildTree() error = %v", err)
	}
	if len(roots) != 2 {
		t.Errorf("BuildTree() roots = %d, want 2 residual pushes", len(roots))
	}
}

func TestBuildTreeDup(t *testing.T) {
	// R0 = 1 + 1, written with a duplicated push.
	instructions := []vm.Instruction{
		{Offset: 0, Op: vm.OP_PUSHI_DWORD, Operand: int32(1)},
		{Offset: 5, Op: vm.OP_DUP},
		{Offset: 6, Op: vm.OP_ADD_DWORD},
		{Offset: 7, Op: vm.OP_POP, Operand: vm.REG_R0},
	}

	roots, err := BuildTree(instructions)
	if err != nil {
		t.Fatalf("BuildTree() error = %v", err)
	}
	if len(roots) != 1 {
		t.Fatalf("BuildTree() roots = %d, want 1", len(roots))
	}
	add, ok := roots[0].(*ast.InstructionExpr).Arguments[0].(*ast.InstructionExpr)
	if !ok || add.Op != vm.OP_ADD_DWORD {
		t.Fatalf("POP argument = %s, want ADD_DWORD", roots[0])
	}
	if len(add.Arguments) != 2 {
		t.Fatalf("ADD arguments = %d, want 2", len(add.Arguments))
	}
	if add.Arguments[0] != add.Arguments[1] {
		t.Error("duplicated slot is not a second reference to the pushed sub-tree")
	}
	push, ok := add.Arguments[0].(*ast.InstructionExpr)
	if !ok || push.Op != vm.OP_PUSHI_DWORD || push.Operand != any(int32(1)) {
		t.Errorf("duplicated argument = %s, want PUSHI_DWORD[1]", add.Arguments[0])
	}
}

func TestBuildTreeSwap(t *testing.T) {
	// R0 = 2 - 1: the operands are pushed in reverse and exchanged.
	instructions := []vm.Instruction{
		{Offset: 0, Op: vm.OP_PUSHI_DWORD, Operand: int32(1)},
		{Offset: 5, Op: vm.OP_PUSHI_DWORD, Operand: int32(2)},
		{Offset: 10, Op: vm.OP_SWAP},
		{Offset: 11, Op: vm.OP_SUB_DWORD},
		{Offset: 12, Op: vm.OP_POP, Operand: vm.REG_R0},
	}

	roots, err := BuildTree(instructions)
	if err != nil {
		t.Fatalf("BuildTree() error = %v", err)
	}
	sub, ok := roots[0].(*ast.InstructionExpr).Arguments[0].(*ast.InstructionExpr)
	if !ok || sub.Op != vm.OP_SUB_DWORD {
		t.Fatalf("POP argument = %s, want SUB_DWORD", roots[0])
	}
	lhs := sub.Arguments[0].(*ast.InstructionExpr)
	rhs := sub.Arguments[1].(*ast.InstructionExpr)
	if lhs.Operand != any(int32(2)) || rhs.Operand != any(int32(1)) {
		t.Errorf("SUB arguments = [%v, %v], want [2, 1]", lhs.Operand, rhs.Operand)
	}
}

func TestBuildTreeRet(t *testing.T) {
	// A void return consumes nothing; a value return takes the top slot.
	roots, err := BuildTree([]vm.Instruction{{Op: vm.OP_RET}})
	if err != nil {
		t.Fatalf("BuildTree(void ret) error = %v", err)
	}
	ret := roots[0].(*ast.InstructionExpr)
	if ret.Op != vm.OP_RET || len(ret.Arguments) != 0 {
		t.Errorf("void return = %s, want bare RET", roots[0])
	}

	roots, err = BuildTree([]vm.Instruction{
		{Offset: 0, Op: vm.OP_PUSHI_DWORD, Operand: int32(5)},
		{Offset: 5, Op: vm.OP_RET},
	})
	if err != nil {
		t.Fatalf("BuildTree(value ret) error = %v", err)
	}
	ret = roots[0].(*ast.InstructionExpr)
	if len(ret.Arguments) != 1 {
		t.Fatalf("value return arguments = %d, want 1", len(ret.Arguments))
	}
}

func TestBuildTreeUnderflow(t *testing.T) {
	tests := []struct {
		name         string
		instructions []vm.Instruction
	}{
		{
			name:         "binary op on empty stack",
			instructions: []vm.Instruction{{Op: vm.OP_ADD_DWORD}},
		},
		{
			name:         "dup on empty stack",
			instructions: []vm.Instruction{{Op: vm.OP_DUP}},
		},
		{
			name: "swap with one slot",
			instructions: []vm.Instruction{
				{Op: vm.OP_PUSHI_DWORD, Operand: int32(1)},
				{Offset: 5, Op: vm.OP_SWAP},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildTree(tt.instructions)
			if !errors.Is(err, ErrStackUnderflow) {
				t.Errorf("BuildTree() error = %v, want ErrStackUnderflow", err)
			}
		})
	}
}

func TestListings(t *testing.T) {
	instructions := []vm.Instruction{
		{Offset: 0, Op: vm.OP_PUSHR_DWORD, Operand: vm.REG_R4},
		{Offset: 2, Op: vm.OP_RET},
	}
	listing := Listing(instructions, "Demo::Main")
	for _, want := range []string{"== Demo::Main ==", "0000 PUSHR_DWORD R4", "0002 RET"} {
		if !strings.Contains(listing, want) {
			t.Errorf("Listing() missing %q in:\n%s", want, listing)
		}
	}

	roots, err := BuildTree(instructions)
	if err != nil {
		t.Fatalf("BuildTree() error = %v", err)
	}
	trees := TreeListing(roots, "Demo::Main")
	if !strings.Contains(trees, "PUSHR_DWORD[R4](R4)") {
		t.Errorf("TreeListing() missing folded push in:\n%s", trees)
	}
}
