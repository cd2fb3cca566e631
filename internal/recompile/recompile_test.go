package recompile

import (
	"reflect"
	"testing"

	"github.com/unvirt/unvirt/internal/ast"
	"github.com/unvirt/unvirt/internal/metadata"
	"github.com/unvirt/unvirt/internal/vm"
)

func newRecompiler(t *testing.T) *Recompiler {
	t.Helper()
	return New(metadata.NewUniverse())
}

func TestInferType(t *testing.T) {
	r := newRecompiler(t)

	tests := []struct {
		name string
		expr ast.Expression
		want string
	}{
		{
			name: "dword immediate",
			expr: ast.NewInstruction(vm.OP_PUSHI_DWORD, int32(7)),
			want: metadata.NameInt32,
		},
		{
			name: "qword register push",
			expr: ast.NewInstruction(vm.OP_PUSHR_QWORD, vm.REG_R1, ast.NewVariable(vm.REG_R1)),
			want: metadata.NameInt64,
		},
		{
			name: "byte register push",
			expr: ast.NewInstruction(vm.OP_PUSHR_BYTE, vm.REG_R1, ast.NewVariable(vm.REG_R1)),
			want: metadata.NameByte,
		},
		{
			name: "comparison yields int32",
			expr: ast.NewInstruction(vm.OP_CMP_EQ, nil,
				ast.NewInstruction(vm.OP_PUSHI_QWORD, int64(1)),
				ast.NewInstruction(vm.OP_PUSHI_QWORD, int64(2)),
			),
			want: metadata.NameInt32,
		},
		{
			name: "not passes operand type through",
			expr: ast.NewInstruction(vm.OP_NOT, nil,
				ast.NewInstruction(vm.OP_PUSHI_QWORD, int64(1)),
			),
			want: metadata.NameInt64,
		},
		{
			name: "bitwise and promotes mixed widths",
			expr: ast.NewInstruction(vm.OP_AND, nil,
				ast.NewInstruction(vm.OP_PUSHI_DWORD, int32(1)),
				ast.NewInstruction(vm.OP_PUSHI_QWORD, int64(2)),
			),
			want: metadata.NameInt64,
		},
		{
			name: "box yields object",
			expr: ast.NewInstruction(vm.OP_BOX, uint32(0x0100_0002),
				ast.NewInstruction(vm.OP_PUSHI_DWORD, int32(1)),
			),
			want: metadata.NameObject,
		},
		{
			name: "call gives no evidence",
			expr: ast.NewInstruction(vm.OP_CALL, uint32(0x0600_0001)),
			want: "",
		},
		{
			name: "register without frame gives no evidence",
			expr: ast.NewVariable(vm.REG_R2),
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.InferType(tt.expr, nil)
			if tt.want == "" {
				if got != nil {
					t.Errorf("InferType() = %s, want nil", got.FullName())
				}
				return
			}
			if got == nil || got.FullName() != tt.want {
				t.Errorf("InferType() = %v, want %s", got, tt.want)
			}
		})
	}
}

func TestInferTypeUsesFrame(t *testing.T) {
	r := newRecompiler(t)
	roots := []ast.Expression{
		ast.NewInstruction(vm.OP_POP, vm.REG_R0,
			ast.NewInstruction(vm.OP_PUSHI_QWORD, int64(9)),
		),
	}
	frame, err := r.AssignFrame(roots)
	if err != nil {
		t.Fatalf("AssignFrame() error = %v", err)
	}

	got := r.InferType(ast.NewVariable(vm.REG_R0), frame)
	if got == nil || got.FullName() != metadata.NameInt64 {
		t.Errorf("InferType(R0) = %v, want %s", got, metadata.NameInt64)
	}
}

func TestAssignFrame(t *testing.T) {
	r := newRecompiler(t)

	// R0 takes both a 32-bit and a 64-bit store; R2 is only read.
	roots := []ast.Expression{
		ast.NewInstruction(vm.OP_POP, vm.REG_R0,
			ast.NewInstruction(vm.OP_PUSHI_DWORD, int32(1)),
		),
		ast.NewInstruction(vm.OP_POP, vm.REG_R0,
			ast.NewInstruction(vm.OP_PUSHI_QWORD, int64(2)),
		),
		ast.NewInstruction(vm.OP_POP, vm.REG_R1,
			ast.NewVariable(vm.REG_R2),
		),
	}

	frame, err := r.AssignFrame(roots)
	if err != nil {
		t.Fatalf("AssignFrame() error = %v", err)
	}
	if len(frame.Locals) != 3 {
		t.Fatalf("AssignFrame() locals = %d, want 3", len(frame.Locals))
	}

	wantTypes := map[vm.Register]string{
		vm.REG_R0: metadata.NameInt64,
		vm.REG_R1: metadata.NameObject,
		vm.REG_R2: metadata.NameObject,
	}
	for reg, want := range wantTypes {
		local, ok := frame.LocalFor(reg)
		if !ok {
			t.Fatalf("LocalFor(%s) missing", reg)
		}
		if local.Type.FullName() != want {
			t.Errorf("local %s type = %s, want %s", reg, local.Type.FullName(), want)
		}
	}

	// Indices follow register order, not first-touch order.
	for i, local := range frame.Locals {
		if local.Index != i {
			t.Errorf("Locals[%d].Index = %d", i, local.Index)
		}
		if i > 0 && frame.Locals[i-1].Register > local.Register {
			t.Errorf("locals not sorted by register: %s before %s",
				frame.Locals[i-1].Register, local.Register)
		}
	}
}

func TestEmitExpression(t *testing.T) {
	r := newRecompiler(t)

	roots := []ast.Expression{
		ast.NewInstruction(vm.OP_POP, vm.REG_R0,
			ast.NewInstruction(vm.OP_ADD_DWORD, nil,
				ast.NewInstruction(vm.OP_PUSHI_DWORD, int32(2)),
				ast.NewInstruction(vm.OP_PUSHI_DWORD, int32(3)),
			),
		),
	}
	frame, err := r.AssignFrame(roots)
	if err != nil {
		t.Fatalf("AssignFrame() error = %v", err)
	}

	got, err := r.Emit(roots, frame)
	if err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	want := []TargetInstruction{
		{Op: T_LDC_I4, Operand: int32(2)},
		{Op: T_LDC_I4, Operand: int32(3)},
		{Op: T_ADD},
		{Op: T_STLOC, Operand: 0},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Emit() = %v, want %v", got, want)
	}
}

func TestEmitInsertsConversion(t *testing.T) {
	r := newRecompiler(t)

	// The mixed stores widen R0 to Int64, so the 32-bit store needs an
	// explicit conversion in front.
	roots := []ast.Expression{
		ast.NewInstruction(vm.OP_POP, vm.REG_R0,
			ast.NewInstruction(vm.OP_PUSHI_DWORD, int32(1)),
		),
		ast.NewInstruction(vm.OP_POP, vm.REG_R0,
			ast.NewInstruction(vm.OP_PUSHI_QWORD, int64(2)),
		),
	}
	frame, err := r.AssignFrame(roots)
	if err != nil {
		t.Fatalf("AssignFrame() error = %v", err)
	}

	got, err := r.Emit(roots, frame)
	if err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	want := []TargetInstruction{
		{Op: T_LDC_I4, Operand: int32(1)},
		{Op: T_CONV_I8},
		{Op: T_STLOC, Operand: 0},
		{Op: T_LDC_I8, Operand: int64(2)},
		{Op: T_STLOC, Operand: 0},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Emit() = %v, want %v", got, want)
	}
}

func TestEmitLowersResidualRegisterPush(t *testing.T) {
	r := newRecompiler(t)

	roots := []ast.Expression{
		ast.NewInstruction(vm.OP_POP, vm.REG_R1,
			ast.NewInstruction(vm.OP_PUSHR_OBJECT, vm.REG_R0,
				ast.NewVariable(vm.REG_R0),
			),
		),
	}
	frame, err := r.AssignFrame(roots)
	if err != nil {
		t.Fatalf("AssignFrame() error = %v", err)
	}

	got, err := r.Emit(roots, frame)
	if err != nil {
		t.Fatalf("Emit() error = %v", err)
	}
	want := []TargetInstruction{
		{Op: T_LDLOC, Operand: 0},
		{Op: T_STLOC, Operand: 1},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Emit() = %v, want %v", got, want)
	}
}

func TestEmitErrors(t *testing.T) {
	r := newRecompiler(t)
	frame := &Frame{byReg: map[vm.Register]int{}}

	tests := []struct {
		name string
		root ast.Expression
	}{
		{
			name: "unlowered swap",
			root: ast.NewInstruction(vm.OP_SWAP, nil),
		},
		{
			name: "unassigned register",
			root: ast.NewVariable(vm.REG_R5),
		},
		{
			name: "pop without register operand",
			root: ast.NewInstruction(vm.OP_POP, nil,
				ast.NewInstruction(vm.OP_PUSHI_DWORD, int32(1)),
			),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.Emit([]ast.Expression{tt.root}, frame); err == nil {
				t.Error("Emit() error = nil, want lowering error")
			}
		})
	}
}
