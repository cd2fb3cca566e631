package rewrite

import (
	"github.com/unvirt/unvirt/internal/ast"
	"github.com/unvirt/unvirt/internal/pattern"
	"github.com/unvirt/unvirt/internal/vm"
)

// foldCapturedRegister replaces a register push with the captured
// register reference itself.
func foldCapturedRegister(result pattern.Result, _ ast.Expression) (ast.Expression, bool) {
	node, ok := result.Capture("reg")
	if !ok {
		return nil, false
	}
	return node, true
}

// StockRules returns the folding rules every devirtualization run
// starts from: register pushes collapse to the register reference they
// wrap, and NOPs disappear where they root a statement.
func StockRules() []Rule {
	return []Rule{
		{
			Name:    "fold-push-dword-register",
			Pattern: pattern.PushDWordRegister("reg"),
			Apply:   foldCapturedRegister,
		},
		{
			Name:    "fold-push-qword-register",
			Pattern: pattern.PushQWordRegister("reg"),
			Apply:   foldCapturedRegister,
		},
		{
			Name:    "fold-push-object-register",
			Pattern: pattern.PushObjectRegister("reg"),
			Apply:   foldCapturedRegister,
		},
		{
			Name: "fold-add-zero",
			Pattern: pattern.MustInstruction(pattern.Op(vm.OP_ADD_DWORD), nil,
				pattern.Any().Capture("lhs"),
				pattern.PushImmediateValue(0),
			),
			Apply: func(result pattern.Result, _ ast.Expression) (ast.Expression, bool) {
				lhs, ok := result.Capture("lhs")
				if !ok {
					return nil, false
				}
				return lhs, true
			},
		},
		{
			Name: "fold-mul-one",
			Pattern: pattern.MustInstruction(pattern.Op(vm.OP_MUL_DWORD), nil,
				pattern.Any().Capture("lhs"),
				pattern.PushImmediateValue(1),
			),
			Apply: func(result pattern.Result, _ ast.Expression) (ast.Expression, bool) {
				lhs, ok := result.Capture("lhs")
				if !ok {
					return nil, false
				}
				return lhs, true
			},
		},
		{
			Name: "fold-double-not",
			Pattern: pattern.MustInstruction(pattern.Op(vm.OP_NOT), nil,
				pattern.MustInstruction(pattern.Op(vm.OP_NOT), nil,
					pattern.Any().Capture("inner"),
				),
			),
			Apply: func(result pattern.Result, _ ast.Expression) (ast.Expression, bool) {
				inner, ok := result.Capture("inner")
				if !ok {
					return nil, false
				}
				return inner, true
			},
		},
	}
}
