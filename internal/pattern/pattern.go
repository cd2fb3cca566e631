// Package pattern implements structural matching over recovered
// instruction trees. A pattern is a closed set of matcher variants; Match
// is total and pure, so rewrite workers may share pattern tables across
// goroutines.
package pattern

import (
	"reflect"

	"github.com/unvirt/unvirt/internal/ast"
	"github.com/unvirt/unvirt/internal/vm"
)

// Pattern is the closed interface over all matcher variants. Adding a
// variant requires updating Match and the table validator, which is the
// point: every matching site is forced to handle it.
type Pattern interface {
	patternNode()
	// CaptureName returns the name the matched node is exported under,
	// or "" when the node captures nothing.
	CaptureName() string
}

// AnyPattern matches any instruction tree node.
type AnyPattern struct {
	name string
}

func (p *AnyPattern) patternNode()        {}
func (p *AnyPattern) CaptureName() string { return p.name }

// Capture returns a copy exporting the matched node under name.
func (p *AnyPattern) Capture(name string) *AnyPattern {
	clone := *p
	clone.name = name
	return &clone
}

// OpCodePattern matches an instruction node with exactly the given opcode.
type OpCodePattern struct {
	name string
	Op   vm.Opcode
}

func (p *OpCodePattern) patternNode()        {}
func (p *OpCodePattern) CaptureName() string { return p.name }

// Capture returns a copy exporting the matched node under name.
func (p *OpCodePattern) Capture(name string) *OpCodePattern {
	clone := *p
	clone.name = name
	return &clone
}

// OperandPattern matches an instruction node by its decoded operand
// value. The wildcard form matches any operand, including none.
type OperandPattern struct {
	name     string
	wildcard bool
	Value    ast.Operand
}

func (p *OperandPattern) patternNode()        {}
func (p *OperandPattern) CaptureName() string { return p.name }

// Wildcard reports whether the pattern accepts any operand.
func (p *OperandPattern) Wildcard() bool { return p.wildcard }

// Capture returns a copy exporting the matched node under name.
func (p *OperandPattern) Capture(name string) *OperandPattern {
	clone := *p
	clone.name = name
	return &clone
}

// VariablePattern matches a register reference node. The any-register
// form matches every register of the file.
type VariablePattern struct {
	name        string
	anyRegister bool
	Register    vm.Register
}

func (p *VariablePattern) patternNode()        {}
func (p *VariablePattern) CaptureName() string { return p.name }

// AnyRegister reports whether the pattern accepts any register.
func (p *VariablePattern) AnyRegister() bool { return p.anyRegister }

// Capture returns a copy exporting the matched node under name.
func (p *VariablePattern) Capture(name string) *VariablePattern {
	clone := *p
	clone.name = name
	return &clone
}

// InstructionPattern matches a full instruction shape: opcode, operand
// and an ordered, fixed-arity list of argument subpatterns.
type InstructionPattern struct {
	name      string
	OpCode    *OpCodePattern // Required; enforced at construction
	Operand   Pattern        // nil means unconstrained
	Arguments []Pattern
}

func (p *InstructionPattern) patternNode()        {}
func (p *InstructionPattern) CaptureName() string { return p.name }

// Capture returns a copy exporting the matched node under name.
func (p *InstructionPattern) Capture(name string) *InstructionPattern {
	clone := *p
	clone.name = name
	return &clone
}

// Any matches any node.
func Any() *AnyPattern { return &AnyPattern{} }

// Op matches an instruction node with the given opcode.
func Op(op vm.Opcode) *OpCodePattern { return &OpCodePattern{Op: op} }

// OperandValue matches an instruction node whose operand equals v.
func OperandValue(v ast.Operand) *OperandPattern { return &OperandPattern{Value: v} }

// AnyOperand matches an instruction node regardless of its operand.
func AnyOperand() *OperandPattern { return &OperandPattern{wildcard: true} }

// Reg matches a reference to one specific register.
func Reg(r vm.Register) *VariablePattern { return &VariablePattern{Register: r} }

// AnyRegister matches a reference to any register.
func AnyRegister() *VariablePattern { return &VariablePattern{anyRegister: true} }

// Match tests a pattern against a node. It is total: every (pattern,
// node) pair yields a definite result and no error path exists.
func Match(p Pattern, node ast.Expression) Result {
	switch pat := p.(type) {
	case *AnyPattern:
		return Matched().Bind(pat.name, node)

	case *OpCodePattern:
		ie, ok := node.(*ast.InstructionExpr)
		if !ok || ie.Op != pat.Op {
			return Failed()
		}
		return Matched().Bind(pat.name, node)

	case *OperandPattern:
		ie, ok := node.(*ast.InstructionExpr)
		if !ok {
			return Failed()
		}
		// DeepEqual keeps Match total on operand kinds Go cannot
		// compare with ==.
		if !pat.wildcard && !reflect.DeepEqual(ie.Operand, pat.Value) {
			return Failed()
		}
		return Matched().Bind(pat.name, node)

	case *VariablePattern:
		ve, ok := node.(*ast.VariableExpr)
		if !ok {
			return Failed()
		}
		if !pat.anyRegister && ve.Register != pat.Register {
			return Failed()
		}
		return Matched().Bind(pat.name, node)

	case *InstructionPattern:
		ie, ok := node.(*ast.InstructionExpr)
		if !ok {
			return Failed()
		}
		result := Match(pat.OpCode, node)
		if !result.Success {
			return Failed()
		}
		if pat.Operand != nil {
			result = result.Combine(Match(pat.Operand, node))
			if !result.Success {
				return Failed()
			}
		}
		if len(ie.Arguments) != len(pat.Arguments) {
			return Failed()
		}
		for i, argPat := range pat.Arguments {
			result = result.Combine(Match(argPat, ie.Arguments[i]))
			if !result.Success {
				return Failed()
			}
		}
		return result.Bind(pat.name, node)

	default:
		return Failed()
	}
}
