package recompile

import (
	"sort"

	"github.com/unvirt/unvirt/internal/ast"
	"github.com/unvirt/unvirt/internal/metadata"
	"github.com/unvirt/unvirt/internal/vm"
)

// Local is one output frame variable, recovered from a VM register.
type Local struct {
	Index    int
	Register vm.Register
	Type     metadata.Type
}

// Frame maps VM registers to typed output locals.
type Frame struct {
	Locals []Local
	byReg  map[vm.Register]int
}

// LocalFor returns the local a register was assigned to.
func (f *Frame) LocalFor(reg vm.Register) (Local, bool) {
	idx, ok := f.byReg[reg]
	if !ok {
		return Local{}, false
	}
	return f.Locals[idx], true
}

// AssignFrame recovers the output frame for a block: every register the
// trees touch becomes a local whose static type is the common base of
// everything stored into it. A store set with no common ancestor falls
// back to the universal object type, as does a register that is only
// ever read.
func (r *Recompiler) AssignFrame(roots []ast.Expression) (*Frame, error) {
	stores := make(map[vm.Register][]metadata.Type)
	seen := make(map[vm.Register]bool)
	var order []vm.Register

	var walk func(expr ast.Expression)
	walk = func(expr ast.Expression) {
		switch node := expr.(type) {
		case *ast.VariableExpr:
			if !seen[node.Register] {
				seen[node.Register] = true
				order = append(order, node.Register)
			}
		case *ast.InstructionExpr:
			if node.Op == vm.OP_POP && len(node.Arguments) == 1 {
				if reg, ok := node.Operand.(vm.Register); ok {
					if !seen[reg] {
						seen[reg] = true
						order = append(order, reg)
					}
					if t := r.InferType(node.Arguments[0], nil); t != nil {
						stores[reg] = append(stores[reg], t)
					}
				}
			}
			for _, arg := range node.Arguments {
				walk(arg)
			}
		}
	}
	for _, root := range roots {
		walk(root)
	}

	// Registers get stable local indices regardless of first-touch
	// order inside the block.
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	frame := &Frame{byReg: make(map[vm.Register]int, len(order))}
	for i, reg := range order {
		varType, err := r.lattice.CommonBaseType(stores[reg])
		if err != nil {
			return nil, err
		}
		if varType == nil {
			varType = r.universe.Object()
		}
		frame.Locals = append(frame.Locals, Local{Index: i, Register: reg, Type: varType})
		frame.byReg[reg] = i
	}
	return frame, nil
}
