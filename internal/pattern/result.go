package pattern

import (
	"github.com/unvirt/unvirt/internal/ast"
	"github.com/unvirt/unvirt/internal/vm"
)

// Result is the outcome of matching one pattern against one node.
// Results are values; Bind and Combine return new results and never
// mutate their receivers.
type Result struct {
	Success  bool
	Captures map[string]ast.Expression
}

// Matched returns a successful result with no captures.
func Matched() Result {
	return Result{Success: true}
}

// Failed returns a failed result. Captures of a failed result are
// always empty.
func Failed() Result {
	return Result{}
}

// Bind returns a copy with node exported under name. Binding the empty
// name or binding onto a failed result is a no-op; capturing never
// alters match success.
func (r Result) Bind(name string, node ast.Expression) Result {
	if !r.Success || name == "" {
		return r
	}
	captures := make(map[string]ast.Expression, len(r.Captures)+1)
	for k, v := range r.Captures {
		captures[k] = v
	}
	captures[name] = node
	return Result{Success: true, Captures: captures}
}

// Combine merges two results: success is the logical AND and capture
// sets are unioned. Capture names are unique within one pattern tree
// (enforced when the table is built), so the union never overwrites.
func (r Result) Combine(other Result) Result {
	if !r.Success || !other.Success {
		return Failed()
	}
	if len(other.Captures) == 0 {
		return r
	}
	if len(r.Captures) == 0 {
		return other
	}
	captures := make(map[string]ast.Expression, len(r.Captures)+len(other.Captures))
	for k, v := range r.Captures {
		captures[k] = v
	}
	for k, v := range other.Captures {
		captures[k] = v
	}
	return Result{Success: true, Captures: captures}
}

// Capture returns the node bound under name.
func (r Result) Capture(name string) (ast.Expression, bool) {
	node, ok := r.Captures[name]
	return node, ok
}

// CapturedRegister returns the register referenced by the node bound
// under name, when that node is a register reference.
func (r Result) CapturedRegister(name string) (vm.Register, bool) {
	node, ok := r.Captures[name]
	if !ok {
		return 0, false
	}
	ve, ok := node.(*ast.VariableExpr)
	if !ok {
		return 0, false
	}
	return ve.Register, true
}
