// Package rewrite applies pattern-guided tree replacements to recovered
// instruction trees. A pass owns an ordered rule table; rules fire
// bottom-up and the pass iterates to a fixpoint.
package rewrite

import (
	"fmt"

	"github.com/unvirt/unvirt/internal/ast"
	"github.com/unvirt/unvirt/internal/pattern"
)

// maxIterations caps fixpoint iteration per root so a misconfigured
// rule pair cannot ping-pong forever.
const maxIterations = 64

// Rule pairs a recognizing pattern with the replacement it guides.
// Apply returns the replacement node and true, or false to decline the
// match after inspecting its captures.
type Rule struct {
	Name    string
	Pattern pattern.Pattern
	Apply   func(result pattern.Result, node ast.Expression) (ast.Expression, bool)
}

// Pass is an ordered rule set over one pattern table. Passes are
// immutable after construction and safe for concurrent use on disjoint
// trees.
type Pass struct {
	rules map[string]Rule
	table *pattern.Table
}

// NewPass validates the rule patterns and assembles a pass. Rule order
// is priority order, exactly as a pattern table's.
func NewPass(rules ...Rule) (*Pass, error) {
	entries := make([]pattern.Entry, len(rules))
	byName := make(map[string]Rule, len(rules))
	for i, r := range rules {
		if r.Apply == nil {
			return nil, fmt.Errorf("rule %q: nil apply func", r.Name)
		}
		if _, dup := byName[r.Name]; dup {
			return nil, fmt.Errorf("rule %q registered twice", r.Name)
		}
		entries[i] = pattern.Entry{Name: r.Name, Pattern: r.Pattern}
		byName[r.Name] = r
	}
	table, err := pattern.NewTable(entries...)
	if err != nil {
		return nil, err
	}
	return &Pass{rules: byName, table: table}, nil
}

// Rewrite returns the fixpoint of applying the pass to one tree. The
// input tree is never mutated. A non-nil hits map counts applications
// per rule name.
func (p *Pass) Rewrite(root ast.Expression, hits map[string]int) ast.Expression {
	current := root
	for i := 0; i < maxIterations; i++ {
		next, changed := p.rewriteNode(current, hits)
		if !changed {
			return current
		}
		current = next
	}
	return current
}

// RewriteAll rewrites every root of a block.
func (p *Pass) RewriteAll(roots []ast.Expression, hits map[string]int) []ast.Expression {
	out := make([]ast.Expression, len(roots))
	for i, root := range roots {
		out[i] = p.Rewrite(root, hits)
	}
	return out
}

func (p *Pass) rewriteNode(node ast.Expression, hits map[string]int) (ast.Expression, bool) {
	changed := false

	if ie, ok := node.(*ast.InstructionExpr); ok && len(ie.Arguments) > 0 {
		newArgs := make([]ast.Expression, len(ie.Arguments))
		argsChanged := false
		for i, arg := range ie.Arguments {
			newArg, c := p.rewriteNode(arg, hits)
			newArgs[i] = newArg
			argsChanged = argsChanged || c
		}
		if argsChanged {
			node = ie.WithArguments(newArgs)
			changed = true
		}
	}

	entry, result, ok := p.table.Match(node)
	if !ok {
		return node, changed
	}
	replacement, applied := p.rules[entry.Name].Apply(result, node)
	if !applied || replacement == node {
		return node, changed
	}
	if hits != nil {
		hits[entry.Name]++
	}
	return replacement, true
}
