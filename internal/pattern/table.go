package pattern

import (
	"fmt"

	"github.com/unvirt/unvirt/internal/ast"
)

// NewInstruction builds an instruction-shape pattern. Configuration
// faults — a nil opcode matcher, a nil subpattern, duplicate capture
// names in the tree — are reported here rather than at match time;
// matching itself never fails.
func NewInstruction(opcode *OpCodePattern, operand Pattern, args ...Pattern) (*InstructionPattern, error) {
	if opcode == nil {
		return nil, fmt.Errorf("instruction pattern: missing opcode matcher")
	}
	p := &InstructionPattern{OpCode: opcode, Operand: operand, Arguments: args}
	if err := validate(p, make(map[string]bool)); err != nil {
		return nil, err
	}
	return p, nil
}

// MustInstruction is NewInstruction for statically-known shapes.
func MustInstruction(opcode *OpCodePattern, operand Pattern, args ...Pattern) *InstructionPattern {
	p, err := NewInstruction(opcode, operand, args...)
	if err != nil {
		panic(err)
	}
	return p
}

// Entry names one registered pattern of a table.
type Entry struct {
	Name    string
	Pattern Pattern
}

// Table is an ordered collection of named patterns. Ordering is the
// caller's priority order: patterns may overlap (a wildcard subsumes a
// specific shape) and the first successful entry wins. Tables are
// immutable after construction and safe for concurrent matching.
type Table struct {
	entries []Entry
}

// NewTable validates and assembles a pattern table. Construction-time
// configuration faults — an instruction pattern without an opcode
// matcher, or duplicate capture names within one pattern tree — are
// reported here.
func NewTable(entries ...Entry) (*Table, error) {
	for _, e := range entries {
		seen := make(map[string]bool)
		if err := validate(e.Pattern, seen); err != nil {
			return nil, fmt.Errorf("pattern %q: %w", e.Name, err)
		}
	}
	return &Table{entries: entries}, nil
}

// Match tries every entry in registration order against node and
// returns the first success.
func (t *Table) Match(node ast.Expression) (Entry, Result, bool) {
	for _, e := range t.entries {
		if result := Match(e.Pattern, node); result.Success {
			return e, result, true
		}
	}
	return Entry{}, Failed(), false
}

// Entries returns the registered entries in priority order.
func (t *Table) Entries() []Entry {
	return t.entries
}

func validate(p Pattern, seen map[string]bool) error {
	if p == nil {
		return fmt.Errorf("nil subpattern")
	}
	if name := p.CaptureName(); name != "" {
		if seen[name] {
			return fmt.Errorf("duplicate capture name %q", name)
		}
		seen[name] = true
	}
	ip, ok := p.(*InstructionPattern)
	if !ok {
		return nil
	}
	if ip.OpCode == nil {
		return fmt.Errorf("instruction pattern: missing opcode matcher")
	}
	if err := validate(ip.OpCode, seen); err != nil {
		return err
	}
	if ip.Operand != nil {
		if err := validate(ip.Operand, seen); err != nil {
			return err
		}
	}
	for _, arg := range ip.Arguments {
		if err := validate(arg, seen); err != nil {
			return err
		}
	}
	return nil
}
