package disasm

import (
	"fmt"
	"strings"

	"github.com/unvirt/unvirt/internal/ast"
	"github.com/unvirt/unvirt/internal/vm"
)

// Listing returns a human-readable representation of a decoded block.
func Listing(instructions []vm.Instruction, name string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("== %s ==\n", name))
	for _, ins := range instructions {
		sb.WriteString(fmt.Sprintf("%04d %s", ins.Offset, ins.Op))
		if ins.Operand != nil {
			sb.WriteString(fmt.Sprintf(" %v", ins.Operand))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// TreeListing returns a human-readable representation of recovered
// instruction trees, one root per line.
func TreeListing(roots []ast.Expression, name string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("== %s ==\n", name))
	for _, root := range roots {
		offset := 0
		if ie, ok := root.(*ast.InstructionExpr); ok {
			offset = ie.Offset
		}
		sb.WriteString(fmt.Sprintf("%04d %s\n", offset, root.String()))
	}
	return sb.String()
}
