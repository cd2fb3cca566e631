// Package pipeline chains the devirtualization stages over a shared
// context: decode, tree lift, rewrite, frame typing and emission.
package pipeline

import (
	"github.com/unvirt/unvirt/internal/ast"
	"github.com/unvirt/unvirt/internal/bundle"
	"github.com/unvirt/unvirt/internal/diagnostics"
	"github.com/unvirt/unvirt/internal/metadata"
	"github.com/unvirt/unvirt/internal/recompile"
	"github.com/unvirt/unvirt/internal/vm"
)

// MethodState carries one method through the stages. A stage that fails
// a method marks it Failed and later stages skip it; the run continues
// so one broken method cannot hide findings in the others.
type MethodState struct {
	Name  string
	Token uint32
	Body  []byte

	Decoded []vm.Instruction
	Trees   []ast.Expression
	Frame   *recompile.Frame
	Output  []recompile.TargetInstruction

	// RuleHits counts rewrite-rule applications per rule name.
	RuleHits map[string]int

	Failed bool
}

// Context is the shared state one run threads through every stage.
type Context struct {
	Module    string
	OpcodeMap vm.OpcodeMap
	Universe  *metadata.Universe
	Methods   []*MethodState
	Diags     *diagnostics.Bag
}

// NewContext builds a run context from an input bundle.
func NewContext(b *bundle.Bundle, opcodeMap vm.OpcodeMap, u *metadata.Universe) *Context {
	ctx := &Context{
		Module:    b.Module,
		OpcodeMap: opcodeMap,
		Universe:  u,
		Diags:     &diagnostics.Bag{},
	}
	for _, m := range b.Methods {
		ctx.Methods = append(ctx.Methods, &MethodState{
			Name:     m.Name,
			Token:    m.Token,
			Body:     m.Body,
			RuleHits: make(map[string]int),
		})
	}
	return ctx
}

// Processor is one pipeline stage.
type Processor interface {
	Name() string
	Process(ctx *Context) *Context
}

// Pipeline represents a sequence of processing stages.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes the pipeline.
func (p *Pipeline) Run(initialCtx *Context) *Context {
	ctx := initialCtx
	for _, processor := range p.processors {
		ctx = processor.Process(ctx)
		// Continue on errors to collect diagnostics from all stages.
	}
	return ctx
}
