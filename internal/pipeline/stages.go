package pipeline

import (
	"github.com/unvirt/unvirt/internal/disasm"
	"github.com/unvirt/unvirt/internal/metadata"
	"github.com/unvirt/unvirt/internal/profile"
	"github.com/unvirt/unvirt/internal/recompile"
	"github.com/unvirt/unvirt/internal/rewrite"
	"github.com/unvirt/unvirt/internal/vm"
)

// DecodeStage maps raw opcode bytes to canonical instructions.
type DecodeStage struct{}

func (DecodeStage) Name() string { return "decode" }

func (s DecodeStage) Process(ctx *Context) *Context {
	for _, m := range ctx.Methods {
		if m.Failed {
			continue
		}
		decoded, err := vm.Decode(m.Body, ctx.OpcodeMap)
		if err != nil {
			m.Failed = true
			ctx.Diags.Errorf(s.Name(), m.Name, "%v", err)
			continue
		}
		m.Decoded = decoded
	}
	return ctx
}

// LiftStage builds instruction trees from decoded blocks.
type LiftStage struct{}

func (LiftStage) Name() string { return "lift" }

func (s LiftStage) Process(ctx *Context) *Context {
	for _, m := range ctx.Methods {
		if m.Failed {
			continue
		}
		trees, err := disasm.BuildTree(m.Decoded)
		if err != nil {
			m.Failed = true
			ctx.Diags.Errorf(s.Name(), m.Name, "%v", err)
			continue
		}
		m.Trees = trees
	}
	return ctx
}

// RewriteStage folds recognized instruction idioms.
type RewriteStage struct {
	Pass *rewrite.Pass
}

func (RewriteStage) Name() string { return "rewrite" }

func (s RewriteStage) Process(ctx *Context) *Context {
	for _, m := range ctx.Methods {
		if m.Failed {
			continue
		}
		m.Trees = s.Pass.RewriteAll(m.Trees, m.RuleHits)
	}
	return ctx
}

// EmitStage assigns typed frames and emits output instructions.
type EmitStage struct {
	Recompiler *recompile.Recompiler
}

func (EmitStage) Name() string { return "emit" }

func (s EmitStage) Process(ctx *Context) *Context {
	for _, m := range ctx.Methods {
		if m.Failed {
			continue
		}
		frame, err := s.Recompiler.AssignFrame(m.Trees)
		if err != nil {
			m.Failed = true
			ctx.Diags.Errorf(s.Name(), m.Name, "frame assignment: %v", err)
			continue
		}
		m.Frame = frame

		out, err := s.Recompiler.Emit(m.Trees, frame)
		if err != nil {
			m.Failed = true
			ctx.Diags.Errorf(s.Name(), m.Name, "emit: %v", err)
			continue
		}
		m.Output = out
	}
	return ctx
}

// Standard assembles the default stage chain for a profile: stock
// rewrite rules minus the profile's disabled ones, over the given
// universe.
func Standard(prof *profile.Profile, u *metadata.Universe) (*Pipeline, error) {
	var rules []rewrite.Rule
	for _, r := range rewrite.StockRules() {
		if prof.RuleDisabled(r.Name) {
			continue
		}
		rules = append(rules, r)
	}
	pass, err := rewrite.NewPass(rules...)
	if err != nil {
		return nil, err
	}
	return New(
		DecodeStage{},
		LiftStage{},
		RewriteStage{Pass: pass},
		EmitStage{Recompiler: recompile.New(u)},
	), nil
}
