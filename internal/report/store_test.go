package report

import (
	"path/filepath"
	"testing"

	"github.com/unvirt/unvirt/internal/pipeline"
	"github.com/unvirt/unvirt/internal/recompile"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleContext() *pipeline.Context {
	return &pipeline.Context{
		Module: "Acme.Payment.dll",
		Methods: []*pipeline.MethodState{
			{
				Name:     "Gateway::Charge",
				Token:    0x0600_0001,
				RuleHits: map[string]int{"fold-push-dword-register": 2},
				Output:   []recompile.TargetInstruction{{Op: recompile.T_RET}},
			},
			{
				Name:   "Gateway::Corrupt",
				Token:  0x0600_0002,
				Failed: true,
			},
		},
	}
}

func TestRecordRunAndList(t *testing.T) {
	s := openStore(t)

	runID, err := s.RecordRun("acme-build-42", sampleContext())
	if err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}
	if runID == "" {
		t.Fatal("RecordRun() returned empty run id")
	}

	runs, err := s.Runs()
	if err != nil {
		t.Fatalf("Runs() error = %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("Runs() = %d entries, want 1", len(runs))
	}
	got := runs[0]
	if got.ID != runID {
		t.Errorf("ID = %q, want %q", got.ID, runID)
	}
	if got.Module != "Acme.Payment.dll" || got.Profile != "acme-build-42" {
		t.Errorf("run = %+v, want module Acme.Payment.dll profile acme-build-42", got)
	}
	if got.Methods != 2 || got.Failed != 1 {
		t.Errorf("run counts = %d/%d, want 2 methods 1 failed", got.Methods, got.Failed)
	}
}

func TestRecordRunAssignsDistinctIDs(t *testing.T) {
	s := openStore(t)

	first, err := s.RecordRun("p", sampleContext())
	if err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}
	second, err := s.RecordRun("p", sampleContext())
	if err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}
	if first == second {
		t.Errorf("both runs share id %q", first)
	}

	runs, err := s.Runs()
	if err != nil {
		t.Fatalf("Runs() error = %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("Runs() = %d entries, want 2", len(runs))
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := s.RecordRun("p", sampleContext()); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}
	s.Close()

	// Reopening an existing store must keep its rows.
	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()
	runs, err := s.Runs()
	if err != nil {
		t.Fatalf("Runs() error = %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("Runs() after reopen = %d entries, want 1", len(runs))
	}
}
