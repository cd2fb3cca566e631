// Package diagnostics carries per-method findings through the pipeline
// so every stage can report without aborting the run.
package diagnostics

import "fmt"

// Severity ranks a diagnostic.
type Severity int

const (
	Info Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	case Error:
		return "error"
	}
	return "unknown"
}

// Diagnostic is one finding produced by a pipeline stage.
type Diagnostic struct {
	Severity Severity
	Stage    string
	Method   string
	Message  string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: [%s] %s: %s", d.Severity, d.Stage, d.Method, d.Message)
}

// Bag accumulates diagnostics across stages.
type Bag struct {
	items []Diagnostic
}

// Add appends a diagnostic.
func (b *Bag) Add(d Diagnostic) {
	b.items = append(b.items, d)
}

// Errorf records an error-severity diagnostic.
func (b *Bag) Errorf(stage, method, format string, args ...any) {
	b.Add(Diagnostic{Severity: Error, Stage: stage, Method: method, Message: fmt.Sprintf(format, args...)})
}

// Warnf records a warning-severity diagnostic.
func (b *Bag) Warnf(stage, method, format string, args ...any) {
	b.Add(Diagnostic{Severity: Warning, Stage: stage, Method: method, Message: fmt.Sprintf(format, args...)})
}

// Items returns every recorded diagnostic in order.
func (b *Bag) Items() []Diagnostic {
	return b.items
}

// HasErrors reports whether any recorded diagnostic is an error.
func (b *Bag) HasErrors() bool {
	for _, d := range b.items {
		if d.Severity == Error {
			return true
		}
	}
	return false
}
