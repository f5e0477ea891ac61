// Package diag defines the structured diagnostics produced while assembling,
// the error taxonomy they are classified by, and the sink they are reported to.
package diag

import (
	"fmt"
	"slices"
)

// Severity of a diagnostic.
type Severity int

const (
	SEVERITY_INFO     = Severity(0) // info
	SEVERITY_WARNING  = Severity(1) // warning
	SEVERITY_ERROR    = Severity(2) // error
	SEVERITY_INTERNAL = Severity(3) // internal
)

var severityName = [...]string{"info", "warning", "error", "internal"}

func (sev Severity) String() string {
	if int(sev) < len(severityName) {
		return severityName[sev]
	}
	return fmt.Sprintf("Severity(%d)", int(sev))
}

// Failing returns true if the severity causes the run to fail.
func (sev Severity) Failing() bool {
	return sev >= SEVERITY_ERROR
}

// Diagnostic is a single located message.
type Diagnostic struct {
	Severity Severity
	Kind     Kind
	File     string
	Line     int
	Message  string
	Err      error // Originating error, if any.
}

// String formats the diagnostic as `file:line: severity: message`.
func (d Diagnostic) String() string {
	if d.Line == 0 {
		return fmt.Sprintf("%v: %v: %v", d.File, d.Severity, d.Message)
	}
	return fmt.Sprintf("%v:%d: %v: %v", d.File, d.Line, d.Severity, d.Message)
}

// FromError builds a diagnostic for an error raised at a source position.
func FromError(file string, line int, err error) (d Diagnostic) {
	kind := KindOf(err)
	d = Diagnostic{
		Severity: SEVERITY_ERROR,
		Kind:     kind,
		File:     file,
		Line:     line,
		Message:  err.Error(),
		Err:      err,
	}
	if kind == KIND_PASS_CONSISTENCY {
		d.Severity = SEVERITY_INTERNAL
	}
	return
}

// Sink receives diagnostics as they are produced.
type Sink interface {
	Report(d Diagnostic)
}

// List is a Sink that keeps every diagnostic in order.
type List struct {
	Diagnostics []Diagnostic
}

var _ Sink = (*List)(nil)

// Report appends the diagnostic.
func (list *List) Report(d Diagnostic) {
	list.Diagnostics = append(list.Diagnostics, d)
}

// Errors counts the failing diagnostics.
func (list *List) Errors() (count int) {
	for _, d := range list.Diagnostics {
		if d.Severity.Failing() {
			count++
		}
	}
	return
}

// Failed returns true if any failing diagnostic was reported.
func (list *List) Failed() bool {
	return list.Errors() > 0
}

// OfKind returns the diagnostics of a specific kind.
func (list *List) OfKind(kind Kind) []Diagnostic {
	return slices.DeleteFunc(slices.Clone(list.Diagnostics), func(d Diagnostic) bool {
		return d.Kind != kind
	})
}
