package scheduler

import "fmt"

// DiagnosticCode identifies one class of schedule-build failure. Each kind
// gets exactly one code, never shared between two unrelated failures.
type DiagnosticCode string

const (
	CodeUnknownSystem    DiagnosticCode = "VECS.G001"
	CodeUnknownSet       DiagnosticCode = "VECS.G002"
	CodeOrderingCycle    DiagnosticCode = "VECS.G003"
	CodeAccessConflict   DiagnosticCode = "VECS.G004"
	CodeDuplicateSystem  DiagnosticCode = "VECS.G005"
	CodeMissingCondition DiagnosticCode = "VECS.G006"
)

// Diagnostic is a typed schedule-build error, surfaced to the caller of
// Graph.Build rather than panicking: malformed schedules are a user
// configuration mistake, not a runtime invariant violation.
type Diagnostic struct {
	Code    DiagnosticCode
	Message string
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s", d.Code, d.Message)
}

func newDiagnostic(code DiagnosticCode, format string, args ...any) *Diagnostic {
	return &Diagnostic{Code: code, Message: fmt.Sprintf(format, args...)}
}
