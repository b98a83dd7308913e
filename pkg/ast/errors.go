package ast

import (
	"fmt"
	"strings"

	errors "gopkg.in/src-d/go-errors.v1"
)

// Fatal error kinds. These mark invariant violations: program bugs in the
// compiler core, not faults in the user's Datalog program. User-program
// faults are reported through the ErrorReport instead and never abort.
var (
	// ErrNullClauseHead is raised when a clause without a head reaches the
	// middle-end.
	ErrNullClauseHead = errors.NewKind("ast: clause has no head")

	// ErrArityMismatch is raised when an atom's arity disagrees with its
	// relation declaration.
	ErrArityMismatch = errors.NewKind("ast: atom %s has arity %d, relation declares %d")

	// ErrUnknownRelation is raised when an analysis requires a relation that
	// does not resolve.
	ErrUnknownRelation = errors.NewKind("ast: unknown relation %s")
)

// Severity grades a diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "Warning"
	}
	return "Error"
}

// SrcLoc is a source position. Programs constructed through the AST API
// carry empty locations.
type SrcLoc struct {
	File   string
	Line   int
	Column int
}

func (l SrcLoc) String() string {
	if l.File == "" && l.Line == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// DiagnosticMessage is one message of a diagnostic with an optional location.
type DiagnosticMessage struct {
	Message  string
	Location SrcLoc
}

func (m DiagnosticMessage) String() string {
	if loc := m.Location.String(); loc != "" {
		return m.Message + " in " + loc
	}
	return m.Message
}

// Diagnostic is one reported problem: a primary message plus any number of
// secondary messages.
type Diagnostic struct {
	Severity  Severity
	Primary   DiagnosticMessage
	Secondary []DiagnosticMessage
}

func (d Diagnostic) String() string {
	var sb strings.Builder
	sb.WriteString(d.Severity.String())
	sb.WriteString(": ")
	sb.WriteString(d.Primary.String())
	for _, m := range d.Secondary {
		sb.WriteString("\n  ")
		sb.WriteString(m.String())
	}
	return sb.String()
}

// ErrorReport collects diagnostics across the whole pipeline. Transformers
// append diagnostics and carry on, so a single pass surfaces as many
// problems as possible.
type ErrorReport struct {
	diagnostics []Diagnostic
}

// NewErrorReport returns an empty report.
func NewErrorReport() *ErrorReport {
	return &ErrorReport{}
}

// AddError appends an error diagnostic with the given primary message.
func (r *ErrorReport) AddError(message string, loc SrcLoc) {
	r.Add(Diagnostic{Severity: SeverityError, Primary: DiagnosticMessage{Message: message, Location: loc}})
}

// AddWarning appends a warning diagnostic with the given primary message.
func (r *ErrorReport) AddWarning(message string, loc SrcLoc) {
	r.Add(Diagnostic{Severity: SeverityWarning, Primary: DiagnosticMessage{Message: message, Location: loc}})
}

// Add appends a fully formed diagnostic.
func (r *ErrorReport) Add(d Diagnostic) {
	r.diagnostics = append(r.diagnostics, d)
}

// Diagnostics returns all collected diagnostics in order.
func (r *ErrorReport) Diagnostics() []Diagnostic {
	return r.diagnostics
}

// CountErrors returns the number of error-severity diagnostics.
func (r *ErrorReport) CountErrors() int {
	n := 0
	for _, d := range r.diagnostics {
		if d.Severity == SeverityError {
			n++
		}
	}
	return n
}

func (r *ErrorReport) String() string {
	parts := make([]string, len(r.diagnostics))
	for i, d := range r.diagnostics {
		parts[i] = d.String()
	}
	return strings.Join(parts, "\n")
}
