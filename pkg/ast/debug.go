package ast

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// DebugSection is one named section of the debug report.
type DebugSection struct {
	Name  string
	Title string
	Body  string
}

// DebugReporter accumulates an ordered sequence of named report sections.
// Analyses and transformers add a section per run when debug reporting is
// enabled; the sections are also mirrored to the logger at debug level.
type DebugReporter struct {
	enabled  bool
	log      *logrus.Logger
	sections []DebugSection
}

// NewDebugReporter returns a reporter. A disabled reporter drops all
// sections, so callers never need to guard their AddSection calls.
func NewDebugReporter(enabled bool, log *logrus.Logger) *DebugReporter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &DebugReporter{enabled: enabled, log: log}
}

// Enabled reports whether sections are being collected.
func (r *DebugReporter) Enabled() bool { return r.enabled }

// AddSection appends a section to the report.
func (r *DebugReporter) AddSection(name, title, body string) {
	if !r.enabled {
		return
	}
	r.sections = append(r.sections, DebugSection{Name: name, Title: title, Body: body})
	r.log.WithField("section", name).Debug(title)
}

// Sections returns the collected sections in order.
func (r *DebugReporter) Sections() []DebugSection {
	return r.sections
}

func (r *DebugReporter) String() string {
	var sb strings.Builder
	for _, s := range r.sections {
		sb.WriteString("--- ")
		sb.WriteString(s.Title)
		sb.WriteString(" (")
		sb.WriteString(s.Name)
		sb.WriteString(") ---\n")
		sb.WriteString(s.Body)
		if !strings.HasSuffix(s.Body, "\n") {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
