// Package diagnostic provides concrete vm.DiagnosticSink implementations
// for the host binary: one that logs through the process logger with
// lipgloss-styled labels, and one that just records what it was told for
// tests and tooling that need to assert on it.
package diagnostic

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/shanshanpt/vmcore/pkg/vm"
)

var (
	kindStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Bold(true)
	nameStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

// LogSink reports diagnostics through the package-level charmbracelet/log
// logger, styling the diagnostic kind and qualified name with lipgloss.
type LogSink struct{}

func (LogSink) Report(d vm.Diagnostic) {
	log.Warn(kindStyle.Render(d.Kind.String()),
		"name", nameStyle.Render(d.QualifiedName),
		"message", d.Message)
}

// RecordingSink collects every diagnostic reported to it, in order. It is
// meant for tests that need to assert on what a Context reported rather
// than just display it.
type RecordingSink struct {
	Diagnostics []vm.Diagnostic
}

func (s *RecordingSink) Report(d vm.Diagnostic) {
	s.Diagnostics = append(s.Diagnostics, d)
}
