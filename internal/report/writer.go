package report

import (
	"io"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/poserisk/internal/model"
	"github.com/nao1215/poserisk/internal/pose"
)

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs one report.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.AnalysisReport) (int, error)

	// WriteBatch outputs several reports and their summary.
	WriteBatch(reports []*model.AnalysisReport) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *model.AnalysisReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteBatch outputs the reports to all configured Writers.
func (m *MultiWriter) WriteBatch(reports []*model.AnalysisReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteBatch(reports)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// failureOf returns the failure of an unsuccessful report.
func failureOf(report *model.AnalysisReport) *model.Failure {
	switch {
	case report.Failure != nil:
		return report.Failure
	case report.Error != nil:
		return &model.Failure{Kind: model.FailureInternal, Message: report.Error.Error()}
	default:
		return &model.Failure{Kind: model.FailureInternal, Message: "analysis produced no explanation"}
	}
}

// nonNil drops the nil entries a cancelled batch leaves behind.
func nonNil(reports []*model.AnalysisReport) []*model.AnalysisReport {
	out := make([]*model.AnalysisReport, 0, len(reports))
	for _, r := range reports {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// jointLabel returns the display name of a joint.
// A Caser is stateful, so a new one is made per call.
func jointLabel(j pose.Joint) string {
	return cases.Title(language.English).String(string(j))
}
