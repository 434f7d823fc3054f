package report

import (
	"encoding/json"
	"io"
	"time"

	"github.com/nao1215/poserisk/internal/model"
)

// Result is the JSON shape of a successful analysis. The first five fields
// are the core contract; the rest describe how the result was produced.
type Result struct {
	HipAngle      float64          `json:"hip_angle"`
	KneeAngle     float64          `json:"knee_angle"`
	ShoulderAngle float64          `json:"shoulder_angle"`
	Risk          float64          `json:"risk"`
	Story         string           `json:"story"`
	ID            string           `json:"id"`
	Source        string           `json:"source"`
	RiskLevel     model.RiskLevel  `json:"risk_level"`
	StorySource   string           `json:"story_source"`
	Frames        model.FrameStats `json:"frames"`
	ModelDigest   string           `json:"model_digest"`
	AnalyzedAt    time.Time        `json:"analyzed_at"`
}

// NewResult converts a successful report.
func NewResult(report *model.AnalysisReport) *Result {
	final := report.FinalAngles()
	return &Result{
		HipAngle:      final.Hip,
		KneeAngle:     final.Knee,
		ShoulderAngle: final.Shoulder,
		Risk:          report.Risk,
		Story:         report.Story,
		ID:            report.ID,
		Source:        report.Source,
		RiskLevel:     report.Level,
		StorySource:   report.StorySource,
		Frames:        report.Frames,
		ModelDigest:   report.ModelDigest,
		AnalyzedAt:    report.AnalyzedAt,
	}
}

// ErrorResult is the JSON shape of a failed analysis. Source is only set
// inside batch output.
type ErrorResult struct {
	Source string         `json:"source,omitempty"`
	Error  *model.Failure `json:"error"`
}

// BatchResult is the JSON shape of a batch. Results holds a *Result or an
// *ErrorResult per input, in input order.
type BatchResult struct {
	Results []any         `json:"results"`
	Summary model.Summary `json:"summary"`
}

// JSONWriter outputs reports in JSON format.
// This format is designed for tool integration and programmatic processing.
//
// Design decision: We use standard encoding/json. The output shapes are
// small fixed structs and no library in use offers anything it lacks.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with default indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs a Result or an ErrorResult.
func (w *JSONWriter) Write(report *model.AnalysisReport) (int, error) {
	return w.writeJSON(entry(report, false))
}

// WriteBatch outputs a BatchResult.
func (w *JSONWriter) WriteBatch(reports []*model.AnalysisReport) (int, error) {
	reports = nonNil(reports)
	batch := BatchResult{
		Results: make([]any, len(reports)),
		Summary: model.Summarize(reports),
	}
	for i, r := range reports {
		batch.Results[i] = entry(r, true)
	}
	return w.writeJSON(batch)
}

func entry(report *model.AnalysisReport, withSource bool) any {
	if report.Succeeded() {
		return NewResult(report)
	}
	e := &ErrorResult{Error: failureOf(report)}
	if withSource {
		e.Source = report.Source
	}
	return e
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}
