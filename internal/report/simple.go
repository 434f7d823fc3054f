package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/poserisk/internal/model"
	"github.com/nao1215/poserisk/internal/pose"
)

const ruleWidth = 70

// SimpleWriter outputs human-readable text reports for terminal display.
//
// Design decision: We use plain text with ASCII rules rather than ANSI
// colors so the output can be piped to files or other tools unchanged.
type SimpleWriter struct {
	baseWriter

	// verbose adds frame statistics and identifiers.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs one report.
func (w *SimpleWriter) Write(report *model.AnalysisReport) (int, error) {
	var sb strings.Builder
	w.writeHeader(&sb, "POSE RISK REPORT")
	w.writeReport(&sb, report)
	return io.WriteString(w.output, sb.String())
}

// WriteBatch outputs every report followed by the batch summary.
func (w *SimpleWriter) WriteBatch(reports []*model.AnalysisReport) (int, error) {
	reports = nonNil(reports)

	var sb strings.Builder
	w.writeHeader(&sb, "POSE RISK BATCH REPORT")
	for _, r := range reports {
		writeSection(&sb, r.Source)
		w.writeReport(&sb, r)
	}
	w.writeSummary(&sb, model.Summarize(reports))
	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, title string) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n")
	pad := max(0, (ruleWidth-len(title))/2)
	sb.WriteString(strings.Repeat(" ", pad) + title + "\n")
	sb.WriteString(strings.Repeat("=", ruleWidth))
	sb.WriteString("\n\n")
}

func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n")
	sb.WriteString(title + "\n")
	sb.WriteString(strings.Repeat("-", ruleWidth))
	sb.WriteString("\n\n")
}

func (w *SimpleWriter) writeReport(sb *strings.Builder, report *model.AnalysisReport) {
	fmt.Fprintf(sb, "Source:     %s\n", report.Source)
	fmt.Fprintf(sb, "Analyzed:   %s\n", report.AnalyzedAt.Format(timeLayout))
	if w.verbose {
		fmt.Fprintf(sb, "ID:         %s\n", report.ID)
		fmt.Fprintf(sb, "Elapsed:    %s\n", report.Elapsed)
	}

	if !report.Succeeded() {
		f := failureOf(report)
		fmt.Fprintf(sb, "Status:     FAILED [%s]\n", f.Kind)
		fmt.Fprintf(sb, "Error:      %s\n", f.Message)
		if f.Kind == model.FailureInsufficientFrames {
			fmt.Fprintf(sb, "Found:      %d usable frames\n", f.FramesFound)
		}
		sb.WriteString("\n")
		return
	}

	fmt.Fprintf(sb, "Risk:       %.1f%% (%s)\n", report.Risk, report.Level)
	final := report.FinalAngles()
	for _, j := range pose.Joints {
		fmt.Fprintf(sb, "  %-9s %7.2f°\n", string(j)+":", final.Get(j))
	}
	if w.verbose {
		f := report.Frames
		fmt.Fprintf(sb, "Frames:     pulled %d, used %d, skipped %d (no body %d, missing landmark %d, degenerate %d)\n",
			f.Pulled, f.Used, f.Skipped(), f.NoBody, f.Incomplete, f.Degenerate)
		fmt.Fprintf(sb, "Model:      %s\n", report.ModelDigest)
	}
	sb.WriteString("\n")

	fmt.Fprintf(sb, "Explanation (%s):\n", report.StorySource)
	sb.WriteString(wrap(report.Story, ruleWidth-2, "  "))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeSummary(sb *strings.Builder, s model.Summary) {
	writeSection(sb, "SUMMARY")
	fmt.Fprintf(sb, "  INPUTS:     %d\n", s.Total)
	fmt.Fprintf(sb, "  SUCCEEDED:  %d\n", s.Succeeded)
	fmt.Fprintf(sb, "  FAILED:     %d\n", s.Failed)
	fmt.Fprintf(sb, "  HIGH:       %d\n", s.HighCount)
	fmt.Fprintf(sb, "  MODERATE:   %d\n", s.ModerateCount)
	fmt.Fprintf(sb, "  LOW:        %d\n", s.LowCount)
	fmt.Fprintf(sb, "  MEAN RISK:  %.1f%%\n", s.MeanRisk)
	fmt.Fprintf(sb, "  MAX RISK:   %.1f%%\n", s.MaxRisk)
	sb.WriteString("\n")
}

// wrap breaks text into indented lines of at most width characters.
func wrap(text string, width int, indent string) string {
	var sb strings.Builder
	line := indent
	for _, word := range strings.Fields(text) {
		if len(line) > len(indent) && len(line)+1+len(word) > width {
			sb.WriteString(line + "\n")
			line = indent
		}
		if len(line) > len(indent) {
			line += " "
		}
		line += word
	}
	if len(line) > len(indent) {
		sb.WriteString(line + "\n")
	}
	return sb.String()
}
