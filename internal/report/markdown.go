package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/poserisk/internal/model"
	"github.com/nao1215/poserisk/internal/pose"
)

const timeLayout = "2006-01-02 15:04:05 MST"

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs one report in Markdown format.
func (w *MarkdownWriter) Write(report *model.AnalysisReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Pose Risk Report")
	md.PlainText("")
	w.writeReport(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// WriteBatch outputs a summary table followed by every report.
func (w *MarkdownWriter) WriteBatch(reports []*model.AnalysisReport) (int, error) {
	reports = nonNil(reports)
	md := markdown.NewMarkdown(w.output)

	md.H1("Pose Risk Batch Report")
	md.PlainText("")
	w.writeSummary(md, model.Summarize(reports))

	for _, r := range reports {
		md.H2(r.Source)
		md.PlainText("")
		w.writeReport(md, r)
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeReport(md *markdown.Markdown, report *model.AnalysisReport) {
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Source", "`" + report.Source + "`"},
			{"Analysis ID", report.ID},
			{"Analyzed", report.AnalyzedAt.Format(timeLayout)},
			{"Model", shortDigest(report.ModelDigest)},
			{"Status", statusText(report)},
		},
	})
	md.PlainText("")

	if !report.Succeeded() {
		f := failureOf(report)
		md.Cautionf("Analysis failed (%s): %s", f.Kind, f.Message)
		md.PlainText("")
		if f.Kind.ClientCorrectable() {
			md.Tip("Record a longer clip with the whole body in frame, or check the input file.")
			md.PlainText("")
		}
		w.writeFrames(md, report.Frames)
		return
	}

	w.writeRisk(md, report)
	md.H3("Explanation")
	md.PlainText("")
	md.Blockquote(report.Story)
	md.PlainText("")
	md.PlainTextf("*Source of explanation: %s*", report.StorySource)
	md.PlainText("")
	w.writeFrames(md, report.Frames)
}

func (w *MarkdownWriter) writeRisk(md *markdown.Markdown, report *model.AnalysisReport) {
	md.H3("Risk")
	md.PlainText("")

	final := report.FinalAngles()
	rows := make([][]string, 0, len(pose.Joints)+1)
	rows = append(rows, []string{"**Risk**", fmt.Sprintf("**%.1f%%** (%s)", report.Risk, report.Level)})
	for _, j := range pose.Joints {
		rows = append(rows, []string{jointLabel(j) + " angle", fmt.Sprintf("%.2f°", final.Get(j))})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Measure", "Value"},
		Rows:   rows,
	})
	md.PlainText("")

	info := model.GetLevelInfo(report.Level)
	switch report.Level {
	case model.RiskHigh:
		md.Cautionf("%s %s", info.Summary, info.Recommendation)
	case model.RiskModerate:
		md.Warningf("%s %s", info.Summary, info.Recommendation)
	default:
		md.Tipf("%s %s", info.Summary, info.Recommendation)
	}
	md.PlainText("")
}

// writeFrames writes the frame statistics and a mermaid pie chart of them.
func (w *MarkdownWriter) writeFrames(md *markdown.Markdown, stats model.FrameStats) {
	if stats.Pulled == 0 {
		return
	}

	md.H3("Frames")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Frames", "Count"},
		Rows: [][]string{
			{"Pulled", strconv.Itoa(stats.Pulled)},
			{"Used", strconv.Itoa(stats.Used)},
			{"No body", strconv.Itoa(stats.NoBody)},
			{"Missing landmark", strconv.Itoa(stats.Incomplete)},
			{"Degenerate", strconv.Itoa(stats.Degenerate)},
		},
	})
	md.PlainText("")

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Frame usage"),
		piechart.WithShowData(true),
	)
	slices := []struct {
		label string
		count int
	}{
		{"Used", stats.Used},
		{"No body", stats.NoBody},
		{"Missing landmark", stats.Incomplete},
		{"Degenerate", stats.Degenerate},
		{"Beyond window", stats.Pulled - stats.Used - stats.Skipped()},
	}
	for _, s := range slices {
		if s.count > 0 {
			chart.LabelAndIntValue(s.label, uint64(s.count))
		}
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, s model.Summary) {
	md.H2("Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Inputs", strconv.Itoa(s.Total)},
			{"Succeeded", strconv.Itoa(s.Succeeded)},
			{"Failed", strconv.Itoa(s.Failed)},
			{"Low / Moderate / High", fmt.Sprintf("%d / %d / %d", s.LowCount, s.ModerateCount, s.HighCount)},
			{"Mean risk", fmt.Sprintf("%.1f%%", s.MeanRisk)},
			{"Max risk", fmt.Sprintf("%.1f%%", s.MaxRisk)},
		},
	})
	md.PlainText("")

	if s.HighCount > 0 {
		md.Warningf("%d input(s) scored high risk.", s.HighCount)
		md.PlainText("")
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Report generated by poserisk*")
}

func statusText(report *model.AnalysisReport) string {
	if report.Succeeded() {
		return "✅ Complete"
	}
	return "❌ " + string(failureOf(report).Kind)
}

// shortDigest keeps the first 12 hex digits of a model digest.
func shortDigest(digest string) string {
	if digest == "" {
		return "-"
	}
	if len(digest) > 12 {
		return "`" + digest[:12] + "`"
	}
	return "`" + digest + "`"
}
