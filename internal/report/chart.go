package report

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/nao1215/poserisk/internal/model"
	"github.com/nao1215/poserisk/internal/pose"
)

// ChartWriter renders the angle window of a report as an HTML line chart,
// one series per joint.
type ChartWriter struct {
	baseWriter

	// assetsHost overrides where the ECharts scripts are loaded from.
	assetsHost string
}

// ChartWriterOption configures a ChartWriter.
type ChartWriterOption func(*ChartWriter)

// WithAssetsHost loads the ECharts scripts from host instead of the
// public CDN, e.g. for offline viewing.
func WithAssetsHost(host string) ChartWriterOption {
	return func(w *ChartWriter) {
		w.assetsHost = host
	}
}

// NewChartWriter creates a ChartWriter that outputs to the given writer.
func NewChartWriter(output io.Writer, opts ...ChartWriterOption) *ChartWriter {
	w := &ChartWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write renders one report. Failed reports have no window and produce an
// error.
func (w *ChartWriter) Write(report *model.AnalysisReport) (int, error) {
	if report.Window.Len() == 0 {
		return 0, fmt.Errorf("no angle window to chart for %s", report.Source)
	}
	cw := &countingWriter{w: w.output}
	err := w.lineChart(report).Render(cw)
	return cw.n, err
}

// WriteBatch renders one chart per report with a window on a single page.
func (w *ChartWriter) WriteBatch(reports []*model.AnalysisReport) (int, error) {
	page := components.NewPage()
	page.SetPageTitle("poserisk batch")
	if w.assetsHost != "" {
		page.SetAssetsHost(w.assetsHost)
	}
	for _, r := range nonNil(reports) {
		if r.Window.Len() == 0 {
			continue
		}
		page.AddCharts(w.lineChart(r))
	}
	cw := &countingWriter{w: w.output}
	err := page.Render(cw)
	return cw.n, err
}

func (w *ChartWriter) lineChart(report *model.AnalysisReport) *charts.Line {
	subtitle := fmt.Sprintf("risk %.1f%% (%s)", report.Risk, report.Level)
	initOpts := opts.Initialization{
		PageTitle: "poserisk " + filepath.Base(report.Source),
		Width:     "900px",
		Height:    "500px",
	}
	if w.assetsHost != "" {
		initOpts.AssetsHost = w.assetsHost
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(initOpts),
		charts.WithTitleOpts(opts.Title{Title: filepath.Base(report.Source), Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Frame"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Angle (°)", Min: 0, Max: 180}),
	)

	frames := make([]int, report.Window.Len())
	for i := range frames {
		frames[i] = i + 1
	}
	line.SetXAxis(frames)

	for _, j := range pose.Joints {
		data := make([]opts.LineData, report.Window.Len())
		for i := range data {
			data[i] = opts.LineData{Value: report.Window.At(i).Get(j)}
		}
		line.AddSeries(jointLabel(j), data, charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(true)}))
	}
	return line
}

// countingWriter counts the bytes written through it.
type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}
