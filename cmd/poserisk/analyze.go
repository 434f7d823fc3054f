package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/poserisk/internal/config"
	"github.com/nao1215/poserisk/internal/explain"
	"github.com/nao1215/poserisk/internal/log"
	"github.com/nao1215/poserisk/internal/metrics"
	"github.com/nao1215/poserisk/internal/model"
	"github.com/nao1215/poserisk/internal/pipeline"
	"github.com/nao1215/poserisk/internal/report"
	"github.com/nao1215/poserisk/internal/risk"
	"github.com/nao1215/poserisk/internal/source"
	"github.com/nao1215/poserisk/internal/window"
)

// errAnalysisFailed is returned when at least one input could not be analyzed.
// The reports are written before it is returned.
var errAnalysisFailed = errors.New("analysis failed")

// stdinInput names standard input as a video input.
const stdinInput = "-"

// NewAnalyzeCmd creates the analyze command.
func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [video...]",
		Short: "Estimate the injury risk of a recorded movement",
		Long: `Analyze estimates the injury risk of a recorded movement.

Videos are decoded with ffmpeg and passed frame by frame to the pose detector
worker. Hip, knee and shoulder angles of the first usable frames form the
window that the model scores. The score is explained either by the configured
text-generation endpoint or by built-in rules.

Examples:
  # Analyze a video
  poserisk analyze squat.mp4

  # Read the video from standard input
  cat squat.mp4 | poserisk analyze -

  # Analyze several videos, two at a time, as JSON
  poserisk analyze -b 2 --json squat.mp4 lunge.mp4 deadlift.mp4

  # Use landmarks detected elsewhere (JSON lines, one frame per line)
  poserisk analyze --landmarks squat.jsonl

  # Score angles directly: {"angles": [[hip, knee, shoulder], ...]}
  poserisk analyze --angles angles.json

  # Write a Markdown report, an HTML chart of the window and metrics
  poserisk analyze --markdown -o report.md --chart window.html \
    --metrics-file /var/lib/node_exporter/poserisk.prom squat.mp4`,
		Args: cobra.ArbitraryArgs,
		RunE: runAnalyzeCmd,
	}

	// Input flags
	cmd.Flags().StringSlice("landmarks", nil,
		"Landmark file(s) in JSON lines format instead of video")
	cmd.Flags().StringSlice("angles", nil,
		"Angle file(s) in JSON or YAML format instead of video")

	// Analysis flags
	cmd.Flags().StringP("model", "m", config.DefaultModelPath(),
		"Risk model file")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each analysis")
	cmd.Flags().Int("max-frames", config.DefaultMaxFrames,
		"Maximum frames pulled per window (0 = unbounded)")
	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent analyses")
	cmd.Flags().Bool("no-generative", false,
		"Use rule-based explanations even when generation is configured")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .poserisk in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().Bool("markdown", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().String("chart", "",
		"Write an HTML line chart of every window to this file")
	cmd.Flags().String("metrics-file", "",
		"Write Prometheus metrics to this file for the node exporter textfile collector")

	return cmd
}

// runAnalyzeCmd executes the analyze command.
func runAnalyzeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runAnalyze(ctx, cfg, cmd.OutOrStdout(), logger)
}

// newLogger creates the secret-masking logger in the configured format.
func newLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	if cfg.LogFormat == config.LogFormatJSON {
		return log.NewSecureJSONLogger(w, cfg.Verbose)
	}
	return log.NewSecureLogger(w, cfg.Verbose)
}

// getLogFormatFlag retrieves the log format from the root command.
func getLogFormatFlag(cmd *cobra.Command) string {
	format, err := cmd.Flags().GetString("log-format")
	if err != nil {
		format, err = cmd.Root().PersistentFlags().GetString("log-format")
		if err != nil {
			return config.LogFormatText
		}
	}
	return format
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from the configuration file and the cobra
// command flags. Flags set on the command line override the file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	// If the user explicitly specified a config file path, error if not found.
	// If no path is specified, silently keep the defaults when no file is found.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.ApplyFile(file)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	if flags.Changed("model") {
		if cfg.ModelPath, err = flags.GetString("model"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("max-frames") {
		if cfg.MaxFrames, err = flags.GetInt("max-frames"); err != nil {
			return nil, err
		}
	}

	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.NoGenerative, err = flags.GetBool("no-generative"); err != nil {
		return nil, err
	}
	if cfg.LandmarkFiles, err = flags.GetStringSlice("landmarks"); err != nil {
		return nil, err
	}
	if cfg.AngleFiles, err = flags.GetStringSlice("angles"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.ChartFile, err = flags.GetString("chart"); err != nil {
		return nil, err
	}
	if cfg.MetricsFile, err = flags.GetString("metrics-file"); err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)
	cfg.LogFormat = getLogFormatFlag(cmd)
	cfg.Inputs = args

	return cfg, nil
}

// runAnalyze loads the model, analyzes every input and writes the outputs.
// A model that cannot be loaded stops the run before any input is touched.
func runAnalyze(ctx context.Context, cfg *config.Config, stdout io.Writer, logger *slog.Logger) error {
	m := metrics.New()

	a, err := newAnalyzer(cfg, m, logger)
	if err != nil {
		return err
	}

	inputs := a.inputs()
	logger.Info("starting analysis",
		"inputs", len(inputs),
		"batch_size", cfg.BatchSize,
		"window", cfg.WindowSize,
	)

	bp := pipeline.NewBatchProcessor(a.newPipeline,
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)
	reports, batchErr := bp.ProcessBatch(ctx, inputs)

	if err := outputReports(cfg, reports, stdout); err != nil {
		return err
	}
	if cfg.ChartFile != "" {
		if err := writeChart(cfg.ChartFile, reports, logger); err != nil {
			logger.Error("chart failed", "file", cfg.ChartFile, "error", err)
		}
	}
	if cfg.MetricsFile != "" {
		if err := m.WriteToTextfile(cfg.MetricsFile); err != nil {
			logger.Error("failed to write metrics", "file", cfg.MetricsFile, "error", err)
		}
	}

	if batchErr != nil {
		return batchErr
	}
	if failed := countFailed(reports); failed > 0 {
		return fmt.Errorf("%w: %d of %d inputs", errAnalysisFailed, failed, len(inputs))
	}
	return nil
}

// analyzer holds what every analysis of a run shares. The model handle
// and the explainer are safe for concurrent use.
type analyzer struct {
	cfg       *config.Config
	windower  *window.Windower
	scorer    *risk.Scorer
	explainer explain.Explainer
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func newAnalyzer(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) (*analyzer, error) {
	handle, err := risk.Load(cfg.ModelPath, risk.WithLoadLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	m.ModelLoaded(string(handle.Tier()))

	w, err := window.New(
		window.WithSize(cfg.WindowSize),
		window.WithMaxFrames(cfg.MaxFrames),
		window.WithJoints(cfg.File.JointTable()),
		window.WithRecorder(m),
		window.WithLogger(logger),
	)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	if err := w.Validate(handle.InputShape()); err != nil {
		return nil, fmt.Errorf("model %s: %w", cfg.ModelPath, err)
	}

	e := explain.Resolve(cfg.File.ExplainConfig(cfg.NoGenerative),
		explain.WithLogger(logger),
		explain.WithRecorder(m),
	)

	return &analyzer{
		cfg:       cfg,
		windower:  w,
		scorer:    risk.NewScorer(handle, risk.WithRecorder(m), risk.WithLogger(logger)),
		explainer: e,
		metrics:   m,
		logger:    logger,
	}, nil
}

// inputs returns the inputs of the kind given on the command line.
func (a *analyzer) inputs() []string {
	switch {
	case len(a.cfg.AngleFiles) > 0:
		return a.cfg.AngleFiles
	case len(a.cfg.LandmarkFiles) > 0:
		return a.cfg.LandmarkFiles
	default:
		return a.cfg.Inputs
	}
}

// newPipeline creates the pipeline for one input.
func (a *analyzer) newPipeline() *pipeline.Pipeline {
	opts := []pipeline.Option{
		pipeline.WithLogger(a.logger),
		pipeline.WithRecorder(a.metrics),
		pipeline.WithTimeout(a.cfg.Timeout),
	}

	switch {
	case len(a.cfg.AngleFiles) > 0:
		return pipeline.NewAnglesPipeline(a.windower, a.scorer, a.explainer, opts...)
	case len(a.cfg.LandmarkFiles) > 0:
		return pipeline.NewVideoPipeline(openLandmarks, a.windower, a.scorer, a.explainer, opts...)
	default:
		return pipeline.NewVideoPipeline(a.openVideo, a.windower, a.scorer, a.explainer, opts...)
	}
}

// openLandmarks opens a landmark file.
func openLandmarks(_ context.Context, input string) (pipeline.Source, error) {
	f, err := source.OpenLandmarkFile(input)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// openVideo starts ffmpeg and a detector worker for one video. Each input
// gets its own worker so that concurrent analyses do not share a pipe.
func (a *analyzer) openVideo(ctx context.Context, input string) (pipeline.Source, error) {
	var r io.ReadCloser = io.NopCloser(os.Stdin)
	if input != stdinInput {
		f, err := os.Open(input) //nolint:gosec // input path comes from the command line
		if err != nil {
			return nil, err
		}
		r = f
	}

	file := a.cfg.File
	dec, err := source.NewFFmpegDecoder(ctx, r,
		append(file.DecoderOptions(), source.WithDecoderLogger(a.logger))...)
	if err != nil {
		_ = r.Close() //nolint:errcheck // Best effort cleanup
		return nil, err
	}

	det, err := source.NewWorkerDetector(ctx, file.DetectorCommand(),
		append(file.WorkerOptions(), source.WithWorkerLogger(a.logger))...)
	if err != nil {
		_ = dec.Close() //nolint:errcheck // Best effort cleanup
		_ = r.Close()   //nolint:errcheck // Best effort cleanup
		return nil, err
	}

	return &videoSource{
		Pair:    source.Pair{Decoder: dec, Detector: det},
		closers: []io.Closer{det, dec, r},
	}, nil
}

// videoSource is a decoder and detector pair that owns its processes and input.
type videoSource struct {
	source.Pair
	closers []io.Closer
}

// Close releases the detector, the decoder and the input, in that order.
func (v *videoSource) Close() error {
	var errs []error
	for _, c := range v.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// outputReports writes the reports in the requested format. A single input
// produces a single report; several inputs produce a batch report.
func outputReports(cfg *config.Config, reports []*model.AnalysisReport, stdout io.Writer) error {
	output, closeOutput, err := openOutput(cfg.ReportFile, stdout)
	if err != nil {
		return err
	}
	defer closeOutput()

	var w report.Writer
	switch {
	case cfg.JSONReport:
		w = report.NewJSONWriter(output, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		w = report.NewMarkdownWriter(output)
	default:
		w = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	if len(reports) == 1 && reports[0] != nil {
		_, err = w.Write(reports[0])
	} else {
		_, err = w.WriteBatch(reports)
	}
	if err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// writeChart writes an HTML chart of the windows to path.
func writeChart(path string, reports []*model.AnalysisReport, logger *slog.Logger) error {
	output, closeOutput, err := openOutput(path, nil)
	if err != nil {
		return err
	}
	defer closeOutput()

	w := report.NewChartWriter(output)
	if len(reports) == 1 && reports[0] != nil {
		_, err = w.Write(reports[0])
	} else {
		_, err = w.WriteBatch(reports)
	}
	if err == nil {
		logger.Info("chart written", "file", path)
	}
	return err
}

// openOutput opens path for writing, or returns fallback when path is empty.
func openOutput(path string, fallback io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return fallback, func() {}, nil
	}

	// Create directories if they don't exist
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports hold health information and are readable by the owner only
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // output path comes from the command line
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil //nolint:errcheck // Best effort cleanup
}

// countFailed counts the inputs without a successful analysis.
func countFailed(reports []*model.AnalysisReport) int {
	failed := 0
	for _, r := range reports {
		if r == nil || !r.Succeeded() {
			failed++
		}
	}
	return failed
}
