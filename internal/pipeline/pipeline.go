package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/poserisk/internal/model"
)

// Step is one stage of an analysis.
type Step interface {
	// Do executes the step. It receives the context for cancellation and
	// the report to fill in.
	Do(ctx context.Context, report *model.AnalysisReport) error

	// Name returns the step's name for logging purposes.
	Name() string
}

// Recorder receives analysis outcomes.
type Recorder interface {
	// AnalysisFinished is called once per Execute with "success" or a
	// failure kind.
	AnalysisFinished(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) AnalysisFinished(string) {}

// Pipeline orchestrates the execution of multiple steps.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// recorder receives the outcome of every analysis.
	recorder Recorder

	// continueOnError determines whether to continue executing steps
	// after one fails. If false, the pipeline stops on first error.
	continueOnError bool

	// timeout bounds one Execute call. Zero means no deadline.
	timeout time.Duration
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.recorder = r
		}
	}
}

// WithContinueOnError configures the pipeline to keep running steps after
// one fails. Every analysis step depends on the previous one, so this is
// only useful for pipelines with independent trailing steps.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// WithTimeout bounds every analysis run by the pipeline.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		p.timeout = d
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps:    make([]Step, 0),
		recorder: nopRecorder{},
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs all pipeline steps in sequence.
//
// A failing step sets report.Error and report.Failure. Execute returns the
// first error unless continueOnError is set. Elapsed is always recorded.
func (p *Pipeline) Execute(ctx context.Context, report *model.AnalysisReport) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		report.Elapsed = time.Since(start)
		outcome := "success"
		if report.Failure != nil {
			outcome = string(report.Failure.Kind)
		}
		p.recorder.AnalysisFinished(outcome)
	}()

	var firstErr error
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"source", report.Source,
				"reason", err,
			)
			p.fail(report, err)
			return err
		}

		p.logger.Debug("executing step",
			"step", step.Name(),
			"source", report.Source,
		)

		if err := step.Do(ctx, report); err != nil {
			p.logger.Debug("step failed",
				"step", step.Name(),
				"source", report.Source,
				"error", err,
			)
			if firstErr == nil {
				firstErr = err
				p.fail(report, err)
			}
			if !p.continueOnError {
				return err
			}
			continue
		}

		report.PerformedSteps = append(report.PerformedSteps, step.Name())
	}

	return firstErr
}

func (p *Pipeline) fail(report *model.AnalysisReport, err error) {
	report.Error = err
	report.Failure = Classify(err)
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
