package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/poserisk/internal/model"
)

// DefaultConcurrency is the number of inputs analyzed at once.
const DefaultConcurrency = 4

// BatchProcessor analyzes several inputs concurrently.
//
// Design decision: Each input gets its own pipeline from the factory, and
// with it its own frame source. The model handle and explainer behind the
// steps are shared; both are safe for concurrent use.
type BatchProcessor struct {
	// pipelineFactory creates the pipeline for one input.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of concurrent analyses.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent analyses.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch analyzes every input and returns one report per input, in
// input order. A failed analysis does not stop the others; its report
// carries the failure. The error is non-nil only when ctx ends before
// every input has started, in which case unstarted inputs have nil reports.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, inputs []string) ([]*model.AnalysisReport, error) {
	results := make([]*model.AnalysisReport, len(inputs))
	err := bp.ProcessBatchWithCallback(ctx, inputs, func(report *model.AnalysisReport, index int) {
		results[index] = report
	})
	return results, err
}

// ProcessBatchWithCallback analyzes every input and calls callback as each
// analysis finishes. The callback runs on the analyzing goroutine and must
// be safe for concurrent use; distinct indexes never race.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	inputs []string,
	callback func(report *model.AnalysisReport, index int),
) error {
	bp.logger.Debug("starting batch processing",
		"total_inputs", len(inputs),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, input := range inputs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			report := model.NewAnalysisReport(input)
			if err := bp.pipelineFactory().Execute(ctx, report); err != nil {
				bp.logger.Warn("analysis failed",
					"source", input,
					"index", i+1,
					"total", len(inputs),
					"error", err,
				)
			} else {
				bp.logger.Info("analysis completed",
					"source", input,
					"risk", report.Risk,
				)
			}

			callback(report, i)
			return nil
		})
	}

	err := g.Wait()
	bp.logger.Debug("batch processing complete",
		"total_inputs", len(inputs),
		"elapsed", time.Since(startTime),
	)
	return err
}
