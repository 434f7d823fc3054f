package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/nao1215/poserisk/internal/explain"
	"github.com/nao1215/poserisk/internal/model"
	"github.com/nao1215/poserisk/internal/pose"
	"github.com/nao1215/poserisk/internal/risk"
	"github.com/nao1215/poserisk/internal/source"
	"github.com/nao1215/poserisk/internal/window"
)

// Source is a frame source that owns resources released by Close.
type Source interface {
	source.FrameSource
	io.Closer
}

// Opener opens the frame source of one input.
type Opener func(ctx context.Context, input string) (Source, error)

// WindowStep assembles the angle window of a video or landmark input.
type WindowStep struct {
	open     Opener
	windower *window.Windower
	logger   *slog.Logger
}

// NewWindowStep creates a window step that opens report.Source with open.
func NewWindowStep(open Opener, w *window.Windower, logger *slog.Logger) *WindowStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &WindowStep{open: open, windower: w, logger: logger}
}

// Name returns the step name.
func (s *WindowStep) Name() string {
	return "window"
}

// Do opens the source, builds the window and records frame statistics,
// including on failure.
func (s *WindowStep) Do(ctx context.Context, report *model.AnalysisReport) error {
	src, err := s.open(ctx, report.Source)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", report.Source, err)
	}
	defer func() {
		if cerr := src.Close(); cerr != nil {
			s.logger.Warn("failed to close source", "source", report.Source, "error", cerr)
		}
	}()

	win, stats, err := s.windower.Build(ctx, src)
	report.Frames = stats
	if err != nil {
		return err
	}
	report.Window = win
	return nil
}

// AnglesStep builds the window from an angle file, bypassing decoding and
// detection.
type AnglesStep struct {
	read     func(path string) ([]pose.AngleTriple, error)
	windower *window.Windower
}

// NewAnglesStep creates an angles step reading files with ReadAngleFile.
func NewAnglesStep(w *window.Windower) *AnglesStep {
	return &AnglesStep{read: ReadAngleFile, windower: w}
}

// Name returns the step name.
func (s *AnglesStep) Name() string {
	return "angles"
}

// Do reads report.Source and keeps its first window-size entries.
func (s *AnglesStep) Do(_ context.Context, report *model.AnalysisReport) error {
	triples, err := s.read(report.Source)
	if err != nil {
		return err
	}
	win, err := s.windower.FromTriples(triples)
	if err != nil {
		return err
	}
	report.Window = win
	report.Frames = model.FrameStats{Pulled: len(triples), Used: win.Len()}
	return nil
}

// ScoreStep scores the window with the loaded model.
type ScoreStep struct {
	scorer *risk.Scorer
}

// NewScoreStep creates a score step.
func NewScoreStep(scorer *risk.Scorer) *ScoreStep {
	return &ScoreStep{scorer: scorer}
}

// Name returns the step name.
func (s *ScoreStep) Name() string {
	return "score"
}

// Do scores report.Window.
func (s *ScoreStep) Do(ctx context.Context, report *model.AnalysisReport) error {
	score, err := s.scorer.Score(ctx, report.Window)
	if err != nil {
		return err
	}
	report.SetRisk(score)
	report.ModelDigest = s.scorer.Handle().Digest()
	return nil
}

// ExplainStep explains the score. It never fails: explainers fall back to
// rule-based text on their own.
type ExplainStep struct {
	explainer explain.Explainer
}

// NewExplainStep creates an explain step.
func NewExplainStep(e explain.Explainer) *ExplainStep {
	return &ExplainStep{explainer: e}
}

// Name returns the step name.
func (s *ExplainStep) Name() string {
	return "explain"
}

// Do explains the final angles of the window and report.Risk.
func (s *ExplainStep) Do(ctx context.Context, report *model.AnalysisReport) error {
	e := s.explainer.Explain(ctx, report.FinalAngles(), report.Risk)
	report.Story = e.Text
	report.StorySource = string(e.Provenance)
	return nil
}

// NewVideoPipeline builds the window, score and explain pipeline.
func NewVideoPipeline(open Opener, w *window.Windower, scorer *risk.Scorer, e explain.Explainer, opts ...Option) *Pipeline {
	p := New(opts...)
	p.AddSteps(
		NewWindowStep(open, w, p.logger),
		NewScoreStep(scorer),
		NewExplainStep(e),
	)
	return p
}

// NewAnglesPipeline builds the angles, score and explain pipeline.
func NewAnglesPipeline(w *window.Windower, scorer *risk.Scorer, e explain.Explainer, opts ...Option) *Pipeline {
	p := New(opts...)
	p.AddSteps(
		NewAnglesStep(w),
		NewScoreStep(scorer),
		NewExplainStep(e),
	)
	return p
}
