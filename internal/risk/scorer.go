package risk

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/nao1215/poserisk/internal/pose"
)

// Recorder receives scoring events.
type Recorder interface {
	ScoreObserved(risk float64)
	InferenceFailed()
}

type nopRecorder struct{}

func (nopRecorder) ScoreObserved(float64) {}
func (nopRecorder) InferenceFailed() {}

// Scorer maps angle windows to risk scores with a shared Handle.
// It is safe for concurrent use.
type Scorer struct {
	handle   *Handle
	recorder Recorder
	logger   *slog.Logger
}

// ScorerOption configures a Scorer.
type ScorerOption func(*Scorer)

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) ScorerOption {
	return func(s *Scorer) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ScorerOption {
	return func(s *Scorer) {
		s.logger = logger
	}
}

// NewScorer creates a scorer for the given model.
func NewScorer(handle *Handle, opts ...ScorerOption) *Scorer {
	s := &Scorer{
		handle:   handle,
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Handle returns the model the scorer uses.
func (s *Scorer) Handle() *Handle {
	return s.handle
}

// Score runs the model over the window and returns the risk in [0, 100].
// A window of the wrong shape or a model output that is not a finite
// value in [0, 1] yields an *InferenceError. Identical windows always
// produce identical scores.
func (s *Scorer) Score(ctx context.Context, w pose.Window) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	shape := s.handle.InputShape()
	if w.Len() != shape[0] || pose.Features != shape[1] {
		s.recorder.InferenceFailed()
		return 0, &InferenceError{
			Err: fmt.Errorf("%w: window is %dx%d, model expects %dx%d",
				ErrInputShape, w.Len(), pose.Features, shape[0], shape[1]),
		}
	}

	x := mat.NewDense(shape[0], shape[1], nil)
	for i := 0; i < w.Len(); i++ {
		v := w.At(i).Values()
		x.SetRow(i, v[:])
	}

	out := s.handle.net.predict(x)
	if math.IsNaN(out) || math.IsInf(out, 0) || out < 0 || out > 1 {
		s.recorder.InferenceFailed()
		return 0, &InferenceError{Output: out}
	}

	risk := out * 100
	s.recorder.ScoreObserved(risk)
	s.logger.Debug("window scored",
		"risk", risk,
		"model", s.handle.Digest(),
	)
	return risk, nil
}
