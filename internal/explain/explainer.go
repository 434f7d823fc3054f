package explain

import (
	"context"
	"log/slog"

	"github.com/nao1215/poserisk/internal/pose"
)

// Provenance tells where an explanation came from.
type Provenance string

const (
	// ProvenanceGenerated marks text produced by a language model.
	ProvenanceGenerated Provenance = "generated"

	// ProvenanceHeuristic marks text produced by the rule engine.
	ProvenanceHeuristic Provenance = "heuristic"
)

// Explanation is the explanation of one analysis.
type Explanation struct {
	Text       string
	Provenance Provenance
}

// Explainer produces explanations. Implementations never fail.
type Explainer interface {
	Explain(ctx context.Context, angles pose.AngleTriple, risk float64) Explanation
}

// Recorder receives explanation events.
type Recorder interface {
	ExplanationProduced(provenance string)
	GenerationFailed()
}

type nopRecorder struct{}

func (nopRecorder) ExplanationProduced(string) {}
func (nopRecorder) GenerationFailed() {}

// Option configures the explainers built by this package.
type Option func(*settings)

type settings struct {
	logger    *slog.Logger
	recorder  Recorder
	maxTokens int
	maxAdvice int
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *settings) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithMaxTokens bounds the length of generated text.
func WithMaxTokens(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxTokens = n
		}
	}
}

// WithMaxAdvice caps the number of advice sentences in rule-based text.
func WithMaxAdvice(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxAdvice = n
		}
	}
}

func newSettings(opts []Option) settings {
	s := settings{
		recorder:  nopRecorder{},
		maxTokens: DefaultMaxTokens,
		maxAdvice: DefaultMaxAdvice,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}
