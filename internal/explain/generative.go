package explain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nao1215/poserisk/internal/pose"
)

// DefaultMaxTokens bounds the length of generated explanations.
const DefaultMaxTokens = 200

var (
	// ErrNoCandidates is returned when the generator answered with no text.
	ErrNoCandidates = errors.New("generator returned no candidates")

	// ErrBlankCandidate is returned when the first candidate is empty.
	ErrBlankCandidate = errors.New("generator returned blank text")
)

// Generator produces text candidates for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxTokens int) ([]string, error)
}

// GenerationError wraps a failed generation. Generative never returns it;
// it is logged and replaced by the rule-based explanation.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("explanation generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

const promptTemplate = `You are a biomechanics expert. Provide a short plain-language
explanation (2-4 sentences) of the injury risk and 2 practical
corrections the user can apply.

Hip angle: %.2f°
Knee angle: %.2f°
Shoulder angle: %.2f°
Predicted injury risk: %.2f%%
`

// BuildPrompt returns the prompt sent to the language model.
func BuildPrompt(angles pose.AngleTriple, risk float64) string {
	return fmt.Sprintf(promptTemplate, angles.Hip, angles.Knee, angles.Shoulder, risk)
}

// Generative explains a score with a language model. On any generation
// failure it answers with its embedded Deterministic instead.
type Generative struct {
	generator Generator
	fallback  *Deterministic
	maxTokens int
	recorder  Recorder
	logger    *slog.Logger
}

// NewGenerative creates a generative explainer with a rule-based fallback.
func NewGenerative(gen Generator, fallback *Deterministic, opts ...Option) *Generative {
	s := newSettings(opts)
	if fallback == nil {
		fallback = NewDeterministic(DefaultRuleSet(), opts...)
	}
	return &Generative{
		generator: gen,
		fallback:  fallback,
		maxTokens: s.maxTokens,
		recorder:  s.recorder,
		logger:    s.logger,
	}
}

// Explain returns the first generated candidate, trimmed. Errors, an
// empty candidate list and blank text all fall back to the rules.
func (g *Generative) Explain(ctx context.Context, angles pose.AngleTriple, risk float64) Explanation {
	text, err := g.generate(ctx, angles, risk)
	if err != nil {
		g.recorder.GenerationFailed()
		g.logger.Warn("falling back to rule-based explanation", "error", err)

		e := g.fallback.explain(angles, risk)
		g.recorder.ExplanationProduced(string(e.Provenance))
		return e
	}

	g.recorder.ExplanationProduced(string(ProvenanceGenerated))
	return Explanation{Text: text, Provenance: ProvenanceGenerated}
}

func (g *Generative) generate(ctx context.Context, angles pose.AngleTriple, risk float64) (string, error) {
	if g.generator == nil {
		return "", &GenerationError{Err: errors.New("no generator configured")}
	}
	if err := ctx.Err(); err != nil {
		return "", &GenerationError{Err: err}
	}

	candidates, err := g.generator.Generate(ctx, BuildPrompt(angles, risk), g.maxTokens)
	if err != nil {
		return "", &GenerationError{Err: err}
	}
	if len(candidates) == 0 {
		return "", &GenerationError{Err: ErrNoCandidates}
	}
	text := strings.TrimSpace(candidates[0])
	if text == "" {
		return "", &GenerationError{Err: ErrBlankCandidate}
	}
	return text, nil
}
