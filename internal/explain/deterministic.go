package explain

import (
	"context"
	"fmt"
	"strings"

	"github.com/nao1215/poserisk/internal/pose"
)

// DefaultMaxAdvice is the number of distinct advice sentences kept.
const DefaultMaxAdvice = 3

// Deterministic explains a score with per-joint threshold rules.
type Deterministic struct {
	rules     RuleSet
	maxAdvice int
	recorder  Recorder
}

// NewDeterministic creates a rule-based explainer.
func NewDeterministic(rules RuleSet, opts ...Option) *Deterministic {
	s := newSettings(opts)
	return &Deterministic{
		rules:     rules,
		maxAdvice: s.maxAdvice,
		recorder:  s.recorder,
	}
}

// Explain states the risk and appends the advice of every joint, in hip,
// knee, shoulder order, dropping repeats and keeping at most the first
// maxAdvice sentences.
func (d *Deterministic) Explain(_ context.Context, angles pose.AngleTriple, risk float64) Explanation {
	e := d.explain(angles, risk)
	d.recorder.ExplanationProduced(string(e.Provenance))
	return e
}

func (d *Deterministic) explain(angles pose.AngleTriple, risk float64) Explanation {
	parts := []string{fmt.Sprintf("Predicted injury risk is %.1f%%.", risk)}

	seen := make(map[string]struct{}, len(pose.Joints))
	for _, j := range pose.Joints {
		if len(seen) >= d.maxAdvice {
			break
		}
		advice := d.rules.Rule(j).Advice(angles.Get(j))
		if advice == "" {
			continue
		}
		if _, dup := seen[advice]; dup {
			continue
		}
		seen[advice] = struct{}{}
		parts = append(parts, advice)
	}

	return Explanation{
		Text:       strings.Join(parts, " "),
		Provenance: ProvenanceHeuristic,
	}
}
