package risk

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownLoss is returned by the strict tier when the training
// configuration names a loss the registry cannot resolve.
var ErrUnknownLoss = errors.New("unknown loss function")

// ErrInputShape is returned when a window does not match the model input.
var ErrInputShape = errors.New("input shape mismatch")

// TierError is the failure of one loading tier.
type TierError struct {
	Tier Tier
	Err  error
}

func (e *TierError) Error() string {
	return fmt.Sprintf("%s: %v", e.Tier, e.Err)
}

func (e *TierError) Unwrap() error {
	return e.Err
}

// ModelLoadError is returned when every loading tier failed.
// It is fatal: no analysis can run without a model.
type ModelLoadError struct {
	Path   string
	Causes []*TierError
}

func (e *ModelLoadError) Error() string {
	parts := make([]string, len(e.Causes))
	for i, c := range e.Causes {
		parts[i] = c.Error()
	}
	return fmt.Sprintf("failed to load model %s: %s", e.Path, strings.Join(parts, "; "))
}

// Unwrap exposes every tier's cause to errors.Is and errors.As.
func (e *ModelLoadError) Unwrap() []error {
	errs := make([]error, len(e.Causes))
	for i, c := range e.Causes {
		errs[i] = c
	}
	return errs
}

// InferenceError is returned when the model cannot produce a valid score.
type InferenceError struct {
	// Output is the raw model output, when one was produced.
	Output float64

	// Err is the underlying cause, if any.
	Err error
}

func (e *InferenceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("inference failed: %v", e.Err)
	}
	return fmt.Sprintf("inference failed: model output %v is outside [0, 1]", e.Output)
}

func (e *InferenceError) Unwrap() error {
	return e.Err
}
