package pipeline

import (
	"context"
	"errors"

	"github.com/nao1215/poserisk/internal/model"
	"github.com/nao1215/poserisk/internal/pose"
	"github.com/nao1215/poserisk/internal/window"
)

// ErrInvalidInput marks inputs the caller can correct, such as malformed
// angle files.
var ErrInvalidInput = errors.New("invalid input")

// Classify maps an analysis error to its serializable failure. It returns
// nil for a nil error.
//
// Only insufficient frames and invalid input are client-correctable.
// Every other error, including inference errors and deadlines, is internal.
func Classify(err error) *model.Failure {
	if err == nil {
		return nil
	}

	var insufficient *window.InsufficientFramesError
	switch {
	case errors.As(err, &insufficient):
		return &model.Failure{
			Kind:        model.FailureInsufficientFrames,
			Message:     err.Error(),
			FramesFound: insufficient.Found,
		}
	case errors.Is(err, ErrInvalidInput), errors.Is(err, pose.ErrAngleOutOfRange):
		return &model.Failure{
			Kind:    model.FailureInvalidInput,
			Message: err.Error(),
		}
	case errors.Is(err, context.DeadlineExceeded):
		return &model.Failure{
			Kind:    model.FailureInternal,
			Message: "analysis timed out: " + err.Error(),
		}
	default:
		return &model.Failure{
			Kind:    model.FailureInternal,
			Message: err.Error(),
		}
	}
}
