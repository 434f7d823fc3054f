package window

import (
	"errors"
	"fmt"
)

// ErrShapeMismatch is returned when the window does not fit the model input.
var ErrShapeMismatch = errors.New("window shape does not match model input")

// InsufficientFramesError is returned when the source ends, or the frame
// budget runs out, before the window is full.
type InsufficientFramesError struct {
	// Found is the number of usable frames collected.
	Found int

	// Required is the window size.
	Required int

	// Pulled is the number of frames read from the source.
	Pulled int

	// BudgetExhausted is true when the frame budget ended the search
	// rather than the end of the stream.
	BudgetExhausted bool
}

func (e *InsufficientFramesError) Error() string {
	if e.BudgetExhausted {
		return fmt.Sprintf("insufficient frames: found %d of %d usable frames within a budget of %d frames",
			e.Found, e.Required, e.Pulled)
	}
	return fmt.Sprintf("insufficient frames: found %d of %d usable frames in %d frames",
		e.Found, e.Required, e.Pulled)
}
