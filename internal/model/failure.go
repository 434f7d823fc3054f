package model

// FailureKind distinguishes client-correctable failures from internal ones.
type FailureKind string

const (
	// FailureInsufficientFrames means the input held too few usable frames.
	FailureInsufficientFrames FailureKind = "insufficient_frames"

	// FailureInvalidInput means the input could not be parsed or was out of range.
	FailureInvalidInput FailureKind = "invalid_input"

	// FailureInternal covers model and other internal errors.
	FailureInternal FailureKind = "internal"
)

// ClientCorrectable reports whether the caller can fix the failure by
// changing the input.
func (k FailureKind) ClientCorrectable() bool {
	return k == FailureInsufficientFrames || k == FailureInvalidInput
}

// Failure is the serializable form of an analysis error.
type Failure struct {
	// Kind classifies the failure.
	Kind FailureKind `json:"kind"`

	// Message is a human-readable description.
	Message string `json:"message"`

	// FramesFound is the number of usable frames collected before failing.
	FramesFound int `json:"frames_found"`
}
