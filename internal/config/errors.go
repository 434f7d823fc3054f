package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and File.Validate().
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoInput is returned when no video, landmark or angle input is given.
	ErrNoInput = errors.New("no input specified: provide a video file, --landmarks or --angles")

	// ErrConflictingInputs is returned when inputs of different kinds are mixed.
	ErrConflictingInputs = errors.New("conflicting inputs: videos, --landmarks and --angles cannot be mixed")

	// ErrNoModel is returned when no model path is configured.
	ErrNoModel = errors.New("no model specified: use --model or model.path")

	// ErrInvalidWindowSize is returned when the window size is not positive.
	ErrInvalidWindowSize = errors.New("invalid window size: must be positive")

	// ErrInvalidMaxFrames is returned when the frame budget is negative or
	// smaller than the window.
	ErrInvalidMaxFrames = errors.New("invalid max frames: must be 0 or at least the window size")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidLogFormat is returned when --log-format is neither text nor json.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")

	// ErrInvalidGenerative is returned for unusable generative settings.
	ErrInvalidGenerative = errors.New("invalid generative settings")

	// ErrInvalidDetector is returned for unusable detector settings.
	ErrInvalidDetector = errors.New("invalid detector settings")
)
