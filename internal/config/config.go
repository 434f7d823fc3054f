package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/poserisk/internal/pose"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "poserisk"

	// DefaultWindowSize is the number of frames the model looks at.
	DefaultWindowSize = pose.DefaultWindowSize

	// DefaultMaxFrames bounds how many frames are pulled while filling one
	// window. 1800 frames is one minute of 30 fps video. Zero means unbounded.
	DefaultMaxFrames = 1800

	// DefaultTimeout bounds one whole analysis, from the first frame pulled
	// to the finished explanation. Decoding and detection dominate it.
	DefaultTimeout = 2 * time.Minute

	// DefaultBatchSize is the number of inputs analyzed concurrently.
	// Each video input runs its own ffmpeg and detector processes.
	DefaultBatchSize = 4

	// DefaultModelFile is the model file name inside the XDG data directory.
	DefaultModelFile = "model.json"
)

// Log output formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config holds all options of one analysis run.
// This struct is populated from the configuration file and CLI flags and
// passed through the application rather than kept in global state.
//
// Design decision: Run options stay flat. Tuning that only makes sense in
// a file (joint tables, rule bands, service endpoints) lives in File.
type Config struct {
	// Inputs are the video files to analyze. "-" reads standard input.
	Inputs []string

	// LandmarkFiles are pre-detected landmark streams in JSON lines format.
	LandmarkFiles []string

	// AngleFiles are angle windows in JSON or YAML format.
	AngleFiles []string

	// ModelPath is the risk model file.
	ModelPath string

	// WindowSize is the number of usable frames per window.
	WindowSize int

	// MaxFrames bounds the frames pulled per window. Zero means unbounded.
	MaxFrames int

	// Timeout bounds each analysis.
	Timeout time.Duration

	// BatchSize is the number of inputs analyzed concurrently.
	BatchSize int

	// NoGenerative forces rule-based explanations.
	NoGenerative bool

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// LogFormat selects text or JSON log lines on stderr.
	LogFormat string

	// ConfigFilePath is the path to the configuration file.
	// If empty, FindConfigFile searches the usual locations.
	ConfigFilePath string

	// File holds the loaded configuration file, or defaults when none exists.
	File *File

	// JSONReport selects JSON output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown output. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	// Directories are created automatically if they don't exist.
	ReportFile string

	// ChartFile is an HTML file receiving a line chart of every window.
	ChartFile string

	// MetricsFile is a Prometheus textfile written after the run.
	MetricsFile string
}

// NewConfig creates a new Config with default values.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero. This also serves as
// documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		ModelPath:  DefaultModelPath(),
		WindowSize: DefaultWindowSize,
		MaxFrames:  DefaultMaxFrames,
		Timeout:    DefaultTimeout,
		BatchSize:  DefaultBatchSize,
		LogFormat:  LogFormatText,
		File:       NewFile(),
	}
}

// ApplyFile copies the run options set in f into c. CLI flags are applied
// afterwards so that they take precedence.
func (c *Config) ApplyFile(f *File) {
	if f == nil {
		return
	}
	c.File = f
	if f.Window.Size > 0 {
		c.WindowSize = f.Window.Size
	}
	if f.Window.MaxFrames != nil {
		c.MaxFrames = *f.Window.MaxFrames
	}
	if f.Model.Path != "" {
		c.ModelPath = f.Model.Path
	}
}

// InputCount returns the number of inputs of every kind.
func (c *Config) InputCount() int {
	return len(c.Inputs) + len(c.LandmarkFiles) + len(c.AngleFiles)
}

// DefaultModelPath returns the model path inside the XDG data directory.
func DefaultModelPath() string {
	return filepath.Join(XDGDataDir(), DefaultModelFile)
}

// XDGDataDir returns the XDG data directory for poserisk.
// On Linux: ~/.local/share/poserisk
// On macOS: ~/Library/Application Support/poserisk
// On Windows: %LOCALAPPDATA%\poserisk
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for poserisk.
// On Linux: ~/.config/poserisk
// On macOS: ~/Library/Application Support/poserisk
// On Windows: %APPDATA%\poserisk
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns a specific error describing what is invalid.
//
// We return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	kinds := 0
	for _, n := range []int{len(c.Inputs), len(c.LandmarkFiles), len(c.AngleFiles)} {
		if n > 0 {
			kinds++
		}
	}
	if kinds == 0 {
		return ErrNoInput
	}
	if kinds > 1 {
		return ErrConflictingInputs
	}

	if c.ModelPath == "" {
		return ErrNoModel
	}

	if c.WindowSize <= 0 {
		return ErrInvalidWindowSize
	}

	// Zero disables the budget; otherwise it must leave room for a full window
	if c.MaxFrames < 0 || (c.MaxFrames > 0 && c.MaxFrames < c.WindowSize) {
		return ErrInvalidMaxFrames
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.LogFormat != LogFormatText && c.LogFormat != LogFormatJSON {
		return ErrInvalidLogFormat
	}

	if c.File != nil {
		return c.File.Validate()
	}
	return nil
}
