package config

import (
	"fmt"
	"os"
	"time"

	"github.com/nao1215/poserisk/internal/explain"
	"github.com/nao1215/poserisk/internal/pose"
	"github.com/nao1215/poserisk/internal/source"
)

// Default service settings used when the configuration file omits them.
const (
	// DefaultAPIKeyEnv names the environment variable holding the API key.
	// The key itself never lives in the configuration file.
	DefaultAPIKeyEnv = "POSERISK_API_KEY"

	// DefaultDetectorCommand is the pose detector worker executable.
	DefaultDetectorCommand = "poserisk-detector"

	// DefaultMinVisibility keeps every landmark the detector reports.
	DefaultMinVisibility = 0.0
)

// File represents the structure of the .poserisk configuration file.
// Every section is optional.
type File struct {
	// Window tunes window assembly.
	Window WindowSection `yaml:"window"`

	// Joints overrides the landmarks each angle is measured from.
	Joints *pose.JointTable `yaml:"joints,omitempty"`

	// Rules overrides the advice bands of the rule-based explainer.
	Rules *explain.RuleSet `yaml:"rules,omitempty"`

	// Model locates the risk model.
	Model ModelSection `yaml:"model"`

	// Generative configures the text-generation endpoint.
	Generative GenerativeSection `yaml:"generative"`

	// Detector configures the pose detector worker.
	Detector DetectorSection `yaml:"detector"`

	// Decoder configures the ffmpeg video decoder.
	Decoder DecoderSection `yaml:"decoder"`
}

// WindowSection is the "window" section.
type WindowSection struct {
	// Size is the number of usable frames per window.
	Size int `yaml:"size,omitempty"`

	// MaxFrames bounds the frames pulled per window; 0 means unbounded.
	// A pointer so that an explicit 0 can be told apart from an omitted key.
	MaxFrames *int `yaml:"max_frames,omitempty"`
}

// ModelSection is the "model" section.
type ModelSection struct {
	Path string `yaml:"path,omitempty"`
}

// GenerativeSection is the "generative" section.
type GenerativeSection struct {
	// Enabled turns on generated explanations.
	Enabled bool `yaml:"enabled"`

	// BaseURL is the OpenAI-compatible API root.
	BaseURL string `yaml:"base_url,omitempty"`

	// Model is the model name sent with requests.
	Model string `yaml:"model,omitempty"`

	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `yaml:"api_key_env,omitempty"`

	// MaxTokens bounds generated text.
	MaxTokens int `yaml:"max_tokens,omitempty"`

	// Timeout bounds one generation request.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// Proxy is an optional SOCKS5 proxy in "host:port" format.
	Proxy string `yaml:"proxy,omitempty"`

	// Serialize lets only one generation run at a time. Defaults to true.
	Serialize *bool `yaml:"serialize,omitempty"`

	// Headers are added to every request.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// DetectorSection is the "detector" section.
type DetectorSection struct {
	// Command starts the worker. Path, args and env are inlined.
	source.Command `yaml:",inline"`

	// InputSize is the longest frame side sent to the worker.
	InputSize int `yaml:"input_size,omitempty"`

	// MinVisibility drops landmarks below this visibility. Zero keeps all.
	MinVisibility *float64 `yaml:"min_visibility,omitempty"`
}

// DecoderSection is the "decoder" section.
type DecoderSection struct {
	// FFmpeg is the ffmpeg executable.
	FFmpeg string `yaml:"ffmpeg,omitempty"`

	// Width and Height are the size frames are scaled to.
	Width  int `yaml:"width,omitempty"`
	Height int `yaml:"height,omitempty"`
}

// NewFile returns a File holding only defaults.
func NewFile() *File {
	return &File{}
}

// JointTable returns the configured joints, or the default table.
func (f *File) JointTable() pose.JointTable {
	if f.Joints != nil {
		return *f.Joints
	}
	return pose.DefaultJointTable()
}

// Validate checks the sections that can be checked without starting anything.
func (f *File) Validate() error {
	if f.Joints != nil {
		if err := f.Joints.Validate(); err != nil {
			return fmt.Errorf("joints: %w", err)
		}
	}
	if f.Rules != nil {
		if err := f.Rules.Validate(); err != nil {
			return fmt.Errorf("rules: %w", err)
		}
	}
	if f.Generative.MaxTokens < 0 {
		return fmt.Errorf("%w: max_tokens must be non-negative", ErrInvalidGenerative)
	}
	if f.Generative.Timeout < 0 {
		return fmt.Errorf("%w: timeout must be non-negative", ErrInvalidGenerative)
	}
	if f.Detector.InputSize < 0 {
		return fmt.Errorf("%w: input_size must be non-negative", ErrInvalidDetector)
	}
	if v := f.Detector.MinVisibility; v != nil && (*v < 0 || *v > 1) {
		return fmt.Errorf("%w: min_visibility must be within [0, 1]", ErrInvalidDetector)
	}
	return nil
}

// ExplainConfig builds the explainer configuration. The API key is read from
// the environment variable named by api_key_env.
func (f *File) ExplainConfig(disableGenerative bool) explain.Config {
	g := f.Generative
	keyEnv := g.APIKeyEnv
	if keyEnv == "" {
		keyEnv = DefaultAPIKeyEnv
	}
	serialize := true
	if g.Serialize != nil {
		serialize = *g.Serialize
	}

	return explain.Config{
		Enabled: g.Enabled && !disableGenerative,
		Client: explain.ClientConfig{
			BaseURL: g.BaseURL,
			Model:   g.Model,
			APIKey:  os.Getenv(keyEnv),
			Timeout: g.Timeout,
			Proxy:   g.Proxy,
			Headers: g.Headers,
		},
		MaxTokens: g.MaxTokens,
		Serialize: serialize,
		Rules:     f.Rules,
	}
}

// DetectorCommand returns the worker command, defaulting the executable.
func (f *File) DetectorCommand() source.Command {
	cmd := f.Detector.Command
	if cmd.Path == "" {
		cmd.Path = DefaultDetectorCommand
	}
	return cmd
}

// WorkerOptions returns the detector options set in the file.
func (f *File) WorkerOptions() []source.WorkerOption {
	minVisibility := DefaultMinVisibility
	if f.Detector.MinVisibility != nil {
		minVisibility = *f.Detector.MinVisibility
	}
	return []source.WorkerOption{
		source.WithInputSize(f.Detector.InputSize),
		source.WithMinVisibility(minVisibility),
	}
}

// DecoderOptions returns the ffmpeg options set in the file.
func (f *File) DecoderOptions() []source.FFmpegOption {
	return []source.FFmpegOption{
		source.WithFFmpegCommand(source.Command{Path: f.Decoder.FFmpeg}),
		source.WithFrameSize(f.Decoder.Width, f.Decoder.Height),
	}
}
