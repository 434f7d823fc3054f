package source

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/nao1215/poserisk/internal/pose"
)

// ErrClosed is returned by sources used after Close.
var ErrClosed = errors.New("source closed")

// Frame is one decoded video frame.
type Frame struct {
	// Seq is the zero-based position of the frame in the stream.
	Seq int

	// Image holds the decoded pixels.
	Image *image.RGBA
}

// Decoder yields decoded frames in stream order.
type Decoder interface {
	// Next returns the next frame, or io.EOF once the stream is exhausted.
	Next(ctx context.Context) (Frame, error)
}

// Detector finds the landmarks of a single body in a frame.
type Detector interface {
	// Detect returns the landmark set of the detected body.
	// The boolean is false when no body was found in the frame.
	Detect(ctx context.Context, frame Frame) (pose.LandmarkSet, bool, error)
}

// FrameSource yields one detection result per frame, in stream order.
type FrameSource interface {
	// NextPose returns the landmarks of the next frame. The boolean is false
	// when the frame holds no detectable body. io.EOF marks the end of the stream.
	NextPose(ctx context.Context) (pose.LandmarkSet, bool, error)
}

// Command describes an external program started by a source.
type Command struct {
	// Path is the executable, looked up in PATH when it has no separator.
	Path string `yaml:"command"`

	// Args are passed before any arguments the source adds itself.
	Args []string `yaml:"args"`

	// Env entries are appended to the current process environment.
	Env []string `yaml:"env"`
}

// Pair adapts a Decoder and a Detector into a FrameSource.
type Pair struct {
	Decoder  Decoder
	Detector Detector
}

// NextPose decodes the next frame and runs detection on it.
// io.EOF from the decoder is returned unwrapped.
func (p Pair) NextPose(ctx context.Context) (pose.LandmarkSet, bool, error) {
	frame, err := p.Decoder.Next(ctx)
	if err != nil {
		return nil, false, err
	}

	set, ok, err := p.Detector.Detect(ctx, frame)
	if err != nil {
		return nil, false, fmt.Errorf("detect frame %d: %w", frame.Seq, err)
	}
	return set, ok, nil
}
