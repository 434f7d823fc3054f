package window

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/nao1215/poserisk/internal/model"
	"github.com/nao1215/poserisk/internal/pose"
	"github.com/nao1215/poserisk/internal/source"
)

// DefaultMaxFrames is the default number of frames pulled before giving up.
// At 30 fps it covers one minute of video.
const DefaultMaxFrames = 1800

// Skip reasons reported to a Recorder.
const (
	SkipNoBody     = "no_body"
	SkipDegenerate = "degenerate"
	SkipIncomplete = "incomplete"
)

// Recorder receives windowing events. Implementations must be safe for
// concurrent use when one Windower is shared.
type Recorder interface {
	FramePulled()
	FrameSkipped(reason string)
	WindowBuilt()
	WindowInsufficient()
}

type nopRecorder struct{}

func (nopRecorder) FramePulled() {}
func (nopRecorder) FrameSkipped(string) {}
func (nopRecorder) WindowBuilt() {}
func (nopRecorder) WindowInsufficient() {}

// Windower builds angle windows. A Windower holds no per-call state and can
// be shared between goroutines.
type Windower struct {
	size      int
	maxFrames int
	joints    pose.JointTable
	recorder  Recorder
	logger    *slog.Logger
}

// Option configures a Windower.
type Option func(*Windower)

// WithSize sets the number of triples in a window.
func WithSize(n int) Option {
	return func(w *Windower) {
		w.size = n
	}
}

// WithMaxFrames caps the frames pulled per window. Zero means unbounded.
func WithMaxFrames(n int) Option {
	return func(w *Windower) {
		w.maxFrames = n
	}
}

// WithJoints sets the joint table used to compute angles.
func WithJoints(t pose.JointTable) Option {
	return func(w *Windower) {
		w.joints = t
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(w *Windower) {
		if r != nil {
			w.recorder = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Windower) {
		w.logger = logger
	}
}

// New creates a Windower. Without options it builds windows of
// pose.DefaultWindowSize using the default joint table.
func New(opts ...Option) (*Windower, error) {
	w := &Windower{
		size:      pose.DefaultWindowSize,
		maxFrames: DefaultMaxFrames,
		joints:    pose.DefaultJointTable(),
		recorder:  nopRecorder{},
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}

	if w.size <= 0 {
		return nil, fmt.Errorf("window size must be positive, got %d", w.size)
	}
	if w.maxFrames < 0 {
		return nil, fmt.Errorf("frame budget must not be negative, got %d", w.maxFrames)
	}
	if w.maxFrames > 0 && w.maxFrames < w.size {
		return nil, fmt.Errorf("frame budget %d is smaller than the window size %d", w.maxFrames, w.size)
	}
	if err := w.joints.Validate(); err != nil {
		return nil, fmt.Errorf("invalid joint table: %w", err)
	}
	return w, nil
}

// Size returns the window size.
func (w *Windower) Size() int {
	return w.size
}

// Validate checks that windows fit a model input of shape [timesteps, features].
func (w *Windower) Validate(inputShape [2]int) error {
	if inputShape[0] != w.size {
		return fmt.Errorf("%w: window size %d, model timesteps %d", ErrShapeMismatch, w.size, inputShape[0])
	}
	if inputShape[1] != pose.Features {
		return fmt.Errorf("%w: %d features per frame, model expects %d", ErrShapeMismatch, pose.Features, inputShape[1])
	}
	return nil
}

// Build pulls frames from src until the window is full.
//
// Frames without a body, with a missing landmark or with degenerate
// geometry are skipped and do not count. Triples keep the order the
// frames were produced in. Source errors other than io.EOF abort the
// build. When the stream ends or the frame budget runs out first, the
// error is an *InsufficientFramesError. The returned stats are valid in
// every case.
func (w *Windower) Build(ctx context.Context, src source.FrameSource) (pose.Window, model.FrameStats, error) {
	var stats model.FrameStats
	triples := make([]pose.AngleTriple, 0, w.size)

	for len(triples) < w.size {
		if w.maxFrames > 0 && stats.Pulled >= w.maxFrames {
			return w.insufficient(stats, len(triples), true)
		}
		if err := ctx.Err(); err != nil {
			return pose.Window{}, stats, err
		}

		set, ok, err := src.NextPose(ctx)
		if errors.Is(err, io.EOF) {
			return w.insufficient(stats, len(triples), false)
		}
		if err != nil {
			return pose.Window{}, stats, fmt.Errorf("failed to read frame %d: %w", stats.Pulled, err)
		}
		stats.Pulled++
		w.recorder.FramePulled()

		if !ok {
			stats.NoBody++
			w.recorder.FrameSkipped(SkipNoBody)
			continue
		}

		triple, err := w.joints.Triple(set)
		if err != nil {
			w.skip(&stats, err)
			continue
		}
		triples = append(triples, triple)
	}

	stats.Used = len(triples)
	win, err := pose.NewWindow(triples, w.size)
	if err != nil {
		return pose.Window{}, stats, err
	}
	w.recorder.WindowBuilt()
	w.logger.Debug("window built",
		"size", w.size,
		"pulled", stats.Pulled,
		"skipped", stats.Skipped(),
	)
	return win, stats, nil
}

func (w *Windower) skip(stats *model.FrameStats, err error) {
	reason := SkipDegenerate
	if errors.Is(err, pose.ErrMissingLandmark) {
		reason = SkipIncomplete
		stats.Incomplete++
	} else {
		stats.Degenerate++
	}
	w.recorder.FrameSkipped(reason)
	w.logger.Debug("frame skipped",
		"frame", stats.Pulled-1,
		"reason", reason,
		"error", err,
	)
}

func (w *Windower) insufficient(stats model.FrameStats, found int, budget bool) (pose.Window, model.FrameStats, error) {
	stats.Used = found
	w.recorder.WindowInsufficient()
	err := &InsufficientFramesError{
		Found:           found,
		Required:        w.size,
		Pulled:          stats.Pulled,
		BudgetExhausted: budget,
	}
	w.logger.Debug("window incomplete", "error", err)
	return pose.Window{}, stats, err
}

// FromTriples builds a window from pre-computed angles, the direct-angle
// path that bypasses decoding and detection. The first Size triples form
// the window; every angle must lie within [0, 180].
func (w *Windower) FromTriples(triples []pose.AngleTriple) (pose.Window, error) {
	if len(triples) < w.size {
		w.recorder.WindowInsufficient()
		return pose.Window{}, &InsufficientFramesError{
			Found:    len(triples),
			Required: w.size,
			Pulled:   len(triples),
		}
	}
	head := triples[:w.size]
	for i, t := range head {
		if err := t.Validate(); err != nil {
			return pose.Window{}, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	win, err := pose.NewWindow(head, w.size)
	if err != nil {
		return pose.Window{}, err
	}
	w.recorder.WindowBuilt()
	return win, nil
}
