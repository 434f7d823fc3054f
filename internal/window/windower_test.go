package window

import (
	"context"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/nao1215/poserisk/internal/model"
	"github.com/nao1215/poserisk/internal/pose"
	"github.com/nao1215/poserisk/internal/source"
)

// body returns a landmark set whose hip angle is hipDeg degrees.
func body(hipDeg float64) pose.LandmarkSet {
	rad := hipDeg * math.Pi / 180
	ankleX, ankleY := math.Sin(rad), math.Cos(rad)
	return pose.NewLandmarkSet([]pose.Landmark{
		{Name: pose.LeftHip, X: 0, Y: 1},
		{Name: pose.LeftKnee, X: 0, Y: 0},
		{Name: pose.LeftAnkle, X: ankleX, Y: ankleY},
		{Name: pose.LeftFootIndex, X: ankleX + 1, Y: ankleY + 0.5},
		{Name: pose.LeftShoulder, X: 0, Y: 2},
		{Name: pose.LeftElbow, X: 0, Y: 3},
		{Name: pose.LeftWrist, X: 1, Y: 3},
	})
}

func degenerateBody() pose.LandmarkSet {
	set := body(90)
	set[pose.LeftWrist] = set[pose.LeftElbow]
	return set
}

func incompleteBody() pose.LandmarkSet {
	set := body(90)
	delete(set, pose.LeftFootIndex)
	return set
}

func hips(w pose.Window) []float64 {
	out := make([]float64, w.Len())
	for i := range out {
		out[i] = w.At(i).Hip
	}
	return out
}

type countingRecorder struct {
	pulled       int
	skipped      map[string]int
	built        int
	insufficient int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{skipped: map[string]int{}}
}

func (r *countingRecorder) FramePulled() { r.pulled++ }
func (r *countingRecorder) FrameSkipped(reason string) { r.skipped[reason]++ }
func (r *countingRecorder) WindowBuilt() { r.built++ }
func (r *countingRecorder) WindowInsufficient() { r.insufficient++ }

type failingSource struct {
	after int
	err   error
	n     int
}

func (s *failingSource) NextPose(_ context.Context) (pose.LandmarkSet, bool, error) {
	if s.n >= s.after {
		return nil, false, s.err
	}
	s.n++
	return body(90), true, nil
}

func newWindower(t *testing.T, opts ...Option) *Windower {
	t.Helper()
	w, err := New(opts...)
	if err != nil {
		t.Fatalf("failed to create windower: %v", err)
	}
	return w
}

var approx = cmpopts.EquateApprox(0, 1e-9)

func TestBuild(t *testing.T) {
	t.Parallel()

	t.Run("skips frames without a body and keeps order", func(t *testing.T) {
		t.Parallel()

		var frames []pose.LandmarkSet
		var want []float64
		for i := 0; i < pose.DefaultWindowSize; i++ {
			hip := 60 + float64(i)
			want = append(want, hip)
			frames = append(frames, body(hip))
			if i%3 == 0 {
				frames = append(frames, nil)
			}
		}
		src := source.NewSliceSource(frames...)
		rec := newCountingRecorder()

		win, stats, err := newWindower(t, WithRecorder(rec)).Build(context.Background(), src)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if win.Len() != pose.DefaultWindowSize {
			t.Fatalf("expected %d triples, got %d", pose.DefaultWindowSize, win.Len())
		}
		if diff := cmp.Diff(want, hips(win), approx); diff != "" {
			t.Errorf("hip angles mismatch (-want +got):\n%s", diff)
		}

		wantStats := model.FrameStats{Pulled: 40, NoBody: 10, Used: 30}
		if diff := cmp.Diff(wantStats, stats); diff != "" {
			t.Errorf("stats mismatch (-want +got):\n%s", diff)
		}
		if rec.pulled != 40 || rec.skipped[SkipNoBody] != 10 || rec.built != 1 {
			t.Errorf("unexpected recorder state: %+v", rec)
		}
	})

	t.Run("exactly enough frames", func(t *testing.T) {
		t.Parallel()

		frames := make([]pose.LandmarkSet, pose.DefaultWindowSize)
		for i := range frames {
			frames[i] = body(90)
		}
		src := source.NewSliceSource(frames...)

		win, _, err := newWindower(t).Build(context.Background(), src)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if win.Len() != pose.DefaultWindowSize {
			t.Errorf("expected %d triples, got %d", pose.DefaultWindowSize, win.Len())
		}
	})

	t.Run("stops pulling once the window is full", func(t *testing.T) {
		t.Parallel()

		frames := make([]pose.LandmarkSet, pose.DefaultWindowSize+5)
		for i := range frames {
			frames[i] = body(90)
		}
		src := source.NewSliceSource(frames...)

		if _, _, err := newWindower(t).Build(context.Background(), src); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if src.Remaining() != 5 {
			t.Errorf("expected 5 frames left unpulled, got %d", src.Remaining())
		}
	})

	t.Run("too few usable frames", func(t *testing.T) {
		t.Parallel()

		var frames []pose.LandmarkSet
		for i := 0; i < pose.DefaultWindowSize-1; i++ {
			frames = append(frames, body(90), nil)
		}
		src := source.NewSliceSource(frames...)
		rec := newCountingRecorder()

		win, stats, err := newWindower(t, WithRecorder(rec)).Build(context.Background(), src)

		var insufficient *InsufficientFramesError
		if !errors.As(err, &insufficient) {
			t.Fatalf("expected InsufficientFramesError, got %v", err)
		}
		want := &InsufficientFramesError{Found: 29, Required: 30, Pulled: 58}
		if diff := cmp.Diff(want, insufficient); diff != "" {
			t.Errorf("error mismatch (-want +got):\n%s", diff)
		}
		if win.Len() != 0 {
			t.Errorf("expected no window, got %d triples", win.Len())
		}
		if stats.Used != 29 || stats.NoBody != 29 {
			t.Errorf("unexpected stats: %+v", stats)
		}
		if rec.insufficient != 1 || rec.built != 0 {
			t.Errorf("unexpected recorder state: %+v", rec)
		}
	})

	t.Run("empty stream", func(t *testing.T) {
		t.Parallel()

		_, _, err := newWindower(t).Build(context.Background(), source.NewSliceSource())

		var insufficient *InsufficientFramesError
		if !errors.As(err, &insufficient) || insufficient.Found != 0 {
			t.Errorf("expected InsufficientFramesError with 0 found, got %v", err)
		}
	})

	t.Run("extraction failures are skipped like missing bodies", func(t *testing.T) {
		t.Parallel()

		frames := []pose.LandmarkSet{degenerateBody(), incompleteBody()}
		for i := 0; i < pose.DefaultWindowSize; i++ {
			frames = append(frames, body(90))
		}
		src := source.NewSliceSource(frames...)
		rec := newCountingRecorder()

		_, stats, err := newWindower(t, WithRecorder(rec)).Build(context.Background(), src)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		wantStats := model.FrameStats{Pulled: 32, Degenerate: 1, Incomplete: 1, Used: 30}
		if diff := cmp.Diff(wantStats, stats); diff != "" {
			t.Errorf("stats mismatch (-want +got):\n%s", diff)
		}
		if rec.skipped[SkipDegenerate] != 1 || rec.skipped[SkipIncomplete] != 1 {
			t.Errorf("unexpected skip reasons: %v", rec.skipped)
		}
	})

	t.Run("frame budget", func(t *testing.T) {
		t.Parallel()

		frames := make([]pose.LandmarkSet, 100)
		for i := 0; i < pose.DefaultWindowSize; i++ {
			frames = append(frames, body(90))
		}
		src := source.NewSliceSource(frames...)

		_, _, err := newWindower(t, WithMaxFrames(40)).Build(context.Background(), src)

		var insufficient *InsufficientFramesError
		if !errors.As(err, &insufficient) {
			t.Fatalf("expected InsufficientFramesError, got %v", err)
		}
		if !insufficient.BudgetExhausted || insufficient.Pulled != 40 || insufficient.Found != 0 {
			t.Errorf("unexpected error: %+v", insufficient)
		}
		if src.Pulled() != 40 {
			t.Errorf("expected 40 frames pulled, got %d", src.Pulled())
		}
	})

	t.Run("unbounded budget", func(t *testing.T) {
		t.Parallel()

		frames := make([]pose.LandmarkSet, 2000)
		for i := 0; i < pose.DefaultWindowSize; i++ {
			frames = append(frames, body(90))
		}

		_, stats, err := newWindower(t, WithMaxFrames(0)).Build(context.Background(), source.NewSliceSource(frames...))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stats.Pulled != 2030 {
			t.Errorf("expected 2030 frames pulled, got %d", stats.Pulled)
		}
	})

	t.Run("source errors abort", func(t *testing.T) {
		t.Parallel()

		errBoom := errors.New("decoder crashed")
		_, stats, err := newWindower(t).Build(context.Background(), &failingSource{after: 3, err: errBoom})
		if !errors.Is(err, errBoom) {
			t.Fatalf("expected wrapped decoder error, got %v", err)
		}
		var insufficient *InsufficientFramesError
		if errors.As(err, &insufficient) {
			t.Error("source errors must not be reported as insufficient frames")
		}
		if stats.Pulled != 3 {
			t.Errorf("expected 3 frames pulled, got %d", stats.Pulled)
		}
	})

	t.Run("wrapped EOF ends the stream", func(t *testing.T) {
		t.Parallel()

		_, _, err := newWindower(t).Build(context.Background(), &failingSource{after: 2, err: io.EOF})
		var insufficient *InsufficientFramesError
		if !errors.As(err, &insufficient) || insufficient.Found != 2 {
			t.Errorf("expected InsufficientFramesError with 2 found, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		src := source.NewSliceSource(body(90))
		_, _, err := newWindower(t).Build(ctx, src)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if src.Pulled() != 0 {
			t.Errorf("expected nothing pulled, got %d", src.Pulled())
		}
	})

	t.Run("custom window size", func(t *testing.T) {
		t.Parallel()

		src := source.NewSliceSource(body(70), nil, body(80), body(100))
		win, _, err := newWindower(t, WithSize(2)).Build(context.Background(), src)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if diff := cmp.Diff([]float64{70, 80}, hips(win), approx); diff != "" {
			t.Errorf("hip angles mismatch (-want +got):\n%s", diff)
		}
	})
}

func TestNew(t *testing.T) {
	t.Parallel()

	badJoints := pose.DefaultJointTable()
	badJoints.Hip.A = "left_tail"

	tests := []struct {
		name string
		opts []Option
	}{
		{name: "zero size", opts: []Option{WithSize(0)}},
		{name: "negative budget", opts: []Option{WithMaxFrames(-1)}},
		{name: "budget below window size", opts: []Option{WithMaxFrames(10)}},
		{name: "unknown landmark", opts: []Option{WithJoints(badJoints)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := New(tt.opts...); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	w := newWindower(t)

	if err := w.Validate([2]int{30, 3}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := w.Validate([2]int{40, 3}); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch for timesteps, got %v", err)
	}
	if err := w.Validate([2]int{30, 4}); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch for features, got %v", err)
	}
}

func TestFromTriples(t *testing.T) {
	t.Parallel()

	triples := func(n int) []pose.AngleTriple {
		out := make([]pose.AngleTriple, n)
		for i := range out {
			out[i] = pose.AngleTriple{Hip: float64(i), Knee: 90, Shoulder: 50}
		}
		return out
	}

	t.Run("uses the first entries", func(t *testing.T) {
		t.Parallel()

		win, err := newWindower(t).FromTriples(triples(45))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if win.Len() != 30 || win.Last().Hip != 29 {
			t.Errorf("unexpected window: len %d, last %+v", win.Len(), win.Last())
		}
	})

	t.Run("too few entries", func(t *testing.T) {
		t.Parallel()

		_, err := newWindower(t).FromTriples(triples(29))
		var insufficient *InsufficientFramesError
		if !errors.As(err, &insufficient) || insufficient.Found != 29 {
			t.Errorf("expected InsufficientFramesError with 29 found, got %v", err)
		}
	})

	t.Run("out of range angle", func(t *testing.T) {
		t.Parallel()

		in := triples(30)
		in[7].Knee = 181
		if _, err := newWindower(t).FromTriples(in); !errors.Is(err, pose.ErrAngleOutOfRange) {
			t.Errorf("expected ErrAngleOutOfRange, got %v", err)
		}
	})

	t.Run("entries past the window are not validated", func(t *testing.T) {
		t.Parallel()

		in := triples(31)
		in[30].Hip = -5
		if _, err := newWindower(t).FromTriples(in); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestInsufficientFramesErrorMessage(t *testing.T) {
	t.Parallel()

	err := &InsufficientFramesError{Found: 12, Required: 30, Pulled: 80}
	if got := err.Error(); got != "insufficient frames: found 12 of 30 usable frames in 80 frames" {
		t.Errorf("unexpected message: %q", got)
	}

	err.BudgetExhausted = true
	if got := err.Error(); got != "insufficient frames: found 12 of 30 usable frames within a budget of 80 frames" {
		t.Errorf("unexpected message: %q", got)
	}
}
