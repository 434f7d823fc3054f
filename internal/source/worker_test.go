package source

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/poserisk/internal/pose"
)

func solidFrame(seq, width, height int, c color.RGBA) Frame {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return Frame{Seq: seq, Image: img}
}

var (
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black = color.RGBA{A: 255}
)

func TestWorkerDetector(t *testing.T) {
	t.Parallel()

	t.Run("detects bodies and drops invisible landmarks", func(t *testing.T) {
		t.Parallel()

		w, err := NewWorkerDetector(context.Background(), helperCommand("worker"),
			WithInputSize(32),
			WithMinVisibility(0.5),
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer w.Close()

		set, ok, err := w.Detect(context.Background(), solidFrame(0, 64, 48, white))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			t.Fatal("expected a body")
		}
		if _, found := set[pose.LeftHip]; !found {
			t.Error("expected left_hip in the landmark set")
		}
		if _, found := set[pose.LeftWrist]; found {
			t.Error("expected low-visibility left_wrist to be dropped")
		}

		_, ok, err = w.Detect(context.Background(), solidFrame(1, 64, 48, black))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ok {
			t.Error("expected no body in a dark frame")
		}
	})

	t.Run("sequence mismatch is a protocol error", func(t *testing.T) {
		t.Parallel()

		w, err := NewWorkerDetector(context.Background(), helperCommand("worker-badseq"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer w.Close()

		_, _, err = w.Detect(context.Background(), solidFrame(0, 8, 8, white))
		if !errors.Is(err, ErrWorkerProtocol) {
			t.Errorf("expected ErrWorkerProtocol, got %v", err)
		}
	})

	t.Run("worker error is surfaced", func(t *testing.T) {
		t.Parallel()

		w, err := NewWorkerDetector(context.Background(), helperCommand("worker-error"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer w.Close()

		_, _, err = w.Detect(context.Background(), solidFrame(0, 8, 8, white))
		if err == nil || !strings.Contains(err.Error(), "model not loaded") {
			t.Errorf("expected worker error, got %v", err)
		}
	})

	t.Run("closed worker", func(t *testing.T) {
		t.Parallel()

		w, err := NewWorkerDetector(context.Background(), helperCommand("worker"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("unexpected close error: %v", err)
		}
		if _, _, err := w.Detect(context.Background(), solidFrame(0, 8, 8, white)); !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		w, err := NewWorkerDetector(context.Background(), helperCommand("worker"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer w.Close()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, _, err := w.Detect(ctx, solidFrame(0, 8, 8, white)); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("keeps landmarks without visibility by default", func(t *testing.T) {
		t.Parallel()

		w, err := NewWorkerDetector(context.Background(), helperCommand("worker-novisibility"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer w.Close()

		set, ok, err := w.Detect(context.Background(), solidFrame(0, 8, 8, black))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !ok {
			t.Fatal("expected a body")
		}
		if len(set) != len(helperLandmarks()) {
			t.Errorf("expected %d landmarks, got %d", len(helperLandmarks()), len(set))
		}
		if _, err := pose.DefaultJointTable().Triple(set); err != nil {
			t.Errorf("expected angles from the detected body, got %v", err)
		}
	})

	t.Run("kills a worker that ignores stdin close", func(t *testing.T) {
		t.Parallel()

		w, err := NewWorkerDetector(context.Background(), helperCommand("worker-stubborn"),
			WithCloseGrace(50*time.Millisecond),
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		done := make(chan error, 1)
		go func() { done <- w.Close() }()

		select {
		case err := <-done:
			if err != nil {
				t.Errorf("unexpected close error: %v", err)
			}
		case <-time.After(10 * time.Second):
			t.Fatal("Close did not return after the grace period")
		}
	})

	t.Run("command is required", func(t *testing.T) {
		t.Parallel()

		if _, err := NewWorkerDetector(context.Background(), Command{}); err == nil {
			t.Error("expected error for empty command")
		}
	})
}

func TestScaledSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		width, height int
		limit         int
		wantW, wantH  int
	}{
		{name: "within limit", width: 200, height: 100, limit: 256, wantW: 200, wantH: 100},
		{name: "landscape", width: 640, height: 360, limit: 256, wantW: 256, wantH: 144},
		{name: "portrait", width: 360, height: 640, limit: 256, wantW: 144, wantH: 256},
		{name: "thin strip keeps one pixel", width: 1000, height: 1, limit: 100, wantW: 100, wantH: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w, h := scaledSize(tt.width, tt.height, tt.limit)
			if w != tt.wantW || h != tt.wantH {
				t.Errorf("expected %dx%d, got %dx%d", tt.wantW, tt.wantH, w, h)
			}
		})
	}
}

func TestWorkerLandmarkSet(t *testing.T) {
	t.Parallel()

	// Five landmarks without a reported visibility, an occluded arm.
	landmarks := []pose.Landmark{
		{Name: pose.LeftHip, X: 0, Y: 1},
		{Name: pose.LeftKnee, X: 0, Y: 0},
		{Name: pose.LeftAnkle, X: 1, Y: 0},
		{Name: pose.LeftFootIndex, X: 2, Y: -1},
		{Name: pose.LeftShoulder, X: 0, Y: 2},
		{Name: pose.LeftElbow, X: 0, Y: 3, Visibility: 0.4},
		{Name: pose.LeftWrist, X: 0, Y: 4, Visibility: 0.3},
	}

	t.Run("default keeps every landmark", func(t *testing.T) {
		t.Parallel()

		set := (&WorkerDetector{}).landmarkSet(landmarks)
		if len(set) != len(landmarks) {
			t.Fatalf("expected %d landmarks, got %d", len(landmarks), len(set))
		}
		triple, err := pose.DefaultJointTable().Triple(set)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if math.Abs(triple.Hip-90) > 1e-9 {
			t.Errorf("expected hip 90, got %v", triple.Hip)
		}
	})

	t.Run("threshold is opt-in", func(t *testing.T) {
		t.Parallel()

		set := (&WorkerDetector{minVisibility: 0.35}).landmarkSet(landmarks)
		if _, found := set[pose.LeftElbow]; !found {
			t.Error("expected left_elbow at 0.4 to be kept")
		}
		if _, found := set[pose.LeftWrist]; found {
			t.Error("expected left_wrist at 0.3 to be dropped")
		}
		if _, found := set[pose.LeftHip]; found {
			t.Error("expected left_hip without visibility to be dropped")
		}
	})
}
