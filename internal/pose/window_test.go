package pose

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNewWindow(t *testing.T) {
	t.Parallel()

	t.Run("requires exact length", func(t *testing.T) {
		t.Parallel()

		triples := make([]AngleTriple, DefaultWindowSize-1)
		if _, err := NewWindow(triples, DefaultWindowSize); err == nil {
			t.Error("expected error for short window")
		}

		triples = make([]AngleTriple, DefaultWindowSize+1)
		if _, err := NewWindow(triples, DefaultWindowSize); err == nil {
			t.Error("expected error for long window")
		}
	})

	t.Run("rejects non-positive size", func(t *testing.T) {
		t.Parallel()

		if _, err := NewWindow(nil, 0); err == nil {
			t.Error("expected error for zero size")
		}
	})

	t.Run("keeps order and copies input", func(t *testing.T) {
		t.Parallel()

		triples := []AngleTriple{
			{Hip: 1, Knee: 2, Shoulder: 3},
			{Hip: 4, Knee: 5, Shoulder: 6},
		}
		w, err := NewWindow(triples, 2)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		triples[0].Hip = 99

		want := []AngleTriple{
			{Hip: 1, Knee: 2, Shoulder: 3},
			{Hip: 4, Knee: 5, Shoulder: 6},
		}
		if diff := cmp.Diff(want, w.Triples()); diff != "" {
			t.Errorf("window mismatch (-want +got):\n%s", diff)
		}
		if w.Last() != want[1] {
			t.Errorf("expected last %v, got %v", want[1], w.Last())
		}
	})

	t.Run("zero window has empty last", func(t *testing.T) {
		t.Parallel()

		var w Window
		if w.Len() != 0 {
			t.Errorf("expected empty window, got %d", w.Len())
		}
		if w.Last() != (AngleTriple{}) {
			t.Errorf("expected zero triple, got %v", w.Last())
		}
	})
}

func TestAngleTripleValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		triple  AngleTriple
		wantErr bool
	}{
		{name: "in range", triple: AngleTriple{Hip: 0, Knee: 90, Shoulder: 180}},
		{name: "negative", triple: AngleTriple{Hip: -1, Knee: 90, Shoulder: 90}, wantErr: true},
		{name: "above 180", triple: AngleTriple{Hip: 90, Knee: 180.5, Shoulder: 90}, wantErr: true},
		{name: "NaN", triple: AngleTriple{Hip: 90, Knee: 90, Shoulder: math.NaN()}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.triple.Validate()
			if tt.wantErr && !errors.Is(err, ErrAngleOutOfRange) {
				t.Errorf("expected ErrAngleOutOfRange, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
