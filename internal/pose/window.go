package pose

import (
	"errors"
	"fmt"
	"math"
)

// DefaultWindowSize is the number of frames the risk model consumes.
const DefaultWindowSize = 30

// Features is the number of values per frame (hip, knee, shoulder).
const Features = 3

// ErrAngleOutOfRange is returned for angle values outside [0, 180] or not finite.
var ErrAngleOutOfRange = errors.New("angle out of range [0, 180]")

// AngleTriple is the hip, knee and shoulder angle of one frame, in degrees.
type AngleTriple struct {
	Hip      float64 `json:"hip"`
	Knee     float64 `json:"knee"`
	Shoulder float64 `json:"shoulder"`
}

// Values returns the triple in model feature order.
func (a AngleTriple) Values() [Features]float64 {
	return [Features]float64{a.Hip, a.Knee, a.Shoulder}
}

// Get returns the angle of the given joint.
func (a AngleTriple) Get(j Joint) float64 {
	switch j {
	case JointHip:
		return a.Hip
	case JointKnee:
		return a.Knee
	default:
		return a.Shoulder
	}
}

// Validate checks every angle is finite and within [0, 180].
func (a AngleTriple) Validate() error {
	for i, v := range a.Values() {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || v > 180 {
			return fmt.Errorf("%w: %s=%v", ErrAngleOutOfRange, Joints[i], v)
		}
	}
	return nil
}

// Window is an ordered, fixed-length sequence of angle triples.
// The zero value is empty and must not be scored.
type Window struct {
	triples []AngleTriple
}

// NewWindow builds a window that must hold exactly size triples.
// The input slice is copied.
func NewWindow(triples []AngleTriple, size int) (Window, error) {
	if size <= 0 {
		return Window{}, fmt.Errorf("window size must be positive, got %d", size)
	}
	if len(triples) != size {
		return Window{}, fmt.Errorf("window needs exactly %d triples, got %d", size, len(triples))
	}
	cp := make([]AngleTriple, size)
	copy(cp, triples)
	return Window{triples: cp}, nil
}

// Len returns the number of triples.
func (w Window) Len() int {
	return len(w.triples)
}

// At returns the i-th triple.
func (w Window) At(i int) AngleTriple {
	return w.triples[i]
}

// Last returns the final triple of the window.
func (w Window) Last() AngleTriple {
	if len(w.triples) == 0 {
		return AngleTriple{}
	}
	return w.triples[len(w.triples)-1]
}

// Triples returns a copy of the triples in temporal order.
func (w Window) Triples() []AngleTriple {
	cp := make([]AngleTriple, len(w.triples))
	copy(cp, w.triples)
	return cp
}
