package source

import (
	"context"
	"io"

	"github.com/nao1215/poserisk/internal/pose"
)

// SliceSource serves landmark sets from memory. A nil entry is a frame
// without a detectable body. It is not safe for concurrent use.
type SliceSource struct {
	frames []pose.LandmarkSet
	pos    int
}

// NewSliceSource returns a source yielding frames in order.
func NewSliceSource(frames ...pose.LandmarkSet) *SliceSource {
	return &SliceSource{frames: frames}
}

// NextPose returns the next frame or io.EOF.
func (s *SliceSource) NextPose(ctx context.Context) (pose.LandmarkSet, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if s.pos >= len(s.frames) {
		return nil, false, io.EOF
	}

	set := s.frames[s.pos]
	s.pos++
	if len(set) == 0 {
		return nil, false, nil
	}
	return set, true, nil
}

// Pulled returns how many frames have been handed out.
func (s *SliceSource) Pulled() int {
	return s.pos
}

// Remaining returns how many frames have not been pulled yet.
func (s *SliceSource) Remaining() int {
	return len(s.frames) - s.pos
}
