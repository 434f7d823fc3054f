package source

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/nao1215/poserisk/internal/pose"
)

// ErrMalformedRecord is returned for lines of a landmark file that cannot be decoded.
var ErrMalformedRecord = errors.New("malformed landmark record")

// maxRecordSize bounds a single JSONL line.
const maxRecordSize = 1 << 20

// landmarkRecord is one line of a landmark file:
//
//	{"frame": 12, "landmarks": {"left_hip": {"x": 0.5, "y": 0.6, "z": -0.1, "visibility": 0.98}}}
type landmarkRecord struct {
	Frame     int                    `json:"frame"`
	Landmarks map[string]landmarkXYZ `json:"landmarks"`
}

type landmarkXYZ struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility"`
}

// LandmarkFile replays pre-detected landmarks, one JSON object per frame.
// A record with no landmarks is a frame without a detectable body.
// Blank lines are ignored.
type LandmarkFile struct {
	scanner *bufio.Scanner
	closer  io.Closer
	line    int
}

// OpenLandmarkFile opens a JSONL landmark file.
func OpenLandmarkFile(path string) (*LandmarkFile, error) {
	f, err := os.Open(path) //nolint:gosec // path is provided by the user
	if err != nil {
		return nil, fmt.Errorf("failed to open landmark file: %w", err)
	}
	lf := NewLandmarkReader(f)
	lf.closer = f
	return lf, nil
}

// NewLandmarkReader reads JSONL landmark records from r.
func NewLandmarkReader(r io.Reader) *LandmarkFile {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRecordSize)
	return &LandmarkFile{scanner: scanner}
}

// NextPose decodes the next record.
func (l *LandmarkFile) NextPose(ctx context.Context) (pose.LandmarkSet, bool, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		if !l.scanner.Scan() {
			if err := l.scanner.Err(); err != nil {
				return nil, false, fmt.Errorf("failed to read landmark file: %w", err)
			}
			return nil, false, io.EOF
		}
		l.line++

		line := bytes.TrimSpace(l.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var rec landmarkRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, false, fmt.Errorf("%w: line %d: %w", ErrMalformedRecord, l.line, err)
		}
		set := rec.landmarkSet()
		if len(set) == 0 {
			return nil, false, nil
		}
		return set, true, nil
	}
}

// Close releases the underlying file, if any.
func (l *LandmarkFile) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func (r landmarkRecord) landmarkSet() pose.LandmarkSet {
	landmarks := make([]pose.Landmark, 0, len(r.Landmarks))
	for name, p := range r.Landmarks {
		landmarks = append(landmarks, pose.Landmark{
			Name:       name,
			X:          p.X,
			Y:          p.Y,
			Z:          p.Z,
			Visibility: p.Visibility,
		})
	}
	return pose.NewLandmarkSet(landmarks)
}
