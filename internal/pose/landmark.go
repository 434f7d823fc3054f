package pose

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Landmark names in the MediaPipe pose topology.
// The index of each name in landmarkNames is its MediaPipe landmark index.
const (
	Nose            = "nose"
	LeftEyeInner    = "left_eye_inner"
	LeftEye         = "left_eye"
	LeftEyeOuter    = "left_eye_outer"
	RightEyeInner   = "right_eye_inner"
	RightEye        = "right_eye"
	RightEyeOuter   = "right_eye_outer"
	LeftEar         = "left_ear"
	RightEar        = "right_ear"
	MouthLeft       = "mouth_left"
	MouthRight      = "mouth_right"
	LeftShoulder    = "left_shoulder"
	RightShoulder   = "right_shoulder"
	LeftElbow       = "left_elbow"
	RightElbow      = "right_elbow"
	LeftWrist       = "left_wrist"
	RightWrist      = "right_wrist"
	LeftPinky       = "left_pinky"
	RightPinky      = "right_pinky"
	LeftIndex       = "left_index"
	RightIndex      = "right_index"
	LeftThumb       = "left_thumb"
	RightThumb      = "right_thumb"
	LeftHip         = "left_hip"
	RightHip        = "right_hip"
	LeftKnee        = "left_knee"
	RightKnee       = "right_knee"
	LeftAnkle       = "left_ankle"
	RightAnkle      = "right_ankle"
	LeftHeel        = "left_heel"
	RightHeel       = "right_heel"
	LeftFootIndex   = "left_foot_index"
	RightFootIndex  = "right_foot_index"

	// NumLandmarks is the number of landmarks in the pose topology.
	NumLandmarks = 33
)

var landmarkNames = [NumLandmarks]string{
	Nose, LeftEyeInner, LeftEye, LeftEyeOuter, RightEyeInner, RightEye, RightEyeOuter,
	LeftEar, RightEar, MouthLeft, MouthRight,
	LeftShoulder, RightShoulder, LeftElbow, RightElbow, LeftWrist, RightWrist,
	LeftPinky, RightPinky, LeftIndex, RightIndex, LeftThumb, RightThumb,
	LeftHip, RightHip, LeftKnee, RightKnee, LeftAnkle, RightAnkle,
	LeftHeel, RightHeel, LeftFootIndex, RightFootIndex,
}

var landmarkIndex = func() map[string]int {
	m := make(map[string]int, NumLandmarks)
	for i, name := range landmarkNames {
		m[name] = i
	}
	return m
}()

// LandmarkName returns the name of the landmark at the given MediaPipe index.
func LandmarkName(index int) (string, error) {
	if index < 0 || index >= NumLandmarks {
		return "", fmt.Errorf("landmark index %d out of range [0,%d)", index, NumLandmarks)
	}
	return landmarkNames[index], nil
}

// IsKnownLandmark reports whether name belongs to the pose topology.
func IsKnownLandmark(name string) bool {
	_, ok := landmarkIndex[name]
	return ok
}

// Point is a position in 3-D space.
type Point = r3.Vec

// Landmark is one detected body keypoint.
type Landmark struct {
	Name       string  `json:"name"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Z          float64 `json:"z"`
	Visibility float64 `json:"visibility,omitempty"`
}

// Point returns the landmark position.
func (l Landmark) Point() Point {
	return Point{X: l.X, Y: l.Y, Z: l.Z}
}

// LandmarkSet is the set of landmarks of one body detected in one frame,
// keyed by landmark name.
type LandmarkSet map[string]Landmark

// NewLandmarkSet builds a set from a slice, dropping entries with unknown names.
func NewLandmarkSet(landmarks []Landmark) LandmarkSet {
	set := make(LandmarkSet, len(landmarks))
	for _, l := range landmarks {
		if !IsKnownLandmark(l.Name) {
			continue
		}
		set[l.Name] = l
	}
	return set
}
