package pose

import (
	"errors"
	"fmt"
)

// ErrMissingLandmark is returned when a landmark required by the joint table
// is absent from a detected landmark set.
var ErrMissingLandmark = errors.New("missing landmark")

// Joint identifies one of the tracked angles.
type Joint string

// Tracked joints, in AngleTriple order.
const (
	JointHip      Joint = "hip"
	JointKnee     Joint = "knee"
	JointShoulder Joint = "shoulder"
)

// Joints lists the tracked joints in AngleTriple order.
var Joints = []Joint{JointHip, JointKnee, JointShoulder}

// JointSpec names the three landmarks forming an angle. Vertex is the middle one.
type JointSpec struct {
	A      string `yaml:"a"`
	Vertex string `yaml:"vertex"`
	C      string `yaml:"c"`
}

// JointTable maps every tracked joint to the landmarks it is measured from.
type JointTable struct {
	Hip      JointSpec `yaml:"hip"`
	Knee     JointSpec `yaml:"knee"`
	Shoulder JointSpec `yaml:"shoulder"`
}

// DefaultJointTable returns the left-side proxies used by the risk model:
//
//	hip      = left_hip, left_knee, left_ankle        (23, 25, 27)
//	knee     = left_knee, left_ankle, left_foot_index (25, 27, 31)
//	shoulder = left_shoulder, left_elbow, left_wrist  (11, 13, 15)
func DefaultJointTable() JointTable {
	return JointTable{
		Hip:      JointSpec{A: LeftHip, Vertex: LeftKnee, C: LeftAnkle},
		Knee:     JointSpec{A: LeftKnee, Vertex: LeftAnkle, C: LeftFootIndex},
		Shoulder: JointSpec{A: LeftShoulder, Vertex: LeftElbow, C: LeftWrist},
	}
}

// Spec returns the spec for the given joint.
func (t JointTable) Spec(j Joint) (JointSpec, bool) {
	switch j {
	case JointHip:
		return t.Hip, true
	case JointKnee:
		return t.Knee, true
	case JointShoulder:
		return t.Shoulder, true
	default:
		return JointSpec{}, false
	}
}

// Validate checks that every landmark named by the table exists and that no
// spec repeats a landmark.
func (t JointTable) Validate() error {
	for _, j := range Joints {
		spec, _ := t.Spec(j)
		names := []string{spec.A, spec.Vertex, spec.C}
		for _, name := range names {
			if !IsKnownLandmark(name) {
				return fmt.Errorf("joint %s: unknown landmark %q", j, name)
			}
		}
		if spec.A == spec.Vertex || spec.C == spec.Vertex || spec.A == spec.C {
			return fmt.Errorf("joint %s: landmarks must be distinct", j)
		}
	}
	return nil
}

// Triple computes the hip, knee and shoulder angles from one landmark set.
// The returned error wraps ErrMissingLandmark or ErrDegenerateGeometry.
func (t JointTable) Triple(set LandmarkSet) (AngleTriple, error) {
	var values [3]float64
	for i, j := range Joints {
		spec, _ := t.Spec(j)
		v, err := spec.angle(set)
		if err != nil {
			return AngleTriple{}, fmt.Errorf("%s angle: %w", j, err)
		}
		values[i] = v
	}
	return AngleTriple{Hip: values[0], Knee: values[1], Shoulder: values[2]}, nil
}

func (s JointSpec) angle(set LandmarkSet) (float64, error) {
	a, ok := set[s.A]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingLandmark, s.A)
	}
	b, ok := set[s.Vertex]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingLandmark, s.Vertex)
	}
	c, ok := set[s.C]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingLandmark, s.C)
	}
	return Angle(a.Point(), b.Point(), c.Point())
}
