// Package pose holds the geometric core of poserisk: body landmarks, the
// joint-angle extractor and the fixed-length angle window fed to the risk model.
//
// Landmark names follow the MediaPipe 33-point pose topology. The three tracked
// angles (hip, knee, shoulder) are defined by a small static JointTable that maps
// each angle to the three landmarks forming it, with the middle landmark as the
// vertex:
//
//	table := pose.DefaultJointTable()
//	triple, err := table.Triple(landmarks)
//	if errors.Is(err, pose.ErrDegenerateGeometry) {
//	    // skip the frame
//	}
//
// Everything in this package is pure and safe for concurrent use.
package pose
