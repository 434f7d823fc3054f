package pose

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// minVectorNorm is the magnitude below which a limb vector is treated as zero.
const minVectorNorm = 1e-9

// ErrDegenerateGeometry is returned when two of the three points forming an
// angle coincide, leaving the angle undefined.
var ErrDegenerateGeometry = errors.New("degenerate geometry: coincident landmarks")

// Angle returns the angle ABC in degrees, with b as the vertex.
// The result lies in [0, 180]. If a or c coincides with b, it returns
// ErrDegenerateGeometry.
func Angle(a, b, c Point) (float64, error) {
	ba := r3.Sub(a, b)
	bc := r3.Sub(c, b)

	nba := r3.Norm(ba)
	nbc := r3.Norm(bc)
	if nba < minVectorNorm || nbc < minVectorNorm || math.IsNaN(nba) || math.IsNaN(nbc) {
		return 0, ErrDegenerateGeometry
	}

	cos := r3.Dot(r3.Scale(1/nba, ba), r3.Scale(1/nbc, bc))
	// Rounding can push the dot product of unit vectors just outside [-1, 1].
	cos = math.Max(-1, math.Min(1, cos))

	return math.Acos(cos) * 180 / math.Pi, nil
}
