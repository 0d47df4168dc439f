// Package side assigns a candidate geometry to the left or right side of a
// street centerline using multi-point majority voting.
package side

import (
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy/orientation"

	"github.com/opencurb/curb-cli/internal/geometry"
	"github.com/opencurb/curb-cli/internal/model"
)

// sampleFractions are the normalized positions along the candidate geometry
// that vote on the side. Single-point sampling is unreliable on curved or
// noisy polylines; three interior samples are robust against local curvature
// near segment endpoints.
var sampleFractions = [3]float64{0.25, 0.5, 0.75}

// tangentStep is the fraction of centerline arc length used for the
// finite-difference tangent at a projected point.
const tangentStep = 0.01

// Determine labels the candidate geometry as left or right of the directed
// centerline. A tie or all-collinear vote returns SideIndeterminate, which
// callers must treat as a failed match rather than defaulting to a side.
func Determine(centerline, candidate *geom.LineString) model.Side {
	if err := geometry.Validate(centerline); err != nil {
		return model.SideIndeterminate
	}
	if err := geometry.Validate(candidate); err != nil {
		return model.SideIndeterminate
	}

	var left, right int
	for _, f := range sampleFractions {
		sample := geometry.Interpolate(candidate, f)
		switch vote(centerline, sample) {
		case orientation.CounterClockwise:
			left++
		case orientation.Clockwise:
			right++
		}
	}

	switch {
	case left >= 2:
		return model.SideLeft
	case right >= 2:
		return model.SideRight
	default:
		return model.SideIndeterminate
	}
}

// DeterminePoint labels a single point, such as a parcel centroid, relative
// to the centerline. Unlike Determine there is no vote to take: a collinear
// point is simply indeterminate.
func DeterminePoint(centerline *geom.LineString, p geom.Coord) model.Side {
	if err := geometry.Validate(centerline); err != nil {
		return model.SideIndeterminate
	}
	switch vote(centerline, p) {
	case orientation.CounterClockwise:
		return model.SideLeft
	case orientation.Clockwise:
		return model.SideRight
	default:
		return model.SideIndeterminate
	}
}

// vote projects the sample onto the centerline, takes a local tangent there
// by a small forward/backward finite difference, and returns the orientation
// of the sample relative to the directed tangent.
func vote(centerline *geom.LineString, sample geom.Coord) orientation.Type {
	frac, _ := geometry.Project(centerline, sample)

	back := frac - tangentStep
	fwd := frac + tangentStep
	if back < 0 {
		back = 0
	}
	if fwd > 1 {
		fwd = 1
	}
	a := geometry.Interpolate(centerline, back)
	b := geometry.Interpolate(centerline, fwd)
	if a[0] == b[0] && a[1] == b[1] {
		return orientation.Collinear
	}
	return geometry.CrossSide(a, b, sample)
}
