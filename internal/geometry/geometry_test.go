package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy/orientation"
)

// metersPerDegreeLat is the arc length of one degree of latitude.
const metersPerDegreeLat = 111194.92664455873

func line(coords ...float64) *geom.LineString {
	return geom.NewLineStringFlat(geom.XY, coords)
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, Validate(nil), ErrDegenerate)
	assert.ErrorIs(t, Validate(line(0, 0)), ErrDegenerate)
	assert.ErrorIs(t, Validate(line(1, 1, 1, 1)), ErrDegenerate)
	assert.NoError(t, Validate(line(0, 0, 0.001, 0)))
}

func TestHaversine(t *testing.T) {
	d := Haversine(geom.Coord{0, 0}, geom.Coord{0, 1})
	assert.InDelta(t, metersPerDegreeLat, d, 1)

	// Longitude degrees shrink with latitude.
	dEquator := Haversine(geom.Coord{0, 0}, geom.Coord{1, 0})
	dNorth := Haversine(geom.Coord{0, 60}, geom.Coord{1, 60})
	assert.InDelta(t, dEquator/2, dNorth, dEquator*0.01)

	assert.Zero(t, Haversine(geom.Coord{5, 5}, geom.Coord{5, 5}))
}

func TestBearing(t *testing.T) {
	assert.InDelta(t, 0, Bearing(geom.Coord{0, 0}, geom.Coord{0, 1}), 0.01)
	assert.InDelta(t, 90, Bearing(geom.Coord{0, 0}, geom.Coord{1, 0}), 0.01)
	assert.InDelta(t, 180, Bearing(geom.Coord{0, 1}, geom.Coord{0, 0}), 0.01)
	assert.InDelta(t, 270, Bearing(geom.Coord{1, 0}, geom.Coord{0, 0}), 0.01)
}

func TestLength(t *testing.T) {
	l := line(0, 0, 0, 0.001, 0, 0.002)
	assert.InDelta(t, 0.002*metersPerDegreeLat, Length(l), 1)
}

func TestCrossSide(t *testing.T) {
	a := geom.Coord{0, 0}
	b := geom.Coord{1, 0}

	assert.Equal(t, orientation.CounterClockwise, CrossSide(a, b, geom.Coord{0.5, 0.5}))
	assert.Equal(t, orientation.Clockwise, CrossSide(a, b, geom.Coord{0.5, -0.5}))
	assert.Equal(t, orientation.Collinear, CrossSide(a, b, geom.Coord{0.5, 0}))
}

func TestInterpolate(t *testing.T) {
	l := line(0, 0, 0.002, 0)

	mid := Interpolate(l, 0.5)
	assert.InDelta(t, 0.001, mid[0], 1e-9)
	assert.InDelta(t, 0, mid[1], 1e-9)

	assert.Equal(t, geom.Coord{0, 0}, Interpolate(l, -1))
	assert.Equal(t, geom.Coord{0.002, 0}, Interpolate(l, 2))
}

func TestDistanceToLine(t *testing.T) {
	l := line(0, 0, 0.01, 0)

	// Directly above the middle of the line.
	d := DistanceToLine(geom.Coord{0.005, 0.001}, l)
	assert.InDelta(t, 0.001*metersPerDegreeLat, d, 1)

	// Beyond the end, the nearest point is the endpoint.
	d = DistanceToLine(geom.Coord{0.02, 0}, l)
	assert.InDelta(t, 0.01*metersPerDegreeLat, d, 2)

	assert.InDelta(t, 0, DistanceToLine(geom.Coord{0.005, 0}, l), 0.001)
}

func TestLineToLine(t *testing.T) {
	a := line(0, 0, 0.01, 0)
	b := line(0, 0.0001, 0.01, 0.0001)

	assert.InDelta(t, 0.0001*metersPerDegreeLat, LineToLine(a, b), 0.5)

	// Crossing lines touch.
	c := line(0.005, -0.001, 0.005, 0.001)
	assert.InDelta(t, 0, LineToLine(a, c), 0.5)
}

func TestProject(t *testing.T) {
	l := line(0, 0, 0.01, 0)

	frac, pt := Project(l, geom.Coord{0.0025, 0.001})
	assert.InDelta(t, 0.25, frac, 0.01)
	assert.InDelta(t, 0.0025, pt[0], 1e-6)
	assert.InDelta(t, 0, pt[1], 1e-6)

	// Before the start clamps to fraction 0.
	frac, pt = Project(l, geom.Coord{-0.001, 0})
	assert.InDelta(t, 0, frac, 1e-9)
	assert.Equal(t, geom.Coord{0, 0}, pt)
}

func TestBBox(t *testing.T) {
	l := line(0.001, 0.002, 0.003, 0.004)

	min, max := BBox(l, 0)
	assert.Equal(t, [2]float64{0.001, 0.002}, min)
	assert.Equal(t, [2]float64{0.003, 0.004}, max)

	pmin, pmax := BBox(l, 100)
	require.Less(t, pmin[0], min[0])
	require.Less(t, pmin[1], min[1])
	require.Greater(t, pmax[0], max[0])
	require.Greater(t, pmax[1], max[1])
	assert.InDelta(t, 100.0/metersPerDegreeLat, pmax[1]-max[1], 1e-6)
}

func TestMetersPerDegree(t *testing.T) {
	mLng, mLat := MetersPerDegree(0)
	assert.InDelta(t, metersPerDegreeLat, mLat, 1)
	assert.InDelta(t, metersPerDegreeLat, mLng, 1)

	// Longitude degrees halve at 60° latitude; latitude degrees do not.
	mLng, mLat = MetersPerDegree(60)
	assert.InDelta(t, metersPerDegreeLat/2, mLng, 1)
	assert.InDelta(t, metersPerDegreeLat, mLat, 1)
}
