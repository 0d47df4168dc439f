package join

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/opencurb/curb-cli/internal/model"
)

// Coordinates are tiny degree offsets near the equator, where one degree of
// latitude is about 111 km: 0.0001 degrees is roughly 11 meters.

func line(coords ...float64) *geom.LineString {
	return geom.NewLineStringFlat(geom.XY, coords)
}

func ring(coords ...float64) *geom.Polygon {
	return geom.NewPolygonFlat(geom.XY, coords, []int{len(coords)})
}

func testSegments() []*model.StreetSegment {
	cl := line(0, 0, 0.01, 0)
	return []*model.StreetSegment{
		{CenterlineID: "cl-1", Side: model.SideLeft, StreetName: "Main Street", Centerline: cl},
		{CenterlineID: "cl-1", Side: model.SideRight, StreetName: "Main Street", Centerline: cl},
	}
}

func newTestEngine(parcels []*model.Parcel) *Engine {
	return NewEngine(testSegments(), parcels, DefaultThresholds())
}

func TestJoinClearSingleSide(t *testing.T) {
	e := newTestEngine(nil)

	// About 5.5m north of the centerline: inside the clear tier.
	reg := &model.Regulation{
		ID:       "r1",
		Geometry: line(0.001, 0.00005, 0.009, 0.00005),
	}

	atts := e.Join(reg)
	require.Len(t, atts, 1)
	assert.Equal(t, model.SideLeft, atts[0].Segment.Side)
	assert.Equal(t, model.ConfidenceClear, atts[0].Confidence)
}

func TestJoinFullWidthStrokeAttachesBothSides(t *testing.T) {
	e := newTestEngine(nil)

	// Drawn on the centerline itself: no side vote, both curbs within the
	// clear tier.
	reg := &model.Regulation{
		ID:       "r2",
		Geometry: line(0.002, 0, 0.008, 0),
	}

	atts := e.Join(reg)
	require.Len(t, atts, 2)
	sides := map[model.Side]bool{}
	for _, a := range atts {
		assert.Equal(t, model.ConfidenceClear, a.Confidence)
		sides[a.Segment.Side] = true
	}
	assert.True(t, sides[model.SideLeft])
	assert.True(t, sides[model.SideRight])
}

func TestJoinBoundaryResolvedByParcel(t *testing.T) {
	// Parcel block on the north side of the street.
	parcels := []*model.Parcel{{
		Geometry: ring(
			0.004, 0.00002,
			0.006, 0.00002,
			0.006, 0.001,
			0.004, 0.001,
			0.004, 0.00002,
		),
		Neighborhood: "riverside",
		District:     "5",
	}}
	e := newTestEngine(parcels)

	// About 11m north: boundary tier, needs parcel confirmation.
	reg := &model.Regulation{
		ID:           "r3",
		Geometry:     line(0.001, 0.0001, 0.009, 0.0001),
		Neighborhood: "riverside",
		District:     "5",
	}

	atts := e.Join(reg)
	require.Len(t, atts, 1)
	assert.Equal(t, model.SideLeft, atts[0].Segment.Side)
	assert.Equal(t, model.ConfidenceBoundaryResolve, atts[0].Confidence)
}

func TestJoinBoundaryFailsClosed(t *testing.T) {
	parcels := []*model.Parcel{{
		Geometry: ring(
			0.004, 0.00002,
			0.006, 0.00002,
			0.006, 0.001,
			0.004, 0.001,
			0.004, 0.00002,
		),
		Neighborhood: "riverside",
		District:     "5",
	}}
	e := newTestEngine(parcels)

	// No administrative fields on the regulation: unverifiable, so nothing
	// attaches.
	reg := &model.Regulation{
		ID:       "r4",
		Geometry: line(0.001, 0.0001, 0.009, 0.0001),
	}
	assert.Empty(t, e.Join(reg))

	// Mismatched district rejects too.
	reg = &model.Regulation{
		ID:           "r5",
		Geometry:     line(0.001, 0.0001, 0.009, 0.0001),
		Neighborhood: "riverside",
		District:     "9",
	}
	assert.Empty(t, e.Join(reg))
}

func TestJoinBoundaryParcelSpanningStreetAttachesItsSide(t *testing.T) {
	// A parcel straddling the right-of-way contains the probe points of
	// both curbs. Its centroid lies south of the centerline, so only the
	// right side may claim it.
	parcels := []*model.Parcel{{
		Geometry: ring(
			0.004, -0.001,
			0.006, -0.001,
			0.006, 0.0001,
			0.004, 0.0001,
			0.004, -0.001,
		),
		Neighborhood: "riverside",
		District:     "5",
	}}
	e := newTestEngine(parcels)

	reg := &model.Regulation{
		ID:           "r11",
		Geometry:     line(0.001, 0.0001, 0.009, 0.0001),
		Neighborhood: "riverside",
		District:     "5",
	}

	atts := e.Join(reg)
	require.Len(t, atts, 1)
	assert.Equal(t, model.SideRight, atts[0].Segment.Side)
	assert.Equal(t, model.ConfidenceBoundaryResolve, atts[0].Confidence)
}

func TestJoinBoundaryWithoutParcelRejects(t *testing.T) {
	e := newTestEngine(nil)

	reg := &model.Regulation{
		ID:           "r6",
		Geometry:     line(0.001, 0.0001, 0.009, 0.0001),
		Neighborhood: "riverside",
		District:     "5",
	}
	assert.Empty(t, e.Join(reg))
}

func TestJoinOutOfRadius(t *testing.T) {
	e := newTestEngine(nil)

	// About 44m away: beyond the search radius.
	reg := &model.Regulation{
		ID:       "r7",
		Geometry: line(0.001, 0.0004, 0.009, 0.0004),
	}
	assert.Empty(t, e.Join(reg))
}

func TestJoinDegenerateGeometry(t *testing.T) {
	e := newTestEngine(nil)

	assert.Empty(t, e.Join(&model.Regulation{ID: "r8", Geometry: nil}))
	assert.Empty(t, e.Join(&model.Regulation{ID: "r9", Geometry: line(0.001, 0.0001)}))
}

func TestJoinPrefersNearestClearCenterline(t *testing.T) {
	// Two parallel streets one block apart.
	far := line(0, 0.002, 0.01, 0.002)
	segments := append(testSegments(),
		&model.StreetSegment{CenterlineID: "cl-2", Side: model.SideLeft, StreetName: "Second Street", Centerline: far},
		&model.StreetSegment{CenterlineID: "cl-2", Side: model.SideRight, StreetName: "Second Street", Centerline: far},
	)
	e := NewEngine(segments, nil, DefaultThresholds())

	reg := &model.Regulation{
		ID:       "r10",
		Geometry: line(0.001, 0.00005, 0.009, 0.00005),
	}

	atts := e.Join(reg)
	require.Len(t, atts, 1)
	assert.Equal(t, "cl-1", atts[0].Segment.CenterlineID)
}
