package join

import (
	"math"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/opencurb/curb-cli/internal/geometry"
	"github.com/opencurb/curb-cli/internal/model"
	"github.com/opencurb/curb-cli/internal/side"
)

// parcelProbeOffsetMeters is how far the parcel lookup point is pushed off
// the centerline toward the candidate side, so the point-in-polygon query
// lands on that side's frontage rather than in the road right-of-way.
const parcelProbeOffsetMeters = 10

// resolveBoundary confirms or rejects a BOUNDARY candidate by matching the
// administrative parcel at the side's midpoint against the regulation's own
// neighborhood and district. Both fields must match, and the parcel's
// centroid must sit on the candidate's side of the centerline: a parcel
// spanning the right-of-way can swallow the probe from either curb. A
// missing parcel rejects the attachment (fail closed, an unverifiable
// boundary case must not attach).
func (e *Engine) resolveBoundary(reg *model.Regulation, seg *model.StreetSegment) bool {
	if reg.Neighborhood == "" && reg.District == "" {
		return false
	}

	probe := e.probePoint(seg)
	parcel := e.parcelAt(probe)
	if parcel == nil {
		zap.L().Debug("join: no parcel at boundary probe",
			zap.String("regulation", reg.ID),
			zap.String("segment", seg.Key().String()))
		return false
	}
	if parcel.Neighborhood != reg.Neighborhood || parcel.District != reg.District {
		return false
	}

	centroid := xy.PolygonsCentroid(parcel.Geometry)
	if side.DeterminePoint(seg.Centerline, centroid) != seg.Side {
		zap.L().Debug("join: parcel centroid off candidate side",
			zap.String("regulation", reg.ID),
			zap.String("segment", seg.Key().String()))
		return false
	}
	return true
}

// probePoint returns the midpoint of the side's geometry. When only the
// shared centerline is available the point is offset perpendicular toward
// the segment's side.
func (e *Engine) probePoint(seg *model.StreetSegment) geom.Coord {
	if seg.CurbLine != nil {
		return geometry.Interpolate(seg.CurbLine, 0.5)
	}

	mid := geometry.Interpolate(seg.Centerline, 0.5)
	a := geometry.Interpolate(seg.Centerline, 0.45)
	b := geometry.Interpolate(seg.Centerline, 0.55)

	// Unit normal of the local tangent, left of the direction of travel.
	bearing := geometry.Bearing(a, b) * math.Pi / 180
	nx, ny := -math.Cos(bearing), math.Sin(bearing)
	if seg.Side == model.SideRight {
		nx, ny = -nx, -ny
	}

	mLat := 6371000.0 * math.Pi / 180
	mLng := mLat * math.Cos(mid[1]*math.Pi/180)
	return geom.Coord{
		mid[0] + parcelProbeOffsetMeters*nx/mLng,
		mid[1] + parcelProbeOffsetMeters*ny/mLat,
	}
}

// parcelAt returns the parcel containing the point, or nil.
func (e *Engine) parcelAt(p geom.Coord) *model.Parcel {
	pt := [2]float64{p[0], p[1]}
	var found *model.Parcel
	e.parcels.Search(pt, pt, func(_, _ [2]float64, value interface{}) bool {
		parcel := value.(*model.Parcel)
		if contains(parcel.Geometry, p) {
			found = parcel
			return false
		}
		return true
	})
	return found
}
