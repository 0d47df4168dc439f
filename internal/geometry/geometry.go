// Package geometry provides the planar and great-circle primitives used by
// side determination and the spatial join. All distances are meters: arc
// lengths use haversine, and point-to-segment distances use a local
// equirectangular projection so degree-based and meter-based values are never
// mixed in one comparison.
package geometry

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"github.com/twpayne/go-geom/xy/orientation"
)

const earthRadiusMeters = 6371000.0

// ErrDegenerate marks a polyline with fewer than two vertices or zero length.
var ErrDegenerate = eris.New("geometry: degenerate polyline")

// Validate checks that a polyline has at least two vertices and nonzero
// extent. Coordinates are XY = (lng, lat).
func Validate(line *geom.LineString) error {
	if line == nil || line.NumCoords() < 2 {
		return ErrDegenerate
	}
	if Length(line) == 0 {
		return ErrDegenerate
	}
	return nil
}

// Haversine returns the great-circle distance between two (lng, lat) points
// in meters.
func Haversine(p1, p2 geom.Coord) float64 {
	lat1 := p1[1] * math.Pi / 180
	lat2 := p2[1] * math.Pi / 180
	dLat := (p2[1] - p1[1]) * math.Pi / 180
	dLng := (p2[0] - p1[0]) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Bearing returns the initial compass bearing in degrees [0,360) from p1 to
// p2. Used to label sides as cardinal directions for display, not for join
// logic.
func Bearing(p1, p2 geom.Coord) float64 {
	lat1 := p1[1] * math.Pi / 180
	lat2 := p2[1] * math.Pi / 180
	dLng := (p2[0] - p1[0]) * math.Pi / 180

	y := math.Sin(dLng) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLng)
	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

// Length returns the arc length of a polyline in meters.
func Length(line *geom.LineString) float64 {
	var total float64
	for i := 1; i < line.NumCoords(); i++ {
		total += Haversine(line.Coord(i-1), line.Coord(i))
	}
	return total
}

// CrossSide reports which side of the directed line a→b the point p lies on.
// Collinear points are orientation.Collinear and must be treated as
// indeterminate by callers, never coerced to a side.
func CrossSide(a, b, p geom.Coord) orientation.Type {
	return xy.OrientationIndex(a, b, p)
}

// Interpolate returns the point at normalized position fraction ∈ [0,1]
// along the polyline, measured by arc length. Fractions outside [0,1] clamp
// to the endpoints.
func Interpolate(line *geom.LineString, fraction float64) geom.Coord {
	n := line.NumCoords()
	if fraction <= 0 {
		return line.Coord(0)
	}
	if fraction >= 1 {
		return line.Coord(n - 1)
	}

	target := Length(line) * fraction
	var walked float64
	for i := 1; i < n; i++ {
		a, b := line.Coord(i-1), line.Coord(i)
		seg := Haversine(a, b)
		if walked+seg >= target && seg > 0 {
			t := (target - walked) / seg
			return geom.Coord{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t}
		}
		walked += seg
	}
	return line.Coord(n - 1)
}

// MetersPerDegree returns the local meters-per-degree scale factors at the
// given latitude (equirectangular approximation). Longitude degrees shrink
// with cos(lat), so callers converting a meter radius into a degree pad must
// use the longitude factor, not a fixed equatorial constant.
func MetersPerDegree(lat float64) (mLng, mLat float64) {
	mLat = earthRadiusMeters * math.Pi / 180
	mLng = mLat * math.Cos(lat*math.Pi/180)
	return mLng, mLat
}

// distanceToSegment returns the minimum distance in meters from p to the
// segment a-b, projecting into a local planar frame around p.
func distanceToSegment(p, a, b geom.Coord) float64 {
	mLng, mLat := MetersPerDegree(p[1])

	ax := (a[0] - p[0]) * mLng
	ay := (a[1] - p[1]) * mLat
	bx := (b[0] - p[0]) * mLng
	by := (b[1] - p[1]) * mLat

	dx := bx - ax
	dy := by - ay
	segLen2 := dx*dx + dy*dy
	if segLen2 == 0 {
		return math.Hypot(ax, ay)
	}

	// Parameter of the projection of the origin (p) onto the segment.
	t := -(ax*dx + ay*dy) / segLen2
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(ax+t*dx, ay+t*dy)
}

// DistanceToLine returns the minimum distance in meters from a point to a
// polyline.
func DistanceToLine(p geom.Coord, line *geom.LineString) float64 {
	best := math.Inf(1)
	for i := 1; i < line.NumCoords(); i++ {
		if d := distanceToSegment(p, line.Coord(i-1), line.Coord(i)); d < best {
			best = d
		}
	}
	return best
}

// LineToLine returns the minimum distance in meters between two polylines,
// sampling the vertices and quarter points of each against the other.
func LineToLine(a, b *geom.LineString) float64 {
	best := math.Inf(1)
	for _, p := range samplePoints(a) {
		if d := DistanceToLine(p, b); d < best {
			best = d
		}
	}
	for _, p := range samplePoints(b) {
		if d := DistanceToLine(p, a); d < best {
			best = d
		}
	}
	return best
}

func samplePoints(line *geom.LineString) []geom.Coord {
	pts := make([]geom.Coord, 0, line.NumCoords()+3)
	for i := 0; i < line.NumCoords(); i++ {
		pts = append(pts, line.Coord(i))
	}
	for _, f := range []float64{0.25, 0.5, 0.75} {
		pts = append(pts, Interpolate(line, f))
	}
	return pts
}

// Project returns the fraction ∈ [0,1] along the polyline (by arc length) of
// the point on the line nearest to p, together with that nearest point.
func Project(line *geom.LineString, p geom.Coord) (float64, geom.Coord) {
	mLng, mLat := MetersPerDegree(p[1])

	total := Length(line)
	var walked float64
	bestDist := math.Inf(1)
	var bestFrac float64
	bestPt := line.Coord(0)

	for i := 1; i < line.NumCoords(); i++ {
		a, b := line.Coord(i-1), line.Coord(i)

		ax := (a[0] - p[0]) * mLng
		ay := (a[1] - p[1]) * mLat
		bx := (b[0] - p[0]) * mLng
		by := (b[1] - p[1]) * mLat
		dx, dy := bx-ax, by-ay
		segLen2 := dx*dx + dy*dy

		t := 0.0
		if segLen2 > 0 {
			t = math.Max(0, math.Min(1, -(ax*dx+ay*dy)/segLen2))
		}
		dist := math.Hypot(ax+t*dx, ay+t*dy)
		if dist < bestDist {
			bestDist = dist
			bestPt = geom.Coord{a[0] + (b[0]-a[0])*t, a[1] + (b[1]-a[1])*t}
			segLen := Haversine(a, b)
			if total > 0 {
				bestFrac = (walked + segLen*t) / total
			}
		}
		walked += Haversine(a, b)
	}
	return bestFrac, bestPt
}

// BBox returns the bounding box of a polyline expanded by pad meters on all
// sides, as (min, max) corners in (lng, lat).
func BBox(line *geom.LineString, pad float64) (min, max [2]float64) {
	min = [2]float64{math.Inf(1), math.Inf(1)}
	max = [2]float64{math.Inf(-1), math.Inf(-1)}
	for i := 0; i < line.NumCoords(); i++ {
		c := line.Coord(i)
		min[0] = math.Min(min[0], c[0])
		min[1] = math.Min(min[1], c[1])
		max[0] = math.Max(max[0], c[0])
		max[1] = math.Max(max[1], c[1])
	}
	if pad > 0 {
		mLng, mLat := MetersPerDegree((min[1] + max[1]) / 2)
		min[0] -= pad / mLng
		min[1] -= pad / mLat
		max[0] += pad / mLng
		max[1] += pad / mLat
	}
	return min, max
}
