package join

import (
	"math"

	"github.com/tidwall/rtree"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"

	"github.com/opencurb/curb-cli/internal/geometry"
	"github.com/opencurb/curb-cli/internal/model"
)

// centerlineGroup holds both side segments of one centerline so the join can
// consider them together.
type centerlineGroup struct {
	id    string
	line  *geom.LineString
	sides map[model.Side]*model.StreetSegment
}

// buildCenterlineIndex indexes segments by centerline bounding box.
func buildCenterlineIndex(segments []*model.StreetSegment, pad float64) (map[string]*centerlineGroup, *rtree.RTree) {
	groups := make(map[string]*centerlineGroup)
	for _, seg := range segments {
		g, ok := groups[seg.CenterlineID]
		if !ok {
			g = &centerlineGroup{
				id:    seg.CenterlineID,
				line:  seg.Centerline,
				sides: make(map[model.Side]*model.StreetSegment, 2),
			}
			groups[seg.CenterlineID] = g
		}
		g.sides[seg.Side] = seg
	}

	tree := new(rtree.RTree)
	for _, g := range groups {
		min, max := geometry.BBox(g.line, pad)
		tree.Insert(min, max, g)
	}
	return groups, tree
}

// buildParcelIndex indexes parcels by polygon bounding box.
func buildParcelIndex(parcels []*model.Parcel) *rtree.RTree {
	tree := new(rtree.RTree)
	for _, p := range parcels {
		if p.Geometry == nil || p.Geometry.NumLinearRings() == 0 {
			continue
		}
		min, max := polygonBBox(p.Geometry)
		tree.Insert(min, max, p)
	}
	return tree
}

func polygonBBox(poly *geom.Polygon) (min, max [2]float64) {
	min = [2]float64{math.Inf(1), math.Inf(1)}
	max = [2]float64{math.Inf(-1), math.Inf(-1)}
	flat := poly.FlatCoords()
	for i := 0; i+1 < len(flat); i += poly.Stride() {
		min[0] = math.Min(min[0], flat[i])
		min[1] = math.Min(min[1], flat[i+1])
		max[0] = math.Max(max[0], flat[i])
		max[1] = math.Max(max[1], flat[i+1])
	}
	return min, max
}

// contains tests point-in-polygon: inside the outer ring and outside every
// hole.
func contains(poly *geom.Polygon, p geom.Coord) bool {
	if poly.NumLinearRings() == 0 {
		return false
	}
	if !xy.IsPointInRing(poly.Layout(), p, poly.LinearRing(0).FlatCoords()) {
		return false
	}
	for i := 1; i < poly.NumLinearRings(); i++ {
		if xy.IsPointInRing(poly.Layout(), p, poly.LinearRing(i).FlatCoords()) {
			return false
		}
	}
	return true
}
