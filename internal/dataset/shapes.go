// Package dataset loads the surveyed input datasets: street centerlines and
// administrative parcels from shapefiles, regulation lines from GeoJSON, and
// meter schedules from XLSX or CSV. Structurally invalid records are logged
// and skipped; a bad record never aborts the batch.
package dataset

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/twpayne/go-geom"
)

// fieldIndex maps lowercased DBF field names to their column index.
func fieldIndex(reader *shp.Reader) map[string]int {
	fields := reader.Fields()
	idx := make(map[string]int, len(fields))
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		idx[strings.ToLower(name)] = i
	}
	return idx
}

// attr returns the named attribute of the current record, trimmed, or "".
func attr(reader *shp.Reader, idx map[string]int, names ...string) string {
	for _, name := range names {
		i, ok := idx[strings.ToLower(name)]
		if !ok {
			continue
		}
		val := strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
		if val != "" {
			return val
		}
	}
	return ""
}

// polyLineToLineString converts the first part of a shapefile polyline to a
// go-geom linestring. Multi-part centerlines are rare and the parts beyond
// the first are dropped.
func polyLineToLineString(pl *shp.PolyLine) *geom.LineString {
	if pl == nil || pl.NumParts == 0 || len(pl.Points) == 0 {
		return nil
	}

	end := int32(len(pl.Points))
	if pl.NumParts > 1 {
		end = pl.Parts[1]
	}
	flat := make([]float64, 0, end*2)
	for j := pl.Parts[0]; j < end; j++ {
		flat = append(flat, pl.Points[j].X, pl.Points[j].Y)
	}
	if len(flat) < 4 {
		return nil
	}
	return geom.NewLineStringFlat(geom.XY, flat)
}

// polygonToPolygon converts a shapefile polygon, treating every part as a
// ring of one polygon (outer ring first, holes after, per shapefile
// convention).
func polygonToPolygon(p *shp.Polygon) *geom.Polygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	var flat []float64
	var ends []int
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		ends = append(ends, len(flat))
	}
	if len(flat) < 6 {
		return nil
	}
	return geom.NewPolygonFlat(geom.XY, flat, ends)
}
