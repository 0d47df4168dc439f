package dataset

import (
	"strconv"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/opencurb/curb-cli/internal/geometry"
	"github.com/opencurb/curb-cli/internal/model"
)

// CenterlineRecord is one street centerline with its per-side address
// ranges, as surveyed.
type CenterlineRecord struct {
	ID         string
	Name       string
	FromStreet string
	ToStreet   string
	Geometry   *geom.LineString
	LeftRange  *model.AddressRange
	RightRange *model.AddressRange
}

// LoadCenterlines reads street centerlines from a shapefile. Attribute
// names follow TIGER/Line edge conventions (linearid, fullname,
// lfromadd/ltoadd, rfromadd/rtoadd) with common municipal aliases.
func LoadCenterlines(path string) ([]CenterlineRecord, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open centerlines %s", path)
	}
	defer func() { _ = reader.Close() }()

	idx := fieldIndex(reader)
	var records []CenterlineRecord
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()
		pl, ok := shape.(*shp.PolyLine)
		if !ok {
			skipped++
			continue
		}

		line := polyLineToLineString(pl)
		if line == nil || geometry.Validate(line) != nil {
			skipped++
			continue
		}

		id := attr(reader, idx, "linearid", "cnn", "objectid", "id")
		name := attr(reader, idx, "fullname", "streetname", "street", "name")
		if id == "" || name == "" {
			skipped++
			continue
		}

		records = append(records, CenterlineRecord{
			ID:         id,
			Name:       name,
			FromStreet: attr(reader, idx, "from_st", "fromstreet"),
			ToStreet:   attr(reader, idx, "to_st", "tostreet"),
			Geometry:   line,
			LeftRange:  addressRange(attr(reader, idx, "lfromadd", "lf_fadd"), attr(reader, idx, "ltoadd", "lf_toadd")),
			RightRange: addressRange(attr(reader, idx, "rfromadd", "rt_fadd"), attr(reader, idx, "rtoadd", "rt_toadd")),
		})
	}

	if skipped > 0 {
		zap.L().Warn("dataset: skipped centerline records",
			zap.String("path", path), zap.Int("skipped", skipped))
	}
	return records, nil
}

func addressRange(from, to string) *model.AddressRange {
	f, errF := strconv.Atoi(from)
	t, errT := strconv.Atoi(to)
	if errF != nil || errT != nil {
		return nil
	}
	if f > t {
		f, t = t, f
	}
	return &model.AddressRange{From: f, To: t}
}

// Segments expands centerline records into street segments, two per
// centerline. The side is assigned here, once, from the authoritative
// source, and never recomputed.
func Segments(records []CenterlineRecord) []*model.StreetSegment {
	segments := make([]*model.StreetSegment, 0, len(records)*2)
	for _, rec := range records {
		for _, s := range []model.Side{model.SideLeft, model.SideRight} {
			seg := &model.StreetSegment{
				CenterlineID: rec.ID,
				Side:         s,
				StreetName:   rec.Name,
				FromStreet:   rec.FromStreet,
				ToStreet:     rec.ToStreet,
				Centerline:   rec.Geometry,
			}
			if s == model.SideLeft {
				seg.Addresses = rec.LeftRange
			} else {
				seg.Addresses = rec.RightRange
			}
			segments = append(segments, seg)
		}
	}
	return segments
}
