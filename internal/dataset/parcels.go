package dataset

import (
	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/opencurb/curb-cli/internal/model"
)

// LoadParcels reads administrative parcel polygons with their neighborhood
// and district attributes from a shapefile.
func LoadParcels(path string) ([]*model.Parcel, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open parcels %s", path)
	}
	defer func() { _ = reader.Close() }()

	idx := fieldIndex(reader)
	var parcels []*model.Parcel
	var skipped int

	for reader.Next() {
		_, shape := reader.Shape()
		sp, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}

		poly := polygonToPolygon(sp)
		if poly == nil {
			skipped++
			continue
		}

		neighborhood := attr(reader, idx, "nbrhood", "neighborhood", "nhood")
		district := attr(reader, idx, "district", "supdist", "dist")
		if neighborhood == "" && district == "" {
			// A parcel without administrative attributes can never confirm
			// a boundary match.
			skipped++
			continue
		}

		parcels = append(parcels, &model.Parcel{
			Geometry:     poly,
			Neighborhood: neighborhood,
			District:     district,
		})
	}

	if skipped > 0 {
		zap.L().Warn("dataset: skipped parcel records",
			zap.String("path", path), zap.Int("skipped", skipped))
	}
	return parcels, nil
}
