package dataset

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/opencurb/curb-cli/internal/geometry"
	"github.com/opencurb/curb-cli/internal/model"
	"github.com/opencurb/curb-cli/internal/normalize"
	"github.com/opencurb/curb-cli/pkg/interpret"
)

// RegulationSet holds the parsed regulations of one export plus the distinct
// interpretation requests their raw text produced, for cache warming.
type RegulationSet struct {
	Regulations   []*model.Regulation
	InterpretReqs []interpret.Request
}

// LoadRegulations reads regulation records from a municipal GeoJSON export.
// Day and hour strings are normalized here into canonical shapes; join and
// evaluation code never sees the raw text. Records that fail normalization
// or carry degenerate geometry are logged and skipped individually.
func LoadRegulations(path string) (*RegulationSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: read regulations %s", path)
	}

	root := gjson.ParseBytes(data)
	features := root.Get("features")
	if !features.Exists() {
		return nil, eris.Errorf("dataset: %s is not a GeoJSON feature collection", path)
	}

	set := &RegulationSet{}
	seen := map[string]bool{}
	var skipped int

	features.ForEach(func(_, feature gjson.Result) bool {
		regs, req, err := parseRegulation(feature)
		if err != nil {
			skipped++
			zap.L().Debug("dataset: skipped regulation",
				zap.String("id", feature.Get("properties.objectid").String()),
				zap.Error(err))
			return true
		}
		set.Regulations = append(set.Regulations, regs...)
		if !seen[regs[0].InterpretKey] {
			seen[regs[0].InterpretKey] = true
			set.InterpretReqs = append(set.InterpretReqs, req)
		}
		return true
	})

	if skipped > 0 {
		zap.L().Warn("dataset: skipped regulation records",
			zap.String("path", path), zap.Int("skipped", skipped))
	}
	return set, nil
}

// parseRegulation parses one GeoJSON feature. An overnight hour span yields
// one regulation per split window; all other spans yield exactly one.
func parseRegulation(feature gjson.Result) ([]*model.Regulation, interpret.Request, error) {
	props := feature.Get("properties")

	id := firstString(props, "objectid", "id", "regulation_id")
	if id == "" {
		return nil, interpret.Request{}, eris.New("dataset: regulation missing id")
	}
	description := firstString(props, "regulation", "description", "details")
	if description == "" {
		return nil, interpret.Request{}, eris.Errorf("dataset: regulation %s missing description", id)
	}

	line, err := parseLineString(feature.Get("geometry"))
	if err != nil {
		return nil, interpret.Request{}, eris.Wrapf(err, "dataset: regulation %s", id)
	}

	rawDays := firstString(props, "days", "day_range")
	rawHours := firstString(props, "hours", "time_range")

	days, err := normalize.ParseDays(rawDays)
	if err != nil {
		return nil, interpret.Request{}, eris.Wrapf(err, "dataset: regulation %s", id)
	}
	windows, err := normalize.ParseHours(rawHours)
	if err != nil {
		return nil, interpret.Request{}, eris.Wrapf(err, "dataset: regulation %s", id)
	}

	limitMinutes := 0
	if hl := props.Get("hour_limit"); hl.Exists() && hl.Float() > 0 {
		limitMinutes = int(hl.Float() * 60)
	}

	permitZone := firstString(props, "permit_zone", "permit_area", "rpp_area")
	req := interpret.Request{
		Description: description,
		Days:        rawDays,
		Hours:       rawHours,
		PermitZone:  permitZone,
	}

	base := model.Regulation{
		ID:            id,
		Geometry:      line,
		Kind:          normalize.ClassifyKind(description, limitMinutes > 0),
		Days:          days,
		LimitMinutes:  limitMinutes,
		PermitZone:    permitZone,
		Description:   description,
		InterpretKey:  req.Key(),
		Neighborhood:  firstString(props, "neighborhood", "nbrhood"),
		District:      firstString(props, "district", "supdist"),
		StreetName:    firstString(props, "street", "street_name"),
		AddressNumber: int(props.Get("address").Int()),
	}

	if len(windows) == 0 {
		return []*model.Regulation{&base}, req, nil
	}
	regs := make([]*model.Regulation, 0, len(windows))
	for _, w := range windows {
		reg := base
		reg.Window = w
		regs = append(regs, &reg)
	}
	return regs, req, nil
}

func parseLineString(gj gjson.Result) (*geom.LineString, error) {
	if gj.Get("type").String() != "LineString" {
		return nil, eris.Errorf("dataset: geometry type %q, want LineString", gj.Get("type").String())
	}

	var flat []float64
	ok := true
	gj.Get("coordinates").ForEach(func(_, pos gjson.Result) bool {
		coords := pos.Array()
		if len(coords) < 2 {
			ok = false
			return false
		}
		flat = append(flat, coords[0].Float(), coords[1].Float())
		return true
	})
	if !ok || len(flat) < 4 {
		return nil, eris.New("dataset: malformed coordinates")
	}

	line := geom.NewLineStringFlat(geom.XY, flat)
	if err := geometry.Validate(line); err != nil {
		return nil, err
	}
	return line, nil
}

func firstString(props gjson.Result, keys ...string) string {
	for _, k := range keys {
		if v := props.Get(k); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}
