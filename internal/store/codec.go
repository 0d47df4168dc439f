package store

import (
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"

	"github.com/opencurb/curb-cli/internal/model"
)

// segmentRow is the flat persisted form of one segment. Geometry columns are
// EWKB with SRID 4326; rules and meters are JSON documents.
type segmentRow struct {
	CenterlineID string
	Side         string
	StreetName   string
	FromStreet   *string
	ToStreet     *string
	AddrFrom     *int
	AddrTo       *int
	Centerline   []byte
	CurbLine     []byte
	Rules        []byte
	Meters       []byte
}

func encodeSegment(seg *model.StreetSegment) (segmentRow, error) {
	row := segmentRow{
		CenterlineID: seg.CenterlineID,
		Side:         string(seg.Side),
		StreetName:   seg.StreetName,
	}
	if seg.FromStreet != "" {
		row.FromStreet = &seg.FromStreet
	}
	if seg.ToStreet != "" {
		row.ToStreet = &seg.ToStreet
	}
	if seg.Addresses != nil {
		row.AddrFrom = &seg.Addresses.From
		row.AddrTo = &seg.Addresses.To
	}

	var err error
	if row.Centerline, err = encodeLine(seg.Centerline); err != nil {
		return row, eris.Wrapf(err, "store: encode centerline %s", seg.CenterlineID)
	}
	if seg.CurbLine != nil {
		if row.CurbLine, err = encodeLine(seg.CurbLine); err != nil {
			return row, eris.Wrapf(err, "store: encode curb line %s", seg.CenterlineID)
		}
	}
	if row.Rules, err = json.Marshal(seg.Rules); err != nil {
		return row, eris.Wrap(err, "store: marshal rules")
	}
	if row.Meters, err = json.Marshal(seg.Meters); err != nil {
		return row, eris.Wrap(err, "store: marshal meters")
	}
	return row, nil
}

func decodeSegment(row segmentRow) (*model.StreetSegment, error) {
	seg := &model.StreetSegment{
		CenterlineID: row.CenterlineID,
		Side:         model.Side(row.Side),
		StreetName:   row.StreetName,
	}
	if row.FromStreet != nil {
		seg.FromStreet = *row.FromStreet
	}
	if row.ToStreet != nil {
		seg.ToStreet = *row.ToStreet
	}
	if row.AddrFrom != nil && row.AddrTo != nil {
		seg.Addresses = &model.AddressRange{From: *row.AddrFrom, To: *row.AddrTo}
	}

	var err error
	if seg.Centerline, err = decodeLine(row.Centerline); err != nil {
		return nil, eris.Wrapf(err, "store: decode centerline %s", row.CenterlineID)
	}
	if len(row.CurbLine) > 0 {
		if seg.CurbLine, err = decodeLine(row.CurbLine); err != nil {
			return nil, eris.Wrapf(err, "store: decode curb line %s", row.CenterlineID)
		}
	}
	if len(row.Rules) > 0 {
		if err := json.Unmarshal(row.Rules, &seg.Rules); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal rules")
		}
	}
	if len(row.Meters) > 0 {
		if err := json.Unmarshal(row.Meters, &seg.Meters); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal meters")
		}
	}
	return seg, nil
}

func encodeLine(line *geom.LineString) ([]byte, error) {
	if line == nil {
		return nil, eris.New("store: nil geometry")
	}
	return ewkb.Marshal(line.SetSRID(4326), ewkb.NDR)
}

func decodeLine(data []byte) (*geom.LineString, error) {
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return nil, err
	}
	line, ok := g.(*geom.LineString)
	if !ok {
		return nil, eris.Errorf("store: geometry is %T, want linestring", g)
	}
	return line, nil
}
