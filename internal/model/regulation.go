package model

import "github.com/twpayne/go-geom"

// Regulation is a raw surveyed regulation record: geometry plus normalized
// schedule fields, but no side or segment identity. Resolving it into zero,
// one, or two (segment, rule) attachments is the spatial join's job. It is an
// ingestion-time input and is not persisted in this form.
type Regulation struct {
	ID           string
	Geometry     *geom.LineString
	Kind         RuleKind
	Days         DaySet
	Window       *Window
	LimitMinutes int
	PermitZone   string
	Description  string
	InterpretKey string

	// Administrative attributes carried on the raw record, used only by the
	// boundary conflict resolver.
	Neighborhood string
	District     string

	// Optional building-level address. When present, address-range matching
	// is preferred over geometry.
	StreetName    string
	AddressNumber int
}

// HasAddress reports whether the record carries a usable street address.
func (r *Regulation) HasAddress() bool {
	return r.StreetName != "" && r.AddressNumber > 0
}

// Rule converts the regulation into an attachable rule with the given
// match confidence.
func (r *Regulation) Rule(conf Confidence) Rule {
	return Rule{
		Kind:         r.Kind,
		Days:         r.Days,
		Window:       r.Window,
		LimitMinutes: r.LimitMinutes,
		PermitZone:   r.PermitZone,
		Description:  r.Description,
		InterpretKey: r.InterpretKey,
		Confidence:   conf,
	}
}

// Parcel is an administrative overlay polygon. Parcels are consumed only by
// the boundary conflict resolver and are never persisted as output.
type Parcel struct {
	Geometry     *geom.Polygon
	Neighborhood string
	District     string
}
