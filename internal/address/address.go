// Package address matches street addresses to segments by numeric interval
// containment. Integer containment is deterministic and immune to geometry
// noise, so it is preferred over the spatial join whenever a record carries a
// numeric street address.
package address

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/opencurb/curb-cli/internal/model"
)

var fold = cases.Fold()

// Normalize canonicalizes a street name for lookup: case-folded, whitespace
// collapsed, common suffix abbreviations expanded.
func Normalize(name string) string {
	s := fold.String(strings.TrimSpace(name))
	fields := strings.Fields(s)
	for i, f := range fields {
		if full, ok := suffixes[strings.TrimRight(f, ".")]; ok {
			fields[i] = full
		}
	}
	return strings.Join(fields, " ")
}

var suffixes = map[string]string{
	"st":   "street",
	"ave":  "avenue",
	"av":   "avenue",
	"blvd": "boulevard",
	"dr":   "drive",
	"rd":   "road",
	"ln":   "lane",
	"ct":   "court",
	"pl":   "place",
	"ter":  "terrace",
	"hwy":  "highway",
}

// Matcher indexes segments by normalized street name for address-range
// lookup.
type Matcher struct {
	byStreet map[string][]*model.StreetSegment
}

// NewMatcher builds a Matcher over the given segments. Segments without an
// address range are indexed but can never match.
func NewMatcher(segments []*model.StreetSegment) *Matcher {
	m := &Matcher{byStreet: make(map[string][]*model.StreetSegment)}
	for _, seg := range segments {
		key := Normalize(seg.StreetName)
		m.byStreet[key] = append(m.byStreet[key], seg)
	}
	return m
}

// Match returns the segment of the named street whose address interval
// contains number, or nil when no interval does. Parity-restricted
// intervals reject numbers of the other parity, so overlapping per-side
// ranges resolve to the correct curb. Callers fall back to geometry on a
// nil return.
func (m *Matcher) Match(streetName string, number int) *model.StreetSegment {
	for _, seg := range m.byStreet[Normalize(streetName)] {
		if seg.Addresses == nil {
			continue
		}
		if seg.Addresses.Contains(number) {
			return seg
		}
	}
	return nil
}
