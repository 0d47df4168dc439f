// Package model defines the core data types for curb segments, parking rules,
// and legality evaluation.
package model

import (
	"fmt"
	"time"

	"github.com/twpayne/go-geom"
)

// Side identifies one physical side of a street centerline.
type Side string

// Side values. Indeterminate is a valid voting outcome, never a stored side.
const (
	SideLeft          Side = "left"
	SideRight         Side = "right"
	SideIndeterminate Side = "indeterminate"
)

// Opposite returns the other side. Indeterminate maps to itself.
func (s Side) Opposite() Side {
	switch s {
	case SideLeft:
		return SideRight
	case SideRight:
		return SideLeft
	}
	return s
}

// SegmentKey is the composite identity of a street segment.
type SegmentKey struct {
	CenterlineID string
	Side         Side
}

func (k SegmentKey) String() string {
	return fmt.Sprintf("%s/%s", k.CenterlineID, k.Side)
}

// AddressRange is an inclusive interval of street numbers assigned to one
// side of a centerline. Municipal convention puts odd and even numbers on
// opposite sides, so a range whose endpoints share parity is odd-only or
// even-only.
type AddressRange struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// Contains reports whether n falls within the range, inclusive on both ends.
// When both endpoints share parity, n must match that parity: the opposite
// side's overlapping interval holds the other numbers.
func (r AddressRange) Contains(n int) bool {
	if n < r.From || n > r.To {
		return false
	}
	if r.From%2 == r.To%2 && n%2 != r.From%2 {
		return false
	}
	return true
}

// StreetSegment is one side of one street centerline: the unit of parking
// rule attachment. The centerline geometry and side are fixed at creation;
// rules and meter schedules accumulate during ingestion and the finished
// segment is served read-only.
type StreetSegment struct {
	CenterlineID string           `json:"centerline_id"`
	Side         Side             `json:"side"`
	StreetName   string           `json:"street_name"`
	FromStreet   string           `json:"from_street,omitempty"`
	ToStreet     string           `json:"to_street,omitempty"`
	Addresses    *AddressRange    `json:"addresses,omitempty"`
	Centerline   *geom.LineString `json:"-"`
	CurbLine     *geom.LineString `json:"-"` // refined curb-offset geometry, when surveyed
	Rules        []Rule           `json:"rules"`
	Meters       []MeterSchedule  `json:"meters,omitempty"`
}

// Key returns the segment's composite identity.
func (s *StreetSegment) Key() SegmentKey {
	return SegmentKey{CenterlineID: s.CenterlineID, Side: s.Side}
}

// MeterSchedule is one metered-parking schedule on a centerline. Meters are
// surveyed per centerline, not per side, and attach to both segments.
type MeterSchedule struct {
	CenterlineID string  `json:"centerline_id"`
	HourlyRate   float64 `json:"hourly_rate"`
	Days         DaySet  `json:"days"`
	Window       *Window `json:"window,omitempty"`
}

// LegalityStatus is the outcome of a legality evaluation.
type LegalityStatus string

// Legality statuses.
const (
	StatusLegal   LegalityStatus = "legal"
	StatusIllegal LegalityStatus = "illegal"
)

// LegalityResult is the ephemeral answer to "can I park here, now, for this
// long". It is computed fresh per query and never cached by the engine.
type LegalityResult struct {
	Status          LegalityStatus `json:"status"`
	Explanation     string         `json:"explanation"`
	CostEstimate    *float64       `json:"cost_estimate,omitempty"`
	NextRestriction *time.Time     `json:"next_restriction,omitempty"`
}
