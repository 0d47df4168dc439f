package model

import (
	"strings"
	"time"
)

// RuleKind categorizes a parking regulation.
type RuleKind string

// Rule kinds, in rough precedence order (hard blockers first).
const (
	KindTowAway   RuleKind = "tow-away"
	KindSweeping  RuleKind = "sweeping"
	KindNoParking RuleKind = "no-parking"
	KindRPPZone   RuleKind = "rpp-zone"
	KindTimeLimit RuleKind = "time-limit"
	KindMeter     RuleKind = "meter"
)

// HardBlocker reports whether the kind forbids parking outright while active.
func (k RuleKind) HardBlocker() bool {
	switch k {
	case KindTowAway, KindSweeping, KindNoParking:
		return true
	}
	return false
}

// Confidence records how a rule was matched to its segment.
type Confidence string

// Match-confidence tags.
const (
	ConfidenceClear           Confidence = "clear"
	ConfidenceBoundaryResolve Confidence = "boundary-resolved"
	ConfidenceAddressMatched  Confidence = "address-matched"
)

// DaySet is a bitmask of applicable weekdays. Bit i corresponds to
// time.Weekday(i), so Sunday is bit 0.
type DaySet uint8

// Daily covers all seven days.
const Daily DaySet = 0x7F

// Days builds a DaySet from the given weekdays.
func Days(days ...time.Weekday) DaySet {
	var s DaySet
	for _, d := range days {
		s |= 1 << uint(d)
	}
	return s
}

// Has reports whether the set includes the given weekday.
func (s DaySet) Has(d time.Weekday) bool {
	return s&(1<<uint(d)) != 0
}

// Empty reports whether no day is set.
func (s DaySet) Empty() bool { return s == 0 }

func (s DaySet) String() string {
	if s == Daily {
		return "daily"
	}
	var names []string
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Has(d) {
			names = append(names, d.String()[:3])
		}
	}
	return strings.Join(names, ",")
}

// Window is a half-open [Start,End) time-of-day interval in minutes from
// midnight. A nil *Window means the rule applies all day.
type Window struct {
	StartMinute int `json:"start_minute"`
	EndMinute   int `json:"end_minute"`
}

// Contains reports whether minute-of-day m falls inside the window.
func (w Window) Contains(m int) bool {
	return m >= w.StartMinute && m < w.EndMinute
}

// Overlaps reports whether the half-open minute interval [start,end)
// intersects the window.
func (w Window) Overlaps(start, end int) bool {
	return start < w.EndMinute && end > w.StartMinute
}

// Rule is one regulation attached to a segment side. Rules are immutable
// after attachment: conflicting survey data produces a second rule, never an
// edit, and precedence between overlapping rules is resolved at query time.
type Rule struct {
	Kind         RuleKind   `json:"kind"`
	Days         DaySet     `json:"days"`
	Window       *Window    `json:"window,omitempty"`
	LimitMinutes int        `json:"limit_minutes,omitempty"`
	PermitZone   string     `json:"permit_zone,omitempty"`
	HourlyRate   float64    `json:"hourly_rate,omitempty"` // meter rules only
	Description  string     `json:"description"`
	InterpretKey string     `json:"interpret_key,omitempty"`
	Confidence   Confidence `json:"confidence"`
}

// ActiveOn reports whether the rule is active at any point during the
// half-open minute interval [startMinute,endMinute) on the given weekday.
// A rule with no window is active all day (24/7 tow-away zones and the like).
func (r Rule) ActiveOn(day time.Weekday, startMinute, endMinute int) bool {
	days := r.Days
	if days.Empty() {
		days = Daily
	}
	if !days.Has(day) {
		return false
	}
	if r.Window == nil {
		return true
	}
	return r.Window.Overlaps(startMinute, endMinute)
}
