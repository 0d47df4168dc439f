// Package rules evaluates time-windowed parking legality against a
// segment's merged rules. Evaluation is a pure function over an immutable
// segment: identical inputs always yield identical results, and it is safe
// to call concurrently from many readers.
package rules

import (
	"fmt"
	"strings"
	"time"

	"github.com/opencurb/curb-cli/internal/model"
)

// Evaluate answers whether parking at the segment is legal from checkTime
// for durationMinutes. Precedence: hard blockers (tow-away, sweeping,
// no-parking) beat duration-constrained rules (rpp-zone, time-limit), which
// beat meters. A rule applies if its active window intersects the requested
// interval at any point; partial overlap blocks the full duration. Ties
// among same-precedence rules take the most restrictive outcome.
func Evaluate(seg *model.StreetSegment, checkTime time.Time, durationMinutes int) model.LegalityResult {
	interval := requestInterval(checkTime, durationMinutes)
	active := applicableRules(seg.Rules, interval)

	next := nextRestriction(seg.Rules, checkTime)

	if len(active) == 0 {
		return model.LegalityResult{
			Status:          model.StatusLegal,
			Explanation:     "no restrictions found",
			NextRestriction: next,
		}
	}

	// Hard blockers first.
	for _, r := range active {
		if r.Kind.HardBlocker() {
			return model.LegalityResult{
				Status:          model.StatusIllegal,
				Explanation:     blockerExplanation(r),
				NextRestriction: next,
			}
		}
	}

	var notes []string

	// Residential permit zones: visitors get a bounded allowance.
	for _, r := range active {
		if r.Kind != model.KindRPPZone {
			continue
		}
		allowance := VisitorAllowance(r)
		if durationMinutes > allowance {
			return model.LegalityResult{
				Status: model.StatusIllegal,
				Explanation: fmt.Sprintf("exceeds %dhr visitor limit in permit zone%s",
					allowance/60, zoneSuffix(r)),
				NextRestriction: next,
			}
		}
		notes = append(notes, fmt.Sprintf("permit zone%s: %dhr visitor parking allowed",
			zoneSuffix(r), allowance/60))
	}

	// Posted time limits, inclusive at the boundary.
	for _, r := range active {
		if r.Kind != model.KindTimeLimit || r.LimitMinutes <= 0 {
			continue
		}
		if durationMinutes > r.LimitMinutes {
			return model.LegalityResult{
				Status:          model.StatusIllegal,
				Explanation:     fmt.Sprintf("exceeds posted %d minute limit", r.LimitMinutes),
				NextRestriction: next,
			}
		}
		notes = append(notes, fmt.Sprintf("%d minute limit applies", r.LimitMinutes))
	}

	// Meters are payment-only and never block on their own.
	cost := meterCost(active, durationMinutes)
	if cost != nil {
		notes = append(notes, fmt.Sprintf("metered: estimated $%.2f", *cost))
	}

	explanation := "parking allowed"
	if len(notes) > 0 {
		explanation = strings.Join(notes, "; ")
	}
	return model.LegalityResult{
		Status:          model.StatusLegal,
		Explanation:     explanation,
		CostEstimate:    cost,
		NextRestriction: next,
	}
}

// minuteInterval is one same-day slice of the requested parking interval.
type minuteInterval struct {
	day   time.Weekday
	start int // minute of day, inclusive
	end   int // minute of day, exclusive
	date  time.Time
}

// requestInterval splits [checkTime, checkTime+duration) into per-day minute
// intervals so day-set and window overlap can be tested per weekday.
func requestInterval(checkTime time.Time, durationMinutes int) []minuteInterval {
	var out []minuteInterval
	remaining := durationMinutes
	cursor := checkTime

	for remaining > 0 {
		startMin := cursor.Hour()*60 + cursor.Minute()
		endMin := startMin + remaining
		if endMin > 24*60 {
			endMin = 24 * 60
		}
		out = append(out, minuteInterval{
			day:   cursor.Weekday(),
			start: startMin,
			end:   endMin,
			date:  cursor,
		})
		consumed := endMin - startMin
		remaining -= consumed
		cursor = cursor.Add(time.Duration(consumed) * time.Minute)
	}
	if len(out) == 0 {
		// Zero-duration checks still test the instant itself.
		m := checkTime.Hour()*60 + checkTime.Minute()
		out = append(out, minuteInterval{day: checkTime.Weekday(), start: m, end: m + 1, date: checkTime})
	}
	return out
}

func applicableRules(all []model.Rule, interval []minuteInterval) []model.Rule {
	var active []model.Rule
	for _, r := range all {
		for _, iv := range interval {
			if r.ActiveOn(iv.day, iv.start, iv.end) {
				active = append(active, r)
				break
			}
		}
	}
	return active
}

func blockerExplanation(r model.Rule) string {
	if r.Description != "" {
		return r.Description
	}
	return string(r.Kind)
}

func zoneSuffix(r model.Rule) string {
	if r.PermitZone == "" {
		return ""
	}
	return " " + r.PermitZone
}

// meterCost returns the estimated cost across applicable meter rules, using
// the highest hourly rate when schedules overlap.
func meterCost(active []model.Rule, durationMinutes int) *float64 {
	var rate float64
	var metered bool
	for _, r := range active {
		if r.Kind == model.KindMeter {
			metered = true
			if r.HourlyRate > rate {
				rate = r.HourlyRate
			}
		}
	}
	if !metered {
		return nil
	}
	cost := rate * float64(durationMinutes) / 60
	return &cost
}

// nextRestriction returns the start of the next restriction activation
// strictly after checkTime, scanning one week ahead. Nil when the segment
// has no restriction rules.
func nextRestriction(all []model.Rule, checkTime time.Time) *time.Time {
	var best *time.Time
	for _, r := range all {
		if r.Kind == model.KindMeter {
			continue
		}
		if t := nextActivation(r, checkTime); t != nil {
			if best == nil || t.Before(*best) {
				best = t
			}
		}
	}
	return best
}

func nextActivation(r model.Rule, after time.Time) *time.Time {
	days := r.Days
	if days.Empty() {
		days = model.Daily
	}
	for offset := 0; offset < 8; offset++ {
		day := after.AddDate(0, 0, offset)
		if !days.Has(day.Weekday()) {
			continue
		}
		startMin := 0
		if r.Window != nil {
			startMin = r.Window.StartMinute
		}
		t := time.Date(day.Year(), day.Month(), day.Day(), startMin/60, startMin%60, 0, 0, after.Location())
		if t.After(after) {
			return &t
		}
	}
	return nil
}
