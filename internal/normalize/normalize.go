// Package normalize converts the many real-world spellings of regulation
// day and hour fields into the canonical DaySet and Window shapes. Join and
// evaluation code never sees raw strings.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/opencurb/curb-cli/internal/model"
)

var dayAliases = map[string]time.Weekday{
	"su": time.Sunday, "sun": time.Sunday, "sunday": time.Sunday,
	"m": time.Monday, "mo": time.Monday, "mon": time.Monday, "monday": time.Monday,
	"t": time.Tuesday, "tu": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday, "tuesday": time.Tuesday,
	"w": time.Wednesday, "we": time.Wednesday, "wed": time.Wednesday, "wednesday": time.Wednesday,
	"th": time.Thursday, "thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday, "thursday": time.Thursday,
	"f": time.Friday, "fr": time.Friday, "fri": time.Friday, "friday": time.Friday,
	"sa": time.Saturday, "sat": time.Saturday, "saturday": time.Saturday,
}

// ParseDays normalizes a free-text day specification. An empty string means
// the rule applies every day. Supported variants include "daily", "everyday",
// "Mon-Fri", "M-F", "Mon,Wed,Fri", and "Tu/Th".
func ParseDays(raw string) (model.DaySet, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" || s == "daily" || s == "everyday" || s == "every day" || s == "all" || s == "7 days" {
		return model.Daily, nil
	}

	var set model.DaySet
	for _, part := range splitList(s) {
		if from, to, ok := strings.Cut(part, "-"); ok {
			a, okA := dayAliases[strings.TrimSpace(from)]
			b, okB := dayAliases[strings.TrimSpace(to)]
			if !okA || !okB {
				return 0, eris.Errorf("normalize: unrecognized day range %q", part)
			}
			for d := a; ; d = (d + 1) % 7 {
				set |= model.Days(d)
				if d == b {
					break
				}
			}
			continue
		}
		d, ok := dayAliases[strings.TrimSpace(part)]
		if !ok {
			return 0, eris.Errorf("normalize: unrecognized day %q", part)
		}
		set |= model.Days(d)
	}
	if set.Empty() {
		return 0, eris.Errorf("normalize: no days parsed from %q", raw)
	}
	return set, nil
}

func splitList(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == '/' || r == ';' || r == '&'
	})
}

var (
	clockRe    = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*(am|pm|a|p)?$`)
	militaryRe = regexp.MustCompile(`^(\d{2})(\d{2})$`)
)

// ParseHours normalizes a free-text time-of-day span into same-day windows.
// An empty string means all day and returns nil. Supported variants include
// "7am-9pm", "7:30am-6pm", "0700-2100", and "7 AM to 6 PM". An overnight
// span like "10pm-6am" has no single-day representation and splits into two
// windows, one reaching midnight and one starting at it; callers emit one
// record per window.
func ParseHours(raw string) ([]*model.Window, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" || s == "24/7" || s == "24 hours" || s == "all day" || s == "anytime" {
		return nil, nil
	}

	s = strings.ReplaceAll(s, " to ", "-")
	s = strings.ReplaceAll(s, "–", "-")
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return nil, eris.Errorf("normalize: unrecognized hour window %q", raw)
	}

	start, err := parseClock(strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, eris.Wrapf(err, "normalize: window %q", raw)
	}
	end, err := parseClock(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, eris.Wrapf(err, "normalize: window %q", raw)
	}

	if start < end {
		return []*model.Window{{StartMinute: start, EndMinute: end}}, nil
	}
	if start == end {
		return nil, eris.Errorf("normalize: empty hour window %q", raw)
	}

	var windows []*model.Window
	if start < 24*60 {
		windows = append(windows, &model.Window{StartMinute: start, EndMinute: 24 * 60})
	}
	if end > 0 {
		windows = append(windows, &model.Window{StartMinute: 0, EndMinute: end})
	}
	return windows, nil
}

func parseClock(s string) (int, error) {
	if m := militaryRe.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[1])
		min, _ := strconv.Atoi(m[2])
		if h > 24 || min > 59 {
			return 0, eris.Errorf("normalize: invalid clock %q", s)
		}
		return h*60 + min, nil
	}

	m := clockRe.FindStringSubmatch(s)
	if m == nil {
		return 0, eris.Errorf("normalize: invalid clock %q", s)
	}
	h, _ := strconv.Atoi(m[1])
	var min int
	if m[2] != "" {
		min, _ = strconv.Atoi(m[2])
	}
	if h > 24 || min > 59 {
		return 0, eris.Errorf("normalize: invalid clock %q", s)
	}
	switch m[3] {
	case "pm", "p":
		if h < 12 {
			h += 12
		}
	case "am", "a":
		if h == 12 {
			h = 0
		}
	}
	return h*60 + min, nil
}

// kindPatterns classify a regulation description into a rule kind, checked
// in precedence order so "tow-away no parking" reads as tow-away.
var kindPatterns = []struct {
	re   *regexp.Regexp
	kind model.RuleKind
}{
	{regexp.MustCompile(`(?i)tow[- ]?away|tow zone`), model.KindTowAway},
	{regexp.MustCompile(`(?i)street\s+sweep|street\s+clean|mechanical\s+sweep`), model.KindSweeping},
	{regexp.MustCompile(`(?i)no\s+(parking|stopping|standing)`), model.KindNoParking},
	{regexp.MustCompile(`(?i)permit|residential\s+parking|\brpp\b`), model.KindRPPZone},
	{regexp.MustCompile(`(?i)meter`), model.KindMeter},
	{regexp.MustCompile(`(?i)\b(\d+)\s*(hour|hr|minute|min)\b`), model.KindTimeLimit},
}

// ClassifyKind infers the rule kind from a regulation description. Records
// whose description matches nothing fall back to time-limit when an hour
// limit is present, otherwise no-parking is assumed conservatively.
func ClassifyKind(description string, hasHourLimit bool) model.RuleKind {
	for _, p := range kindPatterns {
		if p.re.MatchString(description) {
			return p.kind
		}
	}
	if hasHourLimit {
		return model.KindTimeLimit
	}
	return model.KindNoParking
}
