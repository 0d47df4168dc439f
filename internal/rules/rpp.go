package rules

import (
	"regexp"
	"strconv"

	"github.com/opencurb/curb-cli/internal/model"
)

// defaultVisitorMinutes is the allowance assumed when an RPP rule's
// description carries no parseable visitor duration. Survey-calibrated
// default, not guaranteed by any upstream data specification.
const defaultVisitorMinutes = 120

var visitorRe = regexp.MustCompile(`(?i)(\d+)\s*(?:hour|hr)s?\s*visitor`)

// VisitorAllowance returns the visitor parking allowance in minutes for an
// RPP rule, parsed from its free-text description ("2 hour visitor
// parking"), or the default when nothing parses. An explicit limit on the
// rule itself wins over the description.
func VisitorAllowance(r model.Rule) int {
	if r.LimitMinutes > 0 {
		return r.LimitMinutes
	}
	if m := visitorRe.FindStringSubmatch(r.Description); m != nil {
		if hours, err := strconv.Atoi(m[1]); err == nil && hours > 0 {
			return hours * 60
		}
	}
	return defaultVisitorMinutes
}
