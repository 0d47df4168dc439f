// Package join resolves raw regulation geometries into per-side segment
// attachments. Distance tiers decide whether geometric evidence alone is
// sufficient (CLEAR), administrative-parcel conflict resolution is required
// (BOUNDARY), or the candidate is discarded.
package join

import (
	"sort"

	"github.com/tidwall/rtree"
	"go.uber.org/zap"

	"github.com/opencurb/curb-cli/internal/geometry"
	"github.com/opencurb/curb-cli/internal/model"
	"github.com/opencurb/curb-cli/internal/side"
)

// Thresholds are the meter-based distance tiers of the join. A candidate
// side closer than Clear attaches on geometry alone; between Clear and
// Boundary it needs parcel confirmation; past Boundary it is discarded.
type Thresholds struct {
	ClearMeters        float64
	BoundaryMeters     float64
	SearchRadiusMeters float64
}

// DefaultThresholds returns the survey-calibrated defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ClearMeters:        8,
		BoundaryMeters:     15,
		SearchRadiusMeters: 30,
	}
}

type tier int

const (
	tierOut tier = iota
	tierBoundary
	tierClear
)

// Attachment is one confirmed (segment, confidence) pairing produced by the
// join.
type Attachment struct {
	Segment    *model.StreetSegment
	Confidence model.Confidence
}

// Engine joins regulations against an immutable, in-memory snapshot of
// segments and parcels. It is safe for concurrent use: all state is built at
// construction and only read afterwards.
type Engine struct {
	thresholds Thresholds
	groups     map[string]*centerlineGroup
	lines      *rtree.RTree
	parcels    *rtree.RTree
}

// NewEngine indexes the given segments and parcels for joining.
func NewEngine(segments []*model.StreetSegment, parcels []*model.Parcel, t Thresholds) *Engine {
	groups, lines := buildCenterlineIndex(segments, t.SearchRadiusMeters)
	return &Engine{
		thresholds: t,
		groups:     groups,
		lines:      lines,
		parcels:    buildParcelIndex(parcels),
	}
}

// candidate is one centerline group with its measured distance and side vote.
type candidate struct {
	group    *centerlineGroup
	distance float64
	vote     model.Side
}

// Join resolves one regulation into zero, one, or two attachments. An
// unmatched regulation is logged and dropped; the join never guesses.
func (e *Engine) Join(reg *model.Regulation) []Attachment {
	if err := geometry.Validate(reg.Geometry); err != nil {
		zap.L().Warn("join: skipping regulation with degenerate geometry",
			zap.String("regulation", reg.ID))
		return nil
	}

	cands := e.candidates(reg)
	if len(cands) == 0 {
		zap.L().Debug("join: no candidate centerlines", zap.String("regulation", reg.ID))
		return nil
	}

	// A regulation belongs to one street. When any candidate has a CLEAR
	// side, only the nearest such centerline is considered; boundary-only
	// regulations keep all candidates for the resolver.
	if best := nearestWithClear(reg, cands, e.thresholds); best != nil {
		return e.decide(reg, *best)
	}

	var attachments []Attachment
	for _, c := range cands {
		attachments = append(attachments, e.decide(reg, c)...)
	}
	if len(attachments) == 0 {
		zap.L().Info("join: regulation unmatched",
			zap.String("regulation", reg.ID),
			zap.Int("candidates", len(cands)))
	}
	return attachments
}

// candidates returns centerline groups within the search radius of the
// regulation geometry, nearest first.
func (e *Engine) candidates(reg *model.Regulation) []candidate {
	min, max := geometry.BBox(reg.Geometry, e.thresholds.SearchRadiusMeters)

	var cands []candidate
	e.lines.Search(min, max, func(_, _ [2]float64, value interface{}) bool {
		g := value.(*centerlineGroup)
		d := geometry.LineToLine(reg.Geometry, g.line)
		if d <= e.thresholds.SearchRadiusMeters {
			cands = append(cands, candidate{
				group:    g,
				distance: d,
				vote:     side.Determine(g.line, reg.Geometry),
			})
		}
		return true
	})

	sort.Slice(cands, func(i, j int) bool { return cands[i].distance < cands[j].distance })
	return cands
}

func nearestWithClear(reg *model.Regulation, cands []candidate, t Thresholds) *candidate {
	for i := range cands {
		c := &cands[i]
		for _, seg := range c.group.sides {
			if classifySide(reg, seg, *c, t) == tierClear {
				return c
			}
		}
	}
	return nil
}

// decide applies the attachment decision rule to one candidate centerline:
// both sides CLEAR attach both (full-width strokes legitimately apply to
// both curbs), exactly one CLEAR attaches that side, and BOUNDARY sides
// attach only when the parcel resolver confirms them.
func (e *Engine) decide(reg *model.Regulation, c candidate) []Attachment {
	var clear, boundary []*model.StreetSegment
	for _, s := range []model.Side{model.SideLeft, model.SideRight} {
		seg, ok := c.group.sides[s]
		if !ok {
			continue
		}
		switch classifySide(reg, seg, c, e.thresholds) {
		case tierClear:
			clear = append(clear, seg)
		case tierBoundary:
			boundary = append(boundary, seg)
		}
	}

	var attachments []Attachment
	for _, seg := range clear {
		attachments = append(attachments, Attachment{Segment: seg, Confidence: model.ConfidenceClear})
	}
	if len(clear) > 0 {
		return attachments
	}

	for _, seg := range boundary {
		if e.resolveBoundary(reg, seg) {
			attachments = append(attachments, Attachment{Segment: seg, Confidence: model.ConfidenceBoundaryResolve})
		}
	}
	return attachments
}

// classifySide tiers one side of a candidate centerline. When the side has
// surveyed curb-offset geometry its own distance decides the tier. Otherwise
// both sides share the centerline distance and the side vote splits them:
// the voted side keeps the measured tier, the opposite side is demoted to
// BOUNDARY, and an indeterminate vote with a close distance reads as a
// full-width stroke covering both sides.
func classifySide(reg *model.Regulation, seg *model.StreetSegment, c candidate, t Thresholds) tier {
	if seg.CurbLine != nil {
		return tierFor(geometry.LineToLine(reg.Geometry, seg.CurbLine), t)
	}
	switch c.vote {
	case seg.Side, model.SideIndeterminate:
		return tierFor(c.distance, t)
	default:
		if c.distance < t.BoundaryMeters {
			return tierBoundary
		}
		return tierOut
	}
}

func tierFor(d float64, t Thresholds) tier {
	switch {
	case d < t.ClearMeters:
		return tierClear
	case d < t.BoundaryMeters:
		return tierBoundary
	default:
		return tierOut
	}
}
