// Package snapshot accumulates per-side segment records during an ingestion
// run and publishes them as an immutable, concurrently-readable snapshot.
// Each run builds into a fresh, isolated builder; readers only ever see a
// fully built snapshot, swapped in atomically on success.
package snapshot

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/tidwall/rtree"

	"github.com/opencurb/curb-cli/internal/geometry"
	"github.com/opencurb/curb-cli/internal/model"
)

// Builder accumulates rules onto segments for one ingestion run. Attach is
// safe for concurrent use; rules are appended without deduplication so
// overlapping survey records stay auditable, and precedence is resolved at
// query time.
type Builder struct {
	mu       sync.Mutex
	segments map[model.SegmentKey]*model.StreetSegment
}

// NewBuilder seeds a builder with freshly created segments, two per
// centerline. The segments must not be shared with a live snapshot.
func NewBuilder(segments []*model.StreetSegment) *Builder {
	b := &Builder{segments: make(map[model.SegmentKey]*model.StreetSegment, len(segments))}
	for _, seg := range segments {
		b.segments[seg.Key()] = seg
	}
	return b
}

// Attach appends a rule to the identified segment. Unknown keys are ignored:
// the join only produces keys from the same seed set, so a miss indicates a
// stale attachment from a superseded dataset.
func (b *Builder) Attach(key model.SegmentKey, rule model.Rule) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if seg, ok := b.segments[key]; ok {
		seg.Rules = append(seg.Rules, rule)
	}
}

// AttachMeter records a meter schedule on both sides of its centerline and
// mirrors it as a meter rule for evaluation.
func (b *Builder) AttachMeter(m model.MeterSchedule) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range []model.Side{model.SideLeft, model.SideRight} {
		seg, ok := b.segments[model.SegmentKey{CenterlineID: m.CenterlineID, Side: s}]
		if !ok {
			continue
		}
		seg.Meters = append(seg.Meters, m)
		seg.Rules = append(seg.Rules, model.Rule{
			Kind:        model.KindMeter,
			Days:        m.Days,
			Window:      m.Window,
			HourlyRate:  m.HourlyRate,
			Description: "metered parking",
			Confidence:  model.ConfidenceClear,
		})
	}
}

// Build freezes the accumulated segments into a snapshot. The builder must
// not be used afterwards.
func (b *Builder) Build(runID string) *Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := &Snapshot{
		RunID:    runID,
		BuiltAt:  time.Now().UTC(),
		byKey:    b.segments,
		spatial:  new(rtree.RTree),
		ordered:  make([]*model.StreetSegment, 0, len(b.segments)),
	}
	for _, seg := range b.segments {
		s.ordered = append(s.ordered, seg)
		if seg.Centerline != nil {
			min, max := geometry.BBox(seg.Centerline, 0)
			s.spatial.Insert(min, max, seg)
		}
	}
	b.segments = nil
	return s
}

// Snapshot is a finished, immutable collection of street segments. All
// methods are safe for concurrent readers.
type Snapshot struct {
	RunID   string
	BuiltAt time.Time

	byKey   map[model.SegmentKey]*model.StreetSegment
	spatial *rtree.RTree
	ordered []*model.StreetSegment
}

// Get returns the segment with the given identity, or nil.
func (s *Snapshot) Get(centerlineID string, sd model.Side) *model.StreetSegment {
	return s.byKey[model.SegmentKey{CenterlineID: centerlineID, Side: sd}]
}

// Near returns segments whose centerline passes within radius meters of the
// point.
func (s *Snapshot) Near(lng, lat float64, radiusMeters float64) []*model.StreetSegment {
	// The index holds unpadded segment boxes, so the query box must cover
	// the full radius in local degrees; the exact meter filter runs below.
	mLng, mLat := geometry.MetersPerDegree(lat)
	min := [2]float64{lng - radiusMeters/mLng, lat - radiusMeters/mLat}
	max := [2]float64{lng + radiusMeters/mLng, lat + radiusMeters/mLat}

	var out []*model.StreetSegment
	s.spatial.Search(min, max, func(_, _ [2]float64, value interface{}) bool {
		seg := value.(*model.StreetSegment)
		if geometry.DistanceToLine([]float64{lng, lat}, seg.Centerline) <= radiusMeters {
			out = append(out, seg)
		}
		return true
	})
	return out
}

// Segments returns all segments in the snapshot.
func (s *Snapshot) Segments() []*model.StreetSegment {
	return s.ordered
}

// Len returns the segment count.
func (s *Snapshot) Len() int { return len(s.ordered) }

// Holder publishes snapshots to readers. The swap is atomic: readers see
// either the previous complete snapshot or the new one, never a partial
// build.
type Holder struct {
	current atomic.Pointer[Snapshot]
}

// Publish replaces the served snapshot.
func (h *Holder) Publish(s *Snapshot) {
	h.current.Store(s)
}

// Current returns the served snapshot, or nil before the first publish.
func (h *Holder) Current() *Snapshot {
	return h.current.Load()
}
