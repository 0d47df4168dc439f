package snapshot

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/opencurb/curb-cli/internal/model"
)

func testSegments() []*model.StreetSegment {
	cl := geom.NewLineStringFlat(geom.XY, []float64{0, 0, 0.01, 0})
	return []*model.StreetSegment{
		{CenterlineID: "cl-1", Side: model.SideLeft, StreetName: "Main Street", Centerline: cl},
		{CenterlineID: "cl-1", Side: model.SideRight, StreetName: "Main Street", Centerline: cl},
	}
}

func TestBuilderAttach(t *testing.T) {
	b := NewBuilder(testSegments())

	rule := model.Rule{Kind: model.KindSweeping, Days: model.Days(time.Tuesday)}
	b.Attach(model.SegmentKey{CenterlineID: "cl-1", Side: model.SideLeft}, rule)

	// Unknown keys are ignored, not created.
	b.Attach(model.SegmentKey{CenterlineID: "ghost", Side: model.SideLeft}, rule)

	snap := b.Build("run-1")
	assert.Equal(t, "run-1", snap.RunID)
	assert.Equal(t, 2, snap.Len())

	left := snap.Get("cl-1", model.SideLeft)
	require.NotNil(t, left)
	require.Len(t, left.Rules, 1)
	assert.Equal(t, model.KindSweeping, left.Rules[0].Kind)

	right := snap.Get("cl-1", model.SideRight)
	require.NotNil(t, right)
	assert.Empty(t, right.Rules)

	assert.Nil(t, snap.Get("ghost", model.SideLeft))
}

func TestBuilderAttachConcurrent(t *testing.T) {
	b := NewBuilder(testSegments())
	key := model.SegmentKey{CenterlineID: "cl-1", Side: model.SideLeft}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Attach(key, model.Rule{Kind: model.KindTimeLimit, LimitMinutes: 60})
		}()
	}
	wg.Wait()

	snap := b.Build("run-2")
	assert.Len(t, snap.Get("cl-1", model.SideLeft).Rules, 50)
}

func TestBuilderAttachMeter(t *testing.T) {
	b := NewBuilder(testSegments())

	b.AttachMeter(model.MeterSchedule{
		CenterlineID: "cl-1",
		HourlyRate:   2.25,
		Days:         model.Daily,
	})

	snap := b.Build("run-3")
	for _, sd := range []model.Side{model.SideLeft, model.SideRight} {
		seg := snap.Get("cl-1", sd)
		require.NotNil(t, seg, "side=%s", sd)
		require.Len(t, seg.Meters, 1)
		require.Len(t, seg.Rules, 1)
		assert.Equal(t, model.KindMeter, seg.Rules[0].Kind)
		assert.Equal(t, 2.25, seg.Rules[0].HourlyRate)
	}
}

func TestSnapshotNear(t *testing.T) {
	snap := NewBuilder(testSegments()).Build("run-4")

	// A point about 11m from the centerline.
	near := snap.Near(0.005, 0.0001, 50)
	assert.Len(t, near, 2)

	none := snap.Near(0.005, 0.01, 50)
	assert.Empty(t, none)
}

func TestSnapshotNearHighLatitude(t *testing.T) {
	// A north-south block at 60°N, where a degree of longitude is only
	// about 55.6 km. A fixed equatorial pad would undershoot the query box
	// east-west and miss this centerline entirely.
	cl := geom.NewLineStringFlat(geom.XY, []float64{10, 60, 10, 60.001})
	snap := NewBuilder([]*model.StreetSegment{
		{CenterlineID: "cl-n", Side: model.SideLeft, StreetName: "North Road", Centerline: cl},
		{CenterlineID: "cl-n", Side: model.SideRight, StreetName: "North Road", Centerline: cl},
	}).Build("run-7")

	// About 40m west of the centerline midpoint.
	near := snap.Near(10-0.00072, 60.0005, 50)
	assert.Len(t, near, 2)

	none := snap.Near(10-0.0018, 60.0005, 50) // about 100m west
	assert.Empty(t, none)
}

func TestHolderPublish(t *testing.T) {
	h := &Holder{}
	assert.Nil(t, h.Current())

	first := NewBuilder(testSegments()).Build("run-5")
	h.Publish(first)
	assert.Same(t, first, h.Current())

	second := NewBuilder(testSegments()).Build("run-6")
	h.Publish(second)
	assert.Same(t, second, h.Current())
}
