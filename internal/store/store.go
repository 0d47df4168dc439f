// Package store persists finished segment snapshots. Snapshots are
// versioned by run id and written transactionally: a run only becomes
// loadable once every segment row is committed, so readers never observe a
// half-joined snapshot.
package store

import (
	"context"
	"time"

	"github.com/opencurb/curb-cli/internal/model"
	"github.com/opencurb/curb-cli/pkg/interpret"
)

// RunInfo summarizes one persisted ingestion run.
type RunInfo struct {
	RunID        string    `json:"run_id"`
	BuiltAt      time.Time `json:"built_at"`
	SegmentCount int       `json:"segment_count"`
	Complete     bool      `json:"complete"`
}

// Store is the persistence interface for segment snapshots.
type Store interface {
	// SaveSnapshot writes all segments under the given run id and marks the
	// run complete only after every row is in.
	SaveSnapshot(ctx context.Context, runID string, builtAt time.Time, segments []*model.StreetSegment) error

	// LoadLatest returns the segments of the most recent complete run.
	// A store with no complete runs returns an empty slice and run id "".
	LoadLatest(ctx context.Context) ([]*model.StreetSegment, string, error)

	// ListRuns returns persisted runs, newest first.
	ListRuns(ctx context.Context) ([]RunInfo, error)

	// SaveInterpretations upserts annotator output keyed by canonical
	// interpretation key. Keys are content-addressed, so entries survive
	// across runs and are never tied to a run id.
	SaveInterpretations(ctx context.Context, entries map[string]*interpret.Interpretation) error

	// LoadInterpretations returns every persisted interpretation.
	LoadInterpretations(ctx context.Context) (map[string]*interpret.Interpretation, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
