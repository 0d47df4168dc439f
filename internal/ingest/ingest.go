// Package ingest runs one ingestion pass: load the surveyed datasets, join
// every regulation to its segments, and publish the finished snapshot. A
// failed run is abandoned wholesale; a half-joined snapshot is worse than no
// snapshot.
package ingest

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/opencurb/curb-cli/internal/address"
	"github.com/opencurb/curb-cli/internal/dataset"
	"github.com/opencurb/curb-cli/internal/join"
	"github.com/opencurb/curb-cli/internal/model"
	"github.com/opencurb/curb-cli/internal/snapshot"
	"github.com/opencurb/curb-cli/internal/store"
	"github.com/opencurb/curb-cli/pkg/interpret"
)

// Options configures one ingestion run.
type Options struct {
	CenterlinesPath string
	RegulationsPath string
	ParcelsPath     string // optional, boundary ties go unresolved without it
	MetersPath      string // optional

	Thresholds  join.Thresholds
	Concurrency int
	ManifestDir string // optional yaml sidecar location

	// Annotator, when non-nil, warms the interpretation cache for every
	// distinct regulation tuple during the run.
	Annotator interpret.Annotator
	Cache     *interpret.Cache
}

// Result summarizes a completed run.
type Result struct {
	RunID       string        `yaml:"run_id"`
	BuiltAt     time.Time     `yaml:"built_at"`
	Segments    int           `yaml:"segments"`
	Regulations int           `yaml:"regulations"`
	Attached    int64         `yaml:"attached"`
	Unmatched   int64         `yaml:"unmatched"`
	Meters      int           `yaml:"meters"`
	Duration    time.Duration `yaml:"duration"`

	Snapshot *snapshot.Snapshot `yaml:"-"`
}

// Run executes one ingestion pass and persists the snapshot through st.
// On any error nothing is persisted or published.
func Run(ctx context.Context, opts Options, st store.Store) (*Result, error) {
	start := time.Now()
	runID := uuid.New().String()
	log := zap.L().With(zap.String("run_id", runID))

	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if opts.Thresholds == (join.Thresholds{}) {
		opts.Thresholds = join.DefaultThresholds()
	}

	in, err := loadInputs(ctx, opts)
	if err != nil {
		return nil, err
	}
	log.Info("datasets loaded",
		zap.Int("centerlines", len(in.centerlines)),
		zap.Int("regulations", len(in.regulations)),
		zap.Int("parcels", len(in.parcels)),
		zap.Int("meters", len(in.meters)),
	)

	segments := dataset.Segments(in.centerlines)
	builder := snapshot.NewBuilder(segments)
	matcher := address.NewMatcher(segments)
	engine := join.NewEngine(segments, in.parcels, opts.Thresholds)

	var attached, unmatched atomic.Int64

	// The join of one regulation touches no shared mutable state; the
	// builder serializes attachment internally.
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for _, reg := range in.regulations {
		reg := reg
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			n := joinOne(engine, matcher, builder, reg)
			if n == 0 {
				unmatched.Add(1)
			} else {
				attached.Add(int64(n))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "ingest: join phase")
	}

	for _, m := range in.meters {
		builder.AttachMeter(m)
	}

	if opts.Annotator != nil && opts.Cache != nil {
		opts.Cache.Warm(ctx, opts.Annotator, in.interpretReqs)
		log.Info("interpretation cache warmed", zap.Int("entries", opts.Cache.Len()))
	}

	snap := builder.Build(runID)

	if st != nil {
		if err := st.SaveSnapshot(ctx, runID, snap.BuiltAt, snap.Segments()); err != nil {
			return nil, err
		}
		// Warmed interpretations must outlive the process: serve reloads
		// them from the store, and a lost entry is a paid annotator call
		// repeated on the next run.
		if opts.Cache != nil && opts.Cache.Len() > 0 {
			if err := st.SaveInterpretations(ctx, opts.Cache.Entries()); err != nil {
				return nil, err
			}
		}
	}

	res := &Result{
		RunID:       runID,
		BuiltAt:     snap.BuiltAt,
		Segments:    snap.Len(),
		Regulations: len(in.regulations),
		Attached:    attached.Load(),
		Unmatched:   unmatched.Load(),
		Meters:      len(in.meters),
		Duration:    time.Since(start),
		Snapshot:    snap,
	}

	if opts.ManifestDir != "" {
		if err := writeManifest(opts.ManifestDir, res); err != nil {
			// The snapshot itself is already safe; a manifest failure is
			// not worth abandoning the run.
			log.Warn("ingest: manifest write failed", zap.Error(err))
		}
	}

	log.Info("ingestion complete",
		zap.Int("segments", res.Segments),
		zap.Int64("attached", res.Attached),
		zap.Int64("unmatched", res.Unmatched),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

// joinOne attaches one regulation, preferring address-range matching over
// geometry. Returns the number of attachments made.
func joinOne(engine *join.Engine, matcher *address.Matcher, builder *snapshot.Builder, reg *model.Regulation) int {
	if reg.HasAddress() {
		if seg := matcher.Match(reg.StreetName, reg.AddressNumber); seg != nil {
			builder.Attach(seg.Key(), reg.Rule(model.ConfidenceAddressMatched))
			return 1
		}
		// No interval contains the address: fall back to geometry silently.
	}

	attachments := engine.Join(reg)
	for _, a := range attachments {
		builder.Attach(a.Segment.Key(), reg.Rule(a.Confidence))
	}
	return len(attachments)
}

// inputs holds the in-memory datasets for one run. Everything is loaded
// before the join phase begins; the join itself does no I/O.
type inputs struct {
	centerlines   []dataset.CenterlineRecord
	regulations   []*model.Regulation
	parcels       []*model.Parcel
	meters        []model.MeterSchedule
	interpretReqs []interpret.Request
}

func loadInputs(ctx context.Context, opts Options) (*inputs, error) {
	in := &inputs{}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		in.centerlines, err = dataset.LoadCenterlines(opts.CenterlinesPath)
		return err
	})
	g.Go(func() error {
		set, err := dataset.LoadRegulations(opts.RegulationsPath)
		if err != nil {
			return err
		}
		in.regulations = set.Regulations
		in.interpretReqs = set.InterpretReqs
		return nil
	})
	if opts.ParcelsPath != "" {
		g.Go(func() error {
			var err error
			in.parcels, err = dataset.LoadParcels(opts.ParcelsPath)
			return err
		})
	}
	if opts.MetersPath != "" {
		g.Go(func() error {
			var err error
			in.meters, err = dataset.LoadMeters(opts.MetersPath)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "ingest: load datasets")
	}
	if len(in.centerlines) == 0 {
		return nil, eris.New("ingest: no centerlines loaded")
	}
	return in, nil
}

func writeManifest(dir string, res *Result) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "ingest: create manifest dir")
	}
	data, err := yaml.Marshal(res)
	if err != nil {
		return eris.Wrap(err, "ingest: marshal manifest")
	}
	path := filepath.Join(dir, res.RunID+".yaml")
	return eris.Wrapf(os.WriteFile(path, data, 0o644), "ingest: write %s", path)
}
