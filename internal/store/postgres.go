package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/opencurb/curb-cli/internal/db"
	"github.com/opencurb/curb-cli/internal/model"
	"github.com/opencurb/curb-cli/pkg/interpret"
)

// PostgresStore implements Store against a pgx pool. Segments are written
// with COPY into the curb schema.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE SCHEMA IF NOT EXISTS curb;

CREATE TABLE IF NOT EXISTS curb.snapshot_runs (
	run_id        TEXT PRIMARY KEY,
	built_at      TIMESTAMPTZ NOT NULL,
	segment_count INTEGER NOT NULL DEFAULT 0,
	complete      BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS curb.segments (
	run_id        TEXT NOT NULL REFERENCES curb.snapshot_runs(run_id),
	centerline_id TEXT NOT NULL,
	side          TEXT NOT NULL,
	street_name   TEXT NOT NULL,
	from_street   TEXT,
	to_street     TEXT,
	addr_from     INTEGER,
	addr_to       INTEGER,
	centerline    BYTEA NOT NULL,
	curb_line     BYTEA,
	rules         JSONB NOT NULL,
	meters        JSONB NOT NULL,
	PRIMARY KEY (run_id, centerline_id, side)
);

CREATE INDEX IF NOT EXISTS idx_curb_segments_run ON curb.segments(run_id);
CREATE INDEX IF NOT EXISTS idx_curb_segments_street ON curb.segments(street_name);

CREATE TABLE IF NOT EXISTS curb.interpretations (
	interpret_key TEXT PRIMARY KEY,
	summary       TEXT NOT NULL,
	confidence    DOUBLE PRECISION NOT NULL
);
`

var segmentColumns = []string{
	"run_id", "centerline_id", "side", "street_name", "from_street", "to_street",
	"addr_from", "addr_to", "centerline", "curb_line", "rules", "meters",
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveSnapshot(ctx context.Context, runID string, builtAt time.Time, segments []*model.StreetSegment) error {
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO curb.snapshot_runs (run_id, built_at, segment_count, complete) VALUES ($1, $2, $3, FALSE)`,
		runID, builtAt.UTC(), len(segments),
	); err != nil {
		return eris.Wrapf(err, "postgres: insert run %s", runID)
	}

	rows := make([][]any, 0, len(segments))
	for _, seg := range segments {
		row, err := encodeSegment(seg)
		if err != nil {
			return err
		}
		rows = append(rows, []any{
			runID, row.CenterlineID, row.Side, row.StreetName, row.FromStreet, row.ToStreet,
			row.AddrFrom, row.AddrTo, row.Centerline, row.CurbLine, row.Rules, row.Meters,
		})
	}

	if _, err := db.CopyFromSchema(ctx, s.pool, "curb", "segments", segmentColumns, rows); err != nil {
		return err
	}

	if _, err := s.pool.Exec(ctx,
		`UPDATE curb.snapshot_runs SET complete = TRUE WHERE run_id = $1`, runID,
	); err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	return nil
}

func (s *PostgresStore) LoadLatest(ctx context.Context) ([]*model.StreetSegment, string, error) {
	var runID string
	err := s.pool.QueryRow(ctx,
		`SELECT run_id FROM curb.snapshot_runs WHERE complete ORDER BY built_at DESC LIMIT 1`,
	).Scan(&runID)
	if eris.Is(err, pgx.ErrNoRows) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", eris.Wrap(err, "postgres: latest run")
	}

	rows, err := s.pool.Query(ctx, `
		SELECT centerline_id, side, street_name, from_street, to_street,
		       addr_from, addr_to, centerline, curb_line, rules, meters
		FROM curb.segments WHERE run_id = $1`, runID)
	if err != nil {
		return nil, "", eris.Wrapf(err, "postgres: load run %s", runID)
	}
	defer rows.Close()

	var segments []*model.StreetSegment
	for rows.Next() {
		var row segmentRow
		if err := rows.Scan(
			&row.CenterlineID, &row.Side, &row.StreetName, &row.FromStreet, &row.ToStreet,
			&row.AddrFrom, &row.AddrTo, &row.Centerline, &row.CurbLine, &row.Rules, &row.Meters,
		); err != nil {
			return nil, "", eris.Wrap(err, "postgres: scan segment")
		}
		seg, err := decodeSegment(row)
		if err != nil {
			return nil, "", err
		}
		segments = append(segments, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, "", eris.Wrap(err, "postgres: iterate segments")
	}
	return segments, runID, nil
}

func (s *PostgresStore) SaveInterpretations(ctx context.Context, entries map[string]*interpret.Interpretation) error {
	for key, in := range entries {
		if _, err := s.pool.Exec(ctx, `
			INSERT INTO curb.interpretations (interpret_key, summary, confidence)
			VALUES ($1, $2, $3)
			ON CONFLICT (interpret_key) DO UPDATE SET
				summary = EXCLUDED.summary, confidence = EXCLUDED.confidence`,
			key, in.Summary, in.Confidence,
		); err != nil {
			return eris.Wrapf(err, "postgres: upsert interpretation %s", key)
		}
	}
	return nil
}

func (s *PostgresStore) LoadInterpretations(ctx context.Context) (map[string]*interpret.Interpretation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT interpret_key, summary, confidence FROM curb.interpretations`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load interpretations")
	}
	defer rows.Close()

	entries := make(map[string]*interpret.Interpretation)
	for rows.Next() {
		var key string
		var in interpret.Interpretation
		if err := rows.Scan(&key, &in.Summary, &in.Confidence); err != nil {
			return nil, eris.Wrap(err, "postgres: scan interpretation")
		}
		entries[key] = &in
	}
	return entries, eris.Wrap(rows.Err(), "postgres: iterate interpretations")
}

func (s *PostgresStore) ListRuns(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT run_id, built_at, segment_count, complete FROM curb.snapshot_runs ORDER BY built_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var r RunInfo
		if err := rows.Scan(&r.RunID, &r.BuiltAt, &r.SegmentCount, &r.Complete); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate runs")
}
