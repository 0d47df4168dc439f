package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/opencurb/curb-cli/internal/model"
	"github.com/opencurb/curb-cli/pkg/interpret"
)

// SQLiteStore implements Store using modernc.org/sqlite, for local runs.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS snapshot_runs (
	run_id        TEXT PRIMARY KEY,
	built_at      DATETIME NOT NULL,
	segment_count INTEGER NOT NULL DEFAULT 0,
	complete      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS segments (
	run_id        TEXT NOT NULL REFERENCES snapshot_runs(run_id),
	centerline_id TEXT NOT NULL,
	side          TEXT NOT NULL,
	street_name   TEXT NOT NULL,
	from_street   TEXT,
	to_street     TEXT,
	addr_from     INTEGER,
	addr_to       INTEGER,
	centerline    BLOB NOT NULL,
	curb_line     BLOB,
	rules         TEXT NOT NULL,
	meters        TEXT NOT NULL,
	PRIMARY KEY (run_id, centerline_id, side)
);

CREATE INDEX IF NOT EXISTS idx_segments_run_id ON segments(run_id);
CREATE INDEX IF NOT EXISTS idx_segments_street ON segments(street_name);

CREATE TABLE IF NOT EXISTS interpretations (
	interpret_key TEXT PRIMARY KEY,
	summary       TEXT NOT NULL,
	confidence    REAL NOT NULL
);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, runID string, builtAt time.Time, segments []*model.StreetSegment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO snapshot_runs (run_id, built_at, segment_count, complete) VALUES (?, ?, ?, 0)`,
		runID, builtAt.UTC(), len(segments),
	); err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", runID)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO segments
			(run_id, centerline_id, side, street_name, from_street, to_street,
			 addr_from, addr_to, centerline, curb_line, rules, meters)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close()

	for _, seg := range segments {
		row, err := encodeSegment(seg)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			runID, row.CenterlineID, row.Side, row.StreetName,
			row.FromStreet, row.ToStreet, row.AddrFrom, row.AddrTo,
			row.Centerline, row.CurbLine, string(row.Rules), string(row.Meters),
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert segment %s/%s", row.CenterlineID, row.Side)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE snapshot_runs SET complete = 1 WHERE run_id = ?`, runID,
	); err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit snapshot")
}

func (s *SQLiteStore) LoadLatest(ctx context.Context) ([]*model.StreetSegment, string, error) {
	var runID string
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id FROM snapshot_runs WHERE complete = 1 ORDER BY built_at DESC LIMIT 1`,
	).Scan(&runID)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", eris.Wrap(err, "sqlite: latest run")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT centerline_id, side, street_name, from_street, to_street,
		       addr_from, addr_to, centerline, curb_line, rules, meters
		FROM segments WHERE run_id = ?`, runID)
	if err != nil {
		return nil, "", eris.Wrapf(err, "sqlite: load run %s", runID)
	}
	defer rows.Close()

	var segments []*model.StreetSegment
	for rows.Next() {
		var row segmentRow
		var rules, meters string
		if err := rows.Scan(
			&row.CenterlineID, &row.Side, &row.StreetName, &row.FromStreet, &row.ToStreet,
			&row.AddrFrom, &row.AddrTo, &row.Centerline, &row.CurbLine, &rules, &meters,
		); err != nil {
			return nil, "", eris.Wrap(err, "sqlite: scan segment")
		}
		row.Rules = []byte(rules)
		row.Meters = []byte(meters)

		seg, err := decodeSegment(row)
		if err != nil {
			return nil, "", err
		}
		segments = append(segments, seg)
	}
	if err := rows.Err(); err != nil {
		return nil, "", eris.Wrap(err, "sqlite: iterate segments")
	}
	return segments, runID, nil
}

func (s *SQLiteStore) SaveInterpretations(ctx context.Context, entries map[string]*interpret.Interpretation) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO interpretations (interpret_key, summary, confidence)
		VALUES (?, ?, ?)
		ON CONFLICT(interpret_key) DO UPDATE SET
			summary = excluded.summary, confidence = excluded.confidence`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare interpretation upsert")
	}
	defer stmt.Close()

	for key, in := range entries {
		if _, err := stmt.ExecContext(ctx, key, in.Summary, in.Confidence); err != nil {
			return eris.Wrapf(err, "sqlite: upsert interpretation %s", key)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit interpretations")
}

func (s *SQLiteStore) LoadInterpretations(ctx context.Context) (map[string]*interpret.Interpretation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT interpret_key, summary, confidence FROM interpretations`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load interpretations")
	}
	defer rows.Close()

	entries := make(map[string]*interpret.Interpretation)
	for rows.Next() {
		var key string
		var in interpret.Interpretation
		if err := rows.Scan(&key, &in.Summary, &in.Confidence); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan interpretation")
		}
		entries[key] = &in
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: iterate interpretations")
}

func (s *SQLiteStore) ListRuns(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, built_at, segment_count, complete FROM snapshot_runs ORDER BY built_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var r RunInfo
		if err := rows.Scan(&r.RunID, &r.BuiltAt, &r.SegmentCount, &r.Complete); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}
