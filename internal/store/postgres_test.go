package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/opencurb/curb-cli/pkg/interpret"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestPostgresMigrate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("CREATE SCHEMA IF NOT EXISTS curb").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	s := NewPostgres(mock)
	assert.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveSnapshot(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	segments := sampleSegments()
	built := time.Date(2026, time.March, 3, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO curb.snapshot_runs").
		WithArgs("run-1", built, len(segments)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCopyFrom(pgx.Identifier{"curb", "segments"}, segmentColumns).
		WillReturnResult(int64(len(segments)))
	mock.ExpectExec("UPDATE curb.snapshot_runs SET complete").
		WithArgs("run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	s := NewPostgres(mock)
	require.NoError(t, s.SaveSnapshot(context.Background(), "run-1", built, segments))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLoadLatestEmpty(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT run_id FROM curb.snapshot_runs").
		WillReturnError(pgx.ErrNoRows)

	s := NewPostgres(mock)
	segments, runID, err := s.LoadLatest(context.Background())
	require.NoError(t, err)
	assert.Empty(t, segments)
	assert.Empty(t, runID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLoadLatest(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	seg := sampleSegments()[0]
	row, err := encodeSegment(seg)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT run_id FROM curb.snapshot_runs").
		WillReturnRows(pgxmock.NewRows([]string{"run_id"}).AddRow("run-1"))
	mock.ExpectQuery("SELECT centerline_id, side, street_name").
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"centerline_id", "side", "street_name", "from_street", "to_street",
			"addr_from", "addr_to", "centerline", "curb_line", "rules", "meters",
		}).AddRow(
			row.CenterlineID, row.Side, row.StreetName, row.FromStreet, row.ToStreet,
			row.AddrFrom, row.AddrTo, row.Centerline, row.CurbLine, row.Rules, row.Meters,
		))

	s := NewPostgres(mock)
	segments, runID, err := s.LoadLatest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "run-1", runID)
	require.Len(t, segments, 1)
	assert.Equal(t, seg.CenterlineID, segments[0].CenterlineID)
	assert.Equal(t, seg.StreetName, segments[0].StreetName)
	require.Len(t, segments[0].Rules, 1)
	assert.Equal(t, seg.Rules[0].Kind, segments[0].Rules[0].Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSaveInterpretations(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO curb.interpretations").
		WithArgs("key-1", "no parking during sweeping", 0.9).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	s := NewPostgres(mock)
	require.NoError(t, s.SaveInterpretations(context.Background(), map[string]*interpret.Interpretation{
		"key-1": {Summary: "no parking during sweeping", Confidence: 0.9},
	}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresLoadInterpretations(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT interpret_key, summary, confidence FROM curb.interpretations").
		WillReturnRows(pgxmock.NewRows([]string{"interpret_key", "summary", "confidence"}).
			AddRow("key-1", "no parking during sweeping", 0.9))

	s := NewPostgres(mock)
	entries, err := s.LoadInterpretations(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "no parking during sweeping", entries["key-1"].Summary)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListRuns(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	built := time.Date(2026, time.March, 3, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT run_id, built_at, segment_count, complete").
		WillReturnRows(pgxmock.NewRows([]string{"run_id", "built_at", "segment_count", "complete"}).
			AddRow("run-1", built, 2, true))

	s := NewPostgres(mock)
	runs, err := s.ListRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].RunID)
	assert.True(t, runs[0].Complete)
	assert.NoError(t, mock.ExpectationsWereMet())
}
