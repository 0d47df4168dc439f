package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chTempDir(t *testing.T) string {
	t.Helper()
	// Change to temp dir so no config.yaml is found
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "curb.db", cfg.Store.Path)
	assert.Equal(t, "data", cfg.Datasets.DataDir)
	assert.InDelta(t, 8.0, cfg.Ingest.ClearMeters, 0.001)
	assert.InDelta(t, 15.0, cfg.Ingest.BoundaryMeters, 0.001)
	assert.InDelta(t, 30.0, cfg.Ingest.SearchRadiusMeters, 0.001)
	assert.Equal(t, 8, cfg.Ingest.Concurrency)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Interpret.Model)
	assert.InDelta(t, 2.0, cfg.Interpret.RPS, 0.001)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chTempDir(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/curb
datasets:
  centerlines: data/centerlines.shp
ingest:
  clear_meters: 6.0
  concurrency: 2
log:
  level: debug
  format: console
server:
  port: 9090
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/curb", cfg.Store.DatabaseURL)
	assert.Equal(t, "data/centerlines.shp", cfg.Datasets.Centerlines)
	assert.InDelta(t, 6.0, cfg.Ingest.ClearMeters, 0.001)
	assert.Equal(t, 2, cfg.Ingest.Concurrency)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	// Defaults still apply for unset values
	assert.InDelta(t, 15.0, cfg.Ingest.BoundaryMeters, 0.001)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chTempDir(t)

	yaml := `
store:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("CURB_STORE_DRIVER", "postgres")
	t.Setenv("CURB_LOG_LEVEL", "warn")

	cfg, err := Load()
	require.NoError(t, err)

	// Env overrides file
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoadEnvOverridesDefaults(t *testing.T) {
	chTempDir(t)

	t.Setenv("CURB_SERVER_PORT", "3000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Server.Port)
}

// validDefaults returns a Config with the defaults needed by validation tests.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Store.Path = "curb.db"
	cfg.Datasets.DataDir = "data"
	cfg.Ingest.ClearMeters = 8
	cfg.Ingest.BoundaryMeters = 15
	cfg.Ingest.SearchRadiusMeters = 30
	cfg.Ingest.Concurrency = 8
	cfg.Server.Port = 8080
	return cfg
}

func TestValidateIngest(t *testing.T) {
	cfg := validDefaults()
	cfg.Datasets.Centerlines = "data/centerlines.shp"
	cfg.Datasets.Regulations = "data/regulations.geojson"

	assert.NoError(t, cfg.Validate("ingest"))
}

func TestValidateIngestMissingDatasets(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate("ingest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "datasets.centerlines is required")
	assert.Contains(t, err.Error(), "datasets.regulations is required")
}

func TestValidateIngestDistanceOrdering(t *testing.T) {
	cfg := validDefaults()
	cfg.Datasets.Centerlines = "a.shp"
	cfg.Datasets.Regulations = "b.geojson"
	cfg.Ingest.BoundaryMeters = 5

	err := cfg.Validate("ingest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clear_meters < boundary_meters < search_radius_meters")
}

func TestValidateIngestConcurrencyBounds(t *testing.T) {
	cfg := validDefaults()
	cfg.Datasets.Centerlines = "a.shp"
	cfg.Datasets.Regulations = "b.geojson"

	cfg.Ingest.Concurrency = 0
	err := cfg.Validate("ingest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "concurrency must be between 1 and 64")

	cfg.Ingest.Concurrency = 65
	assert.Error(t, cfg.Validate("ingest"))

	cfg.Ingest.Concurrency = 64
	assert.NoError(t, cfg.Validate("ingest"))
}

func TestValidateServeInvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.port")
}

func TestValidatePostgresNeedsURL(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "postgres"

	err := cfg.Validate("serve")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")

	cfg.Store.DatabaseURL = "postgres://localhost/curb"
	assert.NoError(t, cfg.Validate("serve"))
}

func TestValidateFetch(t *testing.T) {
	cfg := validDefaults()
	assert.NoError(t, cfg.Validate("fetch"))

	cfg.Datasets.DataDir = ""
	err := cfg.Validate("fetch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "datasets.data_dir is required")
}

func TestValidateUnknownMode(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}
