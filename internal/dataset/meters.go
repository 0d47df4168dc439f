package dataset

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/opencurb/curb-cli/internal/model"
	"github.com/opencurb/curb-cli/internal/normalize"
)

// LoadMeters reads meter rate schedules from an XLSX workbook or a CSV
// file, selected by extension. Expected columns: centerline_id, hourly_rate,
// days, hours.
func LoadMeters(path string) ([]model.MeterSchedule, error) {
	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err = readXLSX(path)
	case ".csv":
		rows, err = readCSV(path)
	default:
		return nil, eris.Errorf("dataset: unsupported meter file %s", path)
	}
	if err != nil {
		return nil, err
	}

	var meters []model.MeterSchedule
	var skipped int
	for i, row := range rows {
		if i == 0 {
			continue // header
		}
		parsed, err := parseMeterRow(row)
		if err != nil {
			skipped++
			zap.L().Debug("dataset: skipped meter row", zap.Int("row", i), zap.Error(err))
			continue
		}
		meters = append(meters, parsed...)
	}

	if skipped > 0 {
		zap.L().Warn("dataset: skipped meter rows",
			zap.String("path", path), zap.Int("skipped", skipped))
	}
	return meters, nil
}

// parseMeterRow parses one schedule row. An overnight hour span yields one
// schedule per split window.
func parseMeterRow(row []string) ([]model.MeterSchedule, error) {
	if len(row) < 2 {
		return nil, eris.New("dataset: short meter row")
	}
	id := strings.TrimSpace(row[0])
	if id == "" {
		return nil, eris.New("dataset: meter row missing centerline id")
	}
	rate, err := strconv.ParseFloat(strings.TrimPrefix(strings.TrimSpace(row[1]), "$"), 64)
	if err != nil || rate < 0 {
		return nil, eris.Errorf("dataset: bad meter rate %q", row[1])
	}

	days := model.Daily
	var windows []*model.Window
	if len(row) > 2 {
		if days, err = normalize.ParseDays(row[2]); err != nil {
			return nil, err
		}
	}
	if len(row) > 3 {
		if windows, err = normalize.ParseHours(row[3]); err != nil {
			return nil, err
		}
	}

	base := model.MeterSchedule{CenterlineID: id, HourlyRate: rate, Days: days}
	if len(windows) == 0 {
		return []model.MeterSchedule{base}, nil
	}
	schedules := make([]model.MeterSchedule, 0, len(windows))
	for _, w := range windows {
		m := base
		m.Window = w
		schedules = append(schedules, m)
	}
	return schedules, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open xlsx %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("dataset: %s has no sheets", path)
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open csv %s", path)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: parse csv %s", path)
	}
	return rows, nil
}
