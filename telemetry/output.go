package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/pthm-cable/organoid/config"
)

// HistoryRow is one recorded observation of one cell.
type HistoryRow struct {
	Step  int     `csv:"step"`
	Cell  int     `csv:"cell"`
	Kind  string  `csv:"kind"`
	Value float64 `csv:"value"`
	Label string  `csv:"label"`
}

// csvFile is an output file whose header is written with the first batch.
type csvFile struct {
	f             *os.File
	headerWritten bool
}

func write[T any](cf *csvFile, records []T) error {
	if len(records) == 0 {
		return nil
	}
	if !cf.headerWritten {
		if err := gocsv.Marshal(records, cf.f); err != nil {
			return err
		}
		cf.headerWritten = true
		return nil
	}
	return gocsv.MarshalWithoutHeaders(records, cf.f)
}

// OutputManager handles run output: history.csv, stats.csv, perf.csv and config.yaml.
type OutputManager struct {
	dir     string
	history csvFile
	stats   csvFile
	perf    csvFile
}

// NewOutputManager creates the output directory and its CSV files.
// Returns nil if dir is empty (output disabled). All methods accept a nil receiver.
func NewOutputManager(dir string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}
	files := []struct {
		name string
		dst  *csvFile
	}{
		{"history.csv", &om.history},
		{"stats.csv", &om.stats},
		{"perf.csv", &om.perf},
	}
	for _, file := range files {
		f, err := os.Create(filepath.Join(dir, file.name))
		if err != nil {
			om.Close()
			return nil, fmt.Errorf("creating %s: %w", file.name, err)
		}
		file.dst.f = f
	}
	return om, nil
}

// WriteConfig saves the effective configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteHistory appends observation rows to history.csv.
func (om *OutputManager) WriteHistory(rows []HistoryRow) error {
	if om == nil {
		return nil
	}
	if err := write(&om.history, rows); err != nil {
		return fmt.Errorf("writing history: %w", err)
	}
	return nil
}

// WriteStats appends a stats record to stats.csv.
func (om *OutputManager) WriteStats(s StepStats) error {
	if om == nil {
		return nil
	}
	if err := write(&om.stats, []StepStats{s}); err != nil {
		return fmt.Errorf("writing stats: %w", err)
	}
	return nil
}

// WritePerf appends a performance record to perf.csv.
func (om *OutputManager) WritePerf(s PerfStats, windowEnd int) error {
	if om == nil {
		return nil
	}
	if err := write(&om.perf, []PerfStatsCSV{s.ToCSV(windowEnd)}); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close closes all output files and returns the first error.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	var firstErr error
	for _, cf := range []*csvFile{&om.history, &om.stats, &om.perf} {
		if cf.f == nil {
			continue
		}
		if err := cf.f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		cf.f = nil
	}
	return firstErr
}
