package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/succession/config"
)

// OutputManager writes run output: the succession summary log, the
// timestep performance log, ANPP maps and the config snapshot.
type OutputManager struct {
	dir         string
	summaryFile *os.File
	perfFile    *os.File

	// Track if headers have been written
	summaryHeaderWritten bool
	perfHeaderWritten    bool
}

// NewOutputManager creates the output directory and opens the logs.
// Returns nil if dir is empty (output disabled); every method is a no-op on
// a nil manager.
func NewOutputManager(dir, summaryName string) (*OutputManager, error) {
	if dir == "" {
		return nil, nil
	}
	if summaryName == "" {
		summaryName = "Biomass-succession-log.csv"
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	om := &OutputManager{dir: dir}

	f, err := os.Create(filepath.Join(dir, summaryName))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", summaryName, err)
	}
	om.summaryFile = f

	f, err = os.Create(filepath.Join(dir, "perf.csv"))
	if err != nil {
		om.summaryFile.Close()
		return nil, fmt.Errorf("creating perf.csv: %w", err)
	}
	om.perfFile = f

	return om, nil
}

// WriteConfig saves the effective configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// WriteSummary appends summary rows to the succession log.
func (om *OutputManager) WriteSummary(rows []SummaryRow) error {
	if om == nil || len(rows) == 0 {
		return nil
	}
	if err := writeRows(om.summaryFile, rows, &om.summaryHeaderWritten); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	return nil
}

// WritePerf appends a performance record to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, year int) error {
	if om == nil {
		return nil
	}
	if err := writeRows(om.perfFile, []PerfStatsCSV{stats.ToCSV(year)}, &om.perfHeaderWritten); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// writeRows marshals rows with a header the first time only.
func writeRows[T any](f *os.File, rows []T, headerWritten *bool) error {
	if !*headerWritten {
		if err := gocsv.Marshal(rows, f); err != nil {
			return err
		}
		*headerWritten = true
		return nil
	}
	return gocsv.MarshalWithoutHeaders(rows, f)
}

// ANPPMapPath returns the path of the ANPP map for a timestep.
func (om *OutputManager) ANPPMapPath(year int) string {
	return filepath.Join(om.dir, fmt.Sprintf("biomass-anpp-%d.png", year))
}

// WriteANPPMap writes the 16-bit ANPP map for a timestep and, when heatmap
// is set, a plotted preview next to it.
func (om *OutputManager) WriteANPPMap(grid *ANPPGrid, year int, heatmap bool) error {
	if om == nil {
		return nil
	}
	if err := grid.WritePNG(om.ANPPMapPath(year)); err != nil {
		return err
	}
	if heatmap {
		return grid.WriteHeatmap(filepath.Join(om.dir, fmt.Sprintf("biomass-anpp-%d-heatmap.png", year)), year)
	}
	return nil
}

// WriteSnapshot saves a landscape snapshot into the output directory.
func (om *OutputManager) WriteSnapshot(snap *Snapshot) (string, error) {
	if om == nil {
		return "", nil
	}
	return SaveSnapshot(snap, om.dir)
}

// Dir returns the output directory path.
func (om *OutputManager) Dir() string {
	if om == nil {
		return ""
	}
	return om.dir
}

// Close flushes and closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}

	var firstErr error
	for _, f := range []*os.File{om.summaryFile, om.perfFile} {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
