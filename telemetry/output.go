package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/evolve/config"
)

// OutputManager writes run output: CSV logs plus a config snapshot.
// A nil *OutputManager is valid and discards everything.
type OutputManager struct {
	dir            string
	generationFile *os.File
	perfFile       *os.File
	phenotypeFile  *os.File

	generationHeaderWritten bool
	perfHeaderWritten       bool
	phenotypeHeaderWritten  bool
}

// NewOutputManager creates the output directory and its CSV files.
// Returns nil if dir is empty (output disabled).
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
		dst  **os.File
	}{
		{"generations.csv", &om.generationFile},
		{"perf.csv", &om.perfFile},
		{"phenotypes.csv", &om.phenotypeFile},
	}
	for _, f := range files {
		fh, err := os.Create(filepath.Join(dir, f.name))
		if err != nil {
			om.Close()
			return nil, fmt.Errorf("creating %s: %w", f.name, err)
		}
		*f.dst = fh
	}
	return om, nil
}

// WriteConfig saves the configuration as YAML.
func (om *OutputManager) WriteConfig(cfg *config.Config) error {
	if om == nil {
		return nil
	}
	return cfg.WriteYAML(filepath.Join(om.dir, "config.yaml"))
}

// writeCSV marshals records, emitting the header only on the first call.
func writeCSV(f *os.File, headerWritten *bool, records any) error {
	if !*headerWritten {
		if err := gocsv.Marshal(records, f); err != nil {
			return err
		}
		*headerWritten = true
		return nil
	}
	return gocsv.MarshalWithoutHeaders(records, f)
}

// WriteGeneration appends a row to generations.csv.
func (om *OutputManager) WriteGeneration(stats GenerationStats) error {
	if om == nil {
		return nil
	}
	if err := writeCSV(om.generationFile, &om.generationHeaderWritten, []GenerationStats{stats}); err != nil {
		return fmt.Errorf("writing generation stats: %w", err)
	}
	return nil
}

// WritePerf appends a row to perf.csv.
func (om *OutputManager) WritePerf(stats PerfStats, generation int, scope string) error {
	if om == nil {
		return nil
	}
	records := []PerfStatsCSV{stats.ToCSV(generation, scope)}
	if err := writeCSV(om.perfFile, &om.perfHeaderWritten, records); err != nil {
		return fmt.Errorf("writing perf: %w", err)
	}
	return nil
}

// WritePhenotypes appends census rows to phenotypes.csv.
func (om *OutputManager) WritePhenotypes(groups []Phenotype) error {
	if om == nil || len(groups) == 0 {
		return nil
	}
	if err := writeCSV(om.phenotypeFile, &om.phenotypeHeaderWritten, groups); err != nil {
		return fmt.Errorf("writing phenotypes: %w", err)
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

// Close closes all output files.
func (om *OutputManager) Close() error {
	if om == nil {
		return nil
	}
	var firstErr error
	for _, f := range []*os.File{om.generationFile, om.perfFile, om.phenotypeFile} {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
