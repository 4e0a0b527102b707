package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// GenerationStats holds the outcome of one generation.
type GenerationStats struct {
	Generation    int     `csv:"generation"`
	Population    int     `csv:"population"`
	Survivors     int     `csv:"survivors"`
	SurvivalRatio float64 `csv:"survival_ratio"`

	// Move outcomes over all steps of the generation
	Moves     int `csv:"moves"`
	Blocked   int `csv:"blocked"`
	Bullied   int `csv:"bullied"`
	Swapped   int `csv:"swapped"`
	Kills     int `csv:"kills"`
	Reversals int `csv:"reversals"`

	// Genome shape across the population at generation start
	GenesMean  float64 `csv:"genes_mean"`
	GenesStd   float64 `csv:"genes_std"`
	GenesP10   float64 `csv:"genes_p10"`
	GenesP50   float64 `csv:"genes_p50"`
	GenesP90   float64 `csv:"genes_p90"`
	RelaysMean float64 `csv:"relays_mean"`

	// Distinct fingerprints among survivors
	Phenotypes int `csv:"phenotypes"`

	DurationMS int64 `csv:"duration_ms"`
}

// Summary is a distribution digest.
type Summary struct {
	Mean, Std     float64
	P10, P50, P90 float64
}

// Summarize computes mean, standard deviation and empirical quantiles.
// values is sorted in place. Returns the zero Summary for empty input.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	sort.Float64s(values)
	mean, std := stat.MeanStdDev(values, nil)
	if len(values) == 1 {
		std = 0
	}
	return Summary{
		Mean: mean,
		Std:  std,
		P10:  stat.Quantile(0.1, stat.Empirical, values, nil),
		P50:  stat.Quantile(0.5, stat.Empirical, values, nil),
		P90:  stat.Quantile(0.9, stat.Empirical, values, nil),
	}
}

// SetGenes fills the genome-size columns from a summary.
func (s *GenerationStats) SetGenes(sum Summary) {
	s.GenesMean = sum.Mean
	s.GenesStd = sum.Std
	s.GenesP10 = sum.P10
	s.GenesP50 = sum.P50
	s.GenesP90 = sum.P90
}

// LogValue implements slog.LogValuer for structured logging.
func (s GenerationStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("generation", s.Generation),
		slog.Int("population", s.Population),
		slog.Int("survivors", s.Survivors),
		slog.Float64("survival_ratio", s.SurvivalRatio),
		slog.Int("moves", s.Moves),
		slog.Int("blocked", s.Blocked),
		slog.Int("bullied", s.Bullied),
		slog.Int("swapped", s.Swapped),
		slog.Int("kills", s.Kills),
		slog.Int("reversals", s.Reversals),
		slog.Float64("genes_mean", s.GenesMean),
		slog.Float64("genes_p50", s.GenesP50),
		slog.Float64("relays_mean", s.RelaysMean),
		slog.Int("phenotypes", s.Phenotypes),
		slog.Int64("duration_ms", s.DurationMS),
	)
}

// LogStats logs the generation outcome.
func (s GenerationStats) LogStats() {
	slog.Info("generation", "stats", s)
}
