package telemetry

import (
	"log/slog"
	"time"
)

// Phase names. Step phases are sampled per step, generation phases per
// generation.
const (
	PhaseBeginStep    = "begin_step"
	PhaseThink        = "think"
	PhaseResolve      = "resolve"
	PhaseSelection    = "selection"
	PhaseReproduction = "reproduction"
	PhaseRender       = "render"
	PhaseTelemetry    = "telemetry"
)

var allPhases = []string{
	PhaseBeginStep, PhaseThink, PhaseResolve,
	PhaseSelection, PhaseReproduction, PhaseRender, PhaseTelemetry,
}

// PerfSample holds timing data for one sample.
type PerfSample struct {
	Duration time.Duration
	Phases   map[string]time.Duration
}

// PerfCollector tracks phase timings over a rolling window of samples.
type PerfCollector struct {
	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	currentPhases map[string]time.Duration
	start         time.Time
	phaseStart    time.Time
	lastPhase     string
}

// NewPerfCollector creates a collector averaging over windowSize samples.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
	}
}

// StartTick begins a sample.
func (p *PerfCollector) StartTick() {
	p.start = time.Now()
	p.currentPhases = make(map[string]time.Duration)
	p.lastPhase = ""
}

// StartPhase ends the running phase, if any, and starts timing phase.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// EndTick closes the running phase and records the sample.
func (p *PerfCollector) EndTick() {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}

	p.samples[p.writeIndex] = PerfSample{
		Duration: now.Sub(p.start),
		Phases:   p.currentPhases,
	}
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
}

// PerfStats holds aggregated timing over the window.
type PerfStats struct {
	AvgDuration time.Duration
	MinDuration time.Duration
	MaxDuration time.Duration

	PhaseAvg map[string]time.Duration
	PhasePct map[string]float64 // share of the average sample

	PerSecond float64
}

// Stats aggregates the current window.
func (p *PerfCollector) Stats() PerfStats {
	if p.sampleCount == 0 {
		return PerfStats{
			PhaseAvg: make(map[string]time.Duration),
			PhasePct: make(map[string]float64),
		}
	}

	var total, minD, maxD time.Duration
	phaseSum := make(map[string]time.Duration)
	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		total += s.Duration
		if i == 0 || s.Duration < minD {
			minD = s.Duration
		}
		if s.Duration > maxD {
			maxD = s.Duration
		}
		for phase, d := range s.Phases {
			phaseSum[phase] += d
		}
	}

	avg := total / time.Duration(p.sampleCount)
	phaseAvg := make(map[string]time.Duration)
	phasePct := make(map[string]float64)
	for phase, sum := range phaseSum {
		phaseAvg[phase] = sum / time.Duration(p.sampleCount)
		if avg > 0 {
			phasePct[phase] = float64(phaseAvg[phase]) / float64(avg) * 100
		}
	}

	var perSec float64
	if avg > 0 {
		perSec = float64(time.Second) / float64(avg)
	}

	return PerfStats{
		AvgDuration: avg,
		MinDuration: minD,
		MaxDuration: maxD,
		PhaseAvg:    phaseAvg,
		PhasePct:    phasePct,
		PerSecond:   perSec,
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_us", s.AvgDuration.Microseconds()),
		slog.Int64("min_us", s.MinDuration.Microseconds()),
		slog.Int64("max_us", s.MaxDuration.Microseconds()),
		slog.Float64("per_sec", s.PerSecond),
	}
	for _, phase := range allPhases {
		if pct, ok := s.PhasePct[phase]; ok && pct > 0.1 {
			attrs = append(attrs, slog.Float64(phase+"_pct", float64(int(pct*10))/10))
		}
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is a flat record for perf.csv.
type PerfStatsCSV struct {
	Generation      int     `csv:"generation"`
	Scope           string  `csv:"scope"` // step | generation
	AvgUS           int64   `csv:"avg_us"`
	MinUS           int64   `csv:"min_us"`
	MaxUS           int64   `csv:"max_us"`
	PerSec          float64 `csv:"per_sec"`
	BeginStepPct    float64 `csv:"begin_step_pct"`
	ThinkPct        float64 `csv:"think_pct"`
	ResolvePct      float64 `csv:"resolve_pct"`
	SelectionPct    float64 `csv:"selection_pct"`
	ReproductionPct float64 `csv:"reproduction_pct"`
	RenderPct       float64 `csv:"render_pct"`
	TelemetryPct    float64 `csv:"telemetry_pct"`
}

// ToCSV flattens the stats.
func (s PerfStats) ToCSV(generation int, scope string) PerfStatsCSV {
	return PerfStatsCSV{
		Generation:      generation,
		Scope:           scope,
		AvgUS:           s.AvgDuration.Microseconds(),
		MinUS:           s.MinDuration.Microseconds(),
		MaxUS:           s.MaxDuration.Microseconds(),
		PerSec:          s.PerSecond,
		BeginStepPct:    s.PhasePct[PhaseBeginStep],
		ThinkPct:        s.PhasePct[PhaseThink],
		ResolvePct:      s.PhasePct[PhaseResolve],
		SelectionPct:    s.PhasePct[PhaseSelection],
		ReproductionPct: s.PhasePct[PhaseReproduction],
		RenderPct:       s.PhasePct[PhaseRender],
		TelemetryPct:    s.PhasePct[PhaseTelemetry],
	}
}
