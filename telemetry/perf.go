// Package telemetry tracks per-substep kernel timing over a rolling
// window of frames, plus aggregate fluid-state statistics and an
// optional CSV trace export.
package telemetry

import (
	"log/slog"
	"time"
)

// Kernel phase names, matching the dispatch names pbf/orchestrator
// passes to pbf/device.Queue.Dispatch.
const (
	PhasePredict         = "predict"
	PhaseGridInsert      = "grid_insert"
	PhaseFriends         = "build_friends_list"
	PhaseScaling         = "compute_scaling"
	PhaseDelta           = "compute_delta"
	PhaseUpdatePredicted = "update_predicted"
	PhaseVelocity        = "update_velocities"
	PhaseVorticity       = "apply_vorticity"
	PhaseViscosity       = "apply_viscosity"
	PhaseCommit          = "update_positions"
)

var allPhases = []string{
	PhasePredict, PhaseGridInsert, PhaseFriends,
	PhaseScaling, PhaseDelta, PhaseUpdatePredicted,
	PhaseVelocity, PhaseVorticity, PhaseViscosity, PhaseCommit,
}

// PerfSample holds timing data for a single frame.
type PerfSample struct {
	FrameDuration time.Duration
	Phases        map[string]time.Duration
}

// PerfCollector tracks per-kernel timing over a rolling window of frames.
type PerfCollector struct {
	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	currentPhases map[string]time.Duration
	frameStart    time.Time
	phaseStart    time.Time
	lastPhase     string
}

// NewPerfCollector creates a collector averaging over windowSize frames.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 120
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
	}
}

// StartFrame begins timing a new simulation frame.
func (p *PerfCollector) StartFrame() {
	p.frameStart = time.Now()
	p.currentPhases = make(map[string]time.Duration)
	p.lastPhase = ""
}

// StartPhase begins timing a specific kernel dispatch.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}
	p.phaseStart = now
	p.lastPhase = phase
}

// EndFrame finishes timing the current frame and records the sample.
func (p *PerfCollector) EndFrame() {
	now := time.Now()
	if p.lastPhase != "" {
		p.currentPhases[p.lastPhase] += now.Sub(p.phaseStart)
	}

	p.samples[p.writeIndex] = PerfSample{
		FrameDuration: now.Sub(p.frameStart),
		Phases:        p.currentPhases,
	}
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
}

// PerfStats holds aggregated timing statistics over the current window.
type PerfStats struct {
	AvgFrameDuration time.Duration
	MinFrameDuration time.Duration
	MaxFrameDuration time.Duration
	PhaseAvg         map[string]time.Duration
	PhasePct         map[string]float64
	FramesPerSecond  float64
}

// Stats computes aggregated statistics over the current window.
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
		total += s.FrameDuration
		if i == 0 || s.FrameDuration < minD {
			minD = s.FrameDuration
		}
		if s.FrameDuration > maxD {
			maxD = s.FrameDuration
		}
		for phase, dur := range s.Phases {
			phaseSum[phase] += dur
		}
	}

	avg := total / time.Duration(p.sampleCount)

	phaseAvg := make(map[string]time.Duration, len(phaseSum))
	phasePct := make(map[string]float64, len(phaseSum))
	for phase, sum := range phaseSum {
		phaseAvg[phase] = sum / time.Duration(p.sampleCount)
		if avg > 0 {
			phasePct[phase] = float64(phaseAvg[phase]) / float64(avg) * 100
		}
	}

	var fps float64
	if avg > 0 {
		fps = float64(time.Second) / float64(avg)
	}

	return PerfStats{
		AvgFrameDuration: avg,
		MinFrameDuration: minD,
		MaxFrameDuration: maxD,
		PhaseAvg:         phaseAvg,
		PhasePct:         phasePct,
		FramesPerSecond:  fps,
	}
}

// LogStats logs performance statistics via slog.
func (s PerfStats) LogStats() {
	attrs := []any{
		"avg_frame_us", s.AvgFrameDuration.Microseconds(),
		"min_frame_us", s.MinFrameDuration.Microseconds(),
		"max_frame_us", s.MaxFrameDuration.Microseconds(),
		"fps", int(s.FramesPerSecond),
	}
	for _, phase := range allPhases {
		if pct, ok := s.PhasePct[phase]; ok && pct > 0.1 {
			attrs = append(attrs, phase+"_pct", int(pct*10)/10.0)
		}
	}
	slog.Info("perf", attrs...)
}

// PerfStatsCSV is a flat struct for CSV export of performance stats,
// written via gocsv.
type PerfStatsCSV struct {
	FrameIndex         int64   `csv:"frame"`
	AvgFrameUS         int64   `csv:"avg_frame_us"`
	MinFrameUS         int64   `csv:"min_frame_us"`
	MaxFrameUS         int64   `csv:"max_frame_us"`
	FPS                float64 `csv:"fps"`
	PredictPct         float64 `csv:"predict_pct"`
	GridInsertPct      float64 `csv:"grid_insert_pct"`
	FriendsPct         float64 `csv:"friends_pct"`
	ScalingPct         float64 `csv:"scaling_pct"`
	DeltaPct           float64 `csv:"delta_pct"`
	UpdatePredictedPct float64 `csv:"update_predicted_pct"`
	VelocityPct        float64 `csv:"velocity_pct"`
	VorticityPct       float64 `csv:"vorticity_pct"`
	ViscosityPct       float64 `csv:"viscosity_pct"`
	CommitPct          float64 `csv:"commit_pct"`
	KineticEnergy      float64 `csv:"kinetic_energy"`
	MeanY              float64 `csv:"mean_y"`
	MaxY               float64 `csv:"max_y"`
}

// ToCSV converts PerfStats plus a FluidSnapshot into a flat CSV record.
func (s PerfStats) ToCSV(frameIndex int64, fs FluidSnapshot) PerfStatsCSV {
	return PerfStatsCSV{
		FrameIndex:         frameIndex,
		AvgFrameUS:         s.AvgFrameDuration.Microseconds(),
		MinFrameUS:         s.MinFrameDuration.Microseconds(),
		MaxFrameUS:         s.MaxFrameDuration.Microseconds(),
		FPS:                s.FramesPerSecond,
		PredictPct:         s.PhasePct[PhasePredict],
		GridInsertPct:      s.PhasePct[PhaseGridInsert],
		FriendsPct:         s.PhasePct[PhaseFriends],
		ScalingPct:         s.PhasePct[PhaseScaling],
		DeltaPct:           s.PhasePct[PhaseDelta],
		UpdatePredictedPct: s.PhasePct[PhaseUpdatePredicted],
		VelocityPct:        s.PhasePct[PhaseVelocity],
		VorticityPct:       s.PhasePct[PhaseVorticity],
		ViscosityPct:       s.PhasePct[PhaseViscosity],
		CommitPct:          s.PhasePct[PhaseCommit],
		KineticEnergy:      fs.KineticEnergy,
		MeanY:              fs.MeanY,
		MaxY:               fs.MaxY,
	}
}
