package telemetry

import (
	"testing"
	"time"
)

func TestPerfCollectorAveragesOverWindow(t *testing.T) {
	pc := NewPerfCollector(2)

	for i := 0; i < 2; i++ {
		pc.StartFrame()
		pc.StartPhase(PhasePredict)
		time.Sleep(time.Millisecond)
		pc.StartPhase(PhaseFriends)
		time.Sleep(time.Millisecond)
		pc.EndFrame()
	}

	stats := pc.Stats()
	if stats.AvgFrameDuration <= 0 {
		t.Errorf("AvgFrameDuration = %v, want > 0", stats.AvgFrameDuration)
	}
	if stats.FramesPerSecond <= 0 {
		t.Errorf("FramesPerSecond = %v, want > 0", stats.FramesPerSecond)
	}
	if pct := stats.PhasePct[PhasePredict]; pct <= 0 {
		t.Errorf("PhasePct[predict] = %v, want > 0", pct)
	}
}

func TestPerfCollectorEmptyWindowIsZero(t *testing.T) {
	pc := NewPerfCollector(10)
	stats := pc.Stats()
	if stats.AvgFrameDuration != 0 || stats.FramesPerSecond != 0 {
		t.Errorf("expected zero stats before any frame, got %+v", stats)
	}
}

func TestToCSVCarriesFluidSnapshot(t *testing.T) {
	pc := NewPerfCollector(1)
	pc.StartFrame()
	pc.StartPhase(PhasePredict)
	pc.EndFrame()

	fs := FluidSnapshot{KineticEnergy: 1.5, MeanY: 0.2, MaxY: 0.4}
	row := pc.Stats().ToCSV(3, fs)

	if row.FrameIndex != 3 {
		t.Errorf("FrameIndex = %v, want 3", row.FrameIndex)
	}
	if row.KineticEnergy != 1.5 || row.MeanY != 0.2 || row.MaxY != 0.4 {
		t.Errorf("fluid snapshot fields not carried through: %+v", row)
	}
}
