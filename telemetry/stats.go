package telemetry

import (
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/pbfsim/pbf/state"
)

// FluidSnapshot holds aggregate fluid-state statistics: total kinetic
// energy for the quiescent energy bound, and the y-position
// distribution that settling checks (dam break) read.
type FluidSnapshot struct {
	KineticEnergy float64
	MeanY         float64
	MaxY          float64
	VarianceY     float64
}

// Snapshot computes a FluidSnapshot from the live particle buffers. Mass
// is read from the velocity W slot.
func Snapshot(b *state.Buffers) FluidSnapshot {
	n := int(b.Count)
	if n == 0 {
		return FluidSnapshot{}
	}

	ys := make([]float64, n)
	var ke float64
	maxY := b.Positions[0].Y

	for i := 0; i < n; i++ {
		p := b.Positions[i]
		v := b.Velocities[i]
		mass := float64(v.W)
		speed2 := float64(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
		ke += 0.5 * mass * speed2

		ys[i] = float64(p.Y)
		if p.Y > maxY {
			maxY = p.Y
		}
	}

	mean, variance := stat.MeanVariance(ys, nil)

	return FluidSnapshot{
		KineticEnergy: ke,
		MeanY:         mean,
		MaxY:          float64(maxY),
		VarianceY:     variance,
	}
}

// KineticEnergyWithinBound reports whether the current kinetic energy
// has not grown beyond the baseline by more than numerical noise. In a
// quiescent configuration the fluid must not gain energy across frames.
func KineticEnergyWithinBound(baseline, current FluidSnapshot, tolerance float64) bool {
	return current.KineticEnergy <= baseline.KineticEnergy+tolerance
}
