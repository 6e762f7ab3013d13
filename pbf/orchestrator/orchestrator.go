// Package orchestrator sequences the per-substep simulation pipeline:
// predict, grid rebuild, friends build, the density solver loop, and the
// velocity/vorticity/viscosity post-pass, mediating the shared position
// buffer handoff with the renderer around each substep.
package orchestrator

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/pthm-cable/pbfsim/pbf/device"
	"github.com/pthm-cable/pbfsim/pbf/friends"
	"github.com/pthm-cable/pbfsim/pbf/grid"
	"github.com/pthm-cable/pbfsim/pbf/interop"
	"github.com/pthm-cable/pbfsim/pbf/kernelsrc"
	"github.com/pthm-cable/pbfsim/pbf/params"
	"github.com/pthm-cable/pbfsim/pbf/postpass"
	"github.com/pthm-cable/pbfsim/pbf/solver"
	"github.com/pthm-cable/pbfsim/pbf/state"
	"github.com/pthm-cable/pbfsim/telemetry"
)

// Controls are the UI-injected per-frame inputs: pause, reset, wave
// toggle, and the friends-histogram debug readback enable.
type Controls struct {
	Paused           bool
	ResetRequested   bool
	GenerateWaves    bool
	FriendsHistogram bool
}

// Orchestrator owns every buffer and subsystem the step sequence
// touches, plus the frame-to-frame state: paused, wavePos, waveTime,
// prevParticleCount, kernelsValid.
type Orchestrator struct {
	block   *params.Block
	buffers *state.Buffers
	grid    *grid.Grid
	list    *friends.List
	queue   *device.Queue
	handle  *interop.Handle
	seed    int64
	perf    *telemetry.PerfCollector

	paused            bool
	wavePos           float32
	waveTime          float32
	prevParticleCount uint32
	kernelsValid      bool

	lastErr error
}

// New allocates every subsystem for the given scenario parameters and
// seeds the initial particle lattice. seed drives the placement shuffle,
// so two orchestrators built with the same parameters and seed start
// from identical particle arrays.
func New(p params.Params, maxParticles uint32, seed int64) (*Orchestrator, error) {
	block := params.New(p)
	buffers := state.NewBuffers(maxParticles)

	o := &Orchestrator{
		block:        block,
		buffers:      buffers,
		queue:        device.NewQueue(),
		seed:         seed,
		kernelsValid: true,
	}

	if err := o.reallocate(p.ParticleCount); err != nil {
		return nil, err
	}
	o.handle = interop.NewHandle(p.ParticleCount)

	return o, nil
}

// reallocate (re)builds every per-particle buffer for n particles. It is
// only safe to call between substeps; Step never calls it mid-flight.
// Every reallocation re-seeds the shuffle from the orchestrator's fixed
// seed, so repeated resets reproduce identical placement.
func (o *Orchestrator) reallocate(n uint32) error {
	rng := rand.New(rand.NewSource(o.seed))
	if err := o.buffers.Allocate(n, &o.block.Params, rng); err != nil {
		return err
	}
	o.grid = grid.New(&o.block.Params)
	o.list = friends.NewList(n, o.block.Params.FriendsCircles, o.block.Params.ParticlesPerCircle)
	o.prevParticleCount = n
	return nil
}

// Reconfigure applies a new parameter set, as on a scenario reload. If
// the particle count changed, resetRequested is set, or the scenario
// carries resetSimOnChange, every device buffer is reallocated;
// otherwise only the parameter block is re-uploaded.
func (o *Orchestrator) Reconfigure(p params.Params, resetRequested bool) error {
	o.block.Params = p
	o.block.Upload()

	if p.ParticleCount != o.prevParticleCount || resetRequested || p.ResetSimOnChange {
		if err := o.reallocate(p.ParticleCount); err != nil {
			o.kernelsValid = false
			o.lastErr = err
			return err
		}
		o.handle = interop.NewHandle(p.ParticleCount)
	}
	o.kernelsValid = true
	return nil
}

// KernelsValid reports whether the last reconfigure/kernel load
// succeeded; Step is a no-op while this is false.
func (o *Orchestrator) KernelsValid() bool { return o.kernelsValid }

// LoadKernels validates the kernel asset directory and latches
// kernelsValid accordingly. dir == "" is a no-op — the kernels in
// pbf/solver and pbf/postpass are compiled into this binary, not loaded
// from disk, so no kernel directory is required to step at all; callers
// that do point at an asset directory get kernelsValid latched false on
// a CompileError until a subsequent call succeeds.
func (o *Orchestrator) LoadKernels(dir string) error {
	if dir == "" {
		return nil
	}
	if err := kernelsrc.Validate(dir); err != nil {
		o.kernelsValid = false
		o.lastErr = err
		return err
	}
	o.kernelsValid = true
	return nil
}

// SetPerfCollector attaches a per-kernel timing collector; every
// substep's dispatch sequence reports its phase boundaries to it via
// StartPhase. Pass nil to detach (the default — Step works without one).
func (o *Orchestrator) SetPerfCollector(perf *telemetry.PerfCollector) {
	o.perf = perf
}

func (o *Orchestrator) phase(name string) {
	if o.perf != nil {
		o.perf.StartPhase(name)
	}
}

// LastError returns the error latched by the most recent failing Step
// or Reconfigure call, or nil.
func (o *Orchestrator) LastError() error { return o.lastErr }

// Step advances the simulation by one frame: subStep-many substeps, each
// running the fixed kernel sequence under acquire/release of the shared
// position buffer. Step itself never returns an error for a paused
// frame; a DeviceError/InteropError from a substep latches
// kernelsValid=false and is returned.
func (o *Orchestrator) Step(c Controls) error {
	o.paused = c.Paused

	if c.ResetRequested {
		if err := o.reallocate(o.block.Params.ParticleCount); err != nil {
			o.kernelsValid = false
			o.lastErr = err
			return err
		}
		o.handle = interop.NewHandle(o.block.Params.ParticleCount)
		o.waveTime = 0
		o.kernelsValid = true
	}

	if !o.kernelsValid {
		return nil
	}

	if c.GenerateWaves && !o.paused {
		o.waveTime += o.block.Params.TimeStep
	}
	o.wavePos = o.recomputeWavePos(c.GenerateWaves)

	for s := uint32(0); s < o.block.Params.SubSteps; s++ {
		if err := o.handle.Acquire(interop.OwnerSimulation); err != nil {
			o.kernelsValid = false
			o.lastErr = err
			return err
		}

		if err := o.substep(); err != nil {
			o.kernelsValid = false
			o.lastErr = err
			_ = o.handle.Release(interop.OwnerSimulation)
			return err
		}

		if err := o.handle.Release(interop.OwnerSimulation); err != nil {
			o.kernelsValid = false
			o.lastErr = err
			return err
		}
		o.queue.Flush()
	}

	if c.FriendsHistogram {
		_ = o.FriendsHistogram()
	}

	return nil
}

// substep runs the fixed kernel sequence: predict, grid-reset,
// grid-insert, friends, (λ, Δp, update-predicted)×N, velocity,
// vorticity, forces, commit. The sequence is observable through the
// perf collector — do not reorder.
//
// While paused the solver stages (through update-predicted) still run,
// so λ/Δp/predicted stay inspectable, but the post-pass is skipped
// entirely: neither positions nor velocities may change across a paused
// frame.
func (o *Orchestrator) substep() error {
	b := o.buffers
	n := int(b.Count)
	dt := o.block.Params.TimeStep

	o.phase(telemetry.PhasePredict)
	if err := o.queue.Dispatch("predict", n, func(i int) {
		b.Predicted[i].X = b.Positions[i].X + b.Velocities[i].X*dt
		b.Predicted[i].Y = b.Positions[i].Y + b.Velocities[i].Y*dt
		b.Predicted[i].Z = b.Positions[i].Z + b.Velocities[i].Z*dt
	}); err != nil {
		return err
	}

	o.phase(telemetry.PhaseGridInsert)
	o.grid.Reset(n)
	if err := o.queue.Dispatch("grid_insert", n, func(i int) {
		o.grid.Insert(int32(i), b.Predicted)
	}); err != nil {
		return err
	}

	o.phase(telemetry.PhaseFriends)
	o.list.Reset()
	if err := o.queue.Dispatch("build_friends_list", n, func(i int) {
		friends.Build(o.list, o.grid, b.Predicted, &o.block.Params, i)
	}); err != nil {
		return err
	}

	d := o.block.Upload()
	for it := uint32(0); it < d.SimIterations; it++ {
		o.phase(telemetry.PhaseScaling)
		if err := o.queue.Dispatch("compute_scaling", n, func(i int) {
			b.Lambda[i] = solver.Scaling(b, o.list, &d, i)
		}); err != nil {
			return err
		}
		o.phase(telemetry.PhaseDelta)
		if err := o.queue.Dispatch("compute_delta", n, func(i int) {
			b.Delta[i] = solver.Delta(b, o.list, &d, i, o.wavePos)
		}); err != nil {
			return err
		}
		o.phase(telemetry.PhaseUpdatePredicted)
		if err := o.queue.Dispatch("update_predicted", n, func(i int) {
			solver.UpdatePredicted(b, i)
		}); err != nil {
			return err
		}
	}

	if o.paused {
		return nil
	}

	o.phase(telemetry.PhaseVelocity)
	if err := o.queue.Dispatch("update_velocities", n, func(i int) {
		postpass.UpdateVelocity(b, &d, i)
	}); err != nil {
		return err
	}
	o.phase(telemetry.PhaseVorticity)
	if err := o.queue.Dispatch("apply_vorticity", n, func(i int) {
		postpass.Vorticity(b, o.list, &d, i)
	}); err != nil {
		return err
	}
	o.phase(telemetry.PhaseViscosity)
	if err := o.queue.Dispatch("apply_viscosity", n, func(i int) {
		postpass.ApplyForces(b, o.list, &d, i)
	}); err != nil {
		return err
	}
	o.phase(telemetry.PhaseCommit)
	if err := o.queue.Dispatch("update_positions", n, func(i int) {
		postpass.Commit(b, i)
	}); err != nil {
		return err
	}

	return nil
}

// recomputeWavePos derives the wave-plunger displacement from waveTime:
// (1 − cos(2π · frac(f·t)^duty)) · amplitude · (xMax−xMin) / 2. Returns 0
// when wave generation is off.
func (o *Orchestrator) recomputeWavePos(enabled bool) float32 {
	if !enabled {
		return 0
	}
	p := &o.block.Params
	if p.WaveGenFreq == 0 {
		return 0
	}
	phase := p.WaveGenFreq * o.waveTime
	frac := phase - float32(math.Floor(float64(phase)))
	fracPowDuty := float32(math.Pow(float64(frac), float64(p.WaveGenDuty)))
	domainX := p.XMax - p.XMin
	return (1 - float32(math.Cos(2*math.Pi*float64(fracPowDuty)))) * p.WaveGenAmp * domainX / 2
}

// FriendsHistogram returns, for debug readback, the total
// recorded-neighbor count per circle across every particle.
func (o *Orchestrator) FriendsHistogram() []int64 {
	hist := make([]int64, o.list.Circles)
	for i := 0; i < int(o.buffers.Count); i++ {
		for k := uint32(0); k < o.list.Circles; k++ {
			hist[k] += int64(o.list.Counter(i, k))
		}
	}
	return hist
}

// DebugSnapshot is a point-in-time readback of the predicted-position
// and Δp buffers, intended for inspection tooling rather than the
// simulation's own data flow.
type DebugSnapshot struct {
	Predicted []state.Vec4
	Delta     []state.Vec3
}

// Snapshot copies the current predicted-position and delta buffers.
func (o *Orchestrator) Snapshot() DebugSnapshot {
	predicted := make([]state.Vec4, len(o.buffers.Predicted))
	copy(predicted, o.buffers.Predicted)
	delta := make([]state.Vec3, len(o.buffers.Delta))
	copy(delta, o.buffers.Delta)
	return DebugSnapshot{Predicted: predicted, Delta: delta}
}

// Buffers exposes the live particle state for the renderer/telemetry to
// read while it holds the interop handle. Callers must not retain the
// returned pointer across a Release/Acquire boundary without
// re-acquiring.
func (o *Orchestrator) Buffers() *state.Buffers { return o.buffers }

// Params returns the live parameter block.
func (o *Orchestrator) Params() params.Params { return o.block.Params }

// Handle returns the shared interop handle the renderer acquires between
// steps.
func (o *Orchestrator) Handle() *interop.Handle { return o.handle }

// SetSharedPositionBuffer installs an externally registered interop
// handle for the position buffer, replacing the orchestrator-created
// one. The handle must be sized for the current particle count and
// unheld; a reallocation (particle-count change or reset) discards it
// in favor of a fresh orchestrator-created handle, so the registrar
// must re-register after either.
func (o *Orchestrator) SetSharedPositionBuffer(h *interop.Handle) error {
	if h.SizeBytes() != uint64(o.buffers.Count)*16 {
		return &interop.InteropError{
			Op:  "register",
			Err: fmt.Errorf("handle sized %d bytes, want %d for %d particles", h.SizeBytes(), uint64(o.buffers.Count)*16, o.buffers.Count),
		}
	}
	if h.CurrentOwner() != interop.OwnerNone {
		return &interop.InteropError{
			Op:  "register",
			Err: fmt.Errorf("handle already held by owner %d", h.CurrentOwner()),
		}
	}
	o.handle = h
	return nil
}

func (o *Orchestrator) String() string {
	return fmt.Sprintf("orchestrator{particles=%d kernelsValid=%v paused=%v}", o.buffers.Count, o.kernelsValid, o.paused)
}
