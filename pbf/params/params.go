// Package params implements the PBF parameter block: the immutable-per-step
// numeric constants that every kernel in the simulation pipeline binds as a
// uniform input. The host owns the record; Upload copies it into the
// device-visible buffer that the device package's kernels read.
package params

import "math"

// Params mirrors the device parameter header
// (assets/kernels/parameters.hpp), trimmed of the GPU-sorting fields
// (segmentSize, sortIterations) and gridBufSize that this implementation
// does not use. scenario.Parse ignores any key it does not read, so
// scenario files that still carry those keys load without error.
type Params struct {
	// Runner related
	ResetSimOnChange bool

	// Scene related
	ParticleCount uint32
	XMin, XMax    float32
	YMin, YMax    float32
	ZMin, ZMax    float32

	WaveGenAmp  float32
	WaveGenFreq float32
	WaveGenDuty float32

	// Simulation consts
	TimeStep        float32
	SimIterations    uint32
	SubSteps         uint32
	H                float32
	RestDensity      float32
	Epsilon          float32
	Gravity          float32
	VorticityFactor  float32
	ViscosityFactor  float32
	SurfaceTensionK    float32
	SurfaceTensionDist float32

	// Grid and friends list
	FriendsCircles    uint32
	ParticlesPerCircle uint32

	// Setup related
	SetupSpacing float32

	// Rendering related
	ParticleRenderSize float32

	// Derived, computed once per Upload.
	H2               float32
	Poly6Factor      float32
	GradSpikyFactor  float32
	GridRes          uint32
	CellSize         float32
}

// DeviceBlock is the flat, device-visible mirror of Params: the per-step
// constants plus the derived kernel factors. ResetSimOnChange,
// ParticleCount and the grid/setup/render fields live host-side only
// (allocation decisions, not kernel arguments).
type DeviceBlock struct {
	XMin, XMax, YMin, YMax, ZMin, ZMax float32
	WaveGenAmp, WaveGenFreq, WaveGenDuty float32
	TimeStep        float32
	SimIterations   uint32
	H, H2           float32
	RestDensity     float32
	Epsilon         float32
	Gravity         float32
	VorticityFactor float32
	ViscosityFactor float32
	SurfaceTensionK    float32
	SurfaceTensionDist float32
	FriendsCircles     uint32
	ParticlesPerCircle uint32
	Poly6Factor        float32
	GradSpikyFactor    float32
}

// Block is the parameter block: an immutable-per-step record plus the
// device-visible mirror that Upload refreshes.
type Block struct {
	Params Params
	device DeviceBlock
}

// New derives the grid resolution and kernel constants from p and returns
// a Block ready for Upload.
func New(p Params) *Block {
	b := &Block{Params: p}
	b.recompute()
	return b
}

// recompute derives H2, Poly6Factor, GradSpikyFactor and GridRes from H
// and the domain bounds. The two kernel factors match the
// POLY6_FACTOR/GRAD_SPIKY_FACTOR constants a GPU build bakes in at
// kernel-compile time.
func (b *Block) recompute() {
	p := &b.Params
	p.H2 = p.H * p.H
	p.Poly6Factor = 315.0 / (64.0 * float32(math.Pi) * pow9(p.H))
	p.GradSpikyFactor = 45.0 / (float32(math.Pi) * pow6(p.H))

	// res must be floor(extent/h), not ceil: a cell edge must be >= h
	// so every neighbor within h falls in the 3×3×3 neighborhood.
	// Rounding up would make CellSize < h whenever extent isn't an
	// exact multiple of h, letting genuine neighbors land two cells
	// apart along an axis.
	extent := maxf(p.XMax-p.XMin, maxf(p.YMax-p.YMin, p.ZMax-p.ZMin))
	res := uint32(math.Floor(float64(extent / p.H)))
	if res < 1 {
		res = 1
	}
	p.GridRes = res
	p.CellSize = extent / float32(res)
}

// Upload copies the host record into the device-visible parameter buffer.
// Must be invoked once after any parameter edit and before the next step;
// no kernel plumbs parameters as a per-call argument, every kernel that
// reads parameters binds this buffer.
func (b *Block) Upload() DeviceBlock {
	b.recompute()
	p := &b.Params
	b.device = DeviceBlock{
		XMin: p.XMin, XMax: p.XMax,
		YMin: p.YMin, YMax: p.YMax,
		ZMin: p.ZMin, ZMax: p.ZMax,
		WaveGenAmp: p.WaveGenAmp, WaveGenFreq: p.WaveGenFreq, WaveGenDuty: p.WaveGenDuty,
		TimeStep:        p.TimeStep,
		SimIterations:   p.SimIterations,
		H:               p.H,
		H2:              p.H2,
		RestDensity:     p.RestDensity,
		Epsilon:         p.Epsilon,
		Gravity:         p.Gravity,
		VorticityFactor: p.VorticityFactor,
		ViscosityFactor: p.ViscosityFactor,
		SurfaceTensionK:    p.SurfaceTensionK,
		SurfaceTensionDist: p.SurfaceTensionDist,
		FriendsCircles:     p.FriendsCircles,
		ParticlesPerCircle: p.ParticlesPerCircle,
		Poly6Factor:        p.Poly6Factor,
		GradSpikyFactor:    p.GradSpikyFactor,
	}
	return b.device
}

// Device returns the last-uploaded device block without recomputing it.
func (b *Block) Device() DeviceBlock { return b.device }

func pow6(x float32) float32 {
	x2 := x * x
	return x2 * x2 * x2
}

func pow9(x float32) float32 {
	return pow6(x) * x * x * x
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
