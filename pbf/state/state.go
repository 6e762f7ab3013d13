// Package state implements the host-side particle buffer lifecycle:
// allocation on particle-count change, initial lattice placement, and
// upload of the resulting arrays to the device.
package state

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/pthm-cable/pbfsim/pbf/params"
)

// AllocError is returned when the requested particle count exceeds the
// configured maximum.
type AllocError struct {
	Requested uint32
	Max       uint32
}

func (e *AllocError) Error() string {
	return fmt.Sprintf("state: requested particle count %d exceeds max %d", e.Requested, e.Max)
}

// Vec4 is a position/velocity slot: three components plus a trailing pad
// (mass, for velocity) matching the source's cl_float4 layout.
type Vec4 struct {
	X, Y, Z, W float32
}

// Vec3 is a plain 3-vector (Δp, ω).
type Vec3 struct {
	X, Y, Z float32
}

// Buffers holds the device-resident (here: host-resident, CPU-emulated)
// per-particle arrays. Particle count P is fixed for the lifetime of an
// allocation; a change in P forces a full reallocation.
type Buffers struct {
	MaxParticles uint32

	Count     uint32
	Positions []Vec4 // pᵢ,prev — committed position
	Predicted []Vec4 // pᵢ,predicted — working position during the solver
	Velocities []Vec4 // vᵢ, W slot holds mass (initially 1)
	Delta     []Vec3 // Δpᵢ
	Omega     []Vec3 // ωᵢ
	Lambda    []float32 // λᵢ
}

// NewBuffers creates an empty buffer set bounded by maxParticles.
func NewBuffers(maxParticles uint32) *Buffers {
	return &Buffers{MaxParticles: maxParticles}
}

// Allocate (re)sizes every per-particle array for p particles, zeroes
// velocities (mass slot = 1), places particles on the initial dam-break
// lattice, shuffles them, and leaves the arrays in b ready for device
// upload. Fails with AllocError if p exceeds MaxParticles.
func (b *Buffers) Allocate(p uint32, pr *params.Params, rng *rand.Rand) error {
	if p > b.MaxParticles {
		return &AllocError{Requested: p, Max: b.MaxParticles}
	}

	b.Count = p
	b.Positions = make([]Vec4, p)
	b.Predicted = make([]Vec4, p)
	b.Velocities = make([]Vec4, p)
	b.Delta = make([]Vec3, p)
	b.Omega = make([]Vec3, p)
	b.Lambda = make([]float32, p)

	for i := range b.Velocities {
		b.Velocities[i] = Vec4{X: 0, Y: 0, Z: 0, W: 1}
	}

	placeInitialLattice(b.Positions, p, pr)
	shuffle(b.Positions, rng)
	copy(b.Predicted, b.Positions)

	return nil
}

// placeInitialLattice arranges p particles on an axis-aligned cubic
// lattice of side ceil(p^(1/3)) with spacing h*setupSpacing, centered in
// X/Z and offset vertically by a fixed dam-break height.
func placeInitialLattice(dst []Vec4, p uint32, pr *params.Params) {
	if p == 0 {
		return
	}
	perAxis := int(math.Ceil(math.Cbrt(float64(p))))
	if perAxis < 1 {
		perAxis = 1
	}

	d := pr.H * pr.SetupSpacing
	domainX := pr.XMax - pr.XMin
	domainZ := pr.ZMax - pr.ZMin
	offsetX := pr.XMin + (domainX-float32(perAxis)*d)/2.0
	offsetZ := pr.ZMin + (domainZ-float32(perAxis)*d)/2.0
	offsetY := pr.YMin + 0.3*(pr.YMax-pr.YMin)

	for i := uint32(0); i < p; i++ {
		x := (int(i) / pow(perAxis, 1)) % perAxis
		y := (int(i) / pow(perAxis, 0)) % perAxis
		z := (int(i) / pow(perAxis, 2)) % perAxis

		dst[i] = Vec4{
			X: offsetX + float32(x)*d,
			Y: offsetY + float32(y)*d,
			Z: offsetZ + float32(z)*d,
			W: 0,
		}
	}
}

func pow(base, exp int) int {
	r := 1
	for i := 0; i < exp; i++ {
		r *= base
	}
	return r
}

// shuffle performs a Fisher-Yates shuffle to avoid degenerate memory
// patterns in the grid build. A caller-supplied *rand.Rand makes reset
// determinism a property of the seed, not of global state.
func shuffle(dst []Vec4, rng *rand.Rand) {
	for i := len(dst) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		dst[i], dst[j] = dst[j], dst[i]
	}
}
