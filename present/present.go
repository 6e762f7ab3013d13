// Package present draws the live particle buffer with raylib-go: a 3D
// point cloud inside the simulation's axis-aligned box, an orbital
// camera, and a raygui control panel for the per-frame control inputs.
package present

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/pbfsim/config"
	"github.com/pthm-cable/pbfsim/pbf/interop"
	"github.com/pthm-cable/pbfsim/pbf/orchestrator"
	"github.com/pthm-cable/pbfsim/pbf/state"
)

// Presenter owns the window, camera, and interop acquire/release on the
// renderer's side of the handoff.
type Presenter struct {
	camera rl.Camera3D
}

// NewPresenter opens a window sized from the ambient screen config and
// sets up an orbiting camera over the simulation domain.
func NewPresenter(cfg config.ScreenConfig, title string) *Presenter {
	rl.InitWindow(int32(cfg.Width), int32(cfg.Height), title)
	rl.SetTargetFPS(int32(cfg.TargetFPS))

	return &Presenter{
		camera: rl.Camera3D{
			Position:   rl.Vector3{X: 1.5, Y: 1.5, Z: 1.5},
			Target:     rl.Vector3{X: 0.5, Y: 0.3, Z: 0.5},
			Up:         rl.Vector3{X: 0, Y: 1, Z: 0},
			Fovy:       45,
			Projection: rl.CameraPerspective,
		},
	}
}

// Close releases the window.
func (p *Presenter) Close() {
	rl.CloseWindow()
}

// ShouldClose reports whether the user asked to close the window.
func (p *Presenter) ShouldClose() bool {
	return rl.WindowShouldClose()
}

// HUDState is the renderer-side snapshot of control-panel values; Frame
// returns the edited copy so the caller can feed it back into the next
// orchestrator.Controls.
type HUDState struct {
	Paused           bool
	GenerateWaves    bool
	FriendsHistogram bool
	ResetRequested   bool
	FPS              int
	ParticleCount    int
}

// Frame acquires the shared position buffer from the simulation side,
// draws the current particle positions plus a control panel, releases
// the buffer, and presents. It returns the HUD state after the user's
// input this frame, to be translated into the next
// orchestrator.Controls.
func (p *Presenter) Frame(o *orchestrator.Orchestrator, hud HUDState) HUDState {
	if err := o.Handle().Acquire(interop.OwnerRenderer); err != nil {
		// Simulation still holds the buffer (e.g. mid-step on another
		// goroutine in a future async orchestrator) — skip this frame's
		// draw rather than read a buffer we don't own.
		rl.BeginDrawing()
		rl.ClearBackground(rl.Black)
		rl.DrawText("waiting for simulation buffer", 10, 10, 18, rl.Red)
		rl.EndDrawing()
		return hud
	}

	positions := o.Buffers().Positions
	velocities := o.Buffers().Velocities
	params := o.Params()

	rl.UpdateCamera(&p.camera, rl.CameraOrbital)

	rl.BeginDrawing()
	rl.ClearBackground(rl.RayWhite)

	rl.BeginMode3D(p.camera)
	drawBounds(params.XMin, params.XMax, params.YMin, params.YMax, params.ZMin, params.ZMax)
	drawParticles(positions, velocities, params.ParticleRenderSize)
	rl.EndMode3D()

	hud = drawHUD(hud)

	rl.DrawText(fmt.Sprintf("particles: %d  fps: %d", len(positions), hud.FPS), 10, 10, 18, rl.DarkGray)
	rl.EndDrawing()

	_ = o.Handle().Release(interop.OwnerRenderer)

	return hud
}

func drawBounds(xMin, xMax, yMin, yMax, zMin, zMax float32) {
	center := rl.Vector3{X: (xMin + xMax) / 2, Y: (yMin + yMax) / 2, Z: (zMin + zMax) / 2}
	size := rl.Vector3{X: xMax - xMin, Y: yMax - yMin, Z: zMax - zMin}
	rl.DrawCubeWires(center, size.X, size.Y, size.Z, rl.Gray)
}

// drawParticles renders each particle as a small sphere colored by
// normalized speed.
func drawParticles(positions []state.Vec4, velocities []state.Vec4, renderSize float32) {
	if renderSize <= 0 {
		renderSize = 0.01
	}
	for i := range positions {
		p := positions[i]
		v := velocities[i]
		speed := v.X*v.X + v.Y*v.Y + v.Z*v.Z
		t := speed / (speed + 1)
		color := rl.Color{
			R: uint8(40 + t*180),
			G: uint8(80 + (1-t)*100),
			B: 220,
			A: 255,
		}
		rl.DrawSphere(rl.Vector3{X: p.X, Y: p.Y, Z: p.Z}, renderSize, color)
	}
}

func drawHUD(hud HUDState) HUDState {
	const panelX, panelY = 10, 40
	y := float32(panelY)

	if gui.Button(rl.Rectangle{X: panelX, Y: y, Width: 120, Height: 28}, toggleText(hud.Paused, "Resume", "Pause")) {
		hud.Paused = !hud.Paused
	}
	if gui.Button(rl.Rectangle{X: panelX + 130, Y: y, Width: 120, Height: 28}, "Reset") {
		hud.ResetRequested = true
	}
	y += 36

	if gui.Button(rl.Rectangle{X: panelX, Y: y, Width: 120, Height: 28}, toggleText(hud.GenerateWaves, "Waves off", "Waves on")) {
		hud.GenerateWaves = !hud.GenerateWaves
	}
	if gui.Button(rl.Rectangle{X: panelX + 130, Y: y, Width: 150, Height: 28}, toggleText(hud.FriendsHistogram, "Histogram off", "Histogram on")) {
		hud.FriendsHistogram = !hud.FriendsHistogram
	}

	return hud
}

func toggleText(on bool, onText, offText string) string {
	if on {
		return onText
	}
	return offText
}
