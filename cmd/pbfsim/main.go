package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pthm-cable/pbfsim/config"
	"github.com/pthm-cable/pbfsim/pbf/orchestrator"
	"github.com/pthm-cable/pbfsim/pbf/scenario"
	"github.com/pthm-cable/pbfsim/present"
	"github.com/pthm-cable/pbfsim/telemetry"
)

var (
	scenarioPath = flag.String("scenario", "assets/scenarios/damBreak.par", "Path to the scenario (.par) file")
	configPath   = flag.String("config", "", "Path to an engine config YAML (overrides embedded defaults)")
	seed         = flag.Int64("seed", 1, "Deterministic placement/shuffle seed")
	maxParticles = flag.Uint("max-particles", 20000, "Upper bound on particle count for buffer allocation")
	headless     = flag.Bool("headless", false, "Run without a window (for benchmarking/CI)")
	maxFrames    = flag.Int("max-frames", 0, "Stop a -headless run after N frames (0 = run forever; the windowed loop ignores it)")
)

func main() {
	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	cfg := config.Cfg()
	setupLogging(cfg.Log.Level)

	p, err := scenario.Load(*scenarioPath)
	if err != nil {
		slog.Error("loading scenario", "path", *scenarioPath, "error", err)
		os.Exit(1)
	}

	o, err := orchestrator.New(p, uint32(*maxParticles), *seed)
	if err != nil {
		slog.Error("allocating simulation", "error", err)
		os.Exit(1)
	}
	if err := o.LoadKernels(cfg.Assets.KernelDir); err != nil {
		slog.Error("loading kernel assets", "dir", cfg.Assets.KernelDir, "error", err)
		os.Exit(1)
	}

	trace, err := telemetry.NewTraceWriter(cfg.Telemetry.TraceCSV)
	if err != nil {
		slog.Error("opening trace csv", "error", err)
		os.Exit(1)
	}
	defer trace.Close()

	perf := telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow)
	o.SetPerfCollector(perf)

	if *headless {
		runHeadless(o, perf, trace)
		return
	}
	runWindowed(o, cfg, perf, trace)
}

func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

// runHeadless steps the simulation without a window, for benchmarking
// and CI smoke tests.
func runHeadless(o *orchestrator.Orchestrator, perf *telemetry.PerfCollector, trace *telemetry.TraceWriter) {
	frame := int64(0)
	start := time.Now()
	lastReport := start

	for {
		if *maxFrames > 0 && int(frame) >= *maxFrames {
			break
		}

		perf.StartFrame()
		if err := o.Step(orchestrator.Controls{}); err != nil {
			slog.Error("step failed", "frame", frame, "error", err)
			break
		}
		perf.EndFrame()
		frame++

		if time.Since(lastReport) >= 10*time.Second {
			fs := telemetry.Snapshot(o.Buffers())
			stats := perf.Stats()
			stats.LogStats()
			if err := trace.Write(stats.ToCSV(frame, fs)); err != nil {
				slog.Warn("writing trace row", "error", err)
			}
			lastReport = time.Now()
		}
	}

	elapsed := time.Since(start)
	slog.Info("headless run complete", "frames", frame, "elapsed", elapsed.Round(time.Millisecond))
}

// runWindowed runs the interactive raylib loop, translating HUD input
// into orchestrator.Controls each frame.
func runWindowed(o *orchestrator.Orchestrator, cfg *config.Config, perf *telemetry.PerfCollector, trace *telemetry.TraceWriter) {
	p := present.NewPresenter(cfg.Screen, "PBF Fluid Simulator")
	defer p.Close()

	var hud present.HUDState
	frame := int64(0)

	for !p.ShouldClose() {
		perf.StartFrame()

		controls := orchestrator.Controls{
			Paused:           hud.Paused,
			GenerateWaves:    hud.GenerateWaves,
			FriendsHistogram: hud.FriendsHistogram,
			ResetRequested:   hud.ResetRequested,
		}
		if err := o.Step(controls); err != nil {
			slog.Error("step failed", "frame", frame, "error", err)
		}
		hud.ResetRequested = false

		perf.EndFrame()
		frame++

		hud.FPS = int(perf.Stats().FramesPerSecond)
		hud.ParticleCount = int(o.Params().ParticleCount)
		hud = p.Frame(o, hud)

		if frame%int64(cfg.Telemetry.PerfWindow) == 0 {
			fs := telemetry.Snapshot(o.Buffers())
			if err := trace.Write(perf.Stats().ToCSV(frame, fs)); err != nil {
				slog.Warn("writing trace row", "error", err)
			}
		}
	}
}
