package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/pourover/config"
	"github.com/pthm-cable/pourover/ui"
	"github.com/pthm-cable/pourover/viewer"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output transition and stats logs via slog")
	snapshotDir := flag.String("snapshot-dir", "", "Directory for snapshot files")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	scene := flag.String("scene", "", "Initial scene (empty = use config)")
	payloadPath := flag.String("payload", "", "Generative-service response JSON to show on start")
	snapshotPath := flag.String("snapshot", "", "Snapshot file to replay on start")
	tourInterval := flag.Int("tour-interval", 0, "Ticks per chapter in headless tours (0 = use config, <0 = off)")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// Set up seed
	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	opts := viewer.Options{
		Seed:         rngSeed,
		Headless:     *headless,
		LogStats:     *logStats,
		OutputDir:    *outputDir,
		SnapshotDir:  *snapshotDir,
		TourInterval: *tourInterval,
		InitialScene: *scene,
	}

	if *headless {
		// Headless mode - no raylib needed
		v, err := viewer.New(opts)
		if err != nil {
			slog.Error("failed to start viewer", "error", err)
			os.Exit(1)
		}
		defer v.Unload()
		loadStartup(v, *payloadPath, *snapshotPath)

		slog.Info("starting headless tour",
			"seed", rngSeed,
			"max_ticks", *maxTicks,
			"tour_interval", *tourInterval,
		)

		for {
			v.UpdateHeadless()

			if *maxTicks > 0 && int(v.Tick()) >= *maxTicks {
				slog.Info("max ticks reached", "tick", v.Tick())
				return
			}
		}
	}

	// Graphical mode
	rl.SetConfigFlags(rl.FlagWindowResizable | rl.FlagMsaa4xHint)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Pour Over")
	defer rl.CloseWindow()

	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	surface := ui.NewSurface()
	opts.Surface = surface
	opts.ViewportW = float32(rl.GetScreenWidth())
	opts.ViewportH = float32(rl.GetScreenHeight())

	v, err := viewer.New(opts)
	if err != nil {
		slog.Error("failed to start viewer", "error", err)
		return
	}
	defer v.Unload()
	loadStartup(v, *payloadPath, *snapshotPath)

	app := ui.NewApp(v, surface)
	for !rl.WindowShouldClose() {
		app.Update()
		app.Draw()

		if *maxTicks > 0 && int(v.Tick()) >= *maxTicks {
			break
		}
	}
}

// loadStartup queues a payload or snapshot given on the command line.
// Failures are logged and the initial scene stays.
func loadStartup(v *viewer.Viewer, payloadPath, snapshotPath string) {
	if snapshotPath != "" {
		if err := v.LoadSnapshot(snapshotPath); err != nil {
			slog.Error("failed to load snapshot", "path", snapshotPath, "error", err)
		}
		return
	}
	if payloadPath != "" {
		data, err := os.ReadFile(payloadPath)
		if err != nil {
			slog.Error("failed to read payload", "path", payloadPath, "error", err)
			return
		}
		_ = v.ApplyPayload(data)
	}
}
