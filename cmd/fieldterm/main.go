// Command fieldterm runs the viewer in a terminal, drawing each particle as
// a coloured cell.
package main

import (
	"flag"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/pthm-cable/pourover/config"
	"github.com/pthm-cable/pourover/viewer"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	scene := flag.String("scene", "", "Initial scene (empty = use config)")
	fps := flag.Int("fps", 30, "Frames per second")
	logPath := flag.String("log", "", "Write JSON logs to this file (empty = discard)")
	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// The terminal owns stdout, so logs go to a file or nowhere.
	var logOut io.Writer = io.Discard
	if *logPath != "" {
		f, err := os.Create(*logPath)
		if err != nil {
			slog.Error("failed to open log", "error", err)
			os.Exit(1)
		}
		defer f.Close()
		logOut = f
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(logOut, nil)))

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		slog.Error("failed to create screen", "error", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		slog.Error("failed to init screen", "error", err)
		os.Exit(1)
	}
	defer screen.Fini()

	cols, rows := screen.Size()
	v, err := viewer.New(viewer.Options{
		Seed:         rngSeed,
		TourInterval: -1,
		InitialScene: *scene,
		ViewportW:    float32(cols),
		ViewportH:    float32(rows * cellAspect),
	})
	if err != nil {
		screen.Fini()
		slog.Error("failed to start viewer", "error", err)
		os.Exit(1)
	}
	defer v.Unload()

	t := newTerm(screen, v)
	t.run(time.Second / time.Duration(max(*fps, 1)))
}
