package viewer

import "log/slog"

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (v *Viewer) flushTelemetry() {
	if v.statsInterval <= 0 || !v.collector.ShouldFlush(v.tick) {
		return
	}

	// Flush the stats window
	stats := v.collector.Flush(v.tick, v.engine.Live(), v.engine.Capacity())
	perfStats := v.perfCollector.Stats()

	// Log stats if enabled (console output)
	if v.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	// Write to CSV if output manager is enabled
	if v.outputManager != nil {
		if err := v.outputManager.WriteTelemetry(stats); err != nil {
			slog.Error("failed to write telemetry", "error", err)
		}
		if err := v.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}

	// Check for bookmarks
	bookmarks := v.bookmarkDetector.Check(stats)
	for _, bm := range bookmarks {
		if v.logStats {
			bm.LogBookmark()
		}

		// Write to CSV if output manager is enabled
		if v.outputManager != nil {
			if err := v.outputManager.WriteBookmark(bm); err != nil {
				slog.Error("failed to write bookmark", "error", err)
			}
		}

		// Save snapshot on bookmark
		if v.snapshotDir != "" || v.outputManager != nil {
			if _, err := v.SaveSnapshot(&bm); err != nil {
				slog.Error("failed to save snapshot", "error", err)
			}
		}
	}
}
