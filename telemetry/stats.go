package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated transition statistics for a tick window.
type WindowStats struct {
	WindowStartTick int32 `csv:"-"`
	WindowEndTick   int32 `csv:"window_end"`

	// Events during window
	Accepted   int `csv:"accepted"`
	Retargeted int `csv:"retargeted"`
	Rejected   int `csv:"rejected"`
	Settled    int `csv:"settled"`
	Rebuilds   int `csv:"rebuilds"`

	// Engine counts at window end
	Live     int  `csv:"live"`
	Capacity int  `csv:"capacity"`
	InFlight bool `csv:"in_flight"`

	// Ticks from acceptance to settling, for transitions settled in the window
	SettleMean float64 `csv:"settle_mean"`
	SettleP50  float64 `csv:"settle_p50"`
	SettleP90  float64 `csv:"settle_p90"`
	SettleMax  float64 `csv:"settle_max"`
}

// ComputeSettleStats calculates mean, median, p90 and max of settle durations.
// Returns zeros for an empty slice.
func ComputeSettleStats(values []float64) (mean, p50, p90, peak float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mean = stat.Mean(sorted, nil)
	p50 = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.9, stat.Empirical, sorted, nil)
	peak = floats.Max(sorted)
	return mean, p50, p90, peak
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Int("accepted", s.Accepted),
		slog.Int("retargeted", s.Retargeted),
		slog.Int("rejected", s.Rejected),
		slog.Int("settled", s.Settled),
		slog.Int("rebuilds", s.Rebuilds),
		slog.Int("live", s.Live),
		slog.Int("capacity", s.Capacity),
		slog.Bool("in_flight", s.InFlight),
		slog.Float64("settle_mean", s.SettleMean),
		slog.Float64("settle_p50", s.SettleP50),
		slog.Float64("settle_p90", s.SettleP90),
		slog.Float64("settle_max", s.SettleMax),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats", "window", s)
}
