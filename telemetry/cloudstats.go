package telemetry

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/pourover/field"
)

// CloudStats summarises the shape of a point cloud.
type CloudStats struct {
	Count     int
	CentroidX float64
	CentroidY float64
	CentroidZ float64
	Spread    float64 // RMS distance from the centroid
	MinY      float64
	MaxY      float64
	Colors    int // distinct packed colours
}

// ComputeCloudStats calculates CloudStats for c.
func ComputeCloudStats(c field.Cloud) CloudStats {
	n := len(c)
	if n == 0 {
		return CloudStats{}
	}

	xs := make([]float64, n)
	ys := make([]float64, n)
	zs := make([]float64, n)
	colors := make(map[uint32]struct{})
	for i, p := range c {
		xs[i], ys[i], zs[i] = float64(p.X), float64(p.Y), float64(p.Z)
		colors[p.Color] = struct{}{}
	}

	mx, vx := stat.PopMeanVariance(xs, nil)
	my, vy := stat.PopMeanVariance(ys, nil)
	mz, vz := stat.PopMeanVariance(zs, nil)

	return CloudStats{
		Count:     n,
		CentroidX: mx,
		CentroidY: my,
		CentroidZ: mz,
		Spread:    math.Sqrt(vx + vy + vz),
		MinY:      floats.Min(ys),
		MaxY:      floats.Max(ys),
		Colors:    len(colors),
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (s CloudStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("count", s.Count),
		slog.Float64("centroid_x", s.CentroidX),
		slog.Float64("centroid_y", s.CentroidY),
		slog.Float64("centroid_z", s.CentroidZ),
		slog.Float64("spread", s.Spread),
		slog.Float64("min_y", s.MinY),
		slog.Float64("max_y", s.MaxY),
		slog.Int("colors", s.Colors),
	)
}
