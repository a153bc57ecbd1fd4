package telemetry

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Phase is one stage of a host frame.
type Phase uint8

const (
	PhaseGenerate   Phase = iota // building the requested cloud
	PhaseTransition              // handing it to the engine
	PhaseTick                    // advancing the morph
	PhaseDraw
	PhaseTelemetry
	phaseCount
)

var phaseNames = [phaseCount]string{"generate", "transition", "tick", "draw", "telemetry"}

func (p Phase) String() string {
	if p < phaseCount {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", uint8(p))
}

// Phases returns every phase in frame order.
func Phases() []Phase {
	out := make([]Phase, phaseCount)
	for i := range out {
		out[i] = Phase(i)
	}
	return out
}

// frameCost is the timing of one completed frame.
type frameCost struct {
	total      time.Duration
	phases     [phaseCount]time.Duration
	rebuilding bool
}

// TransitionCost is the frame time charged to one transition while it was in
// flight. Frames counts frames completed before it settled.
type TransitionCost struct {
	ID     uuid.UUID
	Frames int
	Total  time.Duration
	Phases [phaseCount]time.Duration
}

// PerfCollector times host frames over a rolling window, split by whether a
// transition was in flight, and charges each frame to the running transition.
type PerfCollector struct {
	ring  []frameCost
	next  int
	count int

	cur        frameCost
	frameStart time.Time
	phase      Phase
	phaseStart time.Time
	inPhase    bool

	flight *TransitionCost

	lastFrame time.Time
	interval  time.Duration

	now func() time.Time
}

// NewPerfCollector creates a collector averaging over window frames.
func NewPerfCollector(window int) *PerfCollector {
	if window < 1 {
		window = 60
	}
	return &PerfCollector{
		ring: make([]frameCost, window),
		now:  time.Now,
	}
}

// BeginFrame starts timing a frame. An unfinished frame is discarded.
func (p *PerfCollector) BeginFrame() {
	p.cur = frameCost{}
	p.frameStart = p.now()
	p.inPhase = false
}

// Enter closes the running phase and starts timing ph.
func (p *PerfCollector) Enter(ph Phase) {
	now := p.now()
	p.closePhase(now)
	p.phase = ph
	p.phaseStart = now
	p.inPhase = true
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.inPhase {
		p.cur.phases[p.phase] += now.Sub(p.phaseStart)
		p.inPhase = false
	}
}

// EndFrame records the frame. rebuilding reports whether the engine had a
// transition in flight when the frame ended.
func (p *PerfCollector) EndFrame(rebuilding bool) {
	now := p.now()
	p.closePhase(now)
	p.cur.total = now.Sub(p.frameStart)
	p.cur.rebuilding = rebuilding

	p.ring[p.next] = p.cur
	p.next = (p.next + 1) % len(p.ring)
	if p.count < len(p.ring) {
		p.count++
	}

	if p.flight != nil {
		p.flight.Frames++
		p.flight.Total += p.cur.total
		for i, d := range p.cur.phases {
			p.flight.Phases[i] += d
		}
	}
}

// BeginTransition starts charging frames to a fresh transition.
func (p *PerfCollector) BeginTransition(id uuid.UUID) {
	p.flight = &TransitionCost{ID: id}
}

// RetargetTransition moves the running cost to id. A retarget continues the
// same flight, so nothing is reset.
func (p *PerfCollector) RetargetTransition(id uuid.UUID) {
	if p.flight == nil {
		p.BeginTransition(id)
		return
	}
	p.flight.ID = id
}

// FinishTransition returns and clears the running cost.
func (p *PerfCollector) FinishTransition() (TransitionCost, bool) {
	if p.flight == nil {
		return TransitionCost{}, false
	}
	c := *p.flight
	p.flight = nil
	return c, true
}

// CancelTransition drops the running cost without reporting it.
func (p *PerfCollector) CancelTransition() {
	p.flight = nil
}

// RecordFrame marks a presented frame for FPS in graphics mode.
func (p *PerfCollector) RecordFrame() {
	now := p.now()
	if !p.lastFrame.IsZero() {
		p.interval = now.Sub(p.lastFrame)
	}
	p.lastFrame = now
}

// PhaseCost is one phase's average time and share of the average frame.
type PhaseCost struct {
	Avg time.Duration
	Pct float64
}

// PerfStats summarises the rolling window.
type PerfStats struct {
	Frames   int
	AvgFrame time.Duration
	P90Frame time.Duration
	MaxFrame time.Duration
	Phases   [phaseCount]PhaseCost

	// Frames ended with a transition in flight, and the average cost of each kind
	RebuildFrames   int
	AvgRebuildFrame time.Duration
	AvgStableFrame  time.Duration

	TicksPerSecond float64
	FrameInterval  time.Duration
	FPS            float64
}

// Phase returns the cost of ph.
func (s PerfStats) Phase(ph Phase) PhaseCost {
	if ph >= phaseCount {
		return PhaseCost{}
	}
	return s.Phases[ph]
}

// RebuildShare is the fraction of sampled frames spent rebuilding.
func (s PerfStats) RebuildShare() float64 {
	if s.Frames == 0 {
		return 0
	}
	return float64(s.RebuildFrames) / float64(s.Frames)
}

// Stats summarises the frames currently in the window.
func (p *PerfCollector) Stats() PerfStats {
	s := PerfStats{Frames: p.count, FrameInterval: p.interval}
	if p.interval > 0 {
		s.FPS = float64(time.Second) / float64(p.interval)
	}
	if p.count == 0 {
		return s
	}

	totals := make([]float64, 0, p.count)
	var phaseSum [phaseCount]time.Duration
	var rebuildSum, stableSum time.Duration
	for _, f := range p.ring[:p.count] {
		totals = append(totals, float64(f.total))
		for i, d := range f.phases {
			phaseSum[i] += d
		}
		if f.rebuilding {
			s.RebuildFrames++
			rebuildSum += f.total
		} else {
			stableSum += f.total
		}
	}
	sort.Float64s(totals)

	s.AvgFrame = time.Duration(stat.Mean(totals, nil))
	s.P90Frame = time.Duration(stat.Quantile(0.9, stat.Empirical, totals, nil))
	s.MaxFrame = time.Duration(floats.Max(totals))
	if s.RebuildFrames > 0 {
		s.AvgRebuildFrame = rebuildSum / time.Duration(s.RebuildFrames)
	}
	if stable := p.count - s.RebuildFrames; stable > 0 {
		s.AvgStableFrame = stableSum / time.Duration(stable)
	}

	for i, sum := range phaseSum {
		avg := sum / time.Duration(p.count)
		s.Phases[i].Avg = avg
		if s.AvgFrame > 0 {
			s.Phases[i].Pct = float64(avg) / float64(s.AvgFrame) * 100
		}
	}
	if s.AvgFrame > 0 {
		s.TicksPerSecond = float64(time.Second) / float64(s.AvgFrame)
	}
	return s
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int("frames", s.Frames),
		slog.Int64("avg_frame_us", s.AvgFrame.Microseconds()),
		slog.Int64("p90_frame_us", s.P90Frame.Microseconds()),
		slog.Int64("max_frame_us", s.MaxFrame.Microseconds()),
		slog.Float64("rebuild_share", s.RebuildShare()),
	}
	if s.FPS > 0 {
		attrs = append(attrs, slog.Int("fps", int(s.FPS)))
	}
	for _, ph := range Phases() {
		if pct := s.Phases[ph].Pct; pct > 0.1 {
			attrs = append(attrs, slog.Float64(ph.String()+"_pct", float64(int(pct*10))/10))
		}
	}
	return slog.GroupValue(attrs...)
}

// LogStats logs the perf summary using slog.
func (s PerfStats) LogStats() {
	slog.Info("perf", "stats", s)
}

// PerfStatsCSV is a flat struct for CSV export of perf stats.
type PerfStatsCSV struct {
	WindowEnd     int32   `csv:"window_end"`
	Frames        int     `csv:"frames"`
	AvgFrameUS    int64   `csv:"avg_frame_us"`
	P90FrameUS    int64   `csv:"p90_frame_us"`
	MaxFrameUS    int64   `csv:"max_frame_us"`
	RebuildShare  float64 `csv:"rebuild_share"`
	AvgRebuildUS  int64   `csv:"avg_rebuild_us"`
	AvgStableUS   int64   `csv:"avg_stable_us"`
	TicksPerSec   float64 `csv:"ticks_per_sec"`
	FPS           float64 `csv:"fps"`
	GeneratePct   float64 `csv:"generate_pct"`
	TransitionPct float64 `csv:"transition_pct"`
	TickPct       float64 `csv:"tick_pct"`
	DrawPct       float64 `csv:"draw_pct"`
	TelemetryPct  float64 `csv:"telemetry_pct"`
}

// ToCSV flattens the stats into a row ending at windowEnd.
func (s PerfStats) ToCSV(windowEnd int32) PerfStatsCSV {
	return PerfStatsCSV{
		WindowEnd:     windowEnd,
		Frames:        s.Frames,
		AvgFrameUS:    s.AvgFrame.Microseconds(),
		P90FrameUS:    s.P90Frame.Microseconds(),
		MaxFrameUS:    s.MaxFrame.Microseconds(),
		RebuildShare:  s.RebuildShare(),
		AvgRebuildUS:  s.AvgRebuildFrame.Microseconds(),
		AvgStableUS:   s.AvgStableFrame.Microseconds(),
		TicksPerSec:   s.TicksPerSecond,
		FPS:           s.FPS,
		GeneratePct:   s.Phases[PhaseGenerate].Pct,
		TransitionPct: s.Phases[PhaseTransition].Pct,
		TickPct:       s.Phases[PhaseTick].Pct,
		DrawPct:       s.Phases[PhaseDraw].Pct,
		TelemetryPct:  s.Phases[PhaseTelemetry].Pct,
	}
}
