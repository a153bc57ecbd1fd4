package telemetry

// Collector accumulates transition events within tick windows and produces WindowStats.
type Collector struct {
	windowDurationTicks int32

	// Current window tracking
	windowStartTick int32

	// Event counters for current window
	accepted   int
	retargeted int
	rejected   int
	settled    int
	rebuilds   int

	// Settle durations (ticks) completed in this window
	settleTicks []float64

	// In-flight transition
	running  bool
	runStart int32
}

// NewCollector creates a new stats collector flushing every windowTicks ticks.
func NewCollector(windowTicks int32) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{windowDurationTicks: windowTicks}
}

// Record counts an event.
func (c *Collector) Record(e Event) {
	switch e.Type {
	case EventAccepted:
		c.accepted++
		if e.Immediate {
			// A snap abandons whatever was in flight.
			c.running = false
		} else if !c.running {
			c.running = true
			c.runStart = e.Tick
		}
	case EventRetargeted:
		c.retargeted++
	case EventRejected:
		c.rejected++
	case EventSettled:
		c.settled++
		if c.running {
			c.settleTicks = append(c.settleTicks, float64(e.Tick-c.runStart))
			c.running = false
		}
	case EventRebuild:
		c.rebuilds++
	}
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats and resets counters for the next window.
// live and capacity are the engine's counts at flush time.
func (c *Collector) Flush(currentTick int32, live, capacity int) WindowStats {
	mean, p50, p90, peak := ComputeSettleStats(c.settleTicks)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,

		Accepted:   c.accepted,
		Retargeted: c.retargeted,
		Rejected:   c.rejected,
		Settled:    c.settled,
		Rebuilds:   c.rebuilds,

		Live:     live,
		Capacity: capacity,
		InFlight: c.running,

		SettleMean: mean,
		SettleP50:  p50,
		SettleP90:  p90,
		SettleMax:  peak,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.accepted = 0
	c.retargeted = 0
	c.rejected = 0
	c.settled = 0
	c.rebuilds = 0
	c.settleTicks = c.settleTicks[:0]

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}
