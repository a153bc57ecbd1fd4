package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkCapacityGrowth BookmarkType = "capacity_growth"
	BookmarkRejectBurst    BookmarkType = "reject_burst"
	BookmarkSlowSettle     BookmarkType = "slow_settle"
	BookmarkQuietView      BookmarkType = "quiet_view"
)

// Bookmark represents an automatically triggered bookmark.
type Bookmark struct {
	Type        BookmarkType `csv:"type" json:"type"`
	Tick        int32        `csv:"tick" json:"tick"`
	Description string       `csv:"description" json:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkDetector detects interesting moments in a viewing session.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	// State tracking
	peakCapacity int // largest capacity reported so far
	quietWindows int // consecutive windows without accepted transitions
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 3 {
		historySize = 3 // minimum for rolling averages
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	// Capacity growth: pool grew past its previous peak
	if b := bd.checkCapacityGrowth(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	// Reject burst: more rejections than acceptances
	if b := bd.checkRejectBurst(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	if bd.historyFull || bd.historyIdx > 0 {
		// Slow settle: p90 settle time > 2x rolling average
		if b := bd.checkSlowSettle(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	// Quiet view: a settled scene left alone for 3 windows
	if b := bd.checkQuietView(stats); b != nil {
		bookmarks = append(bookmarks, *b)
	}

	bd.addToHistory(stats)
	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

func (bd *BookmarkDetector) checkCapacityGrowth(stats WindowStats) *Bookmark {
	if stats.Capacity <= bd.peakCapacity {
		return nil
	}
	old := bd.peakCapacity
	bd.peakCapacity = stats.Capacity
	if old == 0 {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkCapacityGrowth,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Pool grew from %d to %d slots", old, stats.Capacity),
	}
}

func (bd *BookmarkDetector) checkRejectBurst(stats WindowStats) *Bookmark {
	if stats.Rejected < 5 || stats.Rejected <= stats.Accepted {
		return nil
	}
	return &Bookmark{
		Type:        BookmarkRejectBurst,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("%d transitions rejected against %d accepted", stats.Rejected, stats.Accepted),
	}
}

func (bd *BookmarkDetector) checkSlowSettle(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 || stats.Settled == 0 {
		return nil
	}

	var sum float64
	var n int
	for _, h := range history {
		if h.Settled > 0 {
			sum += h.SettleP90
			n++
		}
	}
	if n == 0 {
		return nil
	}
	avg := sum / float64(n)
	if avg == 0 {
		return nil
	}

	if stats.SettleP90 > avg*2.0 {
		return &Bookmark{
			Type:        BookmarkSlowSettle,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Settle p90 %.0f ticks is %.1fx average (%.0f)", stats.SettleP90, stats.SettleP90/avg, avg),
		}
	}
	return nil
}

func (bd *BookmarkDetector) checkQuietView(stats WindowStats) *Bookmark {
	if stats.Accepted > 0 || stats.Retargeted > 0 || stats.InFlight || stats.Live == 0 {
		bd.quietWindows = 0
		return nil
	}
	bd.quietWindows++
	if bd.quietWindows == 3 { // trigger exactly once per quiet stretch
		return &Bookmark{
			Type:        BookmarkQuietView,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("View settled with %d particles for 3 windows", stats.Live),
		}
	}
	return nil
}
