package telemetry

import "testing"

func hasBookmark(bookmarks []Bookmark, bt BookmarkType) bool {
	for _, bm := range bookmarks {
		if bm.Type == bt {
			return true
		}
	}
	return false
}

func TestBookmarkDetector_CapacityGrowth(t *testing.T) {
	bd := NewBookmarkDetector(10)

	// First capacity seen is the baseline, not growth
	if bms := bd.Check(WindowStats{WindowEndTick: 600, Capacity: 1000, Live: 500}); hasBookmark(bms, BookmarkCapacityGrowth) {
		t.Error("first capacity should not trigger capacity_growth")
	}

	bms := bd.Check(WindowStats{WindowEndTick: 1200, Capacity: 3000, Live: 2000, Accepted: 1})
	if !hasBookmark(bms, BookmarkCapacityGrowth) {
		t.Error("expected capacity_growth bookmark")
	}

	// Same capacity again is not growth
	if bms := bd.Check(WindowStats{WindowEndTick: 1800, Capacity: 3000, Accepted: 1}); hasBookmark(bms, BookmarkCapacityGrowth) {
		t.Error("unchanged capacity should not trigger capacity_growth")
	}
}

func TestBookmarkDetector_RejectBurst(t *testing.T) {
	bd := NewBookmarkDetector(10)

	bms := bd.Check(WindowStats{WindowEndTick: 600, Accepted: 2, Rejected: 40})
	if !hasBookmark(bms, BookmarkRejectBurst) {
		t.Error("expected reject_burst bookmark")
	}

	bms = bd.Check(WindowStats{WindowEndTick: 1200, Accepted: 10, Rejected: 4})
	if hasBookmark(bms, BookmarkRejectBurst) {
		t.Error("few rejections should not trigger reject_burst")
	}
}

func TestBookmarkDetector_SlowSettle(t *testing.T) {
	bd := NewBookmarkDetector(10)

	// Build history of normal settle times
	for i := 0; i < 5; i++ {
		bd.Check(WindowStats{
			WindowEndTick: int32(i * 600),
			Accepted:      1,
			Settled:       1,
			SettleP90:     100,
		})
	}

	bms := bd.Check(WindowStats{WindowEndTick: 3000, Accepted: 1, Settled: 1, SettleP90: 350})
	if !hasBookmark(bms, BookmarkSlowSettle) {
		t.Error("expected slow_settle bookmark")
	}
}

func TestBookmarkDetector_QuietView(t *testing.T) {
	bd := NewBookmarkDetector(10)

	var triggered int
	for i := 0; i < 6; i++ {
		bms := bd.Check(WindowStats{WindowEndTick: int32(i * 600), Live: 800, Capacity: 1000})
		if hasBookmark(bms, BookmarkQuietView) {
			triggered++
		}
	}
	if triggered != 1 {
		t.Errorf("quiet_view should trigger exactly once per quiet stretch, got %d", triggered)
	}

	// Activity resets the stretch
	bd.Check(WindowStats{WindowEndTick: 4000, Live: 800, Capacity: 1000, Accepted: 1})
	for i := 0; i < 3; i++ {
		bms := bd.Check(WindowStats{WindowEndTick: int32(5000 + i*600), Live: 800, Capacity: 1000})
		if i == 2 && !hasBookmark(bms, BookmarkQuietView) {
			t.Error("quiet_view should trigger again after activity")
		}
	}
}
