package quota

import (
	"testing"
	"time"

	logx "github.com/DeclanJeon/autostory-sub001/pkg/logx"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestTracker(limits map[string]int) (*Tracker, *fakeClock) {
	clk := &fakeClock{t: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
	return New(limits, clk.now, logx.Nop()), clk
}

func TestCheckRespectsLimit(t *testing.T) {
	tr, _ := newTestTracker(map[string]int{"naver": 2})

	if !tr.Check("naver") {
		t.Fatal("fresh tracker should allow publishing")
	}
	tr.Increment("naver")
	if !tr.Check("naver") {
		t.Fatal("one below limit should still allow")
	}
	tr.Increment("naver")
	if tr.Check("naver") {
		t.Fatal("at limit should deny")
	}
}

func TestZeroLimitMeansUnlimited(t *testing.T) {
	tr, _ := newTestTracker(map[string]int{"tistory": 0})

	for i := 0; i < 50; i++ {
		if !tr.Check("tistory") {
			t.Fatalf("unlimited platform denied after %d publishes", i)
		}
		tr.Increment("tistory")
	}
}

func TestDailyResetOnDateChange(t *testing.T) {
	tr, clk := newTestTracker(map[string]int{"naver": 1})

	tr.Increment("naver")
	tr.Reserve("naver")
	if tr.Check("naver") {
		t.Fatal("should be exhausted before reset")
	}

	// Crossing midnight resets counters exactly once, on next access.
	clk.t = clk.t.Add(24 * time.Hour)
	if !tr.Check("naver") {
		t.Fatal("should allow again after date change")
	}

	st := tr.Stats()
	ps := st.Platforms["naver"]
	if ps.Count != 0 || ps.Reserved != 0 {
		t.Fatalf("counters not reset: %+v", ps)
	}
	if st.LastResetDate != "2025-06-02" {
		t.Fatalf("expected reset date 2025-06-02, got %q", st.LastResetDate)
	}
}

func TestSameDayDoesNotReset(t *testing.T) {
	tr, clk := newTestTracker(map[string]int{"naver": 3})

	tr.Increment("naver")
	clk.t = clk.t.Add(10 * time.Hour) // still 2025-06-01

	if got := tr.Stats().Platforms["naver"].Count; got != 1 {
		t.Fatalf("count should survive within the day, got %d", got)
	}
}

func TestReserveDoesNotConsumeQuota(t *testing.T) {
	tr, _ := newTestTracker(map[string]int{"naver": 1})

	tr.Reserve("naver")
	tr.Reserve("naver")
	if !tr.Check("naver") {
		t.Fatal("reservations must not consume quota")
	}
	if got := tr.Stats().Platforms["naver"].Reserved; got != 2 {
		t.Fatalf("expected 2 reservations, got %d", got)
	}
}

func TestStateRoundTrip(t *testing.T) {
	tr, clk := newTestTracker(map[string]int{"naver": 3, "tistory": 15})
	tr.Increment("naver")
	tr.Increment("tistory")
	tr.Reserve("tistory")

	st := tr.State()

	restored := New(map[string]int{"naver": 3, "tistory": 15}, clk.now, logx.Nop())
	restored.Restore(st)

	got := restored.Stats()
	if got.Platforms["naver"].Count != 1 || got.Platforms["tistory"].Count != 1 {
		t.Fatalf("counts lost in round trip: %+v", got.Platforms)
	}
	if got.Platforms["tistory"].Reserved != 1 {
		t.Fatalf("reservations lost in round trip: %+v", got.Platforms)
	}

	// A restored snapshot from yesterday is wiped by the first access today.
	clk.t = clk.t.Add(24 * time.Hour)
	if got := restored.Stats().Platforms["naver"].Count; got != 0 {
		t.Fatalf("stale snapshot should reset, got count %d", got)
	}
}
