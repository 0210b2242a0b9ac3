package quota

import (
	"sync"
	"time"

	"github.com/DeclanJeon/autostory-sub001/internal/storage"
	logx "github.com/DeclanJeon/autostory-sub001/pkg/logx"
)

// dateKey is the quota reset key: a plain date string compared for
// inequality, never parsed back into a calendar computation.
const dateLayout = "2006-01-02"

// PlatformStats is a point-in-time view of one platform's daily quota.
type PlatformStats struct {
	Count    int `json:"count"`
	Limit    int `json:"limit"`
	Reserved int `json:"reserved"`
}

type Stats struct {
	Platforms     map[string]PlatformStats `json:"perPlatform"`
	LastResetDate string                   `json:"lastResetDate"`
}

// Tracker keeps per-platform daily publish counters with date-based reset.
//
// Every access runs the reset-check under one mutex so the read-modify-write
// (compare date, maybe reset, count) is a single critical section. The clock
// is injected to keep the reset deterministic under test.
type Tracker struct {
	mu sync.Mutex

	now    func() time.Time
	limits map[string]int
	log    logx.Logger

	counts        map[string]int
	reserved      map[string]int
	lastResetDate string
}

// New builds a tracker with fixed per-platform limits (configuration, not
// computed). A nil clock falls back to time.Now.
func New(limits map[string]int, now func() time.Time, log logx.Logger) *Tracker {
	if now == nil {
		now = time.Now
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	lim := make(map[string]int, len(limits))
	for k, v := range limits {
		lim[k] = v
	}
	t := &Tracker{
		now:      now,
		limits:   lim,
		log:      log,
		counts:   map[string]int{},
		reserved: map[string]int{},
	}
	t.lastResetDate = now().Format(dateLayout)
	return t
}

// Restore loads persisted counters. Counts from a previous day are discarded
// by the usual reset-on-access path.
func (t *Tracker) Restore(st storage.QuotaState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if st.LastResetDate != "" {
		t.lastResetDate = st.LastResetDate
	}
	for k, v := range st.Counts {
		if v > 0 {
			t.counts[k] = v
		}
	}
	for k, v := range st.Reserved {
		if v > 0 {
			t.reserved[k] = v
		}
	}
}

// Check reports whether the platform may still publish today.
// A limit <= 0 means the platform is unlimited.
func (t *Tracker) Check(platform string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetIfNeededLocked()
	limit := t.limits[platform]
	if limit <= 0 {
		return true
	}
	return t.counts[platform] < limit
}

// Increment counts one actual publish (not a reservation).
func (t *Tracker) Increment(platform string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetIfNeededLocked()
	t.counts[platform]++
}

// Reserve records a deferred-publish fallback taken because the platform's
// daily limit was exhausted. Reservations do not consume quota.
func (t *Tracker) Reserve(platform string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetIfNeededLocked()
	t.reserved[platform]++
}

func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetIfNeededLocked()

	out := Stats{
		Platforms:     make(map[string]PlatformStats, len(t.limits)),
		LastResetDate: t.lastResetDate,
	}
	for p, limit := range t.limits {
		out.Platforms[p] = PlatformStats{
			Count:    t.counts[p],
			Limit:    limit,
			Reserved: t.reserved[p],
		}
	}
	return out
}

// State snapshots the tracker for persistence.
func (t *Tracker) State() storage.QuotaState {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetIfNeededLocked()

	st := storage.QuotaState{
		LastResetDate: t.lastResetDate,
		Counts:        make(map[string]int, len(t.counts)),
		Reserved:      make(map[string]int, len(t.reserved)),
	}
	for k, v := range t.counts {
		st.Counts[k] = v
	}
	for k, v := range t.reserved {
		st.Reserved[k] = v
	}
	return st
}

func (t *Tracker) resetIfNeededLocked() {
	today := t.now().Format(dateLayout)
	if today == t.lastResetDate {
		return
	}
	t.log.Info("daily quota reset",
		logx.String("from", t.lastResetDate),
		logx.String("to", today),
	)
	t.counts = map[string]int{}
	t.reserved = map[string]int{}
	t.lastResetDate = today
}
