package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": dependency-free file backend (json snapshot + jsonl history)
//   - "sqlite": SQLite database file (optional build tag)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// SchedulerState is the scheduler's persisted view: it survives restarts so
// an enabled scheduler resumes with its interval and run bookkeeping intact.
type SchedulerState struct {
	Enabled         bool      `json:"enabled"`
	IntervalMinutes int       `json:"intervalMinutes"`
	LastRun         time.Time `json:"lastRun"`
	NextRun         time.Time `json:"nextRun"` // zero means "not scheduled"
	TotalPublished  int       `json:"totalPublished"`
}

// QuotaState is the daily quota tracker's persisted view. LastResetDate is a
// plain date string compared for inequality, not a calendar computation.
type QuotaState struct {
	LastResetDate string         `json:"lastResetDate"`
	Counts        map[string]int `json:"counts"`
	Reserved      map[string]int `json:"reserved"`
}

// State bundles everything that survives a process restart.
type State struct {
	Scheduler SchedulerState `json:"scheduler"`
	Quota     QuotaState     `json:"quota"`
}

// HistoryEntry records one per-platform publish outcome.
// Keep it compact and schema-stable.
type HistoryEntry struct {
	At       time.Time
	JobID    string
	Mode     string
	Title    string
	Platform string
	Status   string // published | reserved | failed
	URL      string
	Error    string
	TookMS   int64
}
