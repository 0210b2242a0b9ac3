package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/DeclanJeon/autostory-sub001/internal/storage"
	logx "github.com/DeclanJeon/autostory-sub001/pkg/logx"
)

var ErrBadInterval = errors.New("scheduler interval must be a positive number of minutes")

// Status is a point-in-time snapshot for the UI.
type Status struct {
	Enabled         bool      `json:"enabled"`
	IntervalMinutes int       `json:"intervalMinutes"`
	LastRun         time.Time `json:"lastRun"`
	NextRun         time.Time `json:"nextRun"` // zero means "not scheduled"
	IsRunning       bool      `json:"isRunning"`
	TotalPublished  int       `json:"totalPublished"`
}

// Service triggers an unattended random-mode publish at a fixed interval.
// Ticks never queue: if a job is still active when the timer fires, the tick
// is skipped.
type Service struct {
	log   logx.Logger
	clock func() time.Time

	// run executes one publish attempt; active reports whether one is in
	// flight; persist saves the combined core state after mutations.
	run     func(ctx context.Context)
	active  func() bool
	persist func()

	mu              sync.Mutex
	enabled         bool
	intervalMinutes int
	lastRun         time.Time
	nextRun         time.Time
	totalPublished  int

	c         *cron.Cron
	entryID   cron.EntryID
	runCtx    context.Context
	runCancel context.CancelFunc
}

func New(run func(ctx context.Context), active func() bool, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		log:    log,
		clock:  time.Now,
		run:    run,
		active: active,
	}
}

// SetPersist installs the state-save hook invoked after every mutation.
func (s *Service) SetPersist(fn func()) { s.persist = fn }

// SetClock overrides the scheduler's clock. Test hook.
func (s *Service) SetClock(now func() time.Time) {
	if now != nil {
		s.clock = now
	}
}

// Restore loads persisted scheduler state, including the operator's enabled
// intent. It never arms the timer; the caller resumes (Start) when the
// restored Enabled flag says so.
func (s *Service) Restore(st storage.SchedulerState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = st.Enabled
	s.intervalMinutes = st.IntervalMinutes
	s.lastRun = st.LastRun
	s.totalPublished = st.TotalPublished
	// nextRun is only meaningful once the timer is running again.
}

// Start arms the recurring trigger. Starting while the timer is already
// running is a no-op: the interval is immutable while running, so the caller
// must Stop() first to change it.
func (s *Service) Start(intervalMinutes int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.c != nil {
		s.log.Warn("scheduler already running; ignoring start",
			logx.Int("interval_min", s.intervalMinutes),
			logx.Int("requested_min", intervalMinutes),
		)
		return nil
	}
	if intervalMinutes <= 0 {
		return ErrBadInterval
	}

	s.intervalMinutes = intervalMinutes
	s.enabled = true
	s.runCtx, s.runCancel = context.WithCancel(context.Background())

	s.c = cron.New()
	id, err := s.c.AddFunc(fmt.Sprintf("@every %dm", intervalMinutes), s.tick)
	if err != nil {
		s.enabled = false
		s.runCancel()
		s.c = nil
		return err
	}
	s.entryID = id
	s.c.Start()
	s.nextRun = s.clock().Add(time.Duration(intervalMinutes) * time.Minute)

	s.log.Info("scheduler started", logx.Int("interval_min", intervalMinutes), logx.Time("next_run", s.nextRun))
	go s.persistState()
	return nil
}

// Stop disables the trigger. Safe to call when already stopped.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.enabled {
		s.mu.Unlock()
		return
	}
	s.enabled = false
	s.nextRun = time.Time{}
	c := s.c
	cancel := s.runCancel
	s.c = nil
	s.runCancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if c != nil {
		<-c.Stop().Done()
	}
	s.persistState()
	s.log.Info("scheduler stopped")
}

func (s *Service) tick() {
	s.mu.Lock()
	ctx := s.runCtx
	enabled := s.enabled
	s.mu.Unlock()
	if !enabled || ctx == nil || ctx.Err() != nil {
		return
	}

	if s.active != nil && s.active() {
		// No queueing, no backlog: a busy tick is simply skipped.
		s.log.Info("scheduler tick skipped; publish still running")
		return
	}
	s.log.Info("scheduler tick; starting publish")
	if s.run != nil {
		s.run(ctx)
	}
}

// NoteCompletion records a finished job: lastRun is the job's completion
// time, nextRun is recomputed from it, and successful posts add to the total.
func (s *Service) NoteCompletion(at time.Time, publishedPosts int) {
	s.mu.Lock()
	s.lastRun = at
	if s.enabled && s.intervalMinutes > 0 {
		s.nextRun = at.Add(time.Duration(s.intervalMinutes) * time.Minute)
	}
	s.totalPublished += publishedPosts
	s.mu.Unlock()
	s.persistState()
}

// Snapshot returns the current status.
func (s *Service) Snapshot() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{
		Enabled:         s.enabled,
		IntervalMinutes: s.intervalMinutes,
		LastRun:         s.lastRun,
		NextRun:         s.nextRun,
		TotalPublished:  s.totalPublished,
	}
	if s.active != nil {
		st.IsRunning = s.active()
	}
	return st
}

// State snapshots the scheduler for persistence.
func (s *Service) State() storage.SchedulerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return storage.SchedulerState{
		Enabled:         s.enabled,
		IntervalMinutes: s.intervalMinutes,
		LastRun:         s.lastRun,
		NextRun:         s.nextRun,
		TotalPublished:  s.totalPublished,
	}
}

// persistState runs the save hook outside the service mutex; the hook
// snapshots state through State()/quota accessors which take their own locks.
func (s *Service) persistState() {
	if s.persist != nil {
		s.persist()
	}
}
