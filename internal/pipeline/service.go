package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/DeclanJeon/autostory-sub001/internal/eventbus"
	"github.com/DeclanJeon/autostory-sub001/internal/material"
	"github.com/DeclanJeon/autostory-sub001/internal/quota"
	"github.com/DeclanJeon/autostory-sub001/internal/storage"
	logx "github.com/DeclanJeon/autostory-sub001/pkg/logx"
)

// Config controls the orchestrator.
type Config struct {
	// Platforms are the publish targets, in dispatch order.
	Platforms []string
	// StageTimeout bounds each collaborator call; 0 disables the bound.
	StageTimeout time.Duration
}

// Service is the job orchestrator: it drives a single publish attempt
// end-to-end and enforces that only one job is active process-wide.
type Service struct {
	cfg    Config
	collab Collaborators

	resolver *material.Resolver
	source   material.Source
	quota    *quota.Tracker
	bus      eventbus.Bus
	store    storage.Store // optional; history sink
	log      logx.Logger

	clock func() time.Time

	mu            sync.Mutex
	active        *Job
	cancelPending bool
}

func New(cfg Config, collab Collaborators, resolver *material.Resolver, source material.Source, qt *quota.Tracker, bus eventbus.Bus, store storage.Store, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		cfg:      cfg,
		collab:   collab,
		resolver: resolver,
		source:   source,
		quota:    qt,
		bus:      bus,
		store:    store,
		log:      log,
		clock:    time.Now,
	}
}

// SetClock overrides the orchestrator's clock. Test hook.
func (s *Service) SetClock(now func() time.Time) {
	if now != nil {
		s.clock = now
	}
}

// Active reports whether a job is currently running.
func (s *Service) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil
}

// CurrentStage returns the active job's stage, or (StageIdle, false) when no
// job is running.
func (s *Service) CurrentStage() (Stage, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return StageIdle, false
	}
	return s.active.stage, true
}

// RequestCancel flags a cooperative cancel. It is accepted only while a job
// is active and its current stage permits cancellation; the flag is polled
// at stage boundaries, never pre-empting a collaborator call in flight.
func (s *Service) RequestCancel() CancelReply {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return CancelReply{Accepted: false, Message: "no publish in progress"}
	}
	if !s.active.stage.CanCancel() {
		return CancelReply{Accepted: false, Message: "publish is finishing and can no longer be cancelled"}
	}
	s.cancelPending = true
	return CancelReply{Accepted: true, Message: "cancel requested; stopping at the next stage boundary"}
}

// setStage moves the job forward and emits exactly one progress event per
// transition. Regressions (a collaborator trying to move the bar backwards)
// are dropped.
func (s *Service) setStage(job *Job, next Stage, message string) {
	s.mu.Lock()
	cur := job.stage
	if cur.Terminal() {
		s.mu.Unlock()
		return
	}
	if next.Rank() < cur.Rank() {
		s.mu.Unlock()
		s.log.Warn("ignoring stage regression",
			logx.String("job", job.ID),
			logx.String("from", cur.String()),
			logx.String("to", next.String()),
		)
		return
	}
	if next == cur {
		s.mu.Unlock()
		return
	}
	job.stage = next
	s.mu.Unlock()

	s.log.Info(message, logx.String("job", job.ID), logx.String("stage", next.String()))
	eventbus.PublishStage(s.bus, eventbus.StageChange{
		JobID:     job.ID,
		Stage:     next.String(),
		Message:   message,
		CanCancel: next.CanCancel(),
	})
}

// cancelRequested consumes a pending cancel if the job's stage permits it.
func (s *Service) cancelRequested(job *Job) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cancelPending {
		return false
	}
	if !job.stage.CanCancel() {
		return false
	}
	s.cancelPending = false
	return true
}

// stageCtx applies the optional per-stage bound to a collaborator call.
func (s *Service) stageCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.StageTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.cfg.StageTimeout)
}
