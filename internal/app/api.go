package app

import (
	"context"

	"github.com/DeclanJeon/autostory-sub001/internal/eventbus"
	"github.com/DeclanJeon/autostory-sub001/internal/material"
	"github.com/DeclanJeon/autostory-sub001/internal/pipeline"
	"github.com/DeclanJeon/autostory-sub001/internal/quota"
	"github.com/DeclanJeon/autostory-sub001/internal/scheduler"
)

// PublishRequest is the UI-facing form of a publish command.
type PublishRequest struct {
	// Mode is "random" or "queue". Empty means random.
	Mode string
	// SelectedIDs holds the queued material identities (queue mode only).
	SelectedIDs []string
	// HomeTheme overrides the configured theme for this run.
	HomeTheme string
}

// OneClickPublish runs a full publish attempt and blocks until it reaches a
// terminal stage. At most one attempt runs at a time; a second call while one
// is in flight returns pipeline.ErrAlreadyRunning.
func (a *App) OneClickPublish(ctx context.Context, req PublishRequest) (pipeline.Result, error) {
	mode := material.ModeRandom
	if req.Mode == string(material.ModeQueue) {
		mode = material.ModeQueue
	}
	return a.runPublish(ctx, pipeline.StartRequest{
		Mode:        mode,
		SelectedIDs: req.SelectedIDs,
		HomeTheme:   req.HomeTheme,
	})
}

// CancelPublish requests cooperative cancellation of the active publish.
// The reply says whether the request was accepted, not whether the job
// stopped; cancellation lands at the next stage boundary.
func (a *App) CancelPublish() pipeline.CancelReply {
	return a.orch.RequestCancel()
}

// CurrentStage reports the active job's stage, if any.
func (a *App) CurrentStage() (pipeline.Stage, bool) {
	return a.orch.CurrentStage()
}

// StartScheduler enables recurring publishing at the given interval.
func (a *App) StartScheduler(intervalMinutes int) error {
	return a.sched.Start(intervalMinutes)
}

// StopScheduler disables recurring publishing. In-flight publishes finish.
func (a *App) StopScheduler() {
	a.sched.Stop()
}

// SchedulerStatus returns a snapshot of scheduler state.
func (a *App) SchedulerStatus() scheduler.Status {
	return a.sched.Snapshot()
}

// DailyStats returns today's per-platform publish counters and limits.
func (a *App) DailyStats() quota.Stats {
	return a.quota.Stats()
}

// SubscribeStages returns a channel of stage-change events for the next
// publish job. The stream is finite: it ends (the channel closes) once a
// terminal stage has been delivered. Call the returned function to stop
// watching early.
func (a *App) SubscribeStages(buffer int) (<-chan eventbus.StageChange, func()) {
	return pipeline.WatchJob(a.bus, buffer)
}

// SubscribeLogs returns a channel of rendered log lines.
// Call the returned function to unsubscribe.
func (a *App) SubscribeLogs(buffer int) (<-chan string, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	events, unsub := a.bus.Subscribe(buffer * 2)
	out := make(chan string, buffer)
	go func() {
		defer close(out)
		for ev := range events {
			if ev.Type != eventbus.TypeLog {
				continue
			}
			ll, ok := ev.Data.(eventbus.LogLine)
			if !ok {
				continue
			}
			select {
			case out <- ll.Line:
			default:
			}
		}
	}()
	return out, unsub
}

// RecentLogs returns the retained log tail, oldest first.
func (a *App) RecentLogs() []string {
	return a.logs.Recent()
}
