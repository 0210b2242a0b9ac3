package app

import (
	"context"
	"errors"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"github.com/DeclanJeon/autostory-sub001/internal/material"
	"github.com/DeclanJeon/autostory-sub001/internal/pipeline"
	"github.com/DeclanJeon/autostory-sub001/internal/runtime/supervisor"
	"github.com/DeclanJeon/autostory-sub001/internal/storage"
	logx "github.com/DeclanJeon/autostory-sub001/pkg/logx"
)

const persistTimeout = 5 * time.Second

func noCtx() context.Context { return context.Background() }

// Start launches background workers and, when the persisted state says the
// scheduler was enabled, resumes it. It returns once the app is ready.
func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log.With(logx.String("comp", "supervisor"))))

	// Hot-reload: watch the config file and re-apply the logging section.
	// Platform and storage changes still require a restart.
	a.sup.GoRestart("config-watch", a.cfgm.Watch)
	a.sup.Go0("config-apply", func(ctx context.Context) {
		ch := a.cfgm.Subscribe(4)
		defer a.cfgm.Unsubscribe(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case cfg, ok := <-ch:
				if !ok {
					return
				}
				a.logs.Apply(mapLoggingConfig(cfg.Logging))
				a.log.Info("config reloaded")
			}
		}
	})

	st := a.sched.Snapshot()
	if st.Enabled && st.IntervalMinutes > 0 {
		if err := a.sched.Start(st.IntervalMinutes); err != nil {
			return err
		}
		a.log.Info("scheduler resumed", logx.Int("interval_minutes", st.IntervalMinutes))
	} else if cfg := a.cfgm.Get(); cfg != nil && cfg.Scheduler.Enabled {
		if err := a.sched.Start(cfg.Scheduler.IntervalMinutes); err != nil {
			return err
		}
	}

	daemon.SdNotify(false, daemon.SdNotifyReady)
	a.log.Info("app started")
	return nil
}

// Stop shuts everything down in reverse order of Start.
func (a *App) Stop(ctx context.Context) error {
	daemon.SdNotify(false, daemon.SdNotifyStopping)

	a.sched.Stop()
	if a.sup != nil {
		a.sup.Stop(ctx)
	}
	a.saveState()
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("storage close failed", logx.Err(err))
		}
	}
	a.log.Info("app stopped")
	a.logs.Close()
	return nil
}

// scheduledRun is the recurring publish entrypoint. Scheduled runs always use
// random material selection.
func (a *App) scheduledRun(ctx context.Context) {
	res, err := a.runPublish(ctx, pipeline.StartRequest{Mode: material.ModeRandom})
	if err != nil && !errors.Is(err, pipeline.ErrAlreadyRunning) {
		a.log.Error("scheduled publish failed", logx.Err(err))
		return
	}
	if res.Success {
		a.log.Info("scheduled publish done", logx.String("title", res.Title))
	}
}

func (a *App) runPublish(ctx context.Context, req pipeline.StartRequest) (pipeline.Result, error) {
	if cfg := a.cfgm.Get(); cfg != nil && req.HomeTheme == "" {
		req.HomeTheme = cfg.Publish.HomeTheme
	}
	res, err := a.orch.Run(ctx, req)
	if errors.Is(err, pipeline.ErrAlreadyRunning) {
		return res, err
	}
	published := 0
	for _, o := range res.Outcomes {
		if o.Status == pipeline.OutcomePublished {
			published++
		}
	}
	// NoteCompletion advances last/next run bookkeeping and persists state
	// through the SetPersist hook.
	a.sched.NoteCompletion(a.clock(), published)
	return res, err
}

func (a *App) saveState() {
	if a.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(noCtx(), persistTimeout)
	defer cancel()
	st := storage.State{
		Scheduler: a.sched.State(),
		Quota:     a.quota.State(),
	}
	if err := a.store.SaveState(ctx, st); err != nil {
		a.log.Warn("state save failed", logx.Err(err))
	}
}
