package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/DeclanJeon/autostory-sub001/internal/material"
	"github.com/DeclanJeon/autostory-sub001/internal/storage"
	logx "github.com/DeclanJeon/autostory-sub001/pkg/logx"
)

// Run executes one publish attempt end-to-end and blocks until it reaches a
// terminal stage. A second call while a job is active fails with
// ErrAlreadyRunning; starts are rejected, never queued.
func (s *Service) Run(ctx context.Context, req StartRequest) (Result, error) {
	mode := req.Mode
	if mode == "" {
		mode = material.ModeRandom
	}

	s.mu.Lock()
	if s.active != nil {
		s.mu.Unlock()
		return Result{Success: false, Error: ErrAlreadyRunning.Error()}, ErrAlreadyRunning
	}
	job := &Job{
		ID:          uuid.NewString(),
		Mode:        mode,
		SelectedIDs: append([]string(nil), req.SelectedIDs...),
		HomeTheme:   req.HomeTheme,
		CreatedAt:   s.clock(),
		stage:       StageIdle,
	}
	s.active = job
	s.cancelPending = false
	s.mu.Unlock()

	res, err := s.run(ctx, job)

	// The job record is discarded at its terminal stage.
	s.mu.Lock()
	s.active = nil
	s.cancelPending = false
	s.mu.Unlock()
	return res, err
}

func (s *Service) run(ctx context.Context, job *Job) (Result, error) {
	started := s.clock()

	// Step 1: resolve materials before touching any platform.
	pool, err := s.source.Pool(ctx)
	if err != nil {
		return s.fail(job, "failed loading material pool: "+err.Error(), err)
	}
	mats, err := s.resolver.Resolve(job.Mode, pool, job.SelectedIDs)
	if err != nil {
		return s.fail(job, err.Error(), err)
	}

	// Step 2: authentication. A failure here is terminal and not retried.
	if done, res, err := s.checkCancelled(job); done {
		return res, err
	}
	s.setStage(job, StageCheckingAuth, "checking platform sessions")
	for _, platform := range s.cfg.Platforms {
		actx, cancel := s.stageCtx(ctx)
		ok, err := s.collab.Auth.CheckAuth(actx, platform)
		cancel()
		if err != nil {
			return s.fail(job, "auth check failed on "+platform, fmt.Errorf("%w: %s: %v", ErrAuth, platform, err))
		}
		if ok {
			continue
		}
		s.setStage(job, StageWaitingLogin, "waiting for "+platform+" login")
		s.setStage(job, StageLoggingIn, "logging in to "+platform)
		lctx, cancel := s.stageCtx(ctx)
		err = s.collab.Auth.Login(lctx, platform)
		cancel()
		if err != nil {
			return s.fail(job, "login failed on "+platform, fmt.Errorf("%w: %s: %v", ErrAuth, platform, err))
		}
	}

	// Step 3: issue selection stages are surfaced only in random mode;
	// a queue job already knows its items.
	if done, res, err := s.checkCancelled(job); done {
		return res, err
	}
	if job.Mode == material.ModeRandom {
		s.setStage(job, StageFetchingFeeds, "reviewing collected feeds")
		s.setStage(job, StageSelectingIssues, "selected "+displayTitle(mats[0]))
	}

	// Step 4: persona/prompt pairing.
	if done, res, err := s.checkCancelled(job); done {
		return res, err
	}
	s.setStage(job, StageSelectingStyle, "selecting writing style")
	theme := job.HomeTheme
	if theme == "" {
		theme = displayTitle(mats[0])
	}
	sctx, cancel := s.stageCtx(ctx)
	style, err := s.collab.Styles.SelectStyle(sctx, StyleRequest{Theme: theme, Materials: mats})
	cancel()
	if err != nil {
		return s.fail(job, "style selection failed", fmt.Errorf("%w: %v", ErrGeneration, err))
	}

	// Step 5: content generation (the generator also handles images).
	if done, res, err := s.checkCancelled(job); done {
		return res, err
	}
	s.setStage(job, StageGeneratingContent, "generating post content")
	gctx, cancel := s.stageCtx(ctx)
	draft, err := s.collab.Generator.Generate(gctx, GenerateRequest{Style: style, Theme: theme, Materials: mats})
	cancel()
	if err != nil {
		return s.fail(job, "content generation failed", fmt.Errorf("%w: %v", ErrGeneration, err))
	}
	s.setStage(job, StageProcessingImages, fmt.Sprintf("processing %d image(s)", len(draft.Images)))

	// Step 6: publish to every platform, falling back to reservation when a
	// daily quota is exhausted. From here a dispatched platform's result is
	// never retracted.
	if done, res, err := s.checkCancelled(job); done {
		return res, err
	}
	s.setStage(job, StagePublishing, "publishing to platforms")

	var (
		outcomes  []PlatformOutcome
		warnings  []string
		published []string
		delivered int
	)
	for _, platform := range s.cfg.Platforms {
		if s.quota != nil && !s.quota.Check(platform) {
			rctx, cancel := s.stageCtx(ctx)
			pr, err := s.collab.Publisher.Reserve(rctx, platform, draft)
			cancel()
			if err != nil {
				outcomes = append(outcomes, PlatformOutcome{Platform: platform, Status: OutcomeFailed, Err: err.Error()})
				warnings = append(warnings, platform+": reservation failed: "+err.Error())
				s.appendHistory(ctx, job, draft, platform, OutcomeFailed, "", err, started)
				continue
			}
			s.quota.Reserve(platform)
			outcomes = append(outcomes, PlatformOutcome{Platform: platform, Status: OutcomeReserved, URL: pr.URL})
			warnings = append(warnings, platform+": daily limit reached; post reserved instead")
			delivered++
			s.appendHistory(ctx, job, draft, platform, OutcomeReserved, pr.URL, nil, started)
			continue
		}

		pctx, cancel := s.stageCtx(ctx)
		pr, err := s.collab.Publisher.Publish(pctx, platform, draft)
		cancel()
		if err != nil {
			outcomes = append(outcomes, PlatformOutcome{Platform: platform, Status: OutcomeFailed, Err: err.Error()})
			warnings = append(warnings, platform+": publish failed: "+err.Error())
			s.appendHistory(ctx, job, draft, platform, OutcomeFailed, "", err, started)
			continue
		}
		outcomes = append(outcomes, PlatformOutcome{Platform: platform, Status: OutcomePublished, URL: pr.URL})
		published = append(published, platform)
		delivered++
		s.appendHistory(ctx, job, draft, platform, OutcomePublished, pr.URL, nil, started)
	}

	if delivered == 0 {
		res, err := s.fail(job, "publishing failed on all platforms", ErrPublish)
		res.Outcomes = outcomes
		res.Warnings = warnings
		return res, err
	}

	// Step 7: count only the platforms actually published (not reserved),
	// then retire the consumed materials.
	for _, platform := range published {
		if s.quota != nil {
			s.quota.Increment(platform)
		}
	}
	for _, m := range mats {
		if err := s.source.MarkProcessed(ctx, m.Identity()); err != nil {
			s.log.Warn("failed marking material processed",
				logx.String("id", m.Identity()), logx.Err(err))
		}
	}

	s.setStage(job, StageCompleted, "published "+draft.Title)
	return Result{
		JobID:       job.ID,
		Success:     true,
		Title:       draft.Title,
		UsedPrompt:  style.Prompt,
		UsedPersona: style.Persona,
		Outcomes:    outcomes,
		Warnings:    warnings,
	}, nil
}

// checkCancelled consumes a pending cancel at a stage boundary.
func (s *Service) checkCancelled(job *Job) (bool, Result, error) {
	if !s.cancelRequested(job) {
		return false, Result{}, nil
	}
	s.setStage(job, StageCancelled, "publish cancelled by operator")
	return true, Result{JobID: job.ID, Success: false, Error: ErrCancelled.Error()}, ErrCancelled
}

func (s *Service) fail(job *Job, msg string, err error) (Result, error) {
	s.setStage(job, StageFailed, msg)
	return Result{JobID: job.ID, Success: false, Error: msg}, err
}

func (s *Service) appendHistory(ctx context.Context, job *Job, d Draft, platform string, status OutcomeStatus, url string, cause error, started time.Time) {
	if s.store == nil {
		return
	}
	e := storage.HistoryEntry{
		At:       s.clock(),
		JobID:    job.ID,
		Mode:     string(job.Mode),
		Title:    d.Title,
		Platform: platform,
		Status:   string(status),
		URL:      url,
		TookMS:   s.clock().Sub(started).Milliseconds(),
	}
	if cause != nil {
		e.Error = cause.Error()
	}
	if err := s.store.AppendHistory(ctx, e); err != nil {
		s.log.Debug("history append failed", logx.Err(err))
	}
}

func displayTitle(c material.Candidate) string {
	if c.Title != "" {
		return c.Title
	}
	return c.Identity()
}
