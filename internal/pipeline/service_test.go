package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DeclanJeon/autostory-sub001/internal/eventbus"
	"github.com/DeclanJeon/autostory-sub001/internal/material"
	"github.com/DeclanJeon/autostory-sub001/internal/quota"
	logx "github.com/DeclanJeon/autostory-sub001/pkg/logx"
)

// ---- fakes ----

type fakeSource struct {
	mu        sync.Mutex
	pool      []material.Candidate
	poolErr   error
	processed []string
}

func (f *fakeSource) Pool(ctx context.Context) ([]material.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.poolErr != nil {
		return nil, f.poolErr
	}
	return append([]material.Candidate(nil), f.pool...), nil
}

func (f *fakeSource) MarkProcessed(ctx context.Context, identity string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processed = append(f.processed, identity)
	return nil
}

type fakeAuth struct {
	checkErr  map[string]error
	authedAll bool
	logins    []string
	loginErr  map[string]error
}

func (f *fakeAuth) CheckAuth(ctx context.Context, platform string) (bool, error) {
	if err := f.checkErr[platform]; err != nil {
		return false, err
	}
	return f.authedAll, nil
}

func (f *fakeAuth) Login(ctx context.Context, platform string) error {
	if err := f.loginErr[platform]; err != nil {
		return err
	}
	f.logins = append(f.logins, platform)
	return nil
}

type fakeStyles struct {
	style Style
	err   error
}

func (f *fakeStyles) SelectStyle(ctx context.Context, req StyleRequest) (Style, error) {
	if f.err != nil {
		return Style{}, f.err
	}
	return f.style, nil
}

type fakeGen struct {
	draft  Draft
	err    error
	onCall func()
}

func (f *fakeGen) Generate(ctx context.Context, req GenerateRequest) (Draft, error) {
	if f.onCall != nil {
		f.onCall()
	}
	if f.err != nil {
		return Draft{}, f.err
	}
	return f.draft, nil
}

type fakePub struct {
	mu         sync.Mutex
	publishErr map[string]error
	reserveErr map[string]error
	published  []string
	reserved   []string
}

func (f *fakePub) Publish(ctx context.Context, platform string, d Draft) (PostResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.publishErr[platform]; err != nil {
		return PostResult{}, err
	}
	f.published = append(f.published, platform)
	return PostResult{URL: "https://" + platform + ".example/post"}, nil
}

func (f *fakePub) Reserve(ctx context.Context, platform string, d Draft) (PostResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.reserveErr[platform]; err != nil {
		return PostResult{}, err
	}
	f.reserved = append(f.reserved, platform)
	return PostResult{URL: "file://" + platform + "/reserved", ReservedFor: time.Now().Add(24 * time.Hour)}, nil
}

type fixture struct {
	svc    *Service
	source *fakeSource
	auth   *fakeAuth
	gen    *fakeGen
	pub    *fakePub
	quota  *quota.Tracker
	bus    eventbus.Bus
}

func newFixture(platforms []string, limits map[string]int) *fixture {
	src := &fakeSource{pool: []material.Candidate{
		{Kind: material.KindSaved, ID: "m1", Title: "first material", Status: material.StatusPending},
		{Kind: material.KindSaved, ID: "m2", Title: "second material", Status: material.StatusPending},
	}}
	auth := &fakeAuth{authedAll: true}
	gen := &fakeGen{draft: Draft{Title: "generated title", Markdown: "# generated title\n\nbody"}}
	pub := &fakePub{}
	qt := quota.New(limits, nil, logx.Nop())
	bus := eventbus.New()

	svc := New(
		Config{Platforms: platforms},
		Collaborators{
			Auth:      auth,
			Styles:    &fakeStyles{style: Style{Persona: "Analyst", Prompt: "write about {{topic}}"}},
			Generator: gen,
			Publisher: pub,
		},
		material.NewResolver(nil), src, qt, bus, nil, logx.Nop(),
	)
	return &fixture{svc: svc, source: src, auth: auth, gen: gen, pub: pub, quota: qt, bus: bus}
}

func collectStages(bus eventbus.Bus) func() []eventbus.StageChange {
	events, unsub := bus.Subscribe(64)
	var mu sync.Mutex
	var got []eventbus.StageChange
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range events {
			if ev.Type != eventbus.TypeStage {
				continue
			}
			if sc, ok := ev.Data.(eventbus.StageChange); ok {
				mu.Lock()
				got = append(got, sc)
				mu.Unlock()
			}
		}
	}()
	return func() []eventbus.StageChange {
		unsub()
		<-done
		mu.Lock()
		defer mu.Unlock()
		return got
	}
}

// ---- scenarios ----

func TestRunPublishesAndMarksProcessed(t *testing.T) {
	f := newFixture([]string{"naver"}, map[string]int{"naver": 3})
	drain := collectStages(f.bus)

	res, err := f.svc.Run(context.Background(), StartRequest{Mode: material.ModeQueue, SelectedIDs: []string{"m1"}})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.Title != "generated title" {
		t.Fatalf("unexpected title %q", res.Title)
	}
	if res.UsedPersona != "Analyst" {
		t.Fatalf("style not surfaced: %+v", res)
	}
	if len(res.Outcomes) != 1 || res.Outcomes[0].Status != OutcomePublished {
		t.Fatalf("unexpected outcomes %+v", res.Outcomes)
	}
	if len(f.source.processed) != 1 || f.source.processed[0] != "m1" {
		t.Fatalf("material not marked processed: %v", f.source.processed)
	}
	if got := f.quota.Stats().Platforms["naver"].Count; got != 1 {
		t.Fatalf("quota not incremented, got %d", got)
	}
	if f.svc.Active() {
		t.Fatal("job should be discarded after completion")
	}

	stages := drain()
	if len(stages) == 0 {
		t.Fatal("expected stage events")
	}
	last := stages[len(stages)-1]
	if last.Stage != StageCompleted.String() {
		t.Fatalf("expected terminal completed event, got %q", last.Stage)
	}
	prev := -1
	for _, sc := range stages {
		st, ok := StageFromName(sc.Stage)
		if !ok {
			t.Fatalf("unknown stage on the wire: %q", sc.Stage)
		}
		if st.Rank() < prev {
			t.Fatalf("stage rank regressed at %q", sc.Stage)
		}
		prev = st.Rank()
	}
}

func TestRunRejectsConcurrentStart(t *testing.T) {
	f := newFixture([]string{"naver"}, nil)

	entered := make(chan struct{})
	release := make(chan struct{})
	f.gen.onCall = func() {
		close(entered)
		<-release
	}

	firstDone := make(chan error, 1)
	go func() {
		_, err := f.svc.Run(context.Background(), StartRequest{Mode: material.ModeRandom})
		firstDone <- err
	}()
	<-entered

	res, err := f.svc.Run(context.Background(), StartRequest{Mode: material.ModeRandom})
	if !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	if res.Success {
		t.Fatal("rejected start must not report success")
	}

	close(release)
	if err := <-firstDone; err != nil {
		t.Fatalf("first run failed: %v", err)
	}
}

func TestRunReservesWhenQuotaExhausted(t *testing.T) {
	f := newFixture([]string{"tistory"}, map[string]int{"tistory": 2})
	f.quota.Increment("tistory")
	f.quota.Increment("tistory")

	res, err := f.svc.Run(context.Background(), StartRequest{Mode: material.ModeRandom})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Success {
		t.Fatalf("reservation fallback should still succeed: %+v", res)
	}
	if len(res.Outcomes) != 1 || res.Outcomes[0].Status != OutcomeReserved {
		t.Fatalf("expected a reserved outcome, got %+v", res.Outcomes)
	}
	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "daily limit reached") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a quota warning, got %v", res.Warnings)
	}
	if len(f.pub.published) != 0 || len(f.pub.reserved) != 1 {
		t.Fatalf("expected reserve, not publish: published=%v reserved=%v", f.pub.published, f.pub.reserved)
	}
	// Reservations must not consume tomorrow's quota.
	if got := f.quota.Stats().Platforms["tistory"].Count; got != 2 {
		t.Fatalf("reservation consumed quota: count %d", got)
	}
}

func TestRunPartialPlatformFailure(t *testing.T) {
	f := newFixture([]string{"naver", "tistory"}, nil)
	f.pub.publishErr = map[string]error{"naver": errors.New("session expired mid-post")}

	res, err := f.svc.Run(context.Background(), StartRequest{Mode: material.ModeRandom})
	if err != nil {
		t.Fatalf("partial failure should not error: %v", err)
	}
	if !res.Success {
		t.Fatalf("one delivery should keep the run successful: %+v", res)
	}
	if len(res.Warnings) == 0 {
		t.Fatal("expected a warning for the failed platform")
	}
	statuses := map[string]OutcomeStatus{}
	for _, o := range res.Outcomes {
		statuses[o.Platform] = o.Status
	}
	if statuses["naver"] != OutcomeFailed || statuses["tistory"] != OutcomePublished {
		t.Fatalf("unexpected outcomes %+v", res.Outcomes)
	}
	// Only actually-published platforms consume quota; materials are
	// consumed because the run succeeded.
	if len(f.source.processed) == 0 {
		t.Fatal("materials should be marked processed on partial success")
	}
}

func TestRunFailsWhenAllPlatformsFail(t *testing.T) {
	f := newFixture([]string{"naver", "tistory"}, nil)
	f.pub.publishErr = map[string]error{
		"naver":   errors.New("boom"),
		"tistory": errors.New("boom"),
	}

	res, err := f.svc.Run(context.Background(), StartRequest{Mode: material.ModeRandom})
	if !errors.Is(err, ErrPublish) {
		t.Fatalf("expected ErrPublish, got %v", err)
	}
	if res.Success {
		t.Fatal("total failure must not report success")
	}
	if len(res.Outcomes) != 2 {
		t.Fatalf("per-platform outcomes should survive total failure: %+v", res.Outcomes)
	}
	if len(f.source.processed) != 0 {
		t.Fatalf("materials must not be consumed on failure: %v", f.source.processed)
	}
}

func TestRunAuthCheckFailureIsTerminal(t *testing.T) {
	f := newFixture([]string{"naver"}, nil)
	f.auth.checkErr = map[string]error{"naver": errors.New("browser crashed")}

	_, err := f.svc.Run(context.Background(), StartRequest{Mode: material.ModeRandom})
	if !errors.Is(err, ErrAuth) {
		t.Fatalf("expected ErrAuth, got %v", err)
	}
	if len(f.pub.published)+len(f.pub.reserved) != 0 {
		t.Fatal("nothing may publish after an auth failure")
	}
}

func TestRunLogsInWhenSessionMissing(t *testing.T) {
	f := newFixture([]string{"naver"}, nil)
	f.auth.authedAll = false

	res, err := f.svc.Run(context.Background(), StartRequest{Mode: material.ModeRandom})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !res.Success {
		t.Fatalf("login path should succeed: %+v", res)
	}
	if len(f.auth.logins) != 1 || f.auth.logins[0] != "naver" {
		t.Fatalf("expected one login, got %v", f.auth.logins)
	}
}

func TestRunNoMaterials(t *testing.T) {
	f := newFixture([]string{"naver"}, nil)
	f.source.pool = nil

	_, err := f.svc.Run(context.Background(), StartRequest{Mode: material.ModeRandom})
	if !errors.Is(err, material.ErrNoCandidates) {
		t.Fatalf("expected ErrNoCandidates, got %v", err)
	}
}

func TestRunMixedQueueRejected(t *testing.T) {
	f := newFixture([]string{"naver"}, nil)
	f.source.pool = append(f.source.pool,
		material.Candidate{Kind: material.KindRSS, Link: "https://feed.example/a", Status: material.StatusPending})

	_, err := f.svc.Run(context.Background(), StartRequest{
		Mode:        material.ModeQueue,
		SelectedIDs: []string{"m1", "https://feed.example/a"},
	})
	if !errors.Is(err, material.ErrMixedQueue) {
		t.Fatalf("expected ErrMixedQueue, got %v", err)
	}
}

func TestCancelLandsAtStageBoundary(t *testing.T) {
	f := newFixture([]string{"naver"}, nil)
	f.gen.onCall = func() {
		// A cancel filed mid-generation is honored before publishing.
		reply := f.svc.RequestCancel()
		if !reply.Accepted {
			panic("cancel should be accepted while generating")
		}
	}

	res, err := f.svc.Run(context.Background(), StartRequest{Mode: material.ModeRandom})
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if res.Success {
		t.Fatal("cancelled run must not report success")
	}
	if len(f.pub.published)+len(f.pub.reserved) != 0 {
		t.Fatal("cancel must land before any platform is dispatched")
	}
	if len(f.source.processed) != 0 {
		t.Fatal("cancelled run must not consume materials")
	}
}

func TestCancelWithoutJob(t *testing.T) {
	f := newFixture([]string{"naver"}, nil)

	reply := f.svc.RequestCancel()
	if reply.Accepted {
		t.Fatalf("cancel with no job should be rejected: %+v", reply)
	}
}
