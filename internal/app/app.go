package app

import (
	"errors"
	"math/rand"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/DeclanJeon/autostory-sub001/internal/config"
	"github.com/DeclanJeon/autostory-sub001/internal/eventbus"
	"github.com/DeclanJeon/autostory-sub001/internal/generate"
	"github.com/DeclanJeon/autostory-sub001/internal/material"
	"github.com/DeclanJeon/autostory-sub001/internal/pipeline"
	"github.com/DeclanJeon/autostory-sub001/internal/publish"
	"github.com/DeclanJeon/autostory-sub001/internal/quota"
	"github.com/DeclanJeon/autostory-sub001/internal/runtime/supervisor"
	"github.com/DeclanJeon/autostory-sub001/internal/scheduler"
	"github.com/DeclanJeon/autostory-sub001/internal/storage"
	logx "github.com/DeclanJeon/autostory-sub001/pkg/logx"
)

type App struct {
	cfgPath string

	cfgm *config.ConfigManager
	sup  *supervisor.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store

	// clock is shared with every time-sensitive service so completion
	// stamps, quota resets and schedules agree. Test hook.
	clock func() time.Time

	quota *quota.Tracker
	orch  *pipeline.Service
	sched *scheduler.Service
}

func New(cfgPath string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	bus := eventbus.New()

	// Logging service mapping
	logSvc, log := logx.New(mapLoggingConfig(cfg.Logging), bus)
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	// Storage (optional)
	var store storage.Store
	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		return nil, err
	} else if enabled {
		st, err := storage.Open(sc, log.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, err
		}
		store = st
		log.Info("storage enabled", logx.String("driver", sc.Driver))
	}

	a := &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		log:     log,
		logs:    logSvc,
		bus:     bus,
		store:   store,
		clock:   time.Now,
	}

	// Restore persisted core state (scheduler bookkeeping + quota counters).
	var persisted storage.State
	var restored bool
	if store != nil {
		st, ok, err := store.LoadState(noCtx())
		if err != nil {
			return nil, err
		}
		persisted, restored = st, ok
	}

	platforms, limits := mapPlatforms(cfg)
	if len(platforms) == 0 {
		return nil, errors.New("no platforms enabled")
	}

	a.quota = quota.New(limits, a.clock, log.With(logx.String("comp", "quota")))
	if restored {
		a.quota.Restore(persisted.Quota)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	resolver := material.NewResolver(rng)

	matPath := strings.TrimSpace(cfg.Materials.Path)
	if matPath == "" {
		matPath = "./materials.json"
	}
	source, err := material.NewFileSource(matPath, log.With(logx.String("comp", "materials")))
	if err != nil {
		return nil, err
	}

	gen, err := buildGenerator(cfg, rng, log)
	if err != nil {
		return nil, err
	}

	outDir := strings.TrimSpace(cfg.Publish.OutputDir)
	if outDir == "" {
		outDir = "./out"
	}
	local, err := publish.NewLocal(outDir, log.With(logx.String("comp", "publish")))
	if err != nil {
		return nil, err
	}

	stageTimeout, err := config.ParseDurationField("publish.stage_timeout", cfg.Publish.StageTimeout)
	if err != nil {
		return nil, err
	}

	a.orch = pipeline.New(
		pipeline.Config{Platforms: platforms, StageTimeout: stageTimeout},
		pipeline.Collaborators{Auth: local, Styles: gen, Generator: gen, Publisher: local},
		resolver, source, a.quota, bus, store,
		log.With(logx.String("comp", "pipeline")),
	)
	a.orch.SetClock(a.clock)

	a.sched = scheduler.New(a.scheduledRun, a.orch.Active, log.With(logx.String("comp", "scheduler")))
	a.sched.SetClock(a.clock)
	if restored {
		a.sched.Restore(persisted.Scheduler)
	}
	a.sched.SetPersist(a.saveState)

	return a, nil
}

func mapLoggingConfig(lc config.LoggingConfig) logx.Config {
	return logx.Config{
		Level:   lc.Level,
		Console: lc.Console,
		File: logx.FileConfig{
			Enabled: lc.File.Enabled,
			Path:    lc.File.Path,
		},
		Bus: logx.BusConfig{
			Enabled:    lc.Bus.Enabled,
			MinLevel:   lc.Bus.MinLevel,
			RatePerSec: lc.Bus.RatePerSec,
		},
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg.Storage == nil {
		// Persist by default: scheduler config and quota counters must
		// survive restarts.
		return storage.Config{Driver: "file", Path: "./autostory_state"}, true, nil
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
	if err != nil {
		return storage.Config{}, false, err
	}
	return storage.Config{Driver: driver, Path: cfg.Storage.Path, BusyTimeout: busy}, true, nil
}

func mapPlatforms(cfg *config.Config) (names []string, limits map[string]int) {
	limits = map[string]int{}
	for name, pc := range cfg.Platforms {
		if !pc.Enabled {
			continue
		}
		names = append(names, name)
		limits[name] = pc.DailyLimit
	}
	sort.Strings(names)
	return names, limits
}

func buildGenerator(cfg *config.Config, rng *rand.Rand, log logx.Logger) (*generate.OpenAI, error) {
	gc := cfg.Generator
	provider := strings.ToLower(strings.TrimSpace(gc.Provider))
	if provider != "" && provider != "openai" {
		return nil, errors.New("unknown generator provider: " + gc.Provider)
	}
	keyEnv := strings.TrimSpace(gc.APIKeyEnv)
	if keyEnv == "" {
		keyEnv = "OPENAI_API_KEY"
	}
	apiKey := os.Getenv(keyEnv)
	if apiKey == "" {
		return nil, errors.New("generator api key missing: set " + keyEnv)
	}
	model := strings.TrimSpace(gc.Model)
	if model == "" {
		model = "gpt-4o-mini"
	}

	personas := make([]generate.Persona, 0, len(gc.Personas))
	for _, p := range gc.Personas {
		personas = append(personas, generate.Persona{Name: p.Name, Voice: p.Voice})
	}
	templates := make([]generate.Template, 0, len(gc.Templates))
	for _, t := range gc.Templates {
		templates = append(templates, generate.Template{Name: t.Name, Prompt: t.Prompt})
	}

	outDir := strings.TrimSpace(cfg.Publish.OutputDir)
	if outDir == "" {
		outDir = "./out"
	}

	return generate.NewOpenAI(generate.Options{
		Model:     model,
		APIKey:    apiKey,
		BaseURL:   gc.BaseURL,
		Personas:  personas,
		Templates: templates,
		OutDir:    outDir + "/drafts",
	}, rng, log.With(logx.String("comp", "generate")))
}
