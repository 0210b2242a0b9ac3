package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

const minimalJSON = `{
	"logging": {"level": "info", "console": true},
	"scheduler": {"enabled": false, "interval_minutes": 0},
	"platforms": {
		"naver": {"enabled": true, "daily_limit": 3},
		"tistory": {"enabled": true, "daily_limit": 15}
	},
	"generator": {"provider": "openai", "model": "gpt-4o-mini"},
	"materials": {"path": "./materials.json"},
	"publish": {"output_dir": "./out", "stage_timeout": "0s"}
}`

func TestParseJSON(t *testing.T) {
	m := NewConfigManager(writeConfig(t, "config.json", minimalJSON))
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Platforms["naver"].DailyLimit != 3 {
		t.Fatalf("platform limit lost: %+v", cfg.Platforms)
	}
	if cfg.Generator.Model != "gpt-4o-mini" {
		t.Fatalf("generator lost: %+v", cfg.Generator)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	m := NewConfigManager(writeConfig(t, "config.json", `{"loggin": {"level": "info"}}`))
	if _, err := m.Parse(); err == nil {
		t.Fatal("typoed keys must be rejected, not ignored")
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	m := NewConfigManager(writeConfig(t, "config.json", minimalJSON+`{"extra": true}`))
	if _, err := m.Parse(); err == nil {
		t.Fatal("concatenated JSON documents must be rejected")
	}
}

func TestParseYAML(t *testing.T) {
	body := `
logging:
  level: debug
  console: true
scheduler:
  enabled: true
  interval_minutes: 30
platforms:
  naver:
    enabled: true
    daily_limit: 3
generator:
  provider: openai
  model: gpt-4o-mini
materials:
  path: ./materials.json
publish:
  output_dir: ./out
`
	m := NewConfigManager(writeConfig(t, "config.yaml", body))
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("parse yaml: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("yaml logging lost: %+v", cfg.Logging)
	}
	if cfg.Scheduler.IntervalMinutes != 30 {
		t.Fatalf("yaml scheduler lost: %+v", cfg.Scheduler)
	}
}

func TestValidateSchedulerInterval(t *testing.T) {
	cfg := &Config{
		Scheduler: SchedulerConfig{Enabled: true, IntervalMinutes: 0},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("enabled scheduler with no interval must not validate")
	}

	cfg.Scheduler.IntervalMinutes = 30
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidateNegativeDailyLimit(t *testing.T) {
	cfg := &Config{
		Platforms: map[string]PlatformConfig{
			"naver": {Enabled: true, DailyLimit: -1},
		},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative daily limit must not validate")
	}
}

func TestParseDurationField(t *testing.T) {
	cases := []struct {
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{"", 0, false},
		{"0s", 0, false},
		{"90s", 90 * time.Second, false},
		{"2m30s", 150 * time.Second, false},
		{"-5s", 0, true},
		{"ninety", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseDurationField("test.field", tc.raw)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("%q: expected an error", tc.raw)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("%q: got %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestLoadCommitsAndGet(t *testing.T) {
	m := NewConfigManager(writeConfig(t, "config.json", minimalJSON))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got := m.Get(); got != cfg {
		t.Fatal("Get should return the committed config")
	}
}
