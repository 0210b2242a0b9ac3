package logx

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/DeclanJeon/autostory-sub001/internal/eventbus"
)

func TestFormatBusLine(t *testing.T) {
	line := formatBusLine([]byte(`{"level":"info","message":"publish done","platform":"naver"}`))
	if !strings.HasPrefix(line, "[INFO] publish done") {
		t.Fatalf("unexpected prefix: %q", line)
	}
	if !strings.Contains(line, "platform=naver") {
		t.Fatalf("field missing: %q", line)
	}
}

func TestFormatBusLineNonJSON(t *testing.T) {
	if got := formatBusLine([]byte("  plain text\n")); got != "plain text" {
		t.Fatalf("raw lines should pass through trimmed, got %q", got)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"INFO":    zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"bogus":   zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in, zerolog.InfoLevel); got != want {
			t.Fatalf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestBusSinkForwardsAndRetains(t *testing.T) {
	bus := eventbus.New()
	events, unsub := bus.Subscribe(16)
	defer unsub()

	svc, log := New(Config{
		Level: "info",
		Bus:   BusConfig{Enabled: true, MinLevel: "warn"},
	}, bus)
	defer svc.Close()

	log.Info("below the bus threshold")
	log.Warn("quota nearly exhausted", String("platform", "naver"))

	var lines []string
	for _, s := range svc.Recent() {
		lines = append(lines, s)
	}
	if len(lines) != 1 {
		t.Fatalf("expected one retained line, got %v", lines)
	}
	if !strings.Contains(lines[0], "quota nearly exhausted") {
		t.Fatalf("unexpected retained line %q", lines[0])
	}

	select {
	case ev := <-events:
		if ev.Type != eventbus.TypeLog {
			t.Fatalf("expected a log event, got %q", ev.Type)
		}
		ll, ok := ev.Data.(eventbus.LogLine)
		if !ok || !strings.Contains(ll.Line, "quota nearly exhausted") {
			t.Fatalf("unexpected event payload %+v", ev.Data)
		}
	default:
		t.Fatal("warn line should reach the bus")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 100); got != "short" {
		t.Fatalf("short strings must pass through, got %q", got)
	}
	long := strings.Repeat("x", 50)
	got := truncate(long, 20)
	if len(got) != 20 || !strings.HasSuffix(got, "...") {
		t.Fatalf("unexpected truncation %q", got)
	}
}
