package pipeline

import "testing"

func TestStageRankOrdering(t *testing.T) {
	order := []Stage{
		StageIdle,
		StageCheckingAuth,
		StageWaitingLogin,
		StageLoggingIn,
		StageFetchingFeeds,
		StageSelectingIssues,
		StageSelectingStyle,
		StageGeneratingContent,
		StageProcessingImages,
		StagePublishing,
		StageCompleted,
	}
	for i := 1; i < len(order); i++ {
		prev, cur := order[i-1], order[i]
		if cur.Rank() < prev.Rank() {
			t.Fatalf("rank must not decrease: %s(%d) -> %s(%d)",
				prev, prev.Rank(), cur, cur.Rank())
		}
	}
}

func TestTerminalStages(t *testing.T) {
	for _, s := range []Stage{StageCompleted, StageFailed, StageCancelled} {
		if !s.Terminal() {
			t.Fatalf("%s should be terminal", s)
		}
		if s.CanCancel() {
			t.Fatalf("%s should not be cancellable", s)
		}
		if s.Rank() != 6 {
			t.Fatalf("%s should rank 6, got %d", s, s.Rank())
		}
	}
	for _, s := range []Stage{StageIdle, StageCheckingAuth, StagePublishing} {
		if s.Terminal() {
			t.Fatalf("%s should not be terminal", s)
		}
		if !s.CanCancel() {
			t.Fatalf("%s should be cancellable", s)
		}
	}
}

func TestStageNameRoundTrip(t *testing.T) {
	for s := StageIdle; s <= StageCancelled; s++ {
		name := s.String()
		if name == "unknown" {
			t.Fatalf("stage %d has no name", int(s))
		}
		got, ok := StageFromName(name)
		if !ok || got != s {
			t.Fatalf("round trip failed for %q: got %v, ok=%v", name, got, ok)
		}
	}
	if _, ok := StageFromName("no-such-stage"); ok {
		t.Fatal("unknown names must not resolve")
	}
}
