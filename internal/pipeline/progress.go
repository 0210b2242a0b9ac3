package pipeline

import (
	"sync"

	"github.com/DeclanJeon/autostory-sub001/internal/eventbus"
)

// StageFromName maps a wire stage name back to its Stage.
func StageFromName(name string) (Stage, bool) {
	for st, n := range stageNames {
		if n == name {
			return st, true
		}
	}
	return StageIdle, false
}

// WatchJob subscribes to stage changes for the next job and auto-unsubscribes
// once a terminal stage has been forwarded; the returned channel then closes.
// The stream is finite per job. Call the returned func to stop early.
func WatchJob(bus eventbus.Bus, buffer int) (<-chan eventbus.StageChange, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	events, unsub := bus.Subscribe(buffer * 2)
	out := make(chan eventbus.StageChange, buffer)

	var once sync.Once
	stop := func() { once.Do(unsub) }

	go func() {
		defer close(out)
		defer stop()
		for ev := range events {
			if ev.Type != eventbus.TypeStage {
				continue
			}
			sc, ok := ev.Data.(eventbus.StageChange)
			if !ok {
				continue
			}
			select {
			case out <- sc:
			default:
				// Slow consumer: drop rather than block the forwarder.
			}
			if st, ok := StageFromName(sc.Stage); ok && st.Terminal() {
				return
			}
		}
	}()
	return out, stop
}
