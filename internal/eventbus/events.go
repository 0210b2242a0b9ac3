package eventbus

// Well-known event types carried on the bus.
const (
	// TypeStage carries a StageChange payload for every pipeline transition.
	TypeStage = "publish.stage"
	// TypeLog carries a LogLine payload (rendered free-text log line).
	TypeLog = "log"
)

// StageChange is published once per pipeline stage transition
// (at-most-once per transition, fire-and-forget).
type StageChange struct {
	JobID     string `json:"jobId"`
	Stage     string `json:"stage"`
	Message   string `json:"message"`
	CanCancel bool   `json:"canCancel"`
}

// LogLine is a rendered free-text log line forwarded to UI consumers.
type LogLine struct {
	Line string `json:"line"`
}

// PublishStage emits one stage transition. Safe on a nil bus.
func PublishStage(b Bus, sc StageChange) {
	if b == nil {
		return
	}
	b.Publish(Event{Type: TypeStage, Data: sc})
}

// PublishLog forwards one rendered log line. Safe on a nil bus.
func PublishLog(b Bus, line string) {
	if b == nil {
		return
	}
	b.Publish(Event{Type: TypeLog, Data: LogLine{Line: line}})
}
