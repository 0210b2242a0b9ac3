package pipeline

// Stage is a phase of the publish pipeline. The set is closed; progress
// consumers rely on Rank() for ordering, never on string matching.
type Stage int

const (
	StageIdle Stage = iota
	StageCheckingAuth
	StageWaitingLogin
	StageLoggingIn
	StageFetchingFeeds
	StageSelectingIssues
	StageSelectingStyle
	StageGeneratingContent
	StageProcessingImages
	StagePublishing
	StageCompleted
	StageFailed
	StageCancelled
)

var stageNames = map[Stage]string{
	StageIdle:              "idle",
	StageCheckingAuth:      "checking-auth",
	StageWaitingLogin:      "waiting-login",
	StageLoggingIn:         "logging-in",
	StageFetchingFeeds:     "fetching-feeds",
	StageSelectingIssues:   "selecting-issues",
	StageSelectingStyle:    "selecting-style",
	StageGeneratingContent: "generating-content",
	StageProcessingImages:  "processing-images",
	StagePublishing:        "publishing",
	StageCompleted:         "completed",
	StageFailed:            "failed",
	StageCancelled:         "cancelled",
}

func (s Stage) String() string {
	if n, ok := stageNames[s]; ok {
		return n
	}
	return "unknown"
}

// Rank is the total order used by progress bars:
// idle(0), auth stages(1), issue selection(2), style(3), generation(4),
// publishing(5), terminal(6). Rank never decreases within one job.
func (s Stage) Rank() int {
	switch s {
	case StageIdle:
		return 0
	case StageCheckingAuth, StageWaitingLogin, StageLoggingIn:
		return 1
	case StageFetchingFeeds, StageSelectingIssues:
		return 2
	case StageSelectingStyle:
		return 3
	case StageGeneratingContent, StageProcessingImages:
		return 4
	case StagePublishing:
		return 5
	case StageCompleted, StageFailed, StageCancelled:
		return 6
	default:
		return 0
	}
}

// Terminal stages are mutually exclusive and final.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageFailed || s == StageCancelled
}

// CanCancel is true for every stage except terminal ones.
func (s Stage) CanCancel() bool { return !s.Terminal() }
