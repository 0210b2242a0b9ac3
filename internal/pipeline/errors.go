package pipeline

import "errors"

var (
	// ErrAlreadyRunning rejects a second job while one is active.
	// Starts are rejected, never queued.
	ErrAlreadyRunning = errors.New("a publish job is already running")

	// ErrAuth marks a terminal login/authentication failure. Not retried.
	ErrAuth = errors.New("authentication failed")

	// ErrGeneration marks a terminal content-generation failure. Not retried.
	ErrGeneration = errors.New("content generation failed")

	// ErrPublish is returned only when every requested platform failed
	// outright; partial failures become warnings on a successful result.
	ErrPublish = errors.New("publishing failed on all platforms")

	// ErrCancelled reports a job stopped by a cooperative cancel request.
	ErrCancelled = errors.New("publish cancelled")
)
