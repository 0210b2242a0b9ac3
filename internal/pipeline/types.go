package pipeline

import (
	"context"
	"time"

	"github.com/DeclanJeon/autostory-sub001/internal/material"
)

// StartRequest describes one publish attempt.
type StartRequest struct {
	Mode        material.Mode
	SelectedIDs []string
	HomeTheme   string
}

// Job is the orchestrator's private record of the attempt in flight.
// It is owned exclusively by the orchestrator and discarded at a terminal
// stage.
type Job struct {
	ID          string
	Mode        material.Mode
	SelectedIDs []string
	HomeTheme   string
	CreatedAt   time.Time

	stage Stage
}

// Stage returns the job's current stage.
func (j *Job) Stage() Stage { return j.stage }

// Style is a persona/prompt pairing chosen before generation.
type Style struct {
	Persona   string
	Prompt    string
	Automatic bool
}

type StyleRequest struct {
	Theme     string
	Materials []material.Candidate
}

type GenerateRequest struct {
	Style     Style
	Theme     string
	Materials []material.Candidate
}

// Draft is the generated post: markdown body plus any image files the
// generator collected. FilePath points at the draft file on disk when the
// generator wrote one.
type Draft struct {
	Title    string
	Markdown string
	Images   []string
	FilePath string
}

// PostResult is a single platform's answer to a publish or reserve call.
type PostResult struct {
	URL         string
	ReservedFor time.Time
}

type OutcomeStatus string

const (
	OutcomePublished OutcomeStatus = "published"
	OutcomeReserved  OutcomeStatus = "reserved"
	OutcomeFailed    OutcomeStatus = "failed"
)

// PlatformOutcome is one platform's aggregated result.
type PlatformOutcome struct {
	Platform string        `json:"platform"`
	Status   OutcomeStatus `json:"status"`
	URL      string        `json:"url,omitempty"`
	Err      string        `json:"error,omitempty"`
}

// Result is what one publish attempt produced. Partial per-platform failures
// surface as Warnings on a successful result, not as an error.
type Result struct {
	JobID       string            `json:"jobId"`
	Success     bool              `json:"success"`
	Title       string            `json:"title,omitempty"`
	UsedPrompt  string            `json:"usedPrompt,omitempty"`
	UsedPersona string            `json:"usedPersona,omitempty"`
	Outcomes    []PlatformOutcome `json:"outcomes,omitempty"`
	Warnings    []string          `json:"warnings,omitempty"`
	Error       string            `json:"error,omitempty"`
}

// CancelReply answers a cancel request. A rejected cancel is information,
// not an error.
type CancelReply struct {
	Accepted bool   `json:"accepted"`
	Message  string `json:"message"`
}

// ---- Collaborator interfaces ----
//
// Auth, generation and platform posting are external capabilities (browser
// automation, model calls). The orchestrator only sequences them; their
// calls may block for tens of seconds and are never polled.

type Authenticator interface {
	CheckAuth(ctx context.Context, platform string) (bool, error)
	Login(ctx context.Context, platform string) error
}

type StyleSelector interface {
	SelectStyle(ctx context.Context, req StyleRequest) (Style, error)
}

type ContentGenerator interface {
	// Generate writes the draft and handles its images.
	Generate(ctx context.Context, req GenerateRequest) (Draft, error)
}

type Publisher interface {
	Publish(ctx context.Context, platform string, d Draft) (PostResult, error)
	// Reserve is the deferred-publish fallback used when the platform's
	// daily quota is exhausted.
	Reserve(ctx context.Context, platform string, d Draft) (PostResult, error)
}

// Collaborators bundles the external capabilities a job needs.
type Collaborators struct {
	Auth      Authenticator
	Styles    StyleSelector
	Generator ContentGenerator
	Publisher Publisher
}
