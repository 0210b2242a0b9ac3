package material

import "time"

// Kind discriminates the two candidate sources.
type Kind string

const (
	KindRSS   Kind = "rss"
	KindSaved Kind = "saved"
)

// SavedType classifies an operator-saved item.
type SavedType string

const (
	SavedLink SavedType = "link"
	SavedFile SavedType = "file"
	SavedPost SavedType = "post"
)

// Candidate statuses. An item marked processed is never selected again.
const (
	StatusPending   = "pending"
	StatusProcessed = "processed"
)

// Candidate is one publishable content source: an RSS feed entry or an
// operator-saved item. Exactly one half of the union is populated,
// discriminated by Kind.
type Candidate struct {
	Kind Kind `json:"kind"`

	// rss
	Link    string `json:"link,omitempty"`
	Source  string `json:"source,omitempty"`
	ISODate string `json:"isoDate,omitempty"`
	Snippet string `json:"snippet,omitempty"`

	// saved
	ID       string    `json:"id,omitempty"`
	Type     SavedType `json:"type,omitempty"`
	Value    string    `json:"value,omitempty"`
	Category string    `json:"category,omitempty"`
	AddedAt  time.Time `json:"addedAt,omitempty"`

	// shared
	Title  string `json:"title,omitempty"`
	Status string `json:"status,omitempty"`
}

// Identity is the dedup key: the RSS link or the saved item's id.
func (c Candidate) Identity() string {
	if c.Kind == KindRSS {
		return c.Link
	}
	return c.ID
}

// Eligible reports whether the candidate may still be picked in random mode.
func (c Candidate) Eligible() bool {
	return c.Status != StatusProcessed && c.Status != "published"
}
