package material

import (
	"errors"
	"math/rand"
)

// Mode selects how the next materials are chosen.
type Mode string

const (
	// ModeRandom picks exactly one unprocessed candidate uniformly at random.
	ModeRandom Mode = "random"
	// ModeQueue processes the operator-selected ids in the given order.
	ModeQueue Mode = "queue"
)

var (
	ErrNoCandidates = errors.New("no publishable materials")
	// ErrMixedQueue rejects queues that select RSS links and saved-material
	// ids at the same time (no mixed-type queues).
	ErrMixedQueue = errors.New("queue mixes rss links and saved materials; pick one kind")
)

// Resolver selects and deduplicates the materials a publish job will process.
// The RNG is injected so selection stays deterministic under test.
type Resolver struct {
	rng *rand.Rand
}

func NewResolver(rng *rand.Rand) *Resolver {
	return &Resolver{rng: rng}
}

// Resolve returns the ordered candidates to process.
//
// Random mode: one eligible candidate, chosen uniformly. Queue mode: pool
// items whose identity appears in selectedIDs, in selectedIDs order, first
// occurrence kept on duplicate ids; ids absent from the pool are silently
// dropped. Either mode fails with ErrNoCandidates when nothing remains.
func (r *Resolver) Resolve(mode Mode, pool []Candidate, selectedIDs []string) ([]Candidate, error) {
	switch mode {
	case ModeQueue:
		return r.resolveQueue(pool, selectedIDs)
	default:
		return r.resolveRandom(pool)
	}
}

func (r *Resolver) resolveRandom(pool []Candidate) ([]Candidate, error) {
	eligible := make([]Candidate, 0, len(pool))
	for _, c := range pool {
		if c.Eligible() {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		return nil, ErrNoCandidates
	}
	idx := 0
	if r.rng != nil {
		idx = r.rng.Intn(len(eligible))
	}
	return []Candidate{eligible[idx]}, nil
}

func (r *Resolver) resolveQueue(pool []Candidate, selectedIDs []string) ([]Candidate, error) {
	byID := make(map[string]Candidate, len(pool))
	for _, c := range pool {
		if id := c.Identity(); id != "" {
			byID[id] = c
		}
	}

	seen := make(map[string]bool, len(selectedIDs))
	out := make([]Candidate, 0, len(selectedIDs))
	var hasRSS, hasSaved bool
	for _, id := range selectedIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		c, ok := byID[id]
		if !ok {
			// Unknown ids are dropped, not errored.
			continue
		}
		switch c.Kind {
		case KindRSS:
			hasRSS = true
		case KindSaved:
			hasSaved = true
		}
		out = append(out, c)
	}
	if hasRSS && hasSaved {
		return nil, ErrMixedQueue
	}
	if len(out) == 0 {
		return nil, ErrNoCandidates
	}
	return out, nil
}
