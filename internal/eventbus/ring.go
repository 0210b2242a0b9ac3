package eventbus

import "sync"

// DefaultRingCap is the number of log lines retained for late subscribers.
const DefaultRingCap = 200

// Ring is a fixed-capacity buffer of log lines. When full, the oldest entry
// is dropped first. Producers never block.
type Ring struct {
	mu    sync.Mutex
	buf   []string
	head  int
	count int
}

// NewRing returns a ring retaining at most capacity lines.
// A capacity <= 0 falls back to DefaultRingCap.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultRingCap
	}
	return &Ring{buf: make([]string, capacity)}
}

func (r *Ring) Append(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count < len(r.buf) {
		r.buf[(r.head+r.count)%len(r.buf)] = line
		r.count++
		return
	}
	// Full: overwrite the oldest slot.
	r.buf[r.head] = line
	r.head = (r.head + 1) % len(r.buf)
}

// Lines returns a copy of the retained lines, oldest first.
func (r *Ring) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, r.count)
	for i := 0; i < r.count; i++ {
		out = append(out, r.buf[(r.head+i)%len(r.buf)])
	}
	return out
}

func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}
