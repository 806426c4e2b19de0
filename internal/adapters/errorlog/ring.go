package errorlog

import (
	"context"
	"ogio/internal/core/domain"
	"ogio/internal/core/port"
	"sync"
)

const DefaultCapacity = 10

// Ring keeps the most recent error entries in memory, evicting the oldest.
type Ring struct {
	mu      sync.Mutex
	entries []domain.ErrorEntry
	next    int
	full    bool
}

func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{entries: make([]domain.ErrorEntry, capacity)}
}

func (r *Ring) Record(_ context.Context, entry domain.ErrorEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[r.next] = entry
	r.next = (r.next + 1) % len(r.entries)
	if r.next == 0 {
		r.full = true
	}
}

// Entries returns a copy of the stored entries, newest first.
func (r *Ring) Entries() []domain.ErrorEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := r.next
	if r.full {
		n = len(r.entries)
	}

	out := make([]domain.ErrorEntry, 0, n)
	for i := 1; i <= n; i++ {
		idx := (r.next - i + len(r.entries)) % len(r.entries)
		out = append(out, r.entries[idx])
	}

	return out
}

// Fanout forwards every entry to each sink in order.
type Fanout []port.ErrorSink

func (f Fanout) Record(ctx context.Context, entry domain.ErrorEntry) {
	for _, s := range f {
		if s != nil {
			s.Record(ctx, entry)
		}
	}
}
