package index

import (
	"sync"
	"time"

	"github.com/MrSnakeDoc/dropwatch/internal/domain"
)

// DefaultCapacity is how many cycles the history keeps.
const DefaultCapacity = 50

// Delivery is the outcome of one sink in one cycle.
type Delivery struct {
	Sink     string        `json:"sink"`
	Status   string        `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Cycle summarises one poll cycle.
type Cycle struct {
	ID         string        `json:"id"`
	Trigger    string        `json:"trigger"` // "schedule" | "manual"
	StartedAt  time.Time     `json:"started_at"`
	Duration   time.Duration `json:"duration_ns"`
	Outcome    string        `json:"outcome"`
	BookmarkID string        `json:"bookmark_id,omitempty"`
	Error      string        `json:"error,omitempty"`
	Deliveries []Delivery    `json:"deliveries,omitempty"`
}

// MemoryIndex keeps the recent cycle history and the last announced
// bookmark in memory for the ops endpoints. Nothing here is durable.
type MemoryIndex struct {
	mu       sync.RWMutex
	cycles   []Cycle // ring buffer
	next     int
	full     bool
	counts   map[string]int // outcome -> total since start
	lastSent *domain.Bookmark
	lastAt   time.Time
}

// NewMemoryIndex creates a history holding at most capacity cycles.
func NewMemoryIndex(capacity int) *MemoryIndex {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryIndex{
		cycles: make([]Cycle, capacity),
		counts: make(map[string]int),
	}
}

// Record appends c, overwriting the oldest entry when full.
func (idx *MemoryIndex) Record(c Cycle) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.cycles[idx.next] = c
	idx.next = (idx.next + 1) % len(idx.cycles)
	if idx.next == 0 {
		idx.full = true
	}
	idx.counts[c.Outcome]++
}

// Recent returns up to n cycles, newest first. n <= 0 means all.
func (idx *MemoryIndex) Recent(n int) []Cycle {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	size := idx.next
	if idx.full {
		size = len(idx.cycles)
	}
	if n <= 0 || n > size {
		n = size
	}

	out := make([]Cycle, 0, n)
	for i := 1; i <= n; i++ {
		pos := (idx.next - i + len(idx.cycles)) % len(idx.cycles)
		out = append(out, idx.cycles[pos])
	}
	return out
}

// Counts returns the number of cycles per outcome since start.
func (idx *MemoryIndex) Counts() map[string]int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make(map[string]int, len(idx.counts))
	for k, v := range idx.counts {
		out[k] = v
	}
	return out
}

// ─────────────────────────────────────────────────────────────────
// Last announced bookmark
// ─────────────────────────────────────────────────────────────────

// SetLastNotified remembers the bookmark of the latest delivery round.
func (idx *MemoryIndex) SetLastNotified(b *domain.Bookmark, at time.Time) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	cp := *b
	idx.lastSent = &cp
	idx.lastAt = at
}

// LastNotified returns the latest announced bookmark, if any.
func (idx *MemoryIndex) LastNotified() (*domain.Bookmark, time.Time, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.lastSent == nil {
		return nil, time.Time{}, false
	}
	cp := *idx.lastSent
	return &cp, idx.lastAt, true
}
