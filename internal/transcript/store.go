package transcript

import (
	"sync"
	"time"
)

// DefaultCapacity bounds the transcript when no capacity is configured.
const DefaultCapacity = 500

// Role identifies who produced a transcript entry.
type Role string

const (
	RoleAI   Role = "AI"
	RoleUser Role = "User"
)

// Entry is one immutable line of the interview transcript. Sequence defines
// chronological order; At is informational only.
type Entry struct {
	Sequence uint64    `json:"sequence"`
	Speaker  Role      `json:"speaker"`
	Text     string    `json:"text"`
	At       time.Time `json:"at"`
}

// Store is a bounded append-only transcript. Once full, each append evicts
// the oldest entry.
type Store struct {
	mu      sync.RWMutex
	entries []Entry
	start   int
	size    int
	next    uint64
	now     func() time.Time
}

// NewStore creates a store holding at most capacity entries.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		entries: make([]Entry, capacity),
		next:    1,
		now:     time.Now,
	}
}

// Append records text for speaker at the next sequence number and returns the
// stored entry.
func (s *Store) Append(speaker Role, text string) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := Entry{
		Sequence: s.next,
		Speaker:  speaker,
		Text:     text,
		At:       s.now().UTC(),
	}
	s.next++

	capacity := len(s.entries)
	if s.size < capacity {
		s.entries[(s.start+s.size)%capacity] = entry
		s.size++
		return entry
	}

	s.entries[s.start] = entry
	s.start = (s.start + 1) % capacity
	return entry
}

// All returns a copy of the retained entries, oldest first.
func (s *Store) All() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, s.size)
	capacity := len(s.entries)
	for i := 0; i < s.size; i++ {
		out[i] = s.entries[(s.start+i)%capacity]
	}
	return out
}

// Len returns the number of retained entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

// Cap returns the maximum number of retained entries.
func (s *Store) Cap() int {
	return len(s.entries)
}

// Export paginates the retained entries with layout.
func (s *Store) Export(layout Layout) Document {
	return Export(s.All(), layout)
}
