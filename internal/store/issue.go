package store

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/Mohwit/github-app-issue-commenter/common/id"
	"github.com/Mohwit/github-app-issue-commenter/internal/model"
)

// memoryIssueStore is a fixed-capacity ring buffer. Nothing survives a
// restart.
type memoryIssueStore struct {
	mu   sync.RWMutex
	buf  []model.IssueRecord
	head int // oldest record
	size int
	last time.Time

	clock clockwork.Clock
	newID func() int64
}

type MemoryOption func(*memoryIssueStore)

func WithClock(clock clockwork.Clock) MemoryOption {
	return func(s *memoryIssueStore) { s.clock = clock }
}

func WithIDGenerator(fn func() int64) MemoryOption {
	return func(s *memoryIssueStore) { s.newID = fn }
}

// NewMemoryIssueStore returns an empty store holding at most capacity
// records. capacity < 1 falls back to DefaultMaxIssues.
func NewMemoryIssueStore(capacity int, opts ...MemoryOption) IssueStore {
	if capacity < 1 {
		capacity = DefaultMaxIssues
	}
	s := &memoryIssueStore{
		buf:   make([]model.IssueRecord, capacity),
		clock: clockwork.NewRealClock(),
		newID: id.New,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *memoryIssueStore) Append(record model.IssueRecord) model.IssueRecord {
	record = record.Clone()
	if record.ID == 0 {
		record.ID = s.newID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// RecordedAt is stamped under the lock so insertion order and
	// RecordedAt order always agree, even if the wall clock steps back.
	now := s.clock.Now()
	if now.Before(s.last) {
		now = s.last
	}
	s.last = now
	record.RecordedAt = now

	capacity := len(s.buf)
	if s.size < capacity {
		s.buf[(s.head+s.size)%capacity] = record
		s.size++
	} else {
		s.buf[s.head] = record
		s.head = (s.head + 1) % capacity
	}

	return record.Clone()
}

func (s *memoryIssueStore) Snapshot() []model.IssueRecord {
	s.mu.RLock()
	capacity := len(s.buf)
	out := make([]model.IssueRecord, s.size)
	for i := range out {
		out[i] = s.buf[(s.head+s.size-1-i)%capacity]
	}
	s.mu.RUnlock()

	// Stored label slices are never written after Append, so cloning can
	// happen outside the lock.
	for i := range out {
		out[i] = out[i].Clone()
	}
	return out
}

func (s *memoryIssueStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.size
}

func (s *memoryIssueStore) Capacity() int {
	return len(s.buf)
}
