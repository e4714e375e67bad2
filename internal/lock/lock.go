// Package lock tracks locale files that have a write in flight from the
// sync pipeline, so the watcher can drop the change notifications those
// writes produce.
package lock

import (
	"sync"
	"time"

	"github.com/raulk/clock"
	"go.uber.org/zap"
)

// DefaultGraceDelay is how long a lock outlives the write it guards. File
// change notifications can arrive after the write call has returned.
const DefaultGraceDelay = 500 * time.Millisecond

// Entry describes a held lock
type Entry struct {
	Path       string    `json:"path"`
	AcquiredAt time.Time `json:"acquired_at"`
}

type held struct {
	entry   Entry
	release *clock.Timer
	// gen moves on every acquire and release of the path. A timer only
	// expires the lock when gen still matches the value it was scheduled with.
	gen uint64
}

// Store is the set of locked paths. All operations are non-blocking.
type Store struct {
	mu     sync.Mutex
	locks  map[string]*held
	grace  time.Duration
	clock  clock.Clock
	logger *zap.Logger
}

type Option func(*Store)

func WithClock(c clock.Clock) Option {
	return func(s *Store) { s.clock = c }
}

func WithGraceDelay(d time.Duration) Option {
	return func(s *Store) { s.grace = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		locks:  make(map[string]*held),
		grace:  DefaultGraceDelay,
		clock:  clock.New(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Acquire locks path. Re-acquiring a path whose release is pending cancels
// that release.
func (s *Store) Acquire(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h, ok := s.locks[path]; ok {
		if h.release != nil {
			h.release.Stop()
			h.release = nil
		}
		h.gen++
		h.entry.AcquiredAt = s.clock.Now()
		return
	}

	s.locks[path] = &held{entry: Entry{Path: path, AcquiredAt: s.clock.Now()}}
}

// Release schedules removal of the lock on path after the grace delay and
// returns immediately.
func (s *Store) Release(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, ok := s.locks[path]
	if !ok {
		return
	}
	if h.release != nil {
		h.release.Stop()
	}

	h.gen++
	gen := h.gen
	h.release = s.clock.AfterFunc(s.grace, func() {
		s.expire(path, gen)
	})
}

func (s *Store) expire(path string, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// A re-acquire or a later release superseded the timer that fired
	h, ok := s.locks[path]
	if !ok || h.gen != gen {
		return
	}
	delete(s.locks, path)
	s.logger.Debug("lock released", zap.String("path", path))
}

// Has reports whether path is locked
func (s *Store) Has(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.locks[path]
	return ok
}

// Entries returns a snapshot of held locks
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.locks))
	for _, h := range s.locks {
		out = append(out, h.entry)
	}
	return out
}

// Close cancels pending releases and drops every lock
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for path, h := range s.locks {
		if h.release != nil {
			h.release.Stop()
		}
		delete(s.locks, path)
	}
}
