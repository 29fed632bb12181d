package progress

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/vk/syncgraph/internal/ctxlog"
	"github.com/vk/syncgraph/internal/sessionstore"
)

// Store is the progress tracker for one session. Construct one per session
// and share it; it is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	storage sessionstore.Store
	key     string
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the wall clock, mainly for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithKey overrides the storage key holding the state.
func WithKey(key string) Option {
	return func(s *Store) {
		s.key = key
	}
}

// NewStore creates a Store over the given storage medium.
func NewStore(storage sessionstore.Store, opts ...Option) *Store {
	s := &Store{
		storage: storage,
		key:     StorageKey,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SaveProgress records update as the latest progress of job jobID on the
// pipeline connection id. The status is derived from update at write time.
// A failed write is logged and leaves the previous state untouched.
func (s *Store) SaveProgress(ctx context.Context, id, jobID string, update Update) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.load(ctx)
	state[id] = Record{
		JobID:      jobID,
		LastUpdate: update,
		Timestamp:  s.now().UnixMilli(),
		Status:     update.Status(),
	}
	s.write(ctx, state)
}

// GetStoredState returns every non-expired record keyed by pipeline
// connection id. Expired records found along the way are purged from storage.
func (s *Store) GetStoredState(ctx context.Context) map[string]Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// GetProgressForSource returns the non-expired record for id.
func (s *Store) GetProgressForSource(ctx context.Context, id string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.load(ctx)[id]
	return r, ok
}

// HasActiveSync reports whether a non-expired record with active status exists for id.
func (s *Store) HasActiveSync(ctx context.Context, id string) bool {
	r, ok := s.GetProgressForSource(ctx, id)
	return ok && r.Status == StatusActive
}

// ActiveSyncs returns the sorted ids of every connection with an active job.
func (s *Store) ActiveSyncs(ctx context.Context) []string {
	var ids []string
	for id, r := range s.GetStoredState(ctx) {
		if r.Status == StatusActive {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// RemoveProgress forgets the record for id.
func (s *Store) RemoveProgress(ctx context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.load(ctx)
	if _, ok := state[id]; !ok {
		return
	}
	delete(state, id)
	s.write(ctx, state)
}

// ClearAll forgets every record.
func (s *Store) ClearAll(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.storage.Remove(ctx, s.key); err != nil {
		ctxlog.FromContext(ctx).Warn("Failed to clear progress state.", "key", s.key, "error", err)
	}
}

// load reads the state, drops expired records and writes the pruned state
// back if anything was dropped. Any fault yields an empty state.
func (s *Store) load(ctx context.Context) map[string]Record {
	logger := ctxlog.FromContext(ctx)
	state := make(map[string]Record)

	raw, found, err := s.storage.Get(ctx, s.key)
	if err != nil {
		logger.Warn("Failed to read progress state, starting empty.", "key", s.key, "error", err)
		return state
	}
	if !found || len(raw) == 0 {
		return state
	}
	if err := json.Unmarshal(raw, &state); err != nil {
		logger.Warn("Failed to parse progress state, starting empty.", "key", s.key, "error", err)
		return make(map[string]Record)
	}

	now := s.now()
	pruned := 0
	for id, r := range state {
		if r.Expired(now) {
			delete(state, id)
			pruned++
		}
	}
	if pruned > 0 {
		logger.Debug("Pruned expired progress records.", "count", pruned)
		s.write(ctx, state)
	}
	return state
}

// write serializes and stores the full state. Faults are logged only.
func (s *Store) write(ctx context.Context, state map[string]Record) {
	logger := ctxlog.FromContext(ctx)

	raw, err := json.Marshal(state)
	if err != nil {
		logger.Error("Failed to serialize progress state, write skipped.", "key", s.key, "error", err)
		return
	}
	if err := s.storage.Set(ctx, s.key, raw); err != nil {
		logger.Error("Failed to persist progress state.", "key", s.key, "error", err)
	}
}
