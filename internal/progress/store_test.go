package progress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/syncgraph/internal/ctxlog"
	"github.com/vk/syncgraph/internal/inmemorystore"
	"github.com/vk/syncgraph/internal/sessionstore"
	"github.com/vk/syncgraph/internal/sessionstore/mock"
	"go.uber.org/mock/gomock"
)

// clock is a manually advanced time source.
type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(t *testing.T) (*Store, sessionstore.Store, *clock) {
	t.Helper()
	storage := inmemorystore.New()
	c := &clock{t: time.UnixMilli(1_700_000_000_000)}
	return NewStore(storage, WithClock(c.Now)), storage, c
}

func captureLogs() (context.Context, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return ctxlog.WithLogger(context.Background(), logger), &buf
}

func rawState(t *testing.T, storage sessionstore.Store) map[string]Record {
	t.Helper()
	raw, found, err := storage.Get(context.Background(), StorageKey)
	require.NoError(t, err)
	if !found {
		return nil
	}
	var state map[string]Record
	require.NoError(t, json.Unmarshal(raw, &state))
	return state
}

func TestSaveProgress_StatusTransitions(t *testing.T) {
	s, _, c := newTestStore(t)
	ctx := context.Background()

	s.SaveProgress(ctx, "conn1", "job1", Update{"is_complete": false, "is_failed": false, "rows": 10})

	r, ok := s.GetProgressForSource(ctx, "conn1")
	require.True(t, ok)
	assert.Equal(t, StatusActive, r.Status)
	assert.Equal(t, "job1", r.JobID)
	assert.Equal(t, c.Now().UnixMilli(), r.Timestamp)
	assert.Equal(t, 10.0, r.LastUpdate["rows"], "extra fields are kept verbatim")

	c.Advance(time.Minute)
	s.SaveProgress(ctx, "conn1", "job1", Update{"is_complete": true, "is_failed": false})

	r, ok = s.GetProgressForSource(ctx, "conn1")
	require.True(t, ok)
	assert.Equal(t, StatusCompleted, r.Status)
	assert.Equal(t, c.Now().UnixMilli(), r.Timestamp)
	assert.Len(t, s.GetStoredState(ctx), 1, "same key is overwritten")
}

func TestGetProgressForSource_Missing(t *testing.T) {
	s, _, _ := newTestStore(t)

	_, ok := s.GetProgressForSource(context.Background(), "nope")
	assert.False(t, ok)
}

func TestTTL_ExpiryAndPurge(t *testing.T) {
	s, storage, c := newTestStore(t)
	ctx := context.Background()

	s.SaveProgress(ctx, "conn1", "job1", Update{})
	s.SaveProgress(ctx, "conn2", "job2", Update{})
	written := c.Now()

	c.t = written.Add(TTL - time.Millisecond)
	_, ok := s.GetProgressForSource(ctx, "conn1")
	assert.True(t, ok, "still fresh one millisecond before TTL")

	// Refresh conn2 so only conn1 expires.
	s.SaveProgress(ctx, "conn2", "job2", Update{})

	c.t = written.Add(TTL)
	_, ok = s.GetProgressForSource(ctx, "conn1")
	assert.False(t, ok, "expired exactly at TTL")

	state := rawState(t, storage)
	assert.NotContains(t, state, "conn1", "expired record is purged from storage")
	assert.Contains(t, state, "conn2")
}

func TestHasActiveSync(t *testing.T) {
	s, _, c := newTestStore(t)
	ctx := context.Background()

	assert.False(t, s.HasActiveSync(ctx, "conn1"))

	s.SaveProgress(ctx, "conn1", "job1", Update{"is_complete": false})
	assert.True(t, s.HasActiveSync(ctx, "conn1"))

	s.RemoveProgress(ctx, "conn1")
	assert.False(t, s.HasActiveSync(ctx, "conn1"))

	s.SaveProgress(ctx, "conn1", "job2", Update{})
	assert.True(t, s.HasActiveSync(ctx, "conn1"))
	c.Advance(TTL)
	assert.False(t, s.HasActiveSync(ctx, "conn1"))

	s.SaveProgress(ctx, "conn1", "job3", Update{"is_failed": true})
	assert.False(t, s.HasActiveSync(ctx, "conn1"))
}

func TestActiveSyncs(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	s.SaveProgress(ctx, "b", "j", Update{})
	s.SaveProgress(ctx, "a", "j", Update{})
	s.SaveProgress(ctx, "done", "j", Update{"is_complete": true})

	assert.Equal(t, []string{"a", "b"}, s.ActiveSyncs(ctx))
}

func TestRemoveAndClearAll(t *testing.T) {
	s, storage, _ := newTestStore(t)
	ctx := context.Background()

	s.SaveProgress(ctx, "a", "j", Update{})
	s.SaveProgress(ctx, "b", "j", Update{})

	s.RemoveProgress(ctx, "a")
	s.RemoveProgress(ctx, "missing")
	assert.Equal(t, []string{"b"}, keys(s.GetStoredState(ctx)))

	s.ClearAll(ctx)
	assert.Empty(t, s.GetStoredState(ctx))
	assert.Nil(t, rawState(t, storage))
}

func TestStateSurvivesNewStoreInstance(t *testing.T) {
	storage := inmemorystore.New()
	ctx := context.Background()

	NewStore(storage).SaveProgress(ctx, "conn1", "job1", Update{})

	r, ok := NewStore(storage).GetProgressForSource(ctx, "conn1")
	require.True(t, ok)
	assert.Equal(t, "job1", r.JobID)
}

func TestWithKeySeparatesStores(t *testing.T) {
	storage := inmemorystore.New()
	ctx := context.Background()

	a := NewStore(storage)
	b := NewStore(storage, WithKey("other.progress"))
	a.SaveProgress(ctx, "conn1", "job1", Update{})

	assert.True(t, a.HasActiveSync(ctx, "conn1"))
	assert.False(t, b.HasActiveSync(ctx, "conn1"))

	_, found, err := storage.Get(ctx, "other.progress")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCorruptStateReadsEmpty(t *testing.T) {
	storage := inmemorystore.New()
	ctx, logs := captureLogs()
	require.NoError(t, storage.Set(ctx, StorageKey, []byte("{not json")))

	s := NewStore(storage)
	assert.Empty(t, s.GetStoredState(ctx))
	assert.Contains(t, logs.String(), "Failed to parse progress state")

	// A later save replaces the corrupt document.
	s.SaveProgress(ctx, "conn1", "job1", Update{})
	assert.True(t, s.HasActiveSync(ctx, "conn1"))
}

func TestStorageFaultsAreSwallowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	storage := mock.NewMockStore(ctrl)
	ctx, logs := captureLogs()

	storage.EXPECT().Get(gomock.Any(), StorageKey).Return(nil, false, errors.New("storage unavailable")).AnyTimes()
	storage.EXPECT().Set(gomock.Any(), StorageKey, gomock.Any()).Return(errors.New("quota exceeded"))
	storage.EXPECT().Remove(gomock.Any(), StorageKey).Return(errors.New("storage unavailable"))

	s := NewStore(storage)

	assert.NotPanics(t, func() {
		s.SaveProgress(ctx, "conn1", "job1", Update{})
		assert.Empty(t, s.GetStoredState(ctx))
		assert.False(t, s.HasActiveSync(ctx, "conn1"))
		s.ClearAll(ctx)
	})

	out := logs.String()
	assert.Contains(t, out, "Failed to read progress state")
	assert.Contains(t, out, "Failed to persist progress state")
	assert.Contains(t, out, "Failed to clear progress state")
}

func TestSerializationFaultKeepsPriorState(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx, logs := captureLogs()

	s.SaveProgress(ctx, "conn1", "job1", Update{"is_complete": true})
	s.SaveProgress(ctx, "conn1", "job2", Update{"bad": make(chan int)})

	r, ok := s.GetProgressForSource(ctx, "conn1")
	require.True(t, ok)
	assert.Equal(t, "job1", r.JobID)
	assert.Equal(t, StatusCompleted, r.Status)
	assert.Contains(t, logs.String(), "Failed to serialize progress state")
}

func keys(m map[string]Record) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
