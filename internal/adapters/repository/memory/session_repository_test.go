package memory

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/poker/internal/core/domain"
	"github.com/vncsmyrnk/poker/internal/core/ports"
)

func newSession(t *testing.T) (*domain.Session, []byte) {
	t.Helper()
	s, doc, err := domain.Create("Sprint 12", "alice", "Alice", time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return s, doc
}

func next(t *testing.T, ch <-chan ports.Snapshot) ports.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		require.True(t, ok, "subscription closed")
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot delivered")
		return ports.Snapshot{}
	}
}

func TestSessionRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(nil)
	s, doc := newSession(t)

	require.NoError(t, repo.Create(ctx, s.ID, doc))
	assert.ErrorIs(t, repo.Create(ctx, s.ID, doc), domain.ErrSessionExists)

	data, err := repo.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.JSONEq(t, string(doc), string(data))

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionRepository_UpdateMergesFields(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(nil)
	s, doc := newSession(t)
	require.NoError(t, repo.Create(ctx, s.ID, doc))

	require.NoError(t, repo.Update(ctx, s.ID, domain.Patch{
		domain.ParticipantPath("bob", domain.FieldName): "Bob",
		domain.VotePath("bob"):                          "5",
	}))
	require.NoError(t, repo.Update(ctx, s.ID, domain.Patch{domain.VotePath("alice"): "8"}))

	data, err := repo.Get(ctx, s.ID)
	require.NoError(t, err)
	got, err := domain.DecodeSession(s.ID, data)
	require.NoError(t, err)

	require.Len(t, got.Participants, 2)
	assert.Equal(t, domain.CardFive, *got.Participants["bob"].Vote)
	assert.Equal(t, domain.CardEight, *got.Participants["alice"].Vote)
	assert.True(t, got.Participants["alice"].IsAdmin)
	assert.Equal(t, "Sprint 12", got.Topic)
}

func TestSessionRepository_UpdateRejects(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository(nil)
	s, doc := newSession(t)
	require.NoError(t, repo.Create(ctx, s.ID, doc))

	assert.ErrorIs(t, repo.Update(ctx, "missing", domain.Patch{domain.PathRevealed: true}), domain.ErrSessionNotFound)
	assert.ErrorIs(t, repo.Update(ctx, s.ID, domain.Patch{"createdAt": "yesterday"}), domain.ErrInvalidPatch)
}

func TestSessionRepository_SubscribeStreamsChanges(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	repo := NewSessionRepository(nil)
	s, doc := newSession(t)

	ch, err := repo.Subscribe(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, next(t, ch).Exists)

	require.NoError(t, repo.Create(ctx, s.ID, doc))
	snap := next(t, ch)
	require.True(t, snap.Exists)
	assert.Equal(t, s.ID, snap.SessionID)

	require.NoError(t, repo.Update(ctx, s.ID, domain.Patch{domain.PathRevealed: true}))
	snap = next(t, ch)
	var body map[string]any
	require.NoError(t, json.Unmarshal(snap.Data, &body))
	assert.Equal(t, true, body["revealed"])

	require.NoError(t, repo.Delete(ctx, s.ID))
	assert.False(t, next(t, ch).Exists)

	cancel()
	require.Eventually(t, func() bool {
		_, ok := <-ch
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSessionRepository_ListIdle(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	repo := NewSessionRepository(clock)

	_, oldDoc := newSession(t)
	require.NoError(t, repo.Create(ctx, "old", oldDoc))
	clock.Advance(48 * time.Hour)
	_, newDoc := newSession(t)
	require.NoError(t, repo.Create(ctx, "fresh", newDoc))

	ids, err := repo.ListIdle(ctx, clock.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"old"}, ids)

	require.NoError(t, repo.Delete(ctx, "old"))
	assert.ErrorIs(t, repo.Delete(ctx, "old"), domain.ErrSessionNotFound)
}

func TestKeyValueRepository(t *testing.T) {
	ctx := context.Background()
	kv := NewKeyValueRepository()

	_, ok, err := kv.Get(ctx, "participantId")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, "participantId", "p1"))
	v, ok, err := kv.Get(ctx, "participantId")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "p1", v)
}
