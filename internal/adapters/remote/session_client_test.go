package remote

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	handler "github.com/vncsmyrnk/poker/internal/adapters/handler/http"
	"github.com/vncsmyrnk/poker/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/poker/internal/core/domain"
	"github.com/vncsmyrnk/poker/internal/core/ports"
	"github.com/vncsmyrnk/poker/internal/core/services"
)

func setupGateway(t *testing.T) (*SessionClient, *memory.SessionRepository) {
	t.Helper()
	store := memory.NewSessionRepository(nil)
	sessionHandler := handler.NewSessionHandler(store)
	server := httptest.NewServer(handler.NewHandler(sessionHandler, []string{"*"}))
	t.Cleanup(func() {
		sessionHandler.Shutdown()
		server.Close()
	})

	client, err := NewSessionClient(server.URL, WithHTTPClient(server.Client()), WithReconnectWait(50*time.Millisecond))
	require.NoError(t, err)
	return client, store
}

func next(t *testing.T, ch <-chan ports.Snapshot) ports.Snapshot {
	t.Helper()
	select {
	case snap, ok := <-ch:
		require.True(t, ok, "subscription closed")
		return snap
	case <-time.After(3 * time.Second):
		t.Fatal("no snapshot delivered")
		return ports.Snapshot{}
	}
}

func TestNewSessionClient_RejectsBadURL(t *testing.T) {
	_, err := NewSessionClient("ftp://example.com")
	assert.Error(t, err)
}

func TestSessionClient_StoreOperations(t *testing.T) {
	ctx := context.Background()
	client, _ := setupGateway(t)

	s, doc, err := domain.Create("Sprint 12", "alice", "Alice", time.Now())
	require.NoError(t, err)

	require.NoError(t, client.Create(ctx, s.ID, doc))
	assert.ErrorIs(t, client.Create(ctx, s.ID, doc), domain.ErrSessionExists)

	require.NoError(t, client.Update(ctx, s.ID, domain.Patch{domain.VotePath("alice"): domain.CardThirteen}))
	assert.ErrorIs(t, client.Update(ctx, s.ID, domain.Patch{"nope": true}), domain.ErrInvalidPatch)
	assert.ErrorIs(t, client.Update(ctx, "missing", domain.Patch{domain.PathRevealed: true}), domain.ErrSessionNotFound)

	data, err := client.Get(ctx, s.ID)
	require.NoError(t, err)
	got, err := domain.DecodeSession(s.ID, data)
	require.NoError(t, err)
	assert.Equal(t, domain.CardThirteen, *got.Participants["alice"].Vote)

	_, err = client.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestSessionClient_Subscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client, store := setupGateway(t)

	s, doc, err := domain.Create("", "alice", "Alice", time.Now())
	require.NoError(t, err)

	ch, err := client.Subscribe(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, next(t, ch).Exists)

	require.NoError(t, store.Create(ctx, s.ID, doc))
	assert.True(t, next(t, ch).Exists)

	require.NoError(t, client.Update(ctx, s.ID, domain.Patch{domain.PathRevealed: true}))
	got, err := domain.DecodeSession(s.ID, next(t, ch).Data)
	require.NoError(t, err)
	assert.True(t, got.Revealed)

	require.NoError(t, store.Delete(ctx, s.ID))
	assert.False(t, next(t, ch).Exists)
}

func TestSessionClient_ReconcilersShareSession(t *testing.T) {
	ctx := context.Background()
	client, _ := setupGateway(t)

	newService := func(name string) ports.SessionService {
		identity := services.NewIdentityService(memory.NewKeyValueRepository())
		require.NoError(t, identity.SetDisplayName(ctx, name))
		return services.NewSessionService(client, identity, services.DefaultReconcilerConfig())
	}
	alice, bob := newService("Alice"), newService("Bob")

	id, err := alice.Create(ctx, "Remote sprint", "")
	require.NoError(t, err)

	ra, err := alice.Open(ctx, id)
	require.NoError(t, err)
	defer ra.Close()
	rb, err := bob.Open(ctx, id)
	require.NoError(t, err)
	defer rb.Close()

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err = rb.Await(waitCtx, ports.Loaded)
	require.NoError(t, err)
	require.NoError(t, rb.Join(ctx, ""))
	_, err = rb.Await(waitCtx, func(v ports.View) bool { return v.Joined })
	require.NoError(t, err)
	require.NoError(t, rb.Vote("coffee"))

	_, err = ra.Await(waitCtx, func(v ports.View) bool {
		for _, p := range v.Participants {
			if !p.Self && p.HasVoted {
				return true
			}
		}
		return false
	})
	require.NoError(t, err)
	require.NoError(t, ra.Reveal())

	v, err := rb.Await(waitCtx, func(v ports.View) bool { return v.Revealed })
	require.NoError(t, err)
	assert.Equal(t, 1, v.Tally.Counts[domain.CardCoffee])
	assert.False(t, v.Tally.HasAverage)
}
