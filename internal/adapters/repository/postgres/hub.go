package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"github.com/vncsmyrnk/poker/internal/adapters/feed"
	"github.com/vncsmyrnk/poker/internal/core/domain"
	"github.com/vncsmyrnk/poker/internal/core/ports"
)

type HubConfig struct {
	DatabaseURL  string // DSN for LISTEN/NOTIFY
	Channel      string
	PingInterval time.Duration
	FetchTimeout time.Duration
}

func DefaultHubConfig() HubConfig {
	return HubConfig{
		Channel:      DefaultNotifyChannel,
		PingInterval: 90 * time.Second,
		FetchTimeout: 5 * time.Second,
	}
}

type subscription struct {
	feed      *feed.Feed
	delivered bool
	exists    bool
	version   int64
}

// Hub turns session change notifications into snapshot streams. Every subscriber
// receives the current document on subscribe and a fresh fetch after every notification.
type Hub struct {
	db       *sql.DB
	listener *pq.Listener
	cfg      HubConfig

	mu   sync.Mutex
	subs map[string]map[*subscription]struct{}
}

func NewHub(db *sql.DB, cfg HubConfig) (*Hub, error) {
	if cfg.Channel == "" {
		cfg.Channel = DefaultNotifyChannel
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = DefaultHubConfig().PingInterval
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultHubConfig().FetchTimeout
	}

	l := pq.NewListener(
		cfg.DatabaseURL,
		10*time.Second,
		time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Error().Err(err).Msg("session listener event")
			}
		},
	)
	if err := l.Listen(cfg.Channel); err != nil {
		l.Close()
		return nil, fmt.Errorf("failed to listen to channel: %w", err)
	}

	log.Info().Str("channel", cfg.Channel).Msg("listening for session changes")

	return &Hub{
		db:       db,
		listener: l,
		cfg:      cfg,
		subs:     make(map[string]map[*subscription]struct{}),
	}, nil
}

// Start dispatches notifications until ctx is done.
func (h *Hub) Start(ctx context.Context) error {
	pingTicker := time.NewTicker(h.cfg.PingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("session listener shutting down")
			return h.Stop()
		case note := <-h.listener.Notify:
			if note == nil {
				// connection was re-established, changes may have been missed
				h.refreshAll(ctx)
				continue
			}
			h.refresh(ctx, note.Extra)
		case <-pingTicker.C:
			if err := h.listener.Ping(); err != nil {
				log.Error().Err(err).Msg("failed to ping session listener")
			}
		}
	}
}

func (h *Hub) Stop() error {
	return h.listener.Close()
}

func (h *Hub) Subscribe(ctx context.Context, id string) (<-chan ports.Snapshot, error) {
	sub := &subscription{feed: feed.New(ctx)}

	h.mu.Lock()
	set, ok := h.subs[id]
	if !ok {
		set = make(map[*subscription]struct{})
		h.subs[id] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-sub.feed.Done()
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs[id], sub)
		if len(h.subs[id]) == 0 {
			delete(h.subs, id)
		}
	}()

	h.refresh(ctx, id)
	return sub.feed.Snapshots(), nil
}

func (h *Hub) refreshAll(ctx context.Context) {
	h.mu.Lock()
	ids := make([]string, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	h.mu.Unlock()

	for _, id := range ids {
		h.refresh(ctx, id)
	}
}

// refresh fetches the document and hands it to every subscriber of id.
// The row version keeps a slow fetch from overtaking a newer one.
func (h *Hub) refresh(ctx context.Context, id string) {
	h.mu.Lock()
	_, watched := h.subs[id]
	h.mu.Unlock()
	if !watched {
		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, h.cfg.FetchTimeout)
	data, version, err := fetch(fetchCtx, h.db, id)
	cancel()

	snap := ports.Snapshot{SessionID: id}
	switch {
	case err == nil:
		snap.Exists = true
		snap.Data = data
	case errors.Is(err, domain.ErrSessionNotFound):
	default:
		log.Error().Err(err).Str("session_id", id).Msg("failed to fetch session for subscribers")
		snap.Err = err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[id] {
		if !sub.accept(snap, version) {
			continue
		}
		sub.feed.Publish(snap)
	}
}

func (s *subscription) accept(snap ports.Snapshot, version int64) bool {
	switch {
	case snap.Err != nil:
		return true
	case !s.delivered:
	case snap.Exists && version <= s.version:
		return false
	case !snap.Exists && !s.exists:
		return false
	}
	s.delivered = true
	s.exists = snap.Exists
	// a re-created session starts again at version 1
	s.version = 0
	if snap.Exists {
		s.version = version
	}
	return true
}
