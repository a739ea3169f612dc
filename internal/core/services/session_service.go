package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/vncsmyrnk/poker/internal/core/domain"
	"github.com/vncsmyrnk/poker/internal/core/ports"
)

type sessionService struct {
	store    ports.SessionStore
	identity ports.IdentityProvider
	cfg      ReconcilerConfig
}

func NewSessionService(store ports.SessionStore, identity ports.IdentityProvider, cfg ReconcilerConfig) ports.SessionService {
	return &sessionService{
		store:    store,
		identity: identity,
		cfg:      cfg,
	}
}

// Create writes a new session with the local participant as its admin and returns its id.
// A blank name falls back to the persisted display name; a given one is persisted.
func (s *sessionService) Create(ctx context.Context, topic, name string) (string, error) {
	creatorID, err := s.identity.GetOrCreateParticipantID(ctx)
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(name) == "" {
		name, _, err = s.identity.DisplayName(ctx)
		if err != nil {
			return "", err
		}
	} else if err := s.identity.SetDisplayName(ctx, name); err != nil {
		return "", err
	}

	session, doc, err := domain.Create(topic, creatorID, name, time.Now())
	if err != nil {
		return "", err
	}

	if err := s.store.Create(ctx, session.ID, doc); err != nil {
		return "", fmt.Errorf("%w: create: %w", domain.ErrWriteFailed, err)
	}

	log.Info().
		Str("session_id", session.ID).
		Str("participant_id", creatorID).
		Str("topic", session.Topic).
		Msg("session created")

	return session.ID, nil
}

// Open subscribes to an existing session. The caller owns the returned reconciler and must Close it.
func (s *sessionService) Open(ctx context.Context, sessionID string) (ports.SessionSync, error) {
	r := NewReconciler(s.store, s.identity, sessionID, s.cfg)
	if err := r.Start(ctx); err != nil {
		r.Close()
		return nil, err
	}
	return r, nil
}

// Enter resolves a launch link into a session: it creates one when the link names none.
// A join link with a name also joins the session once it has loaded.
func (s *sessionService) Enter(ctx context.Context, link, topic, name string) (ports.SessionSync, error) {
	entry, err := domain.ParseEntry(link)
	if err != nil {
		return nil, err
	}

	sessionID := entry.SessionID
	if entry.Mode == domain.ModeCreate {
		if sessionID, err = s.Create(ctx, topic, name); err != nil {
			return nil, err
		}
	}

	r, err := s.Open(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if entry.Mode == domain.ModeJoin && strings.TrimSpace(name) != "" {
		if err := join(ctx, r, name); err != nil {
			r.Close()
			return nil, err
		}
	}
	return r, nil
}

// join waits for the first snapshot and adds the local participant unless it is already there.
func join(ctx context.Context, r ports.SessionSync, name string) error {
	v, err := r.Await(ctx, ports.Loaded)
	if err != nil {
		return err
	}
	if v.Status == ports.StatusReady && !v.Joined {
		return r.Join(ctx, name)
	}
	return r.SetName(ctx, name)
}
