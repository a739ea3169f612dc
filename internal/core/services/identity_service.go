package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/poker/internal/core/domain"
	"github.com/vncsmyrnk/poker/internal/core/ports"
)

const (
	keyParticipantID = "participantId"
	keyDisplayName   = "displayName"
)

type identityService struct {
	kv ports.KeyValueStore
	mu sync.Mutex
}

func NewIdentityService(kv ports.KeyValueStore) ports.IdentityProvider {
	return &identityService{
		kv: kv,
	}
}

func (s *identityService) GetOrCreateParticipantID(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok, err := s.kv.Get(ctx, keyParticipantID)
	if err != nil {
		return "", fmt.Errorf("failed to read participant id: %w", err)
	}
	if ok && domain.ValidID(id) {
		return id, nil
	}

	id = uuid.NewString()
	if err := s.kv.Set(ctx, keyParticipantID, id); err != nil {
		return "", fmt.Errorf("failed to persist participant id: %w", err)
	}
	return id, nil
}

func (s *identityService) DisplayName(ctx context.Context) (string, bool, error) {
	name, ok, err := s.kv.Get(ctx, keyDisplayName)
	if err != nil {
		return "", false, fmt.Errorf("failed to read display name: %w", err)
	}
	if !ok || name == "" {
		return "", false, nil
	}
	return name, true, nil
}

func (s *identityService) SetDisplayName(ctx context.Context, name string) error {
	if err := s.kv.Set(ctx, keyDisplayName, domain.NormalizeName(name)); err != nil {
		return fmt.Errorf("failed to persist display name: %w", err)
	}
	return nil
}
