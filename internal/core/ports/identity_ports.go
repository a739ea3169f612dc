package ports

import "context"

// KeyValueStore is device-scoped local persistence.
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

type IdentityProvider interface {
	GetOrCreateParticipantID(ctx context.Context) (string, error)
	DisplayName(ctx context.Context) (string, bool, error)
	SetDisplayName(ctx context.Context, name string) error
}
