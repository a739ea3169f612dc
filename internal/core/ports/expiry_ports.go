package ports

import (
	"context"
	"time"
)

// SessionJanitor is implemented by stores that can enumerate and drop idle sessions.
type SessionJanitor interface {
	ListIdle(ctx context.Context, before time.Time) ([]string, error)
	Delete(ctx context.Context, id string) error
}

type ExpiryService interface {
	ExpireIdle(ctx context.Context) (int, error)
	Run(ctx context.Context, interval time.Duration)
}
