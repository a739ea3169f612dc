package ports

import (
	"context"

	"github.com/vncsmyrnk/poker/internal/core/domain"
)

// Snapshot is one delivery on a session subscription: the full document, a not-found
// marker (Exists false), or a delivery error.
type Snapshot struct {
	SessionID string
	Exists    bool
	Data      []byte
	Err       error
}

// SessionStore is the boundary to the shared real-time document store.
// Update applies a patch atomically with last-writer-wins per field.
// Subscribe delivers snapshots in order until ctx is cancelled, then closes the channel.
type SessionStore interface {
	Create(ctx context.Context, id string, doc []byte) error
	Update(ctx context.Context, id string, patch domain.Patch) error
	Get(ctx context.Context, id string) ([]byte, error)
	Subscribe(ctx context.Context, id string) (<-chan Snapshot, error)
}
