package memory

import (
	"context"
	"sync"

	"github.com/vncsmyrnk/poker/internal/core/ports"
)

type KeyValueRepository struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewKeyValueRepository() *KeyValueRepository {
	return &KeyValueRepository{values: make(map[string]string)}
}

var _ ports.KeyValueStore = (*KeyValueRepository)(nil)

func (r *KeyValueRepository) Get(ctx context.Context, key string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.values[key]
	return v, ok, nil
}

func (r *KeyValueRepository) Set(ctx context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values[key] = value
	return nil
}
