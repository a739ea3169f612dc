package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/vncsmyrnk/poker/internal/adapters/feed"
	"github.com/vncsmyrnk/poker/internal/core/domain"
	"github.com/vncsmyrnk/poker/internal/core/ports"
)

type record struct {
	data      []byte
	updatedAt time.Time
}

// SessionRepository keeps session documents in process memory.
// Patches are applied under one lock, so field-level writes are atomic and ordered.
type SessionRepository struct {
	mu    sync.Mutex
	clock clockwork.Clock
	docs  map[string]record
	subs  map[string]map[*feed.Feed]struct{}
}

func NewSessionRepository(clock clockwork.Clock) *SessionRepository {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &SessionRepository{
		clock: clock,
		docs:  make(map[string]record),
		subs:  make(map[string]map[*feed.Feed]struct{}),
	}
}

var (
	_ ports.SessionStore   = (*SessionRepository)(nil)
	_ ports.SessionJanitor = (*SessionRepository)(nil)
)

func (r *SessionRepository) Create(ctx context.Context, id string, doc []byte) error {
	if !domain.ValidID(id) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidSessionID, id)
	}
	if !json.Valid(doc) {
		return fmt.Errorf("%w: document is not valid json", domain.ErrInvalidPatch)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.docs[id]; ok {
		return domain.ErrSessionExists
	}
	r.docs[id] = record{data: bytes.Clone(doc), updatedAt: r.clock.Now()}
	r.publishLocked(id)
	return nil
}

func (r *SessionRepository) Update(ctx context.Context, id string, patch domain.Patch) error {
	if err := patch.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.docs[id]
	if !ok {
		return domain.ErrSessionNotFound
	}

	var doc map[string]any
	if err := json.Unmarshal(rec.data, &doc); err != nil {
		return fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	if err := domain.ApplyPatch(doc, patch); err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", id, err)
	}

	r.docs[id] = record{data: data, updatedAt: r.clock.Now()}
	r.publishLocked(id)
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id string) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.docs[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return bytes.Clone(rec.data), nil
}

// Subscribe delivers the current document first, then every later change until ctx is done.
func (r *SessionRepository) Subscribe(ctx context.Context, id string) (<-chan ports.Snapshot, error) {
	f := feed.New(ctx)

	r.mu.Lock()
	set, ok := r.subs[id]
	if !ok {
		set = make(map[*feed.Feed]struct{})
		r.subs[id] = set
	}
	set[f] = struct{}{}
	f.Publish(r.snapshotLocked(id))
	r.mu.Unlock()

	go func() {
		<-f.Done()
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs[id], f)
		if len(r.subs[id]) == 0 {
			delete(r.subs, id)
		}
	}()

	return f.Snapshots(), nil
}

func (r *SessionRepository) ListIdle(ctx context.Context, before time.Time) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ids []string
	for id, rec := range r.docs {
		if rec.updatedAt.Before(before) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.docs[id]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(r.docs, id)
	r.publishLocked(id)
	return nil
}

func (r *SessionRepository) snapshotLocked(id string) ports.Snapshot {
	rec, ok := r.docs[id]
	if !ok {
		return ports.Snapshot{SessionID: id}
	}
	return ports.Snapshot{SessionID: id, Exists: true, Data: bytes.Clone(rec.data)}
}

func (r *SessionRepository) publishLocked(id string) {
	if len(r.subs[id]) == 0 {
		return
	}
	snap := r.snapshotLocked(id)
	for f := range r.subs[id] {
		f.Publish(snap)
	}
}
