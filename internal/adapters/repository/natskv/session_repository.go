package natskv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
	"github.com/vncsmyrnk/poker/internal/adapters/feed"
	"github.com/vncsmyrnk/poker/internal/core/domain"
	"github.com/vncsmyrnk/poker/internal/core/ports"
)

type Config struct {
	URL           string
	Bucket        string
	TTL           time.Duration // 0 keeps sessions forever
	MaxRetries    int           // compare-and-set attempts per update
	MaxReconnects int
	ReconnectWait time.Duration
}

func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		Bucket:        "poker_sessions",
		TTL:           7 * 24 * time.Hour,
		MaxRetries:    10,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// SessionRepository stores one key per session in a JetStream key-value bucket.
// Updates are compare-and-set on the entry revision, so concurrent patches are
// retried instead of overwriting each other.
type SessionRepository struct {
	nc  *nats.Conn
	kv  jetstream.KeyValue
	cfg Config
}

var _ ports.SessionStore = (*SessionRepository)(nil)

func Connect(ctx context.Context, cfg Config) (*SessionRepository, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      cfg.Bucket,
		Description: "planning poker sessions",
		History:     1,
		TTL:         cfg.TTL,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure key-value bucket %s: %w", cfg.Bucket, err)
	}

	log.Info().Str("bucket", cfg.Bucket).Dur("ttl", cfg.TTL).Msg("NATS session bucket ready")

	return &SessionRepository{nc: nc, kv: kv, cfg: cfg}, nil
}

func (r *SessionRepository) Close() {
	r.nc.Close()
}

func (r *SessionRepository) Create(ctx context.Context, id string, doc []byte) error {
	if !domain.ValidID(id) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidSessionID, id)
	}
	if !json.Valid(doc) {
		return fmt.Errorf("%w: document is not valid json", domain.ErrInvalidPatch)
	}

	if _, err := r.kv.Create(ctx, id, doc); err != nil {
		if errors.Is(err, jetstream.ErrKeyExists) {
			return domain.ErrSessionExists
		}
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Update(ctx context.Context, id string, patch domain.Patch) error {
	if err := patch.Validate(); err != nil {
		return err
	}

	for attempt := 0; attempt <= r.cfg.MaxRetries; attempt++ {
		entry, err := r.kv.Get(ctx, id)
		if err != nil {
			if errors.Is(err, jetstream.ErrKeyNotFound) {
				return domain.ErrSessionNotFound
			}
			return fmt.Errorf("failed to get session: %w", err)
		}

		var doc map[string]any
		if err := json.Unmarshal(entry.Value(), &doc); err != nil {
			return fmt.Errorf("failed to decode session %s: %w", id, err)
		}
		if err := domain.ApplyPatch(doc, patch); err != nil {
			return err
		}
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to encode session %s: %w", id, err)
		}

		_, err = r.kv.Update(ctx, id, data, entry.Revision())
		if err == nil {
			return nil
		}
		if !isWrongRevision(err) {
			return fmt.Errorf("failed to update session: %w", err)
		}
		log.Debug().Str("session_id", id).Int("attempt", attempt+1).Msg("session changed concurrently, retrying")
	}
	return fmt.Errorf("failed to update session %s after %d attempts: revision conflict", id, r.cfg.MaxRetries+1)
}

func (r *SessionRepository) Get(ctx context.Context, id string) ([]byte, error) {
	entry, err := r.kv.Get(ctx, id)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return entry.Value(), nil
}

// expiryRecheck is how long a watcher waits before looking again at an entry that outlived the TTL.
const expiryRecheck = time.Second

// Subscribe watches the session key. The watcher replays the current value first,
// so a session that does not exist yet is reported once the replay is done.
// Entries aged out by the bucket TTL leave no delete marker, so the watcher checks
// the key itself once the TTL has passed and reports the session as gone.
func (r *SessionRepository) Subscribe(ctx context.Context, id string) (<-chan ports.Snapshot, error) {
	if !domain.ValidID(id) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidSessionID, id)
	}

	w, err := r.kv.Watch(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to watch session: %w", err)
	}

	f := feed.New(ctx)
	go func() {
		defer w.Stop()

		var (
			timer   *time.Timer
			expired <-chan time.Time
		)
		disarm := func() {
			if timer != nil {
				timer.Stop()
			}
			timer, expired = nil, nil
		}
		arm := func(d time.Duration) {
			disarm()
			timer = time.NewTimer(d)
			expired = timer.C
		}
		defer disarm()

		seen := false
		for {
			select {
			case <-f.Done():
				return
			case entry, ok := <-w.Updates():
				if !ok {
					f.Publish(ports.Snapshot{SessionID: id, Err: errors.New("session watch ended")})
					return
				}
				if entry == nil {
					if !seen {
						f.Publish(ports.Snapshot{SessionID: id})
					}
					continue
				}
				seen = true
				snap := toSnapshot(id, entry)
				if snap.Exists && r.cfg.TTL > 0 {
					arm(expiryDelay(entry.Created(), r.cfg.TTL, time.Now()))
				} else {
					disarm()
				}
				f.Publish(snap)
			case <-expired:
				timer, expired = nil, nil
				if _, err := r.kv.Get(ctx, id); err != nil {
					if errors.Is(err, jetstream.ErrKeyNotFound) {
						log.Debug().Str("session_id", id).Msg("session aged out of the bucket")
						f.Publish(ports.Snapshot{SessionID: id})
						continue
					}
					log.Warn().Err(err).Str("session_id", id).Msg("failed to check session expiry")
				}
				arm(expiryRecheck)
			}
		}
	}()

	return f.Snapshots(), nil
}

// expiryDelay is how long until an entry written at created outlives ttl.
func expiryDelay(created time.Time, ttl time.Duration, now time.Time) time.Duration {
	d := created.Add(ttl).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Delete purges the session so that watchers observe it as gone.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.kv.Get(ctx, id); err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return domain.ErrSessionNotFound
		}
		return fmt.Errorf("failed to get session: %w", err)
	}
	if err := r.kv.Purge(ctx, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func toSnapshot(id string, entry jetstream.KeyValueEntry) ports.Snapshot {
	switch entry.Operation() {
	case jetstream.KeyValueDelete, jetstream.KeyValuePurge:
		return ports.Snapshot{SessionID: id}
	default:
		return ports.Snapshot{SessionID: id, Exists: true, Data: entry.Value()}
	}
}

func isWrongRevision(err error) bool {
	var apiErr *jetstream.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
	}
	return false
}
