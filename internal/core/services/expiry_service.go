package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/vncsmyrnk/poker/internal/core/ports"
)

// maxParallelDeletes bounds how many deletes one sweep has in flight.
const maxParallelDeletes = 8

type expiryService struct {
	janitor ports.SessionJanitor
	ttl     time.Duration
	clock   clockwork.Clock
}

// NewExpiryService returns a sweeper for sessions idle longer than ttl. A ttl of 0 never expires anything.
func NewExpiryService(janitor ports.SessionJanitor, ttl time.Duration, clock clockwork.Clock) ports.ExpiryService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &expiryService{
		janitor: janitor,
		ttl:     ttl,
		clock:   clock,
	}
}

// ExpireIdle deletes every session not written for longer than the TTL and reports how many went.
func (s *expiryService) ExpireIdle(ctx context.Context) (int, error) {
	if s.ttl <= 0 {
		return 0, nil
	}

	cutoff := s.clock.Now().Add(-s.ttl)
	ids, err := s.janitor.ListIdle(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list idle sessions: %w", err)
	}

	var (
		wg      sync.WaitGroup
		deleted atomic.Int64
	)
	errChan := make(chan error, len(ids))
	sem := make(chan struct{}, maxParallelDeletes)

	for _, id := range ids {
		wg.Add(1)
		sem <- struct{}{}
		go func(id string) {
			defer func() {
				<-sem
				wg.Done()
			}()
			if err := s.janitor.Delete(ctx, id); err != nil {
				errChan <- fmt.Errorf("failed to delete session %s: %w", id, err)
				return
			}
			deleted.Add(1)
		}(id)
	}

	wg.Wait()
	close(errChan)

	for err := range errChan {
		if err != nil {
			return int(deleted.Load()), err
		}
	}

	return int(deleted.Load()), nil
}

// Run sweeps every interval until ctx is done. It returns at once when expiry is
// disabled or the interval is not positive.
func (s *expiryService) Run(ctx context.Context, interval time.Duration) {
	if s.ttl <= 0 || interval <= 0 {
		log.Info().Dur("ttl", s.ttl).Dur("interval", interval).Msg("session expiry disabled")
		return
	}

	ticker := s.clock.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("ttl", s.ttl).Dur("interval", interval).Msg("session expiry sweeper started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("session expiry sweeper stopped")
			return
		case <-ticker.Chan():
			n, err := s.ExpireIdle(ctx)
			if err != nil {
				log.Error().Err(err).Int("deleted", n).Msg("session expiry sweep failed")
				continue
			}
			if n > 0 {
				log.Info().Int("deleted", n).Msg("expired idle sessions")
			}
		}
	}
}
