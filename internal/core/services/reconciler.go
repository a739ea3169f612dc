package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/vncsmyrnk/poker/internal/core/domain"
	"github.com/vncsmyrnk/poker/internal/core/ports"
)

var ErrClosed = errors.New("reconciler closed")

type ReconcilerConfig struct {
	// MaxParticipants caps new joins; 0 disables the cap.
	MaxParticipants int
	WriteTimeout    time.Duration
	// AutoJoin joins the local participant as soon as a snapshot shows it absent
	// and a display name is already known. Off by default, so reading a session
	// never writes to it.
	AutoJoin  bool
	QueueSize int
}

func DefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{
		MaxParticipants: 25,
		WriteTimeout:    10 * time.Second,
		QueueSize:       64,
	}
}

var _ ports.SessionSync = (*Reconciler)(nil)

type write struct {
	op    string
	patch domain.Patch
}

// Reconciler keeps one client's view of a session in step with the store. Snapshots are
// applied strictly in delivery order. Commands are validated against the current snapshot,
// queued, and written without waiting; their effect is only ever observed through the
// subscription. There is no optimistic local mutation.
type Reconciler struct {
	store     ports.SessionStore
	identity  ports.IdentityProvider
	authorize domain.Authorizer
	cfg       ReconcilerConfig
	sessionID string
	localID   string

	mu            sync.RWMutex
	session       *domain.Session
	status        ports.Status
	err           error
	name          string
	hasName       bool
	joinRequested bool
	writeErr      error
	view          ports.View
	changed       chan struct{}

	wmu     sync.Mutex
	closed  bool
	started bool
	writes  chan write
	pending sync.WaitGroup

	cancel     context.CancelFunc
	loopDone   chan struct{}
	writerDone chan struct{}
	closeOnce  sync.Once
}

func NewReconciler(store ports.SessionStore, identity ports.IdentityProvider, sessionID string, cfg ReconcilerConfig) *Reconciler {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultReconcilerConfig().QueueSize
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultReconcilerConfig().WriteTimeout
	}
	r := &Reconciler{
		store:      store,
		identity:   identity,
		authorize:  domain.AdminOnly,
		cfg:        cfg,
		sessionID:  sessionID,
		changed:    make(chan struct{}),
		writes:     make(chan write, cfg.QueueSize),
		loopDone:   make(chan struct{}),
		writerDone: make(chan struct{}),
	}
	r.view = r.deriveLocked()
	return r
}

// Start resolves the local identity and subscribes to the session.
// The subscription lives until Close or until ctx is cancelled.
func (r *Reconciler) Start(ctx context.Context) error {
	if !domain.ValidID(r.sessionID) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidSessionID, r.sessionID)
	}

	localID, err := r.identity.GetOrCreateParticipantID(ctx)
	if err != nil {
		return err
	}
	name, hasName, err := r.identity.DisplayName(ctx)
	if err != nil {
		return err
	}

	r.wmu.Lock()
	defer r.wmu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if r.started {
		return nil
	}

	r.mu.Lock()
	r.localID = localID
	r.name = name
	r.hasName = hasName
	r.view = r.deriveLocked()
	r.mu.Unlock()

	subCtx, cancel := context.WithCancel(ctx)
	snaps, err := r.store.Subscribe(subCtx, r.sessionID)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to subscribe to session %s: %w", r.sessionID, err)
	}
	r.cancel = cancel
	r.started = true

	go r.writeLoop()
	go r.readLoop(snaps)

	log.Debug().Str("session_id", r.sessionID).Str("participant_id", localID).Msg("subscribed to session")
	return nil
}

// Close ends the subscription and waits for queued writes to finish.
func (r *Reconciler) Close() error {
	r.closeOnce.Do(func() {
		r.wmu.Lock()
		r.closed = true
		started := r.started
		if r.cancel != nil {
			r.cancel()
		}
		close(r.writes)
		r.wmu.Unlock()

		if started {
			<-r.writerDone
			<-r.loopDone
		}
	})
	return nil
}

func (r *Reconciler) SessionID() string {
	return r.sessionID
}

// View returns the latest derived view.
func (r *Reconciler) View() ports.View {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.view
}

// Changed returns a channel closed on the next view change.
func (r *Reconciler) Changed() <-chan struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.changed
}

// Await blocks until pred holds for the current view or ctx is done.
func (r *Reconciler) Await(ctx context.Context, pred func(ports.View) bool) (ports.View, error) {
	for {
		r.mu.RLock()
		v, ch := r.view, r.changed
		r.mu.RUnlock()

		if pred(v) {
			return v, nil
		}
		select {
		case <-ctx.Done():
			return v, ctx.Err()
		case <-ch:
		}
	}
}

// Wait blocks until every queued write has been attempted.
func (r *Reconciler) Wait() {
	r.pending.Wait()
}

// SetName persists the display name, which clears the name prompt and may trigger an auto-join.
func (r *Reconciler) SetName(ctx context.Context, name string) error {
	if err := r.identity.SetDisplayName(ctx, name); err != nil {
		return err
	}

	r.mu.Lock()
	r.name = domain.NormalizeName(name)
	r.hasName = true
	join := r.autoJoinLocked()
	r.refreshLocked()
	r.mu.Unlock()

	if join != nil {
		return r.enqueue("join", join)
	}
	return nil
}

// Join adds the local participant, or rejoins it with its vote cleared.
// A blank name falls back to the persisted display name.
func (r *Reconciler) Join(ctx context.Context, name string) error {
	if strings.TrimSpace(name) != "" {
		if err := r.identity.SetDisplayName(ctx, name); err != nil {
			return err
		}
	}

	r.mu.Lock()
	if strings.TrimSpace(name) != "" {
		r.name = domain.NormalizeName(name)
		r.hasName = true
	}
	name = r.name
	s, err := r.currentLocked()
	if err == nil {
		err = r.admitLocked(s)
	}
	var patch domain.Patch
	if err == nil {
		patch, err = s.Join(r.localID, name)
	}
	if err == nil {
		r.joinRequested = true
	}
	r.refreshLocked()
	r.mu.Unlock()

	if err != nil {
		return err
	}
	return r.enqueue("join", patch)
}

func (r *Reconciler) Vote(value string) error {
	s, err := r.current()
	if err != nil {
		return err
	}
	patch, err := s.SubmitVote(r.localID, value)
	if err != nil {
		return err
	}
	return r.enqueue("vote", patch)
}

func (r *Reconciler) Reveal() error {
	s, err := r.current()
	if err != nil {
		return err
	}
	patch, err := s.Reveal(r.localID, r.authorize)
	if err != nil {
		return err
	}
	return r.enqueue("reveal", patch)
}

// Reset clears every vote; a blank topic keeps the current one.
func (r *Reconciler) Reset(topic string) error {
	s, err := r.current()
	if err != nil {
		return err
	}
	patch, err := s.Reset(r.localID, topic, r.authorize)
	if err != nil {
		return err
	}
	return r.enqueue("reset", patch)
}

func (r *Reconciler) current() (*domain.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.currentLocked()
}

func (r *Reconciler) currentLocked() (*domain.Session, error) {
	if r.session != nil {
		return r.session, nil
	}
	if r.err != nil {
		return nil, r.err
	}
	return nil, domain.ErrNotLoaded
}

// admitLocked enforces the participant cap for newcomers. Rejoining is always allowed.
func (r *Reconciler) admitLocked(s *domain.Session) error {
	if _, ok := s.Participants[r.localID]; ok {
		return nil
	}
	if r.cfg.MaxParticipants > 0 && len(s.Participants) >= r.cfg.MaxParticipants {
		return fmt.Errorf("%w: %d/%d participants", domain.ErrSessionFull, len(s.Participants), r.cfg.MaxParticipants)
	}
	return nil
}

func (r *Reconciler) readLoop(snaps <-chan ports.Snapshot) {
	defer close(r.loopDone)
	for snap := range snaps {
		r.apply(snap)
	}
}

func (r *Reconciler) apply(snap ports.Snapshot) {
	var (
		s   *domain.Session
		err error
	)
	switch {
	case snap.Err != nil:
		err = fmt.Errorf("%w: %w", domain.ErrLoadFailed, snap.Err)
	case !snap.Exists:
		err = domain.ErrSessionNotFound
	default:
		s, err = domain.DecodeSession(r.sessionID, snap.Data)
	}

	r.mu.Lock()
	if err != nil {
		r.session = nil
		r.status = ports.StatusFailed
		r.err = err
		log.Warn().Err(err).Str("session_id", r.sessionID).Msg("session unavailable")
	} else {
		r.session = s
		r.status = ports.StatusReady
		r.err = nil
	}
	join := r.autoJoinLocked()
	r.refreshLocked()
	r.mu.Unlock()

	if join != nil {
		if err := r.enqueue("join", join); err != nil {
			log.Debug().Err(err).Str("session_id", r.sessionID).Msg("auto-join skipped")
		}
	}
}

func (r *Reconciler) autoJoinLocked() domain.Patch {
	if !r.cfg.AutoJoin || r.session == nil || !r.hasName || r.joinRequested {
		return nil
	}
	if _, ok := r.session.Participants[r.localID]; ok {
		return nil
	}
	r.joinRequested = true
	if err := r.admitLocked(r.session); err != nil {
		log.Warn().Err(err).Str("session_id", r.sessionID).Msg("auto-join refused")
		return nil
	}
	patch, err := r.session.Join(r.localID, r.name)
	if err != nil {
		log.Warn().Err(err).Str("session_id", r.sessionID).Msg("auto-join refused")
		return nil
	}
	return patch
}

func (r *Reconciler) enqueue(op string, patch domain.Patch) error {
	r.wmu.Lock()
	defer r.wmu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if !r.started {
		return domain.ErrNotLoaded
	}
	r.pending.Add(1)
	r.writes <- write{op: op, patch: patch}
	return nil
}

func (r *Reconciler) writeLoop() {
	defer close(r.writerDone)
	for w := range r.writes {
		r.send(w)
		r.pending.Done()
	}
}

// send issues one write on a context detached from every caller, so a write
// runs to completion or failure even if the issuing command's caller is gone.
func (r *Reconciler) send(w write) {
	ctx, cancel := context.WithTimeout(context.Background(), r.cfg.WriteTimeout)
	defer cancel()

	err := r.store.Update(ctx, r.sessionID, w.patch)
	if err == nil {
		log.Debug().Str("session_id", r.sessionID).Str("op", w.op).Msg("session write sent")
		return
	}

	err = fmt.Errorf("%w: %s: %w", domain.ErrWriteFailed, w.op, err)
	log.Error().Err(err).Str("session_id", r.sessionID).Str("op", w.op).Msg("session write failed")

	r.mu.Lock()
	r.writeErr = err
	r.refreshLocked()
	r.mu.Unlock()
}

func (r *Reconciler) refreshLocked() {
	r.view = r.deriveLocked()
	close(r.changed)
	r.changed = make(chan struct{})
}

func (r *Reconciler) deriveLocked() ports.View {
	v := ports.View{
		SessionID: r.sessionID,
		LocalID:   r.localID,
		Status:    r.status,
		Err:       r.err,
		WriteErr:  r.writeErr,
		Capacity:  r.cfg.MaxParticipants,
	}
	s := r.session
	if s == nil {
		return v
	}

	p, joined := s.Participants[r.localID]
	v.Session = s
	v.Topic = s.Topic
	v.Revealed = s.Revealed
	v.CreatedAt = s.CreatedAt
	v.Joined = joined
	v.IsAdmin = joined && p.IsAdmin
	v.NeedsName = !joined && !r.hasName
	if p.Vote != nil {
		vote := *p.Vote
		v.MyVote = &vote
	}
	v.Participants = s.ParticipantViews(r.localID)
	if s.Revealed {
		v.Tally = s.Tally()
	}
	return v
}
