package ports

import (
	"context"
	"time"

	"github.com/vncsmyrnk/poker/internal/core/domain"
)

type Status int

const (
	StatusLoading Status = iota
	StatusReady
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return "loading"
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// View is the derived, per-client interpretation of the latest snapshot.
type View struct {
	SessionID    string                   `json:"sessionId"`
	LocalID      string                   `json:"localId"`
	Status       Status                   `json:"status"`
	Err          error                    `json:"-"`
	WriteErr     error                    `json:"-"`
	Topic        string                   `json:"topic"`
	Revealed     bool                     `json:"revealed"`
	CreatedAt    time.Time                `json:"createdAt"`
	Joined       bool                     `json:"joined"`
	IsAdmin      bool                     `json:"isAdmin"`
	NeedsName    bool                     `json:"needsName"`
	MyVote       *domain.Card             `json:"myVote,omitempty"`
	Participants []domain.ParticipantView `json:"participants"`
	Capacity     int                      `json:"capacity"`
	// Tally stays zero until the round is revealed.
	Tally   domain.Tally    `json:"tally"`
	Session *domain.Session `json:"-"`
}

// Loaded is an Await predicate satisfied by the first snapshot, good or bad.
func Loaded(v View) bool {
	return v.Status != StatusLoading
}

// SessionSync is one client's live view of a session and the commands it can issue.
// Commands return once the write is queued; their effect shows up in a later View.
type SessionSync interface {
	SessionID() string
	View() View
	Changed() <-chan struct{}
	Await(ctx context.Context, pred func(View) bool) (View, error)
	Wait()
	SetName(ctx context.Context, name string) error
	Join(ctx context.Context, name string) error
	Vote(value string) error
	Reveal() error
	Reset(topic string) error
	Close() error
}

type SessionService interface {
	Create(ctx context.Context, topic, name string) (string, error)
	Open(ctx context.Context, sessionID string) (SessionSync, error)
	Enter(ctx context.Context, link, topic, name string) (SessionSync, error)
}
