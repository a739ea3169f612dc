package domain

import (
	"fmt"
	"net/url"
	"strings"
)

// SessionParam is the query parameter that carries the session id in a share link.
const SessionParam = "session"

type EntryMode int

const (
	ModeCreate EntryMode = iota
	ModeJoin
)

func (m EntryMode) String() string {
	if m == ModeJoin {
		return "join"
	}
	return "create"
}

// Entry is the result of parsing an entry link once at startup.
type Entry struct {
	Mode      EntryMode
	SessionID string
}

// ParseEntry decides between joining an existing session and creating a new one.
// A link carrying ?session=<id> joins; a bare id joins; anything else creates.
func ParseEntry(raw string) (Entry, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Entry{Mode: ModeCreate}, nil
	}
	if ValidID(raw) {
		return Entry{Mode: ModeJoin, SessionID: raw}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrInvalidLink, err)
	}
	id := u.Query().Get(SessionParam)
	if id == "" {
		return Entry{Mode: ModeCreate}, nil
	}
	if !ValidID(id) {
		return Entry{}, fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}
	return Entry{Mode: ModeJoin, SessionID: id}, nil
}

// ShareLink embeds sessionID into base as the session query parameter.
func ShareLink(base, sessionID string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidLink, err)
	}
	q := u.Query()
	q.Set(SessionParam, sessionID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
