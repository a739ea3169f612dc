package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// DefaultTopic is used when a session is created without a topic.
const DefaultTopic = "Planning poker"

type Participant struct {
	Name    string `json:"name"`
	Vote    *Card  `json:"vote,omitempty"`
	IsAdmin bool   `json:"isAdmin"`
}

func (p Participant) HasVoted() bool {
	return p.Vote != nil
}

// Session is the shared document every client of a session reads and patches.
type Session struct {
	ID           string                 `json:"-"`
	Topic        string                 `json:"topic"`
	Revealed     bool                   `json:"revealed"`
	CreatedAt    time.Time              `json:"createdAt"`
	Participants map[string]Participant `json:"participants"`
}

// DecodeSession interprets a stored document. Any structural problem is reported as ErrLoadFailed.
func DecodeSession(id string, data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadFailed, err)
	}
	if len(s.Participants) == 0 {
		return nil, fmt.Errorf("%w: session %s has no participants", ErrLoadFailed, id)
	}
	for pid, p := range s.Participants {
		if !ValidID(pid) {
			return nil, fmt.Errorf("%w: bad participant key %q", ErrLoadFailed, pid)
		}
		if p.Vote != nil && !p.Vote.Valid() {
			return nil, fmt.Errorf("%w: participant %s has vote %q", ErrLoadFailed, pid, *p.Vote)
		}
		p.Name = NormalizeName(p.Name)
		s.Participants[pid] = p
	}
	s.ID = id
	return &s, nil
}

// Document encodes the session for a store create.
func (s *Session) Document() ([]byte, error) {
	return json.Marshal(s)
}

func (s *Session) Participant(id string) (Participant, bool) {
	p, ok := s.Participants[id]
	return p, ok
}

func (s *Session) IsAdmin(id string) bool {
	p, ok := s.Participants[id]
	return ok && p.IsAdmin
}

// ParticipantIDs returns the participant keys in lexical order.
func (s *Session) ParticipantIDs() []string {
	ids := make([]string, 0, len(s.Participants))
	for id := range s.Participants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
