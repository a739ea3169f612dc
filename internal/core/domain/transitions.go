package domain

import (
	"fmt"
	"strings"
	"time"
)

// Authorizer decides whether actor may perform a session-wide action such as reveal or reset.
type Authorizer func(s *Session, actor string) error

// AdminOnly permits the session admin and nobody else.
func AdminOnly(s *Session, actor string) error {
	if s.IsAdmin(actor) {
		return nil
	}
	return ErrForbidden
}

// NewSession builds the initial document of a session whose sole participant is its admin.
func NewSession(id, topic, creatorID, creatorName string, now time.Time) (*Session, error) {
	if !ValidID(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}
	if !ValidID(creatorID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidParticipant, creatorID)
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		topic = DefaultTopic
	}
	return &Session{
		ID:        id,
		Topic:     topic,
		Revealed:  false,
		CreatedAt: now.UTC().Truncate(time.Millisecond),
		Participants: map[string]Participant{
			creatorID: {Name: NormalizeName(creatorName), IsAdmin: true},
		},
	}, nil
}

// Create generates a new session id and returns the session with its encoded document.
func Create(topic, creatorID, creatorName string, now time.Time) (*Session, []byte, error) {
	s, err := NewSession(NewSessionID(), topic, creatorID, creatorName, now)
	if err != nil {
		return nil, nil, err
	}
	doc, err := s.Document()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode session: %w", err)
	}
	return s, doc, nil
}

// Join registers participantID under name with no vote. Rejoining overwrites the name and
// clears the vote; an existing entry keeps its admin flag because isAdmin is never rewritten.
func (s *Session) Join(participantID, name string) (Patch, error) {
	if !ValidID(participantID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidParticipant, participantID)
	}
	patch := Patch{
		ParticipantPath(participantID, FieldName): NormalizeName(name),
		VotePath(participantID):                   nil,
	}
	if _, ok := s.Participants[participantID]; !ok {
		patch[ParticipantPath(participantID, FieldIsAdmin)] = false
	}
	return patch, nil
}

// SubmitVote sets participantID's vote. Votes stay open after reveal.
func (s *Session) SubmitVote(participantID, value string) (Patch, error) {
	card, err := ParseCard(value)
	if err != nil {
		return nil, err
	}
	if _, ok := s.Participants[participantID]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotJoined, participantID)
	}
	return Patch{VotePath(participantID): card}, nil
}

// Reveal shows every vote. A nil authorize skips the permission check.
func (s *Session) Reveal(actor string, authorize Authorizer) (Patch, error) {
	if authorize != nil {
		if err := authorize(s, actor); err != nil {
			return nil, err
		}
	}
	return Patch{PathRevealed: true}, nil
}

// Reset starts a new round: hides votes, clears each participant's vote individually and
// sets the topic to newTopic, or keeps the current one when newTopic is blank.
func (s *Session) Reset(actor, newTopic string, authorize Authorizer) (Patch, error) {
	if authorize != nil {
		if err := authorize(s, actor); err != nil {
			return nil, err
		}
	}
	topic := strings.TrimSpace(newTopic)
	if topic == "" {
		topic = s.Topic
	}
	patch := Patch{
		PathRevealed: false,
		PathTopic:    topic,
	}
	for id := range s.Participants {
		patch[VotePath(id)] = nil
	}
	return patch, nil
}
