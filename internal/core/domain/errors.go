package domain

import "errors"

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExists      = errors.New("session already exists")
	ErrLoadFailed         = errors.New("failed to load session")
	ErrInvalidVote        = errors.New("invalid vote")
	ErrInvalidSessionID   = errors.New("invalid session id")
	ErrInvalidParticipant = errors.New("invalid participant id")
	ErrInvalidPatch       = errors.New("invalid session patch")
	ErrInvalidLink        = errors.New("invalid session link")
	ErrWriteFailed        = errors.New("session write failed")
	ErrForbidden          = errors.New("only the session admin can perform this action")
	ErrSessionFull        = errors.New("session is full")
	ErrNotJoined          = errors.New("participant has not joined this session")
	ErrNotLoaded          = errors.New("session not loaded yet")
)
