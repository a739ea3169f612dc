package wire

import (
	"encoding/json"
	"errors"

	"github.com/vncsmyrnk/poker/internal/core/ports"
)

// Frame is one snapshot on the subscribe websocket.
type Frame struct {
	SessionID string          `json:"sessionId"`
	Exists    bool            `json:"exists"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
}

func FromSnapshot(s ports.Snapshot) Frame {
	f := Frame{SessionID: s.SessionID, Exists: s.Exists}
	if s.Err != nil {
		f.Error = s.Err.Error()
		f.Exists = false
		return f
	}
	if s.Exists {
		f.Data = json.RawMessage(s.Data)
	}
	return f
}

func (f Frame) Snapshot() ports.Snapshot {
	s := ports.Snapshot{SessionID: f.SessionID, Exists: f.Exists}
	if f.Error != "" {
		s.Err = errors.New(f.Error)
		s.Exists = false
		return s
	}
	if f.Exists {
		s.Data = []byte(f.Data)
	}
	return s
}
