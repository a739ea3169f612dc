package domain

import (
	"sort"
	"strings"
)

const (
	MarkVoted  = "✅"
	MarkNoVote = "❌"
)

// ParticipantView is one row of the participant list as seen by a particular viewer.
// Vote is only filled in once the session is revealed, or for the viewer's own row.
type ParticipantView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	IsAdmin  bool   `json:"isAdmin"`
	HasVoted bool   `json:"hasVoted"`
	Self     bool   `json:"self"`
	Vote     *Card  `json:"vote,omitempty"`
	Display  string `json:"display"`
}

// ParticipantViews projects the participants for viewer, ordered by name then id.
func (s *Session) ParticipantViews(viewer string) []ParticipantView {
	views := make([]ParticipantView, 0, len(s.Participants))
	for id, p := range s.Participants {
		v := ParticipantView{
			ID:       id,
			Name:     p.Name,
			IsAdmin:  p.IsAdmin,
			HasVoted: p.HasVoted(),
			Self:     id == viewer,
		}
		if p.Vote != nil && (s.Revealed || v.Self) {
			vote := *p.Vote
			v.Vote = &vote
		}
		switch {
		case s.Revealed && p.Vote != nil:
			v.Display = p.Vote.Symbol()
		case !s.Revealed && p.Vote != nil:
			v.Display = MarkVoted
		default:
			v.Display = MarkNoVote
		}
		views = append(views, v)
	}
	sort.Slice(views, func(i, j int) bool {
		a, b := strings.ToLower(views[i].Name), strings.ToLower(views[j].Name)
		if a != b {
			return a < b
		}
		return views[i].ID < views[j].ID
	})
	return views
}
