package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/vncsmyrnk/poker/internal/core/domain"
	"github.com/vncsmyrnk/poker/internal/core/ports"
)

const adminMarker = "👑"

type participantOutput struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Admin   bool   `json:"admin"`
	Self    bool   `json:"self"`
	Voted   bool   `json:"voted"`
	Vote    string `json:"vote,omitempty"`
	Display string `json:"display"`
}

type tallyOutput struct {
	Counts  map[string]int `json:"counts"`
	Votes   int            `json:"votes"`
	Average *float64       `json:"average,omitempty"`
}

type viewOutput struct {
	SessionID    string              `json:"sessionId"`
	Status       string              `json:"status"`
	Error        string              `json:"error,omitempty"`
	Topic        string              `json:"topic,omitempty"`
	Revealed     bool                `json:"revealed"`
	CreatedAt    *time.Time          `json:"createdAt,omitempty"`
	ShareLink    string              `json:"shareLink,omitempty"`
	Joined       bool                `json:"joined"`
	IsAdmin      bool                `json:"isAdmin"`
	NeedsName    bool                `json:"needsName,omitempty"`
	MyVote       string              `json:"myVote,omitempty"`
	Participants []participantOutput `json:"participants,omitempty"`
	Tally        *tallyOutput        `json:"tally,omitempty"`
	WriteError   string              `json:"writeError,omitempty"`
}

func toOutput(v ports.View, shareLink string) viewOutput {
	out := viewOutput{
		SessionID: v.SessionID,
		Status:    v.Status.String(),
		Revealed:  v.Revealed,
		Joined:    v.Joined,
		IsAdmin:   v.IsAdmin,
		NeedsName: v.NeedsName,
	}
	if v.Err != nil {
		out.Error = v.Err.Error()
	}
	if v.WriteErr != nil {
		out.WriteError = v.WriteErr.Error()
	}
	if v.Status != ports.StatusReady {
		return out
	}

	created := v.CreatedAt
	out.Topic = v.Topic
	out.CreatedAt = &created
	out.ShareLink = shareLink
	if v.MyVote != nil {
		out.MyVote = string(*v.MyVote)
	}
	for _, p := range v.Participants {
		po := participantOutput{
			ID:      p.ID,
			Name:    p.Name,
			Admin:   p.IsAdmin,
			Self:    p.Self,
			Voted:   p.HasVoted,
			Display: p.Display,
		}
		if p.Vote != nil {
			po.Vote = string(*p.Vote)
		}
		out.Participants = append(out.Participants, po)
	}
	if v.Revealed {
		t := &tallyOutput{Counts: map[string]int{}, Votes: v.Tally.Votes}
		for _, c := range domain.Deck {
			if n := v.Tally.Counts[c]; n > 0 {
				t.Counts[string(c)] = n
			}
		}
		if v.Tally.HasAverage {
			avg := v.Tally.Average
			t.Average = &avg
		}
		out.Tally = t
	}
	return out
}

// renderText draws the view for a terminal.
func renderText(w io.Writer, v ports.View, shareLink string, now time.Time) {
	switch v.Status {
	case ports.StatusLoading:
		writeLine(w, "loading session %s...", v.SessionID)
		return
	case ports.StatusFailed:
		writeLine(w, "session %s unavailable: %v", v.SessionID, v.Err)
		writeLine(w, "run the command again to retry")
		return
	}

	state := "voting"
	if v.Revealed {
		state = "revealed"
	}
	writeLine(w, "%s [%s]", v.Topic, state)
	writeLine(w, "session %s, opened %s", v.SessionID, humanize.RelTime(v.CreatedAt, now, "ago", "from now"))
	if shareLink != "" {
		writeLine(w, "share   %s", shareLink)
	}
	fmt.Fprintln(w)

	width := 0
	names := make([]string, len(v.Participants))
	for i, p := range v.Participants {
		names[i] = p.Name
		if p.Self {
			names[i] += " (you)"
		}
		if n := len([]rune(names[i])); n > width {
			width = n
		}
	}
	for i, p := range v.Participants {
		marker := "  "
		if p.IsAdmin {
			marker = adminMarker
		}
		writeLine(w, "%s %-*s %s", marker, width, names[i], p.Display)
	}

	if !v.Revealed && v.MyVote != nil {
		fmt.Fprintln(w)
		writeLine(w, "your vote: %s", v.MyVote.Symbol())
	}

	if v.Revealed {
		var parts []string
		for _, c := range domain.Deck {
			if n := v.Tally.Counts[c]; n > 0 {
				parts = append(parts, fmt.Sprintf("%s×%d", c.Symbol(), n))
			}
		}
		votes := "none"
		if len(parts) > 0 {
			votes = strings.Join(parts, "  ")
		}
		average := "n/a"
		if v.Tally.HasAverage {
			average = humanize.FtoaWithDigits(v.Tally.Average, 2)
		}
		fmt.Fprintln(w)
		writeLine(w, "votes   %s", votes)
		writeLine(w, "average %s", average)
	}

	if v.NeedsName {
		fmt.Fprintln(w)
		writeLine(w, "set a display name with: poker name <name>")
	}
	if v.WriteErr != nil {
		fmt.Fprintln(w)
		writeLine(w, "last change was not saved: %v", v.WriteErr)
	}
}
