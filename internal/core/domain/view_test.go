package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParticipantViews_HiddenBeforeReveal(t *testing.T) {
	s := sampleSession()

	views := s.ParticipantViews("bob")
	require.Len(t, views, 3)

	byID := map[string]ParticipantView{}
	for _, v := range views {
		byID[v.ID] = v
	}
	assert.Equal(t, MarkNoVote, byID["alice"].Display)
	assert.Equal(t, MarkVoted, byID["bob"].Display)
	assert.Equal(t, MarkVoted, byID["carol"].Display)

	// Own vote is visible to self, others are redacted.
	require.NotNil(t, byID["bob"].Vote)
	assert.Equal(t, CardThree, *byID["bob"].Vote)
	assert.True(t, byID["bob"].Self)
	assert.Nil(t, byID["carol"].Vote)
}

func TestParticipantViews_AfterReveal(t *testing.T) {
	s := sampleSession()
	patch, err := s.Reveal("alice", AdminOnly)
	require.NoError(t, err)
	require.Equal(t, true, patch[PathRevealed])
	s.Revealed = true

	views := s.ParticipantViews("alice")

	assert.Equal(t, []string{"Alice", "Bob", "Carol"}, names(views))
	assert.Equal(t, MarkNoVote, views[0].Display)
	assert.Equal(t, "3", views[1].Display)
	assert.Equal(t, "8", views[2].Display)
	require.NotNil(t, views[2].Vote)
	assert.Equal(t, CardEight, *views[2].Vote)

	tally := s.Tally()
	assert.Equal(t, 1, tally.Counts[CardThree])
	assert.Equal(t, 1, tally.Counts[CardEight])
	for _, c := range []Card{CardOne, CardTwo, CardFive, CardThirteen, CardCoffee} {
		assert.Zero(t, tally.Counts[c])
	}
	assert.InDelta(t, 5.5, tally.Average, 1e-9)
}

func TestParticipantViews_CoffeeSymbol(t *testing.T) {
	s := &Session{Revealed: true, Participants: map[string]Participant{
		"a": {Name: "A", Vote: card(CardCoffee)},
	}}
	assert.Equal(t, "☕", s.ParticipantViews("")[0].Display)
}

func names(views []ParticipantView) []string {
	out := make([]string, len(views))
	for i, v := range views {
		out[i] = v.Name
	}
	return out
}
