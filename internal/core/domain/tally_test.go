package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTally_ExcludesAdminVotes(t *testing.T) {
	s := &Session{Participants: map[string]Participant{
		"admin": {Name: "Admin", IsAdmin: true, Vote: card(CardFive)},
		"a":     {Name: "A", Vote: card(CardFive)},
		"b":     {Name: "B", Vote: card(CardEight)},
	}}

	tally := s.Tally()

	assert.Equal(t, 1, tally.Counts[CardFive])
	assert.Equal(t, 1, tally.Counts[CardEight])
	assert.Equal(t, 2, tally.Votes)
	assert.InDelta(t, 6.5, tally.Average, 1e-9)
	assert.True(t, tally.HasAverage)
}

func TestTally_EveryCardPresent(t *testing.T) {
	tally := sampleSession().Tally()

	assert.Len(t, tally.Counts, len(Deck))
	for _, c := range Deck {
		_, ok := tally.Counts[c]
		assert.True(t, ok, "card %s", c)
	}
	assert.Equal(t, 1, tally.Counts[CardThree])
	assert.Equal(t, 1, tally.Counts[CardEight])
	assert.Equal(t, 0, tally.Counts[CardOne])
	assert.InDelta(t, 5.5, tally.Average, 1e-9)
}

func TestTally_CoffeeExcludedFromAverage(t *testing.T) {
	s := &Session{Participants: map[string]Participant{
		"a": {Name: "A", Vote: card(CardThree)},
		"b": {Name: "B", Vote: card(CardFive)},
		"c": {Name: "C", Vote: card(CardCoffee)},
	}}

	tally := s.Tally()

	assert.Equal(t, 3, tally.Votes)
	assert.Equal(t, 2, tally.NumericVotes)
	assert.Equal(t, 1, tally.Counts[CardCoffee])
	assert.InDelta(t, 4.0, tally.Average, 1e-9)
}

func TestTally_NoNumericVotes(t *testing.T) {
	s := &Session{Participants: map[string]Participant{
		"admin": {Name: "Admin", IsAdmin: true},
		"a":     {Name: "A", Vote: card(CardCoffee)},
		"b":     {Name: "B"},
	}}

	tally := s.Tally()

	assert.Equal(t, 1, tally.Votes)
	assert.False(t, tally.HasAverage)
	assert.Zero(t, tally.Average)
}

func TestTally_OrderIndependent(t *testing.T) {
	votes := []Card{CardOne, CardThirteen, CardCoffee, CardTwo, CardEight, CardEight, CardThree}
	ids := []string{"p0", "p1", "p2", "p3", "p4", "p5", "p6"}

	build := func(order []int) *Session {
		s := &Session{Participants: map[string]Participant{}}
		for _, i := range order {
			s.Participants[ids[i]] = Participant{Name: ids[i], Vote: card(votes[i])}
		}
		return s
	}

	want := build([]int{0, 1, 2, 3, 4, 5, 6}).Tally()
	for _, order := range [][]int{
		{6, 5, 4, 3, 2, 1, 0},
		{3, 0, 6, 1, 5, 2, 4},
		{2, 4, 6, 0, 1, 3, 5},
	} {
		got := build(order).Tally()
		assert.Equal(t, want, got)
	}
}
