package domain

// Tally aggregates the votes of non-admin participants.
// Average is taken over numeric cards only: coffee votes are counted in Counts and Votes
// but contribute to neither the sum nor the divisor.
type Tally struct {
	Counts       map[Card]int `json:"counts"`
	Votes        int          `json:"votes"`
	NumericVotes int          `json:"numericVotes"`
	Average      float64      `json:"average"`
	HasAverage   bool         `json:"hasAverage"`
}

func (s *Session) Tally() Tally {
	t := Tally{Counts: make(map[Card]int, len(Deck))}
	for _, c := range Deck {
		t.Counts[c] = 0
	}

	var sum float64
	for _, p := range s.Participants {
		if p.IsAdmin || p.Vote == nil {
			continue
		}
		t.Counts[*p.Vote]++
		t.Votes++
		if n, ok := p.Vote.Numeric(); ok {
			sum += n
			t.NumericVotes++
		}
	}
	if t.NumericVotes > 0 {
		t.Average = sum / float64(t.NumericVotes)
		t.HasAverage = true
	}
	return t
}
