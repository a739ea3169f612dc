package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Card is a single value of the estimation deck.
type Card string

const (
	CardOne      Card = "1"
	CardTwo      Card = "2"
	CardThree    Card = "3"
	CardFive     Card = "5"
	CardEight    Card = "8"
	CardThirteen Card = "13"
	CardCoffee   Card = "coffee"
)

// coffeeSymbol is what clients display for CardCoffee. ParseCard accepts it as an alias.
const coffeeSymbol = "☕"

// Deck lists every valid card in display order.
var Deck = []Card{CardOne, CardTwo, CardThree, CardFive, CardEight, CardThirteen, CardCoffee}

// ParseCard validates a raw vote value against the deck.
func ParseCard(raw string) (Card, error) {
	value := strings.TrimSpace(raw)
	if value == coffeeSymbol {
		return CardCoffee, nil
	}
	c := Card(strings.ToLower(value))
	if !c.Valid() {
		return "", fmt.Errorf("%w: %q is not one of %v", ErrInvalidVote, raw, Deck)
	}
	return c, nil
}

func (c Card) Valid() bool {
	for _, d := range Deck {
		if d == c {
			return true
		}
	}
	return false
}

// Numeric reports the card's point value. The coffee card has none.
func (c Card) Numeric() (float64, bool) {
	if c == CardCoffee || !c.Valid() {
		return 0, false
	}
	n, err := strconv.ParseFloat(string(c), 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (c Card) Symbol() string {
	if c == CardCoffee {
		return coffeeSymbol
	}
	return string(c)
}
