package game

import (
	"math/rand"

	"partydeck.io/server/deck"
)

// pickRandom always picks index pick (mod n) and never reorders on shuffle.
type pickRandom struct {
	pick int
}

func (r *pickRandom) Intn(n int) int {
	return r.pick % n
}

func (r *pickRandom) Shuffle(n int, swap func(i, j int)) {}

func seeded() *rand.Rand {
	return rand.New(rand.NewSource(7))
}

func rosterOf(names ...string) *Roster {
	r := NewRoster()
	for i, name := range names {
		r.Add(Player{ID: PlayerID(name), Username: name, IsHost: i == 0})
	}
	return r
}

func bundleOf(states []deck.StateDecl, scoreboard deck.ScoreboardSpec, cards ...deck.Card) *deck.Bundle {
	return deck.Compile(&deck.Deck{
		Meta:   deck.Meta{DeckName: "test", ID: "test", Scoreboard: scoreboard},
		States: states,
		Cards:  cards,
	})
}
