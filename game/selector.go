package game

import (
	"partydeck.io/server/deck"
)

// RandomSource is the randomness an engine draws from. *rand.Rand satisfies it.
type RandomSource interface {
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

// ResolveSelector picks the acting player relative to the turn index.
// None and an empty roster resolve to no player.
func ResolveSelector(selector deck.Selector, roster *Roster, turn int, rng RandomSource) (Player, bool) {
	n := roster.Len()
	if n == 0 {
		return Player{}, false
	}
	if turn < 0 || turn >= n {
		turn = 0
	}

	switch selector {
	case deck.SelectorCurrent:
		return roster.At(turn)
	case deck.SelectorNext:
		return roster.At((turn + 1) % n)
	case deck.SelectorPrevious:
		return roster.At((turn - 1 + n) % n)
	case deck.SelectorRandom:
		return roster.At(rng.Intn(n))
	}
	return Player{}, false
}

func isNone(selector deck.Selector) bool {
	return selector == "" || selector == deck.SelectorNone
}
