package game

import (
	"fmt"

	"partydeck.io/server/deck"
)

type UnknownStateError struct {
	Ident string
}

func (e UnknownStateError) Error() string {
	return fmt.Sprintf("Scoreboard state [%s] does not exist", e.Ident)
}

type SharedScoreStateError struct {
	Ident string
}

func (e SharedScoreStateError) Error() string {
	return fmt.Sprintf("Scoreboard state [%s] is shared, an individual state is required", e.Ident)
}

type UnsupportedConditionError struct {
	Condition deck.Condition
}

func (e UnsupportedConditionError) Error() string {
	return fmt.Sprintf("Scoreboard condition [%s] is not supported", e.Condition)
}
