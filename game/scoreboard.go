package game

import (
	"sort"

	"partydeck.io/server/deck"
)

type ScoreEntry struct {
	Username string `json:"username"`
	Value    int    `json:"value"`
	Position int    `json:"position"`
}

type RenderedScoreboard struct {
	Entries []ScoreEntry `json:"entries"`
	Error   string       `json:"error,omitempty"`
}

// Rank orders the roster by an individual state.
//
// Values are sorted ascending with ties kept in roster order. Biggest assigns
// positions in that ascending order as is; Lowest reverses it first.
func Rank(spec deck.ScoreboardSpec, states *StateStore, roster *Roster) ([]ScoreEntry, error) {
	v, ok := states.State(spec.StateIdent)
	if !ok {
		return nil, UnknownStateError{Ident: spec.StateIdent}
	}
	individual, ok := v.(*IndividualState)
	if !ok {
		return nil, SharedScoreStateError{Ident: spec.StateIdent}
	}

	entries := make([]ScoreEntry, 0, roster.Len())
	for _, p := range roster.Players() {
		value, exists := individual.PerPlayer[p.ID]
		if !exists {
			value = individual.Default
		}
		entries = append(entries, ScoreEntry{Username: p.Username, Value: value})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Value < entries[j].Value
	})

	switch spec.Condition {
	case deck.ConditionBiggest:
	case deck.ConditionLowest:
		for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
			entries[i], entries[j] = entries[j], entries[i]
		}
	default:
		return nil, UnsupportedConditionError{Condition: spec.Condition}
	}

	for i := range entries {
		entries[i].Position = i + 1
	}
	return entries, nil
}

func renderScoreboard(spec deck.ScoreboardSpec, states *StateStore, roster *Roster) RenderedScoreboard {
	entries, err := Rank(spec, states, roster)
	if err != nil {
		return RenderedScoreboard{Entries: []ScoreEntry{}, Error: err.Error()}
	}
	return RenderedScoreboard{Entries: entries}
}
