package game

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
	"partydeck.io/server/deck"
	"partydeck.io/server/logging"
)

var engineLogger = logging.GetZeroLogger("game::engine", nil)

// LookupFailedText is rendered in place of a table or state lookup that could
// not produce a value.
const LookupFailedText = "[missing]"

type StateUpdate struct {
	StateIdent string        `json:"stateIdent"`
	Modifier   int           `json:"modifier"`
	Selector   deck.Selector `json:"selector"`
}

type CardOption struct {
	ID      string        `json:"id"`
	Display string        `json:"display"`
	Updates []StateUpdate `json:"updates"`
}

type GameSnapshot struct {
	TurnIndex    int                `json:"turnIndex"`
	SharedStates []SharedStateValue `json:"sharedStates"`
	Scoreboard   RenderedScoreboard `json:"scoreboard"`
}

// Engine evaluates cards of one deck. It never owns the roster; callers pass
// the session's roster into every call that needs players. It is not safe for
// concurrent use.
type Engine struct {
	meta       deck.Meta
	tables     map[string][]deck.Value
	states     *StateStore
	scoreboard deck.ScoreboardSpec
	cards      []deck.Card

	turn      int
	drawCount int
	options   []CardOption

	rng   RandomSource
	newID func() string
}

func NewEngine(bundle *deck.Bundle, roster *Roster, rng RandomSource) *Engine {
	e := &Engine{
		rng:     rng,
		newID:   func() string { return uuid.New().String() },
		options: make([]CardOption, 0),
	}
	e.load(bundle, roster)
	return e
}

func (e *Engine) load(bundle *deck.Bundle, roster *Roster) {
	e.meta = bundle.Meta
	e.tables = bundle.Tables
	e.states = NewStateStore(bundle.States)
	e.scoreboard = bundle.Scoreboard
	e.cards = make([]deck.Card, len(bundle.Cards))
	copy(e.cards, bundle.Cards)
	e.states.Reconcile(roster)
}

// ChangeDeck swaps the deck content. The turn index and draw counter stay.
func (e *Engine) ChangeDeck(bundle *deck.Bundle, roster *Roster) {
	e.load(bundle, roster)
	e.options = make([]CardOption, 0)
}

// StartGame shuffles the card list. Player order is left alone.
func (e *Engine) StartGame() {
	e.rng.Shuffle(len(e.cards), func(i, j int) {
		e.cards[i], e.cards[j] = e.cards[j], e.cards[i]
	})
}

func (e *Engine) ResetProgress() {
	e.drawCount = 0
	e.turn = 0
}

func (e *Engine) AddPlayer(roster *Roster, id PlayerID, username string, isHost bool) bool {
	added := roster.Add(Player{ID: id, Username: username, IsHost: isHost})
	e.states.Reconcile(roster)
	return added
}

func (e *Engine) RemovePlayer(roster *Roster, id PlayerID) bool {
	idx := roster.Remove(id)
	if idx >= 0 {
		if idx < e.turn {
			e.turn--
		}
		if e.turn >= roster.Len() {
			e.turn = 0
		}
	}
	e.states.Reconcile(roster)
	return idx >= 0
}

// NextTurn moves the turn to the next player, wrapping around.
func (e *Engine) NextTurn(roster *Roster) {
	if roster.Len() == 0 {
		e.turn = 0
		return
	}
	e.turn = (e.turn + 1) % roster.Len()
}

// DrawCard picks a card at random (with replacement), renders its text and
// replaces the outstanding options with the ones the card presents.
func (e *Engine) DrawCard(roster *Roster) (string, []CardOption) {
	e.options = make([]CardOption, 0)
	if len(e.cards) == 0 {
		return "", e.Options()
	}
	card := e.cards[e.rng.Intn(len(e.cards))]

	cache := make(map[string]string)
	for _, action := range card.Actions {
		switch a := action.(type) {
		case deck.GetFromTable:
			cache[a.Ident] = e.lookupTable(a)
		case deck.GetFromState:
			cache[a.Ident] = e.lookupState(a, roster)
		}
	}

	var text strings.Builder
	for _, segment := range card.Segments {
		switch s := segment.(type) {
		case deck.RawSegment:
			text.WriteString(s.Text)
		case deck.ActionRefSegment:
			text.WriteString(cache[s.Ident])
		}
	}

	updates := make(map[string]StateUpdate)
	for _, action := range card.Actions {
		a, ok := action.(deck.UpdateState)
		if !ok {
			continue
		}
		if _, consumed := cache[a.Ident]; consumed {
			continue
		}
		modifier := deck.IntValue(a.Delta)
		if !a.Add {
			modifier = -modifier
		}
		selector := a.Selector
		if isNone(selector) {
			selector = deck.SelectorNone
		}
		updates[a.Ident] = StateUpdate{StateIdent: a.StateIdent, Modifier: modifier, Selector: selector}
	}
	for _, action := range card.Actions {
		a, ok := action.(deck.Option)
		if !ok {
			continue
		}
		if _, consumed := cache[a.Ident]; consumed {
			continue
		}
		option := CardOption{ID: e.newID(), Display: a.Display, Updates: make([]StateUpdate, 0, len(a.ActionIdents))}
		for _, ident := range a.ActionIdents {
			if u, exists := updates[ident]; exists {
				option.Updates = append(option.Updates, u)
			}
		}
		e.options = append(e.options, option)
	}

	e.drawCount++
	return text.String(), e.Options()
}

// ResolveChoice applies the updates of an outstanding option and removes it
// from the batch. Unknown ids change nothing and return false.
func (e *Engine) ResolveChoice(roster *Roster, optionID string) bool {
	idx := -1
	for i, o := range e.options {
		if o.ID == optionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	option := e.options[idx]
	e.options = append(e.options[:idx], e.options[idx+1:]...)
	for _, u := range option.Updates {
		e.states.ApplyUpdate(u.StateIdent, u.Modifier, u.Selector, roster, e.turn, e.rng)
	}
	return true
}

func (e *Engine) Snapshot(roster *Roster) GameSnapshot {
	return GameSnapshot{
		TurnIndex:    e.turn,
		SharedStates: e.states.SharedStates(),
		Scoreboard:   renderScoreboard(e.scoreboard, e.states, roster),
	}
}

// Options returns a copy of the outstanding option batch.
func (e *Engine) Options() []CardOption {
	options := make([]CardOption, len(e.options))
	copy(options, e.options)
	return options
}

func (e *Engine) DrawCount() int {
	return e.drawCount
}

func (e *Engine) TurnIndex() int {
	return e.turn
}

func (e *Engine) Meta() deck.Meta {
	return e.meta
}

func (e *Engine) States() *StateStore {
	return e.states
}

func (e *Engine) lookupTable(a deck.GetFromTable) string {
	values, ok := e.tables[a.TableIdent]
	if !ok {
		engineLogger.Debug().Msgf("Table [%s] referenced by [%s] does not exist", a.TableIdent, a.Ident)
		return LookupFailedText
	}
	matching := make([]deck.Value, 0, len(values))
	for _, v := range values {
		if v.HasTags(a.RequiredTags) {
			matching = append(matching, v)
		}
	}
	if len(matching) == 0 {
		engineLogger.Debug().Msgf("Table [%s] has no value matching the tags of [%s]", a.TableIdent, a.Ident)
		return LookupFailedText
	}
	return matching[e.rng.Intn(len(matching))].Text
}

func (e *Engine) lookupState(a deck.GetFromState, roster *Roster) string {
	value, ok := e.states.Read(a.StateIdent, a.Selector, roster, e.turn, e.rng)
	if !ok {
		engineLogger.Debug().Msgf("State [%s] referenced by [%s] could not be read", a.StateIdent, a.Ident)
		return LookupFailedText
	}
	return strconv.Itoa(value)
}
