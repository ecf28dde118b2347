package game

import (
	"sort"

	"partydeck.io/server/deck"
)

// StateVariable is *SharedState or *IndividualState.
type StateVariable interface {
	stateKind() string
}

type SharedState struct {
	Value int
}

// IndividualState keeps one value per roster member. PerPlayer is filled by
// Reconcile, never at compile time.
type IndividualState struct {
	Default   int
	PerPlayer map[PlayerID]int
}

func (*SharedState) stateKind() string     { return "Shared" }
func (*IndividualState) stateKind() string { return "Individual" }

type SharedStateValue struct {
	Ident string `json:"ident"`
	Value int    `json:"value"`
}

type StateStore struct {
	states map[string]StateVariable
}

func NewStateStore(decls map[string]deck.StateDecl) *StateStore {
	s := &StateStore{states: make(map[string]StateVariable, len(decls))}
	for ident, decl := range decls {
		if decl.Individual {
			s.states[ident] = &IndividualState{Default: decl.Value, PerPlayer: make(map[PlayerID]int)}
		} else {
			s.states[ident] = &SharedState{Value: decl.Value}
		}
	}
	return s
}

func (s *StateStore) State(ident string) (StateVariable, bool) {
	v, ok := s.states[ident]
	return v, ok
}

// Reconcile makes every individual state's keys equal the roster's ids.
func (s *StateStore) Reconcile(roster *Roster) {
	ids := make(map[PlayerID]bool, roster.Len())
	for _, id := range roster.IDs() {
		ids[id] = true
	}
	for _, v := range s.states {
		individual, ok := v.(*IndividualState)
		if !ok {
			continue
		}
		for id := range individual.PerPlayer {
			if !ids[id] {
				delete(individual.PerPlayer, id)
			}
		}
		for id := range ids {
			if _, exists := individual.PerPlayer[id]; !exists {
				individual.PerPlayer[id] = individual.Default
			}
		}
	}
}

// ApplyUpdate adds modifier to a shared state (selector None) or to the
// selected player's entry of an individual state. Anything that does not line
// up is ignored.
func (s *StateStore) ApplyUpdate(stateIdent string, modifier int, selector deck.Selector, roster *Roster, turn int, rng RandomSource) {
	v, ok := s.states[stateIdent]
	if !ok {
		return
	}
	if isNone(selector) {
		if shared, ok := v.(*SharedState); ok {
			shared.Value += modifier
		}
		return
	}
	individual, ok := v.(*IndividualState)
	if !ok {
		return
	}
	player, ok := ResolveSelector(selector, roster, turn, rng)
	if !ok {
		return
	}
	if _, exists := individual.PerPlayer[player.ID]; !exists {
		return
	}
	individual.PerPlayer[player.ID] += modifier
}

// Read returns the value a GetFromState lookup sees. Shared states ignore the
// selector.
func (s *StateStore) Read(stateIdent string, selector deck.Selector, roster *Roster, turn int, rng RandomSource) (int, bool) {
	v, ok := s.states[stateIdent]
	if !ok {
		return 0, false
	}
	switch state := v.(type) {
	case *SharedState:
		return state.Value, true
	case *IndividualState:
		if isNone(selector) {
			return 0, false
		}
		player, ok := ResolveSelector(selector, roster, turn, rng)
		if !ok {
			return 0, false
		}
		value, ok := state.PerPlayer[player.ID]
		return value, ok
	}
	return 0, false
}

func (s *StateStore) Shared(ident string) (int, bool) {
	shared, ok := s.states[ident].(*SharedState)
	if !ok {
		return 0, false
	}
	return shared.Value, true
}

// SharedStates lists the shared states sorted by ident.
func (s *StateStore) SharedStates() []SharedStateValue {
	values := make([]SharedStateValue, 0)
	for ident, v := range s.states {
		if shared, ok := v.(*SharedState); ok {
			values = append(values, SharedStateValue{Ident: ident, Value: shared.Value})
		}
	}
	sort.Slice(values, func(i, j int) bool {
		return values[i].Ident < values[j].Ident
	})
	return values
}
