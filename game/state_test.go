package game

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"partydeck.io/server/deck"
)

func testStore() *StateStore {
	return NewStateStore(map[string]deck.StateDecl{
		"round": {Ident: "round", Value: 1},
		"sips":  {Ident: "sips", Value: 3, Individual: true},
		"lives": {Ident: "lives", Value: 2, Individual: true},
	})
}

func perPlayerKeys(t *testing.T, s *StateStore, ident string) []string {
	v, ok := s.State(ident)
	if !ok {
		t.Fatalf("State %s missing", ident)
	}
	keys := make([]string, 0)
	for id := range v.(*IndividualState).PerPlayer {
		keys = append(keys, string(id))
	}
	sort.Strings(keys)
	return keys
}

func TestNewStateStoreStartsEmpty(t *testing.T) {
	s := testStore()
	assert.Empty(t, perPlayerKeys(t, s, "sips"))
	v, _ := s.Shared("round")
	assert.Equal(t, 1, v)
}

func TestReconcileFollowsRoster(t *testing.T) {
	type step struct {
		add    string
		remove string
	}
	tests := []struct {
		name     string
		steps    []step
		expected []string
	}{
		{"adds", []step{{add: "ann"}, {add: "bob"}}, []string{"ann", "bob"}},
		{"remove", []step{{add: "ann"}, {add: "bob"}, {remove: "ann"}}, []string{"bob"}},
		{"emptied", []step{{add: "ann"}, {remove: "ann"}}, []string{}},
		{"rejoin", []step{{add: "ann"}, {remove: "ann"}, {add: "cid"}, {add: "ann"}}, []string{"ann", "cid"}},
		{"unknown remove", []step{{add: "ann"}, {remove: "zed"}}, []string{"ann"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testStore()
			roster := NewRoster()
			for _, st := range tt.steps {
				if st.add != "" {
					roster.Add(Player{ID: PlayerID(st.add), Username: st.add})
				}
				if st.remove != "" {
					roster.Remove(PlayerID(st.remove))
				}
				s.Reconcile(roster)
			}
			for _, ident := range []string{"sips", "lives"} {
				keys := perPlayerKeys(t, s, ident)
				if !cmp.Equal(tt.expected, keys) {
					t.Errorf("%s: %s", ident, cmp.Diff(tt.expected, keys))
				}
			}
		})
	}
}

func TestReconcileKeepsValuesAndIsIdempotent(t *testing.T) {
	s := testStore()
	roster := rosterOf("ann", "bob")
	s.Reconcile(roster)
	s.ApplyUpdate("sips", 4, deck.SelectorCurrent, roster, 0, seeded())
	s.Reconcile(roster)
	s.Reconcile(roster)

	v, ok := s.Read("sips", deck.SelectorCurrent, roster, 0, seeded())
	assert.True(t, ok)
	assert.Equal(t, 7, v)
	v, _ = s.Read("sips", deck.SelectorNext, roster, 0, seeded())
	assert.Equal(t, 3, v)
}

func TestApplyUpdate(t *testing.T) {
	s := testStore()
	roster := rosterOf("ann", "bob")
	s.Reconcile(roster)

	s.ApplyUpdate("round", 2, deck.SelectorNone, roster, 0, seeded())
	v, _ := s.Shared("round")
	assert.Equal(t, 3, v)

	// Shared state with a selector and individual state without one are no-ops.
	s.ApplyUpdate("round", 5, deck.SelectorCurrent, roster, 0, seeded())
	s.ApplyUpdate("sips", 5, deck.SelectorNone, roster, 0, seeded())
	s.ApplyUpdate("missing", 5, deck.SelectorNone, roster, 0, seeded())
	v, _ = s.Shared("round")
	assert.Equal(t, 3, v)
	for _, sel := range []deck.Selector{deck.SelectorCurrent, deck.SelectorNext} {
		v, _ = s.Read("sips", sel, roster, 0, seeded())
		assert.Equal(t, 3, v)
	}

	s.ApplyUpdate("sips", -1, deck.SelectorPrevious, roster, 0, seeded())
	v, _ = s.Read("sips", deck.SelectorCurrent, roster, 1, seeded())
	assert.Equal(t, 2, v)

	s.ApplyUpdate("sips", 1, deck.SelectorCurrent, NewRoster(), 0, seeded())
}

func TestRead(t *testing.T) {
	s := testStore()
	roster := rosterOf("ann")
	s.Reconcile(roster)

	v, ok := s.Read("round", deck.SelectorRandom, roster, 0, seeded())
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = s.Read("sips", deck.SelectorNone, roster, 0, seeded())
	assert.False(t, ok)
	_, ok = s.Read("nope", deck.SelectorNone, roster, 0, seeded())
	assert.False(t, ok)
	_, ok = s.Read("sips", deck.SelectorCurrent, NewRoster(), 0, seeded())
	assert.False(t, ok)
}

func TestSharedStatesSorted(t *testing.T) {
	s := NewStateStore(map[string]deck.StateDecl{
		"zeta":  {Ident: "zeta", Value: 1},
		"alpha": {Ident: "alpha", Value: 2},
		"ind":   {Ident: "ind", Individual: true},
	})
	expected := []SharedStateValue{{Ident: "alpha", Value: 2}, {Ident: "zeta", Value: 1}}
	if !cmp.Equal(expected, s.SharedStates()) {
		t.Errorf("%s", cmp.Diff(expected, s.SharedStates()))
	}
}
