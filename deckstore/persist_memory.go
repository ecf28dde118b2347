package deckstore

import (
	"sort"
	"sync"

	"partydeck.io/server/deck"
)

// MemoryDeckStore keeps encoded decks in a map so callers never share a
// *deck.Deck with the store.
type MemoryDeckStore struct {
	lock  sync.RWMutex
	decks map[string][]byte
}

func NewMemoryDeckStore() *MemoryDeckStore {
	return &MemoryDeckStore{
		decks: make(map[string][]byte),
	}
}

func (m *MemoryDeckStore) Load(deckID string) (*deck.Deck, error) {
	m.lock.RLock()
	b, ok := m.decks[deckID]
	m.lock.RUnlock()
	if !ok {
		return nil, DeckNotFoundError{ID: deckID}
	}
	return decode(b)
}

func (m *MemoryDeckStore) Save(d *deck.Deck) error {
	b, err := encode(d)
	if err != nil {
		return err
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	m.decks[d.Meta.ID] = b
	return nil
}

func (m *MemoryDeckStore) Remove(deckID string) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.decks, deckID)
	return nil
}

func (m *MemoryDeckStore) List() ([]Summary, error) {
	m.lock.RLock()
	ids := make([]string, 0, len(m.decks))
	for id := range m.decks {
		ids = append(ids, id)
	}
	m.lock.RUnlock()
	sort.Strings(ids)

	summaries := make([]Summary, 0, len(ids))
	for _, id := range ids {
		d, err := m.Load(id)
		if err != nil {
			continue
		}
		summaries = append(summaries, summarize(d))
	}
	return summaries, nil
}
