package deckstore

import (
	"fmt"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"partydeck.io/server/deck"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// PersistDeck is the deck library sessions load decks from.
type PersistDeck interface {
	Load(deckID string) (*deck.Deck, error)
	Save(d *deck.Deck) error
	Remove(deckID string) error
	List() ([]Summary, error)
}

type Summary struct {
	ID       string `json:"id"`
	DeckName string `json:"deckName"`
	Cards    int    `json:"cards"`
}

type DeckNotFoundError struct {
	ID string
}

func (e DeckNotFoundError) Error() string {
	return fmt.Sprintf("Deck [%s] is not found", e.ID)
}

// EnsureID gives a deck without an id a fresh one and returns the id.
func EnsureID(d *deck.Deck) string {
	if d.Meta.ID == "" {
		d.Meta.ID = uuid.New().String()
	}
	return d.Meta.ID
}

// Preload saves decks read from disk. Decks without an id get one.
func Preload(store PersistDeck, decks []*deck.Deck) error {
	for _, d := range decks {
		EnsureID(d)
		if err := store.Save(d); err != nil {
			return errors.Wrapf(err, "Unable to store deck [%s]", d.Meta.ID)
		}
	}
	return nil
}

func summarize(d *deck.Deck) Summary {
	return Summary{ID: d.Meta.ID, DeckName: d.Meta.DeckName, Cards: len(d.Cards)}
}

func encode(d *deck.Deck) ([]byte, error) {
	if d.Meta.ID == "" {
		return nil, fmt.Errorf("Deck [%s] has no id", d.Meta.DeckName)
	}
	return json.Marshal(d)
}

func decode(b []byte) (*deck.Deck, error) {
	return deck.Parse(b, deck.FormatJSON)
}
