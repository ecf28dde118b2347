package session

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"partydeck.io/server/deck"
	"partydeck.io/server/game"
)

const waitTimeout = 2 * time.Second

type memoryLibrary map[string]*deck.Deck

func (l memoryLibrary) Load(deckID string) (*deck.Deck, error) {
	d, ok := l[deckID]
	if !ok {
		return nil, &SessionNotFoundError{SessionID: deckID}
	}
	return d, nil
}

func newTestManager(t *testing.T, decks DeckLibrary) *Manager {
	m, err := NewManager(decks, 16)
	require.NoError(t, err)
	m.newRandom = func() *rand.Rand { return rand.New(rand.NewSource(1)) }
	return m
}

// hostedSession creates a session and attaches a connection for the host.
func hostedSession(t *testing.T, m *Manager) (*Session, *ChannelConnection) {
	id, _, err := m.CreateSession("host", "Hana")
	require.NoError(t, err)
	s, ok := m.Session(id)
	require.True(t, ok)
	host := join(t, s, "host", "Hana")
	return s, host
}

func join(t *testing.T, s *Session, id game.PlayerID, username string) *ChannelConnection {
	conn := NewChannelConnection(id, 64)
	require.NoError(t, s.Join(context.Background(), conn, username))
	expect(t, conn, ResponseJoinOk)
	return conn
}

func submit(t *testing.T, s *Session, conn Connection, p Packet) {
	require.NoError(t, s.Submit(context.Background(), conn, p))
}

// expect skips responses until one named packet arrives.
func expect(t *testing.T, c *ChannelConnection, packet string) *Response {
	t.Helper()
	timeout := time.After(waitTimeout)
	for {
		select {
		case r, ok := <-c.Responses():
			if !ok {
				t.Fatalf("Connection closed while waiting for %s", packet)
			}
			if r.Packet == packet {
				return r
			}
		case <-timeout:
			t.Fatalf("Timed out waiting for %s", packet)
		}
	}
}

// drain consumes everything queued so far, after a round trip through the worker.
func drain(t *testing.T, s *Session, c *ChannelConnection) {
	t.Helper()
	submit(t, s, c, GetPlayersPacket{})
	expect(t, c, PacketGetPlayers+"Ok")
}

func waitClosed(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(waitTimeout):
		t.Fatalf("Session %s did not close", s.ID())
	}
}

func scoreDeck() *deck.Deck {
	return &deck.Deck{
		Meta: deck.Meta{DeckName: "Score", ID: "score", Scoreboard: deck.ScoreboardSpec{StateIdent: "sips", Condition: deck.ConditionLowest}},
		States: []deck.StateDecl{
			{Ident: "score", Value: 0},
			{Ident: "sips", Value: 0, Individual: true},
		},
		Cards: []deck.Card{{
			Segments: []deck.Segment{deck.RawSegment{Text: "Add some points"}},
			Actions: []deck.Action{
				deck.Option{Ident: "opt1", Display: "Add 5", ActionIdents: []string{"upd1"}},
				deck.UpdateState{Ident: "upd1", StateIdent: "score", Delta: deck.IntegerData{Value: 5}, Add: true, Selector: deck.SelectorNone},
			},
		}},
	}
}
