package session

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"partydeck.io/server/deck"
	"partydeck.io/server/game"
)

func TestHostIsInRosterBeforeJoining(t *testing.T) {
	m := newTestManager(t, nil)
	s, host := hostedSession(t, m)

	submit(t, s, host, GetPlayersPacket{})
	resp := expect(t, host, PacketGetPlayers+"Ok")
	assert.Equal(t, []game.Player{{ID: "host", Username: "Hana", IsHost: true}}, resp.Players)
	assert.Equal(t, game.PlayerID("host"), s.HostID())
}

func TestChoiceUpdatesSharedStateForEveryone(t *testing.T) {
	m := newTestManager(t, nil)
	s, host := hostedSession(t, m)
	guest := join(t, s, "guest", "Gil")
	watcher := join(t, s, "watcher", "Wes")

	submit(t, s, host, SetDeckPacket{Deck: scoreDeck()})
	resp := expect(t, host, PacketSetDeck+"Ok")
	assert.Equal(t, []game.SharedStateValue{{Ident: "score", Value: 0}}, resp.Snapshot.SharedStates)

	submit(t, s, host, StartGamePacket{})
	expect(t, host, PacketStartGame+"Ok")
	expect(t, host, ResponseCardResult)
	card := expect(t, guest, ResponseCardResult)
	assert.Equal(t, "Add some points", *card.Text)
	require.Len(t, card.Options, 1)
	assert.Equal(t, "Add 5", card.Options[0].Display)
	expect(t, watcher, ResponseCardResult)

	submit(t, s, guest, PlayerDoneChoicePacket{Chosen: card.Options[0].ID})
	for _, c := range []*ChannelConnection{host, guest, watcher} {
		next := expect(t, c, ResponseCardResult)
		assert.Equal(t, []game.SharedStateValue{{Ident: "score", Value: 5}}, next.Snapshot.SharedStates)
		assert.Equal(t, 1, next.Snapshot.TurnIndex)
		assert.Len(t, next.Snapshot.Scoreboard.Entries, 3)
	}
}

func TestUnknownOptionIsRejected(t *testing.T) {
	m := newTestManager(t, nil)
	s, host := hostedSession(t, m)
	submit(t, s, host, SetDeckPacket{Deck: scoreDeck()})
	submit(t, s, host, StartGamePacket{})
	expect(t, host, ResponseCardResult)

	submit(t, s, host, PlayerDoneChoicePacket{Chosen: "stale"})
	resp := expect(t, host, PacketPlayerDoneChoice+"Error")
	assert.Equal(t, ErrCodeUnknownOption, resp.Code)

	submit(t, s, host, GetPlayersPacket{})
	// no card was drawn in between
	r := <-host.Responses()
	assert.Equal(t, PacketGetPlayers+"Ok", r.Packet)
}

func TestPlayingRequiresGame(t *testing.T) {
	m := newTestManager(t, nil)
	s, host := hostedSession(t, m)

	submit(t, s, host, PlayerDonePacket{})
	assert.Equal(t, ErrCodeNoDeck, expect(t, host, PacketPlayerDone+"Error").Code)

	submit(t, s, host, SetDeckPacket{Deck: scoreDeck()})
	submit(t, s, host, PlayerDonePacket{})
	assert.Equal(t, ErrCodeWrongState, expect(t, host, PacketPlayerDone+"Error").Code)

	submit(t, s, host, StartGamePacket{})
	expect(t, host, PacketStartGame+"Ok")
	submit(t, s, host, StartGamePacket{})
	assert.Equal(t, ErrCodeWrongState, expect(t, host, PacketStartGame+"Error").Code)
}

func TestHostOnlyPackets(t *testing.T) {
	m := newTestManager(t, memoryLibrary{"score": scoreDeck()})
	s, _ := hostedSession(t, m)
	guest := join(t, s, "guest", "Gil")

	packets := []Packet{
		SetDeckPacket{Deck: scoreDeck()},
		LoadDeckPacket{DeckID: "score"},
		StartGamePacket{},
		FinishGamePacket{},
		CloseSessionPacket{},
	}
	for _, p := range packets {
		submit(t, s, guest, p)
		resp := expect(t, guest, p.PacketName()+"Error")
		assert.Equal(t, ErrCodeNotHost, resp.Code)
	}

	submit(t, s, guest, PlayerLeftPacket{ID: "host"})
	assert.Equal(t, ErrCodeNotAllowed, expect(t, guest, PacketPlayerLeft+"Error").Code)
}

func TestLoadDeck(t *testing.T) {
	m := newTestManager(t, memoryLibrary{"score": scoreDeck()})
	s, host := hostedSession(t, m)

	submit(t, s, host, LoadDeckPacket{DeckID: "missing"})
	assert.Equal(t, ErrCodeDeckNotFound, expect(t, host, PacketLoadDeck+"Error").Code)

	submit(t, s, host, LoadDeckPacket{DeckID: "score"})
	resp := expect(t, host, PacketLoadDeck+"Ok")
	assert.Equal(t, []game.SharedStateValue{{Ident: "score", Value: 0}}, resp.Snapshot.SharedStates)
}

func TestSetDeckKeepsRoster(t *testing.T) {
	m := newTestManager(t, nil)
	s, host := hostedSession(t, m)
	join(t, s, "guest", "Gil")

	party, err := deck.LoadFile("../deck/testdata/party.json")
	require.NoError(t, err)
	submit(t, s, host, SetDeckPacket{Deck: scoreDeck()})
	expect(t, host, PacketSetDeck+"Ok")
	submit(t, s, host, SetDeckPacket{Deck: party})
	resp := expect(t, host, PacketSetDeck+"Ok")
	assert.Equal(t, []game.SharedStateValue{{Ident: "round", Value: 0}}, resp.Snapshot.SharedStates)
	assert.Len(t, resp.Snapshot.Scoreboard.Entries, 2)
	assert.Empty(t, resp.Snapshot.Scoreboard.Error)
}

func TestHostLeavingReassignsHost(t *testing.T) {
	m := newTestManager(t, nil)
	s, host := hostedSession(t, m)
	guest := join(t, s, "guest", "Gil")

	submit(t, s, host, PlayerLeftPacket{ID: "host"})
	resp := expect(t, guest, ResponseUpdateState)
	assert.NotNil(t, resp.Snapshot)
	drain(t, s, guest)
	assert.Equal(t, game.PlayerID("guest"), s.HostID())

	closed, _ := host.Closed()
	assert.True(t, closed)

	submit(t, s, guest, GetPlayersPacket{})
	players := expect(t, guest, PacketGetPlayers+"Ok").Players
	assert.Equal(t, []game.Player{{ID: "guest", Username: "Gil", IsHost: true}}, players)

	// guest hosts this session now
	_, _, err := m.CreateSession("guest", "Gil")
	_, dup := err.(*HostAlreadyHostingError)
	assert.True(t, dup)
}

func TestLastPlayerLeavingClosesSession(t *testing.T) {
	m := newTestManager(t, nil)
	s, host := hostedSession(t, m)

	submit(t, s, nil, PlayerLeftPacket{ID: "host"})
	expect(t, host, ResponseSessionClosed)
	waitClosed(t, s)

	_, ok := m.Session(s.ID())
	assert.False(t, ok)
	_, ok = m.UnwrapCode(s.JoinCode())
	assert.False(t, ok)
	assert.Equal(t, ErrSessionClosed, s.Submit(context.Background(), nil, PlayerLeftPacket{ID: "ghost"}))
}

func TestCloseSession(t *testing.T) {
	m := newTestManager(t, nil)
	s, host := hostedSession(t, m)
	guest := join(t, s, "guest", "Gil")

	submit(t, s, host, CloseSessionPacket{})
	expect(t, host, PacketCloseSession+"Ok")
	expect(t, guest, ResponseSessionClosed)
	waitClosed(t, s)
	assert.Equal(t, 0, m.ActiveSessions())
}

func TestFinishGameReturnsToLobby(t *testing.T) {
	m := newTestManager(t, nil)
	s, host := hostedSession(t, m)
	join(t, s, "guest", "Gil")

	submit(t, s, host, SetDeckPacket{Deck: scoreDeck()})
	submit(t, s, host, StartGamePacket{})
	submit(t, s, host, PlayerDonePacket{})
	card := expect(t, host, ResponseCardResult)
	card = expect(t, host, ResponseCardResult)
	assert.Equal(t, 1, card.Snapshot.TurnIndex)

	submit(t, s, host, FinishGamePacket{})
	expect(t, host, ResponseGameFinished)
	expect(t, host, PacketFinishGame+"Ok")
	resp := expect(t, host, ResponseUpdateState)
	assert.Equal(t, 0, resp.Snapshot.TurnIndex)
	drain(t, s, host)
	assert.Equal(t, SessionState__LOBBY, s.sm.Current())
	assert.Equal(t, 0, s.engine.DrawCount())
	assert.Equal(t, 2, s.roster.Len())

	// a new round starts from the lobby by setting a deck again
	submit(t, s, host, SetDeckPacket{Deck: scoreDeck()})
	submit(t, s, host, StartGamePacket{})
	expect(t, host, PacketStartGame+"Ok")
}

func TestMaxCardsEndsGame(t *testing.T) {
	m := newTestManager(t, nil)
	s, host := hostedSession(t, m)
	d := scoreDeck()
	d.Meta.MaxCards = 2

	submit(t, s, host, SetDeckPacket{Deck: d})
	submit(t, s, host, StartGamePacket{})
	card := expect(t, host, ResponseCardResult)
	submit(t, s, host, PlayerDoneChoicePacket{Chosen: card.Options[0].ID})
	card = expect(t, host, ResponseCardResult)
	submit(t, s, host, PlayerDoneChoicePacket{Chosen: card.Options[0].ID})
	finished := expect(t, host, ResponseGameFinished)
	assert.Equal(t, []game.SharedStateValue{{Ident: "score", Value: 10}}, finished.Snapshot.SharedStates)

	drain(t, s, host)
	assert.Equal(t, SessionState__POSTGAME, s.sm.Current())
	submit(t, s, host, PlayerDonePacket{})
	assert.Equal(t, ErrCodeWrongState, expect(t, host, PacketPlayerDone+"Error").Code)
}

func TestMaxPlayers(t *testing.T) {
	m := newTestManager(t, nil)
	s, host := hostedSession(t, m)
	d := scoreDeck()
	d.Meta.MaxPlayers = 2
	submit(t, s, host, SetDeckPacket{Deck: d})
	join(t, s, "guest", "Gil")

	late := NewChannelConnection("late", 8)
	require.NoError(t, s.Join(context.Background(), late, "Lou"))
	resp := expect(t, late, "JoinError")
	assert.Equal(t, ErrCodeSessionFull, resp.Code)
	_, ok := <-late.Responses()
	assert.False(t, ok)
}

func TestRejoinKeepsSinglePlayer(t *testing.T) {
	m := newTestManager(t, nil)
	s, host := hostedSession(t, m)
	join(t, s, "guest", "Gil")
	join(t, s, "guest", "Gil")

	submit(t, s, host, GetPlayersPacket{})
	assert.Len(t, expect(t, host, PacketGetPlayers+"Ok").Players, 2)
}

func TestRejoinReplacesOlderConnection(t *testing.T) {
	m := newTestManager(t, nil)
	s, host := hostedSession(t, m)
	old := join(t, s, "guest", "Gil")
	fresh := join(t, s, "guest", "Gil")

	closed, reason := old.Closed()
	assert.True(t, closed)
	assert.Equal(t, "replaced by a newer connection", reason)

	submit(t, s, host, TestPacketWithStringPacket{String: "still here"})
	expect(t, host, PacketTestPacketWithString+"Ok")
	submit(t, s, host, SetDeckPacket{Deck: scoreDeck()})
	expect(t, fresh, ResponseUpdateState)
	closed, _ = fresh.Closed()
	assert.False(t, closed)
	assert.Equal(t, 2, len(s.conns))
}

func TestPlayersQuery(t *testing.T) {
	m := newTestManager(t, nil)
	s, host := hostedSession(t, m)
	join(t, s, "guest", "Gil")

	players, err := s.Players(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []game.Player{
		{ID: "host", Username: "Hana", IsHost: true},
		{ID: "guest", Username: "Gil"},
	}, players)

	submit(t, s, host, CloseSessionPacket{})
	waitClosed(t, s)
	_, err = s.Players(context.Background())
	assert.Equal(t, ErrSessionClosed, err)
}

func TestDiagnosticPackets(t *testing.T) {
	m := newTestManager(t, nil)
	s, host := hostedSession(t, m)

	submit(t, s, host, TestPacketWithStringPacket{String: "ping"})
	resp := expect(t, host, PacketTestPacketWithString+"Ok")
	assert.Equal(t, "ping", *resp.String)

	submit(t, s, host, TestErrorPacket{})
	assert.Equal(t, ErrCodeTest, expect(t, host, PacketTestError+"Error").Code)

	assert.Equal(t, ErrNilPacket, s.Submit(context.Background(), host, nil))
}

func TestSlowConnectionIsDropped(t *testing.T) {
	m := newTestManager(t, nil)
	s, host := hostedSession(t, m)

	slow := NewChannelConnection("slow", 1)
	require.NoError(t, s.Join(context.Background(), slow, "Sam"))
	// JoinOk fills the queue, the UpdateState broadcast overflows it
	drain(t, s, host)
	closed, reason := slow.Closed()
	assert.True(t, closed)
	assert.Equal(t, ErrConnectionQueueFull.Error(), reason)
}

func TestConcurrentSubmittersAreSerialized(t *testing.T) {
	const submitters = 8
	const perSubmitter = 20

	m := newTestManager(t, nil)
	id, _, err := m.CreateSession("host", "Hana")
	require.NoError(t, err)
	s, _ := m.Session(id)
	host := NewChannelConnection("host", 4096)
	require.NoError(t, s.Join(context.Background(), host, "Hana"))
	expect(t, host, ResponseJoinOk)

	submit(t, s, host, SetDeckPacket{Deck: scoreDeck()})
	submit(t, s, host, StartGamePacket{})
	expect(t, host, PacketStartGame+"Ok")

	var wg sync.WaitGroup
	for i := 0; i < submitters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			playerID := game.PlayerID(fmt.Sprintf("p%d", i))
			conn := NewChannelConnection(playerID, 4096)
			if err := s.Join(context.Background(), conn, string(playerID)); err != nil {
				t.Errorf("Join failed: %v", err)
				return
			}
			for j := 0; j < perSubmitter; j++ {
				if err := s.Submit(context.Background(), conn, PlayerDonePacket{}); err != nil {
					t.Errorf("Submit failed: %v", err)
					return
				}
			}
		}(i)
	}
	wg.Wait()
	drain(t, s, host)

	players, err := s.Players(context.Background())
	require.NoError(t, err)
	assert.Len(t, players, submitters+1)
	assert.Equal(t, 1+submitters*perSubmitter, s.engine.DrawCount())
}
