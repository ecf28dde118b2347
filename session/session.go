package session

import (
	"context"
	"fmt"
	"math/rand"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/looplab/fsm"
	"github.com/rs/zerolog"
	"partydeck.io/server/deck"
	"partydeck.io/server/game"
	"partydeck.io/server/logging"
	"partydeck.io/server/util"
)

var sessionLogger = logging.GetZeroLogger("session::session", nil)

// DeckLibrary supplies stored decks to LoadDeck packets.
type DeckLibrary interface {
	Load(deckID string) (*deck.Deck, error)
}

type registry interface {
	Deregister(sessionID string)
}

type inbound struct {
	conn   Connection
	packet Packet
}

// Session is one running match. All of its state is owned by the worker
// goroutine started in newSession; other goroutines talk to it via Submit.
type Session struct {
	id       string
	joinCode string
	hostID   atomic.Value
	manager  registry
	decks    DeckLibrary

	roster *game.Roster
	engine *game.Engine
	conns  map[string]Connection
	sm     *fsm.FSM
	rng    *rand.Rand

	inbox     chan inbound
	done      chan struct{}
	closeOnce sync.Once
	logger    *zerolog.Logger
}

func newSession(id string, joinCode string, host game.Player, manager registry, decks DeckLibrary, rng *rand.Rand, queueSize int) *Session {
	logger := logging.SessionLogger(sessionLogger, id, joinCode)
	s := &Session{
		id:       id,
		joinCode: joinCode,
		manager:  manager,
		decks:    decks,
		roster:   game.NewRoster(),
		conns:    make(map[string]Connection),
		sm:       newLifecycle(logger),
		rng:      rng,
		inbox:    make(chan inbound, queueSize),
		done:     make(chan struct{}),
		logger:   logger,
	}
	host.IsHost = true
	s.roster.Add(host)
	s.hostID.Store(host.ID)
	go s.run()
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) JoinCode() string {
	return s.joinCode
}

func (s *Session) HostID() game.PlayerID {
	return s.hostID.Load().(game.PlayerID)
}

// Done is closed once the session has shut down.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Submit queues a packet for the worker. conn is nil for packets that come
// from the server itself. It blocks while the queue is full.
func (s *Session) Submit(ctx context.Context, conn Connection, packet Packet) error {
	if packet == nil {
		return ErrNilPacket
	}
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	select {
	case s.inbox <- inbound{conn: conn, packet: packet}:
		return nil
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Join attaches conn to the session and adds its player to the roster.
func (s *Session) Join(ctx context.Context, conn Connection, username string) error {
	return s.Submit(ctx, conn, joinPacket{player: game.Player{ID: conn.PlayerID(), Username: username}})
}

// Players asks the worker for the current roster.
func (s *Session) Players(ctx context.Context) ([]game.Player, error) {
	conn := NewChannelConnection("", 1)
	if err := s.Submit(ctx, conn, GetPlayersPacket{}); err != nil {
		return nil, err
	}
	select {
	case r, ok := <-conn.Responses():
		if !ok {
			return nil, ErrSessionClosed
		}
		return r.Players, nil
	case <-s.done:
		return nil, ErrSessionClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Session) run() {
	s.logger.Info().Msg("Session worker started")
	for {
		select {
		case <-s.done:
			s.logger.Info().Msg("Session worker stopped")
			return
		case in := <-s.inbox:
			select {
			case <-s.done:
				// closed by the previous packet
				return
			default:
			}
			s.process(in)
		}
	}
}

func (s *Session) process(in inbound) {
	defer func() {
		err := recover()
		if err != nil {
			s.logger.Error().
				Str(logging.PacketKey, in.packet.PacketName()).
				Msgf("Recovered from panic while handling packet: %s\nStack Trace:\n%s", err, string(debug.Stack()))
			s.reply(in.conn, errorResponse(in.packet.PacketName(), "Internal", fmt.Sprintf("%v", err)))
		}
	}()

	util.Metrics.PacketProcessed(in.packet.PacketName())
	s.logger.Debug().Str(logging.PacketKey, in.packet.PacketName()).Msg("Processing packet")

	switch p := in.packet.(type) {
	case joinPacket:
		s.onJoin(in.conn, p)
	case SetDeckPacket:
		s.onSetDeck(in.conn, PacketSetDeck, p.Deck)
	case LoadDeckPacket:
		s.onLoadDeck(in.conn, p)
	case StartGamePacket:
		s.onStartGame(in.conn)
	case PlayerLeftPacket:
		s.onPlayerLeft(in.conn, p)
	case PlayerDoneChoicePacket:
		s.onPlayerDoneChoice(in.conn, p)
	case PlayerDonePacket:
		s.onPlayerDone(in.conn)
	case CloseSessionPacket:
		s.onCloseSession(in.conn)
	case FinishGamePacket:
		s.onFinishGame(in.conn)
	case GetPlayersPacket:
		resp := okResponse(PacketGetPlayers)
		resp.Players = s.roster.Players()
		s.reply(in.conn, resp)
	case TestPacketWithStringPacket:
		resp := okResponse(PacketTestPacketWithString)
		str := p.String
		resp.String = &str
		s.reply(in.conn, resp)
	case TestErrorPacket:
		s.replyError(in.conn, PacketTestError, ErrCodeTest, "Test error")
	default:
		s.replyError(in.conn, in.packet.PacketName(), ErrCodeParse, "Unhandled packet")
	}
}

func (s *Session) onJoin(conn Connection, p joinPacket) {
	if conn == nil {
		return
	}
	if !s.roster.Contains(p.player.ID) {
		if s.engine != nil {
			if max := s.engine.Meta().MaxPlayers; max > 0 && s.roster.Len() >= max {
				s.replyError(conn, "Join", ErrCodeSessionFull, fmt.Sprintf("Session allows at most %d players", max))
				conn.Close("session full")
				return
			}
			s.engine.AddPlayer(s.roster, p.player.ID, p.player.Username, false)
		} else {
			s.roster.Add(game.Player{ID: p.player.ID, Username: p.player.Username})
		}
		s.logger.Info().
			Str(logging.PlayerIDKey, string(p.player.ID)).
			Str(logging.PlayerNameKey, p.player.Username).
			Msg("Player joined")
	} else {
		// a rejoin replaces the player's older connections
		for id, c := range s.conns {
			if c.PlayerID() == p.player.ID && id != conn.ID() {
				c.Close("replaced by a newer connection")
				delete(s.conns, id)
			}
		}
	}
	s.conns[conn.ID()] = conn

	resp := &Response{Packet: ResponseJoinOk, PlayerID: p.player.ID, Snapshot: s.snapshot()}
	s.reply(conn, resp)
	s.broadcastState()
}

func (s *Session) onSetDeck(conn Connection, packet string, d *deck.Deck) {
	if !s.isHost(conn) {
		s.replyError(conn, packet, ErrCodeNotHost, "Only the host can change the deck")
		return
	}
	if d == nil {
		s.replyError(conn, packet, ErrCodeParse, "Deck is missing")
		return
	}
	bundle := deck.Compile(d)
	if s.engine == nil {
		s.engine = game.NewEngine(bundle, s.roster, s.rng)
	} else {
		s.engine.ChangeDeck(bundle, s.roster)
	}
	if s.sm.Current() == SessionState__LOBBY {
		s.event(SessionEvent__SET_DECK)
	}
	s.logger.Info().Str(logging.DeckIDKey, d.Meta.ID).Msgf("Deck [%s] set", d.Meta.DeckName)

	resp := okResponse(packet)
	resp.Snapshot = s.snapshot()
	s.reply(conn, resp)
	s.broadcastState()
}

func (s *Session) onLoadDeck(conn Connection, p LoadDeckPacket) {
	if !s.isHost(conn) {
		s.replyError(conn, PacketLoadDeck, ErrCodeNotHost, "Only the host can change the deck")
		return
	}
	if s.decks == nil {
		s.replyError(conn, PacketLoadDeck, ErrCodeDeckNotFound, "No deck library is configured")
		return
	}
	d, err := s.decks.Load(p.DeckID)
	if err != nil {
		s.replyError(conn, PacketLoadDeck, ErrCodeDeckNotFound, err.Error())
		return
	}
	s.onSetDeck(conn, PacketLoadDeck, d)
}

func (s *Session) onStartGame(conn Connection) {
	if !s.isHost(conn) {
		s.replyError(conn, PacketStartGame, ErrCodeNotHost, "Only the host can start the game")
		return
	}
	if s.engine == nil {
		s.replyError(conn, PacketStartGame, ErrCodeNoDeck, "No deck is loaded")
		return
	}
	if s.sm.Current() != SessionState__PREGAME {
		s.replyError(conn, PacketStartGame, ErrCodeWrongState, fmt.Sprintf("Cannot start a game in state %s", s.sm.Current()))
		return
	}
	s.event(SessionEvent__START_GAME)
	s.engine.StartGame()
	s.reply(conn, okResponse(PacketStartGame))
	s.draw()
}

func (s *Session) onPlayerLeft(conn Connection, p PlayerLeftPacket) {
	if conn != nil && conn.PlayerID() != p.ID && !s.isHost(conn) {
		s.replyError(conn, PacketPlayerLeft, ErrCodeNotAllowed, "Only the host can remove other players")
		return
	}
	if !s.roster.Contains(p.ID) {
		s.replyError(conn, PacketPlayerLeft, ErrCodeUnknownPlayer, fmt.Sprintf("Player [%s] is not in the session", p.ID))
		return
	}

	if s.engine != nil {
		s.engine.RemovePlayer(s.roster, p.ID)
	} else {
		s.roster.Remove(p.ID)
	}
	s.logger.Info().Str(logging.PlayerIDKey, string(p.ID)).Msg("Player left")

	if s.roster.Len() == 0 {
		s.broadcast(&Response{Packet: ResponseSessionClosed, Message: "All players left"})
		s.close("all players left")
		return
	}
	if p.ID == s.HostID() {
		first, _ := s.roster.At(0)
		s.roster.SetHost(first.ID)
		s.hostID.Store(first.ID)
		s.logger.Info().Str(logging.PlayerIDKey, string(first.ID)).Msg("Host reassigned")
	}

	resp := okResponse(PacketPlayerLeft)
	resp.Snapshot = s.snapshot()
	s.reply(conn, resp)
	for id, c := range s.conns {
		if c.PlayerID() == p.ID {
			c.Close("player left")
			delete(s.conns, id)
		}
	}
	s.broadcastState()
}

func (s *Session) onPlayerDoneChoice(conn Connection, p PlayerDoneChoicePacket) {
	if !s.requireGame(conn, PacketPlayerDoneChoice) {
		return
	}
	if !s.engine.ResolveChoice(s.roster, p.Chosen) {
		s.replyError(conn, PacketPlayerDoneChoice, ErrCodeUnknownOption, fmt.Sprintf("Option [%s] is not part of the current card", p.Chosen))
		return
	}
	s.advance()
}

func (s *Session) onPlayerDone(conn Connection) {
	if !s.requireGame(conn, PacketPlayerDone) {
		return
	}
	s.advance()
}

func (s *Session) onCloseSession(conn Connection) {
	if !s.isHost(conn) {
		s.replyError(conn, PacketCloseSession, ErrCodeNotHost, "Only the host can close the session")
		return
	}
	s.reply(conn, okResponse(PacketCloseSession))
	for id, c := range s.conns {
		if conn != nil && id == conn.ID() {
			continue
		}
		s.send(c, &Response{Packet: ResponseSessionClosed, Message: "Closed by host"})
	}
	s.close("closed by host")
}

func (s *Session) onFinishGame(conn Connection) {
	if !s.isHost(conn) {
		s.replyError(conn, PacketFinishGame, ErrCodeNotHost, "Only the host can finish the game")
		return
	}
	if s.sm.Current() == SessionState__GAME {
		s.finish()
	}
	if s.sm.Current() != SessionState__LOBBY {
		s.event(SessionEvent__RESET)
	}
	if s.engine != nil {
		s.engine.ResetProgress()
	}
	s.reply(conn, okResponse(PacketFinishGame))
	s.broadcastState()
}

// advance ends the game when the card limit is reached, otherwise passes the
// turn and draws the next card.
func (s *Session) advance() {
	if max := s.engine.Meta().MaxCards; max > 0 && s.engine.DrawCount() >= max {
		s.finish()
		return
	}
	s.engine.NextTurn(s.roster)
	s.draw()
}

func (s *Session) draw() {
	text, options := s.engine.DrawCard(s.roster)
	util.Metrics.CardDrawn()
	s.broadcast(&Response{
		Packet:   ResponseCardResult,
		Text:     &text,
		Options:  options,
		Snapshot: s.snapshot(),
	})
}

func (s *Session) finish() {
	s.event(SessionEvent__END_GAME)
	s.broadcast(&Response{Packet: ResponseGameFinished, Snapshot: s.snapshot()})
}

func (s *Session) requireGame(conn Connection, packet string) bool {
	if s.engine == nil {
		s.replyError(conn, packet, ErrCodeNoDeck, "No deck is loaded")
		return false
	}
	if s.sm.Current() != SessionState__GAME {
		s.replyError(conn, packet, ErrCodeWrongState, fmt.Sprintf("No game is running (state %s)", s.sm.Current()))
		return false
	}
	return true
}

func (s *Session) isHost(conn Connection) bool {
	return conn == nil || conn.PlayerID() == s.HostID()
}

func (s *Session) event(name string) {
	if err := s.sm.Event(name); err != nil {
		s.logger.Error().Err(err).Msgf("Lifecycle event [%s] failed in state %s", name, s.sm.Current())
	}
}

func (s *Session) snapshot() *game.GameSnapshot {
	if s.engine == nil {
		return &game.GameSnapshot{
			SharedStates: []game.SharedStateValue{},
			Scoreboard:   game.RenderedScoreboard{Entries: []game.ScoreEntry{}},
		}
	}
	snapshot := s.engine.Snapshot(s.roster)
	return &snapshot
}

func (s *Session) broadcastState() {
	s.broadcast(&Response{Packet: ResponseUpdateState, Snapshot: s.snapshot()})
}

func (s *Session) broadcast(r *Response) {
	for _, c := range s.conns {
		s.send(c, r)
	}
}

func (s *Session) reply(conn Connection, r *Response) {
	if conn == nil {
		return
	}
	s.send(conn, r)
}

func (s *Session) replyError(conn Connection, packet string, code string, message string) {
	util.Metrics.ProtocolError(code)
	s.logger.Debug().Str(logging.PacketKey, packet).Msgf("%s: %s", code, message)
	s.reply(conn, errorResponse(packet, code, message))
}

// send drops a connection that cannot keep up.
func (s *Session) send(conn Connection, r *Response) {
	if err := conn.Send(r); err != nil {
		s.logger.Warn().
			Str(logging.ConnectionIDKey, conn.ID()).
			Str(logging.PlayerIDKey, string(conn.PlayerID())).
			Err(err).
			Msgf("Dropping connection after failing to send %s", r.Packet)
		conn.Close(err.Error())
		delete(s.conns, conn.ID())
	}
}

func (s *Session) close(reason string) {
	s.closeOnce.Do(func() {
		for id, c := range s.conns {
			c.Close(reason)
			delete(s.conns, id)
		}
		if s.manager != nil {
			s.manager.Deregister(s.id)
		}
		close(s.done)
		s.logger.Info().Msgf("Session closed: %s", reason)
	})
}
