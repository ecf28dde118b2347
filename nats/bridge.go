package nats

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"partydeck.io/server/game"
	"partydeck.io/server/logging"
	"partydeck.io/server/session"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var natsLogger = logging.GetZeroLogger("nats::bridge", nil)

const (
	// PacketJoin is handled by the bridge itself; the session never sees it.
	PacketJoin = "Join"

	ErrCodeNotJoined     = "NotJoined"
	ErrCodeAlreadyJoined = "AlreadyJoined"

	submitTimeout = 5 * time.Second
)

type joinWire struct {
	Packet   string `json:"packet"`
	Username string `json:"username"`
}

// NatsConnection publishes session responses on the player's
// session2player subject.
type NatsConnection struct {
	id       string
	playerID game.PlayerID
	subject  string
	nc       *natsgo.Conn
	onClose  func()

	lock   sync.Mutex
	closed bool
}

func newNatsConnection(nc *natsgo.Conn, sessionID string, playerID game.PlayerID, onClose func()) *NatsConnection {
	return &NatsConnection{
		id:       uuid.New().String(),
		playerID: playerID,
		subject:  GetSession2PlayerSubject(sessionID, string(playerID)),
		nc:       nc,
		onClose:  onClose,
	}
}

func (c *NatsConnection) ID() string {
	return c.id
}

func (c *NatsConnection) PlayerID() game.PlayerID {
	return c.playerID
}

func (c *NatsConnection) Send(r *session.Response) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.closed {
		return session.ErrConnectionClosed
	}
	return publish(c.nc, c.subject, r)
}

func (c *NatsConnection) Close(reason string) {
	c.lock.Lock()
	if c.closed {
		c.lock.Unlock()
		return
	}
	c.closed = true
	c.lock.Unlock()
	natsLogger.Debug().
		Str(logging.ConnectionIDKey, c.id).
		Str(logging.PlayerIDKey, string(c.playerID)).
		Msgf("Connection closed: %s", reason)
	if c.onClose != nil {
		c.onClose()
	}
}

func publish(nc *natsgo.Conn, subject string, r *session.Response) error {
	b, err := session.EncodeResponse(r)
	if err != nil {
		return err
	}
	return nc.Publish(subject, b)
}

type bridgedSession struct {
	s      *session.Session
	sub    *natsgo.Subscription
	conns  map[game.PlayerID]*NatsConnection
	logger *zerolog.Logger
}

// SessionBridge exposes sessions over NATS. Players publish packets on
// their player2session subject; the first packet from a player must be
// {"packet":"Join","username":...}.
type SessionBridge struct {
	nc      *natsgo.Conn
	manager *session.Manager

	lock     sync.Mutex
	sessions map[string]*bridgedSession
}

func NewSessionBridge(nc *natsgo.Conn, manager *session.Manager) *SessionBridge {
	return &SessionBridge{
		nc:       nc,
		manager:  manager,
		sessions: make(map[string]*bridgedSession),
	}
}

// Attach subscribes to the inbound subjects of a session. The subscription
// is dropped when the session closes.
func (b *SessionBridge) Attach(sessionID string) error {
	s, ok := b.manager.Session(sessionID)
	if !ok {
		return &session.SessionNotFoundError{SessionID: sessionID}
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	if _, exists := b.sessions[sessionID]; exists {
		return nil
	}

	logger := logging.SessionLogger(natsLogger, s.ID(), s.JoinCode())
	bs := &bridgedSession{
		s:      s,
		conns:  make(map[game.PlayerID]*NatsConnection),
		logger: logger,
	}
	subject := GetPlayer2SessionWildcard(sessionID)
	sub, err := b.nc.Subscribe(subject, func(msg *natsgo.Msg) {
		b.player2Session(bs, msg)
	})
	if err != nil {
		logger.Error().Err(err).Msgf("Failed to subscribe to %s", subject)
		return err
	}
	bs.sub = sub
	b.sessions[sessionID] = bs
	logger.Info().Msgf("Listening on %s", subject)

	go func() {
		<-s.Done()
		b.Detach(sessionID)
	}()
	return nil
}

// Detach unsubscribes a session and closes its NATS connections.
func (b *SessionBridge) Detach(sessionID string) {
	b.lock.Lock()
	bs, ok := b.sessions[sessionID]
	if ok {
		delete(b.sessions, sessionID)
	}
	b.lock.Unlock()
	if !ok {
		return
	}

	if err := bs.sub.Unsubscribe(); err != nil {
		bs.logger.Warn().Err(err).Msg("Unsubscribe failed")
	}
	for _, conn := range bs.connections(b) {
		conn.Close("session detached")
	}
	bs.logger.Info().Msg("Detached from NATS")
}

// Close detaches every session.
func (b *SessionBridge) Close() {
	b.lock.Lock()
	ids := make([]string, 0, len(b.sessions))
	for id := range b.sessions {
		ids = append(ids, id)
	}
	b.lock.Unlock()
	for _, id := range ids {
		b.Detach(id)
	}
}

// Attached reports whether sessionID has a live subscription.
func (b *SessionBridge) Attached(sessionID string) bool {
	b.lock.Lock()
	defer b.lock.Unlock()
	_, ok := b.sessions[sessionID]
	return ok
}

func (bs *bridgedSession) connections(b *SessionBridge) []*NatsConnection {
	b.lock.Lock()
	defer b.lock.Unlock()
	conns := make([]*NatsConnection, 0, len(bs.conns))
	for _, c := range bs.conns {
		conns = append(conns, c)
	}
	return conns
}

func (b *SessionBridge) connection(bs *bridgedSession, playerID game.PlayerID) (*NatsConnection, bool) {
	b.lock.Lock()
	defer b.lock.Unlock()
	c, ok := bs.conns[playerID]
	return c, ok
}

func (b *SessionBridge) player2Session(bs *bridgedSession, msg *natsgo.Msg) {
	userID, ok := userIDFromSubject(msg.Subject)
	if !ok {
		bs.logger.Warn().Msgf("Ignoring message on unexpected subject %s", msg.Subject)
		return
	}
	playerID := game.PlayerID(userID)
	replySubject := GetSession2PlayerSubject(bs.s.ID(), userID)

	var jw joinWire
	if err := json.Unmarshal(msg.Data, &jw); err == nil && jw.Packet == PacketJoin {
		b.join(bs, playerID, jw.Username, replySubject)
		return
	}

	conn, joined := b.connection(bs, playerID)
	if !joined {
		b.reply(bs, replySubject, &session.Response{
			Packet:  session.ResponseParseError,
			Code:    ErrCodeNotJoined,
			Message: "Send Join before any other packet",
		})
		return
	}

	packet, err := session.ParsePacket(msg.Data)
	if err != nil {
		conn.Send(session.ParseErrorResponse(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()
	if err := bs.s.Submit(ctx, conn, packet); err != nil {
		bs.logger.Warn().Err(err).
			Str(logging.PlayerIDKey, userID).
			Str(logging.PacketKey, packet.PacketName()).
			Msg("Unable to submit packet")
	}
}

func (b *SessionBridge) join(bs *bridgedSession, playerID game.PlayerID, username string, replySubject string) {
	if username == "" {
		username = string(playerID)
	}

	b.lock.Lock()
	if _, exists := bs.conns[playerID]; exists {
		b.lock.Unlock()
		b.reply(bs, replySubject, &session.Response{
			Packet:  PacketJoin + "Error",
			Code:    ErrCodeAlreadyJoined,
			Message: "Player is already connected over NATS",
		})
		return
	}
	var conn *NatsConnection
	conn = newNatsConnection(b.nc, bs.s.ID(), playerID, func() {
		b.lock.Lock()
		defer b.lock.Unlock()
		if bs.conns[playerID] == conn {
			delete(bs.conns, playerID)
		}
	})
	bs.conns[playerID] = conn
	b.lock.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()
	if err := bs.s.Join(ctx, conn, username); err != nil {
		conn.Close(err.Error())
		b.reply(bs, replySubject, &session.Response{
			Packet:  PacketJoin + "Error",
			Code:    session.ErrCodeNotAllowed,
			Message: err.Error(),
		})
	}
}

func (b *SessionBridge) reply(bs *bridgedSession, subject string, r *session.Response) {
	if err := publish(b.nc, subject, r); err != nil {
		bs.logger.Warn().Err(err).Msgf("Failed to publish to %s", subject)
	}
}
