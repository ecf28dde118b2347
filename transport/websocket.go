package transport

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
	"nhooyr.io/websocket"
	"partydeck.io/server/game"
	"partydeck.io/server/logging"
	"partydeck.io/server/session"
)

var websocketLogger = logging.GetZeroLogger("transport::websocket", nil)

const (
	writeTimeout = 5 * time.Second
	// inbound packets per second per connection, with a small burst
	packetRate  = 20
	packetBurst = 40
)

// WebsocketConnection binds one websocket client to a session. Responses are
// queued by Send and written by a separate goroutine.
type WebsocketConnection struct {
	id       string
	playerID game.PlayerID
	ws       *websocket.Conn
	out      chan *session.Response
	limiter  *rate.Limiter
	logger   *zerolog.Logger

	lock        sync.Mutex
	closed      bool
	closeReason string
	done        chan struct{}
}

func NewWebsocketConnection(ws *websocket.Conn, playerID game.PlayerID, queueSize int) *WebsocketConnection {
	id := uuid.New().String()
	logger := websocketLogger.With().
		Str(logging.ConnectionIDKey, id).
		Str(logging.PlayerIDKey, string(playerID)).
		Logger()
	return &WebsocketConnection{
		id:       id,
		playerID: playerID,
		ws:       ws,
		out:      make(chan *session.Response, queueSize),
		limiter:  rate.NewLimiter(rate.Limit(packetRate), packetBurst),
		logger:   &logger,
		done:     make(chan struct{}),
	}
}

func (c *WebsocketConnection) ID() string {
	return c.id
}

func (c *WebsocketConnection) PlayerID() game.PlayerID {
	return c.playerID
}

func (c *WebsocketConnection) Send(r *session.Response) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.closed {
		return session.ErrConnectionClosed
	}
	select {
	case c.out <- r:
		return nil
	default:
		return session.ErrConnectionQueueFull
	}
}

func (c *WebsocketConnection) Close(reason string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.closeReason = reason
	close(c.done)
}

func (c *WebsocketConnection) isClosed() bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.closed
}

// Serve joins the session and pumps packets until the client goes away or
// the session closes the connection. A client that drops is reported to the
// session as PlayerLeft.
func (c *WebsocketConnection) Serve(ctx context.Context, s *session.Session, username string) error {
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writeLoop(ctx)
	}()

	if err := s.Join(ctx, c, username); err != nil {
		c.Close(err.Error())
		<-writerDone
		return err
	}

	c.readLoop(ctx, s)

	if !c.isClosed() {
		c.Close("client disconnected")
		err := s.Submit(context.Background(), nil, session.PlayerLeftPacket{ID: c.playerID})
		if err != nil && err != session.ErrSessionClosed {
			c.logger.Warn().Err(err).Msg("Unable to report disconnected player")
		}
	}
	<-writerDone
	return nil
}

func (c *WebsocketConnection) readLoop(ctx context.Context, s *session.Session) {
	for {
		_, data, err := c.ws.Read(ctx)
		if err != nil {
			c.logger.Debug().Err(err).Msg("Read loop ending")
			return
		}
		if !c.limiter.Allow() {
			c.Send(&session.Response{Packet: session.ResponseParseError, Code: "RateLimited", Message: "Too many packets"})
			continue
		}
		packet, err := session.ParsePacket(data)
		if err != nil {
			c.Send(session.ParseErrorResponse(err))
			continue
		}
		if err := s.Submit(ctx, c, packet); err != nil {
			c.logger.Debug().Err(err).Msg("Session no longer accepts packets")
			return
		}
	}
}

func (c *WebsocketConnection) writeLoop(ctx context.Context) {
	for {
		select {
		case r := <-c.out:
			if err := c.write(r); err != nil {
				c.logger.Debug().Err(err).Msg("Write failed")
				c.ws.Close(websocket.StatusInternalError, "write failed")
				return
			}
		case <-c.done:
			// closing the socket also ends the pending Read in readLoop
			c.flush()
			c.ws.Close(websocket.StatusNormalClosure, c.reason())
			return
		case <-ctx.Done():
			c.ws.Close(websocket.StatusGoingAway, "")
			return
		}
	}
}

// flush writes what was queued before Close.
func (c *WebsocketConnection) flush() {
	for {
		select {
		case r := <-c.out:
			if err := c.write(r); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *WebsocketConnection) write(r *session.Response) error {
	b, err := session.EncodeResponse(r)
	if err != nil {
		c.logger.Error().Err(err).Msgf("Unable to encode %s", r.Packet)
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	return c.ws.Write(ctx, websocket.MessageText, b)
}

func (c *WebsocketConnection) reason() string {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.closeReason
}
