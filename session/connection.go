package session

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"partydeck.io/server/game"
)

var ErrConnectionClosed = errors.New("Connection is closed")
var ErrConnectionQueueFull = errors.New("Connection outbound queue is full")

// Connection is one client attached to a session. Send must not block the
// session worker; implementations queue the response and write it elsewhere.
type Connection interface {
	ID() string
	PlayerID() game.PlayerID
	Send(r *Response) error
	Close(reason string)
}

// ChannelConnection delivers responses to a buffered channel. The channel is
// closed when the connection is closed.
type ChannelConnection struct {
	id       string
	playerID game.PlayerID
	ch       chan *Response

	lock   sync.Mutex
	closed bool
	reason string
}

func NewChannelConnection(playerID game.PlayerID, queueSize int) *ChannelConnection {
	return &ChannelConnection{
		id:       uuid.New().String(),
		playerID: playerID,
		ch:       make(chan *Response, queueSize),
	}
}

func (c *ChannelConnection) ID() string {
	return c.id
}

func (c *ChannelConnection) PlayerID() game.PlayerID {
	return c.playerID
}

func (c *ChannelConnection) Responses() <-chan *Response {
	return c.ch
}

func (c *ChannelConnection) Send(r *Response) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.closed {
		return ErrConnectionClosed
	}
	select {
	case c.ch <- r:
		return nil
	default:
		return ErrConnectionQueueFull
	}
}

func (c *ChannelConnection) Close(reason string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.reason = reason
	close(c.ch)
}

func (c *ChannelConnection) Closed() (bool, string) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.closed, c.reason
}
