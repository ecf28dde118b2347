package session

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/google/uuid"
	cmap "github.com/orcaman/concurrent-map"
	"github.com/pkg/errors"
	"partydeck.io/server/caching"
	"partydeck.io/server/game"
	"partydeck.io/server/logging"
	"partydeck.io/server/util"
	"partydeck.io/server/util/hashing"
	"partydeck.io/server/util/random"
)

var managerLogger = logging.GetZeroLogger("session::manager", nil)

const maxJoinCodeAttempts = 16

// Manager is the session registry. lock guards session creation, removal and
// the host scan; lookups go straight to the concurrent map.
type Manager struct {
	lock      sync.Mutex
	sessions  cmap.ConcurrentMap
	codes     *caching.JoinCodeCache
	decks     DeckLibrary
	queueSize int
	newRandom func() *rand.Rand
}

func NewManager(decks DeckLibrary, queueSize int) (*Manager, error) {
	codes, err := caching.NewJoinCodeCache(caching.DefaultJoinCodeCacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to create join code cache")
	}
	if queueSize <= 0 {
		return nil, fmt.Errorf("Invalid session queue size [%d]", queueSize)
	}
	return &Manager{
		sessions:  cmap.New(),
		codes:     codes,
		decks:     decks,
		queueSize: queueSize,
		newRandom: func() *rand.Rand { return random.NewSource(0) },
	}, nil
}

// CreateSession starts a session hosted by hostID and returns its id and
// join code. A player can host only one session at a time.
func (m *Manager) CreateSession(hostID game.PlayerID, username string) (string, string, error) {
	if hostID == "" {
		return "", "", fmt.Errorf("Invalid host ID [%s]", hostID)
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	for item := range m.sessions.IterBuffered() {
		s := item.Val.(*Session)
		if s.HostID() == hostID {
			return "", "", &HostAlreadyHostingError{HostID: string(hostID), SessionID: s.ID()}
		}
	}

	id := uuid.New().String()
	code := ""
	for attempt := 0; attempt < maxJoinCodeAttempts; attempt++ {
		candidate := hashing.GenerateJoinCode(id, attempt)
		if _, taken := m.codes.CodeToSessionID(candidate); !taken {
			code = candidate
			break
		}
	}
	if code == "" {
		return "", "", fmt.Errorf("Unable to generate a unique join code for session [%s]", id)
	}
	if err := m.codes.Add(id, code); err != nil {
		return "", "", errors.Wrap(err, "Unable to register join code")
	}

	host := game.Player{ID: hostID, Username: username, IsHost: true}
	s := newSession(id, code, host, m, m.decks, m.newRandom(), m.queueSize)
	m.sessions.Set(id, s)

	util.Metrics.SessionCreated()
	util.Metrics.SetActiveSessions(m.sessions.Count())
	managerLogger.Info().
		Str(logging.SessionIDKey, id).
		Str(logging.JoinCodeKey, code).
		Str(logging.PlayerIDKey, string(hostID)).
		Msg("Session created")
	return id, code, nil
}

func (m *Manager) Session(id string) (*Session, bool) {
	v, ok := m.sessions.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*Session), true
}

// UnwrapCode resolves a join code to the id of a live session.
func (m *Manager) UnwrapCode(code string) (string, bool) {
	id, ok := m.codes.CodeToSessionID(code)
	if !ok {
		return "", false
	}
	if _, live := m.Session(id); !live {
		return "", false
	}
	return id, true
}

// Deregister is called by a session when it closes.
func (m *Manager) Deregister(id string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.sessions.Remove(id)
	m.codes.Remove(id)
	util.Metrics.SetActiveSessions(m.sessions.Count())
	managerLogger.Info().Str(logging.SessionIDKey, id).Msg("Session deregistered")
}

func (m *Manager) ActiveSessions() int {
	return m.sessions.Count()
}

// Shutdown closes every session and waits for their workers to stop.
func (m *Manager) Shutdown(ctx context.Context) error {
	sessions := make([]*Session, 0)
	for _, v := range m.sessions.Items() {
		sessions = append(sessions, v.(*Session))
	}
	for _, s := range sessions {
		err := s.Submit(ctx, nil, CloseSessionPacket{})
		if err != nil && err != ErrSessionClosed {
			return errors.Wrapf(err, "Unable to close session [%s]", s.ID())
		}
	}
	for _, s := range sessions {
		select {
		case <-s.Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}
