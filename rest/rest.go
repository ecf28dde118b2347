package rest

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"nhooyr.io/websocket"
	"partydeck.io/server/deck"
	"partydeck.io/server/deckstore"
	"partydeck.io/server/game"
	"partydeck.io/server/logging"
	"partydeck.io/server/session"
	"partydeck.io/server/transport"
)

var restLogger = logging.GetZeroLogger("rest::rest", nil)

const shutdownTimeout = 10 * time.Second

//
// APP error definition
//
type appError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// SessionAttacher exposes newly created sessions over another transport.
type SessionAttacher interface {
	Attach(sessionID string) error
}

type Server struct {
	manager       *session.Manager
	decks         deckstore.PersistDeck
	attacher      SessionAttacher
	connQueueSize int
}

// NewServer builds the HTTP API. attacher may be nil.
func NewServer(manager *session.Manager, decks deckstore.PersistDeck, attacher SessionAttacher, connQueueSize int) *Server {
	return &Server{
		manager:       manager,
		decks:         decks,
		attacher:      attacher,
		connQueueSize: connQueueSize,
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/create", s.createSession)
	r.GET("/join", s.joinSession)
	r.POST("/unwrap_session_code", s.unwrapSessionCode)
	r.GET("/sessions/:id/players", s.sessionPlayers)

	r.POST("/decks", s.saveDeck)
	r.GET("/decks", s.listDecks)
	r.GET("/decks/:id", s.getDeck)
	r.DELETE("/decks/:id", s.removeDeck)

	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

// RunRestServer serves until ctx is cancelled.
func RunRestServer(ctx context.Context, addr string, s *Server) error {
	srv := &http.Server{Addr: addr, Handler: s.Router()}
	errCh := make(chan error, 1)
	go func() {
		restLogger.Info().Msgf("Listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func fail(c *gin.Context, code int, msg string) {
	c.JSON(code, appError{Code: code, Message: msg})
}

func (s *Server) createSession(c *gin.Context) {
	type Payload struct {
		HostID   string `json:"hostId"`
		Username string `json:"username"`
	}
	var payload Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		restLogger.Error().Msgf("Unable to parse create request. Error: %v", err)
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if payload.HostID == "" {
		fail(c, http.StatusBadRequest, "hostId is required")
		return
	}
	if payload.Username == "" {
		payload.Username = payload.HostID
	}

	id, code, err := s.manager.CreateSession(game.PlayerID(payload.HostID), payload.Username)
	if err != nil {
		if _, ok := err.(*session.HostAlreadyHostingError); ok {
			fail(c, http.StatusConflict, err.Error())
			return
		}
		restLogger.Error().Msgf("Unable to create session. Error: %v", err)
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}

	if s.attacher != nil {
		if err := s.attacher.Attach(id); err != nil {
			restLogger.Warn().Str(logging.SessionIDKey, id).Msgf("Session is not reachable over NATS. Error: %v", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{"sessionId": id, "joinCode": code})
}

func (s *Server) joinSession(c *gin.Context) {
	sessionID := c.Query("sessionId")
	if sessionID == "" && c.Query("code") != "" {
		sessionID, _ = s.manager.UnwrapCode(strings.ToUpper(c.Query("code")))
	}
	userID := c.Query("userId")
	username := c.Query("username")
	if userID == "" {
		fail(c, http.StatusBadRequest, "userId is required")
		return
	}
	if username == "" {
		username = userID
	}
	sess, ok := s.manager.Session(sessionID)
	if !ok {
		fail(c, http.StatusNotFound, (&session.SessionNotFoundError{SessionID: sessionID}).Error())
		return
	}

	ws, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		restLogger.Warn().Str(logging.SessionIDKey, sessionID).Msgf("Websocket upgrade failed. Error: %v", err)
		return
	}
	conn := transport.NewWebsocketConnection(ws, game.PlayerID(userID), s.connQueueSize)
	if err := conn.Serve(c.Request.Context(), sess, username); err != nil {
		restLogger.Info().
			Str(logging.SessionIDKey, sessionID).
			Str(logging.PlayerIDKey, userID).
			Msgf("Join failed. Error: %v", err)
	}
}

func (s *Server) unwrapSessionCode(c *gin.Context) {
	type Payload struct {
		Code string `json:"code"`
	}
	var payload Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	id, _ := s.manager.UnwrapCode(strings.ToUpper(payload.Code))
	c.JSON(http.StatusOK, gin.H{"sessionId": id})
}

func (s *Server) sessionPlayers(c *gin.Context) {
	id := c.Param("id")
	sess, ok := s.manager.Session(id)
	if !ok {
		fail(c, http.StatusNotFound, (&session.SessionNotFoundError{SessionID: id}).Error())
		return
	}
	players, err := sess.Players(c.Request.Context())
	if err != nil {
		fail(c, http.StatusGone, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"players": players})
}

func (s *Server) saveDeck(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	format := deck.FormatJSON
	if strings.Contains(c.ContentType(), "yaml") {
		format = deck.FormatYAML
	}
	d, err := deck.Parse(body, format)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	deckstore.EnsureID(d)
	if err := s.decks.Save(d); err != nil {
		restLogger.Error().Str(logging.DeckIDKey, d.Meta.ID).Msgf("Unable to save deck. Error: %v", err)
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	restLogger.Info().Str(logging.DeckIDKey, d.Meta.ID).Msgf("Deck [%s] saved", d.Meta.DeckName)
	c.JSON(http.StatusOK, gin.H{"id": d.Meta.ID})
}

func (s *Server) listDecks(c *gin.Context) {
	summaries, err := s.decks.List()
	if err != nil {
		fail(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"decks": summaries})
}

func (s *Server) getDeck(c *gin.Context) {
	d, err := s.decks.Load(c.Param("id"))
	if err != nil {
		s.deckError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) removeDeck(c *gin.Context) {
	if err := s.decks.Remove(c.Param("id")); err != nil {
		s.deckError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) deckError(c *gin.Context, err error) {
	if _, ok := err.(deckstore.DeckNotFoundError); ok {
		fail(c, http.StatusNotFound, err.Error())
		return
	}
	fail(c, http.StatusInternalServerError, err.Error())
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": s.manager.ActiveSessions()})
}
