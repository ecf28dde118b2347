package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	SessionIDKey    string = "sessionID"
	JoinCodeKey     string = "joinCode"
	PlayerIDKey     string = "playerID"
	PlayerNameKey   string = "playerName"
	PacketKey       string = "packet"
	ConnectionIDKey string = "connID"
	DeckIDKey       string = "deckID"
)

func getEnableColorLog() string {
	v := os.Getenv("COLORIZE_LOG")
	if v == "" {
		// Use colorized logging by default.
		return "true"
	}
	return v
}

func IsColorLoggingEnabled() bool {
	return getEnableColorLog() == "1" || strings.ToLower(getEnableColorLog()) == "true"
}

func GetZeroLogger(name string, out io.Writer) *zerolog.Logger {
	if out == nil {
		out = os.Stdout
	}
	noColor := !IsColorLoggingEnabled()
	output := zerolog.ConsoleWriter{Out: out, NoColor: noColor, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Str("logger", name).Logger()
	return &logger
}

// SessionLogger returns a child logger that stamps every entry with the session.
func SessionLogger(parent *zerolog.Logger, sessionID string, joinCode string) *zerolog.Logger {
	logger := parent.With().
		Str(SessionIDKey, sessionID).
		Str(JoinCodeKey, joinCode).
		Logger()
	return &logger
}
