package util

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"partydeck.io/server/logging"
)

var environmentLogger = logging.GetZeroLogger("util::environment", nil)

type environment struct {
	ListenAddr       string
	LogLevel         string
	PersistMethod    string
	RedisHost        string
	RedisPort        string
	RedisPW          string
	RedisDB          string
	NatsURL          string
	DecksDir         string
	SessionQueueSize string
	ConnQueueSize    string
}

// Env is a helper object for accessing environment variables.
var Env = &environment{
	ListenAddr:       "LISTEN_ADDR",
	LogLevel:         "LOG_LEVEL",
	PersistMethod:    "PERSIST_METHOD",
	RedisHost:        "REDIS_HOST",
	RedisPort:        "REDIS_PORT",
	RedisPW:          "REDIS_PW",
	RedisDB:          "REDIS_DB",
	NatsURL:          "NATS_URL",
	DecksDir:         "DECKS_DIR",
	SessionQueueSize: "SESSION_QUEUE_SIZE",
	ConnQueueSize:    "CONN_QUEUE_SIZE",
}

func (e *environment) GetListenAddr() string {
	v := os.Getenv(e.ListenAddr)
	if v == "" {
		return ":8080"
	}
	return v
}

func (e *environment) GetLogLevel() string {
	v := os.Getenv(e.LogLevel)
	if v == "" {
		defaultVal := "info"
		environmentLogger.Warn().Msgf("%s is not defined. Using default %s", e.LogLevel, defaultVal)
		return defaultVal
	}
	return v
}

func (e *environment) GetZeroLogLogLevel() zerolog.Level {
	l := e.GetLogLevel()
	switch strings.ToLower(l) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		fallthrough
	case "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled":
		return zerolog.Disabled
	default:
		panic(fmt.Sprintf("Unsupported %s: %s", e.LogLevel, l))
	}
}

func (e *environment) GetPersistMethod() string {
	method := os.Getenv(e.PersistMethod)
	if method == "" {
		return "memory"
	}
	return strings.ToLower(method)
}

func (e *environment) GetRedisHost() string {
	host := os.Getenv(e.RedisHost)
	if host == "" {
		msg := fmt.Sprintf("%s is not defined", e.RedisHost)
		environmentLogger.Error().Msg(msg)
		panic(msg)
	}
	return host
}

func (e *environment) GetRedisPort() int {
	portStr := os.Getenv(e.RedisPort)
	if portStr == "" {
		return 6379
	}
	portNum, err := strconv.Atoi(portStr)
	if err != nil {
		msg := fmt.Sprintf("Invalid Redis port %s", portStr)
		environmentLogger.Error().Msg(msg)
		panic(msg)
	}
	return portNum
}

func (e *environment) GetRedisPW() string {
	return os.Getenv(e.RedisPW)
}

func (e *environment) GetRedisDB() int {
	dbStr := os.Getenv(e.RedisDB)
	if dbStr == "" {
		return 0
	}
	dbNum, err := strconv.Atoi(dbStr)
	if err != nil {
		msg := fmt.Sprintf("Invalid Redis db %s", dbStr)
		environmentLogger.Error().Msg(msg)
		panic(msg)
	}
	return dbNum
}

// GetNatsURL returns an empty string when the NATS adapter is disabled.
func (e *environment) GetNatsURL() string {
	return os.Getenv(e.NatsURL)
}

func (e *environment) GetDecksDir() string {
	return os.Getenv(e.DecksDir)
}

func (e *environment) GetSessionQueueSize() int {
	return e.getPositiveInt(e.SessionQueueSize, 64)
}

func (e *environment) GetConnQueueSize() int {
	return e.getPositiveInt(e.ConnQueueSize, 32)
}

func (e *environment) getPositiveInt(name string, defaultVal int) int {
	s := os.Getenv(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		msg := fmt.Sprintf("Invalid positive integer [%s] for %s", s, name)
		environmentLogger.Error().Msg(msg)
		panic(msg)
	}
	return v
}
