package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"partydeck.io/server/deck"
	"partydeck.io/server/deckstore"
	"partydeck.io/server/logging"
	"partydeck.io/server/nats"
	"partydeck.io/server/rest"
	"partydeck.io/server/session"
	"partydeck.io/server/util"
)

var runServer *bool
var decksDir *string
var checkDeck *string
var mainLogger = logging.GetZeroLogger("main::main", nil)

const shutdownTimeout = 10 * time.Second

func init() {
	runServer = flag.Bool("server", true, "runs the session server")
	decksDir = flag.String("decks", "", "directory of deck documents to preload (overrides DECKS_DIR)")
	checkDeck = flag.String("check-deck", "", "parses a deck document, prints a summary and exits")
}

func main() {
	err := run()
	if err != nil {
		mainLogger.Error().Msg(err.Error())
		os.Exit(1)
	}
}

func run() error {
	logLevel := util.Env.GetZeroLogLogLevel()
	fmt.Printf("Setting log level to %s\n", logLevel)
	zerolog.SetGlobalLevel(logLevel)
	flag.Parse()

	if *checkDeck != "" {
		return printDeck(*checkDeck)
	}
	if !*runServer {
		return nil
	}

	store, err := newDeckStore()
	if err != nil {
		return err
	}

	dir := *decksDir
	if dir == "" {
		dir = util.Env.GetDecksDir()
	}
	if dir != "" {
		if err := preloadDecks(store, dir); err != nil {
			return err
		}
	}

	manager, err := session.NewManager(store, util.Env.GetSessionQueueSize())
	if err != nil {
		return errors.Wrap(err, "Error while creating session manager")
	}

	var attacher rest.SessionAttacher
	if natsURL := util.Env.GetNatsURL(); natsURL != "" {
		mainLogger.Info().Msgf("NATS URL: %s", natsURL)
		nc, err := natsgo.Connect(natsURL, natsgo.Name("partydeck"))
		if err != nil {
			return errors.Wrap(err, "Error connecting to NATS server")
		}
		defer nc.Close()
		bridge := nats.NewSessionBridge(nc, manager)
		defer bridge.Close()
		attacher = bridge
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := rest.NewServer(manager, store, attacher, util.Env.GetConnQueueSize())
	serveErr := rest.RunRestServer(ctx, util.Env.GetListenAddr(), server)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := manager.Shutdown(shutdownCtx); err != nil {
		mainLogger.Error().Msgf("Sessions did not shut down cleanly: %v", err)
	}
	return serveErr
}

func newDeckStore() (deckstore.PersistDeck, error) {
	method := util.Env.GetPersistMethod()
	switch method {
	case "memory":
		return deckstore.NewMemoryDeckStore(), nil
	case "redis":
		addr := fmt.Sprintf("%s:%d", util.Env.GetRedisHost(), util.Env.GetRedisPort())
		store := deckstore.NewRedisDeckStore(addr, util.Env.GetRedisPW(), util.Env.GetRedisDB())
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			return nil, errors.Wrapf(err, "Unable to reach redis at %s", addr)
		}
		return store, nil
	}
	return nil, fmt.Errorf("Unsupported %s [%s]", util.Env.PersistMethod, method)
}

func preloadDecks(store deckstore.PersistDeck, dir string) error {
	decks, err := deck.LoadDir(dir)
	if err != nil {
		return errors.Wrap(err, "Error while loading decks")
	}
	if err := deckstore.Preload(store, decks); err != nil {
		return err
	}
	for _, d := range decks {
		mainLogger.Info().Str(logging.DeckIDKey, d.Meta.ID).Msgf("Loaded deck [%s] with %d cards", d.Meta.DeckName, len(d.Cards))
	}
	return nil
}

func printDeck(path string) error {
	d, err := deck.LoadFile(path)
	if err != nil {
		return err
	}
	b := deck.Compile(d)
	fmt.Printf("id:         %s\n", b.Meta.ID)
	fmt.Printf("name:       %s\n", b.Meta.DeckName)
	fmt.Printf("cards:      %d\n", len(b.Cards))
	fmt.Printf("tables:     %d\n", len(b.Tables))
	fmt.Printf("states:     %d\n", len(b.States))
	fmt.Printf("scoreboard: %s by %s\n", b.Scoreboard.StateIdent, b.Scoreboard.Condition)
	return nil
}
