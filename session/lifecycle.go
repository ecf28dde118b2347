package session

import (
	"github.com/looplab/fsm"
	"github.com/rs/zerolog"
)

const (
	SessionState__LOBBY    = "lobby"
	SessionState__PREGAME  = "pregame"
	SessionState__GAME     = "game"
	SessionState__POSTGAME = "postgame"
)

const (
	SessionEvent__SET_DECK   = "set-deck"
	SessionEvent__START_GAME = "start-game"
	SessionEvent__END_GAME   = "end-game"
	SessionEvent__RESET      = "reset"
)

func newLifecycle(logger *zerolog.Logger) *fsm.FSM {
	return fsm.NewFSM(
		SessionState__LOBBY,
		fsm.Events{
			{
				Name: SessionEvent__SET_DECK,
				Src:  []string{SessionState__LOBBY},
				Dst:  SessionState__PREGAME,
			},
			{
				Name: SessionEvent__START_GAME,
				Src:  []string{SessionState__PREGAME},
				Dst:  SessionState__GAME,
			},
			{
				Name: SessionEvent__END_GAME,
				Src:  []string{SessionState__GAME},
				Dst:  SessionState__POSTGAME,
			},
			{
				Name: SessionEvent__RESET,
				Src:  []string{SessionState__PREGAME, SessionState__POSTGAME},
				Dst:  SessionState__LOBBY,
			},
		},
		fsm.Callbacks{
			"enter_state": func(e *fsm.Event) {
				logger.Debug().Msgf("[%s] ===> [%s]", e.Src, e.Dst)
			},
		},
	)
}
