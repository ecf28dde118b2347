package session

import (
	"fmt"

	"github.com/pkg/errors"
)

const (
	ErrCodeParse         = "ParseError"
	ErrCodeNotHost       = "NotHost"
	ErrCodeNotAllowed    = "NotAllowed"
	ErrCodeNoDeck        = "NoDeck"
	ErrCodeWrongState    = "WrongState"
	ErrCodeUnknownOption = "UnknownOption"
	ErrCodeUnknownPlayer = "UnknownPlayer"
	ErrCodeDeckNotFound  = "DeckNotFound"
	ErrCodeSessionFull   = "SessionFull"
	ErrCodeTest          = "TestError"
)

var ErrSessionClosed = errors.New("Session is closed")
var ErrNilPacket = errors.New("Packet is nil")

type UnknownPacketError struct {
	Packet string
}

func (e *UnknownPacketError) Error() string {
	return fmt.Sprintf("Unknown packet [%s]", e.Packet)
}

type MissingFieldError struct {
	Packet string
	Field  string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("Packet %s requires field [%s]", e.Packet, e.Field)
}

type HostAlreadyHostingError struct {
	HostID    string
	SessionID string
}

func (e *HostAlreadyHostingError) Error() string {
	return fmt.Sprintf("Player [%s] already hosts session [%s]", e.HostID, e.SessionID)
}

type SessionNotFoundError struct {
	SessionID string
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("Session [%s] does not exist", e.SessionID)
}
