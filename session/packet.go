package session

import (
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"partydeck.io/server/deck"
	"partydeck.io/server/game"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	PacketSetDeck              = "SetDeck"
	PacketLoadDeck             = "LoadDeck"
	PacketStartGame            = "StartGame"
	PacketPlayerLeft           = "PlayerLeft"
	PacketPlayerDoneChoice     = "PlayerDoneChoice"
	PacketPlayerDone           = "PlayerDone"
	PacketCloseSession         = "CloseSession"
	PacketFinishGame           = "FinishGame"
	PacketGetPlayers           = "GetPlayers"
	PacketTestPacketWithString = "TestPacketWithString"
	PacketTestError            = "TestError"
	packetJoin                 = "Join"
)

// Packet is a request handled by a session worker.
type Packet interface {
	PacketName() string
}

type SetDeckPacket struct {
	Deck *deck.Deck
}

type LoadDeckPacket struct {
	DeckID string
}

type StartGamePacket struct{}

type PlayerLeftPacket struct {
	ID game.PlayerID
}

type PlayerDoneChoicePacket struct {
	Chosen string
}

type PlayerDonePacket struct{}

type CloseSessionPacket struct{}

type FinishGamePacket struct{}

type GetPlayersPacket struct{}

type TestPacketWithStringPacket struct {
	String string
}

type TestErrorPacket struct{}

// joinPacket registers a connection and adds its player if new.
type joinPacket struct {
	player game.Player
}

func (SetDeckPacket) PacketName() string              { return PacketSetDeck }
func (LoadDeckPacket) PacketName() string             { return PacketLoadDeck }
func (StartGamePacket) PacketName() string            { return PacketStartGame }
func (PlayerLeftPacket) PacketName() string           { return PacketPlayerLeft }
func (PlayerDoneChoicePacket) PacketName() string     { return PacketPlayerDoneChoice }
func (PlayerDonePacket) PacketName() string           { return PacketPlayerDone }
func (CloseSessionPacket) PacketName() string         { return PacketCloseSession }
func (FinishGamePacket) PacketName() string           { return PacketFinishGame }
func (GetPlayersPacket) PacketName() string           { return PacketGetPlayers }
func (TestPacketWithStringPacket) PacketName() string { return PacketTestPacketWithString }
func (TestErrorPacket) PacketName() string            { return PacketTestError }
func (joinPacket) PacketName() string                 { return packetJoin }

type packetWire struct {
	Packet string              `json:"packet"`
	Deck   jsoniter.RawMessage `json:"deck,omitempty"`
	DeckID string              `json:"deckId,omitempty"`
	ID     string              `json:"id,omitempty"`
	Chosen string              `json:"chosen,omitempty"`
	String string              `json:"string,omitempty"`
}

// ParsePacket decodes a client packet envelope tagged on "packet".
func ParsePacket(data []byte) (Packet, error) {
	var w packetWire
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, errors.Wrap(err, "Malformed packet")
	}
	switch w.Packet {
	case PacketSetDeck:
		if len(w.Deck) == 0 {
			return nil, &MissingFieldError{Packet: w.Packet, Field: "deck"}
		}
		d, err := deck.Parse(w.Deck, deck.FormatJSON)
		if err != nil {
			return nil, errors.Wrap(err, "Invalid deck in SetDeck")
		}
		return SetDeckPacket{Deck: d}, nil
	case PacketLoadDeck:
		if w.DeckID == "" {
			return nil, &MissingFieldError{Packet: w.Packet, Field: "deckId"}
		}
		return LoadDeckPacket{DeckID: w.DeckID}, nil
	case PacketStartGame:
		return StartGamePacket{}, nil
	case PacketPlayerLeft:
		if w.ID == "" {
			return nil, &MissingFieldError{Packet: w.Packet, Field: "id"}
		}
		return PlayerLeftPacket{ID: game.PlayerID(w.ID)}, nil
	case PacketPlayerDoneChoice:
		if w.Chosen == "" {
			return nil, &MissingFieldError{Packet: w.Packet, Field: "chosen"}
		}
		return PlayerDoneChoicePacket{Chosen: w.Chosen}, nil
	case PacketPlayerDone:
		return PlayerDonePacket{}, nil
	case PacketCloseSession:
		return CloseSessionPacket{}, nil
	case PacketFinishGame:
		return FinishGamePacket{}, nil
	case PacketGetPlayers:
		return GetPlayersPacket{}, nil
	case PacketTestPacketWithString:
		return TestPacketWithStringPacket{String: w.String}, nil
	case PacketTestError:
		return TestErrorPacket{}, nil
	}
	return nil, &UnknownPacketError{Packet: w.Packet}
}

const (
	ResponseUpdateState   = "UpdateState"
	ResponseCardResult    = "CardResult"
	ResponseSessionClosed = "SessionClosed"
	ResponseGameFinished  = "GameFinished"
	ResponseParseError    = "ParseError"
	ResponseJoinOk        = "JoinOk"
)

// Response is everything a session sends to a client. Packet names the
// variant: "<Packet>Ok", "<Packet>Error" or one of the broadcast names.
type Response struct {
	Packet   string             `json:"packet"`
	Code     string             `json:"code,omitempty"`
	Message  string             `json:"message,omitempty"`
	Snapshot *game.GameSnapshot `json:"snapshot,omitempty"`
	Text     *string            `json:"text,omitempty"`
	Options  []game.CardOption  `json:"options,omitempty"`
	Players  []game.Player      `json:"players,omitempty"`
	PlayerID game.PlayerID      `json:"playerId,omitempty"`
	String   *string            `json:"string,omitempty"`
}

func okResponse(packet string) *Response {
	return &Response{Packet: packet + "Ok"}
}

func errorResponse(packet string, code string, message string) *Response {
	return &Response{Packet: packet + "Error", Code: code, Message: message}
}

// ParseErrorResponse builds the response for a packet that failed to parse.
func ParseErrorResponse(err error) *Response {
	return &Response{Packet: ResponseParseError, Code: ErrCodeParse, Message: err.Error()}
}

func EncodeResponse(r *Response) ([]byte, error) {
	return json.Marshal(r)
}

func DecodeResponse(data []byte) (*Response, error) {
	var r Response
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrap(err, "Malformed response")
	}
	return &r, nil
}
