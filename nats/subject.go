package nats

import (
	"fmt"
	"strings"
)

// session.<id>.player2session.<userId>
func GetPlayer2SessionSubject(sessionID string, userID string) string {
	return fmt.Sprintf("session.%s.player2session.%s", sessionID, userID)
}

// GetPlayer2SessionWildcard matches the inbound subject of every player.
func GetPlayer2SessionWildcard(sessionID string) string {
	return fmt.Sprintf("session.%s.player2session.*", sessionID)
}

// session.<id>.session2player.<userId>
func GetSession2PlayerSubject(sessionID string, userID string) string {
	return fmt.Sprintf("session.%s.session2player.%s", sessionID, userID)
}

// userIDFromSubject returns the last token of a player2session subject.
func userIDFromSubject(subject string) (string, bool) {
	tokens := strings.Split(subject, ".")
	if len(tokens) != 4 || tokens[0] != "session" || tokens[2] != "player2session" || tokens[3] == "" {
		return "", false
	}
	return tokens[3], true
}
