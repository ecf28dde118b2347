package hashing

import (
	"hash/fnv"
	"math/rand"
	"strconv"
	"strings"

	"partydeck.io/server/logging"
)

var hashingLogger = logging.GetZeroLogger("util::hashing", nil)

const JoinCodeLength = 6

func GenerateUint32Hash(data string) uint32 {
	hash := fnv.New32a()
	_, err := hash.Write([]byte(data))
	if err != nil {
		hashingLogger.Warn().Msgf("Could not generate a uint32 hash from data (%s). Using a random number instead.", data)
		return rand.Uint32()
	}
	return hash.Sum32()
}

// GenerateJoinCode derives a short upper-case base-36 code from the session id.
// attempt is mixed into the hash so callers can re-roll on collision.
func GenerateJoinCode(sessionID string, attempt int) string {
	h := GenerateUint32Hash(sessionID + ":" + strconv.Itoa(attempt))
	code := strings.ToUpper(strconv.FormatUint(uint64(h), 36))
	if len(code) < JoinCodeLength {
		code = strings.Repeat("0", JoinCodeLength-len(code)) + code
	}
	return code[len(code)-JoinCodeLength:]
}
