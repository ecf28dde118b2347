package caching

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
)

const DefaultJoinCodeCacheSize = 100000

// JoinCodeCache maps session ids to their join codes and back.
type JoinCodeCache struct {
	sessionIDToCode *lru.Cache
	codeToSessionID *lru.Cache
}

func NewJoinCodeCache(size int) (*JoinCodeCache, error) {
	sessionIDToCode, err := lru.New(size)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to initialize sessionIDToCode cache")
	}
	codeToSessionID, err := lru.New(size)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to initialize codeToSessionID cache")
	}
	return &JoinCodeCache{
		sessionIDToCode: sessionIDToCode,
		codeToSessionID: codeToSessionID,
	}, nil
}

func (c *JoinCodeCache) Add(sessionID string, joinCode string) error {
	if sessionID == "" {
		return fmt.Errorf("Invalid session ID [%s]", sessionID)
	} else if joinCode == "" {
		return fmt.Errorf("Invalid join code [%s]", joinCode)
	}

	c.sessionIDToCode.Add(sessionID, joinCode)
	c.codeToSessionID.Add(joinCode, sessionID)
	return nil
}

func (c *JoinCodeCache) SessionIDToCode(sessionID string) (string, bool) {
	v, exists := c.sessionIDToCode.Get(sessionID)
	if !exists {
		return "", false
	}
	return v.(string), true
}

func (c *JoinCodeCache) CodeToSessionID(joinCode string) (string, bool) {
	v, exists := c.codeToSessionID.Get(joinCode)
	if !exists {
		return "", false
	}
	return v.(string), true
}

func (c *JoinCodeCache) Remove(sessionID string) {
	code, exists := c.SessionIDToCode(sessionID)
	c.sessionIDToCode.Remove(sessionID)
	if exists {
		c.codeToSessionID.Remove(code)
	}
}
