package caching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinCodeCache(t *testing.T) {
	c, err := NewJoinCodeCache(10)
	require.NoError(t, err)

	require.NoError(t, c.Add("session-1", "ABC123"))
	code, ok := c.SessionIDToCode("session-1")
	assert.True(t, ok)
	assert.Equal(t, "ABC123", code)
	id, ok := c.CodeToSessionID("ABC123")
	assert.True(t, ok)
	assert.Equal(t, "session-1", id)

	c.Remove("session-1")
	_, ok = c.SessionIDToCode("session-1")
	assert.False(t, ok)
	_, ok = c.CodeToSessionID("ABC123")
	assert.False(t, ok)

	c.Remove("never-added")
}

func TestJoinCodeCacheInvalidInput(t *testing.T) {
	c, err := NewJoinCodeCache(10)
	require.NoError(t, err)
	assert.Error(t, c.Add("", "ABC123"))
	assert.Error(t, c.Add("session-1", ""))

	_, err = NewJoinCodeCache(0)
	assert.Error(t, err)
}

func TestJoinCodeCacheEvicts(t *testing.T) {
	c, err := NewJoinCodeCache(2)
	require.NoError(t, err)
	require.NoError(t, c.Add("s1", "C1"))
	require.NoError(t, c.Add("s2", "C2"))
	require.NoError(t, c.Add("s3", "C3"))
	_, ok := c.CodeToSessionID("C1")
	assert.False(t, ok)
	_, ok = c.CodeToSessionID("C3")
	assert.True(t, ok)
}
