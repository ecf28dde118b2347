package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRosterAddRemove(t *testing.T) {
	r := rosterOf("ann", "bob", "cid")
	assert.False(t, r.Add(Player{ID: "bob", Username: "bobby"}))
	assert.Equal(t, 3, r.Len())

	assert.Equal(t, 1, r.Remove("bob"))
	assert.Equal(t, -1, r.Remove("bob"))
	assert.Equal(t, []PlayerID{"ann", "cid"}, r.IDs())
	assert.Equal(t, []string{"ann", "cid"}, r.Usernames())
}

func TestRosterSetHost(t *testing.T) {
	r := rosterOf("ann", "bob")
	host, ok := r.Host()
	assert.True(t, ok)
	assert.Equal(t, PlayerID("ann"), host.ID)

	assert.True(t, r.SetHost("bob"))
	assert.False(t, r.SetHost("zed"))
	host, _ = r.Host()
	assert.Equal(t, PlayerID("bob"), host.ID)
	ann, _ := r.Get("ann")
	assert.False(t, ann.IsHost)
}

func TestRosterPlayersIsACopy(t *testing.T) {
	r := rosterOf("ann")
	players := r.Players()
	players[0].Username = "changed"
	p, _ := r.Get("ann")
	assert.Equal(t, "ann", p.Username)
}
