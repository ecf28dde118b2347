package game

type PlayerID string

type Player struct {
	ID       PlayerID `json:"id"`
	Username string   `json:"username"`
	IsHost   bool     `json:"isHost"`
}

// Roster is the ordered player list of a session. The session owns it and
// hands it to the engine on every call that needs it.
type Roster struct {
	players []Player
}

func NewRoster() *Roster {
	return &Roster{players: make([]Player, 0)}
}

func (r *Roster) Len() int {
	return len(r.players)
}

// Players returns a copy of the roster in turn order.
func (r *Roster) Players() []Player {
	players := make([]Player, len(r.players))
	copy(players, r.players)
	return players
}

func (r *Roster) IDs() []PlayerID {
	ids := make([]PlayerID, 0, len(r.players))
	for _, p := range r.players {
		ids = append(ids, p.ID)
	}
	return ids
}

func (r *Roster) Usernames() []string {
	names := make([]string, 0, len(r.players))
	for _, p := range r.players {
		names = append(names, p.Username)
	}
	return names
}

func (r *Roster) At(idx int) (Player, bool) {
	if idx < 0 || idx >= len(r.players) {
		return Player{}, false
	}
	return r.players[idx], true
}

func (r *Roster) IndexOf(id PlayerID) int {
	for i, p := range r.players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (r *Roster) Contains(id PlayerID) bool {
	return r.IndexOf(id) >= 0
}

func (r *Roster) Get(id PlayerID) (Player, bool) {
	return r.At(r.IndexOf(id))
}

// Add appends the player. It returns false if the id is already present.
func (r *Roster) Add(p Player) bool {
	if r.Contains(p.ID) {
		return false
	}
	r.players = append(r.players, p)
	return true
}

// Remove drops the player and returns the index it had, or -1.
func (r *Roster) Remove(id PlayerID) int {
	idx := r.IndexOf(id)
	if idx < 0 {
		return -1
	}
	r.players = append(r.players[:idx], r.players[idx+1:]...)
	return idx
}

// SetHost makes id the only host. Returns false if id is not in the roster.
func (r *Roster) SetHost(id PlayerID) bool {
	if !r.Contains(id) {
		return false
	}
	for i := range r.players {
		r.players[i].IsHost = r.players[i].ID == id
	}
	return true
}

func (r *Roster) Host() (Player, bool) {
	for _, p := range r.players {
		if p.IsHost {
			return p, true
		}
	}
	return Player{}, false
}
