package entities

import (
	"sync"
	"time"
)

// PartyStatus represents the lifecycle of a party
type PartyStatus string

const (
	// PartyStatusLobby means the party is gathering members and has not started
	PartyStatusLobby PartyStatus = "lobby"

	// PartyStatusActive means the run is in progress and combat intents are accepted
	PartyStatusActive PartyStatus = "active"

	// PartyStatusGameOver means the party was wiped; the record stays readable
	// until everyone leaves but combat is halted
	PartyStatusGameOver PartyStatus = "game_over"
)

// EncounterState is the progression a party has made through the room
// sequence. Rooms is append-only, one entry per index reached, so
// CurrentRoomIndex < len(Rooms) always holds.
type EncounterState struct {
	CurrentRoomIndex int                     `json:"current_room_index"`
	Rooms            []*Room                 `json:"rooms"`
	Players          map[string]*PlayerState `json:"players"`
}

// Party is a group of connections sharing one encounter run. The registry
// hands out canonical pointers; every mutation happens under the party's own
// lock so intents for one party apply strictly in order while distinct
// parties never contend.
type Party struct {
	mu sync.Mutex

	Code      string         `json:"code"`
	HostID    string         `json:"host_id"`
	Members   []string       `json:"members"` // join order, also the host migration tie-break
	Status    PartyStatus    `json:"status"`
	Encounter EncounterState `json:"encounter"`
	CreatedAt time.Time      `json:"created_at"`
}

// NewParty creates a party in the lobby state with the host as its sole
// member, already facing the first room.
func NewParty(code, hostID string, firstRoom *Room) *Party {
	p := &Party{
		Code:      code,
		HostID:    hostID,
		Status:    PartyStatusLobby,
		CreatedAt: time.Now(),
		Encounter: EncounterState{
			Rooms:   []*Room{firstRoom},
			Players: make(map[string]*PlayerState),
		},
	}
	p.AddMember(hostID)
	return p
}

// Lock serializes mutations of this party
func (p *Party) Lock() { p.mu.Lock() }

// Unlock releases the party lock
func (p *Party) Unlock() { p.mu.Unlock() }

// AddMember appends a member in join order and creates its player state.
// Adding an existing member is a no-op returning the existing state.
func (p *Party) AddMember(id string) *PlayerState {
	if existing, ok := p.Encounter.Players[id]; ok {
		return existing
	}
	p.Members = append(p.Members, id)
	state := NewPlayerState(id)
	p.Encounter.Players[id] = state
	return state
}

// RemoveMember removes a member and its player state, reporting whether the
// member was present. Removing twice is a no-op.
func (p *Party) RemoveMember(id string) bool {
	for i, m := range p.Members {
		if m == id {
			p.Members = append(p.Members[:i], p.Members[i+1:]...)
			delete(p.Encounter.Players, id)
			return true
		}
	}
	return false
}

// IsMember reports whether the connection is currently in the party
func (p *Party) IsMember(id string) bool {
	_, ok := p.Encounter.Players[id]
	return ok
}

// MemberCount returns the current number of members
func (p *Party) MemberCount() int {
	return len(p.Members)
}

// Player returns the player state for a member, nil for non-members
func (p *Party) Player(id string) *PlayerState {
	return p.Encounter.Players[id]
}

// CurrentRoom returns the room the party is facing
func (p *Party) CurrentRoom() *Room {
	return p.Encounter.Rooms[p.Encounter.CurrentRoomIndex]
}

// AdvanceRoom appends the next room and moves the party into it. The append
// happens first so the room-index invariant never breaks.
func (p *Party) AdvanceRoom(next *Room) {
	p.Encounter.Rooms = append(p.Encounter.Rooms, next)
	p.Encounter.CurrentRoomIndex++
}

// AllDown reports whether every current member is at zero health. An empty
// party is not a wipe; it is a disband.
func (p *Party) AllDown() bool {
	if len(p.Members) == 0 {
		return false
	}
	for _, id := range p.Members {
		if state := p.Encounter.Players[id]; state != nil && !state.IsDown() {
			return false
		}
	}
	return true
}

// MembersCopy returns the member list in join order, safe to hand out
func (p *Party) MembersCopy() []string {
	return append([]string(nil), p.Members...)
}

// StatsSnapshot copies per-player statistics for the game-over report
func (p *Party) StatsSnapshot() map[string]PlayerState {
	out := make(map[string]PlayerState, len(p.Encounter.Players))
	for id, state := range p.Encounter.Players {
		out[id] = *state
	}
	return out
}
