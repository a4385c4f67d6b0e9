package events

import (
	"encoding/json"

	"bossrush/internal/entities"
)

// Type identifies an outbound event on the wire
type Type string

const (
	TypePartyHosted         Type = "party-hosted"
	TypeJoinSuccess         Type = "join-success"
	TypeJoinError           Type = "join-error"
	TypePlayerJoined        Type = "player-joined"
	TypePlayerLeft          Type = "player-left"
	TypeHostChanged         Type = "host-changed"
	TypeGameStarted         Type = "game-started"
	TypePlayerAttacked      Type = "player-attacked"
	TypePlayerMoved         Type = "player-moved"
	TypeBossHealthUpdated   Type = "boss-health-updated"
	TypeEnemyHealthUpdated  Type = "enemy-health-updated"
	TypeEnemyDefeated       Type = "enemy-defeated"
	TypeRoomCompleted       Type = "room-completed"
	TypePlayerHealthUpdated Type = "player-health-updated"
	TypePlayerDied          Type = "player-died"
	TypeGameOver            Type = "game-over"
	TypeLootCollected       Type = "loot-collected"
)

// Event is one server-to-client message. Implementations are plain payload
// structs; the gateway wraps them in a typed envelope before writing.
type Event interface {
	EventType() Type
}

// Publisher fans events out to a party's connections and tracks each party's
// broadcast group. The gateway implements it; services publish without
// knowing the transport. The party service updates group membership under
// the party lock, keeping the group equal to the member list at every
// broadcast. Implementations must encode and enqueue without blocking, since
// publishers hold party locks.
type Publisher interface {
	// JoinGroup adds a connection to a party's broadcast group
	JoinGroup(code, connectionID string)

	// LeaveGroup removes a connection from a party's broadcast group
	LeaveGroup(code, connectionID string)

	// Broadcast delivers the event to every connection joined to the party
	Broadcast(code string, event Event)

	// BroadcastExcept delivers the event to every connection joined to the
	// party except the named one
	BroadcastExcept(code, exceptID string, event Event)

	// SendTo delivers the event to a single connection
	SendTo(connectionID string, event Event)
}

// PartyHosted confirms party creation to the host
type PartyHosted struct {
	Code string `json:"code"`
}

func (PartyHosted) EventType() Type { return TypePartyHosted }

// JoinSuccess confirms a join to the joiner with the current roster
type JoinSuccess struct {
	Code    string   `json:"code"`
	HostID  string   `json:"host_id"`
	Members []string `json:"members"`
}

func (JoinSuccess) EventType() Type { return TypeJoinSuccess }

// JoinError tells the joiner why a join was rejected
type JoinError struct {
	Reason string `json:"reason"`
}

func (JoinError) EventType() Type { return TypeJoinError }

// PlayerJoined notifies existing members of a new member
type PlayerJoined struct {
	PlayerID string `json:"player_id"`
}

func (PlayerJoined) EventType() Type { return TypePlayerJoined }

// PlayerLeft notifies remaining members of a departure
type PlayerLeft struct {
	PlayerID string `json:"player_id"`
}

func (PlayerLeft) EventType() Type { return TypePlayerLeft }

// HostChanged announces the migration successor
type HostChanged struct {
	HostID string `json:"host_id"`
}

func (HostChanged) EventType() Type { return TypeHostChanged }

// GameStarted carries the full encounter snapshot to every member
type GameStarted struct {
	Encounter entities.EncounterState `json:"encounter"`
}

func (GameStarted) EventType() Type { return TypeGameStarted }

// PlayerAttacked relays an attack intent to the other members
type PlayerAttacked struct {
	AttackerID string `json:"attacker_id"`
	TargetID   string `json:"target_id"`
	TargetKind string `json:"target_kind"`
	Damage     int    `json:"damage"`
	Hit        bool   `json:"hit"`
}

func (PlayerAttacked) EventType() Type { return TypePlayerAttacked }

// PlayerMoved relays a movement intent verbatim to the other members. The
// payload is opaque to the server.
type PlayerMoved struct {
	PlayerID string          `json:"player_id"`
	Position json.RawMessage `json:"position,omitempty"`
	Rotation json.RawMessage `json:"rotation,omitempty"`
	Action   string          `json:"action,omitempty"`
}

func (PlayerMoved) EventType() Type { return TypePlayerMoved }

// BossHealthUpdated reports a surviving boss's health after a hit
type BossHealthUpdated struct {
	BossID string `json:"boss_id"`
	Health int    `json:"health"`
	Phase  int    `json:"phase"`
}

func (BossHealthUpdated) EventType() Type { return TypeBossHealthUpdated }

// EnemyHealthUpdated reports a surviving enemy's health after a hit
type EnemyHealthUpdated struct {
	EnemyID string `json:"enemy_id"`
	Health  int    `json:"health"`
}

func (EnemyHealthUpdated) EventType() Type { return TypeEnemyHealthUpdated }

// EnemyDefeated announces an enemy's removal from the room
type EnemyDefeated struct {
	EnemyID  string `json:"enemy_id"`
	KillerID string `json:"killer_id"`
}

func (EnemyDefeated) EventType() Type { return TypeEnemyDefeated }

// BossSummary is the defeated-boss portion of a room completion
type BossSummary struct {
	ID        string `json:"id"`
	Archetype string `json:"archetype"`
	KillerID  string `json:"killer_id"`
}

// RoomCompleted announces a room transition: the defeated gatekeeper (absent
// when an enemy-only room cleared out) and the newly generated room
type RoomCompleted struct {
	DefeatedBoss *BossSummary   `json:"defeated_boss,omitempty"`
	NewRoom      *entities.Room `json:"new_room"`
}

func (RoomCompleted) EventType() Type { return TypeRoomCompleted }

// PlayerHealthUpdated reports a member's health after taking damage or healing
type PlayerHealthUpdated struct {
	PlayerID string `json:"player_id"`
	Health   int    `json:"health"`
}

func (PlayerHealthUpdated) EventType() Type { return TypePlayerHealthUpdated }

// PlayerDied announces a member reaching zero health
type PlayerDied struct {
	PlayerID string `json:"player_id"`
}

func (PlayerDied) EventType() Type { return TypePlayerDied }

// GameOver ends the run with the rooms-cleared count and final statistics
type GameOver struct {
	RoomsCleared int                             `json:"rooms_cleared"`
	Stats        map[string]entities.PlayerState `json:"stats"`
}

func (GameOver) EventType() Type { return TypeGameOver }

// LootCollected announces a loot pickup and the collector's resulting health
type LootCollected struct {
	LootID      string            `json:"loot_id"`
	CollectorID string            `json:"collector_id"`
	Kind        entities.LootKind `json:"kind"`
	Health      int               `json:"health"`
}

func (LootCollected) EventType() Type { return TypeLootCollected }
