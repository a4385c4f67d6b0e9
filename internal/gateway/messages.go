package gateway

import (
	"encoding/json"
	"fmt"

	"bossrush/internal/events"
)

// Envelope frames every message in both directions: a type tag plus an
// opaque payload decoded per type
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Inbound intent types
const (
	intentHostParty     = "host-party"
	intentJoinParty     = "join-party"
	intentStartGame     = "start-game"
	intentPlayerMove    = "player-move"
	intentPlayerAttack  = "player-attack"
	intentPlayerDamaged = "player-damaged"
	intentCollectLoot   = "collect-loot"
)

type joinPartyIntent struct {
	Code string `json:"code"`
}

type startGameIntent struct {
	Code string `json:"code"`
}

type playerMoveIntent struct {
	Position json.RawMessage `json:"position,omitempty"`
	Rotation json.RawMessage `json:"rotation,omitempty"`
	Action   string          `json:"action,omitempty"`
}

type playerAttackIntent struct {
	TargetID   string `json:"target_id"`
	TargetKind string `json:"target_kind"`
	Damage     int    `json:"damage"`
	Hit        bool   `json:"hit"`
}

type playerDamagedIntent struct {
	Amount int `json:"amount"`
}

type collectLootIntent struct {
	LootID string `json:"loot_id"`
}

// encodeEvent wraps an outbound event in its typed envelope
func encodeEvent(event events.Event) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: string(event.EventType()), Data: data})
}

// decodeEnvelope parses an inbound frame; anything without a type tag is
// malformed and gets dropped upstream
func decodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	if env.Type == "" {
		return nil, fmt.Errorf("missing message type")
	}
	return &env, nil
}
