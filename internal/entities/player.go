package entities

const (
	// DefaultPlayerHealth is the health every player starts a run with
	DefaultPlayerHealth = 100

	startingLevel = 1
)

// PlayerState tracks one party member's combat state for the length of a run.
// A player at zero health stays in the party for statistics and wipe
// detection but stops being a valid target.
type PlayerState struct {
	ID          string `json:"id"`
	Health      int    `json:"health"`
	MaxHealth   int    `json:"max_health"`
	Level       int    `json:"level"`
	Kills       int    `json:"kills"`
	DamageDealt int    `json:"damage_dealt"`
}

// NewPlayerState creates a fresh player state at full health
func NewPlayerState(id string) *PlayerState {
	return &PlayerState{
		ID:        id,
		Health:    DefaultPlayerHealth,
		MaxHealth: DefaultPlayerHealth,
		Level:     startingLevel,
	}
}

// ApplyDamage reduces health, clamped at zero, and reports whether this blow
// downed the player (a transition from alive to zero health).
func (p *PlayerState) ApplyDamage(amount int) bool {
	if amount < 0 {
		amount = 0
	}
	wasUp := p.Health > 0
	p.Health -= amount
	if p.Health < 0 {
		p.Health = 0
	}
	return wasUp && p.Health == 0
}

// Heal restores health, clamped at max health
func (p *PlayerState) Heal(amount int) {
	if amount < 0 {
		return
	}
	p.Health += amount
	if p.Health > p.MaxHealth {
		p.Health = p.MaxHealth
	}
}

// IsDown reports whether the player is at zero health
func (p *PlayerState) IsDown() bool {
	return p.Health <= 0
}
