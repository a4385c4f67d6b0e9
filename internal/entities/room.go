package entities

// Boss phase thresholds as fractions of max health. Crossing one advances the
// phase; phases never go back down even if the boss is healed.
var bossPhaseThresholds = []float64{0.75, 0.50, 0.25}

// Boss is the gatekeeper of a room. Defeating it is the only way a party
// advances to the next room.
type Boss struct {
	ID        string `json:"id"`
	Archetype string `json:"archetype"`
	Health    int    `json:"health"`
	MaxHealth int    `json:"max_health"`
	Damage    int    `json:"damage"`
	Phase     int    `json:"phase"`
}

// ApplyDamage reduces boss health, clamped at zero, advancing the phase when
// a threshold is crossed. Returns the remaining health.
func (b *Boss) ApplyDamage(amount int) int {
	if amount < 0 {
		amount = 0
	}
	b.Health -= amount
	if b.Health < 0 {
		b.Health = 0
	}
	if phase := b.phaseForHealth(); phase > b.Phase {
		b.Phase = phase
	}
	return b.Health
}

func (b *Boss) phaseForHealth() int {
	phase := 1
	for _, threshold := range bossPhaseThresholds {
		if float64(b.Health) <= threshold*float64(b.MaxHealth) {
			phase++
		}
	}
	return phase
}

// IsDefeated reports whether the boss is at zero health
func (b *Boss) IsDefeated() bool {
	return b.Health <= 0
}

// Enemy is an ambient room occupant. The current generator never spawns any,
// but the combat resolver handles them so room content can grow without a
// protocol change.
type Enemy struct {
	ID        string `json:"id"`
	Archetype string `json:"archetype"`
	Health    int    `json:"health"`
	MaxHealth int    `json:"max_health"`
	Damage    int    `json:"damage"`
}

// ApplyDamage reduces enemy health, clamped at zero. Returns the remaining health.
func (e *Enemy) ApplyDamage(amount int) int {
	if amount < 0 {
		amount = 0
	}
	e.Health -= amount
	if e.Health < 0 {
		e.Health = 0
	}
	return e.Health
}

// IsDefeated reports whether the enemy is at zero health
func (e *Enemy) IsDefeated() bool {
	return e.Health <= 0
}

// LootKind identifies what collecting a piece of loot does
type LootKind string

const (
	// LootHealingDraught restores a fixed amount of health to the collector
	LootHealingDraught LootKind = "healing_draught"

	// LootGreaterDraught is the larger heal dropped in milestone rooms
	LootGreaterDraught LootKind = "greater_draught"
)

// Loot is a collectible item lying in a room
type Loot struct {
	ID     string   `json:"id"`
	Kind   LootKind `json:"kind"`
	Amount int      `json:"amount"`
}

// Room is one boss-gated stage of a run. Immutable after generation except
// for boss/enemy health and loot removal, which only the combat resolver
// touches.
type Room struct {
	Index     int      `json:"index"`
	Tier      int      `json:"tier"`
	Archetype string   `json:"archetype"`
	Boss      *Boss    `json:"boss,omitempty"`
	Enemies   []*Enemy `json:"enemies"`
	Loot      []*Loot  `json:"loot"`
}

// FindEnemy returns the living enemy with the given id, nil if absent
func (r *Room) FindEnemy(id string) *Enemy {
	for _, e := range r.Enemies {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// RemoveEnemy drops a defeated enemy from the room's target set
func (r *Room) RemoveEnemy(id string) bool {
	for i, e := range r.Enemies {
		if e.ID == id {
			r.Enemies = append(r.Enemies[:i], r.Enemies[i+1:]...)
			return true
		}
	}
	return false
}

// RemoveLoot takes a piece of loot out of the room, returning it, or nil if
// it was already collected
func (r *Room) RemoveLoot(id string) *Loot {
	for i, l := range r.Loot {
		if l.ID == id {
			r.Loot = append(r.Loot[:i], r.Loot[i+1:]...)
			return l
		}
	}
	return nil
}

// Cleared reports whether nothing hostile remains in the room
func (r *Room) Cleared() bool {
	return r.Boss == nil && len(r.Enemies) == 0
}
