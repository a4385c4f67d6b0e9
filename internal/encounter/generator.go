package encounter

import (
	"fmt"

	"bossrush/internal/entities"
)

// Room archetypes by tier; index/3 walks this list and sticks at the last entry.
var roomArchetypes = []string{
	"collapsed_shrine",
	"flooded_catacombs",
	"ember_foundry",
	"howling_keep",
	"starless_throne",
}

type bossArchetype struct {
	name       string
	baseHealth int
	baseDamage int
}

// Boss archetypes by tier; index/5 walks this list.
var bossArchetypes = []bossArchetype{
	{name: "bonewarden", baseHealth: 80, baseDamage: 8},
	{name: "rotpriest", baseHealth: 140, baseDamage: 12},
	{name: "ashdrake", baseHealth: 220, baseDamage: 18},
	{name: "the_hollow_king", baseHealth: 320, baseDamage: 26},
}

const (
	roomsPerTier     = 3
	roomsPerBossTier = 5

	healthPerTier = 40
	damagePerTier = 6

	draughtHeal        = 25
	greaterDraughtHeal = 60
)

// GenerateRoom maps a room index to a fully populated room. It is pure: the
// same index always yields the same archetypes, stats, and loot, which is
// what lets tests and post-migration recovery rebuild state from the index
// alone.
func GenerateRoom(index int) *entities.Room {
	roomTier := min(index/roomsPerTier, len(roomArchetypes)-1)
	bossTier := min(index/roomsPerBossTier, len(bossArchetypes)-1)

	arch := bossArchetypes[bossTier]
	boss := &entities.Boss{
		ID:        fmt.Sprintf("boss-%d", index),
		Archetype: arch.name,
		MaxHealth: arch.baseHealth + bossTier*healthPerTier,
		Damage:    arch.baseDamage + bossTier*damagePerTier,
		Phase:     1,
	}
	boss.Health = boss.MaxHealth

	loot := []*entities.Loot{
		{
			ID:     fmt.Sprintf("loot-%d-0", index),
			Kind:   entities.LootHealingDraught,
			Amount: draughtHeal,
		},
	}
	if index > 0 && index%roomsPerBossTier == 0 {
		loot = append(loot, &entities.Loot{
			ID:     fmt.Sprintf("loot-%d-1", index),
			Kind:   entities.LootGreaterDraught,
			Amount: greaterDraughtHeal,
		})
	}

	// Every room is a boss gate. The enemy list stays empty under the current
	// generation policy; the slot exists so ambient enemies can be added
	// without touching the combat resolver.
	return &entities.Room{
		Index:     index,
		Tier:      roomTier,
		Archetype: roomArchetypes[roomTier],
		Boss:      boss,
		Enemies:   []*entities.Enemy{},
		Loot:      loot,
	}
}
