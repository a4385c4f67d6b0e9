package combat_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bossrush/internal/entities"
	apperr "bossrush/internal/errors"
	"bossrush/internal/events"
	"bossrush/internal/repositories/parties"
	combatService "bossrush/internal/services/combat"
	"bossrush/internal/testutils"
)

type combatFixture struct {
	service   combatService.Service
	repo      parties.Repository
	publisher *testutils.RecordingPublisher
	party     *entities.Party
}

// newActiveFixture builds a two-member party already in combat against the
// first generated room.
func newActiveFixture(t *testing.T) *combatFixture {
	t.Helper()

	repo := parties.NewInMemoryRepository()
	publisher := testutils.NewRecordingPublisher()
	svc := combatService.NewService(&combatService.ServiceConfig{
		Repository: repo,
		Publisher:  publisher,
	})

	party := entities.NewParty("AAAAAA", "host", firstRoom())
	party.AddMember("conn-2")
	party.Status = entities.PartyStatusActive
	require.NoError(t, repo.Create(context.Background(), party))

	return &combatFixture{service: svc, repo: repo, publisher: publisher, party: party}
}

func firstRoom() *entities.Room {
	return &entities.Room{
		Index:     0,
		Archetype: "collapsed_shrine",
		Boss: &entities.Boss{
			ID:        "boss-0",
			Archetype: "bonewarden",
			Health:    80,
			MaxHealth: 80,
			Damage:    8,
			Phase:     1,
		},
		Enemies: []*entities.Enemy{},
		Loot: []*entities.Loot{
			{ID: "loot-0-0", Kind: entities.LootHealingDraught, Amount: 25},
		},
	}
}

func bossAttack(target string, damage int, hit bool) *combatService.AttackInput {
	return &combatService.AttackInput{
		TargetID:   target,
		TargetKind: combatService.TargetBoss,
		Damage:     damage,
		Hit:        hit,
	}
}

func TestService_Attack_Boss(t *testing.T) {
	ctx := context.Background()

	t.Run("hit relays and updates boss health", func(t *testing.T) {
		f := newActiveFixture(t)
		require.NoError(t, f.service.Attack(ctx, "AAAAAA", "host", bossAttack("boss-0", 30, true)))

		relayed := f.publisher.ByType(events.TypePlayerAttacked)
		require.Len(t, relayed, 1)
		assert.Equal(t, "host", relayed[0].ExceptID, "the attacker animated locally already")
		assert.Equal(t, events.PlayerAttacked{
			AttackerID: "host",
			TargetID:   "boss-0",
			TargetKind: "boss",
			Damage:     30,
			Hit:        true,
		}, relayed[0].Event)

		updated := f.publisher.ByType(events.TypeBossHealthUpdated)
		require.Len(t, updated, 1)
		assert.Equal(t, events.BossHealthUpdated{BossID: "boss-0", Health: 50, Phase: 2}, updated[0].Event)

		assert.Equal(t, 30, f.party.Player("host").DamageDealt)
	})

	t.Run("miss relays without touching state", func(t *testing.T) {
		f := newActiveFixture(t)
		require.NoError(t, f.service.Attack(ctx, "AAAAAA", "host", bossAttack("boss-0", 30, false)))

		assert.Len(t, f.publisher.ByType(events.TypePlayerAttacked), 1)
		assert.Empty(t, f.publisher.ByType(events.TypeBossHealthUpdated))
		assert.Equal(t, 80, f.party.CurrentRoom().Boss.Health)
		assert.Equal(t, 0, f.party.Player("host").DamageDealt)
	})

	t.Run("killing blow completes the room", func(t *testing.T) {
		f := newActiveFixture(t)
		require.NoError(t, f.service.Attack(ctx, "AAAAAA", "host", bossAttack("boss-0", 200, true)))

		completed := f.publisher.ByType(events.TypeRoomCompleted)
		require.Len(t, completed, 1)
		payload := completed[0].Event.(events.RoomCompleted)
		require.NotNil(t, payload.DefeatedBoss)
		assert.Equal(t, "boss-0", payload.DefeatedBoss.ID)
		assert.Equal(t, "host", payload.DefeatedBoss.KillerID)
		require.NotNil(t, payload.NewRoom)
		assert.Equal(t, 1, payload.NewRoom.Index)

		assert.Equal(t, 1, f.party.Encounter.CurrentRoomIndex)
		assert.Equal(t, 1, f.party.Player("host").Kills)
		// Overkill damage past zero is not credited.
		assert.Equal(t, 80, f.party.Player("host").DamageDealt)
		assert.Empty(t, f.publisher.ByType(events.TypeBossHealthUpdated),
			"a killing blow reports room completion, not a health update")
	})

	t.Run("stale attack against the defeated boss drops", func(t *testing.T) {
		f := newActiveFixture(t)
		require.NoError(t, f.service.Attack(ctx, "AAAAAA", "host", bossAttack("boss-0", 200, true)))
		f.publisher.Reset()

		// conn-2's frame was in flight when the room advanced.
		err := f.service.Attack(ctx, "AAAAAA", "conn-2", bossAttack("boss-0", 30, true))
		require.Error(t, err)
		assert.True(t, apperr.IsNotFound(err))
		assert.Empty(t, f.publisher.Events(), "stale attacks must not even relay")
		assert.Equal(t, 1, f.party.Encounter.CurrentRoomIndex)
	})

	t.Run("concurrent lethal hits advance the room exactly once", func(t *testing.T) {
		f := newActiveFixture(t)

		var wg sync.WaitGroup
		start := make(chan struct{})

		for _, id := range []string{"host", "conn-2"} {
			id := id
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				// Whichever hit lands second finds the boss gone and drops.
				_ = f.service.Attack(ctx, "AAAAAA", id, bossAttack("boss-0", 200, true))
			}()
		}

		// Membership churn on the same party while the hits land.
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for i := 0; i < 200; i++ {
				f.party.Lock()
				f.party.AddMember("drifter")
				f.party.RemoveMember("drifter")
				f.party.Unlock()
			}
		}()

		close(start)
		wg.Wait()

		completed := f.publisher.ByType(events.TypeRoomCompleted)
		require.Len(t, completed, 1)
		assert.Equal(t, 1, f.party.Encounter.CurrentRoomIndex)
		assert.Equal(t, 1, completed[0].Event.(events.RoomCompleted).NewRoom.Index)
		assert.Equal(t, 1, f.party.Player("host").Kills+f.party.Player("conn-2").Kills,
			"exactly one member gets the kill")
	})

	t.Run("attack on the new room's boss resolves", func(t *testing.T) {
		f := newActiveFixture(t)
		require.NoError(t, f.service.Attack(ctx, "AAAAAA", "host", bossAttack("boss-0", 200, true)))
		f.publisher.Reset()

		require.NoError(t, f.service.Attack(ctx, "AAAAAA", "conn-2", bossAttack("boss-1", 10, true)))
		assert.Len(t, f.publisher.ByType(events.TypeBossHealthUpdated), 1)
	})
}

func TestService_Attack_Enemy(t *testing.T) {
	ctx := context.Background()

	enemyAttack := func(target string, damage int) *combatService.AttackInput {
		return &combatService.AttackInput{
			TargetID:   target,
			TargetKind: combatService.TargetEnemy,
			Damage:     damage,
			Hit:        true,
		}
	}

	t.Run("hit updates enemy health", func(t *testing.T) {
		f := newActiveFixture(t)
		f.party.CurrentRoom().Enemies = []*entities.Enemy{
			{ID: "e-1", Archetype: "husk", Health: 20, MaxHealth: 20},
		}

		require.NoError(t, f.service.Attack(ctx, "AAAAAA", "host", enemyAttack("e-1", 5)))

		updated := f.publisher.ByType(events.TypeEnemyHealthUpdated)
		require.Len(t, updated, 1)
		assert.Equal(t, events.EnemyHealthUpdated{EnemyID: "e-1", Health: 15}, updated[0].Event)
	})

	t.Run("killing blow removes the enemy without advancing past a live boss", func(t *testing.T) {
		f := newActiveFixture(t)
		f.party.CurrentRoom().Enemies = []*entities.Enemy{
			{ID: "e-1", Archetype: "husk", Health: 20, MaxHealth: 20},
		}

		require.NoError(t, f.service.Attack(ctx, "AAAAAA", "host", enemyAttack("e-1", 50)))

		defeated := f.publisher.ByType(events.TypeEnemyDefeated)
		require.Len(t, defeated, 1)
		assert.Equal(t, events.EnemyDefeated{EnemyID: "e-1", KillerID: "host"}, defeated[0].Event)
		assert.Equal(t, 1, f.party.Player("host").Kills)

		assert.Empty(t, f.publisher.ByType(events.TypeRoomCompleted),
			"the boss still gates the room")
		assert.Equal(t, 0, f.party.Encounter.CurrentRoomIndex)
	})

	t.Run("last enemy in a bossless room completes it", func(t *testing.T) {
		f := newActiveFixture(t)
		room := f.party.CurrentRoom()
		room.Boss = nil
		room.Enemies = []*entities.Enemy{
			{ID: "e-1", Archetype: "husk", Health: 10, MaxHealth: 10},
		}

		require.NoError(t, f.service.Attack(ctx, "AAAAAA", "host", enemyAttack("e-1", 10)))

		completed := f.publisher.ByType(events.TypeRoomCompleted)
		require.Len(t, completed, 1)
		payload := completed[0].Event.(events.RoomCompleted)
		assert.Nil(t, payload.DefeatedBoss)
		assert.Equal(t, 1, f.party.Encounter.CurrentRoomIndex)
	})

	t.Run("unknown enemy drops", func(t *testing.T) {
		f := newActiveFixture(t)
		err := f.service.Attack(ctx, "AAAAAA", "host", enemyAttack("missing", 5))
		assert.True(t, apperr.IsNotFound(err))
		assert.Empty(t, f.publisher.Events())
	})
}

func TestService_Attack_Validation(t *testing.T) {
	ctx := context.Background()

	t.Run("non-member drops", func(t *testing.T) {
		f := newActiveFixture(t)
		err := f.service.Attack(ctx, "AAAAAA", "stranger", bossAttack("boss-0", 10, true))
		assert.True(t, apperr.IsPermissionDenied(err))
		assert.Empty(t, f.publisher.Events())
	})

	t.Run("lobby party drops", func(t *testing.T) {
		f := newActiveFixture(t)
		f.party.Status = entities.PartyStatusLobby
		err := f.service.Attack(ctx, "AAAAAA", "host", bossAttack("boss-0", 10, true))
		assert.True(t, apperr.IsPermissionDenied(err))
	})

	t.Run("downed attacker drops", func(t *testing.T) {
		f := newActiveFixture(t)
		f.party.Player("host").ApplyDamage(100)
		err := f.service.Attack(ctx, "AAAAAA", "host", bossAttack("boss-0", 10, true))
		assert.True(t, apperr.IsPermissionDenied(err))
	})

	t.Run("negative damage drops", func(t *testing.T) {
		f := newActiveFixture(t)
		err := f.service.Attack(ctx, "AAAAAA", "host", bossAttack("boss-0", -5, true))
		assert.True(t, apperr.IsInvalidArgument(err))
	})

	t.Run("unknown target kind drops", func(t *testing.T) {
		f := newActiveFixture(t)
		err := f.service.Attack(ctx, "AAAAAA", "host", &combatService.AttackInput{
			TargetID:   "boss-0",
			TargetKind: combatService.TargetKind("tower"),
			Damage:     10,
			Hit:        true,
		})
		assert.True(t, apperr.IsInvalidArgument(err))
	})
}

func TestService_ApplyDamage(t *testing.T) {
	ctx := context.Background()

	t.Run("broadcasts the new health", func(t *testing.T) {
		f := newActiveFixture(t)
		require.NoError(t, f.service.ApplyDamage(ctx, "AAAAAA", "host", 30))

		updated := f.publisher.ByType(events.TypePlayerHealthUpdated)
		require.Len(t, updated, 1)
		assert.Equal(t, events.PlayerHealthUpdated{PlayerID: "host", Health: 70}, updated[0].Event)
		assert.Empty(t, f.publisher.ByType(events.TypePlayerDied))
	})

	t.Run("lethal hit announces the death once", func(t *testing.T) {
		f := newActiveFixture(t)
		require.NoError(t, f.service.ApplyDamage(ctx, "AAAAAA", "host", 100))

		died := f.publisher.ByType(events.TypePlayerDied)
		require.Len(t, died, 1)
		assert.Equal(t, events.PlayerDied{PlayerID: "host"}, died[0].Event)

		// One member still standing, no game over.
		assert.Empty(t, f.publisher.ByType(events.TypeGameOver))
		assert.Equal(t, entities.PartyStatusActive, f.party.Status)
	})

	t.Run("full wipe ends the run exactly once", func(t *testing.T) {
		f := newActiveFixture(t)
		require.NoError(t, f.service.ApplyDamage(ctx, "AAAAAA", "host", 100))
		require.NoError(t, f.service.ApplyDamage(ctx, "AAAAAA", "conn-2", 100))

		over := f.publisher.ByType(events.TypeGameOver)
		require.Len(t, over, 1)
		payload := over[0].Event.(events.GameOver)
		assert.Equal(t, 0, payload.RoomsCleared)
		assert.Contains(t, payload.Stats, "host")
		assert.Contains(t, payload.Stats, "conn-2")
		assert.Equal(t, entities.PartyStatusGameOver, f.party.Status)

		// Combat is halted; late frames drop without a second game over.
		err := f.service.ApplyDamage(ctx, "AAAAAA", "host", 10)
		assert.True(t, apperr.IsPermissionDenied(err))
		assert.Len(t, f.publisher.ByType(events.TypeGameOver), 1)
	})

	t.Run("overkill clamps at zero", func(t *testing.T) {
		f := newActiveFixture(t)
		require.NoError(t, f.service.ApplyDamage(ctx, "AAAAAA", "host", 9999))
		assert.Equal(t, 0, f.party.Player("host").Health)
	})

	t.Run("damage after death drops a second died event", func(t *testing.T) {
		f := newActiveFixture(t)
		require.NoError(t, f.service.ApplyDamage(ctx, "AAAAAA", "host", 100))
		require.NoError(t, f.service.ApplyDamage(ctx, "AAAAAA", "host", 10))
		assert.Len(t, f.publisher.ByType(events.TypePlayerDied), 1)
	})
}

func TestService_CollectLoot(t *testing.T) {
	ctx := context.Background()

	t.Run("heals the collector and removes the item", func(t *testing.T) {
		f := newActiveFixture(t)
		f.party.Player("host").ApplyDamage(50)
		require.NoError(t, f.service.CollectLoot(ctx, "AAAAAA", "host", "loot-0-0"))

		collected := f.publisher.ByType(events.TypeLootCollected)
		require.Len(t, collected, 1)
		assert.Equal(t, events.LootCollected{
			LootID:      "loot-0-0",
			CollectorID: "host",
			Kind:        entities.LootHealingDraught,
			Health:      75,
		}, collected[0].Event)
		assert.Empty(t, f.party.CurrentRoom().Loot)
	})

	t.Run("second collection of the same item drops", func(t *testing.T) {
		f := newActiveFixture(t)
		require.NoError(t, f.service.CollectLoot(ctx, "AAAAAA", "host", "loot-0-0"))
		err := f.service.CollectLoot(ctx, "AAAAAA", "conn-2", "loot-0-0")
		assert.True(t, apperr.IsNotFound(err))
		assert.Len(t, f.publisher.ByType(events.TypeLootCollected), 1)
	})

	t.Run("heal clamps at max health", func(t *testing.T) {
		f := newActiveFixture(t)
		require.NoError(t, f.service.CollectLoot(ctx, "AAAAAA", "host", "loot-0-0"))

		collected := f.publisher.ByType(events.TypeLootCollected)
		require.Len(t, collected, 1)
		assert.Equal(t, 100, collected[0].Event.(events.LootCollected).Health)
	})

	t.Run("downed collector drops", func(t *testing.T) {
		f := newActiveFixture(t)
		f.party.Player("host").ApplyDamage(100)
		err := f.service.CollectLoot(ctx, "AAAAAA", "host", "loot-0-0")
		assert.True(t, apperr.IsPermissionDenied(err))
		assert.Len(t, f.party.CurrentRoom().Loot, 1)
	})
}
