package combat

//go:generate mockgen -destination=mock/mock_service.go -package=mockcombat -source=service.go

import (
	"context"
	"log/slog"

	"bossrush/internal/encounter"
	"bossrush/internal/entities"
	apperr "bossrush/internal/errors"
	"bossrush/internal/events"
	"bossrush/internal/partycode"
	"bossrush/internal/repositories/parties"
)

// TargetKind says which of the room's target sets an attack names
type TargetKind string

const (
	// TargetBoss aims the attack at the room's boss
	TargetBoss TargetKind = "boss"

	// TargetEnemy aims the attack at an entry of the room's enemy list
	TargetEnemy TargetKind = "enemy"
)

// AttackInput is a client-submitted attack intent. The hit flag and damage
// are trusted as reported; hit detection happens client-side and the server
// only validates membership and target existence.
type AttackInput struct {
	TargetID   string
	TargetKind TargetKind
	Damage     int
	Hit        bool
}

// Service is the combat resolver: it validates attack, damage and loot
// intents against a party's current room and applies the resulting state
// transitions. Every returned error means the intent was dropped; the
// gateway logs it and never surfaces it to the client.
type Service interface {
	// Attack resolves an attack intent against the party's current room
	Attack(ctx context.Context, code, attackerID string, input *AttackInput) error

	// ApplyDamage resolves a damage-taken intent for a party member
	ApplyDamage(ctx context.Context, code, playerID string, amount int) error

	// CollectLoot removes loot from the current room and applies its effect
	// to the collector
	CollectLoot(ctx context.Context, code, playerID, lootID string) error
}

type service struct {
	repository parties.Repository
	publisher  events.Publisher
}

// ServiceConfig holds configuration for the service
type ServiceConfig struct {
	Repository parties.Repository // Required
	Publisher  events.Publisher   // Required
}

// NewService creates a new combat service
func NewService(cfg *ServiceConfig) Service {
	if cfg.Repository == nil {
		panic("repository is required")
	}
	if cfg.Publisher == nil {
		panic("publisher is required")
	}

	return &service{
		repository: cfg.Repository,
		publisher:  cfg.Publisher,
	}
}

// Attack resolves an attack intent against the party's current room
func (s *service) Attack(ctx context.Context, code, attackerID string, input *AttackInput) error {
	if input == nil {
		return apperr.InvalidArgument("input cannot be nil")
	}
	if input.Damage < 0 {
		return apperr.InvalidArgument("damage cannot be negative")
	}

	party, err := s.getParty(ctx, code)
	if err != nil {
		return err
	}

	party.Lock()
	defer party.Unlock()

	if err := s.checkCombatant(party, attackerID); err != nil {
		return err
	}
	attacker := party.Player(attackerID)
	if attacker.IsDown() {
		return apperr.PermissionDenied("downed players cannot attack").
			WithMeta("player_id", attackerID)
	}

	room := party.CurrentRoom()

	switch input.TargetKind {
	case TargetBoss:
		if room.Boss == nil || room.Boss.ID != input.TargetID {
			return apperr.NotFoundf("no boss target %q in current room", input.TargetID)
		}
		s.relayAttack(party, attackerID, input)
		if !input.Hit {
			return nil
		}
		s.resolveBossHit(ctx, party, room, attacker, input.Damage)
		return nil

	case TargetEnemy:
		enemy := room.FindEnemy(input.TargetID)
		if enemy == nil {
			return apperr.NotFoundf("no enemy target %q in current room", input.TargetID)
		}
		s.relayAttack(party, attackerID, input)
		if !input.Hit {
			return nil
		}
		s.resolveEnemyHit(ctx, party, room, attacker, enemy, input.Damage)
		return nil

	default:
		return apperr.InvalidArgumentf("unknown target kind %q", input.TargetKind)
	}
}

// ApplyDamage resolves a damage-taken intent for a party member
func (s *service) ApplyDamage(ctx context.Context, code, playerID string, amount int) error {
	if amount < 0 {
		return apperr.InvalidArgument("damage cannot be negative")
	}

	party, err := s.getParty(ctx, code)
	if err != nil {
		return err
	}

	party.Lock()
	defer party.Unlock()

	if err := s.checkCombatant(party, playerID); err != nil {
		return err
	}
	player := party.Player(playerID)

	died := player.ApplyDamage(amount)
	s.publisher.Broadcast(party.Code, events.PlayerHealthUpdated{
		PlayerID: playerID,
		Health:   player.Health,
	})
	if !died {
		return nil
	}

	s.publisher.Broadcast(party.Code, events.PlayerDied{PlayerID: playerID})
	slog.InfoContext(ctx, "player died", "party_code", party.Code, "player_id", playerID)

	if !party.AllDown() {
		return nil
	}

	// Full wipe: halt combat but keep the record readable until everyone
	// leaves.
	party.Status = entities.PartyStatusGameOver
	s.publisher.Broadcast(party.Code, events.GameOver{
		RoomsCleared: party.Encounter.CurrentRoomIndex,
		Stats:        party.StatsSnapshot(),
	})
	slog.InfoContext(ctx, "game over", "party_code", party.Code,
		"rooms_cleared", party.Encounter.CurrentRoomIndex)
	return nil
}

// CollectLoot removes loot from the current room and applies its effect
func (s *service) CollectLoot(ctx context.Context, code, playerID, lootID string) error {
	party, err := s.getParty(ctx, code)
	if err != nil {
		return err
	}

	party.Lock()
	defer party.Unlock()

	if err := s.checkCombatant(party, playerID); err != nil {
		return err
	}
	player := party.Player(playerID)
	if player.IsDown() {
		return apperr.PermissionDenied("downed players cannot collect loot").
			WithMeta("player_id", playerID)
	}

	loot := party.CurrentRoom().RemoveLoot(lootID)
	if loot == nil {
		return apperr.NotFoundf("no loot %q in current room", lootID)
	}

	player.Heal(loot.Amount)
	s.publisher.Broadcast(party.Code, events.LootCollected{
		LootID:      loot.ID,
		CollectorID: playerID,
		Kind:        loot.Kind,
		Health:      player.Health,
	})
	return nil
}

// getParty resolves the party record for a combat intent. Player and
// membership state belong to the party lock; callers read them only after
// locking.
func (s *service) getParty(ctx context.Context, code string) (*entities.Party, error) {
	normalized, ok := partycode.Normalize(code)
	if !ok {
		return nil, apperr.InvalidArgumentf("malformed party code %q", code)
	}

	party, err := s.repository.GetByCode(ctx, normalized)
	if err != nil {
		return nil, apperr.Wrapf(err, "failed to get party '%s'", normalized)
	}
	return party, nil
}

// checkCombatant validates a combat intent's caller under the party lock.
// Intents from just-removed connections fail the membership check here and
// drop, which is the entire disconnect-cancellation story.
func (s *service) checkCombatant(party *entities.Party, playerID string) error {
	if party.Status != entities.PartyStatusActive {
		return apperr.PermissionDeniedf("party %s is not in combat", party.Code).
			WithMeta("status", string(party.Status))
	}
	if !party.IsMember(playerID) {
		return apperr.PermissionDenied("caller is not a party member").
			WithMeta("party_code", party.Code).
			WithMeta("player_id", playerID)
	}
	return nil
}

// relayAttack forwards the swing to the rest of the party; misses still
// animate on the other clients
func (s *service) relayAttack(party *entities.Party, attackerID string, input *AttackInput) {
	s.publisher.BroadcastExcept(party.Code, attackerID, events.PlayerAttacked{
		AttackerID: attackerID,
		TargetID:   input.TargetID,
		TargetKind: string(input.TargetKind),
		Damage:     input.Damage,
		Hit:        input.Hit,
	})
}

func (s *service) resolveBossHit(ctx context.Context, party *entities.Party, room *entities.Room, attacker *entities.PlayerState, damage int) {
	boss := room.Boss
	before := boss.Health
	boss.ApplyDamage(damage)
	attacker.DamageDealt += before - boss.Health

	if !boss.IsDefeated() {
		s.publisher.Broadcast(party.Code, events.BossHealthUpdated{
			BossID: boss.ID,
			Health: boss.Health,
			Phase:  boss.Phase,
		})
		return
	}

	attacker.Kills++
	summary := &events.BossSummary{
		ID:        boss.ID,
		Archetype: boss.Archetype,
		KillerID:  attacker.ID,
	}
	// Defeat is terminal: the id stops resolving as a target.
	room.Boss = nil
	s.advanceRoom(ctx, party, summary)
}

func (s *service) resolveEnemyHit(ctx context.Context, party *entities.Party, room *entities.Room, attacker *entities.PlayerState, enemy *entities.Enemy, damage int) {
	before := enemy.Health
	enemy.ApplyDamage(damage)
	attacker.DamageDealt += before - enemy.Health

	if !enemy.IsDefeated() {
		s.publisher.Broadcast(party.Code, events.EnemyHealthUpdated{
			EnemyID: enemy.ID,
			Health:  enemy.Health,
		})
		return
	}

	room.RemoveEnemy(enemy.ID)
	attacker.Kills++
	s.publisher.Broadcast(party.Code, events.EnemyDefeated{
		EnemyID:  enemy.ID,
		KillerID: attacker.ID,
	})

	if room.Cleared() {
		s.advanceRoom(ctx, party, nil)
	}
}

// advanceRoom is the sole path to a new room: append the next generated room
// and move the index forward, then announce the transition.
func (s *service) advanceRoom(ctx context.Context, party *entities.Party, defeated *events.BossSummary) {
	next := encounter.GenerateRoom(party.Encounter.CurrentRoomIndex + 1)
	party.AdvanceRoom(next)
	s.publisher.Broadcast(party.Code, events.RoomCompleted{
		DefeatedBoss: defeated,
		NewRoom:      next,
	})
	slog.InfoContext(ctx, "room completed", "party_code", party.Code,
		"room_index", next.Index)
}
