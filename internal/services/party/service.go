package party

//go:generate mockgen -destination=mock/mock_service.go -package=mockparty -source=service.go

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

// Repository is an alias for the party repository interface
type Repository = parties.Repository

// Service owns party membership: hosting, joining, leaving, starting, and
// host migration. Combat mutations live in the combat service.
type Service interface {
	// Host creates a party with the caller as host and sole member
	Host(ctx context.Context, hostID string) (*entities.Party, error)

	// Join adds a player to the party identified by code. Rejections are
	// reported to the joiner as a join-error event and returned as a coded
	// error for the caller's logs.
	Join(ctx context.Context, code, playerID string) (*entities.Party, error)

	// Leave removes a player; this is also the disconnect path. The last
	// member leaving disbands the party, a departing host triggers migration.
	Leave(ctx context.Context, code, playerID string) error

	// Start transitions the party into active play. Host-only; repeated and
	// non-host calls are silently ignored.
	Start(ctx context.Context, code, callerID string) error

	// Get retrieves a party by code
	Get(ctx context.Context, code string) (*entities.Party, error)
}

// maxCodeAttempts bounds collision retries during code generation. With a
// 32^6 code space this only trips when the registry is effectively full.
const maxCodeAttempts = 16

const defaultMaxMembers = 4

type service struct {
	repository Repository
	publisher  events.Publisher
	codes      partycode.Generator
	maxMembers int
}

// ServiceConfig holds configuration for the service
type ServiceConfig struct {
	Repository    Repository          // Required
	Publisher     events.Publisher    // Required
	CodeGenerator partycode.Generator // Optional, crypto/rand by default
	MaxMembers    int                 // Optional, defaults to 4
}

// NewService creates a new party service
func NewService(cfg *ServiceConfig) Service {
	if cfg.Repository == nil {
		panic("repository is required")
	}
	if cfg.Publisher == nil {
		panic("publisher is required")
	}

	svc := &service{
		repository: cfg.Repository,
		publisher:  cfg.Publisher,
		maxMembers: cfg.MaxMembers,
	}
	if svc.maxMembers <= 0 {
		svc.maxMembers = defaultMaxMembers
	}

	if cfg.CodeGenerator != nil {
		svc.codes = cfg.CodeGenerator
	} else {
		svc.codes = partycode.NewCryptoGenerator()
	}

	return svc
}

// Host creates a party with the caller as host and sole member
func (s *service) Host(ctx context.Context, hostID string) (*entities.Party, error) {
	if hostID == "" {
		return nil, apperr.InvalidArgument("host ID is required")
	}

	code, err := s.uniqueCode(ctx)
	if err != nil {
		return nil, err
	}

	party := entities.NewParty(code, hostID, encounter.GenerateRoom(0))

	// The host enters the broadcast group before the party is discoverable,
	// so no join broadcast can slip past it.
	s.publisher.JoinGroup(code, hostID)
	if err := s.repository.Create(ctx, party); err != nil {
		s.publisher.LeaveGroup(code, hostID)
		return nil, apperr.Wrap(err, "failed to create party").
			WithMeta("party_code", code)
	}

	s.publisher.SendTo(hostID, events.PartyHosted{Code: code})
	slog.InfoContext(ctx, "party hosted", "party_code", code, "host_id", hostID)
	return party, nil
}

// Join adds a player to the party identified by code
func (s *service) Join(ctx context.Context, code, playerID string) (*entities.Party, error) {
	if playerID == "" {
		return nil, apperr.InvalidArgument("player ID is required")
	}

	normalized, ok := partycode.Normalize(code)
	if !ok {
		s.publisher.SendTo(playerID, events.JoinError{Reason: "invalid party code"})
		return nil, apperr.InvalidArgumentf("malformed party code %q", code)
	}

	party, err := s.repository.GetByCode(ctx, normalized)
	if err != nil {
		s.publisher.SendTo(playerID, events.JoinError{Reason: "party not found"})
		return nil, apperr.Wrapf(err, "failed to get party '%s'", normalized)
	}

	party.Lock()
	defer party.Unlock()

	// The party may have disbanded between lookup and lock; joining a
	// zombie record would strand the player in an unregistered party.
	if party.MemberCount() == 0 {
		s.publisher.SendTo(playerID, events.JoinError{Reason: "party not found"})
		return nil, apperr.NotFoundf("party %s disbanded", normalized)
	}

	if party.IsMember(playerID) {
		s.publisher.SendTo(playerID, events.JoinError{Reason: "already in party"})
		return nil, apperr.InvalidArgument("player is already in the party").
			WithMeta("party_code", normalized).
			WithMeta("player_id", playerID)
	}

	if party.MemberCount() >= s.maxMembers {
		s.publisher.SendTo(playerID, events.JoinError{Reason: "party is full"})
		return nil, apperr.Validationf("party %s is full", normalized).
			WithMeta("party_code", normalized).
			WithMeta("player_id", playerID)
	}

	party.AddMember(playerID)
	// Still under the lock, so the broadcast group never lags membership.
	s.publisher.JoinGroup(normalized, playerID)
	s.publisher.BroadcastExcept(normalized, playerID, events.PlayerJoined{PlayerID: playerID})
	s.publisher.SendTo(playerID, events.JoinSuccess{
		Code:    normalized,
		HostID:  party.HostID,
		Members: party.MembersCopy(),
	})
	slog.InfoContext(ctx, "player joined party", "party_code", normalized, "player_id", playerID)
	return party, nil
}

// Leave removes a player from the party; second leave is a no-op
func (s *service) Leave(ctx context.Context, code, playerID string) error {
	normalized, ok := partycode.Normalize(code)
	if !ok {
		return apperr.InvalidArgumentf("malformed party code %q", code)
	}

	party, err := s.repository.GetByCode(ctx, normalized)
	if err != nil {
		return apperr.Wrapf(err, "failed to get party '%s'", normalized)
	}

	party.Lock()
	defer party.Unlock()

	if !party.RemoveMember(playerID) {
		return apperr.NotFoundf("player %s is not in party %s", playerID, normalized)
	}
	s.publisher.LeaveGroup(normalized, playerID)

	if party.MemberCount() == 0 {
		if err := s.repository.Delete(ctx, normalized); err != nil {
			return apperr.Wrapf(err, "failed to delete party '%s'", normalized)
		}
		slog.InfoContext(ctx, "party disbanded", "party_code", normalized)
		return nil
	}

	if party.HostID == playerID {
		// Migration successor is the earliest-joined remaining member.
		party.HostID = party.Members[0]
		s.publisher.Broadcast(normalized, events.HostChanged{HostID: party.HostID})
		slog.InfoContext(ctx, "host migrated", "party_code", normalized, "host_id", party.HostID)
	}

	s.publisher.Broadcast(normalized, events.PlayerLeft{PlayerID: playerID})

	// A departure can leave only downed members behind; that ends the run
	// the same way the last lethal hit would have.
	if party.Status == entities.PartyStatusActive && party.AllDown() {
		party.Status = entities.PartyStatusGameOver
		s.publisher.Broadcast(normalized, events.GameOver{
			RoomsCleared: party.Encounter.CurrentRoomIndex,
			Stats:        party.StatsSnapshot(),
		})
		slog.InfoContext(ctx, "game over", "party_code", normalized,
			"rooms_cleared", party.Encounter.CurrentRoomIndex)
	}

	return nil
}

// Start transitions the party into active play
func (s *service) Start(ctx context.Context, code, callerID string) error {
	normalized, ok := partycode.Normalize(code)
	if !ok {
		return apperr.InvalidArgumentf("malformed party code %q", code)
	}

	party, err := s.repository.GetByCode(ctx, normalized)
	if err != nil {
		return apperr.Wrapf(err, "failed to get party '%s'", normalized)
	}

	party.Lock()
	defer party.Unlock()

	if party.HostID != callerID {
		return apperr.PermissionDenied("only the host can start the game").
			WithMeta("party_code", normalized).
			WithMeta("caller_id", callerID)
	}

	if party.Status != entities.PartyStatusLobby {
		// Already started; the broadcast happened exactly once.
		return nil
	}

	party.Status = entities.PartyStatusActive
	s.publisher.Broadcast(normalized, events.GameStarted{Encounter: party.Encounter})
	slog.InfoContext(ctx, "game started", "party_code", normalized,
		"members", party.MemberCount())
	return nil
}

// Get retrieves a party by code
func (s *service) Get(ctx context.Context, code string) (*entities.Party, error) {
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

// uniqueCode draws codes until one is free in the registry
func (s *service) uniqueCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := s.codes.Generate()
		if err != nil {
			return "", apperr.Wrap(err, "failed to generate party code")
		}

		inUse, err := s.repository.CodeInUse(ctx, code)
		if err != nil {
			return "", apperr.Wrap(err, "failed to check party code")
		}
		if !inUse {
			return code, nil
		}
	}
	return "", apperr.Internal("party code space exhausted")
}
