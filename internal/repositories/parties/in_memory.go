package parties

import (
	"context"
	"sync"

	"bossrush/internal/entities"
	apperr "bossrush/internal/errors"
)

// inMemoryRepository implements Repository with a mutex-guarded map. Party
// state lives only as long as the process; nothing survives a restart.
type inMemoryRepository struct {
	mu      sync.RWMutex
	parties map[string]*entities.Party
}

// NewInMemoryRepository creates a new in-memory party repository
func NewInMemoryRepository() Repository {
	return &inMemoryRepository{
		parties: make(map[string]*entities.Party),
	}
}

// Create registers a new party under its code
func (r *inMemoryRepository) Create(ctx context.Context, party *entities.Party) error {
	if party == nil {
		return apperr.InvalidArgument("party cannot be nil")
	}
	if party.Code == "" {
		return apperr.InvalidArgument("party code cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.parties[party.Code]; exists {
		return apperr.AlreadyExistsf("party code %q already in use", party.Code)
	}

	r.parties[party.Code] = party
	return nil
}

// GetByCode retrieves the canonical party record for a code
func (r *inMemoryRepository) GetByCode(ctx context.Context, code string) (*entities.Party, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	party, exists := r.parties[code]
	if !exists {
		return nil, apperr.NotFoundf("party not found: %s", code)
	}
	return party, nil
}

// Delete removes a party from the registry
func (r *inMemoryRepository) Delete(ctx context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.parties[code]; !exists {
		return apperr.NotFoundf("party not found: %s", code)
	}

	delete(r.parties, code)
	return nil
}

// CodeInUse reports whether a code currently identifies a live party
func (r *inMemoryRepository) CodeInUse(ctx context.Context, code string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.parties[code]
	return exists, nil
}
