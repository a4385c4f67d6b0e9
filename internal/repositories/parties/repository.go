package parties

//go:generate mockgen -destination=mock/mock_repository.go -package=mockparties -source=repository.go

import (
	"context"

	"bossrush/internal/entities"
)

// Repository is the registry's code-to-party lookup table, the only state
// shared across parties. Implementations hand out the canonical
// *entities.Party; callers mutate it under the party's own lock so no
// divergent copies ever exist.
type Repository interface {
	// Create registers a new party under its code
	Create(ctx context.Context, party *entities.Party) error

	// GetByCode retrieves a party by its normalized code
	GetByCode(ctx context.Context, code string) (*entities.Party, error)

	// Delete removes a party from the registry
	Delete(ctx context.Context, code string) error

	// CodeInUse reports whether a code currently identifies a live party
	CodeInUse(ctx context.Context, code string) (bool, error)
}
