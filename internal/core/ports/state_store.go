package ports

import (
	"context"

	"go.trai.ch/depex/internal/core/domain"
)

// StateStore defines the interface for persisting the declaration and fingerprint record.
//
//go:generate mockgen -source=state_store.go -destination=mocks/mock_state_store.go -package=mocks
type StateStore interface {
	// Load reads and validates the record at path.
	Load(ctx context.Context, path string) (*domain.State, error)

	// Save atomically replaces the record at path with st.
	Save(ctx context.Context, path string, st *domain.State) error

	// Create writes an empty record at path.
	// It fails if a record already exists unless force is set.
	Create(ctx context.Context, path string, force bool) error
}
