package scenario

import (
	"context"

	"github.com/google/uuid"
)

// Store defines the persistence interface for scenarios.
type Store interface {
	Create(ctx context.Context, s *Scenario) error
	GetByID(ctx context.Context, id uuid.UUID) (*Scenario, error)
	List(ctx context.Context, limit, offset int) ([]*Scenario, error)
	Update(ctx context.Context, id uuid.UUID, setters ...UpdateSetter) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// UpdateSetter mutates one field of a scenario during an update.
type UpdateSetter func(*Scenario) error
