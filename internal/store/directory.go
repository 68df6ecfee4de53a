package store

import (
	"context"

	"github.com/google/uuid"

	"trimline/backend/internal/domain"
)

// ProfessionalDirectory and ServiceCatalog are the scheduling core's read
// views of data owned by the profile and catalog subsystems.

type ProfessionalDirectory interface {
	GetProfessional(ctx context.Context, id uuid.UUID) (domain.Professional, error)
}

type ServiceCatalog interface {
	GetService(ctx context.Context, id uuid.UUID) (domain.Service, error)
}
