package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"trimline/backend/internal/domain"
)

// QueueTx is the unit of work for one professional's walk-in queue. Every
// mutation and the position renumbering that follows it run inside the
// same transaction, so waiting positions are never observably stale.
type QueueTx interface {
	CreateEntry(ctx context.Context, entry domain.QueueEntry) (domain.QueueEntry, error)
	GetEntry(ctx context.Context, id uuid.UUID) (domain.QueueEntry, error)
	ListWaiting(ctx context.Context, professionalID uuid.UUID, date time.Time) ([]domain.QueueEntry, error)
	FindInService(ctx context.Context, professionalID uuid.UUID) (domain.QueueEntry, error)
	FindActiveByClient(ctx context.Context, clientID uuid.UUID) (domain.QueueEntry, error)
	SaveEntry(ctx context.Context, entry domain.QueueEntry) (domain.QueueEntry, error)

	// RenumberWaiting reassigns 1..N to the WAITING set for the
	// professional and date, ordered by arrival time ascending.
	RenumberWaiting(ctx context.Context, professionalID uuid.UUID, date time.Time) error

	IncrementProfessionalServed(ctx context.Context, professionalID uuid.UUID) error
}

type QueueRepository interface {
	InProfessionalQueue(ctx context.Context, professionalID uuid.UUID, fn func(ctx context.Context, tx QueueTx) error) error

	FindByID(ctx context.Context, id uuid.UUID) (domain.QueueEntry, error)
	ListWaiting(ctx context.Context, professionalID uuid.UUID, date time.Time) ([]domain.QueueEntry, error)
	FindInService(ctx context.Context, professionalID uuid.UUID) (domain.QueueEntry, error)
	FindActiveByClient(ctx context.Context, clientID uuid.UUID) (domain.QueueEntry, error)

	CountCompleted(ctx context.Context, professionalID uuid.UUID, date time.Time) (int, error)
	AverageWaitMinutes(ctx context.Context, professionalID uuid.UUID, date time.Time) (float64, error)
	AverageServiceMinutes(ctx context.Context, professionalID uuid.UUID, date time.Time) (float64, error)
}
