package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"trimline/backend/internal/domain"
)

// ScheduleTx is the unit of work for one professional's diary. It only
// exists inside AppointmentRepository.InProfessionalSchedule, which holds
// the per-professional lock for the whole read-check-write sequence.
type ScheduleTx interface {
	CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	ListDayAppointments(ctx context.Context, professionalID uuid.UUID, date time.Time, excluding []domain.AppointmentStatus) ([]domain.Appointment, error)
	SaveAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error)
}

type AppointmentRepository interface {
	// InProfessionalSchedule runs fn inside a transaction serialized per
	// professional. Two concurrent calls for the same professional never
	// interleave their read-check-write sequences.
	InProfessionalSchedule(ctx context.Context, professionalID uuid.UUID, fn func(ctx context.Context, tx ScheduleTx) error) error

	FindByID(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	ListDay(ctx context.Context, professionalID uuid.UUID, date time.Time, excluding []domain.AppointmentStatus) ([]domain.Appointment, error)
	ListUpcomingForClient(ctx context.Context, clientID uuid.UUID, from time.Time) ([]domain.Appointment, error)
}
