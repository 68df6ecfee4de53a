package appointments

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"trimline/backend/internal/domain"
	"trimline/backend/internal/store"
)

// Service is the appointment scheduler: conflict-checked creation, the
// status lifecycle, and day-level slot enumeration. All times are UTC.
type Service struct {
	repo      store.AppointmentRepository
	directory store.ProfessionalDirectory
	catalog   store.ServiceCatalog
	window    domain.WorkingWindow
	now       func() time.Time
}

func NewService(repo store.AppointmentRepository, directory store.ProfessionalDirectory, catalog store.ServiceCatalog, window domain.WorkingWindow) *Service {
	if window.Step <= 0 {
		window = domain.DefaultWorkingWindow
	}
	return &Service{
		repo:      repo,
		directory: directory,
		catalog:   catalog,
		window:    window,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type CreateInput struct {
	ClientID       uuid.UUID
	ProfessionalID uuid.UUID
	ServiceID      uuid.UUID
	StartTime      time.Time
	Note           string
}

func (s *Service) Create(ctx context.Context, in CreateInput) (domain.Appointment, error) {
	if in.ClientID == uuid.Nil {
		return domain.Appointment{}, domain.NewRuleError("client_id is required")
	}

	prof, err := s.directory.GetProfessional(ctx, in.ProfessionalID)
	if err != nil {
		return domain.Appointment{}, err
	}
	if !prof.Active {
		return domain.Appointment{}, domain.NewRuleError("this professional is not currently available")
	}
	if prof.ShopID == nil {
		return domain.Appointment{}, domain.NewRuleError("this professional is not linked to a shop")
	}

	svc, err := s.catalog.GetService(ctx, in.ServiceID)
	if err != nil {
		return domain.Appointment{}, err
	}
	if !svc.Active {
		return domain.Appointment{}, domain.NewRuleError("this service is not currently available")
	}
	if svc.ShopID != *prof.ShopID {
		return domain.Appointment{}, domain.NewRuleError("service does not belong to this professional's shop")
	}

	now := s.now()
	start := in.StartTime.UTC()
	date := domain.DateOf(start)
	if date.Before(domain.DateOf(now)) {
		return domain.Appointment{}, domain.NewRuleError("cannot book an appointment on a past date")
	}
	if start.Before(now) {
		return domain.Appointment{}, domain.NewRuleError("cannot book an appointment at a time that has already passed")
	}

	end := start.Add(svc.Duration())

	appt := domain.Appointment{
		ClientID:        in.ClientID,
		ProfessionalID:  prof.ID,
		ShopID:          *prof.ShopID,
		ServiceID:       svc.ID,
		Date:            date,
		StartTime:       start,
		EndTime:         end,
		DurationMinutes: svc.DurationMinutes,
		PriceCents:      svc.PriceCents,
		Status:          domain.AppointmentPending,
		ClientNote:      strings.TrimSpace(in.Note),
	}

	var out domain.Appointment
	err = s.repo.InProfessionalSchedule(ctx, prof.ID, func(ctx context.Context, tx store.ScheduleTx) error {
		existing, err := tx.ListDayAppointments(ctx, prof.ID, date, domain.CancelledAppointmentStatuses)
		if err != nil {
			return err
		}
		for _, other := range existing {
			if domain.Overlaps(start, end, other.StartTime, other.EndTime) {
				return domain.NewRuleError("this time slot is not available, please pick another one")
			}
		}
		created, err := tx.CreateAppointment(ctx, appt)
		if err != nil {
			return err
		}
		out = created
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return domain.Appointment{}, domain.NewRuleError("this time slot is not available, please pick another one")
		}
		return domain.Appointment{}, err
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	return s.repo.FindByID(ctx, id)
}

// ListDay returns a professional's agenda for one date, cancelled
// bookings excluded.
func (s *Service) ListDay(ctx context.Context, professionalID uuid.UUID, date time.Time) ([]domain.Appointment, error) {
	if _, err := s.directory.GetProfessional(ctx, professionalID); err != nil {
		return nil, err
	}
	return s.repo.ListDay(ctx, professionalID, date, domain.CancelledAppointmentStatuses)
}

func (s *Service) ListUpcomingForClient(ctx context.Context, clientID uuid.UUID) ([]domain.Appointment, error) {
	return s.repo.ListUpcomingForClient(ctx, clientID, s.now())
}

// ListFreeSlots enumerates candidate start times across the professional's
// working window, marking each available or not. Uses the same half-open
// overlap test as Create, so an available slot is bookable absent a race.
func (s *Service) ListFreeSlots(ctx context.Context, professionalID, serviceID uuid.UUID, date time.Time) ([]domain.Slot, error) {
	if _, err := s.directory.GetProfessional(ctx, professionalID); err != nil {
		return nil, err
	}
	svc, err := s.catalog.GetService(ctx, serviceID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.ListDay(ctx, professionalID, date, domain.CancelledAppointmentStatuses)
	if err != nil {
		return nil, err
	}
	busy := make([]domain.Interval, 0, len(existing))
	for _, a := range existing {
		busy = append(busy, domain.Interval{Start: a.StartTime, End: a.EndTime})
	}

	return domain.BuildDaySlots(s.window, date, svc.Duration(), busy, s.now()), nil
}

func (s *Service) Confirm(ctx context.Context, appointmentID, professionalID uuid.UUID) (domain.Appointment, error) {
	return s.transition(ctx, appointmentID, func(a *domain.Appointment) error {
		if err := requireProfessional(a, professionalID); err != nil {
			return err
		}
		return a.Confirm(s.now())
	})
}

func (s *Service) Start(ctx context.Context, appointmentID, professionalID uuid.UUID) (domain.Appointment, error) {
	return s.transition(ctx, appointmentID, func(a *domain.Appointment) error {
		if err := requireProfessional(a, professionalID); err != nil {
			return err
		}
		return a.Start(s.now())
	})
}

func (s *Service) Complete(ctx context.Context, appointmentID, professionalID uuid.UUID) (domain.Appointment, error) {
	return s.transition(ctx, appointmentID, func(a *domain.Appointment) error {
		if err := requireProfessional(a, professionalID); err != nil {
			return err
		}
		return a.Complete(s.now())
	})
}

func (s *Service) MarkNoShow(ctx context.Context, appointmentID, professionalID uuid.UUID) (domain.Appointment, error) {
	return s.transition(ctx, appointmentID, func(a *domain.Appointment) error {
		if err := requireProfessional(a, professionalID); err != nil {
			return err
		}
		return a.MarkNoShow(s.now())
	})
}

func (s *Service) CancelByClient(ctx context.Context, appointmentID, clientID uuid.UUID, reason string) (domain.Appointment, error) {
	return s.transition(ctx, appointmentID, func(a *domain.Appointment) error {
		if a.ClientID != clientID {
			return &domain.PermissionError{Reason: "you do not have permission to cancel this appointment"}
		}
		return a.CancelByClient(reason, s.now())
	})
}

func (s *Service) CancelByProfessional(ctx context.Context, appointmentID, professionalID uuid.UUID, reason string) (domain.Appointment, error) {
	return s.transition(ctx, appointmentID, func(a *domain.Appointment) error {
		if err := requireProfessional(a, professionalID); err != nil {
			return err
		}
		return a.CancelByProfessional(reason, s.now())
	})
}

// CancelByShop requires shop-admin authority over the professional the
// appointment is bound to; the boundary layer resolves the caller's shop.
func (s *Service) CancelByShop(ctx context.Context, appointmentID, shopID uuid.UUID, reason string) (domain.Appointment, error) {
	return s.transition(ctx, appointmentID, func(a *domain.Appointment) error {
		if a.ShopID != shopID {
			return &domain.PermissionError{Reason: "this appointment does not belong to your shop"}
		}
		return a.CancelByShop(reason, s.now())
	})
}

// transition re-reads the appointment under the professional's lock before
// applying the status change, so concurrent transitions serialize.
func (s *Service) transition(ctx context.Context, id uuid.UUID, apply func(*domain.Appointment) error) (domain.Appointment, error) {
	appt, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}

	var out domain.Appointment
	err = s.repo.InProfessionalSchedule(ctx, appt.ProfessionalID, func(ctx context.Context, tx store.ScheduleTx) error {
		current, err := tx.GetAppointment(ctx, id)
		if err != nil {
			return err
		}
		if err := apply(&current); err != nil {
			return err
		}
		saved, err := tx.SaveAppointment(ctx, current)
		if err != nil {
			return err
		}
		out = saved
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

func requireProfessional(a *domain.Appointment, professionalID uuid.UUID) error {
	if a.ProfessionalID != professionalID {
		return &domain.PermissionError{Reason: "you do not have permission to change this appointment"}
	}
	return nil
}
