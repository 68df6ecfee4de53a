package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type AppointmentStatus string

const (
	AppointmentPending               AppointmentStatus = "PENDING"
	AppointmentConfirmed             AppointmentStatus = "CONFIRMED"
	AppointmentInProgress            AppointmentStatus = "IN_PROGRESS"
	AppointmentCompleted             AppointmentStatus = "COMPLETED"
	AppointmentCancelledClient       AppointmentStatus = "CANCELLED_CLIENT"
	AppointmentCancelledProfessional AppointmentStatus = "CANCELLED_PROFESSIONAL"
	AppointmentCancelledShop         AppointmentStatus = "CANCELLED_SHOP"
	AppointmentNoShow                AppointmentStatus = "NO_SHOW"
)

// CancelledAppointmentStatuses are the statuses excluded from conflict
// checks and slot computation: a cancelled booking frees its interval.
var CancelledAppointmentStatuses = []AppointmentStatus{
	AppointmentCancelledClient,
	AppointmentCancelledProfessional,
	AppointmentCancelledShop,
}

func (s AppointmentStatus) Cancelled() bool {
	return s == AppointmentCancelledClient ||
		s == AppointmentCancelledProfessional ||
		s == AppointmentCancelledShop
}

// Terminal reports whether no further transition is allowed.
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentCompleted || s == AppointmentNoShow || s.Cancelled()
}

// Appointment is a dated, time-boxed booking between a client and a
// professional for one service. Price and duration are copied from the
// catalog at creation so later catalog edits never rewrite history.
type Appointment struct {
	bun.BaseModel `bun:"table:appointments"`

	ID             uuid.UUID `bun:"id,pk,type:uuid"`
	ClientID       uuid.UUID `bun:"client_id,notnull,type:uuid"`
	ProfessionalID uuid.UUID `bun:"professional_id,notnull,type:uuid"`
	ShopID         uuid.UUID `bun:"shop_id,notnull,type:uuid"`
	ServiceID      uuid.UUID `bun:"service_id,notnull,type:uuid"`

	Date            time.Time `bun:"date,notnull,type:date"`
	StartTime       time.Time `bun:"start_time,notnull"`
	EndTime         time.Time `bun:"end_time,notnull"`
	DurationMinutes int       `bun:"duration_minutes,notnull"`
	PriceCents      int64     `bun:"price_cents,notnull"`

	Status AppointmentStatus `bun:"status,notnull"`

	ClientNote       string `bun:"client_note"`
	ProfessionalNote string `bun:"professional_note"`
	CancelReason     string `bun:"cancel_reason"`

	CreatedAt   time.Time  `bun:"created_at,notnull"`
	UpdatedAt   time.Time  `bun:"updated_at,notnull"`
	ConfirmedAt *time.Time `bun:"confirmed_at"`
	StartedAt   *time.Time `bun:"started_at"`
	CompletedAt *time.Time `bun:"completed_at"`
	CancelledAt *time.Time `bun:"cancelled_at"`
	NoShowAt    *time.Time `bun:"no_show_at"`
}

func (a *Appointment) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}

func (a *Appointment) Confirm(now time.Time) error {
	if a.Status != AppointmentPending {
		return &StateError{Op: "confirm appointment", Current: string(a.Status), Required: string(AppointmentPending)}
	}
	a.Status = AppointmentConfirmed
	a.ConfirmedAt = &now
	return nil
}

func (a *Appointment) Start(now time.Time) error {
	if a.Status != AppointmentConfirmed {
		return &StateError{Op: "start appointment", Current: string(a.Status), Required: string(AppointmentConfirmed)}
	}
	a.Status = AppointmentInProgress
	a.StartedAt = &now
	return nil
}

func (a *Appointment) Complete(now time.Time) error {
	if a.Status != AppointmentInProgress {
		return &StateError{Op: "complete appointment", Current: string(a.Status), Required: string(AppointmentInProgress)}
	}
	a.Status = AppointmentCompleted
	a.CompletedAt = &now
	return nil
}

func (a *Appointment) MarkNoShow(now time.Time) error {
	if a.Status != AppointmentPending && a.Status != AppointmentConfirmed {
		return &StateError{
			Op:       "mark appointment no-show",
			Current:  string(a.Status),
			Required: string(AppointmentPending) + " or " + string(AppointmentConfirmed),
		}
	}
	a.Status = AppointmentNoShow
	a.NoShowAt = &now
	return nil
}

func (a *Appointment) CancelByClient(reason string, now time.Time) error {
	return a.cancel(AppointmentCancelledClient, reason, now)
}

func (a *Appointment) CancelByProfessional(reason string, now time.Time) error {
	return a.cancel(AppointmentCancelledProfessional, reason, now)
}

func (a *Appointment) CancelByShop(reason string, now time.Time) error {
	return a.cancel(AppointmentCancelledShop, reason, now)
}

func (a *Appointment) cancel(to AppointmentStatus, reason string, now time.Time) error {
	if a.Status != AppointmentPending && a.Status != AppointmentConfirmed {
		return &StateError{
			Op:       "cancel appointment",
			Current:  string(a.Status),
			Required: string(AppointmentPending) + " or " + string(AppointmentConfirmed),
		}
	}
	a.Status = to
	a.CancelReason = reason
	a.CancelledAt = &now
	return nil
}
