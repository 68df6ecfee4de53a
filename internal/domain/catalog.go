package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Professional is the scheduling core's read view of a barber profile.
// Only TotalServed is ever written by the core (incremented when a walk-in
// finishes); everything else is owned by the profile subsystem.
type Professional struct {
	bun.BaseModel `bun:"table:professionals"`

	ID          uuid.UUID  `bun:"id,pk,type:uuid"`
	ShopID      *uuid.UUID `bun:"shop_id,type:uuid"`
	DisplayName string     `bun:"display_name,notnull"`
	Active      bool       `bun:"active,notnull"`
	TotalServed int        `bun:"total_served,notnull"`

	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// Service is a catalog entry: what can be booked, how long it takes, and
// what it costs right now. Appointments snapshot duration and price at
// creation, so edits here never touch existing bookings.
type Service struct {
	bun.BaseModel `bun:"table:services"`

	ID              uuid.UUID `bun:"id,pk,type:uuid"`
	ShopID          uuid.UUID `bun:"shop_id,notnull,type:uuid"`
	Name            string    `bun:"name,notnull"`
	DurationMinutes int       `bun:"duration_minutes,notnull"`
	PriceCents      int64     `bun:"price_cents,notnull"`
	Active          bool      `bun:"active,notnull"`

	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

func (s *Service) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

func (p *Professional) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return stampTimestamps(query, &p.CreatedAt, &p.UpdatedAt)
}

func (s *Service) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	return stampTimestamps(query, &s.CreatedAt, &s.UpdatedAt)
}

func stampTimestamps(query bun.Query, createdAt, updatedAt *time.Time) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if createdAt.IsZero() {
			*createdAt = now
		}
		if updatedAt.IsZero() {
			*updatedAt = now
		}
	case *bun.UpdateQuery:
		*updatedAt = now
	}
	return nil
}
