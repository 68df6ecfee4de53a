package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type QueueStatus string

const (
	QueueWaiting   QueueStatus = "WAITING"
	QueueInService QueueStatus = "IN_SERVICE"
	QueueCompleted QueueStatus = "COMPLETED"
	QueueCancelled QueueStatus = "CANCELLED"
	QueueNoShow    QueueStatus = "NO_SHOW"
)

// ActiveQueueStatuses are the statuses that count as queue membership for
// the one-queue-per-client rule.
var ActiveQueueStatuses = []QueueStatus{QueueWaiting, QueueInService}

func (s QueueStatus) Terminal() bool {
	return s == QueueCompleted || s == QueueCancelled || s == QueueNoShow
}

// QueueEntry is a same-day walk-in booking ordered by arrival time.
// QueuePosition is only meaningful while the entry is WAITING; it is
// recomputed over the whole waiting set after every queue mutation and
// never hand-edited anywhere else.
type QueueEntry struct {
	bun.BaseModel `bun:"table:queue_entries"`

	ID             uuid.UUID  `bun:"id,pk,type:uuid"`
	ProfessionalID uuid.UUID  `bun:"professional_id,notnull,type:uuid"`
	ClientID       uuid.UUID  `bun:"client_id,notnull,type:uuid"`
	ServiceID      uuid.UUID  `bun:"service_id,notnull,type:uuid"`
	ShopID         *uuid.UUID `bun:"shop_id,type:uuid"`

	Status QueueStatus `bun:"status,notnull"`

	QueueDate        time.Time  `bun:"queue_date,notnull,type:date"`
	ArrivalTime      time.Time  `bun:"arrival_time,notnull"`
	ServiceStartTime *time.Time `bun:"service_start_time"`
	ServiceEndTime   *time.Time `bun:"service_end_time"`

	QueuePosition *int `bun:"queue_position"`

	Note         string `bun:"note"`
	CancelReason string `bun:"cancel_reason"`

	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

func (e *QueueEntry) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if e.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			e.ID = id
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		if e.UpdatedAt.IsZero() {
			e.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		e.UpdatedAt = now
	}
	return nil
}

func (e *QueueEntry) StartService(now time.Time) error {
	if e.Status != QueueWaiting {
		return &StateError{Op: "start walk-in service", Current: string(e.Status), Required: string(QueueWaiting)}
	}
	e.Status = QueueInService
	e.ServiceStartTime = &now
	e.QueuePosition = nil
	return nil
}

func (e *QueueEntry) FinishService(now time.Time) error {
	if e.Status != QueueInService {
		return &StateError{Op: "finish walk-in service", Current: string(e.Status), Required: string(QueueInService)}
	}
	e.Status = QueueCompleted
	e.ServiceEndTime = &now
	return nil
}

func (e *QueueEntry) Cancel(reason string) error {
	if e.Status != QueueWaiting && e.Status != QueueInService {
		return &StateError{
			Op:       "cancel walk-in",
			Current:  string(e.Status),
			Required: string(QueueWaiting) + " or " + string(QueueInService),
		}
	}
	e.Status = QueueCancelled
	e.CancelReason = reason
	e.QueuePosition = nil
	return nil
}

func (e *QueueEntry) MarkNoShow() error {
	if e.Status != QueueWaiting {
		return &StateError{Op: "mark walk-in no-show", Current: string(e.Status), Required: string(QueueWaiting)}
	}
	e.Status = QueueNoShow
	e.QueuePosition = nil
	return nil
}

// WaitMinutes is the time the client spent (or has spent) waiting.
func (e *QueueEntry) WaitMinutes(now time.Time) int64 {
	until := now
	if e.ServiceStartTime != nil {
		until = *e.ServiceStartTime
	}
	if until.Before(e.ArrivalTime) {
		return 0
	}
	return int64(until.Sub(e.ArrivalTime) / time.Minute)
}
