package queue

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"trimline/backend/internal/domain"
	"trimline/backend/internal/store"
)

// Service manages a professional's same-day walk-in queue: arrivals,
// ordered starts, completion, and the position bookkeeping that keeps the
// waiting set numbered 1..N with no gaps.
type Service struct {
	repo      store.QueueRepository
	directory store.ProfessionalDirectory
	catalog   store.ServiceCatalog
	now       func() time.Time
}

func NewService(repo store.QueueRepository, directory store.ProfessionalDirectory, catalog store.ServiceCatalog) *Service {
	return &Service{
		repo:      repo,
		directory: directory,
		catalog:   catalog,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

type EnqueueInput struct {
	ProfessionalID uuid.UUID
	ClientID       uuid.UUID
	ServiceID      uuid.UUID
	ShopID         *uuid.UUID
	Note           string
}

// Enqueue adds a client to the professional's queue for today. A client
// may only be in one queue at a time, across all professionals.
func (s *Service) Enqueue(ctx context.Context, in EnqueueInput) (domain.QueueEntry, error) {
	if in.ClientID == uuid.Nil {
		return domain.QueueEntry{}, domain.NewRuleError("client_id is required")
	}

	prof, err := s.directory.GetProfessional(ctx, in.ProfessionalID)
	if err != nil {
		return domain.QueueEntry{}, err
	}
	if !prof.Active {
		return domain.QueueEntry{}, domain.NewRuleError("this professional is not currently available")
	}

	svc, err := s.catalog.GetService(ctx, in.ServiceID)
	if err != nil {
		return domain.QueueEntry{}, err
	}
	if !svc.Active {
		return domain.QueueEntry{}, domain.NewRuleError("this service is not currently available")
	}

	shopID := in.ShopID
	if shopID == nil {
		shopID = prof.ShopID
	}

	now := s.now()
	today := domain.DateOf(now)

	var out domain.QueueEntry
	err = s.repo.InProfessionalQueue(ctx, prof.ID, func(ctx context.Context, tx store.QueueTx) error {
		if _, err := tx.FindActiveByClient(ctx, in.ClientID); err == nil {
			return domain.NewRuleError("client is already in a queue")
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		waiting, err := tx.ListWaiting(ctx, prof.ID, today)
		if err != nil {
			return err
		}
		position := len(waiting) + 1

		entry := domain.QueueEntry{
			ProfessionalID: prof.ID,
			ClientID:       in.ClientID,
			ServiceID:      svc.ID,
			ShopID:         shopID,
			Status:         domain.QueueWaiting,
			QueueDate:      today,
			ArrivalTime:    now,
			QueuePosition:  &position,
			Note:           strings.TrimSpace(in.Note),
		}

		created, err := tx.CreateEntry(ctx, entry)
		if err != nil {
			return err
		}
		out = created
		return nil
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return domain.QueueEntry{}, domain.NewRuleError("client is already in a queue")
		}
		return domain.QueueEntry{}, err
	}
	return out, nil
}

// AdvanceNext starts serving the earliest-arrived waiting client. Fails if
// the professional is already serving someone or the queue is empty.
func (s *Service) AdvanceNext(ctx context.Context, professionalID uuid.UUID) (domain.QueueEntry, error) {
	now := s.now()
	today := domain.DateOf(now)

	var out domain.QueueEntry
	err := s.repo.InProfessionalQueue(ctx, professionalID, func(ctx context.Context, tx store.QueueTx) error {
		if err := requireNotServing(ctx, tx, professionalID); err != nil {
			return err
		}

		waiting, err := tx.ListWaiting(ctx, professionalID, today)
		if err != nil {
			return err
		}
		if len(waiting) == 0 {
			return domain.NewRuleError("there are no clients waiting in the queue")
		}

		next := waiting[0]
		if err := next.StartService(now); err != nil {
			return err
		}
		saved, err := tx.SaveEntry(ctx, next)
		if err != nil {
			return err
		}
		if err := tx.RenumberWaiting(ctx, professionalID, today); err != nil {
			return err
		}
		out = saved
		return nil
	})
	if err != nil {
		return domain.QueueEntry{}, err
	}
	return out, nil
}

// StartSpecific starts a named waiting entry out of arrival order.
func (s *Service) StartSpecific(ctx context.Context, professionalID, entryID uuid.UUID) (domain.QueueEntry, error) {
	now := s.now()

	var out domain.QueueEntry
	err := s.repo.InProfessionalQueue(ctx, professionalID, func(ctx context.Context, tx store.QueueTx) error {
		if err := requireNotServing(ctx, tx, professionalID); err != nil {
			return err
		}

		entry, err := tx.GetEntry(ctx, entryID)
		if err != nil {
			return err
		}
		if entry.ProfessionalID != professionalID {
			return &domain.PermissionError{Reason: "this walk-in does not belong to your queue"}
		}
		if err := entry.StartService(now); err != nil {
			return err
		}
		saved, err := tx.SaveEntry(ctx, entry)
		if err != nil {
			return err
		}
		if err := tx.RenumberWaiting(ctx, professionalID, entry.QueueDate); err != nil {
			return err
		}
		out = saved
		return nil
	})
	if err != nil {
		return domain.QueueEntry{}, err
	}
	return out, nil
}

// Finish completes the entry currently in service and bumps the
// professional's served counter in the same transaction.
func (s *Service) Finish(ctx context.Context, professionalID uuid.UUID) (domain.QueueEntry, error) {
	now := s.now()

	var out domain.QueueEntry
	err := s.repo.InProfessionalQueue(ctx, professionalID, func(ctx context.Context, tx store.QueueTx) error {
		current, err := tx.FindInService(ctx, professionalID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return &domain.StateError{
					Op:       "finish walk-in service",
					Current:  "no entry in service",
					Required: string(domain.QueueInService),
				}
			}
			return err
		}
		if err := current.FinishService(now); err != nil {
			return err
		}
		saved, err := tx.SaveEntry(ctx, current)
		if err != nil {
			return err
		}
		if err := tx.IncrementProfessionalServed(ctx, professionalID); err != nil {
			return err
		}
		out = saved
		return nil
	})
	if err != nil {
		return domain.QueueEntry{}, err
	}
	return out, nil
}

func (s *Service) Cancel(ctx context.Context, professionalID, entryID uuid.UUID, reason string) (domain.QueueEntry, error) {
	return s.mutateEntry(ctx, professionalID, entryID, func(e *domain.QueueEntry) error {
		return e.Cancel(reason)
	})
}

func (s *Service) MarkNoShow(ctx context.Context, professionalID, entryID uuid.UUID) (domain.QueueEntry, error) {
	return s.mutateEntry(ctx, professionalID, entryID, func(e *domain.QueueEntry) error {
		return e.MarkNoShow()
	})
}

func (s *Service) mutateEntry(ctx context.Context, professionalID, entryID uuid.UUID, apply func(*domain.QueueEntry) error) (domain.QueueEntry, error) {
	var out domain.QueueEntry
	err := s.repo.InProfessionalQueue(ctx, professionalID, func(ctx context.Context, tx store.QueueTx) error {
		entry, err := tx.GetEntry(ctx, entryID)
		if err != nil {
			return err
		}
		if entry.ProfessionalID != professionalID {
			return &domain.PermissionError{Reason: "this walk-in does not belong to your queue"}
		}
		if err := apply(&entry); err != nil {
			return err
		}
		saved, err := tx.SaveEntry(ctx, entry)
		if err != nil {
			return err
		}
		if err := tx.RenumberWaiting(ctx, professionalID, entry.QueueDate); err != nil {
			return err
		}
		out = saved
		return nil
	})
	if err != nil {
		return domain.QueueEntry{}, err
	}
	return out, nil
}

// Snapshot is a professional's live queue: who is in the chair, who is
// waiting, and the day's throughput numbers.
type Snapshot struct {
	ProfessionalID    uuid.UUID
	ProfessionalName  string
	Current           *domain.QueueEntry
	Waiting           []domain.QueueEntry
	WaitingCount      int
	ServedToday       int
	AvgWaitMinutes    int64
	AvgServiceMinutes int64
}

func (s *Service) Snapshot(ctx context.Context, professionalID uuid.UUID) (Snapshot, error) {
	prof, err := s.directory.GetProfessional(ctx, professionalID)
	if err != nil {
		return Snapshot{}, err
	}

	today := domain.DateOf(s.now())

	snap := Snapshot{
		ProfessionalID:   prof.ID,
		ProfessionalName: prof.DisplayName,
	}

	current, err := s.repo.FindInService(ctx, professionalID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return Snapshot{}, err
		}
	} else {
		snap.Current = &current
	}

	waiting, err := s.repo.ListWaiting(ctx, professionalID, today)
	if err != nil {
		return Snapshot{}, err
	}
	snap.Waiting = waiting
	snap.WaitingCount = len(waiting)

	served, err := s.repo.CountCompleted(ctx, professionalID, today)
	if err != nil {
		return Snapshot{}, err
	}
	snap.ServedToday = served

	avgWait, err := s.repo.AverageWaitMinutes(ctx, professionalID, today)
	if err != nil {
		return Snapshot{}, err
	}
	snap.AvgWaitMinutes = int64(avgWait)

	avgService, err := s.repo.AverageServiceMinutes(ctx, professionalID, today)
	if err != nil {
		return Snapshot{}, err
	}
	snap.AvgServiceMinutes = int64(avgService)

	return snap, nil
}

// ActiveForClient returns the client's current queue entry, if any.
func (s *Service) ActiveForClient(ctx context.Context, clientID uuid.UUID) (domain.QueueEntry, error) {
	return s.repo.FindActiveByClient(ctx, clientID)
}

func requireNotServing(ctx context.Context, tx store.QueueTx, professionalID uuid.UUID) error {
	_, err := tx.FindInService(ctx, professionalID)
	if err == nil {
		return &domain.StateError{
			Op:       "start walk-in service",
			Current:  "an entry is already in service",
			Required: "no entry in service",
		}
	}
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}
