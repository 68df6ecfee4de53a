package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"trimline/backend/internal/domain"
	"trimline/backend/internal/store"
)

type QueueRepo struct {
	db *bun.DB
}

func NewQueueRepo(db *bun.DB) *QueueRepo {
	return &QueueRepo{db: db}
}

type queueTx struct {
	tx bun.Tx
}

func (r *QueueRepo) InProfessionalQueue(ctx context.Context, professionalID uuid.UUID, fn func(ctx context.Context, tx store.QueueTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockProfessional(ctx, tx, professionalID); err != nil {
			return err
		}
		return fn(ctx, queueTx{tx: tx})
	})
}

func (r *QueueRepo) FindByID(ctx context.Context, id uuid.UUID) (domain.QueueEntry, error) {
	return getQueueEntry(ctx, r.db, id)
}

func (r *QueueRepo) ListWaiting(ctx context.Context, professionalID uuid.UUID, date time.Time) ([]domain.QueueEntry, error) {
	return listWaiting(ctx, r.db, professionalID, date)
}

func (r *QueueRepo) FindInService(ctx context.Context, professionalID uuid.UUID) (domain.QueueEntry, error) {
	return findInService(ctx, r.db, professionalID)
}

func (r *QueueRepo) FindActiveByClient(ctx context.Context, clientID uuid.UUID) (domain.QueueEntry, error) {
	return findActiveByClient(ctx, r.db, clientID)
}

func (r *QueueRepo) CountCompleted(ctx context.Context, professionalID uuid.UUID, date time.Time) (int, error) {
	return r.db.NewSelect().
		Model((*domain.QueueEntry)(nil)).
		Where("professional_id = ?", professionalID).
		Where("queue_date = ?", domain.DateOf(date)).
		Where("status = ?", domain.QueueCompleted).
		Count(ctx)
}

func (r *QueueRepo) AverageWaitMinutes(ctx context.Context, professionalID uuid.UUID, date time.Time) (float64, error) {
	return averageMinutes(ctx, r.db, professionalID, date, "arrival_time", "service_start_time")
}

func (r *QueueRepo) AverageServiceMinutes(ctx context.Context, professionalID uuid.UUID, date time.Time) (float64, error) {
	return averageMinutes(ctx, r.db, professionalID, date, "service_start_time", "service_end_time")
}

func averageMinutes(ctx context.Context, db bun.IDB, professionalID uuid.UUID, date time.Time, fromCol, untilCol string) (float64, error) {
	var avg sql.NullFloat64
	err := db.NewRaw(
		"SELECT AVG(EXTRACT(EPOCH FROM ("+untilCol+" - "+fromCol+")) / 60) "+
			"FROM queue_entries "+
			"WHERE professional_id = ? AND queue_date = ? AND "+untilCol+" IS NOT NULL",
		professionalID, domain.DateOf(date),
	).Scan(ctx, &avg)
	if err != nil {
		return 0, err
	}
	if !avg.Valid {
		return 0, nil
	}
	return avg.Float64, nil
}

func (r queueTx) CreateEntry(ctx context.Context, entry domain.QueueEntry) (domain.QueueEntry, error) {
	m := entry
	_, err := r.tx.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		// Concurrent enqueues by one client to different professionals run
		// under different advisory locks, so the pre-check can miss; the
		// partial unique index is the arbiter.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == "queue_entries_one_active_per_client" {
			return domain.QueueEntry{}, store.ErrConflict
		}
		return domain.QueueEntry{}, err
	}
	return m, nil
}

func (r queueTx) GetEntry(ctx context.Context, id uuid.UUID) (domain.QueueEntry, error) {
	return getQueueEntry(ctx, r.tx, id)
}

func (r queueTx) ListWaiting(ctx context.Context, professionalID uuid.UUID, date time.Time) ([]domain.QueueEntry, error) {
	return listWaiting(ctx, r.tx, professionalID, date)
}

func (r queueTx) FindInService(ctx context.Context, professionalID uuid.UUID) (domain.QueueEntry, error) {
	return findInService(ctx, r.tx, professionalID)
}

func (r queueTx) FindActiveByClient(ctx context.Context, clientID uuid.UUID) (domain.QueueEntry, error) {
	return findActiveByClient(ctx, r.tx, clientID)
}

func (r queueTx) SaveEntry(ctx context.Context, entry domain.QueueEntry) (domain.QueueEntry, error) {
	m := entry
	res, err := r.tx.NewUpdate().
		Model(&m).
		WherePK().
		Exec(ctx)
	if err != nil {
		return domain.QueueEntry{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.QueueEntry{}, err
	}
	if affected == 0 {
		return domain.QueueEntry{}, store.ErrNotFound
	}
	return m, nil
}

// RenumberWaiting derives positions from arrival order in one statement so
// the waiting set is always a contiguous 1..N sequence at commit.
func (r queueTx) RenumberWaiting(ctx context.Context, professionalID uuid.UUID, date time.Time) error {
	_, err := r.tx.NewRaw(`
		UPDATE queue_entries q
		SET queue_position = (
			SELECT COUNT(*) + 1
			FROM queue_entries q2
			WHERE q2.professional_id = q.professional_id
			  AND q2.queue_date = q.queue_date
			  AND q2.status = ?
			  AND q2.arrival_time < q.arrival_time
		)
		WHERE q.professional_id = ?
		  AND q.queue_date = ?
		  AND q.status = ?`,
		domain.QueueWaiting, professionalID, domain.DateOf(date), domain.QueueWaiting,
	).Exec(ctx)
	return err
}

func (r queueTx) IncrementProfessionalServed(ctx context.Context, professionalID uuid.UUID) error {
	res, err := r.tx.NewUpdate().
		Model((*domain.Professional)(nil)).
		Set("total_served = total_served + 1").
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", professionalID).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func getQueueEntry(ctx context.Context, db bun.IDB, id uuid.UUID) (domain.QueueEntry, error) {
	var entry domain.QueueEntry
	err := db.NewSelect().
		Model(&entry).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.QueueEntry{}, store.ErrNotFound
		}
		return domain.QueueEntry{}, err
	}
	return entry, nil
}

func listWaiting(ctx context.Context, db bun.IDB, professionalID uuid.UUID, date time.Time) ([]domain.QueueEntry, error) {
	var rows []domain.QueueEntry
	err := db.NewSelect().
		Model(&rows).
		Where("professional_id = ?", professionalID).
		Where("queue_date = ?", domain.DateOf(date)).
		Where("status = ?", domain.QueueWaiting).
		OrderExpr("arrival_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func findInService(ctx context.Context, db bun.IDB, professionalID uuid.UUID) (domain.QueueEntry, error) {
	var entry domain.QueueEntry
	err := db.NewSelect().
		Model(&entry).
		Where("professional_id = ?", professionalID).
		Where("status = ?", domain.QueueInService).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.QueueEntry{}, store.ErrNotFound
		}
		return domain.QueueEntry{}, err
	}
	return entry, nil
}

func findActiveByClient(ctx context.Context, db bun.IDB, clientID uuid.UUID) (domain.QueueEntry, error) {
	var entry domain.QueueEntry
	err := db.NewSelect().
		Model(&entry).
		Where("client_id = ?", clientID).
		Where("status IN (?)", bun.In(domain.ActiveQueueStatuses)).
		OrderExpr("arrival_time DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.QueueEntry{}, store.ErrNotFound
		}
		return domain.QueueEntry{}, err
	}
	return entry, nil
}
