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

type AppointmentRepo struct {
	db *bun.DB
}

func NewAppointmentRepo(db *bun.DB) *AppointmentRepo {
	return &AppointmentRepo{db: db}
}

type scheduleTx struct {
	tx bun.Tx
}

func (r *AppointmentRepo) InProfessionalSchedule(ctx context.Context, professionalID uuid.UUID, fn func(ctx context.Context, tx store.ScheduleTx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockProfessional(ctx, tx, professionalID); err != nil {
			return err
		}
		return fn(ctx, scheduleTx{tx: tx})
	})
}

func (r *AppointmentRepo) FindByID(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var appt domain.Appointment
	err := r.db.NewSelect().
		Model(&appt).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Appointment{}, store.ErrNotFound
		}
		return domain.Appointment{}, err
	}
	return appt, nil
}

func (r *AppointmentRepo) ListDay(ctx context.Context, professionalID uuid.UUID, date time.Time, excluding []domain.AppointmentStatus) ([]domain.Appointment, error) {
	return listDayAppointments(ctx, r.db, professionalID, date, excluding)
}

func (r *AppointmentRepo) ListUpcomingForClient(ctx context.Context, clientID uuid.UUID, from time.Time) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	err := r.db.NewSelect().
		Model(&rows).
		Where("client_id = ?", clientID).
		Where("end_time > ?", from).
		Where("status NOT IN (?)", bun.In(terminalStatuses())).
		OrderExpr("start_time ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r scheduleTx) CreateAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := appt
	_, err := r.tx.NewInsert().Model(&m).Exec(ctx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23P01" && pgErr.ConstraintName == "appointments_no_overlap" {
			return domain.Appointment{}, store.ErrConflict
		}
		return domain.Appointment{}, err
	}
	return m, nil
}

func (r scheduleTx) GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var appt domain.Appointment
	err := r.tx.NewSelect().
		Model(&appt).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Appointment{}, store.ErrNotFound
		}
		return domain.Appointment{}, err
	}
	return appt, nil
}

func (r scheduleTx) ListDayAppointments(ctx context.Context, professionalID uuid.UUID, date time.Time, excluding []domain.AppointmentStatus) ([]domain.Appointment, error) {
	return listDayAppointments(ctx, r.tx, professionalID, date, excluding)
}

func (r scheduleTx) SaveAppointment(ctx context.Context, appt domain.Appointment) (domain.Appointment, error) {
	m := appt
	res, err := r.tx.NewUpdate().
		Model(&m).
		WherePK().
		Exec(ctx)
	if err != nil {
		return domain.Appointment{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Appointment{}, err
	}
	if affected == 0 {
		return domain.Appointment{}, store.ErrNotFound
	}
	return m, nil
}

func listDayAppointments(ctx context.Context, db bun.IDB, professionalID uuid.UUID, date time.Time, excluding []domain.AppointmentStatus) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	q := db.NewSelect().
		Model(&rows).
		Where("professional_id = ?", professionalID).
		Where("date = ?", domain.DateOf(date))
	if len(excluding) > 0 {
		q = q.Where("status NOT IN (?)", bun.In(excluding))
	}
	err := q.OrderExpr("start_time ASC").Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func terminalStatuses() []domain.AppointmentStatus {
	return []domain.AppointmentStatus{
		domain.AppointmentCompleted,
		domain.AppointmentNoShow,
		domain.AppointmentCancelledClient,
		domain.AppointmentCancelledProfessional,
		domain.AppointmentCancelledShop,
	}
}
