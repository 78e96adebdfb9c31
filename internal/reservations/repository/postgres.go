package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	reservationserrors "campsite/internal/reservations/errors"
	"campsite/pkg/config"
	"campsite/pkg/dates"
	"campsite/pkg/model"

	"github.com/jmoiron/sqlx"
)

const (
	TableName = "reservations"

	reservationColumns = `id, contact_email, contact_name, start_date, end_date, cancelled, created_at, updated_at`
)

type txKey struct{}

type postgresReservationRepository struct {
	cfg *config.Config
	db  *sqlx.DB
}

func NewPostgresReservationRepository(cfg *config.Config) ReservationRepository {
	return &postgresReservationRepository{
		cfg: cfg,
		db:  cfg.Client.Postgres,
	}
}

// ext returns the transaction carried by ctx, or the pool.
func (r *postgresReservationRepository) ext(ctx context.Context) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return r.db
}

func (r *postgresReservationRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		return context.WithDeadline(ctx, deadline)
	}
	return context.WithTimeout(ctx, timeout)
}

func parseID(id string) (int64, error) {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: %s", reservationserrors.ErrInvalidID, id)
	}
	return n, nil
}

func (r *postgresReservationRepository) Create(ctx context.Context, reservation *model.Reservation) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	ts := now()
	query := `INSERT INTO ` + TableName + ` (contact_email, contact_name, start_date, end_date, cancelled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		RETURNING id`

	var id int64
	err := r.ext(ctx).QueryRowxContext(ctx, query,
		reservation.ContactEmail,
		reservation.ContactName,
		reservation.StartDate,
		reservation.EndDate,
		reservation.Cancelled,
		ts,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("failed to create reservation: %w", err)
	}

	reservation.ID = strconv.FormatInt(id, 10)
	reservation.CreatedAt = ts
	reservation.UpdatedAt = ts
	return nil
}

func (r *postgresReservationRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	n, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var reservation model.Reservation
	query := `SELECT ` + reservationColumns + ` FROM ` + TableName + ` WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.ext(ctx), &reservation, query, n); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reservationserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find reservation: %w", err)
	}

	return normalize(&reservation), nil
}

func (r *postgresReservationRepository) FindActiveOverlapping(ctx context.Context, start, end time.Time) ([]*model.Reservation, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	query := `SELECT ` + reservationColumns + ` FROM ` + TableName + `
		WHERE cancelled = FALSE AND end_date >= $1 AND start_date <= $2
		ORDER BY start_date`

	reservations := []*model.Reservation{}
	if err := sqlx.SelectContext(ctx, r.ext(ctx), &reservations, query, start, end); err != nil {
		return nil, fmt.Errorf("failed to find reservations: %w", err)
	}
	for _, reservation := range reservations {
		normalize(reservation)
	}

	return reservations, nil
}

func (r *postgresReservationRepository) CountActiveOverlapping(ctx context.Context, start, end time.Time) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	query := `SELECT COUNT(*) FROM ` + TableName + `
		WHERE cancelled = FALSE AND end_date >= $1 AND start_date <= $2`

	var count int64
	if err := sqlx.GetContext(ctx, r.ext(ctx), &count, query, start, end); err != nil {
		return 0, fmt.Errorf("failed to count reservations: %w", err)
	}
	return count, nil
}

func (r *postgresReservationRepository) Save(ctx context.Context, reservation *model.Reservation) error {
	if reservation.ID == "" {
		return r.Create(ctx, reservation)
	}

	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	n, err := parseID(reservation.ID)
	if err != nil {
		return err
	}

	ts := now()
	query := `UPDATE ` + TableName + `
		SET contact_email = $1, contact_name = $2, start_date = $3, end_date = $4, cancelled = $5, updated_at = $6
		WHERE id = $7`

	result, err := r.ext(ctx).ExecContext(ctx, query,
		reservation.ContactEmail,
		reservation.ContactName,
		reservation.StartDate,
		reservation.EndDate,
		reservation.Cancelled,
		ts,
		n,
	)
	if err != nil {
		return fmt.Errorf("failed to save reservation: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return reservationserrors.ErrNotFound
	}

	reservation.UpdatedAt = ts
	return nil
}

func (r *postgresReservationRepository) Cancel(ctx context.Context, id string) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	n, err := parseID(id)
	if err != nil {
		return err
	}

	query := `UPDATE ` + TableName + ` SET cancelled = TRUE, updated_at = $1 WHERE id = $2 AND cancelled = FALSE`
	result, err := r.ext(ctx).ExecContext(ctx, query, now(), n)
	if err != nil {
		return fmt.Errorf("failed to cancel reservation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to cancel reservation: %w", err)
	}
	if affected == 1 {
		return nil
	}

	var exists bool
	if err := sqlx.GetContext(ctx, r.ext(ctx), &exists, `SELECT EXISTS(SELECT 1 FROM `+TableName+` WHERE id = $1)`, n); err != nil {
		return fmt.Errorf("failed to check reservation existence: %w", err)
	}
	if !exists {
		return reservationserrors.ErrNotFound
	}
	return reservationserrors.ErrAlreadyCancelled
}

func (r *postgresReservationRepository) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// normalize pins DATE columns to UTC midnight regardless of the session
// time zone.
func normalize(reservation *model.Reservation) *model.Reservation {
	reservation.StartDate = dates.Day(reservation.StartDate)
	reservation.EndDate = dates.Day(reservation.EndDate)
	return reservation
}
