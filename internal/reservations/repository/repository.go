package repository

import (
	"context"
	"fmt"
	"time"

	"campsite/pkg/config"
	"campsite/pkg/model"
)

// ReservationRepository persists reservations. Overlap queries use the
// inclusive filter end_date >= start AND start_date <= end over active rows;
// callers narrow the result with the availability package.
type ReservationRepository interface {
	Create(ctx context.Context, reservation *model.Reservation) error
	FindByID(ctx context.Context, id string) (*model.Reservation, error)
	FindActiveOverlapping(ctx context.Context, start, end time.Time) ([]*model.Reservation, error)
	CountActiveOverlapping(ctx context.Context, start, end time.Time) (int64, error)
	// Save inserts a reservation without an ID and fully updates one with an ID.
	Save(ctx context.Context, reservation *model.Reservation) error
	// Cancel flips cancelled from false to true in a single conditional write.
	Cancel(ctx context.Context, id string) error
	// WithinTransaction runs fn atomically; repository calls made with the
	// ctx passed to fn join the transaction.
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// New returns the repository for the configured storage driver. The storage
// connection must already be open.
func New(cfg *config.Config) (ReservationRepository, error) {
	switch cfg.StorageDriver {
	case config.StorageMongo:
		if cfg.Client.Mongo == nil {
			return nil, fmt.Errorf("mongo storage selected but no mongo client is connected")
		}
		return NewMongoReservationRepository(cfg), nil
	case config.StoragePostgres:
		if cfg.Client.Postgres == nil {
			return nil, fmt.Errorf("postgres storage selected but no postgres connection is open")
		}
		return NewPostgresReservationRepository(cfg), nil
	case config.StorageMemory:
		return NewMemoryReservationRepository(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %s", cfg.StorageDriver)
	}
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}
