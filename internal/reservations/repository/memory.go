package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	reservationserrors "campsite/internal/reservations/errors"
	"campsite/pkg/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memoryTx stages a transaction's writes. Nothing is visible outside the
// transaction until commit applies every staged write at once.
type memoryTx struct {
	staged map[string]*model.Reservation
	order  []string
}

type memoryTxKey struct{}

// memoryReservationRepository keeps reservations in process memory. Writes
// are serialized by writeMu; a transaction holds writeMu for its whole run.
// mu guards the map itself.
type memoryReservationRepository struct {
	writeMu      sync.Mutex
	mu           sync.RWMutex
	reservations map[string]*model.Reservation
}

func NewMemoryReservationRepository() ReservationRepository {
	return &memoryReservationRepository{
		reservations: make(map[string]*model.Reservation),
	}
}

func txFrom(ctx context.Context) *memoryTx {
	tx, _ := ctx.Value(memoryTxKey{}).(*memoryTx)
	return tx
}

// write runs fn under writeMu unless ctx already belongs to a transaction,
// which holds it.
func (r *memoryReservationRepository) write(ctx context.Context, fn func(tx *memoryTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if tx := txFrom(ctx); tx != nil {
		return fn(tx)
	}
	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	return fn(nil)
}

func clone(reservation *model.Reservation) *model.Reservation {
	c := *reservation
	return &c
}

func (r *memoryReservationRepository) put(tx *memoryTx, reservation *model.Reservation) {
	if tx != nil {
		if _, ok := tx.staged[reservation.ID]; !ok {
			tx.order = append(tx.order, reservation.ID)
		}
		tx.staged[reservation.ID] = clone(reservation)
		return
	}

	r.mu.Lock()
	r.reservations[reservation.ID] = clone(reservation)
	r.mu.Unlock()
}

// lookup reads id as seen by ctx: staged writes of its transaction first,
// then committed state.
func (r *memoryReservationRepository) lookup(ctx context.Context, id string) (*model.Reservation, bool) {
	if tx := txFrom(ctx); tx != nil {
		if staged, ok := tx.staged[id]; ok {
			return staged, true
		}
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	reservation, ok := r.reservations[id]
	return reservation, ok
}

func (tx *memoryTx) commit(r *memoryReservationRepository) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range tx.order {
		r.reservations[id] = tx.staged[id]
	}
}

func (r *memoryReservationRepository) Create(ctx context.Context, reservation *model.Reservation) error {
	return r.write(ctx, func(tx *memoryTx) error {
		ts := now()
		reservation.ID = primitive.NewObjectID().Hex()
		reservation.CreatedAt = ts
		reservation.UpdatedAt = ts
		r.put(tx, reservation)
		return nil
	})
}

func (r *memoryReservationRepository) FindByID(ctx context.Context, id string) (*model.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := objectID(id); err != nil {
		return nil, err
	}

	reservation, ok := r.lookup(ctx, id)
	if !ok {
		return nil, reservationserrors.ErrNotFound
	}
	return clone(reservation), nil
}

func (r *memoryReservationRepository) activeOverlapping(ctx context.Context, start, end time.Time) []*model.Reservation {
	var staged map[string]*model.Reservation
	if tx := txFrom(ctx); tx != nil {
		staged = tx.staged
	}

	matches := func(reservation *model.Reservation) bool {
		return !reservation.Cancelled && !reservation.EndDate.Before(start) && !reservation.StartDate.After(end)
	}

	out := []*model.Reservation{}
	r.mu.RLock()
	for id, reservation := range r.reservations {
		if pending, ok := staged[id]; ok {
			reservation = pending
		}
		if matches(reservation) {
			out = append(out, clone(reservation))
		}
	}
	for id, reservation := range staged {
		if _, committed := r.reservations[id]; !committed && matches(reservation) {
			out = append(out, clone(reservation))
		}
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartDate.Before(out[j].StartDate)
	})
	return out
}

func (r *memoryReservationRepository) FindActiveOverlapping(ctx context.Context, start, end time.Time) ([]*model.Reservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.activeOverlapping(ctx, start, end), nil
}

func (r *memoryReservationRepository) CountActiveOverlapping(ctx context.Context, start, end time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return int64(len(r.activeOverlapping(ctx, start, end))), nil
}

func (r *memoryReservationRepository) Save(ctx context.Context, reservation *model.Reservation) error {
	if reservation.ID == "" {
		return r.Create(ctx, reservation)
	}
	if _, err := objectID(reservation.ID); err != nil {
		return err
	}

	return r.write(ctx, func(tx *memoryTx) error {
		existing, ok := r.lookup(ctx, reservation.ID)
		if !ok {
			return reservationserrors.ErrNotFound
		}

		reservation.CreatedAt = existing.CreatedAt
		reservation.UpdatedAt = now()
		r.put(tx, reservation)
		return nil
	})
}

func (r *memoryReservationRepository) Cancel(ctx context.Context, id string) error {
	if _, err := objectID(id); err != nil {
		return err
	}

	return r.write(ctx, func(tx *memoryTx) error {
		existing, ok := r.lookup(ctx, id)
		if !ok {
			return reservationserrors.ErrNotFound
		}
		if existing.Cancelled {
			return reservationserrors.ErrAlreadyCancelled
		}

		cancelled := clone(existing)
		cancelled.Cancelled = true
		cancelled.UpdatedAt = now()
		r.put(tx, cancelled)
		return nil
	})
}

func (r *memoryReservationRepository) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}

	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	tx := &memoryTx{staged: make(map[string]*model.Reservation)}
	if err := fn(context.WithValue(ctx, memoryTxKey{}, tx)); err != nil {
		return err
	}
	tx.commit(r)
	return nil
}
