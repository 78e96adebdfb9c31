package service

import (
	"context"
	"time"

	reservationserrors "campsite/internal/reservations/errors"

	"golang.org/x/sync/semaphore"
)

// admissionGate admits one holder at a time. Waiting is bounded by the
// caller's context and by timeout.
type admissionGate struct {
	sem     *semaphore.Weighted
	timeout time.Duration
}

func newAdmissionGate(timeout time.Duration) *admissionGate {
	return &admissionGate{
		sem:     semaphore.NewWeighted(1),
		timeout: timeout,
	}
}

// acquire returns ErrAdmissionBusy when the timeout elapses first and the
// context error when ctx ends first.
func (g *admissionGate) acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := g.sem.Acquire(waitCtx, 1); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return reservationserrors.ErrAdmissionBusy
	}
	return nil
}

func (g *admissionGate) release() {
	g.sem.Release(1)
}
