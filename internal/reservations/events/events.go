// Package events publishes reservation lifecycle events. Publishing is best
// effort: a failure is logged and never undoes the reservation change.
package events

import (
	"context"
	"time"

	"campsite/pkg/dates"
	"campsite/pkg/model"
)

const (
	TypeCreated   = "reservation.created"
	TypeCancelled = "reservation.cancelled"
	TypeUpdated   = "reservation.updated"

	Source        = "campsite-reservations"
	SchemaVersion = "1"
)

type Event struct {
	Type          string    `json:"type"`
	ReservationID string    `json:"reservation_id"`
	PreviousID    string    `json:"previous_id,omitempty"`
	ContactEmail  string    `json:"contact_email,omitempty"`
	StartDate     string    `json:"start_date,omitempty"`
	EndDate       string    `json:"end_date,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

func Created(r *model.Reservation) Event {
	return fromReservation(TypeCreated, r)
}

func Updated(previousID string, r *model.Reservation) Event {
	e := fromReservation(TypeUpdated, r)
	e.PreviousID = previousID
	return e
}

func Cancelled(id string) Event {
	return Event{
		Type:          TypeCancelled,
		ReservationID: id,
		OccurredAt:    time.Now().UTC(),
	}
}

func fromReservation(eventType string, r *model.Reservation) Event {
	return Event{
		Type:          eventType,
		ReservationID: r.ID,
		ContactEmail:  r.ContactEmail,
		StartDate:     dates.Format(r.StartDate),
		EndDate:       dates.Format(r.EndDate),
		OccurredAt:    time.Now().UTC(),
	}
}

type noopPublisher struct{}

// NewNoopPublisher returns a publisher that drops every event.
func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) Publish(context.Context, Event) error { return nil }

func (noopPublisher) Close() error { return nil }
