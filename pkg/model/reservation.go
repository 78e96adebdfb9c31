package model

import "time"

// Reservation is an exclusive booking of the campsite for the half-open day
// range [StartDate, EndDate). Dates are UTC midnights.
type Reservation struct {
	ID           string    `json:"id" bson:"_id,omitempty" db:"id"`
	ContactEmail string    `json:"contact_email" bson:"contact_email" db:"contact_email"`
	ContactName  string    `json:"contact_name" bson:"contact_name" db:"contact_name"`
	StartDate    time.Time `json:"start_date" bson:"start_date" db:"start_date"`
	EndDate      time.Time `json:"end_date" bson:"end_date" db:"end_date"`
	Cancelled    bool      `json:"cancelled" bson:"cancelled" db:"cancelled"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at" db:"updated_at"`
}

// Active reports whether the reservation still holds its days.
func (r *Reservation) Active() bool {
	return !r.Cancelled
}

// Overlaps reports whether the reservation's days intersect [start, end).
func (r *Reservation) Overlaps(start, end time.Time) bool {
	return r.StartDate.Before(end) && r.EndDate.After(start)
}

// ReservationRequest is a candidate reservation as submitted by a caller.
// Zero dates mean the date was not supplied.
type ReservationRequest struct {
	ContactEmail string    `json:"contact_email" validate:"required"`
	ContactName  string    `json:"contact_name" validate:"required"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
}

// ToReservation builds a new active reservation from the request.
func (req *ReservationRequest) ToReservation() *Reservation {
	return &Reservation{
		ContactEmail: req.ContactEmail,
		ContactName:  req.ContactName,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
	}
}
