package handler

import (
	"time"

	"campsite/pkg/dates"
	apperrors "campsite/pkg/errors"
	"campsite/pkg/model"
)

type ReservationRequestBody struct {
	ContactEmail string `json:"contact_email"`
	ContactName  string `json:"contact_name"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
}

// toRequest parses the body dates. Missing dates stay zero so validation
// reports them; malformed dates are rejected here.
func (b *ReservationRequestBody) toRequest() (*model.ReservationRequest, error) {
	req := &model.ReservationRequest{
		ContactEmail: b.ContactEmail,
		ContactName:  b.ContactName,
	}

	var err error
	if b.StartDate != "" {
		if req.StartDate, err = dates.Parse(b.StartDate); err != nil {
			return nil, apperrors.InvalidInput("invalid start_date format, must be YYYY-MM-DD")
		}
	}
	if b.EndDate != "" {
		if req.EndDate, err = dates.Parse(b.EndDate); err != nil {
			return nil, apperrors.InvalidInput("invalid end_date format, must be YYYY-MM-DD")
		}
	}
	return req, nil
}

type ReservationResponse struct {
	ID           string    `json:"id"`
	ContactEmail string    `json:"contact_email"`
	ContactName  string    `json:"contact_name"`
	StartDate    string    `json:"start_date"`
	EndDate      string    `json:"end_date"`
	Cancelled    bool      `json:"cancelled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toResponse(r *model.Reservation) ReservationResponse {
	return ReservationResponse{
		ID:           r.ID,
		ContactEmail: r.ContactEmail,
		ContactName:  r.ContactName,
		StartDate:    dates.Format(r.StartDate),
		EndDate:      dates.Format(r.EndDate),
		Cancelled:    r.Cancelled,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type AvailabilityResponse struct {
	StartDate      string   `json:"start_date"`
	EndDate        string   `json:"end_date"`
	AvailableDates []string `json:"available_dates"`
}

type CountResponse struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Count     int64  `json:"count"`
}
