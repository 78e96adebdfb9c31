package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campsite/internal/reservations/availability"
	reservationserrors "campsite/internal/reservations/errors"
	"campsite/internal/reservations/events"
	"campsite/internal/reservations/repository"
	"campsite/internal/reservations/validator"
	"campsite/pkg/config"
	"campsite/pkg/dates"
	apperrors "campsite/pkg/errors"
	"campsite/pkg/model"
	"campsite/pkg/sanitizer"

	"github.com/google/uuid"
)

const resourceName = "Reservation"

type ReservationService interface {
	Availability(ctx context.Context, start, end time.Time) ([]time.Time, error)
	Reserve(ctx context.Context, req *model.ReservationRequest) (*model.Reservation, error)
	Update(ctx context.Context, id string, req *model.ReservationRequest) (*model.Reservation, error)
	Cancel(ctx context.Context, id string) error
	CountActiveBetween(ctx context.Context, start, end time.Time) (int64, error)
	GetByID(ctx context.Context, id string) (*model.Reservation, error)
}

type reservationService struct {
	repo      repository.ReservationRepository
	leaseRepo repository.AdmissionLeaseRepository
	validator *validator.ReservationValidator
	publisher events.Publisher
	gate      *admissionGate
	holder    string
	cfg       *config.Config
}

// NewReservationService wires the coordinator. leaseRepo may be nil, in
// which case only the in-process gate guards admission.
func NewReservationService(
	repo repository.ReservationRepository,
	leaseRepo repository.AdmissionLeaseRepository,
	validator *validator.ReservationValidator,
	publisher events.Publisher,
	cfg *config.Config,
) ReservationService {
	if publisher == nil {
		publisher = events.NewNoopPublisher()
	}
	return &reservationService{
		repo:      repo,
		leaseRepo: leaseRepo,
		validator: validator,
		publisher: publisher,
		gate:      newAdmissionGate(cfg.AdmissionTimeout),
		holder:    uuid.NewString(),
		cfg:       cfg,
	}
}

func (s *reservationService) Availability(ctx context.Context, start, end time.Time) ([]time.Time, error) {
	start, end = dates.Day(start), dates.Day(end)
	if end.Before(start) {
		return nil, apperrors.InvalidInput("End date cannot be before start date")
	}

	reservations, err := s.repo.FindActiveOverlapping(ctx, start, end)
	if err != nil {
		s.cfg.Log.Error("Failed to load reservations for availability",
			"start_date", dates.Format(start),
			"end_date", dates.Format(end),
			"error", err,
		)
		return nil, apperrors.Internal("Failed to check availability", err)
	}

	free := availability.FreeDays(start, end, reservations)
	s.cfg.Log.Debug("Availability computed",
		"start_date", dates.Format(start),
		"end_date", dates.Format(end),
		"free_days", len(free),
	)
	return free, nil
}

// Reserve admits a new reservation. Validation, the free-range check and the
// insert all run while holding the admission gate.
func (s *reservationService) Reserve(ctx context.Context, req *model.ReservationRequest) (*model.Reservation, error) {
	if req == nil {
		return nil, apperrors.InvalidInput("Reservation cannot be empty")
	}
	candidate := s.sanitize(req)

	release, err := s.enterAdmission(ctx)
	if err != nil {
		return nil, err
	}
	reservation, err := s.admit(ctx, candidate)
	release()
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Reservation created successfully",
		"id", reservation.ID,
		"start_date", dates.Format(reservation.StartDate),
		"end_date", dates.Format(reservation.EndDate),
	)
	s.publish(ctx, events.Created(reservation))
	return reservation, nil
}

func (s *reservationService) admit(ctx context.Context, candidate *model.ReservationRequest) (*model.Reservation, error) {
	if err := s.validate(candidate); err != nil {
		return nil, err
	}

	free, err := s.rangeFree(ctx, candidate.StartDate, candidate.EndDate, "")
	if err != nil {
		return nil, err
	}
	if !free {
		s.cfg.Log.Info("Reservation denied, dates unavailable",
			"start_date", dates.Format(candidate.StartDate),
			"end_date", dates.Format(candidate.EndDate),
		)
		return nil, denied("Reservation dates are not available", candidate)
	}

	reservation := candidate.ToReservation()
	if err := s.repo.Create(ctx, reservation); err != nil {
		s.cfg.Log.Error("Failed to create reservation", "error", err)
		return nil, apperrors.Internal("Failed to create reservation", err)
	}
	return reservation, nil
}

// Cancel relies on the repository's conditional write, so of two concurrent
// cancellations exactly one succeeds.
func (s *reservationService) Cancel(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Reservation ID cannot be empty")
	}

	if err := s.repo.Cancel(ctx, id); err != nil {
		if errors.Is(err, reservationserrors.ErrAlreadyCancelled) {
			return apperrors.AlreadyCancelled(
				fmt.Sprintf("Reservation with ID: %s has been cancelled previously", id), id,
			).WithCause(err)
		}
		if appErr := s.lookupError(err, id); appErr != nil {
			return appErr
		}
		s.cfg.Log.Error("Failed to cancel reservation", "id", id, "error", err)
		return apperrors.Internal("Failed to cancel reservation", err)
	}

	s.cfg.Log.Info("Reservation cancelled successfully", "id", id)
	s.publish(ctx, events.Cancelled(id))
	return nil
}

// Update replaces reservation id with a new reservation for the candidate's
// dates. The old record is cancelled and the new one created in a single
// transaction under the admission gate; the old reservation's own days do
// not count against the new range.
func (s *reservationService) Update(ctx context.Context, id string, req *model.ReservationRequest) (*model.Reservation, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Reservation ID cannot be empty")
	}
	if req == nil {
		return nil, apperrors.InvalidInput("Reservation cannot be empty")
	}
	candidate := s.sanitize(req)

	if err := s.validate(candidate); err != nil {
		return nil, err
	}

	existing, err := s.getActive(ctx, id)
	if err != nil {
		return nil, err
	}

	release, err := s.enterAdmission(ctx)
	if err != nil {
		return nil, err
	}
	replacement, err := s.replace(ctx, existing.ID, candidate)
	release()
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Reservation updated successfully",
		"previous_id", id,
		"id", replacement.ID,
		"start_date", dates.Format(replacement.StartDate),
		"end_date", dates.Format(replacement.EndDate),
	)
	s.publish(ctx, events.Updated(id, replacement))
	return replacement, nil
}

func (s *reservationService) replace(ctx context.Context, id string, candidate *model.ReservationRequest) (*model.Reservation, error) {
	// A cancellation may have landed between the lookup and the gate.
	if _, err := s.getActive(ctx, id); err != nil {
		return nil, err
	}

	free, err := s.rangeFree(ctx, candidate.StartDate, candidate.EndDate, id)
	if err != nil {
		return nil, err
	}
	if !free {
		s.cfg.Log.Info("Reservation update denied, dates unavailable",
			"id", id,
			"start_date", dates.Format(candidate.StartDate),
			"end_date", dates.Format(candidate.EndDate),
		)
		return nil, denied("New reservation dates are not available anymore", candidate)
	}

	replacement := candidate.ToReservation()
	err = s.repo.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := s.repo.Cancel(txCtx, id); err != nil {
			return err
		}
		return s.repo.Save(txCtx, replacement)
	})
	if err != nil {
		if errors.Is(err, reservationserrors.ErrAlreadyCancelled) {
			return nil, apperrors.AlreadyCancelled("Unable to update a cancelled reservation", id).WithCause(err)
		}
		if appErr := s.lookupError(err, id); appErr != nil {
			return nil, appErr
		}
		s.cfg.Log.Error("Failed to update reservation", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to update reservation", err)
	}
	return replacement, nil
}

func (s *reservationService) CountActiveBetween(ctx context.Context, start, end time.Time) (int64, error) {
	start, end = dates.Day(start), dates.Day(end)
	if end.Before(start) {
		return 0, apperrors.InvalidInput("End date cannot be before start date")
	}

	count, err := s.repo.CountActiveOverlapping(ctx, start, end)
	if err != nil {
		s.cfg.Log.Error("Failed to count reservations", "error", err)
		return 0, apperrors.Internal("Failed to count reservations", err)
	}
	return count, nil
}

func (s *reservationService) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Reservation ID cannot be empty")
	}

	reservation, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if appErr := s.lookupError(err, id); appErr != nil {
			return nil, appErr
		}
		return nil, apperrors.Internal("Failed to retrieve reservation", err)
	}
	return reservation, nil
}

// --- Helpers ---

// enterAdmission takes the in-process gate and, when configured, the shared
// admission lease. The returned func releases both.
func (s *reservationService) enterAdmission(ctx context.Context) (func(), error) {
	if err := s.gate.acquire(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			s.cfg.Log.Info("Request cancelled while waiting for reservation admission")
			return nil, apperrors.Cancelled("Request cancelled while waiting for reservation admission").WithCause(err)
		}
		s.cfg.Log.Warn("Admission gate not acquired", "timeout", s.cfg.AdmissionTimeout, "error", err)
		return nil, apperrors.Timeout("Timed out waiting for reservation admission").WithCause(err)
	}

	if s.leaseRepo != nil {
		if err := s.leaseRepo.Acquire(ctx, s.holder, s.cfg.AdmissionLeaseTTL); err != nil {
			s.gate.release()
			if errors.Is(err, reservationserrors.ErrLeaseHeld) {
				s.cfg.Log.Warn("Admission lease held by another process", "holder", s.holder)
				return nil, apperrors.Unavailable("Reservation admission").WithCause(err)
			}
			s.cfg.Log.Error("Failed to acquire admission lease", "error", err)
			return nil, apperrors.Internal("Failed to acquire admission lease", err)
		}
	}

	return func() {
		if s.leaseRepo != nil {
			if err := s.leaseRepo.Release(context.WithoutCancel(ctx), s.holder); err != nil {
				s.cfg.Log.Warn("Failed to release admission lease", "holder", s.holder, "error", err)
			}
		}
		s.gate.release()
	}, nil
}

func (s *reservationService) rangeFree(ctx context.Context, start, end time.Time, excludeID string) (bool, error) {
	active, err := s.repo.FindActiveOverlapping(ctx, start, end)
	if err != nil {
		s.cfg.Log.Error("Failed to check existing reservations", "error", err)
		return false, apperrors.Internal("Failed to check existing reservations", err)
	}
	if excludeID != "" {
		active = availability.Excluding(active, excludeID)
	}
	return availability.IsRangeFree(start, end, active), nil
}

func (s *reservationService) getActive(ctx context.Context, id string) (*model.Reservation, error) {
	reservation, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if reservation.Cancelled {
		return nil, apperrors.AlreadyCancelled("Unable to update a cancelled reservation", id).
			WithCause(reservationserrors.ErrAlreadyCancelled)
	}
	return reservation, nil
}

func (s *reservationService) lookupError(err error, id string) *apperrors.AppError {
	switch {
	case errors.Is(err, reservationserrors.ErrNotFound):
		return apperrors.NotFoundWithID(resourceName, id).WithCause(err)
	case errors.Is(err, reservationserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid reservation ID format").WithCause(err)
	case apperrors.IsAppError(err):
		return apperrors.AsAppError(err)
	}
	return nil
}

func (s *reservationService) sanitize(req *model.ReservationRequest) *model.ReservationRequest {
	candidate := *req
	candidate.ContactEmail = sanitizer.SanitizeEmail(candidate.ContactEmail)
	candidate.ContactName = sanitizer.SanitizeFullName(candidate.ContactName)
	if !candidate.StartDate.IsZero() {
		candidate.StartDate = dates.Day(candidate.StartDate)
	}
	if !candidate.EndDate.IsZero() {
		candidate.EndDate = dates.Day(candidate.EndDate)
	}
	return &candidate
}

func (s *reservationService) validate(candidate *model.ReservationRequest) error {
	if err := s.validator.Validate(candidate); err != nil {
		var verr validator.ValidationError
		if errors.As(err, &verr) {
			s.cfg.Log.Warn("Reservation validation failed", "field", verr.Field, "reason", verr.Message)
			return apperrors.Validation(verr.Message, map[string]any{"field": verr.Field}).WithCause(verr)
		}
		return apperrors.Internal("Failed to validate reservation", err)
	}
	return nil
}

func (s *reservationService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.cfg.Log.Error("Failed to publish reservation event",
			"type", event.Type,
			"reservation_id", event.ReservationID,
			"error", err,
		)
	}
}

func denied(message string, candidate *model.ReservationRequest) *apperrors.AppError {
	return apperrors.AdmissionDenied(message).
		WithDetails(map[string]any{
			"start_date": dates.Format(candidate.StartDate),
			"end_date":   dates.Format(candidate.EndDate),
		}).
		WithCause(reservationserrors.ErrDatesUnavailable)
}
