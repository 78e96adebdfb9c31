package validator

import (
	"errors"
	"fmt"
	"time"

	"campsite/pkg/dates"
	"campsite/pkg/logger"
	"campsite/pkg/model"

	"github.com/go-playground/validator/v10"
)

// ValidationError names the first rule a candidate reservation broke.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

var requiredMessages = map[string]string{
	"ContactEmail": "Reservation email cannot be empty",
	"ContactName":  "Reservation full name cannot be empty",
}

var jsonFieldNames = map[string]string{
	"ContactEmail": "contact_email",
	"ContactName":  "contact_name",
}

type Rules struct {
	MaxStayDays  int
	MinDaysAhead int
}

type ReservationValidator struct {
	validate *validator.Validate
	rules    Rules
	clock    dates.Clock
	logger   *logger.Logger
}

func NewReservationValidator(rules Rules, clock dates.Clock, log *logger.Logger) *ReservationValidator {
	if clock == nil {
		clock = dates.SystemClock
	}

	log.Info("Reservation validator initialized successfully",
		"max_stay_days", rules.MaxStayDays,
		"min_days_ahead", rules.MinDaysAhead,
	)

	return &ReservationValidator{
		validate: validator.New(),
		rules:    rules,
		clock:    clock,
		logger:   log,
	}
}

// Validate checks the candidate rule by rule and returns the first failure
// as a ValidationError. The order is: contact email, contact name, date
// presence, date ordering, lead time, stay length.
func (v *ReservationValidator) Validate(req *model.ReservationRequest) error {
	if err := v.validate.Struct(req); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
			return v.translate(validationErrs[0])
		}
		return err
	}

	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		return ValidationError{
			Field:   "dates",
			Message: "Start date and/or end date cannot be empty",
		}
	}

	start, end := dates.Day(req.StartDate), dates.Day(req.EndDate)

	if end.Before(start) {
		return ValidationError{
			Field:   "end_date",
			Message: "End date is before start date",
		}
	}
	if end.Equal(start) {
		return ValidationError{
			Field:   "end_date",
			Message: "End date cannot be the same as start date",
		}
	}

	earliest := dates.AddDays(dates.Today(v.clock), v.rules.MinDaysAhead)
	if start.Before(earliest) {
		return ValidationError{
			Field:   "start_date",
			Message: fmt.Sprintf("The campsite can be reserved minimum %d day(s) from now", v.rules.MinDaysAhead),
		}
	}

	if dates.DaysBetween(start, end) > v.rules.MaxStayDays {
		return ValidationError{
			Field:   "end_date",
			Message: fmt.Sprintf("Reservation exceeded %d consecutive days", v.rules.MaxStayDays),
		}
	}

	return nil
}

// Earliest returns the first day a reservation may start on today.
func (v *ReservationValidator) Earliest() time.Time {
	return dates.AddDays(dates.Today(v.clock), v.rules.MinDaysAhead)
}

func (v *ReservationValidator) translate(err validator.FieldError) ValidationError {
	field := err.Field()
	name := jsonFieldNames[field]
	if name == "" {
		name = field
	}

	message := err.Error()
	if err.Tag() == "required" {
		if m, ok := requiredMessages[field]; ok {
			message = m
		} else {
			message = fmt.Sprintf("%s is required", name)
		}
	}

	return ValidationError{
		Field:   name,
		Message: message,
	}
}
