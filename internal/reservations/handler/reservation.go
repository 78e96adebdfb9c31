package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"campsite/internal/reservations/service"
	"campsite/pkg/dates"
	apperrors "campsite/pkg/errors"
	httputil "campsite/pkg/http"
	"campsite/pkg/logger"
	"campsite/pkg/model"

	"github.com/julienschmidt/httprouter"
)

// AvailabilityWindow shapes the default date range of availability queries.
type AvailabilityWindow struct {
	DefaultMonths int
	MaxMonths     int
}

type ReservationHandler struct {
	service service.ReservationService
	window   AvailabilityWindow
	earliest func() time.Time
	log      *logger.Logger
}

// NewReservationHandler builds the reservation endpoints. earliest yields the
// first bookable day and is normally the validator's Earliest method.
func NewReservationHandler(service service.ReservationService, window AvailabilityWindow, earliest func() time.Time, log *logger.Logger) *ReservationHandler {
	return &ReservationHandler{
		service:  service,
		window:   window,
		earliest: earliest,
		log:      log,
	}
}

// Availability lists free days. Without dates it covers the default window
// starting at the earliest bookable day; the span is capped at MaxMonths and
// a start before the earliest bookable day is moved forward.
func (h *ReservationHandler) Availability(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	earliest := h.earliest()

	start, end, err := h.parseRange(r, earliest)
	if err != nil {
		h.writeError(w, "Availability", err)
		return
	}

	if end.Before(start) {
		h.writeError(w, "Availability", apperrors.InvalidInput("End date cannot be before start date"))
		return
	}
	if limit := dates.AddMonths(start, h.window.MaxMonths); limit.Before(end) {
		end = limit
	}
	if start.Before(earliest) {
		start = earliest
	}

	free, err := h.service.Availability(r.Context(), start, end)
	if err != nil {
		h.writeError(w, "Availability", err)
		return
	}

	if len(free) == 0 {
		h.writeError(w, "Availability", apperrors.InvalidInput(
			fmt.Sprintf("No availability from %s to %s", dates.Format(start), dates.Format(end)),
		))
		return
	}

	if err := httputil.WriteSuccess(w, AvailabilityResponse{
		StartDate:      dates.Format(start),
		EndDate:        dates.Format(end),
		AvailableDates: dates.FormatAll(free),
	}); err != nil {
		h.log.Error("failed to write success response", "handler", "Availability", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) Reserve(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	req, ok := h.decodeRequest(w, r, "Reserve")
	if !ok {
		return
	}

	reservation, err := h.service.Reserve(r.Context(), req)
	if err != nil {
		h.writeError(w, "Reserve", err)
		return
	}

	if err := httputil.WriteCreated(w, toResponse(reservation)); err != nil {
		h.log.Error("failed to write created response", "handler", "Reserve", "operation", "WriteCreated", "error", err)
	}
}

func (h *ReservationHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	reservation, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, toResponse(reservation)); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

// Update responds with the replacement reservation, which carries a new id.
func (h *ReservationHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	req, ok := h.decodeRequest(w, r, "Update")
	if !ok {
		return
	}

	reservation, err := h.service.Update(r.Context(), ps.ByName("id"), req)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, toResponse(reservation)); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Cancel(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ReservationHandler) Count(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	start, end, err := h.parseRange(r, h.earliest())
	if err != nil {
		h.writeError(w, "Count", err)
		return
	}

	count, err := h.service.CountActiveBetween(r.Context(), start, end)
	if err != nil {
		h.writeError(w, "Count", err)
		return
	}

	if err := httputil.WriteSuccess(w, CountResponse{
		StartDate: dates.Format(start),
		EndDate:   dates.Format(end),
		Count:     count,
	}); err != nil {
		h.log.Error("failed to write success response", "handler", "Count", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/campsite/availability", h.Availability)
	router.POST("/api/v1/campsite/reservations", h.Reserve)
	router.GET("/api/v1/campsite/reservations/count", h.Count)
	router.GET("/api/v1/campsite/reservations/id/:id", h.GetByID)
	router.PUT("/api/v1/campsite/reservations/id/:id", h.Update)
	router.DELETE("/api/v1/campsite/reservations/id/:id", h.Cancel)
}

// parseRange reads start_date and end_date, defaulting a missing start to
// defaultStart and a missing end to DefaultMonths after the start.
func (h *ReservationHandler) parseRange(r *http.Request, defaultStart time.Time) (time.Time, time.Time, error) {
	query := r.URL.Query()

	start := defaultStart
	if s := query.Get("start_date"); s != "" {
		parsed, err := dates.Parse(s)
		if err != nil {
			return time.Time{}, time.Time{}, apperrors.InvalidInput("invalid start_date format, must be YYYY-MM-DD")
		}
		start = parsed
	}

	end := dates.AddMonths(start, h.window.DefaultMonths)
	if s := query.Get("end_date"); s != "" {
		parsed, err := dates.Parse(s)
		if err != nil {
			return time.Time{}, time.Time{}, apperrors.InvalidInput("invalid end_date format, must be YYYY-MM-DD")
		}
		end = parsed
	}

	return start, end, nil
}

func (h *ReservationHandler) decodeRequest(w http.ResponseWriter, r *http.Request, handler string) (*model.ReservationRequest, bool) {
	var body ReservationRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
			Code:  apperrors.CodeInvalidInput,
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", handler, "operation", "WriteJSON", "error", writeErr)
		}
		return nil, false
	}

	req, err := body.toRequest()
	if err != nil {
		h.writeError(w, handler, err)
		return nil, false
	}
	return req, true
}

func (h *ReservationHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}
