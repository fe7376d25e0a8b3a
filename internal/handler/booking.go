package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	apperrors "github.com/zimid/booking-server-go/internal/errors"
	"github.com/zimid/booking-server-go/internal/httputil"
	"github.com/zimid/booking-server-go/internal/model"
)

const isoDate = "2006-01-02"

type BookingManager interface {
	Create(ctx context.Context, draft model.BookingDraft) (*model.Booking, error)
	GetByReference(ctx context.Context, reference string) (*model.Booking, error)
	FindByPhone(ctx context.Context, phone string) ([]model.Booking, error)
	FindByEmail(ctx context.Context, email string) ([]model.Booking, error)
	Search(ctx context.Context, term string, limit, offset int) ([]model.Booking, error)
	UpdateStatus(ctx context.Context, reference string, to model.BookingStatus) (*model.Booking, error)
	Cancel(ctx context.Context, reference, reason string) (*model.Booking, error)
	IsSlotAvailable(ctx context.Context, provinceID int64, date model.Date, at model.Clock) (bool, error)
	ListAvailableSlots(ctx context.Context, provinceID int64, date model.Date) ([]model.Clock, error)
}

type BookingHandler struct {
	bookings BookingManager
}

func NewBookingHandler(bookings BookingManager) *BookingHandler {
	return &BookingHandler{bookings: bookings}
}

func (h *BookingHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.Create)
	r.Get("/search", h.Search)
	r.Get("/phone/{phone}", h.FindByPhone)
	r.Get("/email/{email}", h.FindByEmail)
	r.Get("/slots/available", h.AvailableSlots)
	r.Get("/slots/check", h.CheckSlot)
	r.Get("/{reference}", h.Get)
	r.Patch("/{reference}/status", h.UpdateStatus)
	r.Delete("/{reference}", h.Cancel)

	return r
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var draft model.BookingDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		log.Warn().Err(err).Msg("invalid booking request body")
		httputil.WriteError(w, apperrors.ValidationError("Invalid request body"))
		return
	}

	booking, err := h.bookings.Create(r.Context(), draft)
	if err != nil {
		h.fail(w, err, "failed to create booking")
		return
	}

	writeJSON(w, http.StatusCreated, booking)
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	booking, err := h.bookings.GetByReference(r.Context(), chi.URLParam(r, "reference"))
	if err != nil {
		h.fail(w, err, "failed to get booking")
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *BookingHandler) Search(w http.ResponseWriter, r *http.Request) {
	page := ParsePagination(r)
	bookings, err := h.bookings.Search(r.Context(), r.URL.Query().Get("query"), page.Limit, page.Offset)
	if err != nil {
		h.fail(w, err, "failed to search bookings")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"bookings": emptyIfNil(bookings),
		"limit":    page.Limit,
		"offset":   page.Offset,
	})
}

func (h *BookingHandler) FindByPhone(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.bookings.FindByPhone(r.Context(), chi.URLParam(r, "phone"))
	if err != nil {
		h.fail(w, err, "failed to find bookings by phone")
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(bookings))
}

func (h *BookingHandler) FindByEmail(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.bookings.FindByEmail(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		h.fail(w, err, "failed to find bookings by email")
		return
	}
	writeJSON(w, http.StatusOK, emptyIfNil(bookings))
}

func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	status := model.BookingStatus(strings.ToUpper(r.URL.Query().Get("status")))
	if status == "" {
		httputil.WriteError(w, apperrors.MissingRequired("status"))
		return
	}

	booking, err := h.bookings.UpdateStatus(r.Context(), chi.URLParam(r, "reference"), status)
	if err != nil {
		h.fail(w, err, "failed to update booking status")
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	booking, err := h.bookings.Cancel(r.Context(), chi.URLParam(r, "reference"), r.URL.Query().Get("reason"))
	if err != nil {
		h.fail(w, err, "failed to cancel booking")
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *BookingHandler) AvailableSlots(w http.ResponseWriter, r *http.Request) {
	provinceID, date, ok := parseSlotQuery(w, r)
	if !ok {
		return
	}

	slots, err := h.bookings.ListAvailableSlots(r.Context(), provinceID, date)
	if err != nil {
		h.fail(w, err, "failed to list available slots")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"provinceId": provinceID,
		"date":       date,
		"slots":      formatSlots(slots),
	})
}

func (h *BookingHandler) CheckSlot(w http.ResponseWriter, r *http.Request) {
	provinceID, date, ok := parseSlotQuery(w, r)
	if !ok {
		return
	}
	at, err := model.ParseClock(r.URL.Query().Get("time"))
	if err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("time", "expected HH:MM"))
		return
	}

	available, err := h.bookings.IsSlotAvailable(r.Context(), provinceID, date, at)
	if err != nil {
		h.fail(w, err, "failed to check slot")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"provinceId": provinceID,
		"date":       date,
		"time":       at,
		"available":  available,
	})
}

func parseSlotQuery(w http.ResponseWriter, r *http.Request) (int64, model.Date, bool) {
	q := r.URL.Query()
	provinceID, ok := parseID(q.Get("provinceId"))
	if !ok {
		httputil.WriteError(w, apperrors.InvalidInput("provinceId", "expected a positive integer"))
		return 0, model.Date{}, false
	}
	date, err := model.ParseDate(isoDate, q.Get("date"))
	if err != nil {
		httputil.WriteError(w, apperrors.InvalidInput("date", "expected YYYY-MM-DD"))
		return 0, model.Date{}, false
	}
	return provinceID, date, true
}

func (h *BookingHandler) fail(w http.ResponseWriter, err error, msg string) {
	if !apperrors.IsAppError(err) {
		log.Error().Err(err).Msg(msg)
	}
	httputil.WriteError(w, err)
}
