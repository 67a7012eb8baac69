package handlers

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/markjakearzadon/homigo-gobackend/internal/apperr"
	"github.com/markjakearzadon/homigo-gobackend/internal/middleware"
	"github.com/markjakearzadon/homigo-gobackend/internal/models"
	"github.com/markjakearzadon/homigo-gobackend/internal/services"
)

// Reservations is implemented by services.ReservationService.
type Reservations interface {
	Reserve(ctx context.Context, req services.ReservationRequest, principal *models.Principal) (*services.ReservationResult, error)
	RetryPayment(ctx context.Context, principal *models.Principal, bookingID string) (*services.ReservationResult, error)
	Cancel(ctx context.Context, principal *models.Principal, bookingID string) (*models.Booking, error)
	List(ctx context.Context, principal *models.Principal) ([]models.Booking, error)
	Get(ctx context.Context, principal *models.Principal, bookingID string) (*models.Booking, error)
}

type BookingHandler struct {
	service Reservations
	logger  *logrus.Logger
}

func NewBookingHandler(service Reservations, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{service: service, logger: logger}
}

// CreateBooking handles POST /api/bookings.
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req services.ReservationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}
	result, err := h.service.Reserve(r.Context(), req, middleware.PrincipalFrom(r.Context()))
	h.respondResult(w, http.StatusCreated, result, err)
}

// RetryPayment handles POST /api/bookings/{bookingID}/payment-link.
func (h *BookingHandler) RetryPayment(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.RetryPayment(r.Context(), middleware.PrincipalFrom(r.Context()), mux.Vars(r)["bookingID"])
	h.respondResult(w, http.StatusOK, result, err)
}

func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := h.service.Cancel(r.Context(), middleware.PrincipalFrom(r.Context()), mux.Vars(r)["bookingID"])
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, booking)
}

func (h *BookingHandler) GetBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.service.List(r.Context(), middleware.PrincipalFrom(r.Context()))
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, bookings)
}

func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	booking, err := h.service.Get(r.Context(), middleware.PrincipalFrom(r.Context()), mux.Vars(r)["bookingID"])
	if err != nil {
		respondError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, booking)
}

// respondResult writes a reservation result. When the link failed but the
// booking exists, the booking is included in the error body so the client
// can retry against it.
func (h *BookingHandler) respondResult(w http.ResponseWriter, status int, result *services.ReservationResult, err error) {
	if err == nil {
		writeJSON(w, h.logger, status, result)
		return
	}
	if result == nil || result.Booking == nil {
		respondError(w, h.logger, err)
		return
	}
	code := apperr.HTTPStatus(err)
	if code >= http.StatusInternalServerError {
		h.logger.WithError(err).WithField("booking_id", result.Booking.ID.Hex()).Warn("Booking stored without payment link")
	}
	body := errorResponse(err)
	body.Booking = result.Booking
	writeJSON(w, h.logger, code, body)
}

// Register mounts the booking routes on r, which is expected to be the /api
// subrouter.
func (h *BookingHandler) Register(r *mux.Router) {
	r.HandleFunc("/bookings", h.CreateBooking).Methods(http.MethodPost)
	r.HandleFunc("/bookings", h.GetBookings).Methods(http.MethodGet)
	r.HandleFunc("/bookings/{bookingID}", h.GetBooking).Methods(http.MethodGet)
	r.HandleFunc("/bookings/{bookingID}/payment-link", h.RetryPayment).Methods(http.MethodPost)
	r.HandleFunc("/bookings/{bookingID}/cancel", h.CancelBooking).Methods(http.MethodPost)
}
