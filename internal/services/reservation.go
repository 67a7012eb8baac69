package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/markjakearzadon/homigo-gobackend/internal/apperr"
	"github.com/markjakearzadon/homigo-gobackend/internal/metrics"
	"github.com/markjakearzadon/homigo-gobackend/internal/models"
	"github.com/markjakearzadon/homigo-gobackend/internal/money"
)

// BookingLedger is the subset of BookingService the reservation flow uses.
type BookingLedger interface {
	Create(ctx context.Context, draft models.BookingDraft) (*models.Booking, error)
	Get(ctx context.Context, userID, bookingID string) (*models.Booking, error)
	ListForUser(ctx context.Context, userID string) ([]models.Booking, error)
	Transition(ctx context.Context, userID, bookingID string, to models.BookingStatus) (*models.Booking, error)
	RecordPaymentLink(ctx context.Context, userID, bookingID string, link models.LinkOutcome) (*models.Booking, error)
	RecordPaymentFailure(ctx context.Context, userID, bookingID, detail string) (*models.Booking, error)
}

type PaymentGateway interface {
	RequestLink(ctx context.Context, req models.PaymentRequest) models.PaymentOutcome
}

// Pricing is the fixed nightly rate. Clients never send amounts for bookings.
type Pricing struct {
	NightlyRate money.Minor
	Currency    string
}

type ReservationRequest struct {
	Destination string `json:"destination"`
	Address     string `json:"address,omitempty"`
	CheckIn     string `json:"check_in"`
	CheckOut    string `json:"check_out"`
	Guests      int    `json:"guests"`
}

// ReservationResult always carries the booking once it exists, including when
// the payment link could not be created, so the caller can offer a retry.
type ReservationResult struct {
	Booking     *models.Booking `json:"booking"`
	CheckoutURL string          `json:"checkout_url,omitempty"`
}

type ReservationService struct {
	ledger        BookingLedger
	gateway       PaymentGateway
	pricing       Pricing
	publicBaseURL string
	logger        *logrus.Logger
}

func NewReservationService(ledger BookingLedger, gateway PaymentGateway, pricing Pricing, publicBaseURL string, logger *logrus.Logger) *ReservationService {
	return &ReservationService{
		ledger:        ledger,
		gateway:       gateway,
		pricing:       pricing,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger,
	}
}

// Reserve validates the request, stores a PENDING_PAYMENT booking and asks the
// gateway for a checkout link. A failed link request leaves the booking
// pending and returns a result together with the error.
func (s *ReservationService) Reserve(ctx context.Context, req ReservationRequest, principal *models.Principal) (*ReservationResult, error) {
	if err := requirePrincipal(principal); err != nil {
		metrics.IncReservation("unauthorized")
		return nil, err
	}

	draft, err := s.draft(req, principal)
	if err != nil {
		metrics.IncReservation("invalid")
		return nil, err
	}

	booking, err := s.ledger.Create(ctx, draft)
	if err != nil {
		metrics.IncReservation("storage_error")
		s.logger.WithError(err).WithField("user_id", principal.UserID).Error("Reservation aborted, booking not stored")
		return nil, err
	}

	return s.requestLink(ctx, principal, booking)
}

// RetryPayment requests a new checkout link for an existing pending booking.
func (s *ReservationService) RetryPayment(ctx context.Context, principal *models.Principal, bookingID string) (*ReservationResult, error) {
	if err := requirePrincipal(principal); err != nil {
		return nil, err
	}
	booking, err := s.ledger.Get(ctx, principal.UserID, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.StatusPendingPayment {
		return nil, apperr.InvalidTransition(string(booking.Status), string(models.StatusPendingPayment))
	}
	return s.requestLink(ctx, principal, booking)
}

func (s *ReservationService) Cancel(ctx context.Context, principal *models.Principal, bookingID string) (*models.Booking, error) {
	if err := requirePrincipal(principal); err != nil {
		return nil, err
	}
	return s.ledger.Transition(ctx, principal.UserID, bookingID, models.StatusCancelled)
}

func (s *ReservationService) List(ctx context.Context, principal *models.Principal) ([]models.Booking, error) {
	if err := requirePrincipal(principal); err != nil {
		return nil, err
	}
	return s.ledger.ListForUser(ctx, principal.UserID)
}

func (s *ReservationService) Get(ctx context.Context, principal *models.Principal, bookingID string) (*models.Booking, error) {
	if err := requirePrincipal(principal); err != nil {
		return nil, err
	}
	return s.ledger.Get(ctx, principal.UserID, bookingID)
}

func (s *ReservationService) requestLink(ctx context.Context, principal *models.Principal, booking *models.Booking) (*ReservationResult, error) {
	bookingID := booking.ID.Hex()
	payReq := models.PaymentRequest{
		Amount:          booking.Amount,
		Description:     models.TruncateDescription(fmt.Sprintf("Booking at %s by %s", booking.Destination, principal.Identity())),
		SuccessRedirect: s.publicBaseURL + "/bookings/" + bookingID + "/success",
		FailureRedirect: s.publicBaseURL + "/bookings/" + bookingID + "/failed",
		Reference:       bookingID,
	}

	outcome := s.gateway.RequestLink(ctx, payReq)

	// The remote side already acted; record it even if the caller left.
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	log := s.logger.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"user_id":    principal.UserID,
	})

	switch o := outcome.(type) {
	case models.LinkOutcome:
		updated, err := s.ledger.RecordPaymentLink(persistCtx, principal.UserID, bookingID, o)
		if err != nil {
			if apperr.Is(err, apperr.KindInvalidTransition) || apperr.Is(err, apperr.KindNotFound) {
				log.WithError(err).Warn("Booking left PENDING_PAYMENT while its link was created")
				metrics.IncReservation("conflict")
				return nil, err
			}
			log.WithError(err).Warn("Payment link created but not recorded on booking")
			copied := *booking
			copied.CheckoutURL = o.URL
			copied.PaymentLinkID = o.LinkID
			updated = &copied
		}
		metrics.IncReservation("link")
		return &ReservationResult{Booking: updated, CheckoutURL: o.URL}, nil

	case models.GatewayErrorOutcome:
		log.WithFields(logrus.Fields{"code": o.Code, "detail": o.Detail}).Warn("Payment link request failed, booking stays pending")
		s.recordFailure(persistCtx, log, principal.UserID, bookingID, o.Code+": "+o.Detail)
		metrics.IncReservation("gateway_error")
		return &ReservationResult{Booking: booking}, models.OutcomeError(o)

	case models.ConfigErrorOutcome:
		log.WithField("reason", o.Reason).Error("Payment gateway is not configured")
		s.recordFailure(persistCtx, log, principal.UserID, bookingID, "config: "+o.Reason)
		metrics.IncReservation("config_error")
		return &ReservationResult{Booking: booking}, models.OutcomeError(o)

	default:
		return &ReservationResult{Booking: booking}, models.OutcomeError(outcome)
	}
}

func (s *ReservationService) recordFailure(ctx context.Context, log *logrus.Entry, userID, bookingID, detail string) {
	if _, err := s.ledger.RecordPaymentFailure(ctx, userID, bookingID, detail); err != nil {
		log.WithError(err).Warn("Failed to record payment failure on booking")
	}
}

// draft checks required fields in a fixed order and prices the stay.
func (s *ReservationService) draft(req ReservationRequest, principal *models.Principal) (models.BookingDraft, error) {
	destination := strings.TrimSpace(req.Destination)
	if destination == "" {
		return models.BookingDraft{}, apperr.Validation("destination", "is required")
	}
	if strings.TrimSpace(req.CheckIn) == "" {
		return models.BookingDraft{}, apperr.Validation("check_in", "is required")
	}
	if strings.TrimSpace(req.CheckOut) == "" {
		return models.BookingDraft{}, apperr.Validation("check_out", "is required")
	}
	if req.Guests < 1 {
		return models.BookingDraft{}, apperr.Validation("guests", "must be at least 1")
	}

	checkIn, err := parseDate(req.CheckIn)
	if err != nil {
		return models.BookingDraft{}, apperr.Validation("check_in", "must be a date (YYYY-MM-DD)")
	}
	checkOut, err := parseDate(req.CheckOut)
	if err != nil {
		return models.BookingDraft{}, apperr.Validation("check_out", "must be a date (YYYY-MM-DD)")
	}
	if !checkIn.Before(checkOut) {
		return models.BookingDraft{}, apperr.Validation("check_out", "must be after check_in")
	}

	nights := models.Nights(checkIn, checkOut)
	if nights > models.MaxStayNights {
		return models.BookingDraft{}, apperr.Validation("check_out", fmt.Sprintf("stay is longer than %d nights", models.MaxStayNights))
	}

	amount, err := s.pricing.NightlyRate.Times(nights)
	if err != nil || amount <= 0 {
		return models.BookingDraft{}, apperr.Validation("check_out", "stay is too long")
	}

	return models.BookingDraft{
		UserID:      principal.UserID,
		Destination: destination,
		Address:     strings.TrimSpace(req.Address),
		CheckIn:     checkIn,
		CheckOut:    checkOut,
		Guests:      req.Guests,
		Amount:      amount,
		Currency:    s.pricing.Currency,
	}, nil
}

// parseDate accepts a plain date or an RFC 3339 timestamp and keeps the date.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := time.Parse("2006-01-02", s); err == nil {
		return d, nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := ts.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

func requirePrincipal(p *models.Principal) error {
	if p == nil || strings.TrimSpace(p.UserID) == "" {
		return apperr.Unauthorized("login required")
	}
	return nil
}
