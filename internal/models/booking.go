package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/markjakearzadon/homigo-gobackend/internal/apperr"
	"github.com/markjakearzadon/homigo-gobackend/internal/money"
)

type BookingStatus string

const (
	StatusPendingPayment BookingStatus = "PENDING_PAYMENT"
	StatusPaid           BookingStatus = "PAID"
	StatusFailed         BookingStatus = "FAILED"
	StatusCancelled      BookingStatus = "CANCELLED"
)

// AllStatuses lists every booking status in lifecycle order.
var AllStatuses = []BookingStatus{StatusPendingPayment, StatusPaid, StatusFailed, StatusCancelled}

func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPendingPayment, StatusPaid, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Terminal statuses never change again. A failed booking is retried by
// creating a new booking.
func (s BookingStatus) Terminal() bool {
	return s == StatusPaid || s == StatusFailed || s == StatusCancelled
}

// CanTransition reports whether from -> to is one of the three permitted edges,
// all of which leave PENDING_PAYMENT.
func CanTransition(from, to BookingStatus) bool {
	return from == StatusPendingPayment && to.Valid() && to.Terminal()
}

// SourcesFor returns the statuses a booking may be in to move to `to`.
func SourcesFor(to BookingStatus) []BookingStatus {
	var out []BookingStatus
	for _, from := range AllStatuses {
		if CanTransition(from, to) {
			out = append(out, from)
		}
	}
	return out
}

// Booking is stored in the bookings collection, scoped to its owner.
type Booking struct {
	ID               primitive.ObjectID `bson:"_id" json:"id"`
	UserID           string             `bson:"user_id" json:"user_id"`
	Destination      string             `bson:"destination" json:"destination"`
	Address          string             `bson:"address,omitempty" json:"address,omitempty"`
	CheckIn          time.Time          `bson:"check_in" json:"check_in"`
	CheckOut         time.Time          `bson:"check_out" json:"check_out"`
	Nights           int                `bson:"nights" json:"nights"`
	Guests           int                `bson:"guests" json:"guests"`
	Amount           money.Minor        `bson:"amount" json:"amount"`
	Currency         string             `bson:"currency" json:"currency"`
	Status           BookingStatus      `bson:"status" json:"status"`
	CheckoutURL      string             `bson:"checkout_url,omitempty" json:"checkout_url,omitempty"`
	PaymentLinkID    string             `bson:"payment_link_id,omitempty" json:"payment_link_id,omitempty"`
	PaymentAttempts  int                `bson:"payment_attempts" json:"payment_attempts"`
	LastPaymentError string             `bson:"last_payment_error,omitempty" json:"last_payment_error,omitempty"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updated_at"`
}

// BookingDraft is what the ledger needs to create a booking. ID, status and
// timestamps are the ledger's to assign.
type BookingDraft struct {
	UserID      string
	Destination string
	Address     string
	CheckIn     time.Time
	CheckOut    time.Time
	Guests      int
	Amount      money.Minor
	Currency    string
}

func (d BookingDraft) Validate() error {
	if strings.TrimSpace(d.UserID) == "" {
		return apperr.Validation("user_id", "is required")
	}
	if strings.TrimSpace(d.Destination) == "" {
		return apperr.Validation("destination", "is required")
	}
	if d.CheckIn.IsZero() {
		return apperr.Validation("check_in", "is required")
	}
	if d.CheckOut.IsZero() {
		return apperr.Validation("check_out", "is required")
	}
	if !d.CheckIn.Before(d.CheckOut) {
		return apperr.Validation("check_out", "must be after check_in")
	}
	if d.Guests < 1 {
		return apperr.Validation("guests", "must be at least 1")
	}
	if d.Amount <= 0 {
		return apperr.Validation("amount", "must be positive")
	}
	return nil
}

// MaxStayNights bounds a single booking.
const MaxStayNights = 365

// Nights counts calendar nights between two dates, ignoring time of day.
func Nights(checkIn, checkOut time.Time) int {
	return int(dayNumber(checkOut) - dayNumber(checkIn))
}

// dayNumber is the count of days since 1970-01-01 for t's calendar date.
// It works on the date fields so ranges longer than a time.Duration are exact.
func dayNumber(t time.Time) int64 {
	y, m, d := t.Date()
	year := int64(y)
	month := int64(m)
	if month <= 2 {
		year--
	}
	era := year / 400
	if year < 0 && year%400 != 0 {
		era--
	}
	yoe := year - era*400
	mp := (month + 9) % 12
	doy := (153*mp+2)/5 + int64(d) - 1
	doe := yoe*365 + yoe/4 - yoe/100 + doy
	return era*146097 + doe - 719468
}
