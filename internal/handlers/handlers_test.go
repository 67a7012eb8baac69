package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/markjakearzadon/homigo-gobackend/internal/apperr"
	"github.com/markjakearzadon/homigo-gobackend/internal/middleware"
	"github.com/markjakearzadon/homigo-gobackend/internal/models"
	"github.com/markjakearzadon/homigo-gobackend/internal/money"
	"github.com/markjakearzadon/homigo-gobackend/internal/services"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type fakeGateway struct {
	outcome models.PaymentOutcome
	last    *models.PaymentRequest
}

func (g *fakeGateway) RequestLink(ctx context.Context, req models.PaymentRequest) models.PaymentOutcome {
	g.last = &req
	return g.outcome
}

func postLink(h *PaymentHandler, origin, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/payments/link", strings.NewReader(body))
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	h.CreateLink(rec, req)
	return rec
}

func newPaymentHandler(gw *fakeGateway) *PaymentHandler {
	gate := middleware.NewOriginGate([]string{"https://homigo.app"})
	return NewPaymentHandler(gw, gate, "https://book.homigo.app/", quietLogger())
}

func TestCreateLinkConvertsMajorUnitsOnce(t *testing.T) {
	gw := &fakeGateway{outcome: models.LinkOutcome{URL: "https://pm.link/abc"}}
	rec := postLink(newPaymentHandler(gw), "https://homigo.app", `{"amount": 2799, "description": "Malolos stay"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}
	var body map[string]string
	json.NewDecoder(rec.Body).Decode(&body)
	if body["url"] != "https://pm.link/abc" {
		t.Fatalf("url = %q", body["url"])
	}
	if gw.last.Amount != money.Minor(279900) {
		t.Fatalf("amount = %d, want 279900", gw.last.Amount)
	}
	if gw.last.SuccessRedirect != "https://homigo.app/success" || gw.last.FailureRedirect != "https://homigo.app/failed" {
		t.Fatalf("redirects = %q %q", gw.last.SuccessRedirect, gw.last.FailureRedirect)
	}
}

func TestCreateLinkIgnoresUntrustedOriginForRedirects(t *testing.T) {
	gw := &fakeGateway{outcome: models.LinkOutcome{URL: "https://pm.link/abc"}}
	rec := postLink(newPaymentHandler(gw), "https://evil.example", `{"amount": 100, "description": "x"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if gw.last.SuccessRedirect != "https://book.homigo.app/success" {
		t.Fatalf("success redirect = %q", gw.last.SuccessRedirect)
	}
}

func TestCreateLinkRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"zero amount":      `{"amount": 0, "description": "x"}`,
		"negative":         `{"amount": -5, "description": "x"}`,
		"fractional cents": `{"amount": 10.005, "description": "x"}`,
		"no description":   `{"amount": 10}`,
		"not json":         `amount=10`,
	}
	for name, body := range cases {
		gw := &fakeGateway{outcome: models.LinkOutcome{URL: "https://pm.link/abc"}}
		rec := postLink(newPaymentHandler(gw), "", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d", name, rec.Code)
		}
		if gw.last != nil {
			t.Errorf("%s: gateway was called", name)
		}
	}
}

func TestCreateLinkGatewayFailures(t *testing.T) {
	cases := map[string]models.PaymentOutcome{
		"gateway": models.GatewayErrorOutcome{Code: "parameter_invalid", Detail: "amount too low", Status: 400, Body: map[string]any{"errors": []any{}}},
		"config":  models.ConfigErrorOutcome{Reason: "payment gateway secret key is not configured"},
	}
	for name, outcome := range cases {
		rec := postLink(newPaymentHandler(&fakeGateway{outcome: outcome}), "", `{"amount": 10, "description": "x"}`)
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("%s: status = %d", name, rec.Code)
		}
		var body map[string]any
		json.NewDecoder(rec.Body).Decode(&body)
		if body["error"] == "" || body["error"] == nil {
			t.Errorf("%s: missing error: %v", name, body)
		}
	}
}

type fakeReservations struct {
	result    *services.ReservationResult
	booking   *models.Booking
	bookings  []models.Booking
	err       error
	principal *models.Principal
	id        string
	req       services.ReservationRequest
}

func (f *fakeReservations) Reserve(ctx context.Context, req services.ReservationRequest, p *models.Principal) (*services.ReservationResult, error) {
	f.req, f.principal = req, p
	return f.result, f.err
}

func (f *fakeReservations) RetryPayment(ctx context.Context, p *models.Principal, id string) (*services.ReservationResult, error) {
	f.principal, f.id = p, id
	return f.result, f.err
}

func (f *fakeReservations) Cancel(ctx context.Context, p *models.Principal, id string) (*models.Booking, error) {
	f.principal, f.id = p, id
	return f.booking, f.err
}

func (f *fakeReservations) List(ctx context.Context, p *models.Principal) ([]models.Booking, error) {
	f.principal = p
	return f.bookings, f.err
}

func (f *fakeReservations) Get(ctx context.Context, p *models.Principal, id string) (*models.Booking, error) {
	f.principal, f.id = p, id
	return f.booking, f.err
}

func bookingRouter(svc Reservations) http.Handler {
	h := NewBookingHandler(svc, quietLogger())
	r := mux.NewRouter()
	h.Register(r.PathPrefix("/api").Subrouter())
	return r
}

func doBooking(router http.Handler, method, path, body string, p *models.Principal) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if p != nil {
		req = req.WithContext(middleware.WithPrincipal(req.Context(), p))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func pendingBooking() *models.Booking {
	return &models.Booking{
		ID:          primitive.NewObjectID(),
		UserID:      "uid-1",
		Destination: "Malolos",
		Amount:      279900,
		Status:      models.StatusPendingPayment,
	}
}

func TestCreateBookingReturnsCreated(t *testing.T) {
	b := pendingBooking()
	svc := &fakeReservations{result: &services.ReservationResult{Booking: b, CheckoutURL: "https://pm.link/x"}}
	p := &models.Principal{UserID: "uid-1"}

	rec := doBooking(bookingRouter(svc), http.MethodPost, "/api/bookings",
		`{"destination":"Malolos","check_in":"2025-03-01","check_out":"2025-03-03","guests":2}`, p)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}
	if svc.principal != p || svc.req.Destination != "Malolos" || svc.req.Guests != 2 {
		t.Fatalf("service got %+v %+v", svc.principal, svc.req)
	}
	var body struct {
		Booking     models.Booking `json:"booking"`
		CheckoutURL string         `json:"checkout_url"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.CheckoutURL != "https://pm.link/x" || body.Booking.ID != b.ID {
		t.Fatalf("body = %+v", body)
	}
}

func TestCreateBookingGatewayFailureKeepsBooking(t *testing.T) {
	b := pendingBooking()
	svc := &fakeReservations{
		result: &services.ReservationResult{Booking: b},
		err:    apperr.Gateway("payment link request failed: timeout", "timeout"),
	}
	rec := doBooking(bookingRouter(svc), http.MethodPost, "/api/bookings", `{"destination":"Malolos"}`, &models.Principal{UserID: "uid-1"})

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Code      string          `json:"code"`
		Retryable bool            `json:"retryable"`
		Booking   *models.Booking `json:"booking"`
	}
	json.NewDecoder(rec.Body).Decode(&body)
	if body.Code != string(apperr.KindGateway) || !body.Retryable {
		t.Fatalf("body = %+v", body)
	}
	if body.Booking == nil || body.Booking.ID != b.ID {
		t.Fatalf("booking missing from error body")
	}
}

func TestBookingErrorStatuses(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{apperr.Validation("guests", "must be at least 1"), http.StatusBadRequest},
		{apperr.Unauthorized("login required"), http.StatusUnauthorized},
		{apperr.NotFound("booking"), http.StatusNotFound},
		{apperr.InvalidTransition("CANCELLED", "CANCELLED"), http.StatusConflict},
		{apperr.StorageUnavailable("insert booking", io.ErrUnexpectedEOF), http.StatusServiceUnavailable},
		{apperr.Config("secret missing"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := doBooking(bookingRouter(&fakeReservations{err: tc.err}), http.MethodPost, "/api/bookings/abc/cancel", "", nil)
		if rec.Code != tc.want {
			t.Errorf("%v: status = %d, want %d", tc.err, rec.Code, tc.want)
		}
	}
}

func TestBookingRoutesPassPathID(t *testing.T) {
	b := pendingBooking()
	p := &models.Principal{UserID: "uid-1"}
	svc := &fakeReservations{booking: b, result: &services.ReservationResult{Booking: b, CheckoutURL: "https://pm.link/y"}}
	router := bookingRouter(svc)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/bookings/" + b.ID.Hex()},
		{http.MethodPost, "/api/bookings/" + b.ID.Hex() + "/cancel"},
		{http.MethodPost, "/api/bookings/" + b.ID.Hex() + "/payment-link"},
	} {
		svc.id = ""
		rec := doBooking(router, tc.method, tc.path, "", p)
		if rec.Code != http.StatusOK {
			t.Errorf("%s %s: status = %d", tc.method, tc.path, rec.Code)
		}
		if svc.id != b.ID.Hex() {
			t.Errorf("%s %s: id = %q", tc.method, tc.path, svc.id)
		}
	}
}

func TestGetBookingsReturnsEmptyArray(t *testing.T) {
	rec := doBooking(bookingRouter(&fakeReservations{bookings: []models.Booking{}}), http.MethodGet, "/api/bookings", "", &models.Principal{UserID: "uid-1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != "[]" {
		t.Fatalf("body = %s", got)
	}
}
