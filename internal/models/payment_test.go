package models

import (
	"strings"
	"testing"

	"github.com/markjakearzadon/homigo-gobackend/internal/apperr"
)

func TestPaymentRequestValidate(t *testing.T) {
	ok := PaymentRequest{
		Amount:          279900,
		Description:     "Booking at Malolos by juan@example.com",
		SuccessRedirect: "https://homigo.app/success",
		FailureRedirect: "https://homigo.app/failed",
	}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid request rejected: %v", err)
	}

	bad := ok
	bad.Amount = 0
	if !apperr.Is(bad.Validate(), apperr.KindValidation) {
		t.Fatalf("zero amount accepted")
	}

	bad = ok
	bad.SuccessRedirect = "/success"
	if !apperr.Is(bad.Validate(), apperr.KindValidation) {
		t.Fatalf("relative redirect accepted")
	}

	bad = ok
	bad.Description = strings.Repeat("x", MaxDescriptionLength+1)
	if !apperr.Is(bad.Validate(), apperr.KindValidation) {
		t.Fatalf("long description accepted")
	}
}

func TestTruncateDescription(t *testing.T) {
	long := strings.Repeat("ñ", MaxDescriptionLength+10)
	if got := []rune(TruncateDescription(long)); len(got) != MaxDescriptionLength {
		t.Fatalf("len = %d", len(got))
	}
}

func TestOutcomeError(t *testing.T) {
	if err := OutcomeError(LinkOutcome{URL: "https://pm.link/x"}); err != nil {
		t.Fatalf("link outcome produced error %v", err)
	}
	gw := OutcomeError(GatewayErrorOutcome{Code: "timeout", Detail: "timeout"})
	if !apperr.Is(gw, apperr.KindGateway) || !apperr.IsRetryable(gw) {
		t.Fatalf("gateway outcome: %v", gw)
	}
	cfg := OutcomeError(ConfigErrorOutcome{Reason: "missing PayMongo secret key"})
	if !apperr.Is(cfg, apperr.KindConfig) || apperr.IsRetryable(cfg) {
		t.Fatalf("config outcome: %v", cfg)
	}
}

func TestOutcomeErrorInvalidRequestIsNotRetryable(t *testing.T) {
	err := OutcomeError(GatewayErrorOutcome{Code: CodeInvalidRequest, Detail: "description: is required"})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if apperr.IsRetryable(err) {
		t.Fatalf("invalid request must not be retryable")
	}
}
