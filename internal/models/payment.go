package models

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/markjakearzadon/homigo-gobackend/internal/apperr"
	"github.com/markjakearzadon/homigo-gobackend/internal/money"
)

// MaxDescriptionLength bounds PaymentRequest.Description, in runes.
const MaxDescriptionLength = 255

// PaymentRequest asks the gateway for a hosted checkout link. It is never
// persisted. Amount is already in minor units; nothing downstream converts it.
type PaymentRequest struct {
	Amount          money.Minor
	Description     string
	SuccessRedirect string
	FailureRedirect string
	// Reference ties the remote link to a booking id. Optional.
	Reference string
}

func (r PaymentRequest) Validate() error {
	if r.Amount <= 0 {
		return apperr.Validation("amount", "must be positive")
	}
	desc := strings.TrimSpace(r.Description)
	if desc == "" {
		return apperr.Validation("description", "is required")
	}
	if utf8.RuneCountInString(desc) > MaxDescriptionLength {
		return apperr.Validation("description", "is too long")
	}
	if !absoluteURL(r.SuccessRedirect) {
		return apperr.Validation("success_redirect", "must be an absolute URL")
	}
	if !absoluteURL(r.FailureRedirect) {
		return apperr.Validation("failure_redirect", "must be an absolute URL")
	}
	return nil
}

// TruncateDescription cuts s to MaxDescriptionLength runes.
func TruncateDescription(s string) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= MaxDescriptionLength {
		return s
	}
	return string([]rune(s)[:MaxDescriptionLength])
}

func absoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.IsAbs() && u.Host != ""
}

// PaymentOutcome is one of LinkOutcome, GatewayErrorOutcome or
// ConfigErrorOutcome. Handle it with a type switch.
type PaymentOutcome interface {
	isPaymentOutcome()
}

type LinkOutcome struct {
	URL    string
	LinkID string
}

// GatewayErrorOutcome means the provider rejected the request, answered with
// something unusable, or did not answer in time.
type GatewayErrorOutcome struct {
	Code   string
	Detail string
	Status int
	// Body is the provider's decoded error payload when it sent one.
	Body any
}

// CodeInvalidRequest marks a GatewayErrorOutcome for a request that was
// refused locally and never sent.
const CodeInvalidRequest = "invalid_request"

// ConfigErrorOutcome means the deployment is missing something; no call was made.
type ConfigErrorOutcome struct {
	Reason string
}

func (LinkOutcome) isPaymentOutcome()         {}
func (GatewayErrorOutcome) isPaymentOutcome() {}
func (ConfigErrorOutcome) isPaymentOutcome()  {}

// OutcomeError converts a failed outcome into the matching apperr. It returns
// nil for a link.
func OutcomeError(o PaymentOutcome) error {
	switch v := o.(type) {
	case LinkOutcome:
		return nil
	case GatewayErrorOutcome:
		if v.Code == CodeInvalidRequest {
			return &apperr.Error{Kind: apperr.KindValidation, Message: v.Detail}
		}
		details := v.Body
		if details == nil {
			details = v.Detail
		}
		return apperr.Gateway("payment link request failed: "+v.Detail, details)
	case ConfigErrorOutcome:
		return apperr.Config(v.Reason)
	default:
		return apperr.Internal("unknown payment outcome", nil)
	}
}
