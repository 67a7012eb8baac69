package handlers

import (
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/markjakearzadon/homigo-gobackend/internal/apperr"
	"github.com/markjakearzadon/homigo-gobackend/internal/middleware"
	"github.com/markjakearzadon/homigo-gobackend/internal/models"
	"github.com/markjakearzadon/homigo-gobackend/internal/money"
	"github.com/markjakearzadon/homigo-gobackend/internal/services"
)

// PaymentHandler serves the standalone payment link endpoint.
type PaymentHandler struct {
	gateway       services.PaymentGateway
	gate          *middleware.OriginGate
	publicBaseURL string
	logger        *logrus.Logger
}

func NewPaymentHandler(gateway services.PaymentGateway, gate *middleware.OriginGate, publicBaseURL string, logger *logrus.Logger) *PaymentHandler {
	return &PaymentHandler{
		gateway:       gateway,
		gate:          gate,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger,
	}
}

type createLinkRequest struct {
	// Amount is in major units (pesos).
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

// CreateLink handles POST /payments/link.
func (h *PaymentHandler) CreateLink(w http.ResponseWriter, r *http.Request) {
	var req createLinkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, h.logger, err)
		return
	}

	amount, err := money.FromMajor(req.Amount)
	if err != nil {
		respondError(w, h.logger, apperr.Validation("amount", strings.TrimPrefix(err.Error(), "amount ")))
		return
	}

	base := h.redirectBase(r.Header.Get("Origin"))
	payReq := models.PaymentRequest{
		Amount:          amount,
		Description:     strings.TrimSpace(req.Description),
		SuccessRedirect: base + "/success",
		FailureRedirect: base + "/failed",
	}
	if err := payReq.Validate(); err != nil {
		respondError(w, h.logger, err)
		return
	}

	log := h.logger.WithFields(logrus.Fields{
		"request_id": middleware.RequestIDFrom(r.Context()),
		"amount":     int64(amount),
	})

	switch o := h.gateway.RequestLink(r.Context(), payReq).(type) {
	case models.LinkOutcome:
		writeJSON(w, h.logger, http.StatusOK, map[string]string{"url": o.URL})
	case models.GatewayErrorOutcome:
		log.WithFields(logrus.Fields{"code": o.Code, "detail": o.Detail}).Warn("Payment link request failed")
		details := o.Body
		if details == nil {
			details = o.Detail
		}
		writeJSON(w, h.logger, http.StatusInternalServerError, errorBody{Error: "Failed to create payment link", Details: details})
	case models.ConfigErrorOutcome:
		log.WithField("reason", o.Reason).Error("Payment gateway is not configured")
		writeJSON(w, h.logger, http.StatusInternalServerError, errorBody{Error: o.Reason})
	default:
		writeJSON(w, h.logger, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

// redirectBase trusts the Origin header only when it is allow-listed.
func (h *PaymentHandler) redirectBase(origin string) string {
	if h.gate != nil && h.gate.Allowed(origin) {
		return strings.TrimRight(origin, "/")
	}
	return h.publicBaseURL
}
