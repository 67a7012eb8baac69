package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/markjakearzadon/homigo-gobackend/internal/config"
	"github.com/markjakearzadon/homigo-gobackend/internal/metrics"
	"github.com/markjakearzadon/homigo-gobackend/internal/models"
)

const maxGatewayBody = 64 << 10

// PayMongoClient creates hosted payment links. It does not retry: the links
// endpoint takes no idempotency key, so a retry could leave a second live link.
type PayMongoClient struct {
	secretKey  string
	baseURL    string
	method     string
	currency   string
	timeout    time.Duration
	httpClient *http.Client
	logger     *logrus.Logger
}

type linkRedirects struct {
	SuccessURL string `json:"success_url"`
	FailureURL string `json:"failure_url"`
}

type linkAttributes struct {
	Amount               int64                    `json:"amount"`
	Description          string                   `json:"description"`
	Remarks              string                   `json:"remarks,omitempty"`
	Currency             string                   `json:"currency"`
	PaymentMethodAllowed []string                 `json:"payment_method_allowed"`
	PaymentMethodOptions map[string]linkRedirects `json:"payment_method_options"`
}

type linkRequest struct {
	Data struct {
		Attributes linkAttributes `json:"attributes"`
	} `json:"data"`
}

// linkResponse is the part of the links response we read. Anything else the
// provider sends is ignored.
type linkResponse struct {
	Data *struct {
		ID         string `json:"id"`
		Attributes *struct {
			CheckoutURL string `json:"checkout_url"`
		} `json:"attributes"`
	} `json:"data"`
}

type gatewayErrorResponse struct {
	Errors []struct {
		Code   string `json:"code"`
		Detail string `json:"detail"`
	} `json:"errors"`
}

func NewPayMongoClient(cfg config.Gateway, logger *logrus.Logger) *PayMongoClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &PayMongoClient{
		secretKey:  cfg.SecretKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		method:     cfg.PaymentMethod,
		currency:   cfg.Currency,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// RequestLink never returns an error value: every failure is folded into the
// outcome so callers have to handle all three variants.
func (c *PayMongoClient) RequestLink(ctx context.Context, req models.PaymentRequest) (outcome models.PaymentOutcome) {
	start := time.Now()
	defer func() {
		metrics.ObserveGateway(outcomeLabel(outcome), time.Since(start).Seconds())
	}()

	if c.secretKey == "" {
		c.logger.Error("PayMongo secret key is not configured")
		return models.ConfigErrorOutcome{Reason: "missing PayMongo secret key"}
	}
	if err := req.Validate(); err != nil {
		c.logger.WithError(err).Warn("Refusing to send invalid payment request")
		return models.GatewayErrorOutcome{Code: models.CodeInvalidRequest, Detail: err.Error()}
	}

	var body linkRequest
	body.Data.Attributes = linkAttributes{
		Amount:               int64(req.Amount),
		Description:          req.Description,
		Remarks:              req.Reference,
		Currency:             c.currency,
		PaymentMethodAllowed: []string{c.method},
		PaymentMethodOptions: map[string]linkRedirects{
			c.method: {SuccessURL: req.SuccessRedirect, FailureURL: req.FailureRedirect},
		},
	}
	reqBody, err := json.Marshal(body)
	if err != nil {
		c.logger.WithError(err).Error("Failed to marshal payment link request")
		return models.GatewayErrorOutcome{Code: "encode_failed", Detail: err.Error()}
	}
	c.logger.WithField("body", string(maskSensitiveFields(reqBody))).Debug("PayMongo link request")

	// Once dispatched the call runs to completion even if the caller goes
	// away: a link created remotely must still be reported back.
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL+"/v1/links", bytes.NewBuffer(reqBody))
	if err != nil {
		c.logger.WithError(err).Error("Failed to build payment link request")
		return models.ConfigErrorOutcome{Reason: fmt.Sprintf("invalid PayMongo base URL: %v", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", basicAuth(c.secretKey))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			c.logger.WithError(err).Warn("PayMongo link request timed out")
			return models.GatewayErrorOutcome{Code: "timeout", Detail: "timeout"}
		}
		c.logger.WithError(err).Warn("PayMongo link request failed")
		return models.GatewayErrorOutcome{Code: "transport_error", Detail: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxGatewayBody))
	if err != nil {
		if isTimeout(err) {
			return models.GatewayErrorOutcome{Code: "timeout", Detail: "timeout", Status: resp.StatusCode}
		}
		return models.GatewayErrorOutcome{Code: "read_failed", Detail: err.Error(), Status: resp.StatusCode}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		out := decodeGatewayError(resp.StatusCode, raw)
		c.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"code":   out.Code,
			"detail": out.Detail,
		}).Warn("PayMongo rejected link request")
		return out
	}

	var parsed linkResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		c.logger.WithError(err).Warn("Failed to decode PayMongo link response")
		return models.GatewayErrorOutcome{Code: "bad_response", Detail: "unreadable gateway response", Status: resp.StatusCode}
	}
	if parsed.Data == nil || parsed.Data.Attributes == nil || strings.TrimSpace(parsed.Data.Attributes.CheckoutURL) == "" {
		c.logger.WithField("status", resp.StatusCode).Warn("PayMongo response has no checkout_url")
		return models.GatewayErrorOutcome{Code: "no_link", Detail: "no link produced", Status: resp.StatusCode}
	}

	c.logger.WithFields(logrus.Fields{
		"link_id":   parsed.Data.ID,
		"reference": req.Reference,
		"amount":    int64(req.Amount),
	}).Info("PayMongo link created")
	return models.LinkOutcome{URL: parsed.Data.Attributes.CheckoutURL, LinkID: parsed.Data.ID}
}

// basicAuth encodes the secret as a Basic credential with an empty password.
// The colon is required; "secret" alone is a different credential.
func basicAuth(secret string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(secret+":"))
}

func decodeGatewayError(status int, raw []byte) models.GatewayErrorOutcome {
	out := models.GatewayErrorOutcome{
		Code:   fmt.Sprintf("http_%d", status),
		Detail: http.StatusText(status),
		Status: status,
	}

	var structured gatewayErrorResponse
	if err := json.Unmarshal(raw, &structured); err == nil && len(structured.Errors) > 0 {
		if structured.Errors[0].Code != "" {
			out.Code = structured.Errors[0].Code
		}
		if structured.Errors[0].Detail != "" {
			out.Detail = structured.Errors[0].Detail
		}
		var body any
		if json.Unmarshal(raw, &body) == nil {
			out.Body = body
		}
		return out
	}

	if text := strings.TrimSpace(string(raw)); text != "" {
		out.Detail = text
	}
	return out
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func outcomeLabel(o models.PaymentOutcome) string {
	switch v := o.(type) {
	case models.LinkOutcome:
		return "link"
	case models.ConfigErrorOutcome:
		return "config_error"
	case models.GatewayErrorOutcome:
		if v.Code == "timeout" {
			return "timeout"
		}
		return "gateway_error"
	default:
		return "unknown"
	}
}

// maskSensitiveFields hides e-mail addresses in the outgoing body before it is
// logged. Descriptions carry the guest's e-mail.
func maskSensitiveFields(body []byte) []byte {
	var req map[string]interface{}
	if err := json.Unmarshal(body, &req); err != nil {
		return body
	}
	data, ok := req["data"].(map[string]interface{})
	if !ok {
		return body
	}
	attrs, ok := data["attributes"].(map[string]interface{})
	if !ok {
		return body
	}
	for _, key := range []string{"description", "remarks"} {
		if s, ok := attrs[key].(string); ok {
			attrs[key] = maskEmails(s)
		}
	}
	masked, _ := json.Marshal(req)
	return masked
}

func maskEmails(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		parts := strings.SplitN(w, "@", 2)
		if len(parts) != 2 {
			continue
		}
		local := parts[0]
		if len(local) > 3 {
			local = local[:3]
		}
		words[i] = local + "****@" + parts[1]
	}
	return strings.Join(words, " ")
}
