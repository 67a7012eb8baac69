package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/markjakearzadon/homigo-gobackend/internal/apperr"
)

type errorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Field     string `json:"field,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
	Details   any    `json:"details,omitempty"`
	Booking   any    `json:"booking,omitempty"`
}

func writeJSON(w http.ResponseWriter, logger *logrus.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithError(err).Warn("Failed to encode response")
	}
}

// errorResponse builds the body for err. Messages of internal errors are not
// echoed to the client.
func errorResponse(err error) errorBody {
	body := errorBody{Code: string(apperr.KindOf(err))}
	var e *apperr.Error
	if errors.As(err, &e) && e.Kind != apperr.KindInternal {
		body.Error = e.Message
		body.Field = e.Field
		body.Retryable = e.Retryable
		body.Details = e.Details
	} else {
		body.Error = "internal error"
	}
	return body
}

func respondError(w http.ResponseWriter, logger *logrus.Logger, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.WithError(err).WithField("status", status).Error("Request failed")
	}
	writeJSON(w, logger, status, errorResponse(err))
}

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return apperr.Validation("body", "invalid JSON body")
	}
	return nil
}
