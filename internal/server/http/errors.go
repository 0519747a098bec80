package internalhttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/lomoval/sxodim/internal/app"
	"github.com/lomoval/sxodim/internal/metrics"
	"github.com/lomoval/sxodim/internal/schema"
	"github.com/lomoval/sxodim/internal/storage"
	log "github.com/sirupsen/logrus"
)

const (
	errUserExists          = "User already exists"
	errInvalidCredentials  = "Invalid login or password"
	errEventNotFound       = "Event not found"
	errUserOrEventNotFound = "User or Event not found"
	errInternalServerError = "Internal Server Error"
	errBodyTooLarge        = "Request body too large"
)

type errorResponse struct {
	Detail interface{} `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	var verr *schema.ValidationError
	var tooLarge *http.MaxBytesError
	var (
		status int
		kind   string
		detail interface{}
	)
	switch {
	case errors.As(err, &verr):
		status, kind, detail = http.StatusUnprocessableEntity, "validation", verr.Fields
	case errors.As(err, &tooLarge):
		status, kind, detail = http.StatusRequestEntityTooLarge, "too_large", errBodyTooLarge
	case errors.Is(err, storage.ErrUserExists):
		status, kind, detail = http.StatusBadRequest, "conflict", errUserExists
	case errors.Is(err, app.ErrUnauthorized):
		status, kind, detail = http.StatusUnauthorized, "unauthorized", errInvalidCredentials
	case errors.Is(err, app.ErrNotFound):
		status, kind, detail = http.StatusNotFound, "not_found", errUserOrEventNotFound
	case errors.Is(err, storage.ErrNotFoundEvent):
		status, kind, detail = http.StatusNotFound, "not_found", errEventNotFound
	default:
		log.WithField("operation", operation).WithField("path", r.URL.Path).
			Errorf("request failed: %v", err)
		status, kind, detail = http.StatusInternalServerError, "internal", errInternalServerError
	}
	metrics.OperationErrors.WithLabelValues(operation, kind).Inc()
	if kind != "internal" {
		log.WithField("operation", operation).Debugf("request rejected: %v", err)
	}
	writeJSON(w, status, errorResponse{Detail: detail})
}

func routingErrorHandler(
	_ context.Context,
	_ *runtime.ServeMux,
	_ runtime.Marshaler,
	w http.ResponseWriter,
	_ *http.Request,
	httpStatus int,
) {
	writeJSON(w, httpStatus, errorResponse{Detail: http.StatusText(httpStatus)})
}
