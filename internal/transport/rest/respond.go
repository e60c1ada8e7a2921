package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/heartmarshall/lingua-backend/internal/domain"
	"github.com/heartmarshall/lingua-backend/internal/service/progress"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error  string          `json:"error"`
	Fields []fieldResponse `json:"fields,omitempty"`
}

type fieldResponse struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeFieldErrors(w http.ResponseWriter, status int, message string, errs []domain.FieldError) {
	fields := make([]fieldResponse, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, fieldResponse{Field: e.Field, Message: e.Message})
	}
	writeJSON(w, status, errorResponse{Error: message, Fields: fields})
}

// decodeJSON reads a JSON request body into dst. Unknown fields and
// trailing data are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	if dec.More() {
		return errors.New("decode body: trailing data")
	}
	return nil
}

// handleError maps service errors onto HTTP statuses. Validation and
// authorization errors carry their field list so clients can show them
// inline.
func handleError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var (
		ve    *domain.ValidationError
		ae    *domain.AuthorizationError
		gwErr *domain.GatewayError
	)
	switch {
	case errors.As(err, &ve):
		writeFieldErrors(w, http.StatusBadRequest, "validation failed", ve.Errors)
	case errors.As(err, &ae):
		writeFieldErrors(w, http.StatusForbidden, "forbidden", ae.Errors)
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, progress.ErrRegistryClosed):
		writeError(w, http.StatusServiceUnavailable, "shutting down")
	case errors.As(err, &gwErr):
		status := gatewayStatus(gwErr.Code)
		if status >= http.StatusInternalServerError {
			log.ErrorContext(r.Context(), "gateway error",
				slog.String("code", gwErr.Code),
				slog.String("error", err.Error()),
			)
		}
		writeError(w, status, gatewayMessage(gwErr.Code))
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		log.ErrorContext(r.Context(), "internal error", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func gatewayStatus(code string) int {
	switch code {
	case domain.GatewayCodeNotFound:
		return http.StatusNotFound
	case domain.GatewayCodeConflict:
		return http.StatusConflict
	case domain.GatewayCodeInvalid:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func gatewayMessage(code string) string {
	switch code {
	case domain.GatewayCodeNotFound:
		return "not found"
	case domain.GatewayCodeConflict:
		return "already exists"
	case domain.GatewayCodeInvalid:
		return "rejected by backend"
	default:
		return "backend unavailable"
	}
}
