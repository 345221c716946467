// Package handler translates HTTP to service calls and domain errors back
// to status codes. Handlers never touch the repositories directly.
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/xid"

	"github.com/reardon/codeverse/internal/apperror"
)

var validate = validator.New()

// ErrorResponse is the error shape every endpoint returns.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps domain errors onto HTTP. Unknown errors become an opaque
// 500 so internals never leak to the client.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
			errorType = "forbidden"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
			errorType = "conflict"
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized
			errorType = "unauthorized"
		}

		writeJSON(w, status, ErrorResponse{Error: errorType, Message: appErr.Message})
		return
	}

	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// decodeAndValidate decodes the request body into dst and runs the
// struct validation tags. On failure it writes the error response and
// returns false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			field := strings.ToLower(fe.Field())
			writeError(w, apperror.ValidationFailed(field,
				fmt.Sprintf("%s failed on the %q rule", field, fe.Tag())))
			return false
		}
		writeError(w, apperror.ValidationFailed("body", "invalid request"))
		return false
	}
	return true
}

// pathID extracts a URL parameter and checks it parses as an xid. Every
// entity ID in the system is an xid, so anything else can be rejected
// without touching the database.
func pathID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	raw := r.PathValue(name)
	if _, err := xid.FromString(raw); err != nil {
		writeError(w, apperror.ValidationFailed(name, fmt.Sprintf("%q is not a valid ID", raw)))
		return "", false
	}
	return raw, true
}
