package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	domainErrors "github.com/clearbid/auction-engine/internal/domain/errors"
)

// writeError converts an error into the uniform error envelope. Domain
// errors carry their own status code and machine-readable code; anything
// unrecognized becomes a 500 with no internals leaked.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	detail := ErrorDetail{
		Code:    "INTERNAL_ERROR",
		Message: "An internal error occurred",
	}

	var appErr *domainErrors.AppError
	var jsonErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError

	switch {
	case errors.As(err, &appErr):
		status = appErr.StatusCode
		detail.Code = appErr.Code
		detail.Message = appErr.Message
		detail.Details = appErr.Details
	case errors.As(err, &jsonErr):
		status = http.StatusBadRequest
		detail.Code = "INVALID_JSON"
		detail.Message = fmt.Sprintf("Invalid JSON syntax at position %d", jsonErr.Offset)
	case errors.As(err, &typeErr):
		status = http.StatusBadRequest
		detail.Code = "TYPE_MISMATCH"
		detail.Message = fmt.Sprintf("Invalid type for field %q", typeErr.Field)
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}

	writeJSON(w, status, ErrorResponse{Error: detail})
}

// writeValidationError reports request payload validation failures.
func (s *Server) writeValidationError(w http.ResponseWriter, fields map[string]string) {
	details := make(map[string]interface{}, len(fields))
	for field, msg := range fields {
		details[field] = msg
	}
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrorDetail{
		Code:    "VALIDATION_ERROR",
		Message: "Request validation failed",
		Details: details,
	}})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
