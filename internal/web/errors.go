package web

// errors.go turns handler errors into JSON responses.
//
// The technical error is logged with the request id for correlation, and the
// client receives the mapped core.UserMessage. Handlers that already know the
// status pass it; statusFor derives one from the error code otherwise.

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/equipview/internal/core"
	"github.com/JonMunkholm/equipview/internal/logging"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs err and writes its user-facing form. A zero status is
// replaced by statusFor(err).
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	msg := core.MapError(err)
	if status == 0 {
		status = statusFor(err, msg)
	}

	logger := logging.FromContext(r.Context())
	args := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", args...)
	} else {
		logger.Info("request rejected", args...)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// statusFor picks an HTTP status from the error's user-facing code.
func statusFor(err error, msg core.UserMessage) int {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return http.StatusRequestEntityTooLarge
	}

	switch {
	case msg.Code == "AUTH001" || msg.Code == "AUTH002":
		return http.StatusUnauthorized
	case msg.Code == "DS001":
		return http.StatusNotFound
	case msg.Code == "FILE001":
		return http.StatusRequestEntityTooLarge
	case msg.Code == "FILE004":
		return http.StatusBadRequest
	case msg.Code == "RATE001":
		return http.StatusTooManyRequests
	case msg.Code == "UPL002":
		return http.StatusServiceUnavailable
	case msg.Code == "UPL005":
		return http.StatusGatewayTimeout
	case msg.Code == "UPL004":
		// Client went away; nginx's convention.
		return 499
	case strings.HasPrefix(msg.Code, "VAL"), strings.HasPrefix(msg.Code, "FILE"):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
