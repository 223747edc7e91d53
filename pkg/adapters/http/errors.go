package http

import (
	"errors"
	"net/http"

	"github.com/aretw0/dotmap/pkg/domain"
	"github.com/aretw0/dotmap/pkg/runner"
	"github.com/go-playground/validator/v10"
)

// errBadRequest marks decode and validation failures.
var errBadRequest = errors.New("bad request")

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusOf maps an error to an HTTP status and a stable code.
func statusOf(err error) (int, string) {
	var invariant *domain.InvariantError
	var validation validator.ValidationErrors
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, domain.ErrInvalidSessionID):
		return http.StatusBadRequest, "invalid_session_id"
	case errors.Is(err, domain.ErrInvalidMode):
		return http.StatusBadRequest, "invalid_mode"
	case errors.Is(err, domain.ErrInvalidStyle):
		return http.StatusBadRequest, "invalid_style"
	case errors.As(err, &invariant):
		return http.StatusBadRequest, "invalid_snapshot"
	case errors.As(err, &validation):
		return http.StatusBadRequest, "validation_failed"
	case runner.IsInvalidInput(err):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request"
	}
	return http.StatusInternalServerError, "internal"
}

// fail writes err as JSON and logs it; server errors at error level.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusOf(err)
	attrs := []any{"method", r.Method, "path", r.URL.Path, "code", code, "err", err}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", attrs...)
	} else {
		s.logger.Warn("request rejected", attrs...)
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: code})
}
