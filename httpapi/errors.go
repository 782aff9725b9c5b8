package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrEthical07/tokenauth"
)

type errorResponse struct {
	Error   string       `json:"error"`
	Details []fieldError `json:"details,omitempty"`
}

// errorMessages holds the client-facing text per sentinel. Order matters
// only for wrapped errors matching more than one entry.
var errorMessages = []struct {
	err error
	msg string
}{
	{tokenauth.ErrAccountExists, "User exists"},
	{tokenauth.ErrInvalidCredentials, "Invalid credentials"},
	{tokenauth.ErrLoginRateLimited, "Too many login attempts"},
	{tokenauth.ErrTokenMissing, "No token"},
	{tokenauth.ErrTokenExpired, "Token expired"},
	{tokenauth.ErrTokenTampered, "Token tampered"},
	{tokenauth.ErrTokenInvalid, "Invalid token"},
	{tokenauth.ErrRefreshInvalid, "Invalid refresh token"},
	{tokenauth.ErrRefreshExpired, "Refresh token expired"},
	{tokenauth.ErrUserNotFound, "User not found"},
	{tokenauth.ErrInvalidRequest, "Validation failed"},
}

func statusFor(kind tokenauth.ErrorKind) int {
	switch kind {
	case tokenauth.KindValidation:
		return http.StatusBadRequest
	case tokenauth.KindConflict:
		return http.StatusConflict
	case tokenauth.KindUnauthorized:
		return http.StatusUnauthorized
	case tokenauth.KindNotFound:
		return http.StatusNotFound
	case tokenauth.KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Validation failed", Details: verr.details})
		return
	}

	kind := tokenauth.KindOf(err)
	if kind == tokenauth.KindInternal {
		s.logger.Error(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", tokenauth.RequestIDFromContext(r.Context()),
			"error", err,
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error"})
		return
	}

	msg := "Request failed"
	for _, m := range errorMessages {
		if errors.Is(err, m.err) {
			msg = m.msg
			break
		}
	}
	writeJSON(w, statusFor(kind), errorResponse{Error: msg})
}

// writeProfileError answers GET /user/profile, which reports a bad
// signature as an invalid token rather than a tampered one.
func (s *Server) writeProfileError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, tokenauth.ErrTokenTampered) {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "Invalid token"})
		return
	}
	s.writeError(w, r, err)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
