package httpapi

import (
	"net/http"
	"time"

	"github.com/MrEthical07/tokenauth"
	"github.com/MrEthical07/tokenauth/middleware"
)

type messageResponse struct {
	Message string `json:"message"`
}

type loginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken string `json:"accessToken"`
}

type profileResponse struct {
	Email string `json:"email"`
}

type logoutAllResponse struct {
	Revoked int `json:"revoked"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := s.validate.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if _, err := s.engine.Register(r.Context(), req.Email, req.Password); err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, messageResponse{Message: "User created"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := s.validate.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.engine.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.setRefreshCookie(w, res.RefreshToken, res.RefreshTokenExpiresAt)
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.Refresh(r.Context(), refreshCookie(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.setRefreshCookie(w, res.RefreshToken, res.RefreshTokenExpiresAt)
	writeJSON(w, http.StatusOK, refreshResponse{AccessToken: res.AccessToken})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Logout(r.Context(), refreshCookie(r)); err != nil {
		s.writeError(w, r, err)
		return
	}

	s.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	auth, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		s.writeError(w, r, tokenauth.ErrTokenMissing)
		return
	}

	n, err := s.engine.LogoutAll(r.Context(), auth.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.clearRefreshCookie(w)
	writeJSON(w, http.StatusOK, logoutAllResponse{Revoked: n})
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := s.validate.decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	if err := s.engine.ForgotPassword(r.Context(), req.Email); err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "If user exists, email sent"})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	auth, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		s.writeError(w, r, tokenauth.ErrTokenMissing)
		return
	}

	u, err := s.engine.Profile(r.Context(), auth.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, profileResponse{Email: u.Email})
}

func refreshCookie(r *http.Request) string {
	c, err := r.Cookie(refreshCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func (s *Server) setRefreshCookie(w http.ResponseWriter, value string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *Server) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}
