package tokenauth

import (
	"context"
	"net/url"
	"time"

	"github.com/MrEthical07/tokenauth/internal/logging"
	"github.com/MrEthical07/tokenauth/token"
)

// User is the public view of an account.
type User struct {
	ID        string
	Email     string
	CreatedAt time.Time
}

// LoginResult carries the credentials issued by Login and Refresh.
type LoginResult struct {
	UserID                string
	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
}

// AuthResult is the outcome of a successful VerifyAccess.
type AuthResult struct {
	UserID    string
	Email     string
	Claims    token.Claims
	ExpiresAt time.Time
}

// PasswordReset is handed to a ResetSender when a reset is requested for a
// known account.
type PasswordReset struct {
	UserID string
	Email  string
	Token  string
	Link   string
}

// ResetSender delivers password reset links. Send runs on the request path;
// its error is logged and never reaches the caller of ForgotPassword.
type ResetSender interface {
	Send(ctx context.Context, reset PasswordReset) error
}

// ResetSenderFunc adapts a function to ResetSender.
type ResetSenderFunc func(ctx context.Context, reset PasswordReset) error

// Send calls f.
func (f ResetSenderFunc) Send(ctx context.Context, reset PasswordReset) error {
	return f(ctx, reset)
}

// LogResetSender writes reset links to a logger. With IncludeLink unset
// only the recipient is logged.
type LogResetSender struct {
	Logger      logging.Logger
	IncludeLink bool
}

// Send logs reset. It never fails.
func (s LogResetSender) Send(ctx context.Context, reset PasswordReset) error {
	if s.Logger == nil {
		return nil
	}
	if s.IncludeLink {
		s.Logger.Info(ctx, "password reset link", "user_id", reset.UserID, "link", reset.Link)
		return nil
	}
	s.Logger.Info(ctx, "password reset requested", "user_id", reset.UserID)
	return nil
}

func resetLink(base, resetToken string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base + "?token=" + url.QueryEscape(resetToken)
	}
	q := u.Query()
	q.Set("token", resetToken)
	u.RawQuery = q.Encode()
	return u.String()
}
