package tokenauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/tokenauth/credential"
	"github.com/MrEthical07/tokenauth/internal"
	internalaudit "github.com/MrEthical07/tokenauth/internal/audit"
	"github.com/MrEthical07/tokenauth/internal/rate"
	"github.com/MrEthical07/tokenauth/password"
	"github.com/MrEthical07/tokenauth/session"
	"github.com/MrEthical07/tokenauth/token"
)

// Engine coordinates the credential store, the token codec and the session
// store. Methods are safe for concurrent use once Build has returned.
type Engine struct {
	config      Config
	now         func() time.Time
	codec       *token.Codec
	users       credential.Store
	sessions    session.Store
	limiter     rate.LoginLimiter
	audit       *internalaudit.Dispatcher
	metrics     *Metrics
	logger      Logger
	resetSender ResetSender
}

// Close flushes pending audit events. It does not close stores or the
// Redis client, which the caller owns.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
}

// AuditDropped returns how many audit events were discarded on a full
// buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters and histograms.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:      map[MetricID]uint64{},
			Histograms:    map[MetricID][]uint64{},
			HistogramSums: map[MetricID]time.Duration{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() bool {
	return e != nil && e.codec != nil && e.users != nil && e.sessions != nil
}

// Register creates an account for email.
func (e *Engine) Register(ctx context.Context, email, plaintext string) (User, error) {
	if !e.ready() {
		return User{}, ErrEngineNotReady
	}
	if email == "" || plaintext == "" {
		return User{}, ErrInvalidRequest
	}

	u, err := e.users.Register(ctx, email, plaintext)
	if err != nil {
		switch {
		case errors.Is(err, credential.ErrConflict):
			e.metricInc(MetricRegisterDuplicate)
			e.emitAudit(ctx, AuditEventRegister, "", false, ErrAccountExists, nil)
			return User{}, ErrAccountExists
		case errors.Is(err, password.ErrPasswordTooShort), errors.Is(err, password.ErrPasswordTooLong):
			return User{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		return User{}, fmt.Errorf("register: %w", err)
	}

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, AuditEventRegister, u.ID, true, nil, nil)

	return userFromCredential(u), nil
}

// Login checks credentials and issues an access token plus a refresh
// session. Unknown e-mail and wrong password both return
// ErrInvalidCredentials.
func (e *Engine) Login(ctx context.Context, email, plaintext string) (LoginResult, error) {
	if !e.ready() {
		return LoginResult{}, ErrEngineNotReady
	}
	if email == "" || plaintext == "" {
		return LoginResult{}, ErrInvalidRequest
	}

	ip := clientIPFromContext(ctx)

	if err := e.limiter.CheckLogin(ctx, email, ip); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			e.metricInc(MetricLoginRateLimited)
			e.emitAudit(ctx, AuditEventLoginThrottled, "", false, ErrLoginRateLimited, nil)
			return LoginResult{}, ErrLoginRateLimited
		}
		return LoginResult{}, fmt.Errorf("login throttle: %w", err)
	}

	u, err := e.users.Authenticate(ctx, email, plaintext)
	if err != nil {
		if !errors.Is(err, credential.ErrUnauthorized) {
			return LoginResult{}, fmt.Errorf("login: %w", err)
		}
		if limitErr := e.limiter.IncrementLogin(ctx, email, ip); limitErr != nil {
			e.logger.Warn(ctx, "record failed login", "error", limitErr)
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, AuditEventLogin, "", false, ErrInvalidCredentials, nil)
		return LoginResult{}, ErrInvalidCredentials
	}

	if err := e.limiter.ResetLogin(ctx, email, ip); err != nil {
		e.logger.Warn(ctx, "reset login throttle", "error", err)
	}

	result, err := e.issue(ctx, u.ID)
	if err != nil {
		return LoginResult{}, err
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, AuditEventLogin, u.ID, true, nil, nil)

	return result, nil
}

// VerifyAccess validates an access token and resolves its subject. A token
// whose user no longer exists is ErrTokenInvalid.
func (e *Engine) VerifyAccess(ctx context.Context, accessToken string) (AuthResult, error) {
	if !e.ready() {
		return AuthResult{}, ErrEngineNotReady
	}

	if e.metrics.LatencyEnabled() {
		start := time.Now()
		defer func() { e.metrics.Observe(MetricVerifyLatency, time.Since(start)) }()
	}

	if accessToken == "" {
		e.metricInc(MetricAccessInvalid)
		return AuthResult{}, ErrTokenMissing
	}

	claims, err := e.codec.Verify(accessToken)
	if err != nil {
		mapped := mapTokenError(err)
		switch mapped {
		case ErrTokenExpired:
			e.metricInc(MetricAccessExpired)
		case ErrTokenTampered:
			e.metricInc(MetricAccessTampered)
			e.emitAudit(ctx, AuditEventAccessRejected, "", false, mapped, nil)
		default:
			e.metricInc(MetricAccessInvalid)
		}
		return AuthResult{}, mapped
	}

	userID := claims.UserID()
	if userID == "" {
		e.metricInc(MetricAccessInvalid)
		return AuthResult{}, ErrTokenInvalid
	}

	u, err := e.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			e.metricInc(MetricAccessInvalid)
			return AuthResult{}, ErrTokenInvalid
		}
		return AuthResult{}, fmt.Errorf("verify access: %w", err)
	}

	result := AuthResult{
		UserID: u.ID,
		Email:  u.Email,
		Claims: claims,
	}
	if exp, ok := claims.ExpiresAt(); ok {
		result.ExpiresAt = exp
	}

	e.metricInc(MetricAccessAccepted)
	return result, nil
}

// Refresh rotates refreshToken and issues a new access token for its owner.
// Of concurrent calls presenting the same token, exactly one succeeds.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (LoginResult, error) {
	if !e.ready() {
		return LoginResult{}, ErrEngineNotReady
	}
	if refreshToken == "" {
		e.metricInc(MetricRefreshFailure)
		return LoginResult{}, ErrRefreshInvalid
	}

	sess, err := e.sessions.Rotate(ctx, refreshToken, e.config.Token.RefreshTTL)
	if err != nil {
		e.metricInc(MetricRefreshFailure)
		var mapped error
		switch {
		case errors.Is(err, session.ErrInvalid):
			mapped = ErrRefreshInvalid
		case errors.Is(err, session.ErrExpired):
			mapped = ErrRefreshExpired
		default:
			return LoginResult{}, fmt.Errorf("refresh: %w", err)
		}
		e.emitAudit(ctx, AuditEventRefresh, "", false, mapped, nil)
		return LoginResult{}, mapped
	}

	access, accessExp, err := e.signAccess(sess.UserID)
	if err != nil {
		return LoginResult{}, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, AuditEventRefresh, sess.UserID, true, nil, nil)

	return LoginResult{
		UserID:                sess.UserID,
		AccessToken:           access,
		AccessTokenExpiresAt:  accessExp,
		RefreshToken:          sess.Token,
		RefreshTokenExpiresAt: sess.ExpiresAt,
	}, nil
}

// Logout revokes one refresh session. Unknown or empty tokens succeed.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if refreshToken == "" {
		return nil
	}

	if err := e.sessions.Revoke(ctx, refreshToken); err != nil {
		return fmt.Errorf("logout: %w", err)
	}

	e.metricInc(MetricLogout)
	e.emitAudit(ctx, AuditEventLogout, "", true, nil, nil)
	return nil
}

// LogoutAll revokes every refresh session of userID and reports how many
// were removed. Access tokens already issued stay valid until they expire.
func (e *Engine) LogoutAll(ctx context.Context, userID string) (int, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}
	if userID == "" {
		return 0, ErrInvalidRequest
	}

	n, err := e.sessions.RevokeAll(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("logout all: %w", err)
	}

	e.metricInc(MetricLogoutAll)
	e.emitAudit(ctx, AuditEventLogoutAll, userID, true, nil, map[string]string{
		"revoked": fmt.Sprint(n),
	})
	return n, nil
}

// ActiveSessions reports the unexpired refresh sessions of userID.
func (e *Engine) ActiveSessions(ctx context.Context, userID string) (int, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}
	return e.sessions.ActiveCount(ctx, userID)
}

// Profile resolves a user by id.
func (e *Engine) Profile(ctx context.Context, userID string) (User, error) {
	if !e.ready() {
		return User{}, ErrEngineNotReady
	}

	u, err := e.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, credential.ErrNotFound) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("profile: %w", err)
	}
	return userFromCredential(u), nil
}

// ForgotPassword starts a password reset for email. It returns nil whether
// or not the account exists; only ErrInvalidRequest and ErrEngineNotReady
// are ever returned. For a known account a fresh reset token is handed to
// the ResetSender.
func (e *Engine) ForgotPassword(ctx context.Context, email string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if email == "" {
		return ErrInvalidRequest
	}

	e.metricInc(MetricPasswordResetRequest)

	u, err := e.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, credential.ErrNotFound) {
			e.logger.Warn(ctx, "forgot password lookup", "error", err)
		}
		e.emitAudit(ctx, AuditEventPasswordForgot, "", false, nil, nil)
		return nil
	}

	resetToken, err := internal.NewResetToken()
	if err != nil {
		e.logger.Error(ctx, "generate reset token", "error", err)
		return nil
	}

	reset := PasswordReset{
		UserID: u.ID,
		Email:  u.Email,
		Token:  resetToken,
		Link:   resetLink(e.config.PasswordReset.LinkBase, resetToken),
	}
	if err := e.resetSender.Send(ctx, reset); err != nil {
		e.logger.Warn(ctx, "deliver password reset", "user_id", u.ID, "error", err)
	}

	e.emitAudit(ctx, AuditEventPasswordForgot, u.ID, true, nil, nil)
	return nil
}

func (e *Engine) issue(ctx context.Context, userID string) (LoginResult, error) {
	access, accessExp, err := e.signAccess(userID)
	if err != nil {
		return LoginResult{}, err
	}

	sess, err := e.sessions.Issue(ctx, userID, e.config.Token.RefreshTTL)
	if err != nil {
		return LoginResult{}, fmt.Errorf("issue session: %w", err)
	}
	e.metricInc(MetricSessionCreated)

	return LoginResult{
		UserID:                userID,
		AccessToken:           access,
		AccessTokenExpiresAt:  accessExp,
		RefreshToken:          sess.Token,
		RefreshTokenExpiresAt: sess.ExpiresAt,
	}, nil
}

func (e *Engine) signAccess(userID string) (string, time.Time, error) {
	ttl := e.config.Token.AccessTTL
	expiresAt := time.UnixMilli(e.now().Add(ttl).UnixMilli())

	access, err := e.codec.Sign(token.Claims{token.ClaimUserID: userID}, ttl)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return access, expiresAt, nil
}

func mapTokenError(err error) error {
	switch {
	case errors.Is(err, token.ErrExpired):
		return ErrTokenExpired
	case errors.Is(err, token.ErrSignatureInvalid):
		return ErrTokenTampered
	default:
		return ErrTokenInvalid
	}
}

func userFromCredential(u credential.User) User {
	return User{
		ID:        u.ID,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}
