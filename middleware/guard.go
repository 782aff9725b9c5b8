package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrEthical07/tokenauth"
)

type authResultContextKey struct{}

// ErrorHandler writes the response for a rejected request.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// AuthResultFromContext returns the result Guard stored for an admitted
// request.
func AuthResultFromContext(ctx context.Context) (*tokenauth.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*tokenauth.AuthResult)
	return res, ok
}

// Guard admits requests carrying a valid access token. A missing or
// non-Bearer Authorization header is reported as tokenauth.ErrTokenMissing.
func Guard(engine *tokenauth.Engine, onError ErrorHandler) func(http.Handler) http.Handler {
	if onError == nil {
		onError = defaultErrorHandler
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				onError(w, r, tokenauth.ErrEngineNotReady)
				return
			}

			token, ok := BearerToken(r)
			if !ok {
				onError(w, r, tokenauth.ErrTokenMissing)
				return
			}

			res, err := engine.VerifyAccess(r.Context(), token)
			if err != nil {
				onError(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), authResultContextKey{}, &res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header.
func BearerToken(r *http.Request) (string, bool) {
	const bearer = "Bearer "
	value := r.Header.Get("Authorization")
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}

func defaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	if tokenauth.KindOf(err) == tokenauth.KindUnauthorized {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
