package httpapi

import (
	"net/http"

	"github.com/MrEthical07/tokenauth"
	"github.com/MrEthical07/tokenauth/internal/logging"
	"github.com/MrEthical07/tokenauth/middleware"
	"github.com/gorilla/mux"
)

const refreshCookieName = "refreshToken"

// Options configures a Server.
type Options struct {
	Logger tokenauth.Logger
	// CookieSecure sets the Secure attribute on the refresh token cookie.
	CookieSecure bool
	// Metrics is mounted at GET /metrics when non-nil.
	Metrics http.Handler
}

// Server maps HTTP requests onto Engine operations.
type Server struct {
	engine       *tokenauth.Engine
	logger       tokenauth.Logger
	cookieSecure bool
	metrics      http.Handler
	validate     *requestValidator
}

// New returns a Server for engine. Zero-valued options log nothing, issue
// non-Secure cookies and serve no /metrics route.
func New(engine *tokenauth.Engine, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	return &Server{
		engine:       engine,
		logger:       logger,
		cookieSecure: opts.CookieSecure,
		metrics:      opts.Metrics,
		validate:     newRequestValidator(),
	}
}

// Handler returns the routed handler with request-id, access-log and panic
// recovery middleware applied.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.requestContext, s.accessLog, s.recoverer)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Not found"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed"})
	})

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}

	guard := middleware.Guard(s.engine, s.writeError)

	auth := r.PathPrefix("/auth").Subrouter()
	auth.HandleFunc("/register", s.handleRegister).Methods(http.MethodPost)
	auth.HandleFunc("/login", s.handleLogin).Methods(http.MethodPost)
	auth.HandleFunc("/refresh", s.handleRefresh).Methods(http.MethodPost)
	auth.HandleFunc("/logout", s.handleLogout).Methods(http.MethodPost)
	auth.Handle("/logout-all", guard(http.HandlerFunc(s.handleLogoutAll))).Methods(http.MethodPost)
	auth.HandleFunc("/forgot-password", s.handleForgotPassword).Methods(http.MethodPost)

	profileGuard := middleware.Guard(s.engine, s.writeProfileError)
	r.Handle("/user/profile", profileGuard(http.HandlerFunc(s.handleProfile))).Methods(http.MethodGet)

	return r
}
