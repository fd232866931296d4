package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"sunolegal/internal/auth"
	"sunolegal/internal/config"
	"sunolegal/internal/domain"
	"sunolegal/internal/metrics"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	headerRequestID = "X-Request-ID"
	headerDeviceID  = "X-Device-ID"
)

// ReadyCheck reports whether a dependency can serve traffic.
type ReadyCheck func(ctx context.Context) error

// Deps are the services the HTTP API exposes.
type Deps struct {
	Catalog     domain.CatalogService
	Bookings    domain.BookingService
	Chat        domain.ChatService
	Profiles    domain.ProfileService
	ReadyChecks map[string]ReadyCheck
}

// HTTPServer is the JSON API used by the mobile client.
type HTTPServer struct {
	cfg     config.APIConfig
	authCfg config.AuthConfig
	deps    Deps
	mux     *http.ServeMux
	server  *http.Server
	keys    *keyring
	limiter *rateLimiter
	log     zerolog.Logger
	now     func() time.Time
}

func NewHTTPServer(cfg config.APIConfig, authCfg config.AuthConfig, deps Deps, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		cfg:     cfg,
		authCfg: authCfg,
		deps:    deps,
		mux:     http.NewServeMux(),
		keys:    newKeyring(cfg.Auth),
		limiter: newRateLimiter(cfg.RateLimit),
		log:     zerolog.Nop(),
		now:     time.Now,
	}
	if logger != nil {
		srv.log = logger.With().Str("component", "http").Logger()
	}
	srv.routes()

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return srv
}

func (s *HTTPServer) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /readyz", s.handleReady)

	s.mux.HandleFunc("GET /api/v1/categories", s.handleCategories)
	s.mux.HandleFunc("GET /api/v1/laws", s.handleListLaws)
	s.mux.HandleFunc("GET /api/v1/laws/{id}", s.handleGetLaw)
	s.mux.HandleFunc("GET /api/v1/laws/{id}/related", s.handleRelatedLaws)
	s.mux.HandleFunc("GET /api/v1/lawyers", s.handleListLawyers)
	s.mux.HandleFunc("GET /api/v1/lawyers/{id}", s.handleGetLawyer)

	s.mux.HandleFunc("POST /api/v1/bookings", s.handleCreateBooking)
	s.mux.HandleFunc("GET /api/v1/bookings", s.handleListBookings)
	s.mux.HandleFunc("GET /api/v1/bookings/export", s.handleExportBookings)
	s.mux.HandleFunc("GET /api/v1/bookings/{id}", s.handleGetBooking)
	s.mux.HandleFunc("POST /api/v1/bookings/{id}/status", s.handleUpdateStatus)
	s.mux.HandleFunc("POST /api/v1/bookings/{id}/payment", s.handleConfirmPayment)

	s.mux.HandleFunc("POST /api/v1/chat/messages", s.handleSendMessage)
	s.mux.HandleFunc("GET /api/v1/chat/sessions", s.handleSessions)
	s.mux.HandleFunc("GET /api/v1/chat/sessions/{id}/messages", s.handleHistory)

	s.mux.HandleFunc("GET /api/v1/onboarding", s.handleGetOnboarding)
	s.mux.HandleFunc("PUT /api/v1/onboarding", s.handleCompleteOnboarding)
	s.mux.HandleFunc("DELETE /api/v1/onboarding", s.handleResetOnboarding)
	s.mux.HandleFunc("POST /api/v1/demo", s.handleStartDemo)
	s.mux.HandleFunc("GET /api/v1/demo", s.handleGetDemo)
	s.mux.HandleFunc("DELETE /api/v1/demo", s.handleEndDemo)
}

// Handler returns the routed mux wrapped in the middleware chain.
func (s *HTTPServer) Handler() http.Handler {
	return s.logging(s.recoverer(s.apiKeyAuth(s.identity(s.mux))))
}

func (s *HTTPServer) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := strings.TrimSpace(r.Header.Get(headerRequestID))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(headerRequestID, requestID)

		_, pattern := s.mux.Handler(r)
		if pattern == "" {
			pattern = "unmatched"
		}

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(pattern)
		s.log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("route", pattern).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func (s *HTTPServer) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("handler panicked")
				writeError(w, http.StatusInternalServerError, "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// apiKeyAuth enforces API keys, permissions and the per-key rate limit on /api routes.
func (s *HTTPServer) apiKeyAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.cfg.Enabled || !strings.HasPrefix(r.URL.Path, "/api/") {
			next.ServeHTTP(w, r)
			return
		}

		if s.cfg.Auth.Enabled {
			apiKey := strings.TrimSpace(r.Header.Get(s.keys.headerKey))
			extra := strings.TrimSpace(r.Header.Get(s.keys.headerExtra))
			client, err := s.keys.check(apiKey, extra, requiredPermissionHTTP(r.URL.Path))
			if err != nil {
				code := http.StatusUnauthorized
				if errors.Is(err, errPermissionDenied) {
					code = http.StatusForbidden
				}
				writeError(w, code, err.Error())
				return
			}
			if isBookingAdmin(client) {
				r = r.WithContext(withBookingAdmin(r.Context()))
			}
		}

		if !s.limiter.Allow(s.clientKey(r)) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requiredPermissionHTTP(path string) string {
	switch {
	case strings.HasPrefix(path, "/api/v1/categories"),
		strings.HasPrefix(path, "/api/v1/laws"),
		strings.HasPrefix(path, "/api/v1/lawyers"):
		return PermReadCatalog
	case strings.HasPrefix(path, "/api/v1/bookings"):
		return PermWriteBookings
	case strings.HasPrefix(path, "/api/v1/chat"):
		return PermChat
	default:
		return ""
	}
}

func (s *HTTPServer) clientKey(r *http.Request) string {
	if apiKey := strings.TrimSpace(r.Header.Get(s.keys.headerKey)); apiKey != "" {
		return apiKey
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return clientKeyUnknown
}

// identity attaches the acting user: a verified bearer token wins, then a demo device.
func (s *HTTPServer) identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if authz := strings.TrimSpace(r.Header.Get("Authorization")); authz != "" {
			user, err := auth.ParseBearer(s.authCfg.JWTSecret, authz)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}
			ctx = auth.WithUser(ctx, user)
		} else if device := strings.TrimSpace(r.Header.Get(headerDeviceID)); device != "" && s.authCfg.DemoEnabled && s.deps.Profiles != nil {
			id, found, err := s.deps.Profiles.DemoUser(ctx, device)
			if err != nil {
				s.log.Warn().Err(err).Msg("demo lookup failed")
			} else if found {
				ctx = auth.WithUser(ctx, auth.NewDemoUser(id))
			}
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	failed := make(map[string]string)
	for name, check := range s.deps.ReadyChecks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "checks": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
