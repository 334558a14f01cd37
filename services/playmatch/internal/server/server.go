package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"playmatch/internal/ratelimit"
	"playmatch/internal/util"
	"playmatch/pkg/domain"
	"playmatch/services/playmatch/internal/app"
)

const (
	sessionCookieName   = "session_token"
	maxJSONBodyBytes    = 1 << 20
	defaultCallbackRate = 20
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App                        *app.App
	CORSOrigins                []string
	CookieSecure               bool
	TrustedProxyCIDRs          []string
	RedisAddr                  string
	RedisPassword              string
	CallbackRateLimitPerMinute int
}

// Server exposes the PlayMatch HTTP API.
type Server struct {
	app             *app.App
	router          *mux.Router
	validate        *validator.Validate
	corsOrigins     []string
	cookieSecure    bool
	trustedProxies  *util.TrustedProxies
	callbackLimiter *ratelimit.FixedWindowLimiter
}

// New constructs the server with routes configured. The auth callback is
// rate limited per client IP only when a Redis address is configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app required")
	}
	trusted, err := util.NewTrustedProxies(cfg.TrustedProxyCIDRs)
	if err != nil {
		return nil, fmt.Errorf("parse trusted proxies: %w", err)
	}
	s := &Server{
		app:            cfg.App,
		router:         mux.NewRouter(),
		validate:       newValidator(),
		corsOrigins:    cfg.CORSOrigins,
		cookieSecure:   cfg.CookieSecure,
		trustedProxies: trusted,
	}
	if strings.TrimSpace(cfg.RedisAddr) != "" {
		limit := cfg.CallbackRateLimitPerMinute
		if limit <= 0 {
			limit = defaultCallbackRate
		}
		limiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "playmatch:ratelimit:callback", limit, time.Minute)
		if err != nil {
			return nil, fmt.Errorf("init callback limiter: %w", err)
		}
		s.callbackLimiter = limiter
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(util.WithSecurityHeaders(util.WithCORS(s.corsOrigins, s.router))))
}

// Close releases the rate limiter connection.
func (s *Server) Close() error {
	if s.callbackLimiter == nil {
		return nil
	}
	return s.callbackLimiter.Close()
}

func (s *Server) routes() {
	notFound := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	methodNotAllowed := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	s.router.NotFoundHandler = notFound
	s.router.MethodNotAllowedHandler = methodNotAllowed

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.NotFoundHandler = notFound
	api.MethodNotAllowedHandler = methodNotAllowed

	// auth
	api.HandleFunc("/auth/google", s.handleAuthURL).Methods(http.MethodGet)
	api.HandleFunc("/auth/callback", s.handleAuthCallback).Methods(http.MethodPost)
	api.Handle("/auth/me", s.authenticated(s.handleMe)).Methods(http.MethodGet)
	api.HandleFunc("/auth/logout", s.handleLogout).Methods(http.MethodPost)

	// profile
	api.Handle("/profile", s.authenticated(s.handleMe)).Methods(http.MethodGet)
	api.Handle("/profile", s.authenticated(s.handleUpdateProfile)).Methods(http.MethodPut)
	api.Handle("/profile/avatar", s.authenticated(s.handleUploadAvatar)).Methods(http.MethodPut)
	api.Handle("/users/{userID}/avatar", s.authenticated(s.handleAvatar)).Methods(http.MethodGet)

	// matchmaking
	api.Handle("/matches", s.authenticated(s.handleListMatches)).Methods(http.MethodGet)
	api.Handle("/matches/action", s.authenticated(s.handleMatchAction)).Methods(http.MethodPost)
	api.Handle("/matches/create", s.authenticated(s.handleCreateMatch)).Methods(http.MethodPost)

	// chats
	api.Handle("/chats/{matchID}", s.authenticated(s.handleGetChat)).Methods(http.MethodGet)
	api.Handle("/chats/{matchID}/message", s.authenticated(s.handlePostMessage)).Methods(http.MethodPost)

	// ratings
	api.Handle("/ratings", s.authenticated(s.handleSubmitRating)).Methods(http.MethodPost)
	api.HandleFunc("/ratings/{userID}", s.handleRatingSummary).Methods(http.MethodGet)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type authHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.app.Resolve(r.Context(), sessionCookie(r), r.Header.Get("Authorization"))
		if err != nil {
			s.audit(r, "playmatch.authorize", "fail", "reason", err.Error())
			s.writeAppError(w, r, err)
			return
		}
		next(w, r, user)
	})
}

func sessionCookie(r *http.Request) string {
	c, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func (s *Server) setSessionCookie(w http.ResponseWriter, sess domain.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   int(s.app.SessionTTL().Seconds()),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteNoneMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteNoneMode,
	})
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads a bounded JSON body into dst and validates it.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return "invalid request"
	}
	fe := ve[0]
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min", "max", "oneof":
		return fmt.Sprintf("%s failed %s=%s", fe.Field(), fe.Tag(), fe.Param())
	default:
		return fe.Field() + " is invalid"
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeAppError maps application errors onto HTTP statuses. Unknown errors
// are logged and reported as 500 without detail.
func (s *Server) writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		util.LoggerFromContext(r.Context()).Error("request failed", "path", r.URL.Path, "err", err)
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, app.ErrUnauthenticated),
		errors.Is(err, app.ErrInvalidSession),
		errors.Is(err, app.ErrSessionExpired):
		return http.StatusUnauthorized
	case errors.Is(err, app.ErrUserNotFound),
		errors.Is(err, app.ErrMatchNotFound),
		errors.Is(err, app.ErrChatNotFound),
		errors.Is(err, app.ErrAvatarNotFound):
		return http.StatusNotFound
	case errors.Is(err, app.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, app.ErrInvalidAction),
		errors.Is(err, app.ErrInvalidRating),
		errors.Is(err, app.ErrIdentityExchange),
		errors.Is(err, app.ErrInvalidAvatar):
		return http.StatusBadRequest
	case errors.Is(err, app.ErrMatchDecided):
		return http.StatusConflict
	case errors.Is(err, app.ErrAvatarsDisabled):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", util.ClientIP(r, s.trustedProxies),
	}
	logAttrs = append(logAttrs, attrs...)
	logger := util.LoggerFromContext(r.Context())
	if outcome == "success" {
		logger.Info("security_event", logAttrs...)
		return
	}
	logger.Warn("security_event", logAttrs...)
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, limiter *ratelimit.FixedWindowLimiter, msg string) bool {
	if limiter == nil {
		return true
	}
	key := r.URL.Path + "|" + util.ClientIP(r, s.trustedProxies)
	if limiter.Allow(r.Context(), key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}
