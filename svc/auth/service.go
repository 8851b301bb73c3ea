package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dmitrymomot/gpportal/handler"
	"github.com/dmitrymomot/gpportal/pkg/binder"
	"github.com/dmitrymomot/gpportal/pkg/logger"
	"github.com/dmitrymomot/gpportal/pkg/session"
	"github.com/dmitrymomot/gpportal/pkg/tenant"
)

// TenantLookup loads a tenant by id. *tenant.Directory implements it.
type TenantLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*tenant.Tenant, error)
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithErrorHandler replaces the error handler of the HTTP endpoints.
func WithErrorHandler(h handler.ErrorHandler) ServiceOption {
	return func(s *Service) {
		if h != nil {
			s.errorHandler = h
		}
	}
}

// WithLoginMiddleware wraps POST /login, typically with a rate limiter.
func WithLoginMiddleware(mw ...func(http.Handler) http.Handler) ServiceOption {
	return func(s *Service) {
		s.loginMiddleware = append(s.loginMiddleware, mw...)
	}
}

// Service exposes login, logout and the current user over HTTP.
type Service struct {
	auth         *Authenticator
	storage      Storage
	sessions     *session.Manager
	tenants      TenantLookup
	logger       *slog.Logger
	errorHandler handler.ErrorHandler

	loginMiddleware []func(http.Handler) http.Handler
}

// NewService panics if any dependency is nil.
func NewService(auth *Authenticator, sessions *session.Manager, tenants TenantLookup, opts ...ServiceOption) *Service {
	if auth == nil || sessions == nil || tenants == nil {
		panic("auth: authenticator, session manager and tenant lookup are required")
	}
	s := &Service{
		auth:     auth,
		storage:  auth.storage,
		sessions: sessions,
		tenants:  tenants,
		logger:   logger.Noop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.errorHandler == nil {
		s.errorHandler = handler.NewErrorHandler(s.logger, ErrorMapper)
	}
	return s
}

// Login authenticates the credentials and issues a session.
func (s *Service) Login(ctx context.Context, w http.ResponseWriter, r *http.Request, email, password string) (*User, error) {
	user, err := s.auth.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if user.TenantID != nil {
		t, err := s.tenants.Get(ctx, *user.TenantID)
		if err != nil {
			if errors.Is(err, tenant.ErrTenantNotFound) {
				return nil, errors.Join(ErrTenantUnavailable, err)
			}
			return nil, err
		}
		if !t.Active {
			return nil, errors.Join(ErrTenantUnavailable, tenant.ErrInactiveTenant)
		}
	}

	if _, err := s.sessions.Login(ctx, w, r, user.Identity()); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user logged in",
		logger.UserID(user.ID),
		logger.Role(user.Role.String()),
		logger.Component("auth"),
	)
	return user, nil
}

// Handle returns the /auth router.
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()

	r.With(s.loginMiddleware...).Post("/login", handler.Wrap(s.login,
		handler.WithBinders[LoginRequest](binder.JSON()),
		handler.WithErrorHandler[LoginRequest](s.errorHandler),
	))
	r.Post("/logout", handler.Wrap(s.logout,
		handler.WithErrorHandler[struct{}](s.errorHandler),
	))
	r.Get("/me", handler.Wrap(s.me,
		handler.WithErrorHandler[struct{}](s.errorHandler),
	))

	return r
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// MeResponse describes the signed-in user and their Gram Panchayat.
type MeResponse struct {
	User   *User          `json:"user"`
	Tenant *tenant.Tenant `json:"tenant,omitempty"`
}

func (s *Service) login(ctx handler.Context, req LoginRequest) handler.Response {
	user, err := s.Login(ctx, ctx.ResponseWriter(), ctx.Request(), req.Email, req.Password)
	if err != nil {
		return handler.Error(err)
	}
	return handler.JSON(MeResponse{User: user})
}

func (s *Service) logout(ctx handler.Context, _ struct{}) handler.Response {
	if err := s.sessions.Logout(ctx, ctx.ResponseWriter(), ctx.Request()); err != nil {
		return handler.Error(err)
	}
	return handler.Empty()
}

func (s *Service) me(ctx handler.Context, _ struct{}) handler.Response {
	sess, ok := session.FromContext(ctx)
	if !ok {
		return handler.Error(handler.ErrUnauthorized)
	}

	user, err := s.storage.GetUserByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return handler.Error(handler.ErrUnauthorized)
		}
		return handler.Error(err)
	}

	resp := MeResponse{User: user}
	if user.TenantID != nil {
		t, err := s.tenants.Get(ctx, *user.TenantID)
		if err != nil {
			return handler.Error(err)
		}
		resp.Tenant = t
	}
	return handler.JSON(resp)
}

// ErrorMapper maps auth errors to HTTP errors.
func ErrorMapper(err error) (handler.HTTPError, bool) {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return handler.ErrUnauthorized.WithMessage("Invalid email or password"), true
	case errors.Is(err, ErrTenantUnavailable):
		return handler.HTTPError{Code: http.StatusForbidden, Key: "tenant_unavailable", Message: "Gram Panchayat is not available"}, true
	case errors.Is(err, session.ErrInvalidSession):
		return handler.ErrUnauthorized, true
	}
	return handler.HTTPError{}, false
}
