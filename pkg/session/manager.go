package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/gpportal/pkg/cookie"
	"github.com/dmitrymomot/gpportal/pkg/logger"
)

// Manager issues, loads and revokes sessions.
type Manager struct {
	store           Store
	transport       Transport
	config          Config
	fingerprintFunc FingerprintFunc
	cookieManager   *cookie.Manager
	cookieOptions   []cookie.Option
	refreshHooks    []RefreshHook
	logger          *slog.Logger
	now             func() time.Time
	activityChan    chan activityUpdate
	done            chan struct{}
	stopped         chan struct{}
}

type activityUpdate struct {
	token string
	time  time.Time
}

// New creates a session manager. Without WithTransport a cookie manager
// must be provided.
func New(opts ...Option) *Manager {
	m := &Manager{
		config:       DefaultConfig(),
		logger:       logger.Noop(),
		now:          time.Now,
		activityChan: make(chan activityUpdate, 1000),
		done:         make(chan struct{}),
		stopped:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.store == nil {
		m.store = NewMemoryStore(m.config.CleanupInterval)
	}

	if m.transport == nil {
		if m.cookieManager == nil {
			panic("session: cookie manager is required when using default cookie transport")
		}
		m.transport = NewCookieTransport(m.cookieManager, m.config.CookieName, m.config.SecureCookies, m.cookieOptions...)
	}

	go m.activityWorker()

	return m
}

// Login issues a fresh session for id. Any session already carried by the
// request is revoked so tokens are never reused across logins.
func (m *Manager) Login(ctx context.Context, w http.ResponseWriter, r *http.Request, id Identity) (*Session, error) {
	if id.UserID == uuid.Nil || !id.Role.Valid() || id.Role.RequiresTenant() != (id.TenantID != nil) {
		return nil, ErrInvalidSession
	}

	if token, err := m.transport.GetToken(r); err == nil {
		if err := m.store.Delete(ctx, token); err != nil && !errors.Is(err, ErrSessionNotFound) {
			m.logger.WarnContext(ctx, "failed to revoke previous session", logger.Error(err))
		}
	}

	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	now := m.now()
	var fingerprint string
	if m.fingerprintFunc != nil {
		fingerprint = m.fingerprintFunc(r)
	}

	session := newSession(token, id, fingerprint, now, m.config.expiry(now, now))
	if err := m.store.Create(ctx, session); err != nil {
		return nil, errors.Join(ErrStore, err)
	}

	if err := m.transport.SetToken(w, session.Token, m.config.IdleTimeout); err != nil {
		_ = m.store.Delete(ctx, session.Token)
		return nil, err
	}

	m.logger.InfoContext(ctx, "session created",
		logger.UserID(session.UserID),
		logger.Role(session.Role.String()),
	)

	return session, nil
}

// Get loads and validates the session carried by the request.
func (m *Manager) Get(ctx context.Context, r *http.Request) (*Session, error) {
	token, err := m.transport.GetToken(r)
	if err != nil {
		return nil, err
	}

	session, err := m.store.Get(ctx, token)
	if err != nil {
		return nil, err
	}

	if err := m.validate(session, r); err != nil {
		return nil, err
	}

	return session, nil
}

// Logout revokes the request's session and clears the token.
func (m *Manager) Logout(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if token, err := m.transport.GetToken(r); err == nil && token != "" {
		if err := m.store.Delete(ctx, token); err != nil && !errors.Is(err, ErrSessionNotFound) {
			return errors.Join(ErrStore, err)
		}
	}
	return m.transport.ClearToken(w)
}

// LogoutAll revokes every session of the user.
func (m *Manager) LogoutAll(ctx context.Context, userID uuid.UUID) error {
	if err := m.store.DeleteByUserID(ctx, userID); err != nil {
		return errors.Join(ErrStore, err)
	}
	return nil
}

// Refresh extends the session's expiry and runs the refresh hooks.
func (m *Manager) Refresh(ctx context.Context, w http.ResponseWriter, session *Session) error {
	if session == nil {
		return ErrInvalidSession
	}

	now := m.now()
	session.ExpiresAt = m.config.expiry(session.CreatedAt, now)
	session.LastActivityAt = now

	if err := m.store.Update(ctx, session); err != nil {
		return errors.Join(ErrStore, err)
	}

	if err := m.transport.SetToken(w, session.Token, session.ExpiresAt.Sub(now)); err != nil {
		return err
	}

	for _, hook := range m.refreshHooks {
		hook(ctx, session)
	}

	return nil
}

func (m *Manager) validate(session *Session, r *http.Request) error {
	if session.IsExpired(m.now()) {
		return ErrSessionExpired
	}
	if !session.Valid() {
		return ErrInvalidSession
	}
	if m.fingerprintFunc != nil && !session.ValidateFingerprint(m.fingerprintFunc(r)) {
		return ErrInvalidSession
	}
	return nil
}

// shouldRefresh reports whether less than half the idle timeout remains and
// the maximum lifetime still leaves room to extend.
func (m *Manager) shouldRefresh(session *Session) bool {
	now := m.now()
	if session.ExpiresAt.Sub(now) >= m.config.IdleTimeout/2 {
		return false
	}
	return m.config.expiry(session.CreatedAt, now).After(session.ExpiresAt)
}

func (m *Manager) shouldUpdateActivity(session *Session) bool {
	return m.now().Sub(session.LastActivityAt) >= m.config.ActivityUpdateThreshold
}

// queueActivityUpdate never blocks; updates are dropped when the queue is full.
func (m *Manager) queueActivityUpdate(token string) {
	select {
	case <-m.done:
		return
	default:
	}

	select {
	case m.activityChan <- activityUpdate{token: token, time: m.now()}:
	default:
	}
}

func (m *Manager) activityWorker() {
	defer close(m.stopped)
	for {
		select {
		case update := <-m.activityChan:
			m.applyActivity(update)
		case <-m.done:
			for {
				select {
				case update := <-m.activityChan:
					m.applyActivity(update)
				default:
					return
				}
			}
		}
	}
}

func (m *Manager) applyActivity(update activityUpdate) {
	if err := m.store.UpdateActivity(context.Background(), update.token, update.time); err != nil && !errors.Is(err, ErrSessionNotFound) {
		m.logger.Warn("failed to update session activity", logger.Error(err))
	}
}

// Close stops the activity worker after draining queued updates.
func (m *Manager) Close() error {
	select {
	case <-m.done:
	default:
		close(m.done)
	}
	<-m.stopped
	return nil
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", errors.Join(ErrTokenGeneration, err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
