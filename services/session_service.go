package services

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/fasttech-foods/backoffice-api/clients"
	"github.com/fasttech-foods/backoffice-api/models"
	"github.com/google/uuid"
)

// IdentityAPI is the part of the identity service the session lifecycle uses
type IdentityAPI interface {
	Login(ctx context.Context, emailOrCPF, password string) (*clients.LoginResponse, error)
	Register(ctx context.Context, req models.RegisterRequest) (*models.User, error)
	CurrentUser(ctx context.Context) (*models.User, error)
	TokenInfo(ctx context.Context) (*clients.TokenInfo, error)
}

// SessionEventType distinguishes sign-in from sign-out
type SessionEventType string

const (
	SessionLogin  SessionEventType = "login"
	SessionLogout SessionEventType = "logout"
)

// SessionEvent is delivered to subscribers whenever a session signs in or out.
// A login rotates the session id; PreviousSessionID is the id it replaced.
type SessionEvent struct {
	Type              SessionEventType
	SessionID         string
	PreviousSessionID string
	User              *models.User
}

// SessionService owns the session lifecycle: create, sign in, sign out
type SessionService struct {
	store    SessionStore
	identity IdentityAPI
	clock    Clock
	logger   *slog.Logger

	mu        sync.RWMutex
	listeners []func(SessionEvent)
}

// NewSessionService creates a session service
func NewSessionService(store SessionStore, identity IdentityAPI, clock Clock, logger *slog.Logger) *SessionService {
	return &SessionService{store: store, identity: identity, clock: clock, logger: logger}
}

// Subscribe registers a listener for login and logout
func (s *SessionService) Subscribe(listener func(SessionEvent)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, listener)
}

func (s *SessionService) notify(event SessionEvent) {
	s.mu.RLock()
	listeners := make([]func(SessionEvent), len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(event)
	}
}

// Resolve loads the session by id, creating an anonymous one when the id is empty or unknown
func (s *SessionService) Resolve(ctx context.Context, id string) (*models.Session, error) {
	if id != "" {
		session, err := s.store.Get(ctx, id)
		if err == nil {
			return session, nil
		}
		if !errors.Is(err, models.ErrSessionNotFound) {
			return nil, err
		}
	}

	now := s.clock.Now()
	session := &models.Session{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Init resolves the session and re-validates a stored token against the identity
// service. Rejected tokens are cleared; an unreachable identity service leaves the
// session as it was.
func (s *SessionService) Init(ctx context.Context, id string) (*models.Session, error) {
	session, err := s.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.AccessToken == "" {
		return session, nil
	}

	user, err := s.identity.CurrentUser(clients.WithBearerToken(ctx, session.AccessToken))
	if err != nil {
		var apiErr *clients.APIError
		if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusUnauthorized || apiErr.StatusCode == http.StatusForbidden) {
			s.logger.Info("stored token rejected, clearing session", "session_id", session.ID)
			session.ClearCredentials()
			return session, s.save(ctx, session)
		}
		s.logger.Warn("could not re-validate session token", "session_id", session.ID, "error", err)
		return session, nil
	}

	session.User = user
	return session, s.save(ctx, session)
}

// Login exchanges credentials for tokens and stores them on the session under a
// new id. The id the caller held while anonymous stops resolving.
func (s *SessionService) Login(ctx context.Context, session *models.Session, emailOrCPF, password string) (*models.Session, error) {
	emailOrCPF = strings.TrimSpace(emailOrCPF)
	if emailOrCPF == "" || password == "" {
		return nil, &models.ValidationError{Code: "MISSING_CREDENTIALS", Message: "Email or CPF and password are required"}
	}

	resp, err := s.identity.Login(ctx, emailOrCPF, password)
	if err != nil {
		s.logger.Info("login failed", "session_id", session.ID, "error", err)
		return nil, err
	}

	user := resp.User
	previousID := session.ID
	if !session.Stateless {
		session.ID = uuid.NewString()
	}
	session.AccessToken = resp.AccessToken
	session.RefreshToken = resp.RefreshToken
	session.User = &user
	if err := s.save(ctx, session); err != nil {
		session.ID = previousID
		session.ClearCredentials()
		return nil, err
	}
	if previousID != session.ID {
		if err := s.store.Delete(ctx, previousID); err != nil {
			return nil, err
		}
	}

	s.logger.Info("user logged in", "session_id", session.ID, "user_id", user.ID, "role", user.PrimaryRole())
	s.notify(SessionEvent{Type: SessionLogin, SessionID: session.ID, PreviousSessionID: previousID, User: session.User})
	return session, nil
}

// Register creates the account and then signs in with it
func (s *SessionService) Register(ctx context.Context, session *models.Session, req models.RegisterRequest) (*models.Session, error) {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, &models.ValidationError{Code: "VALIDATION_ERROR", Message: "Name, email and password are required"}
	}
	if req.Role == "" {
		req.Role = models.RoleClient
	}

	if _, err := s.identity.Register(ctx, req); err != nil {
		return nil, err
	}
	return s.Login(ctx, session, req.Email, req.Password)
}

// Logout drops the session's credentials, keeping its id
func (s *SessionService) Logout(ctx context.Context, session *models.Session) (*models.Session, error) {
	user := session.User
	session.ClearCredentials()
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}

	s.notify(SessionEvent{Type: SessionLogout, SessionID: session.ID, User: user})
	return session, nil
}

// CurrentUser fetches the profile of the signed-in user and refreshes the session copy
func (s *SessionService) CurrentUser(ctx context.Context, session *models.Session) (*models.User, error) {
	if session.AccessToken == "" {
		return nil, models.ErrNotAuthenticated
	}

	user, err := s.identity.CurrentUser(clients.WithBearerToken(ctx, session.AccessToken))
	if err != nil {
		return nil, err
	}
	session.User = user
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}
	return user, nil
}

// TokenInfo returns the identity service's view of the session token
func (s *SessionService) TokenInfo(ctx context.Context, session *models.Session) (*clients.TokenInfo, error) {
	if session.AccessToken == "" {
		return nil, models.ErrNotAuthenticated
	}
	return s.identity.TokenInfo(clients.WithBearerToken(ctx, session.AccessToken))
}

func (s *SessionService) save(ctx context.Context, session *models.Session) error {
	if session.Stateless {
		return nil
	}
	session.UpdatedAt = s.clock.Now()
	return s.store.Save(ctx, session)
}
