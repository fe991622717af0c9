package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"curamed.org/internal/session"
)

// Service implements the login, logout and change-password flows.
type Service struct {
	store    Store
	sessions session.Store
	codec    *TokenCodec
	engine   *Engine
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewService wires the credential verifier, session store, token codec and
// RBAC engine behind the external auth operations.
func NewService(store Store, sessions session.Store, codec *TokenCodec, engine *Engine, log logrus.FieldLogger) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if sessions == nil {
		return nil, errors.New("auth: session store is required")
	}
	if codec == nil {
		return nil, errors.New("auth: token codec is required")
	}
	if engine == nil {
		return nil, errors.New("auth: rbac engine is required")
	}
	if log == nil {
		return nil, errors.New("auth: logger is required")
	}
	return &Service{
		store:    store,
		sessions: sessions,
		codec:    codec,
		engine:   engine,
		log:      log,
		now:      time.Now,
	}, nil
}

// LoginResult carries everything the transport layer needs to establish the
// caller's credentials.
type LoginResult struct {
	SessionID      string
	Token          string
	TokenExpiresAt time.Time
	User           UserSummary
}

// Login verifies credentials, establishes a session and issues a token.
// Every failure branch collapses into ErrInvalidCredentials so the response
// never distinguishes an unknown user from a wrong password.
func (s *Service) Login(ctx context.Context, username, password string) (LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return LoginResult{}, ErrInvalidCredentials
	}
	user, err := s.store.Users(ctx).FindByUsername(ctx, username)
	if err != nil {
		return LoginResult{}, ErrInvalidCredentials
	}
	if user.Status != UserStatusActive {
		return LoginResult{}, ErrInvalidCredentials
	}
	if !VerifyPassword(user.PasswordHash, password) {
		return LoginResult{}, ErrInvalidCredentials
	}

	s.normalizeRole(ctx, user)
	principal := PrincipalFromUser(*user)

	sessionID, err := s.sessions.Create(ctx, session.Snapshot{
		UserID:                principal.ID,
		Username:              principal.Username,
		Role:                  principal.Role,
		RoleID:                principal.RoleID,
		OrganizationID:        principal.OrganizationID,
		CurrentOrganizationID: principal.CurrentOrganizationID,
	})
	if err != nil {
		return LoginResult{}, err
	}

	token, expiresAt, err := s.codec.Issue(principal)
	if err != nil {
		return LoginResult{}, err
	}

	return LoginResult{
		SessionID:      sessionID,
		Token:          token,
		TokenExpiresAt: expiresAt,
		User:           principal.Summary(),
	}, nil
}

// normalizeRole fills a missing RoleID from the legacy role name or the
// configured default role. A user left with no resolvable role is a
// provisioning anomaly: it is surfaced here and the empty RoleID later keeps
// the audit gate from attributing actions to the account.
func (s *Service) normalizeRole(ctx context.Context, user *User) {
	if user.RoleID != "" {
		return
	}
	role, err := s.engine.ResolveRoleReference(ctx, user)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"user_id":  user.ID,
			"username": user.Username,
		}).Warn("user has no resolvable role assignment")
		return
	}
	user.RoleID = role.ID
	if user.LegacyRole == "" {
		user.LegacyRole = role.Name
	}
}

// Logout destroys the caller's session. It is idempotent: a missing session
// is not an error.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return nil
	}
	err := s.sessions.Destroy(ctx, sessionID)
	if errors.Is(err, session.ErrNotFound) {
		return nil
	}
	return err
}

// ChangePassword re-verifies the current password before rehashing the new one.
func (s *Service) ChangePassword(ctx context.Context, userID, current, next string) error {
	next = strings.TrimSpace(next)
	if len(next) < 8 {
		return ErrInvalidInput
	}
	user, err := s.store.Users(ctx).Find(ctx, userID)
	if err != nil {
		return err
	}
	if !VerifyPassword(user.PasswordHash, current) {
		return ErrInvalidCredentials
	}
	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	return s.store.Users(ctx).UpdatePassword(ctx, userID, hash)
}

// SwitchOrganization lets a platform admin operate "as" a tenant without
// losing the home organization on the session snapshot.
func (s *Service) SwitchOrganization(ctx context.Context, sessionID, orgID string) error {
	orgID = strings.TrimSpace(orgID)
	if orgID == "" {
		return ErrInvalidInput
	}
	if _, err := s.store.Organizations(ctx).Find(ctx, orgID); err != nil {
		return err
	}
	return s.sessions.SwitchOrganization(ctx, sessionID, orgID)
}
