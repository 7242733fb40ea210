// Package auth implements account registration and opaque cookie sessions
// for the marketplace API.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/aquanexus/credits-cli/internal/model"
	"github.com/aquanexus/credits-cli/internal/store"
)

// CookieName carries the opaque session ID.
const CookieName = "aquanexus_session"

// DefaultTTL is the session lifetime when configuration does not override it.
const DefaultTTL = 6 * time.Hour

var (
	ErrInvalidCredentials = eris.New("auth: invalid credentials")
	ErrSessionExpired     = eris.New("auth: session expired")
	ErrWeakPassword       = eris.New("auth: password must be at least 8 characters")
	ErrBadEmail           = eris.New("auth: invalid email")
)

// Service manages users and sessions on top of the store.
type Service struct {
	store store.Store
	ttl   time.Duration
	now   func() time.Time
}

// NewService creates a Service. A non-positive ttl falls back to DefaultTTL.
func NewService(s store.Store, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{store: s, ttl: ttl, now: time.Now}
}

// Register creates a user account with a bcrypt-hashed password.
func (s *Service) Register(ctx context.Context, email, password, companyID string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") {
		return nil, ErrBadEmail
	}
	if len(password) < 8 {
		return nil, ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, eris.Wrap(err, "auth: hash password")
	}

	u, err := s.store.CreateUser(ctx, model.User{
		Email:        email,
		PasswordHash: string(hash),
		CompanyID:    companyID,
	})
	if err != nil {
		return nil, eris.Wrap(err, "auth: create user")
	}
	zap.L().Info("user registered", zap.String("user_id", u.ID))
	return u, nil
}

// Login verifies credentials and opens a session. Lookup failures and
// password mismatches are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*model.Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, eris.Wrap(err, "auth: lookup user")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	id, err := sessionID()
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	sess := model.Session{
		ID:        id,
		UserID:    u.ID,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, eris.Wrap(err, "auth: create session")
	}
	return &sess, nil
}

// Logout deletes the session; deleting an unknown session is not an error.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	return s.store.DeleteSession(ctx, sessionID)
}

// Authenticate resolves a session ID to its user. Expired sessions are
// deleted on sight.
func (s *Service) Authenticate(ctx context.Context, sessionID string) (*model.User, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		if eris.Is(err, store.ErrNotFound) {
			return nil, ErrSessionExpired
		}
		return nil, eris.Wrap(err, "auth: lookup session")
	}
	if sess.Expired(s.now().UTC()) {
		_ = s.store.DeleteSession(ctx, sessionID)
		return nil, ErrSessionExpired
	}
	return s.store.GetUser(ctx, sess.UserID)
}

// SetCookie attaches the session cookie to a response.
func (s *Service) SetCookie(w http.ResponseWriter, sess *model.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie.
func (s *Service) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func sessionID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", eris.Wrap(err, "auth: session id")
	}
	return hex.EncodeToString(buf), nil
}
