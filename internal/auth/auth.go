// Package auth manages accounts and idle-expiring login sessions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/dyike/audney/internal/metrics"
	"github.com/dyike/audney/internal/models"
	"github.com/dyike/audney/internal/storage/sqlite"
)

// ExpiryWarning is how close to the idle timeout a session is flagged as expiring.
const ExpiryWarning = 3 * time.Minute

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNoSession          = errors.New("not logged in")
	ErrSessionExpired     = errors.New("session expired")
	ErrUsernameTaken      = sqlite.ErrUsernameTaken
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9@.+_-]{3,150}$`)

type Store interface {
	CreateAccount(ctx context.Context, username, passwordHash string, profile models.UserProfile) (*models.Account, error)
	GetAccountByUsername(ctx context.Context, username string) (*models.Account, error)
	CreateSession(ctx context.Context, session models.Session) error
	GetSession(ctx context.Context, token string) (*models.Session, error)
	TouchSession(ctx context.Context, token string, at time.Time) error
	DeleteSession(ctx context.Context, token string) error
	DeleteIdleSessions(ctx context.Context, cutoff time.Time) (int64, error)
	Now() time.Time
}

// RegisterRequest is the sign-up form.
type RegisterRequest struct {
	Username      string               `json:"username"`
	Password      string               `json:"password"`
	DateOfBirth   string               `json:"date_of_birth"`
	FinancialGoal models.FinancialGoal `json:"financial_goal"`
	City          string               `json:"city"`
	State         string               `json:"state"`
}

// ValidationError reports a rejected registration field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// SessionState is the result of authenticating a request.
type SessionState struct {
	Session   models.Session
	Remaining time.Duration
}

// Expiring reports whether the session was close to its idle timeout when
// the request arrived.
func (s SessionState) Expiring() bool {
	return s.Remaining <= ExpiryWarning
}

type Service struct {
	store  Store
	idle   time.Duration
	cost   int
	logger zerolog.Logger
}

type Option func(*Service)

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) { s.cost = cost }
}

func NewService(store Store, idle time.Duration, logger zerolog.Logger, opts ...Option) *Service {
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	s := &Service{
		store:  store,
		idle:   idle,
		cost:   bcrypt.DefaultCost,
		logger: logger.With().Str("component", "auth").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates the account together with its profile.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*models.Account, error) {
	username := strings.TrimSpace(req.Username)
	if !usernamePattern.MatchString(username) {
		return nil, &ValidationError{Field: "username", Reason: "must be 3-150 letters, digits or @.+-_"}
	}
	if len(req.Password) < 8 {
		return nil, &ValidationError{Field: "password", Reason: "must be at least 8 characters"}
	}
	if len(req.Password) > 72 {
		return nil, &ValidationError{Field: "password", Reason: "must be at most 72 bytes"}
	}

	profile := models.UserProfile{
		City:          strings.TrimSpace(req.City),
		State:         strings.TrimSpace(req.State),
		FinancialGoal: req.FinancialGoal,
	}
	if req.FinancialGoal != "" && !req.FinancialGoal.Valid() {
		return nil, &ValidationError{Field: "financial_goal", Reason: fmt.Sprintf("unknown value %q", req.FinancialGoal)}
	}
	if dob := strings.TrimSpace(req.DateOfBirth); dob != "" {
		t, err := time.Parse("2006-01-02", dob)
		if err != nil {
			return nil, &ValidationError{Field: "date_of_birth", Reason: "must be YYYY-MM-DD"}
		}
		if t.After(s.store.Now()) {
			return nil, &ValidationError{Field: "date_of_birth", Reason: "must be in the past"}
		}
		profile.DateOfBirth = &t
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	acc, err := s.store.CreateAccount(ctx, username, string(hash), profile)
	if err != nil {
		return nil, err
	}
	metrics.AccountsRegistered.Inc()
	s.logger.Info().Int64("account_id", acc.ID).Msg("account registered")
	return acc, nil
}

// Login checks the password and opens a new session.
func (s *Service) Login(ctx context.Context, username, password string) (*models.Session, error) {
	acc, err := s.store.GetAccountByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.store.Now()
	session := models.Session{
		Token:      uuid.NewString(),
		AccountID:  acc.ID,
		CreatedAt:  now,
		LastSeenAt: now,
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("account_id", acc.ID).Msg("session opened")
	return &session, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.store.DeleteSession(ctx, token)
}

// Authenticate resolves a session token and records the activity. The
// remaining time is measured before the activity is recorded.
func (s *Service) Authenticate(ctx context.Context, token string) (*SessionState, error) {
	if token == "" {
		return nil, ErrNoSession
	}
	sess, err := s.store.GetSession(ctx, token)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrNoSession
	}

	now := s.store.Now()
	remaining := s.idle - now.Sub(sess.LastSeenAt)
	if remaining <= 0 {
		if err := s.store.DeleteSession(ctx, token); err != nil {
			s.logger.Warn().Err(err).Msg("delete expired session failed")
		}
		return nil, ErrSessionExpired
	}
	if err := s.store.TouchSession(ctx, token, now); err != nil {
		return nil, err
	}
	sess.LastSeenAt = now
	return &SessionState{Session: *sess, Remaining: remaining}, nil
}

// PurgeIdle deletes every session idle for longer than the timeout.
func (s *Service) PurgeIdle(ctx context.Context) (int64, error) {
	n, err := s.store.DeleteIdleSessions(ctx, s.store.Now().Add(-s.idle))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Debug().Int64("sessions", n).Msg("purged idle sessions")
	}
	return n, nil
}

func (s *Service) IdleTimeout() time.Duration {
	return s.idle
}
