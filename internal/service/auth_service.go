package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/config"
	"github.com/spec-kit/auth-service/internal/domain"
	"github.com/spec-kit/auth-service/internal/events"
	"github.com/spec-kit/auth-service/internal/observability"
	"github.com/spec-kit/auth-service/internal/persistence"
	"github.com/spec-kit/auth-service/internal/repository"
)

// AuthService coordinates signup, login, refresh and logout.
// The store reads and writes of every public operation run in a single
// transaction; password hashing and checking happen outside it.
type AuthService struct {
	users    repository.UserRepository
	tokens   repository.RefreshTokenRepository
	tx       persistence.Transactor
	authn    auth.Authenticator
	hasher   auth.PasswordHasher
	tokenMgr *auth.TokenManager
	events   events.Dispatcher
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// AuthDependencies encapsulates collaborators for the auth service. Optional
// fields fall back to defaults derived from config.
type AuthDependencies struct {
	UserRepo         repository.UserRepository
	RefreshTokenRepo repository.RefreshTokenRepository
	Transactor       persistence.Transactor
	Hasher           auth.PasswordHasher
	Authenticator    auth.Authenticator
	TokenManager     *auth.TokenManager
	Dispatcher       events.Dispatcher
	Metrics          *observability.Metrics
	Logger           *zap.Logger
	Clock            func() time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	s := &AuthService{
		users:    deps.UserRepo,
		tokens:   deps.RefreshTokenRepo,
		tx:       deps.Transactor,
		authn:    deps.Authenticator,
		hasher:   deps.Hasher,
		tokenMgr: deps.TokenManager,
		events:   deps.Dispatcher,
		metrics:  deps.Metrics,
		logger:   deps.Logger,
		now:      deps.Clock,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.tx == nil {
		s.tx = persistence.NoopTransactor{}
	}
	if s.hasher == nil {
		s.hasher = auth.NewBcryptHasher(cfg.Auth.BcryptCost)
	}
	if s.authn == nil {
		s.authn = auth.NewCredentialsAuthenticator(s.users, s.hasher)
	}
	if s.tokenMgr == nil {
		s.tokenMgr = auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.RefreshSecret,
			cfg.Auth.AccessTTL(), cfg.Auth.RefreshTTL(), auth.WithClock(s.now))
	}
	if s.events == nil {
		s.events = events.NewInMemoryDispatcher(s.logger)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Signup registers a USER-role account.
func (s *AuthService) Signup(ctx context.Context, username, password, email string) (*domain.User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := domain.NewUser(username, email, hash)
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		exists, err := s.users.ExistsByUsername(ctx, username)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrDuplicateUsername
		}

		exists, err = s.users.ExistsByEmail(ctx, email)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrDuplicateEmail
		}

		// The unique constraints still decide a concurrent race.
		return s.users.Create(ctx, user)
	})
	s.record("signup", err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("username", user.Username))
	s.events.Publish(ctx, events.NewEvent(events.EventUserRegistered, user, s.now()))
	return user, nil
}

// Login verifies credentials and issues a fresh token pair. The user's
// refresh token record is overwritten, ending any previous session.
// Credentials are checked before the transaction opens.
func (s *AuthService) Login(ctx context.Context, username, password string) (*domain.TokenPair, error) {
	user, err := s.authn.Authenticate(ctx, username, password)
	if err != nil {
		s.record("login", err)
		return nil, err
	}

	var pair *domain.TokenPair
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		access, _, err := s.tokenMgr.CreateAccessToken(user.Username, user.Role)
		if err != nil {
			return fmt.Errorf("create access token: %w", err)
		}
		refresh, _, err := s.tokenMgr.CreateRefreshToken(user.Username)
		if err != nil {
			return fmt.Errorf("create refresh token: %w", err)
		}

		if err := s.saveRefreshToken(ctx, user, refresh); err != nil {
			return err
		}
		pair = domain.NewTokenPair(access, refresh)
		return nil
	})
	s.record("login", err)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("user logged in", zap.String("user_id", user.ID))
	s.events.Publish(ctx, events.NewEvent(events.EventUserLoggedIn, user, s.now()))
	return pair, nil
}

// RefreshAccessToken exchanges a stored refresh token for a new access token.
// The refresh token itself is returned unchanged.
func (s *AuthService) RefreshAccessToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	if !s.tokenMgr.ValidateRefreshToken(refreshToken) {
		s.record("refresh", domain.ErrInvalidToken)
		return nil, domain.ErrInvalidToken
	}

	var (
		user    *domain.User
		access  string
		expired bool
	)
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		record, err := s.tokens.FindByToken(ctx, refreshToken)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrTokenNotFound
			}
			return err
		}

		user, err = s.users.GetByID(ctx, record.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrUserNotFound
			}
			return err
		}

		// Lazy expiry: the record is removed and the removal committed.
		if record.IsExpired(s.now()) {
			expired = true
			return s.tokens.Delete(ctx, record)
		}

		access, _, err = s.tokenMgr.CreateAccessToken(user.Username, user.Role)
		if err != nil {
			return fmt.Errorf("create access token: %w", err)
		}
		return nil
	})
	if err == nil && expired {
		err = domain.ErrTokenExpired
		s.events.Publish(ctx, events.NewEvent(events.EventRefreshTokenExpired, user, s.now()))
	}
	s.record("refresh", err)
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, events.NewEvent(events.EventAccessTokenRefreshed, user, s.now()))
	return domain.NewTokenPair(access, refreshToken), nil
}

// Logout removes the user's refresh token record. Logging out without an
// active record is not an error.
func (s *AuthService) Logout(ctx context.Context, username string) error {
	var user *domain.User
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.findUser(ctx, username)
		if err != nil {
			return err
		}
		return s.tokens.DeleteByUser(ctx, user.ID)
	})
	s.record("logout", err)
	if err != nil {
		return err
	}

	s.events.Publish(ctx, events.NewEvent(events.EventUserLoggedOut, user, s.now()))
	return nil
}

// CurrentUser loads the profile of an authenticated caller.
func (s *AuthService) CurrentUser(ctx context.Context, username string) (*domain.User, error) {
	var user *domain.User
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		user, err = s.findUser(ctx, username)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) findUser(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// saveRefreshToken updates the user's existing record in place or creates the
// first one; there is never more than one record per user.
func (s *AuthService) saveRefreshToken(ctx context.Context, user *domain.User, token string) error {
	// The record must never expire before the token's exp claim. Both use
	// RefreshTTL on the same clock and exp is truncated to whole seconds, so
	// an outdated token fails validation as ErrInvalidToken before the record
	// lapses; ErrTokenExpired is left for records written with a shorter TTL.
	expiresAt := s.now().Add(s.tokenMgr.RefreshTTL())

	record, err := s.tokens.FindByUser(ctx, user.ID)
	switch {
	case err == nil:
		record.Rotate(token, expiresAt)
	case errors.Is(err, domain.ErrNotFound):
		record = domain.NewRefreshToken(user.ID, token, expiresAt)
	default:
		return err
	}

	if err := s.tokens.Save(ctx, record); err != nil {
		return err
	}
	return nil
}

func (s *AuthService) record(operation string, err error) {
	s.metrics.RecordAuth(operation, outcome(err))
	if err != nil && !isClientError(err) {
		s.logger.Error("auth operation failed", zap.String("operation", operation), zap.Error(err))
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrDuplicateUsername):
		return "duplicate_username"
	case errors.Is(err, domain.ErrDuplicateEmail):
		return "duplicate_email"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrInvalidToken):
		return "invalid_token"
	case errors.Is(err, domain.ErrTokenNotFound):
		return "token_not_found"
	case errors.Is(err, domain.ErrTokenExpired):
		return "token_expired"
	case errors.Is(err, domain.ErrUserNotFound):
		return "user_not_found"
	default:
		return "error"
	}
}

func isClientError(err error) bool {
	return outcome(err) != "error"
}
