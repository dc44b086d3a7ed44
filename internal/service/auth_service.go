package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"skillquest/api/internal/config"
	"skillquest/api/internal/ids"
	"skillquest/api/internal/models"
	"skillquest/api/internal/ratelimit"
	"skillquest/api/internal/repository"
	"skillquest/api/internal/security"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateUser      = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrTooManyAttempts    = errors.New("too many attempts")
)

// UserStore is the slice of the user repository the service needs.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	UpdatePassword(ctx context.Context, id string, passwordHash []byte) error
}

// AuditStore records auth events; failures are logged, never surfaced.
type AuditStore interface {
	Record(ctx context.Context, rec models.AuditRecord) error
}

type AuthService struct {
	users   UserStore
	audit   AuditStore
	limiter *ratelimit.LoginLimiter
	cfg     *config.AppConfig
	log     zerolog.Logger
}

func NewAuthService(
	users UserStore,
	audit AuditStore,
	limiter *ratelimit.LoginLimiter,
	cfg *config.AppConfig,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:   users,
		audit:   audit,
		limiter: limiter,
		cfg:     cfg,
		log:     log,
	}
}

// ClientMeta carries request-level context into the audit trail.
type ClientMeta struct {
	IPAddress string
	UserAgent string
}

type SignupInput struct {
	Name     string
	Email    string
	Password string
	Meta     ClientMeta
}

type AuthResult struct {
	User  models.User
	Token string
}

// Signup creates the user record and issues a session token. The
// duplicate check is not a prior lookup: the insert itself is atomic
// against the unique email index, so two concurrent signups for the
// same address cannot both succeed.
func (s *AuthService) Signup(ctx context.Context, input SignupInput) (AuthResult, error) {
	email := NormalizeEmail(input.Email)

	passwordHash, err := security.HashPassword(input.Password, s.cfg.Security.BcryptCost)
	if err != nil {
		return AuthResult{}, err
	}

	user := models.User{
		ID:           ids.New(),
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		PasswordHash: passwordHash,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			s.record(ctx, "", email, models.AuditEventSignup, false, input.Meta)
			return AuthResult{}, ErrDuplicateUser
		}
		return AuthResult{}, err
	}

	token, err := security.GenerateSessionToken(s.cfg.Security.JWTSecret, user.ID, s.cfg.Security.TokenTTL)
	if err != nil {
		return AuthResult{}, err
	}

	s.record(ctx, user.ID, email, models.AuditEventSignup, true, input.Meta)
	s.log.Info().Str("user_id", user.ID).Msg("user signed up")

	return AuthResult{User: user, Token: token}, nil
}

type LoginInput struct {
	Email    string
	Password string
	Meta     ClientMeta
}

// Login validates credentials and issues a fresh token. Unknown email
// and wrong password are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	email := NormalizeEmail(input.Email)

	if !s.limiter.Allow(ctx, email, input.Meta.IPAddress) {
		return AuthResult{}, ErrTooManyAttempts
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.loginFailed(ctx, "", email, input.Meta)
			return AuthResult{}, ErrInvalidCredentials
		}
		return AuthResult{}, err
	}

	ok, err := s.verify(input.Password, user.PasswordHash)
	if err != nil {
		return AuthResult{}, err
	}
	if !ok {
		s.loginFailed(ctx, user.ID, email, input.Meta)
		return AuthResult{}, ErrInvalidCredentials
	}

	token, err := security.GenerateSessionToken(s.cfg.Security.JWTSecret, user.ID, s.cfg.Security.TokenTTL)
	if err != nil {
		return AuthResult{}, err
	}

	if err := s.limiter.Reset(ctx, email, input.Meta.IPAddress); err != nil {
		s.log.Warn().Err(err).Msg("reset login limiter failed")
	}
	s.record(ctx, user.ID, email, models.AuditEventLogin, true, input.Meta)

	return AuthResult{User: user, Token: token}, nil
}

type UpdatePasswordInput struct {
	UserID          string
	CurrentPassword string
	NewPassword     string
	Meta            ClientMeta
}

// UpdatePassword re-hashes and persists the new password after the
// current one checks out. Previously issued tokens stay valid for
// their remaining lifetime; tokens are stateless and never revoked.
func (s *AuthService) UpdatePassword(ctx context.Context, input UpdatePasswordInput) error {
	user, err := s.users.GetByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	ok, err := s.verify(input.CurrentPassword, user.PasswordHash)
	if err != nil {
		return err
	}
	if !ok {
		s.record(ctx, user.ID, user.Email, models.AuditEventPasswordChange, false, input.Meta)
		return ErrInvalidCredentials
	}

	newHash, err := security.HashPassword(input.NewPassword, s.cfg.Security.BcryptCost)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePassword(ctx, user.ID, newHash); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	s.record(ctx, user.ID, user.Email, models.AuditEventPasswordChange, true, input.Meta)
	s.log.Info().Str("user_id", user.ID).Msg("password updated")
	return nil
}

// GetUser resolves a verified token subject to its user record.
func (s *AuthService) GetUser(ctx context.Context, id string) (models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}

func (s *AuthService) verify(password string, hash []byte) (bool, error) {
	ok, err := security.VerifyPassword(password, hash)
	if err != nil {
		s.log.Error().Err(err).Msg("password verification failed")
		return false, err
	}
	return ok, nil
}

func (s *AuthService) loginFailed(ctx context.Context, userID, email string, meta ClientMeta) {
	if err := s.limiter.RecordFailure(ctx, email, meta.IPAddress); err != nil {
		s.log.Warn().Err(err).Msg("record login failure failed")
	}
	s.record(ctx, userID, email, models.AuditEventLogin, false, meta)
}

func (s *AuthService) record(ctx context.Context, userID, email string, event models.AuditEvent, success bool, meta ClientMeta) {
	if s.audit == nil {
		return
	}
	rec := models.AuditRecord{
		ID:        ids.New(),
		UserID:    userID,
		Email:     email,
		Event:     event,
		Success:   success,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
	}
	if err := s.audit.Record(ctx, rec); err != nil {
		s.log.Warn().Err(err).Str("event", string(event)).Msg("audit record failed")
	}
}

// NormalizeEmail lowercases and trims the login key so lookups and the
// unique index agree on a canonical form.
func NormalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}
