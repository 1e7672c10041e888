package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-otp-auth/internal/domain"
	"github.com/go-otp-auth/internal/pkg/id"
	"github.com/go-otp-auth/internal/pkg/validate"
)

type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	LinkGoogle(ctx context.Context, email, sub string) error
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(plain, hash string) bool
}

type GoogleVerifier interface {
	Verify(ctx context.Context, token string) (*domain.GoogleIdentity, error)
}

// Service authenticates existing users. It returns the identity only;
// issuing sessions is left to the caller.
type Service interface {
	Login(ctx context.Context, req domain.LoginRequest) (*domain.User, error)
	LoginWithGoogle(ctx context.Context, req domain.GoogleLoginRequest) (*domain.User, error)
}

type ServiceDeps struct {
	UserRepo       UserStore
	Hasher         PasswordHasher
	GoogleVerifier GoogleVerifier // nil disables Google sign-in
	Timeout        time.Duration
	Logger         *slog.Logger
}

type service struct {
	userRepo UserStore
	hasher   PasswordHasher
	google   GoogleVerifier
	timeout  time.Duration
	log      *slog.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		userRepo: deps.UserRepo,
		hasher:   deps.Hasher,
		google:   deps.GoogleVerifier,
		timeout:  deps.Timeout,
		log:      deps.Logger,
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

func (s *service) Login(ctx context.Context, req domain.LoginRequest) (*domain.User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	u, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log.Error("dependency failure", "op", "login lookup", "err", err)
			return nil, fmt.Errorf("login lookup: %w: %v", domain.ErrDependency, err)
		}
		// Same bcrypt work as a real mismatch.
		s.hasher.Compare(req.Password, s.dummy())
		return nil, s.reject(req.Email, "unknown email")
	}
	if u.PasswordHash == "" {
		s.hasher.Compare(req.Password, s.dummy())
		return nil, s.reject(req.Email, "no password set")
	}
	if !s.hasher.Compare(req.Password, u.PasswordHash) {
		return nil, s.reject(req.Email, "wrong password")
	}
	s.log.Info("login succeeded", "email", u.Email, "user_id", u.UserID)
	return u, nil
}

func (s *service) LoginWithGoogle(ctx context.Context, req domain.GoogleLoginRequest) (*domain.User, error) {
	if err := validate.Struct(&req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if s.google == nil {
		return nil, fmt.Errorf("google sign-in disabled: %w", domain.ErrInvalidCredentials)
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	ident, err := s.google.Verify(ctx, req.IDToken)
	if err != nil {
		s.log.Info("google login rejected", "err", err)
		return nil, fmt.Errorf("verify google token: %w", domain.ErrInvalidCredentials)
	}
	ident.Email = strings.ToLower(strings.TrimSpace(ident.Email))
	if ident.Email == "" || !ident.EmailVerified {
		return nil, s.reject(ident.Email, "google email not verified")
	}

	u, err := s.userRepo.GetByEmail(ctx, ident.Email)
	switch {
	case err == nil:
		return s.linkGoogle(ctx, u, ident)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("google lookup: %w: %v", domain.ErrDependency, err)
	}

	now := time.Now().UTC()
	u = &domain.User{
		UserID:       id.New(),
		Email:        ident.Email,
		Username:     ident.FirstName,
		AuthProvider: domain.ProviderGoogle,
		GoogleSub:    ident.Sub,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if u.Username == "" {
		u.Username = strings.SplitN(ident.Email, "@", 2)[0]
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		if !errors.Is(err, domain.ErrAlreadyRegistered) {
			return nil, fmt.Errorf("create google user: %w: %v", domain.ErrDependency, err)
		}
		// Lost a race with a concurrent first sign-in.
		existing, gerr := s.userRepo.GetByEmail(ctx, ident.Email)
		if gerr != nil {
			return nil, fmt.Errorf("google lookup: %w: %v", domain.ErrDependency, gerr)
		}
		return s.linkGoogle(ctx, existing, ident)
	}
	s.log.Info("google user created", "email", u.Email, "user_id", u.UserID)
	return u, nil
}

// linkGoogle attaches the Google subject to an account on its first Google
// sign-in. A different subject for the same email is refused.
func (s *service) linkGoogle(ctx context.Context, u *domain.User, ident *domain.GoogleIdentity) (*domain.User, error) {
	switch u.GoogleSub {
	case ident.Sub:
		return u, nil
	case "":
		if err := s.userRepo.LinkGoogle(ctx, u.Email, ident.Sub); err != nil {
			return nil, fmt.Errorf("link google: %w: %v", domain.ErrDependency, err)
		}
		u.GoogleSub = ident.Sub
		s.log.Info("google account linked", "email", u.Email, "user_id", u.UserID)
		return u, nil
	default:
		return nil, s.reject(u.Email, "google subject mismatch")
	}
}

func (s *service) reject(email, reason string) error {
	s.log.Info("login rejected", "email", email, "reason", reason)
	return domain.ErrInvalidCredentials
}

func (s *service) dummy() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("timing-equalizer")
	})
	return s.dummyHash
}

func (s *service) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
