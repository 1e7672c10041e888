package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-otp-auth/internal/domain"
	"github.com/go-otp-auth/internal/pkg/id"
	"github.com/go-otp-auth/internal/pkg/validate"
)

// UserStore is the subset of the credential store the flows mutate.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Create(ctx context.Context, u *domain.User) error
	UpdatePassword(ctx context.Context, email, passwordHash string) error
}

// TokenProvider encodes the transient flow state handed to the client.
type TokenProvider interface {
	Sign(state *domain.FlowState) (string, error)
	Verify(token string, purpose domain.Purpose) (*domain.FlowState, error)
}

// Notifier delivers an HTML message to a single address.
type Notifier interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
}

var errSuperseded = errors.New("code superseded by a newer request")

// Ticket is returned by a request step; the client presents Token on the
// following steps.
type Ticket struct {
	Token     string
	ExpiresAt time.Time
}

type Service interface {
	RequestSignup(ctx context.Context, req domain.SignupRequest) (*Ticket, error)
	VerifySignup(ctx context.Context, req domain.VerifyRequest) error
	CommitSignup(ctx context.Context, req domain.SignupCommitRequest) (*domain.User, error)

	RequestRecovery(ctx context.Context, req domain.RecoveryRequest) (*Ticket, error)
	VerifyRecovery(ctx context.Context, req domain.VerifyRequest) error
	CommitRecovery(ctx context.Context, req domain.RecoveryCommitRequest) error
}

// ServiceDeps groups the collaborators of the flow controller.
type ServiceDeps struct {
	Users   UserStore
	Ledger  *Ledger
	Tokens  TokenProvider
	Mailer  Notifier
	Hasher  PasswordHasher
	Timeout time.Duration // bound on each operation's I/O
	Now     func() time.Time
	Logger  *slog.Logger
}

type service struct {
	users   UserStore
	ledger  *Ledger
	tokens  TokenProvider
	mailer  Notifier
	hasher  PasswordHasher
	timeout time.Duration
	now     func() time.Time
	log     *slog.Logger
}

func NewService(deps ServiceDeps) Service {
	s := &service{
		users:   deps.Users,
		ledger:  deps.Ledger,
		tokens:  deps.Tokens,
		mailer:  deps.Mailer,
		hasher:  deps.Hasher,
		timeout: deps.Timeout,
		now:     deps.Now,
		log:     deps.Logger,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// ── signup ───────────────────────────────────────────────────────────────────

func (s *service) RequestSignup(ctx context.Context, req domain.SignupRequest) (*Ticket, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validate.Struct(&req); err != nil {
		return nil, invalidInput(err)
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	_, err := s.users.GetByEmail(ctx, req.Email)
	switch {
	case err == nil:
		s.log.Info("signup rejected", "email", req.Email, "reason", "already registered")
		return nil, fmt.Errorf("signup %s: %w", req.Email, domain.ErrAlreadyRegistered)
	case !errors.Is(err, domain.ErrNotFound):
		return nil, s.dependency("lookup user", err)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, s.dependency("hash password", err)
	}
	return s.issue(ctx, &domain.FlowState{
		Purpose:      domain.PurposeSignup,
		Email:        req.Email,
		PasswordHash: hash,
	})
}

func (s *service) VerifySignup(ctx context.Context, req domain.VerifyRequest) error {
	return s.verify(ctx, domain.PurposeSignup, req)
}

// CommitSignup creates the user. The store's email uniqueness decides races:
// the record is consumed only after the insert lands.
func (s *service) CommitSignup(ctx context.Context, req domain.SignupCommitRequest) (*domain.User, error) {
	state, err := s.parse(req.Token, domain.PurposeSignup)
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if _, err := s.ledger.Verified(ctx, domain.PurposeSignup, state.Email, state.Nonce); err != nil {
		return nil, s.ledgerError("signup commit", state, err)
	}

	now := s.now().UTC()
	u := &domain.User{
		UserID:       id.New(),
		Email:        state.Email,
		Username:     usernameFromEmail(state.Email),
		PasswordHash: state.PasswordHash,
		AuthProvider: domain.ProviderLocal,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, domain.ErrAlreadyRegistered) {
			s.log.Info("signup commit rejected", "email", state.Email, "reason", "already registered")
			return nil, err
		}
		return nil, s.dependency("create user", err)
	}

	if _, err := s.ledger.Consume(ctx, domain.PurposeSignup, state.Email, state.Nonce); err != nil {
		s.log.Warn("could not consume signup code", "email", state.Email, "err", err)
	}
	s.log.Info("signup committed", "email", state.Email, "user_id", u.UserID)
	return u, nil
}

// ── recovery ─────────────────────────────────────────────────────────────────

func (s *service) RequestRecovery(ctx context.Context, req domain.RecoveryRequest) (*Ticket, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validate.Struct(&req); err != nil {
		return nil, invalidInput(err)
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if _, err := s.users.GetByEmail(ctx, req.Email); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.log.Info("recovery rejected", "email", req.Email, "reason", "unknown email")
			return nil, fmt.Errorf("recovery %s: %w", req.Email, domain.ErrNotFound)
		}
		return nil, s.dependency("lookup user", err)
	}
	return s.issue(ctx, &domain.FlowState{
		Purpose: domain.PurposeRecovery,
		Email:   req.Email,
	})
}

func (s *service) VerifyRecovery(ctx context.Context, req domain.VerifyRequest) error {
	return s.verify(ctx, domain.PurposeRecovery, req)
}

// CommitRecovery replaces the password hash. The ledger record is consumed
// first so a token can never reset a password twice.
func (s *service) CommitRecovery(ctx context.Context, req domain.RecoveryCommitRequest) error {
	if err := validate.Struct(&req); err != nil {
		return invalidInput(err)
	}
	state, err := s.parse(req.Token, domain.PurposeRecovery)
	if err != nil {
		return err
	}
	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return s.dependency("hash password", err)
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if _, err := s.ledger.Consume(ctx, domain.PurposeRecovery, state.Email, state.Nonce); err != nil {
		return s.ledgerError("recovery commit", state, err)
	}
	if err := s.users.UpdatePassword(ctx, state.Email, hash); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.log.Info("recovery commit rejected", "email", state.Email, "reason", "user vanished")
			return fmt.Errorf("recovery %s: %w", state.Email, domain.ErrNotFound)
		}
		return s.dependency("update password", err)
	}
	s.log.Info("recovery committed", "email", state.Email)
	return nil
}

// ── shared steps ─────────────────────────────────────────────────────────────

// issue stores a fresh code bound to a new nonce, signs the flow token and
// mails the code. A failed send drops the record again.
func (s *service) issue(ctx context.Context, state *domain.FlowState) (*Ticket, error) {
	state.Nonce = id.New()
	code, err := s.ledger.Issue(ctx, state.Purpose, state.Email, state.Nonce)
	if err != nil {
		return nil, s.dependency("issue code", err)
	}
	token, err := s.tokens.Sign(state)
	if err != nil {
		s.invalidate(ctx, state)
		return nil, s.dependency("sign flow token", err)
	}
	subject, body, err := renderCodeMail(state.Purpose, code, int(s.ledger.ttl/time.Minute))
	if err != nil {
		s.invalidate(ctx, state)
		return nil, s.dependency("render mail", err)
	}
	if err := s.mailer.Send(ctx, state.Email, subject, body); err != nil {
		s.invalidate(ctx, state)
		return nil, s.dependency("send code", err)
	}
	s.log.Info("verification code issued", "purpose", state.Purpose, "email", state.Email)
	return &Ticket{Token: token, ExpiresAt: state.ExpiresAt}, nil
}

func (s *service) verify(ctx context.Context, purpose domain.Purpose, req domain.VerifyRequest) error {
	req.Code = strings.TrimSpace(req.Code)
	if err := validate.Struct(&req); err != nil {
		return invalidInput(err)
	}
	state, err := s.parse(req.Token, purpose)
	if err != nil {
		return err
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	op := string(purpose) + " verify"
	rec, err := s.ledger.Verify(ctx, purpose, state.Email, req.Code)
	if err != nil {
		return s.ledgerError(op, state, err)
	}
	if rec.Nonce != state.Nonce {
		s.log.Info("verification rejected", "op", op, "purpose", purpose, "email", state.Email, "reason", errSuperseded)
		return fmt.Errorf("%s: %v: %w", op, errSuperseded, domain.ErrExpired)
	}
	if err := s.ledger.MarkVerified(ctx, purpose, state.Email, state.Nonce); err != nil {
		return s.ledgerError(op, state, err)
	}
	s.log.Info("verification code accepted", "purpose", purpose, "email", state.Email)
	return nil
}

func (s *service) parse(token string, purpose domain.Purpose) (*domain.FlowState, error) {
	state, err := s.tokens.Verify(token, purpose)
	if err != nil {
		s.log.Info("flow token rejected", "purpose", purpose, "err", err)
		return nil, err
	}
	return state, nil
}

// invalidate runs on a detached context so a timed-out request still
// cleans up its record.
func (s *service) invalidate(ctx context.Context, state *domain.FlowState) {
	ctx, cancel := s.bound(context.WithoutCancel(ctx))
	defer cancel()
	if err := s.ledger.Invalidate(ctx, state.Purpose, state.Email, state.Nonce); err != nil {
		s.log.Warn("could not invalidate code", "purpose", state.Purpose, "email", state.Email, "err", err)
	}
}

// ledgerError folds the ledger's internal reasons into caller-facing errors.
func (s *service) ledgerError(op string, state *domain.FlowState, err error) error {
	if !ledgerReason(err) {
		return s.dependency(op, err)
	}
	s.log.Info("verification rejected", "op", op, "purpose", state.Purpose, "email", state.Email, "reason", err)
	switch {
	case errors.Is(err, domain.ErrOTPMismatch):
		return fmt.Errorf("%s: %w", op, domain.ErrInvalidOTP)
	case errors.Is(err, domain.ErrNotVerified):
		return fmt.Errorf("%s: %w", op, domain.ErrNotVerified)
	default:
		return fmt.Errorf("%s: %v: %w", op, err, domain.ErrExpired)
	}
}

func (s *service) dependency(op string, err error) error {
	s.log.Error("dependency failure", "op", op, "err", err)
	return fmt.Errorf("%s: %w: %v", op, domain.ErrDependency, err)
}

func (s *service) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func invalidInput(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func usernameFromEmail(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}
