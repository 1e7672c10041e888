package verification

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/go-otp-auth/internal/domain"
)

// LedgerStore persists OTP records keyed by (purpose, email). Every method
// must be atomic for its key.
type LedgerStore interface {
	// Put replaces any record for the key.
	Put(ctx context.Context, rec *domain.OTPRecord) error
	// Get returns domain.ErrOTPNotIssued when no record exists.
	Get(ctx context.Context, purpose domain.Purpose, email string) (*domain.OTPRecord, error)
	// MarkVerified flags the record whose nonce matches; ErrOTPNotIssued otherwise.
	MarkVerified(ctx context.Context, purpose domain.Purpose, email, nonce string) error
	// Consume deletes and returns the record iff the nonce matches and it is
	// verified. Fails with ErrOTPNotIssued or ErrNotVerified and leaves the
	// record untouched.
	Consume(ctx context.Context, purpose domain.Purpose, email, nonce string) (*domain.OTPRecord, error)
	// Delete removes the record iff the nonce matches. A missing record is not an error.
	Delete(ctx context.Context, purpose domain.Purpose, email, nonce string) error
}

// CodeGenerator produces fresh codes.
type CodeGenerator interface {
	Generate() (string, error)
}

// Ledger enforces one live code per (purpose, email) and its expiry window.
// Validity is judged from CreatedAt on the ledger clock; backend TTLs only
// collect garbage.
type Ledger struct {
	store LedgerStore
	codes CodeGenerator
	ttl   time.Duration
	now   func() time.Time
}

func NewLedger(store LedgerStore, codes CodeGenerator, ttl time.Duration, now func() time.Time) *Ledger {
	if now == nil {
		now = time.Now
	}
	return &Ledger{store: store, codes: codes, ttl: ttl, now: now}
}

// Issue stores a new code for the key, superseding any previous one.
func (l *Ledger) Issue(ctx context.Context, purpose domain.Purpose, email, nonce string) (string, error) {
	code, err := l.codes.Generate()
	if err != nil {
		return "", err
	}
	now := l.now().UTC()
	rec := &domain.OTPRecord{
		Email:     email,
		Purpose:   purpose,
		Code:      code,
		Nonce:     nonce,
		CreatedAt: now,
		ExpiresAt: now.Add(l.ttl).Unix(),
	}
	if err := l.store.Put(ctx, rec); err != nil {
		return "", fmt.Errorf("put otp: %w", err)
	}
	return code, nil
}

// Verify returns the live record when code matches. A failed check never
// removes the record, so the user may retry inside the window.
func (l *Ledger) Verify(ctx context.Context, purpose domain.Purpose, email, code string) (*domain.OTPRecord, error) {
	rec, err := l.store.Get(ctx, purpose, email)
	if err != nil {
		return nil, err
	}
	if l.expired(rec) {
		return nil, domain.ErrOTPExpired
	}
	if subtle.ConstantTimeCompare([]byte(rec.Code), []byte(code)) != 1 {
		return nil, domain.ErrOTPMismatch
	}
	return rec, nil
}

func (l *Ledger) MarkVerified(ctx context.Context, purpose domain.Purpose, email, nonce string) error {
	return l.store.MarkVerified(ctx, purpose, email, nonce)
}

// Verified checks, without consuming, that the record bound to nonce is live
// and has been verified.
func (l *Ledger) Verified(ctx context.Context, purpose domain.Purpose, email, nonce string) (*domain.OTPRecord, error) {
	rec, err := l.store.Get(ctx, purpose, email)
	if err != nil {
		return nil, err
	}
	if rec.Nonce != nonce {
		return nil, domain.ErrOTPNotIssued
	}
	if l.expired(rec) {
		return nil, domain.ErrOTPExpired
	}
	if !rec.Verified {
		return nil, domain.ErrNotVerified
	}
	return rec, nil
}

// Consume atomically removes the verified record bound to nonce. An expired
// record is still removed but reported as ErrOTPExpired.
func (l *Ledger) Consume(ctx context.Context, purpose domain.Purpose, email, nonce string) (*domain.OTPRecord, error) {
	rec, err := l.store.Consume(ctx, purpose, email, nonce)
	if err != nil {
		return nil, err
	}
	if l.expired(rec) {
		return nil, domain.ErrOTPExpired
	}
	return rec, nil
}

// Invalidate drops the record bound to nonce.
func (l *Ledger) Invalidate(ctx context.Context, purpose domain.Purpose, email, nonce string) error {
	return l.store.Delete(ctx, purpose, email, nonce)
}

func (l *Ledger) expired(rec *domain.OTPRecord) bool {
	return !l.now().Before(rec.CreatedAt.Add(l.ttl))
}

// ledgerReason reports whether err is one of the ledger's own failure
// reasons rather than a backend fault.
func ledgerReason(err error) bool {
	return errors.Is(err, domain.ErrOTPNotIssued) ||
		errors.Is(err, domain.ErrOTPMismatch) ||
		errors.Is(err, domain.ErrOTPExpired) ||
		errors.Is(err, domain.ErrNotVerified)
}
