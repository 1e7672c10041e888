// Package memory holds in-process stores for local development and tests.
// State is lost on restart and is not shared between replicas.
package memory

import (
	"context"
	"sync"

	"github.com/go-otp-auth/internal/domain"
)

type ledgerKey struct {
	purpose domain.Purpose
	email   string
}

// LedgerStore keeps OTP records in a mutex-guarded map.
type LedgerStore struct {
	mu      sync.Mutex
	records map[ledgerKey]domain.OTPRecord
}

func NewLedgerStore() *LedgerStore {
	return &LedgerStore{records: make(map[ledgerKey]domain.OTPRecord)}
}

func (s *LedgerStore) Put(_ context.Context, rec *domain.OTPRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[ledgerKey{rec.Purpose, rec.Email}] = *rec
	return nil
}

func (s *LedgerStore) Get(_ context.Context, purpose domain.Purpose, email string) (*domain.OTPRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[ledgerKey{purpose, email}]
	if !ok {
		return nil, domain.ErrOTPNotIssued
	}
	return &rec, nil
}

func (s *LedgerStore) MarkVerified(_ context.Context, purpose domain.Purpose, email, nonce string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := ledgerKey{purpose, email}
	rec, ok := s.records[k]
	if !ok || rec.Nonce != nonce {
		return domain.ErrOTPNotIssued
	}
	rec.Verified = true
	s.records[k] = rec
	return nil
}

func (s *LedgerStore) Consume(_ context.Context, purpose domain.Purpose, email, nonce string) (*domain.OTPRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := ledgerKey{purpose, email}
	rec, ok := s.records[k]
	if !ok || rec.Nonce != nonce {
		return nil, domain.ErrOTPNotIssued
	}
	if !rec.Verified {
		return nil, domain.ErrNotVerified
	}
	delete(s.records, k)
	return &rec, nil
}

func (s *LedgerStore) Delete(_ context.Context, purpose domain.Purpose, email, nonce string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := ledgerKey{purpose, email}
	if rec, ok := s.records[k]; ok && rec.Nonce == nonce {
		delete(s.records, k)
	}
	return nil
}
