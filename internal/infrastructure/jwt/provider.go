package jwtinfra

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-otp-auth/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the flow token payload. The token ID doubles as the nonce of
// the ledger record issued alongside it.
type Claims struct {
	Purpose      domain.Purpose `json:"pur"`
	Email        string         `json:"email"`
	PasswordHash string         `json:"pwh,omitempty"`
	jwt.RegisteredClaims
}

// Provider signs and verifies HS256 flow tokens.
type Provider struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// NewProvider returns a Provider. A nil now falls back to time.Now.
func NewProvider(secret string, expiry time.Duration, now func() time.Time) *Provider {
	if now == nil {
		now = time.Now
	}
	return &Provider{secret: []byte(secret), expiry: expiry, now: now}
}

// Sign encodes state. IssuedAt and ExpiresAt are set from the provider clock
// and written back into state.
func (p *Provider) Sign(state *domain.FlowState) (string, error) {
	if !state.Purpose.Valid() || state.Email == "" || state.Nonce == "" {
		return "", errors.New("incomplete flow state")
	}
	now := p.now().Truncate(time.Second)
	state.IssuedAt = now
	state.ExpiresAt = now.Add(p.expiry)

	claims := Claims{
		Purpose:      state.Purpose,
		Email:        state.Email,
		PasswordHash: state.PasswordHash,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        state.Nonce,
			IssuedAt:  jwt.NewNumericDate(state.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(state.ExpiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(p.secret)
	if err != nil {
		return "", fmt.Errorf("sign flow token: %w", err)
	}
	return signed, nil
}

// Verify decodes a token minted for purpose. Every failure wraps
// domain.ErrExpired so callers restart the flow.
func (p *Provider) Verify(tokenStr string, purpose domain.Purpose) (*domain.FlowState, error) {
	if tokenStr == "" {
		return nil, fmt.Errorf("missing flow token: %w", domain.ErrExpired)
	}
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(*jwt.Token) (interface{}, error) {
		return p.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid flow token: %w: %v", domain.ErrExpired, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid flow token claims: %w", domain.ErrExpired)
	}
	if claims.Purpose != purpose {
		return nil, fmt.Errorf("flow token minted for %q: %w", claims.Purpose, domain.ErrExpired)
	}
	if claims.Email == "" || claims.ID == "" {
		return nil, fmt.Errorf("flow token missing subject: %w", domain.ErrExpired)
	}
	if purpose == domain.PurposeSignup && claims.PasswordHash == "" {
		return nil, fmt.Errorf("signup token missing password: %w", domain.ErrExpired)
	}

	state := &domain.FlowState{
		Purpose:      claims.Purpose,
		Email:        claims.Email,
		PasswordHash: claims.PasswordHash,
		Nonce:        claims.ID,
		ExpiresAt:    claims.ExpiresAt.Time,
	}
	if claims.IssuedAt != nil {
		state.IssuedAt = claims.IssuedAt.Time
	}
	return state, nil
}
