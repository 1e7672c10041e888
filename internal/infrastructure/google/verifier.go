package google

import (
	"context"
	"fmt"

	"github.com/go-otp-auth/internal/domain"
	"google.golang.org/api/idtoken"
)

// Verifier verifies Google ID tokens against a specific client ID.
type Verifier struct {
	clientID string
}

func NewVerifier(clientID string) *Verifier {
	return &Verifier{clientID: clientID}
}

// Verify validates the Google ID token and returns the identity it asserts.
// Any validation failure wraps domain.ErrInvalidCredentials.
func (v *Verifier) Verify(ctx context.Context, token string) (*domain.GoogleIdentity, error) {
	p, err := idtoken.Validate(ctx, token, v.clientID)
	if err != nil {
		return nil, fmt.Errorf("invalid google token: %w: %v", domain.ErrInvalidCredentials, err)
	}
	return identityFromClaims(p.Subject, p.Claims), nil
}

func identityFromClaims(sub string, claims map[string]interface{}) *domain.GoogleIdentity {
	email, _ := claims["email"].(string)
	emailVerified, _ := claims["email_verified"].(bool)
	firstName, _ := claims["given_name"].(string)
	lastName, _ := claims["family_name"].(string)
	return &domain.GoogleIdentity{
		Sub:           sub,
		Email:         email,
		EmailVerified: emailVerified,
		FirstName:     firstName,
		LastName:      lastName,
	}
}
