package identity

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"shopx/internal/domain"
)

const (
	inviteIssuer   = "shopx"
	inviteAudience = "admin-registration"
)

// ErrInvalidInvitation is returned for tokens that fail signature, expiry or claim checks.
var ErrInvalidInvitation = errors.New("invalid invitation token")

// InvitationSigner issues and verifies signed admin invitation tokens.
// The token's ID claim names the stored invitation; its subject is the invited e-mail.
type InvitationSigner struct {
	secret []byte
	now    func() time.Time
}

func NewInvitationSigner(secret string) (*InvitationSigner, error) {
	if len(secret) < 16 {
		return nil, errors.New("invitation secret must be at least 16 characters")
	}
	return &InvitationSigner{secret: []byte(secret), now: time.Now}, nil
}

func (s *InvitationSigner) Sign(inv domain.Invitation) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:        inv.ID,
		Subject:   strings.ToLower(inv.Email),
		Issuer:    inviteIssuer,
		Audience:  jwt.ClaimStrings{inviteAudience},
		IssuedAt:  jwt.NewNumericDate(s.now()),
		ExpiresAt: jwt.NewNumericDate(inv.ExpiresAt),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign invitation: %w", err)
	}
	return token, nil
}

// Parse verifies token and returns the invitation id and e-mail it carries.
func (s *InvitationSigner) Parse(token string) (id, email string, err error) {
	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(strings.TrimSpace(token), &claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(inviteIssuer),
		jwt.WithAudience(inviteAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return "", "", ErrInvalidInvitation
	}
	if claims.ID == "" || claims.Subject == "" {
		return "", "", ErrInvalidInvitation
	}
	return claims.ID, claims.Subject, nil
}
