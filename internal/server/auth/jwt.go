// Package auth implements the HS256 access-token manager: minting signed
// claims and verifying them, including the verify-ignoring-expiry variant the
// rotation flow needs.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ropbridge/ropbridge/internal/common"
)

// Claims embeds the registered claims and adds the principal id and its role
// claims.
type Claims struct {
	jwt.RegisteredClaims
	UserID string   `json:"uid"`
	Roles  []string `json:"roles,omitempty"`
}

// Manager mints and verifies access tokens. The signing secret and
// issuer/audience pair are immutable for the process lifetime.
type Manager struct {
	secret   []byte
	issuer   string
	audience string
}

func NewManager(secret []byte, issuer, audience string) *Manager {
	return &Manager{secret: secret, issuer: issuer, audience: audience}
}

// Generate mints a signed access token. issuedAt is truncated to whole
// seconds so the watermark comparison in validation happens on one time base.
func (m *Manager) Generate(userID string, roles []string, issuedAt time.Time, validity time.Duration) (string, error) {
	issuedAt = issuedAt.Truncate(time.Second)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    m.issuer,
			Audience:  jwt.ClaimStrings{m.audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(validity)),
		},
		UserID: userID,
		Roles:  roles,
	})
	return token.SignedString(m.secret)
}

// Parse verifies signature, issuer, audience, and expiry, and returns the
// claims.
func (m *Manager) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, m.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithAudience(m.audience),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}
	if !token.Valid {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

// ParseExpired verifies signature, issuer, and audience while deliberately
// ignoring expiry. The rotation flow exchanges lapsed access tokens, so a
// lapsed expiry is expected there; every other defect still rejects.
func (m *Manager) ParseExpired(tokenString string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	token, err := parser.ParseWithClaims(tokenString, claims, m.keyFunc)
	if err != nil || !token.Valid {
		return nil, common.ErrInvalidToken
	}

	// WithoutClaimsValidation skips issuer/audience too; re-check them by hand.
	if claims.Issuer != m.issuer {
		return nil, common.ErrInvalidToken
	}
	if !audienceContains(claims.Audience, m.audience) {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

func (m *Manager) keyFunc(t *jwt.Token) (any, error) {
	return m.secret, nil
}

func audienceContains(aud jwt.ClaimStrings, want string) bool {
	for _, a := range aud {
		if a == want {
			return true
		}
	}
	return false
}
