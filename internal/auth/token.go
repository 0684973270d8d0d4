package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "objbase.io/objbase/internal/pkg/errors"
)

// Role is the namespace-scoped actor role.
type Role string

const (
	RoleReader Role = "reader"
	RoleWriter Role = "writer"
	RoleAdmin  Role = "admin"
)

var roleRank = map[Role]int{
	RoleReader: 1,
	RoleWriter: 2,
	RoleAdmin:  3,
}

// Allows reports whether r grants at least the privileges of required.
func (r Role) Allows(required Role) bool {
	return roleRank[r] >= roleRank[required]
}

// Identity is the authenticated-actor shape both token encodings resolve to.
type Identity struct {
	Namespace string
	UserID    int64
	Name      string
	Role      Role
}

// SessionTTL is the fixed legacy cookie and token lifetime.
const SessionTTL = 30 * 24 * time.Hour

// Claims is the structured session token payload.
type Claims struct {
	Namespace string `json:"ns"`
	UserID    int64  `json:"uid"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies structured session tokens.
type TokenManager struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
	now        func() time.Time
}

// NewTokenManager creates a session token manager.
func NewTokenManager(signingKey []byte, issuer string) *TokenManager {
	return &TokenManager{
		signingKey: signingKey,
		issuer:     issuer,
		ttl:        SessionTTL,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Issue creates a signed structured token for the identity.
func (m *TokenManager) Issue(id Identity) (string, time.Time, error) {
	if len(m.signingKey) == 0 {
		return "", time.Time{}, apperrors.Internal(apperrors.CodeInternal,
			"session signing key is not configured")
	}

	now := m.now()
	expiresAt := now.Add(m.ttl)

	claims := Claims{
		Namespace: id.Namespace,
		UserID:    id.UserID,
		Name:      id.Name,
		Role:      string(id.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   fmt.Sprintf("%s/%d", id.Namespace, id.UserID),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify parses a structured token and returns the identity it encodes.
// The token must belong to the requested namespace.
func (m *TokenManager) Verify(token, namespace string) (Identity, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, apperrors.Unauthorized(apperrors.CodeTokenExpired, "token expired")
		}
		return Identity{}, apperrors.Unauthorized(apperrors.CodeTokenInvalid, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Identity{}, apperrors.Unauthorized(apperrors.CodeTokenInvalid, "invalid token claims")
	}
	if claims.Namespace != namespace {
		return Identity{}, apperrors.Unauthorized(apperrors.CodeTokenInvalid, "token namespace mismatch")
	}

	return Identity{
		Namespace: claims.Namespace,
		UserID:    claims.UserID,
		Name:      claims.Name,
		Role:      Role(claims.Role),
	}, nil
}
