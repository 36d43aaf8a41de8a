package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
	"github.com/dmitrijs2005/shelfkeeper/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims is the decoded identity carried by a token. Refresh tokens leave
// Role empty; the role is re-read from storage when they are exchanged.
type Claims struct {
	TenantID  int64
	UserID    int64
	Role      models.Role
	Type      TokenType
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// tokenClaims is the flat JSON payload: tenant_id, sub, role, typ, jti, iat, exp.
type tokenClaims struct {
	jwt.RegisteredClaims
	TenantID int64     `json:"tenant_id"`
	Role     string    `json:"role,omitempty"`
	Type     TokenType `json:"typ"`
}

// TokenCodec signs and verifies HS256 tokens. Tokens are signed with the
// current key and its id goes into the "kid" header; older keys may be kept
// for verification only, which allows rotating the secret without logging
// everybody out.
type TokenCodec struct {
	keyID string
	keys  map[string][]byte
	now   func() time.Time
}

type CodecOption func(*TokenCodec)

// WithVerificationKey accepts tokens signed by a retired key.
func WithVerificationKey(keyID string, secret []byte) CodecOption {
	return func(c *TokenCodec) {
		c.keys[keyID] = secret
	}
}

func WithClock(now func() time.Time) CodecOption {
	return func(c *TokenCodec) {
		c.now = now
	}
}

func NewTokenCodec(keyID string, secret []byte, opts ...CodecOption) *TokenCodec {
	c := &TokenCodec{
		keyID: keyID,
		keys:  map[string][]byte{keyID: secret},
		now:   time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Issue signs claims valid for ttl from now. IssuedAt and ExpiresAt are
// always set here; a missing ID gets a fresh UUID.
func (c *TokenCodec) Issue(claims Claims, ttl time.Duration) (string, error) {
	now := c.now()
	id := claims.ID
	if id == "" {
		id = uuid.NewString()
	}

	tc := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(claims.UserID, 10),
			ID:        id,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		TenantID: claims.TenantID,
		Role:     string(claims.Role),
		Type:     claims.Type,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tc)
	token.Header["kid"] = c.keyID

	return token.SignedString(c.keys[c.keyID])
}

// Parse verifies the signature first and only then looks at the claims.
// Failures are reported as common.ErrMalformedToken, common.ErrTokenExpired
// or common.ErrInvalidToken.
func (c *TokenCodec) Parse(tokenString string) (*Claims, error) {
	tc := &tokenClaims{}

	_, err := jwt.ParseWithClaims(tokenString, tc, c.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, common.ErrMalformedToken
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, common.ErrTokenExpired
		default:
			return nil, common.ErrInvalidToken
		}
	}

	userID, err := strconv.ParseInt(tc.Subject, 10, 64)
	if err != nil || userID <= 0 || tc.TenantID <= 0 || tc.ID == "" || tc.IssuedAt == nil {
		return nil, common.ErrInvalidToken
	}

	claims := &Claims{
		TenantID:  tc.TenantID,
		UserID:    userID,
		Role:      models.Role(tc.Role),
		Type:      tc.Type,
		ID:        tc.ID,
		IssuedAt:  tc.IssuedAt.Time,
		ExpiresAt: tc.ExpiresAt.Time,
	}

	switch claims.Type {
	case TokenTypeAccess:
		if !claims.Role.Valid() {
			return nil, common.ErrInvalidToken
		}
	case TokenTypeRefresh:
	default:
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

func (c *TokenCodec) keyFunc(t *jwt.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)
	key, ok := c.keys[kid]
	if !ok {
		return nil, common.ErrInvalidToken
	}
	return key, nil
}
