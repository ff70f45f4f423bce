package utils // package utils provides helper functions for token creation and hashing

import (
	"crypto/sha256" // SHA-256 hashing for refresh tokens
	"encoding/hex"  // hex encoding of digests
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
	"github.com/google/uuid"       // random jti per refresh token
)

// TokenTypeRefresh is the value of the "type" claim carried by refresh tokens.
const TokenTypeRefresh = "refresh"

// Claims errors returned by the verifiers.
var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

// TokenSubject is the identity encoded into tokens.
type TokenSubject struct {
	ID    uint64
	Email string
	Role  string
	Name  string
}

// AccessClaims is the payload of an access token.
type AccessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// RefreshClaims is the payload of a refresh token.
type RefreshClaims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim into a positive id.
func (c *AccessClaims) UserID() (uint64, bool) { return parseSubject(c.Subject) }

// UserID parses the subject claim into a positive id.
func (c *RefreshClaims) UserID() (uint64, bool) { return parseSubject(c.Subject) }

// AccessToken represents a signed JWT access token along with its expiry.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// RefreshToken is a signed refresh JWT.  Exp is taken from the token's own
// exp claim so the ledger row and the token always agree.
type RefreshToken struct {
	Raw string    // raw token string returned to the client
	Exp time.Time // UTC expiration time
}

// TokenCodec signs and verifies both token kinds.  Access and refresh tokens
// use separate secrets.
type TokenCodec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenCodec builds a codec for the given secrets and lifetimes.
func NewTokenCodec(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenCodec {
	return &TokenCodec{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		now:           time.Now,
	}
}

// SignAccess builds and signs an HS256 access token for s.
func (c *TokenCodec) SignAccess(s TokenSubject) (AccessToken, error) {
	now := c.now().UTC()
	exp := now.Add(c.accessTTL)
	claims := AccessClaims{
		Email: s.Email,
		Role:  s.Role,
		Name:  s.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(s.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.accessSecret)
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: claims.ExpiresAt.Time}, nil
}

// SignRefresh builds and signs a refresh token for s with a random jti.
func (c *TokenCodec) SignRefresh(s TokenSubject) (RefreshToken, error) {
	now := c.now().UTC()
	claims := RefreshClaims{
		Type: TokenTypeRefresh,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(s.ID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.refreshTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.refreshSecret)
	if err != nil {
		return RefreshToken{}, err
	}
	// NumericDate truncates to whole seconds; that is what the client sees.
	return RefreshToken{Raw: signed, Exp: claims.ExpiresAt.Time}, nil
}

// VerifyAccess validates signature and expiry of an access token.
func (c *TokenCodec) VerifyAccess(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := c.parse(raw, claims, c.accessSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRefresh validates signature and expiry of a refresh token.  The type
// claim is left to the caller.
func (c *TokenCodec) VerifyRefresh(raw string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := c.parse(raw, claims, c.refreshSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

func (c *TokenCodec) parse(raw string, claims jwt.Claims, secret []byte) error {
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
	)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	default:
		return ErrTokenInvalid
	}
}

// HashToken returns the SHA-256 hash of a raw token as a hex string.  Only
// this digest is stored in the refresh token ledger.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func parseSubject(sub string) (uint64, bool) {
	id, err := strconv.ParseUint(sub, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
