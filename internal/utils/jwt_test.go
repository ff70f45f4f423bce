package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCodec() *TokenCodec {
	return NewTokenCodec("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
}

func TestSignAccessCarriesIdentity(t *testing.T) {
	c := testCodec()
	tok, err := c.SignAccess(TokenSubject{ID: 42, Email: "a@b.c", Role: "ADMIN", Name: "Ann"})
	require.NoError(t, err)

	claims, err := c.VerifyAccess(tok.Token)
	require.NoError(t, err)
	id, ok := claims.UserID()
	assert.True(t, ok)
	assert.Equal(t, uint64(42), id)
	assert.Equal(t, "a@b.c", claims.Email)
	assert.Equal(t, "ADMIN", claims.Role)
	assert.Equal(t, "Ann", claims.Name)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), tok.Exp, 2*time.Second)
}

func TestRefreshExpiryMatchesClaim(t *testing.T) {
	c := testCodec()
	tok, err := c.SignRefresh(TokenSubject{ID: 7})
	require.NoError(t, err)

	claims, err := c.VerifyRefresh(tok.Raw)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, claims.Type)
	assert.NotEmpty(t, claims.ID)
	assert.True(t, claims.ExpiresAt.Time.Equal(tok.Exp))
}

func TestRefreshTokensAreUnique(t *testing.T) {
	c := testCodec()
	a, err := c.SignRefresh(TokenSubject{ID: 1})
	require.NoError(t, err)
	b, err := c.SignRefresh(TokenSubject{ID: 1})
	require.NoError(t, err)
	assert.NotEqual(t, a.Raw, b.Raw)
}

func TestSecretsAreSeparate(t *testing.T) {
	c := testCodec()
	access, err := c.SignAccess(TokenSubject{ID: 1, Role: "VOLUNTEER"})
	require.NoError(t, err)
	refresh, err := c.SignRefresh(TokenSubject{ID: 1})
	require.NoError(t, err)

	_, err = c.VerifyRefresh(access.Token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
	_, err = c.VerifyAccess(refresh.Raw)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestVerifyExpired(t *testing.T) {
	c := testCodec()
	c.now = func() time.Time { return time.Now().Add(-8 * 24 * time.Hour) }
	tok, err := c.SignRefresh(TokenSubject{ID: 1})
	require.NoError(t, err)

	c.now = time.Now
	_, err = c.VerifyRefresh(tok.Raw)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestHashToken(t *testing.T) {
	h := HashToken("abc")
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashToken("abc"))
	assert.NotEqual(t, h, HashToken("abd"))
	assert.Equal(t, strings.ToLower(h), h)
}

func TestParseSubject(t *testing.T) {
	_, ok := parseSubject("0")
	assert.False(t, ok)
	_, ok = parseSubject("abc")
	assert.False(t, ok)
	id, ok := parseSubject("12")
	assert.True(t, ok)
	assert.Equal(t, uint64(12), id)
}

func TestPassword(t *testing.T) {
	h, err := HashPassword("secret1", 4)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(h, "secret1"))
	assert.False(t, VerifyPassword(h, "secret2"))
	assert.False(t, VerifyPassword("", "secret1"))
}
