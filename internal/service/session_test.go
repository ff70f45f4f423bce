package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/volunteer-map/internal/apierr"
	"github.com/iliyamo/volunteer-map/internal/auth"
	"github.com/iliyamo/volunteer-map/internal/model"
	"github.com/iliyamo/volunteer-map/internal/utils"
)

func newSessionFixture(t *testing.T) (*SessionService, *memUsers, *memLedger) {
	t.Helper()
	users := newMemUsers()
	ledger := newMemLedger()
	codec := utils.NewTokenCodec("access-secret", "refresh-secret", 15*time.Minute, 7*24*time.Hour)
	return NewSessionService(users, ledger, codec, 4, nil), users, ledger
}

func registerAndLogin(t *testing.T, svc *SessionService, users *memUsers) *Session {
	t.Helper()
	ctx := context.Background()
	pub, err := svc.Register(ctx, RegisterInput{Email: " Ann@Example.com ", Password: "secret1", Name: "Ann"})
	require.NoError(t, err)
	u, err := users.GetByID(ctx, pub.ID)
	require.NoError(t, err)
	sess, err := svc.Login(ctx, auth.FromUser(u))
	require.NoError(t, err)
	return sess
}

func TestRegisterNormalizesAndHashes(t *testing.T) {
	svc, users, _ := newSessionFixture(t)
	pub, err := svc.Register(context.Background(), RegisterInput{Email: " Ann@Example.com ", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", pub.Email)
	assert.Equal(t, model.RoleVolunteer, pub.Role)
	assert.Equal(t, model.ProviderLocal, pub.Provider)

	u, _ := users.GetByID(context.Background(), pub.ID)
	require.NotNil(t, u.PasswordHash)
	assert.True(t, utils.VerifyPassword(*u.PasswordHash, "secret1"))
}

func TestRegisterValidation(t *testing.T) {
	svc, _, _ := newSessionFixture(t)
	ctx := context.Background()
	cases := []RegisterInput{
		{Email: "", Password: "secret1"},
		{Email: "not-an-email", Password: "secret1"},
		{Email: "a@b.co", Password: "123"},
	}
	for _, in := range cases {
		_, err := svc.Register(ctx, in)
		assert.Equal(t, http.StatusBadRequest, apierr.StatusOf(err), in.Email)
	}

	_, err := svc.Register(ctx, RegisterInput{Email: "a@b.co", Password: "secret1"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterInput{Email: "A@B.co", Password: "secret1"})
	e, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, "email already exists", e.Message)
}

func TestLoginRecordsRefreshExpiry(t *testing.T) {
	svc, users, ledger := newSessionFixture(t)
	sess := registerAndLogin(t, svc, users)

	claims, err := svc.Codec.VerifyRefresh(sess.RefreshToken)
	require.NoError(t, err)
	row := ledger.byHash(utils.HashToken(sess.RefreshToken))
	require.NotNil(t, row)
	assert.True(t, row.ExpiresAt.Equal(claims.ExpiresAt.Time))

	access, err := svc.Codec.VerifyAccess(sess.AccessToken)
	require.NoError(t, err)
	id, ok := access.UserID()
	require.True(t, ok)
	assert.Equal(t, sess.User.ID, id)
}

func TestRefreshRotatesAndRejectsReplay(t *testing.T) {
	svc, users, ledger := newSessionFixture(t)
	sess := registerAndLogin(t, svc, users)
	ctx := context.Background()

	next, err := svc.Refresh(ctx, sess.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, sess.RefreshToken, next.RefreshToken)
	assert.NotNil(t, ledger.byHash(utils.HashToken(sess.RefreshToken)).RevokedAt)
	assert.Nil(t, ledger.byHash(utils.HashToken(next.RefreshToken)).RevokedAt)

	_, err = svc.Refresh(ctx, sess.RefreshToken)
	e, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, e.Status)
	assert.Equal(t, MsgRefreshNotActive, e.Message)

	_, err = svc.Refresh(ctx, next.RefreshToken)
	assert.NoError(t, err)
}

func TestRefreshFailures(t *testing.T) {
	svc, users, _ := newSessionFixture(t)
	sess := registerAndLogin(t, svc, users)
	ctx := context.Background()

	_, err := svc.Refresh(ctx, "")
	assert.Equal(t, MsgMissingRefresh, err.Error())

	_, err = svc.Refresh(ctx, "garbage")
	assert.Equal(t, MsgInvalidRefresh, err.Error())

	// An access token is signed with the other secret.
	_, err = svc.Refresh(ctx, sess.AccessToken)
	assert.Equal(t, MsgInvalidRefresh, err.Error())

	svc.Logout(ctx, sess.RefreshToken)
	_, err = svc.Refresh(ctx, sess.RefreshToken)
	assert.Equal(t, MsgRefreshNotActive, err.Error())
}

// signRefreshClaims signs arbitrary refresh claims with the fixture's refresh
// secret so that only the claim checks can reject them.
func signRefreshClaims(t *testing.T, typ, subject string) string {
	t.Helper()
	now := time.Now()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, utils.RefreshClaims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}).SignedString([]byte("refresh-secret"))
	require.NoError(t, err)
	return raw
}

func TestRefreshRejectsBadClaims(t *testing.T) {
	svc, _, _ := newSessionFixture(t)
	ctx := context.Background()

	cases := map[string]struct {
		raw string
		msg string
	}{
		"access type":      {signRefreshClaims(t, "access", "1"), MsgWrongTokenType},
		"missing type":     {signRefreshClaims(t, "", "1"), MsgWrongTokenType},
		"text subject":     {signRefreshClaims(t, utils.TokenTypeRefresh, "abc"), MsgInvalidSubject},
		"zero subject":     {signRefreshClaims(t, utils.TokenTypeRefresh, "0"), MsgInvalidSubject},
		"negative subject": {signRefreshClaims(t, utils.TokenTypeRefresh, "-4"), MsgInvalidSubject},
	}
	for name, tc := range cases {
		_, err := svc.Refresh(ctx, tc.raw)
		e, ok := apierr.As(err)
		require.True(t, ok, name)
		assert.Equal(t, http.StatusUnauthorized, e.Status, name)
		assert.Equal(t, tc.msg, e.Message, name)
	}
}

func TestRefreshRejectsLedgerSubjectMismatch(t *testing.T) {
	svc, users, ledger := newSessionFixture(t)
	ctx := context.Background()
	registerAndLogin(t, svc, users)

	// The token names user 2 but its ledger row belongs to user 1.
	tok, err := svc.Codec.SignRefresh(utils.TokenSubject{ID: 2})
	require.NoError(t, err)
	require.NoError(t, ledger.Issue(ctx, 1, utils.HashToken(tok.Raw), tok.Exp))
	before := len(ledger.rows)

	_, err = svc.Refresh(ctx, tok.Raw)
	e, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, e.Status)
	assert.Equal(t, MsgRefreshMismatch, e.Message)

	// Nothing was rotated.
	assert.Len(t, ledger.rows, before)
	rec, err := ledger.FindActive(ctx, utils.HashToken(tok.Raw))
	require.NoError(t, err)
	assert.Nil(t, rec.RevokedAt)
}

func TestLogoutIgnoresUnknownToken(t *testing.T) {
	svc, _, _ := newSessionFixture(t)
	svc.Logout(context.Background(), "")
	svc.Logout(context.Background(), "unknown")
}

func TestLoginRequiresIdentity(t *testing.T) {
	svc, _, _ := newSessionFixture(t)
	_, err := svc.Login(context.Background(), nil)
	assert.Equal(t, http.StatusUnauthorized, apierr.StatusOf(err))
}
