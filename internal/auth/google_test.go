package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2/google"
)

func TestGoogleProviderProfile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		assert.Equal(t, "the-code", r.Form.Get("code"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "at", "token_type": "Bearer", "expires_in": 3600})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sub":"123","email":"a@x.vn","email_verified":true,"name":"A","picture":"http://p"}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	g := NewGoogleProvider("cid", "secret", "http://localhost/cb")
	g.Config.Endpoint.AuthURL = srv.URL + "/auth"
	g.Config.Endpoint.TokenURL = srv.URL + "/token"
	g.UserInfoURL = srv.URL + "/userinfo"

	p, err := g.Profile(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "123", p.ExternalID)
	assert.Equal(t, "a@x.vn", p.Email)
	require.NotNil(t, p.EmailVerified)
	assert.True(t, *p.EmailVerified)
	assert.Equal(t, "http://p", p.AvatarURL)
}

func TestGoogleProviderAuthURL(t *testing.T) {
	g := NewGoogleProvider("cid", "secret", "http://localhost/cb")
	assert.True(t, g.Enabled())

	u, err := url.Parse(g.AuthURL("st-1"))
	require.NoError(t, err)
	assert.Equal(t, "st-1", u.Query().Get("state"))
	assert.Equal(t, "cid", u.Query().Get("client_id"))
	assert.Equal(t, "http://localhost/cb", u.Query().Get("redirect_uri"))
	assert.Equal(t, google.Endpoint, g.Config.Endpoint)
	assert.Equal(t, "accounts.google.com", u.Host)

	assert.False(t, NewGoogleProvider("", "", "").Enabled())
}
