package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/volunteer-map/internal/auth"
	"github.com/iliyamo/volunteer-map/internal/middleware"
	"github.com/iliyamo/volunteer-map/internal/service"
)

const (
	oauthStateCookie = "oauth_state"
	oauthStateTTL    = 5 * time.Minute
)

// OAuthProvider runs the external authorization-code flow.
type OAuthProvider interface {
	Enabled() bool
	AuthURL(state string) string
	Profile(ctx context.Context, code string) (auth.Profile, error)
}

// CookieConfig controls the refresh cookie.
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge time.Duration
}

// sameSite is None for cross-site production deployments and Lax otherwise.
// Browsers only accept None together with Secure.
func (cc CookieConfig) sameSite() http.SameSite {
	if cc.Secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Sessions    *service.SessionService
	Local       auth.Resolver[auth.LocalCredentials]
	OAuth       auth.Resolver[auth.Profile]
	Google      OAuthProvider
	Cookie      CookieConfig
	FrontendURL string
	Logger      *zap.Logger
}

type loginReq struct {
	Login    string `json:"login"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResp struct {
	AccessToken string `json:"accessToken"`
	User        any    `json:"user"`
}

// Register creates a local account.  It does not log in.
func (h *AuthHandler) Register(c echo.Context) error {
	var req service.RegisterInput
	if err := bind(c, &req); err != nil {
		return err
	}
	u, err := h.Sessions.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return created(c, echo.Map{"user": u})
}

// Login checks email-or-name + password, sets the refresh cookie and returns
// the access token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}
	login := req.Login
	if login == "" {
		login = req.Email
	}
	ctx := c.Request().Context()
	id, err := h.Local.Resolve(ctx, auth.LocalCredentials{Login: login, Password: req.Password})
	if err != nil {
		return err
	}
	sess, err := h.Sessions.Login(ctx, id)
	if err != nil {
		return err
	}
	h.setRefreshCookie(c, sess.RefreshToken)
	return ok(c, sessionResp{AccessToken: sess.AccessToken, User: sess.User})
}

// Refresh rotates the refresh cookie.
func (h *AuthHandler) Refresh(c echo.Context) error {
	raw := ""
	if ck, err := c.Cookie(h.Cookie.Name); err == nil {
		raw = ck.Value
	}
	sess, err := h.Sessions.Refresh(c.Request().Context(), raw)
	if err != nil {
		return err
	}
	h.setRefreshCookie(c, sess.RefreshToken)
	return ok(c, sessionResp{AccessToken: sess.AccessToken, User: sess.User})
}

// Logout revokes the refresh token if any and always clears the cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	if ck, err := c.Cookie(h.Cookie.Name); err == nil {
		h.Sessions.Logout(c.Request().Context(), ck.Value)
	}
	h.clearRefreshCookie(c)
	return ok(c, echo.Map{"message": "Logged out"})
}

// Me returns the caller's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	u, err := h.Sessions.Me(c.Request().Context(), middleware.CurrentIdentity(c))
	if err != nil {
		return err
	}
	return ok(c, echo.Map{"user": u})
}

// GoogleStart redirects to the consent page with a fresh state value kept in
// a short-lived cookie.
func (h *AuthHandler) GoogleStart(c echo.Context) error {
	if h.Google == nil || !h.Google.Enabled() {
		return c.Redirect(http.StatusFound, h.googleFailure())
	}
	state := uuid.NewString()
	c.SetCookie(&http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int(oauthStateTTL / time.Second),
		HttpOnly: true,
		Secure:   h.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusFound, h.Google.AuthURL(state))
}

// GoogleCallback finishes the flow.  Every failure ends on the frontend
// login page; success sets the refresh cookie and lets the frontend call
// /auth/refresh for its access token.
func (h *AuthHandler) GoogleCallback(c echo.Context) error {
	fail := func(reason string, err error) error {
		h.Logger.Warn("google sign-in failed", zap.String("reason", reason), zap.Error(err))
		return c.Redirect(http.StatusFound, h.googleFailure())
	}
	if h.Google == nil || !h.Google.Enabled() {
		return fail("disabled", nil)
	}

	ck, err := c.Cookie(oauthStateCookie)
	c.SetCookie(&http.Cookie{Name: oauthStateCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, Secure: h.Cookie.Secure})
	if err != nil || ck.Value == "" || ck.Value != c.QueryParam("state") {
		return fail("state mismatch", err)
	}
	code := c.QueryParam("code")
	if code == "" {
		return fail("missing code", nil)
	}

	ctx := c.Request().Context()
	profile, err := h.Google.Profile(ctx, code)
	if err != nil {
		return fail("profile", err)
	}
	id, err := h.OAuth.Resolve(ctx, profile)
	if err != nil {
		return fail("resolve", err)
	}
	sess, err := h.Sessions.Login(ctx, id)
	if err != nil {
		return fail("login", err)
	}
	h.setRefreshCookie(c, sess.RefreshToken)
	return c.Redirect(http.StatusFound, h.FrontendURL+"/oauth/google")
}

func (h *AuthHandler) googleFailure() string { return h.FrontendURL + "/login?error=google" }

func (h *AuthHandler) setRefreshCookie(c echo.Context, raw string) {
	c.SetCookie(&http.Cookie{
		Name:     h.Cookie.Name,
		Value:    raw,
		Path:     "/",
		MaxAge:   int(h.Cookie.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   h.Cookie.Secure,
		SameSite: h.Cookie.sameSite(),
	})
}

func (h *AuthHandler) clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     h.Cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.Cookie.Secure,
		SameSite: h.Cookie.sameSite(),
	})
}
