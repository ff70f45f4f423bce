package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleUserInfoURL is the OpenID userinfo endpoint.  Its response carries
// sub, email, email_verified, name and picture.
const GoogleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// GoogleProvider runs the authorization-code flow against Google.
type GoogleProvider struct {
	Config      *oauth2.Config
	UserInfoURL string
}

// NewGoogleProvider returns a provider for the given client.  It is usable
// only when Enabled reports true.
func NewGoogleProvider(clientID, clientSecret, callbackURL string) *GoogleProvider {
	return &GoogleProvider{
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		},
		UserInfoURL: GoogleUserInfoURL,
	}
}

// Enabled reports whether client credentials are configured.
func (g *GoogleProvider) Enabled() bool {
	return g != nil && g.Config.ClientID != "" && g.Config.ClientSecret != "" && g.Config.RedirectURL != ""
}

// AuthURL is the consent page URL carrying state.
func (g *GoogleProvider) AuthURL(state string) string {
	return g.Config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Profile exchanges code for a token and fetches the caller's profile.
func (g *GoogleProvider) Profile(ctx context.Context, code string) (Profile, error) {
	tok, err := g.Config.Exchange(ctx, code)
	if err != nil {
		return Profile{}, fmt.Errorf("exchange code: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.UserInfoURL, nil)
	if err != nil {
		return Profile{}, err
	}
	resp, err := g.Config.Client(ctx, tok).Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("user info request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Profile{}, fmt.Errorf("user info status: %s", resp.Status)
	}

	var info struct {
		Sub           string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified *bool  `json:"email_verified"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return Profile{}, fmt.Errorf("decode user info: %w", err)
	}
	return Profile{
		ExternalID:    info.Sub,
		Email:         info.Email,
		DisplayName:   info.Name,
		AvatarURL:     info.Picture,
		EmailVerified: info.EmailVerified,
	}, nil
}
