package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/volunteer-map/internal/apierr"
	"github.com/iliyamo/volunteer-map/internal/model"
	"github.com/iliyamo/volunteer-map/internal/repository"
)

// MsgOAuthEmail is returned when the provider gives no usable email.
const MsgOAuthEmail = "google email is missing or not verified"

// Profile is what the OAuth provider tells us about the caller.
type Profile struct {
	ExternalID    string
	Email         string
	DisplayName   string
	AvatarURL     string
	EmailVerified *bool // nil when the provider did not say
}

// OAuthUserStore is the subset of the credential store the OAuth strategy
// needs.
type OAuthUserStore interface {
	GetByGoogleID(ctx context.Context, googleID string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	LinkGoogle(ctx context.Context, u *model.User) error
	Create(ctx context.Context, u *model.User) error
}

// OAuthResolver finds, links or creates the account of a Google profile.
type OAuthResolver struct {
	Users OAuthUserStore
}

// Resolve implements Resolver.  Lookup order is Google id, then email (which
// links the Google id to that account), then a new VOLUNTEER account.
func (r *OAuthResolver) Resolve(ctx context.Context, p Profile) (*Identity, error) {
	email := strings.ToLower(strings.TrimSpace(p.Email))
	if email == "" || (p.EmailVerified != nil && !*p.EmailVerified) {
		return nil, apierr.Unauthorized(MsgOAuthEmail)
	}
	if p.ExternalID == "" {
		return nil, apierr.Unauthorized("google profile has no id")
	}

	u, err := r.Users.GetByGoogleID(ctx, p.ExternalID)
	if err == nil {
		return FromUser(u), nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	u, err = r.Users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		linkGoogle(u, p)
		if err := r.Users.LinkGoogle(ctx, u); err != nil {
			return nil, err
		}
		return FromUser(u), nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}

	u = &model.User{
		Email:     email,
		Name:      optional(p.DisplayName),
		Role:      model.RoleVolunteer,
		Provider:  model.ProviderGoogle,
		GoogleID:  &p.ExternalID,
		AvatarURL: optional(p.AvatarURL),
	}
	if err := r.Users.Create(ctx, u); err != nil {
		// A concurrent callback for the same profile won the insert.
		if errors.Is(err, repository.ErrGoogleIDExists) {
			if existing, gerr := r.Users.GetByGoogleID(ctx, p.ExternalID); gerr == nil {
				return FromUser(existing), nil
			}
		}
		return nil, err
	}
	return FromUser(u), nil
}

// linkGoogle attaches the profile to an existing account.  Avatar and name
// are only filled in when empty.
func linkGoogle(u *model.User, p Profile) {
	if u.GoogleID == nil {
		id := p.ExternalID
		u.GoogleID = &id
	}
	switch u.Provider {
	case model.ProviderLocal:
		u.Provider = model.ProviderLocalGoogle
	case model.ProviderLocalGoogle:
	default:
		u.Provider = model.ProviderGoogle
	}
	if u.AvatarURL == nil || *u.AvatarURL == "" {
		u.AvatarURL = optional(p.AvatarURL)
	}
	if u.Name == nil || *u.Name == "" {
		u.Name = optional(p.DisplayName)
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
