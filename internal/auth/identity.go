// Package auth resolves inbound credentials to a canonical user identity
// and holds the authorization gates used in front of business endpoints.
//
// Three resolvers exist, one per credential kind, and each route picks the
// one it needs:
//
//	LocalResolver   login (email or name) + password
//	BearerResolver  verified access-token claims
//	OAuthResolver   Google profile
package auth

import (
	"context"

	"github.com/iliyamo/volunteer-map/internal/model"
	"github.com/iliyamo/volunteer-map/internal/utils"
)

// Identity is the resolved caller of a request.
type Identity struct {
	ID        uint64
	Email     string
	Name      *string
	Role      string
	AvatarURL *string
	Provider  string
}

// Resolver turns a credential of type C into an Identity or fails with an
// *apierr.Error (401).  A nil Identity with a nil error means "anonymous".
type Resolver[C any] interface {
	Resolve(ctx context.Context, cred C) (*Identity, error)
}

var (
	_ Resolver[LocalCredentials]    = (*LocalResolver)(nil)
	_ Resolver[*utils.AccessClaims] = (*BearerResolver)(nil)
	_ Resolver[Profile]             = (*OAuthResolver)(nil)
)

// FromUser builds the identity of a stored user.
func FromUser(u *model.User) *Identity {
	return &Identity{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		AvatarURL: u.AvatarURL,
		Provider:  u.Provider,
	}
}

// IsAdmin reports whether the identity carries the ADMIN role.
func (i *Identity) IsAdmin() bool { return i != nil && i.Role == model.RoleAdmin }

// Subject returns what the token codec encodes for this identity.
func (i *Identity) Subject() utils.TokenSubject {
	s := utils.TokenSubject{ID: i.ID, Email: i.Email, Role: i.Role}
	if i.Name != nil {
		s.Name = *i.Name
	}
	return s
}

// Public is the client-facing user shape.
func (i *Identity) Public() model.PublicUser {
	return model.PublicUser{
		ID:        i.ID,
		Email:     i.Email,
		Name:      i.Name,
		Role:      i.Role,
		AvatarURL: i.AvatarURL,
		Provider:  i.Provider,
	}
}
