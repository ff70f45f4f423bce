package auth

import (
	"context"
	"strings"

	"github.com/iliyamo/volunteer-map/internal/apierr"
	"github.com/iliyamo/volunteer-map/internal/model"
	"github.com/iliyamo/volunteer-map/internal/utils"
)

// Failure messages of the local strategy.
const (
	MsgInvalidCredentials = "invalid credentials"
	MsgAmbiguousLogin     = "ambiguous login, use email"
	MsgUseGoogle          = "this account signs in with Google, use Google sign-in"
)

// LocalCredentials is a login string (email or display name) and password.
type LocalCredentials struct {
	Login    string
	Password string
}

// LoginFinder looks up login candidates by email or name.
type LoginFinder interface {
	FindByLogin(ctx context.Context, login string) ([]model.User, error)
}

// LocalResolver authenticates email-or-name + password.
type LocalResolver struct {
	Users LoginFinder
}

// Resolve implements Resolver.  An exact email match wins over name matches;
// several users sharing the name with no email match is ambiguous.
func (r *LocalResolver) Resolve(ctx context.Context, cred LocalCredentials) (*Identity, error) {
	login := strings.ToLower(strings.TrimSpace(cred.Login))
	if login == "" || cred.Password == "" {
		return nil, apierr.Unauthorized(MsgInvalidCredentials)
	}
	candidates, err := r.Users.FindByLogin(ctx, login)
	if err != nil {
		return nil, err
	}

	var (
		byEmail *model.User
		byName  []*model.User
	)
	for i := range candidates {
		u := &candidates[i]
		switch {
		case strings.EqualFold(u.Email, login):
			byEmail = u
		case u.Name != nil && strings.EqualFold(strings.TrimSpace(*u.Name), login):
			byName = append(byName, u)
		}
	}

	user := byEmail
	if user == nil {
		switch len(byName) {
		case 0:
			return nil, apierr.Unauthorized(MsgInvalidCredentials)
		case 1:
			user = byName[0]
		default:
			return nil, apierr.Unauthorized(MsgAmbiguousLogin)
		}
	}

	if !user.HasPassword() {
		return nil, apierr.Unauthorized(MsgUseGoogle)
	}
	if !utils.VerifyPassword(*user.PasswordHash, cred.Password) {
		return nil, apierr.Unauthorized(MsgInvalidCredentials)
	}
	return FromUser(user), nil
}
