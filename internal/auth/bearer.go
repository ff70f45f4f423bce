package auth

import (
	"context"
	"errors"

	"github.com/iliyamo/volunteer-map/internal/model"
	"github.com/iliyamo/volunteer-map/internal/repository"
	"github.com/iliyamo/volunteer-map/internal/utils"
)

// UserGetter loads a user by primary key.
type UserGetter interface {
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

// BearerResolver maps verified access-token claims to the live user row so
// role and avatar come from the database, not from the token.
type BearerResolver struct {
	Users UserGetter
}

// Resolve implements Resolver.  A bad subject or a deleted user yields no
// identity and no error.
func (r *BearerResolver) Resolve(ctx context.Context, claims *utils.AccessClaims) (*Identity, error) {
	if claims == nil {
		return nil, nil
	}
	id, ok := claims.UserID()
	if !ok {
		return nil, nil
	}
	u, err := r.Users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return FromUser(u), nil
}
