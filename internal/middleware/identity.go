package middleware

// identity.go holds the context accessors shared by the middleware in this
// package and by the handlers.  The bearer middleware stores the resolved
// *auth.Identity, LoadPost stores the *model.Post addressed by :id.

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/volunteer-map/internal/auth"
	"github.com/iliyamo/volunteer-map/internal/model"
)

const (
	identityKey = "identity"
	postKey     = "post"
)

// CurrentIdentity returns the caller resolved by RequireAuth or OptionalAuth,
// or nil for anonymous requests.
func CurrentIdentity(c echo.Context) *auth.Identity {
	id, _ := c.Get(identityKey).(*auth.Identity)
	return id
}

// SetIdentity attaches id to the request.
func SetIdentity(c echo.Context, id *auth.Identity) { c.Set(identityKey, id) }

// CurrentPost returns the post loaded by LoadPost.
func CurrentPost(c echo.Context) *model.Post {
	p, _ := c.Get(postKey).(*model.Post)
	return p
}

// userID is the caller id used in rate-limit keys and request logs.  It
// returns "anon" when no user is authenticated.
func userID(c echo.Context) string {
	if id := CurrentIdentity(c); id != nil {
		return strconv.FormatUint(id.ID, 10)
	}
	return "anon"
}
