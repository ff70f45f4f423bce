package middleware

import (
	"context"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/volunteer-map/internal/apierr"
	"github.com/iliyamo/volunteer-map/internal/auth"
	"github.com/iliyamo/volunteer-map/internal/model"
)

// PostLoader fetches a post by id, failing with 404 when it does not exist.
type PostLoader interface {
	Load(ctx context.Context, id uint64) (*model.Post, error)
}

// LoadPost reads the :id path parameter and stores the post for the
// handlers and gates that follow.
func LoadPost(posts PostLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := strconv.ParseUint(c.Param("id"), 10, 64)
			if err != nil || id == 0 {
				return apierr.BadRequest("invalid post id")
			}
			p, err := posts.Load(c.Request().Context(), id)
			if err != nil {
				return err
			}
			c.Set(postKey, p)
			return next(c)
		}
	}
}

// RequirePostOwnerOrAdmin allows the author of the loaded post or an admin.
func RequirePostOwnerOrAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var owner *uint64
			if p := CurrentPost(c); p != nil {
				owner = &p.UserID
			}
			if err := auth.RequireOwnerOrAdmin(CurrentIdentity(c), owner); err != nil {
				return err
			}
			return next(c)
		}
	}
}
