package middleware

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/volunteer-map/internal/apierr"
	"github.com/iliyamo/volunteer-map/internal/auth"
	"github.com/iliyamo/volunteer-map/internal/utils"
)

// Bearer failure messages.
const (
	MsgUnauthorized = "Unauthorized"
	MsgTokenExpired = "access token expired"
	MsgTokenInvalid = "invalid access token"
)

// RequireAuth validates the Bearer access token, resolves it to the live
// user and stores the identity in the context.  Requests without a valid
// token, or whose user no longer exists, fail with 401.
func RequireAuth(codec *utils.TokenCodec, users auth.Resolver[*utils.AccessClaims]) echo.MiddlewareFunc {
	return bearer(codec, users, true)
}

// OptionalAuth resolves the caller when a valid Bearer token is present and
// otherwise lets the request through anonymously.
func OptionalAuth(codec *utils.TokenCodec, users auth.Resolver[*utils.AccessClaims]) echo.MiddlewareFunc {
	return bearer(codec, users, false)
}

func bearer(codec *utils.TokenCodec, users auth.Resolver[*utils.AccessClaims], required bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				if required {
					return apierr.Unauthorized(MsgUnauthorized)
				}
				return next(c)
			}

			claims, err := codec.VerifyAccess(raw)
			if err != nil {
				if !required {
					return next(c)
				}
				if errors.Is(err, utils.ErrTokenExpired) {
					return apierr.Unauthorized(MsgTokenExpired)
				}
				return apierr.Unauthorized(MsgTokenInvalid)
			}

			id, err := users.Resolve(c.Request().Context(), claims)
			if err != nil {
				return err
			}
			if id == nil && required {
				return apierr.Unauthorized(MsgUnauthorized)
			}
			if id != nil {
				SetIdentity(c, id)
			}
			return next(c)
		}
	}
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	raw := strings.TrimSpace(header[len(prefix):])
	return raw, raw != ""
}
