// Package router wires handlers and middleware into the /api route tree.
package router

import (
	"database/sql"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/volunteer-map/internal/auth"
	"github.com/iliyamo/volunteer-map/internal/config"
	"github.com/iliyamo/volunteer-map/internal/handler"
	"github.com/iliyamo/volunteer-map/internal/middleware"
	"github.com/iliyamo/volunteer-map/internal/utils"
)

// Deps is everything the route tree needs.  Redis may be nil.
type Deps struct {
	Config    config.Config
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	DB        *sql.DB
	Redis     *redis.Client
	Logger    *zap.Logger
	Codec     *utils.TokenCodec
	Bearer    auth.Resolver[*utils.AccessClaims]
	Posts     middleware.PostLoader

	Auth    *handler.AuthHandler
	Post    *handler.PostHandler
	Comment *handler.CommentHandler
	Support *handler.SupportHandler
	Admin   *handler.AdminHandler
	Geo     *handler.GeoHandler
}

// New builds the echo instance with the global middleware stack and every
// route under /api.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.NewHTTPErrorHandler(d.Logger)

	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(d.Logger))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{d.Config.CORSOrigin},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	api := e.Group("/api")
	api.GET("/health", handler.Health(d.DB))
	registerAuth(api, d)
	registerPosts(api, d)
	registerAdmin(api, d)

	geo := api.Group("/geo", middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Logger))
	geo.GET("/search", d.Geo.Search)
	geo.GET("/reverse", d.Geo.Reverse)
	return e
}

func registerAuth(api *echo.Group, d Deps) {
	g := api.Group("/auth", middleware.NewTokenBucket(d.RateLimit.ForAuth(), d.Redis, d.Logger))
	g.POST("/register", d.Auth.Register)
	g.POST("/login", d.Auth.Login)
	g.POST("/refresh", d.Auth.Refresh)
	g.POST("/logout", d.Auth.Logout)
	g.GET("/me", d.Auth.Me, middleware.RequireAuth(d.Codec, d.Bearer))
	g.GET("/google", d.Auth.GoogleStart)
	g.GET("/google/callback", d.Auth.GoogleCallback)
}
