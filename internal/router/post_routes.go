package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/volunteer-map/internal/middleware"
)

// registerPosts mounts /posts with its comment and support sub-resources.
// Every /:id route loads the post first so gates and handlers share it.
func registerPosts(api *echo.Group, d Deps) {
	requireAuth := middleware.RequireAuth(d.Codec, d.Bearer)
	optionalAuth := middleware.OptionalAuth(d.Codec, d.Bearer)
	load := middleware.LoadPost(d.Posts)
	ownerOrAdmin := middleware.RequirePostOwnerOrAdmin()
	cache := middleware.NewRedisCache(d.Cache, d.Redis, d.Logger)

	g := api.Group("/posts", middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Logger))
	g.GET("", d.Post.List, cache)
	g.GET("/mine", d.Post.Mine, requireAuth)
	g.POST("", d.Post.Create, requireAuth)
	g.GET("/:id", d.Post.Get, optionalAuth, load)
	g.PUT("/:id", d.Post.Update, requireAuth, load, ownerOrAdmin)
	g.DELETE("/:id", d.Post.Delete, requireAuth, load, ownerOrAdmin)

	c := g.Group("/:id/comments")
	c.GET("", d.Comment.List, optionalAuth, load)
	c.POST("", d.Comment.Create, requireAuth, load)
	c.PUT("/:commentId", d.Comment.Update, requireAuth, load)
	c.DELETE("/:commentId", d.Comment.Delete, requireAuth, load)

	s := g.Group("/:id/support")
	s.GET("/public", d.Support.Public, cache, load)
	s.GET("/summary", d.Support.Summary, load)
	s.GET("/mine", d.Support.Mine, requireAuth, load)
	s.POST("", d.Support.Create, requireAuth, load)
	s.GET("", d.Support.List, requireAuth, load, ownerOrAdmin)
	s.PATCH("/:commitId/confirm", d.Support.Confirm, requireAuth, load, ownerOrAdmin)
	s.PATCH("/:commitId/cancel", d.Support.Cancel, requireAuth, load)
}

func registerAdmin(api *echo.Group, d Deps) {
	g := api.Group("/admin", middleware.RequireAuth(d.Codec, d.Bearer), middleware.RequireAdmin())
	g.GET("/dashboard", d.Admin.Dashboard)
	g.GET("/posts", d.Admin.ListPosts)
	g.PATCH("/posts/:id/approve", d.Admin.Approve)
	g.PATCH("/posts/:id/reject", d.Admin.Reject)
}
