package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/volunteer-map/internal/middleware"
	"github.com/iliyamo/volunteer-map/internal/service"
)

// PostHandler serves /posts.  Routes addressing one post run behind
// middleware.LoadPost.
type PostHandler struct {
	Posts *service.PostService
}

type postReq struct {
	Title        *string   `json:"title"`
	Description  *string   `json:"description"`
	Address      *string   `json:"address"`
	Lat          flexFloat `json:"lat"`
	Lng          flexFloat `json:"lng"`
	NeedTags     flexTags  `json:"needTags"`
	Status       *string   `json:"status"`
	ContactName  *string   `json:"contactName"`
	ContactPhone *string   `json:"contactPhone"`
}

func (r postReq) input() service.PostInput {
	return service.PostInput{
		Title:        r.Title,
		Description:  r.Description,
		Address:      r.Address,
		Lat:          r.Lat.ptr(),
		Lng:          r.Lng.ptr(),
		NeedTags:     r.NeedTags.value(),
		Status:       r.Status,
		ContactName:  r.ContactName,
		ContactPhone: r.ContactPhone,
	}
}

// List is the public map listing.
func (h *PostHandler) List(c echo.Context) error {
	page, err := h.Posts.ListPublic(c.Request().Context(), service.PublicQuery{
		Q:        c.QueryParam("q"),
		Status:   c.QueryParam("status"),
		Tag:      c.QueryParam("tag"),
		Page:     queryInt(c, "page"),
		Limit:    queryInt(c, "limit"),
		Lat:      queryFloat(c, "lat"),
		Lng:      queryFloat(c, "lng"),
		RadiusKM: queryFloat(c, "radiusKm"),
	})
	if err != nil {
		return err
	}
	return ok(c, page)
}

// Mine lists the caller's own posts.
func (h *PostHandler) Mine(c echo.Context) error {
	items, err := h.Posts.ListMine(c.Request().Context(), middleware.CurrentIdentity(c).ID)
	if err != nil {
		return err
	}
	return ok(c, echo.Map{"items": items})
}

func (h *PostHandler) Get(c echo.Context) error {
	v, err := h.Posts.Get(middleware.CurrentPost(c), middleware.CurrentIdentity(c))
	if err != nil {
		return err
	}
	return ok(c, echo.Map{"post": v})
}

func (h *PostHandler) Create(c echo.Context) error {
	var req postReq
	if err := bind(c, &req); err != nil {
		return err
	}
	v, err := h.Posts.Create(c.Request().Context(), middleware.CurrentIdentity(c).ID, req.input())
	if err != nil {
		return err
	}
	return created(c, echo.Map{"post": v, "message": "Post created and waiting for approval"})
}

func (h *PostHandler) Update(c echo.Context) error {
	var req postReq
	if err := bind(c, &req); err != nil {
		return err
	}
	v, err := h.Posts.Update(c.Request().Context(), middleware.CurrentPost(c), req.input())
	if err != nil {
		return err
	}
	return ok(c, echo.Map{"post": v, "message": "Post updated and waiting for approval again"})
}

func (h *PostHandler) Delete(c echo.Context) error {
	if err := h.Posts.Delete(c.Request().Context(), middleware.CurrentPost(c)); err != nil {
		return err
	}
	return ok(c, echo.Map{"message": "Deleted"})
}
