package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/volunteer-map/internal/middleware"
	"github.com/iliyamo/volunteer-map/internal/service"
)

// CommentHandler serves /posts/:id/comments.
type CommentHandler struct {
	Comments *service.CommentService
}

type commentReq struct {
	Content  string `json:"content"`
	ParentID flexID `json:"parentId"`
}

func (h *CommentHandler) List(c echo.Context) error {
	page, err := h.Comments.List(c.Request().Context(), middleware.CurrentPost(c), middleware.CurrentIdentity(c), queryInt(c, "limit"))
	if err != nil {
		return err
	}
	return ok(c, page)
}

func (h *CommentHandler) Create(c echo.Context) error {
	var req commentReq
	if err := bind(c, &req); err != nil {
		return err
	}
	var parent *uint64
	if req.ParentID.Set {
		parent = &req.ParentID.Value
	}
	node, err := h.Comments.Create(c.Request().Context(), middleware.CurrentPost(c), middleware.CurrentIdentity(c), req.Content, parent)
	if err != nil {
		return err
	}
	return created(c, echo.Map{"comment": node})
}

func (h *CommentHandler) Update(c echo.Context) error {
	id, err := pathID(c, "commentId")
	if err != nil {
		return err
	}
	var req commentReq
	if err := bind(c, &req); err != nil {
		return err
	}
	node, err := h.Comments.Update(c.Request().Context(), middleware.CurrentPost(c), middleware.CurrentIdentity(c), id, req.Content)
	if err != nil {
		return err
	}
	return ok(c, echo.Map{"comment": node})
}

func (h *CommentHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "commentId")
	if err != nil {
		return err
	}
	if err := h.Comments.Delete(c.Request().Context(), middleware.CurrentPost(c), middleware.CurrentIdentity(c), id); err != nil {
		return err
	}
	return ok(c, echo.Map{"message": "Deleted"})
}
