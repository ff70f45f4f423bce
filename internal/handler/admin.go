package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/volunteer-map/internal/middleware"
	"github.com/iliyamo/volunteer-map/internal/service"
)

// AdminHandler serves /admin.  The router restricts it to ADMIN.
type AdminHandler struct {
	Admin *service.AdminService
}

func (h *AdminHandler) Dashboard(c echo.Context) error {
	stats, err := h.Admin.Dashboard(c.Request().Context())
	if err != nil {
		return err
	}
	return ok(c, stats)
}

func (h *AdminHandler) ListPosts(c echo.Context) error {
	items, err := h.Admin.ListPosts(c.Request().Context(), service.AdminQuery{
		ApprovalStatus: c.QueryParam("approvalStatus"),
		Status:         c.QueryParam("status"),
		Q:              c.QueryParam("q"),
	})
	if err != nil {
		return err
	}
	return ok(c, echo.Map{"items": items})
}

func (h *AdminHandler) Approve(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	v, err := h.Admin.Approve(c.Request().Context(), id, middleware.CurrentIdentity(c).ID)
	if err != nil {
		return err
	}
	return ok(c, echo.Map{"post": v, "message": "Post approved"})
}

func (h *AdminHandler) Reject(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := bind(c, &req); err != nil {
		return err
	}
	v, err := h.Admin.Reject(c.Request().Context(), id, middleware.CurrentIdentity(c).ID, req.Reason)
	if err != nil {
		return err
	}
	return ok(c, echo.Map{"post": v, "message": "Post rejected"})
}
