package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/volunteer-map/internal/middleware"
	"github.com/iliyamo/volunteer-map/internal/service"
)

// SupportHandler serves /posts/:id/support.
type SupportHandler struct {
	Support *service.SupportService
}

type commitReq struct {
	Quantity flexInt `json:"quantity"`
	Message  *string `json:"message"`
}

// Public lists confirmed supporters of the post.
func (h *SupportHandler) Public(c echo.Context) error {
	items, err := h.Support.PublicConfirmed(c.Request().Context(), middleware.CurrentPost(c), queryInt(c, "limit"))
	if err != nil {
		return err
	}
	return ok(c, echo.Map{"items": items})
}

func (h *SupportHandler) Summary(c echo.Context) error {
	sum, err := h.Support.Summary(c.Request().Context(), middleware.CurrentPost(c))
	if err != nil {
		return err
	}
	return ok(c, echo.Map{"summary": sum})
}

func (h *SupportHandler) Mine(c echo.Context) error {
	commit, err := h.Support.GetMine(c.Request().Context(), middleware.CurrentPost(c), middleware.CurrentIdentity(c))
	if err != nil {
		return err
	}
	return ok(c, echo.Map{"commit": commit})
}

func (h *SupportHandler) Create(c echo.Context) error {
	var req commitReq
	if err := bind(c, &req); err != nil {
		return err
	}
	commit, err := h.Support.CreateOrUpdateMine(c.Request().Context(), middleware.CurrentPost(c), middleware.CurrentIdentity(c),
		service.CommitInput{Quantity: req.Quantity.ptr(), Message: req.Message})
	if err != nil {
		return err
	}
	return created(c, echo.Map{"commit": commit, "message": "Support registered"})
}

// List is for the post owner and admins.
func (h *SupportHandler) List(c echo.Context) error {
	items, err := h.Support.List(c.Request().Context(), middleware.CurrentPost(c), middleware.CurrentIdentity(c), c.QueryParam("status"))
	if err != nil {
		return err
	}
	return ok(c, echo.Map{"items": items})
}

func (h *SupportHandler) Confirm(c echo.Context) error {
	id, err := pathID(c, "commitId")
	if err != nil {
		return err
	}
	commit, err := h.Support.Confirm(c.Request().Context(), middleware.CurrentPost(c), middleware.CurrentIdentity(c), id)
	if err != nil {
		return err
	}
	return ok(c, echo.Map{"commit": commit, "message": "Confirmed"})
}

func (h *SupportHandler) Cancel(c echo.Context) error {
	id, err := pathID(c, "commitId")
	if err != nil {
		return err
	}
	commit, err := h.Support.Cancel(c.Request().Context(), middleware.CurrentPost(c), middleware.CurrentIdentity(c), id)
	if err != nil {
		return err
	}
	return ok(c, echo.Map{"commit": commit, "message": "Canceled"})
}
