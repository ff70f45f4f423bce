package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/volunteer-map/internal/geocode"
)

// GeoHandler proxies address lookups.
type GeoHandler struct {
	Geocoder *geocode.Client
}

func (h *GeoHandler) Search(c echo.Context) error {
	items, err := h.Geocoder.Search(c.Request().Context(), c.QueryParam("q"))
	if err != nil {
		return err
	}
	return ok(c, echo.Map{"items": items})
}

// Reverse answers {item: null} for unusable coordinates.
func (h *GeoHandler) Reverse(c echo.Context) error {
	lat, lng := queryFloat(c, "lat"), queryFloat(c, "lng")
	if lat == nil || lng == nil {
		return ok(c, echo.Map{"item": nil})
	}
	item, err := h.Geocoder.Reverse(c.Request().Context(), *lat, *lng)
	if err != nil {
		return err
	}
	return ok(c, echo.Map{"item": item})
}

