package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/volunteer-map/internal/apierr"
)

// MsgInternal is the only message a client sees for unexpected failures.
const MsgInternal = "Internal Server Error"

// NewHTTPErrorHandler renders errors as {success:false, message, details?}.
// *apierr.Error and echo's own errors keep their status; anything else is
// logged and reported as a bare 500.
func NewHTTPErrorHandler(log *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		body := envelope{Success: false}
		status := http.StatusInternalServerError

		var he *echo.HTTPError
		if e, ok := apierr.As(err); ok {
			status, body.Message, body.Details = e.Status, e.Message, e.Details
		} else if errors.As(err, &he) {
			status = he.Code
			if msg, ok := he.Message.(string); ok {
				body.Message = msg
			} else {
				body.Message = http.StatusText(he.Code)
			}
		}
		if status >= http.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.Error(err))
			body.Message, body.Details = MsgInternal, nil
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			log.Warn("write error response", zap.Error(werr))
		}
	}
}
