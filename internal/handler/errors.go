package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/logger"
	"github.com/iliyamo/cinema-booking/internal/service"
)

// respondError translates a service error into its HTTP response.  Seats
// named by a conflict are reported under seatsKey ("unavailable" for holds,
// "contested" for purchases).
func respondError(c echo.Context, err error, seatsKey string) error {
	e := service.AsError(err)
	body := echo.Map{"error": e.Message}
	if e.Reason != "" {
		body["reason"] = e.Reason
	}

	switch e.Kind {
	case service.KindNotFound:
		return c.JSON(http.StatusNotFound, body)
	case service.KindValidation:
		return c.JSON(http.StatusBadRequest, body)
	case service.KindConflict:
		if len(e.Seats) > 0 && seatsKey != "" {
			body[seatsKey] = e.Seats
		}
		if len(e.Overlaps) > 0 {
			overlaps := make([]ScreeningDTO, 0, len(e.Overlaps))
			for i := range e.Overlaps {
				overlaps = append(overlaps, toScreeningDTO(&e.Overlaps[i]))
			}
			body["overlaps"] = overlaps
		}
		return c.JSON(http.StatusConflict, body)
	}

	// internal details stay in the log
	logger.Error("request failed",
		zap.String("method", c.Request().Method),
		zap.String("route", c.Path()),
		zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}
