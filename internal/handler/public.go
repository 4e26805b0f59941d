package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/repository"
)

// PublicHandler serves the unauthenticated catalog endpoints: screening
// search and detail, live seat maps and the booking settings clients need
// to render hold countdowns.
type PublicHandler struct {
	catalog Catalog
	seats   SeatMaps
	holds   Holds
	cancels Cancellations
	loc     *time.Location
}

// NewPublicHandler wires the handler.  All services must be non-nil; loc
// defaults to UTC.
func NewPublicHandler(catalog Catalog, seats SeatMaps, holds Holds, cancels Cancellations, loc *time.Location) *PublicHandler {
	if catalog == nil || seats == nil || holds == nil || cancels == nil {
		panic("nil service passed to NewPublicHandler")
	}
	if loc == nil {
		loc = time.UTC
	}
	return &PublicHandler{catalog: catalog, seats: seats, holds: holds, cancels: cancels, loc: loc}
}

// SearchScreenings handles GET /v1/screenings.
//
// Query parameters: date (YYYY-MM-DD), from (YYYY-MM-DD, ignored when date
// is set), movie_id, room_id, q (title substring), status (default
// scheduled, "any" disables the filter), page and page_size.
func (h *PublicHandler) SearchScreenings(c echo.Context) error {
	var q repository.ScreeningSearchQuery
	err := echo.QueryParamsBinder(c).
		String("date", &q.Date).
		String("from", &q.FromDate).
		Uint64("movie_id", &q.MovieID).
		Uint64("room_id", &q.RoomID).
		String("q", &q.Title).
		String("status", &q.Status).
		Int("page", &q.Page).
		Int("page_size", &q.PageSize).
		BindError()
	if err != nil {
		return badRequest(c, "invalid query parameters")
	}
	res, err := h.catalog.Search(c.Request().Context(), q)
	if err != nil {
		return respondError(c, err, "")
	}
	return c.JSON(http.StatusOK, res)
}

// GetScreening handles GET /v1/screenings/:id.
func (h *PublicHandler) GetScreening(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid screening id")
	}
	sc, err := h.catalog.GetScreening(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err, "")
	}
	return c.JSON(http.StatusOK, toScreeningDTO(sc))
}

// GetSeatMap handles GET /v1/screenings/:id/seats.  Seats absent from the
// map are free.  Expired holds already read as free.
func (h *PublicHandler) GetSeatMap(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid screening id")
	}
	seats, err := h.seats.GetSeatMap(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err, "")
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "no-store")
	return c.JSON(http.StatusOK, seatMapResponse{ScreeningID: id, Seats: seats})
}

// Settings handles GET /v1/booking/settings.
func (h *PublicHandler) Settings(c echo.Context) error {
	return c.JSON(http.StatusOK, settingsResponse{
		HoldTTLSeconds:      int64(h.holds.TTL() / time.Second),
		CancelWindowSeconds: int64(h.cancels.Window() / time.Second),
		Timezone:            h.loc.String(),
	})
}

func pathID(c echo.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}
