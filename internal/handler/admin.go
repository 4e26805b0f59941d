package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/cinema-booking/internal/logger"
	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/service"
)

// AdminHandler serves the operator endpoints under /v1/admin.
type AdminHandler struct {
	catalog Catalog
	tickets TicketQueries
	cancels Cancellations
}

func NewAdminHandler(catalog Catalog, tickets TicketQueries, cancels Cancellations) *AdminHandler {
	if catalog == nil || tickets == nil || cancels == nil {
		panic("nil service passed to NewAdminHandler")
	}
	return &AdminHandler{catalog: catalog, tickets: tickets, cancels: cancels}
}

// CreateScreening handles POST /v1/admin/screenings.  A clash with another
// screening in the same room answers 409 with the blocking screenings
// under "overlaps".
func (h *AdminHandler) CreateScreening(c echo.Context) error {
	var req createScreeningRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	sc, err := h.catalog.CreateScreening(c.Request().Context(), req.input())
	if err != nil {
		return respondError(c, err, "")
	}
	logger.Info("screening created", zap.Uint64("screening_id", sc.ID), zap.Uint64("room_id", sc.RoomID),
		zap.String("date", sc.Date), zap.String("start_time", sc.StartTime))
	return c.JSON(http.StatusCreated, toScreeningDTO(sc))
}

// UpdateScreeningStatus handles PATCH /v1/admin/screenings/:id/status with
// {"status": "..."}.  Only transitions allowed by the lifecycle succeed.
func (h *AdminHandler) UpdateScreeningStatus(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid screening id")
	}
	var req statusRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	sc, err := h.catalog.UpdateStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return respondError(c, err, "")
	}
	return c.JSON(http.StatusOK, toScreeningDTO(sc))
}

// UpdateRoomStatus handles PATCH /v1/admin/rooms/:id/status.  A room with
// scheduled future screenings cannot leave service.
func (h *AdminHandler) UpdateRoomStatus(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid room id")
	}
	var req statusRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	room, err := h.catalog.UpdateRoomStatus(c.Request().Context(), id, req.Status)
	if err != nil {
		return respondError(c, err, "")
	}
	return c.JSON(http.StatusOK, toRoomDTO(room))
}

// ListScreeningTickets handles GET /v1/admin/screenings/:id/tickets.
func (h *AdminHandler) ListScreeningTickets(c echo.Context) error {
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid screening id")
	}
	tickets, err := h.tickets.ListScreeningTickets(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err, "")
	}
	return c.JSON(http.StatusOK, echo.Map{"screening_id": id, "tickets": toTicketDTOs(tickets)})
}

// CancelTicket handles POST /v1/admin/tickets/:id/cancel.  It runs the same
// path as a customer cancellation, window included, without the ownership
// check.
func (h *AdminHandler) CancelTicket(c echo.Context) error {
	ticketID, ok := ticketParam(c)
	if !ok {
		return badRequest(c, "invalid ticket id")
	}
	t, err := h.cancels.Cancel(c.Request().Context(), service.CancelRequest{TicketID: ticketID})
	if err != nil {
		return respondError(c, err, "")
	}
	operator, _ := middleware.CurrentUserID(c)
	logger.Info("ticket cancelled by operator", zap.String("ticket_id", t.ID), zap.Uint64("operator_id", operator))
	return c.JSON(http.StatusOK, toTicketDTO(t))
}
