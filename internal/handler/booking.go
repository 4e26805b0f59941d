package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/service"
)

// BookingHandler serves the customer endpoints.  JWTAuth and the CUSTOMER
// role check run before every method; a missing user id still answers 401.
type BookingHandler struct {
	holds     Holds
	purchases Purchases
	cancels   Cancellations
	tickets   TicketQueries
}

func NewBookingHandler(holds Holds, purchases Purchases, cancels Cancellations, tickets TicketQueries) *BookingHandler {
	if holds == nil || purchases == nil || cancels == nil || tickets == nil {
		panic("nil service passed to NewBookingHandler")
	}
	return &BookingHandler{holds: holds, purchases: purchases, cancels: cancels, tickets: tickets}
}

// HoldSeats handles POST /v1/screenings/:id/hold with {"seat_ids": [...]}.
// It answers 201 with the held seats and the authoritative expiry, or 409
// listing the seats that are not free.
func (h *BookingHandler) HoldSeats(c echo.Context) error {
	if _, ok := middleware.CurrentUserID(c); !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid screening id")
	}
	var req holdRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	res, err := h.holds.Reserve(c.Request().Context(), id, req.SeatIDs)
	if err != nil {
		return respondError(c, err, "unavailable")
	}
	return c.JSON(http.StatusCreated, holdResponse{
		ScreeningID: res.ScreeningID,
		Held:        res.Seats,
		ExpiresAt:   res.ExpiresAt,
		TTLSeconds:  int64(res.TTL / time.Second),
	})
}

// ReleaseHolds handles DELETE /v1/screenings/:id/hold.  Seats that are not
// currently held are skipped; the response lists the ones released.
func (h *BookingHandler) ReleaseHolds(c echo.Context) error {
	if _, ok := middleware.CurrentUserID(c); !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid screening id")
	}
	var req holdRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	released, err := h.holds.Release(c.Request().Context(), id, req.SeatIDs)
	if err != nil {
		return respondError(c, err, "")
	}
	if released == nil {
		released = []string{}
	}
	return c.JSON(http.StatusOK, echo.Map{"screening_id": id, "released": released})
}

// Purchase handles POST /v1/screenings/:id/purchase.  The payment gateway's
// verdict arrives as payment_confirmed.  A seat taken by a concurrent buyer
// answers 409 with the seat under "contested".
func (h *BookingHandler) Purchase(c echo.Context) error {
	uid, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c)
	if !ok {
		return badRequest(c, "invalid screening id")
	}
	var req purchaseRequest
	if ok, err := bindAndValidate(c, &req); !ok {
		return err
	}
	tickets, err := h.purchases.Purchase(c.Request().Context(), service.PurchaseRequest{
		ScreeningID:      id,
		Seats:            req.SeatIDs,
		Customer:         model.CustomerInfo{Name: req.Customer.Name, Email: req.Customer.Email, Phone: req.Customer.Phone},
		TicketType:       req.TicketType,
		PaymentConfirmed: req.PaymentConfirmed,
		Granularity:      req.Granularity,
		UserID:           &uid,
	})
	if err != nil {
		return respondError(c, err, "contested")
	}
	resp := purchaseResponse{Tickets: toTicketDTOs(tickets)}
	for _, t := range tickets {
		resp.TotalCents += t.PricePaidCents
	}
	return c.JSON(http.StatusCreated, resp)
}

// GetTicket handles GET /v1/tickets/:id.  Other customers' tickets read as
// not found.
func (h *BookingHandler) GetTicket(c echo.Context) error {
	uid, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	ticketID, ok := ticketParam(c)
	if !ok {
		return badRequest(c, "invalid ticket id")
	}
	t, err := h.tickets.GetTicket(c.Request().Context(), ticketID, &uid)
	if err != nil {
		return respondError(c, err, "")
	}
	return c.JSON(http.StatusOK, toTicketDTO(t))
}

// ListMyTickets handles GET /v1/my-tickets?page=&page_size=.
func (h *BookingHandler) ListMyTickets(c echo.Context) error {
	uid, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	var page, pageSize int
	if err := echo.QueryParamsBinder(c).Int("page", &page).Int("page_size", &pageSize).BindError(); err != nil {
		return badRequest(c, "invalid query parameters")
	}
	tickets, err := h.tickets.ListMyTickets(c.Request().Context(), uid, page, pageSize)
	if err != nil {
		return respondError(c, err, "")
	}
	return c.JSON(http.StatusOK, echo.Map{"tickets": toTicketDTOs(tickets)})
}

// CancelTicket handles POST /v1/tickets/:id/cancel.  It answers 200 with the
// cancelled ticket, or 409 with a reason (already_cancelled,
// not_cancellable or too_close_to_start).
func (h *BookingHandler) CancelTicket(c echo.Context) error {
	uid, ok := middleware.CurrentUserID(c)
	if !ok {
		return unauthorized(c)
	}
	ticketID, ok := ticketParam(c)
	if !ok {
		return badRequest(c, "invalid ticket id")
	}
	t, err := h.cancels.Cancel(c.Request().Context(), service.CancelRequest{TicketID: ticketID, UserID: &uid})
	if err != nil {
		return respondError(c, err, "")
	}
	return c.JSON(http.StatusOK, toTicketDTO(t))
}

func ticketParam(c echo.Context) (string, bool) {
	id := c.Param("id")
	_, err := uuid.Parse(id)
	return id, err == nil
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}
