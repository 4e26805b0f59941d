// Package router registers the HTTP routes and their middleware.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/cinema-booking/internal/handler"
	"github.com/iliyamo/cinema-booking/internal/middleware"
)

// Deps carries everything the routes need.  Cache and RateLimit may be nil;
// they are usually the Redis-backed middlewares and degrade to no-ops
// without Redis.
type Deps struct {
	Health  *handler.HealthHandler
	Public  *handler.PublicHandler
	Booking *handler.BookingHandler
	Admin   *handler.AdminHandler

	JWTSecret string
	Gatherer  prometheus.Gatherer
	Cache     echo.MiddlewareFunc
	RateLimit echo.MiddlewareFunc
}

// Register mounts every route on e.
func Register(e *echo.Echo, d Deps) {
	RegisterOps(e, d)
	RegisterPublic(e, d)
	RegisterCustomer(e, d)
	RegisterAdmin(e, d)
}

// RegisterOps exposes the health probe and the Prometheus scrape endpoint.
func RegisterOps(e *echo.Echo, d Deps) {
	e.GET("/healthz", d.Health.Health)
	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}

// RegisterPublic registers the unauthenticated catalog routes.  Search and
// detail go through the response cache; the seat map never does since it
// carries live holds.
func RegisterPublic(e *echo.Echo, d Deps) {
	cache := orPassThrough(d.Cache)
	e.GET("/v1/screenings", d.Public.SearchScreenings, cache)
	e.GET("/v1/screenings/:id", d.Public.GetScreening, cache)
	e.GET("/v1/screenings/:id/seats", d.Public.GetSeatMap)
	e.GET("/v1/booking/settings", d.Public.Settings)
}

// RegisterCustomer registers the routes that require the CUSTOMER role.
// Holds and purchases are rate limited per user.
func RegisterCustomer(e *echo.Echo, d Deps) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(middleware.RoleCustomer),
	)
	limit := orPassThrough(d.RateLimit)
	g.POST("/screenings/:id/hold", d.Booking.HoldSeats, limit)
	g.DELETE("/screenings/:id/hold", d.Booking.ReleaseHolds)
	g.POST("/screenings/:id/purchase", d.Booking.Purchase, limit)
	g.GET("/tickets/:id", d.Booking.GetTicket)
	g.GET("/my-tickets", d.Booking.ListMyTickets)
	g.POST("/tickets/:id/cancel", d.Booking.CancelTicket)
}

// RegisterAdmin registers the operator routes under /v1/admin.
func RegisterAdmin(e *echo.Echo, d Deps) {
	g := e.Group(
		"/v1/admin",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(middleware.RoleAdmin),
	)
	g.POST("/screenings", d.Admin.CreateScreening)
	g.PATCH("/screenings/:id/status", d.Admin.UpdateScreeningStatus)
	g.PATCH("/rooms/:id/status", d.Admin.UpdateRoomStatus)
	g.GET("/screenings/:id/tickets", d.Admin.ListScreeningTickets)
	g.POST("/tickets/:id/cancel", d.Admin.CancelTicket)
}

func orPassThrough(mw echo.MiddlewareFunc) echo.MiddlewareFunc {
	if mw == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return mw
}
