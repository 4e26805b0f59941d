package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-booking/internal/handler"
	"github.com/iliyamo/cinema-booking/internal/metrics"
	"github.com/iliyamo/cinema-booking/internal/middleware"
	"github.com/iliyamo/cinema-booking/internal/utils"
)

const secret = "router-secret"

// Embedding the interfaces satisfies them; only the methods a test reaches
// need real bodies.
type (
	catalog   struct{ handler.Catalog }
	seatMaps  struct{ handler.SeatMaps }
	holds     struct{ handler.Holds }
	purchases struct{ handler.Purchases }
	cancels   struct{ handler.Cancellations }
	tickets   struct{ handler.TicketQueries }
)

func (holds) TTL() time.Duration      { return 10 * time.Minute }
func (cancels) Window() time.Duration { return time.Hour }

func newRouter(t *testing.T) *echo.Echo {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.NewWithRegistry(reg)
	m.Hold(metrics.OutcomeSuccess)

	e := echo.New()
	e.Validator = handler.NewValidator()
	Register(e, Deps{
		Health:    handler.NewHealthHandler(nil),
		Public:    handler.NewPublicHandler(catalog{}, seatMaps{}, holds{}, cancels{}, nil),
		Booking:   handler.NewBookingHandler(holds{}, purchases{}, cancels{}, tickets{}),
		Admin:     handler.NewAdminHandler(catalog{}, tickets{}, cancels{}),
		JWTSecret: secret,
		Gatherer:  reg,
	})
	return e
}

func call(e *echo.Echo, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func token(t *testing.T, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, 42, role, time.Hour, time.Now())
	require.NoError(t, err)
	return tok.Token
}

func TestOpsAndPublicRoutes(t *testing.T) {
	e := newRouter(t)

	rec := call(e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = call(e, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `booking_holds_total{outcome="success"} 1`)

	rec = call(e, http.MethodGet, "/v1/booking/settings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"hold_ttl_seconds":600,"cancel_window_seconds":3600,"timezone":"UTC"}`, rec.Body.String())
}

func TestProtectedRoutesRequireRole(t *testing.T) {
	e := newRouter(t)
	customer, admin := token(t, middleware.RoleCustomer), token(t, middleware.RoleAdmin)

	customerRoutes := [][2]string{
		{http.MethodPost, "/v1/screenings/3/hold"},
		{http.MethodDelete, "/v1/screenings/3/hold"},
		{http.MethodPost, "/v1/screenings/3/purchase"},
		{http.MethodGet, "/v1/my-tickets"},
		{http.MethodPost, "/v1/tickets/x/cancel"},
	}
	for _, r := range customerRoutes {
		assert.Equal(t, http.StatusUnauthorized, call(e, r[0], r[1], "").Code, r[1])
		assert.Equal(t, http.StatusForbidden, call(e, r[0], r[1], admin).Code, r[1])
	}

	adminRoutes := [][2]string{
		{http.MethodPost, "/v1/admin/screenings"},
		{http.MethodPatch, "/v1/admin/screenings/3/status"},
		{http.MethodPatch, "/v1/admin/rooms/1/status"},
		{http.MethodGet, "/v1/admin/screenings/3/tickets"},
		{http.MethodPost, "/v1/admin/tickets/x/cancel"},
	}
	for _, r := range adminRoutes {
		assert.Equal(t, http.StatusUnauthorized, call(e, r[0], r[1], "").Code, r[1])
		assert.Equal(t, http.StatusForbidden, call(e, r[0], r[1], customer).Code, r[1])
	}

	// past auth the handlers run; {} fails validation before any service call
	assert.Equal(t, http.StatusBadRequest, call(e, http.MethodPost, "/v1/screenings/3/hold", customer).Code)
	assert.Equal(t, http.StatusBadRequest, call(e, http.MethodPost, "/v1/admin/screenings", admin).Code)
	assert.Equal(t, http.StatusBadRequest, call(e, http.MethodPost, "/v1/tickets/x/cancel", customer).Code)
}
