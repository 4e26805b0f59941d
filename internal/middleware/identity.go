package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// CurrentUserID returns the authenticated user's id as stored by JWTAuth.
// The subject claim may arrive as a JSON number or a decimal string.
func CurrentUserID(c echo.Context) (uint64, bool) {
	switch v := c.Get(ContextUserID).(type) {
	case uint64:
		return v, v > 0
	case int:
		return uint64(v), v > 0
	case int64:
		return uint64(v), v > 0
	case float64:
		if v <= 0 || v != float64(uint64(v)) {
			return 0, false
		}
		return uint64(v), true
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		return n, err == nil && n > 0
	}
	return 0, false
}

// userKey identifies the caller for rate limiting; unauthenticated callers
// share the "anon" bucket of their IP.
func userKey(c echo.Context) string {
	if id, ok := CurrentUserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
