package middleware

// identity.go holds helpers that read the authenticated user placed in the
// Echo context by JWTAuth.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// UserID returns the authenticated user id, false when the request is
// anonymous.
func UserID(c echo.Context) (uint64, bool) {
	id, ok := parseSubject(c.Get("user_id"))
	return id, ok && id > 0
}

// userKey is the user component of rate limit keys; "anon" without a token.
func userKey(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}

// parseSubject accepts the shapes a "sub" claim arrives in after JSON
// decoding.
func parseSubject(v interface{}) (uint64, bool) {
	switch t := v.(type) {
	case uint64:
		return t, true
	case int:
		return uint64(t), t >= 0
	case int64:
		return uint64(t), t >= 0
	case float64:
		return uint64(t), t >= 0 && t == float64(uint64(t))
	case string:
		n, err := strconv.ParseUint(t, 10, 64)
		return n, err == nil
	}
	return 0, false
}
