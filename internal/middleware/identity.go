package middleware

// identity.go holds helpers shared across middleware files: extracting
// the authenticated user's identifier for per-user rate limit and cache
// keys. Anonymous requests get the "guest" identity.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// userID returns the authenticated user's id from context as a string,
// or "guest" when unauthenticated. JWTAuth stores the raw sub claim,
// which arrives as float64 from JSON decoding; issued-locally tokens
// may carry it as a number or string depending on the signer.
func userID(c echo.Context) string {
	switch v := c.Get("user_id").(type) {
	case float64:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case string:
		if v != "" {
			return v
		}
	}
	return "guest"
}
