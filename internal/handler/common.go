package handler // handler defines http handlers

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"

	"seatlane/internal/model"
)

// getUserID extracts the user_id from echo.Context and converts it to
// uint64. JWT claims arrive as float64 after JSON decoding, but other
// middleware may store native integer types.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// currentUser rebuilds the request identity from the JWT claims stored
// in context. No database lookup: the token carries id, email and role,
// which is all the fraud scorer and audit entries need.
func currentUser(c echo.Context) *model.User {
	id, err := getUserID(c)
	if err != nil {
		return nil
	}
	u := &model.User{ID: id}
	if email, ok := c.Get("email").(string); ok {
		u.Email = email
	}
	if role, ok := c.Get("role").(string); ok {
		u.Role = role
	}
	return u
}

// indexToRowLabel converts a zero-based index to an alphabetical row
// label like A, B, ..., Z, AA.
func indexToRowLabel(i int) string {
	if i < 0 {
		return ""
	}
	res := []rune{}
	for {
		rem := i % 26
		res = append(res, rune('A'+rem))
		i = i/26 - 1
		if i < 0 {
			break
		}
	}
	for j, k := 0, len(res)-1; j < k; j, k = j+1, k-1 {
		res[j], res[k] = res[k], res[j]
	}
	return string(res)
}
