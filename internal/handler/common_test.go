package handler

import (
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"seatlane/internal/model"
)

func newTestContext(t *testing.T) echo.Context {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest("GET", "/", nil)
	return e.NewContext(req, httptest.NewRecorder())
}

func TestGetUserID(t *testing.T) {
	c := newTestContext(t)

	if _, err := getUserID(c); err == nil {
		t.Fatal("missing user_id must error")
	}

	// JWT claims decode numbers as float64.
	c.Set("user_id", float64(42))
	if id, err := getUserID(c); err != nil || id != 42 {
		t.Fatalf("float64: id=%d err=%v", id, err)
	}

	c.Set("user_id", "17")
	if id, err := getUserID(c); err != nil || id != 17 {
		t.Fatalf("string: id=%d err=%v", id, err)
	}

	c.Set("user_id", "not-a-number")
	if _, err := getUserID(c); err == nil {
		t.Fatal("garbage string must error")
	}
}

func TestCurrentUser(t *testing.T) {
	c := newTestContext(t)
	if currentUser(c) != nil {
		t.Fatal("anonymous context must yield nil user")
	}

	c.Set("user_id", float64(7))
	c.Set("email", "alice@example.com")
	c.Set("role", model.RoleCustomer)

	u := currentUser(c)
	if u == nil {
		t.Fatal("authenticated context must yield a user")
	}
	if u.ID != 7 || u.Email != "alice@example.com" || u.Role != model.RoleCustomer {
		t.Fatalf("user = %+v", u)
	}
}

func TestIndexToRowLabel(t *testing.T) {
	cases := map[int]string{
		0:  "A",
		1:  "B",
		25: "Z",
		26: "AA",
		27: "AB",
		51: "AZ",
		52: "BA",
	}
	for in, want := range cases {
		if got := indexToRowLabel(in); got != want {
			t.Fatalf("indexToRowLabel(%d) = %q, want %q", in, got, want)
		}
	}
	if got := indexToRowLabel(-1); got != "" {
		t.Fatalf("negative index = %q, want empty", got)
	}
}
