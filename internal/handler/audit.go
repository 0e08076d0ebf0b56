package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"seatlane/internal/model"
	"seatlane/internal/repository"
)

// AuditHandler exposes the audit log to administrators: the latest
// entries, a filtered search, and the top-emails aggregation security
// reviews start from.
type AuditHandler struct {
	Logs *repository.AuditLogRepo
}

func NewAuditHandler(logs *repository.AuditLogRepo) *AuditHandler {
	return &AuditHandler{Logs: logs}
}

// Latest handles GET /v1/admin/audit?limit=.
func (h *AuditHandler) Latest(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	entries, err := h.Logs.Latest(c.Request().Context(), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load audit log"})
	}
	if entries == nil {
		entries = []model.AuditEntry{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": entries})
}

// Search handles GET /v1/admin/audit/search?level=&action=&email=&limit=.
// Empty filters match everything; the email filter is a substring match.
func (h *AuditHandler) Search(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	entries, err := h.Logs.Search(c.Request().Context(),
		c.QueryParam("level"), c.QueryParam("action"), c.QueryParam("email"), limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to search audit log"})
	}
	if entries == nil {
		entries = []model.AuditEntry{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": entries})
}

// TopEmails handles GET /v1/admin/audit/top-emails?action=&minutes=&limit=.
// The default window is 24 hours of LOGIN_FAIL, the view used to spot
// credential-stuffing runs.
func (h *AuditHandler) TopEmails(c echo.Context) error {
	action := c.QueryParam("action")
	if action == "" {
		action = model.ActionLoginFail
	}
	minutes, _ := strconv.Atoi(c.QueryParam("minutes"))
	if minutes <= 0 {
		minutes = 24 * 60
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	rows, err := h.Logs.TopEmailsByAction(c.Request().Context(), action,
		time.Duration(minutes)*time.Minute, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to aggregate audit log"})
	}
	if rows == nil {
		rows = []model.EmailCount{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": rows})
}

// ActionCount handles GET /v1/admin/audit/stats?action=&minutes=: the
// total number of entries with one action across all users inside the
// trailing window, a quick volume check before drilling into search.
func (h *AuditHandler) ActionCount(c echo.Context) error {
	action := c.QueryParam("action")
	if action == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "action is required"})
	}
	minutes, _ := strconv.Atoi(c.QueryParam("minutes"))
	if minutes <= 0 {
		minutes = 60
	}

	n, err := h.Logs.CountAction(c.Request().Context(), action, time.Duration(minutes)*time.Minute)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to count audit entries"})
	}
	return c.JSON(http.StatusOK, echo.Map{"action": action, "minutes": minutes, "count": n})
}
