package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"seatlane/internal/config"
	"seatlane/internal/model"
	"seatlane/internal/repository"
	"seatlane/internal/utils"
)

// AuthHandler bundles dependencies for the auth endpoints. Every login
// outcome is written to the audit log: the failed-login count is the
// heaviest signal the fraud scorer reads, so a silent login path would
// blind the abuse guard.
type AuthHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
	Audit *repository.AuditLogRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, a *repository.AuditLogRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Audit: a}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
type authResp struct {
	User   userPart  `json:"user"`
	Access tokenPart `json:"access"`
}

// Register creates a CUSTOMER account and returns an access token
// immediately. Roles are never client-assigned; admins are promoted out
// of band.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	uid, err := h.Users.Create(ctx, req.Email, hash, model.RoleCustomer)
	if err != nil {
		if err == repository.ErrEmailExists {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	h.Audit.Log(ctx, model.LevelInfo, model.ActionRegister, &uid, &req.Email, "account created")

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, uid, model.RoleCustomer, req.Email, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}

	return c.JSON(http.StatusCreated, authResp{
		User:   userPart{ID: uid, Email: req.Email, Role: model.RoleCustomer},
		Access: tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// Login verifies credentials and returns a fresh access token. Unknown
// emails and wrong passwords both audit as LOGIN_FAIL and answer the
// same 401, so the endpoint leaks no account existence.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.ByEmail(ctx, req.Email)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "login failed"})
	}
	if u == nil || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		var uid *uint64
		if u != nil {
			uid = &u.ID
		}
		h.Audit.Log(ctx, model.LevelWarn, model.ActionLoginFail, uid, &req.Email, "bad credentials")
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	h.Audit.Log(ctx, model.LevelInfo, model.ActionLoginOK, &u.ID, &u.Email, "login")

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, u.Email, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}

	return c.JSON(http.StatusOK, authResp{
		User:   userPart{ID: u.ID, Email: u.Email, Role: u.Role},
		Access: tokenPart{Token: access.Token, Expires: access.Exp},
	})
}
