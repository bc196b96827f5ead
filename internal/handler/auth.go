package handler

import (
    "net/http" // HTTP status codes and primitives
    "strings"  // string manipulation utilities
    "time"     // token expiry timestamps

    "github.com/labstack/echo/v4" // Echo framework for HTTP routing

    "github.com/kavyan/clipvault/internal/config" // app configuration
    "github.com/kavyan/clipvault/internal/utils"  // helper functions (hashing, token issuing)
)

// AuthHandler implements operator login for the admin API. There is a
// single operator account configured through the environment; no
// self-service registration exists.
type AuthHandler struct {
	Cfg config.Config
}

func NewAuthHandler(cfg config.Config) *AuthHandler {
	return &AuthHandler{Cfg: cfg}
}

// ----- DTOs -----

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type loginResp struct {
	Access tokenPart `json:"access"`
}

// Login verifies the operator credentials and returns a short-lived
// admin access token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/password required"})
	}

	if req.Username != h.Cfg.AdminUser || !utils.VerifyPassword(h.Cfg.AdminPassHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, req.Username, "ADMIN", h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusOK, loginResp{
		Access: tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// Me: simple protected endpoint.
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"subject": c.Get("subject"),
		"role":    c.Get("role"),
	})
}
