package handler

import (
	"net/http"
	"time"

	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

// refreshtokenを入れるcookie名
const refreshCookieName = "refresh"

// refresh cookieの有効期限
const refreshCookieTTL = 30 * 24 * time.Hour

type AuthHandler struct {
	uc           *usecase.AuthUsecase
	cookieSecure bool
}

// DI
func NewAuthHandler(uc *usecase.AuthUsecase, cookieSecure bool) *AuthHandler {
	return &AuthHandler{uc: uc, cookieSecure: cookieSecure}
}

// 認証系のルートを登録
func (h *AuthHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/auth/register", h.register)
	e.POST("/auth/login", h.login)
	e.POST("/auth/refresh", h.refresh)
	e.POST("/auth/logout", h.logout)
}

// POST /auth/register
func (h *AuthHandler) register(c echo.Context) error {
	var req usecase.AuthRegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "VALIDATION_ERROR"})
	}

	out, err := h.uc.Register(c.Request().Context(), req)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, out)
}

// POST /auth/login
func (h *AuthHandler) login(c echo.Context) error {
	var req usecase.AuthLoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "VALIDATION_ERROR"})
	}

	// User-Agentを取得（refreshtokenに紐付ける）
	userAgent := c.Request().Header.Get("User-Agent")

	res, err := h.uc.Login(c.Request().Context(), req, userAgent)
	if err != nil {
		return writeError(c, err)
	}

	h.setRefreshCookie(c, res.RefreshTokenPlain)

	return c.JSON(http.StatusOK, res.Body)
}

// POST /auth/refresh
func (h *AuthHandler) refresh(c echo.Context) error {
	plain := readRefreshCookie(c)
	userAgent := c.Request().Header.Get("User-Agent")

	res, err := h.uc.Refresh(c.Request().Context(), plain, userAgent)
	if err != nil {
		return writeError(c, err)
	}

	h.setRefreshCookie(c, res.RefreshTokenPlain)

	return c.JSON(http.StatusOK, res.Body)
}

// POST /auth/logout
func (h *AuthHandler) logout(c echo.Context) error {
	plain := readRefreshCookie(c)

	out, err := h.uc.Logout(c.Request().Context(), plain)
	if err != nil {
		return writeError(c, err)
	}

	h.clearRefreshCookie(c)

	return c.JSON(http.StatusOK, out)
}

// refreshtokenをCookieにセット
func (h *AuthHandler) setRefreshCookie(c echo.Context, plainRefresh string) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    plainRefresh,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(refreshCookieTTL),
	})
}

func (h *AuthHandler) clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func readRefreshCookie(c echo.Context) string {
	cookie, err := c.Cookie(refreshCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
