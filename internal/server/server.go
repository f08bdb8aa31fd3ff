package server

import (
	"context"

	"app/internal/handler"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// New はechoサーバーを組み立てて返す。
func New(authH *handler.AuthHandler, invH *handler.InventoryHandler) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	RegisterRoutes(e, authH, invH)

	return e
}

// Start はサーバーを起動する。
func Start(e *echo.Echo, addr string) error {
	return e.Start(addr)
}

// Shutdown はサーバーを停める。
func Shutdown(ctx context.Context, e *echo.Echo) error {
	return e.Shutdown(ctx)
}
