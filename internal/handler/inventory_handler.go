package handler

import (
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"app/internal/config"
	mw "app/internal/middleware"
	"app/internal/repository"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// usecaseのエラー種別をHTTPの応答に変換する。
// 種別不明だけ500。呼び出し側には必ず種類が伝わる。
func writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, usecase.ErrValidation):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "VALIDATION_ERROR"})
	case errors.Is(err, usecase.ErrInvalidQuantity):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "INVALID_QUANTITY"})
	case errors.Is(err, usecase.ErrInvalidProductName):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "INVALID_PRODUCT_NAME"})
	case errors.Is(err, usecase.ErrInvalidDateRange):
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "INVALID_DATE_RANGE"})
	case errors.Is(err, usecase.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "INVALID_CREDENTIALS"})
	case errors.Is(err, usecase.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "UNAUTHORIZED"})
	case errors.Is(err, usecase.ErrSecurityIncident):
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "SECURITY_INCIDENT"})
	case errors.Is(err, usecase.ErrUserInactive):
		return c.JSON(http.StatusForbidden, ErrorResponse{Error: "FORBIDDEN"})
	case errors.Is(err, usecase.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "NOT_FOUND"})
	case errors.Is(err, usecase.ErrDuplicateUsername):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: "DUPLICATE_USERNAME"})
	case errors.Is(err, usecase.ErrDuplicateRequest):
		return c.JSON(http.StatusConflict, ErrorResponse{Error: "DUPLICATE_REQUEST"})
	case errors.Is(err, usecase.ErrInsufficientStock):
		return c.JSON(http.StatusUnprocessableEntity, ErrorResponse{Error: "INSUFFICIENT_STOCK"})
	case errors.Is(err, usecase.ErrStorageUnavailable):
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "STORAGE_UNAVAILABLE"})
	default:
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "INTERNAL"})
	}
}

// /inventory と /reports の認証必須API
type InventoryHandler struct {
	uc       *usecase.InventoryUsecase
	cfg      config.Config
	userRepo repository.UserRepository
}

// DI
func NewInventoryHandler(uc *usecase.InventoryUsecase, cfg config.Config, userRepo repository.UserRepository) *InventoryHandler {
	return &InventoryHandler{uc: uc, cfg: cfg, userRepo: userRepo}
}

// 在庫系のルートを登録（JWT検証 + token_version照合の内側）
func (h *InventoryHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("", mw.AuthJWT(h.cfg), mw.TokenVersionGuard(h.userRepo))
	g.GET("/inventory", h.list)
	g.POST("/inventory/stock-in", h.stockIn)
	g.POST("/inventory/stock-out", h.stockOut)
	g.GET("/inventory/:product/image", h.image)
	g.GET("/reports", h.report)
}

type stockInRequest struct {
	ProductName string `json:"product_name"`
	Quantity    int64  `json:"quantity"`
	ImageBase64 string `json:"image_base64,omitempty"`
}

type stockOutRequest struct {
	ProductName string `json:"product_name"`
	Quantity    int64  `json:"quantity"`
}

type listInventoryResponse struct {
	Items []usecase.StockItemOutput `json:"items"`
}

type reportResponse struct {
	Transactions []usecase.TransactionOutput `json:"transactions"`
}

// GET /inventory
func (h *InventoryHandler) list(c echo.Context) error {
	userID, ok := mw.UserIDFrom(c)
	if !ok {
		return writeError(c, usecase.ErrUnauthorized)
	}

	items, err := h.uc.ListInventory(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, listInventoryResponse{Items: items})
}

// POST /inventory/stock-in
func (h *InventoryHandler) stockIn(c echo.Context) error {
	userID, ok := mw.UserIDFrom(c)
	if !ok {
		return writeError(c, usecase.ErrUnauthorized)
	}

	var req stockInRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "VALIDATION_ERROR"})
	}

	//画像はbase64で受ける（multipartにしない。bytesのままusecaseへ）
	var image []byte
	if req.ImageBase64 != "" {
		decoded, err := base64.StdEncoding.DecodeString(req.ImageBase64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "VALIDATION_ERROR"})
		}
		image = decoded
	}

	out, err := h.uc.StockIn(c.Request().Context(), userID, usecase.StockInInput{
		ProductName:    req.ProductName,
		Qty:            req.Quantity,
		Image:          image,
		IdempotencyKey: c.Request().Header.Get("Idempotency-Key"),
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

// POST /inventory/stock-out
func (h *InventoryHandler) stockOut(c echo.Context) error {
	userID, ok := mw.UserIDFrom(c)
	if !ok {
		return writeError(c, usecase.ErrUnauthorized)
	}

	var req stockOutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "VALIDATION_ERROR"})
	}

	out, err := h.uc.StockOut(c.Request().Context(), userID, usecase.StockOutInput{
		ProductName:    req.ProductName,
		Qty:            req.Quantity,
		IdempotencyKey: c.Request().Header.Get("Idempotency-Key"),
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, out)
}

// GET /inventory/:product/image
func (h *InventoryHandler) image(c echo.Context) error {
	userID, ok := mw.UserIDFrom(c)
	if !ok {
		return writeError(c, usecase.ErrUnauthorized)
	}

	data, err := h.uc.GetImage(c.Request().Context(), userID, c.Param("product"))
	if err != nil {
		return writeError(c, err)
	}

	return c.Blob(http.StatusOK, "image/png", data)
}

// GET /reports?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *InventoryHandler) report(c echo.Context) error {
	userID, ok := mw.UserIDFrom(c)
	if !ok {
		return writeError(c, usecase.ErrUnauthorized)
	}

	from, err := time.Parse("2006-01-02", c.QueryParam("from"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "INVALID_DATE_RANGE"})
	}
	to, err := time.Parse("2006-01-02", c.QueryParam("to"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "INVALID_DATE_RANGE"})
	}

	records, err := h.uc.GetReport(c.Request().Context(), userID, from, to)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, reportResponse{Transactions: records})
}
