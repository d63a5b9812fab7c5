package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/festival-booking/internal/middleware"
	"github.com/iliyamo/festival-booking/internal/service"
	"github.com/iliyamo/festival-booking/internal/utils"
)

// AdminHandler serves festival staff endpoints.  Login exchanges the shared
// admin password for a short-lived JWT with role ADMIN.
type AdminHandler struct {
	svc          *service.BookingService
	passwordHash string
	jwtSecret    string
	accessTTLMin int
	log          *zap.Logger
}

// AdminAuth configures AdminHandler.Login.  An empty PasswordHash disables
// login.
type AdminAuth struct {
	PasswordHash string
	JWTSecret    string
	AccessTTLMin int
}

func NewAdminHandler(svc *service.BookingService, auth AdminAuth, log *zap.Logger) *AdminHandler {
	if svc == nil {
		panic("nil service passed to NewAdminHandler")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminHandler{
		svc:          svc,
		passwordHash: auth.PasswordHash,
		jwtSecret:    auth.JWTSecret,
		accessTTLMin: auth.AccessTTLMin,
		log:          log,
	}
}

type loginReq struct {
	Password string `json:"password"`
}

type tokenResp struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

// Login handles POST /v1/admin/login.
func (h *AdminHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if req.Password == "" {
		return badRequest(c, "password required")
	}
	if !utils.VerifyPassword(h.passwordHash, req.Password) {
		h.log.Warn("admin login rejected", zap.String("ip", c.RealIP()))
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "invalid credentials"})
	}
	access, err := utils.NewAccessToken(h.jwtSecret, "admin", middleware.RoleAdmin, h.accessTTLMin)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, tokenResp{Token: access.Token, Expires: access.Exp})
}

// List handles GET /v1/admin/bookings.
func (h *AdminHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	items, err := h.svc.List(ctx)
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := make([]bookingView, 0, len(items))
	for _, b := range items {
		out = append(out, viewOf(b))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out, "count": len(out)})
}

// Cancel handles DELETE /v1/admin/bookings/:id.  The response echoes the
// removed booking with status CANCELLED and the seats released.
func (h *AdminHandler) Cancel(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()

	b, err := h.svc.Cancel(ctx, c.Param("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	h.log.Info("booking cancelled by admin",
		zap.String("booking_id", b.ID),
		zap.Any("admin", c.Get(middleware.CtxUserID)),
	)
	return c.JSON(http.StatusOK, viewOf(b))
}
