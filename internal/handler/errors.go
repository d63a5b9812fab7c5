package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/festival-booking/internal/model"
)

var kindStatus = map[string]int{
	model.KindValidation:           http.StatusBadRequest,
	model.KindBookingNotEnabled:    http.StatusForbidden,
	model.KindInsufficientCapacity: http.StatusConflict,
	model.KindTokenInvalid:         http.StatusBadRequest,
	model.KindTokenExpired:         http.StatusGone,
	model.KindAlreadyConfirmed:     http.StatusConflict,
	model.KindNotificationFailure:  http.StatusBadGateway,
	model.KindNotFound:             http.StatusNotFound,
}

// writeError renders err as {"error": kind, "message": text}.  Errors outside
// the booking taxonomy are logged and reported as a bare internal_error.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	kind := model.KindOf(err)
	status, ok := kindStatus[kind]
	if !ok {
		log.Error("request failed",
			zap.String("route", c.Path()),
			zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			zap.Error(err),
		)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": model.KindInternal, "message": "internal error"})
	}
	body := echo.Map{"error": kind, "message": err.Error()}
	var ce *model.CapacityError
	if errors.As(err, &ce) {
		body["available"] = ce.Available
	}
	return c.JSON(status, body)
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": model.KindValidation, "message": msg})
}
