package http

import (
	"errors"
	"net/http"
	"zeptrion-bridge/internal/domain/service"
	"zeptrion-bridge/internal/domain/translator"
	"zeptrion-bridge/internal/ports"

	"github.com/gin-gonic/gin"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Layer   string `json:"layer,omitempty"`
}

// statusFor maps domain and transport errors onto an HTTP status and a stable error code.
func statusFor(err error) (int, string) {
	var terr *translator.TranslationError
	var xerr *ports.TransportError
	switch {
	case errors.Is(err, service.ErrNotSetUp):
		return http.StatusServiceUnavailable, "not_set_up"
	case errors.Is(err, service.ErrChannelNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrInvalidConfig):
		return http.StatusBadRequest, "invalid_config"
	case errors.As(err, &terr):
		if terr.Kind == translator.UnsupportedForCategory {
			return http.StatusConflict, string(terr.Kind)
		}
		return http.StatusBadRequest, string(terr.Kind)
	case errors.As(err, &xerr):
		if xerr.Kind == ports.Timeout {
			return http.StatusGatewayTimeout, "hub_timeout"
		}
		return http.StatusBadGateway, "hub_" + string(xerr.Kind)
	}
	return http.StatusInternalServerError, "internal_error"
}

func writeError(c *gin.Context, err error) {
	status, code := statusFor(err)
	resp := ErrorResponse{Error: code, Message: err.Error()}
	var derr *service.DispatchError
	if errors.As(err, &derr) {
		resp.Layer = string(derr.Layer)
	}
	c.JSON(status, resp)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid_request", Message: msg})
}
