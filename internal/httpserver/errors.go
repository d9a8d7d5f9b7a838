package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"contractledger/internal/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError maps rejections to 4xx with their code and everything else to
// a generic 500.
func (h *handlers) writeError(c *gin.Context, err error) {
	if ve, ok := domain.AsValidation(err); ok {
		status := http.StatusBadRequest
		if strings.HasSuffix(ve.Code, "_not_found") {
			status = http.StatusNotFound
		}
		c.JSON(status, errorResponse{Code: ve.Code, Message: ve.Message})
		return
	}
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, errorResponse{Code: "not_found", Message: "resource not found"})
		return
	}
	h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	c.JSON(http.StatusInternalServerError, errorResponse{Code: "internal_error", Message: "internal server error"})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, errorResponse{Code: "bad_request", Message: msg})
}
