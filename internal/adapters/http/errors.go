package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dkeye/voxengine/internal/app"
	"github.com/dkeye/voxengine/internal/domain"
)

func statusOf(err error) int {
	if errors.Is(err, app.ErrUnknownSession) {
		return http.StatusNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	switch domain.KindOf(err) {
	case domain.KindValidation, domain.KindConfiguration:
		return http.StatusBadRequest
	case domain.KindCapability, domain.KindUnsupported:
		return http.StatusConflict
	case domain.KindCapacity:
		return http.StatusTooManyRequests
	case domain.KindInvalidTarget:
		return http.StatusUnprocessableEntity
	case domain.KindInvalidState:
		return http.StatusGone
	case domain.KindTimeout:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func abortWithError(c *gin.Context, err error) {
	body := gin.H{"error": err.Error()}
	var de *domain.Error
	if errors.As(err, &de) {
		body["kind"] = de.Kind.String()
		if de.Code != 0 {
			body["code"] = de.Code
		}
	}
	c.AbortWithStatusJSON(statusOf(err), body)
}
