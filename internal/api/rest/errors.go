package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vanityforge/vanity-gateway/internal/api/shared/errors"
	"github.com/vanityforge/vanity-gateway/internal/logger"
)

// respondBadRequest responds with a bad request error
func respondBadRequest(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusBadRequest, errors.NewBadRequestError(message, details...).Envelope())
}

// respondUnauthorized responds with an unauthorized error
func respondUnauthorized(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusUnauthorized, errors.NewUnauthorizedError(message, details...).Envelope())
}

// respondPaymentRequired responds with a payment required error
func respondPaymentRequired(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusPaymentRequired, errors.NewPaymentRequiredError(message, details...).Envelope())
}

// respondNotFound responds with a not found error
func respondNotFound(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusNotFound, errors.NewNotFoundError(message, details...).Envelope())
}

// respondConflict responds with a conflict error
func respondConflict(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusConflict, errors.NewConflictError(message, details...).Envelope())
}

// respondBadGateway responds with a bad gateway error
func respondBadGateway(c *gin.Context, message string, details ...string) {
	c.JSON(http.StatusBadGateway, errors.NewBadGatewayError(message, details...).Envelope())
}

// respondInternalError responds with an internal server error and logs it
func respondInternalError(c *gin.Context, err error, message string, fields ...zap.Field) {
	logger.ErrorCtx(c.Request.Context(), err, fields...)
	c.JSON(http.StatusInternalServerError, errors.NewInternalError(message).Envelope())
}
