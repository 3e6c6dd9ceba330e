package responses

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"zapcrm/messaging-gateway/internal/interfaces/httpserver/middlewares"
	"zapcrm/messaging-gateway/internal/utils/gatewayerrors"
)

// ErrorResponse is the JSON body returned for failed requests.
type ErrorResponse struct {
	Code      string `json:"code"`
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// HandleError maps domain errors onto HTTP responses. Untyped errors become
// 500s with the fallback message so internals never leak to callers.
func HandleError(c *gin.Context, err error, fallback string) {
	var ge *gatewayerrors.GatewayError
	if errors.As(err, &ge) {
		message := ge.Message
		if message == "" {
			message = fallback
		}
		c.AbortWithStatusJSON(gatewayerrors.TypeToHTTPStatus(ge.Type), ErrorResponse{
			Code:      string(ge.Type),
			Error:     message,
			RequestID: middlewares.RequestIDFromContext(c),
		})
		return
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
		Code:      string(gatewayerrors.TypeInternal),
		Error:     fallback,
		RequestID: middlewares.RequestIDFromContext(c),
	})
}

// HandleValidationError reports malformed caller input.
func HandleValidationError(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Code:      string(gatewayerrors.TypeValidation),
		Error:     message,
		RequestID: middlewares.RequestIDFromContext(c),
	})
}
