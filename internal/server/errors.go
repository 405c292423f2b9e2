package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	onboardingdomain "github.com/smallbiznis/chargeway/internal/onboarding/domain"
	paymentdomain "github.com/smallbiznis/chargeway/internal/payment/domain"
)

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrInvalidRequest  = errors.New("invalid_request")
	ErrTooManyRequests = errors.New("too_many_requests")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case errors.Is(err, onboardingdomain.ErrDuplicateCustomer):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: "customer already exists",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: "not found",
		}
	case errors.Is(err, paymentdomain.ErrInvalidSignature),
		errors.Is(err, paymentdomain.ErrInvalidPayload),
		errors.Is(err, paymentdomain.ErrInvalidEvent):
		return http.StatusBadRequest, errorPayload{
			Type:    "rejected",
			Message: "event rejected",
		}
	case errors.Is(err, ErrTooManyRequests):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, paymentdomain.ErrChargeDeclined):
		return http.StatusPaymentRequired, errorPayload{
			Type:    "charge_declined",
			Message: "charge declined",
		}
	case errors.Is(err, paymentdomain.ErrUpstream):
		return http.StatusBadGateway, errorPayload{
			Type:    "upstream_error",
			Message: "payment provider unavailable",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, onboardingdomain.ErrInvalidEmail),
		errors.Is(err, onboardingdomain.ErrInvalidPhone),
		errors.Is(err, onboardingdomain.ErrInvalidName),
		errors.Is(err, onboardingdomain.ErrInvalidAddress):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, paymentdomain.ErrAccountNotFound),
		errors.Is(err, paymentdomain.ErrMethodNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

// classifyErrorForLog maps an error to the (type, code) pair attached to
// request logs.
func classifyErrorForLog(err error) (string, string) {
	status, payload := mapError(err)
	if status >= http.StatusInternalServerError {
		return "internal", payload.Type
	}
	return "request", payload.Type
}
