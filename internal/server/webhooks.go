package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	paymentdomain "github.com/smallbiznis/chargeway/internal/payment/domain"
)

// maxWebhookBody caps deliveries at 1 MiB; provider events are far smaller.
const maxWebhookBody = 1 << 20

func (s *Server) HandleStripeWebhook(c *gin.Context) {
	ctx := c.Request.Context()

	allowed, err := s.webhookLimiter.Allow(ctx, c.ClientIP())
	if err != nil {
		s.log.Warn("webhook rate limit check failed, allowing delivery", zap.Error(err))
		allowed = true
	}
	if !allowed {
		if s.obsMetrics != nil {
			s.obsMetrics.RecordRateLimitDenied(ctx, "webhooks.stripe")
		}
		AbortWithError(c, ErrTooManyRequests)
		return
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		AbortWithError(c, paymentdomain.ErrInvalidPayload)
		return
	}

	if err := s.webhookSvc.Ingest(ctx, payload, c.Request.Header); err != nil {
		if errors.Is(err, paymentdomain.ErrEventAlreadyProcessed) {
			c.JSON(http.StatusOK, gin.H{"status": "already_processed"})
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "received"})
}
