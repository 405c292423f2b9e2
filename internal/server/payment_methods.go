package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) ListPaymentMethods(c *gin.Context) {
	customerID := strings.TrimSpace(c.Param("id"))
	if customerID == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	methods, err := s.paymethodSvc.ListMethods(c.Request.Context(), customerID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"payment_methods": methods})
}

type setDefaultRequest struct {
	PaymentMethodID string `json:"payment_method_id"`
}

func (s *Server) SetDefaultPaymentMethod(c *gin.Context) {
	customerID := strings.TrimSpace(c.Param("id"))
	if customerID == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	var req setDefaultRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.PaymentMethodID) == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.paymethodSvc.SetDefault(c.Request.Context(), customerID, strings.TrimSpace(req.PaymentMethodID)); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) CreatePaymentSession(c *gin.Context) {
	customerID := strings.TrimSpace(c.Param("id"))
	if customerID == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	session, err := s.gateway.CreateSetupSession(c.Request.Context(), customerID, s.cfg.SetupSuccessURL)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"session_id": session.ID,
		"url":        session.URL,
	})
}
