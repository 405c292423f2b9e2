package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	onboardingdomain "github.com/smallbiznis/chargeway/internal/onboarding/domain"
)

func (s *Server) CreateApplication(c *gin.Context) {
	var req onboardingdomain.OnboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	record, err := s.onboardingSvc.Onboard(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, record)
}
