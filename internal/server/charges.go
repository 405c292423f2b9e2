package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) RunChargeBatch(c *gin.Context) {
	typeCode := strings.TrimSpace(c.Param("type_code"))
	if typeCode == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	report, err := s.chargeSvc.RunBatch(c.Request.Context(), typeCode)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}
