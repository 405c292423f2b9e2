package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) RunExistenceAudit(c *gin.Context) {
	report, err := s.auditor.Audit(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}
