package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/sonderhq/sonder/internal/services"
)

type CurationHandler struct {
	curation *services.CurationService
	logger   *logrus.Logger
}

func NewCurationHandler(curation *services.CurationService, logger *logrus.Logger) *CurationHandler {
	return &CurationHandler{curation: curation, logger: logger}
}

// Get serves GET /api/v1/curation/:userId.
func (h *CurationHandler) Get(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	response, err := h.curation.GetSuggestions(c.Request.Context(), userID)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Error("Failed to generate curation")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "CURATION_FAILED",
				"message": "Failed to generate suggestions",
			},
		})
		return
	}

	c.JSON(http.StatusOK, response)
}
