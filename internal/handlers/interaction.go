package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/sonderhq/sonder/internal/services"
	"github.com/sonderhq/sonder/pkg/models"
)

type InteractionHandler struct {
	interaction *services.InteractionService
	validate    *validator.Validate
	logger      *logrus.Logger
}

func NewInteractionHandler(interaction *services.InteractionService, logger *logrus.Logger) *InteractionHandler {
	return &InteractionHandler{
		interaction: interaction,
		validate:    validator.New(),
		logger:      logger,
	}
}

// Post serves POST /api/v1/interactions.
func (h *InteractionHandler) Post(c *gin.Context) {
	var req models.InteractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_REQUEST_BODY",
				"message": err.Error(),
			},
		})
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "VALIDATION_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	if err := h.interaction.Record(c.Request.Context(), &req); err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"user_id": req.UserID,
			"item_id": req.ItemID,
		}).Error("Failed to record interaction")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "INTERACTION_FAILED",
				"message": "Failed to record interaction",
			},
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"status": "recorded"})
}
