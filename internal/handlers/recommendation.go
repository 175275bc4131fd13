package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sonderhq/sonder/internal/services"
	"github.com/sonderhq/sonder/pkg/models"
)

type RecommendationHandler struct {
	cascade *services.RecommendationCascadeService
	logger  *logrus.Logger
}

func NewRecommendationHandler(cascade *services.RecommendationCascadeService, logger *logrus.Logger) *RecommendationHandler {
	return &RecommendationHandler{cascade: cascade, logger: logger}
}

// Get serves GET /api/v1/recommendations/:userId.
// Optional query params: type (event|place), limit, exclude (item UUID, used
// on item detail pages to keep the current item out of "more like this").
func (h *RecommendationHandler) Get(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	limit := 20
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	itemType := c.Query("type")
	if itemType != "" && itemType != "event" && itemType != "place" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_ITEM_TYPE",
				"message": "type must be 'event' or 'place'",
			},
		})
		return
	}

	var excludeItemID *uuid.UUID
	if excludeStr := c.Query("exclude"); excludeStr != "" {
		id, err := uuid.Parse(excludeStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": gin.H{
					"code":    "INVALID_EXCLUDE_ID",
					"message": "Invalid exclude item ID format",
				},
			})
			return
		}
		excludeItemID = &id
	}

	recommendations, err := h.cascade.GetItemRecommendations(
		c.Request.Context(), userID, excludeItemID,
		services.RecommendationOptions{ItemType: itemType, Limit: limit},
	)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Error("Failed to generate recommendations")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "RECOMMENDATION_FAILED",
				"message": "Failed to generate recommendations",
			},
		})
		return
	}

	c.JSON(http.StatusOK, models.RecommendationResponse{
		UserID:          userID,
		Recommendations: recommendations,
		GeneratedAt:     time.Now(),
	})
}
