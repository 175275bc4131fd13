package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sonderhq/sonder/internal/services"
	"github.com/sonderhq/sonder/pkg/models"
)

type FeedHandler struct {
	feed     *services.FeedService
	scorer   services.EventScorerInterface
	store    services.ItemStoreInterface
	validate *validator.Validate
	logger   *logrus.Logger
}

func NewFeedHandler(
	feed *services.FeedService,
	scorer services.EventScorerInterface,
	store services.ItemStoreInterface,
	logger *logrus.Logger,
) *FeedHandler {
	return &FeedHandler{
		feed:     feed,
		scorer:   scorer,
		store:    store,
		validate: validator.New(),
		logger:   logger,
	}
}

// Get serves GET /api/v1/feed/:userId.
func (h *FeedHandler) Get(c *gin.Context) {
	userID, ok := parseUserID(c)
	if !ok {
		return
	}

	limit := 50
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

	ranked, err := h.feed.GetFeed(c.Request.Context(), userID, itemType, limit)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", userID).Error("Failed to generate feed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "FEED_GENERATION_FAILED",
				"message": "Failed to generate feed",
			},
		})
		return
	}

	c.JSON(http.StatusOK, models.ScoreEventsResponse{
		UserID:      userID,
		Events:      ranked,
		GeneratedAt: time.Now(),
	})
}

// Score serves POST /api/v1/score: rank a caller-supplied candidate set for a
// user without touching the item pool.
func (h *FeedHandler) Score(c *gin.Context) {
	var req models.ScoreEventsRequest
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

	aggregates, err := h.store.GetUserAggregates(c.Request.Context(), req.UserID)
	if err != nil {
		h.logger.WithError(err).WithField("user_id", req.UserID).Error("Failed to load user profile")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "PROFILE_LOAD_FAILED",
				"message": "Failed to load user profile",
			},
		})
		return
	}

	trending, err := h.store.TrendingItemIDs(c.Request.Context(), aggregates.City, 50)
	if err != nil {
		h.logger.WithError(err).Debug("Trending lookup failed for scoring")
	}
	trendingSet := make(map[uuid.UUID]bool, len(trending))
	for _, id := range trending {
		trendingSet[id] = true
	}

	sctx := &services.ScoringContext{
		Preferences: aggregates.Preferences,
		Taste:       services.BuildTasteVector(aggregates.Preferences, aggregates.Statuses, aggregates.Ratings),
		Detailed:    aggregates.Detailed,
		Feedback:    aggregates.Feedback,
		Constraints: aggregates.Constraints,
		FeedViews:   aggregates.FeedViews,
		TrendingIDs: trendingSet,
		Now:         time.Now(),
	}

	c.JSON(http.StatusOK, models.ScoreEventsResponse{
		UserID:      req.UserID,
		Events:      h.scorer.ScoreAndRankEvents(req.Candidates, sctx),
		GeneratedAt: time.Now(),
	})
}

func parseUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": gin.H{
				"code":    "INVALID_USER_ID",
				"message": "Invalid user ID format",
			},
		})
		return uuid.Nil, false
	}
	return userID, true
}
