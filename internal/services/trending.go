package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/sonderhq/sonder/pkg/models"
)

// interactionWeights determine how much each interaction type moves an item
// in the trending set. Negative signals pull items down.
var interactionWeights = map[string]float64{
	"view":   0.2,
	"want":   1.0,
	"done":   1.5,
	"rating": 1.0,
	"more":   0.5,
	"less":   -0.5,
	"pass":   -0.3,
	"hide":   -1.0,
}

const (
	trendingSetTTL  = 14 * 24 * time.Hour
	trendingMaxSize = 500
)

// TrendingAggregator consumes interaction events and maintains the per-city
// trending sorted sets the store reads. It runs beside the API server; losing
// it degrades trending freshness, nothing else.
type TrendingAggregator struct {
	redis   *redis.Client
	metrics *MetricsCollector
	logger  *logrus.Logger
}

func NewTrendingAggregator(warmRedis *redis.Client, metrics *MetricsCollector, logger *logrus.Logger) *TrendingAggregator {
	return &TrendingAggregator{redis: warmRedis, metrics: metrics, logger: logger}
}

// HandleInteraction folds one interaction into the city's trending set.
func (t *TrendingAggregator) HandleInteraction(event models.InteractionEvent) error {
	weight, ok := interactionWeights[event.Type]
	if !ok || weight == 0 {
		return nil
	}
	if event.Type == "rating" && event.Value != nil {
		// Center on 3 so poor ratings push trending down.
		weight = (*event.Value - 3.0) * 0.5
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	key := trendingKey(event.City)
	pipe := t.redis.Pipeline()
	pipe.ZIncrBy(ctx, key, weight, event.ItemID.String())
	pipe.Expire(ctx, key, trendingSetTTL)
	// Keep only the strongest entries so the set stays bounded.
	pipe.ZRemRangeByRank(ctx, key, 0, int64(-trendingMaxSize-1))
	sizeCmd := pipe.ZCard(ctx, key)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to update trending set: %w", err)
	}

	if t.metrics != nil {
		t.metrics.SetTrendingSetSize(event.City, int(sizeCmd.Val()))
	}

	t.logger.WithFields(logrus.Fields{
		"item_id": event.ItemID,
		"city":    event.City,
		"type":    event.Type,
		"weight":  weight,
	}).Debug("Trending set updated")

	return nil
}
