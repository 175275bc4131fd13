package services

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonderhq/sonder/internal/config"
	"github.com/sonderhq/sonder/pkg/models"
)

func testDiversityConfig() *config.DiversityConfig {
	return &config.DiversityConfig{
		HeadSize:               20,
		CategoryCap:            3,
		VenueCap:               2,
		ExplorationProbability: 0,
		InsertWindow:           1,
	}
}

func newTestRanker(cfg *config.DiversityConfig, seed int64) *DiversityRanker {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewDiversityRankerWithSource(cfg, rand.NewSource(seed), logger)
}

func scoredEvent(category, venue string, score float64) models.ScoredEvent {
	return models.ScoredEvent{
		Event: models.Event{
			ID:       uuid.New(),
			Title:    fmt.Sprintf("%s at %s", category, venue),
			Category: category,
			Venue:    venue,
		},
		Score: score,
	}
}

func TestRank_CategoryCapInHead(t *testing.T) {
	ranker := newTestRanker(testDiversityConfig(), 1)

	var sorted []models.ScoredEvent
	for i := 0; i < 6; i++ {
		sorted = append(sorted, scoredEvent("music", fmt.Sprintf("venue-%d", i), float64(100-i)))
	}
	for i := 0; i < 4; i++ {
		sorted = append(sorted, scoredEvent("food", fmt.Sprintf("cafe-%d", i), float64(50-i)))
	}

	ranked := ranker.Rank(sorted, &ScoringContext{})

	require.Len(t, ranked, len(sorted))

	// Cap admits three music and three food into the head; overflow follows
	// in original order.
	musicInHead := 0
	for _, item := range ranked[:6] {
		if item.Category == "music" {
			musicInHead++
		}
	}
	assert.Equal(t, 3, musicInHead, "head must respect the category cap")
	assert.Equal(t, "music", ranked[6].Category)
}

func TestRank_AllOneCategory(t *testing.T) {
	ranker := newTestRanker(testDiversityConfig(), 1)

	var sorted []models.ScoredEvent
	for i := 0; i < 8; i++ {
		sorted = append(sorted, scoredEvent("music", fmt.Sprintf("venue-%d", i), float64(100-i)))
	}

	ranked := ranker.Rank(sorted, &ScoringContext{})

	// Cap applies to the head; overflow still ships, after the head.
	require.Len(t, ranked, 8)
	assert.Equal(t, sorted[0].ID, ranked[0].ID)
	assert.Equal(t, sorted[1].ID, ranked[1].ID)
	assert.Equal(t, sorted[2].ID, ranked[2].ID)
	assert.Equal(t, sorted[3].ID, ranked[3].ID)
}

func TestRank_VenueCap(t *testing.T) {
	ranker := newTestRanker(testDiversityConfig(), 1)

	sorted := []models.ScoredEvent{
		scoredEvent("music", "blue room", 100),
		scoredEvent("food", "blue room", 90),
		scoredEvent("art", "blue room", 80),
		scoredEvent("outdoors", "park", 70),
	}

	ranked := ranker.Rank(sorted, &ScoringContext{})

	require.Len(t, ranked, 4)
	// Third blue room item is deferred past the admitted head.
	assert.Equal(t, "park", ranked[2].Venue)
	assert.Equal(t, "blue room", ranked[3].Venue)
}

func TestRank_TrendingGuarantee(t *testing.T) {
	cfg := testDiversityConfig()
	cfg.HeadSize = 3
	ranker := newTestRanker(cfg, 1)

	trending := scoredEvent("nightlife", "warehouse", 10)
	sorted := []models.ScoredEvent{
		scoredEvent("music", "a", 100),
		scoredEvent("food", "b", 90),
		scoredEvent("art", "c", 80),
		scoredEvent("outdoors", "d", 70),
		trending,
	}

	sctx := &ScoringContext{
		TrendingIDs: map[uuid.UUID]bool{trending.ID: true},
	}

	ranked := ranker.Rank(sorted, sctx)

	require.Len(t, ranked, 5)
	// InsertWindow 1 pins the splice to position 1.
	assert.Equal(t, trending.ID, ranked[1].ID)
	assert.True(t, ranked[1].IsTrending)
	// Top result is never displaced.
	assert.Equal(t, sorted[0].ID, ranked[0].ID)
}

func TestRank_NoTrendingSpliceWhenHeadHasOne(t *testing.T) {
	ranker := newTestRanker(testDiversityConfig(), 1)

	popular := scoredEvent("music", "a", 100)
	popular.Breakdown.Trending = 12

	lowTrending := scoredEvent("nightlife", "z", 5)
	sorted := []models.ScoredEvent{
		popular,
		scoredEvent("food", "b", 90),
		lowTrending,
	}

	sctx := &ScoringContext{
		TrendingIDs: map[uuid.UUID]bool{lowTrending.ID: true},
	}

	ranked := ranker.Rank(sorted, sctx)

	// Head already contains a trending item; order is untouched.
	assert.Equal(t, popular.ID, ranked[0].ID)
	assert.Equal(t, sorted[1].ID, ranked[1].ID)
	assert.Equal(t, lowTrending.ID, ranked[2].ID)
}

func TestRank_ExplorationInDiscoveryMode(t *testing.T) {
	cfg := testDiversityConfig()
	cfg.HeadSize = 2
	ranker := newTestRanker(cfg, 1)

	unknown := scoredEvent("pottery", "studio", 5)
	sorted := []models.ScoredEvent{
		scoredEvent("music", "a", 100),
		scoredEvent("music", "b", 90),
		scoredEvent("music", "c", 80),
		unknown,
	}

	sctx := &ScoringContext{
		Taste: models.TasteVector{
			Categories: map[string]float64{"music": 5.0},
		},
		Constraints: &models.ConstraintsData{DiscoveryMode: true},
	}

	ranked := ranker.Rank(sorted, sctx)

	require.Len(t, ranked, 4)
	assert.Equal(t, unknown.ID, ranked[1].ID)
	assert.True(t, ranked[1].IsExploration)
	assert.Equal(t, "Something different to try", ranked[1].Reason)
	assert.Equal(t, models.ReasonExploration, ranked[1].ReasonType)
}

func TestRank_DeterministicWithSameSeed(t *testing.T) {
	cfg := testDiversityConfig()
	cfg.ExplorationProbability = 0.5
	cfg.InsertWindow = 5

	var sorted []models.ScoredEvent
	categories := []string{"music", "food", "art", "outdoors", "pottery", "fitness"}
	for i := 0; i < 18; i++ {
		sorted = append(sorted, scoredEvent(categories[i%len(categories)], fmt.Sprintf("v%d", i), float64(100-i)))
	}

	sctx := &ScoringContext{
		Taste: models.TasteVector{Categories: map[string]float64{"music": 4.0}},
	}

	first := newTestRanker(cfg, 42).Rank(append([]models.ScoredEvent(nil), sorted...), sctx)
	second := newTestRanker(cfg, 42).Rank(append([]models.ScoredEvent(nil), sorted...), sctx)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].ID, second[i].ID, "position %d", i)
	}
}

func TestRank_Empty(t *testing.T) {
	ranker := newTestRanker(testDiversityConfig(), 1)
	assert.Empty(t, ranker.Rank(nil, &ScoringContext{}))
}
