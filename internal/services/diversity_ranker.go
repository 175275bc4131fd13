package services

import (
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sonderhq/sonder/internal/config"
	"github.com/sonderhq/sonder/pkg/models"
)

// DiversityRanker re-orders a score-sorted list so the head of the feed is
// not dominated by one category or venue, and guarantees one exploration
// pick and one trending pick. Greedy single pass: no global re-optimization,
// rejected items fall through to the remainder in their original order.
type DiversityRanker struct {
	config *config.DiversityConfig
	logger *logrus.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

func NewDiversityRanker(cfg *config.DiversityConfig, logger *logrus.Logger) *DiversityRanker {
	return NewDiversityRankerWithSource(cfg, rand.NewSource(time.Now().UnixNano()), logger)
}

// NewDiversityRankerWithSource injects the random source so tests can assert
// deterministic exploration and trending placement.
func NewDiversityRankerWithSource(
	cfg *config.DiversityConfig,
	source rand.Source,
	logger *logrus.Logger,
) *DiversityRanker {
	return &DiversityRanker{
		config: cfg,
		logger: logger,
		rng:    rand.New(source),
	}
}

// Rank walks the sorted list once, admitting an item into the head only
// while its category and venue are under their caps; everything else defers
// to the remainder. Afterwards one exploration pick and one trending pick
// may be spliced near the front. Output is head ++ remainder.
func (r *DiversityRanker) Rank(sorted []models.ScoredEvent, sctx *ScoringContext) []models.ScoredEvent {
	if len(sorted) == 0 {
		return sorted
	}

	headSize := r.config.HeadSize
	if headSize <= 0 {
		headSize = 20
	}

	head := make([]models.ScoredEvent, 0, headSize)
	remainder := make([]models.ScoredEvent, 0, len(sorted))
	categoryCount := make(map[string]int)
	venueCount := make(map[string]int)

	for _, item := range sorted {
		item.IsTrending = sctx.TrendingIDs[item.ID] || item.Breakdown.Trending > 0

		if len(head) >= headSize {
			remainder = append(remainder, item)
			continue
		}

		category := foldKey(item.Category)
		venue := foldKey(item.Venue)
		if categoryCount[category] >= r.config.CategoryCap ||
			(venue != "" && venueCount[venue] >= r.config.VenueCap) {
			remainder = append(remainder, item)
			continue
		}

		categoryCount[category]++
		if venue != "" {
			venueCount[venue]++
		}
		head = append(head, item)
	}

	discovery := sctx.Constraints != nil && sctx.Constraints.DiscoveryMode

	r.mu.Lock()
	explore := discovery || r.rng.Float64() < r.config.ExplorationProbability
	r.mu.Unlock()

	if explore {
		head, remainder = r.spliceExploration(head, remainder, sctx, categoryCount, venueCount)
	}
	head, remainder = r.spliceTrending(head, remainder, categoryCount, venueCount)

	return append(head, remainder...)
}

// spliceExploration promotes the highest-ranked remainder item from a
// category the user has not interacted with, keeping the head caps intact.
func (r *DiversityRanker) spliceExploration(
	head, remainder []models.ScoredEvent,
	sctx *ScoringContext,
	categoryCount, venueCount map[string]int,
) ([]models.ScoredEvent, []models.ScoredEvent) {
	known := make(map[string]bool, len(sctx.Taste.Categories)+len(sctx.Preferences.Categories))
	for category := range sctx.Taste.Categories {
		known[foldKey(category)] = true
	}
	for category := range sctx.Preferences.Categories {
		known[foldKey(category)] = true
	}

	for i, item := range remainder {
		category := foldKey(item.Category)
		venue := foldKey(item.Venue)
		if known[category] {
			continue
		}
		if categoryCount[category] >= r.config.CategoryCap ||
			(venue != "" && venueCount[venue] >= r.config.VenueCap) {
			continue
		}

		item.IsExploration = true
		item.Reason = "Something different to try"
		item.ReasonType = models.ReasonExploration
		remainder = append(remainder[:i], remainder[i+1:]...)
		head = r.insertNearFront(head, item)
		categoryCount[category]++
		if venue != "" {
			venueCount[venue]++
		}
		return head, remainder
	}

	return head, remainder
}

// spliceTrending guarantees at least one trending item in the head.
func (r *DiversityRanker) spliceTrending(
	head, remainder []models.ScoredEvent,
	categoryCount, venueCount map[string]int,
) ([]models.ScoredEvent, []models.ScoredEvent) {
	for _, item := range head {
		if item.IsTrending {
			return head, remainder
		}
	}

	for i, item := range remainder {
		if !item.IsTrending {
			continue
		}
		category := foldKey(item.Category)
		venue := foldKey(item.Venue)
		if categoryCount[category] >= r.config.CategoryCap ||
			(venue != "" && venueCount[venue] >= r.config.VenueCap) {
			continue
		}

		remainder = append(remainder[:i], remainder[i+1:]...)
		head = r.insertNearFront(head, item)
		categoryCount[category]++
		if venue != "" {
			venueCount[venue]++
		}
		return head, remainder
	}

	return head, remainder
}

// insertNearFront splices an item into a randomized position near the top,
// never displacing the very first result.
func (r *DiversityRanker) insertNearFront(head []models.ScoredEvent, item models.ScoredEvent) []models.ScoredEvent {
	window := r.config.InsertWindow
	if window <= 0 {
		window = 5
	}
	if window > len(head) {
		window = len(head)
	}

	pos := 1
	if window > 1 {
		r.mu.Lock()
		pos = 1 + r.rng.Intn(window)
		r.mu.Unlock()
	}
	if pos > len(head) {
		pos = len(head)
	}

	head = append(head, models.ScoredEvent{})
	copy(head[pos+1:], head[pos:])
	head[pos] = item
	return head
}
