package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sonderhq/sonder/internal/config"
	"github.com/sonderhq/sonder/pkg/models"
)

// SimilarUserFinder isolates neighborhood lookup behind an interface so the
// linear scan can be swapped for an indexed structure (see the graph-backed
// implementation) without touching callers.
type SimilarUserFinder interface {
	FindSimilarUsers(ctx context.Context, userID uuid.UUID, limit int) ([]models.SimilarUser, error)
}

// UserSignalSource supplies the per-user signal projections the similarity
// scan runs over. Owned by the store collaborator.
type UserSignalSource interface {
	GetUserSignals(ctx context.Context, userID uuid.UUID) (*models.UserSignals, error)
	ListUserSignals(ctx context.Context, excludeUserID uuid.UUID) ([]models.UserSignals, error)
}

// JaccardSimilarityService computes pairwise user similarity as a weighted
// blend of Jaccard overlap on liked categories and on want/done items.
// This is the most compute-heavy step in the engine: a linear scan over all
// eligible users, acceptable at current data scale.
type JaccardSimilarityService struct {
	signals UserSignalSource
	config  *config.SimilarityConfig
	logger  *logrus.Logger
}

func NewJaccardSimilarityService(
	signals UserSignalSource,
	cfg *config.SimilarityConfig,
	logger *logrus.Logger,
) *JaccardSimilarityService {
	return &JaccardSimilarityService{
		signals: signals,
		config:  cfg,
		logger:  logger,
	}
}

func (s *JaccardSimilarityService) FindSimilarUsers(
	ctx context.Context,
	userID uuid.UUID,
	limit int,
) ([]models.SimilarUser, error) {
	if limit <= 0 {
		limit = s.config.MaxUsers
	}

	target, err := s.signals.GetUserSignals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load signals for user %s: %w", userID, err)
	}

	others, err := s.signals.ListUserSignals(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user signals: %w", err)
	}

	var similar []models.SimilarUser
	for _, other := range others {
		categorySim := jaccard(target.LikedCategories, other.LikedCategories)
		itemSim := jaccard(target.ActiveItemIDs, other.ActiveItemIDs)

		combined := s.config.ItemWeight*itemSim + s.config.CategoryWeight*categorySim
		if combined < s.config.MinSimilarity {
			continue
		}

		similar = append(similar, models.SimilarUser{
			UserID:      other.UserID,
			Similarity:  combined,
			SharedItems: intersectionSize(target.ActiveItemIDs, other.ActiveItemIDs),
			Basis:       "jaccard_blend",
		})
	}

	sort.Slice(similar, func(i, j int) bool {
		if similar[i].Similarity != similar[j].Similarity {
			return similar[i].Similarity > similar[j].Similarity
		}
		return similar[i].UserID.String() < similar[j].UserID.String()
	})

	if len(similar) > limit {
		similar = similar[:limit]
	}

	s.logger.WithFields(logrus.Fields{
		"user_id":  userID,
		"scanned":  len(others),
		"retained": len(similar),
	}).Debug("Similar user scan completed")

	return similar, nil
}

// jaccard is |A∩B| / |A∪B|, defined as 0 when both sets are empty.
func jaccard[K comparable](a, b map[K]bool) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0.0
	}

	intersection := 0
	for key := range a {
		if b[key] {
			intersection++
		}
	}

	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0.0
	}

	return float64(intersection) / float64(union)
}

func intersectionSize[K comparable](a, b map[K]bool) int {
	count := 0
	for key := range a {
		if b[key] {
			count++
		}
	}
	return count
}
