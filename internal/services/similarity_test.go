package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonderhq/sonder/internal/config"
	"github.com/sonderhq/sonder/pkg/models"
)

type stubSignalSource struct {
	target *models.UserSignals
	others []models.UserSignals
}

func (s *stubSignalSource) GetUserSignals(ctx context.Context, userID uuid.UUID) (*models.UserSignals, error) {
	return s.target, nil
}

func (s *stubSignalSource) ListUserSignals(ctx context.Context, excludeUserID uuid.UUID) ([]models.UserSignals, error) {
	return s.others, nil
}

func categorySet(names ...string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[n] = true
	}
	return set
}

func itemSet(ids ...uuid.UUID) map[uuid.UUID]bool {
	set := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func testSimilarityConfig() *config.SimilarityConfig {
	return &config.SimilarityConfig{
		ItemWeight:     0.65,
		CategoryWeight: 0.35,
		MinSimilarity:  0.1,
		MaxUsers:       20,
	}
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		name     string
		a        []string
		b        []string
		expected float64
	}{
		{"identical sets", []string{"a", "b"}, []string{"a", "b"}, 1.0},
		{"no overlap", []string{"a", "b"}, []string{"c", "d"}, 0.0},
		{"partial overlap", []string{"a", "b", "c"}, []string{"a", "d"}, 0.25},
		{"both empty", nil, nil, 0.0},
		{"one empty", []string{"a"}, nil, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := jaccard(categorySet(tt.a...), categorySet(tt.b...))
			assert.InDelta(t, tt.expected, result, 0.001)
		})
	}
}

func TestJaccard_Symmetry(t *testing.T) {
	a := categorySet("music", "food", "art")
	b := categorySet("food", "outdoors")

	assert.Equal(t, jaccard(a, b), jaccard(b, a))
}

func TestFindSimilarUsers_BlendAndThreshold(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	shared := uuid.New()
	targetID := uuid.New()
	strongID := uuid.New()
	weakID := uuid.New()

	source := &stubSignalSource{
		target: &models.UserSignals{
			UserID:          targetID,
			LikedCategories: categorySet("music", "food"),
			ActiveItemIDs:   itemSet(shared),
		},
		others: []models.UserSignals{
			{
				UserID:          strongID,
				LikedCategories: categorySet("music", "food"),
				ActiveItemIDs:   itemSet(shared),
			},
			{
				UserID:          weakID,
				LikedCategories: categorySet("nightlife"),
				ActiveItemIDs:   itemSet(uuid.New()),
			},
		},
	}

	svc := NewJaccardSimilarityService(source, testSimilarityConfig(), logger)

	similar, err := svc.FindSimilarUsers(context.Background(), targetID, 0)
	require.NoError(t, err)
	require.Len(t, similar, 1)

	assert.Equal(t, strongID, similar[0].UserID)
	assert.InDelta(t, 1.0, similar[0].Similarity, 0.001)
	assert.Equal(t, 1, similar[0].SharedItems)
	assert.Equal(t, "jaccard_blend", similar[0].Basis)
}

func TestFindSimilarUsers_SortedAndLimited(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	itemA, itemB := uuid.New(), uuid.New()
	target := &models.UserSignals{
		UserID:          uuid.New(),
		LikedCategories: categorySet("music"),
		ActiveItemIDs:   itemSet(itemA, itemB),
	}

	var others []models.UserSignals
	for i := 0; i < 5; i++ {
		others = append(others, models.UserSignals{
			UserID:          uuid.New(),
			LikedCategories: categorySet("music"),
			ActiveItemIDs:   itemSet(itemA),
		})
	}
	// One perfect match that must rank first.
	best := models.UserSignals{
		UserID:          uuid.New(),
		LikedCategories: categorySet("music"),
		ActiveItemIDs:   itemSet(itemA, itemB),
	}
	others = append(others, best)

	cfg := testSimilarityConfig()
	cfg.MaxUsers = 3
	svc := NewJaccardSimilarityService(&stubSignalSource{target: target, others: others}, cfg, logger)

	similar, err := svc.FindSimilarUsers(context.Background(), target.UserID, 0)
	require.NoError(t, err)
	require.Len(t, similar, 3)

	assert.Equal(t, best.UserID, similar[0].UserID)
	for i := 1; i < len(similar); i++ {
		assert.GreaterOrEqual(t, similar[i-1].Similarity, similar[i].Similarity)
	}
}

func TestFindSimilarUsers_ColdStart(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	target := &models.UserSignals{
		UserID:          uuid.New(),
		LikedCategories: map[string]bool{},
		ActiveItemIDs:   map[uuid.UUID]bool{},
	}
	others := []models.UserSignals{
		{
			UserID:          uuid.New(),
			LikedCategories: categorySet("music"),
			ActiveItemIDs:   itemSet(uuid.New()),
		},
	}

	svc := NewJaccardSimilarityService(&stubSignalSource{target: target, others: others}, testSimilarityConfig(), logger)

	similar, err := svc.FindSimilarUsers(context.Background(), target.UserID, 0)
	require.NoError(t, err)
	assert.Empty(t, similar)
}
