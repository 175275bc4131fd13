package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"

	"github.com/sonderhq/sonder/internal/config"
	"github.com/sonderhq/sonder/pkg/models"
)

// GraphSimilarityService is the indexed replacement for the in-memory
// Jaccard scan: the same blend computed inside Neo4j over LIKES and
// SAVED/COMPLETED relationships. Selected via engine.similarity.use_graph.
type GraphSimilarityService struct {
	driver neo4j.DriverWithContext
	config *config.SimilarityConfig
	logger *logrus.Logger
}

func NewGraphSimilarityService(
	driver neo4j.DriverWithContext,
	cfg *config.SimilarityConfig,
	logger *logrus.Logger,
) *GraphSimilarityService {
	return &GraphSimilarityService{
		driver: driver,
		config: cfg,
		logger: logger,
	}
}

func (s *GraphSimilarityService) FindSimilarUsers(
	ctx context.Context,
	userID uuid.UUID,
	limit int,
) ([]models.SimilarUser, error) {
	if limit <= 0 {
		limit = s.config.MaxUsers
	}

	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := `
		MATCH (u1:User {user_id: $userId})
		MATCH (u2:User) WHERE u1 <> u2
		OPTIONAL MATCH (u1)-[:LIKES]->(c1:Category)
		WITH u1, u2, collect(DISTINCT c1.name) AS cats1
		OPTIONAL MATCH (u2)-[:LIKES]->(c2:Category)
		WITH u1, u2, cats1, collect(DISTINCT c2.name) AS cats2
		OPTIONAL MATCH (u1)-[:SAVED|COMPLETED]->(i1:Item)
		WITH u1, u2, cats1, cats2, collect(DISTINCT i1.item_id) AS items1
		OPTIONAL MATCH (u2)-[:SAVED|COMPLETED]->(i2:Item)
		WITH cats1, cats2, items1, collect(DISTINCT i2.item_id) AS items2, u2
		WITH u2,
			 size([c IN cats1 WHERE c IN cats2]) AS catShared,
			 size(cats1) + size(cats2) AS catTotal,
			 size([i IN items1 WHERE i IN items2]) AS itemShared,
			 size(items1) + size(items2) AS itemTotal
		WITH u2, itemShared,
			 CASE WHEN catTotal - catShared = 0 THEN 0.0
				  ELSE toFloat(catShared) / (catTotal - catShared) END AS catSim,
			 CASE WHEN itemTotal - itemShared = 0 THEN 0.0
				  ELSE toFloat(itemShared) / (itemTotal - itemShared) END AS itemSim
		WITH u2, itemShared, $itemWeight * itemSim + $categoryWeight * catSim AS similarity
		WHERE similarity >= $threshold
		RETURN u2.user_id AS user_id, similarity, itemShared AS shared_items
		ORDER BY similarity DESC
		LIMIT $limit`

	result, err := session.Run(ctx, query, map[string]interface{}{
		"userId":         userID.String(),
		"itemWeight":     s.config.ItemWeight,
		"categoryWeight": s.config.CategoryWeight,
		"threshold":      s.config.MinSimilarity,
		"limit":          limit,
	})
	if err != nil {
		return nil, fmt.Errorf("graph similarity query failed: %w", err)
	}

	var users []models.SimilarUser
	for result.Next(ctx) {
		record := result.Record()
		idStr, _ := record.Values[0].(string)
		similarity, _ := record.Values[1].(float64)
		shared, _ := record.Values[2].(int64)

		similarUserID, err := uuid.Parse(idStr)
		if err != nil {
			s.logger.WithField("user_id", idStr).Warn("Skipping malformed user id in graph result")
			continue
		}

		users = append(users, models.SimilarUser{
			UserID:      similarUserID,
			Similarity:  similarity,
			SharedItems: int(shared),
			Basis:       "graph_jaccard_blend",
		})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("graph similarity result failed: %w", err)
	}

	return users, nil
}
