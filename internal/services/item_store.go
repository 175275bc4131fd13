package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/sonderhq/sonder/pkg/models"
)

// DatabaseQuerier is the subset of pgxpool.Pool the store uses. pgxmock
// satisfies it directly in tests.
type DatabaseQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ItemStore backs ItemStoreInterface with PostgreSQL for item and profile
// data and warm Redis for the precomputed trending sets.
type ItemStore struct {
	db     DatabaseQuerier
	redis  *redis.Client
	logger *logrus.Logger
}

func NewItemStore(db DatabaseQuerier, warmRedis *redis.Client, logger *logrus.Logger) *ItemStore {
	return &ItemStore{db: db, redis: warmRedis, logger: logger}
}

const eventColumns = `id, type, title, description, category, tags, venue, neighborhood,
	city, price_text, is_free, is_alcohol_free, start_time, save_count, active,
	created_at, updated_at`

func scanEvent(rows pgx.Rows) (models.Event, error) {
	var e models.Event
	err := rows.Scan(
		&e.ID, &e.Type, &e.Title, &e.Description, &e.Category, &e.Tags,
		&e.Venue, &e.Neighborhood, &e.City, &e.PriceText, &e.IsFree,
		&e.IsAlcoholFree, &e.StartTime, &e.SaveCount, &e.Active,
		&e.CreatedAt, &e.UpdatedAt,
	)
	return e, err
}

// FindCandidates returns active items, newest first for places and
// soonest-first for events, optionally filtered by type and categories.
func (s *ItemStore) FindCandidates(
	ctx context.Context,
	itemType string,
	categories []string,
	after *time.Time,
	limit int,
) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM items WHERE active = true`
	args := []any{}
	argPos := 1

	if itemType != "" {
		query += fmt.Sprintf(" AND type = $%d", argPos)
		args = append(args, itemType)
		argPos++
	}
	if len(categories) > 0 {
		query += fmt.Sprintf(" AND category = ANY($%d)", argPos)
		args = append(args, categories)
		argPos++
	}
	if after != nil {
		query += fmt.Sprintf(" AND (start_time IS NULL OR start_time > $%d)", argPos)
		args = append(args, *after)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY start_time ASC NULLS LAST, created_at DESC LIMIT $%d", argPos)
	args = append(args, limit)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (s *ItemStore) FindItemsWithStatus(
	ctx context.Context,
	userIDs []uuid.UUID,
	statuses []models.ItemStatus,
	itemType string,
) (map[uuid.UUID][]models.StatusContribution, error) {
	if len(userIDs) == 0 || len(statuses) == 0 {
		return map[uuid.UUID][]models.StatusContribution{}, nil
	}

	statusStrings := make([]string, len(statuses))
	for i, st := range statuses {
		statusStrings[i] = string(st)
	}

	query := `
		SELECT us.item_id, us.user_id, us.status
		FROM user_item_statuses us
		JOIN items i ON i.id = us.item_id
		WHERE us.user_id = ANY($1) AND us.status = ANY($2) AND i.active = true`
	args := []any{userIDs, statusStrings}
	if itemType != "" {
		query += " AND i.type = $3"
		args = append(args, itemType)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query item statuses: %w", err)
	}
	defer rows.Close()

	result := make(map[uuid.UUID][]models.StatusContribution)
	for rows.Next() {
		var itemID uuid.UUID
		var contribution models.StatusContribution
		var status string
		if err := rows.Scan(&itemID, &contribution.UserID, &status); err != nil {
			return nil, fmt.Errorf("failed to scan status row: %w", err)
		}
		contribution.Status = models.ItemStatus(status)
		result[itemID] = append(result[itemID], contribution)
	}
	return result, rows.Err()
}

func (s *ItemStore) CountInteractions(ctx context.Context, itemType string, limit int) ([]models.InteractionCount, error) {
	query := `
		SELECT i.id, COUNT(ui.id) AS interactions, COALESCE(AVG(ui.rating), 0) AS avg_rating
		FROM items i
		JOIN user_interactions ui ON ui.item_id = i.id
		WHERE i.active = true`
	args := []any{}
	if itemType != "" {
		query += " AND i.type = $1"
		args = append(args, itemType)
	}
	query += fmt.Sprintf(` GROUP BY i.id ORDER BY interactions DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count interactions: %w", err)
	}
	defer rows.Close()

	var counts []models.InteractionCount
	for rows.Next() {
		var c models.InteractionCount
		if err := rows.Scan(&c.ItemID, &c.Count, &c.AvgRating); err != nil {
			return nil, fmt.Errorf("failed to scan interaction count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

func (s *ItemStore) GetEventsByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Event, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]models.Event{}, nil
	}

	query := `SELECT ` + eventColumns + ` FROM items WHERE id = ANY($1)`
	rows, err := s.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query events by id: %w", err)
	}
	defer rows.Close()

	events := make(map[uuid.UUID]models.Event, len(ids))
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events[event.ID] = event
	}
	return events, rows.Err()
}

// GetUserAggregates materializes the full user profile. Profile JSON columns
// decode into their typed aggregates; missing sections stay nil.
func (s *ItemStore) GetUserAggregates(ctx context.Context, userID uuid.UUID) (*models.UserAggregates, error) {
	aggregates := &models.UserAggregates{
		UserID: userID,
		Preferences: models.UserPreferences{
			Categories: make(map[string]models.CategoryPreference),
		},
	}

	var preferencesJSON, detailedJSON, feedbackJSON, constraintsJSON, feedViewsJSON []byte
	err := s.db.QueryRow(ctx, `
		SELECT city, preferences, detailed_preferences, feedback, constraints, feed_views
		FROM user_profiles WHERE user_id = $1`, userID,
	).Scan(&aggregates.City, &preferencesJSON, &detailedJSON, &feedbackJSON, &constraintsJSON, &feedViewsJSON)
	if err != nil {
		if err == pgx.ErrNoRows {
			return aggregates, nil
		}
		return nil, fmt.Errorf("failed to load user profile: %w", err)
	}

	decodeProfileSection(preferencesJSON, &aggregates.Preferences, s.logger, "preferences")
	aggregates.Detailed = decodeOptional[models.DetailedPreferences](detailedJSON, s.logger, "detailed_preferences")
	aggregates.Feedback = decodeOptional[models.FeedbackData](feedbackJSON, s.logger, "feedback")
	aggregates.Constraints = decodeOptional[models.ConstraintsData](constraintsJSON, s.logger, "constraints")
	aggregates.FeedViews = decodeOptional[models.FeedViewData](feedViewsJSON, s.logger, "feed_views")

	statuses, err := s.loadStatuses(ctx, userID)
	if err != nil {
		return nil, err
	}
	aggregates.Statuses = statuses

	ratings, err := s.loadRatings(ctx, userID)
	if err != nil {
		return nil, err
	}
	aggregates.Ratings = ratings

	return aggregates, nil
}

func (s *ItemStore) loadStatuses(ctx context.Context, userID uuid.UUID) ([]models.StatusRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT us.item_id, i.category, i.tags, us.status
		FROM user_item_statuses us
		JOIN items i ON i.id = us.item_id
		WHERE us.user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load statuses: %w", err)
	}
	defer rows.Close()

	var statuses []models.StatusRecord
	for rows.Next() {
		var r models.StatusRecord
		var status string
		if err := rows.Scan(&r.ItemID, &r.Category, &r.Tags, &status); err != nil {
			return nil, fmt.Errorf("failed to scan status: %w", err)
		}
		r.Status = models.ItemStatus(status)
		statuses = append(statuses, r)
	}
	return statuses, rows.Err()
}

func (s *ItemStore) loadRatings(ctx context.Context, userID uuid.UUID) ([]models.RatingRecord, error) {
	rows, err := s.db.Query(ctx, `
		SELECT ui.item_id, i.category, ui.rating
		FROM user_interactions ui
		JOIN items i ON i.id = ui.item_id
		WHERE ui.user_id = $1 AND ui.interaction_type = 'rating'`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ratings: %w", err)
	}
	defer rows.Close()

	var ratings []models.RatingRecord
	for rows.Next() {
		var r models.RatingRecord
		if err := rows.Scan(&r.ItemID, &r.Category, &r.Rating); err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		ratings = append(ratings, r)
	}
	return ratings, rows.Err()
}

// GetExcludedItemIDs returns items the user already acted on. Hidden items are
// covered separately by the feedback aggregate.
func (s *ItemStore) GetExcludedItemIDs(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	rows, err := s.db.Query(ctx,
		`SELECT item_id FROM user_item_statuses WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load exclusions: %w", err)
	}
	defer rows.Close()

	excluded := make(map[uuid.UUID]bool)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan exclusion: %w", err)
		}
		excluded[id] = true
	}
	return excluded, rows.Err()
}

// GetUserSignals builds the similarity projection for one user: liked
// categories plus want/done item IDs.
func (s *ItemStore) GetUserSignals(ctx context.Context, userID uuid.UUID) (*models.UserSignals, error) {
	signals := &models.UserSignals{
		UserID:          userID,
		LikedCategories: make(map[string]bool),
		ActiveItemIDs:   make(map[uuid.UUID]bool),
	}

	var preferencesJSON []byte
	err := s.db.QueryRow(ctx,
		`SELECT preferences FROM user_profiles WHERE user_id = $1`, userID,
	).Scan(&preferencesJSON)
	if err != nil && err != pgx.ErrNoRows {
		return nil, fmt.Errorf("failed to load user preferences: %w", err)
	}
	if len(preferencesJSON) > 0 {
		var prefs models.UserPreferences
		if err := json.Unmarshal(preferencesJSON, &prefs); err == nil {
			for category, pref := range prefs.Categories {
				if pref.Type == models.PreferenceLike {
					signals.LikedCategories[foldKey(category)] = true
				}
			}
		}
	}

	rows, err := s.db.Query(ctx, `
		SELECT item_id FROM user_item_statuses
		WHERE user_id = $1 AND status = ANY($2)`,
		userID, []string{string(models.StatusWant), string(models.StatusDone)})
	if err != nil {
		return nil, fmt.Errorf("failed to load user item signals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan item signal: %w", err)
		}
		signals.ActiveItemIDs[id] = true
	}
	return signals, rows.Err()
}

// ListUserSignals loads the projection for every user except the given one.
// One query, grouped in memory; the similarity scan is linear anyway.
func (s *ItemStore) ListUserSignals(ctx context.Context, excludeUserID uuid.UUID) ([]models.UserSignals, error) {
	byUser := make(map[uuid.UUID]*models.UserSignals)

	ensure := func(userID uuid.UUID) *models.UserSignals {
		if sig, ok := byUser[userID]; ok {
			return sig
		}
		sig := &models.UserSignals{
			UserID:          userID,
			LikedCategories: make(map[string]bool),
			ActiveItemIDs:   make(map[uuid.UUID]bool),
		}
		byUser[userID] = sig
		return sig
	}

	prefRows, err := s.db.Query(ctx,
		`SELECT user_id, preferences FROM user_profiles WHERE user_id <> $1`, excludeUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user preferences: %w", err)
	}
	defer prefRows.Close()

	for prefRows.Next() {
		var userID uuid.UUID
		var preferencesJSON []byte
		if err := prefRows.Scan(&userID, &preferencesJSON); err != nil {
			return nil, fmt.Errorf("failed to scan user preferences: %w", err)
		}
		sig := ensure(userID)
		if len(preferencesJSON) == 0 {
			continue
		}
		var prefs models.UserPreferences
		if err := json.Unmarshal(preferencesJSON, &prefs); err != nil {
			continue
		}
		for category, pref := range prefs.Categories {
			if pref.Type == models.PreferenceLike {
				sig.LikedCategories[foldKey(category)] = true
			}
		}
	}
	if err := prefRows.Err(); err != nil {
		return nil, err
	}

	statusRows, err := s.db.Query(ctx, `
		SELECT user_id, item_id FROM user_item_statuses
		WHERE user_id <> $1 AND status = ANY($2)`,
		excludeUserID, []string{string(models.StatusWant), string(models.StatusDone)})
	if err != nil {
		return nil, fmt.Errorf("failed to list item signals: %w", err)
	}
	defer statusRows.Close()

	for statusRows.Next() {
		var userID, itemID uuid.UUID
		if err := statusRows.Scan(&userID, &itemID); err != nil {
			return nil, fmt.Errorf("failed to scan item signal: %w", err)
		}
		ensure(userID).ActiveItemIDs[itemID] = true
	}
	if err := statusRows.Err(); err != nil {
		return nil, err
	}

	signals := make([]models.UserSignals, 0, len(byUser))
	for _, sig := range byUser {
		signals = append(signals, *sig)
	}
	return signals, nil
}

// TrendingItemIDs reads the per-city trending set maintained by the
// interaction consumer. An empty or missing set is not an error.
func (s *ItemStore) TrendingItemIDs(ctx context.Context, city string, limit int) ([]uuid.UUID, error) {
	if s.redis == nil {
		return nil, nil
	}

	key := trendingKey(city)
	members, err := s.redis.ZRevRange(ctx, key, 0, int64(limit-1)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read trending set: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(members))
	for _, member := range members {
		id, err := uuid.Parse(member)
		if err != nil {
			s.logger.WithField("member", member).Warn("Skipping malformed trending entry")
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// RecordStatus upserts a want/done/pass mark.
func (s *ItemStore) RecordStatus(ctx context.Context, userID, itemID uuid.UUID, status models.ItemStatus) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO user_item_statuses (user_id, item_id, status, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, item_id) DO UPDATE SET status = $3, updated_at = NOW()`,
		userID, itemID, string(status))
	if err != nil {
		return fmt.Errorf("failed to record status: %w", err)
	}
	return nil
}

// RecordInteraction appends one interaction row.
func (s *ItemStore) RecordInteraction(ctx context.Context, userID, itemID uuid.UUID, interactionType string, rating *float64) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO user_interactions (user_id, item_id, interaction_type, rating, created_at)
		VALUES ($1, $2, $3, $4, NOW())`,
		userID, itemID, interactionType, rating)
	if err != nil {
		return fmt.Errorf("failed to record interaction: %w", err)
	}
	return nil
}

func trendingKey(city string) string {
	if city == "" {
		city = "global"
	}
	return "trending:" + foldKey(city)
}

func decodeProfileSection(data []byte, target any, logger *logrus.Logger, section string) {
	if len(data) == 0 {
		return
	}
	if err := json.Unmarshal(data, target); err != nil {
		logger.WithError(err).WithField("section", section).Warn("Skipping malformed profile section")
	}
}

func decodeOptional[T any](data []byte, logger *logrus.Logger, section string) *T {
	if len(data) == 0 {
		return nil
	}
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		logger.WithError(err).WithField("section", section).Warn("Skipping malformed profile section")
		return nil
	}
	return &value
}
