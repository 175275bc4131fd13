package models

import "github.com/google/uuid"

// UserAggregates is everything the engine needs about one user, materialized
// by the store in a single call. The engine never reads storage directly.
type UserAggregates struct {
	UserID      uuid.UUID            `json:"user_id"`
	City        string               `json:"city,omitempty"`
	Preferences UserPreferences      `json:"preferences"`
	Detailed    *DetailedPreferences `json:"detailed,omitempty"`
	Statuses    []StatusRecord       `json:"statuses,omitempty"`
	Ratings     []RatingRecord       `json:"ratings,omitempty"`
	Feedback    *FeedbackData        `json:"feedback,omitempty"`
	Constraints *ConstraintsData     `json:"constraints,omitempty"`
	FeedViews   *FeedViewData        `json:"feed_views,omitempty"`
}

// StatusContribution is one similar user's want/done mark on an item.
type StatusContribution struct {
	UserID uuid.UUID  `json:"user_id"`
	Status ItemStatus `json:"status"`
}

type InteractionCount struct {
	ItemID    uuid.UUID `json:"item_id"`
	Count     int       `json:"count"`
	AvgRating float64   `json:"avg_rating"`
}
