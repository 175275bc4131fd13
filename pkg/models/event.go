package models

import (
	"time"

	"github.com/google/uuid"
)

type Event struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	Type          string     `json:"type" db:"type" validate:"required,oneof=event place"`
	Title         string     `json:"title" db:"title" validate:"required,min=1,max=255"`
	Description   *string    `json:"description,omitempty" db:"description"`
	Category      string     `json:"category" db:"category"`
	Tags          []string   `json:"tags,omitempty" db:"tags"`
	Venue         string     `json:"venue,omitempty" db:"venue"`
	Neighborhood  string     `json:"neighborhood,omitempty" db:"neighborhood"`
	City          string     `json:"city" db:"city"`
	PriceText     string     `json:"price_text,omitempty" db:"price_text"`
	IsFree        bool       `json:"is_free" db:"is_free"`
	IsAlcoholFree bool       `json:"is_alcohol_free" db:"is_alcohol_free"`
	StartTime     *time.Time `json:"start_time,omitempty" db:"start_time"`
	SaveCount     int        `json:"save_count" db:"save_count"`
	Active        bool       `json:"active" db:"active"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// ScoreBreakdown records every additive component of an event score.
// The total score is the exact sum of these fields.
type ScoreBreakdown struct {
	Category      float64 `json:"category"`
	Time          float64 `json:"time"`
	Price         float64 `json:"price"`
	Relationship  float64 `json:"relationship"`
	Feedback      float64 `json:"feedback"`
	Constraint    float64 `json:"constraint"`
	DiversityView float64 `json:"diversity_view"`
	Trending      float64 `json:"trending"`
	Companion     float64 `json:"companion"`
	Timing        float64 `json:"timing"`
	Budget        float64 `json:"budget"`
	Vibe          float64 `json:"vibe"`
	Social        float64 `json:"social"`
	Lifestyle     float64 `json:"lifestyle"`
}

// Components returns the breakdown fields in a fixed order.
func (b ScoreBreakdown) Components() []float64 {
	return []float64{
		b.Category, b.Time, b.Price, b.Relationship, b.Feedback,
		b.Constraint, b.DiversityView, b.Trending, b.Companion,
		b.Timing, b.Budget, b.Vibe, b.Social, b.Lifestyle,
	}
}

type ReasonType string

const (
	ReasonCategoryMatch ReasonType = "category_match"
	ReasonSoberFriendly ReasonType = "sober_friendly"
	ReasonDogFriendly   ReasonType = "dog_friendly"
	ReasonTrending      ReasonType = "trending"
	ReasonStartingSoon  ReasonType = "starting_soon"
	ReasonFree          ReasonType = "free"
	ReasonNeighborhood  ReasonType = "neighborhood"
	ReasonFeedback      ReasonType = "feedback"
	ReasonSimilarUsers  ReasonType = "similar_users"
	ReasonExploration   ReasonType = "exploration"
	ReasonDefault       ReasonType = "default"
)

type ScoredEvent struct {
	Event
	Score         float64        `json:"score"`
	Breakdown     ScoreBreakdown `json:"breakdown"`
	Reason        string         `json:"reason"`
	ReasonType    ReasonType     `json:"reason_type"`
	IsExploration bool           `json:"is_exploration"`
	IsTrending    bool           `json:"is_trending"`
}
