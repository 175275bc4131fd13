package models

import (
	"time"

	"github.com/google/uuid"
)

type ScoredItem struct {
	ItemID     uuid.UUID  `json:"item_id"`
	Score      float64    `json:"score"`
	Tier       string     `json:"tier"`
	Reason     string     `json:"reason,omitempty"`
	ReasonType ReasonType `json:"reason_type,omitempty"`
	Item       *Event     `json:"item,omitempty"`
}

type RecommendationRequest struct {
	UserID   uuid.UUID `json:"user_id" validate:"required"`
	ItemType string    `json:"item_type" validate:"omitempty,oneof=event place"`
	Limit    int       `json:"limit" validate:"min=1,max=100"`
}

type RecommendationResponse struct {
	UserID          uuid.UUID    `json:"user_id"`
	Recommendations []ScoredItem `json:"recommendations"`
	GeneratedAt     time.Time    `json:"generated_at"`
}

type ScoreEventsRequest struct {
	UserID     uuid.UUID `json:"user_id" validate:"required"`
	Candidates []Event   `json:"candidates" validate:"required,min=1,max=500"`
}

type ScoreEventsResponse struct {
	UserID      uuid.UUID     `json:"user_id"`
	Events      []ScoredEvent `json:"events"`
	GeneratedAt time.Time     `json:"generated_at"`
}

type InteractionRequest struct {
	UserID    uuid.UUID `json:"user_id" validate:"required"`
	ItemID    uuid.UUID `json:"item_id" validate:"required"`
	Type      string    `json:"type" validate:"required,oneof=want done pass rating more less hide view"`
	Value     *float64  `json:"value,omitempty" validate:"omitempty,min=1,max=5"`
	SessionID uuid.UUID `json:"session_id" validate:"required"`
}

type InteractionEvent struct {
	UserID    uuid.UUID `json:"user_id"`
	ItemID    uuid.UUID `json:"item_id"`
	City      string    `json:"city,omitempty"`
	Type      string    `json:"type"`
	Value     *float64  `json:"value,omitempty"`
	SessionID uuid.UUID `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
}
