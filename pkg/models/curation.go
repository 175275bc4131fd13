package models

import "time"

// Candidate is the reduced item projection handed to the AI curation layer.
// The curator can never see or emit anything outside a supplied candidate set.
type Candidate struct {
	ID         string     `json:"id"`
	Type       string     `json:"type"`
	Title      string     `json:"title"`
	Category   string     `json:"category"`
	Tags       []string   `json:"tags,omitempty"`
	Date       *time.Time `json:"date,omitempty"`
	Venue      string     `json:"venue,omitempty"`
	Price      string     `json:"price,omitempty"`
	MatchScore float64    `json:"match_score"`
}

type SuggestionOutput struct {
	WeeklyPickIDs  []string          `json:"weekly_pick_ids"`
	MonthlyPickIDs []string          `json:"monthly_pick_ids"`
	ReasonsByID    map[string]string `json:"reasons_by_id"`
	SummaryText    string            `json:"summary_text"`
	Source         string            `json:"source"`
	GeneratedAt    time.Time         `json:"generated_at"`
}

type CurationResponse struct {
	UserID      string            `json:"user_id"`
	Suggestions *SuggestionOutput `json:"suggestions"`
	GeneratedAt time.Time         `json:"generated_at"`
}
