package models

import (
	"time"

	"github.com/google/uuid"
)

type PreferenceType string

const (
	PreferenceLike    PreferenceType = "like"
	PreferenceDislike PreferenceType = "dislike"
)

type RelationshipStatus string

const (
	RelationshipSingle RelationshipStatus = "single"
	RelationshipCouple RelationshipStatus = "couple"
)

type CategoryPreference struct {
	Type      PreferenceType `json:"type" validate:"required,oneof=like dislike"`
	Intensity int            `json:"intensity" validate:"min=1,max=5"`
}

type UserPreferences struct {
	Categories   map[string]CategoryPreference `json:"categories"`
	Relationship RelationshipStatus            `json:"relationship,omitempty"`
}

type ItemStatus string

const (
	StatusWant ItemStatus = "want"
	StatusDone ItemStatus = "done"
	StatusPass ItemStatus = "pass"
)

// StatusRecord is one user-item status signal, carrying enough of the item
// to aggregate category and tag affinity without a second lookup.
type StatusRecord struct {
	ItemID   uuid.UUID  `json:"item_id"`
	Category string     `json:"category"`
	Tags     []string   `json:"tags,omitempty"`
	Status   ItemStatus `json:"status"`
}

type RatingRecord struct {
	ItemID   uuid.UUID `json:"item_id"`
	Category string    `json:"category"`
	Rating   int       `json:"rating" validate:"min=1,max=5"`
}

type CompanionType string

const (
	CompanionSolo    CompanionType = "solo"
	CompanionDate    CompanionType = "date"
	CompanionFriends CompanionType = "friends"
	CompanionFamily  CompanionType = "family"
)

type VibeLevel string

const (
	VibeChill      VibeLevel = "chill"
	VibeModerate   VibeLevel = "moderate"
	VibeHighEnergy VibeLevel = "high_energy"
)

type BudgetTier string

const (
	BudgetUnset  BudgetTier = ""
	BudgetFree   BudgetTier = "free"
	BudgetLow    BudgetTier = "low"
	BudgetMedium BudgetTier = "medium"
	BudgetHigh   BudgetTier = "high"
)

type SocialIntent string

const (
	SocialUnset      SocialIntent = ""
	SocialMeetPeople SocialIntent = "meet_people"
	SocialOwnThing   SocialIntent = "own_thing"
	SocialEither     SocialIntent = "either"
)

// DetailedPreferences holds the per-dimension onboarding answers.
// Intensities are 1-5; a zero value means the dimension was not answered.
type DetailedPreferences struct {
	Companions          map[CompanionType]int `json:"companions,omitempty"`
	TimeSlots           map[string]int        `json:"time_slots,omitempty"`
	Vibes               map[VibeLevel]int     `json:"vibes,omitempty"`
	BudgetCeiling       BudgetTier            `json:"budget_ceiling,omitempty"`
	SocialIntent        SocialIntent          `json:"social_intent,omitempty"`
	HasDog              bool                  `json:"has_dog"`
	DogFriendlyOnly     bool                  `json:"dog_friendly_only"`
	PreferSoberFriendly bool                  `json:"prefer_sober_friendly"`
	AvoidBars           bool                  `json:"avoid_bars"`
}

// FeedbackData aggregates explicit "more like this"/"less like this" signals.
// Boost counters are net counts (more minus less); hidden items are a hard
// exclusion handled by sentinel scoring.
type FeedbackData struct {
	CategoryBoosts map[string]int     `json:"category_boosts,omitempty"`
	VenueBoosts    map[string]int     `json:"venue_boosts,omitempty"`
	HiddenItemIDs  map[uuid.UUID]bool `json:"hidden_item_ids,omitempty"`
}

type ConstraintsData struct {
	PreferredDays    []time.Weekday `json:"preferred_days,omitempty"`
	PreferredTimes   []string       `json:"preferred_times,omitempty"`
	Neighborhoods    []string       `json:"neighborhoods,omitempty"`
	HomeNeighborhood string         `json:"home_neighborhood,omitempty"`
	BudgetCeiling    float64        `json:"budget_ceiling,omitempty"`
	FreeOnly         bool           `json:"free_only"`
	DiscoveryMode    bool           `json:"discovery_mode"`
}

// FeedViewData tracks how often items were shown and which were acted on,
// used to penalize candidates the user keeps scrolling past.
type FeedViewData struct {
	SeenCounts    map[uuid.UUID]int  `json:"seen_counts,omitempty"`
	InteractedIDs map[uuid.UUID]bool `json:"interacted_ids,omitempty"`
}

// TasteVector is the per-request aggregate of category and tag affinity
// weights. It is built fresh on every scoring call and never persisted.
type TasteVector struct {
	Categories map[string]float64 `json:"categories"`
	Tags       map[string]float64 `json:"tags"`
}

// UserSignals is the minimal per-user projection the similarity engine
// scans: liked categories and items with want/done status.
type UserSignals struct {
	UserID          uuid.UUID          `json:"user_id"`
	LikedCategories map[string]bool    `json:"liked_categories"`
	ActiveItemIDs   map[uuid.UUID]bool `json:"active_item_ids"`
}

type SimilarUser struct {
	UserID      uuid.UUID `json:"user_id"`
	Similarity  float64   `json:"similarity"`
	SharedItems int       `json:"shared_items"`
	Basis       string    `json:"basis"`
}
