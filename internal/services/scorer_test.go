package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"github.com/sonderhq/sonder/internal/config"
	"github.com/sonderhq/sonder/pkg/models"
)

func testScoringConfig() *config.ScoringConfig {
	return &config.ScoringConfig{
		CategoryBaseline:      10.0,
		CategoryIntensityStep: 4.0,
		CategoryMax:           30.0,
		CategoryMin:           -10.0,
		PlaceTimeScore:        8.0,
		TimeSoonestScore:      25.0,
		TimeSoonScore:         20.0,
		TimeThisWeekScore:     15.0,
		TimeNextWeekScore:     10.0,
		TimeLaterScore:        5.0,
		FreePriceScore:        15.0,
		CheapPriceScore:       12.0,
		ModeratePriceScore:    8.0,
		HighPriceScore:        4.0,
		PremiumPriceScore:     0.0,
		DefaultPriceScore:     8.0,
		RelationshipBonus:     8.0,
		FeedbackCategoryStep:  4.0,
		FeedbackVenueStep:     3.0,
		FeedbackCap:           15.0,
		ConstraintDayBonus:    6.0,
		ConstraintTimeBonus:   6.0,
		ConstraintHoodBonus:   8.0,
		BudgetPenalty:         -50.0,
		BudgetFitBonus:        4.0,
		BudgetExceedPenalty:   -6.0,
		SocialIntentBonus:     6.0,
		SocialEitherBonus:     2.0,
		SeenThreshold:         3,
		SeenPenaltyStep:       3.0,
		SeenPenaltyCap:        15.0,
		TrendingSetBonus:      12.0,
		HighSaveBonus:         8.0,
		ModerateSaveBonus:     4.0,
		HighSaveCount:         50,
		ModerateSaveCount:     20,
		DetailMax:             8.0,
		DetailIntensityStep:   1.5,
		SoberMaxBonus:         10.0,
		SoberTagBonus:         5.0,
		AvoidBarsPenalty:      -10.0,
		DogBonus:              6.0,
		DogOnlyPenalty:        -10.0,
		HiddenScore:           -1000.0,
		FilterCutoff:          -100.0,
	}
}

func newTestScorer() *EventScoringService {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return NewEventScoringService(testScoringConfig(), DefaultScoringVocabulary(), nil, logger)
}

func testTime(hoursAhead float64) *time.Time {
	t := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC).Add(time.Duration(hoursAhead * float64(time.Hour)))
	return &t
}

func testNow() time.Time {
	return time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
}

func TestScoreEvent_ScoreIsSumOfBreakdown(t *testing.T) {
	scorer := newTestScorer()

	event := models.Event{
		ID:        uuid.New(),
		Type:      "event",
		Title:     "Jazz Night",
		Category:  "music",
		Tags:      []string{"live", "chill"},
		Venue:     "Blue Room",
		City:      "Portland",
		PriceText: "$20",
		StartTime: testTime(10),
		SaveCount: 25,
	}

	sctx := &ScoringContext{
		Preferences: models.UserPreferences{
			Categories: map[string]models.CategoryPreference{
				"music": {Type: models.PreferenceLike, Intensity: 2},
			},
		},
		Detailed: &models.DetailedPreferences{
			Vibes: map[models.VibeLevel]int{models.VibeChill: 3},
		},
		Now: testNow(),
	}

	se := scorer.ScoreEvent(event, sctx)

	assert.InDelta(t, floats.Sum(se.Breakdown.Components()), se.Score, 1e-9)
	assert.Greater(t, se.Score, 0.0)
}

func TestScoreEvent_LikedVersusDislikedCategory(t *testing.T) {
	scorer := newTestScorer()

	sctx := &ScoringContext{
		Preferences: models.UserPreferences{
			Categories: map[string]models.CategoryPreference{
				"coffee": {Type: models.PreferenceLike, Intensity: 3},
				"bars":   {Type: models.PreferenceDislike, Intensity: 3},
			},
		},
		Now: testNow(),
	}

	coffee := scorer.ScoreEvent(models.Event{ID: uuid.New(), Category: "coffee"}, sctx)
	bars := scorer.ScoreEvent(models.Event{ID: uuid.New(), Category: "bars"}, sctx)

	// 10 + 3*4 clamped to 22; 10 - 3*4 clamped to -2
	assert.Equal(t, 22.0, coffee.Breakdown.Category)
	assert.Equal(t, -2.0, bars.Breakdown.Category)
	assert.Greater(t, coffee.Score, bars.Score)
}

func TestScoreEvent_CategoryClamping(t *testing.T) {
	scorer := newTestScorer()

	sctx := &ScoringContext{
		Preferences: models.UserPreferences{
			Categories: map[string]models.CategoryPreference{
				"music": {Type: models.PreferenceLike, Intensity: 10},
				"bars":  {Type: models.PreferenceDislike, Intensity: 10},
			},
		},
		Now: testNow(),
	}

	loved := scorer.ScoreEvent(models.Event{ID: uuid.New(), Category: "music"}, sctx)
	hated := scorer.ScoreEvent(models.Event{ID: uuid.New(), Category: "bars"}, sctx)

	assert.Equal(t, 30.0, loved.Breakdown.Category)
	assert.Equal(t, -10.0, hated.Breakdown.Category)
}

func TestScoreEvent_TimeBands(t *testing.T) {
	scorer := newTestScorer()
	sctx := &ScoringContext{Now: testNow()}

	tests := []struct {
		name     string
		start    *time.Time
		expected float64
	}{
		{"in 10 hours", testTime(10), 25},
		{"in 2 days", testTime(48), 20},
		{"in 6 days", testTime(144), 15},
		{"in 10 days", testTime(240), 10},
		{"in 30 days", testTime(720), 5},
		{"already past", testTime(-5), 0},
		{"place without date", nil, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			se := scorer.ScoreEvent(models.Event{ID: uuid.New(), StartTime: tt.start}, sctx)
			assert.Equal(t, tt.expected, se.Breakdown.Time)
		})
	}
}

func TestScoreEvent_PriceParsing(t *testing.T) {
	scorer := newTestScorer()
	sctx := &ScoringContext{Now: testNow()}

	tests := []struct {
		name     string
		isFree   bool
		price    string
		expected float64
	}{
		{"free flag wins", true, "$100", 15},
		{"cheap", false, "$12", 12},
		{"range uses max", false, "$10-25", 8},
		{"expensive", false, "$120", 0},
		{"unparseable defaults medium", false, "donation suggested", 8},
		{"decimal", false, "$14.50", 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			se := scorer.ScoreEvent(models.Event{ID: uuid.New(), IsFree: tt.isFree, PriceText: tt.price}, sctx)
			assert.Equal(t, tt.expected, se.Breakdown.Price)
		})
	}
}

func TestScoreEvent_HiddenItemSentinel(t *testing.T) {
	scorer := newTestScorer()

	hiddenID := uuid.New()
	sctx := &ScoringContext{
		Feedback: &models.FeedbackData{
			HiddenItemIDs: map[uuid.UUID]bool{hiddenID: true},
		},
		Now: testNow(),
	}

	se := scorer.ScoreEvent(models.Event{ID: hiddenID, Category: "music", IsFree: true}, sctx)

	assert.Equal(t, -1000.0, se.Score)
	assert.Equal(t, -1000.0, se.Breakdown.Feedback)
	assert.Equal(t, 0.0, se.Breakdown.Category)
	assert.Equal(t, 0.0, se.Breakdown.Price)
	assert.InDelta(t, floats.Sum(se.Breakdown.Components()), se.Score, 1e-9)
}

func TestScoreEvent_SoberPreference(t *testing.T) {
	scorer := newTestScorer()

	sctx := &ScoringContext{
		Detailed: &models.DetailedPreferences{PreferSoberFriendly: true},
		Now:      testNow(),
	}

	alcoholFree := scorer.ScoreEvent(models.Event{ID: uuid.New(), IsAlcoholFree: true}, sctx)
	taggedSober := scorer.ScoreEvent(models.Event{ID: uuid.New(), Tags: []string{"mocktails"}}, sctx)
	neither := scorer.ScoreEvent(models.Event{ID: uuid.New()}, sctx)

	assert.Equal(t, 10.0, alcoholFree.Breakdown.Lifestyle)
	assert.Equal(t, 5.0, taggedSober.Breakdown.Lifestyle)
	assert.Equal(t, 0.0, neither.Breakdown.Lifestyle)
	assert.Equal(t, models.ReasonSoberFriendly, alcoholFree.ReasonType)
}

func TestScoreEvent_AvoidBarsAndDog(t *testing.T) {
	scorer := newTestScorer()

	sctx := &ScoringContext{
		Detailed: &models.DetailedPreferences{
			AvoidBars:       true,
			HasDog:          true,
			DogFriendlyOnly: true,
		},
		Now: testNow(),
	}

	bar := scorer.ScoreEvent(models.Event{ID: uuid.New(), Category: "bars"}, sctx)
	dogPark := scorer.ScoreEvent(models.Event{ID: uuid.New(), Category: "outdoors", Tags: []string{"dog-friendly"}}, sctx)

	// bar: dog-only penalty -10 plus avoid-bars -10
	assert.Equal(t, -20.0, bar.Breakdown.Lifestyle)
	assert.Equal(t, 6.0, dogPark.Breakdown.Lifestyle)
	assert.Equal(t, models.ReasonDogFriendly, dogPark.ReasonType)
}

func TestScoreEvent_BudgetConstraintPenalty(t *testing.T) {
	scorer := newTestScorer()

	sctx := &ScoringContext{
		Constraints: &models.ConstraintsData{FreeOnly: true},
		Now:         testNow(),
	}

	paid := scorer.ScoreEvent(models.Event{ID: uuid.New(), PriceText: "$30"}, sctx)
	free := scorer.ScoreEvent(models.Event{ID: uuid.New(), IsFree: true}, sctx)

	assert.Equal(t, -50.0, paid.Breakdown.Constraint)
	assert.Equal(t, 0.0, free.Breakdown.Constraint)
	assert.Greater(t, free.Score, paid.Score)
}

func TestScoreEvent_CompanionIntensity(t *testing.T) {
	scorer := newTestScorer()

	tests := []struct {
		name       string
		companions map[models.CompanionType]int
		tags       []string
		expected   float64
	}{
		{"matching tag scales with intensity", map[models.CompanionType]int{models.CompanionDate: 2}, []string{"romantic"}, 3},
		{"intensity capped at detail max", map[models.CompanionType]int{models.CompanionDate: 10}, []string{"romantic"}, 8},
		{"no matching tag", map[models.CompanionType]int{models.CompanionDate: 5}, []string{"trivia"}, 0},
		{"best companion wins", map[models.CompanionType]int{models.CompanionDate: 2, models.CompanionFriends: 4}, []string{"romantic", "trivia"}, 6},
		{"zero intensity ignored", map[models.CompanionType]int{models.CompanionDate: 0}, []string{"romantic"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sctx := &ScoringContext{
				Detailed: &models.DetailedPreferences{Companions: tt.companions},
				Now:      testNow(),
			}
			se := scorer.ScoreEvent(models.Event{ID: uuid.New(), Tags: tt.tags}, sctx)
			assert.Equal(t, tt.expected, se.Breakdown.Companion)
		})
	}
}

func TestScoreEvent_TimingSlotMatch(t *testing.T) {
	scorer := newTestScorer()

	saturdayEvening := time.Date(2025, 6, 14, 19, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		start    *time.Time
		slots    map[string]int
		expected float64
	}{
		{"matching slot scales with intensity", &saturdayEvening, map[string]int{"weekend_evening": 3}, 4.5},
		{"intensity capped at detail max", &saturdayEvening, map[string]int{"weekend_evening": 10}, 8},
		{"non-matching slot", &saturdayEvening, map[string]int{"weekday_morning": 5}, 0},
		{"undated place", nil, map[string]int{"weekend_evening": 5}, 0},
		{"no slots answered", &saturdayEvening, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sctx := &ScoringContext{
				Detailed: &models.DetailedPreferences{TimeSlots: tt.slots},
				Now:      testNow(),
			}
			se := scorer.ScoreEvent(models.Event{ID: uuid.New(), StartTime: tt.start}, sctx)
			assert.Equal(t, tt.expected, se.Breakdown.Timing)
		})
	}
}

func TestScoreEvent_BudgetCeilingBoundaries(t *testing.T) {
	scorer := newTestScorer()

	tests := []struct {
		name     string
		ceiling  models.BudgetTier
		isFree   bool
		price    string
		expected float64
	}{
		{"exactly at medium ceiling", models.BudgetMedium, false, "$40", 4},
		{"just over medium ceiling", models.BudgetMedium, false, "$40.01", -6},
		{"exactly at low ceiling", models.BudgetLow, false, "$15", 4},
		{"just over low ceiling", models.BudgetLow, false, "$15.01", -6},
		{"free event under free ceiling", models.BudgetFree, true, "", 4},
		{"paid event over free ceiling", models.BudgetFree, false, "$5", -6},
		{"unparseable price assumes medium", models.BudgetMedium, false, "donation suggested", 4},
		{"no ceiling answered", models.BudgetUnset, false, "$200", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sctx := &ScoringContext{
				Detailed: &models.DetailedPreferences{BudgetCeiling: tt.ceiling},
				Now:      testNow(),
			}
			se := scorer.ScoreEvent(models.Event{ID: uuid.New(), IsFree: tt.isFree, PriceText: tt.price}, sctx)
			assert.Equal(t, tt.expected, se.Breakdown.Budget)
		})
	}
}

func TestScoreEvent_SocialIntentMatch(t *testing.T) {
	scorer := newTestScorer()

	tests := []struct {
		name     string
		intent   models.SocialIntent
		tags     []string
		expected float64
	}{
		{"meet people with social tag", models.SocialMeetPeople, []string{"networking"}, 6},
		{"meet people without social tag", models.SocialMeetPeople, []string{"self-guided"}, 0},
		{"own thing with solo tag", models.SocialOwnThing, []string{"self-guided"}, 6},
		{"own thing without solo tag", models.SocialOwnThing, []string{"networking"}, 0},
		{"either matches social tag", models.SocialEither, []string{"meetup"}, 2},
		{"either matches solo tag", models.SocialEither, []string{"drop-in"}, 2},
		{"either without any match", models.SocialEither, []string{"acoustic"}, 0},
		{"intent not answered", models.SocialUnset, []string{"networking"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sctx := &ScoringContext{
				Detailed: &models.DetailedPreferences{SocialIntent: tt.intent},
				Now:      testNow(),
			}
			se := scorer.ScoreEvent(models.Event{ID: uuid.New(), Tags: tt.tags}, sctx)
			assert.Equal(t, tt.expected, se.Breakdown.Social)
		})
	}
}

func TestScoreEvent_DiversityViewPenalty(t *testing.T) {
	scorer := newTestScorer()

	seenID := uuid.New()
	interactedID := uuid.New()
	sctx := &ScoringContext{
		FeedViews: &models.FeedViewData{
			SeenCounts:    map[uuid.UUID]int{seenID: 8, interactedID: 8},
			InteractedIDs: map[uuid.UUID]bool{interactedID: true},
		},
		Now: testNow(),
	}

	seen := scorer.ScoreEvent(models.Event{ID: seenID}, sctx)
	interacted := scorer.ScoreEvent(models.Event{ID: interactedID}, sctx)

	// (8-3)*3 = 15 capped at 15
	assert.Equal(t, -15.0, seen.Breakdown.DiversityView)
	assert.Equal(t, 0.0, interacted.Breakdown.DiversityView)
}

func TestScoreEvent_TrendingBonuses(t *testing.T) {
	scorer := newTestScorer()

	trendingID := uuid.New()
	sctx := &ScoringContext{
		TrendingIDs: map[uuid.UUID]bool{trendingID: true},
		Now:         testNow(),
	}

	inSet := scorer.ScoreEvent(models.Event{ID: trendingID}, sctx)
	highSaves := scorer.ScoreEvent(models.Event{ID: uuid.New(), SaveCount: 60}, sctx)
	someSaves := scorer.ScoreEvent(models.Event{ID: uuid.New(), SaveCount: 25}, sctx)
	quiet := scorer.ScoreEvent(models.Event{ID: uuid.New(), SaveCount: 3}, sctx)

	assert.Equal(t, 12.0, inSet.Breakdown.Trending)
	assert.Equal(t, 8.0, highSaves.Breakdown.Trending)
	assert.Equal(t, 4.0, someSaves.Breakdown.Trending)
	assert.Equal(t, 0.0, quiet.Breakdown.Trending)
	assert.Equal(t, models.ReasonTrending, inSet.ReasonType)
}

func TestScoreEvent_ReasonPriority(t *testing.T) {
	scorer := newTestScorer()

	// Qualifies for category match, starting soon, and free; category wins.
	sctx := &ScoringContext{
		Preferences: models.UserPreferences{
			Categories: map[string]models.CategoryPreference{
				"music": {Type: models.PreferenceLike, Intensity: 3},
			},
		},
		Now: testNow(),
	}

	se := scorer.ScoreEvent(models.Event{
		ID:        uuid.New(),
		Category:  "music",
		IsFree:    true,
		StartTime: testTime(10),
	}, sctx)

	assert.Equal(t, models.ReasonCategoryMatch, se.ReasonType)
	assert.Contains(t, se.Reason, "music")
}

func TestScoreEvent_DefaultReason(t *testing.T) {
	scorer := newTestScorer()
	sctx := &ScoringContext{Now: testNow()}

	se := scorer.ScoreEvent(models.Event{ID: uuid.New(), Category: "misc", PriceText: "$60"}, sctx)

	assert.Equal(t, models.ReasonDefault, se.ReasonType)
	assert.Equal(t, "Recommended for you", se.Reason)
}

func TestScoreAndRankEvents_FiltersHiddenAndSorts(t *testing.T) {
	scorer := newTestScorer()

	hiddenID := uuid.New()
	sctx := &ScoringContext{
		Preferences: models.UserPreferences{
			Categories: map[string]models.CategoryPreference{
				"music": {Type: models.PreferenceLike, Intensity: 3},
			},
		},
		Feedback: &models.FeedbackData{
			HiddenItemIDs: map[uuid.UUID]bool{hiddenID: true},
		},
		Now: testNow(),
	}

	events := []models.Event{
		{ID: hiddenID, Category: "music", IsFree: true},
		{ID: uuid.New(), Category: "music", IsFree: true, StartTime: testTime(10)},
		{ID: uuid.New(), Category: "misc", PriceText: "$90"},
	}

	ranked := scorer.ScoreAndRankEvents(events, sctx)

	require.Len(t, ranked, 2)
	for _, se := range ranked {
		assert.NotEqual(t, hiddenID, se.ID)
	}
	assert.GreaterOrEqual(t, ranked[0].Score, ranked[1].Score)
}

func TestScoreAndRankEvents_DeterministicTieBreak(t *testing.T) {
	scorer := newTestScorer()
	sctx := &ScoringContext{Now: testNow()}

	soon := testTime(10)
	later := testTime(12)
	a := models.Event{ID: uuid.New(), Category: "misc", StartTime: later}
	b := models.Event{ID: uuid.New(), Category: "misc", StartTime: soon}

	first := scorer.ScoreAndRankEvents([]models.Event{a, b}, sctx)
	second := scorer.ScoreAndRankEvents([]models.Event{b, a}, sctx)

	require.Len(t, first, 2)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, b.ID, first[0].ID)
}

func TestSlotLabel(t *testing.T) {
	saturdayEvening := time.Date(2025, 6, 14, 19, 0, 0, 0, time.UTC)
	tuesdayMorning := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	assert.Equal(t, "weekend_evening", slotLabel(saturdayEvening))
	assert.Equal(t, "weekday_morning", slotLabel(tuesdayMorning))
}

func TestMaxPriceFrom(t *testing.T) {
	tests := []struct {
		text     string
		expected float64
		ok       bool
	}{
		{"$10-25", 25, true},
		{"from 30", 30, true},
		{"$14.50", 14.5, true},
		{"free entry", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		price, ok := maxPriceFrom(tt.text)
		assert.Equal(t, tt.ok, ok, tt.text)
		if ok {
			assert.Equal(t, tt.expected, price, tt.text)
		}
	}
}
