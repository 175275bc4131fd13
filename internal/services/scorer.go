package services

import (
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/sonderhq/sonder/internal/config"
	"github.com/sonderhq/sonder/pkg/models"
)

// ScoringContext bundles everything about the requesting user that the
// scorer needs. Optional aggregates may be nil; the corresponding
// components then score zero.
type ScoringContext struct {
	Preferences models.UserPreferences
	Taste       models.TasteVector
	Detailed    *models.DetailedPreferences
	Feedback    *models.FeedbackData
	Constraints *models.ConstraintsData
	FeedViews   *models.FeedViewData
	TrendingIDs map[uuid.UUID]bool
	Now         time.Time
}

func (c *ScoringContext) now() time.Time {
	if c.Now.IsZero() {
		return time.Now()
	}
	return c.Now
}

// EventScoringService computes the multi-component additive score for
// candidate events and places. Every component is bounded so no single
// dimension can dominate the total.
type EventScoringService struct {
	config *config.ScoringConfig
	vocab  *ScoringVocabulary
	ranker *DiversityRanker
	logger *logrus.Logger
}

func NewEventScoringService(
	cfg *config.ScoringConfig,
	vocab *ScoringVocabulary,
	ranker *DiversityRanker,
	logger *logrus.Logger,
) *EventScoringService {
	if vocab == nil {
		vocab = DefaultScoringVocabulary()
	}
	return &EventScoringService{
		config: cfg,
		vocab:  vocab,
		ranker: ranker,
		logger: logger,
	}
}

// ScoreEvent scores a single candidate. The returned score is the exact sum
// of the breakdown fields. Hidden items short-circuit to the sentinel score
// with every component zeroed except feedback.
func (s *EventScoringService) ScoreEvent(event models.Event, sctx *ScoringContext) models.ScoredEvent {
	if sctx.Feedback != nil && sctx.Feedback.HiddenItemIDs[event.ID] {
		breakdown := models.ScoreBreakdown{Feedback: s.config.HiddenScore}
		return models.ScoredEvent{
			Event:      event,
			Score:      floats.Sum(breakdown.Components()),
			Breakdown:  breakdown,
			Reason:     "",
			ReasonType: models.ReasonDefault,
		}
	}

	breakdown := models.ScoreBreakdown{
		Category:      s.categoryScore(event, sctx),
		Time:          s.timeScore(event, sctx),
		Price:         s.priceScore(event),
		Relationship:  s.relationshipScore(event, sctx),
		Feedback:      s.feedbackScore(event, sctx),
		Constraint:    s.constraintScore(event, sctx),
		DiversityView: s.diversityViewScore(event, sctx),
		Trending:      s.trendingScore(event, sctx),
	}
	if sctx.Detailed != nil {
		breakdown.Companion = s.companionScore(event, sctx.Detailed)
		breakdown.Timing = s.timingScore(event, sctx.Detailed)
		breakdown.Budget = s.budgetScore(event, sctx.Detailed)
		breakdown.Vibe = s.vibeScore(event, sctx.Detailed)
		breakdown.Social = s.socialScore(event, sctx.Detailed)
		breakdown.Lifestyle = s.lifestyleScore(event, sctx.Detailed)
	}

	reason, reasonType := s.reasonFor(event, breakdown, sctx)

	return models.ScoredEvent{
		Event:      event,
		Score:      floats.Sum(breakdown.Components()),
		Breakdown:  breakdown,
		Reason:     reason,
		ReasonType: reasonType,
	}
}

// ScoreAndRankEvents scores every candidate, drops hidden items via the
// filter cutoff, sorts descending and applies the diversity ranking pass.
func (s *EventScoringService) ScoreAndRankEvents(events []models.Event, sctx *ScoringContext) []models.ScoredEvent {
	scored := make([]models.ScoredEvent, 0, len(events))
	for _, event := range events {
		se := s.ScoreEvent(event, sctx)
		if se.Score > s.config.FilterCutoff {
			scored = append(scored, se)
		}
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		// Deterministic tie-break: earlier start, then ID.
		ti, tj := scored[i].StartTime, scored[j].StartTime
		switch {
		case ti != nil && tj != nil && !ti.Equal(*tj):
			return ti.Before(*tj)
		case ti != nil && tj == nil:
			return true
		case ti == nil && tj != nil:
			return false
		}
		return scored[i].ID.String() < scored[j].ID.String()
	})

	if s.ranker != nil {
		scored = s.ranker.Rank(scored, sctx)
	}

	return scored
}

func (s *EventScoringService) categoryScore(event models.Event, sctx *ScoringContext) float64 {
	pref, ok := sctx.Preferences.Categories[foldKey(event.Category)]
	if !ok {
		// Try the raw key too; preference maps may be stored unfolded.
		for category, p := range sctx.Preferences.Categories {
			if foldKey(category) == foldKey(event.Category) {
				pref, ok = p, true
				break
			}
		}
	}
	if !ok {
		return s.config.CategoryBaseline
	}

	step := float64(pref.Intensity) * s.config.CategoryIntensityStep
	if pref.Type == models.PreferenceLike {
		return clamp(s.config.CategoryBaseline+step, s.config.CategoryMin, s.config.CategoryMax)
	}
	return clamp(s.config.CategoryBaseline-step, s.config.CategoryMin, s.config.CategoryMax)
}

// timeScore is a step function of hours until start: sooner events score
// higher, past events score zero, undated places get a flat moderate score.
func (s *EventScoringService) timeScore(event models.Event, sctx *ScoringContext) float64 {
	if event.StartTime == nil {
		return s.config.PlaceTimeScore
	}

	hours := event.StartTime.Sub(sctx.now()).Hours()
	switch {
	case hours < 0:
		return 0
	case hours <= 24:
		return s.config.TimeSoonestScore
	case hours <= 72:
		return s.config.TimeSoonScore
	case hours <= 168:
		return s.config.TimeThisWeekScore
	case hours <= 336:
		return s.config.TimeNextWeekScore
	default:
		return s.config.TimeLaterScore
	}
}

var priceNumberPattern = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)

func (s *EventScoringService) priceScore(event models.Event) float64 {
	if event.IsFree {
		return s.config.FreePriceScore
	}

	price, ok := maxPriceFrom(event.PriceText)
	if !ok {
		// Unparseable price text defaults to a medium-price assumption
		// rather than failing the scoring call.
		return s.config.DefaultPriceScore
	}

	switch {
	case price <= 15:
		return s.config.CheapPriceScore
	case price <= 40:
		return s.config.ModeratePriceScore
	case price <= 80:
		return s.config.HighPriceScore
	default:
		return s.config.PremiumPriceScore
	}
}

// maxPriceFrom extracts the highest number from free-text price ranges like
// "$10-25" or "from 30".
func maxPriceFrom(text string) (float64, bool) {
	matches := priceNumberPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return 0, false
	}

	best := 0.0
	for _, m := range matches {
		if v, err := strconv.ParseFloat(m, 64); err == nil && v > best {
			best = v
		}
	}
	return best, true
}

func (s *EventScoringService) relationshipScore(event models.Event, sctx *ScoringContext) float64 {
	category := foldKey(event.Category)
	switch sctx.Preferences.Relationship {
	case models.RelationshipCouple:
		if s.vocab.CoupleFriendly[category] {
			return s.config.RelationshipBonus
		}
	case models.RelationshipSingle:
		if s.vocab.SinglesFriendly[category] {
			return s.config.RelationshipBonus
		}
	}
	return 0
}

func (s *EventScoringService) feedbackScore(event models.Event, sctx *ScoringContext) float64 {
	if sctx.Feedback == nil {
		return 0
	}

	score := float64(sctx.Feedback.CategoryBoosts[foldKey(event.Category)]) * s.config.FeedbackCategoryStep
	score += float64(sctx.Feedback.VenueBoosts[foldKey(event.Venue)]) * s.config.FeedbackVenueStep

	return clamp(score, -s.config.FeedbackCap, s.config.FeedbackCap)
}

func (s *EventScoringService) constraintScore(event models.Event, sctx *ScoringContext) float64 {
	constraints := sctx.Constraints
	if constraints == nil {
		return 0
	}

	score := 0.0
	if event.StartTime != nil {
		for _, day := range constraints.PreferredDays {
			if event.StartTime.Weekday() == day {
				score += s.config.ConstraintDayBonus
				break
			}
		}
		slot := timeOfDayLabel(*event.StartTime)
		for _, preferred := range constraints.PreferredTimes {
			if foldKey(preferred) == slot {
				score += s.config.ConstraintTimeBonus
				break
			}
		}
	}

	hood := foldKey(event.Neighborhood)
	if hood != "" {
		for _, preferred := range constraints.Neighborhoods {
			if foldKey(preferred) == hood {
				score += s.config.ConstraintHoodBonus
				break
			}
		}
		if foldKey(constraints.HomeNeighborhood) == hood {
			score += s.config.ConstraintHoodBonus / 2
		}
	}

	// Budget and free-only violations are a near-exclusion penalty, not a
	// hard filter: heavily deprioritized items can still surface when
	// nothing else is available.
	overBudget := false
	if constraints.BudgetCeiling > 0 && !event.IsFree {
		if price, ok := maxPriceFrom(event.PriceText); ok && price > constraints.BudgetCeiling {
			overBudget = true
		}
	}
	if constraints.FreeOnly && !event.IsFree {
		overBudget = true
	}
	if overBudget {
		score += s.config.BudgetPenalty
	}

	return score
}

func (s *EventScoringService) diversityViewScore(event models.Event, sctx *ScoringContext) float64 {
	views := sctx.FeedViews
	if views == nil || views.InteractedIDs[event.ID] {
		return 0
	}

	seen := views.SeenCounts[event.ID]
	if seen <= s.config.SeenThreshold {
		return 0
	}

	penalty := float64(seen-s.config.SeenThreshold) * s.config.SeenPenaltyStep
	if penalty > s.config.SeenPenaltyCap {
		penalty = s.config.SeenPenaltyCap
	}
	return -penalty
}

func (s *EventScoringService) trendingScore(event models.Event, sctx *ScoringContext) float64 {
	if sctx.TrendingIDs[event.ID] {
		return s.config.TrendingSetBonus
	}
	switch {
	case event.SaveCount >= s.config.HighSaveCount:
		return s.config.HighSaveBonus
	case event.SaveCount >= s.config.ModerateSaveCount:
		return s.config.ModerateSaveBonus
	}
	return 0
}

func (s *EventScoringService) companionScore(event models.Event, detailed *models.DetailedPreferences) float64 {
	tags := foldSet(event.Tags)
	best := 0.0
	for companion, intensity := range detailed.Companions {
		if intensity <= 0 {
			continue
		}
		if !hasAnyTag(tags, s.vocab.CompanionTags[companion]) {
			continue
		}
		score := minFloat(float64(intensity)*s.config.DetailIntensityStep, s.config.DetailMax)
		if score > best {
			best = score
		}
	}
	return best
}

func (s *EventScoringService) timingScore(event models.Event, detailed *models.DetailedPreferences) float64 {
	if event.StartTime == nil || len(detailed.TimeSlots) == 0 {
		return 0
	}

	intensity := detailed.TimeSlots[slotLabel(*event.StartTime)]
	if intensity <= 0 {
		return 0
	}
	return minFloat(float64(intensity)*s.config.DetailIntensityStep, s.config.DetailMax)
}

func (s *EventScoringService) budgetScore(event models.Event, detailed *models.DetailedPreferences) float64 {
	if detailed.BudgetCeiling == models.BudgetUnset {
		return 0
	}

	tier := priceTier(event)
	if budgetTierRank(tier) > budgetTierRank(detailed.BudgetCeiling) {
		return s.config.BudgetExceedPenalty
	}
	return s.config.BudgetFitBonus
}

func (s *EventScoringService) vibeScore(event models.Event, detailed *models.DetailedPreferences) float64 {
	tags := foldSet(event.Tags)
	best := 0.0
	for vibe, intensity := range detailed.Vibes {
		if intensity <= 0 {
			continue
		}
		if !hasAnyTag(tags, s.vocab.VibeTags[vibe]) {
			continue
		}
		score := minFloat(float64(intensity)*s.config.DetailIntensityStep, s.config.DetailMax)
		if score > best {
			best = score
		}
	}
	return best
}

func (s *EventScoringService) socialScore(event models.Event, detailed *models.DetailedPreferences) float64 {
	tags := foldSet(event.Tags)
	switch detailed.SocialIntent {
	case models.SocialMeetPeople:
		if hasAnyTag(tags, s.vocab.MeetPeopleTags) {
			return s.config.SocialIntentBonus
		}
	case models.SocialOwnThing:
		if hasAnyTag(tags, s.vocab.OwnThingTags) {
			return s.config.SocialIntentBonus
		}
	case models.SocialEither:
		if hasAnyTag(tags, s.vocab.MeetPeopleTags) || hasAnyTag(tags, s.vocab.OwnThingTags) {
			return s.config.SocialEitherBonus
		}
	}
	return 0
}

func (s *EventScoringService) lifestyleScore(event models.Event, detailed *models.DetailedPreferences) float64 {
	tags := foldSet(event.Tags)
	score := 0.0

	dogFriendly := hasAnyTag(tags, s.vocab.DogTags)
	if detailed.DogFriendlyOnly && !dogFriendly {
		score += s.config.DogOnlyPenalty
	} else if detailed.HasDog && dogFriendly {
		score += s.config.DogBonus
	}

	if detailed.PreferSoberFriendly {
		if event.IsAlcoholFree {
			score += s.config.SoberMaxBonus
		} else if hasAnyTag(tags, s.vocab.SoberTags) {
			score += s.config.SoberTagBonus
		}
	}

	if detailed.AvoidBars && s.vocab.BarCategories[foldKey(event.Category)] {
		score += s.config.AvoidBarsPenalty
	}

	return score
}

// Reason priorities. Distinct constants break ties between simultaneously
// qualifying reasons, independent of evaluation order.
const (
	priorityCategoryMatch = 100
	prioritySober         = 90
	priorityDog           = 85
	priorityTrending      = 80
	priorityStartingSoon  = 70
	priorityFree          = 60
	priorityNeighborhood  = 50
	priorityFeedback      = 40
	priorityDefault       = 0
)

type reasonCandidate struct {
	reasonType models.ReasonType
	priority   int
	text       string
}

// reasonFor derives the single human-readable justification from the
// highest-priority contributing component.
func (s *EventScoringService) reasonFor(
	event models.Event,
	breakdown models.ScoreBreakdown,
	sctx *ScoringContext,
) (string, models.ReasonType) {
	candidates := []reasonCandidate{
		{models.ReasonDefault, priorityDefault, "Recommended for you"},
	}

	if breakdown.Category >= s.config.CategoryBaseline+2*s.config.CategoryIntensityStep {
		candidates = append(candidates, reasonCandidate{
			models.ReasonCategoryMatch, priorityCategoryMatch,
			"Matches your love of " + displayName(event.Category),
		})
	}
	if sctx.Detailed != nil && sctx.Detailed.PreferSoberFriendly && event.IsAlcoholFree {
		candidates = append(candidates, reasonCandidate{
			models.ReasonSoberFriendly, prioritySober, "Alcohol-free and easygoing",
		})
	}
	if sctx.Detailed != nil && sctx.Detailed.HasDog && hasAnyTag(foldSet(event.Tags), s.vocab.DogTags) {
		candidates = append(candidates, reasonCandidate{
			models.ReasonDogFriendly, priorityDog, "Bring your dog along",
		})
	}
	if breakdown.Trending >= s.config.TrendingSetBonus {
		city := event.City
		if city == "" {
			city = "your city"
		}
		candidates = append(candidates, reasonCandidate{
			models.ReasonTrending, priorityTrending, "Trending in " + city,
		})
	}
	if event.StartTime != nil && breakdown.Time >= s.config.TimeSoonScore {
		candidates = append(candidates, reasonCandidate{
			models.ReasonStartingSoon, priorityStartingSoon, "Coming up in the next few days",
		})
	}
	if event.IsFree {
		candidates = append(candidates, reasonCandidate{
			models.ReasonFree, priorityFree, "Free to attend",
		})
	}
	if breakdown.Constraint >= s.config.ConstraintHoodBonus && event.Neighborhood != "" {
		candidates = append(candidates, reasonCandidate{
			models.ReasonNeighborhood, priorityNeighborhood, "In " + event.Neighborhood,
		})
	}
	if breakdown.Feedback >= s.config.FeedbackCategoryStep*2 {
		candidates = append(candidates, reasonCandidate{
			models.ReasonFeedback, priorityFeedback, "More like the things you asked for",
		})
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.priority > best.priority {
			best = c
		}
	}
	return best.text, best.reasonType
}

// timeOfDayLabel buckets a start time into morning/afternoon/evening/late.
func timeOfDayLabel(t time.Time) string {
	switch hour := t.Hour(); {
	case hour < 6:
		return "late"
	case hour < 12:
		return "morning"
	case hour < 17:
		return "afternoon"
	case hour < 22:
		return "evening"
	default:
		return "late"
	}
}

// slotLabel combines weekday/weekend with time of day, e.g. "weekend_evening".
func slotLabel(t time.Time) string {
	part := "weekday"
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		part = "weekend"
	}
	return part + "_" + timeOfDayLabel(t)
}

func priceTier(event models.Event) models.BudgetTier {
	if event.IsFree {
		return models.BudgetFree
	}
	price, ok := maxPriceFrom(event.PriceText)
	if !ok {
		return models.BudgetMedium
	}
	switch {
	case price <= 15:
		return models.BudgetLow
	case price <= 40:
		return models.BudgetMedium
	default:
		return models.BudgetHigh
	}
}

func budgetTierRank(tier models.BudgetTier) int {
	switch tier {
	case models.BudgetFree:
		return 0
	case models.BudgetLow:
		return 1
	case models.BudgetMedium:
		return 2
	case models.BudgetHigh:
		return 3
	}
	return 2
}

func hasAnyTag(tags map[string]bool, keywords []string) bool {
	for _, keyword := range keywords {
		if tags[foldKey(keyword)] {
			return true
		}
	}
	return false
}

func displayName(category string) string {
	if category == "" {
		return "this"
	}
	return category
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
