package services

import (
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sonderhq/sonder/internal/config"
	"github.com/sonderhq/sonder/pkg/models"
)

// categoryPhrases rotate per category so lists of picks do not read as a wall
// of identical reasons.
var categoryPhrases = map[string][]string{
	"food": {
		"A food spot that fits your taste",
		"Worth a table this month",
		"Keeps showing up in your kind of picks",
	},
	"coffee": {
		"A coffee stop matched to you",
		"Good for a slow morning",
	},
	"music": {
		"Live music picked for you",
		"A show that matches your taste",
	},
	"art": {
		"An art pick based on what you like",
		"Worth a wander through",
	},
	"outdoors": {
		"Time outside, your way",
		"A fresh-air pick for you",
	},
	"nightlife": {
		"A night out matched to you",
		"For when the evening opens up",
	},
	"fitness": {
		"Keeps you moving",
		"A workout that fits your rhythm",
	},
}

var defaultPhrases = []string{
	"Picked for your taste",
	"A strong match for you",
	"Something you are likely to enjoy",
}

// DeterministicCurator builds weekly and monthly picks from scores alone,
// with no model in the loop. It is the always-available fallback and must
// never return nil for a non-empty candidate set.
type DeterministicCurator struct {
	config *config.CuratorConfig
	logger *logrus.Logger
}

func NewDeterministicCurator(cfg *config.CuratorConfig, logger *logrus.Logger) *DeterministicCurator {
	return &DeterministicCurator{config: cfg, logger: logger}
}

// Generate produces picks from the candidate set. Weekly picks favor the
// soonest-starting high scorers; monthly picks round-robin across categories
// so one dominant category cannot fill the whole list.
func (d *DeterministicCurator) Generate(candidates []models.Candidate, now time.Time) *models.SuggestionOutput {
	if len(candidates) == 0 {
		return &models.SuggestionOutput{
			WeeklyPickIDs:  []string{},
			MonthlyPickIDs: []string{},
			ReasonsByID:    map[string]string{},
			SummaryText:    "We are still getting to know your taste. Explore a few spots and check back.",
			Source:         "deterministic",
			GeneratedAt:    now,
		}
	}

	weekly := d.weeklyPicks(candidates, now)
	monthly := d.monthlyPicks(candidates)

	reasons := make(map[string]string, len(weekly)+len(monthly))
	phraseIndex := make(map[string]int)
	assign := func(ids []string) {
		byID := candidateIndex(candidates)
		for _, id := range ids {
			if _, done := reasons[id]; done {
				continue
			}
			cand := byID[id]
			phrases, ok := categoryPhrases[foldKey(cand.Category)]
			if !ok {
				phrases = defaultPhrases
			}
			i := phraseIndex[cand.Category]
			reasons[id] = phrases[i%len(phrases)]
			phraseIndex[cand.Category] = i + 1
		}
	}
	assign(weekly)
	assign(monthly)

	return &models.SuggestionOutput{
		WeeklyPickIDs:  weekly,
		MonthlyPickIDs: monthly,
		ReasonsByID:    reasons,
		SummaryText:    d.summaryText(candidates, weekly),
		Source:         "deterministic",
		GeneratedAt:    now,
	}
}

// weeklyPicks takes upcoming candidates, soonest first, breaking start-time
// ties by match score. Candidates without a date (places) fill remaining
// slots by score.
func (d *DeterministicCurator) weeklyPicks(candidates []models.Candidate, now time.Time) []string {
	horizon := now.Add(8 * 24 * time.Hour)

	var dated, undated []models.Candidate
	for _, c := range candidates {
		if c.Date != nil && c.Date.After(now) && c.Date.Before(horizon) {
			dated = append(dated, c)
		} else if c.Date == nil {
			undated = append(undated, c)
		}
	}

	sort.Slice(dated, func(i, j int) bool {
		if !dated[i].Date.Equal(*dated[j].Date) {
			return dated[i].Date.Before(*dated[j].Date)
		}
		if dated[i].MatchScore != dated[j].MatchScore {
			return dated[i].MatchScore > dated[j].MatchScore
		}
		return dated[i].ID < dated[j].ID
	})
	sort.Slice(undated, func(i, j int) bool {
		if undated[i].MatchScore != undated[j].MatchScore {
			return undated[i].MatchScore > undated[j].MatchScore
		}
		return undated[i].ID < undated[j].ID
	})

	limit := d.config.WeeklyPickCount
	if limit <= 0 {
		limit = 5
	}

	ids := make([]string, 0, limit)
	for _, c := range dated {
		if len(ids) >= limit {
			break
		}
		ids = append(ids, c.ID)
	}
	for _, c := range undated {
		if len(ids) >= limit {
			break
		}
		ids = append(ids, c.ID)
	}
	return ids
}

// monthlyPicks buckets candidates by category, sorts each bucket by score,
// and round-robins across buckets up to the per-category cap.
func (d *DeterministicCurator) monthlyPicks(candidates []models.Candidate) []string {
	buckets := make(map[string][]models.Candidate)
	for _, c := range candidates {
		key := foldKey(c.Category)
		buckets[key] = append(buckets[key], c)
	}

	categories := make([]string, 0, len(buckets))
	for key := range buckets {
		sort.Slice(buckets[key], func(i, j int) bool {
			if buckets[key][i].MatchScore != buckets[key][j].MatchScore {
				return buckets[key][i].MatchScore > buckets[key][j].MatchScore
			}
			return buckets[key][i].ID < buckets[key][j].ID
		})
		categories = append(categories, key)
	}
	sort.Strings(categories)

	limit := d.config.MonthlyPickCount
	if limit <= 0 {
		limit = 10
	}
	categoryCap := d.config.MonthlyCategoryCap
	if categoryCap <= 0 {
		categoryCap = 2
	}

	ids := make([]string, 0, limit)
	for round := 0; round < categoryCap && len(ids) < limit; round++ {
		for _, category := range categories {
			if len(ids) >= limit {
				break
			}
			bucket := buckets[category]
			if round < len(bucket) {
				ids = append(ids, bucket[round].ID)
			}
		}
	}
	return ids
}

func (d *DeterministicCurator) summaryText(candidates []models.Candidate, weekly []string) string {
	byID := candidateIndex(candidates)
	if len(weekly) > 0 {
		if top, ok := byID[weekly[0]]; ok && top.Title != "" {
			return "Your week is looking good, starting with " + top.Title + "."
		}
	}
	return "Fresh picks matched to your taste this week."
}

func candidateIndex(candidates []models.Candidate) map[string]models.Candidate {
	byID := make(map[string]models.Candidate, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}
	return byID
}
