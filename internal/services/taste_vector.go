package services

import (
	"github.com/sonderhq/sonder/pkg/models"
)

// Implicit signal weights. Completing something is stronger evidence than
// saving it; passing on something counts against its category, and against
// its tags at half weight because a tag match is weaker evidence than a
// categorical choice.
const (
	doneBonus        = 3.0
	wantBonus        = 2.0
	passPenalty      = 2.0
	tagWeightFactor  = 0.5
	ratingUnitWeight = 2.0
)

// BuildTasteVector aggregates explicit preferences, item statuses and ratings
// into per-category and per-tag affinity weights. Pure aggregation; the
// vector is rebuilt on every scoring call and never persisted.
func BuildTasteVector(
	prefs models.UserPreferences,
	statuses []models.StatusRecord,
	ratings []models.RatingRecord,
) models.TasteVector {
	vector := models.TasteVector{
		Categories: make(map[string]float64),
		Tags:       make(map[string]float64),
	}

	for category, pref := range prefs.Categories {
		key := foldKey(category)
		if key == "" {
			continue
		}
		weight := float64(pref.Intensity)
		if pref.Type == models.PreferenceDislike {
			weight = -weight
		}
		vector.Categories[key] += weight
	}

	for _, record := range statuses {
		key := foldKey(record.Category)
		if key == "" {
			continue
		}

		var delta float64
		switch record.Status {
		case models.StatusDone:
			delta = doneBonus
		case models.StatusWant:
			delta = wantBonus
		case models.StatusPass:
			delta = -passPenalty
		default:
			continue
		}

		vector.Categories[key] += delta
		for _, tag := range record.Tags {
			if tagKey := foldKey(tag); tagKey != "" {
				vector.Tags[tagKey] += delta * tagWeightFactor
			}
		}
	}

	for _, rating := range ratings {
		key := foldKey(rating.Category)
		if key == "" {
			continue
		}
		// Rating 3 is neutral and contributes nothing.
		switch {
		case rating.Rating >= 4:
			vector.Categories[key] += float64(rating.Rating-3) * ratingUnitWeight
		case rating.Rating <= 2:
			vector.Categories[key] -= float64(3-rating.Rating) * ratingUnitWeight
		}
	}

	return vector
}

// tasteMatch scores how well an event lines up with a taste vector:
// full category weight plus half-weight tag overlap.
func tasteMatch(vector models.TasteVector, event *models.Event) float64 {
	score := vector.Categories[foldKey(event.Category)]
	for _, tag := range event.Tags {
		score += vector.Tags[foldKey(tag)] * tagWeightFactor
	}
	return score
}
