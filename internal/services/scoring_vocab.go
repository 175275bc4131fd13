package services

import "github.com/sonderhq/sonder/pkg/models"

// ScoringVocabulary holds the fixed category sets and keyword dictionaries
// the scorer matches events against. Injectable so tuning and tests don't
// require recompilation.
type ScoringVocabulary struct {
	CoupleFriendly  map[string]bool
	SinglesFriendly map[string]bool
	BarCategories   map[string]bool

	CompanionTags map[models.CompanionType][]string
	VibeTags      map[models.VibeLevel][]string

	MeetPeopleTags []string
	OwnThingTags   []string
	DogTags        []string
	SoberTags      []string
}

func DefaultScoringVocabulary() *ScoringVocabulary {
	return &ScoringVocabulary{
		CoupleFriendly: foldSet([]string{
			"restaurants", "wine", "theater", "museums", "concerts", "cooking",
		}),
		SinglesFriendly: foldSet([]string{
			"bars", "clubs", "meetups", "sports", "dancing", "trivia",
		}),
		BarCategories: foldSet([]string{
			"bars", "breweries", "clubs", "nightlife",
		}),
		CompanionTags: map[models.CompanionType][]string{
			models.CompanionSolo:    {"solo-friendly", "workshop", "class", "gallery", "reading"},
			models.CompanionDate:    {"date-night", "romantic", "intimate", "candlelit", "wine-tasting"},
			models.CompanionFriends: {"group", "party", "trivia", "karaoke", "games"},
			models.CompanionFamily:  {"family-friendly", "all-ages", "kids", "outdoor", "matinee"},
		},
		VibeTags: map[models.VibeLevel][]string{
			models.VibeChill:      {"chill", "cozy", "quiet", "acoustic", "low-key"},
			models.VibeModerate:   {"casual", "social", "lively", "happy-hour"},
			models.VibeHighEnergy: {"high-energy", "dance", "rave", "festival", "late-night"},
		},
		MeetPeopleTags: []string{"meetup", "social", "networking", "singles", "group"},
		OwnThingTags:   []string{"solo-friendly", "self-guided", "open-studio", "drop-in"},
		DogTags:        []string{"dog-friendly", "pets-welcome", "off-leash"},
		SoberTags:      []string{"sober", "alcohol-free", "mocktails", "coffee"},
	}
}
