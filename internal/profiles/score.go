package profiles

import (
	"strings"

	"github.com/nikohapp/nikoh-api/pkg/models"
)

// Completeness thresholds
const (
	completeScoreThreshold = 70

	essayLongMin  = 50
	essayShortMin = 30
)

func filled(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

func essayLen(s *string) int {
	if s == nil {
		return 0
	}
	return len(strings.TrimSpace(*s))
}

// ComputeScore calculates the profile completeness score (0-100) and
// whether the profile counts as complete.
//
// Weights: required gender fields 30, physical 10, background 20,
// essays 40.
func ComputeScore(p *models.Profile) (int, bool) {
	score := 0

	if p.Gender != "" {
		score += 15
	}
	if p.SeekingGender != "" {
		score += 15
	}

	// Physical attributes, fraction of 3 fields
	physical := 0
	if p.HeightCM != nil {
		physical++
	}
	if p.WeightKG != nil {
		physical++
	}
	if filled(p.Build) {
		physical++
	}
	score += physical * 10 / 3

	// Background, fraction of 10 fields
	background := 0
	if filled(p.Ethnicity) {
		background++
	}
	if len(p.Languages) > 0 {
		background++
	}
	if filled(p.OriginalRegion) {
		background++
	}
	if filled(p.CurrentCity) {
		background++
	}
	if filled(p.LivingSituation) {
		background++
	}
	if filled(p.ReligiousPractice) {
		background++
	}
	if filled(p.Smoking) {
		background++
	}
	if filled(p.Alcohol) {
		background++
	}
	if filled(p.Profession) {
		background++
	}
	if len(p.Hobbies) > 0 {
		background++
	}
	score += background * 20 / 10

	// Essays
	if essayLen(p.AboutMe) >= essayLongMin {
		score += 10
	}
	if essayLen(p.IdealPartner) >= essayLongMin {
		score += 10
	}
	if essayLen(p.FamilyMeaning) >= essayShortMin {
		score += 7
	}
	if essayLen(p.GoalsDreams) >= essayShortMin {
		score += 7
	}
	if essayLen(p.MessageToFamily) >= essayShortMin {
		score += 6
	}

	if score > 100 {
		score = 100
	}
	return score, score >= completeScoreThreshold
}
