package matches

import (
	"fmt"
	"strings"

	"github.com/nikohapp/nikoh-api/pkg/models"
)

// Factor is one scored dimension of a compatibility calculation
type Factor struct {
	Match    bool   `json:"match"`
	Score    int    `json:"score"`
	MaxScore int    `json:"max_score"`
	Detail   string `json:"detail"`
}

// Compatibility is the full scoring result for a candidate
type Compatibility struct {
	Score     int               `json:"score"`
	Breakdown map[string]Factor `json:"breakdown"`
	Mutual    bool              `json:"mutual"`
}

func scoreFactor(match bool, maxScore int, detail string) Factor {
	score := 0
	if match {
		score = maxScore
	}
	return Factor{Match: match, Score: score, MaxScore: maxScore, Detail: detail}
}

// listMatch checks a candidate value against a preference list.
// An empty list means any value is acceptable; a set preference with a
// missing candidate value is a miss. Comparison is case-insensitive.
func listMatch(preferences []string, value *string) bool {
	if len(preferences) == 0 {
		return true
	}
	if value == nil || *value == "" {
		return false
	}
	for _, p := range preferences {
		if strings.EqualFold(p, *value) {
			return true
		}
	}
	return false
}

// CalculateCompatibility scores a candidate against the user's
// preferences across ten weighted factors totalling 100 points:
// age 15, location 15, ethnicity 10, religion 15, education 5,
// marital status 10, height 5, lifestyle 10, verification 10,
// mutual interest 5.
func CalculateCompatibility(
	userProfile *models.Profile,
	userPrefs *models.SearchPreference,
	candProfile *models.Profile,
	candUser *models.User,
	candPrefs *models.SearchPreference,
) Compatibility {
	breakdown := make(map[string]Factor)
	total := 0

	if userPrefs == nil {
		userPrefs = models.DefaultSearchPreference()
	}

	// Age (15). An unverified birth date never matches.
	candAge := candProfile.Age()
	ageMatch := false
	ageDetail := "Age not verified"
	if candAge != nil {
		switch {
		case *candAge < userPrefs.MinAge:
			ageDetail = fmt.Sprintf("Too young (%d < %d)", *candAge, userPrefs.MinAge)
		case *candAge > userPrefs.MaxAge:
			ageDetail = fmt.Sprintf("Too old (%d > %d)", *candAge, userPrefs.MaxAge)
		default:
			ageMatch = true
			ageDetail = fmt.Sprintf("Age %d within range", *candAge)
		}
	}
	breakdown["age"] = scoreFactor(ageMatch, 15, ageDetail)
	if ageMatch {
		total += 15
	}

	// Location (15). Country first, then city.
	locationMatch := true
	locationDetail := "Location compatible"
	if len(userPrefs.PreferredCountries) > 0 {
		if !listMatch(userPrefs.PreferredCountries, candProfile.Country()) {
			locationMatch = false
			locationDetail = "Country not in preferences"
		} else {
			locationDetail = "Country matches preference"
		}
	}
	if locationMatch && len(userPrefs.PreferredCities) > 0 {
		if !listMatch(userPrefs.PreferredCities, candProfile.CurrentCity) {
			locationMatch = false
			locationDetail = "City not in preferences"
		}
	}
	breakdown["location"] = scoreFactor(locationMatch, 15, locationDetail)
	if locationMatch {
		total += 15
	}

	// Ethnicity (10)
	ethnicityMatch := listMatch(userPrefs.PreferredEthnicities, candProfile.Ethnicity)
	ethnicityDetail := "Ethnicity compatible"
	if !ethnicityMatch {
		ethnicityDetail = "Ethnicity not in preferences"
	}
	breakdown["ethnicity"] = scoreFactor(ethnicityMatch, 10, ethnicityDetail)
	if ethnicityMatch {
		total += 10
	}

	// Religion (15)
	religionMatch := listMatch(userPrefs.PreferredReligiousPractices, candProfile.ReligiousPractice)
	religionDetail := "Religious practice compatible"
	if !religionMatch {
		religionDetail = "Religious practice not in preferences"
	}
	breakdown["religion"] = scoreFactor(religionMatch, 15, religionDetail)
	if religionMatch {
		total += 15
	}

	// Education (5)
	educationMatch := listMatch(userPrefs.PreferredEducationLevels, candProfile.VerifiedEducationLevel)
	educationDetail := "Education compatible"
	if !educationMatch {
		educationDetail = "Education level not in preferences"
	}
	breakdown["education"] = scoreFactor(educationMatch, 5, educationDetail)
	if educationMatch {
		total += 5
	}

	// Marital status (10)
	maritalMatch := listMatch(userPrefs.PreferredMaritalStatuses, candProfile.VerifiedMaritalStatus)
	maritalDetail := "Marital status compatible"
	if !maritalMatch {
		maritalDetail = "Marital status not in preferences"
	}
	breakdown["marital_status"] = scoreFactor(maritalMatch, 10, maritalDetail)
	if maritalMatch {
		total += 10
	}

	// Height (5). Unknown height is not penalized.
	heightMatch := true
	heightDetail := "Height compatible"
	if candProfile.HeightCM != nil {
		if userPrefs.MinHeightCM != nil && *candProfile.HeightCM < *userPrefs.MinHeightCM {
			heightMatch = false
			heightDetail = fmt.Sprintf("Too short (%dcm)", *candProfile.HeightCM)
		} else if userPrefs.MaxHeightCM != nil && *candProfile.HeightCM > *userPrefs.MaxHeightCM {
			heightMatch = false
			heightDetail = fmt.Sprintf("Too tall (%dcm)", *candProfile.HeightCM)
		}
	} else {
		heightDetail = "Height not specified"
	}
	breakdown["height"] = scoreFactor(heightMatch, 5, heightDetail)
	if heightMatch {
		total += 5
	}

	// Lifestyle (10). Proportional across smoking, alcohol and diet.
	lifestyleMatches, lifestyleTotal := 0, 0
	if len(userPrefs.PreferredSmoking) > 0 {
		lifestyleTotal++
		if listMatch(userPrefs.PreferredSmoking, candProfile.Smoking) {
			lifestyleMatches++
		}
	}
	if len(userPrefs.PreferredAlcohol) > 0 {
		lifestyleTotal++
		if listMatch(userPrefs.PreferredAlcohol, candProfile.Alcohol) {
			lifestyleMatches++
		}
	}
	if len(userPrefs.PreferredDiet) > 0 {
		lifestyleTotal++
		if listMatch(userPrefs.PreferredDiet, candProfile.Diet) {
			lifestyleMatches++
		}
	}
	var lifestyle Factor
	if lifestyleTotal > 0 {
		lifestyle = Factor{
			Match:    lifestyleMatches == lifestyleTotal,
			Score:    lifestyleMatches * 10 / lifestyleTotal,
			MaxScore: 10,
			Detail:   fmt.Sprintf("%d/%d lifestyle preferences match", lifestyleMatches, lifestyleTotal),
		}
	} else {
		lifestyle = Factor{Match: true, Score: 10, MaxScore: 10, Detail: "No lifestyle preferences set"}
	}
	breakdown["lifestyle"] = lifestyle
	total += lifestyle.Score

	// Verification (10). Scored on the candidate's verified identity.
	isVerified := candUser != nil && candUser.IsVerified()
	verificationDetail := "Not verified"
	if isVerified {
		verificationDetail = "Verified profile"
	}
	breakdown["verification"] = scoreFactor(isVerified, 10, verificationDetail)
	if isVerified {
		total += 10
	}

	// Mutual interest (5). Does the user fit the candidate's own
	// age and country preferences?
	mutual := false
	if candPrefs != nil {
		checks := make([]bool, 0, 2)
		if userAge := userProfile.Age(); userAge != nil {
			checks = append(checks, *userAge >= candPrefs.MinAge && *userAge <= candPrefs.MaxAge)
		}
		if len(candPrefs.PreferredCountries) > 0 {
			checks = append(checks, listMatch(candPrefs.PreferredCountries, userProfile.Country()))
		}
		mutual = true
		for _, ok := range checks {
			if !ok {
				mutual = false
				break
			}
		}
		if mutual {
			total += 5
		}
	}
	mutualDetail := "Not a mutual match"
	if mutual {
		mutualDetail = "Mutual match potential"
	}
	breakdown["mutual"] = scoreFactor(mutual, 5, mutualDetail)

	return Compatibility{Score: total, Breakdown: breakdown, Mutual: mutual}
}
