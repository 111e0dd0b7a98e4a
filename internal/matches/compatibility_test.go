package matches_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nikohapp/nikoh-api/internal/matches"
	"github.com/nikohapp/nikoh-api/pkg/models"
)

func birthDate(age int) *time.Time {
	d := time.Now().AddDate(-age, 0, -1)
	return &d
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestCalculateCompatibilityDefaults(t *testing.T) {
	user := &models.Profile{Gender: "male", SeekingGender: "female", VerifiedBirthDate: birthDate(32)}
	cand := &models.Profile{Gender: "female", SeekingGender: "male", VerifiedBirthDate: birthDate(28)}
	candUser := &models.User{VerificationStatus: models.VerificationStatusUnverified}

	compat := matches.CalculateCompatibility(user, nil, cand, candUser, nil)

	// Everything except verification (10) and mutual (5) matches under
	// default preferences.
	assert.Equal(t, 85, compat.Score)
	assert.False(t, compat.Mutual)
	assert.True(t, compat.Breakdown["age"].Match)
	assert.False(t, compat.Breakdown["verification"].Match)
}

func TestCalculateCompatibilityFullMatch(t *testing.T) {
	user := &models.Profile{Gender: "male", SeekingGender: "female", VerifiedBirthDate: birthDate(32)}
	cand := &models.Profile{Gender: "female", SeekingGender: "male", VerifiedBirthDate: birthDate(28)}
	candUser := &models.User{VerificationStatus: models.VerificationStatusVerified}
	candPrefs := models.DefaultSearchPreference()

	compat := matches.CalculateCompatibility(user, nil, cand, candUser, candPrefs)
	assert.Equal(t, 100, compat.Score)
	assert.True(t, compat.Mutual)
}

func TestCalculateCompatibilityAge(t *testing.T) {
	prefs := models.DefaultSearchPreference()
	prefs.MinAge = 25
	prefs.MaxAge = 35

	tests := []struct {
		name  string
		birth *time.Time
		match bool
	}{
		{"within range", birthDate(30), true},
		{"too young", birthDate(20), false},
		{"too old", birthDate(50), false},
		{"unverified birth date", nil, false},
	}

	user := &models.Profile{Gender: "male", SeekingGender: "female"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cand := &models.Profile{Gender: "female", VerifiedBirthDate: tt.birth}
			compat := matches.CalculateCompatibility(user, prefs, cand, &models.User{}, nil)
			assert.Equal(t, tt.match, compat.Breakdown["age"].Match)
		})
	}
}

func TestCalculateCompatibilityLocation(t *testing.T) {
	prefs := models.DefaultSearchPreference()
	prefs.PreferredCountries = models.StringList{"Uzbekistan"}
	user := &models.Profile{}

	cand := &models.Profile{VerifiedNationality: strPtr("Uzbekistan")}
	compat := matches.CalculateCompatibility(user, prefs, cand, &models.User{}, nil)
	assert.True(t, compat.Breakdown["location"].Match)

	// Case-insensitive
	cand = &models.Profile{VerifiedNationality: strPtr("UZBEKISTAN")}
	compat = matches.CalculateCompatibility(user, prefs, cand, &models.User{}, nil)
	assert.True(t, compat.Breakdown["location"].Match)

	cand = &models.Profile{VerifiedNationality: strPtr("Kazakhstan")}
	compat = matches.CalculateCompatibility(user, prefs, cand, &models.User{}, nil)
	assert.False(t, compat.Breakdown["location"].Match)

	// Residence country is a fallback when nationality is unknown
	cand = &models.Profile{VerifiedResidenceCountry: strPtr("Uzbekistan")}
	compat = matches.CalculateCompatibility(user, prefs, cand, &models.User{}, nil)
	assert.True(t, compat.Breakdown["location"].Match)

	// Preference set but candidate value missing is a miss
	cand = &models.Profile{}
	compat = matches.CalculateCompatibility(user, prefs, cand, &models.User{}, nil)
	assert.False(t, compat.Breakdown["location"].Match)
}

func TestCalculateCompatibilityHeight(t *testing.T) {
	prefs := models.DefaultSearchPreference()
	prefs.MinHeightCM = intPtr(160)
	prefs.MaxHeightCM = intPtr(180)
	user := &models.Profile{}

	for _, tt := range []struct {
		name   string
		height *int
		match  bool
	}{
		{"in range", intPtr(170), true},
		{"too short", intPtr(150), false},
		{"too tall", intPtr(195), false},
		{"unspecified is not penalized", nil, true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			cand := &models.Profile{HeightCM: tt.height}
			compat := matches.CalculateCompatibility(user, prefs, cand, &models.User{}, nil)
			assert.Equal(t, tt.match, compat.Breakdown["height"].Match)
		})
	}
}

func TestCalculateCompatibilityLifestyleProportional(t *testing.T) {
	prefs := models.DefaultSearchPreference()
	prefs.PreferredSmoking = models.StringList{"never"}
	prefs.PreferredAlcohol = models.StringList{"never"}
	prefs.PreferredDiet = models.StringList{"halal"}
	user := &models.Profile{}

	cand := &models.Profile{
		Smoking: strPtr("never"),
		Alcohol: strPtr("socially"),
		Diet:    strPtr("halal"),
	}
	compat := matches.CalculateCompatibility(user, prefs, cand, &models.User{}, nil)
	lifestyle := compat.Breakdown["lifestyle"]
	assert.False(t, lifestyle.Match)
	assert.Equal(t, 6, lifestyle.Score) // 2 of 3 preferences
}

func TestCalculateCompatibilityMutual(t *testing.T) {
	user := &models.Profile{VerifiedBirthDate: birthDate(40)}
	cand := &models.Profile{VerifiedBirthDate: birthDate(30)}

	candPrefs := models.DefaultSearchPreference()
	candPrefs.MaxAge = 35

	// The user is outside the candidate's age range
	compat := matches.CalculateCompatibility(user, nil, cand, &models.User{}, candPrefs)
	assert.False(t, compat.Mutual)

	candPrefs.MaxAge = 45
	compat = matches.CalculateCompatibility(user, nil, cand, &models.User{}, candPrefs)
	assert.True(t, compat.Mutual)
}
