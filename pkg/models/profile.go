package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile holds the matchmaking profile for a user. Fields prefixed with
// Verified are populated by the verification system only and are never
// writable through the profile API.
type Profile struct {
	ID     uuid.UUID `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	UserID uuid.UUID `json:"user_id" gorm:"type:uuid;uniqueIndex" validate:"required,uuid"`

	// Verified identity data (from approved documents)
	VerifiedFirstName         *string    `json:"verified_first_name" gorm:"size:100"`
	VerifiedLastInitial       *string    `json:"verified_last_initial" gorm:"size:1"`
	VerifiedBirthDate         *time.Time `json:"verified_birth_date"`
	VerifiedBirthplaceCountry *string    `json:"verified_birthplace_country" gorm:"size:100"`
	VerifiedBirthplaceCity    *string    `json:"verified_birthplace_city" gorm:"size:100"`
	VerifiedNationality       *string    `json:"verified_nationality" gorm:"size:100"`
	VerifiedResidenceCountry  *string    `json:"verified_residence_country" gorm:"size:100"`
	VerifiedResidenceStatus   *string    `json:"verified_residence_status" gorm:"size:50"`
	VerifiedMaritalStatus     *string    `json:"verified_marital_status" gorm:"size:50"`
	VerifiedEducationLevel    *string    `json:"verified_education_level" gorm:"size:100"`

	// Self-declared data
	Gender        string `json:"gender" gorm:"size:20" validate:"required,oneof=male female"`
	SeekingGender string `json:"seeking_gender" gorm:"size:20" validate:"required,oneof=male female"`

	HeightCM *int    `json:"height_cm" validate:"omitempty,min=100,max=250"`
	WeightKG *int    `json:"weight_kg" validate:"omitempty,min=30,max=300"`
	Build    *string `json:"build" gorm:"size:30"`

	Ethnicity      *string    `json:"ethnicity" gorm:"size:50"`
	EthnicityOther *string    `json:"ethnicity_other" gorm:"size:100"`
	Languages      StringList `json:"languages" gorm:"type:text"`
	OriginalRegion *string    `json:"original_region" gorm:"size:100"`

	CurrentCity     *string `json:"current_city" gorm:"size:100"`
	LivingSituation *string `json:"living_situation" gorm:"size:50"`

	ReligiousPractice *string `json:"religious_practice" gorm:"size:50"`
	Smoking           *string `json:"smoking" gorm:"size:30"`
	Alcohol           *string `json:"alcohol" gorm:"size:30"`
	Diet              *string `json:"diet" gorm:"size:30"`

	Profession *string    `json:"profession" gorm:"size:100"`
	Hobbies    StringList `json:"hobbies" gorm:"type:text"`

	// Essays
	AboutMe         *string `json:"about_me" gorm:"type:text"`
	FamilyMeaning   *string `json:"family_meaning" gorm:"type:text"`
	IdealPartner    *string `json:"ideal_partner" gorm:"type:text"`
	GoalsDreams     *string `json:"goals_dreams" gorm:"type:text"`
	MessageToFamily *string `json:"message_to_family" gorm:"type:text"`

	IsVisible    bool `json:"is_visible" gorm:"default:true"`
	IsComplete   bool `json:"is_complete"`
	ProfileScore int  `json:"profile_score"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName builds the public name from verified fields ("Anna M.")
func (p *Profile) DisplayName() string {
	if p.VerifiedFirstName == nil {
		return ""
	}
	name := *p.VerifiedFirstName
	if p.VerifiedLastInitial != nil && *p.VerifiedLastInitial != "" {
		name += " " + *p.VerifiedLastInitial + "."
	}
	return name
}

// Age computes the current age from the verified birth date
func (p *Profile) Age() *int {
	if p.VerifiedBirthDate == nil {
		return nil
	}
	now := time.Now()
	age := now.Year() - p.VerifiedBirthDate.Year()
	if now.YearDay() < p.VerifiedBirthDate.YearDay() {
		age--
	}
	return &age
}

// Country returns the best known country for the profile
func (p *Profile) Country() *string {
	if p.VerifiedNationality != nil {
		return p.VerifiedNationality
	}
	return p.VerifiedResidenceCountry
}

// ProfileBrief is the public card shown in lists and suggestions
type ProfileBrief struct {
	ProfileID          uuid.UUID `json:"profile_id"`
	UserID             uuid.UUID `json:"user_id"`
	DisplayName        string    `json:"display_name,omitempty"`
	Age                *int      `json:"age,omitempty"`
	City               *string   `json:"city,omitempty"`
	Country            *string   `json:"country,omitempty"`
	IsVerified         bool      `json:"is_verified"`
	CompatibilityScore int       `json:"compatibility_score,omitempty"`
	IsMutualMatch      bool      `json:"is_mutual_match,omitempty"`
}

// NewProfileBrief builds the public card for a profile and its owner
func NewProfileBrief(p *Profile, owner *User) ProfileBrief {
	brief := ProfileBrief{
		ProfileID:   p.ID,
		UserID:      p.UserID,
		DisplayName: p.DisplayName(),
		Age:         p.Age(),
		City:        p.CurrentCity,
		Country:     p.Country(),
	}
	if owner != nil {
		brief.IsVerified = owner.IsVerified()
	}
	return brief
}
