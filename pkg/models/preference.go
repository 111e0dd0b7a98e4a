package models

import (
	"time"

	"github.com/google/uuid"
)

// SearchPreference holds a user's partner search criteria.
// Empty lists mean "no preference".
type SearchPreference struct {
	ID     uuid.UUID `json:"id" gorm:"primaryKey;type:uuid" validate:"required,uuid"`
	UserID uuid.UUID `json:"user_id" gorm:"type:uuid;uniqueIndex" validate:"required,uuid"`

	MinAge int `json:"min_age" gorm:"default:18" validate:"min=18,max=99"`
	MaxAge int `json:"max_age" gorm:"default:99" validate:"min=18,max=99"`

	PreferredCountries  StringList `json:"preferred_countries" gorm:"type:text"`
	PreferredCities     StringList `json:"preferred_cities" gorm:"type:text"`
	WillingToRelocate   bool       `json:"willing_to_relocate"`
	RelocationCountries StringList `json:"relocation_countries" gorm:"type:text"`

	PreferredEthnicities        StringList `json:"preferred_ethnicities" gorm:"type:text"`
	PreferredMaritalStatuses    StringList `json:"preferred_marital_statuses" gorm:"type:text"`
	PreferredEducationLevels    StringList `json:"preferred_education_levels" gorm:"type:text"`
	PreferredReligiousPractices StringList `json:"preferred_religious_practices" gorm:"type:text"`

	MinHeightCM *int `json:"min_height_cm" validate:"omitempty,min=100,max=250"`
	MaxHeightCM *int `json:"max_height_cm" validate:"omitempty,min=100,max=250"`

	PreferredSmoking StringList `json:"preferred_smoking" gorm:"type:text"`
	PreferredAlcohol StringList `json:"preferred_alcohol" gorm:"type:text"`
	PreferredDiet    StringList `json:"preferred_diet" gorm:"type:text"`

	MustBeVerified         bool   `json:"must_be_verified" gorm:"default:true"`
	HasChildrenAcceptable  bool   `json:"has_children_acceptable" gorm:"default:true"`
	ChildrenPreference     string `json:"children_preference" gorm:"size:30;default:no_preference"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultSearchPreference returns the defaults applied when a user has
// not configured any preferences.
func DefaultSearchPreference() *SearchPreference {
	return &SearchPreference{
		MinAge:                18,
		MaxAge:                99,
		MustBeVerified:        true,
		HasChildrenAcceptable: true,
		ChildrenPreference:    "no_preference",
	}
}
