package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Registration backs both variants. Variant columns are nullable/empty for the other kind.
// The three unique indexes mirror the duplicate guard so a lost check-then-insert race
// still surfaces as a unique violation.
type Registration struct {
	Id                 uuid.UUID                   `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Kind               string                      `gorm:"type:varchar(20);not null;index;uniqueIndex:idx_registrations_kind_email;uniqueIndex:idx_registrations_kind_mobile;uniqueIndex:idx_registrations_kind_identity"`
	PlayerFirstName    string                      `gorm:"type:varchar(100);not null;uniqueIndex:idx_registrations_kind_identity"`
	PlayerLastName     string                      `gorm:"type:varchar(100);not null;uniqueIndex:idx_registrations_kind_identity"`
	DateOfBirth        time.Time                   `gorm:"type:date;not null;uniqueIndex:idx_registrations_kind_identity"`
	Gender             string                      `gorm:"type:varchar(10);not null"`
	PlayingPositions   datatypes.JSONSlice[string] `gorm:"not null"`
	MobileNumber       string                      `gorm:"type:varchar(20);not null;uniqueIndex:idx_registrations_kind_mobile"`
	Email              string                      `gorm:"type:varchar(255);not null;uniqueIndex:idx_registrations_kind_email"`
	AcademyClub        string                      `gorm:"type:varchar(255)"`
	PreferredLocations datatypes.JSONSlice[string] `gorm:"not null"`
	Status             string                      `gorm:"type:varchar(20);not null;default:pending;index"`
	AgeGroup           string                      `gorm:"type:varchar(10)"`
	PaymentAmount      float64                     `gorm:"type:numeric(12,2);not null;default:0"`
	PaymentStatus      string                      `gorm:"type:varchar(20);not null;default:pending;index"`
	ExternalPaymentRef *string                     `gorm:"type:varchar(255);index"`
	PaymentDate        *time.Time
	PaymentEventAt     *time.Time
	PaymentCheckedAt   *time.Time
	Notes              string    `gorm:"type:text"`
	AdminNotes         string    `gorm:"type:text"`
	RegistrationDate   time.Time `gorm:"not null;index"`

	// academy
	SelectedTeams        datatypes.JSONSlice[string]
	ParentName           string `gorm:"type:varchar(255)"`
	ParentPhone          string `gorm:"type:varchar(20)"`
	EmergencyContact     string `gorm:"type:varchar(255)"`
	StartDate            *time.Time
	AssessmentCompleted  bool `gorm:"default:false"`
	AssessmentDate       *time.Time
	AssignedCoach        string `gorm:"type:varchar(255)"`
	AssignedGroup        string `gorm:"type:varchar(255)"`
	WelcomeEmailSent     bool   `gorm:"default:false"`
	WelcomeEmailDate     *time.Time
	OrientationCompleted bool `gorm:"default:false"`
	OrientationDate      *time.Time

	// tournament
	DivisionLastSeason string `gorm:"type:varchar(255)"`
	StrengthWeakness   string `gorm:"type:text"`
	TrialDate          string `gorm:"type:varchar(100)"`
	TrialDateLabel     string `gorm:"type:varchar(255)"`
	Tournament         string `gorm:"type:varchar(255)"`
	CupDates           string `gorm:"type:varchar(255)"`
	Timings            string `gorm:"type:varchar(255)"`
	Location           string `gorm:"type:varchar(255)"`

	Version   int64     `gorm:"not null;default:1"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Registration) TableName() string {
	return "registrations"
}
