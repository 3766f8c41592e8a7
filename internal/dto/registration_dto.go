package dto

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PlayerRequest holds the fields both registration forms share.
type PlayerRequest struct {
	PlayerFirstName    string   `json:"playerFirstName" validate:"required,min=2,max=50"`
	PlayerLastName     string   `json:"playerLastName" validate:"required,min=2,max=50"`
	DateOfBirth        Date     `json:"dateOfBirth" validate:"required"`
	Gender             string   `json:"gender" validate:"required,oneof=male female"`
	PlayingPositions   []string `json:"playingPositions" validate:"required,min=1,dive,oneof=GK CB RB LB CDM CM CAM LW RW ST"`
	MobileNumber       string   `json:"mobileNumber" validate:"required,uae_phone"`
	Email              string   `json:"email" validate:"required,email"`
	PreferredLocations []string `json:"preferredLocations" validate:"required,min=1,dive,oneof=active-mariah saadiyat"`
	Notes              string   `json:"notes" validate:"omitempty,max=1000"`
}

func (p *PlayerRequest) normalize() {
	p.PlayerFirstName = strings.TrimSpace(p.PlayerFirstName)
	p.PlayerLastName = strings.TrimSpace(p.PlayerLastName)
	p.Gender = strings.ToLower(strings.TrimSpace(p.Gender))
	p.MobileNumber = strings.Join(strings.Fields(p.MobileNumber), "")
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	p.Notes = strings.TrimSpace(p.Notes)
}

type CreateAcademyRegistrationRequest struct {
	PlayerRequest
	AcademyClub      string   `json:"academyClub" validate:"omitempty,max=100"`
	SelectedTeams    []string `json:"selectedTeams" validate:"required,min=1,max=2,dive,required"`
	ParentName       string   `json:"parentName" validate:"required,min=2,max=100"`
	ParentPhone      string   `json:"parentPhone" validate:"required,uae_phone"`
	EmergencyContact string   `json:"emergencyContact" validate:"omitempty,max=100"`
	StartDate        Date     `json:"startDate" validate:"required,notpast"`
	PaymentAmount    float64  `json:"paymentAmount" validate:"gt=0"`
}

func (r *CreateAcademyRegistrationRequest) Normalize() {
	r.PlayerRequest.normalize()
	r.AcademyClub = strings.TrimSpace(r.AcademyClub)
	r.ParentName = strings.TrimSpace(r.ParentName)
	r.ParentPhone = strings.Join(strings.Fields(r.ParentPhone), "")
	r.EmergencyContact = strings.TrimSpace(r.EmergencyContact)
}

type CreateTournamentRegistrationRequest struct {
	PlayerRequest
	AcademyClub        string  `json:"academyClub" validate:"required,max=100"`
	DivisionLastSeason string  `json:"divisionLastSeason" validate:"required,max=100"`
	StrengthWeakness   string  `json:"strengthWeakness" validate:"required,min=10,max=1000"`
	TrialDate          string  `json:"trialDate" validate:"required,max=100"`
	TrialDateLabel     string  `json:"trialDateLabel" validate:"omitempty,max=255"`
	Tournament         string  `json:"tournament" validate:"omitempty,max=255"`
	CupDates           string  `json:"cupDates" validate:"omitempty,max=255"`
	Timings            string  `json:"timings" validate:"omitempty,max=255"`
	Location           string  `json:"location" validate:"omitempty,max=255"`
	PaymentAmount      float64 `json:"paymentAmount" validate:"gte=0"`
}

func (r *CreateTournamentRegistrationRequest) Normalize() {
	r.PlayerRequest.normalize()
	r.AcademyClub = strings.TrimSpace(r.AcademyClub)
	r.DivisionLastSeason = strings.TrimSpace(r.DivisionLastSeason)
	r.StrengthWeakness = strings.TrimSpace(r.StrengthWeakness)
	r.TrialDate = strings.TrimSpace(r.TrialDate)
}

// UpdateRegistrationRequest carries the admin-editable fields. Nil means unchanged.
// Status and payment fields have their own endpoints. Names, date of birth, email and mobile
// number are fixed at submission and are not accepted here.
type UpdateRegistrationRequest struct {
	Gender             *string  `json:"gender" validate:"omitempty,oneof=male female"`
	PlayingPositions   []string `json:"playingPositions" validate:"omitempty,min=1,dive,oneof=GK CB RB LB CDM CM CAM LW RW ST"`
	AcademyClub        *string  `json:"academyClub" validate:"omitempty,max=100"`
	PreferredLocations []string `json:"preferredLocations" validate:"omitempty,min=1,dive,oneof=active-mariah saadiyat"`
	Notes              *string  `json:"notes" validate:"omitempty,max=1000"`
	AdminNotes         *string  `json:"adminNotes" validate:"omitempty,max=2000"`

	SelectedTeams        []string `json:"selectedTeams" validate:"omitempty,min=1,max=2"`
	ParentName           *string  `json:"parentName" validate:"omitempty,min=2,max=100"`
	ParentPhone          *string  `json:"parentPhone" validate:"omitempty,uae_phone"`
	EmergencyContact     *string  `json:"emergencyContact" validate:"omitempty,max=100"`
	AssessmentCompleted  *bool    `json:"assessmentCompleted"`
	AssessmentDate       *Date    `json:"assessmentDate"`
	AssignedCoach        *string  `json:"assignedCoach" validate:"omitempty,max=100"`
	AssignedGroup        *string  `json:"assignedGroup" validate:"omitempty,max=100"`
	OrientationCompleted *bool    `json:"orientationCompleted"`
	OrientationDate      *Date    `json:"orientationDate"`

	DivisionLastSeason *string `json:"divisionLastSeason" validate:"omitempty,max=100"`
	StrengthWeakness   *string `json:"strengthWeakness" validate:"omitempty,min=10,max=1000"`
	TrialDate          *string `json:"trialDate" validate:"omitempty,max=100"`
	TrialDateLabel     *string `json:"trialDateLabel" validate:"omitempty,max=255"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type UpdatePaymentRequest struct {
	PaymentStatus string  `json:"paymentStatus" validate:"required"`
	ExternalRef   *string `json:"externalRef" validate:"omitempty,max=255"`
}

type BulkUpdateStatusRequest struct {
	Ids        []uuid.UUID `json:"ids" validate:"required,min=1,max=500"`
	Status     string      `json:"status" validate:"required"`
	AdminNotes *string     `json:"adminNotes" validate:"omitempty,max=2000"`
}

type BulkUpdateStatusResponse struct {
	Requested int   `json:"requested"`
	Updated   int64 `json:"updated"`
}

type ListRegistrationsQuery struct {
	Status        string `query:"status"`
	PaymentStatus string `query:"paymentStatus"`
	Limit         int    `query:"limit"`
	Offset        int    `query:"offset"`
}

type AcademyDetailsResponse struct {
	SelectedTeams        []string   `json:"selectedTeams"`
	ParentName           string     `json:"parentName"`
	ParentPhone          string     `json:"parentPhone"`
	EmergencyContact     string     `json:"emergencyContact,omitempty"`
	StartDate            Date       `json:"startDate"`
	AssessmentCompleted  bool       `json:"assessmentCompleted"`
	AssessmentDate       *time.Time `json:"assessmentDate,omitempty"`
	AssignedCoach        string     `json:"assignedCoach,omitempty"`
	AssignedGroup        string     `json:"assignedGroup,omitempty"`
	WelcomeEmailSent     bool       `json:"welcomeEmailSent"`
	WelcomeEmailDate     *time.Time `json:"welcomeEmailDate,omitempty"`
	OrientationCompleted bool       `json:"orientationCompleted"`
	OrientationDate      *time.Time `json:"orientationDate,omitempty"`
}

type TournamentDetailsResponse struct {
	DivisionLastSeason string `json:"divisionLastSeason"`
	StrengthWeakness   string `json:"strengthWeakness"`
	TrialDate          string `json:"trialDate"`
	TrialDateLabel     string `json:"trialDateLabel,omitempty"`
	Tournament         string `json:"tournament"`
	CupDates           string `json:"cupDates"`
	Timings            string `json:"timings"`
	Location           string `json:"location"`
}

type RegistrationResponse struct {
	Id                 uuid.UUID                  `json:"id"`
	RegistrationType   string                     `json:"registrationType"`
	PlayerFirstName    string                     `json:"playerFirstName"`
	PlayerLastName     string                     `json:"playerLastName"`
	FullName           string                     `json:"fullName"`
	DateOfBirth        Date                       `json:"dateOfBirth"`
	AgeGroup           string                     `json:"ageGroup"`
	Gender             string                     `json:"gender"`
	PlayingPositions   []string                   `json:"playingPositions"`
	MobileNumber       string                     `json:"mobileNumber"`
	Email              string                     `json:"email"`
	AcademyClub        string                     `json:"academyClub,omitempty"`
	PreferredLocations []string                   `json:"preferredLocations"`
	Status             string                     `json:"status"`
	PaymentAmount      float64                    `json:"paymentAmount"`
	PaymentStatus      string                     `json:"paymentStatus"`
	ExternalRef        *string                    `json:"externalRef,omitempty"`
	PaymentDate        *time.Time                 `json:"paymentDate,omitempty"`
	Notes              string                     `json:"notes,omitempty"`
	AdminNotes         string                     `json:"adminNotes,omitempty"`
	RegistrationDate   time.Time                  `json:"registrationDate"`
	Academy            *AcademyDetailsResponse    `json:"academy,omitempty"`
	Tournament         *TournamentDetailsResponse `json:"tournament,omitempty"`
	Version            int64                      `json:"version"`
	CreatedAt          time.Time                  `json:"createdAt"`
	UpdatedAt          time.Time                  `json:"updatedAt"`
}

type RegistrationListResponse struct {
	Items  []*RegistrationResponse `json:"items"`
	Total  int64                   `json:"total"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
}

type DailyCountResponse struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type RegistrationStatsResponse struct {
	Total                int64                `json:"total"`
	ByStatus             map[string]int64     `json:"byStatus"`
	ByPaymentStatus      map[string]int64     `json:"byPaymentStatus"`
	TotalRevenue         float64              `json:"totalRevenue"`
	AgeGroupDistribution map[string]int64     `json:"ageGroupDistribution"`
	LocationDistribution map[string]int64     `json:"locationDistribution"`
	RecentRegistrations  []DailyCountResponse `json:"recentRegistrations"`
}
