package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type RegistrationKind string

const (
	KindAcademy    RegistrationKind = "academy"
	KindTournament RegistrationKind = "tournament"
)

func (k RegistrationKind) Valid() bool {
	return k == KindAcademy || k == KindTournament
}

type RegistrationStatus string

const (
	StatusPending   RegistrationStatus = "pending"
	StatusApproved  RegistrationStatus = "approved"
	StatusRejected  RegistrationStatus = "rejected"
	StatusActive    RegistrationStatus = "active"
	StatusInactive  RegistrationStatus = "inactive"
	StatusConfirmed RegistrationStatus = "confirmed"
	StatusCancelled RegistrationStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

var PaymentStatuses = []PaymentStatus{PaymentPending, PaymentCompleted, PaymentFailed, PaymentRefunded}

func (s PaymentStatus) Valid() bool {
	for _, v := range PaymentStatuses {
		if v == s {
			return true
		}
	}
	return false
}

var (
	PlayingPositions   = []string{"GK", "CB", "RB", "LB", "CDM", "CM", "CAM", "LW", "RW", "ST"}
	PreferredLocations = []string{"active-mariah", "saadiyat"}
)

const (
	DefaultTournamentName     = "ATOMICS PRESEASON CUP"
	DefaultTournamentCupDates = "Tuesday - Thursday 26th - 28th August"
	DefaultTournamentTimings  = "5:00 PM to 9:00 PM"
	DefaultTournamentLocation = "Active Sports Pitches"
)

// Registration is one player submission. Exactly one of Academy / Tournament is set,
// matching Kind.
type Registration struct {
	Id                 uuid.UUID
	Kind               RegistrationKind
	PlayerFirstName    string
	PlayerLastName     string
	DateOfBirth        time.Time
	Gender             string
	PlayingPositions   []string
	MobileNumber       string
	Email              string
	AcademyClub        string
	PreferredLocations []string
	Status             RegistrationStatus
	AgeGroup           string
	PaymentAmount      float64
	PaymentStatus      PaymentStatus
	ExternalPaymentRef *string
	PaymentDate        *time.Time
	PaymentEventAt     *time.Time
	PaymentCheckedAt   *time.Time
	Notes              string
	AdminNotes         string
	RegistrationDate   time.Time
	Academy            *AcademyDetails
	Tournament         *TournamentDetails
	Version            int64
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type AcademyDetails struct {
	SelectedTeams        []string
	ParentName           string
	ParentPhone          string
	EmergencyContact     string
	StartDate            time.Time
	AssessmentCompleted  bool
	AssessmentDate       *time.Time
	AssignedCoach        string
	AssignedGroup        string
	WelcomeEmailSent     bool
	WelcomeEmailDate     *time.Time
	OrientationCompleted bool
	OrientationDate      *time.Time
}

type TournamentDetails struct {
	DivisionLastSeason string
	StrengthWeakness   string
	TrialDate          string
	TrialDateLabel     string
	Tournament         string
	CupDates           string
	Timings            string
	Location           string
}

func (r *Registration) FullName() string {
	return strings.TrimSpace(r.PlayerFirstName + " " + r.PlayerLastName)
}

func (r *Registration) PaymentRef() string {
	if r.ExternalPaymentRef == nil {
		return ""
	}
	return *r.ExternalPaymentRef
}

// Identity is the normalized tuple the duplicate guard matches on.
type Identity struct {
	Email        string
	MobileNumber string
	FirstName    string
	LastName     string
	DateOfBirth  time.Time
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func NormalizeMobile(mobile string) string {
	return strings.Join(strings.Fields(mobile), "")
}

func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func NewIdentity(email, mobile, firstName, lastName string, dob time.Time) Identity {
	return Identity{
		Email:        NormalizeEmail(email),
		MobileNumber: NormalizeMobile(mobile),
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		DateOfBirth:  NormalizeDate(dob),
	}
}

func (r *Registration) Identity() Identity {
	return NewIdentity(r.Email, r.MobileNumber, r.PlayerFirstName, r.PlayerLastName, r.DateOfBirth)
}

// AgeAt returns completed years between dob and at.
func AgeAt(dob, at time.Time) int {
	dob, at = dob.UTC(), at.UTC()
	age := at.Year() - dob.Year()
	if at.Month() < dob.Month() || (at.Month() == dob.Month() && at.Day() < dob.Day()) {
		age--
	}
	return age
}

// AgeGroupAt buckets the player's age on the given day. Empty for age <= 0.
func AgeGroupAt(dob, at time.Time) string {
	age := AgeAt(dob, at)
	switch {
	case age <= 0:
		return ""
	case age <= 6:
		return "U6"
	case age <= 8:
		return "U8"
	case age <= 10:
		return "U10"
	case age <= 12:
		return "U12"
	case age <= 14:
		return "U14"
	case age <= 16:
		return "U16"
	case age <= 18:
		return "U18"
	default:
		return "Senior"
	}
}

type RegistrationStats struct {
	Total                int64
	ByStatus             map[string]int64
	ByPaymentStatus      map[string]int64
	TotalRevenue         float64
	AgeGroups            map[string]int64
	LocationDistribution map[string]int64
	RecentDaily          []DailyCount
}

type DailyCount struct {
	Day   string
	Count int64
}
