package serverutils

import (
	"testing"
	"time"

	"atomics-registration-be/internal/dto"
	"atomics-registration-be/internal/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedToday(t *testing.T, day time.Time) {
	t.Helper()
	prev := today
	today = func() time.Time { return day }
	t.Cleanup(func() { today = prev })
}

func validAcademyRequest() dto.CreateAcademyRegistrationRequest {
	return dto.CreateAcademyRegistrationRequest{
		PlayerRequest: dto.PlayerRequest{
			PlayerFirstName:    "Omar",
			PlayerLastName:     "Haddad",
			DateOfBirth:        dto.NewDate(time.Date(2014, 3, 10, 0, 0, 0, 0, time.UTC)),
			Gender:             "male",
			PlayingPositions:   []string{"CM", "ST"},
			MobileNumber:       "+971501234567",
			Email:              "omar@example.com",
			PreferredLocations: []string{"saadiyat"},
		},
		SelectedTeams: []string{"U12 Development"},
		ParentName:    "Sami Haddad",
		ParentPhone:   "0501234567",
		StartDate:     dto.NewDate(time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)),
		PaymentAmount: 750,
	}
}

func fieldNames(t *testing.T, err error) []string {
	t.Helper()
	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, apperror.KindValidation, appErr.Kind)
	names := make([]string, 0, len(appErr.Fields))
	for _, f := range appErr.Fields {
		names = append(names, f.Field)
	}
	return names
}

func TestIsUAEPhone(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"+971501234567", true},
		{"971501234567", true},
		{"0501234567", true},
		{"501234567", true},
		{"+971 50 123 4567", true},
		{"+97150123456", false},
		{"0101234567", false},
		{"+44501234567", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUAEPhone(tt.in))
		})
	}
}

func TestValidateRequest_AcademyValid(t *testing.T) {
	fixedToday(t, time.Date(2025, 8, 1, 15, 0, 0, 0, time.UTC))
	req := validAcademyRequest()
	assert.NoError(t, ValidateRequest(req))
}

func TestValidateRequest_StartDateToday(t *testing.T) {
	fixedToday(t, time.Date(2025, 9, 1, 23, 0, 0, 0, time.UTC))
	req := validAcademyRequest()
	assert.NoError(t, ValidateRequest(req))
}

func TestValidateRequest_ReportsEveryField(t *testing.T) {
	fixedToday(t, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))
	req := validAcademyRequest()
	req.Email = "not-an-email"
	req.MobileNumber = "12345"
	req.PlayingPositions = []string{"GK", "XX"}
	req.StartDate = dto.NewDate(time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC))
	req.SelectedTeams = []string{"a", "b", "c"}

	names := fieldNames(t, ValidateRequest(req))
	assert.ElementsMatch(t, []string{
		"email",
		"mobileNumber",
		"playingPositions[1]",
		"startDate",
		"selectedTeams",
	}, names)
}

func TestValidateRequest_MissingDate(t *testing.T) {
	fixedToday(t, time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC))
	req := validAcademyRequest()
	req.DateOfBirth = dto.Date{}

	names := fieldNames(t, ValidateRequest(req))
	assert.Equal(t, []string{"dateOfBirth"}, names)
}

func TestValidateRequest_TournamentStrengthWeakness(t *testing.T) {
	req := dto.CreateTournamentRegistrationRequest{
		PlayerRequest:      validAcademyRequest().PlayerRequest,
		AcademyClub:        "Atomics FC",
		DivisionLastSeason: "Division 2",
		StrengthWeakness:   "too short",
		TrialDate:          "2025-08-20",
	}

	names := fieldNames(t, ValidateRequest(req))
	assert.Equal(t, []string{"strengthWeakness"}, names)
}

func TestValidateRequest_UpdateSkipsNil(t *testing.T) {
	assert.NoError(t, ValidateRequest(dto.UpdateRegistrationRequest{}))

	bad := "x"
	names := fieldNames(t, ValidateRequest(dto.UpdateRegistrationRequest{ParentName: &bad}))
	assert.Equal(t, []string{"parentName"}, names)
}
