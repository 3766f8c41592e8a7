package mapper

import (
	"time"

	"atomics-registration-be/internal/entity"
	"atomics-registration-be/internal/model"

	"gorm.io/datatypes"
)

type RegistrationMapper struct{}

func NewRegistrationMapper() *RegistrationMapper {
	return &RegistrationMapper{}
}

func (m *RegistrationMapper) ToEntity(r *model.Registration) *entity.Registration {
	if r == nil {
		return nil
	}
	e := &entity.Registration{
		Id:                 r.Id,
		Kind:               entity.RegistrationKind(r.Kind),
		PlayerFirstName:    r.PlayerFirstName,
		PlayerLastName:     r.PlayerLastName,
		DateOfBirth:        r.DateOfBirth,
		Gender:             r.Gender,
		PlayingPositions:   copyStrings(r.PlayingPositions),
		MobileNumber:       r.MobileNumber,
		Email:              r.Email,
		AcademyClub:        r.AcademyClub,
		PreferredLocations: copyStrings(r.PreferredLocations),
		Status:             entity.RegistrationStatus(r.Status),
		AgeGroup:           r.AgeGroup,
		PaymentAmount:      r.PaymentAmount,
		PaymentStatus:      entity.PaymentStatus(r.PaymentStatus),
		ExternalPaymentRef: r.ExternalPaymentRef,
		PaymentDate:        r.PaymentDate,
		PaymentEventAt:     r.PaymentEventAt,
		PaymentCheckedAt:   r.PaymentCheckedAt,
		Notes:              r.Notes,
		AdminNotes:         r.AdminNotes,
		RegistrationDate:   r.RegistrationDate,
		Version:            r.Version,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}

	switch e.Kind {
	case entity.KindAcademy:
		var start time.Time
		if r.StartDate != nil {
			start = *r.StartDate
		}
		e.Academy = &entity.AcademyDetails{
			SelectedTeams:        copyStrings(r.SelectedTeams),
			ParentName:           r.ParentName,
			ParentPhone:          r.ParentPhone,
			EmergencyContact:     r.EmergencyContact,
			StartDate:            start,
			AssessmentCompleted:  r.AssessmentCompleted,
			AssessmentDate:       r.AssessmentDate,
			AssignedCoach:        r.AssignedCoach,
			AssignedGroup:        r.AssignedGroup,
			WelcomeEmailSent:     r.WelcomeEmailSent,
			WelcomeEmailDate:     r.WelcomeEmailDate,
			OrientationCompleted: r.OrientationCompleted,
			OrientationDate:      r.OrientationDate,
		}
	case entity.KindTournament:
		e.Tournament = &entity.TournamentDetails{
			DivisionLastSeason: r.DivisionLastSeason,
			StrengthWeakness:   r.StrengthWeakness,
			TrialDate:          r.TrialDate,
			TrialDateLabel:     r.TrialDateLabel,
			Tournament:         r.Tournament,
			CupDates:           r.CupDates,
			Timings:            r.Timings,
			Location:           r.Location,
		}
	}
	return e
}

func (m *RegistrationMapper) ToModel(e *entity.Registration) *model.Registration {
	if e == nil {
		return nil
	}
	r := &model.Registration{
		Id:                 e.Id,
		Kind:               string(e.Kind),
		PlayerFirstName:    e.PlayerFirstName,
		PlayerLastName:     e.PlayerLastName,
		DateOfBirth:        e.DateOfBirth,
		Gender:             e.Gender,
		PlayingPositions:   datatypes.JSONSlice[string](copyStrings(e.PlayingPositions)),
		MobileNumber:       e.MobileNumber,
		Email:              e.Email,
		AcademyClub:        e.AcademyClub,
		PreferredLocations: datatypes.JSONSlice[string](copyStrings(e.PreferredLocations)),
		Status:             string(e.Status),
		AgeGroup:           e.AgeGroup,
		PaymentAmount:      e.PaymentAmount,
		PaymentStatus:      string(e.PaymentStatus),
		ExternalPaymentRef: e.ExternalPaymentRef,
		PaymentDate:        e.PaymentDate,
		PaymentEventAt:     e.PaymentEventAt,
		PaymentCheckedAt:   e.PaymentCheckedAt,
		Notes:              e.Notes,
		AdminNotes:         e.AdminNotes,
		RegistrationDate:   e.RegistrationDate,
		Version:            e.Version,
		CreatedAt:          e.CreatedAt,
		UpdatedAt:          e.UpdatedAt,
	}

	if a := e.Academy; a != nil {
		start := a.StartDate
		r.SelectedTeams = datatypes.JSONSlice[string](copyStrings(a.SelectedTeams))
		r.ParentName = a.ParentName
		r.ParentPhone = a.ParentPhone
		r.EmergencyContact = a.EmergencyContact
		r.StartDate = &start
		r.AssessmentCompleted = a.AssessmentCompleted
		r.AssessmentDate = a.AssessmentDate
		r.AssignedCoach = a.AssignedCoach
		r.AssignedGroup = a.AssignedGroup
		r.WelcomeEmailSent = a.WelcomeEmailSent
		r.WelcomeEmailDate = a.WelcomeEmailDate
		r.OrientationCompleted = a.OrientationCompleted
		r.OrientationDate = a.OrientationDate
	}
	if t := e.Tournament; t != nil {
		r.DivisionLastSeason = t.DivisionLastSeason
		r.StrengthWeakness = t.StrengthWeakness
		r.TrialDate = t.TrialDate
		r.TrialDateLabel = t.TrialDateLabel
		r.Tournament = t.Tournament
		r.CupDates = t.CupDates
		r.Timings = t.Timings
		r.Location = t.Location
	}
	return r
}

func copyStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
