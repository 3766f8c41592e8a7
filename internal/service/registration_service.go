package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"atomics-registration-be/internal/dto"
	"atomics-registration-be/internal/entity"
	"atomics-registration-be/internal/pkg/apperror"
	"atomics-registration-be/internal/pkg/logger"
	"atomics-registration-be/internal/repository/contract"
	"atomics-registration-be/internal/repository/memory"
	"atomics-registration-be/internal/repository/specification"
	"atomics-registration-be/internal/repository/unitofwork"
	"atomics-registration-be/pkg/events"
	"atomics-registration-be/pkg/lifecycle"

	"github.com/google/uuid"
)

const (
	registrationModule = "Registration"
	duplicateMessage   = "A registration with this email, mobile number or player details already exists"

	defaultListLimit = 50
	maxListLimit     = 200
	statsDailyWindow = 30
)

type IRegistrationService interface {
	CheckDuplicate(ctx context.Context, kind entity.RegistrationKind, identity entity.Identity) (bool, error)
	CreateAcademy(ctx context.Context, req *dto.CreateAcademyRegistrationRequest) (*dto.RegistrationResponse, error)
	CreateTournament(ctx context.Context, req *dto.CreateTournamentRegistrationRequest) (*dto.RegistrationResponse, error)
	Get(ctx context.Context, kind entity.RegistrationKind, id uuid.UUID) (*dto.RegistrationResponse, error)
	List(ctx context.Context, kind entity.RegistrationKind, query *dto.ListRegistrationsQuery) (*dto.RegistrationListResponse, error)
	Update(ctx context.Context, kind entity.RegistrationKind, id uuid.UUID, req *dto.UpdateRegistrationRequest) (*dto.RegistrationResponse, error)
	Delete(ctx context.Context, kind entity.RegistrationKind, id uuid.UUID) error
	Stats(ctx context.Context, kind entity.RegistrationKind) (*dto.RegistrationStatsResponse, error)
	SetStatus(ctx context.Context, kind entity.RegistrationKind, id uuid.UUID, req *dto.UpdateStatusRequest) (*dto.RegistrationResponse, error)
	BulkSetStatus(ctx context.Context, kind entity.RegistrationKind, req *dto.BulkUpdateStatusRequest) (*dto.BulkUpdateStatusResponse, error)
	OverridePayment(ctx context.Context, kind entity.RegistrationKind, id uuid.UUID, req *dto.UpdatePaymentRequest) (*dto.RegistrationResponse, error)
}

type registrationService struct {
	uowFactory unitofwork.RepositoryFactory
	lifecycle  ILifecycleService
	publisher  IPublisherService
	statsCache *memory.StatsCache
	logger     logger.ILogger
	now        func() time.Time
}

func NewRegistrationService(
	uowFactory unitofwork.RepositoryFactory,
	lifecycleService ILifecycleService,
	publisher IPublisherService,
	statsCache *memory.StatsCache,
	log logger.ILogger,
) IRegistrationService {
	return &registrationService{
		uowFactory: uowFactory,
		lifecycle:  lifecycleService,
		publisher:  publisher,
		statsCache: statsCache,
		logger:     log,
		now:        time.Now,
	}
}

func checkDuplicate(ctx context.Context, repo contract.RegistrationRepository, kind entity.RegistrationKind, identity entity.Identity) (bool, error) {
	n, err := repo.Count(ctx, specification.DuplicateIdentity{Kind: kind, Identity: identity})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CheckDuplicate reports whether any registration of the kind shares the email, the mobile
// number or the name + date of birth. Store errors are returned, never read as "no duplicate".
func (s *registrationService) CheckDuplicate(ctx context.Context, kind entity.RegistrationKind, identity entity.Identity) (bool, error) {
	repo := s.uowFactory.NewUnitOfWork(ctx).RegistrationRepository()
	return checkDuplicate(ctx, repo, kind, identity)
}

func (s *registrationService) newRegistration(kind entity.RegistrationKind, p *dto.PlayerRequest, academyClub string, amount float64) *entity.Registration {
	now := s.now()
	dob := entity.NormalizeDate(p.DateOfBirth.Time)
	return &entity.Registration{
		Id:                 uuid.New(),
		Kind:               kind,
		PlayerFirstName:    strings.TrimSpace(p.PlayerFirstName),
		PlayerLastName:     strings.TrimSpace(p.PlayerLastName),
		DateOfBirth:        dob,
		Gender:             p.Gender,
		PlayingPositions:   p.PlayingPositions,
		MobileNumber:       entity.NormalizeMobile(p.MobileNumber),
		Email:              entity.NormalizeEmail(p.Email),
		AcademyClub:        strings.TrimSpace(academyClub),
		PreferredLocations: p.PreferredLocations,
		Status:             entity.StatusPending,
		AgeGroup:           entity.AgeGroupAt(dob, now),
		PaymentAmount:      amount,
		PaymentStatus:      entity.PaymentPending,
		Notes:              p.Notes,
		RegistrationDate:   now,
	}
}

func (s *registrationService) CreateAcademy(ctx context.Context, req *dto.CreateAcademyRegistrationRequest) (*dto.RegistrationResponse, error) {
	reg := s.newRegistration(entity.KindAcademy, &req.PlayerRequest, req.AcademyClub, req.PaymentAmount)
	reg.Academy = &entity.AcademyDetails{
		SelectedTeams:    req.SelectedTeams,
		ParentName:       req.ParentName,
		ParentPhone:      entity.NormalizeMobile(req.ParentPhone),
		EmergencyContact: req.EmergencyContact,
		StartDate:        entity.NormalizeDate(req.StartDate.Time),
	}
	return s.create(ctx, reg)
}

func (s *registrationService) CreateTournament(ctx context.Context, req *dto.CreateTournamentRegistrationRequest) (*dto.RegistrationResponse, error) {
	reg := s.newRegistration(entity.KindTournament, &req.PlayerRequest, req.AcademyClub, req.PaymentAmount)
	reg.Tournament = &entity.TournamentDetails{
		DivisionLastSeason: req.DivisionLastSeason,
		StrengthWeakness:   req.StrengthWeakness,
		TrialDate:          req.TrialDate,
		TrialDateLabel:     req.TrialDateLabel,
		Tournament:         orDefault(req.Tournament, entity.DefaultTournamentName),
		CupDates:           orDefault(req.CupDates, entity.DefaultTournamentCupDates),
		Timings:            orDefault(req.Timings, entity.DefaultTournamentTimings),
		Location:           orDefault(req.Location, entity.DefaultTournamentLocation),
	}
	return s.create(ctx, reg)
}

func (s *registrationService) create(ctx context.Context, reg *entity.Registration) (*dto.RegistrationResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, apperror.Internal("failed to start transaction", err)
	}
	defer func() { _ = uow.Rollback() }()

	repo := uow.RegistrationRepository()

	duplicate, err := checkDuplicate(ctx, repo, reg.Kind, reg.Identity())
	if err != nil {
		return nil, apperror.Internal("failed to check for duplicate registration", err)
	}
	if duplicate {
		return nil, apperror.Duplicate(duplicateMessage)
	}

	// The unique indexes close the window between the check and the insert.
	if err := repo.Create(ctx, reg); err != nil {
		if errors.Is(err, contract.ErrDuplicate) {
			return nil, apperror.Duplicate(duplicateMessage)
		}
		return nil, apperror.Internal("failed to create registration", err)
	}
	if err := uow.Commit(); err != nil {
		return nil, apperror.Internal("failed to commit registration", err)
	}

	s.logger.Info(registrationModule, "Registration created", map[string]interface{}{
		"registration_id": reg.Id.String(),
		"kind":            string(reg.Kind),
		"age_group":       reg.AgeGroup,
	})
	s.invalidateStats(reg.Kind)
	publishRegistrationEvent(ctx, s.publisher, s.logger, events.RegistrationCreated, reg, map[string]interface{}{
		"email": reg.Email,
	})

	return toRegistrationResponse(reg), nil
}

func (s *registrationService) Get(ctx context.Context, kind entity.RegistrationKind, id uuid.UUID) (*dto.RegistrationResponse, error) {
	repo := s.uowFactory.NewUnitOfWork(ctx).RegistrationRepository()
	reg, err := repo.FindOne(ctx, specification.ByID{ID: id}, specification.ByKind{Kind: kind})
	if err != nil {
		return nil, apperror.Internal("failed to load registration", err)
	}
	if reg == nil {
		return nil, apperror.NotFound("Registration not found")
	}
	return toRegistrationResponse(reg), nil
}

func (s *registrationService) List(ctx context.Context, kind entity.RegistrationKind, query *dto.ListRegistrationsQuery) (*dto.RegistrationListResponse, error) {
	filters := []specification.Specification{specification.ByKind{Kind: kind}}
	var fieldErrs []apperror.FieldError

	if status := strings.ToLower(strings.TrimSpace(query.Status)); status != "" {
		if !lifecycle.ValidStatus(kind, entity.RegistrationStatus(status)) {
			fieldErrs = append(fieldErrs, apperror.FieldError{Field: "status", Message: "is not a valid " + string(kind) + " status"})
		}
		filters = append(filters, specification.ByStatus{Status: entity.RegistrationStatus(status)})
	}
	if paymentStatus := strings.ToLower(strings.TrimSpace(query.PaymentStatus)); paymentStatus != "" {
		if !entity.PaymentStatus(paymentStatus).Valid() {
			fieldErrs = append(fieldErrs, apperror.FieldError{Field: "paymentStatus", Message: "is not a valid payment status"})
		}
		filters = append(filters, specification.ByPaymentStatus{Status: entity.PaymentStatus(paymentStatus)})
	}
	if len(fieldErrs) > 0 {
		return nil, apperror.Validation("Invalid filter", fieldErrs)
	}

	limit := query.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := query.Offset
	if offset < 0 {
		offset = 0
	}

	repo := s.uowFactory.NewUnitOfWork(ctx).RegistrationRepository()
	total, err := repo.Count(ctx, filters...)
	if err != nil {
		return nil, apperror.Internal("failed to count registrations", err)
	}

	specs := append(filters,
		specification.OrderBy{Field: "registration_date", Desc: true},
		specification.Pagination{Limit: limit, Offset: offset},
	)
	regs, err := repo.FindAll(ctx, specs...)
	if err != nil {
		return nil, apperror.Internal("failed to list registrations", err)
	}

	items := make([]*dto.RegistrationResponse, 0, len(regs))
	for _, reg := range regs {
		items = append(items, toRegistrationResponse(reg))
	}
	return &dto.RegistrationListResponse{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}

func (s *registrationService) Update(ctx context.Context, kind entity.RegistrationKind, id uuid.UUID, req *dto.UpdateRegistrationRequest) (*dto.RegistrationResponse, error) {
	res, _, err := mutateRegistration(ctx, s.uowFactory, s.logger, kind, id, func(reg entity.Registration) (lifecycle.Result, error) {
		applyUpdate(&reg, req)
		return lifecycle.Result{Registration: reg, Outcome: lifecycle.Applied}, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(registrationModule, "Registration updated", map[string]interface{}{
		"registration_id": id.String(),
		"kind":            string(kind),
	})
	s.invalidateStats(kind)
	return toRegistrationResponse(&res.Registration), nil
}

// applyUpdate copies the non-nil fields onto reg. Variant details are copied first so the
// caller's record is not modified through the shared pointer.
// Identity fields and the age group derived from them never change here.
func applyUpdate(reg *entity.Registration, req *dto.UpdateRegistrationRequest) {
	setString(&reg.Gender, req.Gender)
	setString(&reg.AcademyClub, req.AcademyClub)
	setString(&reg.Notes, req.Notes)
	setString(&reg.AdminNotes, req.AdminNotes)
	if req.PlayingPositions != nil {
		reg.PlayingPositions = req.PlayingPositions
	}
	if req.PreferredLocations != nil {
		reg.PreferredLocations = req.PreferredLocations
	}

	if reg.Academy != nil {
		a := *reg.Academy
		if req.SelectedTeams != nil {
			a.SelectedTeams = req.SelectedTeams
		}
		setString(&a.ParentName, req.ParentName)
		if req.ParentPhone != nil {
			a.ParentPhone = entity.NormalizeMobile(*req.ParentPhone)
		}
		setString(&a.EmergencyContact, req.EmergencyContact)
		setString(&a.AssignedCoach, req.AssignedCoach)
		setString(&a.AssignedGroup, req.AssignedGroup)
		if req.AssessmentCompleted != nil {
			a.AssessmentCompleted = *req.AssessmentCompleted
		}
		if req.AssessmentDate != nil {
			a.AssessmentDate = req.AssessmentDate.Ptr()
		}
		if req.OrientationCompleted != nil {
			a.OrientationCompleted = *req.OrientationCompleted
		}
		if req.OrientationDate != nil {
			a.OrientationDate = req.OrientationDate.Ptr()
		}
		reg.Academy = &a
	}

	if reg.Tournament != nil {
		t := *reg.Tournament
		setString(&t.DivisionLastSeason, req.DivisionLastSeason)
		setString(&t.StrengthWeakness, req.StrengthWeakness)
		setString(&t.TrialDate, req.TrialDate)
		setString(&t.TrialDateLabel, req.TrialDateLabel)
		reg.Tournament = &t
	}
}

func (s *registrationService) Delete(ctx context.Context, kind entity.RegistrationKind, id uuid.UUID) error {
	repo := s.uowFactory.NewUnitOfWork(ctx).RegistrationRepository()
	deleted, err := repo.Delete(ctx, kind, id)
	if err != nil {
		return apperror.Internal("failed to delete registration", err)
	}
	if !deleted {
		return apperror.NotFound("Registration not found")
	}

	s.logger.Info(registrationModule, "Registration deleted", map[string]interface{}{
		"registration_id": id.String(),
		"kind":            string(kind),
	})
	s.invalidateStats(kind)
	if s.publisher != nil {
		evt := events.NewRegistrationEvent(events.RegistrationDeleted, id.String(), 0, map[string]interface{}{
			"registration_type": string(kind),
		})
		if err := s.publisher.Publish(ctx, evt); err != nil {
			s.logger.Warn(registrationModule, "Failed to publish event", map[string]interface{}{"type": evt.Type, "error": err.Error()})
		}
	}
	return nil
}

func (s *registrationService) Stats(ctx context.Context, kind entity.RegistrationKind) (*dto.RegistrationStatsResponse, error) {
	if s.statsCache != nil {
		if stats, ok := s.statsCache.Get(kind); ok {
			return toStatsResponse(stats), nil
		}
	}

	since := entity.NormalizeDate(s.now()).AddDate(0, 0, -statsDailyWindow)
	repo := s.uowFactory.NewUnitOfWork(ctx).RegistrationRepository()
	stats, err := repo.Stats(ctx, kind, since)
	if err != nil {
		return nil, apperror.Internal("failed to compute statistics", err)
	}
	if s.statsCache != nil {
		s.statsCache.Save(kind, stats)
	}
	return toStatsResponse(stats), nil
}

func (s *registrationService) SetStatus(ctx context.Context, kind entity.RegistrationKind, id uuid.UUID, req *dto.UpdateStatusRequest) (*dto.RegistrationResponse, error) {
	status := entity.RegistrationStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	res, err := s.lifecycle.SetStatus(ctx, kind, id, status)
	if err != nil {
		return nil, err
	}
	return toRegistrationResponse(&res.Registration), nil
}

func (s *registrationService) BulkSetStatus(ctx context.Context, kind entity.RegistrationKind, req *dto.BulkUpdateStatusRequest) (*dto.BulkUpdateStatusResponse, error) {
	status := entity.RegistrationStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if !lifecycle.ValidStatus(kind, status) {
		return nil, apperror.InvalidState("invalid " + string(kind) + " status \"" + string(status) + "\"")
	}

	ids := uniqueIDs(req.Ids)
	repo := s.uowFactory.NewUnitOfWork(ctx).RegistrationRepository()
	updated, err := repo.BulkUpdateStatus(ctx, kind, ids, status, req.AdminNotes)
	if err != nil {
		return nil, apperror.Internal("failed to update registrations", err)
	}

	s.logger.Info(registrationModule, "Bulk status update", map[string]interface{}{
		"kind":      string(kind),
		"status":    string(status),
		"requested": len(ids),
		"updated":   updated,
	})
	s.invalidateStats(kind)

	if s.publisher != nil && updated > 0 {
		idStrings := make([]string, len(ids))
		for i, id := range ids {
			idStrings[i] = id.String()
		}
		evt := events.BaseEvent{
			ID:   events.RegistrationStatusChanged + ":bulk:" + uuid.NewString(),
			Type: events.RegistrationStatusChanged,
			Data: map[string]interface{}{
				"registration_type": string(kind),
				"registration_ids":  idStrings,
				"status":            string(status),
				"bulk":              true,
			},
			OccurredAt: s.now().UTC(),
		}
		if err := s.publisher.Publish(ctx, evt); err != nil {
			s.logger.Warn(registrationModule, "Failed to publish event", map[string]interface{}{"type": evt.Type, "error": err.Error()})
		}
	}

	return &dto.BulkUpdateStatusResponse{Requested: len(ids), Updated: updated}, nil
}

func (s *registrationService) OverridePayment(ctx context.Context, kind entity.RegistrationKind, id uuid.UUID, req *dto.UpdatePaymentRequest) (*dto.RegistrationResponse, error) {
	status := entity.PaymentStatus(strings.ToLower(strings.TrimSpace(req.PaymentStatus)))
	var ref *string
	if req.ExternalRef != nil {
		if trimmed := strings.TrimSpace(*req.ExternalRef); trimmed != "" {
			ref = &trimmed
		}
	}
	res, err := s.lifecycle.OverridePayment(ctx, kind, id, status, ref)
	if err != nil {
		return nil, err
	}
	return toRegistrationResponse(&res.Registration), nil
}

func (s *registrationService) invalidateStats(kind entity.RegistrationKind) {
	if s.statsCache != nil {
		s.statsCache.Invalidate(kind)
	}
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func toRegistrationResponse(reg *entity.Registration) *dto.RegistrationResponse {
	res := &dto.RegistrationResponse{
		Id:                 reg.Id,
		RegistrationType:   string(reg.Kind),
		PlayerFirstName:    reg.PlayerFirstName,
		PlayerLastName:     reg.PlayerLastName,
		FullName:           reg.FullName(),
		DateOfBirth:        dto.NewDate(reg.DateOfBirth),
		AgeGroup:           reg.AgeGroup,
		Gender:             reg.Gender,
		PlayingPositions:   reg.PlayingPositions,
		MobileNumber:       reg.MobileNumber,
		Email:              reg.Email,
		AcademyClub:        reg.AcademyClub,
		PreferredLocations: reg.PreferredLocations,
		Status:             string(reg.Status),
		PaymentAmount:      reg.PaymentAmount,
		PaymentStatus:      string(reg.PaymentStatus),
		ExternalRef:        reg.ExternalPaymentRef,
		PaymentDate:        reg.PaymentDate,
		Notes:              reg.Notes,
		AdminNotes:         reg.AdminNotes,
		RegistrationDate:   reg.RegistrationDate,
		Version:            reg.Version,
		CreatedAt:          reg.CreatedAt,
		UpdatedAt:          reg.UpdatedAt,
	}
	if a := reg.Academy; a != nil {
		res.Academy = &dto.AcademyDetailsResponse{
			SelectedTeams:        a.SelectedTeams,
			ParentName:           a.ParentName,
			ParentPhone:          a.ParentPhone,
			EmergencyContact:     a.EmergencyContact,
			StartDate:            dto.NewDate(a.StartDate),
			AssessmentCompleted:  a.AssessmentCompleted,
			AssessmentDate:       a.AssessmentDate,
			AssignedCoach:        a.AssignedCoach,
			AssignedGroup:        a.AssignedGroup,
			WelcomeEmailSent:     a.WelcomeEmailSent,
			WelcomeEmailDate:     a.WelcomeEmailDate,
			OrientationCompleted: a.OrientationCompleted,
			OrientationDate:      a.OrientationDate,
		}
	}
	if t := reg.Tournament; t != nil {
		res.Tournament = &dto.TournamentDetailsResponse{
			DivisionLastSeason: t.DivisionLastSeason,
			StrengthWeakness:   t.StrengthWeakness,
			TrialDate:          t.TrialDate,
			TrialDateLabel:     t.TrialDateLabel,
			Tournament:         t.Tournament,
			CupDates:           t.CupDates,
			Timings:            t.Timings,
			Location:           t.Location,
		}
	}
	return res
}

func toStatsResponse(stats *entity.RegistrationStats) *dto.RegistrationStatsResponse {
	recent := make([]dto.DailyCountResponse, 0, len(stats.RecentDaily))
	for _, d := range stats.RecentDaily {
		recent = append(recent, dto.DailyCountResponse{Date: d.Day, Count: d.Count})
	}
	return &dto.RegistrationStatsResponse{
		Total:                stats.Total,
		ByStatus:             stats.ByStatus,
		ByPaymentStatus:      stats.ByPaymentStatus,
		TotalRevenue:         stats.TotalRevenue,
		AgeGroupDistribution: stats.AgeGroups,
		LocationDistribution: stats.LocationDistribution,
		RecentRegistrations:  recent,
	}
}
