package implementation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"atomics-registration-be/internal/entity"
	"atomics-registration-be/internal/mapper"
	"atomics-registration-be/internal/model"
	"atomics-registration-be/internal/repository/contract"
	"atomics-registration-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

type RegistrationRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.RegistrationMapper
}

func NewRegistrationRepository(db *gorm.DB) contract.RegistrationRepository {
	return &RegistrationRepositoryImpl{
		db:     db,
		mapper: mapper.NewRegistrationMapper(),
	}
}

func (r *RegistrationRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func translateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w (%s)", contract.ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

func (r *RegistrationRepositoryImpl) Create(ctx context.Context, registration *entity.Registration) error {
	m := r.mapper.ToModel(registration)
	if m.Id == uuid.Nil {
		m.Id = uuid.New()
	}
	if m.Version == 0 {
		m.Version = 1
	}
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return translateError(err)
	}
	*registration = *r.mapper.ToEntity(m)
	return nil
}

func (r *RegistrationRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Registration, error) {
	var m model.Registration
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *RegistrationRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Registration, error) {
	var models []*model.Registration
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.Registration, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}

func (r *RegistrationRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Registration{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *RegistrationRepositoryImpl) UpdateIfVersion(ctx context.Context, registration *entity.Registration, expectedVersion int64) error {
	m := r.mapper.ToModel(registration)
	m.Version = expectedVersion + 1

	// UPDATE registrations SET ... WHERE id = ? AND version = ?
	res := r.db.WithContext(ctx).
		Model(m).
		Where("version = ?", expectedVersion).
		Select("*").
		Omit("id", "kind", "created_at", "registration_date", "payment_checked_at").
		Updates(m)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return contract.ErrVersionConflict
	}

	registration.Version = m.Version
	registration.UpdatedAt = m.UpdatedAt
	return nil
}

func (r *RegistrationRepositoryImpl) BulkUpdateStatus(ctx context.Context, kind entity.RegistrationKind, ids []uuid.UUID, status entity.RegistrationStatus, adminNotes *string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	updates := map[string]interface{}{
		"status":     string(status),
		"version":    gorm.Expr("version + 1"),
		"updated_at": time.Now(),
	}
	if adminNotes != nil {
		updates["admin_notes"] = *adminNotes
	}

	res := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Registration{}),
		specification.ByKind{Kind: kind},
		specification.ByIDs{IDs: ids},
	).Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *RegistrationRepositoryImpl) MarkPaymentChecked(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	// UpdateColumn skips the updated_at auto-update.
	return r.applySpecifications(r.db.WithContext(ctx).Model(&model.Registration{}),
		specification.ByIDs{IDs: ids},
	).UpdateColumn("payment_checked_at", at).Error
}

func (r *RegistrationRepositoryImpl) MarkWelcomeEmailSent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Registration{}).
		Where("id = ? AND kind = ? AND welcome_email_sent = ?", id, string(entity.KindAcademy), false).
		Updates(map[string]interface{}{
			"welcome_email_sent": true,
			"welcome_email_date": at,
			"version":            gorm.Expr("version + 1"),
		})
	return res.RowsAffected > 0, res.Error
}

func (r *RegistrationRepositoryImpl) Delete(ctx context.Context, kind entity.RegistrationKind, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("id = ? AND kind = ?", id, string(kind)).
		Delete(&model.Registration{})
	return res.RowsAffected > 0, res.Error
}

type groupCount struct {
	Label string
	Count int64
}

func toMap(rows []groupCount) map[string]int64 {
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Label] = row.Count
	}
	return out
}

func (r *RegistrationRepositoryImpl) Stats(ctx context.Context, kind entity.RegistrationKind, dailySince time.Time) (*entity.RegistrationStats, error) {
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&model.Registration{}).Where("kind = ?", string(kind))
	}
	stats := &entity.RegistrationStats{}

	if err := base().Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	grouped := func(column string) (map[string]int64, error) {
		var rows []groupCount
		err := base().
			Select(column + " AS label, COUNT(*) AS count").
			Group(column).
			Scan(&rows).Error
		return toMap(rows), err
	}

	var err error
	if stats.ByStatus, err = grouped("status"); err != nil {
		return nil, err
	}
	if stats.ByPaymentStatus, err = grouped("payment_status"); err != nil {
		return nil, err
	}
	if stats.AgeGroups, err = grouped("age_group"); err != nil {
		return nil, err
	}

	if err := base().
		Where("payment_status = ?", string(entity.PaymentCompleted)).
		Select("COALESCE(SUM(payment_amount), 0)").
		Scan(&stats.TotalRevenue).Error; err != nil {
		return nil, err
	}

	var locations []groupCount
	if err := r.db.WithContext(ctx).Raw(
		`SELECT loc AS label, COUNT(*) AS count
		 FROM registrations, jsonb_array_elements_text(preferred_locations::jsonb) AS loc
		 WHERE kind = ?
		 GROUP BY loc`, string(kind)).
		Scan(&locations).Error; err != nil {
		return nil, err
	}
	stats.LocationDistribution = toMap(locations)

	var daily []groupCount
	if err := base().
		Where("registration_date >= ?", dailySince).
		Select("to_char(registration_date, 'YYYY-MM-DD') AS label, COUNT(*) AS count").
		Group("label").
		Order("label DESC").
		Scan(&daily).Error; err != nil {
		return nil, err
	}
	for _, d := range daily {
		stats.RecentDaily = append(stats.RecentDaily, entity.DailyCount{Day: d.Label, Count: d.Count})
	}

	return stats, nil
}
