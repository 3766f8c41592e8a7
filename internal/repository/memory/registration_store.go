package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"atomics-registration-be/internal/entity"
	"atomics-registration-be/internal/repository/contract"
	"atomics-registration-be/internal/repository/specification"
	"atomics-registration-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// RegistrationStore is a process-local RegistrationRepository used for local runs
// without Postgres (DB_DRIVER=memory) and by handler tests. Transactions are no-ops;
// every single call is atomic under the store mutex.
type RegistrationStore struct {
	mu    sync.RWMutex
	rows  map[uuid.UUID]entity.Registration
	order []uuid.UUID
	now   func() time.Time
}

func NewRegistrationStore() *RegistrationStore {
	return &RegistrationStore{
		rows: make(map[uuid.UUID]entity.Registration),
		now:  time.Now,
	}
}

func (s *RegistrationStore) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return &unitOfWork{store: s}
}

type unitOfWork struct {
	store *RegistrationStore
}

func (u *unitOfWork) Begin(ctx context.Context) error { return nil }
func (u *unitOfWork) Commit() error                   { return nil }
func (u *unitOfWork) Rollback() error                 { return nil }

func (u *unitOfWork) RegistrationRepository() contract.RegistrationRepository {
	return u.store
}

func clone(r entity.Registration) entity.Registration {
	r.PlayingPositions = append([]string(nil), r.PlayingPositions...)
	r.PreferredLocations = append([]string(nil), r.PreferredLocations...)
	if r.ExternalPaymentRef != nil {
		ref := *r.ExternalPaymentRef
		r.ExternalPaymentRef = &ref
	}
	r.PaymentDate = cloneTime(r.PaymentDate)
	r.PaymentEventAt = cloneTime(r.PaymentEventAt)
	r.PaymentCheckedAt = cloneTime(r.PaymentCheckedAt)
	if r.Academy != nil {
		a := *r.Academy
		a.SelectedTeams = append([]string(nil), a.SelectedTeams...)
		a.AssessmentDate = cloneTime(a.AssessmentDate)
		a.WelcomeEmailDate = cloneTime(a.WelcomeEmailDate)
		a.OrientationDate = cloneTime(a.OrientationDate)
		r.Academy = &a
	}
	if r.Tournament != nil {
		t := *r.Tournament
		r.Tournament = &t
	}
	return r
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// conflicts mimics the identity unique indexes of the SQL schema.
func (s *RegistrationStore) conflicts(candidate *entity.Registration) bool {
	guard := specification.DuplicateIdentity{Kind: candidate.Kind, Identity: candidate.Identity()}
	for id, row := range s.rows {
		if id == candidate.Id {
			continue
		}
		if guard.Matches(&row) {
			return true
		}
	}
	return false
}

func (s *RegistrationStore) Create(ctx context.Context, registration *entity.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if registration.Id == uuid.Nil {
		registration.Id = uuid.New()
	}
	if _, exists := s.rows[registration.Id]; exists {
		return fmt.Errorf("%w (primary key)", contract.ErrDuplicate)
	}
	if s.conflicts(registration) {
		return fmt.Errorf("%w (identity)", contract.ErrDuplicate)
	}

	now := s.now()
	registration.Version = 1
	registration.CreatedAt = now
	registration.UpdatedAt = now

	s.rows[registration.Id] = clone(*registration)
	s.order = append(s.order, registration.Id)
	return nil
}

func (s *RegistrationStore) query(specs []specification.Specification) ([]entity.Registration, error) {
	var (
		matchers []specification.Matcher
		orders   []specification.OrderBy
		page     *specification.Pagination
	)
	for _, spec := range specs {
		switch v := spec.(type) {
		case specification.OrderBy:
			orders = append(orders, v)
		case specification.Pagination:
			page = &v
		case specification.Matcher:
			matchers = append(matchers, v)
		default:
			return nil, fmt.Errorf("memory store cannot evaluate %T", spec)
		}
	}

	var out []entity.Registration
	for _, id := range s.order {
		row, ok := s.rows[id]
		if !ok {
			continue
		}
		if matchesAll(&row, matchers) {
			out = append(out, clone(row))
		}
	}

	if len(orders) > 0 {
		sort.SliceStable(out, func(i, j int) bool {
			for _, o := range orders {
				a, b := orderKey(out[i], o.Field), orderKey(out[j], o.Field)
				if a.Equal(b) {
					continue
				}
				if o.Desc {
					return a.After(b)
				}
				return a.Before(b)
			}
			return false
		})
	}

	if page != nil {
		if page.Offset >= len(out) {
			return nil, nil
		}
		out = out[page.Offset:]
		if page.Limit > 0 && page.Limit < len(out) {
			out = out[:page.Limit]
		}
	}
	return out, nil
}

// orderKey maps a column to its value. A NULL timestamp is the zero time, so it sorts first
// ascending.
func orderKey(r entity.Registration, field string) time.Time {
	switch field {
	case "created_at":
		return r.CreatedAt
	case "updated_at":
		return r.UpdatedAt
	case "payment_checked_at":
		if r.PaymentCheckedAt == nil {
			return time.Time{}
		}
		return *r.PaymentCheckedAt
	default:
		return r.RegistrationDate
	}
}

func matchesAll(row *entity.Registration, matchers []specification.Matcher) bool {
	for _, m := range matchers {
		if !m.Matches(row) {
			return false
		}
	}
	return true
}

func (s *RegistrationStore) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.query(specs)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

func (s *RegistrationStore) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.query(specs)
	if err != nil {
		return nil, err
	}
	out := make([]*entity.Registration, len(rows))
	for i := range rows {
		out[i] = &rows[i]
	}
	return out, nil
}

func (s *RegistrationStore) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.query(specs)
	return int64(len(rows)), err
}

func (s *RegistrationStore) UpdateIfVersion(ctx context.Context, registration *entity.Registration, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.rows[registration.Id]
	if !ok || current.Version != expectedVersion {
		return contract.ErrVersionConflict
	}
	if s.conflicts(registration) {
		return fmt.Errorf("%w (identity)", contract.ErrDuplicate)
	}

	next := clone(*registration)
	next.Kind = current.Kind
	next.CreatedAt = current.CreatedAt
	next.RegistrationDate = current.RegistrationDate
	next.PaymentCheckedAt = cloneTime(current.PaymentCheckedAt)
	next.Version = expectedVersion + 1
	next.UpdatedAt = s.now()
	s.rows[next.Id] = next

	registration.Version = next.Version
	registration.UpdatedAt = next.UpdatedAt
	return nil
}

func (s *RegistrationStore) BulkUpdateStatus(ctx context.Context, kind entity.RegistrationKind, ids []uuid.UUID, status entity.RegistrationStatus, adminNotes *string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := []specification.Matcher{specification.ByKind{Kind: kind}, specification.ByIDs{IDs: ids}}

	var n int64
	for id, row := range s.rows {
		if !matchesAll(&row, target) {
			continue
		}
		row.Status = status
		if adminNotes != nil {
			row.AdminNotes = *adminNotes
		}
		row.Version++
		row.UpdatedAt = s.now()
		s.rows[id] = row
		n++
	}
	return n, nil
}

func (s *RegistrationStore) MarkPaymentChecked(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := specification.ByIDs{IDs: ids}
	for id, row := range s.rows {
		if !target.Matches(&row) {
			continue
		}
		checked := at
		row.PaymentCheckedAt = &checked
		s.rows[id] = row
	}
	return nil
}

func (s *RegistrationStore) MarkWelcomeEmailSent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok || row.Academy == nil || row.Academy.WelcomeEmailSent {
		return false, nil
	}
	row = clone(row)
	row.Academy.WelcomeEmailSent = true
	row.Academy.WelcomeEmailDate = &at
	row.Version++
	s.rows[id] = row
	return true, nil
}

func (s *RegistrationStore) Delete(ctx context.Context, kind entity.RegistrationKind, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.rows[id]
	if !ok || row.Kind != kind {
		return false, nil
	}
	delete(s.rows, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true, nil
}

func (s *RegistrationStore) Stats(ctx context.Context, kind entity.RegistrationKind, dailySince time.Time) (*entity.RegistrationStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &entity.RegistrationStats{
		ByStatus:             map[string]int64{},
		ByPaymentStatus:      map[string]int64{},
		AgeGroups:            map[string]int64{},
		LocationDistribution: map[string]int64{},
	}
	daily := map[string]int64{}

	for _, row := range s.rows {
		if row.Kind != kind {
			continue
		}
		stats.Total++
		stats.ByStatus[string(row.Status)]++
		stats.ByPaymentStatus[string(row.PaymentStatus)]++
		stats.AgeGroups[row.AgeGroup]++
		for _, loc := range row.PreferredLocations {
			stats.LocationDistribution[loc]++
		}
		if row.PaymentStatus == entity.PaymentCompleted {
			stats.TotalRevenue += row.PaymentAmount
		}
		if !row.RegistrationDate.Before(dailySince) {
			daily[row.RegistrationDate.UTC().Format("2006-01-02")]++
		}
	}

	for day, count := range daily {
		stats.RecentDaily = append(stats.RecentDaily, entity.DailyCount{Day: day, Count: count})
	}
	sort.Slice(stats.RecentDaily, func(i, j int) bool {
		return stats.RecentDaily[i].Day > stats.RecentDaily[j].Day
	})
	return stats, nil
}
