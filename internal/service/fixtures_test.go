package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"atomics-registration-be/internal/dto"
	"atomics-registration-be/internal/entity"
	"atomics-registration-be/internal/pkg/logger"
	"atomics-registration-be/internal/repository/contract"
	"atomics-registration-be/internal/repository/memory"
	"atomics-registration-be/internal/repository/specification"
	"atomics-registration-be/internal/repository/unitofwork"
	"atomics-registration-be/pkg/events"
	"atomics-registration-be/pkg/gateway"
	"atomics-registration-be/pkg/idempotency"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const validSignature = "t=1,v1=ok"

// fakeGateway signs nothing: a webhook is authentic when the signature equals validSignature
// and its body is a JSON gateway.Event.
type fakeGateway struct {
	mu       sync.Mutex
	created  []gateway.IntentRequest
	statuses map[string]*gateway.IntentStatus
	nextID   int
	failNext error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{statuses: map[string]*gateway.IntentStatus{}}
}

func (g *fakeGateway) Name() string            { return "fake" }
func (g *fakeGateway) SignatureHeader() string { return "X-Fake-Signature" }

func (g *fakeGateway) CreateIntent(ctx context.Context, req gateway.IntentRequest) (*gateway.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failNext != nil {
		err := g.failNext
		g.failNext = nil
		return nil, err
	}
	g.nextID++
	id := fmt.Sprintf("pi_fake_%d", g.nextID)
	g.created = append(g.created, req)
	g.statuses[id] = &gateway.IntentStatus{
		IntentID: id,
		Status:   "requires_payment_method",
		Outcome:  gateway.EventOther,
		Amount:   req.Amount,
		Currency: req.Currency,
		Metadata: req.Metadata,
	}
	return &gateway.Intent{IntentID: id, ClientSecret: id + "_secret"}, nil
}

func (g *fakeGateway) ParseEvent(payload []byte, signature string) (*gateway.Event, error) {
	if signature != validSignature {
		return nil, gateway.ErrInvalidSignature
	}
	var evt gateway.Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrInvalidSignature, err)
	}
	return &evt, nil
}

func (g *fakeGateway) RetrieveIntent(ctx context.Context, intentID string) (*gateway.IntentStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	status, ok := g.statuses[intentID]
	if !ok {
		return nil, fmt.Errorf("no such intent %s", intentID)
	}
	cp := *status
	return &cp, nil
}

func (g *fakeGateway) settle(intentID string, outcome gateway.EventType) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.statuses[intentID]; !ok {
		g.statuses[intentID] = &gateway.IntentStatus{IntentID: intentID}
	}
	g.statuses[intentID].Outcome = outcome
	g.statuses[intentID].Status = string(outcome)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, evt events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

type harness struct {
	store         *memory.RegistrationStore
	factory       unitofwork.RepositoryFactory
	gateway       *fakeGateway
	publisher     *recordingPublisher
	lifecycle     *lifecycleService
	registrations *registrationService
	payments      IPaymentService
	now           time.Time
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithFactory(t, nil)
}

// newHarnessWithFactory lets a test wrap the memory store's repository.
func newHarnessWithFactory(t *testing.T, wrap func(contract.RegistrationRepository) contract.RegistrationRepository) *harness {
	t.Helper()

	h := &harness{
		store:     memory.NewRegistrationStore(),
		gateway:   newFakeGateway(),
		publisher: &recordingPublisher{},
		now:       time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC),
	}
	h.factory = h.store
	if wrap != nil {
		h.factory = wrappedFactory{inner: h.store, wrap: wrap}
	}

	log := logger.NewNopLogger()
	stats := memory.NewStatsCache(time.Minute)
	clock := func() time.Time { return h.now }

	h.lifecycle = NewLifecycleService(h.factory, h.publisher, stats, log).(*lifecycleService)
	h.lifecycle.now = clock
	h.registrations = NewRegistrationService(h.factory, h.lifecycle, h.publisher, stats, log).(*registrationService)
	h.registrations.now = clock
	h.payments = NewPaymentService(h.gateway, h.lifecycle, h.factory, idempotency.NewCacheStore(time.Hour), "aed", log)
	return h
}

type wrappedFactory struct {
	inner unitofwork.RepositoryFactory
	wrap  func(contract.RegistrationRepository) contract.RegistrationRepository
}

func (f wrappedFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return wrappedUnitOfWork{UnitOfWork: f.inner.NewUnitOfWork(ctx), wrap: f.wrap}
}

type wrappedUnitOfWork struct {
	unitofwork.UnitOfWork
	wrap func(contract.RegistrationRepository) contract.RegistrationRepository
}

func (u wrappedUnitOfWork) RegistrationRepository() contract.RegistrationRepository {
	return u.wrap(u.UnitOfWork.RegistrationRepository())
}

func (h *harness) find(t *testing.T, id uuid.UUID) *entity.Registration {
	t.Helper()
	reg, err := h.store.FindOne(context.Background(), specification.ByID{ID: id})
	require.NoError(t, err)
	require.NotNil(t, reg, "registration %s not found", id)
	return reg
}

func tournamentRequest(first, email, mobile string) *dto.CreateTournamentRegistrationRequest {
	return &dto.CreateTournamentRegistrationRequest{
		PlayerRequest: dto.PlayerRequest{
			PlayerFirstName:    first,
			PlayerLastName:     "Haddad",
			DateOfBirth:        dto.NewDate(time.Date(2012, 3, 14, 0, 0, 0, 0, time.UTC)),
			Gender:             "male",
			PlayingPositions:   []string{"CM", "CAM"},
			MobileNumber:       mobile,
			Email:              email,
			PreferredLocations: []string{"saadiyat"},
		},
		AcademyClub:        "Atomics",
		DivisionLastSeason: "U13 Division 1",
		StrengthWeakness:   "Reads the game well, needs to work on his left foot.",
		TrialDate:          "2025-08-10",
		PaymentAmount:      500,
	}
}

func academyRequest(first, email, mobile string) *dto.CreateAcademyRegistrationRequest {
	return &dto.CreateAcademyRegistrationRequest{
		PlayerRequest: dto.PlayerRequest{
			PlayerFirstName:    first,
			PlayerLastName:     "Mansour",
			DateOfBirth:        dto.NewDate(time.Date(2016, 9, 2, 0, 0, 0, 0, time.UTC)),
			Gender:             "female",
			PlayingPositions:   []string{"GK"},
			MobileNumber:       mobile,
			Email:              email,
			PreferredLocations: []string{"active-mariah"},
		},
		SelectedTeams: []string{"U10 Girls"},
		ParentName:    "Rania Mansour",
		ParentPhone:   "0507654321",
		StartDate:     dto.NewDate(time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)),
		PaymentAmount: 750,
	}
}

func webhookBody(t *testing.T, evt gateway.Event) []byte {
	t.Helper()
	b, err := json.Marshal(evt)
	require.NoError(t, err)
	return b
}
