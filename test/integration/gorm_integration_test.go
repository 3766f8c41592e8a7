package integration

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"atomics-registration-be/internal/entity"
	"atomics-registration-be/internal/model"
	"atomics-registration-be/internal/repository/contract"
	"atomics-registration-be/internal/repository/specification"
	"atomics-registration-be/internal/repository/unitofwork"
	"atomics-registration-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrationRepository_Postgres(t *testing.T) {
	// Load .env from root
	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn, database.PoolConfig{MaxOpen: 4})
	require.NoError(t, err, "failed to connect to DB")
	require.NoError(t, gormDB.AutoMigrate(&model.Registration{}))

	ctx := context.Background()
	repo := unitofwork.NewRepositoryFactory(gormDB).NewUnitOfWork(ctx).RegistrationRepository()

	suffix := uuid.NewString()[:8]
	mobile := fmt.Sprintf("050%07d", time.Now().UnixNano()%10000000)
	reg := &entity.Registration{
		Kind:               entity.KindTournament,
		PlayerFirstName:    "Integration",
		PlayerLastName:     "Player-" + suffix,
		DateOfBirth:        time.Date(2012, 3, 14, 0, 0, 0, 0, time.UTC),
		Gender:             "male",
		PlayingPositions:   []string{"CM", "ST"},
		MobileNumber:       mobile,
		Email:              "integration-" + suffix + "@example.com",
		PreferredLocations: []string{"saadiyat"},
		Status:             entity.StatusPending,
		AgeGroup:           "U14",
		PaymentAmount:      500,
		PaymentStatus:      entity.PaymentPending,
		RegistrationDate:   time.Now().UTC(),
		Tournament: &entity.TournamentDetails{
			DivisionLastSeason: "U13 Division 1",
			StrengthWeakness:   "Strong in the air, slow on the turn.",
			TrialDate:          "2025-08-10",
			Tournament:         entity.DefaultTournamentName,
		},
	}
	require.NoError(t, repo.Create(ctx, reg))
	t.Cleanup(func() {
		_, _ = repo.Delete(context.Background(), entity.KindTournament, reg.Id)
	})
	assert.Equal(t, int64(1), reg.Version)

	t.Run("Identity unique indexes", func(t *testing.T) {
		clash := *reg
		clash.Id = uuid.Nil
		clash.MobileNumber = "0599999999"
		clash.PlayerFirstName = "Someone"
		err := repo.Create(ctx, &clash)
		assert.ErrorIs(t, err, contract.ErrDuplicate)

		n, err := repo.Count(ctx, specification.DuplicateIdentity{Kind: entity.KindTournament, Identity: reg.Identity()})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("Versioned update", func(t *testing.T) {
		stale := *reg
		ref := "pi_integration_" + suffix

		reg.PaymentStatus = entity.PaymentCompleted
		reg.ExternalPaymentRef = &ref
		reg.Status = entity.StatusConfirmed
		require.NoError(t, repo.UpdateIfVersion(ctx, reg, 1))
		assert.Equal(t, int64(2), reg.Version)

		stale.Status = entity.StatusCancelled
		assert.ErrorIs(t, repo.UpdateIfVersion(ctx, &stale, 1), contract.ErrVersionConflict)

		got, err := repo.FindOne(ctx, specification.ByExternalRef{Ref: ref})
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, entity.StatusConfirmed, got.Status)
		assert.Equal(t, []string{"CM", "ST"}, got.PlayingPositions)
		assert.Equal(t, entity.DefaultTournamentName, got.Tournament.Tournament)
	})

	t.Run("Payment check stamp", func(t *testing.T) {
		at := time.Now().UTC()
		require.NoError(t, repo.MarkPaymentChecked(ctx, []uuid.UUID{reg.Id}, at))

		got, err := repo.FindOne(ctx, specification.ByID{ID: reg.Id})
		require.NoError(t, err)
		require.NotNil(t, got.PaymentCheckedAt)
		assert.WithinDuration(t, at, *got.PaymentCheckedAt, time.Millisecond)
		assert.Equal(t, reg.Version, got.Version)
	})

	t.Run("Stats", func(t *testing.T) {
		stats, err := repo.Stats(ctx, entity.KindTournament, time.Now().AddDate(0, 0, -30))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, stats.Total, int64(1))
		assert.GreaterOrEqual(t, stats.TotalRevenue, 500.0)
	})
}
