package lifecycle

import (
	"testing"
	"time"

	"atomics-registration-be/internal/entity"
	"atomics-registration-be/internal/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var fixedNow = time.Date(2025, 8, 1, 10, 0, 0, 0, time.UTC)

func newReg(kind entity.RegistrationKind) entity.Registration {
	return entity.Registration{
		Id:            uuid.New(),
		Kind:          kind,
		Status:        entity.StatusPending,
		PaymentStatus: entity.PaymentPending,
		PaymentAmount: 500,
		Version:       1,
	}
}

func succeeded(ref string) PaymentEvent {
	return PaymentEvent{Kind: EventSucceeded, ExternalRef: ref, OccurredAt: fixedNow}
}

func failed(ref string, at time.Time) PaymentEvent {
	return PaymentEvent{Kind: EventFailed, ExternalRef: ref, OccurredAt: at}
}

func TestApplyPaymentEvent_TournamentSucceeded(t *testing.T) {
	reg := newReg(entity.KindTournament)

	res, err := ApplyPaymentEvent(reg, succeeded("pi_123"), fixedNow)
	require.NoError(t, err)
	assert.Equal(t, Applied, res.Outcome)

	got := res.Registration
	assert.Equal(t, entity.PaymentCompleted, got.PaymentStatus)
	assert.Equal(t, entity.StatusConfirmed, got.Status)
	require.NotNil(t, got.PaymentDate)
	assert.Equal(t, fixedNow, *got.PaymentDate)
	assert.Equal(t, "pi_123", got.PaymentRef())

	assert.Equal(t, entity.PaymentPending, reg.PaymentStatus, "input must not be mutated")
}

func TestApplyPaymentEvent_AcademyAdvancesToApproved(t *testing.T) {
	res, err := ApplyPaymentEvent(newReg(entity.KindAcademy), succeeded("pi_1"), fixedNow)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusApproved, res.Registration.Status)
}

func TestApplyPaymentEvent_StatusGuards(t *testing.T) {
	tests := []struct {
		name   string
		kind   entity.RegistrationKind
		status entity.RegistrationStatus
		want   entity.RegistrationStatus
	}{
		{"rejected academy stays rejected", entity.KindAcademy, entity.StatusRejected, entity.StatusRejected},
		{"cancelled tournament stays cancelled", entity.KindTournament, entity.StatusCancelled, entity.StatusCancelled},
		{"active academy is not pulled back", entity.KindAcademy, entity.StatusActive, entity.StatusActive},
		{"inactive academy is not pulled back", entity.KindAcademy, entity.StatusInactive, entity.StatusInactive},
		{"confirmed tournament stays confirmed", entity.KindTournament, entity.StatusConfirmed, entity.StatusConfirmed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := newReg(tt.kind)
			reg.Status = tt.status

			res, err := ApplyPaymentEvent(reg, succeeded("pi_9"), fixedNow)
			require.NoError(t, err)
			assert.Equal(t, Applied, res.Outcome)
			assert.Equal(t, entity.PaymentCompleted, res.Registration.PaymentStatus)
			assert.Equal(t, tt.want, res.Registration.Status)
		})
	}
}

func TestApplyPaymentEvent_SucceededTwiceIsNoop(t *testing.T) {
	first, err := ApplyPaymentEvent(newReg(entity.KindTournament), succeeded("pi_123"), fixedNow)
	require.NoError(t, err)

	second, err := ApplyPaymentEvent(first.Registration, succeeded("pi_123"), fixedNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, Unchanged, second.Outcome)
	assert.Equal(t, first.Registration, second.Registration)
	assert.Equal(t, fixedNow, *second.Registration.PaymentDate)
}

func TestApplyPaymentEvent_OutOfOrder(t *testing.T) {
	t.Run("stale failed after succeeded is ignored", func(t *testing.T) {
		paid, err := ApplyPaymentEvent(newReg(entity.KindTournament), succeeded("pi_1"), fixedNow)
		require.NoError(t, err)

		res, err := ApplyPaymentEvent(paid.Registration, failed("pi_1", fixedNow.Add(-time.Minute)), fixedNow)
		require.NoError(t, err)
		assert.Equal(t, Ignored, res.Outcome)
		assert.Equal(t, entity.PaymentCompleted, res.Registration.PaymentStatus)
	})

	t.Run("failed never downgrades refunded", func(t *testing.T) {
		reg := newReg(entity.KindTournament)
		reg.PaymentStatus = entity.PaymentRefunded

		res, err := ApplyPaymentEvent(reg, failed("pi_1", fixedNow), fixedNow)
		require.NoError(t, err)
		assert.Equal(t, Ignored, res.Outcome)
	})

	t.Run("succeeded after failed completes", func(t *testing.T) {
		f, err := ApplyPaymentEvent(newReg(entity.KindTournament), failed("pi_1", fixedNow), fixedNow)
		require.NoError(t, err)
		require.Equal(t, entity.PaymentFailed, f.Registration.PaymentStatus)
		assert.Equal(t, entity.StatusPending, f.Registration.Status)

		s, err := ApplyPaymentEvent(f.Registration, succeeded("pi_1"), fixedNow)
		require.NoError(t, err)
		assert.Equal(t, Applied, s.Outcome)
		assert.Equal(t, entity.PaymentCompleted, s.Registration.PaymentStatus)
		assert.Equal(t, entity.StatusConfirmed, s.Registration.Status)
	})

	t.Run("older failed after newer failed is ignored", func(t *testing.T) {
		f, err := ApplyPaymentEvent(newReg(entity.KindAcademy), failed("pi_2", fixedNow), fixedNow)
		require.NoError(t, err)

		res, err := ApplyPaymentEvent(f.Registration, failed("pi_1", fixedNow.Add(-time.Hour)), fixedNow)
		require.NoError(t, err)
		assert.Equal(t, Ignored, res.Outcome)
		assert.Equal(t, "pi_2", res.Registration.PaymentRef())
	})

	t.Run("second succeeded with another intent is ignored", func(t *testing.T) {
		paid, err := ApplyPaymentEvent(newReg(entity.KindTournament), succeeded("pi_1"), fixedNow)
		require.NoError(t, err)

		res, err := ApplyPaymentEvent(paid.Registration, succeeded("pi_2"), fixedNow)
		require.NoError(t, err)
		assert.Equal(t, Ignored, res.Outcome)
		assert.Equal(t, "pi_1", res.Registration.PaymentRef())
	})

	t.Run("failure of a superseded intent is ignored", func(t *testing.T) {
		attached, err := AttachIntent(newReg(entity.KindTournament), "pi_new")
		require.NoError(t, err)

		res, err := ApplyPaymentEvent(attached.Registration, failed("pi_old", fixedNow), fixedNow)
		require.NoError(t, err)
		assert.Equal(t, Ignored, res.Outcome)
	})
}

func TestApplyPaymentEvent_RejectsBadInput(t *testing.T) {
	_, err := ApplyPaymentEvent(newReg(entity.KindAcademy), PaymentEvent{Kind: EventSucceeded}, fixedNow)
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = ApplyPaymentEvent(newReg(entity.KindAcademy), PaymentEvent{Kind: "refunded", ExternalRef: "pi"}, fixedNow)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestSetStatus(t *testing.T) {
	t.Run("rejects values outside the variant", func(t *testing.T) {
		_, err := SetStatus(newReg(entity.KindTournament), entity.StatusApproved)
		assert.True(t, apperror.Is(err, apperror.KindInvalidState))

		_, err = SetStatus(newReg(entity.KindAcademy), entity.StatusConfirmed)
		assert.True(t, apperror.Is(err, apperror.KindInvalidState))

		_, err = SetStatus(newReg(entity.KindAcademy), "archived")
		assert.True(t, apperror.Is(err, apperror.KindInvalidState))
	})

	t.Run("off-graph admin transition is allowed and flagged", func(t *testing.T) {
		reg := newReg(entity.KindTournament)
		reg.Status = entity.StatusCancelled

		res, err := SetStatus(reg, entity.StatusConfirmed)
		require.NoError(t, err)
		assert.Equal(t, Applied, res.Outcome)
		assert.True(t, res.OffGraph)
	})

	t.Run("same status is unchanged", func(t *testing.T) {
		res, err := SetStatus(newReg(entity.KindTournament), entity.StatusPending)
		require.NoError(t, err)
		assert.Equal(t, Unchanged, res.Outcome)
	})
}

func TestOverridePayment(t *testing.T) {
	ref := "pi_7"

	t.Run("completed sets date and advances status", func(t *testing.T) {
		res, err := OverridePayment(newReg(entity.KindTournament), entity.PaymentCompleted, &ref, fixedNow)
		require.NoError(t, err)
		assert.Equal(t, entity.StatusConfirmed, res.Registration.Status)
		require.NotNil(t, res.Registration.PaymentDate)
		assert.Equal(t, "pi_7", res.Registration.PaymentRef())
	})

	t.Run("back to pending clears the date", func(t *testing.T) {
		paid, err := OverridePayment(newReg(entity.KindAcademy), entity.PaymentCompleted, nil, fixedNow)
		require.NoError(t, err)

		res, err := OverridePayment(paid.Registration, entity.PaymentPending, nil, fixedNow)
		require.NoError(t, err)
		assert.Nil(t, res.Registration.PaymentDate)
		assert.True(t, res.OffGraph)
	})

	t.Run("refund keeps the payment date", func(t *testing.T) {
		paid, err := OverridePayment(newReg(entity.KindAcademy), entity.PaymentCompleted, &ref, fixedNow)
		require.NoError(t, err)

		res, err := OverridePayment(paid.Registration, entity.PaymentRefunded, nil, fixedNow.Add(time.Hour))
		require.NoError(t, err)
		require.NotNil(t, res.Registration.PaymentDate)
		assert.Equal(t, fixedNow, *res.Registration.PaymentDate)
		assert.False(t, res.OffGraph)
	})

	t.Run("settled ref cannot be replaced", func(t *testing.T) {
		paid, err := OverridePayment(newReg(entity.KindAcademy), entity.PaymentCompleted, &ref, fixedNow)
		require.NoError(t, err)

		other := "pi_8"
		_, err = OverridePayment(paid.Registration, entity.PaymentCompleted, &other, fixedNow)
		assert.True(t, apperror.Is(err, apperror.KindInvalidState))
	})

	t.Run("unknown payment status", func(t *testing.T) {
		_, err := OverridePayment(newReg(entity.KindAcademy), "chargeback", nil, fixedNow)
		assert.True(t, apperror.Is(err, apperror.KindInvalidState))
	})
}

func TestAttachIntent(t *testing.T) {
	res, err := AttachIntent(newReg(entity.KindAcademy), "pi_1")
	require.NoError(t, err)
	assert.Equal(t, Applied, res.Outcome)

	again, err := AttachIntent(res.Registration, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, Unchanged, again.Outcome)

	f, err := ApplyPaymentEvent(res.Registration, failed("pi_1", fixedNow), fixedNow)
	require.NoError(t, err)
	retry, err := AttachIntent(f.Registration, "pi_2")
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentPending, retry.Registration.PaymentStatus)
	assert.Equal(t, "pi_2", retry.Registration.PaymentRef())

	paid, err := ApplyPaymentEvent(retry.Registration, succeeded("pi_2"), fixedNow)
	require.NoError(t, err)
	_, err = AttachIntent(paid.Registration, "pi_3")
	assert.True(t, apperror.Is(err, apperror.KindInvalidState))
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(entity.KindTournament, entity.StatusPending, entity.StatusConfirmed))
	assert.True(t, CanTransition(entity.KindTournament, entity.StatusConfirmed, entity.StatusCancelled))
	assert.False(t, CanTransition(entity.KindTournament, entity.StatusCancelled, entity.StatusPending))
	assert.True(t, CanTransition(entity.KindAcademy, entity.StatusActive, entity.StatusInactive))
	assert.True(t, CanTransition(entity.KindAcademy, entity.StatusInactive, entity.StatusActive))
	assert.False(t, CanTransition(entity.KindAcademy, entity.StatusRejected, entity.StatusApproved))

	assert.True(t, CanTransitionPayment(entity.PaymentFailed, entity.PaymentPending))
	assert.False(t, CanTransitionPayment(entity.PaymentRefunded, entity.PaymentCompleted))
}

func drawRegistration(r *rapid.T) entity.Registration {
	kind := rapid.SampledFrom([]entity.RegistrationKind{entity.KindAcademy, entity.KindTournament}).Draw(r, "kind")
	reg := newReg(kind)
	reg.Status = rapid.SampledFrom(Statuses(kind)).Draw(r, "status")
	reg.PaymentStatus = rapid.SampledFrom(entity.PaymentStatuses).Draw(r, "paymentStatus")
	if reg.PaymentStatus == entity.PaymentCompleted || reg.PaymentStatus == entity.PaymentRefunded {
		paidAt := fixedNow.Add(-24 * time.Hour)
		reg.PaymentDate = &paidAt
	}
	if rapid.Bool().Draw(r, "hasRef") {
		ref := rapid.StringMatching(`pi_[a-z0-9]{4}`).Draw(r, "ref")
		reg.ExternalPaymentRef = &ref
	}
	return reg
}

func drawEvent(r *rapid.T) PaymentEvent {
	return PaymentEvent{
		Kind:        rapid.SampledFrom([]EventKind{EventSucceeded, EventFailed}).Draw(r, "eventKind"),
		ExternalRef: rapid.StringMatching(`pi_[a-z0-9]{4}`).Draw(r, "eventRef"),
		OccurredAt:  fixedNow.Add(time.Duration(rapid.IntRange(-3600, 3600).Draw(r, "offset")) * time.Second),
	}
}

func TestApplyPaymentEvent_Properties(t *testing.T) {
	rapid.Check(t, func(r *rapid.T) {
		reg := drawRegistration(r)
		evt := drawEvent(r)

		first, err := ApplyPaymentEvent(reg, evt, fixedNow)
		require.NoError(r, err)

		// Re-applying the same event leaves the record exactly as after the first pass.
		second, err := ApplyPaymentEvent(first.Registration, evt, fixedNow.Add(time.Minute))
		require.NoError(r, err)
		require.NotEqual(r, Applied, second.Outcome)
		require.Equal(r, first.Registration, second.Registration)

		// Cancelled and rejected are never changed by a payment event.
		if IsTerminalNegative(reg.Status) {
			require.Equal(r, reg.Status, first.Registration.Status)
		}

		// Settled payments are never downgraded to failed.
		if reg.PaymentStatus == entity.PaymentCompleted || reg.PaymentStatus == entity.PaymentRefunded {
			require.Equal(r, reg.PaymentStatus, first.Registration.PaymentStatus)
		}

		if first.Registration.PaymentStatus == entity.PaymentCompleted {
			require.NotNil(r, first.Registration.PaymentDate)
		}

		if first.Outcome != Applied {
			require.Equal(r, reg, first.Registration)
		}
	})
}

func TestSetStatus_Properties(t *testing.T) {
	rapid.Check(t, func(r *rapid.T) {
		reg := drawRegistration(r)
		target := entity.RegistrationStatus(rapid.SampledFrom([]string{
			"pending", "approved", "rejected", "active", "inactive", "confirmed", "cancelled", "archived", "",
		}).Draw(r, "target"))

		res, err := SetStatus(reg, target)
		if !ValidStatus(reg.Kind, target) {
			require.True(r, apperror.Is(err, apperror.KindInvalidState))
			return
		}
		require.NoError(r, err)
		require.Equal(r, target, res.Registration.Status)
		require.Equal(r, reg.PaymentStatus, res.Registration.PaymentStatus)
	})
}
