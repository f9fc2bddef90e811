package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commerce-core/internal/model"
	"commerce-core/internal/repository/memory"
	apperrors "commerce-core/pkg/errors"
	"commerce-core/pkg/messaging"
)

func TestBalanceChargeDeductRefund(t *testing.T) {
	svc := NewBalanceService(memory.NewBalanceRepository(), nil, logr.Discard())
	ctx := context.Background()

	b, err := svc.Charge(ctx, "user-1", 10000)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), b.Amount)

	b, err = svc.Deduct(ctx, "user-1", 4000)
	require.NoError(t, err)
	assert.Equal(t, int64(6000), b.Amount)

	_, err = svc.Deduct(ctx, "user-1", 7000)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientBalance)

	b, err = svc.Refund(ctx, "user-1", 4000)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), b.Amount)

	got, err := svc.GetBalance(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), got.Amount)
}

func TestBalanceRejectsNonPositiveAmounts(t *testing.T) {
	svc := NewBalanceService(memory.NewBalanceRepository(), nil, logr.Discard())
	ctx := context.Background()

	_, err := svc.Charge(ctx, "user-1", 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidAmount)
	_, err = svc.Charge(ctx, "user-1", -5)
	assert.ErrorIs(t, err, apperrors.ErrInvalidAmount)
	_, err = svc.Deduct(ctx, "user-1", -5)
	assert.ErrorIs(t, err, apperrors.ErrInvalidAmount)
}

func TestBalanceEventsReachAudit(t *testing.T) {
	ps := messaging.NewGoChannel(logr.Discard())
	defer ps.Close()

	audit := NewBalanceAudit(ps.Subscriber, logr.Discard())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = audit.Run(ctx) }()

	svc := NewBalanceService(memory.NewBalanceRepository(), ps.Publisher, logr.Discard())

	// charges published before the subscription is live are dropped; keep charging
	require.Eventually(t, func() bool {
		_, _ = svc.Charge(ctx, "warmup", 1)
		return audit.Total(model.BalanceCharged) > 0
	}, time.Second, 20*time.Millisecond)

	_, err := svc.Charge(ctx, "user-1", 5000)
	require.NoError(t, err)
	_, err = svc.Deduct(ctx, "user-1", 1200)
	require.NoError(t, err)
	_, err = svc.Refund(ctx, "user-1", 200)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return audit.Total(model.BalanceDeducted) == 1200 && audit.Total(model.BalanceRefunded) == 200
	}, time.Second, 10*time.Millisecond)
}

func TestBalanceAuditSwitchesOnKind(t *testing.T) {
	audit := NewBalanceAudit(nil, logr.Discard())

	audit.Record(model.NewBalanceEvent(model.BalanceCharged, "u", 0, 500, now))
	audit.Record(model.NewBalanceEvent(model.BalanceDeducted, "u", 500, 200, now))
	audit.Record(model.BalanceEvent{Kind: "BOGUS", TransactionAmount: 99})

	assert.Equal(t, int64(500), audit.Total(model.BalanceCharged))
	assert.Equal(t, int64(300), audit.Total(model.BalanceDeducted))
	assert.Zero(t, audit.Total("BOGUS"))
}
