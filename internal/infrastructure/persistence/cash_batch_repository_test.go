package persistence

import (
	"context"
	"testing"

	"github.com/netcollect/backend/internal/domain/billing"
	"github.com/netcollect/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPendingBatch(t *testing.T, collector string) *billing.CashBatch {
	t.Helper()
	b, err := billing.NewCashBatch(testPeriod, testDay, collector, billing.CashTally{Count: 1, Total: 150000}, onDay(18, 0))
	require.NoError(t, err)
	return b
}

func TestGormCashBatchRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	r := newTestRepos(t)

	none, err := r.batches.FindForCollectorDay(ctx, testPeriod, testDay, "Ali", billing.BatchStatusPending)
	require.NoError(t, err)
	assert.Nil(t, none)

	b := newPendingBatch(t, "Ali")
	require.NoError(t, r.batches.Create(ctx, b))
	assert.NotZero(t, b.ID)

	found, err := r.batches.FindForCollectorDay(ctx, testPeriod, testDay, "Ali", billing.BatchStatusPending)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, b.ID, found.ID)
	assert.Equal(t, int64(150000), found.TotalCash)

	exists, err := r.batches.ExistsForCollectorDay(ctx, testPeriod, testDay, "Ali", billing.BatchStatusApproved)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = r.batches.FindByID(ctx, 9999)
	assert.ErrorIs(t, err, billing.ErrBatchNotFound)
}

func TestGormCashBatchRepository_DuplicatePending(t *testing.T) {
	ctx := context.Background()
	r := newTestRepos(t)

	require.NoError(t, r.batches.Create(ctx, newPendingBatch(t, "Ali")))

	err := r.batches.Create(ctx, newPendingBatch(t, "Ali"))
	assert.ErrorIs(t, err, billing.ErrConcurrentSubmission)
	assert.True(t, shared.IsConflict(err))

	// a different collector has its own day
	assert.NoError(t, r.batches.Create(ctx, newPendingBatch(t, "Budi")))
}

func TestGormCashBatchRepository_ClaimUpdateApprove(t *testing.T) {
	ctx := context.Background()
	r := newTestRepos(t)

	b := newPendingBatch(t, "Ali")
	require.NoError(t, r.batches.Create(ctx, b))

	ok, err := r.batches.Claim(ctx, b.ID, onDay(18, 30))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.batches.UpdateTotals(ctx, b.ID, billing.CashTally{Count: 3, Total: 420000}, onDay(18, 30))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.batches.Approve(ctx, b.ID, "2025-07", "Admin", onDay(19, 0))
	require.NoError(t, err)
	assert.False(t, ok, "period must match")

	ok, err = r.batches.Approve(ctx, b.ID, testPeriod, "Admin", onDay(19, 0))
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := r.batches.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.BatchStatusApproved, got.Status)
	assert.Equal(t, "Admin", got.ApprovedBy)
	assert.Equal(t, int64(3), got.Count)
	assert.Equal(t, int64(420000), got.TotalCash)
	require.NotNil(t, got.ApprovedAt)

	// approved is terminal
	ok, err = r.batches.Approve(ctx, b.ID, testPeriod, "Admin", onDay(20, 0))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.batches.Claim(ctx, b.ID, onDay(20, 0))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = r.batches.UpdateTotals(ctx, b.ID, billing.CashTally{Count: 9, Total: 9}, onDay(20, 0))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGormCashBatchRepository_ListByStatus(t *testing.T) {
	ctx := context.Background()
	r := newTestRepos(t)

	later, err := billing.NewCashBatch(testPeriod, "2025-06-16", "Ali", billing.CashTally{Count: 1, Total: 1}, onDay(18, 0))
	require.NoError(t, err)
	require.NoError(t, r.batches.Create(ctx, later))
	budi := newPendingBatch(t, "Budi")
	require.NoError(t, r.batches.Create(ctx, budi))
	ali := newPendingBatch(t, "Ali")
	require.NoError(t, r.batches.Create(ctx, ali))

	pending, err := r.batches.ListByStatus(ctx, testPeriod, billing.BatchStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, []int64{budi.ID, ali.ID, later.ID}, []int64{pending[0].ID, pending[1].ID, pending[2].ID})

	approved, err := r.batches.ListByStatus(ctx, testPeriod, billing.BatchStatusApproved)
	require.NoError(t, err)
	assert.Empty(t, approved)
}
