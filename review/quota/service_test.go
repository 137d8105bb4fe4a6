// Copyright (C) 2025 Frameloop, Inc.
// See LICENSE for copying information.

package quota_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"frameloop.io/frameloop/internal/testcontext"
	"frameloop.io/frameloop/review/assets"
	"frameloop.io/frameloop/review/quota"
	"frameloop.io/frameloop/reviewdb/testdb"
)

const gigabyte = int64(1) << 30

func newService(t *testing.T, db *testdb.DB, limit int64) *quota.Service {
	return quota.NewService(zaptest.NewLogger(t), db.Quota(), quota.Config{LimitBytes: limit})
}

func TestReserveRelease(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	db := testdb.New()
	tenant := uuid.New()
	service := newService(t, db, 100*gigabyte)

	require.NoError(t, service.Reserve(ctx, tenant, 40*gigabyte))
	require.NoError(t, service.Reserve(ctx, tenant, 60*gigabyte))

	usage, err := service.Usage(ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, 100*gigabyte, usage.UsedBytes)
	assert.Zero(t, usage.Remaining())

	require.NoError(t, service.Release(ctx, tenant, 30*gigabyte))
	usage, err = service.Usage(ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, 70*gigabyte, usage.UsedBytes)

	// release clamps at zero
	require.NoError(t, service.Release(ctx, tenant, 500*gigabyte))
	usage, err = service.Usage(ctx, tenant)
	require.NoError(t, err)
	assert.Zero(t, usage.UsedBytes)
}

func TestReserveExceeded(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	db := testdb.New()
	tenant := uuid.New()
	service := newService(t, db, 100*gigabyte)

	require.NoError(t, service.Reserve(ctx, tenant, 90*gigabyte))

	err := service.Reserve(ctx, tenant, 15*gigabyte)
	var exceeded *quota.ExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, 90*gigabyte, exceeded.UsedBytes)
	assert.Equal(t, 100*gigabyte, exceeded.LimitBytes)
	assert.Equal(t, 10*gigabyte, exceeded.RemainingBytes)
	assert.Equal(t, 15*gigabyte, exceeded.RequestedBytes)
	assert.Contains(t, exceeded.Error(), "need 5.0 GiB more")

	// the failed attempt must not have moved the counter
	usage, err := service.Usage(ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, 90*gigabyte, usage.UsedBytes)
}

func TestReserveRace(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	db := testdb.New()
	tenant := uuid.New()
	limit := 100 * gigabyte
	service := newService(t, db, limit)

	// two concurrent reservations of 0.6*limit: exactly one may win
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		ctx.Go(func() error {
			results <- service.Reserve(ctx, tenant, 60*gigabyte)
			return nil
		})
	}
	require.NoError(t, ctx.Wait())
	close(results)

	var wins, losses int
	for err := range results {
		if err == nil {
			wins++
			continue
		}
		losses++
		var exceeded *quota.ExceededError
		require.ErrorAs(t, err, &exceeded)
		// the loser sees the winner's reservation
		assert.Equal(t, 60*gigabyte, exceeded.UsedBytes)
		assert.Equal(t, 40*gigabyte, exceeded.RemainingBytes)
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, losses)
}

func TestNegativeReservation(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	service := newService(t, testdb.New(), 100*gigabyte)
	err := service.Reserve(ctx, uuid.New(), -1)
	require.Error(t, err)
	var exceeded *quota.ExceededError
	assert.False(t, errors.As(err, &exceeded))
}

func TestReconcile(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	db := testdb.New()
	tenant := uuid.New()
	service := newService(t, db, 100*gigabyte)

	for i, size := range []int64{10 * gigabyte, 20 * gigabyte} {
		_, err := db.Assets().Create(ctx, &assets.Asset{
			ID:        uuid.New(),
			TenantID:  tenant,
			Status:    assets.StatusReady,
			SizeBytes: size,
			Filename:  []string{"one.mp4", "two.mp4"}[i],
		})
		require.NoError(t, err)
	}

	// drift the counter well past the threshold
	require.NoError(t, db.Quota().SetUsedBytes(ctx, tenant, 50*gigabyte))

	usage, err := service.Reconcile(ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, 30*gigabyte, usage.UsedBytes)

	used, err := db.Quota().UsedBytes(ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, 30*gigabyte, used)
}
