// Copyright (C) 2025 Frameloop, Inc.
// See LICENSE for copying information.

package versions_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"frameloop.io/frameloop/internal/testcontext"
	"frameloop.io/frameloop/review/versions"
)

type memoryStacksDB struct {
	stacks versions.Stacks
	order  []uuid.UUID
	sets   int
}

func (db *memoryStacksDB) Get(ctx context.Context, tenantID uuid.UUID) (versions.Stacks, []uuid.UUID, error) {
	if db.stacks == nil {
		return versions.Stacks{}, nil, nil
	}
	return db.stacks.Copy(), append([]uuid.UUID(nil), db.order...), nil
}

func (db *memoryStacksDB) Set(ctx context.Context, tenantID uuid.UUID, stacks versions.Stacks, gridOrder []uuid.UUID) error {
	db.stacks = stacks.Copy()
	db.order = append([]uuid.UUID(nil), gridOrder...)
	db.sets++
	return nil
}

type memoryInfoSource map[uuid.UUID]versions.AssetInfo

func (source memoryInfoSource) Infos(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]versions.AssetInfo, error) {
	return source, nil
}

func TestServiceStackLifecycle(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	tenant := uuid.New()
	a, b, c, d := testID(1), testID(2), testID(3), testID(4)

	db := &memoryStacksDB{order: []uuid.UUID{a, b, c, d}}
	infos := memoryInfoSource{
		a: {Ready: true},
		b: {Ready: true},
		c: {Ready: true},
		d: {Ready: true},
	}
	service := versions.NewService(zaptest.NewLogger(t), db, infos)

	applied, err := service.CreateOrReplaceStack(ctx, tenant, []uuid.UUID{a, b})
	require.NoError(t, err)
	require.True(t, applied)

	applied, err = service.CreateOrReplaceStack(ctx, tenant, []uuid.UUID{c, d})
	require.NoError(t, err)
	require.True(t, applied)

	applied, err = service.MergeOnDrop(ctx, tenant, c, a)
	require.NoError(t, err)
	require.True(t, applied)
	assert.Equal(t, versions.Stacks{a: {a, b, c, d}}, db.stacks)

	applied, err = service.Unstack(ctx, tenant, a)
	require.NoError(t, err)
	require.True(t, applied)
	assert.Equal(t, versions.Stacks{}, db.stacks)
	assert.Equal(t, []uuid.UUID{a, b, c, d}, db.order)
}

func TestServiceInvalidInputIsNoop(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	tenant := uuid.New()
	a := testID(1)

	db := &memoryStacksDB{}
	service := versions.NewService(zaptest.NewLogger(t), db, memoryInfoSource{a: {Ready: true}})

	// unknown member id: no error, no write
	applied, err := service.CreateOrReplaceStack(ctx, tenant, []uuid.UUID{a, testID(9)})
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Zero(t, db.sets)

	applied, err = service.Unstack(ctx, tenant, a)
	require.NoError(t, err)
	assert.False(t, applied)
	assert.Zero(t, db.sets)
}

func TestServicePrunePolicies(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	tenant := uuid.New()
	a, b, c := testID(1), testID(2), testID(3)

	db := &memoryStacksDB{stacks: versions.Stacks{a: {a, b, c}}}
	infos := memoryInfoSource{
		a: {Ready: true},
		b: {Ready: true, Archived: true},
		c: {Ready: true},
	}
	service := versions.NewService(zaptest.NewLogger(t), db, infos)

	// the live set keeps archived members in place
	require.NoError(t, service.PruneLive(ctx, tenant))
	assert.Equal(t, versions.Stacks{a: {a, b, c}}, db.stacks)
	assert.Zero(t, db.sets)

	// the active view drops them
	require.NoError(t, service.PruneActive(ctx, tenant))
	assert.Equal(t, versions.Stacks{a: {a, c}}, db.stacks)
}
