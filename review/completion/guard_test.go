// Copyright (C) 2025 Frameloop, Inc.
// See LICENSE for copying information.

package completion_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"frameloop.io/frameloop/internal/testcontext"
	"frameloop.io/frameloop/objectstore/teststore"
	"frameloop.io/frameloop/review/assets"
	"frameloop.io/frameloop/review/completion"
	"frameloop.io/frameloop/review/quota"
	"frameloop.io/frameloop/review/versions"
	"frameloop.io/frameloop/reviewdb/testdb"
	"frameloop.io/frameloop/transcode"
)

const gigabyte = int64(1) << 30

type fakeTranscoder struct {
	deleted []string
}

func (f *fakeTranscoder) CreateAsset(ctx context.Context, sourceURL string) (string, error) {
	return "ext-" + uuid.NewString(), nil
}

func (f *fakeTranscoder) DeleteAsset(ctx context.Context, externalID string) error {
	f.deleted = append(f.deleted, externalID)
	return nil
}

type fixture struct {
	db         *testdb.DB
	store      *teststore.Store
	transcoder *fakeTranscoder
	guard      *completion.Guard
}

func setup(t *testing.T, limit int64) *fixture {
	db := testdb.New()
	store := teststore.New()
	transcoder := &fakeTranscoder{}
	log := zaptest.NewLogger(t)
	quotas := quota.NewService(log, db.Quota(), quota.Config{LimitBytes: limit})
	return &fixture{
		db:         db,
		store:      store,
		transcoder: transcoder,
		guard:      completion.NewGuard(log, quotas, db.Assets(), transcoder, store),
	}
}

func (f *fixture) createProcessing(ctx context.Context, t *testing.T, tenant uuid.UUID, size int64) *assets.Asset {
	asset, err := f.db.Assets().Create(ctx, &assets.Asset{
		ID:         uuid.New(),
		TenantID:   tenant,
		Status:     assets.StatusProcessing,
		SizeBytes:  size,
		Filename:   "upload.mp4",
		StorageKey: "key-" + uuid.NewString(),
		ExternalID: "ext-" + uuid.NewString(),
	})
	require.NoError(t, err)

	used, err := f.db.Quota().UsedBytes(ctx, tenant)
	require.NoError(t, err)
	require.NoError(t, f.db.Quota().SetUsedBytes(ctx, tenant, used+size))
	return asset
}

func TestHandleEventUnknownExternalID(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	f := setup(t, 100*gigabyte)
	require.NoError(t, f.guard.HandleEvent(ctx, transcode.Event{
		Type:       transcode.EventAssetReady,
		ExternalID: "ext-unknown",
	}))
}

func TestHandleEventReady(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	f := setup(t, 100*gigabyte)
	tenant := uuid.New()
	asset := f.createProcessing(ctx, t, tenant, 10*gigabyte)

	event := transcode.Event{
		Type:       transcode.EventAssetReady,
		ExternalID: asset.ExternalID,
		PlaybackID: "play-123",
	}
	require.NoError(t, f.guard.HandleEvent(ctx, event))

	updated, err := f.db.Assets().Get(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, assets.StatusReady, updated.Status)
	assert.Equal(t, transcode.PlaybackURL("play-123"), updated.PlaybackURL)
	assert.Equal(t, transcode.ThumbnailURL("play-123"), updated.ThumbnailURL)

	// a duplicate delivery is a no-op
	require.NoError(t, f.guard.HandleEvent(ctx, event))
	again, err := f.db.Assets().Get(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, again)
}

func TestHandleEventErrored(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	f := setup(t, 100*gigabyte)
	asset := f.createProcessing(ctx, t, uuid.New(), gigabyte)

	require.NoError(t, f.guard.HandleEvent(ctx, transcode.Event{
		Type:       transcode.EventAssetErrored,
		ExternalID: asset.ExternalID,
	}))

	updated, err := f.db.Assets().Get(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, assets.StatusFailed, updated.Status)
	// a failed asset is kept, not tombstoned
	assert.Nil(t, updated.DeletedAt)
}

func TestHandleEventOverBudgetTombstones(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	f := setup(t, 100*gigabyte)
	tenant := uuid.New()

	// the asset reserved its bytes, then other uploads blew the budget
	asset := f.createProcessing(ctx, t, tenant, 10*gigabyte)
	require.NoError(t, f.db.Quota().SetUsedBytes(ctx, tenant, 120*gigabyte))

	// collaboration records and a stack reference the asset
	other := f.createProcessing(ctx, t, tenant, gigabyte)
	require.NoError(t, f.db.Collab().AddComment(ctx, asset.ID, "reviewer", "looks good"))
	require.NoError(t, f.db.Collab().AddShareLink(ctx, asset.ID, "tok-1"))
	require.NoError(t, f.db.Stacks().Set(ctx, tenant,
		versions.Stacks{asset.ID: {asset.ID, other.ID}}, nil))

	require.NoError(t, f.guard.HandleEvent(ctx, transcode.Event{
		Type:       transcode.EventAssetReady,
		ExternalID: asset.ExternalID,
		PlaybackID: "play-999",
	}))

	updated, err := f.db.Assets().Get(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, assets.StatusFailed, updated.Status)
	assert.NotNil(t, updated.DeletedAt)
	assert.Empty(t, updated.PlaybackURL)
	assert.Empty(t, updated.ThumbnailURL)

	// remote resources were removed best-effort
	assert.Equal(t, []string{asset.ExternalID}, f.transcoder.deleted)
	assert.Equal(t, []string{asset.StorageKey}, f.store.Deleted())

	// dependent records are gone and the stack was pruned
	count, err := f.db.Collab().CountByAsset(ctx, asset.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
	stacks, _, err := f.db.Stacks().Get(ctx, tenant)
	require.NoError(t, err)
	assert.Empty(t, stacks)

	// its reservation was released
	used, err := f.db.Quota().UsedBytes(ctx, tenant)
	require.NoError(t, err)
	assert.Equal(t, 121*gigabyte-10*gigabyte, used)

	// a duplicate delivery after deletion is a no-op
	require.NoError(t, f.guard.HandleEvent(ctx, transcode.Event{
		Type:       transcode.EventAssetReady,
		ExternalID: asset.ExternalID,
	}))
	assert.Len(t, f.transcoder.deleted, 1)
}

func TestHandleEventPreparing(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	f := setup(t, 100*gigabyte)
	asset, err := f.db.Assets().Create(ctx, &assets.Asset{
		ID:         uuid.New(),
		TenantID:   uuid.New(),
		Status:     assets.StatusUploaded,
		SizeBytes:  gigabyte,
		ExternalID: "ext-prep",
	})
	require.NoError(t, err)

	require.NoError(t, f.guard.HandleEvent(ctx, transcode.Event{
		Type:       transcode.EventAssetPreparing,
		ExternalID: asset.ExternalID,
	}))
	updated, err := f.db.Assets().Get(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, assets.StatusProcessing, updated.Status)
}
