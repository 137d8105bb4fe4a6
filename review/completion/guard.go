// Copyright (C) 2025 Frameloop, Inc.
// See LICENSE for copying information.

// Package completion handles the remote encoder's asynchronous callbacks.
// Callbacks may be delivered more than once, so every path is idempotent.
// The guard enforces the hard guarantee that a playable asset implies the
// tenant was within budget at the moment it became ready: an asset whose
// tenant went over budget while it processed is tombstoned instead of
// finalized.
package completion

import (
	"context"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"frameloop.io/frameloop/objectstore"
	"frameloop.io/frameloop/review/assets"
	"frameloop.io/frameloop/review/cleanup"
	"frameloop.io/frameloop/review/quota"
	"frameloop.io/frameloop/transcode"
)

var mon = monkit.Package()

// Error is the default completion errs class.
var Error = errs.Class("completion")

// Guard applies processing-completion callbacks.
//
// architecture: Service
type Guard struct {
	log        *zap.Logger
	quota      *quota.Service
	db         assets.DB
	transcoder transcode.Client
	store      objectstore.Store
}

// NewGuard creates a new completion guard.
func NewGuard(log *zap.Logger, quotas *quota.Service, db assets.DB, transcoder transcode.Client, store objectstore.Store) *Guard {
	return &Guard{
		log:        log,
		quota:      quotas,
		db:         db,
		transcoder: transcoder,
		store:      store,
	}
}

// HandleEvent applies one verified callback. Unknown and already-deleted
// assets are no-ops.
func (guard *Guard) HandleEvent(ctx context.Context, event transcode.Event) (err error) {
	defer mon.Task()(&ctx)(&err)

	asset, err := guard.db.GetByExternalID(ctx, event.ExternalID)
	if err != nil {
		if assets.ErrNotFound.Has(err) {
			guard.log.Debug("callback for unknown external id",
				zap.String("external id", event.ExternalID))
			return nil
		}
		return Error.Wrap(err)
	}
	if asset.Deleted() {
		return nil
	}

	switch event.Type {
	case transcode.EventAssetPreparing:
		return Error.Wrap(guard.db.UpdateStatus(ctx, asset.ID, assets.StatusProcessing, "", ""))

	case transcode.EventAssetErrored:
		return Error.Wrap(guard.db.UpdateStatus(ctx, asset.ID, assets.StatusFailed, "", ""))

	case transcode.EventAssetReady:
		over, usage, err := guard.quota.ExceedsStorage(ctx, asset.TenantID)
		if err != nil {
			return Error.Wrap(err)
		}
		if over {
			guard.log.Warn("asset became ready over budget, tombstoning",
				zap.Stringer("asset", asset.ID),
				zap.Stringer("tenant", asset.TenantID),
				zap.Int64("used bytes", usage.UsedBytes),
				zap.Int64("limit bytes", usage.LimitBytes))
			return guard.tombstone(ctx, asset)
		}
		return Error.Wrap(guard.db.UpdateStatus(ctx, asset.ID, assets.StatusReady,
			transcode.PlaybackURL(event.PlaybackID),
			transcode.ThumbnailURL(event.PlaybackID)))

	default:
		guard.log.Debug("ignoring callback type", zap.String("type", event.Type))
		return nil
	}
}

// tombstone irreversibly fails an over-budget asset: remote resources are
// removed best-effort, then one transaction scrubs dependent collaboration
// records, releases the reservation and marks the asset FAILED and deleted
// with derived URLs cleared. No special-casing protects assets that are
// stack members or share-link targets.
func (guard *Guard) tombstone(ctx context.Context, asset *assets.Asset) error {
	log := guard.log.With(zap.Stringer("asset", asset.ID))

	steps := make([]cleanup.Step, 0, 2)
	if asset.ExternalID != "" {
		externalID := asset.ExternalID
		steps = append(steps, cleanup.Step{
			Name: "transcoder delete",
			Run: func(ctx context.Context) error {
				return guard.transcoder.DeleteAsset(ctx, externalID)
			},
		})
	}
	if asset.StorageKey != "" {
		key := asset.StorageKey
		steps = append(steps, cleanup.Step{
			Name: "object delete",
			Run: func(ctx context.Context) error {
				return guard.store.DeleteObject(ctx, key)
			},
		})
	}
	cleanup.Run(ctx, log, steps...)

	return Error.Wrap(guard.db.Tombstone(ctx, asset.ID))
}
