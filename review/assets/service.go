// Copyright (C) 2025 Frameloop, Inc.
// See LICENSE for copying information.

package assets

import (
	"context"

	"github.com/google/uuid"
	"github.com/spacemonkeygo/monkit/v3"
	"go.uber.org/zap"

	"frameloop.io/frameloop/objectstore"
	"frameloop.io/frameloop/review/cleanup"
	"frameloop.io/frameloop/review/versions"
	"frameloop.io/frameloop/transcode"
)

var mon = monkit.Package()

// Service performs bulk asset mutations. External cleanup is best-effort
// and happens before the authoritative local transition: a crash mid-bulk
// may orphan remote resources, but local state never disagrees with "this
// asset is gone".
//
// architecture: Service
type Service struct {
	log        *zap.Logger
	db         DB
	stacks     *versions.Service
	transcoder transcode.Client
	store      objectstore.Store
}

// NewService creates a new asset service.
func NewService(log *zap.Logger, db DB, stacks *versions.Service, transcoder transcode.Client, store objectstore.Store) *Service {
	return &Service{
		log:        log,
		db:         db,
		stacks:     stacks,
		transcoder: transcoder,
		store:      store,
	}
}

// Archive sets archived-at on the given assets. Quota is unaffected, but
// archived assets vanish from active stacks, so the tenant's stacks are
// re-pruned with the active-view policy.
func (service *Service) Archive(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (err error) {
	defer mon.Task()(&ctx)(&err)

	if err := service.db.SetArchived(ctx, tenantID, ids, true); err != nil {
		return Error.Wrap(err)
	}
	return Error.Wrap(service.stacks.PruneActive(ctx, tenantID))
}

// Restore clears archived-at on the given assets, making them groupable
// again.
func (service *Service) Restore(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (err error) {
	defer mon.Task()(&ctx)(&err)
	return Error.Wrap(service.db.SetArchived(ctx, tenantID, ids, false))
}

// Delete permanently deletes the given assets. Remote encoder assets and
// stored objects are removed best-effort first; the authoritative local
// transition then happens in one transaction covering dependent rows, the
// quota release and the stack prune.
func (service *Service) Delete(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (err error) {
	defer mon.Task()(&ctx)(&err)

	for _, id := range ids {
		asset, err := service.db.Get(ctx, id)
		if err != nil {
			if ErrNotFound.Has(err) {
				continue
			}
			return Error.Wrap(err)
		}
		if asset.TenantID != tenantID || asset.Deleted() {
			continue
		}
		service.cleanupExternal(ctx, asset)
	}

	return Error.Wrap(service.db.DeleteMany(ctx, tenantID, ids))
}

// cleanupExternal removes the asset's remote resources, logging and
// swallowing failures.
func (service *Service) cleanupExternal(ctx context.Context, asset *Asset) {
	steps := make([]cleanup.Step, 0, 2)
	if asset.ExternalID != "" {
		externalID := asset.ExternalID
		steps = append(steps, cleanup.Step{
			Name: "transcoder delete",
			Run: func(ctx context.Context) error {
				return service.transcoder.DeleteAsset(ctx, externalID)
			},
		})
	}
	if asset.StorageKey != "" {
		key := asset.StorageKey
		steps = append(steps, cleanup.Step{
			Name: "object delete",
			Run: func(ctx context.Context) error {
				return service.store.DeleteObject(ctx, key)
			},
		})
	}
	cleanup.Run(ctx, service.log.With(zap.Stringer("asset", asset.ID)), steps...)
}

// infoSource adapts DB to the stack mutator's asset lookup.
type infoSource struct {
	db DB
}

// NewInfoSource exposes the asset table as a versions.InfoSource. Deleted
// assets are absent, so both pruning policies see them as disallowed.
func NewInfoSource(db DB) versions.InfoSource {
	return &infoSource{db: db}
}

// Infos implements versions.InfoSource.
func (source *infoSource) Infos(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]versions.AssetInfo, error) {
	list, err := source.db.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	infos := make(map[uuid.UUID]versions.AssetInfo, len(list))
	for _, asset := range list {
		infos[asset.ID] = versions.AssetInfo{
			Ready:    asset.Status == StatusReady,
			Archived: asset.Archived(),
			Deleted:  asset.Deleted(),
		}
	}
	return infos, nil
}
