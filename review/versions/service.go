// Copyright (C) 2025 Frameloop, Inc.
// See LICENSE for copying information.

package versions

import (
	"context"

	"github.com/google/uuid"
	"github.com/spacemonkeygo/monkit/v3"
	"go.uber.org/zap"
)

var mon = monkit.Package()

// DB persists one stacks map and one flat grid order per tenant.
//
// architecture: Database
type DB interface {
	// Get returns the stacks map and grid order for a tenant. Tenants
	// without a persisted row get an empty map and nil order.
	Get(ctx context.Context, tenantID uuid.UUID) (Stacks, []uuid.UUID, error)
	// Set replaces the stacks map and grid order for a tenant.
	Set(ctx context.Context, tenantID uuid.UUID, stacks Stacks, gridOrder []uuid.UUID) error
}

// InfoSource resolves the asset states the mutator validates against.
type InfoSource interface {
	Infos(ctx context.Context, tenantID uuid.UUID) (map[uuid.UUID]AssetInfo, error)
}

// Service applies stack mutations against persisted state. Mutations are
// last-writer-wins; two collaborators racing a reorder is an accepted
// limitation and no conflict detection happens here.
//
// architecture: Service
type Service struct {
	log    *zap.Logger
	db     DB
	assets InfoSource
}

// NewService creates a new stack service.
func NewService(log *zap.Logger, db DB, assets InfoSource) *Service {
	return &Service{
		log:    log,
		db:     db,
		assets: assets,
	}
}

// lookup builds a Lookup over the tenant's current assets.
func (service *Service) lookup(ctx context.Context, tenantID uuid.UUID) (Lookup, error) {
	infos, err := service.assets.Infos(ctx, tenantID)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return func(id uuid.UUID) (AssetInfo, bool) {
		info, ok := infos[id]
		return info, ok
	}, nil
}

// CreateOrReplaceStack groups orderedIDs into a stack and persists the
// result. Invalid input is a no-op returning applied=false, not an error.
func (service *Service) CreateOrReplaceStack(ctx context.Context, tenantID uuid.UUID, orderedIDs []uuid.UUID) (applied bool, err error) {
	defer mon.Task()(&ctx)(&err)

	lookup, err := service.lookup(ctx, tenantID)
	if err != nil {
		return false, err
	}
	stacks, order, err := service.db.Get(ctx, tenantID)
	if err != nil {
		return false, Error.Wrap(err)
	}
	updated, ok := CreateOrReplace(orderedIDs, lookup, stacks)
	if !ok {
		return false, nil
	}
	return true, Error.Wrap(service.db.Set(ctx, tenantID, updated, order))
}

// MergeOnDrop merges the stack holding sourceID into the stack holding
// targetID, target first, and persists the result.
func (service *Service) MergeOnDrop(ctx context.Context, tenantID, sourceID, targetID uuid.UUID) (applied bool, err error) {
	defer mon.Task()(&ctx)(&err)

	lookup, err := service.lookup(ctx, tenantID)
	if err != nil {
		return false, err
	}
	stacks, order, err := service.db.Get(ctx, tenantID)
	if err != nil {
		return false, Error.Wrap(err)
	}
	merged, ok := MergeOnDrop(sourceID, targetID, stacks, lookup)
	if !ok {
		return false, nil
	}
	updated, ok := CreateOrReplace(merged, lookup, stacks)
	if !ok {
		return false, nil
	}
	return true, Error.Wrap(service.db.Set(ctx, tenantID, updated, order))
}

// Unstack dissolves the stack keyed by parentID, reinserting its members
// into the grid order right after the parent's prior position.
func (service *Service) Unstack(ctx context.Context, tenantID, parentID uuid.UUID) (applied bool, err error) {
	defer mon.Task()(&ctx)(&err)

	stacks, order, err := service.db.Get(ctx, tenantID)
	if err != nil {
		return false, Error.Wrap(err)
	}
	updated, newOrder, ok := Unstack(parentID, stacks, order)
	if !ok {
		return false, nil
	}
	return true, Error.Wrap(service.db.Set(ctx, tenantID, updated, newOrder))
}

// PruneActive re-normalizes the tenant's stacks against the active view:
// archived and deleted assets both fall out of their stacks.
func (service *Service) PruneActive(ctx context.Context, tenantID uuid.UUID) (err error) {
	defer mon.Task()(&ctx)(&err)
	return service.prune(ctx, tenantID, ActiveSet)
}

// PruneLive re-normalizes the tenant's stacks against the live set: only
// hard-deleted assets fall out, archived members stay.
func (service *Service) PruneLive(ctx context.Context, tenantID uuid.UUID) (err error) {
	defer mon.Task()(&ctx)(&err)
	return service.prune(ctx, tenantID, LiveSet)
}

func (service *Service) prune(ctx context.Context, tenantID uuid.UUID, policy func(map[uuid.UUID]AssetInfo) map[uuid.UUID]bool) error {
	infos, err := service.assets.Infos(ctx, tenantID)
	if err != nil {
		return Error.Wrap(err)
	}
	stacks, order, err := service.db.Get(ctx, tenantID)
	if err != nil {
		return Error.Wrap(err)
	}
	normalized := Normalize(stacks, policy(infos))
	if len(normalized) == len(stacks) {
		same := true
		for parentID := range stacks {
			if len(normalized[parentID]) != len(stacks[parentID]) {
				same = false
				break
			}
		}
		if same {
			return nil
		}
	}
	return Error.Wrap(service.db.Set(ctx, tenantID, normalized, order))
}
