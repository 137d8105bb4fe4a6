// Copyright (C) 2025 Frameloop, Inc.
// See LICENSE for copying information.

package assets

import (
	"context"

	"github.com/google/uuid"
)

// DB stores assets. Deletion methods are transactional: a single commit
// covers dependent collaboration rows, the quota release, the stack prune
// and the deleted-at flag, so a crash can never decrement the counter
// without removing the asset or vice versa.
//
// architecture: Database
type DB interface {
	// Create inserts a new asset record.
	Create(ctx context.Context, asset *Asset) (*Asset, error)

	// Get returns an asset by id; ErrNotFound when missing.
	Get(ctx context.Context, id uuid.UUID) (*Asset, error)

	// GetByExternalID returns the asset with the given remote processing
	// id; ErrNotFound when missing.
	GetByExternalID(ctx context.Context, externalID string) (*Asset, error)

	// ListByTenant returns all non-deleted assets for a tenant.
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*Asset, error)

	// SetExternalID records the remote encoder's processing id and moves
	// the asset to PROCESSING.
	SetExternalID(ctx context.Context, id uuid.UUID, externalID string) error

	// UpdateStatus applies a callback status transition idempotently:
	// applying the current terminal status again is a no-op, and terminal
	// states accept no further transitions. Derived URLs are only written
	// together with StatusReady.
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, playbackURL, thumbnailURL string) error

	// SetArchived sets or clears archived-at for the given assets; quota is
	// unaffected.
	SetArchived(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID, archived bool) error

	// DeleteMany sets deleted-at on the given assets and, in the same
	// transaction, removes dependent collaboration rows, releases the
	// assets' bytes and prunes the tenant's stacks against the remaining
	// live set. Already-deleted assets are skipped.
	DeleteMany(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) error

	// Tombstone force-fails an asset from any state: FAILED, deleted-at
	// set, derived URLs cleared, plus the same transactional cleanup as
	// DeleteMany. Irreversible.
	Tombstone(ctx context.Context, id uuid.UUID) error
}
