// Copyright (C) 2025 Frameloop, Inc.
// See LICENSE for copying information.

package quota

import (
	"context"

	"github.com/google/uuid"
)

// DB is the datastore-backed per-tenant byte counter. The counter must live
// in the same transaction domain as the asset rows so deletion can release
// bytes atomically; it is never an in-process variable.
//
// architecture: Database
type DB interface {
	// Reserve atomically increments the tenant's counter by bytes only if
	// the result stays within limitBytes. It must be a single conditional
	// statement so two concurrent reservations can never both succeed past
	// the cap. accepted is false when the reservation was refused.
	Reserve(ctx context.Context, tenantID uuid.UUID, bytes, limitBytes int64) (accepted bool, err error)

	// Release unconditionally decrements the counter, floored at zero.
	Release(ctx context.Context, tenantID uuid.UUID, bytes int64) error

	// UsedBytes returns the tenant's current counter value. Tenants without
	// a row read as zero.
	UsedBytes(ctx context.Context, tenantID uuid.UUID) (int64, error)

	// SetUsedBytes replaces the counter, used by reconciliation.
	SetUsedBytes(ctx context.Context, tenantID uuid.UUID, usedBytes int64) error

	// TotalLiveBytes sums the byte size of every non-deleted asset for the
	// tenant, the ground truth the counter approximates.
	TotalLiveBytes(ctx context.Context, tenantID uuid.UUID) (int64, error)
}
