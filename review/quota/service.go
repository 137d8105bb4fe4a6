// Copyright (C) 2025 Frameloop, Inc.
// See LICENSE for copying information.

// Package quota enforces the hard per-tenant storage budget. The ledger
// tracks one scalar per tenant, bytes used, and deliberately favors
// availability over strict consistency: it is an optimization over a
// derivable quantity, corrected by reconciliation rather than distributed
// transactions.
package quota

import (
	"context"
	"math"

	"github.com/google/uuid"
	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
)

var mon = monkit.Package()

// Error is the default quota errs class.
var Error = errs.Class("quota")

// driftThreshold is the relative counter drift beyond which reconciliation
// alerts the operator.
const driftThreshold = 0.02

// Config contains configurable values for the quota ledger.
type Config struct {
	LimitBytes int64 `help:"fixed per-tenant storage limit in bytes" default:"107374182400"`
}

// Service is the quota ledger: reserve, release, reconcile.
//
// architecture: Service
type Service struct {
	log   *zap.Logger
	db    DB
	limit int64
}

// NewService creates a new quota service.
func NewService(log *zap.Logger, db DB, config Config) *Service {
	return &Service{
		log:   log,
		db:    db,
		limit: config.LimitBytes,
	}
}

// LimitBytes returns the fixed per-tenant limit.
func (service *Service) LimitBytes() int64 { return service.limit }

// Reserve claims bytes against the tenant's budget. On refusal it returns a
// *ExceededError carrying the current used/limit/remaining numbers.
func (service *Service) Reserve(ctx context.Context, tenantID uuid.UUID, bytes int64) (err error) {
	defer mon.Task()(&ctx)(&err)

	if bytes < 0 {
		return Error.New("negative reservation: %d", bytes)
	}
	accepted, err := service.db.Reserve(ctx, tenantID, bytes, service.limit)
	if err != nil {
		return Error.Wrap(err)
	}
	if accepted {
		return nil
	}

	usage, err := service.Usage(ctx, tenantID)
	if err != nil {
		return Error.Wrap(err)
	}
	return &ExceededError{
		RequestedBytes: bytes,
		UsedBytes:      usage.UsedBytes,
		LimitBytes:     usage.LimitBytes,
		RemainingBytes: usage.Remaining(),
	}
}

// Release returns bytes to the tenant's budget, floored at zero. Used on
// delete, reservation rollback and tombstoning.
func (service *Service) Release(ctx context.Context, tenantID uuid.UUID, bytes int64) (err error) {
	defer mon.Task()(&ctx)(&err)
	return Error.Wrap(service.db.Release(ctx, tenantID, bytes))
}

// Usage returns the tenant's current counter snapshot.
func (service *Service) Usage(ctx context.Context, tenantID uuid.UUID) (_ Usage, err error) {
	defer mon.Task()(&ctx)(&err)

	used, err := service.db.UsedBytes(ctx, tenantID)
	if err != nil {
		return Usage{}, Error.Wrap(err)
	}
	return Usage{
		TenantID:   tenantID,
		UsedBytes:  used,
		LimitBytes: service.limit,
	}, nil
}

// ExceedsStorage reports whether the tenant is currently over budget. The
// completion guard re-checks this when an asset becomes ready, since other
// uploads may have pushed the tenant past the cap in the meantime.
func (service *Service) ExceedsStorage(ctx context.Context, tenantID uuid.UUID) (_ bool, _ Usage, err error) {
	defer mon.Task()(&ctx)(&err)

	usage, err := service.Usage(ctx, tenantID)
	if err != nil {
		return false, Usage{}, err
	}
	return usage.Exceeded(), usage, nil
}

// Reconcile recomputes the counter from the sum of the tenant's non-deleted
// asset sizes and replaces it. Relative drift beyond driftThreshold is
// surfaced to the operator via the log.
func (service *Service) Reconcile(ctx context.Context, tenantID uuid.UUID) (_ Usage, err error) {
	defer mon.Task()(&ctx)(&err)

	used, err := service.db.UsedBytes(ctx, tenantID)
	if err != nil {
		return Usage{}, Error.Wrap(err)
	}
	total, err := service.db.TotalLiveBytes(ctx, tenantID)
	if err != nil {
		return Usage{}, Error.Wrap(err)
	}

	if used > 0 {
		drift := math.Abs(float64(used-total)) / float64(used)
		if drift > driftThreshold {
			service.log.Error("quota counter drift beyond threshold",
				zap.Stringer("tenant", tenantID),
				zap.Int64("counter", used),
				zap.Int64("recomputed", total),
				zap.Float64("drift", drift))
		}
	}

	if err := service.db.SetUsedBytes(ctx, tenantID, total); err != nil {
		return Usage{}, Error.Wrap(err)
	}
	return Usage{
		TenantID:   tenantID,
		UsedBytes:  total,
		LimitBytes: service.limit,
	}, nil
}
