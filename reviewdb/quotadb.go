// Copyright (C) 2025 Frameloop, Inc.
// See LICENSE for copying information.

package reviewdb

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
)

// quotaDB implements quota.DB on the tenant_quotas table.
type quotaDB struct {
	db *DB
}

// Reserve is the one correctness-critical concurrency primitive: a single
// conditional UPDATE, never read-then-write, so two concurrent
// reservations can never both succeed past the cap.
func (q *quotaDB) Reserve(ctx context.Context, tenantID uuid.UUID, bytes, limitBytes int64) (accepted bool, err error) {
	defer mon.Task()(&ctx)(&err)

	_, err = q.db.db.ExecContext(ctx, q.db.Rebind(`
		INSERT INTO tenant_quotas ( tenant_id, used_bytes )
		VALUES ( ?, 0 )
		ON CONFLICT ( tenant_id ) DO NOTHING`),
		tenantID.String())
	if err != nil {
		return false, Error.Wrap(err)
	}

	result, err := q.db.db.ExecContext(ctx, q.db.Rebind(`
		UPDATE tenant_quotas
		SET used_bytes = used_bytes + ?
		WHERE tenant_id = ? AND used_bytes <= ? - ?`),
		bytes, tenantID.String(), limitBytes, bytes)
	if err != nil {
		return false, Error.Wrap(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, Error.Wrap(err)
	}
	return affected > 0, nil
}

// Release decrements the counter, floored at zero.
func (q *quotaDB) Release(ctx context.Context, tenantID uuid.UUID, bytes int64) (err error) {
	defer mon.Task()(&ctx)(&err)
	return Error.Wrap(releaseTx(ctx, q.db, q.db.db, tenantID, bytes))
}

// execer covers both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// releaseTx runs the floor-clamped decrement on any execer so deletion
// transactions can share it.
func releaseTx(ctx context.Context, db *DB, exec execer, tenantID uuid.UUID, bytes int64) error {
	_, err := exec.ExecContext(ctx, db.Rebind(`
		UPDATE tenant_quotas
		SET used_bytes = CASE WHEN used_bytes > ? THEN used_bytes - ? ELSE 0 END
		WHERE tenant_id = ?`),
		bytes, bytes, tenantID.String())
	return err
}

// UsedBytes reads the counter; missing rows read as zero.
func (q *quotaDB) UsedBytes(ctx context.Context, tenantID uuid.UUID) (_ int64, err error) {
	defer mon.Task()(&ctx)(&err)

	var used int64
	err = q.db.db.QueryRowContext(ctx, q.db.Rebind(`
		SELECT used_bytes FROM tenant_quotas WHERE tenant_id = ?`),
		tenantID.String()).Scan(&used)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, Error.Wrap(err)
	}
	return used, nil
}

// SetUsedBytes replaces the counter, used by reconciliation.
func (q *quotaDB) SetUsedBytes(ctx context.Context, tenantID uuid.UUID, usedBytes int64) (err error) {
	defer mon.Task()(&ctx)(&err)

	_, err = q.db.db.ExecContext(ctx, q.db.Rebind(`
		INSERT INTO tenant_quotas ( tenant_id, used_bytes )
		VALUES ( ?, ? )
		ON CONFLICT ( tenant_id ) DO UPDATE SET used_bytes = excluded.used_bytes`),
		tenantID.String(), usedBytes)
	return Error.Wrap(err)
}

// TotalLiveBytes sums the sizes of the tenant's non-deleted assets.
func (q *quotaDB) TotalLiveBytes(ctx context.Context, tenantID uuid.UUID) (_ int64, err error) {
	defer mon.Task()(&ctx)(&err)

	var total int64
	err = q.db.db.QueryRowContext(ctx, q.db.Rebind(`
		SELECT COALESCE(SUM(size_bytes), 0) FROM assets
		WHERE tenant_id = ? AND deleted_at IS NULL`),
		tenantID.String()).Scan(&total)
	if err != nil {
		return 0, Error.Wrap(err)
	}
	return total, nil
}
