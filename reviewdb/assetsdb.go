// Copyright (C) 2025 Frameloop, Inc.
// See LICENSE for copying information.

package reviewdb

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/errs"

	"frameloop.io/frameloop/review/assets"
	"frameloop.io/frameloop/review/versions"
)

// assetsDB implements assets.DB on the assets table.
type assetsDB struct {
	db *DB
}

const assetColumns = `id, tenant_id, status, size_bytes, filename, storage_key,
	external_id, playback_url, thumbnail_url, created_at, archived_at, deleted_at`

// Create inserts a new asset record.
func (a *assetsDB) Create(ctx context.Context, asset *assets.Asset) (_ *assets.Asset, err error) {
	defer mon.Task()(&ctx)(&err)

	created := *asset
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}
	_, err = a.db.db.ExecContext(ctx, a.db.Rebind(`
		INSERT INTO assets ( id, tenant_id, status, size_bytes, filename,
			storage_key, external_id, playback_url, thumbnail_url, created_at )
		VALUES ( ?, ?, ?, ?, ?, ?, ?, ?, ?, ? )`),
		created.ID.String(), created.TenantID.String(), string(created.Status),
		created.SizeBytes, created.Filename, created.StorageKey,
		created.ExternalID, created.PlaybackURL, created.ThumbnailURL,
		created.CreatedAt)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return &created, nil
}

// Get returns an asset by id.
func (a *assetsDB) Get(ctx context.Context, id uuid.UUID) (_ *assets.Asset, err error) {
	defer mon.Task()(&ctx)(&err)

	row := a.db.db.QueryRowContext(ctx, a.db.Rebind(`
		SELECT `+assetColumns+` FROM assets WHERE id = ?`),
		id.String())
	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, assets.ErrNotFound.New("%s", id)
	}
	return asset, Error.Wrap(err)
}

// GetByExternalID returns the asset with the given remote processing id.
func (a *assetsDB) GetByExternalID(ctx context.Context, externalID string) (_ *assets.Asset, err error) {
	defer mon.Task()(&ctx)(&err)

	if externalID == "" {
		return nil, assets.ErrNotFound.New("empty external id")
	}
	row := a.db.db.QueryRowContext(ctx, a.db.Rebind(`
		SELECT `+assetColumns+` FROM assets WHERE external_id = ?`),
		externalID)
	asset, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, assets.ErrNotFound.New("external id %s", externalID)
	}
	return asset, Error.Wrap(err)
}

// ListByTenant returns all non-deleted assets for a tenant.
func (a *assetsDB) ListByTenant(ctx context.Context, tenantID uuid.UUID) (_ []*assets.Asset, err error) {
	defer mon.Task()(&ctx)(&err)

	rows, err := a.db.db.QueryContext(ctx, a.db.Rebind(`
		SELECT `+assetColumns+` FROM assets
		WHERE tenant_id = ? AND deleted_at IS NULL
		ORDER BY created_at`),
		tenantID.String())
	if err != nil {
		return nil, Error.Wrap(err)
	}
	defer func() { err = errs.Combine(err, rows.Close()) }()

	var list []*assets.Asset
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, Error.Wrap(err)
		}
		list = append(list, asset)
	}
	return list, Error.Wrap(rows.Err())
}

// SetExternalID records the encoder's processing id and moves the asset to
// PROCESSING.
func (a *assetsDB) SetExternalID(ctx context.Context, id uuid.UUID, externalID string) (err error) {
	defer mon.Task()(&ctx)(&err)

	_, err = a.db.db.ExecContext(ctx, a.db.Rebind(`
		UPDATE assets SET external_id = ?, status = ?
		WHERE id = ? AND deleted_at IS NULL`),
		externalID, string(assets.StatusProcessing), id.String())
	return Error.Wrap(err)
}

// UpdateStatus applies a callback transition idempotently. Terminal states
// accept no further transitions, so repeated callbacks are no-ops.
func (a *assetsDB) UpdateStatus(ctx context.Context, id uuid.UUID, status assets.Status, playbackURL, thumbnailURL string) (err error) {
	defer mon.Task()(&ctx)(&err)

	_, err = a.db.db.ExecContext(ctx, a.db.Rebind(`
		UPDATE assets SET status = ?, playback_url = ?, thumbnail_url = ?
		WHERE id = ? AND deleted_at IS NULL AND status NOT IN ( ?, ? )`),
		string(status), playbackURL, thumbnailURL, id.String(),
		string(assets.StatusReady), string(assets.StatusFailed))
	return Error.Wrap(err)
}

// SetArchived sets or clears archived-at for the given assets.
func (a *assetsDB) SetArchived(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID, archived bool) (err error) {
	defer mon.Task()(&ctx)(&err)

	if len(ids) == 0 {
		return nil
	}
	var archivedAt interface{}
	if archived {
		archivedAt = time.Now().UTC()
	}
	args := []interface{}{archivedAt, tenantID.String()}
	for _, id := range ids {
		args = append(args, id.String())
	}
	_, err = a.db.db.ExecContext(ctx, a.db.Rebind(`
		UPDATE assets SET archived_at = ?
		WHERE tenant_id = ? AND deleted_at IS NULL AND id IN `+placeholders(len(ids))),
		args...)
	return Error.Wrap(err)
}

// DeleteMany sets deleted-at on the given assets and, in one transaction,
// scrubs dependent collaboration rows, releases their bytes and prunes the
// tenant's stacks against the remaining live set.
func (a *assetsDB) DeleteMany(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) (err error) {
	defer mon.Task()(&ctx)(&err)

	if len(ids) == 0 {
		return nil
	}
	return a.db.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var released int64
		for _, id := range ids {
			size, err := deleteAssetTx(ctx, a.db, tx, tenantID, id, false)
			if err != nil {
				return err
			}
			released += size
		}
		if released > 0 {
			if err := releaseTx(ctx, a.db, tx, tenantID, released); err != nil {
				return err
			}
		}
		return pruneStacksTx(ctx, a.db, tx, tenantID)
	})
}

// Tombstone force-fails an asset from any state with the full deletion
// cleanup. Already-deleted assets are a no-op.
func (a *assetsDB) Tombstone(ctx context.Context, id uuid.UUID) (err error) {
	defer mon.Task()(&ctx)(&err)

	var tenantText string
	err = a.db.db.QueryRowContext(ctx, a.db.Rebind(`
		SELECT tenant_id FROM assets WHERE id = ? AND deleted_at IS NULL`),
		id.String()).Scan(&tenantText)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return Error.Wrap(err)
	}
	tenantID, err := uuid.Parse(tenantText)
	if err != nil {
		return Error.Wrap(err)
	}

	return a.db.WithTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		size, err := deleteAssetTx(ctx, a.db, tx, tenantID, id, true)
		if err != nil {
			return err
		}
		if size > 0 {
			if err := releaseTx(ctx, a.db, tx, tenantID, size); err != nil {
				return err
			}
		}
		return pruneStacksTx(ctx, a.db, tx, tenantID)
	})
}

// deleteAssetTx marks one asset deleted inside tx and removes its
// collaboration rows. Returns the released byte size, zero when the asset
// was already deleted or unknown.
func deleteAssetTx(ctx context.Context, db *DB, tx *sql.Tx, tenantID, id uuid.UUID, tombstone bool) (int64, error) {
	var size int64
	err := tx.QueryRowContext(ctx, db.Rebind(`
		SELECT size_bytes FROM assets
		WHERE id = ? AND tenant_id = ? AND deleted_at IS NULL`),
		id.String(), tenantID.String()).Scan(&size)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, Error.Wrap(err)
	}

	for _, table := range []string{"comments", "share_links"} {
		if _, err := tx.ExecContext(ctx, db.Rebind(`
			DELETE FROM `+table+` WHERE asset_id = ?`), id.String()); err != nil {
			return 0, Error.Wrap(err)
		}
	}

	now := time.Now().UTC()
	if tombstone {
		_, err = tx.ExecContext(ctx, db.Rebind(`
			UPDATE assets SET deleted_at = ?, status = ?, playback_url = '', thumbnail_url = ''
			WHERE id = ?`),
			now, string(assets.StatusFailed), id.String())
	} else {
		_, err = tx.ExecContext(ctx, db.Rebind(`
			UPDATE assets SET deleted_at = ? WHERE id = ?`),
			now, id.String())
	}
	if err != nil {
		return 0, Error.Wrap(err)
	}
	return size, nil
}

// pruneStacksTx re-normalizes the tenant's persisted stacks against the
// assets still live after the deletes in tx. Deletion-triggered pruning
// keeps archived members.
func pruneStacksTx(ctx context.Context, db *DB, tx *sql.Tx, tenantID uuid.UUID) error {
	var payload string
	err := tx.QueryRowContext(ctx, db.Rebind(`
		SELECT payload FROM stacks WHERE tenant_id = ?`),
		tenantID.String()).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return Error.Wrap(err)
	}

	rows, err := tx.QueryContext(ctx, db.Rebind(`
		SELECT id FROM assets WHERE tenant_id = ? AND deleted_at IS NULL`),
		tenantID.String())
	if err != nil {
		return Error.Wrap(err)
	}
	allowed := make(map[uuid.UUID]bool)
	for rows.Next() {
		var idText string
		if err := rows.Scan(&idText); err != nil {
			return Error.Wrap(errs.Combine(err, rows.Close()))
		}
		id, err := uuid.Parse(idText)
		if err != nil {
			return Error.Wrap(errs.Combine(err, rows.Close()))
		}
		allowed[id] = true
	}
	if err := errs.Combine(rows.Err(), rows.Close()); err != nil {
		return Error.Wrap(err)
	}

	normalized := versions.Normalize(versions.ParseStacks([]byte(payload)), allowed)
	encoded, err := normalized.Encode()
	if err != nil {
		return Error.Wrap(err)
	}
	_, err = tx.ExecContext(ctx, db.Rebind(`
		UPDATE stacks SET payload = ? WHERE tenant_id = ?`),
		string(encoded), tenantID.String())
	return Error.Wrap(err)
}

// placeholders renders "( ?, ?, ... )" for IN clauses.
func placeholders(n int) string {
	return "( ?" + strings.Repeat(", ?", n-1) + " )"
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAsset(row scanner) (*assets.Asset, error) {
	var asset assets.Asset
	var id, tenantID, status string
	var archivedAt, deletedAt sql.NullTime
	err := row.Scan(&id, &tenantID, &status, &asset.SizeBytes, &asset.Filename,
		&asset.StorageKey, &asset.ExternalID, &asset.PlaybackURL,
		&asset.ThumbnailURL, &asset.CreatedAt, &archivedAt, &deletedAt)
	if err != nil {
		return nil, err
	}
	if asset.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if asset.TenantID, err = uuid.Parse(tenantID); err != nil {
		return nil, err
	}
	asset.Status = assets.Status(status)
	if archivedAt.Valid {
		at := archivedAt.Time
		asset.ArchivedAt = &at
	}
	if deletedAt.Valid {
		at := deletedAt.Time
		asset.DeletedAt = &at
	}
	return &asset, nil
}
