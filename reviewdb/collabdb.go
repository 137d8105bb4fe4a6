// Copyright (C) 2025 Frameloop, Inc.
// See LICENSE for copying information.

package reviewdb

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// collabDB implements collab.DB on the comments and share_links tables.
type collabDB struct {
	db *DB
}

// AddComment attaches a comment to an asset.
func (c *collabDB) AddComment(ctx context.Context, assetID uuid.UUID, author, body string) (err error) {
	defer mon.Task()(&ctx)(&err)

	_, err = c.db.db.ExecContext(ctx, c.db.Rebind(`
		INSERT INTO comments ( id, asset_id, author, body, created_at )
		VALUES ( ?, ?, ?, ?, ? )`),
		uuid.NewString(), assetID.String(), author, body, time.Now().UTC())
	return Error.Wrap(err)
}

// AddShareLink attaches a share link to an asset.
func (c *collabDB) AddShareLink(ctx context.Context, assetID uuid.UUID, token string) (err error) {
	defer mon.Task()(&ctx)(&err)

	_, err = c.db.db.ExecContext(ctx, c.db.Rebind(`
		INSERT INTO share_links ( id, asset_id, token, created_at )
		VALUES ( ?, ?, ?, ? )`),
		uuid.NewString(), assetID.String(), token, time.Now().UTC())
	return Error.Wrap(err)
}

// CountByAsset returns the number of records referencing an asset.
func (c *collabDB) CountByAsset(ctx context.Context, assetID uuid.UUID) (_ int64, err error) {
	defer mon.Task()(&ctx)(&err)

	var comments, links int64
	err = c.db.db.QueryRowContext(ctx, c.db.Rebind(`
		SELECT COUNT(*) FROM comments WHERE asset_id = ?`),
		assetID.String()).Scan(&comments)
	if err != nil {
		return 0, Error.Wrap(err)
	}
	err = c.db.db.QueryRowContext(ctx, c.db.Rebind(`
		SELECT COUNT(*) FROM share_links WHERE asset_id = ?`),
		assetID.String()).Scan(&links)
	if err != nil {
		return 0, Error.Wrap(err)
	}
	return comments + links, nil
}

// DeleteAllByAsset removes every record referencing an asset.
func (c *collabDB) DeleteAllByAsset(ctx context.Context, assetID uuid.UUID) (err error) {
	defer mon.Task()(&ctx)(&err)

	for _, table := range []string{"comments", "share_links"} {
		if _, err := c.db.db.ExecContext(ctx, c.db.Rebind(`
			DELETE FROM `+table+` WHERE asset_id = ?`), assetID.String()); err != nil {
			return Error.Wrap(err)
		}
	}
	return nil
}
