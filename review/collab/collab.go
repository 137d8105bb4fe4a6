// Copyright (C) 2025 Frameloop, Inc.
// See LICENSE for copying information.

// Package collab is the narrow surface the core needs from the
// collaboration features: deleting every record that references an asset
// when the asset is deleted or tombstoned. Comment and share-link schemas
// belong to their own surfaces.
package collab

import (
	"context"

	"github.com/google/uuid"
	"github.com/zeebo/errs"
)

// Error is the default collab errs class.
var Error = errs.Class("collab")

// DB stores collaboration records keyed by asset.
//
// architecture: Database
type DB interface {
	// AddComment attaches a comment to an asset.
	AddComment(ctx context.Context, assetID uuid.UUID, author, body string) error
	// AddShareLink attaches a share link to an asset.
	AddShareLink(ctx context.Context, assetID uuid.UUID, token string) error
	// CountByAsset returns the number of records referencing an asset.
	CountByAsset(ctx context.Context, assetID uuid.UUID) (int64, error)
	// DeleteAllByAsset removes every record referencing an asset.
	DeleteAllByAsset(ctx context.Context, assetID uuid.UUID) error
}
