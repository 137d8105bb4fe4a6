// Copyright (C) 2025 Frameloop, Inc.
// See LICENSE for copying information.

// Package review composes the review backend: version stacks, the storage
// quota ledger, upload ingest and processing completion.
package review

import (
	"context"

	"frameloop.io/frameloop/review/assets"
	"frameloop.io/frameloop/review/collab"
	"frameloop.io/frameloop/review/quota"
	"frameloop.io/frameloop/review/versions"
)

// DB is the master database for the review backend.
//
// architecture: Master Database
type DB interface {
	// Assets returns the asset table.
	Assets() assets.DB
	// Quota returns the per-tenant byte counter.
	Quota() quota.DB
	// Stacks returns the persisted version stacks.
	Stacks() versions.DB
	// Collab returns the collaboration-record tables.
	Collab() collab.DB

	// CreateTables sets up the schema.
	CreateTables(ctx context.Context) error
	// Close closes the database.
	Close() error
}
