// Copyright (C) 2025 Frameloop, Inc.
// See LICENSE for copying information.

// Package reviewdb implements review.DB on a relational datastore.
// Postgres backs production; sqlite backs development and tests. All
// cross-domain writes (deletion, tombstoning) commit in one transaction.
package reviewdb

import (
	"context"
	"database/sql"
	"net/url"
	"strconv"
	"strings"

	// postgres and sqlite drivers.
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"frameloop.io/frameloop/review/assets"
	"frameloop.io/frameloop/review/collab"
	"frameloop.io/frameloop/review/quota"
	"frameloop.io/frameloop/review/versions"
)

var mon = monkit.Package()

// Error is the default reviewdb errs class.
var Error = errs.Class("reviewdb")

// Implementation distinguishes the backing datastore dialect.
type Implementation int

const (
	// Postgres is the production datastore.
	Postgres Implementation = iota
	// SQLite backs development and tests.
	SQLite
)

// DB is the concrete database handle.
type DB struct {
	log  *zap.Logger
	db   *sql.DB
	impl Implementation
}

// Open connects to the datastore named by databaseURL. Supported schemes
// are postgres:// and sqlite3://.
func Open(log *zap.Logger, databaseURL string) (*DB, error) {
	parsed, err := url.Parse(databaseURL)
	if err != nil {
		return nil, Error.Wrap(err)
	}

	var driver, source string
	var impl Implementation
	switch parsed.Scheme {
	case "postgres", "postgresql":
		driver, source, impl = "postgres", databaseURL, Postgres
	case "sqlite3":
		path := parsed.Opaque
		if path == "" {
			path = parsed.Host + parsed.Path
		}
		driver, impl = "sqlite3", SQLite
		source = "file:" + path + "?_journal=WAL&_busy_timeout=10000"
	default:
		return nil, Error.New("unsupported database scheme %q", parsed.Scheme)
	}

	handle, err := sql.Open(driver, source)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	if impl == SQLite {
		// sqlite locks the whole file; a single connection avoids
		// SQLITE_BUSY under concurrent writers.
		handle.SetMaxOpenConns(1)
	}

	return &DB{
		log:  log,
		db:   handle,
		impl: impl,
	}, nil
}

// Close releases the database handle.
func (db *DB) Close() error {
	return Error.Wrap(db.db.Close())
}

// Quota returns the quota counter table.
func (db *DB) Quota() quota.DB { return &quotaDB{db: db} }

// Assets returns the asset table.
func (db *DB) Assets() assets.DB { return &assetsDB{db: db} }

// Stacks returns the stacks table.
func (db *DB) Stacks() versions.DB { return &stacksDB{db: db} }

// Collab returns the collaboration-record tables.
func (db *DB) Collab() collab.DB { return &collabDB{db: db} }

// Rebind translates ? placeholders into the dialect's positional form.
func (db *DB) Rebind(query string) string {
	if db.impl != Postgres {
		return query
	}
	var out strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			out.WriteString("$" + strconv.Itoa(n))
			continue
		}
		out.WriteRune(r)
	}
	return out.String()
}

// WithTx runs fn inside a transaction, committing on nil error and rolling
// back otherwise.
func (db *DB) WithTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) (err error) {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return Error.Wrap(err)
	}
	defer func() {
		if err != nil {
			err = errs.Combine(err, tx.Rollback())
		} else {
			err = Error.Wrap(tx.Commit())
		}
	}()
	return fn(ctx, tx)
}

// CreateTables sets up the schema. Idempotent.
func (db *DB) CreateTables(ctx context.Context) (err error) {
	defer mon.Task()(&ctx)(&err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS tenant_quotas (
			tenant_id TEXT NOT NULL PRIMARY KEY,
			used_bytes BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS assets (
			id TEXT NOT NULL PRIMARY KEY,
			tenant_id TEXT NOT NULL,
			status TEXT NOT NULL,
			size_bytes BIGINT NOT NULL,
			filename TEXT NOT NULL DEFAULT '',
			storage_key TEXT NOT NULL DEFAULT '',
			external_id TEXT NOT NULL DEFAULT '',
			playback_url TEXT NOT NULL DEFAULT '',
			thumbnail_url TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			archived_at TIMESTAMP,
			deleted_at TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS assets_tenant_id_index ON assets ( tenant_id )`,
		`CREATE INDEX IF NOT EXISTS assets_external_id_index ON assets ( external_id )`,
		`CREATE TABLE IF NOT EXISTS stacks (
			tenant_id TEXT NOT NULL PRIMARY KEY,
			payload TEXT NOT NULL DEFAULT '{}',
			grid_order TEXT NOT NULL DEFAULT '[]'
		)`,
		`CREATE TABLE IF NOT EXISTS comments (
			id TEXT NOT NULL PRIMARY KEY,
			asset_id TEXT NOT NULL,
			author TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS comments_asset_id_index ON comments ( asset_id )`,
		`CREATE TABLE IF NOT EXISTS share_links (
			id TEXT NOT NULL PRIMARY KEY,
			asset_id TEXT NOT NULL,
			token TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS share_links_asset_id_index ON share_links ( asset_id )`,
	}
	for _, statement := range statements {
		if _, err := db.db.ExecContext(ctx, statement); err != nil {
			return Error.Wrap(err)
		}
	}
	return nil
}
