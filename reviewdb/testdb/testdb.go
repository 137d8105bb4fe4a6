// Copyright (C) 2025 Frameloop, Inc.
// See LICENSE for copying information.

// Package testdb implements review.DB in plain memory for unit tests. A
// single mutex stands in for the datastore's transaction domain: the quota
// conditional increment and the deletion transactions hold it for their
// whole critical section, mirroring the SQL implementation's atomicity.
package testdb

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"frameloop.io/frameloop/review"
	"frameloop.io/frameloop/review/assets"
	"frameloop.io/frameloop/review/collab"
	"frameloop.io/frameloop/review/quota"
	"frameloop.io/frameloop/review/versions"
)

// DB is an in-memory review.DB.
type DB struct {
	mu sync.Mutex

	quotas     map[uuid.UUID]int64
	assets     map[uuid.UUID]*assets.Asset
	stacks     map[uuid.UUID]versions.Stacks
	gridOrders map[uuid.UUID][]uuid.UUID
	comments   map[uuid.UUID]int64
	shareLinks map[uuid.UUID]int64
}

// New creates an empty in-memory database.
func New() *DB {
	return &DB{
		quotas:     make(map[uuid.UUID]int64),
		assets:     make(map[uuid.UUID]*assets.Asset),
		stacks:     make(map[uuid.UUID]versions.Stacks),
		gridOrders: make(map[uuid.UUID][]uuid.UUID),
		comments:   make(map[uuid.UUID]int64),
		shareLinks: make(map[uuid.UUID]int64),
	}
}

var _ review.DB = (*DB)(nil)

// Assets implements review.DB.
func (db *DB) Assets() assets.DB { return &assetsDB{db} }

// Quota implements review.DB.
func (db *DB) Quota() quota.DB { return &quotaDB{db} }

// Stacks implements review.DB.
func (db *DB) Stacks() versions.DB { return &stacksDB{db} }

// Collab implements review.DB.
func (db *DB) Collab() collab.DB { return &collabDB{db} }

// CreateTables implements review.DB.
func (db *DB) CreateTables(ctx context.Context) error { return nil }

// Close implements review.DB.
func (db *DB) Close() error { return nil }

type quotaDB struct{ db *DB }

func (q *quotaDB) Reserve(ctx context.Context, tenantID uuid.UUID, bytes, limitBytes int64) (bool, error) {
	q.db.mu.Lock()
	defer q.db.mu.Unlock()

	used := q.db.quotas[tenantID]
	if used+bytes > limitBytes {
		return false, nil
	}
	q.db.quotas[tenantID] = used + bytes
	return true, nil
}

func (q *quotaDB) Release(ctx context.Context, tenantID uuid.UUID, bytes int64) error {
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	q.db.release(tenantID, bytes)
	return nil
}

// release assumes the mutex is held.
func (db *DB) release(tenantID uuid.UUID, bytes int64) {
	used := db.quotas[tenantID] - bytes
	if used < 0 {
		used = 0
	}
	db.quotas[tenantID] = used
}

func (q *quotaDB) UsedBytes(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	return q.db.quotas[tenantID], nil
}

func (q *quotaDB) SetUsedBytes(ctx context.Context, tenantID uuid.UUID, usedBytes int64) error {
	q.db.mu.Lock()
	defer q.db.mu.Unlock()
	q.db.quotas[tenantID] = usedBytes
	return nil
}

func (q *quotaDB) TotalLiveBytes(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	q.db.mu.Lock()
	defer q.db.mu.Unlock()

	var total int64
	for _, asset := range q.db.assets {
		if asset.TenantID == tenantID && asset.DeletedAt == nil {
			total += asset.SizeBytes
		}
	}
	return total, nil
}

type assetsDB struct{ db *DB }

func (a *assetsDB) Create(ctx context.Context, asset *assets.Asset) (*assets.Asset, error) {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()

	created := *asset
	if created.CreatedAt.IsZero() {
		created.CreatedAt = time.Now().UTC()
	}
	a.db.assets[created.ID] = &created
	copied := created
	return &copied, nil
}

func (a *assetsDB) Get(ctx context.Context, id uuid.UUID) (*assets.Asset, error) {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()

	asset, ok := a.db.assets[id]
	if !ok {
		return nil, assets.ErrNotFound.New("%s", id)
	}
	copied := *asset
	return &copied, nil
}

func (a *assetsDB) GetByExternalID(ctx context.Context, externalID string) (*assets.Asset, error) {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()

	for _, asset := range a.db.assets {
		if externalID != "" && asset.ExternalID == externalID {
			copied := *asset
			return &copied, nil
		}
	}
	return nil, assets.ErrNotFound.New("external id %s", externalID)
}

func (a *assetsDB) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]*assets.Asset, error) {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()

	var list []*assets.Asset
	for _, asset := range a.db.assets {
		if asset.TenantID == tenantID && asset.DeletedAt == nil {
			copied := *asset
			list = append(list, &copied)
		}
	}
	return list, nil
}

func (a *assetsDB) SetExternalID(ctx context.Context, id uuid.UUID, externalID string) error {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()

	asset, ok := a.db.assets[id]
	if !ok || asset.DeletedAt != nil {
		return nil
	}
	asset.ExternalID = externalID
	asset.Status = assets.StatusProcessing
	return nil
}

func (a *assetsDB) UpdateStatus(ctx context.Context, id uuid.UUID, status assets.Status, playbackURL, thumbnailURL string) error {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()

	asset, ok := a.db.assets[id]
	if !ok || asset.DeletedAt != nil || asset.Status.Terminal() {
		return nil
	}
	asset.Status = status
	asset.PlaybackURL = playbackURL
	asset.ThumbnailURL = thumbnailURL
	return nil
}

func (a *assetsDB) SetArchived(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID, archived bool) error {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()

	for _, id := range ids {
		asset, ok := a.db.assets[id]
		if !ok || asset.TenantID != tenantID || asset.DeletedAt != nil {
			continue
		}
		if archived {
			at := time.Now().UTC()
			asset.ArchivedAt = &at
		} else {
			asset.ArchivedAt = nil
		}
	}
	return nil
}

func (a *assetsDB) DeleteMany(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) error {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()

	for _, id := range ids {
		a.db.deleteAsset(tenantID, id, false)
	}
	a.db.pruneStacks(tenantID)
	return nil
}

func (a *assetsDB) Tombstone(ctx context.Context, id uuid.UUID) error {
	a.db.mu.Lock()
	defer a.db.mu.Unlock()

	asset, ok := a.db.assets[id]
	if !ok || asset.DeletedAt != nil {
		return nil
	}
	a.db.deleteAsset(asset.TenantID, id, true)
	a.db.pruneStacks(asset.TenantID)
	return nil
}

// deleteAsset assumes the mutex is held.
func (db *DB) deleteAsset(tenantID, id uuid.UUID, tombstone bool) {
	asset, ok := db.assets[id]
	if !ok || asset.TenantID != tenantID || asset.DeletedAt != nil {
		return
	}
	now := time.Now().UTC()
	asset.DeletedAt = &now
	if tombstone {
		asset.Status = assets.StatusFailed
		asset.PlaybackURL = ""
		asset.ThumbnailURL = ""
	}
	delete(db.comments, id)
	delete(db.shareLinks, id)
	db.release(tenantID, asset.SizeBytes)
}

// pruneStacks assumes the mutex is held.
func (db *DB) pruneStacks(tenantID uuid.UUID) {
	stacks, ok := db.stacks[tenantID]
	if !ok {
		return
	}
	allowed := make(map[uuid.UUID]bool)
	for _, asset := range db.assets {
		if asset.TenantID == tenantID && asset.DeletedAt == nil {
			allowed[asset.ID] = true
		}
	}
	db.stacks[tenantID] = versions.Normalize(stacks, allowed)
}

type stacksDB struct{ db *DB }

func (s *stacksDB) Get(ctx context.Context, tenantID uuid.UUID) (versions.Stacks, []uuid.UUID, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	stacks, ok := s.db.stacks[tenantID]
	if !ok {
		return versions.Stacks{}, nil, nil
	}
	return stacks.Copy(), append([]uuid.UUID(nil), s.db.gridOrders[tenantID]...), nil
}

func (s *stacksDB) Set(ctx context.Context, tenantID uuid.UUID, stacks versions.Stacks, gridOrder []uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	s.db.stacks[tenantID] = stacks.Copy()
	s.db.gridOrders[tenantID] = append([]uuid.UUID(nil), gridOrder...)
	return nil
}

type collabDB struct{ db *DB }

func (c *collabDB) AddComment(ctx context.Context, assetID uuid.UUID, author, body string) error {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	c.db.comments[assetID]++
	return nil
}

func (c *collabDB) AddShareLink(ctx context.Context, assetID uuid.UUID, token string) error {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	c.db.shareLinks[assetID]++
	return nil
}

func (c *collabDB) CountByAsset(ctx context.Context, assetID uuid.UUID) (int64, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	return c.db.comments[assetID] + c.db.shareLinks[assetID], nil
}

func (c *collabDB) DeleteAllByAsset(ctx context.Context, assetID uuid.UUID) error {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	delete(c.db.comments, assetID)
	delete(c.db.shareLinks, assetID)
	return nil
}
