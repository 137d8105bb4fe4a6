// Copyright (C) 2025 Frameloop, Inc.
// See LICENSE for copying information.

// Package ingest orchestrates upload admission: reserve bytes, create the
// asset record, issue a scoped write credential, and roll the reservation
// back when anything downstream fails. The reservation is the only step
// requiring atomicity; everything after it is best-effort with compensation.
package ingest

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/spacemonkeygo/monkit/v3"
	"github.com/zeebo/errs"
	"go.uber.org/zap"

	"frameloop.io/frameloop/objectstore"
	"frameloop.io/frameloop/review/assets"
	"frameloop.io/frameloop/review/cleanup"
	"frameloop.io/frameloop/review/quota"
)

var mon = monkit.Package()

// Error is the default ingest errs class.
var Error = errs.Class("ingest")

// Upload is the result of a successful admission: the created record and
// the credential the client uploads with.
type Upload struct {
	Asset      *assets.Asset
	Credential objectstore.Credential
}

// Coordinator admits uploads against the tenant budget.
//
// architecture: Service
type Coordinator struct {
	log        *zap.Logger
	quota      *quota.Service
	db         assets.DB
	store      objectstore.Store
	transcoder Transcoder
}

// Transcoder is the slice of the provider client the coordinator uses to
// hand finished uploads off for processing.
type Transcoder interface {
	CreateAsset(ctx context.Context, sourceURL string) (externalID string, err error)
}

// NewCoordinator creates a new ingest coordinator.
func NewCoordinator(log *zap.Logger, quotas *quota.Service, db assets.DB, store objectstore.Store, transcoder Transcoder) *Coordinator {
	return &Coordinator{
		log:        log,
		quota:      quotas,
		db:         db,
		store:      store,
		transcoder: transcoder,
	}
}

// BeginUpload runs the per-attempt sequence RESERVE, CREATE_RECORD,
// ISSUE_CREDENTIAL. Any failure after the reservation releases it again
// best-effort, so "reserved but failed" is only ever observable
// transiently. A refused reservation returns the *quota.ExceededError
// untouched so callers can render the numbers.
func (coordinator *Coordinator) BeginUpload(ctx context.Context, tenantID uuid.UUID, filename string, sizeBytes int64) (_ *Upload, err error) {
	defer mon.Task()(&ctx)(&err)

	if sizeBytes <= 0 {
		return nil, Error.New("invalid upload size %d", sizeBytes)
	}

	if err := coordinator.quota.Reserve(ctx, tenantID, sizeBytes); err != nil {
		var exceeded *quota.ExceededError
		if errors.As(err, &exceeded) {
			return nil, exceeded
		}
		return nil, Error.Wrap(err)
	}

	assetID := uuid.New()
	asset, err := coordinator.db.Create(ctx, &assets.Asset{
		ID:         assetID,
		TenantID:   tenantID,
		Status:     assets.StatusUploaded,
		SizeBytes:  sizeBytes,
		Filename:   filename,
		StorageKey: objectstore.DeriveKey(tenantID, assetID, filename),
	})
	if err != nil {
		coordinator.rollbackReserve(ctx, tenantID, sizeBytes)
		return nil, Error.Wrap(err)
	}

	credential, err := coordinator.store.IssueUploadCredential(ctx, asset.StorageKey)
	if err != nil {
		coordinator.rollback(ctx, asset)
		return nil, Error.Wrap(err)
	}

	return &Upload{Asset: asset, Credential: credential}, nil
}

// StartProcessing hands a finished upload to the remote encoder and records
// its processing id.
func (coordinator *Coordinator) StartProcessing(ctx context.Context, assetID uuid.UUID) (err error) {
	defer mon.Task()(&ctx)(&err)

	asset, err := coordinator.db.Get(ctx, assetID)
	if err != nil {
		return Error.Wrap(err)
	}
	if asset.Deleted() {
		return Error.New("asset %s is deleted", assetID)
	}
	if asset.ExternalID != "" {
		return nil
	}

	externalID, err := coordinator.transcoder.CreateAsset(ctx, coordinator.store.ObjectURL(asset.StorageKey))
	if err != nil {
		return Error.Wrap(err)
	}
	return Error.Wrap(coordinator.db.SetExternalID(ctx, assetID, externalID))
}

// rollbackReserve releases a reservation best-effort.
func (coordinator *Coordinator) rollbackReserve(ctx context.Context, tenantID uuid.UUID, sizeBytes int64) {
	cleanup.Run(ctx, coordinator.log, cleanup.Step{
		Name: "rollback reservation",
		Run: func(ctx context.Context) error {
			return coordinator.quota.Release(ctx, tenantID, sizeBytes)
		},
	})
}

// rollback removes a created record best-effort; DeleteMany releases the
// reservation in the same transaction, so the reservation is not released
// separately.
func (coordinator *Coordinator) rollback(ctx context.Context, asset *assets.Asset) {
	cleanup.Run(ctx, coordinator.log, cleanup.Step{
		Name: "rollback upload record",
		Run: func(ctx context.Context) error {
			return coordinator.db.DeleteMany(ctx, asset.TenantID, []uuid.UUID{asset.ID})
		},
	})
}
