// Copyright (C) 2025 Frameloop, Inc.
// See LICENSE for copying information.

// Package assets tracks video assets through upload, remote processing and
// playback, including the archive and delete lifecycle.
package assets

import (
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/errs"
)

// Error is the default assets errs class.
var Error = errs.Class("assets")

// ErrNotFound is returned when an asset does not exist.
var ErrNotFound = errs.Class("asset not found")

// Status is the processing lifecycle state of an asset.
type Status string

const (
	// StatusUploaded marks an asset whose record exists and whose bytes are
	// reserved; created only after a successful reservation.
	StatusUploaded Status = "UPLOADED"
	// StatusProcessing marks an asset handed to the remote encoder.
	StatusProcessing Status = "PROCESSING"
	// StatusReady marks a playable asset. A ready asset implies the tenant
	// was within budget at the moment it became ready.
	StatusReady Status = "READY"
	// StatusFailed marks a terminally failed asset; the over-budget
	// tombstone path forces this from any state.
	StatusFailed Status = "FAILED"
)

// Terminal reports whether the status accepts no further callback
// transitions.
func (status Status) Terminal() bool {
	return status == StatusReady || status == StatusFailed
}

// Asset is a video resource.
type Asset struct {
	ID       uuid.UUID
	TenantID uuid.UUID

	Status    Status
	SizeBytes int64
	Filename  string

	// StorageKey is the deterministic object-store key the upload
	// credential was scoped to.
	StorageKey string
	// ExternalID is the remote encoder's processing id; empty until the
	// asset is handed off for processing.
	ExternalID string

	PlaybackURL  string
	ThumbnailURL string

	CreatedAt time.Time
	// ArchivedAt toggles independently of quota.
	ArchivedAt *time.Time
	// DeletedAt is set exactly once and is permanent; setting it always
	// goes together with quota release and stack pruning.
	DeletedAt *time.Time
}

// Archived reports whether the asset is currently archived.
func (asset *Asset) Archived() bool { return asset.ArchivedAt != nil }

// Deleted reports whether the asset has been tombstoned or deleted.
func (asset *Asset) Deleted() bool { return asset.DeletedAt != nil }
