// Copyright (C) 2025 Frameloop, Inc.
// See LICENSE for copying information.

// Package objectstore defines the narrow surface the backend needs from the
// object storage provider: short-lived scoped write credentials keyed by a
// deterministic derived key, and object deletion during cleanup. Client
// wrappers for concrete providers live outside the core.
package objectstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/errs"
)

// Error is the default objectstore errs class.
var Error = errs.Class("objectstore")

// Credential is a short-lived scoped write grant for one object key.
type Credential struct {
	Key       string
	UploadURL string
	Headers   map[string]string
	ExpiresAt time.Time
}

// Store is the object storage provider surface.
type Store interface {
	// IssueUploadCredential returns a scoped write credential for key.
	IssueUploadCredential(ctx context.Context, key string) (Credential, error)
	// DeleteObject removes the object at key.
	DeleteObject(ctx context.Context, key string) error
	// ObjectURL returns the provider URL the remote encoder reads from.
	ObjectURL(key string) string
}

// DeriveKey computes the deterministic object key for an upload. The tenant
// and asset ids scope the key; the filename digest keeps the key stable for
// repeated credential requests without trusting client-supplied paths.
func DeriveKey(tenantID, assetID uuid.UUID, filename string) string {
	digest := sha256.Sum256([]byte(filename))
	return fmt.Sprintf("%s/%s/%s", tenantID, assetID, hex.EncodeToString(digest[:8]))
}
