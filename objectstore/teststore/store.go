// Copyright (C) 2025 Frameloop, Inc.
// See LICENSE for copying information.

// Package teststore implements an in-memory objectstore.Store for tests
// and local development.
package teststore

import (
	"context"
	"sync"
	"time"

	"frameloop.io/frameloop/objectstore"
)

// Store is an in-memory objectstore.Store. It records issued credentials
// and deleted keys so tests can assert on cleanup behavior.
type Store struct {
	mu sync.Mutex

	// FailIssue makes IssueUploadCredential fail, for rollback tests.
	FailIssue error

	issued  []string
	deleted []string
}

// New creates an empty test store.
func New() *Store { return &Store{} }

// IssueUploadCredential implements objectstore.Store.
func (store *Store) IssueUploadCredential(ctx context.Context, key string) (objectstore.Credential, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	if store.FailIssue != nil {
		return objectstore.Credential{}, store.FailIssue
	}
	store.issued = append(store.issued, key)
	return objectstore.Credential{
		Key:       key,
		UploadURL: "https://upload.test/" + key,
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}, nil
}

// DeleteObject implements objectstore.Store.
func (store *Store) DeleteObject(ctx context.Context, key string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.deleted = append(store.deleted, key)
	return nil
}

// ObjectURL implements objectstore.Store.
func (store *Store) ObjectURL(key string) string {
	return "https://objects.test/" + key
}

// Issued returns the keys credentials were issued for.
func (store *Store) Issued() []string {
	store.mu.Lock()
	defer store.mu.Unlock()
	return append([]string(nil), store.issued...)
}

// Deleted returns the keys deleted so far.
func (store *Store) Deleted() []string {
	store.mu.Lock()
	defer store.mu.Unlock()
	return append([]string(nil), store.deleted...)
}
