// Copyright (C) 2025 Frameloop, Inc.
// See LICENSE for copying information.

// Package testcontext provides a context tied to a test with goroutine
// tracking.
package testcontext

import (
	"context"
	"sync"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultTimeout = 3 * time.Minute

// Context is a context.Context for tests that tracks goroutines started
// through it.
type Context struct {
	context.Context

	test   testing.TB
	group  *errgroup.Group
	once   sync.Once
	cancel context.CancelFunc
}

// New creates a new test context with a default timeout.
func New(test testing.TB) *Context {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	group, ctx := errgroup.WithContext(ctx)
	return &Context{
		Context: ctx,
		test:    test,
		group:   group,
		cancel:  cancel,
	}
}

// Go runs fn in a goroutine tracked by the context; Cleanup checks the
// result.
func (ctx *Context) Go(fn func() error) {
	ctx.test.Helper()
	ctx.group.Go(fn)
}

// Check calls fn and fails the test on error.
func (ctx *Context) Check(fn func() error) {
	ctx.test.Helper()
	if err := fn(); err != nil {
		ctx.test.Fatal(err)
	}
}

// Wait blocks until every tracked goroutine has finished.
func (ctx *Context) Wait() error {
	return ctx.group.Wait()
}

// Cleanup waits for tracked goroutines and cancels the context. Call it
// deferred from every test using this context.
func (ctx *Context) Cleanup() {
	ctx.once.Do(func() {
		defer ctx.cancel()
		if err := ctx.group.Wait(); err != nil {
			ctx.test.Error(err)
		}
	})
}
