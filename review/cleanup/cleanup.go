// Copyright (C) 2025 Frameloop, Inc.
// See LICENSE for copying information.

// Package cleanup runs best-effort external side effects. A third party
// being unavailable must never block a local state transition, so every
// step is attempted, failures are logged and swallowed, and Run never
// returns an error. Keeping the policy in one place makes it visible and
// testable instead of implicit in scattered exception handling.
package cleanup

import (
	"context"

	"github.com/spacemonkeygo/monkit/v3"
	"go.uber.org/zap"
)

var mon = monkit.Package()

// Step is one best-effort side effect.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// Run executes every step in order regardless of earlier failures.
func Run(ctx context.Context, log *zap.Logger, steps ...Step) {
	var err error
	defer mon.Task()(&ctx)(&err)

	for _, step := range steps {
		if err := step.Run(ctx); err != nil {
			log.Warn("cleanup step failed",
				zap.String("step", step.Name),
				zap.Error(err))
		}
	}
}
