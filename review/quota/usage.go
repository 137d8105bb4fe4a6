// Copyright (C) 2025 Frameloop, Inc.
// See LICENSE for copying information.

package quota

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
)

// Usage is a snapshot of a tenant's storage counter against the fixed
// global limit.
type Usage struct {
	TenantID   uuid.UUID
	UsedBytes  int64
	LimitBytes int64
}

// Remaining returns the bytes still available, floored at zero.
func (usage Usage) Remaining() int64 {
	remaining := usage.LimitBytes - usage.UsedBytes
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Exceeded reports whether the counter is over the limit.
func (usage Usage) Exceeded() bool {
	return usage.UsedBytes > usage.LimitBytes
}

// ExceededError is returned by Reserve when the requested bytes would push
// the tenant past its limit. It carries the numbers a caller needs to render
// an actionable message, distinct from a generic failure.
type ExceededError struct {
	RequestedBytes int64
	UsedBytes      int64
	LimitBytes     int64
	RemainingBytes int64
}

// Error implements error.
func (e *ExceededError) Error() string {
	need := e.RequestedBytes - e.RemainingBytes
	return fmt.Sprintf("storage quota exceeded: need %s more (%s of %s used)",
		humanize.IBytes(uint64(need)),
		humanize.IBytes(uint64(e.UsedBytes)),
		humanize.IBytes(uint64(e.LimitBytes)))
}
