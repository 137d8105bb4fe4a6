// Copyright (C) 2025 Frameloop, Inc.
// See LICENSE for copying information.

package versions

import (
	"github.com/google/uuid"
)

// Normalize reconciles a persisted stacks map against a shrinking visibility
// set. Pairs whose parent is not allowed are dropped, members are filtered
// to the allowed set, and pairs left with fewer than two members are dropped
// entirely, demoting the parent to a plain asset.
//
// Normalize is idempotent: Normalize(Normalize(s, a), a) == Normalize(s, a).
func Normalize(stacks Stacks, allowed map[uuid.UUID]bool) Stacks {
	result := make(Stacks, len(stacks))
	for parentID, members := range stacks {
		if !allowed[parentID] {
			continue
		}
		kept := make([]uuid.UUID, 0, len(members))
		for _, member := range members {
			if allowed[member] {
				kept = append(kept, member)
			}
		}
		if len(kept) < 2 {
			continue
		}
		result[parentID] = kept
	}
	return result
}

// ActiveSet builds the allowed-id set for active-view pruning: archived and
// deleted assets both vanish from stacks.
func ActiveSet(infos map[uuid.UUID]AssetInfo) map[uuid.UUID]bool {
	allowed := make(map[uuid.UUID]bool, len(infos))
	for id, info := range infos {
		if !info.Archived && !info.Deleted {
			allowed[id] = true
		}
	}
	return allowed
}

// LiveSet builds the allowed-id set for deletion-triggered pruning: only
// hard-deleted assets are excluded, so archived assets stay groupable once
// restored. The asymmetry with ActiveSet is intentional product behavior;
// keep the two policies distinct.
func LiveSet(infos map[uuid.UUID]AssetInfo) map[uuid.UUID]bool {
	allowed := make(map[uuid.UUID]bool, len(infos))
	for id, info := range infos {
		if !info.Deleted {
			allowed[id] = true
		}
	}
	return allowed
}
