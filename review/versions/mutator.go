// Copyright (C) 2025 Frameloop, Inc.
// See LICENSE for copying information.

package versions

import (
	"github.com/google/uuid"
)

// CreateOrReplace installs orderedIDs as a stack keyed by its first element.
// Any existing stack whose parent or members overlap orderedIDs is removed
// first, so reassigning a version detaches it from its prior stack.
//
// Preconditions: orderedIDs is de-duplicated with at least two elements, and
// every id resolves through lookup to a READY asset that is neither archived
// nor deleted. A violated precondition returns (nil, false) as a no-op
// signal; user input never produces an error here.
func CreateOrReplace(orderedIDs []uuid.UUID, lookup Lookup, stacks Stacks) (Stacks, bool) {
	if len(orderedIDs) < 2 {
		return nil, false
	}
	seen := make(map[uuid.UUID]bool, len(orderedIDs))
	for _, id := range orderedIDs {
		if seen[id] {
			return nil, false
		}
		seen[id] = true

		info, ok := lookup(id)
		if !ok || !info.Ready || info.Archived || info.Deleted {
			return nil, false
		}
	}

	result := stacks.Copy()
	for parentID, members := range result {
		if seen[parentID] {
			delete(result, parentID)
			continue
		}
		for _, member := range members {
			if seen[member] {
				delete(result, parentID)
				break
			}
		}
	}

	result[orderedIDs[0]] = append([]uuid.UUID(nil), orderedIDs...)
	return result, true
}

// MergeOnDrop computes the member order produced by dropping sourceID onto
// targetID. Both ids are resolved to their current stack parents; the merge
// is a no-op unless the parents differ and both parent assets are READY.
// The returned order is target members first, then source members,
// de-duplicated, so the target's existing version 1 stays version 1. Feed
// the result to CreateOrReplace.
func MergeOnDrop(sourceID, targetID uuid.UUID, stacks Stacks, lookup Lookup) ([]uuid.UUID, bool) {
	index := NewIndex(stacks)
	sourceParent := index.ParentID(sourceID)
	targetParent := index.ParentID(targetID)
	if sourceParent == targetParent {
		return nil, false
	}
	for _, id := range []uuid.UUID{sourceParent, targetParent} {
		info, ok := lookup(id)
		if !ok || !info.Ready {
			return nil, false
		}
	}

	merged := make([]uuid.UUID, 0, len(stacks[targetParent])+len(stacks[sourceParent])+2)
	seen := make(map[uuid.UUID]bool)
	appendMembers := func(parentID uuid.UUID) {
		members := stacks[parentID]
		if len(members) == 0 {
			members = []uuid.UUID{parentID}
		}
		for _, member := range members {
			if seen[member] {
				continue
			}
			seen[member] = true
			merged = append(merged, member)
		}
	}
	appendMembers(targetParent)
	appendMembers(sourceParent)
	return merged, true
}

// Unstack dissolves the stack keyed by parentID. The entry is deleted and
// the non-parent members are reinserted into gridOrder immediately after the
// parent's prior position, preserving locality instead of appending at the
// end. Returns (nil, nil, false) unless parentID keys a stack with at least
// two members.
func Unstack(parentID uuid.UUID, stacks Stacks, gridOrder []uuid.UUID) (Stacks, []uuid.UUID, bool) {
	members := stacks[parentID]
	if len(members) < 2 {
		return nil, nil, false
	}

	result := stacks.Copy()
	delete(result, parentID)

	freed := make([]uuid.UUID, 0, len(members)-1)
	for _, member := range members {
		if member != parentID {
			freed = append(freed, member)
		}
	}

	inGrid := make(map[uuid.UUID]bool, len(gridOrder))
	for _, id := range gridOrder {
		inGrid[id] = true
	}

	order := make([]uuid.UUID, 0, len(gridOrder)+len(freed))
	inserted := false
	for _, id := range gridOrder {
		order = append(order, id)
		if id == parentID {
			for _, member := range freed {
				if !inGrid[member] {
					order = append(order, member)
				}
			}
			inserted = true
		}
	}
	if !inserted {
		for _, member := range freed {
			if !inGrid[member] {
				order = append(order, member)
			}
		}
	}

	return result, order, true
}
