// Copyright (C) 2025 Frameloop, Inc.
// See LICENSE for copying information.

// Package versions implements version stacks: ordered revision chains that
// group multiple assets into one conceptual video. A stack is stored as a
// parent-id keyed map of ordered member lists; the parent is always element 0
// and the last element is the newest version. Stacks are flat, depth is
// always exactly one.
package versions

import (
	"github.com/google/uuid"
	"github.com/zeebo/errs"
)

// Error is the default versions errs class.
var Error = errs.Class("versions")

// Stacks maps a parent asset id to the ordered member ids of its stack.
// The parent id is included as element 0.
type Stacks map[uuid.UUID][]uuid.UUID

// AssetInfo carries the asset state the stack mutator validates against.
type AssetInfo struct {
	Ready    bool
	Archived bool
	Deleted  bool
}

// Lookup resolves an asset id to its state. The second return is false for
// unknown ids.
type Lookup func(id uuid.UUID) (AssetInfo, bool)

// Index resolves member ids against a single stacks map. The inverted
// child-to-parent map is built once, so repeated lookups are O(1).
type Index struct {
	stacks Stacks
	parent map[uuid.UUID]uuid.UUID
}

// NewIndex builds an index over stacks in O(total members).
func NewIndex(stacks Stacks) *Index {
	parent := make(map[uuid.UUID]uuid.UUID)
	for parentID, members := range stacks {
		for _, member := range members {
			if member == parentID {
				continue
			}
			parent[member] = parentID
		}
	}
	return &Index{stacks: stacks, parent: parent}
}

// LatestID resolves any member id to the last element of its stack, the
// newest version. Ids that are not part of any stack resolve to themselves.
func (index *Index) LatestID(id uuid.UUID) uuid.UUID {
	parentID := id
	if p, ok := index.parent[id]; ok {
		parentID = p
	}
	members, ok := index.stacks[parentID]
	if !ok || len(members) == 0 {
		return id
	}
	return members[len(members)-1]
}

// ParentID resolves any member id to its stack parent; ids that are not part
// of any stack resolve to themselves.
func (index *Index) ParentID(id uuid.UUID) uuid.UUID {
	if p, ok := index.parent[id]; ok {
		return p
	}
	return id
}

// IsParent reports whether id keys a stack with at least two members. Only
// parent ids are visible in grid and gallery views; members are hidden
// behind them.
func IsParent(id uuid.UUID, stacks Stacks) bool {
	return len(stacks[id]) >= 2
}

// Copy returns a deep copy of stacks. Mutators operate on copies so callers
// keep a consistent view of the input map.
func (stacks Stacks) Copy() Stacks {
	copied := make(Stacks, len(stacks))
	for parentID, members := range stacks {
		copied[parentID] = append([]uuid.UUID(nil), members...)
	}
	return copied
}

// MemberOf returns the parent id owning id, if any.
func (stacks Stacks) MemberOf(id uuid.UUID) (uuid.UUID, bool) {
	for parentID, members := range stacks {
		for _, member := range members {
			if member == id {
				return parentID, true
			}
		}
	}
	return uuid.UUID{}, false
}
