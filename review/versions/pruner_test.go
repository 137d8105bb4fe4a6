// Copyright (C) 2025 Frameloop, Inc.
// See LICENSE for copying information.

package versions_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frameloop.io/frameloop/review/versions"
)

func allowedSet(ids ...uuid.UUID) map[uuid.UUID]bool {
	allowed := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		allowed[id] = true
	}
	return allowed
}

func TestNormalize(t *testing.T) {
	a, b, c, d := testID(1), testID(2), testID(3), testID(4)
	stacks := versions.Stacks{
		a: {a, b, c},
		d: {d, testID(9)},
	}

	// c and the unknown member fall out; d's stack shrinks below two and
	// is demoted to a plain asset
	result := versions.Normalize(stacks, allowedSet(a, b, d))
	assert.Equal(t, versions.Stacks{a: {a, b}}, result)

	// a disallowed parent drops the whole pair
	result = versions.Normalize(stacks, allowedSet(b, c, d))
	assert.Equal(t, versions.Stacks{}, result)
}

func TestNormalizeIdempotent(t *testing.T) {
	a, b, c, d, e := testID(1), testID(2), testID(3), testID(4), testID(5)

	cases := []struct {
		stacks  versions.Stacks
		allowed map[uuid.UUID]bool
	}{
		{versions.Stacks{}, allowedSet()},
		{versions.Stacks{a: {a, b, c}}, allowedSet(a, b, c)},
		{versions.Stacks{a: {a, b, c}}, allowedSet(a, b)},
		{versions.Stacks{a: {a, b}, c: {c, d, e}}, allowedSet(b, c, d)},
		{versions.Stacks{a: {a, b}, c: {c, d}}, allowedSet()},
	}
	for _, tc := range cases {
		once := versions.Normalize(tc.stacks, tc.allowed)
		twice := versions.Normalize(once, tc.allowed)
		require.Equal(t, once, twice)
	}
}

func TestPruningPolicies(t *testing.T) {
	active, archived, deleted := testID(1), testID(2), testID(3)
	infos := map[uuid.UUID]versions.AssetInfo{
		active:   {Ready: true},
		archived: {Ready: true, Archived: true},
		deleted:  {Ready: true, Deleted: true},
	}

	// active-view pruning drops archived members
	assert.Equal(t, allowedSet(active), versions.ActiveSet(infos))

	// deletion-triggered pruning keeps archived members
	assert.Equal(t, allowedSet(active, archived), versions.LiveSet(infos))

	stacks := versions.Stacks{active: {active, archived, deleted}}
	assert.Equal(t, versions.Stacks{},
		versions.Normalize(stacks, versions.ActiveSet(infos)))
	assert.Equal(t, versions.Stacks{active: {active, archived}},
		versions.Normalize(stacks, versions.LiveSet(infos)))
}
