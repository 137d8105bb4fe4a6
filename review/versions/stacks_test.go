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

func testID(n byte) uuid.UUID {
	var id uuid.UUID
	id[0] = 0x10
	id[15] = n
	return id
}

func TestIndexLatestID(t *testing.T) {
	a, b, c, x := testID(1), testID(2), testID(3), testID(4)
	stacks := versions.Stacks{
		a: {a, b, c},
	}
	index := versions.NewIndex(stacks)

	// every member resolves to the newest version, the last element
	assert.Equal(t, c, index.LatestID(a))
	assert.Equal(t, c, index.LatestID(b))
	assert.Equal(t, c, index.LatestID(c))

	// non-members resolve to themselves
	assert.Equal(t, x, index.LatestID(x))
}

func TestIndexLatestIDUnrelatedStackInvariance(t *testing.T) {
	a, b, c := testID(1), testID(2), testID(3)
	p, q := testID(11), testID(12)

	stacks := versions.Stacks{a: {a, b, c}}
	before := versions.NewIndex(stacks)

	withUnrelated := stacks.Copy()
	withUnrelated[p] = []uuid.UUID{p, q}
	after := versions.NewIndex(withUnrelated)

	for _, id := range []uuid.UUID{a, b, c, testID(9)} {
		assert.Equal(t, before.LatestID(id), after.LatestID(id))
	}
}

func TestIndexParentID(t *testing.T) {
	a, b := testID(1), testID(2)
	index := versions.NewIndex(versions.Stacks{a: {a, b}})

	assert.Equal(t, a, index.ParentID(b))
	assert.Equal(t, a, index.ParentID(a))
	assert.Equal(t, testID(7), index.ParentID(testID(7)))
}

func TestIsParent(t *testing.T) {
	a, b := testID(1), testID(2)
	stacks := versions.Stacks{
		a:         {a, b},
		testID(5): {testID(5)},
	}

	assert.True(t, versions.IsParent(a, stacks))
	// a single-member list is not a stack
	assert.False(t, versions.IsParent(testID(5), stacks))
	assert.False(t, versions.IsParent(b, stacks))
}

func TestStacksCopy(t *testing.T) {
	a, b := testID(1), testID(2)
	stacks := versions.Stacks{a: {a, b}}

	copied := stacks.Copy()
	copied[a][1] = testID(9)
	delete(copied, a)

	require.Equal(t, versions.Stacks{a: {a, b}}, stacks)
}
