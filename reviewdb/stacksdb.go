// Copyright (C) 2025 Frameloop, Inc.
// See LICENSE for copying information.

package reviewdb

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"frameloop.io/frameloop/review/versions"
)

// stacksDB implements versions.DB on the stacks table. Payloads go through
// the validating codec on every read, so a malformed row degrades to an
// empty map instead of failing the request.
type stacksDB struct {
	db *DB
}

// Get returns the stacks map and grid order for a tenant.
func (s *stacksDB) Get(ctx context.Context, tenantID uuid.UUID) (_ versions.Stacks, _ []uuid.UUID, err error) {
	defer mon.Task()(&ctx)(&err)

	var payload, gridOrder string
	err = s.db.db.QueryRowContext(ctx, s.db.Rebind(`
		SELECT payload, grid_order FROM stacks WHERE tenant_id = ?`),
		tenantID.String()).Scan(&payload, &gridOrder)
	if errors.Is(err, sql.ErrNoRows) {
		return versions.Stacks{}, nil, nil
	}
	if err != nil {
		return nil, nil, Error.Wrap(err)
	}
	return versions.ParseStacks([]byte(payload)), versions.ParseOrder([]byte(gridOrder)), nil
}

// Set replaces the stacks map and grid order for a tenant.
func (s *stacksDB) Set(ctx context.Context, tenantID uuid.UUID, stacks versions.Stacks, gridOrder []uuid.UUID) (err error) {
	defer mon.Task()(&ctx)(&err)

	payload, err := stacks.Encode()
	if err != nil {
		return Error.Wrap(err)
	}
	if gridOrder == nil {
		gridOrder = []uuid.UUID{}
	}
	order, err := versions.EncodeOrder(gridOrder)
	if err != nil {
		return Error.Wrap(err)
	}
	_, err = s.db.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO stacks ( tenant_id, payload, grid_order )
		VALUES ( ?, ?, ? )
		ON CONFLICT ( tenant_id ) DO UPDATE SET
			payload = excluded.payload,
			grid_order = excluded.grid_order`),
		tenantID.String(), string(payload), string(order))
	return Error.Wrap(err)
}
