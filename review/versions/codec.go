// Copyright (C) 2025 Frameloop, Inc.
// See LICENSE for copying information.

package versions

import (
	"encoding/json"

	"github.com/google/uuid"
)

// ParseStacks decodes a persisted stacks payload. Malformed JSON falls back
// to an empty map rather than erroring, so a corrupt row never fails a read
// path. Entries that violate the stack invariants are dropped:
//
//   - lists shorter than two members,
//   - lists whose element 0 is not the parent key,
//   - ids claimed by more than one list,
//   - parents appearing as members of another parent's list (no nesting).
func ParseStacks(data []byte) Stacks {
	if len(data) == 0 {
		return Stacks{}
	}
	var raw map[uuid.UUID][]uuid.UUID
	if err := json.Unmarshal(data, &raw); err != nil {
		return Stacks{}
	}

	claims := make(map[uuid.UUID]int)
	for parentID, members := range raw {
		if len(members) < 2 || members[0] != parentID {
			continue
		}
		for _, member := range members {
			claims[member]++
		}
	}

	result := make(Stacks, len(raw))
	for parentID, members := range raw {
		if len(members) < 2 || members[0] != parentID {
			continue
		}
		valid := true
		seen := make(map[uuid.UUID]bool, len(members))
		for _, member := range members {
			if claims[member] > 1 || seen[member] {
				valid = false
				break
			}
			seen[member] = true
			if member != parentID {
				if _, nested := raw[member]; nested {
					valid = false
					break
				}
			}
		}
		if !valid {
			continue
		}
		result[parentID] = append([]uuid.UUID(nil), members...)
	}
	return result
}

// Encode serializes stacks for persistence.
func (stacks Stacks) Encode() ([]byte, error) {
	data, err := json.Marshal(stacks)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return data, nil
}

// ParseOrder decodes a persisted grid order; malformed payloads fall back
// to an empty order.
func ParseOrder(data []byte) []uuid.UUID {
	if len(data) == 0 {
		return nil
	}
	var order []uuid.UUID
	if err := json.Unmarshal(data, &order); err != nil {
		return nil
	}
	return order
}

// EncodeOrder serializes a grid order for persistence.
func EncodeOrder(order []uuid.UUID) ([]byte, error) {
	data, err := json.Marshal(order)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return data, nil
}
