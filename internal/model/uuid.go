// Package model defines the persistent domain records owned by the Store
// (internal/store) plus the transient runtime mirrors (CharacterState,
// DemonState) held by a session. Records reference each other by UUID,
// never by pointer, so the object graph never cycles (see DESIGN.md,
// "cyclic object graph -> arena + UUID indices").
package model

import "github.com/google/uuid"

// UUID addresses every long-lived Store record.
type UUID = uuid.UUID

// NilUUID is the zero-value UUID, meaning "no reference" in fields like
// ClanID or DemonQuestID.
var NilUUID UUID

// NewUUID allocates a fresh random UUID for a new Store record.
func NewUUID() UUID {
	return uuid.New()
}
