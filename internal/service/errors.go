package service

import "errors"

var (
	// ErrConflictNotFound is returned when a conflict id does not exist for
	// the active tenant.
	ErrConflictNotFound = errors.New("conflict not found")

	// ErrConflictNotPending is returned when resolving a conflict that has
	// already been resolved.
	ErrConflictNotPending = errors.New("conflict is not pending")

	// errDropItem aborts an item's transaction while keeping the per-item
	// result already recorded (escalated conflicts, rule violations).
	errDropItem = errors.New("drop item")
)
