package strata

import "github.com/pkg/errors"

var (
	// ErrNotRegistered is returned when a view built from raw IDs or a YAML
	// document names a component type that the registry does not declare.
	// The typed helpers (ID, Read, Write, Has, Insert*, Extend*) panic instead.
	ErrNotRegistered = errors.New("strata: component type not registered")

	// ErrDuplicateComponent is returned when a view lists the same component
	// type twice. Insert* and Extend* panic with its message for a shape
	// that repeats a component.
	ErrDuplicateComponent = errors.New("strata: duplicate component in shape")

	// ErrBorrowConflict is returned at descriptor build time when a query or
	// system declares borrows that collide with themselves.
	ErrBorrowConflict = errors.New("strata: conflicting borrows")

	// ErrNonSync is returned when a non-Sync component or resource is borrowed
	// by a parallel system. The planner gives other non-Sync systems a stage
	// of their own rather than returning an error.
	ErrNonSync = errors.New("strata: non-Sync access in parallel context")

	// ErrCorrupt is returned by the deserializer for malformed input.
	ErrCorrupt = errors.New("strata: corrupt serialized world")

	// ErrResourceMissing is returned when a resource view names a resource
	// the world does not hold.
	ErrResourceMissing = errors.New("strata: resource not present")
)
