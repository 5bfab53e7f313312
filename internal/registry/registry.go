// Package registry stores configuration containers by class and identity.
// It provides a persistent bbolt-backed implementation and an in-memory
// implementation used in tests and embedded callers.
package registry

import (
	"context"

	"github.com/kilupskalvis/wsi/internal/container"
)

// Registry defines the contract for container storage.
// This interface enables swapping the in-memory implementation in for
// testing the importer.
type Registry interface {
	// Lookup operations. FindByID returns (nil, nil) when absent.
	FindByID(ctx context.Context, class container.Class, id string) (*container.Container, error)
	FindByClass(ctx context.Context, class container.Class) ([]*container.Container, error)

	// Add stores a container, replacing any stored entity with the same
	// class and identity.
	Add(ctx context.Context, c *container.Container) error

	// Contains reports whether any stored container of any class uses s
	// as its identity or display name.
	Contains(ctx context.Context, s string) (bool, error)

	// Identity allocation. Results are collision-free against both stored
	// identities and display names across all classes.
	UniqueID(ctx context.Context, base string) (string, error)
	UniqueName(ctx context.Context, base string) (string, error)

	// Active stack tracking
	ActiveStack(ctx context.Context) (string, error)
	SetActiveStack(ctx context.Context, id string) error
}
