package registry

import (
	"context"
	"sort"

	"github.com/kilupskalvis/wsi/internal/container"
)

// Memory is an in-memory Registry implementation used in tests and by
// embedded callers that do not need persistence.
type Memory struct {
	// Containers stores entities by "class/id" key
	Containers map[string]*container.Container
	// Err can be set to make methods return an error
	Err error

	active string
}

// NewMemory creates an empty in-memory registry
func NewMemory() *Memory {
	return &Memory{
		Containers: make(map[string]*container.Container),
	}
}

// containerKey builds the map key for a class and identity
func containerKey(class container.Class, id string) string {
	return string(class) + "/" + id
}

// Seed adds a container directly, bypassing error injection.
func (m *Memory) Seed(c *container.Container) {
	m.Containers[containerKey(c.Class, c.ID)] = c
}

// FindByID returns the stored container, or (nil, nil) when absent.
func (m *Memory) FindByID(ctx context.Context, class container.Class, id string) (*container.Container, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Containers[containerKey(class, id)], nil
}

// FindByClass returns all stored containers of one class sorted by identity.
func (m *Memory) FindByClass(ctx context.Context, class container.Class) ([]*container.Container, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	var result []*container.Container
	for _, c := range m.Containers {
		if c.Class == class {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// Add stores a container, replacing any entity with the same class and identity.
func (m *Memory) Add(ctx context.Context, c *container.Container) error {
	if m.Err != nil {
		return m.Err
	}
	m.Containers[containerKey(c.Class, c.ID)] = c
	return nil
}

// Contains reports whether any stored container uses s as identity or name.
func (m *Memory) Contains(ctx context.Context, s string) (bool, error) {
	if m.Err != nil {
		return false, m.Err
	}
	for _, c := range m.Containers {
		if c.ID == s || c.Name == s {
			return true, nil
		}
	}
	return false, nil
}

// UniqueID returns a collision-free identity derived from base
func (m *Memory) UniqueID(ctx context.Context, base string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return NextID(base, func(candidate string) (bool, error) {
		return m.Contains(ctx, candidate)
	})
}

// UniqueName returns a collision-free display name derived from base
func (m *Memory) UniqueName(ctx context.Context, base string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return NextName(base, func(candidate string) (bool, error) {
		return m.Contains(ctx, candidate)
	})
}

// ActiveStack returns the active machine stack identity, empty when unset.
func (m *Memory) ActiveStack(ctx context.Context) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	return m.active, nil
}

// SetActiveStack records the active machine stack identity
func (m *Memory) SetActiveStack(ctx context.Context, id string) error {
	if m.Err != nil {
		return m.Err
	}
	m.active = id
	return nil
}

// Verify Memory implements Registry
var _ Registry = (*Memory)(nil)
