package importer

import (
	"context"

	"github.com/kilupskalvis/wsi/internal/registry"
)

// idAllocator hands out collision-free identities during one import. The
// first request for an old identity allocates a fresh one; later requests
// return the same answer, so a stack and the profiles that reference it
// agree on the replacement.
//
// Allocated identities are also reserved locally. The store only learns a
// new identity when its container is added, which can happen well after
// allocation, and two old identities must never share a replacement.
type idAllocator struct {
	reg      registry.Registry
	mapping  map[string]string
	reserved map[string]bool
}

func newIDAllocator(reg registry.Registry) *idAllocator {
	return &idAllocator{
		reg:      reg,
		mapping:  make(map[string]string),
		reserved: make(map[string]bool),
	}
}

// NewID returns the replacement identity for old, allocating on first use
func (a *idAllocator) NewID(ctx context.Context, old string) (string, error) {
	if id, ok := a.mapping[old]; ok {
		return id, nil
	}

	id, err := registry.NextID(old, func(candidate string) (bool, error) {
		if a.reserved[candidate] {
			return true, nil
		}
		return a.reg.Contains(ctx, candidate)
	})
	if err != nil {
		return "", err
	}

	a.mapping[old] = id
	a.reserved[id] = true
	return id, nil
}
