package registry

import (
	"sync"

	"github.com/kilupskalvis/wsi/internal/container"
)

// ExtruderIndex tracks extruder stacks registered under their owning
// machine stack by position.
type ExtruderIndex struct {
	mu     sync.RWMutex
	trains map[string]map[string]*container.Container
}

// NewExtruderIndex creates an empty extruder index
func NewExtruderIndex() *ExtruderIndex {
	return &ExtruderIndex{
		trains: make(map[string]map[string]*container.Container),
	}
}

// Register records an extruder stack under a machine stack at the given
// position. A later registration at the same position replaces the earlier
// one.
func (x *ExtruderIndex) Register(machineID, position string, extruder *container.Container) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if x.trains[machineID] == nil {
		x.trains[machineID] = make(map[string]*container.Container)
	}
	x.trains[machineID][position] = extruder
}

// ByMachine returns the position map registered for a machine stack.
// The returned map is a copy.
func (x *ExtruderIndex) ByMachine(machineID string) map[string]*container.Container {
	x.mu.RLock()
	defer x.mu.RUnlock()

	result := make(map[string]*container.Container, len(x.trains[machineID]))
	for pos, ex := range x.trains[machineID] {
		result[pos] = ex
	}
	return result
}
