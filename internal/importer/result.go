package importer

import (
	"github.com/kilupskalvis/wsi/internal/container"
	"github.com/kilupskalvis/wsi/internal/mesh"
)

// Status is the boundary outcome of an import run
type Status string

const (
	StatusAccepted  Status = "accepted"  // Import completed and scene nodes were produced
	StatusCancelled Status = "cancelled" // Actor aborted at the conflict prompt
	StatusFailed    Status = "failed"    // Bundle was rejected or found corrupt
)

// Stats counts the store mutations performed by one import
type Stats struct {
	DefinitionsAdded    int `json:"definitions_added"`
	MaterialsAdded      int `json:"materials_added"`
	ProfilesAdded       int `json:"profiles_added"`
	ProfilesOverwritten int `json:"profiles_overwritten"`
	ProfilesRenamed     int `json:"profiles_renamed"`
	StacksAdded         int `json:"stacks_added"`
	StacksOverwritten   int `json:"stacks_overwritten"`
	StacksRenamed       int `json:"stacks_renamed"`
}

// Result is the outcome of one import run
type Result struct {
	RunID      string                    `json:"run_id"`
	Status     Status                    `json:"status"`
	Nodes      []mesh.SceneNode          `json:"nodes,omitempty"`
	MachineID  string                    `json:"machine_id,omitempty"`
	Report     *container.ConflictReport `json:"report,omitempty"`
	Stats      Stats                     `json:"stats"`
	Diagnostic string                    `json:"diagnostic,omitempty"`
}

// PreReadOutcome is the decision produced by the pre-read gate. Strategies
// is nil when the bundle has no conflicts or the outcome is not accepted.
type PreReadOutcome struct {
	Status     Status
	Report     *container.ConflictReport
	Strategies container.StrategySet
	Diagnostic string
}

// ReadSummary reports what the main read pass committed to the store
type ReadSummary struct {
	MachineID string
	Stats     Stats
}
