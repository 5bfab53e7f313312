// Package container defines the configuration entities handled by WSI
// including machine definitions, materials, profiles, and stacks.
package container

// Class identifies the entity class of a container
type Class string

const (
	ClassDefinition Class = "definition" // Machine definition
	ClassMaterial   Class = "material"   // Material profile
	ClassProfile    Class = "profile"    // Instance profile (user or quality_changes)
	ClassStack      Class = "stack"      // Container stack (machine or extruder)
)

// Classes lists all entity classes in merge dependency order.
// Stacks come last because they reference the other three by identity.
var Classes = []Class{ClassDefinition, ClassMaterial, ClassProfile, ClassStack}

// Kind subtypes profiles and stacks
type Kind string

const (
	KindUser           Kind = "user"            // Per-machine user setting overrides
	KindQualityChanges Kind = "quality_changes" // Named quality tweak profile
	KindMachine        Kind = "machine"         // Global machine stack
	KindExtruder       Kind = "extruder"        // Extruder train stack
)

// Container is one identified configuration entity
type Container struct {
	ID         string   `json:"id"`
	Class      Class    `json:"class"`
	Kind       Kind     `json:"kind,omitempty"`       // Profile/stack subtype
	Name       string   `json:"name"`                 // Display name, not unique
	Version    int      `json:"version,omitempty"`    // Document format version
	MachineID  string   `json:"machineId,omitempty"`  // Owning machine (user profiles)
	ExtruderID string   `json:"extruderId,omitempty"` // Owning extruder (user profiles)
	Position   string   `json:"position,omitempty"`   // Extruder slot (extruder stacks)
	NextID     string   `json:"nextId,omitempty"`     // Extruder to machine link, set during repair
	Containers []string `json:"containers,omitempty"` // Ordered references held by a stack
	Payload    []byte   `json:"payload,omitempty"`    // Original document bytes
}

// WithIdentity returns a copy of the container under a new identity and
// display name. The receiver is left untouched.
func (c *Container) WithIdentity(id, name string) *Container {
	dup := *c
	dup.ID = id
	dup.Name = name
	dup.Containers = append([]string(nil), c.Containers...)
	dup.Payload = append([]byte(nil), c.Payload...)
	return &dup
}

// ReplaceReference swaps oldID for newID in a stack's reference list and
// reports whether anything was replaced.
func (c *Container) ReplaceReference(oldID, newID string) bool {
	replaced := false
	for i, ref := range c.Containers {
		if ref == oldID {
			c.Containers[i] = newID
			replaced = true
		}
	}
	return replaced
}

// IsMachine reports whether the container is a machine stack.
// Stacks without an explicit kind count as machine stacks.
func (c *Container) IsMachine() bool {
	return c.Class == ClassStack && c.Kind != KindExtruder
}

// IsExtruder reports whether the container is an extruder stack
func (c *Container) IsExtruder() bool {
	return c.Class == ClassStack && c.Kind == KindExtruder
}

// OwnerID returns the owning container identity for a user profile,
// preferring the extruder over the machine reference.
func (c *Container) OwnerID() string {
	if c.ExtruderID != "" {
		return c.ExtruderID
	}
	return c.MachineID
}
