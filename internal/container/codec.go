package container

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// document mirrors the TOML layout of a serialized container. Stacks list
// their references in a [containers] table keyed by slot position. Setting
// values under [values] stay inside the opaque payload.
type document struct {
	General struct {
		Name    string `toml:"name"`
		Version int    `toml:"version"`
	} `toml:"general"`
	Metadata struct {
		Kind     string `toml:"kind"`
		Machine  string `toml:"machine"`
		Extruder string `toml:"extruder"`
		Position string `toml:"position"`
	} `toml:"metadata"`
	Containers map[string]string `toml:"containers"`
}

// Parse deserializes a container document into an entity of the given
// class under the given identity. The identity is final: duplication under
// another identity goes through WithIdentity. The raw document bytes are
// retained as the opaque payload.
func Parse(class Class, id string, payload []byte) (*Container, error) {
	var doc document
	if err := toml.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse %s %q: %w", class, id, err)
	}

	refs, err := orderedRefs(doc.Containers)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s %q: %w", class, id, err)
	}

	c := &Container{
		ID:         id,
		Class:      class,
		Name:       doc.General.Name,
		Version:    doc.General.Version,
		Kind:       Kind(doc.Metadata.Kind),
		MachineID:  doc.Metadata.Machine,
		ExtruderID: doc.Metadata.Extruder,
		Position:   doc.Metadata.Position,
		Containers: refs,
		Payload:    append([]byte(nil), payload...),
	}
	if c.Name == "" {
		c.Name = id
	}
	if c.Class == ClassStack && c.Kind == "" {
		c.Kind = KindMachine
	}
	return c, nil
}

// orderedRefs flattens the [containers] table into a slice ordered by its
// numeric slot keys
func orderedRefs(table map[string]string) ([]string, error) {
	if len(table) == 0 {
		return nil, nil
	}

	slots := make([]int, 0, len(table))
	bySlot := make(map[int]string, len(table))
	for key, ref := range table {
		slot, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("container slot %q is not a number", key)
		}
		bySlot[slot] = ref
		slots = append(slots, slot)
	}
	sort.Ints(slots)

	refs := make([]string, 0, len(slots))
	for _, slot := range slots {
		refs = append(refs, bySlot[slot])
	}
	return refs, nil
}
