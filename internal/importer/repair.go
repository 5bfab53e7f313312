package importer

import (
	"context"
	"fmt"

	"github.com/kilupskalvis/wsi/internal/container"
)

// repairReferences is the post-merge pass. Extruder stacks are registered
// under the machine stack and linked to it, every stack reference is
// verified to resolve, change notifications go out machine first, and the
// machine stack becomes the active one.
func (imp *Importer) repairReferences(ctx context.Context, st *importState) error {
	machine := st.machine

	// Step 1: Register extruders and point their next links at the machine
	for _, extruder := range st.extruders {
		imp.extruders.Register(machine.ID, extruder.Position, extruder)
		extruder.NextID = machine.ID
		if err := imp.reg.Add(ctx, extruder); err != nil {
			return err
		}
	}

	// Step 2: Verify every reference resolves before announcing anything
	if err := imp.verifyReferences(ctx, st); err != nil {
		return err
	}

	// Step 3: Change notifications, machine stack first, then extruders
	for _, ref := range machine.Containers {
		imp.bus.PublishContainersChanged(machine.ID, ref)
	}
	for _, extruder := range st.extruders {
		for _, ref := range extruder.Containers {
			imp.bus.PublishContainersChanged(extruder.ID, ref)
		}
	}

	// Step 4: The imported machine stack becomes the active one
	if err := imp.reg.SetActiveStack(ctx, machine.ID); err != nil {
		return err
	}
	imp.bus.PublishStackActivated(machine.ID)

	imp.logger.Info("workspace repaired and activated",
		"machine", machine.ID,
		"extruders", len(st.extruders))
	return nil
}

// verifyReferences checks that every reference held by the imported stacks
// resolves to a stored entity of some class.
func (imp *Importer) verifyReferences(ctx context.Context, st *importState) error {
	stacks := append([]*container.Container{st.machine}, st.extruders...)
	for _, stack := range stacks {
		for _, ref := range stack.Containers {
			found, err := imp.containerExists(ctx, ref)
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("%w: stack %s references %s which is not stored",
					ErrCorrupt, stack.ID, ref)
			}
		}
	}
	return nil
}

// containerExists probes every entity class for one identity
func (imp *Importer) containerExists(ctx context.Context, id string) (bool, error) {
	for _, class := range container.Classes {
		c, err := imp.reg.FindByID(ctx, class, id)
		if err != nil {
			return false, err
		}
		if c != nil {
			return true, nil
		}
	}
	return false, nil
}
