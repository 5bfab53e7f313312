package importer

import (
	"context"
	"fmt"

	"github.com/kilupskalvis/wsi/internal/container"
	"github.com/kilupskalvis/wsi/internal/workspace"
)

// DetectConflicts runs the read-only pre-import scan. Every stack entry and
// every quality_changes profile entry is checked for an identity collision
// against the store; the store is never mutated. The scan always covers the
// whole bundle so the report lists every collision, not just the first.
func (imp *Importer) DetectConflicts(ctx context.Context, arch *workspace.Archive) (*container.ConflictReport, error) {
	report := &container.ConflictReport{}

	// Stacks collide on identity alone, no parsing needed
	for _, entry := range arch.EntriesByClass(container.ClassStack) {
		existing, err := imp.reg.FindByID(ctx, container.ClassStack, entry.ID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			continue
		}
		report.Stacks = append(report.Stacks, container.StackConflict{
			ID:           entry.ID,
			Path:         entry.Path,
			ExistingName: existing.Name,
		})
	}

	// Profiles must be parsed transiently to learn their kind. Only
	// quality_changes profiles participate in conflict detection.
	for _, entry := range arch.EntriesByClass(container.ClassProfile) {
		incoming, err := imp.parseEntry(arch, entry)
		if err != nil {
			return nil, err
		}
		if incoming.Kind != container.KindQualityChanges {
			continue
		}

		existing, err := imp.reg.FindByID(ctx, container.ClassProfile, entry.ID)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			continue
		}
		report.Profiles = append(report.Profiles, container.ProfileConflict{
			ID:           entry.ID,
			Path:         entry.Path,
			ExistingName: existing.Name,
		})
	}

	imp.logger.Debug("conflict scan finished",
		"path", arch.Path(),
		"stack_conflicts", len(report.Stacks),
		"profile_conflicts", len(report.Profiles))
	return report, nil
}

// parseEntry reads and deserializes one archive entry. A payload that does
// not deserialize marks the bundle corrupt.
func (imp *Importer) parseEntry(arch *workspace.Archive, entry workspace.Entry) (*container.Container, error) {
	payload, err := arch.ReadAll(entry.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	c, err := container.Parse(entry.Class, entry.ID, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return c, nil
}
