// Package importer merges workspace bundles into the container store. The
// flow runs in two halves: a read-only pre-read that detects identity
// conflicts and collects the actor's resolution, then the main read that
// loads scene content, merges configuration entities class by class, and
// repairs references so the imported machine stack is usable.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/kilupskalvis/wsi/internal/container"
	"github.com/kilupskalvis/wsi/internal/events"
	"github.com/kilupskalvis/wsi/internal/mesh"
	"github.com/kilupskalvis/wsi/internal/prefs"
	"github.com/kilupskalvis/wsi/internal/registry"
	"github.com/kilupskalvis/wsi/internal/workspace"
)

// Importer drives the workspace bundle import flow.
type Importer struct {
	reg       registry.Registry
	mesh      mesh.Reader
	resolver  StrategyResolver
	extruders *registry.ExtruderIndex
	prefs     *prefs.Store
	bus       *events.Bus
	logger    *slog.Logger
}

// Options configures an Importer. Registry and Mesh are required. A nil
// Resolver cancels on any conflict, a nil Prefs skips the preference copy,
// and the remaining collaborators fall back to working defaults.
type Options struct {
	Registry  registry.Registry
	Mesh      mesh.Reader
	Resolver  StrategyResolver
	Extruders *registry.ExtruderIndex
	Prefs     *prefs.Store
	Bus       *events.Bus
	Logger    *slog.Logger
}

// New creates an Importer from the given collaborators.
func New(opts Options) *Importer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	bus := opts.Bus
	if bus == nil {
		bus = events.NewBus(logger)
	}
	extruders := opts.Extruders
	if extruders == nil {
		extruders = registry.NewExtruderIndex()
	}
	resolver := opts.Resolver
	if resolver == nil {
		resolver = FixedResolver{Strategy: container.StrategyCancel}
	}

	return &Importer{
		reg:       opts.Registry,
		mesh:      opts.Mesh,
		resolver:  resolver,
		extruders: extruders,
		prefs:     opts.Prefs,
		bus:       bus,
		logger:    logger,
	}
}

// importState carries the per-import scratch state through the merge phases
type importState struct {
	strategies container.StrategySet
	ids        *idAllocator
	pending    []*pendingRename
	machine    *container.Container
	extruders  []*container.Container
	stats      Stats
}

// pendingRename is one quality_changes profile waiting for phase two of the
// duplicate-as-new plan, which runs once the stacks are known.
type pendingRename struct {
	oldID    string
	incoming *container.Container
}

// PreRead runs the pre-import gate: geometry acceptance, the read-only
// conflict scan, and the strategy decision when conflicts exist. The store
// is not touched.
func (imp *Importer) PreRead(ctx context.Context, path string) (*PreReadOutcome, error) {
	// Step 1: The geometry collaborator vets the bundle first
	if err := imp.mesh.PreRead(ctx, path); err != nil {
		imp.logger.Warn("geometry reader rejected the bundle", "path", path, "error", err)
		return &PreReadOutcome{
			Status:     StatusFailed,
			Diagnostic: fmt.Sprintf("%v: %v", ErrGeometryRejected, err),
		}, nil
	}

	// Step 2: Scan the bundle for identity collisions
	arch, err := workspace.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableArchive, err)
	}
	defer arch.Close()

	report, err := imp.DetectConflicts(ctx, arch)
	if err != nil {
		if errors.Is(err, ErrCorrupt) {
			return &PreReadOutcome{Status: StatusFailed, Diagnostic: err.Error()}, nil
		}
		return nil, err
	}

	// Step 3: Without conflicts there is no decision to make
	if !report.HasConflicts() {
		return &PreReadOutcome{Status: StatusAccepted, Report: report}, nil
	}

	// Step 4: Block on the resolution prompt
	strategies, err := imp.resolver.Resolve(ctx, report)
	if err != nil {
		if errors.Is(err, ErrImportCancelled) {
			imp.logger.Info("import cancelled at conflict prompt", "path", path)
			return &PreReadOutcome{Status: StatusCancelled, Report: report}, nil
		}
		return nil, err
	}

	return &PreReadOutcome{Status: StatusAccepted, Report: report, Strategies: strategies}, nil
}

// Read runs the main read pass: scene load, the preference copy, the
// class-ordered merge, and reference repair. Strategies come from a prior
// PreRead; nil means no conflict was detected and entities merge
// add-if-absent.
func (imp *Importer) Read(ctx context.Context, path string, strategies container.StrategySet) ([]mesh.SceneNode, *ReadSummary, error) {
	// Step 1: Load the scene content
	nodes, err := imp.mesh.Read(ctx, path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrGeometryRejected, err)
	}
	if nodes == nil {
		nodes = []mesh.SceneNode{}
	}

	arch, err := workspace.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnreadableArchive, err)
	}
	defer arch.Close()

	// Step 2: Copy workspace preferences through the side channel
	if imp.prefs != nil {
		if err := prefs.CopyFromBundle(arch, imp.prefs, imp.bus, imp.logger); err != nil {
			return nil, nil, err
		}
	} else {
		imp.logger.Debug("no preference store configured, skipping preference copy")
	}

	st := &importState{
		strategies: strategies,
		ids:        newIDAllocator(imp.reg),
	}

	// Step 3: Merge entity classes in dependency order
	if err := imp.importDefinitions(ctx, arch, st); err != nil {
		return nil, nil, err
	}
	if err := imp.importMaterials(ctx, arch, st); err != nil {
		return nil, nil, err
	}
	if err := imp.importProfiles(ctx, arch, st); err != nil {
		return nil, nil, err
	}
	if err := imp.importStacks(ctx, arch, st); err != nil {
		return nil, nil, err
	}

	// Step 4: Apply the deferred quality_changes rename plan
	if err := imp.applyPendingRenames(ctx, st); err != nil {
		return nil, nil, err
	}

	// Step 5: Repair references and activate the machine stack
	if err := imp.repairReferences(ctx, st); err != nil {
		return nil, nil, err
	}

	summary := &ReadSummary{Stats: st.stats}
	if st.machine != nil {
		summary.MachineID = st.machine.ID
	}
	return nodes, summary, nil
}

// Import runs the whole flow for one bundle and folds the error taxonomy
// into the three boundary outcomes. Store and infrastructure failures stay
// ordinary errors.
func (imp *Importer) Import(ctx context.Context, path string) (*Result, error) {
	result := &Result{RunID: uuid.NewString()}
	imp.logger.Info("importing workspace bundle", "run", result.RunID, "path", path)

	pre, err := imp.PreRead(ctx, path)
	if err != nil {
		if diagnostic := failureDiagnostic(err); diagnostic != "" {
			result.Status = StatusFailed
			result.Diagnostic = diagnostic
			return result, nil
		}
		return nil, err
	}
	if pre.Status != StatusAccepted {
		result.Status = pre.Status
		result.Report = pre.Report
		result.Diagnostic = pre.Diagnostic
		return result, nil
	}
	result.Report = pre.Report

	nodes, summary, err := imp.Read(ctx, path, pre.Strategies)
	if err != nil {
		if diagnostic := failureDiagnostic(err); diagnostic != "" {
			result.Status = StatusFailed
			result.Diagnostic = diagnostic
			return result, nil
		}
		return nil, err
	}

	result.Status = StatusAccepted
	result.Nodes = nodes
	result.MachineID = summary.MachineID
	result.Stats = summary.Stats
	return result, nil
}

// failureDiagnostic maps taxonomy errors onto the failed outcome. Any other
// error returns empty and stays an error.
func failureDiagnostic(err error) string {
	if errors.Is(err, ErrCorrupt) ||
		errors.Is(err, ErrUnreadableArchive) ||
		errors.Is(err, ErrGeometryRejected) {
		return err.Error()
	}
	return ""
}

// importDefinitions adds definitions that are not stored yet. A stored
// definition always wins and the incoming copy is discarded unparsed.
func (imp *Importer) importDefinitions(ctx context.Context, arch *workspace.Archive, st *importState) error {
	added, err := imp.addAbsentEntries(ctx, arch, container.ClassDefinition)
	if err != nil {
		return err
	}
	st.stats.DefinitionsAdded = added
	return nil
}

// importMaterials mirrors definitions: add-if-absent only.
func (imp *Importer) importMaterials(ctx context.Context, arch *workspace.Archive, st *importState) error {
	added, err := imp.addAbsentEntries(ctx, arch, container.ClassMaterial)
	if err != nil {
		return err
	}
	st.stats.MaterialsAdded = added
	return nil
}

// addAbsentEntries adds entries of one class that are not stored yet and
// returns how many were added.
func (imp *Importer) addAbsentEntries(ctx context.Context, arch *workspace.Archive, class container.Class) (int, error) {
	added := 0
	for _, entry := range arch.EntriesByClass(class) {
		existing, err := imp.reg.FindByID(ctx, class, entry.ID)
		if err != nil {
			return added, err
		}
		if existing != nil {
			imp.logger.Debug("entity already stored, keeping existing",
				"class", string(class), "id", entry.ID)
			continue
		}

		incoming, err := imp.parseEntry(arch, entry)
		if err != nil {
			return added, err
		}
		if err := imp.reg.Add(ctx, incoming); err != nil {
			return added, err
		}
		added++
	}
	return added, nil
}

// importProfiles merges user and quality_changes profiles. Quality changes
// under the new strategy are deferred until the stacks are known.
func (imp *Importer) importProfiles(ctx context.Context, arch *workspace.Archive, st *importState) error {
	for _, entry := range arch.EntriesByClass(container.ClassProfile) {
		incoming, err := imp.parseEntry(arch, entry)
		if err != nil {
			return err
		}

		switch incoming.Kind {
		case container.KindUser:
			if err := imp.mergeUserProfile(ctx, st, incoming); err != nil {
				return err
			}
		case container.KindQualityChanges:
			if err := imp.mergeQualityChanges(ctx, st, incoming); err != nil {
				return err
			}
		default:
			imp.logger.Debug("skipping profile of unhandled kind",
				"id", incoming.ID, "kind", string(incoming.Kind))
		}
	}
	return nil
}

// mergeUserProfile applies the machine-domain strategy to one user profile.
// A duplicated profile takes its identity from the owning stack's allocated
// replacement so the pair stays linked.
func (imp *Importer) mergeUserProfile(ctx context.Context, st *importState, incoming *container.Container) error {
	existing, err := imp.reg.FindByID(ctx, container.ClassProfile, incoming.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		if err := imp.reg.Add(ctx, incoming); err != nil {
			return err
		}
		st.stats.ProfilesAdded++
		return nil
	}

	switch st.strategies.For(container.DomainMachine) {
	case container.StrategyOverride:
		if err := imp.reg.Add(ctx, incoming); err != nil {
			return err
		}
		st.stats.ProfilesOverwritten++
	case container.StrategyNew:
		owner := incoming.OwnerID()
		if owner == "" {
			imp.logger.Warn("user profile names no owning stack, skipping duplicate", "id", incoming.ID)
			return nil
		}
		newOwner, err := st.ids.NewID(ctx, owner)
		if err != nil {
			return err
		}
		duplicate := incoming.WithIdentity(newOwner+"_current_settings", incoming.Name)
		if err := imp.reg.Add(ctx, duplicate); err != nil {
			return err
		}
		st.stats.ProfilesRenamed++
	default:
		imp.logger.Debug("user profile already stored and no strategy recorded, keeping existing", "id", incoming.ID)
	}
	return nil
}

// mergeQualityChanges applies the quality_changes-domain strategy to one
// quality tweak profile. Under the new strategy this is only phase one:
// the profile is collected and renamed after the stacks are loaded.
func (imp *Importer) mergeQualityChanges(ctx context.Context, st *importState, incoming *container.Container) error {
	existing, err := imp.reg.FindByID(ctx, container.ClassProfile, incoming.ID)
	if err != nil {
		return err
	}
	if existing == nil {
		if err := imp.reg.Add(ctx, incoming); err != nil {
			return err
		}
		st.stats.ProfilesAdded++
		return nil
	}

	switch st.strategies.For(container.DomainQualityChanges) {
	case container.StrategyOverride:
		if err := imp.reg.Add(ctx, incoming); err != nil {
			return err
		}
		st.stats.ProfilesOverwritten++
	case container.StrategyNew:
		st.pending = append(st.pending, &pendingRename{oldID: incoming.ID, incoming: incoming})
	default:
		imp.logger.Debug("quality changes profile already stored and no strategy recorded, keeping existing", "id", incoming.ID)
	}
	return nil
}

// importStacks merges the stacks last and classifies the machine stack and
// its extruder stacks for the repair pass. A usable bundle carries exactly
// one machine stack.
func (imp *Importer) importStacks(ctx context.Context, arch *workspace.Archive, st *importState) error {
	for _, entry := range arch.EntriesByClass(container.ClassStack) {
		incoming, err := imp.parseEntry(arch, entry)
		if err != nil {
			return err
		}

		stack, err := imp.mergeStack(ctx, st, incoming)
		if err != nil {
			return err
		}

		if stack.IsExtruder() {
			st.extruders = append(st.extruders, stack)
			continue
		}
		if st.machine != nil {
			return fmt.Errorf("%w: bundle carries more than one machine stack (%s and %s)",
				ErrCorrupt, st.machine.ID, stack.ID)
		}
		st.machine = stack
	}

	if st.machine == nil {
		return fmt.Errorf("%w: bundle carries no machine stack", ErrCorrupt)
	}
	return nil
}

// mergeStack applies the machine-domain strategy to one stack and returns
// the stack the import continues with.
func (imp *Importer) mergeStack(ctx context.Context, st *importState, incoming *container.Container) (*container.Container, error) {
	existing, err := imp.reg.FindByID(ctx, container.ClassStack, incoming.ID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		if err := imp.reg.Add(ctx, incoming); err != nil {
			return nil, err
		}
		st.stats.StacksAdded++
		return incoming, nil
	}

	switch st.strategies.For(container.DomainMachine) {
	case container.StrategyOverride:
		if err := imp.reg.Add(ctx, incoming); err != nil {
			return nil, err
		}
		st.stats.StacksOverwritten++
		return incoming, nil
	case container.StrategyNew:
		newID, err := st.ids.NewID(ctx, incoming.ID)
		if err != nil {
			return nil, err
		}
		newName, err := imp.reg.UniqueName(ctx, incoming.Name)
		if err != nil {
			return nil, err
		}
		duplicate := incoming.WithIdentity(newID, newName)
		if err := imp.reg.Add(ctx, duplicate); err != nil {
			return nil, err
		}
		st.stats.StacksRenamed++
		return duplicate, nil
	default:
		imp.logger.Debug("stack already stored and no strategy recorded, keeping existing", "id", incoming.ID)
		return existing, nil
	}
}

// applyPendingRenames runs phase two of the quality_changes duplicate plan.
// Each pending profile is stored under a fresh identity and unique name,
// then every stack reference to the old identity is rewritten and the
// changed stacks are stored again.
func (imp *Importer) applyPendingRenames(ctx context.Context, st *importState) error {
	if len(st.pending) == 0 {
		return nil
	}

	stacks := make([]*container.Container, 0, 1+len(st.extruders))
	if st.machine != nil {
		stacks = append(stacks, st.machine)
	}
	stacks = append(stacks, st.extruders...)

	for _, p := range st.pending {
		newID, err := st.ids.NewID(ctx, p.oldID)
		if err != nil {
			return err
		}
		newName, err := imp.reg.UniqueName(ctx, p.incoming.Name)
		if err != nil {
			return err
		}

		duplicate := p.incoming.WithIdentity(newID, newName)
		if err := imp.reg.Add(ctx, duplicate); err != nil {
			return err
		}
		st.stats.ProfilesRenamed++

		for _, stack := range stacks {
			if !stack.ReplaceReference(p.oldID, newID) {
				continue
			}
			if err := imp.reg.Add(ctx, stack); err != nil {
				return err
			}
			imp.logger.Debug("stack reference rewritten",
				"stack", stack.ID, "old", p.oldID, "new", newID)
		}
	}
	return nil
}
