package importer

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilupskalvis/wsi/internal/container"
	"github.com/kilupskalvis/wsi/internal/events"
	"github.com/kilupskalvis/wsi/internal/mesh"
	"github.com/kilupskalvis/wsi/internal/prefs"
	"github.com/kilupskalvis/wsi/internal/registry"
	"github.com/kilupskalvis/wsi/internal/workspace"
)

// writeBundle builds a zip bundle in a temp dir from path -> content pairs
func writeBundle(t *testing.T, members map[string]string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "bundle.3mf")
	f, err := os.Create(path)
	require.NoError(t, err)

	zw := zip.NewWriter(f)
	for name, content := range members {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	return path
}

// stackDoc serializes a stack document
func stackDoc(name, kind, position string, refs ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[general]\nname = %q\nversion = 4\n\n[metadata]\nkind = %q\n", name, kind)
	if position != "" {
		fmt.Fprintf(&b, "position = %q\n", position)
	}
	if len(refs) > 0 {
		b.WriteString("\n[containers]\n")
		for slot, ref := range refs {
			fmt.Fprintf(&b, "%d = %q\n", slot, ref)
		}
	}
	return b.String()
}

// profileDoc serializes a profile document
func profileDoc(name, kind, machine, extruder string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[general]\nname = %q\nversion = 4\n\n[metadata]\nkind = %q\n", name, kind)
	if machine != "" {
		fmt.Fprintf(&b, "machine = %q\n", machine)
	}
	if extruder != "" {
		fmt.Fprintf(&b, "extruder = %q\n", extruder)
	}
	b.WriteString("\n[values]\nlayer_height = \"0.2\"\n")
	return b.String()
}

// plainDoc serializes a definition or material document
func plainDoc(name string) string {
	return fmt.Sprintf("[general]\nname = %q\nversion = 4\n", name)
}

// standardMembers returns the members of a one-extruder workspace bundle
func standardMembers() map[string]string {
	return map[string]string{
		"3D/3dmodel.model":                     "<model/>",
		"Config/printer_a_def.definition.toml": plainDoc("Printer A Definition"),
		"Config/generic_pla.material.toml":     plainDoc("Generic PLA"),
		"Config/printer_a_current_settings.profile.toml": profileDoc(
			"printer_a_current_settings", "user", "printer_a", ""),
		"Config/printer_a_extruder_current_settings.profile.toml": profileDoc(
			"printer_a_extruder_current_settings", "user", "printer_a", "printer_a_extruder"),
		"Config/fast_print.profile.toml": profileDoc("Fast Print", "quality_changes", "printer_a", ""),
		"Config/printer_a.stack.toml": stackDoc("Printer A", "machine", "",
			"printer_a_current_settings", "fast_print", "generic_pla", "printer_a_def"),
		"Config/printer_a_extruder.stack.toml": stackDoc("Extruder 1", "extruder", "0",
			"printer_a_extruder_current_settings", "fast_print", "generic_pla", "printer_a_def"),
	}
}

// recordingResolver counts prompt invocations and answers with a canned set
type recordingResolver struct {
	calls int
	set   container.StrategySet
	err   error
}

func (r *recordingResolver) Resolve(ctx context.Context, report *container.ConflictReport) (container.StrategySet, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	return r.set, nil
}

// newTestImporter builds an importer over the given registry with geometry
// stubbed out and an event recorder attached
func newTestImporter(t *testing.T, reg registry.Registry, resolver StrategyResolver) (*Importer, *events.Recorder) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := events.NewBus(logger)
	recorder := events.NewRecorder(bus)

	imp := New(Options{
		Registry: reg,
		Mesh: &mesh.MockReader{Nodes: []mesh.SceneNode{
			{Name: "Calibration Cube", Vertices: 8, Triangles: 12},
		}},
		Resolver: resolver,
		Bus:      bus,
		Logger:   logger,
	})
	return imp, recorder
}

func TestImport_FreshStore(t *testing.T) {
	reg := registry.NewMemory()
	imp, _ := newTestImporter(t, reg, nil)
	ctx := context.Background()

	result, err := imp.Import(ctx, writeBundle(t, standardMembers()))
	require.NoError(t, err)

	assert.Equal(t, StatusAccepted, result.Status)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "printer_a", result.MachineID)
	require.Len(t, result.Nodes, 1)
	assert.Equal(t, "Calibration Cube", result.Nodes[0].Name)

	assert.Equal(t, 1, result.Stats.DefinitionsAdded)
	assert.Equal(t, 1, result.Stats.MaterialsAdded)
	assert.Equal(t, 3, result.Stats.ProfilesAdded)
	assert.Equal(t, 2, result.Stats.StacksAdded)

	// The extruder stack is linked back to its machine
	extruder, err := reg.FindByID(ctx, container.ClassStack, "printer_a_extruder")
	require.NoError(t, err)
	require.NotNil(t, extruder)
	assert.Equal(t, "printer_a", extruder.NextID)

	// The imported machine stack became the active one
	active, err := reg.ActiveStack(ctx)
	require.NoError(t, err)
	assert.Equal(t, "printer_a", active)
}

func TestImport_NoConflictNoPrompt(t *testing.T) {
	resolver := &recordingResolver{set: container.UniformStrategy(container.StrategyOverride)}
	imp, _ := newTestImporter(t, registry.NewMemory(), resolver)

	result, err := imp.Import(context.Background(), writeBundle(t, standardMembers()))
	require.NoError(t, err)

	assert.Equal(t, StatusAccepted, result.Status)
	assert.Equal(t, 0, resolver.calls)
}

func TestPreRead_ConflictsReported(t *testing.T) {
	reg := registry.NewMemory()
	reg.Seed(&container.Container{
		ID: "printer_a", Class: container.ClassStack, Kind: container.KindMachine, Name: "Old Printer",
	})
	reg.Seed(&container.Container{
		ID: "fast_print", Class: container.ClassProfile, Kind: container.KindQualityChanges, Name: "Old Fast Print",
	})

	resolver := &recordingResolver{set: container.UniformStrategy(container.StrategyOverride)}
	imp, _ := newTestImporter(t, reg, resolver)

	outcome, err := imp.PreRead(context.Background(), writeBundle(t, standardMembers()))
	require.NoError(t, err)

	assert.Equal(t, StatusAccepted, outcome.Status)
	assert.Equal(t, 1, resolver.calls)

	require.NotNil(t, outcome.Report)
	require.Len(t, outcome.Report.Stacks, 1)
	assert.Equal(t, "printer_a", outcome.Report.Stacks[0].ID)
	assert.Equal(t, "Old Printer", outcome.Report.Stacks[0].ExistingName)
	require.Len(t, outcome.Report.Profiles, 1)
	assert.Equal(t, "fast_print", outcome.Report.Profiles[0].ID)
	assert.Equal(t, "Old Fast Print", outcome.Report.Profiles[0].ExistingName)

	assert.Equal(t, container.StrategyOverride, outcome.Strategies.For(container.DomainMachine))
}

func TestDetectConflicts_ReadOnly(t *testing.T) {
	reg := registry.NewMemory()
	reg.Seed(&container.Container{
		ID: "printer_a", Class: container.ClassStack, Kind: container.KindMachine, Name: "Old Printer",
	})
	imp, recorder := newTestImporter(t, reg, nil)

	arch, err := workspace.Open(writeBundle(t, standardMembers()))
	require.NoError(t, err)
	defer arch.Close()

	before := len(reg.Containers)
	report, err := imp.DetectConflicts(context.Background(), arch)
	require.NoError(t, err)

	assert.True(t, report.HasConflicts())
	assert.Len(t, reg.Containers, before)
	assert.Empty(t, recorder.Events())
}

func TestImport_ConflictWithoutResolverCancels(t *testing.T) {
	reg := registry.NewMemory()
	reg.Seed(&container.Container{
		ID: "printer_a", Class: container.ClassStack, Kind: container.KindMachine, Name: "Old Printer",
	})
	imp, _ := newTestImporter(t, reg, nil)

	result, err := imp.Import(context.Background(), writeBundle(t, standardMembers()))
	require.NoError(t, err)

	assert.Equal(t, StatusCancelled, result.Status)
	assert.NotNil(t, result.Report)

	// Cancelling leaves the store untouched
	assert.Len(t, reg.Containers, 1)
}

func TestImport_OverridePreservesIdentities(t *testing.T) {
	reg := registry.NewMemory()
	imp, _ := newTestImporter(t, reg, FixedResolver{Strategy: container.StrategyOverride})
	path := writeBundle(t, standardMembers())
	ctx := context.Background()

	_, err := imp.Import(ctx, path)
	require.NoError(t, err)
	stored := len(reg.Containers)

	result, err := imp.Import(ctx, path)
	require.NoError(t, err)

	assert.Equal(t, StatusAccepted, result.Status)
	assert.Equal(t, 2, result.Stats.StacksOverwritten)
	assert.Equal(t, 3, result.Stats.ProfilesOverwritten)
	assert.Equal(t, 0, result.Stats.StacksRenamed)
	assert.Equal(t, 0, result.Stats.ProfilesRenamed)

	// No new identities appear
	assert.Len(t, reg.Containers, stored)
	dup, err := reg.FindByID(ctx, container.ClassStack, "printer_a_1")
	require.NoError(t, err)
	assert.Nil(t, dup)
}

func TestImport_NewAllocatesFreshIdentities(t *testing.T) {
	reg := registry.NewMemory()
	imp, _ := newTestImporter(t, reg, FixedResolver{Strategy: container.StrategyNew})
	path := writeBundle(t, standardMembers())
	ctx := context.Background()

	_, err := imp.Import(ctx, path)
	require.NoError(t, err)

	result, err := imp.Import(ctx, path)
	require.NoError(t, err)

	assert.Equal(t, StatusAccepted, result.Status)
	assert.Equal(t, "printer_a_1", result.MachineID)
	assert.Equal(t, 2, result.Stats.StacksRenamed)
	assert.Equal(t, 3, result.Stats.ProfilesRenamed)

	// The duplicated machine stack has a fresh identity and display name
	machine, err := reg.FindByID(ctx, container.ClassStack, "printer_a_1")
	require.NoError(t, err)
	require.NotNil(t, machine)
	assert.Equal(t, "Printer A #2", machine.Name)

	// Its user profile follows the allocated stack identity, and the stack
	// still references the original user profile target
	profile, err := reg.FindByID(ctx, container.ClassProfile, "printer_a_1_current_settings")
	require.NoError(t, err)
	require.NotNil(t, profile)
	assert.Contains(t, machine.Containers, "printer_a_current_settings")

	// The duplicated quality profile got a fresh identity and both
	// duplicated stacks reference it instead of the original
	qc, err := reg.FindByID(ctx, container.ClassProfile, "fast_print_1")
	require.NoError(t, err)
	require.NotNil(t, qc)
	assert.Equal(t, "Fast Print #2", qc.Name)
	assert.Contains(t, machine.Containers, "fast_print_1")
	assert.NotContains(t, machine.Containers, "fast_print")

	extruder, err := reg.FindByID(ctx, container.ClassStack, "printer_a_extruder_1")
	require.NoError(t, err)
	require.NotNil(t, extruder)
	assert.Contains(t, extruder.Containers, "fast_print_1")

	// The originals are untouched
	original, err := reg.FindByID(ctx, container.ClassStack, "printer_a")
	require.NoError(t, err)
	require.NotNil(t, original)
	assert.Equal(t, "Printer A", original.Name)
	assert.Contains(t, original.Containers, "fast_print")

	// The duplicated machine stack became the active one
	active, err := reg.ActiveStack(ctx)
	require.NoError(t, err)
	assert.Equal(t, "printer_a_1", active)
}

func TestImport_QualityConflictRewritesStackReferences(t *testing.T) {
	reg := registry.NewMemory()
	reg.Seed(&container.Container{
		ID: "fast_print", Class: container.ClassProfile, Kind: container.KindQualityChanges, Name: "Fast Print",
	})

	imp, _ := newTestImporter(t, reg, FixedResolver{Strategy: container.StrategyNew})
	ctx := context.Background()

	result, err := imp.Import(ctx, writeBundle(t, standardMembers()))
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, result.Status)

	// The stacks were not in conflict and keep their identities, but both
	// now reference the duplicated quality profile
	machine, err := reg.FindByID(ctx, container.ClassStack, "printer_a")
	require.NoError(t, err)
	require.NotNil(t, machine)
	assert.Contains(t, machine.Containers, "fast_print_1")
	assert.NotContains(t, machine.Containers, "fast_print")

	extruder, err := reg.FindByID(ctx, container.ClassStack, "printer_a_extruder")
	require.NoError(t, err)
	require.NotNil(t, extruder)
	assert.Contains(t, extruder.Containers, "fast_print_1")
	assert.NotContains(t, extruder.Containers, "fast_print")

	// The stored profile the bundle collided with is untouched
	seeded, err := reg.FindByID(ctx, container.ClassProfile, "fast_print")
	require.NoError(t, err)
	require.NotNil(t, seeded)
	assert.Equal(t, "Fast Print", seeded.Name)

	qc, err := reg.FindByID(ctx, container.ClassProfile, "fast_print_1")
	require.NoError(t, err)
	require.NotNil(t, qc)
	assert.Equal(t, "Fast Print #2", qc.Name)
}

func TestImport_ConflictWithoutRecordedStrategyKeepsExisting(t *testing.T) {
	reg := registry.NewMemory()
	reg.Seed(&container.Container{
		ID: "printer_a_def", Class: container.ClassDefinition, Name: "Printer A Definition",
	})
	reg.Seed(&container.Container{
		ID: "printer_a", Class: container.ClassStack, Kind: container.KindMachine,
		Name: "Old Printer", Containers: []string{"printer_a_def"},
	})

	// The resolver answers, but records nothing for the machine domain
	resolver := &recordingResolver{set: container.StrategySet{}}
	imp, _ := newTestImporter(t, reg, resolver)
	ctx := context.Background()

	result, err := imp.Import(ctx, writeBundle(t, standardMembers()))
	require.NoError(t, err)

	assert.Equal(t, StatusAccepted, result.Status)
	assert.Equal(t, 1, resolver.calls)
	assert.Equal(t, "printer_a", result.MachineID)
	assert.Zero(t, result.Stats.StacksOverwritten)
	assert.Zero(t, result.Stats.StacksRenamed)

	// The stored stack wins and stays as it was
	machine, err := reg.FindByID(ctx, container.ClassStack, "printer_a")
	require.NoError(t, err)
	require.NotNil(t, machine)
	assert.Equal(t, "Old Printer", machine.Name)
	assert.Equal(t, []string{"printer_a_def"}, machine.Containers)
}

func TestImport_SecondMachineStackIsCorrupt(t *testing.T) {
	members := standardMembers()
	members["Config/printer_b.stack.toml"] = stackDoc("Printer B", "machine", "", "printer_a_def")

	imp, _ := newTestImporter(t, registry.NewMemory(), nil)
	result, err := imp.Import(context.Background(), writeBundle(t, members))
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, result.Status)
	assert.Contains(t, result.Diagnostic, "more than one machine stack")
}

func TestImport_NoMachineStackIsCorrupt(t *testing.T) {
	members := standardMembers()
	delete(members, "Config/printer_a.stack.toml")

	imp, _ := newTestImporter(t, registry.NewMemory(), nil)
	result, err := imp.Import(context.Background(), writeBundle(t, members))
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, result.Status)
	assert.Contains(t, result.Diagnostic, "no machine stack")
}

func TestImport_DanglingReferenceIsCorrupt(t *testing.T) {
	members := standardMembers()
	members["Config/printer_a.stack.toml"] = stackDoc("Printer A", "machine", "",
		"printer_a_current_settings", "missing_quality", "printer_a_def")

	reg := registry.NewMemory()
	imp, recorder := newTestImporter(t, reg, nil)
	ctx := context.Background()

	result, err := imp.Import(ctx, writeBundle(t, members))
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, result.Status)
	assert.Contains(t, result.Diagnostic, "missing_quality")

	// Nothing was announced or activated
	assert.Empty(t, recorder.Events())
	active, err := reg.ActiveStack(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestImport_UnreadableArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a-bundle.3mf")
	require.NoError(t, os.WriteFile(path, []byte("plain text"), 0644))

	imp, _ := newTestImporter(t, registry.NewMemory(), nil)
	result, err := imp.Import(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, result.Status)
	assert.Contains(t, result.Diagnostic, "archive cannot be read")
}

func TestImport_GeometryRejected(t *testing.T) {
	reg := registry.NewMemory()
	reader := &mesh.MockReader{PreReadErr: errors.New("no scene document")}
	imp := New(Options{
		Registry: reg,
		Mesh:     reader,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	result, err := imp.Import(context.Background(), writeBundle(t, standardMembers()))
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, result.Status)
	assert.Contains(t, result.Diagnostic, "geometry reader rejected")

	// The store was never touched and the main read never ran
	assert.Empty(t, reg.Containers)
	assert.Equal(t, 1, reader.PreReadCalls)
	assert.Equal(t, 0, reader.ReadCalls)
}

func TestImport_MalformedProfileFailsPreRead(t *testing.T) {
	members := standardMembers()
	members["Config/broken.profile.toml"] = "[general\nname = \"x\""

	imp, _ := newTestImporter(t, registry.NewMemory(), nil)
	result, err := imp.Import(context.Background(), writeBundle(t, members))
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, result.Status)
	assert.Contains(t, result.Diagnostic, "corrupt")
}

func TestImport_NotificationOrder(t *testing.T) {
	imp, recorder := newTestImporter(t, registry.NewMemory(), nil)

	_, err := imp.Import(context.Background(), writeBundle(t, standardMembers()))
	require.NoError(t, err)

	changed := recorder.ByType(events.TypeContainersChanged)
	require.Len(t, changed, 8)

	// Machine stack references are announced before extruder references
	for _, evt := range changed[:4] {
		assert.Equal(t, "printer_a", evt.StackID)
	}
	for _, evt := range changed[4:] {
		assert.Equal(t, "printer_a_extruder", evt.StackID)
	}

	// Activation is the final event
	all := recorder.Events()
	require.NotEmpty(t, all)
	last := all[len(all)-1]
	assert.Equal(t, events.TypeStackActivated, last.Type)
	assert.Equal(t, "printer_a", last.StackID)
}

func TestImport_ExtrudersRegistered(t *testing.T) {
	index := registry.NewExtruderIndex()
	imp := New(Options{
		Registry:  registry.NewMemory(),
		Mesh:      &mesh.MockReader{},
		Extruders: index,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	_, err := imp.Import(context.Background(), writeBundle(t, standardMembers()))
	require.NoError(t, err)

	trains := index.ByMachine("printer_a")
	require.Len(t, trains, 1)
	require.NotNil(t, trains["0"])
	assert.Equal(t, "printer_a_extruder", trains["0"].ID)
}

func TestImport_PreferencesCopied(t *testing.T) {
	store, err := prefs.Open(filepath.Join(t.TempDir(), "prefs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Initialize())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bus := events.NewBus(logger)
	recorder := events.NewRecorder(bus)
	imp := New(Options{
		Registry: registry.NewMemory(),
		Mesh:     &mesh.MockReader{},
		Prefs:    store,
		Bus:      bus,
		Logger:   logger,
	})

	members := standardMembers()
	members["Config/preferences.toml"] = "[general]\nvisible_settings = \"layer_height;infill\"\n\n[cura]\ncategories_expanded = \"speed;cooling\"\n"

	result, err := imp.Import(context.Background(), writeBundle(t, members))
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, result.Status)

	visible, err := store.Get(prefs.KeyVisibleSettings)
	require.NoError(t, err)
	assert.Equal(t, "layer_height;infill", visible)

	expanded, err := store.Get(prefs.KeyCategoriesExpanded)
	require.NoError(t, err)
	assert.Equal(t, "speed;cooling", expanded)

	assert.Len(t, recorder.ByType(events.TypeCategoriesExpanded), 1)
}

func TestImport_RunIDsDistinct(t *testing.T) {
	imp, _ := newTestImporter(t, registry.NewMemory(), FixedResolver{Strategy: container.StrategyOverride})
	path := writeBundle(t, standardMembers())

	first, err := imp.Import(context.Background(), path)
	require.NoError(t, err)
	second, err := imp.Import(context.Background(), path)
	require.NoError(t, err)

	assert.NotEmpty(t, first.RunID)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestImport_StoreErrorStaysAnError(t *testing.T) {
	reg := registry.NewMemory()
	reg.Err = errors.New("store offline")

	imp, _ := newTestImporter(t, reg, nil)
	_, err := imp.Import(context.Background(), writeBundle(t, standardMembers()))
	require.Error(t, err)
	assert.ErrorIs(t, err, reg.Err)
}
