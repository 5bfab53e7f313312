package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kilupskalvis/wsi/internal/config"
	"github.com/kilupskalvis/wsi/internal/container"
	"github.com/kilupskalvis/wsi/internal/events"
	"github.com/kilupskalvis/wsi/internal/importer"
	"github.com/kilupskalvis/wsi/internal/mesh"
)

var importCmd = &cobra.Command{
	Use:   "import <bundle>",
	Short: "Import a workspace bundle",
	Long: `Import a workspace bundle into the local container store.

Conflicting identities are detected before anything is written. The
resolution comes from --strategy, from a --policy file, from the
configured default, or from an interactive prompt.

Examples:
  wsi import workspace.3mf
  wsi import --strategy new workspace.3mf
  wsi import --policy ci-policy.yaml workspace.3mf`,
	Args: cobra.ExactArgs(1),
	Run:  runImport,
}

var (
	importStrategy string
	importPolicy   string
)

func init() {
	importCmd.Flags().StringVar(&importStrategy, "strategy", "", "Conflict strategy for all domains (override, new, cancel)")
	importCmd.Flags().StringVar(&importPolicy, "policy", "", "YAML policy file deciding conflicts per domain")
}

func runImport(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initFullContext()
	defer c.Close()

	logger, cleanup := newLogger(c.Config)
	defer cleanup()

	resolver, err := buildResolver(c.Config)
	if err != nil {
		exitError("%v", err)
	}

	imp := importer.New(importer.Options{
		Registry: c.Registry,
		Mesh:     mesh.NewThreeMFReader(logger),
		Resolver: resolver,
		Prefs:    c.Prefs,
		Bus:      events.NewBus(logger),
		Logger:   logger,
	})

	result, err := imp.Import(ctx, args[0])
	if err != nil {
		exitError("import failed: %v", err)
	}

	displayResult(result)
	if result.Status == importer.StatusFailed {
		os.Exit(1)
	}
}

// buildResolver picks the conflict resolver. Precedence: --strategy flag,
// --policy file, configured default, interactive prompt.
func buildResolver(cfg *config.Config) (importer.StrategyResolver, error) {
	if importStrategy != "" && importPolicy != "" {
		return nil, fmt.Errorf("--strategy and --policy are mutually exclusive")
	}

	if importStrategy != "" {
		s := container.Strategy(importStrategy)
		if !s.Valid() {
			return nil, fmt.Errorf("unknown strategy %q (expected override, new, or cancel)", importStrategy)
		}
		return importer.FixedResolver{Strategy: s}, nil
	}

	if importPolicy != "" {
		return importer.LoadPolicy(importPolicy)
	}

	if cfg.DefaultStrategy != "" {
		return importer.FixedResolver{Strategy: cfg.ImportStrategy()}, nil
	}

	return &promptResolver{in: os.Stdin}, nil
}

// displayResult renders the outcome of an import run
func displayResult(result *importer.Result) {
	switch result.Status {
	case importer.StatusCancelled:
		yellow := color.New(color.FgYellow)
		yellow.Printf("Import cancelled, nothing was written.\n")
		return
	case importer.StatusFailed:
		red := color.New(color.FgRed)
		red.Printf("Import failed: %s\n", result.Diagnostic)
		return
	}

	green := color.New(color.FgGreen)
	green.Printf("Imported workspace bundle (run %s)\n", shortID(result.RunID))
	fmt.Printf("Active machine stack: %s\n", result.MachineID)

	if len(result.Nodes) > 0 {
		fmt.Printf("\nScene objects:\n")
		for _, node := range result.Nodes {
			fmt.Printf("  %s (%d vertices, %d triangles)\n", node.Name, node.Vertices, node.Triangles)
		}
	}

	st := result.Stats
	fmt.Printf("\nContainers:\n")
	fmt.Printf("  added:       %d\n", st.DefinitionsAdded+st.MaterialsAdded+st.ProfilesAdded+st.StacksAdded)
	fmt.Printf("  overwritten: %d\n", st.ProfilesOverwritten+st.StacksOverwritten)
	fmt.Printf("  duplicated:  %d\n", st.ProfilesRenamed+st.StacksRenamed)
}
