package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"

	"github.com/kilupskalvis/wsi/internal/container"
	"github.com/kilupskalvis/wsi/internal/importer"
	"github.com/kilupskalvis/wsi/internal/mesh"
	"github.com/kilupskalvis/wsi/internal/registry"
	"github.com/kilupskalvis/wsi/internal/workspace"
)

var detectCmd = &cobra.Command{
	Use:   "detect <bundle>",
	Short: "Scan a bundle for conflicts without importing",
	Long: `Scan a workspace bundle and report identity conflicts against the
local store. Nothing is written.

With --diff, the document of each conflicting entity is compared
against its stored counterpart.

Examples:
  wsi detect workspace.3mf
  wsi detect --diff workspace.3mf`,
	Args: cobra.ExactArgs(1),
	Run:  runDetect,
}

var detectDiff bool

func init() {
	detectCmd.Flags().BoolVar(&detectDiff, "diff", false, "Show a unified diff for each conflicting entity")
}

func runDetect(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initContext()
	defer c.Close()

	logger, cleanup := newLogger(c.Config)
	defer cleanup()

	arch, err := workspace.Open(args[0])
	if err != nil {
		exitError("failed to open bundle: %v", err)
	}
	defer arch.Close()

	imp := importer.New(importer.Options{
		Registry: c.Registry,
		Mesh:     mesh.NewThreeMFReader(logger),
		Logger:   logger,
	})

	report, err := imp.DetectConflicts(ctx, arch)
	if err != nil {
		exitError("failed to scan bundle: %v", err)
	}

	if !report.HasConflicts() {
		fmt.Println("No conflicts, the bundle imports cleanly.")
		return
	}

	displayConflicts(report)

	if detectDiff {
		fmt.Println()
		if err := displayConflictDiffs(ctx, c.Registry, arch, report); err != nil {
			exitError("failed to compute diffs: %v", err)
		}
	}

	os.Exit(1)
}

// displayConflictDiffs renders stored vs incoming documents for every
// conflicting entity
func displayConflictDiffs(ctx context.Context, reg registry.Registry, arch *workspace.Archive, report *container.ConflictReport) error {
	for _, conflict := range report.Stacks {
		if err := displayEntityDiff(ctx, reg, arch, container.ClassStack, conflict.ID, conflict.Path); err != nil {
			return err
		}
	}
	for _, conflict := range report.Profiles {
		if err := displayEntityDiff(ctx, reg, arch, container.ClassProfile, conflict.ID, conflict.Path); err != nil {
			return err
		}
	}
	return nil
}

func displayEntityDiff(ctx context.Context, reg registry.Registry, arch *workspace.Archive, class container.Class, id, path string) error {
	existing, err := reg.FindByID(ctx, class, id)
	if err != nil {
		return err
	}
	incoming, err := arch.ReadAll(path)
	if err != nil {
		return err
	}

	var stored []byte
	if existing != nil {
		stored = existing.Payload
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(stored)),
		B:        difflib.SplitLines(string(incoming)),
		FromFile: "stored",
		ToFile:   "incoming",
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return err
	}

	yellow := color.New(color.FgYellow)
	yellow.Printf("~~~ %s %s\n", class, id)
	if text == "" {
		fmt.Println("  (documents are identical)")
		return nil
	}
	fmt.Print(text)
	return nil
}
