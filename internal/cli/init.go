package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilupskalvis/wsi/internal/config"
	"github.com/kilupskalvis/wsi/internal/container"
	"github.com/kilupskalvis/wsi/internal/prefs"
	"github.com/kilupskalvis/wsi/internal/registry"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new WSI workspace",
	Long: `Initialize a new WSI workspace in the current directory.
This creates a .wsi directory holding the container registry, the
preference store, and the workspace configuration.`,
	Run: runInit,
}

var initStrategy string

func init() {
	initCmd.Flags().StringVar(&initStrategy, "strategy", "", "Default conflict strategy (override, new, cancel)")
}

func runInit(cmd *cobra.Command, args []string) {
	// Check if already initialized
	if _, err := config.FindWSIRoot(); err == nil {
		exitError("wsi workspace already exists")
	}

	if initStrategy != "" && !container.Strategy(initStrategy).Valid() {
		exitError("unknown strategy %q (expected override, new, or cancel)", initStrategy)
	}

	fmt.Printf("Initializing WSI workspace...\n")

	// Initialize config
	cfg, err := config.Initialize(initStrategy)
	if err != nil {
		exitError("failed to initialize config: %v", err)
	}

	// Initialize container registry
	reg, err := registry.New(cfg.RegistryPath())
	if err != nil {
		exitError("failed to create registry: %v", err)
	}
	defer reg.Close()

	if err := reg.Initialize(); err != nil {
		exitError("failed to initialize registry: %v", err)
	}

	// Initialize preference store
	pr, err := prefs.Open(cfg.PrefsPath())
	if err != nil {
		exitError("failed to create preference store: %v", err)
	}
	defer pr.Close()

	if err := pr.Initialize(); err != nil {
		exitError("failed to initialize preference store: %v", err)
	}

	fmt.Printf("\nInitialized empty WSI workspace in %s/\n", config.WSIDir)
	if initStrategy != "" {
		fmt.Printf("Default conflict strategy: %s\n", initStrategy)
	} else {
		fmt.Printf("Conflicting imports will prompt for a strategy.\n")
	}
}
