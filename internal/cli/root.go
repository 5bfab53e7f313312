// Package cli implements the command-line interface for WSI.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kilupskalvis/wsi/internal/config"
	"github.com/kilupskalvis/wsi/internal/container"
	"github.com/kilupskalvis/wsi/internal/prefs"
	"github.com/kilupskalvis/wsi/internal/registry"
)

// cmdContext holds common resources for CLI commands
type cmdContext struct {
	Config   *config.Config
	Registry *registry.Store
	Prefs    *prefs.Store
}

// Close releases resources held by cmdContext
func (c *cmdContext) Close() {
	if c.Registry != nil {
		c.Registry.Close()
	}
	if c.Prefs != nil {
		c.Prefs.Close()
	}
}

// initContext initializes config and the container registry (no prefs)
func initContext() *cmdContext {
	cfg, err := config.Load()
	if err != nil {
		exitError("%v", err)
	}

	reg, err := registry.New(cfg.RegistryPath())
	if err != nil {
		exitError("failed to open registry: %v", err)
	}
	if err := reg.Initialize(); err != nil {
		reg.Close()
		exitError("failed to initialize registry: %v", err)
	}

	return &cmdContext{Config: cfg, Registry: reg}
}

// initFullContext initializes config, registry, and the preference store
func initFullContext() *cmdContext {
	ctx := initContext()

	pr, err := prefs.Open(ctx.Config.PrefsPath())
	if err != nil {
		ctx.Close()
		exitError("failed to open preference store: %v", err)
	}
	ctx.Prefs = pr
	if err := pr.Initialize(); err != nil {
		ctx.Close()
		exitError("failed to initialize preference store: %v", err)
	}

	return ctx
}

// newLogger builds the workspace logger writing to the configured log file
func newLogger(cfg *config.Config) (*slog.Logger, func() error) {
	return config.SetupLogger(cfg.LogPath(), cfg.Level())
}

var rootCmd = &cobra.Command{
	Use:   "wsi",
	Short: "Workspace Import",
	Long: `WSI (Workspace Import) merges portable workspace bundles into a local
configuration store. A bundle carries machine definitions, materials,
setting profiles, and the container stacks tying them together. WSI
detects identity conflicts before writing anything, resolves them by
flag, policy file, or prompt, and repairs stack references so the
imported machine is immediately usable.`,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(detectCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(activeCmd)
	rootCmd.AddCommand(prefsCmd)
}

// exitError prints an error and exits
func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

// shortID returns first 8 characters of an ID
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// parseClass validates a container class argument
func parseClass(arg string) container.Class {
	class := container.Class(arg)
	switch class {
	case container.ClassDefinition, container.ClassMaterial, container.ClassProfile, container.ClassStack:
		return class
	}
	exitError("unknown container class %q (expected definition, material, profile, or stack)", arg)
	return ""
}
