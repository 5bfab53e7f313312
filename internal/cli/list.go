package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kilupskalvis/wsi/internal/container"
)

var listCmd = &cobra.Command{
	Use:   "list [class]",
	Short: "List stored containers",
	Long: `List containers in the local store, optionally limited to one class
(definition, material, profile, stack). The active machine stack is
marked with an asterisk.

Examples:
  wsi list
  wsi list stack`,
	Args: cobra.MaximumNArgs(1),
	Run:  runList,
}

func runList(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initContext()
	defer c.Close()

	classes := container.Classes
	if len(args) > 0 {
		classes = []container.Class{parseClass(args[0])}
	}

	active, err := c.Registry.ActiveStack(ctx)
	if err != nil {
		exitError("failed to read active stack: %v", err)
	}

	green := color.New(color.FgGreen)
	total := 0
	for _, class := range classes {
		items, err := c.Registry.FindByClass(ctx, class)
		if err != nil {
			exitError("failed to list %s containers: %v", class, err)
		}
		if len(items) == 0 {
			continue
		}
		if total > 0 {
			fmt.Println()
		}

		fmt.Printf("%s:\n", class)
		for _, item := range items {
			line := fmt.Sprintf("%s  %s", item.ID, item.Name)
			if item.Kind != "" {
				line += fmt.Sprintf(" [%s]", item.Kind)
			}
			if class == container.ClassStack && item.ID == active {
				green.Printf("* %s\n", line)
			} else {
				fmt.Printf("  %s\n", line)
			}
		}
		total += len(items)
	}

	if total == 0 {
		fmt.Println("No containers stored yet. Import a workspace bundle first.")
	}
}
