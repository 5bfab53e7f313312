package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilupskalvis/wsi/internal/container"
)

var activeCmd = &cobra.Command{
	Use:   "active [stack-id]",
	Short: "Show or switch the active machine stack",
	Long: `Show the active machine stack. With an argument, make that stack
the active one. Only machine stacks can be activated.

Examples:
  wsi active
  wsi active printer_a_1`,
	Args: cobra.MaximumNArgs(1),
	Run:  runActive,
}

func runActive(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initContext()
	defer c.Close()

	if len(args) == 0 {
		id, err := c.Registry.ActiveStack(ctx)
		if err != nil {
			exitError("failed to read active stack: %v", err)
		}
		if id == "" {
			fmt.Println("No active machine stack. Import a workspace bundle first.")
			return
		}

		stack, err := c.Registry.FindByID(ctx, container.ClassStack, id)
		if err != nil {
			exitError("failed to load stack: %v", err)
		}
		if stack == nil {
			fmt.Printf("%s (no longer stored)\n", id)
			return
		}
		fmt.Printf("%s  %s\n", stack.ID, stack.Name)
		return
	}

	id := args[0]
	stack, err := c.Registry.FindByID(ctx, container.ClassStack, id)
	if err != nil {
		exitError("failed to load stack: %v", err)
	}
	if stack == nil {
		exitError("stack %q not found", id)
	}
	if stack.IsExtruder() {
		exitError("%q is an extruder stack, only machine stacks can be activated", id)
	}

	if err := c.Registry.SetActiveStack(ctx, id); err != nil {
		exitError("failed to switch active stack: %v", err)
	}
	fmt.Printf("Active machine stack is now %s\n", id)
}
