package cli

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kilupskalvis/wsi/internal/container"
)

var showCmd = &cobra.Command{
	Use:   "show <class> <id>",
	Short: "Show container details",
	Long: `Show the stored record of one container, including the stack
references it holds. With --payload the original serialized document
is printed as well.

Examples:
  wsi show stack printer_a
  wsi show --payload profile fast_print`,
	Args: cobra.ExactArgs(2),
	Run:  runShow,
}

var showPayload bool

func init() {
	showCmd.Flags().BoolVar(&showPayload, "payload", false, "Print the original serialized document")
}

func runShow(cmd *cobra.Command, args []string) {
	ctx := context.Background()
	c := initContext()
	defer c.Close()

	class := parseClass(args[0])
	item, err := c.Registry.FindByID(ctx, class, args[1])
	if err != nil {
		exitError("failed to load container: %v", err)
	}
	if item == nil {
		exitError("%s %q not found", class, args[1])
	}

	yellow := color.New(color.FgYellow)
	yellow.Printf("%s %s\n", item.Class, item.ID)

	fmt.Printf("Name:     %s\n", item.Name)
	if item.Kind != "" {
		fmt.Printf("Kind:     %s\n", item.Kind)
	}
	if item.Version != 0 {
		fmt.Printf("Version:  %d\n", item.Version)
	}
	if item.MachineID != "" {
		fmt.Printf("Machine:  %s\n", item.MachineID)
	}
	if item.ExtruderID != "" {
		fmt.Printf("Extruder: %s\n", item.ExtruderID)
	}
	if item.Position != "" {
		fmt.Printf("Position: %s\n", item.Position)
	}
	if item.NextID != "" {
		fmt.Printf("Next:     %s\n", item.NextID)
	}

	if len(item.Containers) > 0 {
		fmt.Printf("\nReferences (%d):\n", len(item.Containers))
		for slot, ref := range item.Containers {
			fmt.Printf("  %d: %s\n", slot, ref)
		}
	}

	if showPayload && len(item.Payload) > 0 {
		fmt.Printf("\nDocument:\n%s", string(item.Payload))
	}
}
