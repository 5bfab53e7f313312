package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Inspect workspace preferences",
	Long: `Inspect the preference settings carried over from imported workspace
bundles, such as visible settings and expanded categories.

Without a subcommand, lists all stored preferences.

Examples:
  wsi prefs                                    List all preferences
  wsi prefs get general/visible_settings       Print one value
  wsi prefs set general/visible_settings ...   Set one value`,
	Run: runPrefsList,
}

var prefsGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one preference value",
	Args:  cobra.ExactArgs(1),
	Run:   runPrefsGet,
}

var prefsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set one preference value",
	Args:  cobra.ExactArgs(2),
	Run:   runPrefsSet,
}

func init() {
	prefsCmd.AddCommand(prefsGetCmd)
	prefsCmd.AddCommand(prefsSetCmd)
}

func runPrefsList(cmd *cobra.Command, args []string) {
	c := initFullContext()
	defer c.Close()

	items, err := c.Prefs.List()
	if err != nil {
		exitError("failed to list preferences: %v", err)
	}
	if len(items) == 0 {
		fmt.Println("No preferences stored yet.")
		return
	}
	for _, p := range items {
		fmt.Printf("%s = %s\n", p.Key, p.Value)
	}
}

func runPrefsGet(cmd *cobra.Command, args []string) {
	c := initFullContext()
	defer c.Close()

	value, err := c.Prefs.Get(args[0])
	if err != nil {
		exitError("failed to read preference: %v", err)
	}
	if value == "" {
		exitError("preference %q not set", args[0])
	}
	fmt.Println(value)
}

func runPrefsSet(cmd *cobra.Command, args []string) {
	c := initFullContext()
	defer c.Close()

	if err := c.Prefs.Set(args[0], args[1]); err != nil {
		exitError("failed to set preference: %v", err)
	}
	fmt.Printf("%s = %s\n", args[0], args[1])
}
