package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/kilupskalvis/wsi/internal/container"
	"github.com/kilupskalvis/wsi/internal/importer"
)

// promptResolver asks the user on the terminal, once per conflicting domain
type promptResolver struct {
	in io.Reader
}

func (p *promptResolver) Resolve(ctx context.Context, report *container.ConflictReport) (container.StrategySet, error) {
	displayConflicts(report)
	fmt.Println()

	reader := bufio.NewReader(p.in)
	set := make(container.StrategySet)
	for _, domain := range report.Domains() {
		strategy, err := p.ask(reader, domain)
		if err != nil {
			return nil, err
		}
		if strategy == container.StrategyCancel {
			return nil, importer.ErrImportCancelled
		}
		set[domain] = strategy
	}
	return set, nil
}

// ask reads one answer, re-prompting until it is recognizable.
// EOF counts as cancel so a closed stdin never hangs the import.
func (p *promptResolver) ask(reader *bufio.Reader, domain container.Domain) (container.Strategy, error) {
	for {
		fmt.Printf("Resolve %s conflicts ([o]verride, [n]ew, [c]ancel): ", domain)
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", err
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "o", "override":
			return container.StrategyOverride, nil
		case "n", "new":
			return container.StrategyNew, nil
		case "c", "cancel":
			return container.StrategyCancel, nil
		}

		if err == io.EOF {
			return container.StrategyCancel, nil
		}
		fmt.Println("Please answer o, n, or c.")
	}
}

// displayConflicts lists colliding identities grouped by domain
func displayConflicts(report *container.ConflictReport) {
	yellow := color.New(color.FgYellow)

	if len(report.Stacks) > 0 {
		yellow.Printf("Machine conflicts (%d):\n", len(report.Stacks))
		for _, conflict := range report.Stacks {
			fmt.Printf("  %s (stored as '%s')\n", conflict.ID, conflict.ExistingName)
		}
	}
	if len(report.Profiles) > 0 {
		yellow.Printf("Quality changes conflicts (%d):\n", len(report.Profiles))
		for _, conflict := range report.Profiles {
			fmt.Printf("  %s (stored as '%s')\n", conflict.ID, conflict.ExistingName)
		}
	}
}

var _ importer.StrategyResolver = (*promptResolver)(nil)
