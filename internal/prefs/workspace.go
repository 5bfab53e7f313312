package prefs

import (
	"fmt"
	"log/slog"

	"github.com/kilupskalvis/wsi/internal/events"
	"github.com/kilupskalvis/wsi/internal/workspace"
	"github.com/pelletier/go-toml/v2"
)

// Keys copied from a workspace bundle's preferences document.
const (
	KeyVisibleSettings    = "general/visible_settings"
	KeyCategoriesExpanded = "cura/categories_expanded"
)

// preferencesDoc mirrors the TOML layout of the bundled preferences document
type preferencesDoc struct {
	General struct {
		VisibleSettings string `toml:"visible_settings"`
	} `toml:"general"`
	Cura struct {
		CategoriesExpanded string `toml:"categories_expanded"`
	} `toml:"cura"`
}

// CopyFromBundle copies the workspace preference settings from the bundled
// document into the store and raises the UI refresh notification. A bundle
// without the document is skipped with a warning.
func CopyFromBundle(arch *workspace.Archive, store *Store, bus *events.Bus, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	data, ok, err := arch.Preferences()
	if err != nil {
		return err
	}
	if !ok {
		logger.Warn("bundle carries no preferences document", "path", arch.Path())
		return nil
	}

	var doc preferencesDoc
	if err := toml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse preferences document: %w", err)
	}

	if doc.General.VisibleSettings == "" {
		logger.Warn("bundle preferences carry no visible settings, leaving visibility unchanged")
	} else if err := store.Set(KeyVisibleSettings, doc.General.VisibleSettings); err != nil {
		return fmt.Errorf("failed to store visible settings: %w", err)
	}

	if doc.Cura.CategoriesExpanded == "" {
		logger.Warn("bundle preferences carry no expanded categories, leaving them unchanged")
	} else if err := store.Set(KeyCategoriesExpanded, doc.Cura.CategoriesExpanded); err != nil {
		return fmt.Errorf("failed to store expanded categories: %w", err)
	}

	bus.PublishCategoriesExpanded()
	return nil
}
