package workspace

import (
	"strings"

	"github.com/kilupskalvis/wsi/internal/container"
)

// ConfigRoot is the archive directory holding container documents
const ConfigRoot = "Config/"

// PreferencesPath is the bundled preferences document
const PreferencesPath = ConfigRoot + "preferences.toml"

// Entry is one classified archive member
type Entry struct {
	Path  string          // Full archive path
	Class container.Class // Entity class from the suffix table
	ID    string          // Identity derived from the path
}

// classRule maps one path suffix to an entity class
type classRule struct {
	suffix string
	class  container.Class
}

// classRules is the closed suffix table, one rule per entity class
var classRules = []classRule{
	{".definition.toml", container.ClassDefinition},
	{".material.toml", container.ClassMaterial},
	{".profile.toml", container.ClassProfile},
	{".stack.toml", container.ClassStack},
}

// Classify matches an archive path against the suffix table and derives the
// entity identity: root prefix stripped, everything from the first dot
// dropped. Unmatched paths are not errors, just not relevant here.
func Classify(path string) (Entry, bool) {
	if !strings.HasPrefix(path, ConfigRoot) {
		return Entry{}, false
	}
	for _, rule := range classRules {
		if strings.HasSuffix(path, rule.suffix) {
			trimmed := strings.TrimPrefix(path, ConfigRoot)
			id, _, _ := strings.Cut(trimmed, ".")
			if id == "" {
				return Entry{}, false
			}
			return Entry{Path: path, Class: rule.class, ID: id}, true
		}
	}
	return Entry{}, false
}
