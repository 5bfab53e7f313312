package importer

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilupskalvis/wsi/internal/container"
)

// policyFile mirrors the YAML layout of an import policy document
type policyFile struct {
	Strategy string            `yaml:"strategy"`
	Domains  map[string]string `yaml:"domains"`
}

// PolicyResolver answers conflict prompts from a policy document instead of
// an interactive prompt, for unattended imports. The policy carries an
// optional default strategy and optional per-domain overrides:
//
//	strategy: new
//	domains:
//	  quality_changes: override
type PolicyResolver struct {
	defaultStrategy container.Strategy
	domains         map[container.Domain]container.Strategy
}

// LoadPolicy reads an import policy from a YAML file.
func LoadPolicy(path string) (*PolicyResolver, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy parses an import policy document.
func ParsePolicy(data []byte) (*PolicyResolver, error) {
	var doc policyFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse policy document: %w", err)
	}

	r := &PolicyResolver{
		defaultStrategy: container.Strategy(doc.Strategy),
		domains:         make(map[container.Domain]container.Strategy),
	}
	if doc.Strategy != "" && !r.defaultStrategy.Valid() {
		return nil, fmt.Errorf("policy strategy %q is not one of override, new, cancel", doc.Strategy)
	}

	for name, value := range doc.Domains {
		domain := container.Domain(name)
		switch domain {
		case container.DomainMachine, container.DomainQualityChanges:
		default:
			return nil, fmt.Errorf("policy names unknown conflict domain %q", name)
		}

		strategy := container.Strategy(value)
		if !strategy.Valid() {
			return nil, fmt.Errorf("policy strategy %q for domain %s is not one of override, new, cancel", value, name)
		}
		r.domains[domain] = strategy
	}

	if r.defaultStrategy == "" && len(r.domains) == 0 {
		return nil, fmt.Errorf("policy decides nothing: set strategy or domains")
	}
	return r, nil
}

// Resolve answers each conflicting domain from the policy. A domain the
// policy does not cover is a configuration error, not a cancellation.
func (r *PolicyResolver) Resolve(ctx context.Context, report *container.ConflictReport) (container.StrategySet, error) {
	set := make(container.StrategySet)
	for _, domain := range report.Domains() {
		strategy, ok := r.domains[domain]
		if !ok {
			strategy = r.defaultStrategy
		}
		if strategy == "" {
			return nil, fmt.Errorf("policy does not decide conflict domain %s", domain)
		}
		if strategy == container.StrategyCancel {
			return nil, fmt.Errorf("%w: policy cancels on %s conflicts", ErrImportCancelled, domain)
		}
		set[domain] = strategy
	}
	return set, nil
}

// Verify PolicyResolver implements StrategyResolver
var _ StrategyResolver = (*PolicyResolver)(nil)
