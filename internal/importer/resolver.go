package importer

import (
	"context"
	"fmt"

	"github.com/kilupskalvis/wsi/internal/container"
)

// StrategyResolver decides how conflicting domains are resolved. Resolve
// blocks until the external actor answers and returns one strategy per
// conflicting domain. Implementations return ErrImportCancelled, possibly
// wrapped, to abort the import.
type StrategyResolver interface {
	Resolve(ctx context.Context, report *container.ConflictReport) (container.StrategySet, error)
}

// FixedResolver answers every conflict with the same strategy. It backs the
// --strategy flag and the configured default.
type FixedResolver struct {
	Strategy container.Strategy
}

// Resolve applies the fixed strategy to every conflicting domain.
func (r FixedResolver) Resolve(ctx context.Context, report *container.ConflictReport) (container.StrategySet, error) {
	if r.Strategy == container.StrategyCancel {
		return nil, ErrImportCancelled
	}
	if !r.Strategy.Valid() {
		return nil, fmt.Errorf("unknown conflict strategy %q", r.Strategy)
	}
	return container.UniformStrategy(r.Strategy), nil
}

// Verify FixedResolver implements StrategyResolver
var _ StrategyResolver = FixedResolver{}
