package importer

import "errors"

// Sentinel errors for the import taxonomy. Callers match them with
// errors.Is; Import folds them into the failed boundary outcome.
var (
	// ErrUnreadableArchive marks a bundle that cannot be opened or enumerated
	ErrUnreadableArchive = errors.New("workspace archive cannot be read")

	// ErrGeometryRejected marks a bundle refused by the geometry collaborator
	ErrGeometryRejected = errors.New("geometry reader rejected the bundle")

	// ErrImportCancelled marks an import aborted at the conflict prompt
	ErrImportCancelled = errors.New("import cancelled")

	// ErrCorrupt marks a bundle whose entities cannot be merged consistently
	ErrCorrupt = errors.New("workspace bundle is corrupt")
)
