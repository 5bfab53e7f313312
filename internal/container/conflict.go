package container

// StackConflict describes an incoming stack colliding with a stored one
type StackConflict struct {
	ID           string `json:"id"`            // Shared identity
	Path         string `json:"path"`          // Archive entry path
	ExistingName string `json:"existing_name"` // Display name of the stored stack
}

// ProfileConflict describes an incoming quality_changes profile colliding
// with a stored one
type ProfileConflict struct {
	ID           string `json:"id"`            // Shared identity
	Path         string `json:"path"`          // Archive entry path
	ExistingName string `json:"existing_name"` // Display name of the stored profile
}

// ConflictReport is the outcome of the read-only pre-import scan
type ConflictReport struct {
	Stacks   []StackConflict   `json:"stacks,omitempty"`   // Machine domain conflicts
	Profiles []ProfileConflict `json:"profiles,omitempty"` // Quality changes domain conflicts
}

// HasConflicts reports whether any domain needs a resolution decision
func (r *ConflictReport) HasConflicts() bool {
	return len(r.Stacks) > 0 || len(r.Profiles) > 0
}

// Domains lists the conflict domains present in the report
func (r *ConflictReport) Domains() []Domain {
	var domains []Domain
	if len(r.Stacks) > 0 {
		domains = append(domains, DomainMachine)
	}
	if len(r.Profiles) > 0 {
		domains = append(domains, DomainQualityChanges)
	}
	return domains
}
