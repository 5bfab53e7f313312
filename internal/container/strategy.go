package container

// Strategy selects how a conflicting entity is resolved
type Strategy string

const (
	StrategyOverride Strategy = "override" // Overwrite the stored entity in place
	StrategyNew      Strategy = "new"      // Duplicate under a fresh identity
	StrategyCancel   Strategy = "cancel"   // Abort the import
)

// Valid reports whether s is a recognized strategy token
func (s Strategy) Valid() bool {
	switch s {
	case StrategyOverride, StrategyNew, StrategyCancel:
		return true
	}
	return false
}

// Domain is a conflict category sharing one resolution strategy per import
type Domain string

const (
	DomainMachine        Domain = "machine"         // Stacks and user profiles
	DomainQualityChanges Domain = "quality_changes" // Quality tweak profiles
)

// Domains lists all conflict domains
var Domains = []Domain{DomainMachine, DomainQualityChanges}

// StrategySet records the decided strategy per conflict domain.
// A missing entry means no conflict was detected for that domain and
// entities fall back to add-if-absent.
type StrategySet map[Domain]Strategy

// UniformStrategy builds a set applying one token to every domain
func UniformStrategy(s Strategy) StrategySet {
	set := make(StrategySet, len(Domains))
	for _, d := range Domains {
		set[d] = s
	}
	return set
}

// For returns the recorded strategy for a domain, empty when none was decided
func (ss StrategySet) For(d Domain) Strategy {
	if ss == nil {
		return ""
	}
	return ss[d]
}
