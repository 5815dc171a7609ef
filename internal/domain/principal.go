package domain

// Tier is a caller's service tier. It caps how many results a single
// search may return.
type Tier string

// Known tiers.
const (
	TierFree     Tier = "free"
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
)

// ResultCeiling returns the maximum result limit for the tier.
func (t Tier) ResultCeiling() int {
	switch t {
	case TierPremium:
		return 500
	case TierStandard:
		return 100
	case TierFree:
		return 50
	default:
		return 100
	}
}

// Principal identifies the caller of a search.
type Principal struct {
	ID   string
	Tier Tier
}

// NewPrincipal creates a principal, defaulting to the standard tier.
func NewPrincipal(id string, tier Tier) Principal {
	if tier == "" {
		tier = TierStandard
	}
	return Principal{ID: id, Tier: tier}
}
