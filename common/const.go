// Package common holds the wire types shared between the variantd
// daemon and its RPC clients.
package common

// Tier is a client service level. Tiers map to job priorities through a
// fixed table; unknown tiers fall back to free.
type Tier string

const (
	TierFree     Tier = "free"
	TierStandard Tier = "standard"
	TierPremium  Tier = "premium"
)

// Priority returns the download-job priority for the tier.
func (t Tier) Priority() int {
	switch t {
	case TierPremium:
		return 2
	case TierStandard:
		return 1
	default:
		return 0
	}
}

// NotifyProgress is the JSON-RPC notification method carrying progress
// events to subscribers.
const NotifyProgress = "download.progress"
