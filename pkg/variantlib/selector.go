package variantlib

import "math/rand"

// TieBreak is the policy used to break ties between candidates scored at
// the same maximum. The policy is a fixed deployment configuration value:
// selection must never depend on incidental iteration order.
type TieBreak string

const (
	// TieBreakQuality prefers the higher quality kind, high > normal > low.
	TieBreakQuality TieBreak = "quality"
	// TieBreakRandom picks uniformly at random among the tied candidates.
	TieBreakRandom TieBreak = "random"
)

// Selector picks the winning variant among scored candidates for
// first-time requests.
type Selector struct {
	policy TieBreak
	rng    *rand.Rand
}

// NewSelector creates a Selector with the given tie-break policy.
// The seed only matters for TieBreakRandom; passing a fixed seed makes
// random selection reproducible in tests.
func NewSelector(policy TieBreak, seed int64) *Selector {
	return &Selector{
		policy: policy,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Select returns the best candidate, or nil when candidates is empty.
// Candidates may arrive unsorted. With TieBreakQuality the choice is
// deterministic: the same scored set always yields the same variant.
func (s *Selector) Select(candidates []ScoredVariant) *ContentVariant {
	if len(candidates) == 0 {
		return nil
	}
	top := candidates[0].Score
	for _, c := range candidates[1:] {
		if c.Score > top {
			top = c.Score
		}
	}
	var tied []*ContentVariant
	for _, c := range candidates {
		if c.Score == top {
			tied = append(tied, c.Variant)
		}
	}
	if len(tied) == 1 {
		return tied[0]
	}
	if s.policy == TieBreakRandom {
		return tied[s.rng.Intn(len(tied))]
	}
	best := tied[0]
	for _, v := range tied[1:] {
		if v.Kind.QualityRank() > best.Kind.QualityRank() {
			best = v
		}
	}
	return best
}
