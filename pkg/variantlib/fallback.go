package variantlib

import (
	"fmt"
	"sort"
)

// fallbackFailureThreshold excludes a candidate once half of the client's
// recorded attempts with it have failed. Zero attempts never excludes.
const fallbackFailureThreshold = 0.5

// Resolver picks a replacement variant after a reported delivery failure,
// consulting the history ledger and the dependency graph.
type Resolver struct {
	ledger Ledger
	graph  *DepGraph
}

func NewResolver(ledger Ledger, graph *DepGraph) *Resolver {
	return &Resolver{ledger: ledger, graph: graph}
}

// Fallback walks the candidates in descending score order and returns the
// first one that survives all four exclusion filters, applied in order
// with short-circuiting:
//
//  1. identity: never the failed content id itself
//  2. name: never a variant of a different logical asset
//  3. reliability: skip when the client's history shows at least one
//     attempt and a failure rate at or above 50%
//  4. dependencies: skip when any required companion content lacks a
//     recorded successful download for this client
//
// Returns ErrNoFallbackAvailable when nothing survives; the caller must
// surface that rather than silently degrade.
func (r *Resolver) Fallback(candidates []ScoredVariant, excludeContentID, clientID, requestedName string) (*ContentVariant, error) {
	ranked := make([]ScoredVariant, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	for _, c := range ranked {
		v := c.Variant
		if v.ID == excludeContentID {
			continue
		}
		if v.Name != requestedName {
			continue
		}
		stats, err := r.ledger.Stats(v.ID, clientID)
		if err != nil {
			return nil, fmt.Errorf("fallback: reading ledger for %s: %w", v.ID, err)
		}
		if stats.Attempts > 0 && stats.FailureRate() >= fallbackFailureThreshold {
			continue
		}
		ok, err := r.dependenciesSatisfied(v.ID, clientID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		return v, nil
	}
	return nil, ErrNoFallbackAvailable
}

// dependenciesSatisfied reports whether the client holds every companion
// content the variant requires, judged by at least one successful
// download per required id in the ledger.
func (r *Resolver) dependenciesSatisfied(contentID, clientID string) (bool, error) {
	for _, required := range r.graph.Requires(contentID) {
		stats, err := r.ledger.Stats(required, clientID)
		if err != nil {
			return false, fmt.Errorf("fallback: reading ledger for dependency %s: %w", required, err)
		}
		if stats.Successes == 0 {
			return false, nil
		}
	}
	return true, nil
}
