package variantlib

import "sync"

// DepGraph maps a content variant to the set of companion variants it
// requires to function. Edges point from a content id to its required
// content ids; the graph is acyclic in practice and the resolver only
// ever walks one hop.
type DepGraph struct {
	mu       sync.RWMutex
	requires map[string][]string
}

func NewDepGraph() *DepGraph {
	return &DepGraph{requires: make(map[string][]string)}
}

// AddEdge records that contentID requires requiredID. Duplicate edges
// are collapsed.
func (g *DepGraph) AddEdge(contentID, requiredID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, id := range g.requires[contentID] {
		if id == requiredID {
			return
		}
	}
	g.requires[contentID] = append(g.requires[contentID], requiredID)
}

// Requires returns the content ids contentID depends on. The returned
// slice is a copy and safe to retain.
func (g *DepGraph) Requires(contentID string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := g.requires[contentID]
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}
