package store

import (
	"context"
	"fmt"

	"github.com/variantdl/variantdl/pkg/variantlib"
)

// AddDependency records that contentID requires requiredID to function.
// Duplicate edges are ignored.
func (s *Store) AddDependency(ctx context.Context, contentID, requiredID string) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT OR IGNORE INTO content_dependencies (content_id, required_id)
        VALUES (?, ?)
    `, contentID, requiredID)
	if err != nil {
		return fmt.Errorf("failed to insert dependency %s -> %s: %w", contentID, requiredID, err)
	}
	return nil
}

// LoadDependencies builds the in-memory dependency graph from the
// persisted edges. Called once at daemon startup and after catalog
// changes.
func (s *Store) LoadDependencies(ctx context.Context) (*variantlib.DepGraph, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT content_id, required_id FROM content_dependencies
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to query dependencies: %w", err)
	}
	defer rows.Close()

	graph := variantlib.NewDepGraph()
	for rows.Next() {
		var contentID, requiredID string
		if err := rows.Scan(&contentID, &requiredID); err != nil {
			return nil, fmt.Errorf("failed to scan dependency row: %w", err)
		}
		graph.AddEdge(contentID, requiredID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dependency rows: %w", err)
	}
	return graph, nil
}
