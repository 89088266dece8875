package store

import (
	"fmt"
	"time"

	"github.com/variantdl/variantdl/pkg/variantlib"
)

// Store implements variantlib.Ledger on the download_history table.
// Rows are append-only: there is no update or delete path, and job
// archival never touches them.
var _ variantlib.Ledger = (*Store)(nil)

// Append records a terminal transfer outcome.
func (s *Store) Append(rec variantlib.HistoryRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	_, err := s.db.Exec(`
        INSERT INTO download_history (content_id, client_id, success, timestamp)
        VALUES (?, ?, ?, ?)
    `, rec.ContentID, rec.ClientID, boolToInt(rec.Success), rec.Timestamp.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to append history record: %w", err)
	}
	return nil
}

// Stats returns the rolling reliability of a (content, client) pair.
func (s *Store) Stats(contentID, clientID string) (variantlib.ReliabilityStats, error) {
	var stats variantlib.ReliabilityStats
	err := s.db.QueryRow(`
        SELECT COUNT(*),
               COALESCE(SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END), 0)
        FROM download_history
        WHERE content_id = ? AND client_id = ?
    `, contentID, clientID).Scan(&stats.Attempts, &stats.Failures)
	if err != nil {
		return stats, fmt.Errorf("failed to query history stats: %w", err)
	}
	stats.Successes = stats.Attempts - stats.Failures
	return stats, nil
}

// Recent returns the most recent n records for a client, newest first.
func (s *Store) Recent(clientID string, n int) ([]variantlib.HistoryRecord, error) {
	rows, err := s.db.Query(`
        SELECT content_id, client_id, success, timestamp
        FROM download_history
        WHERE client_id = ?
        ORDER BY id DESC
        LIMIT ?
    `, clientID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent history: %w", err)
	}
	defer rows.Close()

	var out []variantlib.HistoryRecord
	for rows.Next() {
		var (
			rec     variantlib.HistoryRecord
			success int
			ts      int64
		)
		if err := rows.Scan(&rec.ContentID, &rec.ClientID, &success, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		rec.Success = success != 0
		rec.Timestamp = time.Unix(0, ts)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history rows: %w", err)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
