package variantlib

import (
	"sync"
	"time"
)

// HistoryRecord is one immutable transfer outcome for a (content, client)
// pair. Records are append-only: never mutated, never deleted.
type HistoryRecord struct {
	ContentID string    `json:"content_id"`
	ClientID  string    `json:"client_id"`
	Success   bool      `json:"success"`
	Timestamp time.Time `json:"timestamp"`
}

// ReliabilityStats summarises a client's delivery history with a content.
type ReliabilityStats struct {
	Attempts  int
	Failures  int
	Successes int
}

// FailureRate returns failures over attempts, or 0 with no attempts.
func (s ReliabilityStats) FailureRate() float64 {
	if s.Attempts == 0 {
		return 0
	}
	return float64(s.Failures) / float64(s.Attempts)
}

// Ledger is the append-only record of past transfer outcomes.
// Implementations must be safe for concurrent use; the scheduler's
// execution units append while scoring reads.
type Ledger interface {
	// Append records a terminal transfer outcome.
	Append(rec HistoryRecord) error
	// Stats returns the rolling reliability of a (content, client) pair.
	Stats(contentID, clientID string) (ReliabilityStats, error)
	// Recent returns the most recent n records for a client,
	// newest first.
	Recent(clientID string, n int) ([]HistoryRecord, error)
}

// MemoryLedger is an in-process Ledger. The daemon uses the sqlite-backed
// ledger; this one backs tests and embedded use.
type MemoryLedger struct {
	mu   sync.RWMutex
	recs []HistoryRecord
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

func (l *MemoryLedger) Append(rec HistoryRecord) error {
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recs = append(l.recs, rec)
	return nil
}

func (l *MemoryLedger) Stats(contentID, clientID string) (ReliabilityStats, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var s ReliabilityStats
	for _, rec := range l.recs {
		if rec.ContentID != contentID || rec.ClientID != clientID {
			continue
		}
		s.Attempts++
		if rec.Success {
			s.Successes++
		} else {
			s.Failures++
		}
	}
	return s, nil
}

func (l *MemoryLedger) Recent(clientID string, n int) ([]HistoryRecord, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]HistoryRecord, 0, n)
	for i := len(l.recs) - 1; i >= 0 && len(out) < n; i-- {
		if l.recs[i].ClientID == clientID {
			out = append(out, l.recs[i])
		}
	}
	return out, nil
}
