package variantlib

import "time"

// JobStatus is the state of a download job.
// Jobs move pending -> in_progress -> {success, failed}; a failed job
// may re-enter pending under the retry policy until attempts run out.
type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusInProgress JobStatus = "in_progress"
	StatusSuccess    JobStatus = "success"
	StatusFailed     JobStatus = "failed"
)

// Terminal reports whether the status is an end state.
func (s JobStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// DownloadJob is one queued transfer of a content variant to a client.
// At most one job per (content, client) pair may be pending or
// in_progress at a time; duplicate requests coalesce into the existing
// job.
type DownloadJob struct {
	// ID is the unique job identifier.
	ID string `json:"id"`
	// ContentID is the variant being delivered.
	ContentID string `json:"content_id"`
	// ClientID identifies the receiving device.
	ClientID string `json:"client_id"`
	// Priority orders admission, higher first. Derived from the client tier.
	Priority int `json:"priority"`
	// Status is the job state machine position.
	Status JobStatus `json:"status"`
	// RequestedAt is when the job was first admitted to the queue.
	RequestedAt time.Time `json:"requested_at"`
	// StartedAt is stamped at the pending -> in_progress transition.
	StartedAt time.Time `json:"started_at,omitzero"`
	// FinishedAt is stamped at the terminal transition.
	FinishedAt time.Time `json:"finished_at,omitzero"`
	// Percent is the transfer progress, 0..100, non-decreasing while
	// in_progress.
	Percent int `json:"percent"`
	// Attempts counts transfer attempts consumed so far.
	Attempts int `json:"attempts"`
	// Canceled marks a job stopped on request; checked between chunks.
	Canceled bool `json:"canceled,omitempty"`
}
