package variantlib

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStore holds the authoritative state of all live download jobs.
// Every state transition happens under one lock so that two concurrent
// actors can never both observe a job as pending and both admit it:
// admission is a compare-and-set on Status, not a separate counter.
//
// The store also maintains the (content, client) coalescing index that
// guarantees at most one pending or in_progress job per pair.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*DownloadJob
	// live maps content|client to the job id currently holding the pair.
	live map[string]string
}

func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]*DownloadJob),
		live: make(map[string]string),
	}
}

func pairKey(contentID, clientID string) string {
	return contentID + "\x00" + clientID
}

// Create registers a new pending job for the pair, or returns the
// existing live job when one is already pending or in_progress.
// The second return value is false when the request was coalesced.
func (s *JobStore) Create(contentID, clientID string, priority int) (DownloadJob, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := pairKey(contentID, clientID)
	if id, ok := s.live[key]; ok {
		return *s.jobs[id], false
	}
	job := &DownloadJob{
		ID:          uuid.NewString(),
		ContentID:   contentID,
		ClientID:    clientID,
		Priority:    priority,
		Status:      StatusPending,
		RequestedAt: time.Now(),
	}
	s.jobs[job.ID] = job
	s.live[key] = job.ID
	return *job, true
}

// Get returns a snapshot of the job.
func (s *JobStore) Get(id string) (DownloadJob, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return DownloadJob{}, false
	}
	return *job, true
}

// Pending returns snapshots of all pending jobs, in no particular order.
func (s *JobStore) Pending() []DownloadJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []DownloadJob
	for _, job := range s.jobs {
		if job.Status == StatusPending {
			out = append(out, *job)
		}
	}
	return out
}

// ActiveCount returns the number of in_progress jobs. The admission cap
// is always computed from this actual count, never a drifting counter.
func (s *JobStore) ActiveCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, job := range s.jobs {
		if job.Status == StatusInProgress {
			n++
		}
	}
	return n
}

// Admit transitions a job pending -> in_progress and stamps StartedAt.
// Returns false when the job is missing or no longer pending, so a job
// can only ever be admitted once per queue pass.
func (s *JobStore) Admit(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.Status != StatusPending {
		return false
	}
	job.Status = StatusInProgress
	job.StartedAt = time.Now()
	return true
}

// SetProgress records transfer progress. Percent is clamped to [0, 100]
// and never moves backwards while the job is in_progress.
func (s *JobStore) SetProgress(id string, percent int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.Status != StatusInProgress {
		return
	}
	if percent > 100 {
		percent = 100
	}
	if percent > job.Percent {
		job.Percent = percent
	}
}

// Complete transitions a job in_progress -> success, stamps FinishedAt,
// forces percent to 100 and releases the (content, client) pair.
func (s *JobStore) Complete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.Status != StatusInProgress {
		return false
	}
	job.Status = StatusSuccess
	job.Percent = 100
	job.FinishedAt = time.Now()
	delete(s.live, pairKey(job.ContentID, job.ClientID))
	return true
}

// Fail transitions a job in_progress -> failed, consumes one attempt and
// stamps FinishedAt. The (content, client) pair stays claimed so a
// duplicate request cannot slip in between a failure and its retry;
// Requeue or Release frees it.
func (s *JobStore) Fail(id string) (attempts int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, found := s.jobs[id]
	if !found || job.Status != StatusInProgress {
		return 0, false
	}
	job.Status = StatusFailed
	job.Attempts++
	job.FinishedAt = time.Now()
	return job.Attempts, true
}

// Requeue re-enters a failed job into the pending queue for another
// attempt, resetting its progress. Attempts and RequestedAt are kept:
// a retried job does not jump the FIFO band it started in.
func (s *JobStore) Requeue(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.Status != StatusFailed || job.Canceled {
		return false
	}
	job.Status = StatusPending
	job.Percent = 0
	job.StartedAt = time.Time{}
	job.FinishedAt = time.Time{}
	return true
}

// Release frees the (content, client) pair of a permanently failed job,
// letting a fresh request create a new job for the pair.
func (s *JobStore) Release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || !job.Status.Terminal() {
		return
	}
	key := pairKey(job.ContentID, job.ClientID)
	if s.live[key] == id {
		delete(s.live, key)
	}
}

// Cancel requests a job stop. A pending job fails immediately; an
// in_progress job keeps running until its execution unit observes the
// flag between chunks.
func (s *JobStore) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.Status.Terminal() {
		return false
	}
	job.Canceled = true
	if job.Status == StatusPending {
		job.Status = StatusFailed
		job.FinishedAt = time.Now()
		delete(s.live, pairKey(job.ContentID, job.ClientID))
	}
	return true
}

// IsCanceled reports whether a cancel was requested for the job.
func (s *JobStore) IsCanceled(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	return ok && job.Canceled
}

// Terminal returns snapshots of all jobs in an end state whose pair has
// been released, oldest first. Used by the retention sweeper.
func (s *JobStore) Terminal() []DownloadJob {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []DownloadJob
	for _, job := range s.jobs {
		if !job.Status.Terminal() {
			continue
		}
		if s.live[pairKey(job.ContentID, job.ClientID)] == job.ID {
			continue
		}
		out = append(out, *job)
	}
	return out
}

// Remove drops a terminal job from the live store. Archival of the row
// is the caller's business; the history ledger is unaffected either way.
func (s *JobStore) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || !job.Status.Terminal() {
		return
	}
	key := pairKey(job.ContentID, job.ClientID)
	if s.live[key] == id {
		delete(s.live, key)
	}
	delete(s.jobs, id)
}
