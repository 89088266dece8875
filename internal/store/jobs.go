package store

import (
	"fmt"
	"time"

	"github.com/variantdl/variantdl/pkg/variantlib"
)

// ArchiveJob copies a terminal job into the job_archive table. The
// archive is the durable record of job rows pruned from the live store;
// re-archiving the same id is a no-op so the sweeper can retry safely.
func (s *Store) ArchiveJob(job variantlib.DownloadJob) error {
	if !job.Status.Terminal() {
		return fmt.Errorf("job %s is not terminal (status %s)", job.ID, job.Status)
	}
	_, err := s.db.Exec(`
        INSERT OR IGNORE INTO job_archive
            (id, content_id, client_id, priority, status,
             requested_at, started_at, finished_at, percent, attempts)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `, job.ID, job.ContentID, job.ClientID, job.Priority, string(job.Status),
		job.RequestedAt.UnixNano(), nanoOrZero(job.StartedAt), nanoOrZero(job.FinishedAt),
		job.Percent, job.Attempts)
	if err != nil {
		return fmt.Errorf("failed to archive job %s: %w", job.ID, err)
	}
	return nil
}

// ArchivedJob reads a job back from the archive, or
// variantlib.ErrJobNotFound.
func (s *Store) ArchivedJob(id string) (variantlib.DownloadJob, error) {
	var (
		job                              variantlib.DownloadJob
		status                           string
		requestedAt, startedAt, finished int64
	)
	err := s.db.QueryRow(`
        SELECT id, content_id, client_id, priority, status,
               requested_at, started_at, finished_at, percent, attempts
        FROM job_archive WHERE id = ?
    `, id).Scan(&job.ID, &job.ContentID, &job.ClientID, &job.Priority, &status,
		&requestedAt, &startedAt, &finished, &job.Percent, &job.Attempts)
	if err != nil {
		return job, variantlib.ErrJobNotFound
	}
	job.Status = variantlib.JobStatus(status)
	job.RequestedAt = time.Unix(0, requestedAt)
	if startedAt != 0 {
		job.StartedAt = time.Unix(0, startedAt)
	}
	if finished != 0 {
		job.FinishedAt = time.Unix(0, finished)
	}
	return job, nil
}

func nanoOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}
