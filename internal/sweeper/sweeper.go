// Package sweeper archives terminal download jobs out of the live job
// store on a cron schedule. Jobs are copied to the sqlite archive and
// then pruned; history ledger rows are a separate lifecycle and are
// never touched.
package sweeper

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"time"

	"github.com/adhocore/gronx"

	"github.com/variantdl/variantdl/pkg/variantlib"
)

// maxSleepCap bounds how long the sweeper sleeps between schedule
// checks, so clock steps and system sleep cannot stall it for long.
const maxSleepCap = 60 * time.Second

// Archiver is the durable sink for swept jobs.
type Archiver interface {
	ArchiveJob(job variantlib.DownloadJob) error
}

// Sweeper runs a single goroutine that fires on a cron expression and
// moves terminal jobs from the live store into the archive.
type Sweeper struct {
	jobs     *variantlib.JobStore
	archive  Archiver
	cronExpr string
	log      *log.Logger
}

// New validates the cron expression and creates a Sweeper; call Run to
// start it.
func New(jobs *variantlib.JobStore, archive Archiver, cronExpr string, l *log.Logger) (*Sweeper, error) {
	if !gronx.New().IsValid(cronExpr) {
		return nil, fmt.Errorf("invalid cron expression: %s", cronExpr)
	}
	return &Sweeper{
		jobs:     jobs,
		archive:  archive,
		cronExpr: cronExpr,
		log:      l,
	}, nil
}

// Run blocks until ctx is canceled, sweeping at each cron occurrence.
func (s *Sweeper) Run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil && s.log != nil {
			s.log.Printf("PANIC [sweeper]: %v\n%s", r, debug.Stack())
		}
	}()
	for {
		next, err := gronx.NextTickAfter(s.cronExpr, time.Now(), false)
		if err != nil {
			s.log.Printf("sweeper: cannot compute next occurrence: %v", err)
			return
		}
		for {
			dur := time.Until(next)
			if dur <= 0 {
				break
			}
			if dur > maxSleepCap {
				dur = maxSleepCap
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(dur):
			}
		}
		s.Sweep()
	}
}

// Sweep archives and prunes every terminal job whose (content, client)
// pair has been released. Archive failures leave the job in the live
// store for the next pass.
func (s *Sweeper) Sweep() {
	for _, job := range s.jobs.Terminal() {
		if err := s.archive.ArchiveJob(job); err != nil {
			s.log.Printf("sweeper: archiving job %s: %v", job.ID, err)
			continue
		}
		s.jobs.Remove(job.ID)
		s.log.Printf("sweeper: archived job %s (%s)", job.ID, job.Status)
	}
}
