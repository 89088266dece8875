package variantlib

import (
	"context"
	"log"
	"sort"
	"time"
)

// DefPollInterval is the default scheduler tick interval.
const DefPollInterval = 500 * time.Millisecond

// SchedulerConfig bounds the scheduler's admission behaviour.
type SchedulerConfig struct {
	// Limit is the global cap on concurrently in_progress jobs.
	Limit int
	// PollInterval is the control-loop tick period.
	PollInterval time.Duration
}

// RunFunc launches the execution unit for an admitted job.
type RunFunc func(ctx context.Context, job DownloadJob)

// Scheduler is the admission control loop. Each tick it computes the
// free slots from the actual in_progress count and admits the
// highest-priority pending jobs, FIFO within a priority band. Admission
// is a compare-and-set on the job store, so a job can never be admitted
// twice even with concurrent actors.
//
// Across ticks the only guarantee is that a pending job is eventually
// admitted once a slot frees; a steady stream of higher-priority
// arrivals can starve low-priority jobs.
type Scheduler struct {
	store *JobStore
	cfg   SchedulerConfig
	run   RunFunc
	log   *log.Logger
	kick  chan struct{}
}

// NewScheduler creates a Scheduler and starts its control loop. The
// loop exits when ctx is canceled. run is invoked in its own goroutine
// per admitted job; the loop itself never blocks on a job's I/O.
func NewScheduler(ctx context.Context, store *JobStore, cfg SchedulerConfig, run RunFunc, l *log.Logger) *Scheduler {
	if cfg.Limit <= 0 {
		cfg.Limit = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefPollInterval
	}
	s := &Scheduler{
		store: store,
		cfg:   cfg,
		run:   run,
		log:   l,
		kick:  make(chan struct{}, 1),
	}
	safeGo(l, nil, "scheduler", func() { s.loop(ctx) })
	return s
}

// Kick requests an immediate tick, coalescing with any pending kick.
// Called on job admission so fresh jobs don't wait out a full poll
// interval.
func (s *Scheduler) Kick() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-s.kick:
		}
		s.tick(ctx)
	}
}

// tick admits up to the free slot count of pending jobs, ordered by
// priority descending then RequestedAt ascending.
func (s *Scheduler) tick(ctx context.Context) {
	slots := s.cfg.Limit - s.store.ActiveCount()
	if slots <= 0 {
		return
	}
	pending := s.store.Pending()
	if len(pending) == 0 {
		return
	}
	sort.SliceStable(pending, func(i, j int) bool {
		if pending[i].Priority != pending[j].Priority {
			return pending[i].Priority > pending[j].Priority
		}
		return pending[i].RequestedAt.Before(pending[j].RequestedAt)
	})
	for _, job := range pending {
		if slots == 0 {
			return
		}
		if !s.store.Admit(job.ID) {
			// Lost the CAS to another actor or the job was canceled.
			continue
		}
		slots--
		admitted, ok := s.store.Get(job.ID)
		if !ok {
			continue
		}
		safeGo(s.log, nil, "job "+job.ID, func() { s.run(ctx, admitted) })
	}
}
