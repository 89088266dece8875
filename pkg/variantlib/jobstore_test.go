package variantlib

import (
	"sync"
	"testing"
)

func TestJobStoreCoalescesLiveRequests(t *testing.T) {
	s := NewJobStore()

	first, created := s.Create("content-1", "client-1", 1)
	if !created {
		t.Fatal("first request must create a job")
	}
	dup, created := s.Create("content-1", "client-1", 1)
	if created {
		t.Fatal("duplicate request must coalesce")
	}
	if dup.ID != first.ID {
		t.Fatalf("coalesced request returned job %s, want %s", dup.ID, first.ID)
	}

	// Still coalesced while in_progress.
	if !s.Admit(first.ID) {
		t.Fatal("admit failed")
	}
	dup, created = s.Create("content-1", "client-1", 1)
	if created || dup.ID != first.ID {
		t.Fatalf("in_progress job must still coalesce, created=%v id=%s", created, dup.ID)
	}

	// A different client gets its own job.
	other, created := s.Create("content-1", "client-2", 1)
	if !created || other.ID == first.ID {
		t.Fatal("different client must get a fresh job")
	}

	// After completion a new request creates a fresh job.
	s.Complete(first.ID)
	fresh, created := s.Create("content-1", "client-1", 1)
	if !created || fresh.ID == first.ID {
		t.Fatal("completed pair must accept a new job")
	}
}

func TestJobStoreAdmitOnce(t *testing.T) {
	s := NewJobStore()
	job, _ := s.Create("content-1", "client-1", 0)

	// Many concurrent actors race to admit; exactly one may win.
	var wg sync.WaitGroup
	wins := make(chan struct{}, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Admit(job.ID) {
				wins <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(wins)

	n := 0
	for range wins {
		n++
	}
	if n != 1 {
		t.Fatalf("job admitted %d times, want exactly 1", n)
	}
}

func TestJobStoreProgressNeverRegresses(t *testing.T) {
	s := NewJobStore()
	job, _ := s.Create("content-1", "client-1", 0)
	s.Admit(job.ID)

	s.SetProgress(job.ID, 40)
	s.SetProgress(job.ID, 25)
	got, _ := s.Get(job.ID)
	if got.Percent != 40 {
		t.Fatalf("percent regressed to %d, want 40", got.Percent)
	}

	s.SetProgress(job.ID, 250)
	got, _ = s.Get(job.ID)
	if got.Percent != 100 {
		t.Fatalf("percent not clamped: %d", got.Percent)
	}
}

func TestJobStoreFailKeepsPairClaimed(t *testing.T) {
	s := NewJobStore()
	job, _ := s.Create("content-1", "client-1", 0)
	s.Admit(job.ID)

	attempts, ok := s.Fail(job.ID)
	if !ok || attempts != 1 {
		t.Fatalf("Fail: attempts=%d ok=%v", attempts, ok)
	}

	// The pair is still claimed between a failure and its retry, so a
	// duplicate request coalesces onto the failed job.
	dup, created := s.Create("content-1", "client-1", 0)
	if created || dup.ID != job.ID {
		t.Fatalf("pair released too early: created=%v id=%s", created, dup.ID)
	}

	if !s.Requeue(job.ID) {
		t.Fatal("requeue failed")
	}
	got, _ := s.Get(job.ID)
	if got.Status != StatusPending || got.Percent != 0 || got.Attempts != 1 {
		t.Fatalf("requeued job in bad state: %+v", got)
	}

	// Permanent failure releases the pair.
	s.Admit(job.ID)
	s.Fail(job.ID)
	s.Release(job.ID)
	fresh, created := s.Create("content-1", "client-1", 0)
	if !created || fresh.ID == job.ID {
		t.Fatal("released pair must accept a new job")
	}
}

func TestJobStoreCancel(t *testing.T) {
	s := NewJobStore()

	// Pending jobs fail immediately and free the pair.
	job, _ := s.Create("content-1", "client-1", 0)
	if !s.Cancel(job.ID) {
		t.Fatal("cancel of pending job failed")
	}
	got, _ := s.Get(job.ID)
	if got.Status != StatusFailed || !got.Canceled {
		t.Fatalf("canceled pending job in bad state: %+v", got)
	}
	if _, created := s.Create("content-1", "client-1", 0); !created {
		t.Fatal("canceled pending job must release the pair")
	}

	// In-progress jobs only get flagged; the runner observes the flag.
	running, _ := s.Create("content-2", "client-1", 0)
	s.Admit(running.ID)
	if !s.Cancel(running.ID) {
		t.Fatal("cancel of running job failed")
	}
	got, _ = s.Get(running.ID)
	if got.Status != StatusInProgress {
		t.Fatalf("running job must keep running until the flag is seen, got %s", got.Status)
	}
	if !s.IsCanceled(running.ID) {
		t.Fatal("cancel flag not set")
	}

	// Terminal jobs cannot be canceled.
	s.Fail(running.ID)
	if s.Cancel(running.ID) {
		t.Fatal("cancel of terminal job must be a no-op")
	}
}

func TestJobStoreRequeueBlockedAfterCancel(t *testing.T) {
	s := NewJobStore()
	job, _ := s.Create("content-1", "client-1", 0)
	s.Admit(job.ID)
	s.Cancel(job.ID)
	s.Fail(job.ID)
	if s.Requeue(job.ID) {
		t.Fatal("canceled job must not be requeued")
	}
}

func TestJobStoreTerminalAndRemove(t *testing.T) {
	s := NewJobStore()
	done, _ := s.Create("content-1", "client-1", 0)
	s.Admit(done.ID)
	s.Complete(done.ID)

	held, _ := s.Create("content-2", "client-1", 0)
	s.Admit(held.ID)
	s.Fail(held.ID) // pair still claimed, not sweepable

	pending, _ := s.Create("content-3", "client-1", 0)
	_ = pending

	terms := s.Terminal()
	if len(terms) != 1 || terms[0].ID != done.ID {
		t.Fatalf("Terminal() = %+v, want only the completed job", terms)
	}

	s.Remove(done.ID)
	if _, ok := s.Get(done.ID); ok {
		t.Fatal("removed job still present")
	}
	s.Remove(pending.ID)
	if _, ok := s.Get(pending.ID); !ok {
		t.Fatal("Remove must not drop a non-terminal job")
	}
}
