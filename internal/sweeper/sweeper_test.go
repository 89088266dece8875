package sweeper

import (
	"errors"
	"io"
	"log"
	"testing"

	"github.com/variantdl/variantdl/internal/store"
	"github.com/variantdl/variantdl/pkg/variantlib"
)

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestNewRejectsInvalidCron(t *testing.T) {
	if _, err := New(variantlib.NewJobStore(), nil, "not a cron", testLogger()); err == nil {
		t.Fatal("expected an error for an invalid cron expression")
	}
	if _, err := New(variantlib.NewJobStore(), nil, "*/5 * * * *", testLogger()); err != nil {
		t.Fatalf("valid expression rejected: %v", err)
	}
}

func TestSweepArchivesTerminalJobs(t *testing.T) {
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	jobs := variantlib.NewJobStore()

	done, _ := jobs.Create("content-1", "client", 0)
	jobs.Admit(done.ID)
	jobs.Complete(done.ID)

	pending, _ := jobs.Create("content-2", "client", 0)

	running, _ := jobs.Create("content-3", "client", 0)
	jobs.Admit(running.ID)

	sw, err := New(jobs, st, "* * * * *", testLogger())
	if err != nil {
		t.Fatal(err)
	}
	sw.Sweep()

	// The completed job moved to the archive and left the live store.
	if _, ok := jobs.Get(done.ID); ok {
		t.Fatal("terminal job still in the live store")
	}
	archived, err := st.ArchivedJob(done.ID)
	if err != nil {
		t.Fatal(err)
	}
	if archived.Status != variantlib.StatusSuccess {
		t.Fatalf("archived status = %s", archived.Status)
	}

	// Pending and running jobs are untouched.
	if _, ok := jobs.Get(pending.ID); !ok {
		t.Fatal("pending job swept")
	}
	if _, ok := jobs.Get(running.ID); !ok {
		t.Fatal("running job swept")
	}
}

type failingArchive struct{}

func (failingArchive) ArchiveJob(variantlib.DownloadJob) error {
	return errors.New("disk full")
}

func TestSweepKeepsJobOnArchiveFailure(t *testing.T) {
	jobs := variantlib.NewJobStore()
	done, _ := jobs.Create("content-1", "client", 0)
	jobs.Admit(done.ID)
	jobs.Complete(done.ID)

	sw, err := New(jobs, failingArchive{}, "* * * * *", testLogger())
	if err != nil {
		t.Fatal(err)
	}
	sw.Sweep()

	// The job survives for the next pass.
	if _, ok := jobs.Get(done.ID); !ok {
		t.Fatal("job pruned despite archive failure")
	}
}
