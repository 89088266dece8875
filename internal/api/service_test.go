package api

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/variantdl/variantdl/common"
	"github.com/variantdl/variantdl/internal/store"
	"github.com/variantdl/variantdl/pkg/variantlib"
)

// newTestService assembles a Service over an in-memory database with an
// idle scheduler, so admission never races the assertions.
func newTestService(t *testing.T) (*Service, *store.Store, *variantlib.JobStore) {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { st.Close() })

	schedCtx, stopSched := context.WithCancel(context.Background())
	stopSched()
	jobs := variantlib.NewJobStore()
	sched := variantlib.NewScheduler(schedCtx, jobs, variantlib.SchedulerConfig{Limit: 1}, func(context.Context, variantlib.DownloadJob) {}, nil)

	graph := variantlib.NewDepGraph()
	svc := NewService(Config{
		Log:      log.New(io.Discard, "", 0),
		Store:    st,
		Jobs:     jobs,
		Ledger:   st,
		Graph:    graph,
		Selector: variantlib.NewSelector(variantlib.TieBreakQuality, 1),
		Resolver: variantlib.NewResolver(st, graph),
		Sched:    sched,
	})
	return svc, st, jobs
}

func seedCatalog(t *testing.T, st *store.Store) {
	t.Helper()
	ctx := context.Background()
	variants := []variantlib.ContentVariant{
		{ID: "orig", Name: "movie", Kind: variantlib.KindOriginal, Version: "1.0.0",
			ConversionState: variantlib.ConversionSuccess},
		{ID: "v-high", Name: "movie", Kind: variantlib.KindHigh, Version: "1.0.0", ParentID: "orig",
			Meta:            variantlib.Metadata{RequiredChipset: "snapdragon888", MinMemory: 6, Resolution: "2160p"},
			ConversionState: variantlib.ConversionSuccess, DownloadURL: "https://cdn/movie/high"},
		{ID: "v-normal", Name: "movie", Kind: variantlib.KindNormal, Version: "1.0.0", ParentID: "orig",
			Meta:            variantlib.Metadata{RequiredChipset: "snapdragon888", MinMemory: 4, Resolution: "1080p"},
			ConversionState: variantlib.ConversionSuccess, DownloadURL: "https://cdn/movie/normal"},
		{ID: "v-low", Name: "movie", Kind: variantlib.KindLow, Version: "1.0.0", ParentID: "orig",
			Meta:            variantlib.Metadata{RequiredChipset: "mediatek1200", MinMemory: 2, Resolution: "480p"},
			ConversionState: variantlib.ConversionSuccess, DownloadURL: "https://cdn/movie/low"},
	}
	for i := range variants {
		if err := st.AddVariant(ctx, &variants[i]); err != nil {
			t.Fatal(err)
		}
	}
}

func TestResolvePicksBestVariant(t *testing.T) {
	svc, st, _ := newTestService(t)
	seedCatalog(t, st)

	got, err := svc.Resolve(context.Background(), &common.ResolveParams{
		Device:        variantlib.DeviceInfo{Chipset: "snapdragon888", Memory: 8, Resolution: "1080p"},
		RequestedName: "movie",
		ClientID:      "client-1",
	})
	if err != nil {
		t.Fatal(err)
	}
	// v-normal fits every dimension exactly; v-high wants a resolution
	// above the device and v-low targets another chipset.
	if got.ContentID != "v-normal" || got.Fallback {
		t.Fatalf("resolve = %+v, want v-normal, no fallback", got)
	}
	if got.DownloadURL != "https://cdn/movie/normal" {
		t.Fatalf("download url = %s", got.DownloadURL)
	}
}

func TestResolveValidation(t *testing.T) {
	svc, st, _ := newTestService(t)
	seedCatalog(t, st)
	ctx := context.Background()
	device := variantlib.DeviceInfo{Chipset: "snapdragon888", Memory: 8, Resolution: "1080p"}

	_, err := svc.Resolve(ctx, &common.ResolveParams{Device: device})
	if !errors.Is(err, variantlib.ErrInvalidRequest) {
		t.Fatalf("missing name: %v", err)
	}
	_, err = svc.Resolve(ctx, &common.ResolveParams{RequestedName: "movie"})
	if !errors.Is(err, variantlib.ErrInvalidRequest) {
		t.Fatalf("missing device: %v", err)
	}
	_, err = svc.Resolve(ctx, &common.ResolveParams{Device: device, RequestedName: "nope"})
	if !errors.Is(err, variantlib.ErrContentNotFound) {
		t.Fatalf("unknown name: %v", err)
	}
}

func TestResolveNoCompatibleContent(t *testing.T) {
	svc, st, _ := newTestService(t)
	seedCatalog(t, st)

	// Nothing about this device matches any variant; zero scores are
	// dropped rather than served.
	_, err := svc.Resolve(context.Background(), &common.ResolveParams{
		Device:        variantlib.DeviceInfo{Chipset: "exynos2100", Memory: 1, Resolution: "240p"},
		RequestedName: "movie",
		ClientID:      "client-1",
	})
	if !errors.Is(err, variantlib.ErrNoCompatibleContent) {
		t.Fatalf("expected ErrNoCompatibleContent, got %v", err)
	}
}

func TestResolveFallback(t *testing.T) {
	svc, st, _ := newTestService(t)
	seedCatalog(t, st)

	got, err := svc.Resolve(context.Background(), &common.ResolveParams{
		Device:          variantlib.DeviceInfo{Chipset: "snapdragon888", Memory: 8, Resolution: "1080p"},
		RequestedName:   "movie",
		ClientID:        "client-1",
		FailedContentID: "v-normal",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !got.Fallback {
		t.Fatal("fallback flag not set")
	}
	if got.ContentID == "v-normal" {
		t.Fatal("fallback returned the failed content")
	}
}

func TestRequestDownloadCoalesces(t *testing.T) {
	svc, st, _ := newTestService(t)
	seedCatalog(t, st)
	ctx := context.Background()

	p := &common.DownloadParams{ContentID: "v-normal", ClientID: "client-1", Tier: common.TierPremium}
	first, err := svc.RequestDownload(ctx, p)
	if err != nil {
		t.Fatal(err)
	}
	if first.Coalesced {
		t.Fatal("first request must not coalesce")
	}

	second, err := svc.RequestDownload(ctx, p)
	if err != nil {
		t.Fatal(err)
	}
	if !second.Coalesced || second.JobID != first.JobID {
		t.Fatalf("duplicate request: %+v, want coalesced onto %s", second, first.JobID)
	}

	_, err = svc.RequestDownload(ctx, &common.DownloadParams{ContentID: "missing", ClientID: "client-1"})
	if !errors.Is(err, variantlib.ErrContentNotFound) {
		t.Fatalf("unknown content: %v", err)
	}
	_, err = svc.RequestDownload(ctx, &common.DownloadParams{ContentID: "v-normal"})
	if !errors.Is(err, variantlib.ErrInvalidRequest) {
		t.Fatalf("missing client: %v", err)
	}
}

func TestJobStatusFallsBackToArchive(t *testing.T) {
	svc, st, jobs := newTestService(t)
	seedCatalog(t, st)
	ctx := context.Background()

	res, err := svc.RequestDownload(ctx, &common.DownloadParams{ContentID: "v-normal", ClientID: "client-1"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := svc.JobStatus(&common.JobParams{JobID: res.JobID})
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != variantlib.StatusPending {
		t.Fatalf("status = %s, want pending", got.Status)
	}

	// Complete, archive and prune the job; status must survive.
	jobs.Admit(res.JobID)
	jobs.Complete(res.JobID)
	snap, _ := jobs.Get(res.JobID)
	if err := st.ArchiveJob(snap); err != nil {
		t.Fatal(err)
	}
	jobs.Remove(res.JobID)

	got, err = svc.JobStatus(&common.JobParams{JobID: res.JobID})
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != variantlib.StatusSuccess || got.Percent != 100 {
		t.Fatalf("archived status = %+v", got)
	}

	_, err = svc.JobStatus(&common.JobParams{JobID: "missing"})
	if !errors.Is(err, variantlib.ErrJobNotFound) {
		t.Fatalf("missing job: %v", err)
	}
}

func TestCancelJobIdempotent(t *testing.T) {
	svc, st, jobs := newTestService(t)
	seedCatalog(t, st)
	ctx := context.Background()

	res, err := svc.RequestDownload(ctx, &common.DownloadParams{ContentID: "v-normal", ClientID: "client-1"})
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.CancelJob(&common.JobParams{JobID: res.JobID}); err != nil {
		t.Fatal(err)
	}
	// Already terminal: still fine.
	if err := svc.CancelJob(&common.JobParams{JobID: res.JobID}); err != nil {
		t.Fatalf("second cancel: %v", err)
	}
	if err := svc.CancelJob(&common.JobParams{JobID: "missing"}); !errors.Is(err, variantlib.ErrJobNotFound) {
		t.Fatalf("missing job: %v", err)
	}
	_ = jobs
}

func TestHistoryDefaultsLimit(t *testing.T) {
	svc, st, _ := newTestService(t)
	for i := 0; i < 25; i++ {
		if err := st.Append(variantlib.HistoryRecord{
			ContentID: "c", ClientID: "client-1", Success: true,
			Timestamp: time.Now(),
		}); err != nil {
			t.Fatal(err)
		}
	}

	got, err := svc.History(&common.HistoryParams{ClientID: "client-1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Records) != 20 {
		t.Fatalf("records = %d, want the default limit of 20", len(got.Records))
	}

	if _, err := svc.History(&common.HistoryParams{}); !errors.Is(err, variantlib.ErrInvalidRequest) {
		t.Fatalf("missing client: %v", err)
	}
}

func TestAddDependencyUpdatesLiveGraph(t *testing.T) {
	svc, st, _ := newTestService(t)
	seedCatalog(t, st)
	ctx := context.Background()

	if err := svc.AddDependency(ctx, "v-low", "codec-pack"); err != nil {
		t.Fatal(err)
	}

	// The resolver consults the live graph immediately: client-1 has no
	// successful codec-pack download, so v-low cannot be a fallback.
	_, err := svc.Resolve(ctx, &common.ResolveParams{
		Device:          variantlib.DeviceInfo{Chipset: "mediatek1200", Memory: 4, Resolution: "480p"},
		RequestedName:   "movie",
		ClientID:        "client-1",
		FailedContentID: "v-normal",
	})
	if !errors.Is(err, variantlib.ErrNoFallbackAvailable) {
		t.Fatalf("expected ErrNoFallbackAvailable, got %v", err)
	}

	// Once the dependency is satisfied the fallback goes through.
	if err := st.Append(variantlib.HistoryRecord{ContentID: "codec-pack", ClientID: "client-1", Success: true}); err != nil {
		t.Fatal(err)
	}
	got, err := svc.Resolve(ctx, &common.ResolveParams{
		Device:          variantlib.DeviceInfo{Chipset: "mediatek1200", Memory: 4, Resolution: "480p"},
		RequestedName:   "movie",
		ClientID:        "client-1",
		FailedContentID: "v-normal",
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.ContentID != "v-low" {
		t.Fatalf("fallback = %s, want v-low", got.ContentID)
	}
}

func TestListContents(t *testing.T) {
	svc, st, _ := newTestService(t)
	seedCatalog(t, st)

	got, err := svc.ListContents(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Contents) != 1 {
		t.Fatalf("contents = %d, want 1 original", len(got.Contents))
	}
	entry := got.Contents[0]
	if entry.ID != "orig" || len(entry.Variants) != 3 {
		t.Fatalf("entry = %+v, want orig with 3 variants", entry)
	}
}
